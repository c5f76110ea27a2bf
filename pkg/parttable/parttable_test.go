package parttable

import (
	"bytes"
	"testing"
)

func TestBuildAssignsOffsetsAndLength(t *testing.T) {
	// S5: nvs(DATA,NVS,0x6000), phy_init(DATA,PHY,0x1000), factory(APP,FACTORY,0x100000)
	// -> offsets 0x9000, 0xF000, 0x10000; total length 0x1000.
	defs := []Def{
		{Name: "nvs", Type: TypeData, Subtype: SubtypeDataNVS, Size: 0x6000},
		{Name: "phy_init", Type: TypeData, Subtype: SubtypeDataPHY, Size: 0x1000},
		{Name: "factory", Type: TypeApp, Subtype: SubtypeAppFactory, Size: 0x100000},
	}

	table, err := Build(defs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(table) != Size {
		t.Fatalf("len = 0x%x, want 0x%x", len(table), Size)
	}

	entries, err := Parse(table)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	wantOffsets := []uint32{0x9000, 0xF000, 0x10000}
	for i, e := range entries {
		if e.Offset != wantOffsets[i] {
			t.Errorf("entry %d offset = 0x%x, want 0x%x", i, e.Offset, wantOffsets[i])
		}
	}

	trailer := table[3*entrySize : 3*entrySize+16]
	want := []byte{0xEB, 0xEB, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(trailer, want) {
		t.Errorf("trailer = % x, want % x", trailer, want)
	}
}

func TestBuildRejectsLongName(t *testing.T) {
	defs := []Def{{Name: "this_name_is_way_too_long_for_a_partition", Type: TypeData, Subtype: SubtypeDataNVS, Size: 0x1000}}
	if _, err := Build(defs); err == nil {
		t.Fatal("expected error for over-length name")
	}
}

func TestExplicitOffsetIsRespected(t *testing.T) {
	defs := []Def{{Name: "coredump", Type: TypeData, Subtype: SubtypeDataOTA, Offset: 0x20000, Size: 0x1000}}
	table, err := Build(defs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	entries, _ := Parse(table)
	if entries[0].Offset != 0x20000 {
		t.Errorf("offset = 0x%x, want 0x20000", entries[0].Offset)
	}
}

func TestRoundTripPreservesFields(t *testing.T) {
	defs := []Def{
		{Name: "ota_0", Type: TypeApp, Subtype: SubtypeAppOTA(0), Size: 0x100000},
		{Name: "storage", Type: TypeData, Subtype: SubtypeDataSPIFFS, Size: 0x80000},
	}
	table, err := Build(defs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	entries, err := Parse(table)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i, d := range defs {
		if entries[i].Name != d.Name || entries[i].Type != d.Type || entries[i].Subtype != d.Subtype || entries[i].Size != d.Size {
			t.Errorf("entry %d = %+v, want fields from %+v", i, entries[i], d)
		}
	}
}
