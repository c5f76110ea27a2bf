package parttable

import (
	"strings"
	"testing"
)

func TestLoadCSVBuildFidelity(t *testing.T) {
	csvData := "# Name,   Type, SubType, Offset,  Size, Flags\n" +
		"nvs,      data, nvs,     0x9000,  0x6000,\n" +
		"otadata,  data, ota,     ,        0x2000,\n" +
		"factory,  app,  factory, ,        1M,\n"

	defs, err := LoadCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("got %d defs, want 3", len(defs))
	}

	if defs[0].Name != "nvs" || defs[0].Type != TypeData || defs[0].Subtype != SubtypeDataNVS || defs[0].Offset != 0x9000 || defs[0].Size != 0x6000 {
		t.Errorf("nvs def mismatch: %+v", defs[0])
	}
	if defs[1].Subtype != SubtypeDataOTA || defs[1].Offset != 0 {
		t.Errorf("otadata def mismatch: %+v", defs[1])
	}
	if defs[2].Type != TypeApp || defs[2].Subtype != SubtypeAppFactory || defs[2].Size != 1024*1024 {
		t.Errorf("factory def mismatch: %+v", defs[2])
	}

	table, err := Build(defs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	entries, err := Parse(table)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries back, want 3", len(entries))
	}
}

func TestLoadCSVOTASubtype(t *testing.T) {
	csvData := "name,type,subtype,offset,size\n" +
		"ota_1,app,ota_1,0x110000,0x100000\n"

	defs, err := LoadCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("got %d defs, want 1", len(defs))
	}
	if defs[0].Subtype != SubtypeAppOTA(1) {
		t.Errorf("subtype = 0x%x, want 0x%x", defs[0].Subtype, SubtypeAppOTA(1))
	}
}

func TestLoadCSVRejectsShortRow(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("name,type,subtype,offset\n" + "x,app,factory,0x10000\n"))
	if err == nil {
		t.Fatal("expected error for short row")
	}
}
