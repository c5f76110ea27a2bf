package nvs

import (
	"strings"
	"testing"
)

func TestWriteAndParseRoundTrip(t *testing.T) {
	b := NewBuilder()
	if err := b.WriteEntry("wifi", "ssid", String("my-network")); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if err := b.WriteEntry("wifi", "channel", Uint(6)); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if err := b.WriteEntry("app", "retries", Int(-3)); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}

	image := b.GetBinary(DefaultPartitionSize)
	if len(image) != DefaultPartitionSize {
		t.Fatalf("len = %d, want %d", len(image), DefaultPartitionSize)
	}

	entries, err := Parse(image)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := map[string]string{"wifi.ssid": "my-network", "wifi.channel": "6", "app.retries": "-3"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for _, e := range entries {
		key := e.Namespace + "." + e.Key
		switch e.Type {
		case TypeStr:
			if e.Str != want[key] {
				t.Errorf("%s = %q, want %q", key, e.Str, want[key])
			}
		case TypeU8, TypeU16, TypeU32, TypeU64:
			got := e.Uint
			if want[key] != itoa(int64(got)) {
				t.Errorf("%s = %d, want %s", key, got, want[key])
			}
		case TypeI8, TypeI16, TypeI32, TypeI64:
			if itoa(e.Int) != want[key] {
				t.Errorf("%s = %d, want %s", key, e.Int, want[key])
			}
		}
	}
}

func itoa(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func TestEntrySpanMarksAllSlotsWritten(t *testing.T) {
	// Slot 0 holds the namespace-definition record. A 40-byte string plus
	// its NUL is 41 bytes, so it needs 3 slots (header + 2 data slots):
	// slots 1-3.
	b := NewBuilder()
	longVal := strings.Repeat("x", 40)
	if err := b.WriteEntry("ns", "k", String(longVal)); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	p := b.pages[0]
	if p.slotState(0) != stateWritten || p.slotState(1) != stateWritten ||
		p.slotState(2) != stateWritten || p.slotState(3) != stateWritten {
		t.Error("expected every occupied slot marked Written")
	}
	if p.slotState(4) != stateEmpty {
		t.Error("expected slot 4 to remain Empty")
	}
}

func TestNamespaceOverflowSealsPage(t *testing.T) {
	b := NewBuilder()
	// Each distinct namespace costs 1 slot for its definition plus 1 for the
	// entry itself; force more than 126 slots to roll onto a second page.
	for i := 0; i < 70; i++ {
		ns := "ns" + itoa(int64(i))
		if err := b.WriteEntry(ns, "v", Uint(uint64(i))); err != nil {
			t.Fatalf("WriteEntry %d: %v", i, err)
		}
	}
	if len(b.pages) < 2 {
		t.Fatalf("expected page overflow, got %d page(s)", len(b.pages))
	}
}

func TestRejectsOverlongKey(t *testing.T) {
	b := NewBuilder()
	err := b.WriteEntry("ns", "this_key_has_too_many_characters", Uint(1))
	if err == nil {
		t.Fatal("expected error for over-length key")
	}
}

func TestCSVLoadsBuilderFidelity(t *testing.T) {
	csvData := "key,type,encoding,value\n" +
		"storage,namespace,,\n" +
		"led_gpio,data,u8,2\n" +
		"label,data,string,kitchen\n"

	b, err := LoadCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	entries, err := Parse(b.GetBinary(DefaultPartitionSize))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}
