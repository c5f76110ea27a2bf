package stubprovider

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/espflash/pkg/session"
)

func TestStubResolvesByChipName(t *testing.T) {
	dir := t.TempDir()

	text := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	data := []byte{0x01, 0x02}
	content := `{
		"entry": 1073741824,
		"text_start": 1073745920,
		"text": "` + base64.StdEncoding.EncodeToString(text) + `",
		"data_start": 1073872896,
		"data": "` + base64.StdEncoding.EncodeToString(data) + `"
	}`

	if err := os.WriteFile(filepath.Join(dir, "esp32-c3.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	d := Directory{Dir: dir}
	desc, err := d.Stub(session.ChipESP32C3)
	if err != nil {
		t.Fatalf("Stub failed: %v", err)
	}

	if desc.Entry != 1073741824 {
		t.Errorf("entry = %d, want 1073741824", desc.Entry)
	}
	if string(desc.Text) != string(text) {
		t.Errorf("text = %v, want %v", desc.Text, text)
	}
	if string(desc.Data) != string(data) {
		t.Errorf("data = %v, want %v", desc.Data, data)
	}
}

func TestStubMissingFileErrors(t *testing.T) {
	d := Directory{Dir: t.TempDir()}
	if _, err := d.Stub(session.ChipESP32); err == nil {
		t.Fatal("expected error for missing stub file")
	}
}
