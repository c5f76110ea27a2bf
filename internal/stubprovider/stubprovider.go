// Package stubprovider implements the session.StubProvider collaborator by
// reading stub descriptors from a directory on disk, one JSON file per chip
// family — the "read from the filesystem" option the stub descriptor
// contract names explicitly. [spec.md §6 Stub descriptor]
package stubprovider

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/espflash/pkg/session"
)

// stubFile mirrors the on-disk JSON shape: base64-encoded text/data
// segments alongside their load addresses and the stub's entry point.
type stubFile struct {
	Entry     uint32 `json:"entry"`
	TextStart uint32 `json:"text_start"`
	Text      string `json:"text"`
	DataStart uint32 `json:"data_start"`
	Data      string `json:"data"`
}

// Directory resolves stub descriptors from <dir>/<chip>.json, where <chip>
// is the lowercased, hyphen-preserved chip name (e.g. "esp32-c3.json").
type Directory struct {
	Dir string
}

var _ session.StubProvider = Directory{}

// Stub implements session.StubProvider.
func (d Directory) Stub(chip session.Chip) (*session.StubDescriptor, error) {
	name := strings.ToLower(string(chip)) + ".json"
	path := filepath.Join(d.Dir, name)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stubprovider: reading %s: %w", path, err)
	}

	var sf stubFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("stubprovider: parsing %s: %w", path, err)
	}

	text, err := base64.StdEncoding.DecodeString(sf.Text)
	if err != nil {
		return nil, fmt.Errorf("stubprovider: decoding text segment in %s: %w", path, err)
	}
	data, err := base64.StdEncoding.DecodeString(sf.Data)
	if err != nil {
		return nil, fmt.Errorf("stubprovider: decoding data segment in %s: %w", path, err)
	}

	return &session.StubDescriptor{
		Entry:     sf.Entry,
		TextStart: sf.TextStart,
		Text:      text,
		DataStart: sf.DataStart,
		Data:      data,
	}, nil
}
