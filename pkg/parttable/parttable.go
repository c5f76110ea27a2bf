// Package parttable builds the Espressif partition-table binary: a fixed
// 0x1000-byte image of 32-byte entry records followed by an MD5 trailer.
// [spec.md §3 Partition table entry/binary, §4.5]
package parttable

import (
	"encoding/binary"
	"fmt"

	"github.com/marmos91/espflash/internal/checksum"
)

// Size is the fixed total length of a partition-table binary.
const Size = 0x1000

// entrySize is the fixed length of one partition-table record.
const entrySize = 32

const magicByte0, magicByte1 = 0xAA, 0x50

// Type is the partition type byte.
type Type byte

const (
	TypeApp  Type = 0x00
	TypeData Type = 0x01
)

// Subtype is the partition subtype byte. [spec.md §6 Partition subtypes]
type Subtype byte

const (
	SubtypeAppFactory Subtype = 0x00
	// SubtypeAppOTA0..15 occupy 0x10..0x1F; use SubtypeAppOTA(n) to build one.
	SubtypeAppTest Subtype = 0x20

	SubtypeDataOTA     Subtype = 0x00
	SubtypeDataPHY     Subtype = 0x01
	SubtypeDataNVS     Subtype = 0x02
	SubtypeDataNVSKeys Subtype = 0x04
	SubtypeDataSPIFFS  Subtype = 0x82
)

// SubtypeAppOTA returns the OTA_n app subtype for slot n (0..15).
func SubtypeAppOTA(n int) Subtype { return Subtype(0x10 + n) }

// appAlign and dataAlign are the offset-rounding granularities for
// auto-assigned offsets. [spec.md §3, §4.5]
const (
	appAlign  = 0x10000
	dataAlign = 0x1000
)

// firstCursor is where auto-assignment starts: past the bootloader and the
// partition table itself.
const firstCursor = 0x9000

// Def is one partition definition before offset assignment.
type Def struct {
	Name    string
	Type    Type
	Subtype Subtype
	Offset  uint32 // 0 means "auto-assign"
	Size    uint32
	Flags   uint32
}

// InvalidPartitionError reports why a definition list could not be built
// into a table. [spec.md §4.5 Failure, §7 InvalidPartition]
type InvalidPartitionError struct {
	Name   string
	Reason string
}

func (e *InvalidPartitionError) Error() string {
	return fmt.Sprintf("parttable: partition %q: %s", e.Name, e.Reason)
}

func align(cursor, granularity uint32) uint32 {
	if cursor%granularity == 0 {
		return cursor
	}
	return (cursor/granularity + 1) * granularity
}

// Build assembles defs, in order, into the fixed Size-byte partition-table
// binary: entries at their assigned offsets, an MD5 trailer, then 0xFF
// padding to Size. [spec.md §4.5]
func Build(defs []Def) ([]byte, error) {
	if len(defs)*entrySize+entrySize > Size {
		return nil, &InvalidPartitionError{Reason: "too many entries to fit in one table"}
	}

	var entries []byte
	cursor := uint32(firstCursor)

	for _, d := range defs {
		if len(d.Name) == 0 || len(d.Name) > 16 {
			return nil, &InvalidPartitionError{Name: d.Name, Reason: "name must be 1..16 bytes"}
		}

		offset := d.Offset
		if offset == 0 {
			granularity := uint32(dataAlign)
			if d.Type == TypeApp {
				granularity = appAlign
			}
			offset = align(cursor, granularity)
		}

		entries = append(entries, encodeEntry(d, offset)...)
		cursor = offset + d.Size
	}

	trailer := buildTrailer(entries)

	out := make([]byte, Size)
	copy(out, entries)
	copy(out[len(entries):], trailer)
	for i := len(entries) + len(trailer); i < Size; i++ {
		out[i] = 0xFF
	}
	return out, nil
}

// encodeEntry renders one 32-byte partition-table record.
// [spec.md §3 Partition table entry]
func encodeEntry(d Def, offset uint32) []byte {
	buf := make([]byte, entrySize)
	buf[0], buf[1] = magicByte0, magicByte1
	buf[2] = byte(d.Type)
	buf[3] = byte(d.Subtype)
	binary.LittleEndian.PutUint32(buf[4:8], offset)
	binary.LittleEndian.PutUint32(buf[8:12], d.Size)
	copy(buf[12:28], d.Name) // zero-padded: buf is already zeroed
	binary.LittleEndian.PutUint32(buf[28:32], d.Flags)
	return buf
}

// buildTrailer builds the 32-byte MD5 marker entry: 0xEB 0xEB, 14 bytes of
// 0xFF, then the MD5 of the concatenated prior entries. [spec.md §3]
func buildTrailer(entries []byte) []byte {
	trailer := make([]byte, entrySize)
	trailer[0], trailer[1] = 0xEB, 0xEB
	for i := 2; i < 16; i++ {
		trailer[i] = 0xFF
	}
	sum := checksum.MD5(entries)
	copy(trailer[16:32], sum[:])
	return trailer
}
