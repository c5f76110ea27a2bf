package parttable

import "fmt"

// Entry is one parsed partition-table record, as read back from a binary
// image. [spec.md §9 supplemented: partition-table dump is the inverse of
// Build]
type Entry struct {
	Name    string
	Type    Type
	Subtype Subtype
	Offset  uint32
	Size    uint32
	Flags   uint32
}

// Parse reads back the entries of a partition-table binary produced by
// Build, stopping at the MD5 trailer marker (0xEB 0xEB) or the first
// 0xFF-only record.
func Parse(table []byte) ([]Entry, error) {
	if len(table) != Size {
		return nil, fmt.Errorf("parttable: table must be %d bytes, got %d", Size, len(table))
	}

	var entries []Entry
	for off := 0; off+entrySize <= Size; off += entrySize {
		rec := table[off : off+entrySize]
		if rec[0] == 0xEB && rec[1] == 0xEB {
			break
		}
		if rec[0] == 0xFF && rec[1] == 0xFF {
			break
		}
		if rec[0] != magicByte0 || rec[1] != magicByte1 {
			return nil, fmt.Errorf("parttable: bad magic at offset 0x%x", off)
		}
		entries = append(entries, decodeEntry(rec))
	}
	return entries, nil
}

func decodeEntry(rec []byte) Entry {
	name := rec[12:28]
	n := 0
	for n < len(name) && name[n] != 0 {
		n++
	}
	return Entry{
		Name:    string(name[:n]),
		Type:    Type(rec[2]),
		Subtype: Subtype(rec[3]),
		Offset:  leU32(rec[4:8]),
		Size:    leU32(rec[8:12]),
		Flags:   leU32(rec[28:32]),
	}
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
