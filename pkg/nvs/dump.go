package nvs

import (
	"encoding/binary"
	"fmt"

	"github.com/marmos91/espflash/internal/checksum"
)

// ParsedEntry is one entry recovered from a binary image, with its
// namespace resolved from the namespace-index records and its type-tagged
// value decoded. [spec.md §8 "re-parsing the produced pages recovers the
// same (ns, key, value) set"]
type ParsedEntry struct {
	Namespace string
	Key       string
	Type      Type
	Uint      uint64
	Int       int64
	Str       string
	Blob      []byte
}

// Parse reads back every user entry from an NVS partition binary built by
// Builder.GetBinary. Namespace-definition records (namespace 0) are
// resolved into names and excluded from the result.
func Parse(image []byte) ([]ParsedEntry, error) {
	if len(image)%pageSize != 0 {
		return nil, fmt.Errorf("nvs: image length %d is not a multiple of the page size", len(image))
	}

	type rawEntry struct {
		ns   byte
		key  string
		typ  Type
		data []byte // 8 header data bytes + any extra slot bytes
	}
	var raws []rawEntry

	for pageOff := 0; pageOff < len(image); pageOff += pageSize {
		pg := image[pageOff : pageOff+pageSize]
		slot := 0
		for slot < maxSlots {
			state := bitmapState(pg, slot)
			if state == stateEmpty {
				break // unwritten tail of the page
			}
			if state == stateErased {
				slot++
				continue
			}

			rec := pg[entriesOffset+slot*entrySize : entriesOffset+(slot+1)*entrySize]
			ns := rec[0]
			typ := Type(rec[1])
			span := int(rec[2])
			if span < 1 {
				span = 1
			}
			if err := verifyEntryCRC(rec); err != nil {
				return nil, err
			}
			key := decodeKey(rec[8:24])

			data := make([]byte, 0, 8+(span-1)*entrySize)
			data = append(data, rec[24:32]...)
			for i := 1; i < span; i++ {
				extraOff := entriesOffset + (slot+i)*entrySize
				data = append(data, pg[extraOff:extraOff+entrySize]...)
			}

			raws = append(raws, rawEntry{ns: ns, key: key, typ: typ, data: data})
			slot += span
		}
	}

	names := map[byte]string{0: ""}
	for _, r := range raws {
		if r.ns == 0 && r.typ == TypeU8 {
			names[r.data[0]] = r.key
		}
	}

	var out []ParsedEntry
	for _, r := range raws {
		if r.ns == 0 {
			continue // namespace-definition record, not a user entry
		}
		p := ParsedEntry{Namespace: names[r.ns], Key: r.key, Type: r.typ}
		switch r.typ {
		case TypeU8, TypeU16, TypeU32, TypeU64:
			p.Uint = leUint(r.data[:typeWidth(r.typ)])
		case TypeI8, TypeI16, TypeI32, TypeI64:
			p.Int = signExtend(leUint(r.data[:typeWidth(r.typ)]), typeWidth(r.typ))
		case TypeStr:
			length := int(binary.LittleEndian.Uint16(r.data[0:2]))
			if length > 0 && length <= len(r.data)-8 {
				p.Str = string(r.data[8 : 8+length-1]) // drop trailing NUL
			}
		case TypeBlob:
			length := int(binary.LittleEndian.Uint32(r.data[0:4]))
			if length >= 0 && length <= len(r.data)-8 {
				p.Blob = append([]byte(nil), r.data[8:8+length]...)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func bitmapState(pg []byte, slot int) entryState {
	byteIdx := headerSize + slot/4
	shift := uint(slot%4) * 2
	return entryState((pg[byteIdx] >> shift) & 0b11)
}

func decodeKey(field []byte) string {
	n := 0
	for n < len(field) && field[n] != 0 {
		n++
	}
	return string(field[:n])
}

func leUint(b []byte) uint64 {
	var v uint64
	for i, x := range b {
		v |= uint64(x) << (8 * i)
	}
	return v
}

// typeWidth returns the storage width in bytes of a numeric entry type.
func typeWidth(t Type) int {
	switch t {
	case TypeU8, TypeI8:
		return 1
	case TypeU16, TypeI16:
		return 2
	case TypeU32, TypeI32:
		return 4
	default:
		return 8
	}
}

// signExtend widens a little-endian value read from a width-byte field to
// int64, sign-extending per Go's own int8/int16/int32 conversions rather
// than treating the high bytes as zero.
func signExtend(v uint64, width int) int64 {
	switch width {
	case 1:
		return int64(int8(v))
	case 2:
		return int64(int16(v))
	case 4:
		return int64(int32(v))
	default:
		return int64(v)
	}
}

func verifyEntryCRC(rec []byte) error {
	crcInput := make([]byte, 0, 28)
	crcInput = append(crcInput, rec[0:4]...)
	crcInput = append(crcInput, rec[8:32]...)
	want := binary.LittleEndian.Uint32(rec[4:8])
	got := checksum.CRC32(crcInput)
	if got != want {
		return fmt.Errorf("nvs: entry CRC mismatch for key %q: got 0x%08X, want 0x%08X", decodeKey(rec[8:24]), got, want)
	}
	return nil
}
