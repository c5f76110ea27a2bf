// Package nvs builds and reads the Espressif Non-Volatile Storage
// key-value binary partition: fixed-size pages, CRC32-protected headers and
// entries, a 2-bit per-slot state bitmap, and namespace index allocation.
// [spec.md §3 NVS partition/entry, §4.6]
package nvs

import (
	"encoding/binary"
	"fmt"

	"github.com/marmos91/espflash/internal/checksum"
)

const (
	pageSize      = 4096
	headerSize    = 32
	bitmapSize    = 32
	entriesOffset = headerSize + bitmapSize
	entrySize     = 32
	maxSlots      = (pageSize - entriesOffset) / entrySize // 126

	// DefaultPartitionSize is the partition size assumed when the caller
	// does not specify one. [spec.md §4.6 getBinary]
	DefaultPartitionSize = 0x3000
)

const (
	pageStateActive uint32 = 0xFFFFFFFE
	pageStateFull   uint32 = 0xFFFFFFFC
)

type entryState byte

const (
	stateEmpty   entryState = 0b11
	stateWritten entryState = 0b10
	stateErased  entryState = 0b00
)

// Type is the NVS entry type tag. [spec.md §6 NVS type tags]
type Type byte

const (
	TypeU8   Type = 0x01
	TypeI8   Type = 0x11
	TypeU16  Type = 0x02
	TypeI16  Type = 0x12
	TypeU32  Type = 0x04
	TypeI32  Type = 0x14
	TypeU64  Type = 0x08
	TypeI64  Type = 0x18
	TypeStr  Type = 0x21
	TypeBlob Type = 0x42
	TypeAny  Type = 0xFF
)

// maxKeyLen and maxStringLen enforce spec.md §7 InvalidNvs bounds.
const (
	maxKeyLen    = 15
	maxStringLen = 4000 // including the trailing NUL
)

// Value is a tagged union of the data an entry can carry: exactly one of
// the typed fields is meaningful, selected by Kind.
type Value struct {
	kind valueKind
	u    uint64
	i    int64
	s    string
	blob []byte

	// width is the explicit storage width in bytes (1, 2, 4, or 8) for
	// numeric kinds. Zero means "narrowest type that fits the value",
	// the behavior Uint/Int give callers that don't care about the exact
	// on-disk type.
	width int
}

type valueKind int

const (
	kindUint valueKind = iota
	kindInt
	kindString
	kindBlob
)

// Uint wraps an unsigned integer; the narrowest type that fits is chosen.
func Uint(v uint64) Value { return Value{kind: kindUint, u: v} }

// Int wraps a signed integer; the narrowest type that fits is chosen.
func Int(v int64) Value { return Value{kind: kindInt, i: v} }

// UintWidth wraps an unsigned integer, pinning the stored type to exactly
// width bytes (1, 2, 4, or 8) instead of letting WriteEntry narrow it to
// the value's magnitude. Used where the caller declares an explicit type,
// e.g. the NVS CSV loader's encoding column.
func UintWidth(v uint64, width int) Value { return Value{kind: kindUint, u: v, width: width} }

// IntWidth wraps a signed integer, pinning the stored type to exactly width
// bytes (1, 2, 4, or 8) instead of letting WriteEntry narrow it to the
// value's magnitude.
func IntWidth(v int64, width int) Value { return Value{kind: kindInt, i: v, width: width} }

// String wraps a string value (encoded as TypeStr, NUL-terminated).
func String(v string) Value { return Value{kind: kindString, s: v} }

// Blob wraps an opaque byte blob (encoded as TypeBlob, no terminator).
func Blob(v []byte) Value { return Value{kind: kindBlob, blob: v} }

// InvalidNvsError reports why a write could not be encoded.
// [spec.md §7 InvalidNvs]
type InvalidNvsError struct {
	Reason string
}

func (e *InvalidNvsError) Error() string { return "nvs: " + e.Reason }

type page struct {
	buf       [pageSize]byte
	seq       uint32
	used      int
	hashIndex map[uint32]int
}

func newPage(seq uint32) *page {
	p := &page{seq: seq, hashIndex: make(map[uint32]int)}
	for i := range p.buf {
		p.buf[i] = 0xFF
	}
	p.setState(pageStateActive)
	binary.LittleEndian.PutUint32(p.buf[4:8], seq)
	p.buf[8] = 0xFE // version 2
	p.updateHeaderCRC()
	return p
}

// setState writes the page state and recomputes the header CRC.
// [spec.md §4.6 setPageState]
func (p *page) setState(state uint32) {
	binary.LittleEndian.PutUint32(p.buf[0:4], state)
	p.updateHeaderCRC()
}

func (p *page) updateHeaderCRC() {
	crc := checksum.CRC32(p.buf[4:28])
	binary.LittleEndian.PutUint32(p.buf[28:32], crc)
}

func (p *page) full() bool {
	return binary.LittleEndian.Uint32(p.buf[0:4]) == pageStateFull
}

// setSlotState sets the 2-bit state of bitmap slot i, packed
// little-endian-first (slot 0 occupies the low 2 bits of the first byte).
// [spec.md §3 NVS partition state bitmap]
func (p *page) setSlotState(i int, state entryState) {
	byteIdx := headerSize + i/4
	shift := uint(i%4) * 2
	b := p.buf[byteIdx]
	b &^= 0b11 << shift
	b |= byte(state) << shift
	p.buf[byteIdx] = b
}

func (p *page) slotState(i int) entryState {
	byteIdx := headerSize + i/4
	shift := uint(i%4) * 2
	return entryState((p.buf[byteIdx] >> shift) & 0b11)
}

func (p *page) slotBytes(i int) []byte {
	off := entriesOffset + i*entrySize
	return p.buf[off : off+entrySize]
}

// Builder assembles an NVS partition binary from an ordered sequence of
// namespace/key/value writes. [spec.md §4.6]
type Builder struct {
	pages      []*page
	namespaces map[string]byte
	nextNsIdx  byte
}

// NewBuilder creates a Builder with one empty active page.
// [spec.md §4.6 "Initialization appends one empty active page"]
func NewBuilder() *Builder {
	b := &Builder{
		namespaces: make(map[string]byte),
		nextNsIdx:  1,
	}
	b.pages = append(b.pages, newPage(0))
	return b
}

func (b *Builder) active() *page { return b.pages[len(b.pages)-1] }

// ensureCapacity seals the active page and appends a fresh one if slots
// more slots won't fit in it.
func (b *Builder) ensureCapacity(slots int) {
	if b.active().used+slots <= maxSlots {
		return
	}
	b.active().setState(pageStateFull)
	b.pages = append(b.pages, newPage(b.active().seq+1))
}

// resolveNamespace returns ns's assigned index, assigning and recording a
// new one if needed. [spec.md §4.6 writeEntry step 1]
func (b *Builder) resolveNamespace(ns string) (byte, error) {
	if idx, ok := b.namespaces[ns]; ok {
		return idx, nil
	}
	if b.nextNsIdx == 0 || int(b.nextNsIdx) > 254 {
		return 0, &InvalidNvsError{Reason: "more than 254 namespaces"}
	}
	idx := b.nextNsIdx

	header := encodeEntryHeader(0, byte(TypeU8), 1, 0xFF, ns, leBytes8(uint64(idx), 1))
	b.ensureCapacity(1)
	b.appendRaw(0, ns, 0xFF, header, nil)

	b.namespaces[ns] = idx
	b.nextNsIdx++
	return idx, nil
}

// WriteEntry writes one (namespace, key, value) triple, allocating the
// namespace index on first use. [spec.md §4.6 writeEntry]
func (b *Builder) WriteEntry(namespace, key string, v Value) error {
	if len(key) == 0 || len(key) > maxKeyLen {
		return &InvalidNvsError{Reason: fmt.Sprintf("key %q must be 1..%d characters", key, maxKeyLen)}
	}

	nsIdx, err := b.resolveNamespace(namespace)
	if err != nil {
		return err
	}

	switch v.kind {
	case kindUint, kindInt:
		typeTag, width := selectNumericType(v)
		data := leBytes8(numericBits(v), width)
		header := encodeEntryHeader(nsIdx, byte(typeTag), 1, 0xFF, key, data)
		b.ensureCapacity(1)
		b.appendRaw(nsIdx, key, 0xFF, header, nil)
		return nil

	case kindString:
		str := append([]byte(v.s), 0x00)
		if len(str) > maxStringLen {
			return &InvalidNvsError{Reason: fmt.Sprintf("string for key %q exceeds %d bytes including NUL", key, maxStringLen)}
		}
		span := 1 + ceilDiv(len(str), entrySize)
		if span-1 > 0xFF {
			return &InvalidNvsError{Reason: fmt.Sprintf("string for key %q needs too many slots", key)}
		}

		strCRC := checksum.CRC32(str)
		var data [8]byte
		binary.LittleEndian.PutUint16(data[0:2], uint16(len(str)))
		binary.LittleEndian.PutUint32(data[4:8], strCRC)
		header := encodeEntryHeader(nsIdx, byte(TypeStr), byte(span), 0xFF, key, data)

		extra := padToMultiple(str, entrySize)
		b.ensureCapacity(span)
		b.appendRaw(nsIdx, key, 0xFF, header, splitSlots(extra))
		return nil

	case kindBlob:
		span := 1 + ceilDiv(len(v.blob), entrySize)
		if span-1 > 0xFF {
			return &InvalidNvsError{Reason: fmt.Sprintf("blob for key %q needs too many slots", key)}
		}
		blobCRC := checksum.CRC32(v.blob)
		var data [8]byte
		binary.LittleEndian.PutUint32(data[0:4], uint32(len(v.blob)))
		binary.LittleEndian.PutUint32(data[4:8], blobCRC)
		header := encodeEntryHeader(nsIdx, byte(TypeBlob), byte(span), 0, key, data)

		extra := padToMultiple(v.blob, entrySize)
		b.ensureCapacity(span)
		b.appendRaw(nsIdx, key, 0, header, splitSlots(extra))
		return nil

	default:
		return &InvalidNvsError{Reason: "unsupported value kind"}
	}
}

// appendRaw writes header (and any extra slots) into the active page
// starting at its first free slot, marks every occupied slot Written, and
// records the entry's first slot in the page's hashIndex under hashKey.
// No lookup in this package reads hashIndex. [spec.md §4.6 writeEntry steps 4-5]
func (b *Builder) appendRaw(ns byte, key string, chunk byte, header []byte, extraSlots [][]byte) {
	p := b.active()
	start := p.used
	copy(p.slotBytes(start), header)
	for i, slot := range extraSlots {
		copy(p.slotBytes(start+1+i), slot)
	}

	span := 1 + len(extraSlots)
	for i := 0; i < span; i++ {
		p.setSlotState(start+i, stateWritten)
	}

	p.hashIndex[hashKey(ns, key, chunk)] = start
	p.used += span
}

// GetBinary concatenates every page (4096 bytes each) and pads with 0xFF up
// to partitionSize. [spec.md §4.6 getBinary]
func (b *Builder) GetBinary(partitionSize int) []byte {
	out := make([]byte, 0, partitionSize)
	for _, p := range b.pages {
		out = append(out, p.buf[:]...)
	}
	for len(out) < partitionSize {
		out = append(out, 0xFF)
	}
	return out[:partitionSize]
}

// encodeEntryHeader renders one 32-byte entry record, CRC32 over bytes
// 0..4 and 8..32. [spec.md §3 NVS entry]
func encodeEntryHeader(ns byte, typeTag byte, span byte, chunkIndex byte, key string, data [8]byte) []byte {
	buf := make([]byte, entrySize)
	buf[0], buf[1], buf[2], buf[3] = ns, typeTag, span, chunkIndex
	copy(buf[8:24], key) // remaining bytes stay zero: NUL-terminated, zero-padded
	copy(buf[24:32], data[:])

	crcInput := make([]byte, 0, 28)
	crcInput = append(crcInput, buf[0:4]...)
	crcInput = append(crcInput, buf[8:32]...)
	crc := checksum.CRC32(crcInput)
	binary.LittleEndian.PutUint32(buf[4:8], crc)
	return buf
}

// selectNumericType picks the NVS numeric type for v: the explicit width
// the caller pinned via UintWidth/IntWidth, or, absent that, the narrowest
// type that fits the value's magnitude. [spec.md §4.6 writeEntry step 2]
func selectNumericType(v Value) (Type, int) {
	if v.width != 0 {
		return widthType(v.kind, v.width)
	}
	if v.kind == kindUint {
		switch {
		case v.u <= 0xFF:
			return TypeU8, 1
		case v.u <= 0xFFFF:
			return TypeU16, 2
		case v.u <= 0xFFFFFFFF:
			return TypeU32, 4
		default:
			return TypeU64, 8
		}
	}
	n := v.i
	abs := n
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs <= 1<<7:
		return TypeI8, 1
	case abs <= 1<<15:
		return TypeI16, 2
	case abs <= 1<<31:
		return TypeI32, 4
	default:
		return TypeI64, 8
	}
}

// widthType maps an explicit byte width to its NVS type tag for kind.
func widthType(kind valueKind, width int) (Type, int) {
	if kind == kindUint {
		switch width {
		case 1:
			return TypeU8, 1
		case 2:
			return TypeU16, 2
		case 4:
			return TypeU32, 4
		default:
			return TypeU64, 8
		}
	}
	switch width {
	case 1:
		return TypeI8, 1
	case 2:
		return TypeI16, 2
	case 4:
		return TypeI32, 4
	default:
		return TypeI64, 8
	}
}

func numericBits(v Value) uint64 {
	if v.kind == kindUint {
		return v.u
	}
	return uint64(v.i)
}

func leBytes8(v uint64, width int) [8]byte {
	var out [8]byte
	for i := 0; i < width; i++ {
		out[i] = byte(v >> (8 * i))
	}
	return out
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

func padToMultiple(data []byte, multiple int) []byte {
	size := ceilDiv(len(data), multiple) * multiple
	out := make([]byte, size)
	for i := range out {
		out[i] = 0xFF
	}
	copy(out, data)
	return out
}

func splitSlots(data []byte) [][]byte {
	var slots [][]byte
	for i := 0; i < len(data); i += entrySize {
		slots = append(slots, data[i:i+entrySize])
	}
	return slots
}

// hashKey computes the 24-bit lookup hash for (ns, key, chunk).
// [spec.md §4.6 findEntry]
func hashKey(ns byte, key string, chunk byte) uint32 {
	s := fmt.Sprintf("%d:%s:%d", ns, key, chunk)
	return checksum.CRC32([]byte(s)) & 0x00FFFFFF
}
