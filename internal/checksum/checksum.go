// Package checksum provides the byte-exact checksum and hash primitives used
// by the partition-table builder, the NVS builder, and flash-data command
// validation: IEEE CRC32 and MD5.
package checksum

import (
	"crypto/md5"
	"encoding/binary"
	"hash/crc32"
)

// ieeeTable is the CRC-32 table for the IEEE polynomial (0xEDB88320), the
// variant used by ZIP, PNG, and the ESP bootloader wire protocol.
var ieeeTable = crc32.MakeTable(crc32.IEEE)

// CRC32 computes the IEEE CRC32 of data: polynomial 0xEDB88320, initial
// 0xFFFFFFFF, final XOR 0xFFFFFFFF (crc32.IEEE already folds in the initial
// and final XOR).
func CRC32(data []byte) uint32 {
	return crc32.Checksum(data, ieeeTable)
}

// PutCRC32LE writes the little-endian 4-byte encoding of CRC32(data) into buf.
func PutCRC32LE(buf []byte, data []byte) {
	binary.LittleEndian.PutUint32(buf, CRC32(data))
}

// MD5 computes the RFC 1321 MD5 digest of data, returning the 16 raw bytes.
func MD5(data []byte) [16]byte {
	return md5.Sum(data)
}

// XOR computes the running XOR checksum over data, seeded with seed. The
// bootloader protocol seeds this with 0xEF for FLASH_DATA/MEM_DATA payloads.
func XOR(seed byte, data []byte) byte {
	x := seed
	for _, b := range data {
		x ^= b
	}
	return x
}
