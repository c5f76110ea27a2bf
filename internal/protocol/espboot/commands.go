package espboot

import "encoding/binary"

// Opcode values for the commands this bootloader client issues.
// [spec.md §4.3 Command builders, §6 chip/opcode tables]
const (
	OpFlashBegin      byte = 0x02
	OpFlashData       byte = 0x03
	OpFlashEnd        byte = 0x04
	OpMemBegin        byte = 0x05
	OpMemEnd          byte = 0x06
	OpMemData         byte = 0x07
	OpSync            byte = 0x08
	OpWriteReg        byte = 0x09
	OpReadReg         byte = 0x0A
	OpSpiSetParams    byte = 0x0B
	OpSpiAttach       byte = 0x0D
	OpChangeBaudrate  byte = 0x0F
)

// OpcodeName returns a human-readable command name for opcode, used in logs
// and error messages. Unknown opcodes return a generic placeholder.
func OpcodeName(opcode byte) string {
	switch opcode {
	case OpFlashBegin:
		return "FLASH_BEGIN"
	case OpFlashData:
		return "FLASH_DATA"
	case OpFlashEnd:
		return "FLASH_END"
	case OpMemBegin:
		return "MEM_BEGIN"
	case OpMemEnd:
		return "MEM_END"
	case OpMemData:
		return "MEM_DATA"
	case OpSync:
		return "SYNC"
	case OpWriteReg:
		return "WRITE_REG"
	case OpReadReg:
		return "READ_REG"
	case OpSpiSetParams:
		return "SPI_SET_PARAMS"
	case OpSpiAttach:
		return "SPI_ATTACH"
	case OpChangeBaudrate:
		return "CHANGE_BAUDRATE"
	default:
		return "UNKNOWN"
	}
}

// checksumSeed is the XOR checksum seed used for FLASH_DATA/MEM_DATA blocks.
const checksumSeed = 0xEF

// putU32 appends a little-endian uint32 to buf.
func putU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// FlashBegin builds a FLASH_BEGIN request.
// Payload: erase_size, num_packets, packet_size, flash_offset (all u32 LE).
func FlashBegin(eraseSize, numPackets, packetSize, flashOffset uint32) *Packet {
	payload := make([]byte, 0, 16)
	payload = putU32(payload, eraseSize)
	payload = putU32(payload, numPackets)
	payload = putU32(payload, packetSize)
	payload = putU32(payload, flashOffset)
	return NewRequest(OpFlashBegin, 0, payload)
}

// FlashData builds a FLASH_DATA request for one block of a partition image.
// block is padded to packetSize with 0xFF before checksumming/sending if it
// is shorter (the final, possibly-partial block of a partition).
// [spec.md §4.3 "the sender pads block_bytes ... checksum input"]
func FlashData(seq uint32, packetSize int, block []byte) *Packet {
	padded := padBlock(block, packetSize)
	payload := make([]byte, 0, 16+len(padded))
	payload = putU32(payload, uint32(len(padded)))
	payload = putU32(payload, seq)
	payload = putU32(payload, 0)
	payload = putU32(payload, 0)
	payload = append(payload, padded...)
	sum := checksum(padded)
	return NewRequest(OpFlashData, uint32(sum), payload)
}

// padBlock returns block padded with 0xFF up to size; block longer than
// size (or equal) is returned as-is.
func padBlock(block []byte, size int) []byte {
	if len(block) >= size {
		return block
	}
	padded := make([]byte, size)
	copy(padded, block)
	for i := len(block); i < size; i++ {
		padded[i] = 0xFF
	}
	return padded
}

// checksum computes the FLASH_DATA/MEM_DATA XOR checksum over data only.
func checksum(data []byte) byte {
	x := byte(checksumSeed)
	for _, b := range data {
		x ^= b
	}
	return x
}

// FlashEnd builds a FLASH_END request. runUserCode selects reboot (false) or
// run the uploaded image without resetting (true).
func FlashEnd(runUserCode bool) *Packet {
	var flag uint32
	if runUserCode {
		flag = 1
	}
	payload := putU32(nil, flag)
	return NewRequest(OpFlashEnd, 0, payload)
}

// MemBegin builds a MEM_BEGIN request to start an in-RAM upload.
func MemBegin(totalSize, numPackets, packetSize, offset uint32) *Packet {
	payload := make([]byte, 0, 16)
	payload = putU32(payload, totalSize)
	payload = putU32(payload, numPackets)
	payload = putU32(payload, packetSize)
	payload = putU32(payload, offset)
	return NewRequest(OpMemBegin, 0, payload)
}

// MemEnd builds a MEM_END request, optionally jumping to entryPoint.
func MemEnd(execute bool, entryPoint uint32) *Packet {
	var flag uint32
	if execute {
		flag = 1
	}
	payload := make([]byte, 0, 8)
	payload = putU32(payload, flag)
	payload = putU32(payload, entryPoint)
	return NewRequest(OpMemEnd, 0, payload)
}

// MemData builds a MEM_DATA request for one chunk of an in-RAM upload.
func MemData(seq uint32, chunk []byte) *Packet {
	payload := make([]byte, 0, 16+len(chunk))
	payload = putU32(payload, uint32(len(chunk)))
	payload = putU32(payload, seq)
	payload = putU32(payload, 0)
	payload = putU32(payload, 0)
	payload = append(payload, chunk...)
	sum := checksum(chunk)
	return NewRequest(OpMemData, uint32(sum), payload)
}

// syncPayload is the fixed 36-byte SYNC magic: 07 07 12 20 followed by 32
// bytes of 0x55.
func syncPayload() []byte {
	payload := make([]byte, 36)
	payload[0], payload[1], payload[2], payload[3] = 0x07, 0x07, 0x12, 0x20
	for i := 4; i < 36; i++ {
		payload[i] = 0x55
	}
	return payload
}

// Sync builds a SYNC request.
func Sync() *Packet {
	return NewRequest(OpSync, 0, syncPayload())
}

// WriteReg builds a WRITE_REG request.
func WriteReg(address, value, mask, delayUs uint32) *Packet {
	payload := make([]byte, 0, 16)
	payload = putU32(payload, address)
	payload = putU32(payload, value)
	payload = putU32(payload, mask)
	payload = putU32(payload, delayUs)
	return NewRequest(OpWriteReg, 0, payload)
}

// ReadReg builds a READ_REG request for the given register address.
func ReadReg(address uint32) *Packet {
	return NewRequest(OpReadReg, 0, putU32(nil, address))
}

// DefaultSPITotalSize is the default SPI flash size assumed by SPI_SET_PARAMS (4 MiB).
const DefaultSPITotalSize = 4 * 1024 * 1024

// SPISetParams builds an SPI_SET_PARAMS request with the standard flash
// geometry. statusMask follows the upstream stub convention of 0xFFFFFFFF
// rather than the 0xFFFF seen in some source revisions. [spec.md §9 Open Questions]
func SPISetParams(totalSize uint32) *Packet {
	payload := make([]byte, 0, 24)
	payload = putU32(payload, 0)
	payload = putU32(payload, totalSize)
	payload = putU32(payload, 0x10000)
	payload = putU32(payload, 0x1000)
	payload = putU32(payload, 0x100)
	payload = putU32(payload, 0xFFFFFFFF)
	return NewRequest(OpSpiSetParams, 0, payload)
}

// SPIAttach builds an SPI_ATTACH request.
func SPIAttach() *Packet {
	return NewRequest(OpSpiAttach, 0, make([]byte, 8))
}

// ChangeBaudrate builds a CHANGE_BAUDRATE request. oldBaud is 0 when talking
// to the ROM loader (which has no prior baud rate to report).
func ChangeBaudrate(newBaud, oldBaud uint32) *Packet {
	payload := make([]byte, 0, 8)
	payload = putU32(payload, newBaud)
	payload = putU32(payload, oldBaud)
	return NewRequest(OpChangeBaudrate, 0, payload)
}
