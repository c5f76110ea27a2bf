package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging across the bootloader session,
// packet layer, and image builders. Use these keys consistently across all
// log statements so downstream log aggregation can group on them.
const (
	// ========================================================================
	// Serial session
	// ========================================================================
	KeySessionID = "session_id" // id assigned once per CLI invocation
	KeyPort      = "port"       // serial device path
	KeyBaud      = "baud"       // baud rate in bits per second
	KeyChip      = "chip"       // detected chip family
	KeyAttempt   = "attempt"    // sync/retry attempt number

	// ========================================================================
	// Protocol / packet layer
	// ========================================================================
	KeyOpcode    = "opcode"     // command opcode name
	KeyDirection = "direction"  // request or response
	KeyLength    = "length"     // payload length in bytes
	KeyChecksum  = "checksum"   // computed XOR checksum
	KeyErrorCode = "error_code" // device-reported error code

	// ========================================================================
	// Flashing
	// ========================================================================
	KeyPartition  = "partition"   // partition name being flashed
	KeyOffset     = "offset"      // flash offset in bytes
	KeySize       = "size"        // partition/image size in bytes
	KeyBlockIndex = "block"       // zero-based flash-data block index
	KeyBlockCount = "block_count" // total blocks for the current partition
	KeyProgress   = "progress"    // progress percentage, 0..100

	// ========================================================================
	// NVS / partition-table builders
	// ========================================================================
	KeyNamespace = "namespace" // NVS namespace name
	KeyKey       = "nvs_key"   // NVS entry key
	KeyEntryType = "type"      // NVS entry type tag
	KeyPage      = "page"      // NVS page index

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
)

// ----------------------------------------------------------------------------
// Field constructors for type safety
// ----------------------------------------------------------------------------

// Port returns a slog.Attr for the serial device path.
func Port(p string) slog.Attr {
	return slog.String(KeyPort, p)
}

// Baud returns a slog.Attr for the configured baud rate.
func Baud(b int) slog.Attr {
	return slog.Int(KeyBaud, b)
}

// Chip returns a slog.Attr for the detected chip family.
func Chip(c string) slog.Attr {
	return slog.String(KeyChip, c)
}

// Attempt returns a slog.Attr for a retry attempt counter.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// Opcode returns a slog.Attr for a command opcode name.
func Opcode(name string) slog.Attr {
	return slog.String(KeyOpcode, name)
}

// ErrorCode returns a slog.Attr for a device-reported error code.
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Partition returns a slog.Attr for the partition name in flight.
func Partition(name string) slog.Attr {
	return slog.String(KeyPartition, name)
}

// Offset returns a slog.Attr for a flash offset, formatted as hex.
func Offset(off uint32) slog.Attr {
	return slog.String(KeyOffset, fmt.Sprintf("0x%x", off))
}

// Size returns a slog.Attr for a byte size.
func Size(n int) slog.Attr {
	return slog.Int(KeySize, n)
}

// Progress returns a slog.Attr for a 0..100 progress percentage.
func Progress(p float64) slog.Attr {
	return slog.Float64(KeyProgress, p)
}

// Namespace returns a slog.Attr for an NVS namespace name.
func Namespace(ns string) slog.Attr {
	return slog.String(KeyNamespace, ns)
}

// Err returns a slog.Attr for an error value, or an empty Attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
