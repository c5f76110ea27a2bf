package session

import (
	"errors"
	"fmt"
)

// Sentinel and structured errors returned by Session methods.
// [spec.md §7 Error handling]
var (
	ErrNotConnected        = errors.New("session: not connected")
	ErrNotSynced           = errors.New("session: not synced")
	ErrSyncFailed          = errors.New("session: sync failed after all retries")
	ErrUnknownChip         = errors.New("session: chip magic value not recognized")
	ErrStubHandshakeFailed = errors.New("session: stub did not answer the OHAI handshake")
	ErrStreamClosed        = errors.New("session: serial stream closed unexpectedly")
	ErrInvalidPartition    = errors.New("session: invalid partition")
	ErrInvalidNvs          = errors.New("session: invalid NVS image")
	ErrCancelled           = errors.New("session: cancelled")
)

// TimeoutError reports that a command got no response within its deadline.
type TimeoutError struct {
	Opcode byte
	Millis int64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("session: timeout waiting for response to opcode 0x%02X after %dms", e.Opcode, e.Millis)
}

// DeviceError reports that the device answered a command with a failure
// status.
type DeviceError struct {
	Opcode byte
	Code   byte
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("session: device rejected opcode 0x%02X with error_code 0x%02X", e.Opcode, e.Code)
}

// IsTimeout reports whether err is a *TimeoutError.
func IsTimeout(err error) bool {
	var t *TimeoutError
	return errors.As(err, &t)
}

// IsDeviceError reports whether err is a *DeviceError.
func IsDeviceError(err error) bool {
	var d *DeviceError
	return errors.As(err, &d)
}
