package espboot

import "errors"

// Parse-level errors. These are swallowed by the session's response reader
// (stray/garbage frames are tolerated) rather than propagated as fatal.
// [spec.md §7: "Parse errors on stray frames are swallowed"]
var (
	ErrShortFrame           = errors.New("espboot: frame shorter than header")
	ErrLengthMismatch       = errors.New("espboot: payload length does not match header")
	ErrNotResponse          = errors.New("espboot: frame is not a response packet")
	ErrShortResponsePayload = errors.New("espboot: response payload too short for status fields")
)

// DeviceErrorCode is the device-reported error_code carried in a failed
// response's trailing status byte. [spec.md §7 DeviceError]
type DeviceErrorCode byte

const (
	ErrInvalidMessage  DeviceErrorCode = 0x05
	ErrActionFailed    DeviceErrorCode = 0x06
	ErrBadCRC          DeviceErrorCode = 0x07
	ErrFlashWriteVerify DeviceErrorCode = 0x08
	ErrSPIReadFailed   DeviceErrorCode = 0x09
	ErrSPIReadTooLong  DeviceErrorCode = 0x0A
	ErrDeflateError    DeviceErrorCode = 0x0B
)

// String returns a human-readable name for a device error code.
func (c DeviceErrorCode) String() string {
	switch c {
	case ErrInvalidMessage:
		return "invalid message"
	case ErrActionFailed:
		return "action failed"
	case ErrBadCRC:
		return "bad CRC"
	case ErrFlashWriteVerify:
		return "flash write verify failed"
	case ErrSPIReadFailed:
		return "SPI read failed"
	case ErrSPIReadTooLong:
		return "SPI read length too long"
	case ErrDeflateError:
		return "deflate error"
	default:
		return "unknown device error"
	}
}
