// Package espboot implements the Espressif ROM/stub bootloader command
// packet: an 8-byte header (direction, opcode, length, checksum/value)
// followed by a variable payload, plus one data-driven builder per command
// opcode.
//
// [spec.md §3 Packet, §4.2 Packet model, §4.3 Command builders]
package espboot

import "encoding/binary"

// HeaderSize is the fixed size of the packet header in bytes.
const HeaderSize = 8

// Direction is the first header byte: which side originated the packet.
type Direction byte

const (
	// Request marks a host-to-device packet.
	Request Direction = 0x00
	// Response marks a device-to-host packet.
	Response Direction = 0x01
)

// Packet is a single on-wire command or response packet.
//
// Bytes 4..8 of the header are a single shared field: for a request it is
// the XOR checksum seeded with 0xEF (zero when the command carries no data
// block); for a response it is a 32-bit value (a register read result, or
// unused). Packet exposes both Checksum and Value as accessors over that
// same 4-byte slot rather than duplicating storage. [spec.md §4.2, §9]
type Packet struct {
	Direction Direction
	Opcode    byte
	field4    uint32 // shared checksum/value slot
	Payload   []byte
}

// NewRequest builds a request packet for opcode with the given checksum
// (zero when the command does not carry a checksummed data block) and
// payload.
func NewRequest(opcode byte, checksum uint32, payload []byte) *Packet {
	return &Packet{
		Direction: Request,
		Opcode:    opcode,
		field4:    checksum,
		Payload:   payload,
	}
}

// Checksum returns the request checksum field.
func (p *Packet) Checksum() uint32 { return p.field4 }

// SetChecksum sets the request checksum field.
func (p *Packet) SetChecksum(c uint32) { p.field4 = c }

// Value returns the response value field.
func (p *Packet) Value() uint32 { return p.field4 }

// SetValue sets the response value field.
func (p *Packet) SetValue(v uint32) { p.field4 = v }

// Encode serializes the packet to wire format: header then payload.
// [spec.md §3: length always equals the actual payload length]
func (p *Packet) Encode() []byte {
	buf := make([]byte, HeaderSize+len(p.Payload))
	buf[0] = byte(p.Direction)
	buf[1] = p.Opcode
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(p.Payload)))
	binary.LittleEndian.PutUint32(buf[4:8], p.field4)
	copy(buf[8:], p.Payload)
	return buf
}

// Parse decodes a single SLIP-unframed byte buffer into a Packet. It does
// not validate status/error_code — callers needing response semantics
// should use ParseResponse.
func Parse(frame []byte) (*Packet, error) {
	if len(frame) < HeaderSize {
		return nil, ErrShortFrame
	}
	length := binary.LittleEndian.Uint16(frame[2:4])
	payload := frame[HeaderSize:]
	if int(length) != len(payload) {
		return nil, ErrLengthMismatch
	}
	return &Packet{
		Direction: Direction(frame[0]),
		Opcode:    frame[1],
		field4:    binary.LittleEndian.Uint32(frame[4:8]),
		Payload:   payload,
	}, nil
}

// ResponsePacket is a parsed device-to-host packet with its trailing status
// fields decoded. [spec.md §3 Response status]
type ResponsePacket struct {
	*Packet
	Status    byte
	ErrorCode byte
	// Data is the payload with its final two bytes (status/error_code)
	// stripped.
	Data []byte
}

// ParseResponse parses frame as a response packet and splits its trailing
// status bytes from the data proper. Status and error_code are always read
// from the last two payload bytes. Legacy ROM responses that append two
// device-state bytes after status/error_code are not recognised: for those,
// the device-state bytes are read as status/error_code and the real status
// bytes remain at the end of Data.
func ParseResponse(frame []byte) (*ResponsePacket, error) {
	pkt, err := Parse(frame)
	if err != nil {
		return nil, err
	}
	if pkt.Direction != Response {
		return nil, ErrNotResponse
	}
	if len(pkt.Payload) < 2 {
		return nil, ErrShortResponsePayload
	}
	n := len(pkt.Payload)
	status := pkt.Payload[n-2]
	errorCode := pkt.Payload[n-1]
	data := pkt.Payload[:n-2]
	return &ResponsePacket{
		Packet:    pkt,
		Status:    status,
		ErrorCode: errorCode,
		Data:      data,
	}, nil
}

// OK reports whether the response's status byte indicates success.
func (r *ResponsePacket) OK() bool { return r.Status == 0 }
