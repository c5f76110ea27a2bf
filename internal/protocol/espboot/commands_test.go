package espboot

import (
	"bytes"
	"testing"
)

func TestFlashBeginSerialization(t *testing.T) {
	// S2: image length 1024, offset 0x1000, packet size 256, num packets 4.
	pkt := FlashBegin(1024, 4, 256, 0x1000)
	got := pkt.Encode()
	want := []byte{
		0x00, 0x02, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x04, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("FlashBegin.Encode() = % x, want % x", got, want)
	}
}

func TestFlashDataChecksum(t *testing.T) {
	// S3: 4096 bytes of 0xAA, seq=5, block size 4096.
	block := make([]byte, 4096)
	for i := range block {
		block[i] = 0xAA
	}
	pkt := FlashData(5, 4096, block)

	// Even count of an identical byte cancels to zero, so the checksum
	// collapses back to the seed.
	if want := uint32(0xEF); pkt.Checksum() != want {
		t.Errorf("checksum = 0x%02X, want 0x%02X", pkt.Checksum(), want)
	}

	wantHeader := []byte{0x00, 0x10, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(pkt.Payload[:16], wantHeader) {
		t.Errorf("FLASH_DATA payload header = % x, want % x", pkt.Payload[:16], wantHeader)
	}
	if !bytes.Equal(pkt.Payload[16:], block) {
		t.Error("FLASH_DATA trailing bytes do not match the input block")
	}
}

func TestFlashDataPadsShortBlock(t *testing.T) {
	block := []byte{0x01, 0x02, 0x03}
	pkt := FlashData(0, 8, block)
	data := pkt.Payload[16:]
	want := []byte{0x01, 0x02, 0x03, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(data, want) {
		t.Errorf("padded block = % x, want % x", data, want)
	}
	if want := checksum(want); byte(pkt.Checksum()) != want {
		t.Errorf("checksum over padded block = 0x%02X, want 0x%02X", pkt.Checksum(), want)
	}
}

func TestSyncPayload(t *testing.T) {
	pkt := Sync()
	if len(pkt.Payload) != 36 {
		t.Fatalf("SYNC payload length = %d, want 36", len(pkt.Payload))
	}
	if !bytes.Equal(pkt.Payload[:4], []byte{0x07, 0x07, 0x12, 0x20}) {
		t.Errorf("SYNC magic = % x", pkt.Payload[:4])
	}
	for _, b := range pkt.Payload[4:] {
		if b != 0x55 {
			t.Fatalf("SYNC payload byte = 0x%02X, want 0x55", b)
		}
	}
}

func TestSPISetParamsUsesFullMask(t *testing.T) {
	pkt := SPISetParams(DefaultSPITotalSize)
	if len(pkt.Payload) != 24 {
		t.Fatalf("payload length = %d, want 24", len(pkt.Payload))
	}
	statusMask := pkt.Payload[20:24]
	want := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(statusMask, want) {
		t.Errorf("status_mask = % x, want % x", statusMask, want)
	}
}

func TestPacketParseRoundTrip(t *testing.T) {
	pkt := FlashBegin(2048, 8, 256, 0x9000)
	encoded := pkt.Encode()

	parsed, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Opcode != pkt.Opcode {
		t.Errorf("opcode = 0x%02X, want 0x%02X", parsed.Opcode, pkt.Opcode)
	}
	if len(parsed.Payload) != len(pkt.Payload) {
		t.Errorf("payload length = %d, want %d", len(parsed.Payload), len(pkt.Payload))
	}
}

func TestParseResponseSplitsStatus(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0x00, 0x00} // data + status(OK) + error_code(0)
	pkt := &Packet{Direction: Response, Opcode: OpFlashData, Payload: payload}
	pkt.SetValue(0x12345678)
	encoded := pkt.Encode()

	resp, err := ParseResponse(encoded)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if !resp.OK() {
		t.Error("expected OK response")
	}
	if !bytes.Equal(resp.Data, []byte{0xAA, 0xBB}) {
		t.Errorf("data = % x, want aabb", resp.Data)
	}
	if resp.Value() != 0x12345678 {
		t.Errorf("value = 0x%08X, want 0x12345678", resp.Value())
	}
}

func TestParseResponseFailureStatus(t *testing.T) {
	payload := []byte{0x01, byte(ErrBadCRC)}
	pkt := &Packet{Direction: Response, Opcode: OpFlashData, Payload: payload}
	encoded := pkt.Encode()

	resp, err := ParseResponse(encoded)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if resp.OK() {
		t.Error("expected failure response")
	}
	if resp.ErrorCode != byte(ErrBadCRC) {
		t.Errorf("error_code = 0x%02X, want 0x%02X", resp.ErrorCode, byte(ErrBadCRC))
	}
}
