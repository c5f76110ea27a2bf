package slip

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	// S1: literal scenario from the spec.
	in := []byte{0x01, 0xDB, 0x49, 0xC0, 0x15}
	wantEncoded := []byte{0xC0, 0x01, 0xDB, 0xDD, 0x49, 0xDB, 0xDC, 0x15, 0xC0}

	got := Encode(in)
	if !bytes.Equal(got, wantEncoded) {
		t.Fatalf("Encode(%x) = %x, want %x", in, got, wantEncoded)
	}

	frames := Decode(got)
	if len(frames) != 1 {
		t.Fatalf("Decode produced %d frames, want 1", len(frames))
	}
	if !bytes.Equal(frames[0], in) {
		t.Fatalf("Decode round-trip = %x, want %x", frames[0], in)
	}
}

func TestEncodeNeverLeaksFramingBytes(t *testing.T) {
	in := []byte{0xC0, 0xDB, 0xC0, 0xDB, 0x00, 0xFF}
	encoded := Encode(in)
	inner := encoded[1 : len(encoded)-1]
	for _, b := range inner {
		if b == End {
			t.Fatalf("unescaped End byte found in encoded payload: %x", encoded)
		}
	}
}

func TestDecodeDiscardsPartialTrailingFrame(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte{End, 0x01, 0x02, End, 0x03, 0x04})
	frames := d.Frames()
	if len(frames) != 1 {
		t.Fatalf("expected 1 complete frame, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], []byte{0x01, 0x02}) {
		t.Fatalf("frame = %x, want 0102", frames[0])
	}
}

func TestDecodeNeverEmitsEmptyFrames(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte{End, End, End, 0x01, End, End})
	frames := d.Frames()
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{0x01}) {
		t.Fatalf("frames = %x, want single [01] frame", frames)
	}
}

func TestDecodeDiscardsBytesBeforeFirstEnd(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte{0xAA, 0xBB, End, 0x01, End})
	frames := d.Frames()
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{0x01}) {
		t.Fatalf("frames = %x, want single [01] frame", frames)
	}
}

func TestDecodeMultipleFramesInOneFeed(t *testing.T) {
	data := append(Encode([]byte{0x01, 0x02}), Encode([]byte{0x03})...)
	frames := Decode(data)
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !bytes.Equal(frames[0], []byte{0x01, 0x02}) || !bytes.Equal(frames[1], []byte{0x03}) {
		t.Fatalf("frames = %x", frames)
	}
}

func TestDecodeFeedByteAtATime(t *testing.T) {
	d := NewDecoder()
	encoded := Encode([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	for _, b := range encoded {
		d.Feed([]byte{b})
	}
	frame, ok := d.NextFrame()
	if !ok {
		t.Fatal("expected a frame")
	}
	if !bytes.Equal(frame, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Fatalf("frame = %x", frame)
	}
}
