// Package slip implements RFC 1055 Serial Line Internet Protocol framing:
// turning a duplex byte stream into discrete command packets, and wrapping a
// single payload into one SLIP frame for transmission.
package slip

const (
	// End frames the start and end of a packet.
	End byte = 0xC0
	// Esc escapes an End or Esc byte that appears in the payload.
	Esc byte = 0xDB
	// EscEnd is the escaped representation of End.
	EscEnd byte = 0xDC
	// EscEsc is the escaped representation of Esc.
	EscEsc byte = 0xDD
)

// Encode wraps buf in a single SLIP frame: a leading End, the payload with
// End/Esc bytes escaped, and a trailing End. Exactly one framed chunk is
// produced per call; an input is never split across multiple frames.
func Encode(buf []byte) []byte {
	out := make([]byte, 0, len(buf)+2)
	out = append(out, End)
	for _, b := range buf {
		switch b {
		case End:
			out = append(out, Esc, EscEnd)
		case Esc:
			out = append(out, Esc, EscEsc)
		default:
			out = append(out, b)
		}
	}
	out = append(out, End)
	return out
}

// Decoder is a small state machine that turns a byte stream into a sequence
// of decoded frames. It is restartable: once constructed it can be fed bytes
// indefinitely via Feed, and frames are drained with Frames/NextFrame.
//
// Decoding never emits empty frames, and a partial trailing frame left in
// the buffer when the stream ends is simply discarded, not an error.
type Decoder struct {
	inFrame  bool
	inEscape bool
	buffer   []byte
	frames   [][]byte
}

// NewDecoder returns a Decoder ready to accept bytes.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed processes one or more bytes, appending any completed frames to the
// decoder's internal queue. Call Frames (or repeatedly NextFrame) to drain
// them.
func (d *Decoder) Feed(data []byte) {
	for _, b := range data {
		d.feedByte(b)
	}
}

func (d *Decoder) feedByte(b byte) {
	if !d.inFrame {
		if b == End {
			d.inFrame = true
			d.buffer = d.buffer[:0]
		}
		return
	}

	if d.inEscape {
		switch b {
		case EscEnd:
			d.buffer = append(d.buffer, End)
		case EscEsc:
			d.buffer = append(d.buffer, Esc)
		default:
			// Tolerant fallback: pass the byte through verbatim rather
			// than rejecting the frame outright.
			d.buffer = append(d.buffer, b)
		}
		d.inEscape = false
		return
	}

	switch b {
	case Esc:
		d.inEscape = true
	case End:
		if len(d.buffer) > 0 {
			frame := make([]byte, len(d.buffer))
			copy(frame, d.buffer)
			d.frames = append(d.frames, frame)
			d.buffer = d.buffer[:0]
		}
		// remain in-frame: consecutive Ends just delimit empty gaps
	default:
		d.buffer = append(d.buffer, b)
	}
}

// Frames drains and returns all frames decoded so far.
func (d *Decoder) Frames() [][]byte {
	if len(d.frames) == 0 {
		return nil
	}
	out := d.frames
	d.frames = nil
	return out
}

// NextFrame pops the oldest pending frame, if any.
func (d *Decoder) NextFrame() ([]byte, bool) {
	if len(d.frames) == 0 {
		return nil, false
	}
	frame := d.frames[0]
	d.frames = d.frames[1:]
	return frame, true
}

// Decode is a convenience one-shot helper: it feeds an entire byte stream
// through a fresh Decoder and returns every frame found in it.
func Decode(stream []byte) [][]byte {
	d := NewDecoder()
	d.Feed(stream)
	return d.Frames()
}
