package session

import (
	"io"
	"sync"

	"github.com/marmos91/espflash/internal/protocol/slip"
)

// frameReader runs a single goroutine that reads bytes off a serial port,
// feeds them through a SLIP decoder, and broadcasts each decoded frame to
// every subscriber. A single physical reader can only be consumed once, so
// every consumer of frames subscribes to the same broadcast rather than
// racing on the underlying io.Reader; the session's command/response
// correlation is the only subscriber. [spec.md §6 design note: "model as a
// broadcast from a single reader to named subscribers"]
type frameReader struct {
	mu          sync.Mutex
	subscribers []chan []byte
	done        chan struct{}
	err         error
}

func newFrameReader() *frameReader {
	return &frameReader{done: make(chan struct{})}
}

// subscribe returns a channel that receives every frame decoded after this
// call. The channel is closed when the reader stops.
func (f *frameReader) subscribe() <-chan []byte {
	ch := make(chan []byte, 16)
	f.mu.Lock()
	f.subscribers = append(f.subscribers, ch)
	f.mu.Unlock()
	return ch
}

// run reads from r until it errors or a stop is requested, broadcasting
// every decoded frame to current subscribers. It returns nothing; the
// terminal read error is kept and reported by lastErr.
func (f *frameReader) run(r io.Reader) {
	defer f.closeSubscribers()

	dec := slip.NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			for {
				frame, ok := dec.NextFrame()
				if !ok {
					break
				}
				f.broadcast(frame)
			}
		}
		if err != nil {
			f.mu.Lock()
			f.err = err
			f.mu.Unlock()
			return
		}
		select {
		case <-f.done:
			return
		default:
		}
	}
}

func (f *frameReader) broadcast(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subscribers {
		select {
		case ch <- frame:
		default:
			// A stalled subscriber drops frames rather than stalling the
			// reader; command correlation uses small buffered channels and
			// drains promptly, so this only bites a subscriber that has
			// stopped reading entirely.
		}
	}
}

func (f *frameReader) closeSubscribers() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subscribers {
		close(ch)
	}
	f.subscribers = nil
}

// stop signals run to exit after its next read returns (reads are not
// interrupted; closing the underlying port unblocks a pending Read).
func (f *frameReader) stop() {
	select {
	case <-f.done:
	default:
		close(f.done)
	}
}

func (f *frameReader) lastErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
