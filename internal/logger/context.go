package logger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds session-scoped logging context for a single bootloader
// session: the serial port in use, the detected chip, and the command/
// partition currently in flight.
type LogContext struct {
	SessionID string    // random id assigned once per CLI invocation, for correlating log lines
	Port      string    // serial device path, e.g. /dev/ttyUSB0
	Chip      string    // detected chip family, empty until detectChip succeeds
	Opcode    string    // name of the command currently outstanding
	Partition string    // partition name currently being flashed
	Attempt   int       // sync/retry attempt number
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a session bound to the given
// port, with a fresh SessionID for correlating every log line the
// invocation emits.
func NewLogContext(port string) *LogContext {
	return &LogContext{
		SessionID: uuid.NewString(),
		Port:      port,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		SessionID: lc.SessionID,
		Port:      lc.Port,
		Chip:      lc.Chip,
		Opcode:    lc.Opcode,
		Partition: lc.Partition,
		Attempt:   lc.Attempt,
		StartTime: lc.StartTime,
	}
}

// WithChip returns a copy with the detected chip family set
func (lc *LogContext) WithChip(chip string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Chip = chip
	}
	return clone
}

// WithOpcode returns a copy with the in-flight opcode set
func (lc *LogContext) WithOpcode(opcode string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Opcode = opcode
	}
	return clone
}

// WithPartition returns a copy with the in-flight partition name set
func (lc *LogContext) WithPartition(partition string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Partition = partition
	}
	return clone
}

// WithAttempt returns a copy with the retry attempt counter set
func (lc *LogContext) WithAttempt(attempt int) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Attempt = attempt
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
