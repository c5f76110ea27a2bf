package commands

import (
	"fmt"
	"time"

	"github.com/marmos91/espflash/internal/metrics"
	"github.com/marmos91/espflash/internal/serialport"
	"github.com/marmos91/espflash/internal/stubprovider"
	"github.com/marmos91/espflash/pkg/session"
	"github.com/spf13/cobra"
)

// deviceFlags holds the flags shared by every command that opens a session
// against a physical device.
type deviceFlags struct {
	port    string
	baud    int
	stubDir string
}

func addDeviceFlags(cmd *cobra.Command, f *deviceFlags) {
	cmd.Flags().StringVar(&f.port, "port", "", "Serial device path (e.g. /dev/ttyUSB0)")
	cmd.Flags().IntVar(&f.baud, "baud", 0, "Baud rate override")
	cmd.Flags().StringVar(&f.stubDir, "stub-dir", "", "Directory of per-chip stub descriptor JSON files")
}

// resolveSerial merges a deviceFlags against the loaded Config, returning
// the effective port path and baud.
func resolveSerial(f *deviceFlags) (string, int, string, error) {
	port := f.port
	if port == "" {
		port = Cfg.Serial.Port
	}
	if port == "" {
		return "", 0, "", fmt.Errorf("no serial port given (use --port or set serial.port in config)")
	}

	baud := f.baud
	if baud == 0 {
		baud = Cfg.Serial.Baud
	}

	strategy := Cfg.Serial.ResetStrategy
	return port, baud, strategy, nil
}

// newSession constructs (without opening) a session.Session against f's
// resolved port, wired with
// the file-based stub provider and (if metrics are enabled) the Prometheus
// collectors, which are returned separately so the caller can expose them
// over HTTP while the session is in use. The caller owns calling Disconnect.
// It also returns the resolved port path, for tagging the CLI's log context.
func newSession(f *deviceFlags) (*session.Session, *metrics.Collectors, string, error) {
	port, baud, strategyName, err := resolveSerial(f)
	if err != nil {
		return nil, nil, "", err
	}

	strategy := session.ResetClassic
	if strategyName == "native-usb" {
		strategy = session.ResetNativeUSB
	}

	timeouts := session.Timeouts{
		Sync:      Cfg.Serial.Timeouts.Sync,
		Command:   Cfg.Serial.Timeouts.Command,
		FlashData: Cfg.Serial.Timeouts.FlashData,
		MemData:   Cfg.Serial.Timeouts.MemData,
		Handshake: Cfg.Serial.Timeouts.Handshake,
	}

	var stub session.StubProvider
	if f.stubDir != "" {
		stub = stubprovider.Directory{Dir: f.stubDir}
	}

	sink := session.EventSink(&loggingSink{interval: Cfg.Session.ProgressLogInterval})
	var collectors *metrics.Collectors
	if Cfg.Metrics.Enabled {
		collectors = metrics.New()
		sink = multiSink{sink, metrics.NewEventSink(collectors, nil)}
	}

	var portOpts session.PortOptions
	if baud != 0 {
		portOpts = session.DefaultPortOptions()
		portOpts.Baud = baud
	}

	sess := session.New(serialport.New(port), session.Options{
		Stub:        stub,
		Sink:        sink,
		Timeouts:    timeouts,
		Reset:       strategy,
		PortOptions: portOpts,
	})
	return sess, collectors, port, nil
}

// multiSink fans a single session.Event out to multiple sinks.
type multiSink []session.EventSink

func (m multiSink) Emit(e session.Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// loggingSink logs progress events at most once per interval per partition,
// so a long flash doesn't spam a line per 4096-byte block.
type loggingSink struct {
	interval time.Duration
	last     map[string]time.Time
}

func (l *loggingSink) Emit(e session.Event) {
	if l.last == nil {
		l.last = make(map[string]time.Time)
	}
	key := string(e.Kind) + ":" + e.Partition
	now := time.Now()
	if prev, ok := l.last[key]; ok && now.Sub(prev) < l.interval && e.Progress < 100 {
		return
	}
	l.last[key] = now
	Printer.Printf("%s %s: %.0f%%\n", e.Kind, e.Partition, e.Progress)
}
