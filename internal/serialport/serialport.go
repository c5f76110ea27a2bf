//go:build linux

// Package serialport implements the session.SerialPort collaborator for
// Linux: a raw termios-configured serial device, with DTR/RTS control for
// the bootloader reset pulse. Grounded on golang.org/x/sys/unix termios and
// ioctl conventions (mirroring the reset-signal ioctls of a typical Go
// serial library) and adapted to the session.SerialPort contract.
package serialport

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/marmos91/espflash/pkg/session"
)

// Port is a concrete session.SerialPort backed by an opened device file.
type Port struct {
	path string
	f    *os.File
}

// New returns a Port bound to the given device path (e.g. /dev/ttyUSB0).
// It is not yet open; call Open to acquire the file descriptor.
func New(path string) *Port {
	return &Port{path: path}
}

var _ session.SerialPort = (*Port)(nil)

// Open opens the device and configures it per opts via termios.
func (p *Port) Open(ctx context.Context, opts session.PortOptions) error {
	f, err := os.OpenFile(p.path, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("serialport: open %s: %w", p.path, err)
	}

	if err := configure(int(f.Fd()), opts); err != nil {
		f.Close()
		return fmt.Errorf("serialport: configure %s: %w", p.path, err)
	}

	// Clear O_NONBLOCK now that the open-time race with carrier-detect has
	// passed; reads should block normally from here on.
	if err := unix.SetNonblock(int(f.Fd()), false); err != nil {
		f.Close()
		return fmt.Errorf("serialport: clear nonblock on %s: %w", p.path, err)
	}

	p.f = f
	return nil
}

// Close closes the device.
func (p *Port) Close() error {
	if p.f == nil {
		return nil
	}
	err := p.f.Close()
	p.f = nil
	return err
}

// SetSignals drives DTR/RTS via TIOCMBIS/TIOCMBIC, matching the reset-pulse
// sequence described for classic USB-UART bridges and native-USB chips.
func (p *Port) SetSignals(ctx context.Context, s session.SignalState) error {
	if p.f == nil {
		return fmt.Errorf("serialport: not open")
	}
	fd := int(p.f.Fd())

	if err := setLine(fd, unix.TIOCM_DTR, s.DTR); err != nil {
		return err
	}
	return setLine(fd, unix.TIOCM_RTS, s.RTS)
}

func setLine(fd int, bit int, on bool) error {
	line := bit
	req := uintptr(unix.TIOCMBIC)
	if on {
		req = uintptr(unix.TIOCMBIS)
	}
	return ioctlInt(fd, req, &line)
}

// Readable returns the device file as an io.Reader.
func (p *Port) Readable() io.Reader { return p.f }

// Writable returns the device file as an io.Writer.
func (p *Port) Writable() io.Writer { return p.f }

// Info reports no vendor/product id for a plain device path; a udev-backed
// discovery layer could populate this, but that is outside the core.
func (p *Port) Info() (session.PortInfo, bool) { return session.PortInfo{}, false }
