//go:build linux

package serialport

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/marmos91/espflash/pkg/session"
)

// configure puts fd into raw mode at the requested baud, 8N1, no flow
// control — the fixed line discipline every bootloader exchange assumes.
// [spec.md §6 SerialPort collaborator open(options)]
func configure(fd int, opts session.PortOptions) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	baud, ok := baudConstants[opts.Baud]
	if !ok {
		return fmt.Errorf("unsupported baud rate %d", opts.Baud)
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cflag &^= unix.CBAUD
	t.Cflag |= baud
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

var baudConstants = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
	460800: unix.B460800,
	921600: unix.B921600,
}

func ioctlInt(fd int, req uintptr, val *int) error {
	return unix.IoctlSetPointerInt(fd, uint(req), *val)
}
