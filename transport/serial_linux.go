// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

//go:build linux

package transport

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Serial is a reference transport.Port backed by a Linux tty, configured
// raw with golang.org/x/sys/unix termios and ioctl calls. It is provided so
// this module is runnable end to end against real hardware without a
// second repository; it is not a production-grade driver (no DMA, no
// hot-plug handling, no Windows/macOS support) and the protocol engine's
// own tests never depend on it — see transport/transporttest.Loopback.
type Serial struct {
	fd    int
	flags Flag
	name  string
	baud  uint32
}

var baudRates = map[int]uint32{
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	921600:  unix.B921600,
}

// OpenSerial opens path (e.g. "/dev/ttyUSB0") at baud bits/sec and puts it
// in raw 8N1 mode. flags should normally be Byte|CmdInit|Retry for a UART
// bootloader link.
func OpenSerial(path string, baud int, flags Flag) (*Serial, error) {
	rate, ok := baudRates[baud]
	if !ok {
		return nil, fmt.Errorf("transport: unsupported baud rate %d", baud)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", path, err)
	}

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: get termios: %w", err)
	}

	// Equivalent of cfmakeraw(3): no echo, no signal generation, no line
	// discipline processing, 8 data bits, no parity, one stop bit.
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cflag &^= unix.CBAUD
	t.Cflag |= rate
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0
	t.Ispeed = rate
	t.Ospeed = rate
	unix.SetNonblock(fd, false)

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: set termios: %w", err)
	}

	return &Serial{fd: fd, flags: flags, name: path, baud: uint32(baud)}, nil
}

func (s *Serial) Write(buf []byte) error {
	for len(buf) > 0 {
		n, err := unix.Write(s.fd, buf)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("transport: write: %w", err)
		}
		buf = buf[n:]
	}
	return nil
}

// Read fills buf completely before deadline, or returns ErrTimeout. A zero
// deadline waits indefinitely on each select, which still respects VMIN=0/
// VTIME=0 non-blocking reads underneath.
func (s *Serial) Read(buf []byte, deadline time.Time) error {
	got := 0
	for got < len(buf) {
		var timeout *unix.Timeval
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return ErrTimeout
			}
			tv := unix.NsecToTimeval(remaining.Nanoseconds())
			timeout = &tv
		}

		var rfds unix.FdSet
		fdSet(&rfds, s.fd)
		n, err := unix.Select(s.fd+1, &rfds, nil, nil, timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("transport: select: %w", err)
		}
		if n == 0 {
			return ErrTimeout
		}

		m, err := unix.Read(s.fd, buf[got:])
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return fmt.Errorf("transport: read: %w", err)
		}
		got += m
	}
	return nil
}

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
}

func (s *Serial) Flush() error {
	return unix.IoctlSetInt(s.fd, unix.TCFLSH, unix.TCIFLUSH)
}

func (s *Serial) SetControl(line Line, level bool) error {
	switch line {
	case RTS:
		return s.setModemBit(unix.TIOCM_RTS, level)
	case DTR:
		return s.setModemBit(unix.TIOCM_DTR, level)
	case BRK:
		if level {
			return unix.IoctlSetInt(s.fd, unix.TIOCSBRK, 0)
		}
		return unix.IoctlSetInt(s.fd, unix.TIOCCBRK, 0)
	default:
		return fmt.Errorf("transport: unknown control line %d", line)
	}
}

func (s *Serial) setModemBit(bit int, level bool) error {
	arg := bit
	if level {
		return unix.IoctlSetPointerInt(s.fd, unix.TIOCMBIS, arg)
	}
	return unix.IoctlSetPointerInt(s.fd, unix.TIOCMBIC, arg)
}

func (s *Serial) Flags() Flag { return s.flags }

func (s *Serial) GetReplyLength() map[byte]int { return nil }

func (s *Serial) ConfigString() string { return fmt.Sprintf("%s @ %d", s.name, s.baud) }

func (s *Serial) Close() error { return unix.Close(s.fd) }
