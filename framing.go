// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

import (
	"time"

	"github.com/hexstub/stm32boot/transport"
	"github.com/hexstub/stm32boot/wireutil"
)

// Per-byte and per-frame timeouts (spec §7). The resync window is long
// because a device that just powered on may still be running its own
// boot-time delay before the bootloader starts polling the line.
const (
	defaultByteTimeout = 2 * time.Second
	resyncWindow       = 35 * time.Second
	resyncWriteBackoff = 500 * time.Millisecond
	busyPollInterval   = 50 * time.Millisecond
)

// deadline returns the absolute time at or before which a read must
// complete. A zero d picks the default single-byte timeout.
func (s *Session) deadline(d time.Duration) time.Time {
	if d == 0 {
		d = defaultByteTimeout
	}
	return time.Now().Add(d)
}

func (s *Session) readByte(deadline time.Time) (byte, error) {
	var b [1]byte
	if err := s.port.Read(b[:], deadline); err != nil {
		if err == transport.ErrTimeout {
			return 0, protoErr("read", Timeout, err)
		}
		return 0, protoErr("read", Unknown, err)
	}
	return b[0], nil
}

// sendFramedByte writes a single command byte followed by its
// bitwise-complement, the framing AN3155/AN4221 use for every one-byte
// command (spec §6.1).
func (s *Session) sendFramedByte(op byte) error {
	return s.port.Write([]byte{op, ^op})
}

// writeAddressFrame writes a big-endian 32-bit address followed by its
// XOR checksum byte, the framing used by read/write/erase/go's address
// argument (spec §6.2).
func (s *Session) writeAddressFrame(addr uint32) error {
	buf := make([]byte, 5)
	wireutil.PutBE32Checksum(buf, addr)
	return s.port.Write(buf)
}

// awaitAck reads a single status byte and classifies it, transparently
// absorbing BUSY bytes (spec §7: a bootloader may insert BUSY while it
// completes a slow internal operation such as an erase).
// awaitAck never invokes Resync itself: per spec §4.C3, Resync is reserved
// for the variable-length reply's frame-mode recovery path. A read-timeout
// here either keeps reading (wall-clock retry, while the port has Retry and
// the caller supplied a non-zero timeout — already implemented by Read
// itself honoring the full deadline) or is surfaced; an unrecognized byte
// is always Unknown.
func (s *Session) awaitAck(timeout time.Duration) error {
	if !s.port.Flags().Has(transport.Retry) {
		// No wall-clock retry window: a single default-length read.
		timeout = 0
	}
	d := s.deadline(timeout)
	for {
		b, err := s.readByte(d)
		if err != nil {
			if perr, ok := err.(*ProtoError); ok && perr.Kind == Timeout {
				if timeout != 0 && s.port.Flags().Has(transport.Retry) {
					return err
				}
				return protoErr("ack", Unknown, err)
			}
			return err
		}
		switch b {
		case ackByte:
			return nil
		case nackByte:
			return protoErr("ack", Nack, nil)
		case busyByte:
			s.diagf("info", "ack", "device busy, waiting")
			time.Sleep(busyPollInterval)
			continue
		default:
			s.diagf("warn", "ack", "unexpected byte %#02x while awaiting ack", b)
			return protoErr("ack", Unknown, nil)
		}
	}
}

// resync recovers link synchronization on a frame-oriented port after a
// variable-length reply's guessed length turns out wrong (spec §4.C3):
// repeatedly write the invalid-command pair [0xFF, 0x00], pausing between
// write errors, until a NACK is observed or the resync window elapses. No
// data reads occur here other than the single status byte each iteration
// reads looking for that NACK.
func (s *Session) resync() error {
	deadline := time.Now().Add(resyncWindow)
	for time.Now().Before(deadline) {
		if err := s.port.Write([]byte{0xFF, 0x00}); err != nil {
			time.Sleep(resyncWriteBackoff)
			continue
		}
		b, err := s.readByte(s.deadline(defaultByteTimeout))
		if err != nil {
			continue
		}
		if b == nackByte {
			return nil
		}
	}
	return protoErr("resync", Timeout, nil)
}

// readVariableLength issues op (using its fixed/negotiated byte directly,
// since this helper is also used before the command map exists) and reads
// its variable-length reply, handling the BYTE-port and frame-port
// transport conventions (spec §6.3, resolving the asymmetry between them
// per the worked S1 trace):
//
//   - BYTE port: command ack, then one length byte N, then N+1 data bytes,
//     then a trailing ack.
//   - frame port: the caller's guessed length is used to read N+2 bytes
//     (length byte + N+1 data bytes) in a single shot; if the leading byte
//     doesn't match the guess, or the read fails, the link is resynced, the
//     command is re-sent and its single length byte read, and after a
//     second resync and re-send the whole frame is read at that length.
func (s *Session) readVariableLength(op byte, guessLen int) ([]byte, error) {
	if err := s.sendFramedByte(op); err != nil {
		return nil, protoErr("read_variable", Unknown, err)
	}
	if err := s.awaitAck(0); err != nil {
		return nil, err
	}

	if s.port.Flags().Has(transport.Byte) {
		return s.readVariableByteMode()
	}
	return s.readVariableFrameMode(op, guessLen)
}

func (s *Session) readVariableByteMode() ([]byte, error) {
	n, err := s.readByte(s.deadline(0))
	if err != nil {
		return nil, err
	}
	data := make([]byte, int(n)+1)
	if err := s.port.Read(data, s.deadline(0)); err != nil {
		return nil, protoErr("read_variable", Unknown, err)
	}
	if err := s.awaitAck(0); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Session) readVariableFrameMode(op byte, guessLen int) ([]byte, error) {
	if guessLen > 0 {
		buf := make([]byte, guessLen+2)
		if err := s.port.Read(buf, s.deadline(0)); err == nil && int(buf[0]) == guessLen {
			return buf[1:], nil
		}
	}
	s.diagf("warn", "read_variable", "reply length guess %d did not hold, resyncing", guessLen)

	// The guess was wrong, or no guess was available: resync, re-send the
	// command, read one byte to discover the true length, resync once
	// more, then do the final length+2 read (spec's frame-port recovery
	// path).
	if err := s.resync(); err != nil {
		return nil, err
	}
	if err := s.sendFramedByte(op); err != nil {
		return nil, protoErr("read_variable", Unknown, err)
	}
	if err := s.awaitAck(0); err != nil {
		return nil, err
	}
	lenByte, err := s.readByte(s.deadline(0))
	if err != nil {
		return nil, err
	}
	if err := s.resync(); err != nil {
		return nil, err
	}
	if err := s.sendFramedByte(op); err != nil {
		return nil, protoErr("read_variable", Unknown, err)
	}
	if err := s.awaitAck(0); err != nil {
		return nil, err
	}
	buf := make([]byte, int(lenByte)+2)
	if err := s.port.Read(buf, s.deadline(0)); err != nil {
		return nil, protoErr("read_variable", Unknown, err)
	}
	return buf[1:], nil
}
