// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

import (
	"fmt"
	"time"

	"github.com/hexstub/stm32boot/catalog"
	"github.com/hexstub/stm32boot/transport"
	"github.com/hexstub/stm32boot/wireutil"
)

const (
	maxChunk = 256

	writeAckTimeout  = 1 * time.Second
	massEraseTimeout = 35 * time.Second
	perPageErase     = 5 * time.Second
	maxEraseBatch    = 512

	// MassErase is the page-count sentinel for a whole-device erase. Erase
	// does not accept it: a whole-device erase is requested with a nil page
	// list or with EraseAll.
	MassErase = -1
)

// ReadMemory reads len(buf) bytes from addr (command 0x11). len(buf) must
// be in [1, 256]; larger reads are the caller's responsibility to chunk
// (spec §4.C5's 256-byte chunking policy applies to every memory op).
func (s *Session) ReadMemory(addr uint32, buf []byte) error {
	if len(buf) < 1 || len(buf) > maxChunk {
		return protoErr("read_memory", Unknown, fmt.Errorf("length %d out of range [1,256]", len(buf)))
	}
	op, err := s.opcodeFor(CmdReadMemory)
	if err != nil {
		return err
	}
	if err := s.sendFramedByte(op); err != nil {
		return protoErr("read_memory", Unknown, err)
	}
	if err := s.awaitAck(0); err != nil {
		return err
	}
	if err := s.writeAddressFrame(addr); err != nil {
		return protoErr("read_memory", Unknown, err)
	}
	if err := s.awaitAck(0); err != nil {
		return err
	}
	if err := s.sendFramedByte(byte(len(buf) - 1)); err != nil {
		return protoErr("read_memory", Unknown, err)
	}
	if err := s.port.Read(buf, s.deadline(0)); err != nil {
		return protoErr("read_memory", Unknown, err)
	}
	return nil
}

// WriteMemory writes data to addr (command 0x31 or the no-stretch 0x32).
// addr must be 4-byte aligned; len(data) must be in [1, 256]. Shorter than
// a 4-byte multiple, the payload is padded with 0xFF up to the next
// multiple of 4 (spec's padding law, testable property #4); the checksum
// covers the length byte and every payload byte including the padding.
func (s *Session) WriteMemory(addr uint32, data []byte) error {
	if addr%4 != 0 {
		return protoErr("write_memory", Unknown, fmt.Errorf("address %#08x is not 4-byte aligned", addr))
	}
	if len(data) < 1 || len(data) > maxChunk {
		return protoErr("write_memory", Unknown, fmt.Errorf("length %d out of range [1,256]", len(data)))
	}
	op, err := s.opcodeFor(CmdWriteMemory)
	if err != nil {
		return err
	}

	padded := (len(data) + 3) &^ 3
	payload := make([]byte, 1+padded+1)
	payload[0] = byte(padded - 1)
	copy(payload[1:], data)
	for i := 1 + len(data); i < 1+padded; i++ {
		payload[i] = 0xFF
	}
	payload[len(payload)-1] = wireutil.Checksum(payload[:len(payload)-1]...)

	if err := s.sendFramedByte(op); err != nil {
		return protoErr("write_memory", Unknown, err)
	}
	if err := s.awaitAck(0); err != nil {
		return err
	}
	if err := s.writeAddressFrame(addr); err != nil {
		return protoErr("write_memory", Unknown, err)
	}
	if err := s.awaitAck(0); err != nil {
		return err
	}
	if err := s.port.Write(payload); err != nil {
		return protoErr("write_memory", Unknown, err)
	}
	if err := s.awaitAck(writeAckTimeout); err != nil {
		if s.port.Flags().Has(transport.StretchWrite) && isNoStretchWrite(op) {
			s.diagf("warn", "write_memory", "write failed on a no-stretch link; a clock-stretching device may need the stretching variant instead")
		}
		return err
	}
	return nil
}

// Erase erases flash. A nil pages requests whole-device erase
// (degraded, on a NO_ME device, to a page-range covering all of flash);
// otherwise pages lists explicit zero-based page indices and is internally
// split into batches of at most 512 pages (spec's batch cap).
func (s *Session) Erase(pages []int) error {
	op, err := s.opcodeFor(CmdEraseMemory)
	if err != nil {
		return err
	}
	extended := isExtendedErase(op)

	if pages == nil {
		return s.eraseMass(op, extended)
	}
	return s.erasePages(op, extended, pages)
}

// EraseAll is Erase(nil) spelled out; see Erase.
func (s *Session) EraseAll() error {
	op, err := s.opcodeFor(CmdEraseMemory)
	if err != nil {
		return err
	}
	extended := isExtendedErase(op)
	return s.eraseMass(op, extended)
}

func (s *Session) eraseMass(op byte, extended bool) error {
	if s.Device.Flags&catalog.NoMassErase != 0 {
		flashSize := s.Device.Flash.End - s.Device.Flash.Start
		s.diagf("warn", "erase", "device has no mass-erase opcode, degrading to a full page-range erase of %s", wireutil.FormatSize(flashSize))
		total, err := s.totalFlashPages()
		if err != nil {
			return protoErr("erase", Unknown, err)
		}
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return s.erasePages(op, extended, all)
	}

	if err := s.sendFramedByte(op); err != nil {
		return protoErr("erase", Unknown, err)
	}
	if err := s.awaitAck(0); err != nil {
		return err
	}
	if extended {
		if err := s.port.Write([]byte{0xFF, 0xFF, 0x00}); err != nil {
			return protoErr("erase", Unknown, err)
		}
	} else {
		if err := s.sendFramedByte(0xFF); err != nil {
			return protoErr("erase", Unknown, err)
		}
	}
	return s.awaitAck(massEraseTimeout)
}

func (s *Session) erasePages(op byte, extended bool, pages []int) error {
	for len(pages) > 0 {
		n := len(pages)
		if n > maxEraseBatch {
			n = maxEraseBatch
		}
		batch := pages[:n]
		pages = pages[n:]

		if err := s.sendFramedByte(op); err != nil {
			return protoErr("erase", Unknown, err)
		}
		if err := s.awaitAck(0); err != nil {
			return err
		}

		var payload []byte
		if extended {
			payload = make([]byte, 2+2*len(batch)+1)
			payload[0] = byte((len(batch) - 1) >> 8)
			payload[1] = byte(len(batch) - 1)
			for i, p := range batch {
				payload[2+2*i] = byte(p >> 8)
				payload[2+2*i+1] = byte(p)
			}
		} else {
			payload = make([]byte, 1+len(batch)+1)
			payload[0] = byte(len(batch) - 1)
			for i, p := range batch {
				payload[1+i] = byte(p)
			}
		}
		payload[len(payload)-1] = wireutil.Checksum(payload[:len(payload)-1]...)

		if err := s.port.Write(payload); err != nil {
			return protoErr("erase", Unknown, err)
		}
		if err := s.awaitAck(time.Duration(len(batch)) * perPageErase); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) totalFlashPages() (int, error) {
	if s.Device.FlashPagesPerGroup > 0 {
		return s.Device.FlashPagesPerGroup, nil
	}
	pages, err := s.PagesSpanning(s.Device.Flash.Start, s.Device.Flash.End-s.Device.Flash.Start)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// Go transfers execution to addr (command 0x21). The caller should treat
// the Session as closed afterward — the bootloader has handed control to
// user code and will not respond to further commands.
func (s *Session) Go(addr uint32) error {
	op, err := s.opcodeFor(CmdGo)
	if err != nil {
		return err
	}
	if err := s.sendFramedByte(op); err != nil {
		return protoErr("go", Unknown, err)
	}
	if err := s.awaitAck(0); err != nil {
		return err
	}
	if err := s.writeAddressFrame(addr); err != nil {
		return protoErr("go", Unknown, err)
	}
	return s.awaitAck(0)
}
