// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

import (
	"fmt"

	"github.com/hexstub/stm32boot/wireutil"
)

const crcPoly = 0x04C11DB7

// ComputeCRC returns the CRC-32 of the len bytes starting at addr. If the
// bootloader advertises the native CRC command (0xA1) it is used;
// otherwise the value is computed on the host by reading memory in
// chunks (CRCFallback). Both addr and len must be 4-byte aligned.
func (s *Session) ComputeCRC(addr, length uint32) (uint32, error) {
	if addr%4 != 0 || length%4 != 0 {
		return 0, protoErr("compute_crc", Unknown, fmt.Errorf("address and length must be 4-byte aligned"))
	}
	if s.Supports(CmdComputeCRC) {
		return s.nativeCRC(addr, length)
	}
	return s.CRCFallback(addr, length)
}

// nativeCRC issues the device's own CRC command (spec §4.C5): address,
// length, then two successive ACKs bracket the device's compute phase
// before it returns the 4-byte result plus checksum — the second ACK is
// not a duplicate to be "optimized away" (spec §9).
func (s *Session) nativeCRC(addr, length uint32) (uint32, error) {
	op, err := s.opcodeFor(CmdComputeCRC)
	if err != nil {
		return 0, err
	}
	if err := s.sendFramedByte(op); err != nil {
		return 0, protoErr("compute_crc", Unknown, err)
	}
	if err := s.awaitAck(0); err != nil {
		return 0, err
	}
	if err := s.writeAddressFrame(addr); err != nil {
		return 0, protoErr("compute_crc", Unknown, err)
	}
	if err := s.awaitAck(0); err != nil {
		return 0, err
	}
	lenBuf := make([]byte, 5)
	wireutil.PutBE32Checksum(lenBuf, length)
	if err := s.port.Write(lenBuf); err != nil {
		return 0, protoErr("compute_crc", Unknown, err)
	}
	if err := s.awaitAck(0); err != nil {
		return 0, err
	}
	if err := s.awaitAck(0); err != nil {
		return 0, err
	}

	reply := make([]byte, 5)
	if err := s.port.Read(reply, s.deadline(0)); err != nil {
		return 0, protoErr("compute_crc", Unknown, err)
	}
	if reply[4] != wireutil.Checksum(reply[:4]...) {
		return 0, protoErr("compute_crc", Unknown, fmt.Errorf("crc reply checksum mismatch"))
	}
	return uint32(reply[0])<<24 | uint32(reply[1])<<16 | uint32(reply[2])<<8 | uint32(reply[3]), nil
}

// CRCFallback computes the CRC-32/MPEG-2-style value the STM32 hardware
// CRC unit would produce over the len bytes at addr, by reading memory in
// ≤256-byte chunks and folding each into HostCRC32's bit-serial engine
// (spec §4.C5). Used automatically by ComputeCRC when the device has no
// native CRC command, and exposed directly for callers that want to
// verify a native result independently.
func (s *Session) CRCFallback(addr, length uint32) (uint32, error) {
	crc := uint32(0xFFFFFFFF)
	buf := make([]byte, maxChunk)
	for length > 0 {
		n := uint32(maxChunk)
		if n > length {
			n = length
		}
		chunk := buf[:n]
		if err := s.ReadMemory(addr, chunk); err != nil {
			return 0, err
		}
		crc = foldCRC32(crc, chunk)
		addr += n
		length -= n
	}
	return crc, nil
}

// HostCRC32 computes the same value as CRCFallback, directly over an
// in-memory buffer whose length must be a multiple of 4, for callers (and
// tests) that already have the data rather than a live Session.
func HostCRC32(data []byte) (uint32, error) {
	if len(data)%4 != 0 {
		return 0, fmt.Errorf("stm32boot: crc input length %d is not a multiple of 4", len(data))
	}
	return foldCRC32(0xFFFFFFFF, data), nil
}

// foldCRC32 folds data (a multiple of 4 bytes) into the running crc value
// using the STM32 hardware CRC unit's algorithm: each 32-bit little-endian
// word is byte-swapped before being fed, MSB-first, through the classic
// bit-serial CRC-32/MPEG-2 engine (poly 0x04C11DB7, no reflection).
func foldCRC32(crc uint32, data []byte) uint32 {
	swapped := make([]byte, len(data))
	copy(swapped, data)
	wireutil.SwapWordBytes(swapped)

	for i := 0; i+4 <= len(swapped); i += 4 {
		word := uint32(swapped[i])<<24 | uint32(swapped[i+1])<<16 | uint32(swapped[i+2])<<8 | uint32(swapped[i+3])
		crc ^= word
		for b := 0; b < 32; b++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ crcPoly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
