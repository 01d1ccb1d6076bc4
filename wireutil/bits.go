// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package wireutil holds small, dependency-free bit and byte helpers shared
// by the framing engine, the memory operations, and the host-side CRC
// fallback.
package wireutil

import (
	"encoding/binary"
	"fmt"
)

// Checksum is the XOR of every byte in b.
func Checksum(b ...byte) byte {
	var c byte
	for _, v := range b {
		c ^= v
	}
	return c
}

// PutBE32Checksum writes v big-endian into dst[0:4] followed by the XOR of
// those four bytes into dst[4]. dst must have length >= 5. This is the
// "address payload" / "length payload" shape used throughout the wire
// protocol (spec §4.C3, §6.4).
func PutBE32Checksum(dst []byte, v uint32) {
	binary.BigEndian.PutUint32(dst[0:4], v)
	dst[4] = Checksum(dst[0:4]...)
}

// SwapWordBytes reverses the byte order of every 4-byte little-endian word
// in s, in place, returning s. The STM32 hardware CRC unit computes over
// words loaded byte-swapped relative to the wire order; the host-side CRC
// fallback mirrors that by swapping before folding each word in (see
// package stm32boot's crc.go).
func SwapWordBytes(s []byte) []byte {
	for i := 0; i+4 <= len(s); i += 4 {
		s[i], s[i+1], s[i+2], s[i+3] = s[i+3], s[i+2], s[i+1], s[i]
	}
	return s
}

// FormatSize renders a byte count using SI-ish suffixes for diagnostics,
// e.g. "128 KB" for a sector-erase message. Precision beyond three
// significant digits is never needed for a log line.
func FormatSize(v uint32) string {
	suffixes := [...]string{"B", "KB", "MB"}
	i := 0
	d := uint32(1)
	for i < len(suffixes)-1 && v >= d*1024 {
		d *= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d %s", v, suffixes[i])
	}
	return fmt.Sprintf("%.3g %s", float64(v)/float64(d), suffixes[i])
}
