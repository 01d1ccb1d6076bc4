// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

import (
	"fmt"

	"github.com/hexstub/stm32boot/catalog"
)

// initialSP is the stack pointer value staged ahead of every injected
// stub (spec §4.C7). It is a generic, safely-high RAM address rather than
// anything read from the Device Record — the stub's own few instructions
// never push enough to threaten it.
const initialSP = 0x20002000

// Inject uploads the reset/launch stub appropriate for the connected
// Device's flags to RAM at target and branches to it via Go. target must
// be 4-byte aligned. The caller should treat the Session as closed
// afterward, same as a direct Go (spec §4.C7 delegates to C5's Write and
// Go).
func (s *Session) Inject(target uint32) error {
	if target%4 != 0 {
		return protoErr("inject", Unknown, fmt.Errorf("target address %#08x is not 4-byte aligned", target))
	}

	stub := s.selectStub()
	buf := make([]byte, 8+len(stub))
	putLE32(buf[0:4], initialSP)
	putLE32(buf[4:8], target+8+1) // +1 sets the Thumb bit
	copy(buf[8:], stub)

	addr := target
	for len(buf) > 0 {
		n := len(buf)
		if n > maxChunk {
			n = maxChunk
		}
		if err := s.WriteMemory(addr, buf[:n]); err != nil {
			return protoErr("inject", Unknown, err)
		}
		addr += uint32(n)
		buf = buf[n:]
	}

	return s.Go(target)
}

// selectStub picks among the three fixed stubs by the connected Device's
// flags: OBL_LAUNCH takes priority over PEMPTY, which takes priority over
// a plain reset (spec §4.C7).
func (s *Session) selectStub() []byte {
	switch {
	case s.Device.Flags&catalog.OBLLaunch != 0:
		return stubOBLLaunch
	case s.Device.Flags&catalog.PEmpty != 0:
		return stubPEmpty
	default:
		return stubReset
	}
}

func putLE32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}
