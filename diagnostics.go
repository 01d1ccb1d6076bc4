// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

import "fmt"

// Diagnostic is one advisory event the core emits on an unexpected but
// non-fatal condition: an unknown ACK byte, a NACK, a resync, unrecognized
// GET opcodes, mass-erase unavailability, a clock-stretch hint, and so on
// (spec §7, §9). Diagnostics carry no control-flow weight — dropping one
// never changes behaviour.
type Diagnostic struct {
	// Level is "info" or "warn"; the core never emits anything more
	// severe than a warning — real failures are returned errors, not
	// diagnostics.
	Level string
	// Op names the operation the diagnostic was raised from.
	Op string
	// Message is a short, human-readable line.
	Message string
}

// DiagnosticFunc receives Diagnostic events. The core never logs directly;
// presentation (printing, forwarding to a logger, dropping entirely) is the
// caller's decision — see spec §9 "diagnostics are structured events, not
// printed strings".
type DiagnosticFunc func(Diagnostic)

func (s *Session) diagf(level, op, format string, args ...any) {
	if s.Diagnostics == nil {
		return
	}
	s.Diagnostics(Diagnostic{Level: level, Op: op, Message: fmt.Sprintf(format, args...)})
}
