// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

import "fmt"

// Kind classifies a protocol-level failure (spec §7). Ok is never actually
// carried by a returned error — success is nil — but is kept in the
// enumeration as the zero Kind.
type Kind int

const (
	Ok Kind = iota
	// NoCommand means the negotiated command map marks this operation's
	// kind unsupported by the connected bootloader.
	NoCommand
	// Nack means the device replied NACK, which is often itself
	// meaningful (e.g. a protect operation the device refused).
	Nack
	// Timeout means a transport deadline elapsed without the expected
	// byte arriving.
	Timeout
	// Unknown covers a transport error, an unexpected byte, a checksum
	// mismatch, or any other logic failure.
	Unknown
)

func (k Kind) String() string {
	switch k {
	case Ok:
		return "ok"
	case NoCommand:
		return "no_command"
	case Nack:
		return "nack"
	case Timeout:
		return "timeout"
	case Unknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// ProtoError is the error type returned by every bootloader operation in
// this package; HostCRC32 and PagesSpanning, which send no command, return
// plain errors instead. Op names the operation that failed (e.g. "write", "erase",
// "establish"); Kind classifies the failure per §7; Err, when present, is
// the underlying cause and is reachable via errors.Unwrap.
type ProtoError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *ProtoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *ProtoError) Unwrap() error { return e.Err }

func protoErr(op string, kind Kind, err error) *ProtoError {
	return &ProtoError{Op: op, Kind: kind, Err: err}
}
