// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

import "time"

const (
	protectAckTimeout = 1 * time.Second
)

// ProtectResult reports whether the operation caused the device to
// auto-reset — a caller that sees AutoReset true must not additionally
// issue its own reset, since the device has already performed one
// (spec §4.C6, testable property #9).
type ProtectResult struct {
	AutoReset bool
}

// WriteProtect enables write protection (command 0x63). A device NACK is
// reported as a Nack-kind error, which callers should treat as a
// meaningful refusal rather than a transport fault.
func (s *Session) WriteProtect() error {
	_, err := s.runProtect(CmdWriteProtect, "write_protect", protectAckTimeout)
	return err
}

// WriteUnprotect disables write protection (command 0x73). The device
// auto-resets on success.
func (s *Session) WriteUnprotect() (ProtectResult, error) {
	return s.runProtect(CmdWriteUnprotect, "write_unprotect", protectAckTimeout)
}

// ReadProtect enables readout protection (command 0x82). The device
// auto-resets on success.
func (s *Session) ReadProtect() (ProtectResult, error) {
	return s.runProtect(CmdReadProtect, "read_protect", protectAckTimeout)
}

// ReadUnprotect disables readout protection (command 0x92). The device
// internally mass-erases before resetting, hence the shared 35-second
// mass-erase timeout rather than the 1-second protect timeout.
func (s *Session) ReadUnprotect() (ProtectResult, error) {
	return s.runProtect(CmdReadUnprotect, "read_unprotect", massEraseTimeout)
}

func (s *Session) runProtect(kind CmdKind, op string, timeout time.Duration) (ProtectResult, error) {
	opcode, err := s.opcodeFor(kind)
	if err != nil {
		return ProtectResult{}, err
	}
	if err := s.sendFramedByte(opcode); err != nil {
		return ProtectResult{}, protoErr(op, Unknown, err)
	}
	if err := s.awaitAck(timeout); err != nil {
		return ProtectResult{}, err
	}

	switch kind {
	case CmdWriteUnprotect, CmdReadProtect, CmdReadUnprotect:
		return ProtectResult{AutoReset: true}, nil
	default:
		return ProtectResult{}, nil
	}
}
