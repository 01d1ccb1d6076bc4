// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

// CmdKind is an abstract bootloader command kind. The actual command byte
// a given device uses for a kind is negotiated during Establish and stored
// in a Session's command map (spec §3) — callers never hardcode opcodes.
type CmdKind int

const (
	CmdGet CmdKind = iota
	CmdGetVersionReadProt
	CmdGetID
	CmdReadMemory
	CmdGo
	CmdWriteMemory
	CmdEraseMemory
	CmdWriteProtect
	CmdWriteUnprotect
	CmdReadProtect
	CmdReadUnprotect
	CmdComputeCRC
)

func (k CmdKind) String() string {
	switch k {
	case CmdGet:
		return "get"
	case CmdGetVersionReadProt:
		return "gvr"
	case CmdGetID:
		return "gid"
	case CmdReadMemory:
		return "read_memory"
	case CmdGo:
		return "go"
	case CmdWriteMemory:
		return "write_memory"
	case CmdEraseMemory:
		return "erase_memory"
	case CmdWriteProtect:
		return "write_protect"
	case CmdWriteUnprotect:
		return "write_unprotect"
	case CmdReadProtect:
		return "read_protect"
	case CmdReadUnprotect:
		return "read_unprotect"
	case CmdComputeCRC:
		return "compute_crc"
	default:
		return "invalid"
	}
}

// Fixed protocol bytes (spec §6.4). Get, GVR and GID are sent with these
// well-known values directly — they are what bootstraps the command map in
// the first place, so they cannot themselves be looked up in it.
const (
	opGet byte = 0x00
	opGVR byte = 0x01
	opGID byte = 0x02

	ackByte  byte = 0x79
	nackByte byte = 0x1F
	busyByte byte = 0x76
	initByte byte = 0x7F

	unsupportedOpcode byte = 0xFF
)

// opcodeKinds maps every opcode byte a GET reply may report to the kind it
// represents (AN3155/AN4221's command set, per spec §6.4's wire table).
// Kinds with a legacy/no-stretch pair (write, extended erase) list both
// opcodes; Session.latchOpcode keeps the numerically greater one, per the
// "newer opcode wins" rule in spec §9.
var opcodeKinds = map[byte]CmdKind{
	opGet:  CmdGet,
	opGVR:  CmdGetVersionReadProt,
	opGID:  CmdGetID,
	0x11:   CmdReadMemory,
	0x21:   CmdGo,
	0x31:   CmdWriteMemory,
	0x32:   CmdWriteMemory, // no-stretch write
	0x43:   CmdEraseMemory, // legacy erase
	0x44:   CmdEraseMemory, // extended erase
	0x45:   CmdEraseMemory, // extended erase, no-stretch
	0x63:   CmdWriteProtect,
	0x73:   CmdWriteUnprotect,
	0x82:   CmdReadProtect,
	0x92:   CmdReadUnprotect,
	0xA1:   CmdComputeCRC,
}

// isNoStretchWrite/ExtErase report whether op is the no-clock-stretch
// variant of its kind. WriteMemory uses isNoStretchWrite only to decide
// whether its stretch-clock diagnostic hint applies on failure; erase
// failures raise no such hint, and isNoStretchExtErase has no caller.
func isNoStretchWrite(op byte) bool     { return op == 0x32 }
func isNoStretchExtErase(op byte) bool  { return op == 0x45 }
func isExtendedErase(op byte) bool      { return op == 0x44 || op == 0x45 }
