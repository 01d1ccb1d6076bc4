// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package stm32boot implements a host-side driver for the STM32
// system-memory (ROM) bootloader protocol described by ST application
// notes AN3155/AN3154/AN4221: session establishment, command framing with
// ACK/NACK/BUSY handling and resynchronization, and the read, write,
// erase, go, CRC, and protection operations built on top of it.
package stm32boot

import (
	"fmt"

	"github.com/hexstub/stm32boot/catalog"
	"github.com/hexstub/stm32boot/transport"
)

// Session is a negotiated connection to one bootloader instance. It owns
// its Port exclusively for its lifetime: two Sessions must never share one.
// A Session is not safe for concurrent use — every operation is a
// synchronous, blocking request/response exchange (spec §5).
type Session struct {
	port transport.Port

	// BLVersion is the bootloader version byte reported by GET.
	BLVersion byte
	// Version, Option1, Option2 are the product-version bytes reported by
	// GVR. Option1/Option2 are only meaningful when the transport declares
	// transport.GVRExtra.
	Version, Option1, Option2 byte
	// ProductID is the 12-bit STM32 product ID reported by GID.
	ProductID uint16
	// Device is the catalog entry matched by ProductID.
	Device catalog.Device

	cmdMap map[CmdKind]byte

	// Diagnostics, if non-nil, receives every advisory event the core
	// raises. It is never invoked concurrently with itself.
	Diagnostics DiagnosticFunc
}

// EstablishOptions configures Establish.
type EstablishOptions struct {
	// SendInit requests the autobaud init byte be sent, if the transport
	// declares transport.CmdInit. Callers that know the link is already
	// synchronized (e.g. a reconnect) can set this false.
	SendInit bool
	// Diagnostics, if non-nil, is attached to the returned Session before
	// establishment proceeds, so it also observes diagnostics raised
	// during Establish itself.
	Diagnostics DiagnosticFunc
}

// Establish performs session establishment against port: the autobaud init
// handshake (if applicable), GVR, GET (capability negotiation), GID, and a
// Device Catalog lookup (spec §4.C4). It returns a ready-to-use Session, or
// an error with the transport left in whatever state the failing step left
// it — the caller should Close and re-establish rather than retry in
// place.
func Establish(port transport.Port, opts EstablishOptions) (*Session, error) {
	s := &Session{
		port:        port,
		cmdMap:      make(map[CmdKind]byte),
		Diagnostics: opts.Diagnostics,
	}

	if port.Flags().Has(transport.CmdInit) && opts.SendInit {
		if err := s.initHandshake(); err != nil {
			return nil, err
		}
	}
	if err := s.readGVR(); err != nil {
		return nil, err
	}
	if err := s.readGET(); err != nil {
		return nil, err
	}
	if err := s.readGID(); err != nil {
		return nil, err
	}

	dev, ok := catalog.Lookup(s.ProductID)
	if !ok {
		return nil, protoErr("establish", Unknown, fmt.Errorf("no catalog entry for product id %#03x", s.ProductID))
	}
	s.Device = dev

	for _, kind := range []CmdKind{CmdGet, CmdGetVersionReadProt, CmdGetID} {
		if _, ok := s.cmdMap[kind]; !ok {
			return nil, protoErr("establish", Unknown, fmt.Errorf("bootloader did not report mandatory command %s", kind))
		}
	}

	return s, nil
}

// Close releases the underlying transport. It does not attempt to leave
// the device in any particular state; callers that issued a protect
// operation or Go should not call Close afterwards expecting a clean
// bootloader-side teardown — the device has typically already reset or
// resumed user code.
func (s *Session) Close() error {
	return s.port.Close()
}

// latchOpcode records that op implements kind, keeping the numerically
// greater opcode when a kind is reported more than once (spec §3: "higher
// opcode wins" for legacy/no-stretch pairs).
func (s *Session) latchOpcode(kind CmdKind, op byte) {
	if existing, ok := s.cmdMap[kind]; !ok || op > existing {
		s.cmdMap[kind] = op
	}
}

// opcodeFor resolves kind to the opcode the connected device reports,
// failing with NoCommand if the bootloader never advertised it.
func (s *Session) opcodeFor(kind CmdKind) (byte, error) {
	op, ok := s.cmdMap[kind]
	if !ok || op == unsupportedOpcode {
		return 0, protoErr(kind.String(), NoCommand, nil)
	}
	return op, nil
}

// Supports reports whether the connected bootloader advertised kind.
func (s *Session) Supports(kind CmdKind) bool {
	_, err := s.opcodeFor(kind)
	return err == nil
}

func (s *Session) initHandshake() error {
	if err := s.port.Write([]byte{initByte}); err != nil {
		return protoErr("init", Unknown, err)
	}
	b, err := s.readByte(s.deadline(0))
	if err == nil && b == ackByte {
		return nil
	}
	if err == nil && b == nackByte {
		s.diagf("warn", "init", "device NACKed autobaud init; link may not have been closed cleanly, proceeding")
		return nil
	}

	// No usable reply: the previous byte on the wire may have been
	// consumed as a stray command's first byte. Try once more and this
	// time require a NACK.
	if err := s.port.Write([]byte{initByte}); err != nil {
		return protoErr("init", Unknown, err)
	}
	b2, err2 := s.readByte(s.deadline(0))
	if err2 == nil && b2 == nackByte {
		return nil
	}
	return protoErr("init", Unknown, fmt.Errorf("no response to autobaud init"))
}

func (s *Session) readGVR() error {
	if err := s.sendFramedByte(opGVR); err != nil {
		return protoErr("gvr", Unknown, err)
	}
	if err := s.awaitAck(0); err != nil {
		return err
	}

	n := 1
	if s.port.Flags().Has(transport.GVRExtra) {
		n = 3
	}
	buf := make([]byte, n)
	if err := s.port.Read(buf, s.deadline(0)); err != nil {
		return protoErr("gvr", Unknown, err)
	}
	s.Version = buf[0]
	if n == 3 {
		s.Option1, s.Option2 = buf[1], buf[2]
	}
	return s.awaitAck(0)
}

func (s *Session) readGET() error {
	guess := 0
	if m := s.port.GetReplyLength(); m != nil {
		guess = m[s.Version]
	}
	data, err := s.readVariableLength(opGet, guess)
	if err != nil {
		return err
	}
	if len(data) < 1 {
		return protoErr("get", Unknown, fmt.Errorf("empty GET reply"))
	}
	s.BLVersion = data[0]

	var unrecognized []byte
	for _, op := range data[1:] {
		kind, ok := opcodeKinds[op]
		if !ok {
			unrecognized = append(unrecognized, op)
			continue
		}
		s.latchOpcode(kind, op)
	}
	if len(unrecognized) > 0 {
		s.diagf("warn", "get", "unrecognized opcodes in GET reply: % 02X", unrecognized)
	}
	return nil
}

func (s *Session) readGID() error {
	data, err := s.readVariableLength(opGID, 1)
	if err != nil {
		return err
	}
	if len(data) < 2 {
		return protoErr("gid", Unknown, fmt.Errorf("short GID reply: %d bytes", len(data)))
	}
	s.ProductID = uint16(data[0])<<8 | uint16(data[1])
	if len(data) > 2 {
		s.diagf("warn", "gid", "unexpected extra bytes in GID reply: % 02X", data[2:])
	}
	return nil
}
