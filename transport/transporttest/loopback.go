// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package transporttest provides an in-memory transport.Port double used
// by every test in this module that needs a port (and by cmd/stm32flash's
// -fake mode) so the
// protocol engine can be exercised deterministically without real
// hardware.
package transporttest

import (
	"fmt"
	"sync"
	"time"

	"github.com/hexstub/stm32boot/transport"
)

// Loopback is a scripted transport.Port: callers queue the exact byte
// sequences a real device would reply with, then drive the protocol engine
// against it and inspect everything that was written to the "wire".
type Loopback struct {
	mu sync.Mutex

	flags       transport.Flag
	getReplyLen map[byte]int

	pending []byte     // bytes available to the next Read call(s)
	writes  [][]byte   // every Write call, verbatim, in order
	control [3]bool    // indexed by transport.Line
	closed  bool
	onWrite func([]byte) // optional hook, e.g. to script a reply after seeing a command
}

// NewLoopback returns a Loopback advertising the given capability flags.
func NewLoopback(flags transport.Flag) *Loopback {
	return &Loopback{flags: flags}
}

// WithGetReplyLength sets the optional product-version -> GET reply length
// map (spec §4.C1's cmd_get_reply[]).
func (l *Loopback) WithGetReplyLength(m map[byte]int) *Loopback {
	l.getReplyLen = m
	return l
}

// OnWrite installs a callback invoked synchronously after every Write,
// letting a test queue a scripted reply in response to a specific command
// rather than pre-loading the whole exchange up front.
func (l *Loopback) OnWrite(f func(written []byte)) *Loopback {
	l.onWrite = f
	return l
}

// QueueReply appends b to the bytes available for subsequent Read calls.
func (l *Loopback) QueueReply(b ...byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, b...)
}

// Writes returns every byte sequence passed to Write, in order.
func (l *Loopback) Writes() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.writes))
	copy(out, l.writes)
	return out
}

// Control reports the last level SetControl set line to.
func (l *Loopback) Control(line transport.Line) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.control[line]
}

func (l *Loopback) Write(buf []byte) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return fmt.Errorf("transporttest: write on closed loopback")
	}
	cp := append([]byte(nil), buf...)
	l.writes = append(l.writes, cp)
	hook := l.onWrite
	l.mu.Unlock()

	if hook != nil {
		hook(cp)
	}
	return nil
}

func (l *Loopback) Read(buf []byte, deadline time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("transporttest: read on closed loopback")
	}
	if len(l.pending) < len(buf) {
		return transport.ErrTimeout
	}
	n := copy(buf, l.pending)
	l.pending = l.pending[n:]
	return nil
}

func (l *Loopback) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = nil
	return nil
}

func (l *Loopback) SetControl(line transport.Line, level bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.control[line] = level
	return nil
}

func (l *Loopback) Flags() transport.Flag { return l.flags }

func (l *Loopback) GetReplyLength() map[byte]int { return l.getReplyLen }

func (l *Loopback) ConfigString() string { return "loopback" }

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
