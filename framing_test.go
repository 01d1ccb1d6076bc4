// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexstub/stm32boot/transport"
	"github.com/hexstub/stm32boot/transport/transporttest"
)

func newTestSession(flags transport.Flag) (*Session, *transporttest.Loopback) {
	lb := transporttest.NewLoopback(flags)
	return &Session{port: lb, cmdMap: make(map[CmdKind]byte)}, lb
}

func TestSendFramedByte_Complement(t *testing.T) {
	s, lb := newTestSession(0)
	require.NoError(t, s.sendFramedByte(0x11))
	writes := lb.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, byte(0xEE), writes[0][1])
	assert.Equal(t, byte(0xFF), writes[0][0]^writes[0][1])
}

func TestAwaitAck_SkipsBusy(t *testing.T) {
	s, lb := newTestSession(0)
	lb.QueueReply(busyByte, busyByte, ackByte)
	require.NoError(t, s.awaitAck(0))
}

func TestAwaitAck_Nack(t *testing.T) {
	s, lb := newTestSession(0)
	lb.QueueReply(nackByte)
	err := s.awaitAck(0)
	require.Error(t, err)
	perr := err.(*ProtoError)
	assert.Equal(t, Nack, perr.Kind)
}

// TestAwaitAck_TimeoutNoRetry exercises spec §4.C3's read-timeout branch:
// without a caller-supplied non-zero timeout and Retry, a read-timeout is
// reported as Unknown, not Timeout.
func TestAwaitAck_TimeoutNoRetry(t *testing.T) {
	s, _ := newTestSession(0)
	err := s.awaitAck(0)
	require.Error(t, err)
	perr := err.(*ProtoError)
	assert.Equal(t, Unknown, perr.Kind)
}

// TestAwaitAck_TimeoutWithRetry exercises the complementary branch: a
// caller-supplied non-zero timeout on a Retry-capable port surfaces the
// underlying Timeout kind once the transport's own deadline elapses.
func TestAwaitAck_TimeoutWithRetry(t *testing.T) {
	s, _ := newTestSession(transport.Retry)
	err := s.awaitAck(time.Millisecond)
	require.Error(t, err)
	perr := err.(*ProtoError)
	assert.Equal(t, Timeout, perr.Kind)
}

func TestResync_RecoversOnNack(t *testing.T) {
	s, lb := newTestSession(transport.Retry)
	lb.OnWrite(func(b []byte) {
		if len(b) == 2 && b[0] == 0xFF && b[1] == 0x00 {
			lb.QueueReply(nackByte)
		}
	})
	require.NoError(t, s.resync())
}

func TestWriteAddressFrame_Checksum(t *testing.T) {
	s, lb := newTestSession(0)
	require.NoError(t, s.writeAddressFrame(0x08000000))
	writes := lb.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, []byte{0x08, 0x00, 0x00, 0x00, 0x08}, writes[0])
}

func TestReadVariableLength_ByteMode(t *testing.T) {
	s, lb := newTestSession(transport.Byte)
	lb.QueueReply(ackByte, 0x01, 0xAA, 0xBB, ackByte)
	data, err := s.readVariableLength(opGID, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, data)
}

func TestReadVariableLength_FrameMode_GuessHolds(t *testing.T) {
	s, lb := newTestSession(0)
	lb.QueueReply(ackByte, 0x01, 0xAA, 0xBB)
	data, err := s.readVariableLength(opGID, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, data)
}

// TestReadVariableLength_FrameMode_GuessWrong_Resyncs drives the frame-port
// recovery path end to end: a wrong length guess triggers Resync, a resend
// discovers the true length, a second Resync precedes the final read
// (spec §4.C3, scenario S6).
func TestReadVariableLength_FrameMode_GuessWrong_Resyncs(t *testing.T) {
	s, lb := newTestSession(transport.Retry)

	cmdWrites := 0
	lb.OnWrite(func(b []byte) {
		switch {
		case len(b) == 2 && b[0] == 0xFF && b[1] == 0x00:
			lb.QueueReply(nackByte) // resync always succeeds immediately
		case len(b) == 2 && b[0] == opGID:
			cmdWrites++
			switch cmdWrites {
			case 1:
				lb.QueueReply(ackByte) // no frame follows: guess of 5 fails
			case 2:
				lb.QueueReply(ackByte, 0x01) // cmd ack, then the true length byte
			case 3:
				lb.QueueReply(ackByte, 0x01, 0xAA, 0xBB) // cmd ack, then the full frame
			}
		}
	})

	data, err := s.readVariableLength(opGID, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, data)
	assert.Equal(t, 3, cmdWrites)
}
