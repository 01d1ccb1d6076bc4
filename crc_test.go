// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHostCRC32_S4 reproduces the spec's one-zero-word CRC scenario.
func TestHostCRC32_S4(t *testing.T) {
	crc, err := HostCRC32([]byte{0x00, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, uint32(0xC704DD7B), crc)
}

func TestHostCRC32_RejectsUnaligned(t *testing.T) {
	_, err := HostCRC32([]byte{0x00, 0x00, 0x00})
	require.Error(t, err)
}

func TestHostCRC32_MultiWord(t *testing.T) {
	// Folding two words sequentially through foldCRC32 must agree with
	// computing over both at once: the function is a pure fold with no
	// hidden per-call state.
	one, err := HostCRC32([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})
	require.NoError(t, err)

	crc := foldCRC32(0xFFFFFFFF, []byte{0x01, 0x02, 0x03, 0x04})
	crc = foldCRC32(crc, []byte{0x05, 0x06, 0x07, 0x08})
	assert.Equal(t, one, crc)
}

func TestNativeCRC_TwoAcksBracketResult(t *testing.T) {
	s, lb := sessionWithDevice(0x410, 0)
	// command ack, address ack, length ack, compute-done ack, then the
	// result frame.
	lb.QueueReply(ackByte, ackByte, ackByte, ackByte, 0x00, 0x00, 0x00, 0x00, 0x00)

	crc, err := s.nativeCRC(0x08000000, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), crc)

	writes := lb.Writes()
	require.Len(t, writes, 3)
	assert.Equal(t, []byte{0xA1, 0x5E}, writes[0])
	assert.Equal(t, []byte{0x08, 0x00, 0x00, 0x00, 0x08}, writes[1])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x04, 0x04}, writes[2])
}

func TestComputeCRC_RejectsUnaligned(t *testing.T) {
	s, _ := sessionWithDevice(0x410, 0)
	_, err := s.ComputeCRC(0x08000001, 4)
	require.Error(t, err)
}
