// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteProtect_NoAutoReset(t *testing.T) {
	s, lb := sessionWithDevice(0x410, 0)
	lb.QueueReply(ackByte)
	require.NoError(t, s.WriteProtect())
	assert.Equal(t, []byte{0x63, 0x9C}, lb.Writes()[0])
}

// TestReadUnprotect_AutoReset checks testable property #9: the caller is
// told a reset already happened.
func TestReadUnprotect_AutoReset(t *testing.T) {
	s, lb := sessionWithDevice(0x410, 0)
	lb.QueueReply(ackByte)
	res, err := s.ReadUnprotect()
	require.NoError(t, err)
	assert.True(t, res.AutoReset)
	assert.Equal(t, []byte{0x92, 0x6D}, lb.Writes()[0])
}

func TestWriteUnprotect_Nack(t *testing.T) {
	s, lb := sessionWithDevice(0x410, 0)
	lb.QueueReply(nackByte)
	_, err := s.WriteUnprotect()
	require.Error(t, err)
	perr, ok := err.(*ProtoError)
	require.True(t, ok)
	assert.Equal(t, Nack, perr.Kind)
}
