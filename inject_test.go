// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexstub/stm32boot/catalog"
)

func TestSelectStub_PriorityOrder(t *testing.T) {
	s := &Session{}
	s.Device = catalog.Device{Flags: catalog.OBLLaunch | catalog.PEmpty}
	assert.Equal(t, &stubOBLLaunch[0], &s.selectStub()[0])

	s.Device = catalog.Device{Flags: catalog.PEmpty}
	assert.Equal(t, &stubPEmpty[0], &s.selectStub()[0])

	s.Device = catalog.Device{Flags: 0}
	assert.Equal(t, &stubReset[0], &s.selectStub()[0])
}

func TestInject_RejectsUnalignedTarget(t *testing.T) {
	s, _ := sessionWithDevice(0x410, 0)
	err := s.Inject(0x20000001)
	require.Error(t, err)
}

func TestInject_StagesHeaderThenStub(t *testing.T) {
	s, lb := sessionWithDevice(0x410, 0)
	target := uint32(0x20000100)
	lb.QueueReply(ackByte, ackByte, ackByte, ackByte, ackByte) // write's 3 acks + go's 2 acks

	require.NoError(t, s.Inject(target))

	writes := lb.Writes()
	require.True(t, len(writes) >= 4)
	// writes[2] is the write-memory payload frame; its data (after the
	// leading length byte) starts with the staged SP and PC.
	payload := writes[2]
	data := payload[1 : 1+24] // header(8) + 16-byte reset stub, unpadded
	sp := binary.LittleEndian.Uint32(data[0:4])
	pc := binary.LittleEndian.Uint32(data[4:8])
	assert.Equal(t, uint32(initialSP), sp)
	assert.Equal(t, target+8+1, pc)
	assert.Equal(t, stubReset, data[8:24])
}
