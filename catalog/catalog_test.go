// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package catalog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	d, ok := Lookup(0x410)
	require.True(t, ok)
	assert.Equal(t, "STM32F10xxx Medium-density", d.Name)

	_, ok = Lookup(0xFFF)
	assert.False(t, ok)
}

func TestIDsAreUnique(t *testing.T) {
	seen := make(map[uint16]bool)
	for _, d := range Table {
		assert.NotZero(t, d.ID)
		assert.False(t, seen[d.ID], "duplicate id %#03x", d.ID)
		seen[d.ID] = true
	}
}

func TestRangesWellFormed(t *testing.T) {
	for _, d := range Table {
		assert.LessOrEqual(t, d.RAM.Start, d.RAM.End, d.Name)
		assert.LessOrEqual(t, d.Flash.Start, d.Flash.End, d.Name)
		assert.LessOrEqual(t, d.SystemMemory.Start, d.SystemMemory.End, d.Name)
		assert.LessOrEqual(t, d.OptionBytes.Start, d.OptionBytes.End, d.Name)
		require.NotEmpty(t, d.FlashPageSizes, d.Name)
		assert.Zero(t, d.FlashPageSizes[len(d.FlashPageSizes)-1], "%s: page sizes must be zero-terminated", d.Name)
	}
}

func TestFlagString(t *testing.T) {
	assert.Equal(t, "none", Flag(0).String())
	assert.Equal(t, "NO_ME", NoMassErase.String())
	assert.Equal(t, "OBLL|PEMPTY", (OBLLaunch | PEmpty).String())
}

func TestExportLoadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, Table))

	got, err := LoadYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, Table, got)
}
