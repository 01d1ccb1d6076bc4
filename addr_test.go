// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexstub/stm32boot/catalog"
)

func TestAddrClassification(t *testing.T) {
	s := &Session{Device: catalog.MustLookup(0x410)}
	assert.True(t, s.InFlash(0x08000000))
	assert.False(t, s.InFlash(0x08020000)) // exclusive upper bound
	assert.True(t, s.InRAM(0x20000200))
	assert.True(t, s.InSystemMemory(0x1FFFF000))
	assert.True(t, s.InOptionBytes(0x1FFFF80F)) // inclusive upper bound
}

func TestPageFloorCeil_Uniform(t *testing.T) {
	s := &Session{Device: catalog.MustLookup(0x410)} // 1KB uniform pages
	assert.Equal(t, 1, s.PageFloor(0x08000450))
	assert.Equal(t, 2, s.PageCeil(0x08000450))
	assert.Equal(t, uint32(0x08000400), s.PageToAddr(1))
	assert.Equal(t, uint32(0x08000800), s.PageToAddr(2))
}

// TestPageWalk_NonUniformPrelude exercises the F42x/43x's small-sector
// prelude followed by a uniform tail (testable property #6).
func TestPageWalk_NonUniformPrelude(t *testing.T) {
	s := &Session{Device: catalog.MustLookup(0x419)}

	assert.Equal(t, 0, s.PageFloor(0x08000000))
	assert.Equal(t, uint32(0x08000000), s.PageToAddr(0))
	assert.Equal(t, uint32(0x08004000), s.PageToAddr(1)) // first 16K sector

	assert.Equal(t, 3, s.PageFloor(0x0800F000)) // inside the 4th 16K sector
	assert.Equal(t, uint32(0x0800C000), s.PageToAddr(3))
	assert.Equal(t, uint32(0x08010000), s.PageToAddr(4))

	assert.Equal(t, 4, s.PageFloor(0x08010000)) // first byte of the 64K sector
	assert.Equal(t, uint32(0x08010000), s.PageToAddr(4))
	assert.Equal(t, uint32(0x08020000), s.PageToAddr(5))

	assert.Equal(t, 5, s.PageFloor(0x08020000)) // first 128K sector
	assert.Equal(t, uint32(0x08020000), s.PageToAddr(5))
	assert.Equal(t, uint32(0x08040000), s.PageToAddr(6))

	last := s.PageFloor(0x080FFFFF) // last byte of flash
	assert.Equal(t, 11, last)
	assert.Equal(t, uint32(0x08100000), s.PageToAddr(last+1))
}

// TestPageToAddr_Property6 checks testable property #6: for any in-flash
// address, PageToAddr(PageFloor(a)) <= a < PageToAddr(PageFloor(a)+1).
func TestPageToAddr_Property6(t *testing.T) {
	s := &Session{Device: catalog.MustLookup(0x419)}
	for _, addr := range []uint32{0x08000000, 0x0800F000, 0x08010000, 0x08020000, 0x080FFFFF} {
		page := s.PageFloor(addr)
		assert.LessOrEqual(t, s.PageToAddr(page), addr)
		assert.Greater(t, s.PageToAddr(page+1), addr)
	}
}

func TestPageFloorCeil_OutsideFlashReturnsZero(t *testing.T) {
	s := &Session{Device: catalog.MustLookup(0x410)}
	assert.Equal(t, 0, s.PageFloor(0x20000000))
	assert.Equal(t, 0, s.PageCeil(0x20000000))
}

func TestPagesSpanning(t *testing.T) {
	s := &Session{Device: catalog.MustLookup(0x410)}
	pages, err := s.PagesSpanning(0x08000000, 4096)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, pages)
}

func TestPagesSpanning_OutsideFlashErrors(t *testing.T) {
	s := &Session{Device: catalog.MustLookup(0x410)}
	_, err := s.PagesSpanning(0x20000000, 4096)
	require.Error(t, err)
}
