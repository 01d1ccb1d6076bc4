// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

import "fmt"

// InFlash, InRAM, InSystemMemory and InOptionBytes classify addr against
// the connected Device's memory map (spec §6.5's address classification,
// delegated to catalog.Device which owns the ranges).
func (s *Session) InFlash(addr uint32) bool        { return s.Device.InFlash(addr) }
func (s *Session) InRAM(addr uint32) bool          { return s.Device.InRAM(addr) }
func (s *Session) InSystemMemory(addr uint32) bool { return s.Device.InSystemMemory(addr) }
func (s *Session) InOptionBytes(addr uint32) bool  { return s.Device.InOptionBytes(addr) }

// walkPage runs the page-size-walking algorithm of spec §4.C8 over the
// connected Device's FlashPageSizes: starting from addr's byte offset into
// flash, repeatedly subtract page sizes and count pages, advancing the
// lookup index only while a next (non-terminator) entry remains. This is
// what lets a short, explicit prelude (e.g. the F42x/43x's four 16K
// sectors before a run of 64K/128K sectors) be followed by same-sized
// pages without listing each one — the last non-zero entry before the
// zero terminator is implicitly reused for every remaining page. Returns
// the zero-based page index containing addr and the residual byte offset
// within that page. Callers must confirm addr is actually in flash
// themselves; walkPage does not check.
func (s *Session) walkPage(addr uint32) (page int, offset uint32) {
	sizes := s.Device.FlashPageSizes
	off := addr - s.Device.Flash.Start
	index := 0
	for off >= sizes[index] {
		off -= sizes[index]
		page++
		if sizes[index+1] != 0 {
			index++
		}
	}
	return page, off
}

// PageFloor returns the zero-based index of the flash page containing
// addr (spec §4.C8's page_floor — "first page ≤ addr"). Per the spec's
// tie-break policy, an address outside flash yields 0 rather than an
// error; callers that need to know whether addr is actually in flash
// must check InFlash themselves first.
func (s *Session) PageFloor(addr uint32) int {
	if !s.InFlash(addr) {
		return 0
	}
	page, _ := s.walkPage(addr)
	return page
}

// PageCeil returns the zero-based index of the first flash page starting
// at or after addr (spec §4.C8's page_ceil): the same walk as
// PageFloor, with one added when addr does not fall exactly on a page
// boundary. Per the tie-break policy, an address outside flash yields 0.
func (s *Session) PageCeil(addr uint32) int {
	if !s.InFlash(addr) {
		return 0
	}
	page, offset := s.walkPage(addr)
	if offset > 0 {
		page++
	}
	return page
}

// PageToAddr converts a zero-based flash page index back to its start
// address (spec §4.C8's page_to_addr): the inverse accumulation of the
// same FlashPageSizes sequence PageFloor/PageCeil walk forward over.
func (s *Session) PageToAddr(page int) uint32 {
	sizes := s.Device.FlashPageSizes
	addr := s.Device.Flash.Start
	index := 0
	for p := 0; p < page; p++ {
		addr += sizes[index]
		if sizes[index+1] != 0 {
			index++
		}
	}
	return addr
}

// PagesSpanning returns the inclusive list of page indices covering
// [addr, addr+length). Unlike PageFloor/PageCeil, addr here is a caller
// precondition rather than a tie-break case: an out-of-flash addr is an
// error, since there is no sensible page list to return for it.
func (s *Session) PagesSpanning(addr, length uint32) ([]int, error) {
	if length == 0 {
		return nil, nil
	}
	if !s.InFlash(addr) {
		return nil, fmt.Errorf("address %#08x is not in flash", addr)
	}
	var pages []int
	cur := addr
	end := addr + length
	for cur < end {
		page := s.PageFloor(cur)
		pages = append(pages, page)
		cur = s.PageToAddr(page + 1)
	}
	return pages, nil
}
