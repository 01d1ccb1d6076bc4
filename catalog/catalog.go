// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package catalog holds the static table of STM32 bootloader devices,
// keyed by the 12-bit product ID reported by the GID command.
//
// The table is a plain Go slice scanned linearly on lookup: a handful of
// hundred entries at most, for which a binary search would buy nothing.
// Hot-reloading the table from disk is explicitly a non-goal; the YAML
// marshalling below exists purely so the table can be inspected or diffed
// by humans (see cmd/stm32cat), never to load it back into a running
// driver.
package catalog

import "fmt"

// Flag is a bitset of device-specific bootloader quirks.
type Flag uint8

const (
	// NoMassErase means the device's bootloader does not implement a
	// single mass-erase opcode; erasing the whole chip must be expressed
	// as a page-range erase covering all of flash.
	NoMassErase Flag = 1 << iota

	// OBLLaunch means returning to user flash after a protection change
	// requires uploading and branching to the OBL_LAUNCH stub rather than
	// a plain reset.
	OBLLaunch

	// PEmpty means the device requires the PEMPTY-toggle stub (it reports
	// a stale "flash empty" status after the first write unless that bit
	// is corrected before reset).
	PEmpty
)

// String renders a Flag set as its symbolic names, e.g. "NO_ME|OBLL".
func (f Flag) String() string {
	if f == 0 {
		return "none"
	}
	names := []struct {
		bit  Flag
		name string
	}{
		{NoMassErase, "NO_ME"},
		{OBLLaunch, "OBLL"},
		{PEmpty, "PEMPTY"},
	}
	s := ""
	for _, n := range names {
		if f&n.bit != 0 {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	return s
}

// Range is an address range. Most ranges are lower-inclusive,
// upper-exclusive; Device.OptionBytes is the one exception, documented
// on the field itself.
type Range struct {
	Start uint32 `yaml:"start"`
	End   uint32 `yaml:"end"`
}

// Contains reports whether addr falls in [Start, End).
func (r Range) Contains(addr uint32) bool {
	return addr >= r.Start && addr < r.End
}

// ContainsInclusive reports whether addr falls in [Start, End].
func (r Range) ContainsInclusive(addr uint32) bool {
	return addr >= r.Start && addr <= r.End
}

// Device is one entry of the static bootloader device table.
type Device struct {
	// ID is the 12-bit product ID returned (MSB first) by the GID command.
	ID uint16 `yaml:"id"`
	// Name is a human-readable device family/density description.
	Name string `yaml:"name"`

	// RAM is the usable SRAM range. Start reflects bytes the bootloader
	// itself reserves above the architectural 0x20000000 base.
	RAM Range `yaml:"ram"`
	// Flash is the main flash range.
	Flash Range `yaml:"flash"`
	// SystemMemory is the range occupied by the ROM bootloader itself.
	SystemMemory Range `yaml:"system_memory"`
	// OptionBytes is the option-byte range, inclusive on BOTH ends (unlike
	// every other range here).
	OptionBytes Range `yaml:"option_bytes"`

	// FlashPagesPerGroup is the total number of flash pages, precomputed so
	// the legacy page-index erase command can address "all pages" without
	// walking FlashPageSizes first.
	FlashPagesPerGroup int `yaml:"flash_pages_per_group"`
	// FlashPageSizes is a zero-terminated sequence of flash page sizes in
	// bytes. A device with uniform pages lists a single entry plus the
	// terminating zero; a device with a non-uniform prelude (e.g. a few
	// small sectors before the main size) lists one entry per prelude page,
	// followed by the main size(s) — the last non-zero entry is implicitly
	// repeated to cover the remainder of Flash. See the page-walk algorithm
	// in package stm32boot for how this is consumed.
	FlashPageSizes []uint32 `yaml:"flash_page_sizes"`

	// Flags is the bitset of device-specific quirks.
	Flags Flag `yaml:"flags,omitempty"`
}

// InFlash reports whether addr lies in the device's flash range.
func (d Device) InFlash(addr uint32) bool { return d.Flash.Contains(addr) }

// InRAM reports whether addr lies in the device's RAM range.
func (d Device) InRAM(addr uint32) bool { return d.RAM.Contains(addr) }

// InSystemMemory reports whether addr lies in the device's system-memory
// (ROM bootloader) range.
func (d Device) InSystemMemory(addr uint32) bool { return d.SystemMemory.Contains(addr) }

// InOptionBytes reports whether addr lies in the device's option-byte
// range. Unlike the other In* predicates this range is inclusive on both
// ends.
func (d Device) InOptionBytes(addr uint32) bool { return d.OptionBytes.ContainsInclusive(addr) }

// Table is the compiled, static device catalog, terminated conceptually by
// an entry with ID == 0 (Lookup never returns that sentinel; it is only a
// historical artifact of the C original's array-termination convention and
// is asserted against in tests).
//
// Memory map values below are representative of each family's reference
// manual and are deliberately approximate for families with many flash
// density variants — callers working against a specific part should verify
// against that part's datasheet.
var Table = []Device{
	{
		ID:                 0x412,
		Name:               "STM32F10xxx Low-density",
		RAM:                Range{0x20000200, 0x20002800},
		Flash:              Range{0x08000000, 0x08008000},
		SystemMemory:       Range{0x1FFFF000, 0x1FFFF800},
		OptionBytes:        Range{0x1FFFF800, 0x1FFFF80F},
		FlashPagesPerGroup: 32,
		FlashPageSizes:     []uint32{1024, 0},
		Flags:              NoMassErase,
	},
	{
		ID:                 0x410,
		Name:               "STM32F10xxx Medium-density",
		RAM:                Range{0x20000200, 0x20005000},
		Flash:              Range{0x08000000, 0x08020000},
		SystemMemory:       Range{0x1FFFF000, 0x1FFFF800},
		OptionBytes:        Range{0x1FFFF800, 0x1FFFF80F},
		FlashPagesPerGroup: 128,
		FlashPageSizes:     []uint32{1024, 0},
	},
	{
		ID:                 0x414,
		Name:               "STM32F10xxx High-density",
		RAM:                Range{0x20000200, 0x20010000},
		Flash:              Range{0x08000000, 0x08080000},
		SystemMemory:       Range{0x1FFFF000, 0x1FFFF800},
		OptionBytes:        Range{0x1FFFF800, 0x1FFFF80F},
		FlashPagesPerGroup: 256,
		FlashPageSizes:     []uint32{2048, 0},
	},
	{
		ID:                 0x418,
		Name:               "STM32F105/F107 Connectivity line",
		RAM:                Range{0x20001000, 0x20010000},
		Flash:              Range{0x08000000, 0x08040000},
		SystemMemory:       Range{0x1FFFB000, 0x1FFFF800},
		OptionBytes:        Range{0x1FFFF800, 0x1FFFF80F},
		FlashPagesPerGroup: 128,
		FlashPageSizes:     []uint32{2048, 0},
	},
	{
		ID:                 0x420,
		Name:               "STM32F100xx Value line",
		RAM:                Range{0x20000200, 0x20002000},
		Flash:              Range{0x08000000, 0x08020000},
		SystemMemory:       Range{0x1FFFF000, 0x1FFFF800},
		OptionBytes:        Range{0x1FFFF800, 0x1FFFF80F},
		FlashPagesPerGroup: 128,
		FlashPageSizes:     []uint32{1024, 0},
		Flags:              PEmpty,
	},
	{
		ID:                 0x416,
		Name:               "STM32L1xxx Medium-density",
		RAM:                Range{0x20000800, 0x20004000},
		Flash:              Range{0x08000000, 0x08020000},
		SystemMemory:       Range{0x1FF00000, 0x1FF01000},
		OptionBytes:        Range{0x1FF80000, 0x1FF8000F},
		FlashPagesPerGroup: 512,
		FlashPageSizes:     []uint32{256, 0},
		Flags:              OBLLaunch,
	},
	{
		ID:                 0x419,
		Name:               "STM32F42xxx/43xxx High-density",
		RAM:                Range{0x20000000 + 0x1000, 0x20030000},
		Flash:              Range{0x08000000, 0x08100000},
		SystemMemory:       Range{0x1FFF0000, 0x1FFF7800},
		OptionBytes:        Range{0x1FFFC000, 0x1FFFC00F},
		FlashPagesPerGroup: 12,
		FlashPageSizes:     []uint32{16 * 1024, 16 * 1024, 16 * 1024, 16 * 1024, 64 * 1024, 128 * 1024, 0},
	},
	{
		ID:                 0x423,
		Name:               "STM32F401xB/C",
		RAM:                Range{0x20000000 + 0x800, 0x20010000},
		Flash:              Range{0x08000000, 0x08040000},
		SystemMemory:       Range{0x1FFF0000, 0x1FFF7800},
		OptionBytes:        Range{0x1FFFC000, 0x1FFFC00F},
		FlashPagesPerGroup: 6,
		FlashPageSizes:     []uint32{16 * 1024, 16 * 1024, 16 * 1024, 16 * 1024, 64 * 1024, 128 * 1024, 0},
	},
	{
		ID:                 0x440,
		Name:               "STM32F05x/030x8",
		RAM:                Range{0x20000000 + 0x800, 0x20002000},
		Flash:              Range{0x08000000, 0x08010000},
		SystemMemory:       Range{0x1FFFEC00, 0x1FFFF800},
		OptionBytes:        Range{0x1FFFF800, 0x1FFFF80F},
		FlashPagesPerGroup: 64,
		FlashPageSizes:     []uint32{1024, 0},
	},
	{
		ID:                 0x422,
		Name:               "STM32F303xB/C/D/E",
		RAM:                Range{0x20000000 + 0x800, 0x20010000},
		Flash:              Range{0x08000000, 0x08040000},
		SystemMemory:       Range{0x1FFFD800, 0x1FFFF800},
		OptionBytes:        Range{0x1FFFF800, 0x1FFFF80F},
		FlashPagesPerGroup: 128,
		FlashPageSizes:     []uint32{2048, 0},
	},
}

// Lookup scans Table for the device whose ID matches id, the way the
// bootloader reports it (two bytes of the GID reply, MSB first). Returns
// the device and true on a hit.
func Lookup(id uint16) (Device, bool) {
	for _, d := range Table {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

// MustLookup is Lookup for callers (tests, examples) that already know the
// ID is in Table; it panics otherwise.
func MustLookup(id uint16) Device {
	d, ok := Lookup(id)
	if !ok {
		panic(fmt.Sprintf("catalog: no device with id %#03x", id))
	}
	return d
}
