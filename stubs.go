// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package stm32boot

// The three fixed Thumb stubs Inject uploads to RAM (spec §4.C7, §6.5).
// These are data, not code the host ever executes — represent them as
// immutable byte arrays and never attempt to generate them at runtime.
var (
	// stubReset writes AIRCR's VECTKEY|SYSRESETREQ (0x05FA0004) to
	// 0xE000ED0C, triggering a plain system reset.
	stubReset = []byte{
		0x01, 0x49, 0x02, 0x4A, 0x0A, 0x60, 0xFE, 0xE7,
		0x0C, 0xED, 0x00, 0xE0, 0x04, 0x00, 0xFA, 0x05,
	}

	// stubOBLLaunch writes the OBL_LAUNCH bit (0x00002000) to FLASH_CR
	// (0x40022010), reloading option bytes before reset.
	stubOBLLaunch = []byte{
		0x01, 0x49, 0x02, 0x4A, 0x0A, 0x60, 0xFE, 0xE7,
		0x10, 0x20, 0x02, 0x40, 0x00, 0x20, 0x00, 0x00,
	}

	// stubPEmpty reads the first flash word, compares it against the
	// PEMPTY bit in FLASH_SR (0x40022010, mask 0x00020000), toggles it if
	// inconsistent, and then falls through to the same AIRCR reset as
	// stubReset.
	stubPEmpty = []byte{
		0x06, 0x4B, 0x06, 0x49, 0x19, 0x68, 0x09, 0x68,
		0x8A, 0x42, 0x03, 0xD0, 0x03, 0x4B, 0x1A, 0x68,
		0x02, 0x43, 0x1A, 0x60, 0x02, 0x49, 0x03, 0x4A,
		0x0A, 0x60, 0xFE, 0xE7, 0x00, 0x00, 0x00, 0x00,
		0x10, 0x20, 0x02, 0x40, 0x00, 0x02, 0x00, 0x00,
		0x0C, 0xED, 0x00, 0xE0, 0x04, 0x00, 0xFA, 0x05,
	}
)
