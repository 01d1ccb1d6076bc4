// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package wireutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutBE32Checksum(t *testing.T) {
	dst := make([]byte, 5)
	PutBE32Checksum(dst, 0x08000000)
	assert.Equal(t, []byte{0x08, 0x00, 0x00, 0x00, 0x08}, dst)
}

func TestSwapWordBytes(t *testing.T) {
	in := []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03, 0x04}
	got := SwapWordBytes(append([]byte(nil), in...))
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x04, 0x03, 0x02, 0x01}, got)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1 KB", FormatSize(1024))
	assert.Equal(t, "128 KB", FormatSize(128*1024))
}
