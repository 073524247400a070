package sml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksumCheckValue(t *testing.T) {
	// Standard check value for CRC-16/X-25.
	assert.Equal(t, uint16(0x906E), Checksum([]byte("123456789")))
}

func TestChecksumEmpty(t *testing.T) {
	// init ^ xorout
	assert.Equal(t, uint16(0x0000), Checksum(nil))
}
