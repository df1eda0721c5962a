package wal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBeUint32RoundTrip(t *testing.T) {
	cases := []int{0, 1, 255, 256, 65535, 1 << 20, 0x7fffffff}
	for _, v := range cases {
		buf := make([]uint8, 4)
		putBeUint32(buf, v)
		assert.Equal(t, v, beUint32(buf), "round trip of %d", v)
	}
}

func TestBeUint32ByteOrder(t *testing.T) {
	buf := make([]uint8, 4)
	putBeUint32(buf, 0x01020304)
	assert.Equal(t, []uint8{0x04, 0x03, 0x02, 0x01}, buf)
}

func TestHeaderTZeroValueIsEmpty(t *testing.T) {
	var h header_t
	assert.Equal(t, 0, h.n)
}
