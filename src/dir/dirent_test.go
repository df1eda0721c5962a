package dir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ustr"
)

func TestEncodeDecodeDirentRoundTrip(t *testing.T) {
	d := dirent_t{inum: 42, name: nameBytes(ustr.Ustr("hello"))}
	buf := make([]uint8, DIRENTSZ)
	encodeDirent(buf, d)

	got := decodeDirent(buf)
	assert.Equal(t, 42, got.inum)
	assert.True(t, nameEq(got.name, ustr.Ustr("hello")))
}

func TestNameBytesTruncatesToDirsiz(t *testing.T) {
	long := make([]byte, DIRSIZ+5)
	for i := range long {
		long[i] = 'a'
	}
	nb := nameBytes(ustr.Ustr(long))
	for _, b := range nb {
		assert.Equal(t, uint8('a'), b)
	}
}

func TestNameEqPadsWithZeroes(t *testing.T) {
	nb := nameBytes(ustr.Ustr("ab"))
	assert.True(t, nameEq(nb, ustr.Ustr("ab")))
	assert.False(t, nameEq(nb, ustr.Ustr("abc")))
	assert.False(t, nameEq(nb, ustr.Ustr("a")))
}

func TestEncodeDirentLittleEndianInum(t *testing.T) {
	d := dirent_t{inum: 0x0102, name: nameBytes(ustr.Ustr("x"))}
	buf := make([]uint8, DIRENTSZ)
	encodeDirent(buf, d)
	assert.Equal(t, uint8(0x02), buf[0])
	assert.Equal(t, uint8(0x01), buf[1])
}

func TestDecodeDirentZeroInumMeansFree(t *testing.T) {
	buf := make([]uint8, DIRENTSZ)
	got := decodeDirent(buf)
	assert.Equal(t, 0, got.inum)
}
