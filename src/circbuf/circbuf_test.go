package circbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defs"
)

// fakeUserio is a hardware-independent stand-in for fdops.Userio_i,
// backed by a plain byte slice instead of a user address space.
type fakeUserio struct {
	data []uint8
}

func (f *fakeUserio) Uioread(dst []uint8) (int, defs.Err_t) {
	n := copy(dst, f.data)
	f.data = f.data[n:]
	return n, 0
}

func (f *fakeUserio) Uiowrite(src []uint8) (int, defs.Err_t) {
	f.data = append(f.data, src...)
	return len(src), 0
}

func mkCircbuf(sz int) *Circbuf_t {
	return &Circbuf_t{Buf: make([]uint8, sz), bufsz: sz}
}

func TestEmptyAndFullOnFreshBuffer(t *testing.T) {
	cb := mkCircbuf(8)
	assert.True(t, cb.Empty())
	assert.False(t, cb.Full())
	assert.Equal(t, 8, cb.Left())
	assert.Equal(t, 0, cb.Used())
}

func TestCopyinThenCopyoutRoundTrip(t *testing.T) {
	cb := mkCircbuf(8)
	src := &fakeUserio{data: []byte("hello")}

	n, err := cb.Copyin(src)
	require.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, cb.Used())
	assert.Equal(t, 3, cb.Left())
	assert.False(t, cb.Empty())
	assert.False(t, cb.Full())

	dst := &fakeUserio{}
	n, err = cb.Copyout(dst)
	require.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(dst.data))
	assert.True(t, cb.Empty())
}

func TestCopyinStopsWhenFull(t *testing.T) {
	cb := mkCircbuf(4)
	src := &fakeUserio{data: []byte("abcdef")}

	n, err := cb.Copyin(src)
	require.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, 4, n)
	assert.True(t, cb.Full())

	// A second copyin against a full buffer makes no progress.
	n, err = cb.Copyin(src)
	require.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, len(src.data)) // "ef" left unread
}

func TestCopyoutOnEmptyBufferIsNoop(t *testing.T) {
	cb := mkCircbuf(4)
	dst := &fakeUserio{}
	n, err := cb.Copyout(dst)
	assert.Equal(t, 0, n)
	assert.Equal(t, defs.Err_t(0), err)
	assert.Empty(t, dst.data)
}

func TestWraparoundAcrossMultipleCycles(t *testing.T) {
	cb := mkCircbuf(4)
	for i := 0; i < 5; i++ {
		src := &fakeUserio{data: []byte{byte('a' + i), byte('A' + i)}}
		n, err := cb.Copyin(src)
		require.Equal(t, defs.Err_t(0), err)
		require.Equal(t, 2, n)

		dst := &fakeUserio{}
		n, err = cb.Copyout(dst)
		require.Equal(t, defs.Err_t(0), err)
		require.Equal(t, 2, n)
		assert.Equal(t, []uint8{byte('a' + i), byte('A' + i)}, dst.data)
		assert.True(t, cb.Empty())
	}
}

func TestCopyoutNLimitsBytesWritten(t *testing.T) {
	cb := mkCircbuf(8)
	src := &fakeUserio{data: []byte("hello")}
	_, err := cb.Copyin(src)
	require.Equal(t, defs.Err_t(0), err)

	dst := &fakeUserio{}
	n, err := cb.Copyout_n(dst, 3)
	require.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "hel", string(dst.data))
	assert.Equal(t, 2, cb.Used())
}
