package ustr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsdotIsdotdot(t *testing.T) {
	assert.True(t, MkUstrDot().Isdot())
	assert.False(t, MkUstrDot().Isdotdot())
	assert.True(t, DotDot.Isdotdot())
	assert.False(t, DotDot.Isdot())
	assert.False(t, Ustr("..x").Isdotdot())
	assert.False(t, MkUstr().Isdot())
}

func TestEq(t *testing.T) {
	assert.True(t, Ustr("abc").Eq(Ustr("abc")))
	assert.False(t, Ustr("abc").Eq(Ustr("abd")))
	assert.False(t, Ustr("abc").Eq(Ustr("ab")))
	assert.True(t, MkUstr().Eq(Ustr{}))
}

func TestMkUstrSlice(t *testing.T) {
	buf := []uint8{'f', 'o', 'o', 0, 'g', 'a', 'r', 'b', 'a', 'g', 'e'}
	assert.True(t, MkUstrSlice(buf).Eq(Ustr("foo")))

	noNul := []uint8{'b', 'a', 'r'}
	assert.True(t, MkUstrSlice(noNul).Eq(Ustr("bar")))
}

func TestExtend(t *testing.T) {
	base := Ustr("/a/b")
	got := base.Extend(Ustr("c"))
	assert.True(t, got.Eq(Ustr("/a/b/c")))
	// Extend must not mutate the receiver's backing array.
	assert.True(t, base.Eq(Ustr("/a/b")))

	got2 := base.ExtendStr("d")
	assert.True(t, got2.Eq(Ustr("/a/b/d")))
}

func TestIsAbsolute(t *testing.T) {
	assert.True(t, MkUstrRoot().IsAbsolute())
	assert.False(t, Ustr("rel/path").IsAbsolute())
	assert.False(t, MkUstr().IsAbsolute())
}

func TestIndexByte(t *testing.T) {
	assert.Equal(t, 3, Ustr("/a/b").IndexByte('b'))
	assert.Equal(t, 0, Ustr("/a/b").IndexByte('/'))
	assert.Equal(t, -1, Ustr("/a/b").IndexByte('z'))
}

func TestString(t *testing.T) {
	assert.Equal(t, "hello", Ustr("hello").String())
}
