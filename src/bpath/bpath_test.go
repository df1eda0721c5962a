package bpath

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ustr"
)

func canon(s string) string {
	return Canonicalize(ustr.Ustr(s)).String()
}

func TestCanonicalizeCollapsesSlashes(t *testing.T) {
	assert.Equal(t, "/a/b/c", canon("/a//b///c"))
}

func TestCanonicalizeResolvesDot(t *testing.T) {
	assert.Equal(t, "/a/c", canon("/a/./c"))
	assert.Equal(t, "/a/b/d", canon("/a/b/./c/../d"))
}

func TestCanonicalizeDotDotAtRootIsNoop(t *testing.T) {
	assert.Equal(t, "/", canon("/.."))
	assert.Equal(t, "/a", canon("/../a"))
}

func TestCanonicalizeEmptyResultIsRoot(t *testing.T) {
	assert.Equal(t, "/", canon("/"))
	assert.Equal(t, "/", canon("/a/.."))
}

func TestCanonicalizeRelativePath(t *testing.T) {
	assert.Equal(t, "a/b", canon("a/./b"))
	assert.Equal(t, "c", canon("a/../c"))
}
