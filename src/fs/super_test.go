package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mem"
)

func mkSuperblock() *Superblock_t {
	return &Superblock_t{Data: &mem.Bytepg_t{}}
}

func TestSuperblockFieldRoundTrip(t *testing.T) {
	sb := mkSuperblock()
	sb.SetMagic(FSMAGIC)
	sb.SetSize(1000)
	sb.SetNblocks(900)
	sb.SetNinodes(200)
	sb.SetNlog(30)
	sb.SetLogstart(2)
	sb.SetInodestart(32)
	sb.SetBmapstart(45)

	assert.Equal(t, FSMAGIC, sb.Magic())
	assert.Equal(t, 1000, sb.Size())
	assert.Equal(t, 900, sb.Nblocks())
	assert.Equal(t, 200, sb.Ninodes())
	assert.Equal(t, 30, sb.Nlog())
	assert.Equal(t, 2, sb.Logstart())
	assert.Equal(t, 32, sb.Inodestart())
	assert.Equal(t, 45, sb.Bmapstart())
}

func TestSuperblockValid(t *testing.T) {
	sb := mkSuperblock()
	assert.False(t, sb.Valid())
	sb.SetMagic(FSMAGIC)
	assert.True(t, sb.Valid())
	sb.SetMagic(0xdeadbeef)
	assert.False(t, sb.Valid())
}

func TestIinodeBlock(t *testing.T) {
	sb := mkSuperblock()
	sb.SetInodestart(32)
	perBlock := BSIZE / INODE_RECORD_SIZE // 16
	assert.Equal(t, 32, sb.IinodeBlock(0))
	assert.Equal(t, 32, sb.IinodeBlock(perBlock-1))
	assert.Equal(t, 33, sb.IinodeBlock(perBlock))
	assert.Equal(t, 34, sb.IinodeBlock(2*perBlock+5))
}

func TestIbitmapBlock(t *testing.T) {
	sb := mkSuperblock()
	sb.SetBmapstart(45)
	perBlock := BSIZE * 8 // bits per bitmap block
	assert.Equal(t, 45, sb.IbitmapBlock(0))
	assert.Equal(t, 45, sb.IbitmapBlock(perBlock-1))
	assert.Equal(t, 46, sb.IbitmapBlock(perBlock))
}
