package fs

import (
	"encoding/binary"

	"limits"
	"mem"
)

// FSMAGIC identifies a formatted disk. Grounded on spec §6's on-disk
// layout: "super block {magic=0x10203040, ...}".
const FSMAGIC = 0x10203040

// NUM_FS_INODES and the inode record size are fixed by spec §6.
const NUM_FS_INODES = limits.NUM_FS_INODES
const INODE_RECORD_SIZE = 64

// FS_SIZE is the total block count of the formatted disk, per spec §6.
const FS_SIZE = limits.FS_SIZE

// Superblock_t is the on-disk super block: one BSIZE block holding
// eight little-endian uint32 fields. Grounded on the teacher's
// Superblock_t/fieldr/fieldw pattern (a *mem.Bytepg_t with accessor
// methods), but the field layout is rebuilt to match spec §6's xv6-
// style super block rather than the teacher's own Biscuit layout
// (Loglen/Iorphanblock/Imaplen/Freeblock/...), and fieldr/fieldw —
// which did not survive retrieval — are reimplemented here as plain
// little-endian uint32 reads/writes via encoding/binary.
type Superblock_t struct {
	Data *mem.Bytepg_t
}

const (
	sbMagic = iota
	sbSize
	sbNblocks
	sbNinodes
	sbNlog
	sbLogstart
	sbInodestart
	sbBmapstart
)

func fieldr(d *mem.Bytepg_t, idx int) int {
	return int(binary.LittleEndian.Uint32(d[idx*4 : idx*4+4]))
}

func fieldw(d *mem.Bytepg_t, idx int, v int) {
	binary.LittleEndian.PutUint32(d[idx*4:idx*4+4], uint32(v))
}

func (sb *Superblock_t) Magic() int      { return fieldr(sb.Data, sbMagic) }
func (sb *Superblock_t) Size() int       { return fieldr(sb.Data, sbSize) }
func (sb *Superblock_t) Nblocks() int    { return fieldr(sb.Data, sbNblocks) }
func (sb *Superblock_t) Ninodes() int    { return fieldr(sb.Data, sbNinodes) }
func (sb *Superblock_t) Nlog() int       { return fieldr(sb.Data, sbNlog) }
func (sb *Superblock_t) Logstart() int   { return fieldr(sb.Data, sbLogstart) }
func (sb *Superblock_t) Inodestart() int { return fieldr(sb.Data, sbInodestart) }
func (sb *Superblock_t) Bmapstart() int  { return fieldr(sb.Data, sbBmapstart) }

func (sb *Superblock_t) SetMagic(v int)      { fieldw(sb.Data, sbMagic, v) }
func (sb *Superblock_t) SetSize(v int)       { fieldw(sb.Data, sbSize, v) }
func (sb *Superblock_t) SetNblocks(v int)    { fieldw(sb.Data, sbNblocks, v) }
func (sb *Superblock_t) SetNinodes(v int)    { fieldw(sb.Data, sbNinodes, v) }
func (sb *Superblock_t) SetNlog(v int)       { fieldw(sb.Data, sbNlog, v) }
func (sb *Superblock_t) SetLogstart(v int)   { fieldw(sb.Data, sbLogstart, v) }
func (sb *Superblock_t) SetInodestart(v int) { fieldw(sb.Data, sbInodestart, v) }
func (sb *Superblock_t) SetBmapstart(v int)  { fieldw(sb.Data, sbBmapstart, v) }

// Valid reports whether the block looks like a formatted super block.
func (sb *Superblock_t) Valid() bool { return sb.Magic() == FSMAGIC }

// IinodeBlock returns the block number holding inode number inum.
func (sb *Superblock_t) IinodeBlock(inum int) int {
	return sb.Inodestart() + inum/(BSIZE/INODE_RECORD_SIZE)
}

// IbitmapBlock returns the bitmap block number covering data block b.
func (sb *Superblock_t) IbitmapBlock(b int) int {
	return sb.Bmapstart() + b/(BSIZE*8)
}
