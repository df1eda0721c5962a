// Package inode is the in-memory inode cache and on-disk inode/data
// layer described in spec §4.8: a fixed NINODE-entry cache
// deduplicating (dev, inum) pairs behind sleep-locked bodies, on-disk
// inode records packed into inode blocks, and a free-data-block bitmap.
// The teacher repo's equivalent (fs.Fs_t's inode half) did not survive
// retrieval — only fs/blk.go, fs/super.go and the ufs/ufs.go harness
// showing the caller-facing Fs_open/Fs_mkdir surface did — so this
// package is built directly from spec §4.8/§6 and xv6's well-known
// inode design, using fs.Bcache_t/wal.Op_t for all disk access the same
// way the surviving fs package structures its own I/O.
package inode

import (
	"encoding/binary"

	"fs"
	"proc"
	"wal"
)

// Itype_t enumerates on-disk inode types, per spec §3's "type {Free,
// Dir, File, Dev}".
type Itype_t int16

const (
	I_FREE Itype_t = 0
	I_DIR  Itype_t = 1
	I_FILE Itype_t = 2
	I_DEV  Itype_t = 3
)

// ROOTINO is the inode number of the root directory: Ialloc hands out
// the first free inode starting at 1, and mkfs's very first Ialloc
// call creates the root directory, so inum 1 is always the root.
const ROOTINO = 1

// NDIRECT direct pointers plus one indirect block, per spec §6's
// "addrs: [u32; 13]" (12 direct + 1 indirect).
const NDIRECT = 12
const NINDIRECT = fs.BSIZE / 4
const MAXFILE = NDIRECT + NINDIRECT

// dinode_t is the 64-byte on-disk inode record, per spec §6:
// {type: i16, major: i16, minor: i16, nlink: i16, size: u32, addrs: [u32; 13]}.
type dinode_t struct {
	typ    Itype_t
	major  int16
	minor  int16
	nlink  int16
	size   uint32
	addrs  [NDIRECT + 1]uint32
}

func decodeDinode(b []uint8) dinode_t {
	var d dinode_t
	d.typ = Itype_t(int16(binary.LittleEndian.Uint16(b[0:2])))
	d.major = int16(binary.LittleEndian.Uint16(b[2:4]))
	d.minor = int16(binary.LittleEndian.Uint16(b[4:6]))
	d.nlink = int16(binary.LittleEndian.Uint16(b[6:8]))
	d.size = binary.LittleEndian.Uint32(b[8:12])
	for i := 0; i <= NDIRECT; i++ {
		d.addrs[i] = binary.LittleEndian.Uint32(b[12+4*i : 16+4*i])
	}
	return d
}

func encodeDinode(b []uint8, d dinode_t) {
	binary.LittleEndian.PutUint16(b[0:2], uint16(int16(d.typ)))
	binary.LittleEndian.PutUint16(b[2:4], uint16(d.major))
	binary.LittleEndian.PutUint16(b[4:6], uint16(d.minor))
	binary.LittleEndian.PutUint16(b[6:8], uint16(d.nlink))
	binary.LittleEndian.PutUint32(b[8:12], d.size)
	for i := 0; i <= NDIRECT; i++ {
		binary.LittleEndian.PutUint32(b[12+4*i:16+4*i], d.addrs[i])
	}
}

// Inode_t is the in-memory shared body for a cached inode, per spec
// §3's Inode description. Its embedded proc.Sleeplock_t is the
// sleep-lock acquired by Lock, the same primitive Bdev_block_t uses
// for its own sleep-lock in package fs.
type Inode_t struct {
	proc.Sleeplock_t
	Inum  int
	valid bool

	refcnt int

	Type  Itype_t
	Major int16
	Minor int16
	Nlink int16
	Size  uint32
	Addrs [NDIRECT + 1]uint32
}

func (ip *Inode_t) fromDisk(d dinode_t) {
	ip.Type = d.typ
	ip.Major = d.major
	ip.Minor = d.minor
	ip.Nlink = d.nlink
	ip.Size = d.size
	ip.Addrs = d.addrs
}

func (ip *Inode_t) toDisk() dinode_t {
	return dinode_t{
		typ: ip.Type, major: ip.Major, minor: ip.Minor,
		nlink: ip.Nlink, size: ip.Size, addrs: ip.Addrs,
	}
}

// Fs_t bundles the on-disk regions an inode-layer call needs: the
// buffer cache, the super block, and the log, mirroring how the
// teacher's Fs_t bundled disk+cache+log for the same calls (per
// ufs.go's Ufs_t.fs field).
type Fs_t struct {
	Bc  *fs.Bcache_t
	Sb  *fs.Superblock_t
	Log *wal.Log_t
	Ic  *Icache_t
}
