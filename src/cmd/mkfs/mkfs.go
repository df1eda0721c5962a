// Command mkfs formats a disk image with this kernel's on-disk layout
// (spec §6: super block, log, inode region, free-block bitmap, data
// region) and copies a host directory's files into it as the initial
// root file system. It is a host-side tool, not part of the kernel
// binary, and so links the fs/wal/inode/dir packages directly against
// a plain os.File-backed Disk_i and a heap-backed Blockmem_i rather
// than the kernel's physical frame allocator — grounded on the
// teacher's own cmd/mkfs.go, which likewise drove its Ufs_t filesystem
// package from a host-side main() rather than from inside the kernel.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dir"
	"fs"
	"inode"
	"limits"
	"mem"
	"ustr"
	"wal"
)

// Layout constants for the formatted image, following spec §6's region
// ordering (boot, super, log, inodes, bitmap, data).
const (
	blkSuper = 1
	logStart = 2
	logSize  = limits.LOG_SIZE
)

func inodeBlocks() int {
	recsPerBlock := fs.BSIZE / fs.INODE_RECORD_SIZE
	return (limits.NUM_FS_INODES + recsPerBlock - 1) / recsPerBlock
}

// fileDisk implements fs.Disk_i over a host file.
type fileDisk struct{ f *os.File }

func (d *fileDisk) ReadBlock(blkno int, dst []uint8) {
	n, err := d.f.ReadAt(dst, int64(blkno)*int64(fs.BSIZE))
	if err != nil && err != io.EOF {
		panic(err)
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

func (d *fileDisk) WriteBlock(blkno int, src []uint8) {
	if _, err := d.f.WriteAt(src, int64(blkno)*int64(fs.BSIZE)); err != nil {
		panic(err)
	}
}

// heapMem implements fs.Blockmem_i with ordinary heap allocations; mkfs
// has no physical-memory map to allocate real frames from.
type heapMem struct{}

func (heapMem) Alloc() (mem.Pa_t, *mem.Bytepg_t, bool) {
	pg := new(mem.Bytepg_t)
	return mem.Pa_t(0), pg, true
}

func (heapMem) Free(mem.Pa_t) {}

func main() {
	if len(os.Args) < 3 {
		fmt.Printf("Usage: mkfs <output image> <skel dir>\n")
		os.Exit(1)
	}
	image := os.Args[1]
	skeldir := os.Args[2]

	f, err := os.OpenFile(image, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if err := f.Truncate(int64(limits.FS_SIZE) * int64(fs.BSIZE)); err != nil {
		panic(err)
	}

	disk := &fileDisk{f: f}
	bc := fs.MkCache(disk, heapMem{})

	nInodeBlocks := inodeBlocks()
	inodeStart := logStart + logSize
	bitmapBlocks := (limits.FS_SIZE + fs.BSIZE*8 - 1) / (fs.BSIZE * 8)
	bmapStart := inodeStart + nInodeBlocks
	dataStart := bmapStart + bitmapBlocks

	sbBlock := bc.Get(blkSuper)
	sb := &fs.Superblock_t{Data: sbBlock.Data}
	sb.SetMagic(fs.FSMAGIC)
	sb.SetSize(limits.FS_SIZE)
	sb.SetNblocks(limits.FS_SIZE - dataStart)
	sb.SetNinodes(limits.NUM_FS_INODES)
	sb.SetNlog(logSize)
	sb.SetLogstart(logStart)
	sb.SetInodestart(inodeStart)
	sb.SetBmapstart(bmapStart)
	sbBlock.Dirty = true
	bc.Flush(sbBlock)

	// Zero the log header, inode region and bitmap so recovery and
	// Balloc/Ialloc see a clean slate.
	for b := logStart; b < dataStart; b++ {
		zb := bc.Get(b)
		for i := range zb.Data {
			zb.Data[i] = 0
		}
		zb.Dirty = true
		bc.Flush(zb)
		bc.Release(zb)
	}

	log := wal.MkLog(bc, logStart, logSize)
	fs_ := &inode.Fs_t{Bc: bc, Sb: sb, Log: log, Ic: inode.MkIcache()}

	// Mark every block before dataStart as allocated so Balloc only ever
	// hands out true data blocks.
	op := fs_.Log.Begin_op()
	for b := 0; b < dataStart; b++ {
		markUsed(fs_, op, b)
	}
	root, rerr := fs_.Ialloc(op, inode.I_DIR)
	if rerr != 0 {
		panic("mkfs: cannot allocate root inode")
	}
	root.Nlink = 1
	fs_.UpdateInode(op, root)
	if e := dir.Link(op, fs_, root, ustr.MkUstrDot(), root.Inum); e != 0 {
		panic("mkfs: linking . into root failed")
	}
	if e := dir.Link(op, fs_, root, ustr.DotDot, root.Inum); e != 0 {
		panic("mkfs: linking .. into root failed")
	}
	fs_.UnlockInode(root)
	op.End_op()

	if err := filepath.WalkDir(skeldir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(path, skeldir)
		rel = strings.TrimPrefix(rel, string(os.PathSeparator))
		if rel == "" || d.IsDir() {
			return nil // a flat root directory is all this image needs
		}
		copyFile(fs_, root, path, rel)
		return nil
	}); err != nil {
		fmt.Printf("error walking %q: %v\n", skeldir, err)
		os.Exit(1)
	}
}

func markUsed(fs_ *inode.Fs_t, op *wal.Op_t, blkno int) {
	bno := fs_.Sb.IbitmapBlock(blkno)
	b := fs_.Bc.Get(bno)
	byteIdx := (blkno % (fs.BSIZE * 8)) / 8
	mask := uint8(1 << uint(blkno%8))
	b.Data[byteIdx] |= mask
	op.Log_write(b)
	fs_.Bc.Release(b)
}

func copyFile(fs_ *inode.Fs_t, root *inode.Inode_t, hostPath, imgName string) {
	data, err := os.ReadFile(hostPath)
	if err != nil {
		panic(err)
	}
	op := fs_.Log.Begin_op()
	fs_.LockInode(root)
	ip, e := fs_.Ialloc(op, inode.I_FILE)
	if e != 0 {
		panic("mkfs: ialloc failed for " + imgName)
	}
	ip.Nlink = 1
	fs_.UpdateInode(op, ip)
	if e := dir.Link(op, fs_, root, ustr.MkUstrSlice([]uint8(imgName)), ip.Inum); e != 0 {
		panic("mkfs: link failed for " + imgName)
	}
	fs_.UnlockInode(ip)
	fs_.UnlockInode(root)
	op.End_op()

	// Each writei call stays within its own transaction, one data
	// block at a time, the same way a real write() syscall chunks a
	// large write into MAX_OP_BLOCKS-sized transactions rather than
	// wrapping an unbounded write in a single begin_op/end_op.
	off := 0
	for off < len(data) {
		end := off + fs.BSIZE
		if end > len(data) {
			end = len(data)
		}
		wop := fs_.Log.Begin_op()
		fs_.LockInode(ip)
		n, werr := fs_.Writei(wop, ip, off, data[off:end])
		if werr != 0 {
			panic("mkfs: write failed for " + imgName)
		}
		fs_.UpdateInode(wop, ip)
		fs_.UnlockInode(ip)
		wop.End_op()
		off += n
	}
}
