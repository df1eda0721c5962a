package fs

import "mem"
import "proc"

// BSIZE is the on-disk block size in bytes. Grounded on spec's external
// on-disk layout ("little-endian, 1024-byte blocks"); the teacher's
// blk.go used a 4 KiB BSIZE tied to its own disk format, which this
// kernel's disk format does not share.
const BSIZE = 1024

// Disk_i is the external block-device contract this kernel assumes: a
// virtio-mmio driver (out of scope for this module) that can read and
// write a numbered block synchronously. Grounded on the teacher's
// Disk_i, simplified from its async Start(*Bdev_req_t)/AckCh protocol
// down to the spec's "read_block/write_block are synchronous" contract.
type Disk_i interface {
	ReadBlock(blkno int, dst []uint8)
	WriteBlock(blkno int, src []uint8)
}

// Blockmem_i abstracts page allocation for block buffers, unchanged in
// shape from the teacher's Blockmem_i.
type Blockmem_i interface {
	Alloc() (mem.Pa_t, *mem.Bytepg_t, bool)
	Free(mem.Pa_t)
}

// Bdev_block_t is a cached disk block: one physical frame holding BSIZE
// live bytes, a block number, and a reference count used by the bounded
// LRU cache in cache.go. Its embedded proc.Sleeplock_t is the buffer's
// sleep-lock, matching spec §4.6's "Buf: ... sleep-lock ..." field: a
// process blocking on Lock() yields the hart via proc.Sleep rather than
// busy-waiting, so a buffer held across disk I/O never stalls another
// hart. Dropped from the teacher's Bdev_block_t: Ref *Objref_t and the
// Cb release callback, both artifacts of Biscuit's generic async
// object-cache (objcache) machinery that did not survive retrieval and
// has no equivalent here — this kernel's buffer cache (cache.go)
// manages refcounts and eviction directly per spec §4.6, rather than
// through a generic cache abstraction.
type Bdev_block_t struct {
	proc.Sleeplock_t
	Block  int
	Pa     mem.Pa_t
	Data   *mem.Bytepg_t
	Dirty  bool
	refcnt int
	valid  bool
	disk   Disk_i
	mem_   Blockmem_i
}

// body returns the live BSIZE-byte window of the block's backing page.
func (b *Bdev_block_t) body() []uint8 {
	return b.Data[:BSIZE]
}

// mkBlock allocates a fresh physical frame to back a newly cached block
// identity. Grounded on the teacher's MkBlock_newpage/New_page.
func mkBlock(blkno int, m Blockmem_i, d Disk_i) *Bdev_block_t {
	pa, data, ok := m.Alloc()
	if !ok {
		panic("oom allocating buffer-cache frame")
	}
	b := &Bdev_block_t{Block: blkno, Pa: pa, Data: data, mem_: m, disk: d}
	b.InitSleeplock("bdev_block")
	return b
}

// reuse rewrites an evicted block's identity in place, clearing its
// valid flag so the next read() reloads it from disk. Grounded on
// spec §4.6: "evict the LRU buffer with refcnt==0, rewrite its
// identity, clear its valid flag".
func (b *Bdev_block_t) reuse(blkno int, d Disk_i) {
	b.Block = blkno
	b.disk = d
	b.valid = false
	b.Dirty = false
}

func (b *Bdev_block_t) free() {
	b.mem_.Free(b.Pa)
}

// readFromDisk issues a synchronous disk read via the block-device
// contract if the cached body isn't already valid.
func (b *Bdev_block_t) readFromDisk() {
	if b.valid {
		return
	}
	b.disk.ReadBlock(b.Block, b.body())
	b.valid = true
}

// WriteToDisk issues a synchronous disk write, used only outside a
// transaction (e.g. by the log's own commit/install, which bypasses
// log_write, or a host-side formatting tool writing the super block).
func (b *Bdev_block_t) WriteToDisk() {
	b.disk.WriteBlock(b.Block, b.body())
	b.Dirty = false
}
