package fs

import (
	"container/list"

	"limits"
	"lock"
)

// NBUF is the fixed size of the buffer-cache pool. Grounded on spec
// §4.6 ("Fixed pool of NBUF=30 buffers") and the resource-budget table
// in §5.
const NBUF = limits.NBUF

// Bcache_t is the bounded LRU buffer cache described in spec §4.6: a
// cache spinlock protects a doubly linked list (MRU-to-LRU order) plus
// an index from block number to list element; each buffer additionally
// carries its own sleep-lock (embedded in Bdev_block_t) so a holder can
// block on disk I/O without starving other buffers. Grounded on the
// teacher's BlkList_t (container/list wrapper) and MkBlock_newpage;
// there is no surviving teacher cache-eviction policy to imitate since
// that logic lived behind the missing objcache package, so the
// eviction algorithm here is built directly from spec §4.6's prose.
type Bcache_t struct {
	l     lock.Spinlock_t
	disk  Disk_i
	mem   Blockmem_i
	lru   *list.List // front = MRU, back = LRU
	index map[int]*list.Element
	npop  int
}

// MkCache constructs an empty buffer cache backed by the given disk and
// block-memory allocator.
func MkCache(disk Disk_i, m Blockmem_i) *Bcache_t {
	return &Bcache_t{
		disk:  disk,
		mem:   m,
		lru:   list.New(),
		index: make(map[int]*list.Element),
	}
}

// Get implements spec §4.6's get(dev, blk): returns the cached buffer
// for blkno, bumping its refcount, evicting the least-recently-used
// zero-refcount buffer if the block isn't already resident. The
// returned buffer's sleep-lock is held; the caller must Release it.
func (bc *Bcache_t) Get(blkno int) *Bdev_block_t {
	bc.l.Lock()
	if e, ok := bc.index[blkno]; ok {
		b := e.Value.(*Bdev_block_t)
		b.refcnt++
		bc.lru.MoveToFront(e)
		bc.l.Unlock()
		b.Lock()
		return b
	}

	var b *Bdev_block_t
	if bc.npop < NBUF {
		b = mkBlock(blkno, bc.mem, bc.disk)
		bc.npop++
	} else {
		e := bc.evictLocked()
		b = e.Value.(*Bdev_block_t)
		delete(bc.index, b.Block)
		b.reuse(blkno, bc.disk)
	}
	b.refcnt = 1
	elem := bc.lru.PushFront(b)
	bc.index[blkno] = elem
	bc.l.Unlock()

	b.Lock()
	b.readFromDisk()
	return b
}

// evictLocked finds the LRU buffer with refcnt==0, removing it from the
// list so its slot can be reused. Callers bound the number of
// outstanding pinned buffers per transaction to MAX_OP_BLOCKS, so this
// can only fail to find a victim if that bound is violated — a bug,
// not a runtime condition, per spec §5 ("the buffer cache may panic if
// transaction bounds are violated").
func (bc *Bcache_t) evictLocked() *list.Element {
	for e := bc.lru.Back(); e != nil; e = e.Prev() {
		b := e.Value.(*Bdev_block_t)
		if b.refcnt == 0 {
			bc.lru.Remove(e)
			return e
		}
	}
	panic("fs.Bcache_t: no evictable buffer")
}

// Release implements spec §4.6's release(buf): drops the sleep-lock and
// decrements the refcount under the cache spinlock, leaving a
// zero-refcount buffer at the MRU end of the list so recently-used
// blocks survive eviction longest.
func (bc *Bcache_t) Release(b *Bdev_block_t) {
	b.Unlock()
	bc.l.Lock()
	b.refcnt--
	if b.refcnt < 0 {
		panic("fs.Bcache_t: negative refcount")
	}
	if b.refcnt == 0 {
		if e, ok := bc.index[b.Block]; ok {
			bc.lru.MoveToFront(e)
		}
	}
	bc.l.Unlock()
}

// Flush writes a dirty buffer straight to disk, bypassing the log.
// Used only before the log exists (formatting a fresh image) or by
// the log's own commit/install/recovery sequence, which must write
// through immediately rather than defer to a transaction.
func (bc *Bcache_t) Flush(b *Bdev_block_t) {
	if b.Dirty {
		b.WriteToDisk()
	}
}

// Pin bumps a buffer's refcount without touching its sleep-lock, used
// by the log to keep a buffer's in-memory contents alive between
// log_write and commit (spec §4.7: "pin buf ... do not release until
// commit").
func (bc *Bcache_t) Pin(b *Bdev_block_t) {
	bc.l.Lock()
	b.refcnt++
	bc.l.Unlock()
}

// Unpin reverses Pin, moving the buffer to the MRU slot if it becomes
// otherwise unreferenced.
func (bc *Bcache_t) Unpin(b *Bdev_block_t) {
	bc.l.Lock()
	b.refcnt--
	if b.refcnt == 0 {
		if e, ok := bc.index[b.Block]; ok {
			bc.lru.MoveToFront(e)
		}
	}
	bc.l.Unlock()
}
