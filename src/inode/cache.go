package inode

import (
	"sync"

	"defs"
	"fs"
	"limits"
	"wal"
)

// NINODE is the fixed size of the in-memory inode cache, per spec §3/§5.
const NINODE = limits.NINODE

// NUM_FS_INODES and INODE_RECORD_SIZE give the on-disk inode region's
// shape, as package fs defines it.
const NUM_FS_INODES = fs.NUM_FS_INODES
const INODE_RECORD_SIZE = fs.INODE_RECORD_SIZE

// Icache_t is the in-memory inode table of spec §4.8: "caches NINODE=50
// bodies; get(dev, ino) deduplicates."  A single process may hold many
// references to the same Inode_t; the table itself only tracks which
// (dev, inum) pairs are currently resident.
type Icache_t struct {
	mu    sync.Mutex
	slots [NINODE]*Inode_t
}

// MkIcache constructs an empty inode cache.
func MkIcache() *Icache_t {
	return &Icache_t{}
}

// Get implements spec §4.8's get(dev, ino): returns the shared Inode_t
// for inum, allocating a cache slot and bumping its refcount. The
// returned inode is not yet locked or populated from disk — callers
// call Lock (via Fs_t.LockInode) before touching its fields, per spec's
// "lock(inode): ... on first lock after get, read the on-disk inode".
func (ic *Icache_t) Get(inum int) (*Inode_t, defs.Err_t) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	var empty = -1
	for i, ip := range ic.slots {
		if ip != nil && ip.Inum == inum {
			ip.refcnt++
			return ip, 0
		}
		if ip == nil && empty == -1 {
			empty = i
		}
	}
	if empty == -1 {
		return nil, -defs.ENOINODE
	}
	ip := &Inode_t{Inum: inum, refcnt: 1}
	ip.InitSleeplock("inode")
	ic.slots[empty] = ip
	return ip, 0
}

// NResident reports how many (dev, inum) slots are currently occupied,
// backing the open-inode count in the get_system_info syscall.
func (ic *Icache_t) NResident() int {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	n := 0
	for _, ip := range ic.slots {
		if ip != nil {
			n++
		}
	}
	return n
}

func (ic *Icache_t) evict(ip *Inode_t) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	for i, s := range ic.slots {
		if s == ip {
			ic.slots[i] = nil
			return
		}
	}
}

// LockInode implements spec §4.8's lock(inode): acquires the sleep-lock
// and, on first lock since Get, loads the on-disk body.
func (fs_ *Fs_t) LockInode(ip *Inode_t) {
	ip.Lock()
	if ip.valid {
		return
	}
	blkno := fs_.Sb.IinodeBlock(ip.Inum)
	off := (ip.Inum % (fs.BSIZE / INODE_RECORD_SIZE)) * INODE_RECORD_SIZE
	b := fs_.Bc.Get(blkno)
	d := decodeDinode(b.Data[off : off+INODE_RECORD_SIZE])
	fs_.Bc.Release(b)
	ip.fromDisk(d)
	ip.valid = true
}

// UnlockInode releases the sleep-lock without dropping the cache
// reference.
func (fs_ *Fs_t) UnlockInode(ip *Inode_t) {
	ip.Unlock()
}

// UpdateInode implements spec §4.8's update(inode): writes the body
// back to disk inside the caller's transaction.
func (fs_ *Fs_t) UpdateInode(op *wal.Op_t, ip *Inode_t) {
	blkno := fs_.Sb.IinodeBlock(ip.Inum)
	off := (ip.Inum % (fs.BSIZE / INODE_RECORD_SIZE)) * INODE_RECORD_SIZE
	b := fs_.Bc.Get(blkno)
	encodeDinode(b.Data[off:off+INODE_RECORD_SIZE], ip.toDisk())
	op.Log_write(b)
	fs_.Bc.Release(b)
}

// PutInode implements spec §4.8's put(inode): drops a reference; if it
// reaches zero with nlink==0, the file's blocks and on-disk slot are
// freed inside the given transaction.
func (fs_ *Fs_t) PutInode(op *wal.Op_t, ip *Inode_t) {
	fs_.Ic.mu.Lock()
	last := ip.refcnt == 1
	fs_.Ic.mu.Unlock()

	ip.Lock()
	freeing := last && ip.valid && ip.Nlink == 0
	if freeing {
		fs_.truncate(op, ip)
		ip.Type = I_FREE
		fs_.UpdateInode(op, ip)
		ip.valid = false
	}
	ip.Unlock()

	fs_.Ic.mu.Lock()
	ip.refcnt--
	rc := ip.refcnt
	fs_.Ic.mu.Unlock()
	if rc == 0 {
		fs_.Ic.evict(ip)
	}
}

// Dup bumps an inode's in-memory reference count, per the usual open-
// file/duplicate-fd pattern.
func (fs_ *Fs_t) Dup(ip *Inode_t) *Inode_t {
	fs_.Ic.mu.Lock()
	ip.refcnt++
	fs_.Ic.mu.Unlock()
	return ip
}
