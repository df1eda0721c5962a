package proc

import (
	"unsafe"

	"lock"
)

// Sleeplock_t is the blocking, long-held lock of spec §5: unlike
// Spinlock_t it may be held across disk I/O, because a holder that
// can't get it blocks via Sleep/Wakeup instead of busy-waiting.
// Grounded on xv6-riscv's sleeplock.c, the design the teacher's own
// fs/blk.go gestures at ("Buf: ... sleep-lock ...") but never
// implements, since Biscuit's goroutine-hosted processes use the Go
// runtime's scheduler for this instead. Buffer-cache blocks
// (fs.Bdev_block_t) and cached inodes (inode.Inode_t) embed one of
// these rather than a sync.Mutex, so that blocking there actually
// yields the hart to the scheduler instead of parking a goroutine the
// runtime doesn't have; wal.Log_t and pipe.Pipe_t hold a
// lock.Spinlock_t instead and wait through Sleep directly.
type Sleeplock_t struct {
	l      lock.Spinlock_t
	locked bool
	Name   string
}

// chanOf uses the lock's own address as its sleep channel, so Wakeup
// only disturbs processes waiting on this particular lock.
func (s *Sleeplock_t) chanOf() uintptr { return uintptr(unsafe.Pointer(s)) }

// InitSleeplock must be called once before first use.
func (s *Sleeplock_t) InitSleeplock(name string) { s.Name = name }

// Lock blocks the calling process, without busy-waiting, until the
// sleep-lock is free.
func (s *Sleeplock_t) Lock() {
	s.l.Lock()
	for s.locked {
		Sleep(s.chanOf(), &s.l)
	}
	s.locked = true
	s.l.Unlock()
}

// Unlock releases the sleep-lock and wakes anyone waiting on it.
func (s *Sleeplock_t) Unlock() {
	s.l.Lock()
	s.locked = false
	s.l.Unlock()
	Wakeup(s.chanOf())
}

// Holding reports whether the sleep-lock is currently held by anyone
// (used only for assertions, e.g. "must hold the inode lock here").
func (s *Sleeplock_t) Holding() bool {
	s.l.Lock()
	defer s.l.Unlock()
	return s.locked
}
