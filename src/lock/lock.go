// Package lock provides Spinlock_t, the interrupt-masking busy-wait lock
// spec.md §5 requires for short critical sections ("spin-locks never
// suspend; holding one disables interrupts on the local hart and forbids
// calling anything that may block"). Sleep-lock lives in package proc
// instead, alongside Sleep/Wakeup, since the two must call each other
// directly (spec.md §9's lock-ordering table puts spin locks below the
// proc table, sleep-locks above it).
package lock

import (
	"mcpu"
	"sync/atomic"
)

/// Spinlock_t is a busy-wait lock that disables interrupts on the local
/// hart for as long as it is held, so it is always safe to take from a
/// trap handler. Never call anything that may block while holding one.
type Spinlock_t struct {
	locked uint32
	Name   string // for diagnostics only; not used to order locks
}

/// Lock spins until the lock is acquired, disabling local interrupts for
/// the duration (nested acquires just deepen mcpu's off-count).
func (l *Spinlock_t) Lock() {
	mcpu.Push_off()
	for !atomic.CompareAndSwapUint32(&l.locked, 0, 1) {
	}
}

/// Unlock releases the lock and re-enables interrupts if this was the
/// outermost held spinlock on this hart.
func (l *Spinlock_t) Unlock() {
	if !atomic.CompareAndSwapUint32(&l.locked, 1, 0) {
		panic("lock.Unlock: not locked")
	}
	mcpu.Pop_off()
}

/// Holding reports whether the lock is currently held by anyone. Used only
/// for assertions (e.g. "the cache spinlock must be held here"), never to
/// make a locking decision.
func (l *Spinlock_t) Holding() bool {
	return atomic.LoadUint32(&l.locked) == 1
}
