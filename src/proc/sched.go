package proc

import (
	"unsafe"

	"riscv"
)

// ptrOf returns a stable identity for p, used as a default sleep
// channel (xv6's "sleep on the struct proc itself" idiom).
func ptrOf(p *Proc_t) unsafe.Pointer { return unsafe.Pointer(p) }

// Scheduler runs forever on the calling hart: scan the process table
// for a RUNNABLE process, switch to it, and resume scanning once it
// yields back. Grounded on spec §4.4's cooperative, non-preemptive
// scheduler description; the actual register save/restore is
// riscv.Switch, built from xv6-riscv's swtch.S.
func Scheduler() {
	c := Mycpu()
	for {
		riscv.IntrOn()
		for i := range ptable {
			p := &ptable[i]
			p.Lock()
			if p.State != RUNNABLE {
				p.Unlock()
				continue
			}
			p.State = RUNNING
			c.Proc = p
			riscv.Switch(&c.Sched, &p.Ctx)
			c.Proc = nil
			p.Unlock()
		}
	}
}

// Yield gives up the processor for one scheduling round, used by a
// process that is still RUNNABLE. The trap path calls it on every
// timer interrupt taken from user mode, and on one taken in kernel
// mode when the running process's lock is not held.
func Yield(p *Proc_t) {
	p.Lock()
	p.State = RUNNABLE
	sched(p)
	p.Unlock()
}

// Die switches away from a process Exit has already marked ZOMBIE,
// for good: unlike Yield it never sets the process back to RUNNABLE,
// since a zombie is never scheduled again. The trap handler calls this
// instead of Yield right after Exit, matching xv6's exit() falling
// straight into sched() rather than through yield().
func Die(p *Proc_t) {
	p.Lock()
	sched(p)
	panic("proc.Die: a zombie was scheduled")
}

// sched switches from p's context back to its hart's scheduler loop.
// The caller must hold p.Spinlock_t and must not be RUNNING.
func sched(p *Proc_t) {
	if !p.Holding() {
		panic("proc.sched: p not locked")
	}
	if p.State == RUNNING {
		panic("proc.sched: still RUNNING")
	}
	if riscv.IntrGet() {
		panic("proc.sched: interrupts enabled")
	}
	c := Mycpu()
	riscv.Switch(&p.Ctx, &c.Sched)
}

// Sleep implements spec §4.4's sleep/wakeup rendezvous: atomically
// release lk and block on chan, reacquiring lk before returning. lk
// may be any lock.Spinlock_t-shaped lock the caller already holds —
// the buffer cache, the log, and inode/pipe bodies all pass their own
// spinlock here rather than duplicating this dance.
func Sleep(chan_ uintptr, lk Locker) {
	p := Myproc()
	p.Lock()
	lk.Unlock()
	p.Chan = chan_
	p.State = SLEEPING
	sched(p)
	p.Chan = 0
	p.Unlock()
	lk.Lock()
}

// sleepLocked is Sleep's variant for a caller that already holds the
// package-level waitLock (a sync.Mutex, not a lock.Spinlock_t): used
// only by Wait, which cannot yield while holding a spinlock anyway
// since mcpu's interrupt-nesting count is per-hart, not per-lock.
func sleepLocked(p *Proc_t, chan_ uintptr, mu Unlocker) {
	p.Lock()
	mu.Unlock()
	p.Chan = chan_
	p.State = SLEEPING
	sched(p)
	p.Chan = 0
	p.Unlock()
	mu.Lock()
}

// Locker is the subset of lock.Spinlock_t's interface Sleep needs;
// kept abstract so fs/wal/inode/pipe can each pass their own embedded
// spinlock without importing package lock twice under different names.
type Locker interface {
	Lock()
	Unlock()
}

// Unlocker is satisfied by *sync.Mutex, used only by the wait-lock.
type Unlocker interface {
	Lock()
	Unlock()
}

// Wakeup wakes every process sleeping on chan, per spec §4.4.
func Wakeup(chan_ uintptr) {
	for i := range ptable {
		p := &ptable[i]
		if p == Myproc() {
			continue
		}
		p.Lock()
		if p.State == SLEEPING && p.Chan == chan_ {
			p.State = RUNNABLE
		}
		p.Unlock()
	}
}
