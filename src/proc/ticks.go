package proc

import (
	"unsafe"

	"defs"
	"lock"
)

// ticks/tickslock live here, not in package trap, so that both trap
// (which bumps them on every timer interrupt) and syscalls (which
// reads and sleeps on them for uptime()/sleep()) can reach them
// without trap and syscalls importing each other. Grounded on ov6's
// TICKS global backing sys_sleep/sys_uptime.
var (
	tickslock lock.Spinlock_t
	ticks     int
)

// tickschan is a fixed address used as a sleep channel, the same
// "address of a global" idiom procChan uses for a waiting parent.
var tickschan int

// Clockintr bumps the tick counter and wakes every process sleeping
// on it. Called by package trap from its timer-interrupt path.
func Clockintr() {
	tickslock.Lock()
	ticks++
	Wakeup(uintptr(unsafe.Pointer(&tickschan)))
	tickslock.Unlock()
}

// Ticks reports the number of clock interrupts observed since boot,
// backing the uptime() syscall.
func Ticks() int {
	tickslock.Lock()
	defer tickslock.Unlock()
	return ticks
}

// SleepTicks implements the sleep(n) syscall's wait: block until n
// clock interrupts have elapsed or the process is killed.
func SleepTicks(p *Proc_t, n int) defs.Err_t {
	tickslock.Lock()
	target := ticks + n
	for ticks < target {
		if p.Killed {
			tickslock.Unlock()
			return -defs.EINTR
		}
		Sleep(uintptr(unsafe.Pointer(&tickschan)), &tickslock)
	}
	tickslock.Unlock()
	return 0
}
