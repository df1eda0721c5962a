// Package mcpu tracks, per hart, how many nested spinlocks are held and
// whether interrupts were enabled before the first one. Grounded on xv6's
// struct cpu{noff,intena}/push_off/pop_off idiom (spec.md §5: "holding one
// disables interrupts on the local hart"); the teacher has no analogue
// since its goroutines run under the real Go scheduler and never mask
// interrupts directly, but the bookkeeping style — a tiny per-unit struct
// with paired push/pop methods — follows tinfo.Tnote_t's shape one layer
// up the stack.
package mcpu

import (
	"limits"
	"riscv"
)

/// Cpu_t is one hart's interrupt-nesting state.
type Cpu_t struct {
	Noff   int  // depth of nested Push_off calls
	Intena bool // interrupts were enabled before the outermost Push_off
}

var cpus [limits.NCPU]Cpu_t

/// Mycpu returns the calling hart's Cpu_t. Must be called with interrupts
/// already disabled, or not at all if the hart could migrate mid-call —
/// which never happens here, since harts are never rescheduled onto a
/// different physical core.
func Mycpu() *Cpu_t {
	return &cpus[riscv.Hartid()]
}

/// Push_off disables interrupts, remembering the previous state only on
/// the outermost call so nested acquires don't clobber it.
func Push_off() {
	old := riscv.IntrGet()
	riscv.IntrOff()
	c := Mycpu()
	if c.Noff == 0 {
		c.Intena = old
	}
	c.Noff++
}

/// Pop_off is Push_off's inverse; interrupts are re-enabled only once the
/// nesting count returns to zero, and only if they were enabled before the
/// outermost Push_off.
func Pop_off() {
	c := Mycpu()
	if riscv.IntrGet() {
		panic("mcpu.Pop_off: interrupts enabled")
	}
	if c.Noff < 1 {
		panic("mcpu.Pop_off: unbalanced with Push_off")
	}
	c.Noff--
	if c.Noff == 0 && c.Intena {
		riscv.IntrOn()
	}
}
