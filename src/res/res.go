// Package res gives each hart a per-quantum resource budget that bounded
// inner loops (package bounds) draw against, so a runaway loop gets an
// ordinary Err_t return instead of wedging the hart — spec.md §5's
// "exhaustion is an error return, never a panic" rule given mechanical
// teeth. Grounded on the call sites in vm/as.go and vm/userbuf.go
// (`res.Resadd_noblock(bounds.Bounds(...))`); res.go's own source did not
// survive retrieval, so the budget/refill mechanism is rebuilt here from
// those call sites and from spec.md §5's scheduling-quantum language.
package res

import (
	"limits"
	"riscv"
)

// defaultBudget is charged to a hart at the start of every scheduling
// quantum; it bounds how many bounds.Op_t draws a single time slice may
// make before an inner loop must give up and return an error rather than
// spin past its slice.
const defaultBudget = 1 << 20

var budget [limits.NCPU]int64

/// Reset refills the calling hart's budget. The scheduler calls this once
/// per quantum, before resuming a process.
func Reset() {
	budget[riscv.Hartid()] = defaultBudget
}

/// Resadd_noblock draws amt units from the calling hart's budget. It never
/// blocks: if the budget is already exhausted it returns false immediately,
/// leaving the caller to unwind and return an error rather than spin.
func Resadd_noblock(amt int) bool {
	h := riscv.Hartid()
	if budget[h] < int64(amt) {
		return false
	}
	budget[h] -= int64(amt)
	return true
}
