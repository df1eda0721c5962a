// Package bounds enumerates the named inner-loop operations that consume
// from a hart's resource budget (see package res) and the per-iteration
// cost each one charges. Grounded on the call sites in vm/as.go and
// vm/userbuf.go (`bounds.Bounds(bounds.B_ASPACE_T_K2USER_INNER)` fed
// straight into `res.Resadd_noblock`); the bounds.go source itself did not
// survive retrieval, so the enum and cost table are rebuilt here from those
// call sites plus the operations SPEC_FULL.md names for the same mechanism
// (log writes, page-table walks, ELF segment loads).
package bounds

/// Op_t names one bounded inner-loop operation.
type Op_t int

const (
	B_USERBUF_T__TX Op_t = iota
	B_USERIOVEC_T_IOV_INIT
	B_USERIOVEC_T__TX
	B_ASPACE_T_K2USER_INNER
	B_ASPACE_T_USER2K_INNER
	B_PAGETABLE_MAP_INNER
	B_LOG_WRITE
	B_EXEC_LOAD_SEGMENT
	nops
)

// cost is the resource units one iteration of each operation charges.
// Every bound here costs a single unit of "inner loop iterations
// remaining on this hart's quantum" — the exact currency spec.md §5 is
// silent on, so a flat per-iteration charge is used uniformly, matching
// every teacher call site charging exactly one Bounds() draw per loop
// iteration.
var cost = [nops]int{
	B_USERBUF_T__TX:         1,
	B_USERIOVEC_T_IOV_INIT:  1,
	B_USERIOVEC_T__TX:       1,
	B_ASPACE_T_K2USER_INNER: 1,
	B_ASPACE_T_USER2K_INNER: 1,
	B_PAGETABLE_MAP_INNER:   1,
	B_LOG_WRITE:             1,
	B_EXEC_LOAD_SEGMENT:     1,
}

/// Bounds returns the resource cost of one iteration of op, for passing
/// straight into res.Resadd_noblock.
func Bounds(op Op_t) int {
	return cost[op]
}
