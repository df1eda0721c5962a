package riscv

// These functions have no Go bodies; their implementations live in
// asm_riscv64.s. They may only be called with a very small stack and must
// never allocate — the same //go:nosplit discipline the teacher applies to
// trapstub in kernel/main.go, since both run where the Go scheduler cannot
// be trusted to still be consistent.

//go:nosplit
//go:noescape
func IntrOn()

//go:nosplit
//go:noescape
func IntrOff()

//go:nosplit
//go:noescape
func IntrGet() bool

//go:nosplit
//go:noescape
func Hartid() uint64

// Rdtime reads the time CSR, a read-only shadow of CLINT_MTIME exposed
// to supervisor mode. Package stats uses it for its cycle counters now
// that this kernel runs on bare hardware rather than the teacher's
// patched-runtime Rdtsc().
//
//go:nosplit
//go:noescape
func Rdtime() uint64

// The following are the handful of supervisor CSRs package trap reads
// and writes directly around a trap: scause/stval identify what
// happened, sepc/sstatus are saved and restored across a nested
// kernel trap, and stvec is retargeted between kernelvec and the
// trampoline's uservec depending on which mode is about to run.

//go:nosplit
//go:noescape
func ScauseCSR() uint64

//go:nosplit
//go:noescape
func StvalCSR() uint64

//go:nosplit
//go:noescape
func SepcCSR() uint64

//go:nosplit
//go:noescape
func SetSepc(uint64)

//go:nosplit
//go:noescape
func SstatusCSR() uint64

//go:nosplit
//go:noescape
func SetSstatus(uint64)

//go:nosplit
//go:noescape
func SetStvec(uint64)

// PrepareUserReturn clears sstatus.SPP and sets sstatus.SPIE, so the
// sret inside the trampoline's userret drops to user mode with
// interrupts enabled. Mirrors the sstatus twiddling xv6's
// usertrapret() does just before calling into the trampoline.
//
//go:nosplit
//go:noescape
func PrepareUserReturn()

// Switch saves the callee-saved registers of the current control flow into
// old and restores them from new. It must be called with the caller's
// proc-table lock held; see spec.md §4.4 and §9 for the lock-discipline
// invariant this enforces across every call site.
//
//go:nosplit
//go:noescape
func Switch(old, new *Context)
