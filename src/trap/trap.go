// Package trap is the RISC-V trap path of spec §4.5: the trampoline
// (uservec/userret, trampoline_riscv64.s), the kernel-mode trap vector
// (kernelvec, kernelvec_riscv64.s), and the Go-side dispatch that
// decides what an ecall, a page fault, or a timer interrupt means.
//
// No teacher source for this layer survived retrieval (Biscuit's
// patched Go runtime takes traps itself and never hand-writes a
// trampoline), so this package is built from xv6-riscv's well-known
// trap.c/trampoline.S design, wired onto package proc's scheduler and
// the trap frame riscv.TrapFrame already defines.
package trap

import (
	"reflect"
	"sync"

	"proc"
	"riscv"
	"syscalls"
)

// funcpc returns the entry program counter of a Go function value,
// including the bodiless asm-only declarations below — the same
// trick a from-scratch port of xv6 onto the Go toolchain needs to turn
// uservec/userret/kernelvec into raw addresses a CSR or a trapframe
// field can hold.
func funcpc(f interface{}) uintptr {
	return reflect.ValueOf(f).Pointer()
}

// uservec, userret and kernelvec have no Go bodies; see
// trampoline_riscv64.s and kernelvec_riscv64.s.
func uservec()
func userret(tf uintptr, satp uint64)
func kernelvec()
func callAt(fn, tf uintptr, satp uint64)

// userretOffset is the byte distance from uservec to userret as the
// linker actually placed them — valid regardless of where in memory
// the trampoline page itself ends up, since both symbols move
// together. trampolinePageBase (the page uservec's own PC sits in, by
// the convention that uservec is the first instruction the trampoline
// page contains) is what a final link step must place on its own page
// boundary and hand to proc.SetTrampoline as a physical address;
// arranging that is exactly the "build scripts/linker glue" spec.md's
// Non-goals exclude, so this package only computes offsets within the
// page and leaves locating the page itself to whatever assembles the
// kernel image.
var userretOffset = funcpc(userret) - funcpc(uservec)

// kernelSatp is the satp value of the kernel's own page table,
// installed once at boot by whatever builds it (again out of this
// package's scope — see the comment on userretOffset) via
// SetKernelSatp. Every trap taken from user mode switches back to it.
var kernelSatp uint64

// SetKernelSatp installs the satp value uservec restores the instant
// it takes a trap from user mode.
func SetKernelSatp(satp uint64) { kernelSatp = satp }

// Inithart points this hart's stvec at kernelvec — the vector for
// traps taken while kernel code, not a user process, is running — and
// turns on interrupts. Called once per hart at boot.
func Inithart() {
	riscv.SetStvec(uint64(funcpc(kernelvec)))
	riscv.IntrOn()
}

// handleIntr dispatches a recognized interrupt cause and reports
// whether it recognized one. PLIC claim/complete sequencing for the
// UART and virtio-mmio sources is spec.md's Non-goal territory (those
// drivers themselves are out of scope), so external interrupts are
// merely acknowledged here, not routed to a device.
func handleIntr(code uint64) bool {
	switch code {
	case riscv.IRQ_SUPERVISOR_TIMER:
		proc.Clockintr()
		return true
	case riscv.IRQ_SUPERVISOR_EXTERNAL:
		return true
	default:
		return false
	}
}

// Usertrap is kernel_trap's target: uservec calls here, already
// switched onto the kernel stack and the kernel page table, with the
// trapframe holding every saved user register. Grounded on xv6's
// usertrap().
func Usertrap() {
	riscv.SetStvec(uint64(funcpc(kernelvec)))

	p := proc.Myproc()
	scause := riscv.ScauseCSR()
	isIntr, code := riscv.Scause(scause)

	switch {
	case !isIntr && code == riscv.EXC_ECALL_FROM_U:
		if !p.Killed {
			p.Tf.Epc += 4 // skip past the ecall instruction that trapped
			riscv.IntrOn()
			syscalls.Dispatch(p)
		}

	case isIntr:
		if !handleIntr(code) {
			p.Killed = true
		}

	default:
		// EXC_*_PAGE_FAULT, EXC_ILLEGAL_INST and friends: this kernel
		// eagerly backs every mapping below Vm_t.Sz, so a page fault
		// here is always a genuine out-of-bounds access, never
		// something to service lazily.
		p.Killed = true
	}

	if p.Killed {
		proc.Exit(p, -1)
		proc.Die(p)
	}

	if isIntr && code == riscv.IRQ_SUPERVISOR_TIMER {
		proc.Yield(p)
	}

	Usertrapret(p)
}

// Usertrapret prepares p's trapframe and CSR state for a return to
// user mode and hands off to the trampoline's userret. Grounded on
// xv6's usertrapret().
func Usertrapret(p *proc.Proc_t) {
	riscv.IntrOff()

	p.Tf.Kernel_satp = kernelSatp
	p.Tf.Kernel_sp = p.KstackTop()
	p.Tf.Kernel_trap = uint64(funcpc(Usertrap))
	p.Tf.Kernel_hartid = riscv.Hartid()

	riscv.SetStvec(uint64(riscv.TRAMPOLINE))
	riscv.PrepareUserReturn()

	satp := riscv.MakeSatp(uint64(p.As.P_pagetable) >> riscv.PGSHIFT)
	fn := uintptr(riscv.TRAMPOLINE) + userretOffset
	callAt(fn, uintptr(riscv.TRAPFRAME), satp)
}

// Kerneltrap handles a trap taken while kernel code (not a user
// process) was running on this hart: today, only the periodic timer
// interrupt, which preempts the current process if one is running.
// Grounded on xv6's kerneltrap().
func Kerneltrap() {
	sepc := riscv.SepcCSR()
	sstatus := riscv.SstatusCSR()

	isIntr, code := riscv.Scause(riscv.ScauseCSR())
	if !isIntr {
		panic("trap.Kerneltrap: exception while running kernel code")
	}
	handleIntr(code)

	if code == riscv.IRQ_SUPERVISOR_TIMER {
		if p := proc.Myproc(); p != nil && !p.Holding() {
			proc.Yield(p)
		}
	}

	riscv.SetSepc(sepc)
	riscv.SetSstatus(sstatus)
}

var (
	firstForkretOnce sync.Once
	firstForkretHook func()
)

// ForkretPC returns Forkret's entry program counter, for package
// kernel to install via proc.SetForkret at boot without proc itself
// importing trap (which would cycle back through syscalls).
func ForkretPC() uintptr { return funcpc(Forkret) }

// SetFirstForkretHook registers a one-time callback run the first
// time any process is scheduled — the hook mkfs's equivalent kernel
// wiring (whatever mounts the root file system) hangs off of, mirroring
// xv6's forkret() calling fsinit() only on the very first scheduled
// process.
func SetFirstForkretHook(fn func()) { firstForkretHook = fn }

// Forkret is the kernel-stack entry point every freshly allocated
// process's context first resumes into (wired in via
// proc.SetForkret(funcpc(Forkret)) at boot). Grounded on xv6's
// forkret(): release the process lock the scheduler is still holding
// across the switch that landed here, run the one-time hook, then
// fall into the ordinary return-to-user path.
func Forkret() {
	p := proc.Myproc()
	p.Unlock()

	firstForkretOnce.Do(func() {
		if firstForkretHook != nil {
			firstForkretHook()
		}
	})

	Usertrapret(p)
}
