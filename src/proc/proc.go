// Package proc is the process table and cooperative scheduler of spec
// §3/§4.4: a fixed NPROC-slot table, one scheduler goroutine per hart
// that context-switches between process kernel stacks via
// riscv.Switch, and the sleep/wakeup primitive every blocking
// subsystem (buffer cache, log, inode bodies, pipes) is built on.
//
// The teacher repo has no equivalent of this package: Biscuit runs a
// patched Go runtime where goroutines themselves are the kernel
// threads, so it never hand-writes a scheduler or a context-switch
// primitive. This kernel targets bare hardware (riscv.Switch/Context,
// built earlier from xv6-riscv's swtch.S), so process-level scheduling
// is written out explicitly here rather than borrowed from the
// teacher; package lock (interrupt-masking spinlocks) and package
// mcpu (per-hart nesting) are its only load-bearing dependents below
// it in the stack.
package proc

import (
	"sync"

	"defs"
	"fd"
	"limits"
	"lock"
	"mcpu"
	"mem"
	"riscv"
	"vm"
)

// trampolinePa is the physical frame holding the single trampoline code
// page (uservec/userret), identical in every address space per spec
// §4.5. Set once at boot by package trap via SetTrampoline, since trap
// sits above proc and proc cannot import it.
var trampolinePa mem.Pa_t

// SetTrampoline installs the trampoline page every newly allocated
// address space maps at riscv.TRAMPOLINE.
func SetTrampoline(pa mem.Pa_t) { trampolinePa = pa }

// NPROC, NOFILE are fixed by spec §3/§5.
const NPROC = limits.NPROC
const NOFILE = limits.NOFILE

// Procstate_t enumerates spec §3's process lifecycle states.
type Procstate_t int

const (
	UNUSED Procstate_t = iota
	USED
	SLEEPING
	RUNNABLE
	RUNNING
	ZOMBIE
)

// Proc_t is one process-table slot, per spec §3.
type Proc_t struct {
	lock.Spinlock_t // protects every field below except those noted

	State  Procstate_t
	Pid    defs.Pid_t
	Parent *Proc_t // guarded by the package wait-lock, not p.Spinlock_t

	kstack mem.Pa_t // one frame, identity-mapped
	As     *vm.Vm_t
	TfPa   mem.Pa_t // physical frame backing Tf, mapped at riscv.TRAPFRAME in As
	Tf     *riscv.TrapFrame
	Ctx    riscv.Context

	Killed     bool
	Chan       uintptr // sleep channel; 0 when not sleeping
	ExitStatus int

	Ofile [NOFILE]*fd.Fd_t
	Cwd   *fd.Cwd_t

	Name string
}

// Cpu_t is the per-hart scheduling state of spec §3's Cpu description,
// layered over mcpu.Cpu_t's interrupt-nesting bookkeeping.
type Cpu_t struct {
	mcpu.Cpu_t
	Proc  *Proc_t
	Sched riscv.Context
}

var cpus [limits.NCPU]Cpu_t

// KstackTop returns the top-of-stack value trap.Usertrapret installs
// into Tf.Kernel_sp, so uservec lands on a fresh kernel stack.
func (p *Proc_t) KstackTop() uint64 { return uint64(p.kstack) + uint64(mem.PGSIZE) }

// Mycpu returns the calling hart's scheduling state.
func Mycpu() *Cpu_t { return &cpus[riscv.Hartid()] }

// Myproc returns the process currently running on this hart, or nil.
func Myproc() *Proc_t { return Mycpu().Proc }

var (
	waitLock sync.Mutex // spec §5's wait-lock: guards Parent/children scans
	ptable   [NPROC]Proc_t
	nextPid  defs.Pid_t = 1
)

// allocProc finds an UNUSED slot, assigns it a fresh PID, and prepares
// its kernel stack and trap frame. Returns nil if the table is full.
func allocProc() (*Proc_t, defs.Err_t) {
	for i := range ptable {
		p := &ptable[i]
		p.Lock()
		if p.State != UNUSED {
			p.Unlock()
			continue
		}
		p.State = USED
		p.Pid = nextPid
		nextPid++
		p.Unlock()

		kpa, ok := mem.Physmem.Alloc()
		if !ok {
			p.Lock()
			p.State = UNUSED
			p.Unlock()
			return nil, -defs.ENOMEM
		}
		p.kstack = kpa
		p.Ctx = riscv.Context{}
		p.Ctx.Ra = uint64(trampolineForkret)
		p.Ctx.Sp = uint64(kpa) + uint64(mem.PGSIZE)
		return p, 0
	}
	return nil, -defs.ENOPROC
}

// trampolineForkret is the kernel-stack entry point a freshly allocated
// process's context resumes into the first time it is switched to.
// Set by the scheduler package at init time once forkret is defined
// (kernel/trap wiring); zero until then is a deliberate placeholder a
// from-scratch caller must assign before Alloc()ing its first process.
var trampolineForkret uintptr

// SetForkret installs the kernel-stack entry trampoline every newly
// allocated process resumes into, breaking the proc <-> trap package
// import cycle (trap.Forkret needs *Proc_t; proc cannot import trap).
func SetForkret(fn uintptr) { trampolineForkret = fn }

// mapTrapAndTrampoline installs the two fixed meta-mappings every address
// space needs below TRAMPOLINE: the process's own trap frame at
// riscv.TRAPFRAME, and the single shared trampoline code page at
// riscv.TRAMPOLINE. Shared by Alloc (fresh tfpa) and PrepExecAs (reused
// tfpa, a new pagetable during exec).
func mapTrapAndTrampoline(as *vm.Vm_t, tfpa mem.Pa_t) defs.Err_t {
	tfperm := mem.Pa_t(riscv.PTE_R | riscv.PTE_W)
	if vm.Mappages(as.Pagetable, riscv.TRAPFRAME, tfpa, mem.PGSIZE, tfperm) != 0 {
		return -defs.ENOMEM
	}
	trampperm := mem.Pa_t(riscv.PTE_R | riscv.PTE_X)
	if vm.Mappages(as.Pagetable, riscv.TRAMPOLINE, trampolinePa, mem.PGSIZE, trampperm) != 0 {
		return -defs.ENOMEM
	}
	return 0
}

// Alloc implements spec §4.4's process creation half shared by the
// first process and fork: a fresh slot, address space, and trap frame.
func Alloc(name string) (*Proc_t, defs.Err_t) {
	p, err := allocProc()
	if err != 0 {
		return nil, err
	}
	as, ok := vm.Mkvm()
	if !ok {
		freeProc(p)
		return nil, -defs.ENOMEM
	}
	tfpa, ok := mem.Physmem.Alloc()
	if !ok {
		as.Uvmfree()
		freeProc(p)
		return nil, -defs.ENOMEM
	}
	if err := mapTrapAndTrampoline(as, tfpa); err != 0 {
		mem.Physmem.Free(tfpa)
		as.Uvmfree()
		freeProc(p)
		return nil, -defs.ENOMEM
	}
	p.As = as
	p.Name = name
	p.TfPa = tfpa
	p.Tf = (*riscv.TrapFrame)(mem.Physmem.Dmapptr(tfpa))
	return p, 0
}

// PrepExecAs allocates a brand-new, empty address space carrying the
// calling process's existing trap frame (p.TfPa) and the shared
// trampoline at the usual fixed VAs, for package exec to load segments
// into before atomically swapping it in for p.As. Per spec §4.12, exec
// builds the new image entirely before committing, so a failure partway
// through loading never disturbs the process's current, still-running
// address space; the caller is responsible for freeing the returned
// Vm_t (via its Uvmfree) on any such failure.
func PrepExecAs(p *Proc_t) (*vm.Vm_t, defs.Err_t) {
	as, ok := vm.Mkvm()
	if !ok {
		return nil, -defs.ENOMEM
	}
	if err := mapTrapAndTrampoline(as, p.TfPa); err != 0 {
		as.Uvmfree()
		return nil, err
	}
	return as, 0
}

// CommitExecAs swaps newas in for p.As, freeing the old address space,
// and resets the trap frame to a freshly exec'd process's initial state:
// pc at the image's entry point, sp at the top of the freshly mapped
// user stack, and every other saved register zeroed.
func CommitExecAs(p *Proc_t, newas *vm.Vm_t, entry, sp uint64) {
	oldas := p.As
	p.As = newas
	oldas.Uvmfree()

	*p.Tf = riscv.TrapFrame{}
	p.Tf.Epc = entry
	p.Tf.Sp = sp
}

func freeProc(p *Proc_t) {
	mem.Physmem.Free(p.kstack)
	if p.TfPa != 0 {
		mem.Physmem.Free(p.TfPa)
	}
	p.Lock()
	p.kstack = 0
	p.TfPa = 0
	p.Tf = nil
	p.As = nil
	p.Pid = 0
	p.Parent = nil
	p.Name = ""
	p.Killed = false
	p.Chan = 0
	p.State = UNUSED
	p.Unlock()
}

// Fork implements spec §4.4's fork: duplicate the address space and
// trap frame, dup open files and cwd, link under the wait-lock.
func Fork(parent *Proc_t) (defs.Pid_t, defs.Err_t) {
	child, err := Alloc(parent.Name)
	if err != 0 {
		return 0, err
	}
	// Copy each mapped user page into child.As's own pagetable (already
	// carrying its TRAPFRAME/TRAMPOLINE mappings from Alloc) via the same
	// per-page copy vm.Uvmcopy uses, rather than building a whole new
	// pagetable via vm.Uvmcopy and swapping it in, which would discard
	// those two meta-mappings along with the freshly allocated one.
	if _, err := vm.CopyUserPages(child.As.Pagetable, parent.As.Pagetable, parent.As.Sz); err != 0 {
		freeProc(child)
		return 0, err
	}
	child.As.Sz = parent.As.Sz

	*child.Tf = *parent.Tf
	child.Tf.A0 = 0 // child sees a zero return from fork

	for i, of := range parent.Ofile {
		if of != nil {
			nfd, e := fd.Copyfd(of)
			if e == 0 {
				child.Ofile[i] = nfd
			}
		}
	}
	child.Cwd = parent.Cwd

	waitLock.Lock()
	child.Parent = parent
	waitLock.Unlock()

	child.Lock()
	child.State = RUNNABLE
	child.Unlock()
	return child.Pid, 0
}

// Exit implements spec §4.4's exit(status): closes files, reparents
// children to initproc, becomes a zombie, and wakes the parent. It
// returns to its caller, which must then call Die to switch away.
func Exit(p *Proc_t, status int) {
	for i, of := range p.Ofile {
		if of != nil {
			fd.Close_panic(of)
			p.Ofile[i] = nil
		}
	}
	p.Cwd = nil

	waitLock.Lock()
	reparent(p)
	Wakeup(procChan(p.Parent))
	p.Lock()
	p.ExitStatus = status
	p.State = ZOMBIE
	p.Unlock()
	waitLock.Unlock()
}

func reparent(p *Proc_t) {
	for i := range ptable {
		c := &ptable[i]
		if c.Parent == p {
			c.Parent = initProc
		}
	}
}

var initProc *Proc_t

// SetInitProc designates the process zombie children are reparented
// to, per spec §4.4's "reparent children to initproc".
func SetInitProc(p *Proc_t) { initProc = p }

// procChan derives the sleep-channel identity a parent waits on: the
// address of its own Proc_t slot, matching xv6's "sleep on yourself"
// wait() convention.
func procChan(p *Proc_t) uintptr { return uintptr(ptrOf(p)) }

// Wait implements spec §4.4's wait(addr): scans for a zombie child,
// reaps it, and returns its PID, else sleeps on the wait-lock.
func Wait(p *Proc_t) (defs.Pid_t, int, defs.Err_t) {
	waitLock.Lock()
	for {
		anyChildren := false
		for i := range ptable {
			c := &ptable[i]
			if c.Parent != p {
				continue
			}
			anyChildren = true
			c.Lock()
			if c.State == ZOMBIE {
				pid := c.Pid
				st := c.ExitStatus
				c.Unlock()
				freeProc(c)
				waitLock.Unlock()
				return pid, st, 0
			}
			c.Unlock()
		}
		if !anyChildren || p.Killed {
			waitLock.Unlock()
			return 0, 0, -defs.ECHILD
		}
		sleepLocked(p, procChan(p), &waitLock)
	}
}

// Kill implements spec §4.4's kill(pid): sets killed and, if the
// victim is sleeping, makes it runnable so it observes the flag.
func Kill(pid defs.Pid_t) defs.Err_t {
	for i := range ptable {
		p := &ptable[i]
		p.Lock()
		if p.Pid == pid {
			p.Killed = true
			if p.State == SLEEPING {
				p.State = RUNNABLE
			}
			p.Unlock()
			return 0
		}
		p.Unlock()
	}
	return -defs.ENOENT
}

// Sbrk implements spec §4.4's sbrk(n): eagerly grows or shrinks the
// user heap at the process's current break.
func Sbrk(p *Proc_t, n int) (uintptr, defs.Err_t) {
	old := p.As.Sz
	if n == 0 {
		return old, 0
	}
	if n > 0 {
		newsz, err := p.As.Growuvm(old, old+uintptr(n))
		if err != 0 {
			return old, err
		}
		p.As.Sz = newsz
		return old, 0
	}
	newsz := p.As.Shrinkuvm(old+uintptr(n), old)
	p.As.Sz = newsz
	return old, 0
}
