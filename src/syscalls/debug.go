package syscalls

import (
	"defs"
	"file"
	"kprint"
	"mem"
	"proc"
	"riscv"
	"util"
	"vm"
)

// finisher encodes the sifive-test-device commands original_source's
// device/test.rs drives on halt/abort/reboot. No kernel-pagetable or MMIO
// identity-map infrastructure survived retrieval for this tree (the same
// gap documented against the trampoline's physical placement), so the
// actual MMIO write is left to a setter-hook filled in by whatever owns
// that mapping at boot, mirroring proc.SetTrampoline/trap.SetKernelSatp.
type finisher func(code uint32)

var finishFail finisher
var finishPass finisher
var finishReset finisher

// SetFinisher wires the three sifive-test-device commands to their MMIO
// pokes. Until called, sysHalt/sysAbort/sysReboot still terminate the
// calling process so tests that never exercise real hardware still
// observe a process exit.
func SetFinisher(fail, pass, reset finisher) {
	finishFail = fail
	finishPass = pass
	finishReset = reset
}

const (
	finisherFailCode  = 0x3333
	finisherPassCode  = 0x5555
	finisherResetCode = 0x7777
)

// sysHalt implements halt(code): request a clean VM shutdown reporting
// success, per original_source's syscall::Halt.
func sysHalt(p *proc.Proc_t) {
	code := uint32(argint(p, 0))
	kprint.Printf("halt requested\n")
	if finishPass != nil {
		finishPass(finisherPassCode | code<<16)
	}
	proc.Exit(p, int(code))
	proc.Die(p)
}

// sysAbort implements abort(code): request a VM shutdown reporting
// failure.
func sysAbort(p *proc.Proc_t) {
	code := uint32(argint(p, 0))
	kprint.Printf("abort requested\n")
	if finishFail != nil {
		finishFail(finisherFailCode | code<<16)
	}
	proc.Exit(p, int(code))
	proc.Die(p)
}

// sysReboot implements reboot(): request a VM reset.
func sysReboot(p *proc.Proc_t) {
	kprint.Printf("reboot requested\n")
	if finishReset != nil {
		finishReset(finisherResetCode)
	}
	proc.Exit(p, 0)
	proc.Die(p)
}

// traceBit names one bit of the trace-enable mask a0 passes to
// sys_trace. Numbered low so a mask can name several subsystems at once;
// spec §9's open question about precedence against overlapping numbered
// syscalls is resolved here by keeping trace entirely out of the
// Syscallno_t space — it is a dispatch-time hook, not a call number.
type traceBit uint64

const (
	traceNone traceBit = 0
	traceAll  traceBit = 1 << 0
)

var traceMask traceBit

// sysTrace implements trace(mask): replaces the process-wide trace mask
// and returns the previous one.
func sysTrace(p *proc.Proc_t) (uint64, defs.Err_t) {
	old := traceMask
	traceMask = traceBit(arg(p, 0))
	return uint64(old), 0
}

// traceEnter logs a syscall entry when tracing is enabled. Called by
// Dispatch before every syscall, including ones that never return.
func traceEnter(p *proc.Proc_t, callno Syscallno_t) {
	if traceMask&traceAll == 0 {
		return
	}
	kprint.Printf("pid %d: syscall %d\n", p.Pid, callno)
}

// sysDumpUserPageTable implements dump_user_page_table(): walks the
// calling process's Sv39 table and prints every valid leaf mapping,
// grounded on vm.Walk/vm.PTE2PA and the kprint diagnostic path.
func sysDumpUserPageTable(p *proc.Proc_t) (uint64, defs.Err_t) {
	n := 0
	for va := uintptr(0); va < p.As.Sz; va += uintptr(riscv.PGSIZE) {
		pte, ok := vm.Walk(p.As.Pagetable, va, false)
		if !ok || *pte&riscv.PTE_V == 0 {
			continue
		}
		pa := vm.PTE2PA(*pte)
		perm := ""
		if *pte&riscv.PTE_R != 0 {
			perm += "r"
		}
		if *pte&riscv.PTE_W != 0 {
			perm += "w"
		}
		if *pte&riscv.PTE_X != 0 {
			perm += "x"
		}
		if *pte&riscv.PTE_U != 0 {
			perm += "u"
		}
		kprint.Printf("va %#x -> pa %#x %s\n", va, pa, perm)
		n++
	}
	return uint64(n), 0
}

// systemInfoSize is the encoded byte length get_system_info writes to
// the user pointer: four 8-byte counters (free frames, used frames, open
// inodes, open files), the same fixed-width-word convention
// accnt.Accnt_t.To_rusage uses.
const systemInfoSize = 4 * 8

// sysGetSystemInfo implements get_system_info(buf), per SPEC_FULL §3.1's
// SystemInfo: free/used frame counts, open inode count, open file count.
func sysGetSystemInfo(p *proc.Proc_t) (uint64, defs.Err_t) {
	uva := argint(p, 0)

	free := mem.Physmem.Nfree()
	total := mem.Physmem.Total()
	used := total - free

	var nInodes int
	if theFs != nil {
		nInodes = theFs.Ic.NResident()
	}
	nFiles := file.Systable.NOpen()

	buf := make([]uint8, systemInfoSize)
	off := 0
	util.Writen(buf, 8, off, free)
	off += 8
	util.Writen(buf, 8, off, used)
	off += 8
	util.Writen(buf, 8, off, nInodes)
	off += 8
	util.Writen(buf, 8, off, nFiles)

	if err := p.As.K2user(buf, uva); err != 0 {
		return 0, err
	}
	return 0, 0
}
