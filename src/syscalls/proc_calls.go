package syscalls

import (
	"defs"
	"proc"
)

// sysFork implements spec §4.4/§4.11's fork(): proc.Fork already does
// the slot allocation, clone_user, trap-frame duplication (with child
// a0=0) and file/cwd duplication; here we only surface its PID.
func sysFork(p *proc.Proc_t) (uint64, defs.Err_t) {
	pid, err := proc.Fork(p)
	if err != 0 {
		return 0, err
	}
	return uint64(pid), 0
}

// sysExit implements exit(status): never returns to its caller, per
// spec §4.4 — Dispatch's switch case is annotated accordingly.
func sysExit(p *proc.Proc_t) {
	status := argint(p, 0)
	proc.Exit(p, status)
	proc.Die(p)
}

// sysWait implements wait(addr): reap a zombie child, optionally
// copying its exit status to the user pointer in a0.
func sysWait(p *proc.Proc_t) (uint64, defs.Err_t) {
	uva := argint(p, 0)
	pid, status, err := proc.Wait(p)
	if err != 0 {
		return 0, err
	}
	if uva != 0 {
		if werr := p.As.Userwriten(uva, 4, status); werr != 0 {
			return 0, werr
		}
	}
	return uint64(pid), 0
}

// sysKill implements kill(pid). Spec §9's open questions note sys_kill
// has no permission check in the original design — kept that way here
// rather than inventing one.
func sysKill(p *proc.Proc_t) (uint64, defs.Err_t) {
	pid := defs.Pid_t(argint(p, 0))
	return 0, proc.Kill(pid)
}

// sysSbrk implements sbrk(n), returning the pre-growth break.
func sysSbrk(p *proc.Proc_t) (uint64, defs.Err_t) {
	n := argint(p, 0)
	old, err := proc.Sbrk(p, n)
	if err != 0 {
		return 0, err
	}
	return uint64(old), 0
}

// sysSleep implements sleep(ticks).
func sysSleep(p *proc.Proc_t) (uint64, defs.Err_t) {
	n := argint(p, 0)
	if n < 0 {
		return 0, -defs.EINVAL
	}
	return 0, proc.SleepTicks(p, n)
}
