package syscalls

import (
	"defs"
	"exec"
	"limits"
	"proc"
)

// sysExec implements exec(path, argv), per spec §4.11/§4.12: a0 is the
// path, a1 an array of user pointers terminated by a NUL pointer, each
// naming one argv string. On success Dispatch's caller has already had
// the trap frame reset by exec.Exec (CommitExecAs), so the value
// returned here becomes the new a0 — argc, matching original_source's
// exec returning the argument count rather than 0.
func sysExec(p *proc.Proc_t) (uint64, defs.Err_t) {
	path, err := argustr(p, 0)
	if err != 0 {
		return 0, err
	}

	argvUva := int(arg(p, 1))
	var argv []string
	for i := 0; i < limits.MAX_ARG; i++ {
		ptr, err := p.As.Userreadn(argvUva+i*8, 8)
		if err != 0 {
			return 0, err
		}
		if ptr == 0 {
			break
		}
		s, err := p.As.Userstr(ptr, limits.MAX_PATH)
		if err != 0 {
			return 0, err
		}
		argv = append(argv, s.String())
		if len(argv) == limits.MAX_ARG {
			return 0, -defs.EINVAL
		}
	}

	if eerr := exec.Exec(p, theFs, rootInode, cwdInode(p), path, argv); eerr != 0 {
		return 0, eerr
	}
	return uint64(len(argv)), 0
}
