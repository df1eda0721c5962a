// Package syscalls is the trap-frame-driven dispatcher of spec §4.11:
// a7 carries the call number, a0..a5 the arguments, a0 the return
// value. No teacher source for this layer survived retrieval (Biscuit
// dispatches through its patched runtime's own syscall table, not a
// hand-decoded trap frame), so argument decoding and the handler table
// are built directly from spec §4.11/§6's ABI description, wired onto
// the packages already adapted from the teacher below it (proc, file,
// fd, inode, dir, vm).
package syscalls

import (
	"defs"
	"fd"
	"file"
	"inode"
	"limits"
	"proc"
	"ustr"
)

// Syscallno_t is a trap-frame a7 value naming one syscall.
type Syscallno_t int

// Call numbers, per spec §4.11's syscall list. Numbered the way
// original_source (ov6) numbers its SyscallType enum: Fork=1 through
// Close=21, with the debug calls following in the order spec §4.11
// names them.
const (
	SYS_FORK Syscallno_t = iota + 1
	SYS_EXIT
	SYS_WAIT
	SYS_PIPE
	SYS_READ
	SYS_KILL
	SYS_EXEC
	SYS_FSTAT
	SYS_CHDIR
	SYS_DUP
	SYS_GETPID
	SYS_SBRK
	SYS_SLEEP
	SYS_UPTIME
	SYS_OPEN
	SYS_WRITE
	SYS_MKNOD
	SYS_UNLINK
	SYS_LINK
	SYS_MKDIR
	SYS_CLOSE

	SYS_HALT
	SYS_ABORT
	SYS_REBOOT
	SYS_TRACE
	SYS_DUMP_USER_PAGE_TABLE
	SYS_GET_SYSTEM_INFO
)

// theFs/rootInode are the single mounted file system and its root
// directory, the process-wide singletons spec §9's "global mutable
// state" design note calls for; wired once at boot by whatever builds
// the disk image and its log (out of this package's scope — mirrors
// proc.SetTrampoline/trap.SetKernelSatp's setter-hook pattern).
var theFs *inode.Fs_t
var rootInode *inode.Inode_t

// SetFS installs the mounted file system and its root directory.
func SetFS(fs_ *inode.Fs_t, root *inode.Inode_t) {
	theFs = fs_
	rootInode = root
}

// arg returns trap-frame argument n (0..5), per spec §4.11/§6's a0..a5
// ABI.
func arg(p *proc.Proc_t, n int) uint64 {
	switch n {
	case 0:
		return p.Tf.A0
	case 1:
		return p.Tf.A1
	case 2:
		return p.Tf.A2
	case 3:
		return p.Tf.A3
	case 4:
		return p.Tf.A4
	case 5:
		return p.Tf.A5
	default:
		panic("syscalls.arg: argument index out of range")
	}
}

func argint(p *proc.Proc_t, n int) int { return int(int64(arg(p, n))) }

// argustr decodes argument n as a NUL-terminated user string, for path
// operations that hand the result straight to package dir.
func argustr(p *proc.Proc_t, n int) (ustr.Ustr, defs.Err_t) {
	return p.As.Userstr(int(arg(p, n)), limits.MAX_PATH)
}

func argstr(p *proc.Proc_t, n int) (string, defs.Err_t) {
	us, err := argustr(p, n)
	if err != 0 {
		return "", err
	}
	return us.String(), 0
}

// cwdInode returns the Inode_t backing a process's current working
// directory. Every Cwd_t this kernel constructs wraps a File_t opened
// against an inode (MkRootCwd, sysChdir), never a pipe or device, so
// the type assertion always holds.
func cwdInode(p *proc.Proc_t) *inode.Inode_t {
	return p.Cwd.Fd.Fops.(*file.File_t).Ip
}

// argfd decodes argument n as a process file descriptor, returning its
// slot index and the *fd.Fd_t it names.
func argfd(p *proc.Proc_t, n int) (int, *fd.Fd_t, defs.Err_t) {
	fdn := argint(p, n)
	if fdn < 0 || fdn >= proc.NOFILE {
		return 0, nil, -defs.EBADF
	}
	f := p.Ofile[fdn]
	if f == nil {
		return 0, nil, -defs.EBADF
	}
	return fdn, f, 0
}

// allocfd finds a process's lowest-numbered free descriptor slot.
func allocfd(p *proc.Proc_t) (int, defs.Err_t) {
	for i := 0; i < proc.NOFILE; i++ {
		if p.Ofile[i] == nil {
			return i, 0
		}
	}
	return 0, -defs.ENOFD
}

// Dispatch decodes the trap frame's a7/a0..a5, invokes the named
// handler, and writes the result into a0, per spec §4.11. Invoked by
// package trap's Usertrap immediately after an ecall-from-user trap.
func Dispatch(p *proc.Proc_t) {
	callno := Syscallno_t(p.Tf.A7)

	traceEnter(p, callno)

	var ret uint64
	var err defs.Err_t

	switch callno {
	case SYS_FORK:
		ret, err = sysFork(p)
	case SYS_EXIT:
		sysExit(p) // never returns
	case SYS_WAIT:
		ret, err = sysWait(p)
	case SYS_PIPE:
		ret, err = sysPipe(p)
	case SYS_READ:
		ret, err = sysRead(p)
	case SYS_KILL:
		ret, err = sysKill(p)
	case SYS_EXEC:
		ret, err = sysExec(p)
	case SYS_FSTAT:
		ret, err = sysFstat(p)
	case SYS_CHDIR:
		ret, err = sysChdir(p)
	case SYS_DUP:
		ret, err = sysDup(p)
	case SYS_GETPID:
		ret, err = uint64(p.Pid), 0
	case SYS_SBRK:
		ret, err = sysSbrk(p)
	case SYS_SLEEP:
		ret, err = sysSleep(p)
	case SYS_UPTIME:
		ret, err = uint64(proc.Ticks()), 0
	case SYS_OPEN:
		ret, err = sysOpen(p)
	case SYS_WRITE:
		ret, err = sysWrite(p)
	case SYS_MKNOD:
		ret, err = sysMknod(p)
	case SYS_UNLINK:
		ret, err = sysUnlink(p)
	case SYS_LINK:
		ret, err = sysLink(p)
	case SYS_MKDIR:
		ret, err = sysMkdir(p)
	case SYS_CLOSE:
		ret, err = sysClose(p)
	case SYS_HALT:
		sysHalt(p) // never returns
	case SYS_ABORT:
		sysAbort(p) // never returns
	case SYS_REBOOT:
		sysReboot(p) // never returns
	case SYS_TRACE:
		ret, err = sysTrace(p)
	case SYS_DUMP_USER_PAGE_TABLE:
		ret, err = sysDumpUserPageTable(p)
	case SYS_GET_SYSTEM_INFO:
		ret, err = sysGetSystemInfo(p)
	default:
		err = -defs.EINVAL
	}

	if err != 0 {
		p.Tf.A0 = uint64(int64(err))
	} else {
		p.Tf.A0 = ret
	}
}

// readInto copies n bytes from fd f into a trap-frame-described user
// buffer, per spec §4.10's read() dispatch.
func readInto(p *proc.Proc_t, f *fd.Fd_t, uva, n int) (uint64, defs.Err_t) {
	ub := p.As.Mkuserbuf(uva, n)
	cnt, err := f.Fops.Read(ub)
	return uint64(cnt), err
}

func writeFrom(p *proc.Proc_t, f *fd.Fd_t, uva, n int) (uint64, defs.Err_t) {
	ub := p.As.Mkuserbuf(uva, n)
	cnt, err := f.Fops.Write(ub)
	return uint64(cnt), err
}
