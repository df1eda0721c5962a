// Package file implements spec §4.10's three File variants (pipe,
// inode, device) behind one fdops.Fdops_i, plus the system-wide
// NFILE-entry open-file table every open()/pipe()/dup() allocates
// from. No teacher source for this layer survived retrieval — it is
// built from spec §4.10's prose and xv6's well-known file.c design
// (one tagged union of {pipe, inode, device}, Fileread/Filewrite
// dispatching on the tag, a bounded system-wide table with dup/close
// refcounting), wired onto the packages already adapted from the
// teacher below it (inode, pipe) and the fdops vtable contract the
// teacher's fd.Fd_t expects.
package file

import (
	"defs"
	"fdops"
	"inode"
	"limits"
	"lock"
	"pipe"
	"stat"
)

// Ftype_t tags which of spec §4.10's three File variants a File_t is.
type Ftype_t int

const (
	FD_NONE Ftype_t = iota
	FD_PIPE
	FD_INODE
	FD_DEVICE
)

// NFILE is the system-wide open-file table size, per spec §3/§5.
const NFILE = limits.NFILE

// File_t is one entry in the system-wide open-file table: a tagged
// union over a pipe end, an inode-backed regular file (with its own
// read/write offset), or a device (console and friends), satisfying
// fdops.Fdops_i so it can sit directly behind a fd.Fd_t.
type File_t struct {
	lock.Spinlock_t
	Type      Ftype_t
	Readable  bool
	Writable  bool
	refcnt    int

	Pi *pipe.Pipe_t

	Fs  *inode.Fs_t
	Ip  *inode.Inode_t
	Off uint32

	Major int
	Minor int
	Dev   fdops.Fdops_i
}

// Table_t is the bounded system-wide open-file table.
type Table_t struct {
	mu   lock.Spinlock_t
	rows [NFILE]File_t
}

var Systable Table_t

// Alloc claims a free table slot with refcnt 1, or -ENOFILE if none.
func (t *Table_t) Alloc() (*File_t, defs.Err_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.rows {
		f := &t.rows[i]
		if f.Type == FD_NONE && f.refcnt == 0 {
			f.refcnt = 1
			return f, 0
		}
	}
	return nil, -defs.ENOFILE
}

// NOpen reports how many table rows are currently in use, backing the
// open-file count in the get_system_info syscall.
func (t *Table_t) NOpen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for i := range t.rows {
		if t.rows[i].Type != FD_NONE {
			n++
		}
	}
	return n
}

// MkPipeEnd wires a table slot to one end of a pipe.
func MkPipeEnd(f *File_t, p *pipe.Pipe_t, readable, writable bool) {
	f.Type = FD_PIPE
	f.Pi = p
	f.Readable = readable
	f.Writable = writable
}

// MkInodeFile wires a table slot to an open regular file or directory.
func MkInodeFile(f *File_t, fs_ *inode.Fs_t, ip *inode.Inode_t, readable, writable bool) {
	f.Type = FD_INODE
	f.Fs = fs_
	f.Ip = ip
	f.Readable = readable
	f.Writable = writable
}

// MkDeviceFile wires a table slot to a device's fdops.Fdops_i, per
// spec §4.10's device-file variant (major/minor identify the device;
// the device's own Read/Write vtable does the actual work — this
// kernel's only device is the console, major 1).
func MkDeviceFile(f *File_t, major, minor int, dev fdops.Fdops_i, readable, writable bool) {
	f.Type = FD_DEVICE
	f.Major = major
	f.Minor = minor
	f.Dev = dev
	f.Readable = readable
	f.Writable = writable
}

// Dup bumps the table entry's reference count, for fork/dup2.
func (t *Table_t) Dup(f *File_t) {
	t.mu.Lock()
	f.refcnt++
	t.mu.Unlock()
}

// Close implements spec §4.10's close(): drops a reference, and on the
// last reference releases the underlying pipe end or inode.
func (f *File_t) Close() defs.Err_t {
	Systable.mu.Lock()
	f.refcnt--
	last := f.refcnt == 0
	Systable.mu.Unlock()
	if !last {
		return 0
	}

	switch f.Type {
	case FD_PIPE:
		if f.Readable {
			f.Pi.CloseReader()
		}
		if f.Writable {
			f.Pi.CloseWriter()
		}
	case FD_INODE:
		op := f.Fs.Log.Begin_op()
		f.Fs.PutInode(op, f.Ip)
		op.End_op()
	case FD_DEVICE:
		f.Dev.Close()
	}
	f.Type = FD_NONE
	f.Pi = nil
	f.Fs = nil
	f.Ip = nil
	f.Dev = nil
	return 0
}

// Reopen is a no-op: this kernel's files carry no per-open resource
// that a second fd referencing the same table entry needs to reacquire.
func (f *File_t) Reopen() defs.Err_t { return 0 }

// Read implements spec §4.10's combined file-read dispatch.
func (f *File_t) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	if !f.Readable {
		return 0, -defs.EINVAL
	}
	switch f.Type {
	case FD_PIPE:
		return f.Pi.Read(dst)
	case FD_INODE:
		f.Lock()
		defer f.Unlock()
		f.Fs.LockInode(f.Ip)
		buf := make([]uint8, dst.Remain())
		n, err := f.Fs.Readi(f.Ip, int(f.Off), buf)
		f.Fs.UnlockInode(f.Ip)
		if err != 0 {
			return 0, err
		}
		if n > 0 {
			if _, werr := dst.Uiowrite(buf[:n]); werr != 0 {
				return 0, werr
			}
			f.Off += uint32(n)
		}
		return n, 0
	case FD_DEVICE:
		return f.Dev.Read(dst)
	default:
		return 0, -defs.EINVAL
	}
}

// Write implements spec §4.10's combined file-write dispatch; inode
// writes run inside their own log transaction per spec §4.7's "every
// file-system-mutating operation wraps begin_op/end_op".
func (f *File_t) Write(src fdops.Userio_i) (int, defs.Err_t) {
	if !f.Writable {
		return 0, -defs.EINVAL
	}
	switch f.Type {
	case FD_PIPE:
		return f.Pi.Write(src)
	case FD_INODE:
		f.Lock()
		defer f.Unlock()
		buf := make([]uint8, src.Remain())
		if _, err := src.Uioread(buf); err != 0 {
			return 0, err
		}
		op := f.Fs.Log.Begin_op()
		f.Fs.LockInode(f.Ip)
		n, err := f.Fs.Writei(op, f.Ip, int(f.Off), buf)
		if n > 0 {
			f.Fs.UpdateInode(op, f.Ip)
			f.Off += uint32(n)
		}
		f.Fs.UnlockInode(f.Ip)
		op.End_op()
		return n, err
	case FD_DEVICE:
		return f.Dev.Write(src)
	default:
		return 0, -defs.EINVAL
	}
}

// Fstat implements spec §4.10's fstat(): populated only for inode and
// device files (pipes have no stat-able identity).
func (f *File_t) Fstat(st *stat.Stat_t) defs.Err_t {
	switch f.Type {
	case FD_INODE:
		f.Fs.LockInode(f.Ip)
		st.Wino(uint(f.Ip.Inum))
		st.Wmode(uint(f.Ip.Type))
		st.Wsize(uint(f.Ip.Size))
		f.Fs.UnlockInode(f.Ip)
		return 0
	case FD_DEVICE:
		return f.Dev.Fstat(st)
	default:
		return -defs.EINVAL
	}
}
