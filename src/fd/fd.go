// Package fd is the open-file-descriptor layer between a process's Ofile
// table and the file/pipe/device bodies fdops.Fdops_i abstracts over: a
// descriptor is just a Fdops_i plus its open-mode permission bits, and a
// process's current directory is a descriptor plus the canonical path it
// was opened at.
package fd

import (
	"sync"

	"bpath"
	"defs"
	"fdops"
	"ustr"
)

// File descriptor permission bits.
const (
	FD_READ    = 0x1 // read permission
	FD_WRITE   = 0x2 // write permission
	FD_CLOEXEC = 0x4 // close-on-exec flag
)

// Fd_t is one open file descriptor: the operations it dispatches to, plus
// the permission bits it was opened with.
type Fd_t struct {
	// Fops is an interface implemented via a pointer receiver, so it is
	// always a reference, never a copied value.
	Fops  fdops.Fdops_i
	Perms int
}

// Copyfd duplicates an open file descriptor by reopening its underlying
// Fops, used by fork to give a child its own reference-counted handle.
func Copyfd(fd *Fd_t) (*Fd_t, defs.Err_t) {
	nfd := &Fd_t{}
	*nfd = *fd
	err := nfd.Fops.Reopen()
	if err != 0 {
		return nil, err
	}
	return nfd, 0
}

// Close_panic closes fd, panicking if Close reports an error — used at
// exit and teardown paths where a close failure means something is
// already badly wrong with the descriptor's bookkeeping.
func Close_panic(f *Fd_t) {
	if f.Fops.Close() != 0 {
		panic("must succeed")
	}
}

// Cwd_t is a process's current working directory: the descriptor for it
// plus the canonical path string that names it, serialized against
// concurrent chdirs by its own mutex.
type Cwd_t struct {
	sync.Mutex

	Fd   *Fd_t
	Path ustr.Ustr
}

// Fullpath prefixes p with cwd's path unless p is already absolute.
func (cwd *Cwd_t) Fullpath(p ustr.Ustr) ustr.Ustr {
	if p.IsAbsolute() {
		return p
	}
	full := append(cwd.Path, '/')
	return append(full, p...)
}

// Canonicalpath resolves p relative to cwd and normalizes the result —
// collapsing slashes and ".."/"." components — via bpath.Canonicalize.
func (cwd *Cwd_t) Canonicalpath(p ustr.Ustr) ustr.Ustr {
	p1 := cwd.Fullpath(p)
	return bpath.Canonicalize(p1)
}

// MkRootCwd builds the root process's Cwd_t: fd opened on "/", path "/".
func MkRootCwd(fd *Fd_t) *Cwd_t {
	c := &Cwd_t{}
	c.Fd = fd
	c.Path = ustr.MkUstrRoot()
	return c
}
