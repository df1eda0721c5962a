package syscalls

import (
	"defs"
	"dir"
	"fd"
	"fdops"
	"file"
	"inode"
	"mem"
	"pipe"
	"proc"
	"stat"
)

// Open flags, per spec §6's ABI note and original_source's OpenFlags
// bitflags (READ_ONLY/WRITE_ONLY/READ_WRITE/CREATE/TRUNC), renamed to
// the xv6-style O_* spelling the rest of this kernel's naming follows.
const (
	O_RDONLY = 0x000
	O_WRONLY = 0x001
	O_RDWR   = 0x002
	O_CREATE = 0x200
	O_TRUNC  = 0x400
)

// devtab maps a device major number to the Fdops_i a device-file open
// should dispatch through, per spec §4.10's "device files route to a
// small device table with read/write function pointers; the console
// is device 1."
var devtab [defs.D_LAST + 1]fdops.Fdops_i

// RegisterDevice wires a major number to its device implementation.
// Called once at boot for each device this kernel exposes (console on
// defs.D_CONSOLE; others left unregistered return ENXIO-shaped EINVAL
// on open).
func RegisterDevice(major int, dev fdops.Fdops_i) {
	devtab[major] = dev
}

// openFd installs f behind a fresh process descriptor, the final step
// shared by open/pipe/dup.
func openFd(p *proc.Proc_t, f *file.File_t, perms int) (int, defs.Err_t) {
	fdn, err := allocfd(p)
	if err != 0 {
		return 0, err
	}
	p.Ofile[fdn] = &fd.Fd_t{Fops: f, Perms: perms}
	return fdn, 0
}

// sysOpen implements open(path, flags), per spec §4.10/§4.11.
func sysOpen(p *proc.Proc_t) (uint64, defs.Err_t) {
	path, err := argustr(p, 0)
	if err != 0 {
		return 0, err
	}
	flags := argint(p, 1)

	op := theFs.Log.Begin_op()
	defer op.End_op()

	var ip *inode.Inode_t
	if flags&O_CREATE != 0 {
		ip, err = dir.Create(op, theFs, rootInode, cwdInode(p), path, inode.I_FILE, 0, 0)
	} else {
		ip, err = dir.Resolve(theFs, rootInode, cwdInode(p), path)
	}
	if err != 0 {
		return 0, err
	}
	// Both Create and Resolve hand back an unlocked inode; lock it here
	// so the rest of this function can read/update its fields safely.
	theFs.LockInode(ip)

	accmode := flags & (O_RDONLY | O_WRONLY | O_RDWR)
	if ip.Type == inode.I_DIR && accmode != O_RDONLY {
		theFs.UnlockInode(ip)
		theFs.PutInode(op, ip)
		return 0, -defs.EISDIR
	}
	if flags&O_TRUNC != 0 && ip.Type == inode.I_FILE {
		ip.Size = 0
		theFs.UpdateInode(op, ip)
	}

	readable := accmode == O_RDONLY || accmode == O_RDWR
	writable := accmode == O_WRONLY || accmode == O_RDWR

	var f *file.File_t
	if ip.Type == inode.I_DEV {
		var dev fdops.Fdops_i
		major := int(ip.Major)
		if major >= defs.D_FIRST && major <= defs.D_LAST {
			dev = devtab[major]
		}
		if dev == nil {
			theFs.UnlockInode(ip)
			theFs.PutInode(op, ip)
			return 0, -defs.EINVAL
		}
		f, err = file.Systable.Alloc()
		if err != 0 {
			theFs.UnlockInode(ip)
			theFs.PutInode(op, ip)
			return 0, err
		}
		file.MkDeviceFile(f, int(ip.Major), int(ip.Minor), dev, readable, writable)
		theFs.UnlockInode(ip)
	} else {
		f, err = file.Systable.Alloc()
		if err != 0 {
			theFs.UnlockInode(ip)
			theFs.PutInode(op, ip)
			return 0, err
		}
		file.MkInodeFile(f, theFs, ip, readable, writable)
		theFs.UnlockInode(ip)
	}

	perms := 0
	if readable {
		perms |= fd.FD_READ
	}
	if writable {
		perms |= fd.FD_WRITE
	}
	fdn, ferr := openFd(p, f, perms)
	if ferr != 0 {
		f.Close()
		return 0, ferr
	}
	return uint64(fdn), 0
}

// sysClose implements close(fd).
func sysClose(p *proc.Proc_t) (uint64, defs.Err_t) {
	fdn, f, err := argfd(p, 0)
	if err != 0 {
		return 0, err
	}
	p.Ofile[fdn] = nil
	return 0, f.Fops.Close()
}

// sysDup implements dup(fd): installs a second reference to the same
// table entry at the lowest free descriptor.
func sysDup(p *proc.Proc_t) (uint64, defs.Err_t) {
	_, f, err := argfd(p, 0)
	if err != 0 {
		return 0, err
	}
	nf, err := fd.Copyfd(f)
	if err != 0 {
		return 0, err
	}
	fdn, err := allocfd(p)
	if err != 0 {
		nf.Fops.Close()
		return 0, err
	}
	p.Ofile[fdn] = nf
	return uint64(fdn), 0
}

// sysRead implements read(fd, buf, n).
func sysRead(p *proc.Proc_t) (uint64, defs.Err_t) {
	_, f, err := argfd(p, 0)
	if err != 0 {
		return 0, err
	}
	uva := argint(p, 1)
	n := argint(p, 2)
	if n < 0 {
		return 0, -defs.EINVAL
	}
	return readInto(p, f, uva, n)
}

// sysWrite implements write(fd, buf, n).
func sysWrite(p *proc.Proc_t) (uint64, defs.Err_t) {
	_, f, err := argfd(p, 0)
	if err != 0 {
		return 0, err
	}
	uva := argint(p, 1)
	n := argint(p, 2)
	if n < 0 {
		return 0, -defs.EINVAL
	}
	return writeFrom(p, f, uva, n)
}

// sysFstat implements fstat(fd, statbuf).
func sysFstat(p *proc.Proc_t) (uint64, defs.Err_t) {
	_, f, err := argfd(p, 0)
	if err != 0 {
		return 0, err
	}
	uva := argint(p, 1)
	var st stat.Stat_t
	if serr := f.Fops.Fstat(&st); serr != 0 {
		return 0, serr
	}
	if werr := p.As.K2user(st.Bytes(), uva); werr != 0 {
		return 0, werr
	}
	return 0, 0
}

// sysChdir implements chdir(path): resolves the new directory, swaps
// it in for the process's cwd under the cwd lock, and closes the old
// one.
func sysChdir(p *proc.Proc_t) (uint64, defs.Err_t) {
	path, err := argustr(p, 0)
	if err != 0 {
		return 0, err
	}

	op := theFs.Log.Begin_op()
	ip, err := dir.Resolve(theFs, rootInode, cwdInode(p), path)
	if err != 0 {
		op.End_op()
		return 0, err
	}
	// Resolve hands back an unlocked inode; lock it before reading Type.
	theFs.LockInode(ip)
	if ip.Type != inode.I_DIR {
		theFs.UnlockInode(ip)
		theFs.PutInode(op, ip)
		op.End_op()
		return 0, -defs.ENOTDIR
	}
	f, err := file.Systable.Alloc()
	if err != 0 {
		theFs.UnlockInode(ip)
		theFs.PutInode(op, ip)
		op.End_op()
		return 0, err
	}
	file.MkInodeFile(f, theFs, ip, true, false)
	theFs.UnlockInode(ip)
	op.End_op()

	p.Cwd.Lock()
	old := p.Cwd.Fd
	p.Cwd.Fd = &fd.Fd_t{Fops: f, Perms: fd.FD_READ}
	p.Cwd.Path = p.Cwd.Canonicalpath(path)
	p.Cwd.Unlock()
	old.Fops.Close()
	return 0, 0
}

// sysMknod implements mknod(path, major, minor), creating a device
// inode; opening it later is what wires it to devtab.
func sysMknod(p *proc.Proc_t) (uint64, defs.Err_t) {
	path, err := argustr(p, 0)
	if err != 0 {
		return 0, err
	}
	major := int16(argint(p, 1))
	minor := int16(argint(p, 2))

	op := theFs.Log.Begin_op()
	defer op.End_op()
	ip, err := dir.Create(op, theFs, rootInode, cwdInode(p), path, inode.I_DEV, major, minor)
	if err != 0 {
		return 0, err
	}
	// Create already returns ip unlocked.
	theFs.PutInode(op, ip)
	return 0, 0
}

// sysMkdir implements mkdir(path): dir.Create already links "." and
// ".." into the new directory and bumps both its own and the parent's
// Nlink, mirroring mkfs's own root-directory setup.
func sysMkdir(p *proc.Proc_t) (uint64, defs.Err_t) {
	path, err := argustr(p, 0)
	if err != 0 {
		return 0, err
	}
	op := theFs.Log.Begin_op()
	defer op.End_op()
	ip, err := dir.Create(op, theFs, rootInode, cwdInode(p), path, inode.I_DIR, 0, 0)
	if err != 0 {
		return 0, err
	}
	// Create already returns ip unlocked.
	theFs.PutInode(op, ip)
	return 0, 0
}

// sysUnlink implements unlink(path).
func sysUnlink(p *proc.Proc_t) (uint64, defs.Err_t) {
	path, err := argustr(p, 0)
	if err != 0 {
		return 0, err
	}
	op := theFs.Log.Begin_op()
	defer op.End_op()
	parent, name, err := dir.ResolveParent(theFs, rootInode, cwdInode(p), path)
	if err != 0 {
		return 0, err
	}
	// ResolveParent hands back an unlocked inode.
	theFs.LockInode(parent)
	uerr := dir.Unlink(op, theFs, parent, name)
	theFs.UnlockInode(parent)
	theFs.PutInode(op, parent)
	return 0, uerr
}

// sysLink implements link(old, new).
func sysLink(p *proc.Proc_t) (uint64, defs.Err_t) {
	oldpath, err := argustr(p, 0)
	if err != 0 {
		return 0, err
	}
	newpath, err := argustr(p, 1)
	if err != 0 {
		return 0, err
	}

	op := theFs.Log.Begin_op()
	defer op.End_op()

	ip, err := dir.Resolve(theFs, rootInode, cwdInode(p), oldpath)
	if err != 0 {
		return 0, err
	}
	// Resolve hands back an unlocked inode.
	theFs.LockInode(ip)
	if ip.Type == inode.I_DIR {
		theFs.UnlockInode(ip)
		theFs.PutInode(op, ip)
		return 0, -defs.EISDIR
	}
	theFs.UnlockInode(ip)

	parent, name, err := dir.ResolveParent(theFs, rootInode, cwdInode(p), newpath)
	if err != 0 {
		theFs.PutInode(op, ip)
		return 0, err
	}
	theFs.LockInode(parent)
	lerr := dir.Link(op, theFs, parent, name, ip.Inum)
	theFs.UnlockInode(parent)
	theFs.PutInode(op, parent)

	theFs.LockInode(ip)
	if lerr == 0 {
		ip.Nlink++
		theFs.UpdateInode(op, ip)
	}
	theFs.UnlockInode(ip)
	theFs.PutInode(op, ip)
	return 0, lerr
}

// sysPipe implements pipe(fdarray): allocates a ring buffer and two
// file-table entries, wires them to the two lowest free descriptors,
// and writes both numbers back to the user int[2].
func sysPipe(p *proc.Proc_t) (uint64, defs.Err_t) {
	uva := argint(p, 0)

	pi, err := pipe.MkPipe(mem.Physmem)
	if err != 0 {
		return 0, err
	}

	rf, err := file.Systable.Alloc()
	if err != 0 {
		return 0, err
	}
	wf, err := file.Systable.Alloc()
	if err != 0 {
		rf.Close()
		return 0, err
	}
	file.MkPipeEnd(rf, pi, true, false)
	file.MkPipeEnd(wf, pi, false, true)

	rfd, err := openFd(p, rf, fd.FD_READ)
	if err != 0 {
		rf.Close()
		wf.Close()
		return 0, err
	}
	wfd, err := openFd(p, wf, fd.FD_WRITE)
	if err != 0 {
		p.Ofile[rfd] = nil
		rf.Close()
		wf.Close()
		return 0, err
	}

	if werr := p.As.Userwriten(uva, 4, rfd); werr != 0 {
		return 0, werr
	}
	if werr := p.As.Userwriten(uva+4, 4, wfd); werr != 0 {
		return 0, werr
	}
	return 0, 0
}
