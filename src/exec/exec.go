// Package exec implements spec.md's exec(path, argv): parse the ELF
// image named by path, build a fresh address space from its PT_LOAD
// segments plus a guard page and stack, push argv, and atomically swap
// the new image in for the calling process's current one. Grounded on
// stdlib debug/elf exactly as cmd/chentry/chentry.go demonstrates
// (elf.NewFile, FileHeader validation against magic/machine), adapted
// from a post-link header patcher into a full loader that also walks
// program headers and maps segments (spec.md §4.12).
package exec

import (
	"debug/elf"
	"errors"

	"bounds"
	"defs"
	"dir"
	"inode"
	"limits"
	"mem"
	"proc"
	"res"
	"riscv"
	"ustr"
	"vm"
)

// inodeReader adapts an Fs_t/Inode_t pair to io.ReaderAt so debug/elf can
// parse the image without a full in-memory copy.
type inodeReader struct {
	fs_ *inode.Fs_t
	ip  *inode.Inode_t
}

func (r *inodeReader) ReadAt(p []byte, off int64) (int, error) {
	n, err := r.fs_.Readi(r.ip, int(off), p)
	if err != 0 {
		return n, errors.New(defs.Errstring(err))
	}
	if n < len(p) {
		return n, errShortRead
	}
	return n, nil
}

var errShortRead = errors.New("exec: short read from inode")

// Exec implements spec.md's exec: resolves path, validates and loads the
// ELF image it names, and on success replaces p's address space and
// resets its trap frame to the new entry point. On any failure the
// process is left completely unchanged — every partial allocation made
// while building the new image is freed before returning.
func Exec(p *proc.Proc_t, fs_ *inode.Fs_t, root, cwd *inode.Inode_t, path ustr.Ustr, argv []string) defs.Err_t {
	if len(argv) > limits.MAX_ARG {
		return -defs.EINVAL
	}

	ip, err := dir.Resolve(fs_, root, cwd, path)
	if err != 0 {
		return err
	}
	fs_.LockInode(ip)
	defer func() {
		fs_.UnlockInode(ip)
		fs_.PutInode(nil, ip)
	}()

	ef, eerr := elf.NewFile(&inodeReader{fs_: fs_, ip: ip})
	if eerr != nil {
		return -defs.EINVAL
	}
	var ident [4]byte
	if _, rerr := (&inodeReader{fs_: fs_, ip: ip}).ReadAt(ident[:], 0); rerr != nil || ident[0] != 0x7f || string(ident[1:4]) != "ELF" {
		return -defs.EINVAL
	}
	if ef.Type != elf.ET_EXEC || ef.Machine != elf.EM_RISCV {
		return -defs.EINVAL
	}

	as, perr := proc.PrepExecAs(p)
	if perr != 0 {
		return perr
	}

	sz, lerr := loadSegments(fs_, ip, as, ef)
	if lerr != 0 {
		as.Uvmfree()
		return lerr
	}

	sz, guardVa, stackTop, serr := mapStackAndGuard(as, sz)
	if serr != 0 {
		as.Uvmfree()
		return serr
	}
	_ = guardVa

	sp, argvUva, perr2 := pushArgv(as, stackTop, sz, argv)
	if perr2 != 0 {
		as.Uvmfree()
		return perr2
	}

	as.Sz = sz
	proc.CommitExecAs(p, as, uint64(ef.Entry), uint64(sp))
	p.Tf.A1 = uint64(argvUva)
	return 0
}

// segPerm translates an ELF program header's R/W/X flags into the PTE
// permission bits Mappages expects, always user-accessible.
func segPerm(flags elf.ProgFlag) mem.Pa_t {
	perm := mem.Pa_t(riscv.PTE_U)
	if flags&elf.PF_R != 0 {
		perm |= riscv.PTE_R
	}
	if flags&elf.PF_W != 0 {
		perm |= riscv.PTE_W
	}
	if flags&elf.PF_X != 0 {
		perm |= riscv.PTE_X
	}
	return perm
}

// loadSegments maps and populates every PT_LOAD program header, per
// spec.md §4.12: "allocate and map pages with requested permissions;
// readi the file contents into physical frames via the kernel direct
// map." Returns the address-space size immediately above the highest
// loaded segment.
func loadSegments(fs_ *inode.Fs_t, ip *inode.Inode_t, as *vm.Vm_t, ef *elf.File) (uintptr, defs.Err_t) {
	var sz uintptr
	for _, ph := range ef.Progs {
		if ph.Type != elf.PT_LOAD {
			continue
		}
		if ph.Vaddr%uint64(mem.PGSIZE) != 0 {
			return 0, -defs.EINVAL
		}
		perm := segPerm(ph.Flags)
		npages := int((ph.Memsz + uint64(mem.PGSIZE) - 1) / uint64(mem.PGSIZE))
		fileOff := int(ph.Off)
		remaining := int(ph.Filesz)
		for i := 0; i < npages; i++ {
			if !res.Resadd_noblock(bounds.Bounds(bounds.B_EXEC_LOAD_SEGMENT)) {
				return 0, -defs.ENOHEAP
			}
			pa, ok := mem.Physmem.Alloc()
			if !ok {
				return 0, -defs.ENOMEM
			}
			va := uintptr(ph.Vaddr) + uintptr(i*mem.PGSIZE)
			if merr := vm.Mappages(as.Pagetable, va, pa, mem.PGSIZE, perm); merr != 0 {
				mem.Physmem.Free(pa)
				return 0, merr
			}
			if remaining > 0 {
				n := mem.PGSIZE
				if n > remaining {
					n = remaining
				}
				dst := mem.Physmem.Dmap8(pa)
				cnt, rerr := fs_.Readi(ip, fileOff, dst[:n])
				if rerr != 0 || cnt != n {
					if rerr == 0 {
						rerr = -defs.EINVAL
					}
					return 0, rerr
				}
				fileOff += n
				remaining -= n
			}
		}
		top := uintptr(ph.Vaddr) + uintptr(npages*mem.PGSIZE)
		if top > sz {
			sz = top
		}
	}
	if sz == 0 {
		return 0, -defs.EINVAL
	}
	return sz, 0
}

// mapStackAndGuard allocates the guard page and USER_STACK_PAGES usable
// stack pages directly above the loaded image, clearing PTE_U on the
// guard page so a user-mode access into it faults rather than silently
// running off the end of the stack — spec.md §4.12's "the lower is
// marked PTE_U=0 as a guard", with the stack's own page count grounded
// on original_source's USER_STACK_PAGES rather than the distilled
// spec's compressed "one page" description.
func mapStackAndGuard(as *vm.Vm_t, sz uintptr) (newsz, guardVa, stackTop uintptr, err defs.Err_t) {
	guardVa = sz
	stackVa := guardVa + uintptr(mem.PGSIZE)
	total := 1 + limits.USER_STACK_PAGES

	for i := 0; i < total; i++ {
		pa, ok := mem.Physmem.Alloc()
		if !ok {
			return 0, 0, 0, -defs.ENOMEM
		}
		va := guardVa + uintptr(i*mem.PGSIZE)
		perm := mem.Pa_t(riscv.PTE_R | riscv.PTE_W | riscv.PTE_U)
		if merr := vm.Mappages(as.Pagetable, va, pa, mem.PGSIZE, perm); merr != 0 {
			mem.Physmem.Free(pa)
			return 0, 0, 0, merr
		}
	}

	pte, ok := vm.Walk(as.Pagetable, guardVa, false)
	if !ok {
		return 0, 0, 0, -defs.ENOMEM
	}
	*pte &^= mem.Pa_t(riscv.PTE_U)

	newsz = guardVa + uintptr(total*mem.PGSIZE)
	return newsz, guardVa, stackVa, 0
}

// pushArgv copies argv's strings and a NUL-terminated pointer array onto
// the top of the stack, 16-byte aligned, per spec.md §4.12. Returns the
// new stack pointer and the user address of the pointer array (for a1).
func pushArgv(as *vm.Vm_t, stackTop, sz uintptr, argv []string) (uintptr, uintptr, defs.Err_t) {
	stackBase := stackTop
	stackLimit := sz // one past the last mapped stack byte

	sp := stackLimit
	var uptrs [limits.MAX_ARG + 1]uintptr

	for i := len(argv) - 1; i >= 0; i-- {
		s := argv[i]
		n := len(s) + 1
		sp -= uintptr(n)
		sp -= sp % 16
		if sp < stackBase {
			return 0, 0, -defs.EINVAL
		}
		if err := writeStackBytes(as, sp, []byte(s+"\x00")); err != 0 {
			return 0, 0, err
		}
		uptrs[i] = sp
	}
	uptrs[len(argv)] = 0

	argvBytes := (len(argv) + 1) * 8
	sp -= uintptr(argvBytes)
	sp -= sp % 16
	if sp < stackBase {
		return 0, 0, -defs.EINVAL
	}
	for i := 0; i <= len(argv); i++ {
		if err := writeStackWord(as, sp+uintptr(i*8), uint64(uptrs[i])); err != 0 {
			return 0, 0, err
		}
	}
	argvUva := sp

	return sp, argvUva, 0
}

// writeStackBytes copies raw bytes into the new, not-yet-installed
// address space by translating va to its backing physical frame and
// writing through the kernel direct map, since as.K2user cannot be used
// before CommitExecAs swaps this pagetable into satp.
func writeStackBytes(as *vm.Vm_t, va uintptr, b []byte) defs.Err_t {
	off := 0
	for off < len(b) {
		pageva := (va + uintptr(off)) &^ uintptr(riscv.PGOFFMASK)
		pte, ok := vm.Walk(as.Pagetable, pageva, false)
		if !ok || *pte&riscv.PTE_V == 0 {
			return -defs.EFAULT
		}
		pa := vm.PTE2PA(*pte)
		pg := mem.Physmem.Dmap8(pa)
		pageoff := int((va + uintptr(off)) & uintptr(riscv.PGOFFMASK))
		n := copy(pg[pageoff:], b[off:])
		off += n
	}
	return 0
}

func writeStackWord(as *vm.Vm_t, va uintptr, val uint64) defs.Err_t {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(val >> (8 * i))
	}
	return writeStackBytes(as, va, buf[:])
}
