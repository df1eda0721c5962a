package vm

import (
	"sync"
	"time"

	"defs"
	"mem"
	"riscv"
	"ustr"
	"util"
)

/// Vm_t is a process's address space: its Sv39 page table plus the high
/// end of user memory it currently maps (Sz — everything below it is
/// assumed mapped; there are no holes, since this kernel has no mmap).
/// The mutex serializes page-table mutation against concurrent syscalls on
/// sibling threads — moot today (one thread per process) but kept because
/// the scheduler may run a trap handler that touches this process's
/// mappings (e.g. exit tearing down a sibling) concurrently with a syscall.
type Vm_t struct {
	sync.Mutex

	Pagetable   *mem.Pmap_t
	P_pagetable mem.Pa_t
	Sz          uintptr
}

/// Mkvm allocates an empty address space with no user mappings.
func Mkvm() (*Vm_t, bool) {
	pt, p_pt, ok := Mkpagetable()
	if !ok {
		return nil, false
	}
	return &Vm_t{Pagetable: pt, P_pagetable: p_pt}, true
}

/// Growuvm eagerly allocates and maps zeroed frames to grow the address
/// space from oldsz to newsz (sbrk growing, or populating an exec image).
/// There is no lazy fault path: the instant this returns, every page in
/// [oldsz, newsz) is present and zeroed.
func (as *Vm_t) Growuvm(oldsz, newsz uintptr) (uintptr, defs.Err_t) {
	if newsz < oldsz {
		return oldsz, 0
	}
	oldsz = uintptr(util.Roundup(int(oldsz), mem.PGSIZE))
	for va := oldsz; va < newsz; va += uintptr(mem.PGSIZE) {
		pa, ok := mem.Physmem.Alloc()
		if !ok {
			as.Shrinkuvm(oldsz, va)
			return oldsz, -defs.ENOMEM
		}
		perm := mem.Pa_t(riscv.PTE_U | riscv.PTE_R | riscv.PTE_W)
		if Mappages(as.Pagetable, va, pa, mem.PGSIZE, perm) != 0 {
			mem.Physmem.Free(pa)
			as.Shrinkuvm(oldsz, va)
			return oldsz, -defs.ENOMEM
		}
	}
	as.Sz = newsz
	return newsz, 0
}

/// Shrinkuvm unmaps and frees every page in [newsz, oldsz), used by sbrk
/// shrinking and by the partial unwind in Growuvm's own failure path.
func (as *Vm_t) Shrinkuvm(newsz, oldsz uintptr) uintptr {
	newsz = uintptr(util.Roundup(int(newsz), mem.PGSIZE))
	oldsz = uintptr(util.Roundup(int(oldsz), mem.PGSIZE))
	if newsz >= oldsz {
		return oldsz
	}
	npages := int((oldsz - newsz) / uintptr(mem.PGSIZE))
	Unmappages(as.Pagetable, newsz, npages, true)
	return newsz
}

/// Uvmfree tears down every user mapping and frees the page table itself.
/// Called once, when a process exits and its last reference drops.
/// A TRAPFRAME or TRAMPOLINE mapping is removed without freeing its frame.
func (as *Vm_t) Uvmfree() {
	for _, va := range []uintptr{riscv.TRAPFRAME, riscv.TRAMPOLINE} {
		if pte, ok := Walk(as.Pagetable, va, false); ok && *pte&riscv.PTE_V != 0 {
			*pte = 0
		}
	}
	Uvmfree(as.Pagetable, as.P_pagetable, as.Sz)
}

/// Fork eagerly duplicates the entire address space for a child process —
/// this kernel copies rather than sharing-with-COW (spec.md Non-goals).
func (as *Vm_t) Fork() (*Vm_t, bool) {
	pt, p_pt, ok := Uvmcopy(as.Pagetable, as.Sz)
	if !ok {
		return nil, false
	}
	return &Vm_t{Pagetable: pt, P_pagetable: p_pt, Sz: as.Sz}, true
}

/// Userdmap8 returns a kernel-accessible slice onto the user page
/// containing va, or EFAULT if va is not mapped. Unlike the teacher's
/// Userdmap8_inner there is no page-fault path to invoke: every mapping
/// below as.Sz already has a backing frame, so an unmapped address is
/// simply an invalid access, never something to lazily populate.
func (as *Vm_t) Userdmap8(va uintptr, write bool) ([]uint8, defs.Err_t) {
	pte, ok := Walk(as.Pagetable, va&^uintptr(mem.PGOFFSET), false)
	if !ok || pte == nil || *pte&riscv.PTE_V == 0 || *pte&riscv.PTE_U == 0 {
		return nil, -defs.EFAULT
	}
	if write && *pte&riscv.PTE_W == 0 {
		return nil, -defs.EFAULT
	}
	pg := mem.Physmem.Dmap(PTE2PA(*pte))
	bpg := mem.Pg2bytes(pg)
	voff := va & uintptr(mem.PGOFFSET)
	return bpg[voff:], 0
}

/// K2user copies src into user memory starting at uva.
func (as *Vm_t) K2user(src []uint8, uva int) defs.Err_t {
	as.Lock()
	defer as.Unlock()
	cnt := 0
	for cnt != len(src) {
		dst, err := as.Userdmap8(uintptr(uva+cnt), true)
		if err != 0 {
			return err
		}
		n := copy(dst, src[cnt:])
		if n == 0 {
			return -defs.EFAULT
		}
		cnt += n
	}
	return 0
}

/// User2k copies len(dst) bytes from user memory at uva into dst.
func (as *Vm_t) User2k(dst []uint8, uva int) defs.Err_t {
	as.Lock()
	defer as.Unlock()
	cnt := 0
	for cnt != len(dst) {
		src, err := as.Userdmap8(uintptr(uva+cnt), false)
		if err != 0 {
			return err
		}
		n := copy(dst[cnt:], src)
		if n == 0 {
			return -defs.EFAULT
		}
		cnt += n
	}
	return 0
}

/// Userreadn reads n (<= 8) bytes from user memory at va as a little-endian
/// integer.
func (as *Vm_t) Userreadn(va, n int) (int, defs.Err_t) {
	if n > 8 {
		panic("vm.Userreadn: n too large")
	}
	var buf [8]uint8
	if err := as.User2k(buf[:n], va); err != 0 {
		return 0, err
	}
	return util.Readn(buf[:n], n, 0), 0
}

/// Userwriten writes the low n bytes of val to user memory at va.
func (as *Vm_t) Userwriten(va, n, val int) defs.Err_t {
	if n > 8 {
		panic("vm.Userwriten: n too large")
	}
	var buf [8]uint8
	util.Writen(buf[:n], n, 0, val)
	return as.K2user(buf[:n], va)
}

/// Userstr copies a NUL-terminated string from user memory, up to lenmax
/// bytes, returning ENAMETOOLONG if no NUL is found in time.
func (as *Vm_t) Userstr(uva int, lenmax int) (ustr.Ustr, defs.Err_t) {
	if lenmax < 0 {
		return nil, 0
	}
	as.Lock()
	defer as.Unlock()
	s := ustr.MkUstr()
	for i := 0; len(s) < lenmax; {
		chunk, err := as.Userdmap8(uintptr(uva+i), false)
		if err != 0 {
			return nil, err
		}
		for j, c := range chunk {
			if c == 0 {
				return append(s, chunk[:j]...), 0
			}
		}
		s = append(s, chunk...)
		i += len(chunk)
	}
	return nil, -defs.ENAMETOOLONG
}

/// Usertimespec reads a {secs, nsecs} pair from user memory at va.
func (as *Vm_t) Usertimespec(va int) (time.Duration, defs.Err_t) {
	secs, err := as.Userreadn(va, 8)
	if err != 0 {
		return 0, err
	}
	nsecs, err := as.Userreadn(va+8, 8)
	if err != 0 {
		return 0, err
	}
	if secs < 0 || nsecs < 0 {
		return 0, -defs.EINVAL
	}
	return time.Duration(secs)*time.Second + time.Duration(nsecs)*time.Nanosecond, 0
}

/// Mkuserbuf allocates and initializes a Userbuf_t over [userva, userva+len)
/// in this address space.
func (as *Vm_t) Mkuserbuf(userva, len int) *Userbuf_t {
	ret := &Userbuf_t{}
	ret.ub_init(as, userva, len)
	return ret
}
