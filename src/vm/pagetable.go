// Package vm implements Sv39 page tables and the process address-space
// (Vm_t) abstraction built on top of them: walk/map/unmap, eager allocation
// on growth, eager whole-address-space copy for fork, and the user-copy
// primitives syscalls use to move bytes across the kernel/user boundary.
//
// Grounded on the teacher's vm/as.go and vm/userbuf.go, with the
// copy-on-write/demand-paging machinery those files built on (Vmregion_t,
// Vminfo_t, Sys_pgfault, the refcounted Physmem) stripped: none of that
// source survived retrieval, and spec.md's Non-goals rule out demand
// paging, COW, and mmap outright, so every mapping here is backed by an
// already-allocated, already-zeroed frame the moment it is created. The
// Sv39 walk itself is grounded on riscv.PTIDXBITS/PGSHIFT/PTE_* and on
// other_examples/db055d78_tinyrange-cc__internal-hv-riscv-rv64-mmu.go.go's
// three-level index arithmetic.
package vm

import (
	"defs"
	"mem"
	"riscv"
)

const perLevelBits = riscv.PTIDXBITS

/// vpn extracts the 9-bit virtual page number for the given Sv39 level
/// (2 = top, 0 = leaf) out of a virtual address.
func vpn(va uintptr, level int) int {
	shift := riscv.PGSHIFT + uint(level)*perLevelBits
	return int((va >> shift) & riscv.PTIDXMASK)
}

/// PTE2PA extracts the physical page number a raw Sv39 PTE points to.
func PTE2PA(pte mem.Pa_t) mem.Pa_t {
	return (pte >> riscv.PteShift) << riscv.PGSHIFT
}

/// PA2PTE packs a physical address into the PPN field of a raw PTE, with
/// no flag bits set.
func PA2PTE(pa mem.Pa_t) mem.Pa_t {
	return (pa >> riscv.PGSHIFT) << riscv.PteShift
}

/// Walk returns a pointer to the leaf PTE for va within pagetable,
/// allocating intermediate (level-2 and level-1) page-table pages on
/// demand when alloc is true. It never allocates the leaf frame itself —
/// that is the caller's job (spec.md's kernel is eager: every leaf mapping
/// is installed with its backing frame already in hand).
func Walk(pagetable *mem.Pmap_t, va uintptr, alloc bool) (*mem.Pa_t, bool) {
	if va >= riscv.MAXVA {
		panic("vm.Walk: va too large")
	}
	table := pagetable
	for level := 2; level > 0; level-- {
		pte := &table[vpn(va, level)]
		if *pte&riscv.PTE_V != 0 {
			table = (*mem.Pmap_t)(mem.Physmem.Dmapptr(PTE2PA(*pte)))
			continue
		}
		if !alloc {
			return nil, false
		}
		pa, ok := mem.Physmem.Alloc()
		if !ok {
			return nil, false
		}
		*pte = PA2PTE(pa) | riscv.PTE_V
		table = (*mem.Pmap_t)(mem.Physmem.Dmapptr(pa))
	}
	return &table[vpn(va, 0)], true
}

/// Mappages installs len(size)-in-pages leaf mappings starting at va,
/// mapping consecutive physical frames starting at pa, with the given PTE
/// permission bits (PTE_V is added automatically).
func Mappages(pagetable *mem.Pmap_t, va uintptr, pa mem.Pa_t, size int, perm mem.Pa_t) defs.Err_t {
	if size == 0 {
		panic("vm.Mappages: zero size")
	}
	start := va &^ uintptr(mem.PGOFFSET)
	last := (va + uintptr(size) - 1) &^ uintptr(mem.PGOFFSET)
	for {
		pte, ok := Walk(pagetable, start, true)
		if !ok {
			return -defs.ENOMEM
		}
		if *pte&riscv.PTE_V != 0 {
			panic("vm.Mappages: remap")
		}
		*pte = PA2PTE(pa) | perm | riscv.PTE_V
		if start == last {
			break
		}
		start += uintptr(mem.PGSIZE)
		pa += mem.Pa_t(mem.PGSIZE)
	}
	return 0
}

/// Unmappages removes npages leaf mappings starting at va. When freeFrames
/// is true the backing physical frame of each removed mapping is returned
/// to the allocator — callers pass false when unmapping a view onto memory
/// someone else owns (there is no such case left once COW is gone, but the
/// flag is kept for symmetry with Mappages's explicitness).
func Unmappages(pagetable *mem.Pmap_t, va uintptr, npages int, freeFrames bool) {
	if va&uintptr(mem.PGOFFSET) != 0 {
		panic("vm.Unmappages: unaligned va")
	}
	for i := 0; i < npages; i++ {
		a := va + uintptr(i*mem.PGSIZE)
		pte, ok := Walk(pagetable, a, false)
		if !ok || pte == nil || *pte&riscv.PTE_V == 0 {
			panic("vm.Unmappages: not mapped")
		}
		if *pte&riscv.PteFlagsMask == riscv.PTE_V {
			panic("vm.Unmappages: not a leaf")
		}
		if freeFrames {
			mem.Physmem.Free(PTE2PA(*pte))
		}
		*pte = 0
	}
}

/// Mkpagetable allocates an empty, all-zero top-level page table. Kernel
/// mappings are installed separately by the kernel package at boot (they
/// are identical in every address space and do not need to be rebuilt per
/// process).
func Mkpagetable() (*mem.Pmap_t, mem.Pa_t, bool) {
	pa, ok := mem.Physmem.Alloc()
	if !ok {
		return nil, 0, false
	}
	return (*mem.Pmap_t)(mem.Physmem.Dmapptr(pa)), pa, true
}

/// freewalk recursively frees every page-table page reachable from table,
/// panicking if it finds a still-present leaf mapping (callers must unmap
/// all user memory before calling this).
func freewalk(table *mem.Pmap_t) {
	for i := range table {
		pte := table[i]
		if pte&riscv.PTE_V == 0 {
			continue
		}
		if pte&(riscv.PTE_R|riscv.PTE_W|riscv.PTE_X) != 0 {
			panic("vm.freewalk: leaf mapping still present")
		}
		child := (*mem.Pmap_t)(mem.Physmem.Dmapptr(PTE2PA(pte)))
		freewalk(child)
		table[i] = 0
	}
}

/// Uvmfree unmaps every user leaf mapping below sz, freeing their frames,
/// then frees every page-table page and finally the root itself.
func Uvmfree(pagetable *mem.Pmap_t, p_pagetable mem.Pa_t, sz uintptr) {
	if sz > 0 {
		npages := int((sz + uintptr(mem.PGSIZE) - 1) / uintptr(mem.PGSIZE))
		Unmappages(pagetable, 0, npages, true)
	}
	freewalk(pagetable)
	mem.Physmem.Free(p_pagetable)
}

/// CopyUserPages eagerly copies every mapped page in [0, sz) from src into
/// dst, an already-allocated destination page table — unlike Uvmcopy, dst
/// is not built from scratch here, so any mappings it already carries
/// above sz (a fresh process's TRAPFRAME/TRAMPOLINE, installed before the
/// copy by whoever allocated dst) are left untouched. Returns the byte
/// offset reached and a nonzero Err_t on failure; the caller owns undoing
/// whatever was mapped below that offset, since only it knows whether dst
/// is otherwise empty (safe to Uvmfree outright) or, as in proc.Fork, a
/// page table with other mappings that must survive.
func CopyUserPages(dst, src *mem.Pmap_t, sz uintptr) (uintptr, defs.Err_t) {
	for va := uintptr(0); va < sz; va += uintptr(mem.PGSIZE) {
		pte, ok := Walk(src, va, false)
		if !ok || pte == nil || *pte&riscv.PTE_V == 0 {
			panic("vm.CopyUserPages: hole in address space below sz")
		}
		perm := *pte & riscv.PteFlagsMask
		srcpa := PTE2PA(*pte)
		dstpa, ok := mem.Physmem.Alloc()
		if !ok {
			return va, -defs.ENOMEM
		}
		*mem.Physmem.Dmap(dstpa) = *mem.Physmem.Dmap(srcpa)
		if Mappages(dst, va, dstpa, mem.PGSIZE, perm) != 0 {
			mem.Physmem.Free(dstpa)
			return va, -defs.ENOMEM
		}
	}
	return sz, 0
}

/// Uvmcopy eagerly copies every mapped page below sz from old into a
/// freshly allocated address space, used by fork — this kernel has no
/// copy-on-write, so every child page is a private, immediately-populated
/// duplicate of the parent's (spec.md Non-goals exclude COW).
func Uvmcopy(old *mem.Pmap_t, sz uintptr) (*mem.Pmap_t, mem.Pa_t, bool) {
	newpt, p_newpt, ok := Mkpagetable()
	if !ok {
		return nil, 0, false
	}
	if copied, err := CopyUserPages(newpt, old, sz); err != 0 {
		Uvmfree(newpt, p_newpt, copied)
		return nil, 0, false
	}
	return newpt, p_newpt, true
}
