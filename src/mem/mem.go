// Package mem is the page-frame allocator: it hands out zeroed 4 KiB
// physical frames from [kernel_end, phys_top) and takes them back. Grounded
// on the teacher's mem/mem.go (Physmem_t, Refpg_new/Refdown, the Pa_t/Pg_t/
// Bytepg_t/Pmap_t type family) with the refcounting/per-cpu free-list
// machinery stripped: spec.md's kernel is eager-allocated and copying, so a
// frame has exactly one owner at a time (spec.md §3's Frame invariant)
// rather than the teacher's copy-on-write sharing, and the single free
// list threaded through the frames themselves (spec.md §4.1) replaces the
// teacher's per-cpu free-list sharding.
package mem

import (
	"sync"
	"unsafe"
)

/// PGSHIFT is the base-2 exponent of the page size.
const PGSHIFT uint = 12

/// PGSIZE is the size of a page in bytes.
const PGSIZE int = 1 << PGSHIFT

/// PGOFFSET masks the in-page offset bits of an address.
const PGOFFSET Pa_t = 0xfff

/// PGMASK masks the page-aligned bits of an address.
const PGMASK Pa_t = ^(PGOFFSET)

/// Pa_t is a physical address.
type Pa_t uintptr

/// Bytepg_t is a byte-addressed page.
type Bytepg_t [PGSIZE]uint8

/// Pg_t is a page viewed as 512 64-bit words (a page-table page, among
/// other things).
type Pg_t [512]uint64

/// Pmap_t is an alias for Pg_t used where the page is specifically a
/// page-table page, matching the teacher's PTE-array naming.
type Pmap_t [512]Pa_t

/// Pg2bytes reinterprets a word page as a byte page.
func Pg2bytes(pg *Pg_t) *Bytepg_t {
	return (*Bytepg_t)(unsafe.Pointer(pg))
}

/// Bytepg2pg reinterprets a byte page as a word page.
func Bytepg2pg(pg *Bytepg_t) *Pg_t {
	return (*Pg_t)(unsafe.Pointer(pg))
}

// frameNode is threaded through the first 8 bytes of every free frame: the
// free list carries no side allocation of its own, exactly as spec.md §4.1
// requires ("the allocator threads a LIFO free list through the first 8
// bytes of each free frame").
type frameNode struct {
	next Pa_t
}

/// Allocator_t is the global page-frame free list. One spinlock-equivalent
/// mutex protects it; allocation and free are both O(1).
type Allocator_t struct {
	sync.Mutex
	freelist Pa_t // 0 means empty; frames are never placed at physical 0
	nfree    int
	nframes  int
}

/// Physmem is the kernel-wide frame allocator, mirroring the teacher's
/// single global Physmem variable (spec.md §9: "process-wide singletons
/// with static initialization").
var Physmem = &Allocator_t{}

/// Init seeds the free list with every page-aligned frame in
/// [start, end), zeroing none of them up front — Alloc zeroes lazily.
func (a *Allocator_t) Init(start, end Pa_t) {
	a.Lock()
	defer a.Unlock()
	start = (start + PGOFFSET) &^ PGOFFSET
	end = end &^ PGOFFSET
	for pa := start; pa+Pa_t(PGSIZE) <= end; pa += Pa_t(PGSIZE) {
		a.freeLocked(pa)
		a.nframes++
	}
}

func (a *Allocator_t) freeLocked(pa Pa_t) {
	node := (*frameNode)(Physmem.dmapptr(pa))
	node.next = a.freelist
	a.freelist = pa
	a.nfree++
}

func (a *Allocator_t) dmapptr(pa Pa_t) unsafe.Pointer {
	return unsafe.Pointer(a.Dmap(pa))
}

/// Dmapptr is Dmap's untyped counterpart, for callers (page-table walks)
/// that reinterpret a frame as something other than a Pg_t — a page-table
/// page (Pmap_t) in particular.
func (a *Allocator_t) Dmapptr(pa Pa_t) unsafe.Pointer {
	return a.dmapptr(pa)
}

/// Alloc pops one frame off the free list, zeroes it, and returns its
/// physical address. The second return is false on out-of-memory — the
/// caller decides whether that is fatal (spec.md §4.1).
func (a *Allocator_t) Alloc() (Pa_t, bool) {
	a.Lock()
	if a.freelist == 0 {
		a.Unlock()
		return 0, false
	}
	pa := a.freelist
	node := (*frameNode)(a.dmapptr(pa))
	a.freelist = node.next
	a.nfree--
	a.Unlock()

	pg := a.Dmap(pa)
	for i := range pg {
		pg[i] = 0
	}
	return pa, true
}

/// Free returns a frame to the free list. A null or misaligned address
/// panics; freeing a frame twice, or a frame the allocator never handed
/// out, is not detected.
func (a *Allocator_t) Free(pa Pa_t) {
	if pa == 0 || pa&PGOFFSET != 0 {
		panic("mem.Free: misaligned or null frame")
	}
	a.Lock()
	defer a.Unlock()
	a.freeLocked(pa)
}

/// Nfree reports the number of frames currently on the free list, used by
/// get_system_info (spec.md §3.1 SystemInfo).
func (a *Allocator_t) Nfree() int {
	a.Lock()
	defer a.Unlock()
	return a.nfree
}

/// Total reports how many frames Init seeded the allocator with, the
/// counterpart Nfree needs to report a used-frame count (mirrors the
/// teacher's Pgcount, mem/mem.go, extended to also track the total).
func (a *Allocator_t) Total() int {
	a.Lock()
	defer a.Unlock()
	return a.nframes
}
