// Package circbuf is a byte-oriented ring buffer over a single
// physical page. Adapted from the teacher's circbuf.go, which backed
// both pipes and TCP socket buffers via a refcounted Page_i allocator
// (Refpg_new_nozero/Refup/Refdown) supporting the page being shared
// with in-flight DMA or a forked address space. This kernel's pipes
// never share their buffer page with anything else (no COW, no
// networking in scope), so Cb_init now allocates directly from
// mem.Allocator_t and Cb_release frees outright. Dropped: Rawwrite/
// Rawread/Advhead, the TCP-only slice-exposing accessors that had no
// caller once networking left scope — see DESIGN.md.
package circbuf

import (
	"defs"
	"fdops"
	"mem"
)

// Circbuf_t implements a simple circular buffer used by a single pipe.
// It is not safe for concurrent use without an external lock.
type Circbuf_t struct {
	alloc *mem.Allocator_t
	Buf   []uint8
	bufsz int
	head  int
	tail  int
	pa    mem.Pa_t
}

// Bufsz returns the configured buffer size.
func (cb *Circbuf_t) Bufsz() int { return cb.bufsz }

// Cb_init allocates a backing page and initializes an empty buffer of
// size sz bytes (sz must fit in one page).
func (cb *Circbuf_t) Cb_init(sz int, a *mem.Allocator_t) defs.Err_t {
	if sz <= 0 || sz > mem.PGSIZE {
		panic("bad circbuf size")
	}
	pa, ok := a.Alloc()
	if !ok {
		return -defs.ENOMEM
	}
	cb.alloc = a
	cb.pa = pa
	cb.Buf = mem.Pg2bytes((*mem.Pg_t)(a.Dmapptr(pa)))[:sz]
	cb.bufsz = sz
	cb.head, cb.tail = 0, 0
	return 0
}

// Cb_release frees the backing page.
func (cb *Circbuf_t) Cb_release() {
	if cb.Buf == nil {
		return
	}
	cb.alloc.Free(cb.pa)
	cb.Buf = nil
	cb.head, cb.tail = 0, 0
}

// Full returns true when the buffer cannot accept more data.
func (cb *Circbuf_t) Full() bool { return cb.head-cb.tail == cb.bufsz }

// Empty reports whether the buffer contains any data.
func (cb *Circbuf_t) Empty() bool { return cb.head == cb.tail }

// Left returns the remaining capacity in bytes.
func (cb *Circbuf_t) Left() int { return cb.bufsz - (cb.head - cb.tail) }

// Used returns the current number of bytes in the buffer.
func (cb *Circbuf_t) Used() int { return cb.head - cb.tail }

// Copyin reads from src into the circular buffer, stopping when the
// buffer fills or src runs dry.
func (cb *Circbuf_t) Copyin(src fdops.Userio_i) (int, defs.Err_t) {
	if cb.Full() {
		return 0, 0
	}
	hi := cb.head % cb.bufsz
	ti := cb.tail % cb.bufsz
	c := 0
	if ti <= hi {
		dst := cb.Buf[hi:]
		wrote, err := src.Uioread(dst)
		if err != 0 {
			return 0, err
		}
		if wrote != len(dst) {
			cb.head += wrote
			return wrote, 0
		}
		c += wrote
		hi = (cb.head + wrote) % cb.bufsz
	}
	dst := cb.Buf[hi:ti]
	wrote, err := src.Uioread(dst)
	c += wrote
	if err != 0 {
		return c, err
	}
	cb.head += c
	return c, 0
}

// Copyout writes the entire buffer's contents to dst.
func (cb *Circbuf_t) Copyout(dst fdops.Userio_i) (int, defs.Err_t) {
	return cb.Copyout_n(dst, 0)
}

// Copyout_n writes up to max bytes (0 means unbounded) of the buffer
// to dst.
func (cb *Circbuf_t) Copyout_n(dst fdops.Userio_i, max int) (int, defs.Err_t) {
	if cb.Empty() {
		return 0, 0
	}
	hi := cb.head % cb.bufsz
	ti := cb.tail % cb.bufsz
	c := 0
	if hi <= ti {
		src := cb.Buf[ti:]
		if max != 0 && max < len(src) {
			src = src[:max]
		}
		wrote, err := dst.Uiowrite(src)
		if err != 0 {
			return 0, err
		}
		if wrote != len(src) || wrote == max {
			cb.tail += wrote
			return wrote, 0
		}
		c += wrote
		if max != 0 {
			max -= c
		}
		ti = (cb.tail + wrote) % cb.bufsz
	}
	src := cb.Buf[ti:hi]
	if max != 0 && max < len(src) {
		src = src[:max]
	}
	wrote, err := dst.Uiowrite(src)
	if err != 0 {
		return 0, err
	}
	c += wrote
	cb.tail += c
	return c, 0
}
