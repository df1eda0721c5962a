// Package pipe implements the bounded single-producer/consumer buffer
// of spec §4.10: a 512-byte ring shared by a read end and a write end,
// each independently closeable. Grounded on package circbuf (adapted
// from the teacher) for the ring storage; the blocking protocol itself
// has no teacher equivalent (Biscuit's pipes, like its other blocking
// I/O, would have used the Go runtime's own scheduler) so it follows
// xv6's pipe semantics, blocking via package proc's Sleep/Wakeup the
// same way the buffer cache and log do.
package pipe

import (
	"unsafe"

	"circbuf"
	"defs"
	"fdops"
	"limits"
	"lock"
	"mem"
	"proc"
)

// PIPE_SIZE is fixed by spec §4.10: "A pipe is a 512-byte ring."
const PIPE_SIZE = limits.PIPE_SIZE

// Pipe_t is the shared state behind both ends of a pipe.
type Pipe_t struct {
	mu        lock.Spinlock_t
	cb        circbuf.Circbuf_t
	readOpen  bool
	writeOpen bool
}

// chanOf gives a pipe's waiters a channel identity tied to the pipe
// itself; reader and writer share one channel since each side's wakeup
// condition is checked by re-evaluating its own predicate on wakeup.
func (p *Pipe_t) chanOf() uintptr { return uintptr(unsafe.Pointer(p)) }

// MkPipe allocates and initializes a pipe's ring buffer.
func MkPipe(a *mem.Allocator_t) (*Pipe_t, defs.Err_t) {
	p := &Pipe_t{readOpen: true, writeOpen: true}
	if err := p.cb.Cb_init(PIPE_SIZE, a); err != 0 {
		return nil, err
	}
	return p, 0
}

// Read implements spec §4.10's pipe read: blocks while empty and the
// write end is open; returns 0 at EOF (write end closed, buffer
// drained).
func (p *Pipe_t) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	p.mu.Lock()
	for p.cb.Empty() && p.writeOpen {
		proc.Sleep(p.chanOf(), &p.mu)
	}
	n, err := p.cb.Copyout(dst)
	p.mu.Unlock()
	proc.Wakeup(p.chanOf())
	return n, err
}

// Write implements spec §4.10's pipe write: blocks while full and the
// read end is open; returns a short write/error once the read end
// closes.
func (p *Pipe_t) Write(src fdops.Userio_i) (int, defs.Err_t) {
	p.mu.Lock()
	total := 0
	for src.Remain() > 0 {
		if !p.readOpen {
			p.mu.Unlock()
			return total, -defs.EPIPE
		}
		for p.cb.Full() && p.readOpen {
			proc.Sleep(p.chanOf(), &p.mu)
		}
		if !p.readOpen {
			p.mu.Unlock()
			return total, -defs.EPIPE
		}
		n, err := p.cb.Copyin(src)
		total += n
		p.mu.Unlock()
		proc.Wakeup(p.chanOf())
		if err != 0 {
			return total, err
		}
		if n == 0 {
			break
		}
		p.mu.Lock()
	}
	return total, 0
}

// CloseReader closes the read end; a blocked writer observes EPIPE.
func (p *Pipe_t) CloseReader() {
	p.mu.Lock()
	p.readOpen = false
	last := !p.writeOpen
	p.mu.Unlock()
	proc.Wakeup(p.chanOf())
	if last {
		p.cb.Cb_release()
	}
}

// CloseWriter closes the write end; a blocked reader observes EOF.
func (p *Pipe_t) CloseWriter() {
	p.mu.Lock()
	p.writeOpen = false
	last := !p.readOpen
	p.mu.Unlock()
	proc.Wakeup(p.chanOf())
	if last {
		p.cb.Cb_release()
	}
}
