// Package console exposes the console as the device-file contract
// spec §4.10/§6 names: "the console is device 1"; put_char(c) is
// synchronous; line input delivers bytes through a device-file read.
// The UART and the line discipline themselves (echo, backspace,
// line buffering up to the next '\n') are out of scope per spec §1 —
// this package only wires device major 1 to whatever satisfies Uart_i,
// mirroring the teacher's console_t stub in ufs/driver.go (Cons_poll/
// Cons_read/Cons_write), which is itself a test stand-in for a real
// discipline the teacher never wires here either.
package console

import (
	"defs"
	"fdops"
	"stat"
)

// CONSOLE_MAJOR is the device major number spec §4.10 assigns the
// console.
const CONSOLE_MAJOR = 1

// Uart_i is the external line-discipline contract this package
// consumes but does not implement (out of scope per spec §1).
type Uart_i interface {
	Poll(fdops.Pollmsg_t) (fdops.Ready_t, defs.Err_t)
	ReadLine(fdops.Userio_i) (int, defs.Err_t)
	PutChar(dst fdops.Userio_i) (int, defs.Err_t)
}

// Cons_t adapts a Uart_i to the device-table Read/Write shape the
// syscall layer dispatches through for major-1 device files.
type Cons_t struct {
	U Uart_i
}

// Read blocks for a line of console input, delivering it through dst.
func (c Cons_t) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	return c.U.ReadLine(dst)
}

// Write synchronously emits src to the console, one character at a
// time via the external put_char contract.
func (c Cons_t) Write(src fdops.Userio_i) (int, defs.Err_t) {
	return c.U.PutChar(src)
}

// Poll reports read/write readiness for select/poll-style callers.
func (c Cons_t) Poll(pm fdops.Pollmsg_t) (fdops.Ready_t, defs.Err_t) {
	return c.U.Poll(pm)
}

// Close is a no-op: the console device file has no per-open state to
// release.
func (c Cons_t) Close() defs.Err_t { return 0 }

// Reopen is a no-op for the same reason.
func (c Cons_t) Reopen() defs.Err_t { return 0 }

// Fstat reports the console's fixed character-device identity.
func (c Cons_t) Fstat(st *stat.Stat_t) defs.Err_t {
	st.Wmode(0)
	st.Wrdev(uint(CONSOLE_MAJOR))
	return 0
}
