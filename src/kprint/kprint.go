// Package kprint is the kernel's only diagnostic output path: no
// hosted logging library is reachable from a freestanding binary, so
// kernel-side messages go through fmt.Sprintf exactly as the teacher's
// host-side tools (mkfs, chentry) use fmt/log, adapted here to a
// Write against the console device instead of os.Stdout (mem/mem.go
// and ufs/driver.go are the teacher's equivalent fmt.Printf-against-
// a-writer idiom).
package kprint

import (
	"fmt"

	"console"
	"vm"
)

var cons console.Cons_t
var ready bool

// SetConsole wires the console device kprint writes to, once at boot.
func SetConsole(c console.Cons_t) {
	cons = c
	ready = true
}

// Printf formats and writes a diagnostic line to the console. Before
// SetConsole runs (early boot, and every host-side unit test that
// never wires a console), it is silently dropped rather than risking
// a nil-interface panic.
func Printf(format string, args ...interface{}) {
	if !ready {
		return
	}
	var fb vm.Fakeubuf_t
	fb.Fake_init([]byte(fmt.Sprintf(format, args...)))
	cons.Write(&fb)
}
