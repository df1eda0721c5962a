// Command kernel is the entry point a from-scratch boot would transfer
// control to once machine mode has parked every hart but 0 into
// supervisor mode with a stack — the hand-off spec §1 describes as
// "boots from machine mode on every hart". Building that hand-off
// itself (the M-mode trap vector, per-hart stack setup, and the
// linker script placing this binary's image and the trampoline page)
// is the build-scripts/linker-glue Non-goal spec §1 excludes, so this
// command starts one step later: package kernel's Boot assumes paging
// is off, harts share the same view of physical memory, and
// kernel.TrampolinePa/RootDisk/Uart have already been assigned by
// whatever performed that hand-off.
package main

import "kernel"

func main() {
	kernel.Boot(initcode)
}

// initcode is the first process's raw image, per spec §1: "the
// initcode bootstrap is specified only as the initial user image."
// No assembled image survived retrieval, so this is an empty
// placeholder a real build replaces with the assembled bytes before
// linking; userinit maps it at virtual address 0 and starts execution
// there regardless of what it contains.
var initcode = []byte{}
