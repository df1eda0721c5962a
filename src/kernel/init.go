// Package kernel is the boot-time wiring layer spec §9's "global
// mutable state" design note calls for: it builds the kernel's own
// page table, mounts the root file system, constructs the first
// process from the initial user image, and starts the per-hart
// scheduler loop. No teacher source for this layer survived retrieval
// (Biscuit's patched runtime boots itself before any Go code runs),
// so it is assembled from spec §9's boot description directly, wired
// onto every package built below it.
package kernel

import (
	"sync/atomic"

	"console"
	"defs"
	"dir"
	"fd"
	"file"
	"fs"
	"inode"
	"kprint"
	"mem"
	"proc"
	"riscv"
	"syscalls"
	"trap"
	"ustr"
	"vm"
	"wal"
)

// TrampolinePa is the physical address of the trampoline code page
// (trap.go's uservec/userret). Spec §1 excludes build scripts and
// linker glue, and placing the trampoline's assembly on its own page
// boundary — so its physical address is knowable without disassembling
// the kernel image — is exactly that: a final link/assembly step this
// module does not perform. Whatever does perform it assigns this
// variable before calling Boot.
var TrampolinePa mem.Pa_t

// RootDisk is the block device the root file system mounts against.
// Spec §1 excludes the virtio-mmio driver; the core "assumes a
// read_block/write_block contract" (fs.Disk_i) that a driver outside
// this module satisfies and installs here before calling Boot.
var RootDisk fs.Disk_i

// Uart is the external line-discipline collaborator console.Cons_t
// wraps, also out of scope per spec §1. Left nil, Boot registers no
// console device, so opening the console device file fails with
// EINVAL, and kprint output is dropped.
var Uart console.Uart_i

// hartsUp counts harts that have passed the initialization barrier, so
// every hart but 0 can spin until hart 0's one-time setup — process
// table, file system mount, first process — has completed, per spec
// §9: "an explicit init() ordered in main on hart 0. Other harts spin
// on an initialization barrier."
var hartsUp int32

// Kvminit builds the kernel's own identity-mapped Sv39 page table:
// physical address equals virtual address everywhere, covering RAM
// and the CLINT/PLIC MMIO windows, so kernel code keeps running
// without interruption the instant paging turns on. Grounded on
// xv6-riscv's kvmmake(), simplified to one RWX mapping per region
// since this kernel carries no separate kernel text/data linker
// sections to split permissions across (again the build-scripts/
// linker-glue Non-goal).
func Kvminit() *vm.Vm_t {
	kpt, ok := vm.Mkvm()
	if !ok {
		panic("kernel.Kvminit: out of memory building the kernel page table")
	}
	identityMap(kpt, riscv.CLINT_BASE, 0x10000)
	identityMap(kpt, riscv.PLIC_BASE, 0x400000)
	identityMap(kpt, riscv.KERNBASE, int(riscv.PHYSTOP-riscv.KERNBASE))
	return kpt
}

func identityMap(as *vm.Vm_t, base, size int) {
	perm := mem.Pa_t(riscv.PTE_R | riscv.PTE_W | riscv.PTE_X)
	if err := vm.Mappages(as.Pagetable, uintptr(base), mem.Pa_t(base), size, perm); err != 0 {
		panic("kernel.identityMap: out of memory")
	}
}

// mountRoot constructs the on-disk file system's in-memory state
// (buffer cache, super block, log, inode cache) against RootDisk and
// returns it with the root inode, per spec §4.7/§6's on-disk layout
// and spec §4.9's recovery-on-boot rule (Log_t.MkLog replays a
// nonempty log header before any other file-system activity runs).
func mountRoot() (*inode.Fs_t, *inode.Inode_t) {
	bc := fs.MkCache(RootDisk, physBlockmem{})
	// The super block's Bdev_block_t is never Release()d: Superblock_t
	// aliases its Data page directly, so the buffer cache must hold it
	// resident for the kernel's whole lifetime, the same way the log
	// permanently reserves its own block range.
	sbBlock := bc.Get(1)
	sb := &fs.Superblock_t{Data: sbBlock.Data}
	if !sb.Valid() {
		panic("kernel.mountRoot: super block magic mismatch")
	}
	log := wal.MkLog(bc, sb.Logstart(), sb.Nlog())
	fs_ := &inode.Fs_t{Bc: bc, Sb: sb, Log: log, Ic: inode.MkIcache()}

	root, err := fs_.Ic.Get(inode.ROOTINO)
	if err != 0 {
		panic("kernel.mountRoot: cannot fetch root inode")
	}
	return fs_, root
}

// physBlockmem backs buffer-cache frames with the kernel's own
// physical frame allocator, unlike cmd/mkfs's heap-backed stand-in.
type physBlockmem struct{}

func (physBlockmem) Alloc() (mem.Pa_t, *mem.Bytepg_t, bool) {
	pa, ok := mem.Physmem.Alloc()
	if !ok {
		return 0, nil, false
	}
	return pa, mem.Physmem.Dmap8(pa), true
}

func (physBlockmem) Free(pa mem.Pa_t) { mem.Physmem.Free(pa) }

// userinit builds the very first process directly from a raw user
// image rather than through exec, since there is no file system open
// yet to exec against — per spec §1, "the initcode bootstrap is
// specified only as the initial user image"; this module only needs
// somewhere to place whatever bytes that image turns out to be.
// Grounded on xv6's userinit().
func userinit(fs_ *inode.Fs_t, root *inode.Inode_t, initcode []byte) *proc.Proc_t {
	p, err := proc.Alloc("initcode")
	if err != 0 {
		panic("kernel.userinit: cannot allocate the first process")
	}

	pa, ok := mem.Physmem.Alloc()
	if !ok {
		panic("kernel.userinit: out of memory for the first process's image")
	}
	perm := mem.Pa_t(riscv.PTE_R | riscv.PTE_W | riscv.PTE_X | riscv.PTE_U)
	if vm.Mappages(p.As.Pagetable, 0, pa, mem.PGSIZE, perm) != 0 {
		panic("kernel.userinit: cannot map the first process's image")
	}
	copy(mem.Physmem.Dmap8(pa)[:], initcode)
	p.As.Sz = uintptr(mem.PGSIZE)

	p.Tf.Epc = 0
	p.Tf.Sp = uint64(mem.PGSIZE)

	rootFile, ferr := file.Systable.Alloc()
	if ferr != 0 {
		panic("kernel.userinit: cannot allocate the root cwd's file-table entry")
	}
	file.MkInodeFile(rootFile, fs_, fs_.Dup(root), true, true)
	p.Cwd = fd.MkRootCwd(&fd.Fd_t{Fops: rootFile, Perms: fd.FD_READ})

	proc.SetInitProc(p)

	p.Lock()
	p.State = proc.RUNNABLE
	p.Unlock()
	return p
}

// Boot runs hart 0's one-time setup — kernel page table, trap
// dispatch wiring, root file system mount, console, and the first
// process — then, on every hart, enters the scheduler loop. Per spec
// §9: "other harts spin on an initialization barrier" while hart 0
// does this; harts past the barrier never return.
func Boot(initcode []byte) {
	if riscv.Hartid() == 0 {
		kpt := Kvminit()
		kernelSatp := riscv.MakeSatp(uint64(kpt.P_pagetable) >> riscv.PGSHIFT)
		trap.SetKernelSatp(kernelSatp)
		proc.SetTrampoline(TrampolinePa)
		proc.SetForkret(trap.ForkretPC())

		if Uart != nil {
			cons := console.Cons_t{U: Uart}
			kprint.SetConsole(cons)
			syscalls.RegisterDevice(defs.D_CONSOLE, cons)
		}

		var fs_ *inode.Fs_t
		var root *inode.Inode_t
		if RootDisk != nil {
			fs_, root = mountRoot()
			syscalls.SetFS(fs_, root)
			trap.SetFirstForkretHook(func() {
				kprint.Printf("file system mounted, pid 1 running\n")
			})
			userinit(fs_, root, initcode)
		}

		atomic.StoreInt32(&hartsUp, 1)
	} else {
		for atomic.LoadInt32(&hartsUp) == 0 {
		}
	}

	trap.Inithart()
	proc.Scheduler()
}

// MkRootDir formats an empty root directory on a freshly zeroed disk,
// linking "." and ".." into it, for boot images assembled without
// cmd/mkfs (e.g. the integration tests spec §8 describes). Grounded on
// cmd/mkfs.go's own root-directory setup.
func MkRootDir(fs_ *inode.Fs_t) {
	op := fs_.Log.Begin_op()
	defer op.End_op()
	root, err := fs_.Ialloc(op, inode.I_DIR)
	if err != 0 {
		panic("kernel.MkRootDir: cannot allocate the root inode")
	}
	root.Nlink = 1
	fs_.UpdateInode(op, root)
	if e := dir.Link(op, fs_, root, ustr.MkUstrDot(), root.Inum); e != 0 {
		panic("kernel.MkRootDir: linking . failed")
	}
	if e := dir.Link(op, fs_, root, ustr.DotDot, root.Inum); e != 0 {
		panic("kernel.MkRootDir: linking .. failed")
	}
	fs_.UnlockInode(root)
}
