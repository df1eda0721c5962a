// Package dir implements directory entries, name lookup, and
// multi-component path resolution, per spec §4.9. Grounded on the same
// surviving surface as package inode (ufs.go's Fs_open/Fs_mkdir shape)
// and xv6's namei/dirlookup; no teacher source for this layer survived
// retrieval.
package dir

import (
	"encoding/binary"

	"defs"
	"inode"
	"limits"
	"ustr"
	"wal"
)

// DIRSIZ and the on-disk entry size are fixed by spec §6: "16 bytes =
// {inum: u16, name: [u8; 14]}".
const DIRSIZ = limits.DIRSIZ
const DIRENTSZ = 16

type dirent_t struct {
	inum int
	name [DIRSIZ]byte
}

func decodeDirent(b []uint8) dirent_t {
	var d dirent_t
	d.inum = int(binary.LittleEndian.Uint16(b[0:2]))
	copy(d.name[:], b[2:2+DIRSIZ])
	return d
}

func encodeDirent(b []uint8, d dirent_t) {
	binary.LittleEndian.PutUint16(b[0:2], uint16(d.inum))
	copy(b[2:2+DIRSIZ], d.name[:])
}

func nameBytes(name ustr.Ustr) [DIRSIZ]byte {
	var out [DIRSIZ]byte
	n := len(name)
	if n > DIRSIZ {
		n = DIRSIZ
	}
	copy(out[:], name[:n])
	return out
}

func nameEq(d [DIRSIZ]byte, name ustr.Ustr) bool {
	n := len(name)
	if n > DIRSIZ {
		n = DIRSIZ
	}
	for i := 0; i < n; i++ {
		if d[i] != name[i] {
			return false
		}
	}
	for i := n; i < DIRSIZ; i++ {
		if d[i] != 0 {
			return false
		}
	}
	return true
}

// Lookup implements spec §4.9's lookup(dir, name) -> Option<(inode,
// off)>: "." returns dir itself; ".." and ordinary names scan the
// directory's data blocks for a matching, non-free entry.
func Lookup(fs_ *inode.Fs_t, dir *inode.Inode_t, name ustr.Ustr) (int, int, bool) {
	if name.Isdot() {
		return dir.Inum, -1, true
	}
	nent := int(dir.Size) / DIRENTSZ
	buf := make([]uint8, DIRENTSZ)
	for i := 0; i < nent; i++ {
		off := i * DIRENTSZ
		n, _ := fs_.Readi(dir, off, buf)
		if n != DIRENTSZ {
			break
		}
		d := decodeDirent(buf)
		if d.inum == 0 {
			continue
		}
		if nameEq(d.name, name) {
			return d.inum, off, true
		}
	}
	return 0, 0, false
}

// Link implements spec §4.9's link(dir, name, ino): appends a new
// entry, reusing a free slot if one exists. Fails if name already
// exists.
func Link(op *wal.Op_t, fs_ *inode.Fs_t, dir *inode.Inode_t, name ustr.Ustr, inum int) defs.Err_t {
	if _, _, ok := Lookup(fs_, dir, name); ok {
		return -defs.EEXIST
	}
	nent := int(dir.Size) / DIRENTSZ
	buf := make([]uint8, DIRENTSZ)
	off := int(dir.Size)
	for i := 0; i < nent; i++ {
		o := i * DIRENTSZ
		n, _ := fs_.Readi(dir, o, buf)
		if n != DIRENTSZ {
			break
		}
		if decodeDirent(buf).inum == 0 {
			off = o
			break
		}
	}
	encodeDirent(buf, dirent_t{inum: inum, name: nameBytes(name)})
	if _, err := fs_.Writei(op, dir, off, buf); err != 0 {
		return err
	}
	fs_.UpdateInode(op, dir)
	return 0
}

// Unlink implements spec §4.9's unlink(dir, name): zeroes the matching
// entry in place.
func Unlink(op *wal.Op_t, fs_ *inode.Fs_t, dir *inode.Inode_t, name ustr.Ustr) defs.Err_t {
	_, off, ok := Lookup(fs_, dir, name)
	if !ok {
		return -defs.ENOENT
	}
	buf := make([]uint8, DIRENTSZ)
	if _, err := fs_.Writei(op, dir, off, buf); err != 0 {
		return err
	}
	fs_.UpdateInode(op, dir)
	return 0
}

// Create resolves path's parent directory and creates a new inode of
// typ there named after path's final component, populating "." and
// ".." entries when typ is a directory. Mirrors the teacher-visible
// Fs_open(..., O_CREAT, ...)/Fs_mkdir surface (ufs.go) at the dir/inode
// layer.
func Create(op *wal.Op_t, fs_ *inode.Fs_t, root, cwd *inode.Inode_t, path ustr.Ustr, typ inode.Itype_t, major, minor int16) (*inode.Inode_t, defs.Err_t) {
	parent, name, err := resolveParent(fs_, root, cwd, path)
	if err != 0 {
		return nil, err
	}
	fs_.LockInode(parent)
	if parent.Type != inode.I_DIR {
		fs_.UnlockInode(parent)
		fs_.PutInode(op, parent)
		return nil, -defs.ENOTDIR
	}
	if _, _, ok := Lookup(fs_, parent, name); ok {
		fs_.UnlockInode(parent)
		fs_.PutInode(op, parent)
		return nil, -defs.EEXIST
	}

	ip, err := fs_.Ialloc(op, typ)
	if err != 0 {
		fs_.UnlockInode(parent)
		fs_.PutInode(op, parent)
		return nil, err
	}
	ip.Major = major
	ip.Minor = minor
	ip.Nlink = 1
	fs_.UpdateInode(op, ip)

	if typ == inode.I_DIR {
		ip.Nlink++ // the child's own "." entry refers back to the child
		fs_.UpdateInode(op, ip)
		if err := Link(op, fs_, ip, ustr.MkUstrDot(), ip.Inum); err != 0 {
			fs_.UnlockInode(ip)
			fs_.PutInode(op, ip)
			fs_.UnlockInode(parent)
			fs_.PutInode(op, parent)
			return nil, err
		}
		if err := Link(op, fs_, ip, ustr.DotDot, parent.Inum); err != 0 {
			fs_.UnlockInode(ip)
			fs_.PutInode(op, ip)
			fs_.UnlockInode(parent)
			fs_.PutInode(op, parent)
			return nil, err
		}
		parent.Nlink++
		fs_.UpdateInode(op, parent)
	}

	if err := Link(op, fs_, parent, name, ip.Inum); err != 0 {
		fs_.UnlockInode(ip)
		fs_.PutInode(op, ip)
		fs_.UnlockInode(parent)
		fs_.PutInode(op, parent)
		return nil, err
	}

	fs_.UnlockInode(ip)
	fs_.UnlockInode(parent)
	fs_.PutInode(op, parent)
	return ip, 0
}

// IsEmpty reports whether dir holds only "." and ".." entries, the
// precondition for removing a directory.
func IsEmpty(fs_ *inode.Fs_t, dir *inode.Inode_t) bool {
	nent := int(dir.Size) / DIRENTSZ
	buf := make([]uint8, DIRENTSZ)
	for i := 2; i < nent; i++ {
		n, _ := fs_.Readi(dir, i*DIRENTSZ, buf)
		if n != DIRENTSZ {
			break
		}
		if decodeDirent(buf).inum != 0 {
			return false
		}
	}
	return true
}

// Resolve implements spec §4.9's path resolution: absolute paths start
// at root, relative paths at cwd; every non-final component must be a
// directory.
func Resolve(fs_ *inode.Fs_t, root, cwd *inode.Inode_t, path ustr.Ustr) (*inode.Inode_t, defs.Err_t) {
	ip, last, err := resolveParent(fs_, root, cwd, path)
	if err != 0 {
		return nil, err
	}
	if last.Isdot() || len(last) == 0 {
		return ip, 0
	}
	inum, ok := lookupLocked(fs_, ip, last)
	fs_.UnlockInode(ip)
	if !ok {
		fs_.PutInode(nil, ip)
		return nil, -defs.ENOENT
	}
	next, e := fs_.Ic.Get(inum)
	fs_.PutInode(nil, ip)
	if e != 0 {
		return nil, e
	}
	return next, 0
}

// ResolveParent implements spec §4.9's resolve_parent(path) -> (parent
// inode, last component name), used by link/unlink/create callers.
func ResolveParent(fs_ *inode.Fs_t, root, cwd *inode.Inode_t, path ustr.Ustr) (*inode.Inode_t, ustr.Ustr, defs.Err_t) {
	return resolveParent(fs_, root, cwd, path)
}

func resolveParent(fs_ *inode.Fs_t, root, cwd *inode.Inode_t, path ustr.Ustr) (*inode.Inode_t, ustr.Ustr, defs.Err_t) {
	var cur *inode.Inode_t
	if path.IsAbsolute() {
		cur = fs_.Dup(root)
	} else {
		cur = fs_.Dup(cwd)
	}
	parts := splitPath(path)
	if len(parts) == 0 {
		return cur, ustr.MkUstr(), 0
	}
	for i := 0; i < len(parts)-1; i++ {
		inum, ok := lookupLockedDir(fs_, cur, parts[i])
		if !ok {
			fs_.PutInode(nil, cur)
			return nil, nil, -defs.ENOENT
		}
		next, err := fs_.Ic.Get(inum)
		fs_.PutInode(nil, cur)
		if err != 0 {
			return nil, nil, err
		}
		cur = next
	}
	return cur, parts[len(parts)-1], 0
}

// lookupLockedDir locks cur, requires it to be a directory, looks up
// name, and unlocks it before returning.
func lookupLockedDir(fs_ *inode.Fs_t, cur *inode.Inode_t, name ustr.Ustr) (int, bool) {
	inum, ok := lookupLocked(fs_, cur, name)
	fs_.UnlockInode(cur)
	return inum, ok
}

func lookupLocked(fs_ *inode.Fs_t, cur *inode.Inode_t, name ustr.Ustr) (int, bool) {
	fs_.LockInode(cur)
	if cur.Type != inode.I_DIR {
		return 0, false
	}
	inum, _, ok := Lookup(fs_, cur, name)
	return inum, ok
}

func splitPath(p ustr.Ustr) []ustr.Ustr {
	var parts []ustr.Ustr
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if i > start {
				parts = append(parts, p[start:i])
			}
			start = i + 1
		}
	}
	return parts
}
