package inode

import (
	"encoding/binary"

	"defs"
	"fs"
	"wal"
)

// bmap translates a file-relative block index into a device block
// number, allocating on demand for writes. Grounded on xv6's bmap,
// adapted to this package's Bcache_t/Op_t plumbing.
func (fs_ *Fs_t) bmap(op *wal.Op_t, ip *Inode_t, bn int, alloc bool) (int, defs.Err_t) {
	if bn < NDIRECT {
		if ip.Addrs[bn] == 0 {
			if !alloc {
				return 0, -defs.EINVAL
			}
			blkno, err := fs_.Balloc(op)
			if err != 0 {
				return 0, err
			}
			ip.Addrs[bn] = uint32(blkno)
		}
		return int(ip.Addrs[bn]), 0
	}
	bn -= NDIRECT
	if bn >= NINDIRECT {
		return 0, -defs.EINVAL
	}
	if ip.Addrs[NDIRECT] == 0 {
		if !alloc {
			return 0, -defs.EINVAL
		}
		blkno, err := fs_.Balloc(op)
		if err != 0 {
			return 0, err
		}
		ip.Addrs[NDIRECT] = uint32(blkno)
	}
	ib := fs_.Bc.Get(int(ip.Addrs[NDIRECT]))
	defer fs_.Bc.Release(ib)
	off := bn * 4
	dst := binary.LittleEndian.Uint32(ib.Data[off : off+4])
	if dst == 0 {
		if !alloc {
			return 0, -defs.EINVAL
		}
		blkno, err := fs_.Balloc(op)
		if err != 0 {
			return 0, err
		}
		dst = uint32(blkno)
		binary.LittleEndian.PutUint32(ib.Data[off:off+4], dst)
		op.Log_write(ib)
	}
	return int(dst), 0
}

// Readi implements spec §4.8's readi(inode, off, n, out): translates
// [off, off+n) through the direct/indirect pointer tree and copies the
// live bytes into out, returning the number of bytes actually read.
func (fs_ *Fs_t) Readi(ip *Inode_t, off int, out []uint8) (int, defs.Err_t) {
	if off < 0 || uint32(off) > ip.Size {
		return 0, 0
	}
	n := len(out)
	if uint32(off+n) > ip.Size {
		n = int(ip.Size) - off
	}
	got := 0
	for got < n {
		bn := (off + got) / fs.BSIZE
		boff := (off + got) % fs.BSIZE
		blkno, err := fs_.bmap(nil, ip, bn, false)
		if err != 0 {
			return got, 0
		}
		b := fs_.Bc.Get(blkno)
		chunk := fs.BSIZE - boff
		if rem := n - got; chunk > rem {
			chunk = rem
		}
		copy(out[got:got+chunk], b.Data[boff:boff+chunk])
		fs_.Bc.Release(b)
		got += chunk
	}
	return got, 0
}

// Writei implements spec §4.8's writei(inode, off, n, in): allocates
// blocks on demand (failing out-of-space), writes through the log, and
// grows ip.Size as needed. Caller holds ip's sleep-lock and op is the
// enclosing transaction.
func (fs_ *Fs_t) Writei(op *wal.Op_t, ip *Inode_t, off int, in []uint8) (int, defs.Err_t) {
	if off < 0 {
		return 0, -defs.EINVAL
	}
	n := len(in)
	if off+n > MAXFILE*fs.BSIZE {
		return 0, -defs.EINVAL
	}
	put := 0
	for put < n {
		bn := (off + put) / fs.BSIZE
		boff := (off + put) % fs.BSIZE
		blkno, err := fs_.bmap(op, ip, bn, true)
		if err != 0 {
			break
		}
		b := fs_.Bc.Get(blkno)
		chunk := fs.BSIZE - boff
		if rem := n - put; chunk > rem {
			chunk = rem
		}
		copy(b.Data[boff:boff+chunk], in[put:put+chunk])
		op.Log_write(b)
		fs_.Bc.Release(b)
		put += chunk
	}
	if put > 0 && uint32(off+put) > ip.Size {
		ip.Size = uint32(off + put)
	}
	if put != n {
		return put, -defs.ENOBLK
	}
	return put, 0
}

// truncate frees all data blocks owned by ip (direct and indirect),
// used by PutInode when an inode's link count drops to zero. Grounded
// on xv6's itrunc.
func (fs_ *Fs_t) truncate(op *wal.Op_t, ip *Inode_t) {
	for i := 0; i < NDIRECT; i++ {
		if ip.Addrs[i] != 0 {
			fs_.Bfree(op, int(ip.Addrs[i]))
			ip.Addrs[i] = 0
		}
	}
	if ip.Addrs[NDIRECT] != 0 {
		ib := fs_.Bc.Get(int(ip.Addrs[NDIRECT]))
		for i := 0; i < NINDIRECT; i++ {
			off := i * 4
			dst := binary.LittleEndian.Uint32(ib.Data[off : off+4])
			if dst != 0 {
				fs_.Bfree(op, int(dst))
			}
		}
		fs_.Bc.Release(ib)
		fs_.Bfree(op, int(ip.Addrs[NDIRECT]))
		ip.Addrs[NDIRECT] = 0
	}
	ip.Size = 0
}
