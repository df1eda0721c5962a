package inode

import (
	"defs"
	"fs"
	"wal"
)

// Ialloc scans the on-disk inode region for a free (type==I_FREE) slot,
// marks it with typ, and returns the cached, locked Inode_t for it.
// Grounded on xv6's ialloc; the teacher's inode allocator did not
// survive retrieval.
func (fs_ *Fs_t) Ialloc(op *wal.Op_t, typ Itype_t) (*Inode_t, defs.Err_t) {
	for inum := 1; inum < NUM_FS_INODES; inum++ {
		blkno := fs_.Sb.IinodeBlock(inum)
		off := (inum % (fs.BSIZE / INODE_RECORD_SIZE)) * INODE_RECORD_SIZE
		b := fs_.Bc.Get(blkno)
		d := decodeDinode(b.Data[off : off+INODE_RECORD_SIZE])
		if d.typ == I_FREE {
			d.typ = typ
			encodeDinode(b.Data[off:off+INODE_RECORD_SIZE], d)
			op.Log_write(b)
			fs_.Bc.Release(b)

			ip, err := fs_.Ic.Get(inum)
			if err != 0 {
				return nil, err
			}
			fs_.LockInode(ip)
			return ip, 0
		}
		fs_.Bc.Release(b)
	}
	return nil, -defs.ENOINODE
}
