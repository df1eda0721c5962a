package inode

import (
	"defs"
	"fs"
	"wal"
)

// Balloc implements spec §4.8's alloc(dev): scans the free-block bitmap
// in BITS_PER_BLOCK-sized strides, claims the first clear bit inside
// the caller's transaction, and returns the data block number.
func (fs_ *Fs_t) Balloc(op *wal.Op_t) (int, defs.Err_t) {
	nblocks := fs_.Sb.Nblocks()
	bitsPerBlock := fs.BSIZE * 8
	for base := 0; base < nblocks; base += bitsPerBlock {
		bno := fs_.Sb.IbitmapBlock(base)
		b := fs_.Bc.Get(bno)
		for bi := 0; bi < bitsPerBlock && base+bi < nblocks; bi++ {
			byteIdx := bi / 8
			mask := uint8(1 << uint(bi%8))
			if b.Data[byteIdx]&mask == 0 {
				b.Data[byteIdx] |= mask
				op.Log_write(b)
				fs_.Bc.Release(b)
				fs_.zeroBlock(op, base+bi)
				return base + bi, 0
			}
		}
		fs_.Bc.Release(b)
	}
	return 0, -defs.ENOBLK
}

// Bfree implements spec §4.8's free(dev, blk): asserts the bit was set
// and clears it inside the caller's transaction.
func (fs_ *Fs_t) Bfree(op *wal.Op_t, blkno int) {
	bno := fs_.Sb.IbitmapBlock(blkno)
	byteIdx := (blkno % (fs.BSIZE * 8)) / 8
	mask := uint8(1 << uint(blkno%8))
	b := fs_.Bc.Get(bno)
	if b.Data[byteIdx]&mask == 0 {
		panic("inode.Bfree: freeing a free block")
	}
	b.Data[byteIdx] &^= mask
	op.Log_write(b)
	fs_.Bc.Release(b)
}

func (fs_ *Fs_t) zeroBlock(op *wal.Op_t, blkno int) {
	b := fs_.Bc.Get(blkno)
	for i := range b.Data {
		b.Data[i] = 0
	}
	op.Log_write(b)
	fs_.Bc.Release(b)
}
