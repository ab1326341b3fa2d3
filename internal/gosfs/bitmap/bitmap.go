// Package bitmap implements the free-block allocator: a bit per data block,
// packed into the bitmap region between the superblock and the inode table.
// A set bit means the block is in use. This is spec.md §4.B.
package bitmap

import (
	"github.com/gosfs/server/internal/gosfs/bufcache"
	"github.com/gosfs/server/internal/gosfs/fserrors"
	"github.com/gosfs/server/internal/gosfs/layout"
)

// Bitmap is a handle onto the bitmap region of a mounted volume.
type Bitmap struct {
	cache     *bufcache.Cache
	offset    int64 // superblock.BitmapOffset
	numBlocks int64 // total data-addressable blocks tracked by this bitmap
}

// New returns a Bitmap rooted at the bitmap region starting at
// bitmapOffset (blocks), tracking numBlocks data blocks.
func New(cache *bufcache.Cache, bitmapOffset int64, numBlocks int64) *Bitmap {
	return &Bitmap{cache: cache, offset: bitmapOffset, numBlocks: numBlocks}
}

func (b *Bitmap) blockAndByte(blockNum int64) (block int64, byteOff int, bit uint) {
	bitIndex := blockNum
	return b.offset + bitIndex/layout.BitsPerBlock, int(bitIndex % layout.BitsPerBlock / 8), uint(bitIndex % 8)
}

// IsSet reports whether blockNum is currently allocated.
func (b *Bitmap) IsSet(blockNum int64) (bool, error) {
	const op = "bitmap.Bitmap.IsSet"

	block, byteOff, bit := b.blockAndByte(blockNum)
	buf, err := b.cache.Get(block)
	if err != nil {
		return false, fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	defer b.cache.Release(buf)

	return buf.Data[byteOff]&(1<<bit) != 0, nil
}

func (b *Bitmap) set(blockNum int64, value bool) error {
	const op = "bitmap.Bitmap.set"

	block, byteOff, bit := b.blockAndByte(blockNum)
	buf, err := b.cache.Get(block)
	if err != nil {
		return fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	defer b.cache.Release(buf)

	if value {
		buf.Data[byteOff] |= 1 << bit
	} else {
		buf.Data[byteOff] &^= 1 << bit
	}
	b.cache.MarkDirty(buf)
	return nil
}

// Alloc scans for the first clear bit, sets it, and returns the block
// number it names. The caller is responsible for zero-filling the block's
// contents before handing it to a reader — Alloc only reserves the slot.
func (b *Bitmap) Alloc() (int64, error) {
	const op = "bitmap.Bitmap.Alloc"

	for blockNum := int64(0); blockNum < b.numBlocks; blockNum++ {
		used, err := b.IsSet(blockNum)
		if err != nil {
			return layout.AbsentPtr, err
		}
		if !used {
			if err := b.set(blockNum, true); err != nil {
				return layout.AbsentPtr, err
			}
			return blockNum, nil
		}
	}
	return layout.AbsentPtr, fserrors.New(op, fserrors.NoSpace, "no free blocks")
}

// Free clears the bit for blockNum, returning it to the pool. Freeing an
// already-free block is a no-op.
func (b *Bitmap) Free(blockNum int64) error {
	return b.set(blockNum, false)
}
