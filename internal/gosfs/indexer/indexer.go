// Package indexer resolves a file's logical block number L to a physical
// block number, walking the direct, single-indirect, and double-indirect
// regions of an inode's block-pointer vector (spec.md §4.D — the hardest
// piece of the on-disk layout, since every other package treats "give me
// block L of this inode" as a primitive).
package indexer

import (
	"encoding/binary"

	"github.com/gosfs/server/internal/gosfs/bitmap"
	"github.com/gosfs/server/internal/gosfs/bufcache"
	"github.com/gosfs/server/internal/gosfs/fserrors"
	"github.com/gosfs/server/internal/gosfs/inode"
	"github.com/gosfs/server/internal/gosfs/layout"
)

// Indexer resolves logical block numbers against one inode's BlockList,
// allocating indirection blocks and data blocks on demand when a caller
// asks it to.
type Indexer struct {
	cache      *bufcache.Cache
	bm         *bitmap.Bitmap
	dataOffset int64 // first absolute block number the bitmap's bit 0 names
}

// New returns an Indexer backed by cache for block I/O and bm for
// allocation of new indirection/data blocks. dataOffset converts the
// bitmap's zero-based bit indices into absolute block numbers on the
// device.
func New(cache *bufcache.Cache, bm *bitmap.Bitmap, dataOffset int64) *Indexer {
	return &Indexer{cache: cache, bm: bm, dataOffset: dataOffset}
}

// Locate returns the physical block number holding logical block L of n.
// If that slot has never been written, it returns layout.AbsentPtr (not an
// error) unless allocate is true, in which case Locate allocates whatever
// indirection blocks and the final data block are missing along the path,
// persists the updated pointers into n, and returns the newly allocated
// data block.
func (idx *Indexer) Locate(n *inode.Inode, l int64, allocate bool) (int64, error) {
	const op = "indexer.Indexer.Locate"

	switch {
	case l < layout.NumDirectBlocks:
		if n.BlockList[l] == layout.AbsentPtr && allocate {
			newBlock, err := idx.allocZeroedBlock()
			if err != nil {
				return layout.AbsentPtr, err
			}
			n.BlockList[l] = uint64(newBlock)
		}
		return int64(n.BlockList[l]), nil

	case l < layout.NumDirectBlocks+layout.SingleIndirectCapacity:
		return idx.locateSingle(n, layout.NumDirectBlocks, l-layout.NumDirectBlocks, allocate)

	case l < layout.MaxLogicalBlocks:
		rel := l - layout.NumDirectBlocks - layout.SingleIndirectCapacity
		outer := rel / layout.PtrsPerBlock
		inner := rel % layout.PtrsPerBlock
		return idx.locateDouble(n, outer, inner, allocate)

	default:
		return layout.AbsentPtr, fserrors.New(op, fserrors.InvalidArgument, "logical block exceeds MaxLogicalBlocks")
	}
}

// locateSingle resolves the single-indirect slot at direct-vector index
// ptrIdx, offset into the indirection block.
func (idx *Indexer) locateSingle(n *inode.Inode, ptrIdx int64, offset int64, allocate bool) (int64, error) {
	indirectBlock := int64(n.BlockList[ptrIdx])
	if indirectBlock == layout.AbsentPtr {
		if !allocate {
			return layout.AbsentPtr, nil
		}
		var err error
		indirectBlock, err = idx.allocZeroedBlock()
		if err != nil {
			return layout.AbsentPtr, err
		}
		n.BlockList[ptrIdx] = uint64(indirectBlock)
	}

	return idx.ptrSlot(indirectBlock, offset, allocate)
}

// locateDouble resolves the double-indirect slot at outer index into the
// top-level indirection block, inner index into the second-level block it
// names.
func (idx *Indexer) locateDouble(n *inode.Inode, outer, inner int64, allocate bool) (int64, error) {
	topPtr := int64(n.BlockList[layout.NumDirectBlocks+layout.NumIndirectBlocks])
	if topPtr == layout.AbsentPtr {
		if !allocate {
			return layout.AbsentPtr, nil
		}
		var err error
		topPtr, err = idx.allocZeroedBlock()
		if err != nil {
			return layout.AbsentPtr, err
		}
		n.BlockList[layout.NumDirectBlocks+layout.NumIndirectBlocks] = uint64(topPtr)
	}

	secondPtr, err := idx.ptrSlot(topPtr, outer, allocate)
	if err != nil || secondPtr == layout.AbsentPtr {
		return layout.AbsentPtr, err
	}

	return idx.ptrSlot(secondPtr, inner, allocate)
}

// ptrSlot reads (and optionally allocates-and-writes) the pointer stored at
// slot index within indirection block blockNum. When allocate is true and
// the slot is empty, ptrSlot allocates a fresh zeroed block, stores its
// number into the slot, and returns it.
func (idx *Indexer) ptrSlot(blockNum int64, slot int64, allocate bool) (int64, error) {
	const op = "indexer.Indexer.ptrSlot"

	buf, err := idx.cache.Get(blockNum)
	if err != nil {
		return layout.AbsentPtr, fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	defer idx.cache.Release(buf)

	off := int(slot) * layout.PtrSize
	ptr := int64(binary.LittleEndian.Uint64(buf.Data[off : off+layout.PtrSize]))

	if ptr != layout.AbsentPtr || !allocate {
		return ptr, nil
	}

	newBlock, err := idx.allocZeroedBlock()
	if err != nil {
		return layout.AbsentPtr, err
	}
	binary.LittleEndian.PutUint64(buf.Data[off:off+layout.PtrSize], uint64(newBlock))
	idx.cache.MarkDirty(buf)
	return newBlock, nil
}

// allocZeroedBlock allocates a data block and zeroes it through the cache,
// so indirection and data blocks never surface stale bytes from a prior
// tenant.
func (idx *Indexer) allocZeroedBlock() (int64, error) {
	const op = "indexer.Indexer.allocZeroedBlock"

	rel, err := idx.bm.Alloc()
	if err != nil {
		return layout.AbsentPtr, err
	}
	abs := rel + idx.dataOffset

	buf, err := idx.cache.Get(abs)
	if err != nil {
		return layout.AbsentPtr, fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	for i := range buf.Data {
		buf.Data[i] = 0
	}
	idx.cache.MarkDirty(buf)
	idx.cache.Release(buf)

	return abs, nil
}

// Free returns the data block named by the absolute block number phys to
// the pool.
func (idx *Indexer) Free(phys int64) error {
	return idx.bm.Free(phys - idx.dataOffset)
}

// ReadPointers returns every pointer slot stored in the indirection block at
// blockNum, in slot order. Callers freeing a double-indirect chain need the
// full fan-out of a top-level block's middle blocks, which Locate never
// exposes since it only ever resolves one logical block at a time.
func (idx *Indexer) ReadPointers(blockNum int64) ([]int64, error) {
	const op = "indexer.Indexer.ReadPointers"

	buf, err := idx.cache.Get(blockNum)
	if err != nil {
		return nil, fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	defer idx.cache.Release(buf)

	ptrs := make([]int64, layout.PtrsPerBlock)
	for i := range ptrs {
		off := i * layout.PtrSize
		ptrs[i] = int64(binary.LittleEndian.Uint64(buf.Data[off : off+layout.PtrSize]))
	}
	return ptrs, nil
}
