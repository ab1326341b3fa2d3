package indexer

import (
	"testing"

	"github.com/gosfs/server/internal/gosfs/bitmap"
	"github.com/gosfs/server/internal/gosfs/blockdev/memdevice"
	"github.com/gosfs/server/internal/gosfs/bufcache"
	"github.com/gosfs/server/internal/gosfs/inode"
	"github.com/gosfs/server/internal/gosfs/layout"
)

// newTestIndexer lays out a tiny volume by hand: block 0 unused, the
// bitmap starts at block 1, data starts at block 2 and runs for
// numDataBlocks blocks.
func newTestIndexer(t *testing.T, numDataBlocks int64) *Indexer {
	t.Helper()
	totalBlocks := numDataBlocks + 2
	dev := memdevice.New(totalBlocks * layout.SectorsPerBlock)
	cache := bufcache.New(dev)
	bm := bitmap.New(cache, 1, numDataBlocks)
	return New(cache, bm, 2)
}

func TestLocateDirectBlockAllocates(t *testing.T) {
	idx := newTestIndexer(t, 32)
	var n inode.Inode

	phys, err := idx.Locate(&n, 0, true)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if phys == layout.AbsentPtr {
		t.Fatal("wanted a real block number; found AbsentPtr")
	}
	if int64(n.BlockList[0]) != phys {
		t.Fatalf("wanted BlockList[0]=%d to record the allocation; found %d", phys, n.BlockList[0])
	}

	again, err := idx.Locate(&n, 0, false)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if again != phys {
		t.Fatalf("wanted re-Locate without allocate to return the same block; wanted %d, found %d", phys, again)
	}
}

func TestLocateWithoutAllocateReturnsAbsent(t *testing.T) {
	idx := newTestIndexer(t, 32)
	var n inode.Inode

	phys, err := idx.Locate(&n, 3, false)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if phys != layout.AbsentPtr {
		t.Fatalf("wanted AbsentPtr for an unallocated block; found %d", phys)
	}
}

func TestLocateSingleIndirect(t *testing.T) {
	idx := newTestIndexer(t, int64(layout.NumDirectBlocks+layout.SingleIndirectCapacity+4))
	var n inode.Inode

	l := int64(layout.NumDirectBlocks + 3)
	phys, err := idx.Locate(&n, l, true)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if phys == layout.AbsentPtr {
		t.Fatal("wanted a real block; found AbsentPtr")
	}
	if n.BlockList[layout.NumDirectBlocks] == layout.AbsentPtr {
		t.Fatal("wanted the single-indirect pointer to be populated")
	}

	again, err := idx.Locate(&n, l, false)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if again != phys {
		t.Fatalf("wanted re-Locate to return the same block %d; found %d", phys, again)
	}
}

func TestLocateExceedsMaxLogicalBlocks(t *testing.T) {
	idx := newTestIndexer(t, 4)
	var n inode.Inode

	if _, err := idx.Locate(&n, layout.MaxLogicalBlocks, true); err == nil {
		t.Fatal("wanted an error for a logical block past MaxLogicalBlocks; found nil")
	}
}

func TestFreeReturnsBlockToBitmap(t *testing.T) {
	idx := newTestIndexer(t, 4)
	var n inode.Inode

	phys, err := idx.Locate(&n, 0, true)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	if err := idx.Free(phys); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	var n2 inode.Inode
	reused, err := idx.Locate(&n2, 0, true)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if reused != phys {
		t.Fatalf("wanted Free to make block %d available again; found %d", phys, reused)
	}
}
