package bitmap

import (
	"testing"

	"github.com/gosfs/server/internal/gosfs/blockdev/memdevice"
	"github.com/gosfs/server/internal/gosfs/bufcache"
	"github.com/gosfs/server/internal/gosfs/layout"
)

func newTestBitmap(t *testing.T, numBlocks int64) *Bitmap {
	t.Helper()
	dev := memdevice.New(64 * layout.SectorsPerBlock)
	cache := bufcache.New(dev)
	return New(cache, 1, numBlocks)
}

func TestAllocFreeRoundTrip(t *testing.T) {
	bm := newTestBitmap(t, 100)

	first, err := bm.Alloc()
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if first != 0 {
		t.Fatalf("wanted first allocation to be block 0; found %d", first)
	}

	second, err := bm.Alloc()
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if second != 1 {
		t.Fatalf("wanted second allocation to be block 1; found %d", second)
	}

	if used, err := bm.IsSet(first); err != nil || !used {
		t.Fatalf("wanted block %d set; found used=%v err=%v", first, used, err)
	}

	if err := bm.Free(first); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if used, err := bm.IsSet(first); err != nil || used {
		t.Fatalf("wanted block %d clear after Free; found used=%v err=%v", first, used, err)
	}

	third, err := bm.Alloc()
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if third != first {
		t.Fatalf("wanted Alloc to reuse freed block %d; found %d", first, third)
	}
}

func TestAllocExhaustion(t *testing.T) {
	bm := newTestBitmap(t, 4)

	for i := 0; i < 4; i++ {
		if _, err := bm.Alloc(); err != nil {
			t.Fatalf("Unexpected err allocating block %d: %v", i, err)
		}
	}

	if _, err := bm.Alloc(); err == nil {
		t.Fatal("wanted an error allocating past capacity; found nil")
	}
}

func TestFreeAlreadyFreeIsNoOp(t *testing.T) {
	bm := newTestBitmap(t, 10)
	if err := bm.Free(3); err != nil {
		t.Fatalf("Unexpected err freeing an already-free block: %v", err)
	}
}
