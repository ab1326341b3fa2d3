package bufcache

import (
	"bytes"
	"testing"

	"github.com/gosfs/server/internal/gosfs/blockdev/memdevice"
	"github.com/gosfs/server/internal/gosfs/layout"
)

func TestGetCachesAcrossCalls(t *testing.T) {
	dev := memdevice.New(16 * layout.SectorsPerBlock)
	cache := New(dev)

	first, err := cache.Get(1)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	first.Data[0] = 0x42
	cache.MarkDirty(first)
	cache.Release(first)

	second, err := cache.Get(1)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	defer cache.Release(second)

	if second.Data[0] != 0x42 {
		t.Fatalf("wanted the cached mutation to be visible without a Sync; found %d", second.Data[0])
	}
}

func TestSyncPersistsDirtyBlocksToDevice(t *testing.T) {
	dev := memdevice.New(16 * layout.SectorsPerBlock)
	cache := New(dev)

	buf, err := cache.Get(3)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	want := bytes.Repeat([]byte{0x7A}, layout.BlockSize)
	copy(buf.Data, want)
	cache.MarkDirty(buf)
	cache.Release(buf)

	if err := cache.Sync(); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	raw := make([]byte, layout.SectorSize)
	if err := dev.ReadSector(3*layout.SectorsPerBlock, raw); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if !bytes.Equal(raw, want[:layout.SectorSize]) {
		t.Fatal("wanted Sync to have written the dirty block through to the device")
	}
}

func TestSyncSkipsCleanBlocks(t *testing.T) {
	dev := memdevice.New(16 * layout.SectorsPerBlock)
	cache := New(dev)

	buf, err := cache.Get(0)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	cache.Release(buf)

	if err := cache.Sync(); err != nil {
		t.Fatalf("Unexpected err syncing with no dirty blocks: %v", err)
	}
}
