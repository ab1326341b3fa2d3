package dirops_test

import (
	"testing"

	"github.com/gosfs/server/internal/gosfs/blockdev/memdevice"
	"github.com/gosfs/server/internal/gosfs/dirops"
	"github.com/gosfs/server/internal/gosfs/layout"
	"github.com/gosfs/server/internal/gosfs/mount"
)

func newTestVolume(t *testing.T) *mount.Volume {
	t.Helper()
	dev := memdevice.New(512 * layout.SectorsPerBlock)
	vol, err := mount.Format(dev)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	return vol
}

func TestInsertFindRemoveEntry(t *testing.T) {
	vol := newTestVolume(t)
	dirs := dirops.New(vol.Cache, vol.Idx)

	root, err := vol.Inodes.Get(layout.RootInodePtr)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	if err := dirs.InsertEntry(&root, "hello.txt", 2); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if err := vol.Inodes.Put(layout.RootInodePtr, root); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	ino, err := dirs.FindEntry(&root, "hello.txt")
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if ino != 2 {
		t.Fatalf("wanted ino 2; found %d", ino)
	}

	missing, err := dirs.FindEntry(&root, "nope.txt")
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if missing != layout.AbsentPtr {
		t.Fatalf("wanted AbsentPtr for a missing entry; found %d", missing)
	}

	if err := dirs.RemoveEntry(&root, "hello.txt"); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	gone, err := dirs.FindEntry(&root, "hello.txt")
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if gone != layout.AbsentPtr {
		t.Fatalf("wanted the removed entry to disappear; found ino %d", gone)
	}
}

func TestInsertDuplicateNameRejected(t *testing.T) {
	vol := newTestVolume(t)
	dirs := dirops.New(vol.Cache, vol.Idx)

	root, err := vol.Inodes.Get(layout.RootInodePtr)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	if err := dirs.InsertEntry(&root, "dup", 2); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if err := dirs.InsertEntry(&root, "dup", 3); err == nil {
		t.Fatal("wanted an error inserting a duplicate name; found nil")
	}
}

func TestIsEmptyAndList(t *testing.T) {
	vol := newTestVolume(t)
	dirs := dirops.New(vol.Cache, vol.Idx)

	root, err := vol.Inodes.Get(layout.RootInodePtr)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	empty, err := dirs.IsEmpty(&root)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if !empty {
		t.Fatal("wanted a freshly formatted root to be empty")
	}

	if err := dirs.InsertEntry(&root, "a", 2); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if err := dirs.InsertEntry(&root, "b", 3); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	empty, err = dirs.IsEmpty(&root)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if empty {
		t.Fatal("wanted root to be non-empty after inserting entries")
	}

	entries, err := dirs.List(&root)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("wanted 2 entries; found %d", len(entries))
	}
}

func TestInsertManyEntriesSpillsToNewBlock(t *testing.T) {
	vol := newTestVolume(t)
	dirs := dirops.New(vol.Cache, vol.Idx)

	root, err := vol.Inodes.Get(layout.RootInodePtr)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	total := layout.DirEntriesPerBlock + 5
	for i := 0; i < total; i++ {
		name := string(rune('a'+(i%26))) + string(rune('0'+(i/26)))
		if err := dirs.InsertEntry(&root, name, int64(i+2)); err != nil {
			t.Fatalf("Unexpected err inserting entry %d: %v", i, err)
		}
	}

	entries, err := dirs.List(&root)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if len(entries) != total {
		t.Fatalf("wanted %d entries after spilling into a second block; found %d", total, len(entries))
	}
}
