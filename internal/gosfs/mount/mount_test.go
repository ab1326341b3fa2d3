package mount

import (
	"testing"

	"github.com/gosfs/server/internal/gosfs/blockdev/memdevice"
	"github.com/gosfs/server/internal/gosfs/layout"
)

func TestFormatCreatesRootDirectory(t *testing.T) {
	dev := memdevice.New(256 * layout.SectorsPerBlock)

	vol, err := Format(dev)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	root, err := vol.Inodes.Get(layout.RootInodePtr)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if !root.IsUsed() || !root.IsDirectory() {
		t.Fatalf("wanted root to be a used directory; found %+v", root)
	}
	if root.Size != 1 {
		t.Fatalf("wanted root's size to count its THIS self-reference entry as 1; found %d", root.Size)
	}
	if root.BlockList[0] == layout.AbsentPtr {
		t.Fatal("wanted root to have its first data block allocated for the THIS entry")
	}
}

func TestFormatRejectsUndersizedDevice(t *testing.T) {
	dev := memdevice.New(4 * layout.SectorsPerBlock)

	if _, err := Format(dev); err == nil {
		t.Fatal("wanted an error formatting an undersized device; found nil")
	}
}

func TestMountReadsBackFormattedVolume(t *testing.T) {
	dev := memdevice.New(256 * layout.SectorsPerBlock)

	formatted, err := Format(dev)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if err := formatted.Sync(); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	mounted, err := Mount(dev)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if mounted.SB != formatted.SB {
		t.Fatalf("wanted superblock to round-trip unchanged; wanted %+v, found %+v", formatted.SB, mounted.SB)
	}
}

func TestMountRejectsBadMagic(t *testing.T) {
	dev := memdevice.New(256 * layout.SectorsPerBlock)
	if _, err := Mount(dev); err == nil {
		t.Fatal("wanted an error mounting an unformatted device; found nil")
	}
}
