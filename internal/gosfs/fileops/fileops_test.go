package fileops

import (
	"bytes"
	"testing"

	"github.com/gosfs/server/internal/gosfs/blockdev/memdevice"
	"github.com/gosfs/server/internal/gosfs/layout"
	"github.com/gosfs/server/internal/gosfs/mount"
)

func newTestFiles(t *testing.T) (*mount.Volume, *Files, int) {
	t.Helper()
	dev := memdevice.New(512 * layout.SectorsPerBlock)
	vol, err := mount.Format(dev)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	ino, err := vol.Inodes.FindFree()
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if err := vol.Inodes.Init(ino, false); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	return vol, New(vol.Cache, vol.Idx, vol.Inodes), ino
}

func TestWriteThenReadBack(t *testing.T) {
	vol, files, ino := newTestFiles(t)
	_ = vol

	h, err := files.Open(ino, true)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	payload := []byte("hello, gosfs")
	n, err := files.Write(h, payload)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("wanted to write %d bytes; wrote %d", len(payload), n)
	}

	if err := files.Seek(h, 0); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	buf := make([]byte, len(payload))
	n, err = files.Read(h, buf)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("wanted to read %d bytes; read %d", len(payload), n)
	}
	if !bytes.Equal(buf, payload) {
		t.Fatalf("wanted %q; found %q", payload, buf)
	}
}

func TestReadPastEOFReturnsShortRead(t *testing.T) {
	vol, files, ino := newTestFiles(t)
	_ = vol

	h, err := files.Open(ino, true)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if _, err := files.Write(h, []byte("abc")); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if err := files.Seek(h, 0); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	buf := make([]byte, 100)
	n, err := files.Read(h, buf)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if n != 3 {
		t.Fatalf("wanted a short read of 3 bytes; found %d", n)
	}
}

func TestWriteAcrossHoleReadsZeros(t *testing.T) {
	vol, files, ino := newTestFiles(t)
	_ = vol

	h, err := files.Open(ino, true)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	if err := files.Seek(h, layout.BlockSize); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if _, err := files.Write(h, []byte("tail")); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	if err := files.Seek(h, 0); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	buf := make([]byte, layout.BlockSize)
	n, err := files.Read(h, buf)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if n != layout.BlockSize {
		t.Fatalf("wanted to read the full hole region; read %d bytes", n)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("wanted byte %d of the hole to read as zero; found %d", i, b)
		}
	}
}

func TestReadOnlyHandleRejectsSeekPastEOF(t *testing.T) {
	vol, files, ino := newTestFiles(t)
	_ = vol

	wh, err := files.Open(ino, true)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if _, err := files.Write(wh, []byte("abc")); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	rh, err := files.Open(ino, false)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if err := files.Seek(rh, 100); err == nil {
		t.Fatal("wanted an error seeking a read-only handle past EOF; found nil")
	}
}

func TestWriteRejectedOnReadOnlyHandle(t *testing.T) {
	vol, files, ino := newTestFiles(t)
	_ = vol

	rh, err := files.Open(ino, false)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if _, err := files.Write(rh, []byte("x")); err == nil {
		t.Fatal("wanted an error writing through a read-only handle; found nil")
	}
}

func TestOpenRejectsDirectory(t *testing.T) {
	dev := memdevice.New(512 * layout.SectorsPerBlock)
	vol, err := mount.Format(dev)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	files := New(vol.Cache, vol.Idx, vol.Inodes)

	if _, err := files.Open(layout.RootInodePtr, false); err == nil {
		t.Fatal("wanted an error opening a directory as a file; found nil")
	}
}
