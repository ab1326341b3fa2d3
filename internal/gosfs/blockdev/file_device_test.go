package blockdev

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/gosfs/server/internal/gosfs/layout"
)

func TestOpenFileDeviceFormatsToRequestedSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.img")

	dev, err := OpenFileDevice(path, 64)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	defer dev.Close()

	if dev.NumSectors() != 64 {
		t.Fatalf("wanted 64 sectors; found %d", dev.NumSectors())
	}
}

func TestOpenFileDeviceMountInfersSizeFromExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.img")

	formatDev, err := OpenFileDevice(path, 64)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if err := formatDev.Close(); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	mountDev, err := OpenFileDevice(path, 0)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	defer mountDev.Close()

	if mountDev.NumSectors() != 64 {
		t.Fatalf("wanted inferred size of 64 sectors; found %d", mountDev.NumSectors())
	}
}

func TestReadWriteSectorRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.img")

	dev, err := OpenFileDevice(path, 8)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	defer dev.Close()

	want := bytes.Repeat([]byte{0xAB}, layout.SectorSize)
	if err := dev.WriteSector(2, want); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	got := make([]byte, layout.SectorSize)
	if err := dev.ReadSector(2, got); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("wanted the written sector to read back unchanged")
	}
}
