package blockdev

import (
	"fmt"
	"os"

	"github.com/gosfs/server/internal/gosfs/layout"
)

// FileDevice is a Device backed by a regular file on the host filesystem —
// a disk image. This is the concrete block device driver GOSFS mounts in
// production, as opposed to memdevice.Device which backs unit tests.
type FileDevice struct {
	f          *os.File
	numSectors int64
}

// OpenFileDevice opens (or creates, if it doesn't exist) path as a
// sector-addressed device. When numSectors is 0, the device's size is
// taken from the file's existing length — the mount path, where the
// volume was already formatted to some size. When numSectors is positive,
// the file is grown to hold at least that many sectors if it doesn't
// already — the format path. Existing contents are always preserved.
func OpenFileDevice(path string, numSectors int64) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blockdev.OpenFileDevice: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev.OpenFileDevice: %w", err)
	}

	if numSectors == 0 {
		numSectors = info.Size() / layout.SectorSize
	} else if size := numSectors * layout.SectorSize; info.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("blockdev.OpenFileDevice: %w", err)
		}
	}

	return &FileDevice{f: f, numSectors: numSectors}, nil
}

func (d *FileDevice) ReadSector(sector int64, buf []byte) error {
	_, err := d.f.ReadAt(buf, sector*layout.SectorSize)
	return err
}

func (d *FileDevice) WriteSector(sector int64, buf []byte) error {
	_, err := d.f.WriteAt(buf, sector*layout.SectorSize)
	return err
}

func (d *FileDevice) NumSectors() int64 {
	return d.numSectors
}

// Sync flushes the underlying file to stable storage.
func (d *FileDevice) Sync() error {
	return d.f.Sync()
}

// Close releases the underlying file handle.
func (d *FileDevice) Close() error {
	return d.f.Close()
}
