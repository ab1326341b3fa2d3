// Package memdevice is an in-memory blockdev.Device used by engine unit
// tests, so the byte-layout and allocation tests don't need a real file.
package memdevice

import (
	"fmt"
	"sync"

	"github.com/gosfs/server/internal/gosfs/layout"
)

// Device is an in-memory blockdev.Device.
type Device struct {
	mu   sync.Mutex
	data []byte
}

// New returns a Device with numSectors addressable sectors, zero-filled.
func New(numSectors int64) *Device {
	return &Device{data: make([]byte, numSectors*layout.SectorSize)}
}

func (d *Device) ReadSector(sector int64, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	off := sector * layout.SectorSize
	if off < 0 || off+int64(len(buf)) > int64(len(d.data)) {
		return fmt.Errorf("memdevice: read out of range at sector %d", sector)
	}
	copy(buf, d.data[off:off+int64(len(buf))])
	return nil
}

func (d *Device) WriteSector(sector int64, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	off := sector * layout.SectorSize
	if off < 0 || off+int64(len(buf)) > int64(len(d.data)) {
		return fmt.Errorf("memdevice: write out of range at sector %d", sector)
	}
	copy(d.data[off:off+int64(len(buf))], buf)
	return nil
}

func (d *Device) NumSectors() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.data)) / layout.SectorSize
}
