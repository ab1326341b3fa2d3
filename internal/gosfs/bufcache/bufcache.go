// Package bufcache implements the buffered block cache GOSFS is built on
// top of: pin/unpin of a fixed-size block by block number, explicit dirty
// marking, and a cache-wide flush. This is the "buffer cache" external
// collaborator from spec.md §1 — every block the engine touches goes
// through here, never straight to the device.
//
// Every Get is paired with a Release on every exit path; this is the
// scoped-acquisition contract spec.md §5 and §9 call out explicitly.
package bufcache

import (
	"fmt"
	"sync"

	"github.com/gosfs/server/internal/gosfs/blockdev"
	"github.com/gosfs/server/internal/gosfs/layout"
)

// Buffer is a pinned, fixed-size block. Data must not be retained past the
// matching Release call.
type Buffer struct {
	block int64
	Data  []byte
	dirty bool
	pins  int
}

// Cache is a write-behind cache of filesystem blocks shared by all
// concurrent operations against one device.
type Cache struct {
	dev blockdev.Device

	mu      sync.Mutex
	entries map[int64]*Buffer
}

// New creates a cache over dev. GOSFS opens exactly one cache per mount.
func New(dev blockdev.Device) *Cache {
	return &Cache{dev: dev, entries: make(map[int64]*Buffer)}
}

// Get pins block n, reading it from the device on first access, and
// returns the pinned Buffer. The caller must call Release exactly once on
// every exit path, including errors raised after Get succeeds.
func (c *Cache) Get(n int64) (*Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if buf, ok := c.entries[n]; ok {
		buf.pins++
		return buf, nil
	}

	data := make([]byte, layout.BlockSize)
	if err := c.readBlockLocked(n, data); err != nil {
		return nil, fmt.Errorf("bufcache.Get(%d): %w", n, err)
	}

	buf := &Buffer{block: n, Data: data, pins: 1}
	c.entries[n] = buf
	return buf, nil
}

// MarkDirty flags buf as modified, so the next Sync will persist it to
// the device. Release does not write it back.
func (c *Cache) MarkDirty(buf *Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf.dirty = true
}

// Release unpins buf. It is an error to call Release more times than Get
// returned this buffer.
func (c *Cache) Release(buf *Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if buf.pins > 0 {
		buf.pins--
	}
}

// Sync flushes every dirty block back to the device. Called at mount
// "sync", on unmount, and at the end of format.
func (c *Cache) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for n, buf := range c.entries {
		if !buf.dirty {
			continue
		}
		if err := c.writeBlockLocked(n, buf.Data); err != nil {
			return fmt.Errorf("bufcache.Sync(%d): %w", n, err)
		}
		buf.dirty = false
	}
	return nil
}

func (c *Cache) readBlockLocked(n int64, data []byte) error {
	firstSector := n * layout.SectorsPerBlock
	for s := 0; s < layout.SectorsPerBlock; s++ {
		off := s * layout.SectorSize
		if err := c.dev.ReadSector(firstSector+int64(s), data[off:off+layout.SectorSize]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) writeBlockLocked(n int64, data []byte) error {
	firstSector := n * layout.SectorsPerBlock
	for s := 0; s < layout.SectorsPerBlock; s++ {
		off := s * layout.SectorSize
		if err := c.dev.WriteSector(firstSector+int64(s), data[off:off+layout.SectorSize]); err != nil {
			return err
		}
	}
	return nil
}
