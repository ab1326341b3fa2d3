// Package mount assembles a bufcache, bitmap, inode table, and indexer over
// a blockdev.Device into a Volume, and implements format/mount/sync
// (spec.md §4.A and §4.I). It owns the mount-wide mutex every other
// package's callers are expected to hold before touching a Volume's state,
// per spec.md §5 and §9.
package mount

import (
	"sync"

	"github.com/gosfs/server/internal/gosfs/bitmap"
	"github.com/gosfs/server/internal/gosfs/blockdev"
	"github.com/gosfs/server/internal/gosfs/bufcache"
	"github.com/gosfs/server/internal/gosfs/dirops"
	"github.com/gosfs/server/internal/gosfs/fserrors"
	"github.com/gosfs/server/internal/gosfs/indexer"
	"github.com/gosfs/server/internal/gosfs/inode"
	"github.com/gosfs/server/internal/gosfs/layout"
	"github.com/gosfs/server/pkg/binary"
)

// Superblock is the in-memory copy of a volume's on-disk header.
type Superblock struct {
	NumBlocks        int64
	BitmapOffset     int64
	InodeTableOffset int64
	DataOffset       int64
}

// Volume is one mounted GOSFS filesystem: the device it sits on, and every
// layer built on top of it. Every VFS-facing operation against a Volume
// must hold Mu for its duration — GOSFS serializes the whole mount rather
// than locking at finer granularity, matching the original source.
type Volume struct {
	Mu sync.Mutex

	Dev    blockdev.Device
	Cache  *bufcache.Cache
	SB     Superblock
	Bitmap *bitmap.Bitmap
	Inodes *inode.Table
	Idx    *indexer.Indexer
}

// Format initializes a fresh GOSFS volume on dev: writes the superblock,
// zeroes the bitmap and inode table, and creates the root directory at
// layout.RootInodePtr. It returns a Volume ready for immediate use,
// equivalent to formatting followed by mounting.
func Format(dev blockdev.Device) (*Volume, error) {
	const op = "mount.Format"

	totalBlocks := dev.NumSectors() / layout.SectorsPerBlock
	if totalBlocks <= int64(layout.BitmapOffset+layout.NumInodeTableBlocks+1) {
		return nil, fserrors.New(op, fserrors.InvalidArgument, "device too small for a GOSFS volume")
	}

	numBitmapBlocks := int64(layout.NumBitmapBlocks(int(totalBlocks)))
	inodeTableOffset := int64(layout.BitmapOffset) + numBitmapBlocks
	dataOffset := inodeTableOffset + int64(layout.NumInodeTableBlocks)
	numDataBlocks := totalBlocks - dataOffset
	if numDataBlocks <= 0 {
		return nil, fserrors.New(op, fserrors.InvalidArgument, "device too small to hold any data blocks")
	}

	cache := bufcache.New(dev)

	sbBuf, err := cache.Get(layout.SuperblockOffset)
	if err != nil {
		return nil, fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	rec := &binary.SuperblockRecord{
		Magic:            layout.Magic,
		StructSize:       binary.SuperblockRecordSize,
		NumBlocks:        uint64(totalBlocks),
		BitmapOffset:     uint64(layout.BitmapOffset),
		InodeTableOffset: uint64(inodeTableOffset),
		DataOffset:       uint64(dataOffset),
	}
	encoded, err := binary.EncodeSuperblock(rec)
	if err != nil {
		cache.Release(sbBuf)
		return nil, fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	for i := range sbBuf.Data {
		sbBuf.Data[i] = 0
	}
	copy(sbBuf.Data, encoded)
	cache.MarkDirty(sbBuf)
	cache.Release(sbBuf)

	for b := int64(layout.BitmapOffset); b < inodeTableOffset; b++ {
		buf, err := cache.Get(b)
		if err != nil {
			return nil, fserrors.New(op, fserrors.Unspecified, err.Error())
		}
		for i := range buf.Data {
			buf.Data[i] = 0
		}
		cache.MarkDirty(buf)
		cache.Release(buf)
	}

	for b := inodeTableOffset; b < dataOffset; b++ {
		buf, err := cache.Get(b)
		if err != nil {
			return nil, fserrors.New(op, fserrors.Unspecified, err.Error())
		}
		for i := range buf.Data {
			buf.Data[i] = 0
		}
		cache.MarkDirty(buf)
		cache.Release(buf)
	}

	bm := bitmap.New(cache, int64(layout.BitmapOffset), numDataBlocks)
	idx := indexer.New(cache, bm, dataOffset)
	inodes := inode.NewTable(cache, inodeTableOffset)

	if err := inodes.Init(layout.RootInodePtr, true); err != nil {
		return nil, err
	}

	root, err := inodes.Get(layout.RootInodePtr)
	if err != nil {
		return nil, err
	}
	dirs := dirops.New(cache, idx)
	if err := dirs.InitDirectory(&root, "/", layout.RootInodePtr); err != nil {
		return nil, err
	}
	if err := inodes.Put(layout.RootInodePtr, root); err != nil {
		return nil, err
	}

	if err := cache.Sync(); err != nil {
		return nil, fserrors.New(op, fserrors.Unspecified, err.Error())
	}

	return &Volume{
		Dev:   dev,
		Cache: cache,
		SB: Superblock{
			NumBlocks:        totalBlocks,
			BitmapOffset:     int64(layout.BitmapOffset),
			InodeTableOffset: inodeTableOffset,
			DataOffset:       dataOffset,
		},
		Bitmap: bm,
		Inodes: inodes,
		Idx:    idx,
	}, nil
}

// Mount reads an existing volume's superblock off dev and wires up the
// cache/bitmap/inode-table/indexer stack against it.
func Mount(dev blockdev.Device) (*Volume, error) {
	const op = "mount.Mount"

	cache := bufcache.New(dev)

	sbBuf, err := cache.Get(layout.SuperblockOffset)
	if err != nil {
		return nil, fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	rec, err := binary.DecodeSuperblock(sbBuf.Data)
	cache.Release(sbBuf)
	if err != nil {
		return nil, fserrors.New(op, fserrors.InvalidFS, err.Error())
	}
	if rec.Magic != layout.Magic {
		return nil, fserrors.New(op, fserrors.InvalidFS, "bad magic: not a GOSFS volume")
	}

	numDataBlocks := int64(rec.NumBlocks) - int64(rec.DataOffset)
	bm := bitmap.New(cache, int64(rec.BitmapOffset), numDataBlocks)
	idx := indexer.New(cache, bm, int64(rec.DataOffset))
	inodes := inode.NewTable(cache, int64(rec.InodeTableOffset))

	return &Volume{
		Dev:   dev,
		Cache: cache,
		SB: Superblock{
			NumBlocks:        int64(rec.NumBlocks),
			BitmapOffset:     int64(rec.BitmapOffset),
			InodeTableOffset: int64(rec.InodeTableOffset),
			DataOffset:       int64(rec.DataOffset),
		},
		Bitmap: bm,
		Inodes: inodes,
		Idx:    idx,
	}, nil
}

// Sync flushes every dirty block back to the device.
func (v *Volume) Sync() error {
	v.Mu.Lock()
	defer v.Mu.Unlock()
	return v.Cache.Sync()
}
