// Package dirops implements directory content operations: inserting,
// finding, and removing (name -> inode) records inside a directory inode's
// data blocks (spec.md §4.F). A directory's data blocks are addressed
// through the same indexer used for regular file content — GOSFS does not
// give directories a distinct on-disk representation, only a distinct
// interpretation of their bytes.
package dirops

import (
	"github.com/gosfs/server/internal/gosfs/bufcache"
	"github.com/gosfs/server/internal/gosfs/fserrors"
	"github.com/gosfs/server/internal/gosfs/indexer"
	"github.com/gosfs/server/internal/gosfs/inode"
	"github.com/gosfs/server/internal/gosfs/layout"
	"github.com/gosfs/server/pkg/binary"
)

// Entry-type tags for the on-disk DirentRecord.Type field.
const (
	TypeFree    int64 = -1
	TypeRegular int64 = 0
	TypeThis    int64 = 1
)

// Dirs performs directory-content operations against a mounted volume's
// cache and block indexer.
type Dirs struct {
	cache *bufcache.Cache
	idx   *indexer.Indexer
}

// New returns a Dirs bound to cache and idx.
func New(cache *bufcache.Cache, idx *indexer.Indexer) *Dirs {
	return &Dirs{cache: cache, idx: idx}
}

// blockSpan returns how many logical blocks dir's data currently spans, by
// walking the block-pointer vector (through the indexer) until it finds an
// unallocated slot. A directory only ever grows by appending the next
// contiguous block (see InsertEntry's "no free slot" path), so its
// allocated blocks always form a single run starting at logical block 0 —
// dir.Size itself is an entry count (spec.md §3), not a byte length, so it
// cannot be used to derive the block span.
func (d *Dirs) blockSpan(dir *inode.Inode) (int64, error) {
	var lb int64
	for lb = 0; lb < layout.MaxLogicalBlocks; lb++ {
		phys, err := d.idx.Locate(dir, lb, false)
		if err != nil {
			return 0, err
		}
		if phys == layout.AbsentPtr {
			break
		}
	}
	return lb, nil
}

// forEachSlot walks every directory-entry slot across dir's allocated data
// blocks, calling visit with the slot's decoded record. If visit returns
// true, the walk stops and forEachSlot reports the slot's logical block and
// in-block record index.
func (d *Dirs) forEachSlot(dir *inode.Inode, visit func(rec *binary.DirentRecord) bool) (blockIdx int64, slot int, found bool, err error) {
	const op = "dirops.Dirs.forEachSlot"

	numBlocks, err := d.blockSpan(dir)
	if err != nil {
		return 0, 0, false, err
	}
	for lb := int64(0); lb < numBlocks; lb++ {
		phys, err := d.idx.Locate(dir, lb, false)
		if err != nil {
			return 0, 0, false, err
		}
		if phys == layout.AbsentPtr {
			continue
		}

		buf, err := d.cache.Get(phys)
		if err != nil {
			return 0, 0, false, fserrors.New(op, fserrors.Unspecified, err.Error())
		}

		for s := 0; s < layout.DirEntriesPerBlock; s++ {
			off := s * layout.DirentRecordSize
			rec, decErr := binary.DecodeDirentRecord(buf.Data[off : off+layout.DirentRecordSize])
			if decErr != nil {
				d.cache.Release(buf)
				return 0, 0, false, fserrors.New(op, fserrors.InvalidFS, decErr.Error())
			}
			if visit(rec) {
				d.cache.Release(buf)
				return lb, s, true, nil
			}
		}
		d.cache.Release(buf)
	}
	return 0, 0, false, nil
}

// FindEntry looks up name in dir's entries, returning the target inode
// index. It returns layout.AbsentPtr, not an error, when no entry matches.
func (d *Dirs) FindEntry(dir *inode.Inode, name string) (int64, error) {
	var target int64 = layout.AbsentPtr
	_, _, _, err := d.forEachSlot(dir, func(rec *binary.DirentRecord) bool {
		if rec.Type == TypeRegular && rec.Name == name {
			target = rec.Ino
			return true
		}
		return false
	})
	return target, err
}

// IsEmpty reports whether dir has no regular entries. A THIS self-reference
// does not count as an occupant (spec.md §4.F).
func (d *Dirs) IsEmpty(dir *inode.Inode) (bool, error) {
	_, _, found, err := d.forEachSlot(dir, func(rec *binary.DirentRecord) bool {
		return rec.Type == TypeRegular
	})
	return !found, err
}

// List returns every regular entry in dir, in on-disk slot order. THIS
// entries are omitted — callers walking a directory's children never want
// to see the self-reference.
func (d *Dirs) List(dir *inode.Inode) ([]binary.DirentRecord, error) {
	var entries []binary.DirentRecord
	_, _, _, err := d.forEachSlot(dir, func(rec *binary.DirentRecord) bool {
		if rec.Type == TypeRegular {
			entries = append(entries, *rec)
		}
		return false
	})
	return entries, err
}

// InitDirectory allocates dir's first data block and writes a THIS
// self-reference entry into slot 0, the rest of the block marked FREE, and
// sets size to 1 (spec.md §4.H/§4.I: "initialize the first entry as THIS
// ... set ISDIRECTORY|USED and size=1"). The caller must persist dir's
// inode (block-list/size changes) afterward, the same convention
// InsertEntry uses.
func (d *Dirs) InitDirectory(dir *inode.Inode, selfName string, selfIno int64) error {
	const op = "dirops.Dirs.InitDirectory"

	phys, err := d.idx.Locate(dir, 0, true)
	if err != nil {
		return err
	}

	buf, err := d.cache.Get(phys)
	if err != nil {
		return fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	defer d.cache.Release(buf)

	freeSlot, err := binary.EncodeDirentRecord(&binary.DirentRecord{Type: TypeFree})
	if err != nil {
		return fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	for s := 0; s < layout.DirEntriesPerBlock; s++ {
		off := s * layout.DirentRecordSize
		copy(buf.Data[off:off+layout.DirentRecordSize], freeSlot)
	}

	thisRec := &binary.DirentRecord{Name: selfName, Type: TypeThis, Ino: selfIno}
	encoded, err := binary.EncodeDirentRecord(thisRec)
	if err != nil {
		return fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	copy(buf.Data[0:layout.DirentRecordSize], encoded)
	d.cache.MarkDirty(buf)

	dir.Size = 1
	return nil
}

// InsertEntry adds a (name -> targetIno) record to dir, reusing a freed
// slot if one exists and otherwise extending dir with a new data block.
// dir.Size counts non-FREE entries (spec.md §3); the caller must persist
// dir's inode (size/block-list changes) afterward.
func (d *Dirs) InsertEntry(dir *inode.Inode, name string, targetIno int64) error {
	const op = "dirops.Dirs.InsertEntry"

	if len(name) > layout.FilenameMax {
		return fserrors.New(op, fserrors.InvalidArgument, "filename too long")
	}

	existing, err := d.FindEntry(dir, name)
	if err != nil {
		return err
	}
	if existing != layout.AbsentPtr {
		return fserrors.New(op, fserrors.InvalidArgument, "entry already exists")
	}

	rec := &binary.DirentRecord{Name: name, Type: TypeRegular, Ino: targetIno}
	encoded, err := binary.EncodeDirentRecord(rec)
	if err != nil {
		return fserrors.New(op, fserrors.Unspecified, err.Error())
	}

	// Reuse the first free slot across already-allocated blocks.
	numBlocks, err := d.blockSpan(dir)
	if err != nil {
		return err
	}
	for lb := int64(0); lb < numBlocks; lb++ {
		phys, err := d.idx.Locate(dir, lb, false)
		if err != nil {
			return err
		}
		if phys == layout.AbsentPtr {
			continue
		}

		buf, err := d.cache.Get(phys)
		if err != nil {
			return fserrors.New(op, fserrors.Unspecified, err.Error())
		}

		for s := 0; s < layout.DirEntriesPerBlock; s++ {
			off := s * layout.DirentRecordSize
			slotRec, decErr := binary.DecodeDirentRecord(buf.Data[off : off+layout.DirentRecordSize])
			if decErr != nil {
				d.cache.Release(buf)
				return fserrors.New(op, fserrors.InvalidFS, decErr.Error())
			}
			if slotRec.Type == TypeFree {
				copy(buf.Data[off:off+layout.DirentRecordSize], encoded)
				d.cache.MarkDirty(buf)
				d.cache.Release(buf)
				dir.Size++
				return nil
			}
		}
		d.cache.Release(buf)
	}

	// No free slot: allocate a new block, initialize every slot free, then
	// write the new record into the first one.
	newLB := numBlocks
	phys, err := d.idx.Locate(dir, newLB, true)
	if err != nil {
		return err
	}

	buf, err := d.cache.Get(phys)
	if err != nil {
		return fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	freeSlot, err := binary.EncodeDirentRecord(&binary.DirentRecord{Type: TypeFree})
	if err != nil {
		d.cache.Release(buf)
		return fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	for s := 0; s < layout.DirEntriesPerBlock; s++ {
		off := s * layout.DirentRecordSize
		copy(buf.Data[off:off+layout.DirentRecordSize], freeSlot)
	}
	copy(buf.Data[0:layout.DirentRecordSize], encoded)
	d.cache.MarkDirty(buf)
	d.cache.Release(buf)

	dir.Size++
	return nil
}

// RemoveEntry marks name's slot free and decrements dir.Size (the entry
// count). It does not free the data block the slot lives in — per
// spec.md's open-question decision, a
// directory's trailing empty blocks are reclaimed only when the directory
// itself is destroyed.
func (d *Dirs) RemoveEntry(dir *inode.Inode, name string) error {
	const op = "dirops.Dirs.RemoveEntry"

	lb, slot, found, err := d.forEachSlot(dir, func(rec *binary.DirentRecord) bool {
		return rec.Type == TypeRegular && rec.Name == name
	})
	if err != nil {
		return err
	}
	if !found {
		return fserrors.New(op, fserrors.NotFound, "entry not found")
	}

	phys, err := d.idx.Locate(dir, lb, false)
	if err != nil {
		return err
	}
	buf, err := d.cache.Get(phys)
	if err != nil {
		return fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	defer d.cache.Release(buf)

	freeSlot, err := binary.EncodeDirentRecord(&binary.DirentRecord{Type: TypeFree})
	if err != nil {
		return fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	off := slot * layout.DirentRecordSize
	copy(buf.Data[off:off+layout.DirentRecordSize], freeSlot)
	d.cache.MarkDirty(buf)
	dir.Size--
	return nil
}
