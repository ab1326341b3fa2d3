// Package inode implements the GOSFS inode table: a fixed array of
// directory-entry structures (size/flags/ACL/block-pointer vector) held in
// a contiguous region of the volume, plus the free-inode scan and
// init/destroy lifecycle operations from spec.md §4.C.
package inode

import (
	"github.com/gosfs/server/internal/gosfs/bufcache"
	"github.com/gosfs/server/internal/gosfs/fserrors"
	"github.com/gosfs/server/internal/gosfs/layout"
	"github.com/gosfs/server/pkg/binary"
)

// ACLEntry is one VFS-defined ACL triple.
type ACLEntry struct {
	UID         uint32
	Permissions uint32
	Valid       bool
}

// Inode is the fixed-size on-disk record describing one file or directory.
// GOSFS calls this struct a "directory entry" in the original source
// (GOSFS_Dir_Entry); Go code uses Inode to keep it distinct from the
// filename->inode directory entry record in package dirops.
type Inode struct {
	Size      uint64
	Flags     uint64
	BlockList [layout.NumBlockPtrs]uint64
	ACL       [layout.MaxACLEntries]ACLEntry
}

func (n *Inode) IsUsed() bool        { return n.Flags&layout.FlagUsed != 0 }
func (n *Inode) IsDirectory() bool   { return n.Flags&layout.FlagIsDirectory != 0 }
func (n *Inode) IsSetUID() bool      { return n.Flags&layout.FlagSetUID != 0 }

// Table is a handle onto the inode-table region of a mounted volume. It
// never copies the table into memory — per spec.md §4.I / §9, inodes
// always live in, and are accessed through, the buffer cache, so a
// concurrent writer's update is visible to every reader without an
// explicit write-through step.
type Table struct {
	cache  *bufcache.Cache
	offset int64 // superblock.InodeTableOffset
}

// NewTable returns a Table rooted at the inode-table region starting at
// tableOffset (blocks), backed by cache.
func NewTable(cache *bufcache.Cache, tableOffset int64) *Table {
	return &Table{cache: cache, offset: tableOffset}
}

func (t *Table) blockAndOffset(idx int) (block int64, offsetInBlock int) {
	return t.offset + int64(idx/layout.InodesPerBlock), (idx % layout.InodesPerBlock) * layout.DirEntrySize
}

// Get reads inode idx. idx must be a previously-allocated, non-zero
// pointer; callers are responsible for checking IsUsed on the result when
// that matters.
func (t *Table) Get(idx int) (Inode, error) {
	const op = "inode.Table.Get"

	block, off := t.blockAndOffset(idx)
	buf, err := t.cache.Get(block)
	if err != nil {
		return Inode{}, fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	defer t.cache.Release(buf)

	rec, err := binary.DecodeInode(buf.Data[off:off+layout.DirEntrySize], layout.NumBlockPtrs, layout.MaxACLEntries)
	if err != nil {
		return Inode{}, fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	return inodeFromRecord(rec), nil
}

// Put writes inode idx back and marks its block dirty.
func (t *Table) Put(idx int, n Inode) error {
	const op = "inode.Table.Put"

	block, off := t.blockAndOffset(idx)
	buf, err := t.cache.Get(block)
	if err != nil {
		return fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	defer t.cache.Release(buf)

	encoded, err := binary.EncodeInode(recordFromInode(n))
	if err != nil {
		return fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	copy(buf.Data[off:off+layout.DirEntrySize], encoded)
	t.cache.MarkDirty(buf)
	return nil
}

// inodeFromRecord converts a pure on-disk record into the domain Inode
// type. The record's slice lengths are expected to match
// layout.NumBlockPtrs / layout.MaxACLEntries exactly, since that's what Get
// asked DecodeInode for.
func inodeFromRecord(rec *binary.InodeRecord) Inode {
	var n Inode
	n.Size = rec.Size
	n.Flags = rec.Flags
	copy(n.BlockList[:], rec.BlockList)
	for i := range n.ACL {
		n.ACL[i] = ACLEntry{
			UID:         rec.ACL[i].UID,
			Permissions: rec.ACL[i].Permissions,
			Valid:       rec.ACL[i].Valid,
		}
	}
	return n
}

func recordFromInode(n Inode) *binary.InodeRecord {
	rec := &binary.InodeRecord{
		Size:      n.Size,
		Flags:     n.Flags,
		BlockList: make([]uint64, len(n.BlockList)),
		ACL:       make([]binary.ACLEntryRecord, len(n.ACL)),
	}
	copy(rec.BlockList, n.BlockList[:])
	for i, acl := range n.ACL {
		rec.ACL[i] = binary.ACLEntryRecord{
			UID:         acl.UID,
			Permissions: acl.Permissions,
			Valid:       acl.Valid,
		}
	}
	return rec
}

// FindFree scans the inode table linearly and returns the index of the
// first inode whose flags are all-zero (unused). Index 0 is never
// returned — it is the AbsentPtr sentinel, so the scan starts at 1.
func (t *Table) FindFree() (int, error) {
	const op = "inode.Table.FindFree"

	for i := 1; i < layout.MaxInodes; i++ {
		n, err := t.Get(i)
		if err != nil {
			return 0, err
		}
		if n.Flags == 0 {
			return i, nil
		}
	}
	return 0, fserrors.New(op, fserrors.NoSpace, "no free inode")
}

// Init sets USED (and ISDIRECTORY if isDir), zeroes size, block vector, and
// ACL, and persists the result. The inode becomes reachable only once the
// caller inserts a directory entry naming it — Init alone does not make it
// reachable from any parent.
func (t *Table) Init(idx int, isDir bool) error {
	var n Inode
	n.Flags = layout.FlagUsed
	if isDir {
		n.Flags |= layout.FlagIsDirectory
	}
	return t.Put(idx, n)
}

// Destroy zeroes flags, marking the inode free. The caller must already
// have released all of the inode's data and indirection blocks.
func (t *Table) Destroy(idx int) error {
	return t.Put(idx, Inode{})
}
