// Package fileops implements byte-granularity read/write/seek against a
// GOSFS file, translating byte offsets into the logical-block calls the
// indexer understands (spec.md §4.G). It does not touch directory content;
// package dirops in internal/gosfs/dirops and fileops aren't even mutually
// aware — both compile down to the same indexer and cache primitives.
package fileops

import (
	"github.com/gosfs/server/internal/gosfs/bufcache"
	"github.com/gosfs/server/internal/gosfs/fserrors"
	"github.com/gosfs/server/internal/gosfs/indexer"
	"github.com/gosfs/server/internal/gosfs/inode"
	"github.com/gosfs/server/internal/gosfs/layout"
)

// Handle is an open file's cursor: which inode, current byte offset, and
// whether the handle may extend the file. A read-only handle may not seek
// or write past EOF; a writable handle may seek past EOF, and the gap a
// subsequent write leaves behind reads back as zero bytes.
type Handle struct {
	Ino      int
	Offset   int64
	Writable bool
}

// Files performs read/write/seek against inode content through idx.
type Files struct {
	cache  *bufcache.Cache
	idx    *indexer.Indexer
	inodes *inode.Table
}

// New returns a Files bound to cache, idx, and the inode table they share.
func New(cache *bufcache.Cache, idx *indexer.Indexer, inodes *inode.Table) *Files {
	return &Files{cache: cache, idx: idx, inodes: inodes}
}

// Open returns a Handle at offset 0 for ino, after checking ino names a
// regular file use writable controls whether later Write/Seek calls may
// extend it.
func (f *Files) Open(ino int, writable bool) (*Handle, error) {
	const op = "fileops.Files.Open"

	n, err := f.inodes.Get(ino)
	if err != nil {
		return nil, err
	}
	if !n.IsUsed() {
		return nil, fserrors.New(op, fserrors.NotFound, "inode not in use")
	}
	if n.IsDirectory() {
		return nil, fserrors.New(op, fserrors.InvalidArgument, "is a directory")
	}
	return &Handle{Ino: ino, Offset: 0, Writable: writable}, nil
}

// Seek repositions h.Offset. A read-only handle cannot move past the
// file's current size; a writable handle can, and a subsequent Write
// leaves the skipped range as a hole that reads back as zeros.
func (f *Files) Seek(h *Handle, offset int64) error {
	const op = "fileops.Files.Seek"

	if offset < 0 {
		return fserrors.New(op, fserrors.InvalidArgument, "negative offset")
	}
	if !h.Writable {
		n, err := f.inodes.Get(h.Ino)
		if err != nil {
			return err
		}
		if offset > int64(n.Size) {
			return fserrors.New(op, fserrors.InvalidArgument, "seek past EOF on read-only handle")
		}
	}
	h.Offset = offset
	return nil
}

// Read copies up to len(buf) bytes starting at h.Offset into buf, returning
// however many bytes were actually available, and advances h.Offset by
// that amount. Reading at or past EOF returns (0, nil), matching GOSFS's
// "short read at end of file" semantics rather than an error.
func (f *Files) Read(h *Handle, buf []byte) (int, error) {
	const op = "fileops.Files.Read"

	n, err := f.inodes.Get(h.Ino)
	if err != nil {
		return 0, err
	}

	available := int64(n.Size) - h.Offset
	if available <= 0 {
		return 0, nil
	}
	want := int64(len(buf))
	if want > available {
		want = available
	}

	var done int64
	for done < want {
		logical := (h.Offset + done) / layout.BlockSize
		inBlock := (h.Offset + done) % layout.BlockSize
		chunk := layout.BlockSize - inBlock
		if chunk > want-done {
			chunk = want - done
		}

		phys, err := f.idx.Locate(&n, logical, false)
		if err != nil {
			return int(done), err
		}
		if phys == layout.AbsentPtr {
			// Hole: reads as zero.
			for i := int64(0); i < chunk; i++ {
				buf[done+i] = 0
			}
		} else {
			blk, err := f.cache.Get(phys)
			if err != nil {
				return int(done), fserrors.New(op, fserrors.Unspecified, err.Error())
			}
			copy(buf[done:done+chunk], blk.Data[inBlock:inBlock+chunk])
			f.cache.Release(blk)
		}

		done += chunk
	}

	h.Offset += done
	return int(done), nil
}

// Write copies data into the file starting at h.Offset, allocating
// whatever blocks the written range covers, and advances h.Offset by the
// number of bytes written. Blocks between the old EOF and h.Offset that the
// range does not cover stay unallocated and read back as zeros. It persists
// the inode's updated size and block list before returning, also when an
// error stops the write partway; the size then covers only the bytes
// written before the error.
func (f *Files) Write(h *Handle, data []byte) (int, error) {
	const op = "fileops.Files.Write"

	if !h.Writable {
		return 0, fserrors.New(op, fserrors.AccessDenied, "handle not writable")
	}

	n, err := f.inodes.Get(h.Ino)
	if err != nil {
		return 0, err
	}

	want := int64(len(data))
	if h.Offset+want > layout.MaxFileSize {
		return 0, fserrors.New(op, fserrors.InvalidArgument, "write exceeds maximum file size")
	}

	var done int64
	var writeErr error
	for done < want {
		logical := (h.Offset + done) / layout.BlockSize
		inBlock := (h.Offset + done) % layout.BlockSize
		chunk := layout.BlockSize - inBlock
		if chunk > want-done {
			chunk = want - done
		}

		phys, err := f.idx.Locate(&n, logical, true)
		if err != nil {
			writeErr = err
			break
		}

		blk, err := f.cache.Get(phys)
		if err != nil {
			writeErr = fserrors.New(op, fserrors.Unspecified, err.Error())
			break
		}
		copy(blk.Data[inBlock:inBlock+chunk], data[done:done+chunk])
		f.cache.MarkDirty(blk)
		f.cache.Release(blk)

		done += chunk
	}

	newEnd := h.Offset + done
	if newEnd > int64(n.Size) {
		n.Size = uint64(newEnd)
	}
	if err := f.inodes.Put(h.Ino, n); err != nil {
		return int(done), err
	}

	h.Offset += done
	return int(done), writeErr
}
