// Package vfs is the top-level operation table GOSFS exposes to callers:
// format, mount, stat, mkdir, opendir/readdir, open/read/write/seek/close,
// delete, and sync (spec.md §5). It owns the mount registry and the open
// file/directory handle tables; every other gosfs package operates on a
// single mounted volume and knows nothing about handles or concurrent
// mounts.
package vfs

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gosfs/server/internal/gosfs/blockdev"
	"github.com/gosfs/server/internal/gosfs/dirops"
	"github.com/gosfs/server/internal/gosfs/fileops"
	"github.com/gosfs/server/internal/gosfs/fserrors"
	"github.com/gosfs/server/internal/gosfs/indexer"
	"github.com/gosfs/server/internal/gosfs/inode"
	"github.com/gosfs/server/internal/gosfs/layout"
	"github.com/gosfs/server/internal/gosfs/mount"
	gosfspath "github.com/gosfs/server/internal/gosfs/path"
	"github.com/gosfs/server/internal/models"
	"github.com/gosfs/server/pkg/binary"
)

// mountedVolume bundles a mount.Volume with the higher-level op sets built
// on top of it (dirops, fileops share its cache/indexer/inode-table).
type mountedVolume struct {
	vol   *mount.Volume
	dirs  *dirops.Dirs
	files *fileops.Files
}

// openFile is a live file handle: which mount and inode it belongs to, and
// the fileops cursor tracking its position. The inode is also recorded so
// Delete can refuse to remove a file out from under a live reader/writer,
// mirroring the original GOSFS_File_List / File_Is_Open guard.
type openFile struct {
	mountID string
	ino     int
	handle  *fileops.Handle
}

// openDir is a live directory iteration: a snapshot of the directory's
// entries taken at opendir time, plus a read cursor. GOSFS snapshots
// rather than iterating live, so concurrent mutation of the directory
// during a readdir sequence can't corrupt the cursor.
type openDir struct {
	mountID string
	entries []binary.DirentRecord
	pos     int
}

// VFS is the process-wide registry of mounted volumes and open handles.
type VFS struct {
	mu      sync.Mutex
	mounts  map[string]*mountedVolume
	files   map[string]*openFile
	dirs    map[string]*openDir
	counter uint64
}

// New returns an empty VFS with no mounts and no open handles.
func New() *VFS {
	return &VFS{
		mounts: make(map[string]*mountedVolume),
		files:  make(map[string]*openFile),
		dirs:   make(map[string]*openDir),
	}
}

func (v *VFS) nextID(prefix string) string {
	n := atomic.AddUint64(&v.counter, 1)
	return fmt.Sprintf("%s-%d", prefix, n)
}

// Format creates a fresh GOSFS volume backed by a file at devicePath sized
// to hold numBlocks filesystem blocks, writes it to disk, and returns
// without leaving it mounted — a caller wanting to use it immediately
// calls Mount next.
func Format(devicePath string, numBlocks int64) error {
	const op = "vfs.Format"

	dev, err := blockdev.OpenFileDevice(devicePath, numBlocks*layout.SectorsPerBlock)
	if err != nil {
		return fserrors.New(op, fserrors.Unspecified, err.Error())
	}
	defer dev.Close()

	vol, err := mount.Format(dev)
	if err != nil {
		return err
	}
	return vol.Sync()
}

// Mount opens the device at devicePath, reads its superblock, and
// registers it under mountID. Mounting the same ID twice is an error — a
// caller that wants a fresh handle must Unmount first.
func (v *VFS) Mount(mountID, devicePath string) error {
	const op = "vfs.VFS.Mount"

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.mounts[mountID]; exists {
		return fserrors.New(op, fserrors.InvalidArgument, "mount id already in use")
	}

	dev, err := blockdev.OpenFileDevice(devicePath, 0)
	if err != nil {
		return fserrors.New(op, fserrors.Unspecified, err.Error())
	}

	vol, err := mount.Mount(dev)
	if err != nil {
		dev.Close()
		return err
	}

	v.mounts[mountID] = &mountedVolume{
		vol:   vol,
		dirs:  dirops.New(vol.Cache, vol.Idx),
		files: fileops.New(vol.Cache, vol.Idx, vol.Inodes),
	}
	return nil
}

// Unmount flushes and releases the device behind mountID. Any handle still
// open against it is invalidated.
func (v *VFS) Unmount(mountID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	mv, err := v.lookupMountLocked(mountID)
	if err != nil {
		return err
	}

	mv.vol.Mu.Lock()
	syncErr := mv.vol.Cache.Sync()
	mv.vol.Mu.Unlock()

	if closer, ok := mv.vol.Dev.(interface{ Close() error }); ok {
		if cerr := closer.Close(); cerr != nil && syncErr == nil {
			syncErr = cerr
		}
	}

	delete(v.mounts, mountID)
	return syncErr
}

// Sync flushes every dirty block of mountID's volume to its device.
func (v *VFS) Sync(mountID string) error {
	v.mu.Lock()
	mv, err := v.lookupMountLocked(mountID)
	v.mu.Unlock()
	if err != nil {
		return err
	}
	return mv.vol.Sync()
}

func (v *VFS) lookupMountLocked(mountID string) (*mountedVolume, error) {
	const op = "vfs.VFS.lookupMount"
	mv, ok := v.mounts[mountID]
	if !ok {
		return nil, fserrors.New(op, fserrors.NotFound, "mount id not found")
	}
	return mv, nil
}

// RootIno is the fixed inode number of every volume's root directory.
const RootIno = layout.RootInodePtr

// resolve walks path from mv's root directory to the inode it names, per
// spec.md §4.E: split into components, scan each directory's entries in
// turn, descend on a match, fail NOT_FOUND otherwise. Caller must hold
// mv.vol.Mu.
func resolve(mv *mountedVolume, p string) (int, error) {
	const op = "vfs.resolve"

	if p == "" || p[0] != '/' {
		return 0, fserrors.New(op, fserrors.InvalidArgument, "path must be absolute")
	}

	ino := RootIno
	for _, comp := range gosfspath.Split(p) {
		dir, err := mv.vol.Inodes.Get(ino)
		if err != nil {
			return 0, err
		}
		if !dir.IsUsed() || !dir.IsDirectory() {
			return 0, fserrors.New(op, fserrors.NotFound, "path component is not a directory")
		}
		next, err := mv.dirs.FindEntry(&dir, comp)
		if err != nil {
			return 0, err
		}
		if next == layout.AbsentPtr {
			return 0, fserrors.New(op, fserrors.NotFound, "no such file or directory")
		}
		ino = int(next)
	}
	return ino, nil
}

// resolveParent splits p into its parent directory's inode and the final
// path component's name, rejecting an attempt to take the parent of root
// per spec.md §4.E. Caller must hold mv.vol.Mu.
func resolveParent(mv *mountedVolume, p string) (int, string, error) {
	const op = "vfs.resolveParent"

	parentPath, name := gosfspath.ParentAndName(p)
	if name == "" {
		return 0, "", fserrors.New(op, fserrors.InvalidArgument, "cannot take the parent of root")
	}
	parentIno, err := resolve(mv, parentPath)
	if err != nil {
		return 0, "", err
	}
	return parentIno, name, nil
}

// Stat returns everything spec.md §4.G exposes about the inode named by
// path on mountID.
func (v *VFS) Stat(mountID string, path string) (*models.StatInfo, error) {
	const op = "vfs.VFS.Stat"

	v.mu.Lock()
	mv, err := v.lookupMountLocked(mountID)
	v.mu.Unlock()
	if err != nil {
		return nil, err
	}

	mv.vol.Mu.Lock()
	defer mv.vol.Mu.Unlock()

	ino, err := resolve(mv, path)
	if err != nil {
		return nil, err
	}

	n, err := mv.vol.Inodes.Get(ino)
	if err != nil {
		return nil, err
	}
	if !n.IsUsed() {
		return nil, fserrors.New(op, fserrors.NotFound, "inode not in use")
	}

	acl := make([]models.ACLInfo, len(n.ACL))
	for i, e := range n.ACL {
		acl[i] = models.ACLInfo{UID: e.UID, Permissions: e.Permissions, Valid: e.Valid}
	}

	return &models.StatInfo{
		Size:        int64(n.Size),
		IsDirectory: n.IsDirectory(),
		IsSetUID:    n.IsSetUID(),
		ACL:         acl,
	}, nil
}

// Mkdir creates a new, empty subdirectory at path and returns its inode
// number.
func (v *VFS) Mkdir(mountID string, path string) (int, error) {
	const op = "vfs.VFS.Mkdir"

	v.mu.Lock()
	mv, err := v.lookupMountLocked(mountID)
	v.mu.Unlock()
	if err != nil {
		return 0, err
	}

	mv.vol.Mu.Lock()
	defer mv.vol.Mu.Unlock()

	parentIno, name, err := resolveParent(mv, path)
	if err != nil {
		return 0, err
	}

	parent, err := mv.vol.Inodes.Get(parentIno)
	if err != nil {
		return 0, err
	}
	if !parent.IsUsed() || !parent.IsDirectory() {
		return 0, fserrors.New(op, fserrors.InvalidArgument, "parent is not a directory")
	}

	if existing, err := mv.dirs.FindEntry(&parent, name); err != nil {
		return 0, err
	} else if existing != layout.AbsentPtr {
		return 0, fserrors.New(op, fserrors.InvalidArgument, "already exists")
	}

	newIno, err := mv.vol.Inodes.FindFree()
	if err != nil {
		return 0, err
	}
	if err := mv.vol.Inodes.Init(newIno, true); err != nil {
		return 0, err
	}

	newDir, err := mv.vol.Inodes.Get(newIno)
	if err != nil {
		return 0, err
	}
	if err := mv.dirs.InitDirectory(&newDir, ".", int64(newIno)); err != nil {
		return 0, err
	}
	if err := mv.vol.Inodes.Put(newIno, newDir); err != nil {
		return 0, err
	}

	if err := mv.dirs.InsertEntry(&parent, name, int64(newIno)); err != nil {
		return 0, err
	}
	if err := mv.vol.Inodes.Put(parentIno, parent); err != nil {
		return 0, err
	}

	return newIno, nil
}

// OpenDir resolves path, snapshots its entries, and returns a handle for
// ReadDir.
func (v *VFS) OpenDir(mountID string, path string) (string, error) {
	const op = "vfs.VFS.OpenDir"

	v.mu.Lock()
	mv, err := v.lookupMountLocked(mountID)
	v.mu.Unlock()
	if err != nil {
		return "", err
	}

	mv.vol.Mu.Lock()
	ino, err := resolve(mv, path)
	var n inode.Inode
	if err == nil {
		n, err = mv.vol.Inodes.Get(ino)
	}
	if err == nil && (!n.IsUsed() || !n.IsDirectory()) {
		err = fserrors.New(op, fserrors.InvalidArgument, "not a directory")
	}
	var entries []binary.DirentRecord
	if err == nil {
		entries, err = mv.dirs.List(&n)
	}
	mv.vol.Mu.Unlock()
	if err != nil {
		return "", err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID("dir")
	v.dirs[id] = &openDir{mountID: mountID, entries: entries}
	return id, nil
}

// ReadDir returns the next entry from a handle opened by OpenDir, or nil
// once the snapshot is exhausted.
func (v *VFS) ReadDir(dirHandle string) (*models.DirentInfo, error) {
	const op = "vfs.VFS.ReadDir"

	v.mu.Lock()
	defer v.mu.Unlock()

	od, ok := v.dirs[dirHandle]
	if !ok {
		return nil, fserrors.New(op, fserrors.NotFound, "directory handle not found")
	}
	if od.pos >= len(od.entries) {
		return nil, nil
	}

	mv := v.mounts[od.mountID]
	rec := od.entries[od.pos]
	od.pos++

	isDir := false
	if mv != nil {
		mv.vol.Mu.Lock()
		if n, err := mv.vol.Inodes.Get(int(rec.Ino)); err == nil {
			isDir = n.IsDirectory()
		}
		mv.vol.Mu.Unlock()
	}

	return &models.DirentInfo{Name: rec.Name, Ino: rec.Ino, IsDirectory: isDir}, nil
}

// CloseDir discards a directory handle.
func (v *VFS) CloseDir(dirHandle string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.dirs, dirHandle)
	return nil
}

// Open resolves path (creating a new regular file when create is true and
// no entry exists) and returns a file handle for read/write/seek.
func (v *VFS) Open(mountID string, path string, create, writable bool) (string, int, error) {
	const op = "vfs.VFS.Open"

	v.mu.Lock()
	mv, err := v.lookupMountLocked(mountID)
	v.mu.Unlock()
	if err != nil {
		return "", 0, err
	}

	mv.vol.Mu.Lock()
	targetIno, handle, err := func() (int, *fileops.Handle, error) {
		parentIno, name, err := resolveParent(mv, path)
		if err != nil {
			return 0, nil, err
		}

		parent, err := mv.vol.Inodes.Get(parentIno)
		if err != nil {
			return 0, nil, err
		}
		if !parent.IsUsed() || !parent.IsDirectory() {
			return 0, nil, fserrors.New(op, fserrors.InvalidArgument, "parent is not a directory")
		}

		ino, err := mv.dirs.FindEntry(&parent, name)
		if err != nil {
			return 0, nil, err
		}

		if ino == layout.AbsentPtr {
			if !create {
				return 0, nil, fserrors.New(op, fserrors.NotFound, "file not found")
			}
			newIno, err := mv.vol.Inodes.FindFree()
			if err != nil {
				return 0, nil, err
			}
			if err := mv.vol.Inodes.Init(newIno, false); err != nil {
				return 0, nil, err
			}
			if err := mv.dirs.InsertEntry(&parent, name, int64(newIno)); err != nil {
				return 0, nil, err
			}
			if err := mv.vol.Inodes.Put(parentIno, parent); err != nil {
				return 0, nil, err
			}
			ino = int64(newIno)
		}

		h, err := mv.files.Open(int(ino), writable)
		if err != nil {
			return 0, nil, err
		}
		return int(ino), h, nil
	}()
	mv.vol.Mu.Unlock()

	if err != nil {
		return "", 0, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID("file")
	v.files[id] = &openFile{mountID: mountID, ino: targetIno, handle: handle}
	return id, targetIno, nil
}

// isOpenElsewhere reports whether mountID has a live file handle on ino.
func (v *VFS) isOpenElsewhere(mountID string, ino int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, of := range v.files {
		if of.mountID == mountID && of.ino == ino {
			return true
		}
	}
	return false
}

func (v *VFS) lookupFile(fileHandle string) (*mountedVolume, *openFile, error) {
	const op = "vfs.VFS.lookupFile"

	v.mu.Lock()
	defer v.mu.Unlock()

	of, ok := v.files[fileHandle]
	if !ok {
		return nil, nil, fserrors.New(op, fserrors.NotFound, "file handle not found")
	}
	mv, ok := v.mounts[of.mountID]
	if !ok {
		return nil, nil, fserrors.New(op, fserrors.NotFound, "mount id not found")
	}
	return mv, of, nil
}

// Read reads up to len(buf) bytes from fileHandle's current offset.
func (v *VFS) Read(fileHandle string, buf []byte) (int, error) {
	mv, of, err := v.lookupFile(fileHandle)
	if err != nil {
		return 0, err
	}
	mv.vol.Mu.Lock()
	defer mv.vol.Mu.Unlock()
	return mv.files.Read(of.handle, buf)
}

// Write writes data at fileHandle's current offset.
func (v *VFS) Write(fileHandle string, data []byte) (int, error) {
	mv, of, err := v.lookupFile(fileHandle)
	if err != nil {
		return 0, err
	}
	mv.vol.Mu.Lock()
	defer mv.vol.Mu.Unlock()
	return mv.files.Write(of.handle, data)
}

// Seek repositions fileHandle's cursor to offset.
func (v *VFS) Seek(fileHandle string, offset int64) error {
	mv, of, err := v.lookupFile(fileHandle)
	if err != nil {
		return err
	}
	mv.vol.Mu.Lock()
	defer mv.vol.Mu.Unlock()
	return mv.files.Seek(of.handle, offset)
}

// Close discards fileHandle.
func (v *VFS) Close(fileHandle string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.files[fileHandle]; !ok {
		return fserrors.New("vfs.VFS.Close", fserrors.NotFound, "file handle not found")
	}
	delete(v.files, fileHandle)
	return nil
}

// Delete removes path: the directory entry, and — since GOSFS gives every
// inode exactly one name, unlike a hard-link filesystem — the inode's data
// blocks and the inode itself.
func (v *VFS) Delete(mountID string, path string) error {
	const op = "vfs.VFS.Delete"

	v.mu.Lock()
	mv, err := v.lookupMountLocked(mountID)
	v.mu.Unlock()
	if err != nil {
		return err
	}

	mv.vol.Mu.Lock()
	defer mv.vol.Mu.Unlock()

	parentIno, name, err := resolveParent(mv, path)
	if err != nil {
		return err
	}

	parent, err := mv.vol.Inodes.Get(parentIno)
	if err != nil {
		return err
	}
	if !parent.IsUsed() || !parent.IsDirectory() {
		return fserrors.New(op, fserrors.InvalidArgument, "parent is not a directory")
	}

	targetIno, err := mv.dirs.FindEntry(&parent, name)
	if err != nil {
		return err
	}
	if targetIno == layout.AbsentPtr {
		return fserrors.New(op, fserrors.NotFound, "entry not found")
	}

	if v.isOpenElsewhere(mountID, int(targetIno)) {
		return fserrors.New(op, fserrors.AccessDenied, "file is currently open")
	}

	target, err := mv.vol.Inodes.Get(int(targetIno))
	if err != nil {
		return err
	}
	if target.IsDirectory() {
		empty, err := mv.dirs.IsEmpty(&target)
		if err != nil {
			return err
		}
		if !empty {
			return fserrors.New(op, fserrors.AccessDenied, "directory not empty")
		}
	}

	if err := mv.dirs.RemoveEntry(&parent, name); err != nil {
		return err
	}
	if err := mv.vol.Inodes.Put(parentIno, parent); err != nil {
		return err
	}

	if err := freeInodeBlocks(mv.vol.Idx, &target); err != nil {
		return err
	}
	return mv.vol.Inodes.Destroy(int(targetIno))
}

// freeInodeBlocks walks every logical block n currently occupies and
// returns its data blocks, then its indirection blocks, to the bitmap.
func freeInodeBlocks(idx *indexer.Indexer, n *inode.Inode) error {
	numBlocks, err := logicalBlockCount(idx, n)
	if err != nil {
		return err
	}
	for lb := int64(0); lb < numBlocks; lb++ {
		phys, err := idx.Locate(n, lb, false)
		if err != nil {
			return err
		}
		if phys != layout.AbsentPtr {
			if err := idx.Free(phys); err != nil {
				return err
			}
		}
	}
	return freeDirectPointers(idx, n)
}

// logicalBlockCount returns how many logical blocks freeInodeBlocks should
// scan. A regular file's range comes from its byte size, and must still be
// walked in full rather than stopped at the first hole — a hole is a gap
// the walk has to skip over, not an end-of-file marker. A directory's Size
// is an entry count, not a byte length (spec.md §3), so its range instead
// comes from walking the block-pointer vector until the first unallocated
// slot; directories only ever grow by appending the next contiguous block
// (see dirops.Dirs.InsertEntry), so that walk never needs to skip a hole.
func logicalBlockCount(idx *indexer.Indexer, n *inode.Inode) (int64, error) {
	if !n.IsDirectory() {
		if n.Size == 0 {
			return 0, nil
		}
		return (int64(n.Size) + layout.BlockSize - 1) / layout.BlockSize, nil
	}

	var lb int64
	for lb = 0; lb < layout.MaxLogicalBlocks; lb++ {
		phys, err := idx.Locate(n, lb, false)
		if err != nil {
			return 0, err
		}
		if phys == layout.AbsentPtr {
			break
		}
	}
	return lb, nil
}

// freeDirectPointers releases the single- and double-indirect blocks
// themselves, which hold pointers rather than file data and so aren't
// visited by freeInodeBlocks's logical-block walk once all their data
// pointers are gone. A double-indirect chain has two index levels: the top
// block's own fan-out of middle blocks must be freed individually before
// the top block itself, or every middle block leaks.
func freeDirectPointers(idx *indexer.Indexer, n *inode.Inode) error {
	single := int64(n.BlockList[layout.NumDirectBlocks])
	if single != layout.AbsentPtr {
		if err := idx.Free(single); err != nil {
			return err
		}
	}

	top := int64(n.BlockList[layout.NumDirectBlocks+layout.NumIndirectBlocks])
	if top != layout.AbsentPtr {
		middles, err := idx.ReadPointers(top)
		if err != nil {
			return err
		}
		for _, mid := range middles {
			if mid == layout.AbsentPtr {
				continue
			}
			if err := idx.Free(mid); err != nil {
				return err
			}
		}
		if err := idx.Free(top); err != nil {
			return err
		}
	}
	return nil
}
