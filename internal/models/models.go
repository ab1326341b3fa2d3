// Package models holds the wire-facing DTOs the handler layer encodes and
// decodes — the HTTP-visible shape of a stat, a directory entry, and an ACL
// triple, as distinct from the engine's own on-disk record types in
// internal/gosfs/inode and pkg/binary.
package models

// ACLInfo is one VFS-defined {uid, permissions, valid} ACL entry, copied out
// of an inode for a stat/fstat response.
type ACLInfo struct {
	UID         uint32
	Permissions uint32
	Valid       bool
}

// StatInfo is the response body of stat/fstat: everything spec.md §4.G
// exposes about one inode without resolving any of its data blocks.
type StatInfo struct {
	Size        int64
	IsDirectory bool
	IsSetUID    bool
	ACL         []ACLInfo
}

// DirentInfo is one entry returned by opendir/read_entry: a directory's
// (filename -> inode) mapping, plus the callee-side filetype bit so a
// caller doesn't need a follow-up stat just to tell a subdirectory from a
// regular file.
type DirentInfo struct {
	Name        string
	Ino         int64
	IsDirectory bool
}

// VolumeInfo describes one formatted GOSFS volume as tracked by the volume
// catalog (internal/catalog), independent of whether it is currently
// mounted.
type VolumeInfo struct {
	Name       string
	DevicePath string
	NumBlocks  int64
}
