package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// This file holds the byte-exact on-disk codecs spec.md §6 requires for a
// GOSFS volume: the superblock header, the inode record, and the directory
// entry record. These are pure encoders over plain field structs — they
// must not import anything from internal/gosfs, so that internal/gosfs can
// import this package for its own disk I/O without a cycle.

// SuperblockRecord is the on-disk superblock layout, fields in declared
// order: magic, total byte size of the superblock structure, total number
// of filesystem blocks, bitmap offset, inode-table offset, data-region
// offset. All integers little-endian.
type SuperblockRecord struct {
	Magic            uint32
	StructSize       uint32
	NumBlocks        uint64
	BitmapOffset     uint64
	InodeTableOffset uint64
	DataOffset       uint64
}

const SuperblockRecordSize = 4 + 4 + 8 + 8 + 8 + 8

func EncodeSuperblock(s *SuperblockRecord) ([]byte, error) {
	buf := new(bytes.Buffer)
	fields := []any{s.Magic, s.StructSize, s.NumBlocks, s.BitmapOffset, s.InodeTableOffset, s.DataOffset}
	for _, f := range fields {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("encode superblock: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func DecodeSuperblock(data []byte) (*SuperblockRecord, error) {
	if len(data) < SuperblockRecordSize {
		return nil, fmt.Errorf("decode superblock: short buffer (%d < %d)", len(data), SuperblockRecordSize)
	}
	r := bytes.NewReader(data)
	var s SuperblockRecord
	fields := []any{&s.Magic, &s.StructSize, &s.NumBlocks, &s.BitmapOffset, &s.InodeTableOffset, &s.DataOffset}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("decode superblock: %w", err)
		}
	}
	return &s, nil
}

// ACLEntryRecord is the VFS-defined {uid, permissions, valid} triple.
type ACLEntryRecord struct {
	UID         uint32
	Permissions uint32
	Valid       bool
}

const ACLEntryRecordSize = 4 + 4 + 1

// InodeRecord is the on-disk inode layout:
// size(8) | flags(8) | blockList[NumPtrs](8 each) | acl[NumACL](9 each).
// NumPtrs and NumACL are supplied by the caller (internal/gosfs/layout's
// constants) rather than hard-coded here, keeping this package ignorant of
// GOSFS's specific fan-out.
type InodeRecord struct {
	Size      uint64
	Flags     uint64
	BlockList []uint64
	ACL       []ACLEntryRecord
}

func InodeRecordSize(numPtrs, numACL int) int {
	return 8 + 8 + numPtrs*8 + numACL*ACLEntryRecordSize
}

func EncodeInode(rec *InodeRecord) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, rec.Size); err != nil {
		return nil, fmt.Errorf("encode inode size: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, rec.Flags); err != nil {
		return nil, fmt.Errorf("encode inode flags: %w", err)
	}
	for i, ptr := range rec.BlockList {
		if err := binary.Write(buf, binary.LittleEndian, ptr); err != nil {
			return nil, fmt.Errorf("encode inode blockList[%d]: %w", i, err)
		}
	}
	for i, acl := range rec.ACL {
		if err := binary.Write(buf, binary.LittleEndian, acl.UID); err != nil {
			return nil, fmt.Errorf("encode inode acl[%d].uid: %w", i, err)
		}
		if err := binary.Write(buf, binary.LittleEndian, acl.Permissions); err != nil {
			return nil, fmt.Errorf("encode inode acl[%d].permissions: %w", i, err)
		}
		if err := binary.Write(buf, binary.LittleEndian, boolToByte(acl.Valid)); err != nil {
			return nil, fmt.Errorf("encode inode acl[%d].valid: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func DecodeInode(data []byte, numPtrs, numACL int) (*InodeRecord, error) {
	want := InodeRecordSize(numPtrs, numACL)
	if len(data) < want {
		return nil, fmt.Errorf("decode inode: short buffer (%d < %d)", len(data), want)
	}
	r := bytes.NewReader(data)

	var rec InodeRecord
	if err := binary.Read(r, binary.LittleEndian, &rec.Size); err != nil {
		return nil, fmt.Errorf("decode inode size: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.Flags); err != nil {
		return nil, fmt.Errorf("decode inode flags: %w", err)
	}
	rec.BlockList = make([]uint64, numPtrs)
	for i := range rec.BlockList {
		if err := binary.Read(r, binary.LittleEndian, &rec.BlockList[i]); err != nil {
			return nil, fmt.Errorf("decode inode blockList[%d]: %w", i, err)
		}
	}
	rec.ACL = make([]ACLEntryRecord, numACL)
	for i := range rec.ACL {
		if err := binary.Read(r, binary.LittleEndian, &rec.ACL[i].UID); err != nil {
			return nil, fmt.Errorf("decode inode acl[%d].uid: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &rec.ACL[i].Permissions); err != nil {
			return nil, fmt.Errorf("decode inode acl[%d].permissions: %w", i, err)
		}
		var valid uint8
		if err := binary.Read(r, binary.LittleEndian, &valid); err != nil {
			return nil, fmt.Errorf("decode inode acl[%d].valid: %w", i, err)
		}
		rec.ACL[i].Valid = valid != 0
	}
	return &rec, nil
}

// DirentRecord is the on-disk directory-entry layout:
// filename[128] | type(int64, 0=REGULAR 1=THIS -1=FREE) | inode(int64).
type DirentRecord struct {
	Name string
	Type int64
	Ino  int64
}

const (
	DirentNameFieldSize = 128
	DirentRecordSize    = DirentNameFieldSize + 8 + 8
)

func EncodeDirentRecord(d *DirentRecord) ([]byte, error) {
	buf := new(bytes.Buffer)

	nameBytes := make([]byte, DirentNameFieldSize)
	if len(d.Name) > DirentNameFieldSize-1 {
		return nil, fmt.Errorf("encode dirent: name %q exceeds %d bytes", d.Name, DirentNameFieldSize-1)
	}
	copy(nameBytes, d.Name)
	if _, err := buf.Write(nameBytes); err != nil {
		return nil, fmt.Errorf("encode dirent name: %w", err)
	}

	if err := binary.Write(buf, binary.LittleEndian, d.Type); err != nil {
		return nil, fmt.Errorf("encode dirent type: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, d.Ino); err != nil {
		return nil, fmt.Errorf("encode dirent inode: %w", err)
	}

	return buf.Bytes(), nil
}

func DecodeDirentRecord(data []byte) (*DirentRecord, error) {
	if len(data) < DirentRecordSize {
		return nil, fmt.Errorf("decode dirent: short buffer (%d < %d)", len(data), DirentRecordSize)
	}

	nameBytes := data[:DirentNameFieldSize]
	nul := bytes.IndexByte(nameBytes, 0)
	if nul < 0 {
		nul = len(nameBytes)
	}

	r := bytes.NewReader(data[DirentNameFieldSize:])
	var d DirentRecord
	d.Name = string(nameBytes[:nul])
	if err := binary.Read(r, binary.LittleEndian, &d.Type); err != nil {
		return nil, fmt.Errorf("decode dirent type: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &d.Ino); err != nil {
		return nil, fmt.Errorf("decode dirent inode: %w", err)
	}
	return &d, nil
}
