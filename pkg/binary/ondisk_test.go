package binary

import "testing"

func TestSuperblockRoundTrip(t *testing.T) {
	want := &SuperblockRecord{
		Magic:            0x0d000721,
		StructSize:       SuperblockRecordSize,
		NumBlocks:        4096,
		BitmapOffset:     1,
		InodeTableOffset: 3,
		DataOffset:       7,
	}

	encoded, err := EncodeSuperblock(want)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if len(encoded) != SuperblockRecordSize {
		t.Fatalf("encoded length: wanted %d; found %d", SuperblockRecordSize, len(encoded))
	}

	got, err := DecodeSuperblock(encoded)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if *got != *want {
		t.Fatalf("wanted %+v; found %+v", want, got)
	}
}

func TestDecodeSuperblockShortBuffer(t *testing.T) {
	if _, err := DecodeSuperblock(make([]byte, SuperblockRecordSize-1)); err == nil {
		t.Fatal("wanted an error decoding a short buffer; found nil")
	}
}

func TestInodeRoundTrip(t *testing.T) {
	want := &InodeRecord{
		Size:      1234,
		Flags:     0x03,
		BlockList: []uint64{1, 2, 3, 0, 0, 0, 0, 0, 9, 10},
		ACL: []ACLEntryRecord{
			{UID: 1000, Permissions: 0o644, Valid: true},
			{UID: 0, Permissions: 0, Valid: false},
		},
	}

	encoded, err := EncodeInode(want)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if wantLen := InodeRecordSize(len(want.BlockList), len(want.ACL)); len(encoded) != wantLen {
		t.Fatalf("encoded length: wanted %d; found %d", wantLen, len(encoded))
	}

	got, err := DecodeInode(encoded, len(want.BlockList), len(want.ACL))
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if got.Size != want.Size || got.Flags != want.Flags {
		t.Fatalf("size/flags: wanted %+v; found %+v", want, got)
	}
	for i := range want.BlockList {
		if got.BlockList[i] != want.BlockList[i] {
			t.Fatalf("blockList[%d]: wanted %d; found %d", i, want.BlockList[i], got.BlockList[i])
		}
	}
	for i := range want.ACL {
		if got.ACL[i] != want.ACL[i] {
			t.Fatalf("acl[%d]: wanted %+v; found %+v", i, want.ACL[i], got.ACL[i])
		}
	}
}

func TestDirentRoundTrip(t *testing.T) {
	want := &DirentRecord{Name: "etc", Type: 0, Ino: 42}

	encoded, err := EncodeDirentRecord(want)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if len(encoded) != DirentRecordSize {
		t.Fatalf("encoded length: wanted %d; found %d", DirentRecordSize, len(encoded))
	}

	got, err := DecodeDirentRecord(encoded)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if *got != *want {
		t.Fatalf("wanted %+v; found %+v", want, got)
	}
}

func TestEncodeDirentNameTooLong(t *testing.T) {
	name := make([]byte, DirentNameFieldSize)
	for i := range name {
		name[i] = 'a'
	}
	if _, err := EncodeDirentRecord(&DirentRecord{Name: string(name)}); err == nil {
		t.Fatal("wanted an error encoding an oversized name; found nil")
	}
}

func TestEncodeOpenResult(t *testing.T) {
	data, err := EncodeOpenResult("file-1", 7)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if len(data) != handleFieldSize+8 {
		t.Fatalf("encoded length: wanted %d; found %d", handleFieldSize+8, len(data))
	}
	if string(data[:6]) != "file-1" {
		t.Fatalf("handle prefix: wanted %q; found %q", "file-1", data[:6])
	}
}
