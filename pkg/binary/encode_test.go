package binary

import (
	"testing"

	"github.com/gosfs/server/internal/models"
)

func TestEncodeStatInfo(t *testing.T) {
	stat := &models.StatInfo{
		Size:        512,
		IsDirectory: true,
		IsSetUID:    false,
		ACL: []models.ACLInfo{
			{UID: 1, Permissions: 7, Valid: true},
		},
	}

	data, err := EncodeStatInfo(stat)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	wantLen := 8 + 1 + 1 + len(stat.ACL)*(4+4+1)
	if len(data) != wantLen {
		t.Fatalf("encoded length: wanted %d; found %d", wantLen, len(data))
	}
	if data[8] != 1 {
		t.Fatalf("is_directory byte: wanted 1; found %d", data[8])
	}
	if data[9] != 0 {
		t.Fatalf("is_setuid byte: wanted 0; found %d", data[9])
	}
}

func TestEncodeDirentInfo(t *testing.T) {
	d := &models.DirentInfo{Name: "readme.txt", Ino: 5, IsDirectory: false}

	data, err := EncodeDirentInfo(d)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	wantLen := 128 + 8 + 1
	if len(data) != wantLen {
		t.Fatalf("encoded length: wanted %d; found %d", wantLen, len(data))
	}
	if string(data[:len(d.Name)]) != d.Name {
		t.Fatalf("name prefix: wanted %q; found %q", d.Name, data[:len(d.Name)])
	}
	for _, b := range data[len(d.Name):128] {
		if b != 0 {
			t.Fatalf("expected zero padding after name, found %d", b)
		}
	}
}
