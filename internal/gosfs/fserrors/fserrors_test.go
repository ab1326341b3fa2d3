package fserrors

import "testing"

func TestErrorMessageIncludesOp(t *testing.T) {
	err := New("vfs.VFS.Stat", NotFound, "no such file or directory")
	want := "vfs.VFS.Stat: no such file or directory"
	if err.Error() != want {
		t.Fatalf("wanted %q; found %q", want, err.Error())
	}
}

func TestErrorMessageFallsBackToCodeString(t *testing.T) {
	err := New("vfs.VFS.Mount", InvalidFS, "")
	want := "vfs.VFS.Mount: INVALID_FS"
	if err.Error() != want {
		t.Fatalf("wanted %q; found %q", want, err.Error())
	}
}

func TestCodeOfUnwrapsError(t *testing.T) {
	err := New("op", NoSpace, "disk full")
	if got := CodeOf(err); got != NoSpace {
		t.Fatalf("wanted NoSpace; found %v", got)
	}
}

func TestCodeOfDefaultsToUnspecified(t *testing.T) {
	if got := CodeOf(errPlain{}); got != Unspecified {
		t.Fatalf("wanted Unspecified for a non-fserrors error; found %v", got)
	}
}

type errPlain struct{}

func (errPlain) Error() string { return "boom" }

func TestWireCodeMapping(t *testing.T) {
	cases := map[Code]int64{
		InvalidArgument: EINVAL_NEG,
		NotFound:        ENOENT_NEG,
		NoMemory:        ENOMEM_NEG,
		NoSpace:         ENOSPC_NEG,
		AccessDenied:    EPERM_NEG,
		InvalidFS:       EINVAL_NEG,
		Unspecified:     ENOMEM_NEG,
	}
	for code, want := range cases {
		if got := WireCode(code); got != want {
			t.Fatalf("WireCode(%v): wanted %d; found %d", code, want, got)
		}
	}
}
