package path

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	cases := map[string][]string{
		"/":            {},
		"/a":           {"a"},
		"/a/b/c":       {"a", "b", "c"},
		"/a//b":        {"a", "b"},
		"/a/b/":        {"a", "b"},
	}

	for in, want := range cases {
		got := Split(in)
		if len(got) == 0 && len(want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Split(%q): wanted %v; found %v", in, want, got)
		}
	}
}

func TestParentAndName(t *testing.T) {
	cases := []struct {
		path       string
		wantParent string
		wantName   string
	}{
		{"/", "/", ""},
		{"/a", "/", "a"},
		{"/a/b/c", "/a/b", "c"},
	}

	for _, c := range cases {
		parent, name := ParentAndName(c.path)
		if parent != c.wantParent || name != c.wantName {
			t.Fatalf(
				"ParentAndName(%q): wanted (%q, %q); found (%q, %q)",
				c.path, c.wantParent, c.wantName, parent, name,
			)
		}
	}
}
