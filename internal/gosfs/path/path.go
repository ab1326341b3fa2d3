// Package path implements the string side of GOSFS path resolution:
// splitting a slash-separated path into components and separating a path
// into its parent and final name (spec.md §4.E). Walking directory entries
// from the root inode down is done by package vfs.
package path

import "strings"

// Split breaks p into its slash-separated components, dropping empty
// segments produced by a leading slash or repeated separators. "/" splits
// to an empty slice, meaning "the root itself".
func Split(p string) []string {
	raw := strings.Split(p, "/")
	parts := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// ParentAndName splits p into its parent directory's path and the final
// component's name. "/a/b/c" yields ("/a/b", "c"); a bare top-level name
// like "a" yields ("/", "a").
func ParentAndName(p string) (parent string, name string) {
	parts := Split(p)
	if len(parts) == 0 {
		return "/", ""
	}
	name = parts[len(parts)-1]
	parent = "/" + strings.Join(parts[:len(parts)-1], "/")
	return parent, name
}
