// Package treepath provides segment-aware helpers for "/"-delimited
// resource paths. A path is never treated as a bare string prefix of
// another: "docs" contains "docs/a" but not "docs-old".
package treepath

import "strings"

// Separator delimits path segments
const Separator = "/"

// Within reports whether path is base itself or one of its descendants
func Within(path, base string) bool {
	return path == base || strings.HasPrefix(path, base+Separator)
}

// Rebase replaces the oldBase prefix of path with newBase.
// The caller must ensure Within(path, oldBase).
func Rebase(path, oldBase, newBase string) string {
	return newBase + path[len(oldBase):]
}

// Parent returns everything before the last separator, or "" for a
// single-segment path
func Parent(path string) string {
	i := strings.LastIndex(path, Separator)
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Base returns the last segment of path
func Base(path string) string {
	return path[strings.LastIndex(path, Separator)+1:]
}

// Join appends name to parent. An empty parent yields name unchanged.
func Join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + Separator + name
}

// Depth returns the number of segments in path
func Depth(path string) int {
	return strings.Count(path, Separator) + 1
}
