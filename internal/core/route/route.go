// Package route converts between UI route pathnames and folder paths.
package route

import (
	"net/url"
	"strings"

	"github.com/Ning0612/Explorer/internal/core/treepath"
	"github.com/Ning0612/Explorer/internal/domain"
)

// LostAndFoundName is the folder hidden from listings while it is empty
const LostAndFoundName = "lost+found"

// Location is a parsed route pathname such as "/reading/my-files/docs"
type Location struct {
	// View is the first segment, e.g. "reading" or "trash"
	View string

	// FolderPath is the decoded folder path, e.g. "my-files/docs"
	FolderPath string
}

// ParsePathname splits a route pathname into its view and folder path.
// Folder segments are percent-decoded; malformed escapes are kept as is.
func ParsePathname(pathname string) Location {
	var segments []string
	for _, s := range strings.Split(pathname, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return Location{}
	}

	folder := make([]string, 0, len(segments)-1)
	for _, s := range segments[1:] {
		decoded, err := url.PathUnescape(s)
		if err != nil {
			decoded = s
		}
		folder = append(folder, decoded)
	}

	return Location{
		View:       segments[0],
		FolderPath: strings.Join(folder, treepath.Separator),
	}
}

// Pathname rebuilds the route pathname for the location
func (l Location) Pathname() string {
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(l.View)
	if l.FolderPath == "" {
		return b.String()
	}
	for _, s := range strings.Split(l.FolderPath, treepath.Separator) {
		b.WriteString("/")
		b.WriteString(EncodeComponent(s))
	}
	return b.String()
}

// componentUnescaper restores the marks encodeURIComponent leaves alone
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes a single path segment, including "/".
// The unreserved marks ! ' ( ) * are kept literal.
func EncodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

// ChildPath appends an encoded child segment to a route folder path
func ChildPath(folderPath, name string) string {
	return treepath.Join(folderPath, EncodeComponent(name))
}

// LostAndFoundVisible reports whether r should be shown in a listing.
// Only an empty lost+found folder is hidden.
func LostAndFoundVisible(r domain.Resource) bool {
	return !(r.Name == LostAndFoundName && r.IsFolder() && r.Empty)
}

// VisibleChildren returns the direct children of folderPath that pass
// LostAndFoundVisible, in collection order
func VisibleChildren(resources []domain.Resource, folderPath string) []domain.Resource {
	result := make([]domain.Resource, 0)
	for _, r := range resources {
		if r.Path == folderPath || treepath.Parent(r.Path) != folderPath {
			continue
		}
		if LostAndFoundVisible(r) {
			result = append(result, r)
		}
	}
	return result
}
