// Package trash maps trashed resources into a synthetic "trash/" namespace
// so they can be browsed independently of where they were deleted from.
//
// Every trashed folder is an anchor: its real path is re-rooted at
// "trash/<folder name>". Anchors are tried shallowest first, so a trashed
// folder always claims its own descendants before any deeper anchor.
package trash

import (
	"net/url"
	"sort"
	"strings"

	"github.com/Ning0612/Explorer/internal/core/treepath"
	"github.com/Ning0612/Explorer/internal/domain"
)

// Root is the top of the virtual trash namespace
const Root = "trash"

// Mapping is the result of MapToVirtualPaths
type Mapping struct {
	Items       []domain.TrashResource
	VirtualRoot string
}

// Listing is the result of ResourcesAtVirtualPath
type Listing struct {
	Resources   []domain.TrashResource
	VirtualRoot string
}

// prefixMapping re-roots everything under Original at Virtual
type prefixMapping struct {
	Original string
	Virtual  string
}

// MapToVirtualPaths computes the virtual path of every trashed item
func MapToVirtualPaths(items []domain.Resource) Mapping {
	if len(items) == 0 {
		return Mapping{Items: []domain.TrashResource{}, VirtualRoot: Root}
	}

	mappings := anchorMappings(items)

	result := make([]domain.TrashResource, len(items))
	for i, item := range items {
		result[i] = domain.TrashResource{
			Resource:    item,
			VirtualPath: virtualPath(item, mappings),
		}
	}

	root := Root
	if len(mappings) > 0 {
		root = mappings[0].Virtual
	}

	return Mapping{Items: result, VirtualRoot: root}
}

// ResourcesAtVirtualPath returns the direct children of virtualPath in the
// virtual trash namespace. An empty virtualPath means the trash root.
// A non-empty originalPath further keeps only items whose real path
// contains it.
func ResourcesAtVirtualPath(items []domain.Resource, virtualPath, originalPath string) Listing {
	if virtualPath == "" {
		virtualPath = Root
	}
	target, err := url.PathUnescape(virtualPath)
	if err != nil {
		target = virtualPath
	}

	mapping := MapToVirtualPaths(items)

	resources := make([]domain.TrashResource, 0)
	for _, item := range mapping.Items {
		if treepath.Parent(item.VirtualPath) != target {
			continue
		}
		if originalPath != "" && !strings.Contains(item.Path, originalPath) {
			continue
		}
		resources = append(resources, item)
	}

	return Listing{Resources: resources, VirtualRoot: mapping.VirtualRoot}
}

// anchorMappings builds the ordered prefix table from the folder items,
// shallowest folders first. Folders at equal depth keep their input order.
func anchorMappings(items []domain.Resource) []prefixMapping {
	var anchors []domain.Resource
	for _, item := range items {
		if item.IsFolder() {
			anchors = append(anchors, item)
		}
	}

	sort.SliceStable(anchors, func(i, j int) bool {
		return treepath.Depth(anchors[i].Path) < treepath.Depth(anchors[j].Path)
	})

	mappings := make([]prefixMapping, 0, len(anchors))
	for _, anchor := range anchors {
		mappings = append(mappings, prefixMapping{
			Original: anchor.Path,
			Virtual:  treepath.Join(Root, treepath.Base(anchor.Path)),
		})
	}
	return mappings
}

// virtualPath applies the first matching prefix, falling back to
// "trash/<name>" for items outside every anchor
func virtualPath(item domain.Resource, mappings []prefixMapping) string {
	for _, m := range mappings {
		if treepath.Within(item.Path, m.Original) {
			return treepath.Rebase(item.Path, m.Original, m.Virtual)
		}
	}
	return treepath.Join(Root, item.Name)
}
