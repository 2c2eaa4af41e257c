// Package nested converts the flat resource collection into a tree of
// nodes and back into a pre-order list of paths.
package nested

import (
	"github.com/Ning0612/Explorer/internal/core/route"
	"github.com/Ning0612/Explorer/internal/core/treepath"
	"github.com/Ning0612/Explorer/internal/domain"
)

// Node is one entry of a nested tree. Files have no children.
type Node struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"isDirectory"`
	Children    []Node `json:"children,omitempty"`
}

// FlattenPaths lists the path of every node depth first, each parent
// before its children
func FlattenPaths(nodes []Node) []string {
	paths := make([]string, 0)
	var walk func([]Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			paths = append(paths, n.Path)
			walk(n.Children)
		}
	}
	walk(nodes)
	return paths
}

// Build nests the resources below folderPath, keeping collection order
// among siblings. An empty folderPath builds from the source roots.
// Resources hidden from listings are left out along with their subtree.
func Build(resources []domain.Resource, folderPath string) []Node {
	children := make(map[string][]domain.Resource)
	for _, r := range resources {
		if r.Path == "" {
			continue
		}
		parent := treepath.Parent(r.Path)
		children[parent] = append(children[parent], r)
	}

	var build func(string) []Node
	build = func(parent string) []Node {
		var nodes []Node
		for _, r := range children[parent] {
			if !route.LostAndFoundVisible(r) {
				continue
			}
			n := Node{Name: r.Name, Path: r.Path, IsDirectory: r.IsFolder()}
			if n.IsDirectory {
				n.Children = build(r.Path)
			}
			nodes = append(nodes, n)
		}
		return nodes
	}
	return build(folderPath)
}
