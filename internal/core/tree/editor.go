// Package tree edits flat resource collections. Every operation returns a
// new slice and leaves the caller's collection untouched; a folder's
// descendants are always rewritten together with the folder itself.
package tree

import (
	"fmt"

	"github.com/Ning0612/Explorer/internal/core/treepath"
	"github.com/Ning0612/Explorer/internal/domain"
)

// CopySuffix is appended to a copied resource's name when no name is given
const CopySuffix = " copy"

// CopyOptions configures Copy
type CopyOptions struct {
	// NewName overrides the default "<name> copy" preferred name
	NewName string
}

// Editor renames, moves and copies resources within a flat collection
type Editor interface {
	Rename(resources []domain.Resource, targetPath, newName string) ([]domain.Resource, error)
	Move(resources []domain.Resource, targetPath, destinationFolderPath string) ([]domain.Resource, error)
	Copy(resources []domain.Resource, targetPath, destinationFolderPath string, opts CopyOptions) ([]domain.Resource, error)
}

// DefaultEditor implements Editor with the package level functions
type DefaultEditor struct{}

// NewDefaultEditor creates a new DefaultEditor
func NewDefaultEditor() *DefaultEditor {
	return &DefaultEditor{}
}

// Rename implements the Editor interface
func (e *DefaultEditor) Rename(resources []domain.Resource, targetPath, newName string) ([]domain.Resource, error) {
	return Rename(resources, targetPath, newName)
}

// Move implements the Editor interface
func (e *DefaultEditor) Move(resources []domain.Resource, targetPath, destinationFolderPath string) ([]domain.Resource, error) {
	return Move(resources, targetPath, destinationFolderPath)
}

// Copy implements the Editor interface
func (e *DefaultEditor) Copy(resources []domain.Resource, targetPath, destinationFolderPath string, opts CopyOptions) ([]domain.Resource, error) {
	return Copy(resources, targetPath, destinationFolderPath, opts)
}

// Rename gives the resource at targetPath a new name inside its current
// parent folder and rewrites the paths of all its descendants.
func Rename(resources []domain.Resource, targetPath, newName string) ([]domain.Resource, error) {
	if _, ok := find(resources, targetPath); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrResourceNotFound, targetPath)
	}

	newBasePath := treepath.Join(treepath.Parent(targetPath), newName)
	if newBasePath == targetPath {
		return clone(resources), nil
	}
	if _, taken := find(resources, newBasePath); taken {
		return nil, fmt.Errorf("%w: %s", domain.ErrPathCollision, newBasePath)
	}

	result := make([]domain.Resource, len(resources))
	for i, r := range resources {
		if r.Path == targetPath {
			r.Name = newName
		}
		if treepath.Within(r.Path, targetPath) {
			r.Path = treepath.Rebase(r.Path, targetPath, newBasePath)
		}
		result[i] = r
	}
	return result, nil
}

// Move relocates the resource at targetPath, with its descendants, into
// destinationFolderPath. Names are kept; only paths shift.
func Move(resources []domain.Resource, targetPath, destinationFolderPath string) ([]domain.Resource, error) {
	target, err := resolveTransfer(resources, targetPath, destinationFolderPath)
	if err != nil {
		return nil, err
	}

	newBasePath := treepath.Join(destinationFolderPath, target.Name)
	if newBasePath == targetPath {
		return clone(resources), nil
	}
	if _, taken := find(resources, newBasePath); taken {
		return nil, fmt.Errorf("%w: %s", domain.ErrPathCollision, newBasePath)
	}

	result := make([]domain.Resource, len(resources))
	for i, r := range resources {
		if treepath.Within(r.Path, targetPath) {
			r.Path = treepath.Rebase(r.Path, targetPath, newBasePath)
		}
		result[i] = r
	}
	return result, nil
}

// Copy duplicates the resource at targetPath, with its descendants, into
// destinationFolderPath. The copies are appended after the originals.
// Name collisions are resolved by probing "<name> 2", "<name> 3", ...
func Copy(resources []domain.Resource, targetPath, destinationFolderPath string, opts CopyOptions) ([]domain.Resource, error) {
	target, err := resolveTransfer(resources, targetPath, destinationFolderPath)
	if err != nil {
		return nil, err
	}

	preferred := opts.NewName
	if preferred == "" {
		preferred = target.Name + CopySuffix
	}
	name := uniqueName(resources, destinationFolderPath, preferred)
	newBasePath := treepath.Join(destinationFolderPath, name)

	result := clone(resources)
	for _, r := range resources {
		if !treepath.Within(r.Path, targetPath) {
			continue
		}
		c := r
		if r.Path == targetPath {
			c.Name = name
		}
		c.Path = treepath.Rebase(r.Path, targetPath, newBasePath)
		result = append(result, c)
	}
	return result, nil
}

// resolveTransfer validates the target and destination of a move or copy
func resolveTransfer(resources []domain.Resource, targetPath, destinationFolderPath string) (domain.Resource, error) {
	target, ok := find(resources, targetPath)
	if !ok {
		return domain.Resource{}, fmt.Errorf("%w: %s", domain.ErrResourceNotFound, targetPath)
	}

	dest, ok := find(resources, destinationFolderPath)
	if !ok || !dest.IsFolder() {
		return domain.Resource{}, fmt.Errorf("%w: %s", domain.ErrDestinationNotFound, destinationFolderPath)
	}

	if target.IsFolder() && treepath.Within(destinationFolderPath, targetPath) {
		return domain.Resource{}, fmt.Errorf("%w: %s into %s", domain.ErrInvalidMove, targetPath, destinationFolderPath)
	}

	return target, nil
}

// uniqueName returns preferred if it is free inside folder, otherwise the
// first free "<preferred> N" starting at N = 2
func uniqueName(resources []domain.Resource, folder, preferred string) string {
	taken := make(map[string]bool, len(resources))
	for _, r := range resources {
		taken[r.Path] = true
	}

	if !taken[treepath.Join(folder, preferred)] {
		return preferred
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s %d", preferred, n)
		if !taken[treepath.Join(folder, candidate)] {
			return candidate
		}
	}
}

func find(resources []domain.Resource, path string) (domain.Resource, bool) {
	for _, r := range resources {
		if r.Path == path {
			return r, true
		}
	}
	return domain.Resource{}, false
}

func clone(resources []domain.Resource) []domain.Resource {
	result := make([]domain.Resource, len(resources))
	copy(result, resources)
	return result
}
