package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ning0612/Explorer/internal/adapter"
	"github.com/Ning0612/Explorer/internal/core/treepath"
	"github.com/Ning0612/Explorer/internal/domain"
	"github.com/Ning0612/Explorer/internal/logger"
	"github.com/Ning0612/Explorer/internal/progress"
)

// Adapter implements adapter.Source for the local filesystem
type Adapter struct {
	name     string
	root     string
	reporter progress.Reporter
}

var (
	_ adapter.Source    = (*Adapter)(nil)
	_ adapter.Reporting = (*Adapter)(nil)
)

// New creates a local source named name over root.
// root must be an existing directory.
func New(name, root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, mapError(err)
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	return &Adapter{name: name, root: absRoot, reporter: progress.NullReporter{}}, nil
}

// SetReporter implements adapter.Reporting
func (a *Adapter) SetReporter(r progress.Reporter) {
	if r == nil {
		r = progress.NullReporter{}
	}
	a.reporter = r
}

// Walk implements adapter.Source. Entries that cannot be read are skipped
// and symlinks are listed as files without being followed.
func (a *Adapter) Walk(ctx context.Context) ([]domain.Resource, error) {
	log := logger.With("source", a.name)

	resources := []domain.Resource{
		{Name: a.name, Path: a.name, Type: domain.ResourceFolder},
	}

	err := filepath.WalkDir(a.root, func(fullPath string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if fullPath == a.root {
				return mapError(err)
			}
			log.Warn("skipping unreadable entry", "path", fullPath, "error", err)
			a.reporter.Skipped(fullPath, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if fullPath == a.root {
			return nil
		}

		rel, err := a.relativePath(fullPath)
		if err != nil {
			return err
		}

		resourceType := domain.ResourceFile
		if d.IsDir() {
			resourceType = domain.ResourceFolder
		}

		r := domain.Resource{
			Name: d.Name(),
			Path: treepath.Join(a.name, rel),
			Type: resourceType,
		}
		resources = append(resources, r)
		a.reporter.Found(r.Path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	adapter.MarkEmpty(resources)
	log.Debug("walk complete", "resources", len(resources))
	return resources, nil
}

// Close releases any resources (no-op for local adapter)
func (a *Adapter) Close() error {
	return nil
}

// relativePath converts a path found under root into a "/"-separated path
// relative to it. Paths that resolve outside root are rejected.
func (a *Adapter) relativePath(fullPath string) (string, error) {
	// filepath.Rel handles root="C:\root" against "C:\root2"
	rel, err := filepath.Rel(a.root, fullPath)
	if err != nil {
		return "", domain.ErrPermissionDenied
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.ErrPermissionDenied
	}
	return filepath.ToSlash(rel), nil
}

// mapError converts OS errors to domain errors
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return domain.ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return domain.ErrPermissionDenied
	case errors.Is(err, fs.ErrExist):
		return domain.ErrAlreadyExists
	}
	return err
}
