package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ning0612/Explorer/internal/adapter"
	"github.com/Ning0612/Explorer/internal/config"
	"github.com/Ning0612/Explorer/internal/core/diff"
	"github.com/Ning0612/Explorer/internal/core/nested"
	"github.com/Ning0612/Explorer/internal/core/route"
	"github.com/Ning0612/Explorer/internal/core/search"
	"github.com/Ning0612/Explorer/internal/core/trash"
	"github.com/Ning0612/Explorer/internal/core/tree"
	"github.com/Ning0612/Explorer/internal/core/treepath"
	"github.com/Ning0612/Explorer/internal/domain"
	"github.com/Ning0612/Explorer/internal/lock"
	"github.com/Ning0612/Explorer/internal/logger"
	"github.com/Ning0612/Explorer/internal/progress"
	"github.com/Ning0612/Explorer/internal/scheduler"
	"github.com/Ning0612/Explorer/internal/store"
)

// Operation names recorded in the edit history
const (
	OpRename  = "rename"
	OpMove    = "move"
	OpCopy    = "copy"
	OpTrash   = "trash"
	OpRestore = "restore"
	OpImport  = "import"
)

// EditResult describes an applied edit
type EditResult struct {
	Operation string
	Changes   []diff.Change
	Summary   diff.Summary
}

// View is an opened route: the parsed location and what it lists
type View struct {
	Location    route.Location
	Resources   []domain.Resource
	VirtualRoot string // set for the trash view only
}

// ExplorerService applies edits to the stored resource collections.
// Every edit runs under the store lock and is recorded in the history.
type ExplorerService struct {
	config   *config.Config
	store    *store.Manager
	lock     *lock.FileLock
	editor   tree.Editor
	comparer diff.Comparer
	sources  adapter.SourceFactory
	reporter progress.Reporter
	newID    func() string
}

var _ scheduler.Runner = (*ExplorerService)(nil)

// NewExplorerService opens the store and lock in the configured data
// directory
func NewExplorerService(cfg *config.Config) (*ExplorerService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	fileLock, err := lock.NewFileLock(cfg.GetLockPath())
	if err != nil {
		return nil, fmt.Errorf("failed to create file lock: %w", err)
	}
	if cfg.LockStaleTimeout > 0 {
		fileLock.SetStaleTimeout(cfg.LockStaleTimeout)
	}

	manager, err := store.NewManager(cfg.GetDataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &ExplorerService{
		config:   cfg,
		store:    manager,
		lock:     fileLock,
		editor:   tree.NewDefaultEditor(),
		comparer: diff.NewDefaultComparer(),
		sources:  DefaultSourceFactory{},
		reporter: progress.NullReporter{},
		newID:    uuid.NewString,
	}, nil
}

// SetSourceFactory replaces the factory used by Import
func (s *ExplorerService) SetSourceFactory(f adapter.SourceFactory) {
	s.sources = f
}

// SetReporter sets the reporter that receives walk progress during Import
func (s *ExplorerService) SetReporter(r progress.Reporter) {
	if r == nil {
		r = progress.NullReporter{}
	}
	s.reporter = r
}

// IsLocked checks if another edit is in progress
func (s *ExplorerService) IsLocked() bool {
	return s.lock.IsLocked()
}

// GetLockHolder returns information about the current lock holder
func (s *ExplorerService) GetLockHolder() (*lock.LockInfo, error) {
	return s.lock.GetHolder()
}

// ForceUnlock forcibly releases the lock (use with caution)
func (s *ExplorerService) ForceUnlock() error {
	return s.lock.ForceRelease()
}

// Rename renames the resource at path
func (s *ExplorerService) Rename(ctx context.Context, path, newName string) (*EditResult, error) {
	return s.edit(ctx, OpRename, path, newName, func(active, trashed []domain.Resource) ([]domain.Resource, []domain.Resource, error) {
		next, err := s.editor.Rename(active, path, newName)
		return next, trashed, err
	})
}

// Move moves the resource at path into destination
func (s *ExplorerService) Move(ctx context.Context, path, destination string) (*EditResult, error) {
	return s.edit(ctx, OpMove, path, destination, func(active, trashed []domain.Resource) ([]domain.Resource, []domain.Resource, error) {
		next, err := s.editor.Move(active, path, destination)
		return next, trashed, err
	})
}

// Copy copies the resource at path into destination. Copies get fresh IDs.
func (s *ExplorerService) Copy(ctx context.Context, path, destination string, opts tree.CopyOptions) (*EditResult, error) {
	return s.edit(ctx, OpCopy, path, destination, func(active, trashed []domain.Resource) ([]domain.Resource, []domain.Resource, error) {
		next, err := s.editor.Copy(active, path, destination, opts)
		if err != nil {
			return nil, nil, err
		}
		// copies keep their source ID; only the originals match by ID
		for _, c := range s.comparer.Compare(active, next) {
			if c.Kind == diff.ResourceAdded {
				rekey(next, c.Path, s.newID())
			}
		}
		return next, trashed, nil
	})
}

// Trash moves the resource at path and its descendants to the trash
func (s *ExplorerService) Trash(ctx context.Context, path string) (*EditResult, error) {
	return s.edit(ctx, OpTrash, path, "", func(active, trashed []domain.Resource) ([]domain.Resource, []domain.Resource, error) {
		return transfer(active, trashed, path)
	})
}

// Restore moves a trashed resource and its descendants back to where
// they were deleted from. The parent folder must still exist.
func (s *ExplorerService) Restore(ctx context.Context, path string) (*EditResult, error) {
	return s.edit(ctx, OpRestore, path, "", func(active, trashed []domain.Resource) ([]domain.Resource, []domain.Resource, error) {
		if parent := treepath.Parent(path); parent != "" {
			if r, ok := findResource(active, parent); !ok || !r.IsFolder() {
				return nil, nil, fmt.Errorf("%w: %s", domain.ErrDestinationNotFound, parent)
			}
		}
		nextTrashed, nextActive, err := transfer(trashed, active, path)
		if err != nil {
			return nil, nil, err
		}
		return nextActive, nextTrashed, nil
	})
}

// Import walks a configured source and replaces the subtree named after
// it. Walked resources without a backend ID keep the ID of the stored
// resource at the same path and type, so unchanged entries do not show up
// as changes.
func (s *ExplorerService) Import(ctx context.Context, sourceName string) (*EditResult, error) {
	src, err := s.config.GetSource(sourceName)
	if err != nil {
		return nil, err
	}
	if !s.sources.Supports(src.Type) {
		return nil, fmt.Errorf("unsupported source type: %s", src.Type)
	}

	source, err := s.sources.Create(ctx, *src)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	if rs, ok := source.(adapter.Reporting); ok {
		rs.SetReporter(s.reporter)
	}

	logger.Get().Info("walking source", "source", src.Name, "type", src.Type)
	s.reporter.Start(src.Name)
	walked, err := source.Walk(ctx)
	s.reporter.Done()
	if err != nil {
		return nil, fmt.Errorf("failed to walk source %s: %w", src.Name, err)
	}

	return s.edit(ctx, OpImport, src.Name, "", func(active, trashed []domain.Resource) ([]domain.Resource, []domain.Resource, error) {
		known := make(map[string]domain.Resource)
		next := make([]domain.Resource, 0, len(active)+len(walked))
		for _, r := range active {
			if treepath.Within(r.Path, src.Name) {
				known[r.Path] = r
				continue
			}
			next = append(next, r)
		}

		for _, r := range walked {
			if r.ID == "" {
				if prev, ok := known[r.Path]; ok && prev.Type == r.Type && prev.ID != "" {
					r.ID = prev.ID
				} else {
					r.ID = s.newID()
				}
			}
			next = append(next, r)
		}
		return next, trashed, nil
	})
}

// RunImport implements scheduler.Runner. An empty name imports every
// configured source; the first failure is returned after all have run.
func (s *ExplorerService) RunImport(ctx context.Context, sourceName string) error {
	names := []string{sourceName}
	if sourceName == "" {
		names = names[:0]
		for _, src := range s.config.Sources {
			names = append(names, src.Name)
		}
	}

	var firstErr error
	for _, name := range names {
		if _, err := s.Import(ctx, name); err != nil {
			logger.Get().Error("import failed", "source", name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("import %s: %w", name, err)
			}
		}
	}
	return firstErr
}

// ListTrash lists the trash at virtualPath, optionally filtered by a
// fragment of the original path
func (s *ExplorerService) ListTrash(virtualPath, originalPath string) (trash.Listing, error) {
	trashed, err := s.store.LoadTrash()
	if err != nil {
		return trash.Listing{}, err
	}
	return trash.ResourcesAtVirtualPath(trashed, virtualPath, originalPath), nil
}

// Search returns active resources whose name contains query
func (s *ExplorerService) Search(query string) ([]domain.Resource, error) {
	active, err := s.store.LoadResources()
	if err != nil {
		return nil, err
	}
	return search.FilterByQuery(active, query), nil
}

// Open resolves a route pathname. The "trash" view lists the virtual
// trash; every other view lists the visible children of a folder.
func (s *ExplorerService) Open(pathname string) (*View, error) {
	loc := route.ParsePathname(pathname)

	if loc.View == trash.Root {
		// loc.FolderPath is decoded; virtual paths are matched encoded
		virtualPath := trash.Root
		if loc.FolderPath != "" {
			for _, segment := range strings.Split(loc.FolderPath, treepath.Separator) {
				virtualPath = route.ChildPath(virtualPath, segment)
			}
		}
		listing, err := s.ListTrash(virtualPath, "")
		if err != nil {
			return nil, err
		}
		resources := make([]domain.Resource, len(listing.Resources))
		for i, item := range listing.Resources {
			resources[i] = item.Resource
		}
		return &View{Location: loc, Resources: resources, VirtualRoot: listing.VirtualRoot}, nil
	}

	active, err := s.store.LoadResources()
	if err != nil {
		return nil, err
	}

	if loc.FolderPath != "" {
		if r, ok := findResource(active, loc.FolderPath); !ok || !r.IsFolder() {
			return nil, fmt.Errorf("%w: %s", domain.ErrResourceNotFound, loc.FolderPath)
		}
	}

	return &View{Location: loc, Resources: route.VisibleChildren(active, loc.FolderPath)}, nil
}

// Tree nests the active resources below folderPath. An empty
// folderPath covers every source.
func (s *ExplorerService) Tree(folderPath string) ([]nested.Node, error) {
	active, err := s.store.LoadResources()
	if err != nil {
		return nil, err
	}

	if folderPath != "" {
		if r, ok := findResource(active, folderPath); !ok || !r.IsFolder() {
			return nil, fmt.Errorf("%w: %s", domain.ErrResourceNotFound, folderPath)
		}
	}

	return nested.Build(active, folderPath), nil
}

// History returns the most recent edits
func (s *ExplorerService) History(limit int) ([]store.EditRecord, error) {
	return s.store.GetHistory(limit)
}

type editFunc func(active, trashed []domain.Resource) ([]domain.Resource, []domain.Resource, error)

// edit runs fn under the lock against the stored collections, saves the
// result and records it in the history. Failed edits are recorded too.
func (s *ExplorerService) edit(ctx context.Context, op, target, destination string, fn editFunc) (*EditResult, error) {
	log := logger.With("operation", op, "target", target)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.lock.Acquire(op); err != nil {
		log.Error("failed to acquire lock", "error", err)
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() {
		if err := s.lock.Release(); err != nil {
			log.Error("failed to release lock", "error", err)
		}
	}()

	record := store.EditRecord{
		Operation:   op,
		Target:      target,
		Destination: destination,
		StartTime:   time.Now(),
	}

	result, err := s.apply(fn, op)
	record.EndTime = time.Now()
	if err != nil {
		record.Status = store.StatusFailed
		record.Error = err.Error()
		if saveErr := s.store.SaveEdit(record); saveErr != nil {
			log.Warn("failed to record edit", "error", saveErr)
		}
		log.Warn("edit rejected", "error", err)
		return nil, err
	}

	record.Status = store.StatusSuccess
	record.Changed = result.Summary.Total()
	if err := s.store.SaveEdit(record); err != nil {
		log.Warn("failed to record edit", "error", err)
	}

	log.Info("edit applied",
		"destination", destination,
		"added", result.Summary.Added,
		"removed", result.Summary.Removed,
		"relocated", result.Summary.Relocated,
	)

	return result, nil
}

func (s *ExplorerService) apply(fn editFunc, op string) (*EditResult, error) {
	active, err := s.store.LoadResources()
	if err != nil {
		return nil, err
	}
	trashed, err := s.store.LoadTrash()
	if err != nil {
		return nil, err
	}

	nextActive, nextTrashed, err := fn(active, trashed)
	if err != nil {
		return nil, err
	}

	adapter.MarkEmpty(nextActive)
	if err := s.store.ReplaceResources(nextActive, nextTrashed); err != nil {
		return nil, err
	}

	changes := s.comparer.Compare(active, nextActive)
	return &EditResult{
		Operation: op,
		Changes:   changes,
		Summary:   diff.Summarize(changes),
	}, nil
}

// Close closes the store
func (s *ExplorerService) Close() error {
	return s.store.Close()
}

var _ io.Closer = (*ExplorerService)(nil)

// transfer moves the resource at path and its descendants from one
// collection to the end of the other
func transfer(from, to []domain.Resource, path string) ([]domain.Resource, []domain.Resource, error) {
	if _, ok := findResource(from, path); !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrResourceNotFound, path)
	}

	taken := make(map[string]bool, len(to))
	for _, r := range to {
		taken[r.Path] = true
	}

	remaining := make([]domain.Resource, 0, len(from))
	moved := append([]domain.Resource{}, to...)
	for _, r := range from {
		if !treepath.Within(r.Path, path) {
			remaining = append(remaining, r)
			continue
		}
		if taken[r.Path] {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrPathCollision, r.Path)
		}
		moved = append(moved, r)
	}
	return remaining, moved, nil
}

func findResource(resources []domain.Resource, path string) (domain.Resource, bool) {
	for _, r := range resources {
		if r.Path == path {
			return r, true
		}
	}
	return domain.Resource{}, false
}

func rekey(resources []domain.Resource, path, id string) {
	for i := range resources {
		if resources[i].Path == path {
			resources[i].ID = id
			return
		}
	}
}
