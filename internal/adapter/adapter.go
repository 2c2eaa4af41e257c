package adapter

import (
	"context"

	"github.com/Ning0612/Explorer/internal/core/treepath"
	"github.com/Ning0612/Explorer/internal/domain"
	"github.com/Ning0612/Explorer/internal/progress"
)

// Source lists a storage backend as a flat resource collection.
// Implementations return domain-level errors.
type Source interface {
	// Walk returns every resource below the backend root. The first
	// resource is a folder named after the source and every other path
	// starts with that name.
	// Returns domain.ErrNotFound if the root doesn't exist
	Walk(ctx context.Context) ([]domain.Resource, error)

	// Close releases any resources held by the source
	Close() error
}

// Reporting is implemented by sources that report progress while walking
type Reporting interface {
	SetReporter(r progress.Reporter)
}

// SourceFactory creates sources from configuration
type SourceFactory interface {
	// Create returns a source for the given configuration
	Create(ctx context.Context, src domain.Source) (Source, error)

	// Supports returns true if this factory can handle the source type
	Supports(sourceType domain.SourceType) bool
}

// MarkEmpty sets Empty on every folder in resources that no other resource
// names as its parent. It updates resources in place.
func MarkEmpty(resources []domain.Resource) {
	parents := make(map[string]struct{}, len(resources))
	for _, r := range resources {
		if p := treepath.Parent(r.Path); p != "" {
			parents[p] = struct{}{}
		}
	}

	for i := range resources {
		if !resources[i].IsFolder() {
			continue
		}
		_, hasChildren := parents[resources[i].Path]
		resources[i].Empty = !hasChildren
	}
}
