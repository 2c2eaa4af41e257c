package diff

import "github.com/Ning0612/Explorer/internal/domain"

// ChangeKind describes how a resource differs between two collections
type ChangeKind int

const (
	// ResourceAdded indicates the resource only exists in the new collection
	ResourceAdded ChangeKind = iota
	// ResourceRemoved indicates the resource only exists in the old collection
	ResourceRemoved
	// ResourceRelocated indicates the resource kept its identity but changed path
	ResourceRelocated
)

// String returns the string representation of the kind
func (k ChangeKind) String() string {
	switch k {
	case ResourceAdded:
		return "added"
	case ResourceRemoved:
		return "removed"
	case ResourceRelocated:
		return "relocated"
	default:
		return "unknown"
	}
}

// Change is a single difference between two collections
type Change struct {
	Kind ChangeKind

	// Path is the resource path in the new collection (old path for removals)
	Path string

	// From is the previous path of a relocated resource
	From string
}

// Comparer compares two resource collections
type Comparer interface {
	// Compare returns the changes turning before into after
	Compare(before, after []domain.Resource) []Change
}

// DefaultComparer matches resources by ID when both sides carry one and
// falls back to matching by path
type DefaultComparer struct{}

// NewDefaultComparer creates a new DefaultComparer
func NewDefaultComparer() *DefaultComparer {
	return &DefaultComparer{}
}

// Compare implements the Comparer interface.
// Changes are reported in the order of after, followed by removals in the
// order of before.
func (c *DefaultComparer) Compare(before, after []domain.Resource) []Change {
	byID := make(map[string]domain.Resource)
	byPath := make(map[string]domain.Resource, len(before))
	for _, r := range before {
		if r.ID != "" {
			byID[r.ID] = r
		}
		byPath[r.Path] = r
	}

	matched := make(map[string]bool, len(before))
	seenIDs := make(map[string]bool)
	changes := make([]Change, 0)

	for _, r := range after {
		// Copies keep their source ID; only the first occurrence is the original
		if r.ID != "" && !seenIDs[r.ID] {
			if old, ok := byID[r.ID]; ok && !matched[old.Path] {
				seenIDs[r.ID] = true
				matched[old.Path] = true
				if old.Path != r.Path {
					changes = append(changes, Change{Kind: ResourceRelocated, Path: r.Path, From: old.Path})
				}
				continue
			}
		}

		if old, ok := byPath[r.Path]; ok && !matched[old.Path] && (old.ID == "" || old.ID == r.ID) {
			matched[old.Path] = true
			continue
		}

		changes = append(changes, Change{Kind: ResourceAdded, Path: r.Path})
	}

	for _, r := range before {
		if !matched[r.Path] {
			changes = append(changes, Change{Kind: ResourceRemoved, Path: r.Path})
		}
	}

	return changes
}

// Summary counts changes per kind
type Summary struct {
	Added     int
	Removed   int
	Relocated int
}

// Total returns the number of changed resources
func (s Summary) Total() int {
	return s.Added + s.Removed + s.Relocated
}

// Summarize counts the changes per kind
func Summarize(changes []Change) Summary {
	var s Summary
	for _, c := range changes {
		switch c.Kind {
		case ResourceAdded:
			s.Added++
		case ResourceRemoved:
			s.Removed++
		case ResourceRelocated:
			s.Relocated++
		}
	}
	return s
}
