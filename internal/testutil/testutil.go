package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Ning0612/Explorer/internal/core/treepath"
	"github.com/Ning0612/Explorer/internal/domain"
)

// TempDir creates a temporary directory for testing
// It returns the directory path and a cleanup function
func TempDir(t *testing.T) (string, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "explorer-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	cleanup := func() {
		os.RemoveAll(dir)
	}

	return dir, cleanup
}

// CreateTestFile creates a test file with the given content, creating
// parent directories as needed
func CreateTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create parent dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	return path
}

// Folder builds a folder resource from its path
func Folder(path string) domain.Resource {
	return domain.Resource{Name: treepath.Base(path), Path: path, Type: domain.ResourceFolder}
}

// File builds a file resource from its path
func File(path string) domain.Resource {
	return domain.Resource{Name: treepath.Base(path), Path: path, Type: domain.ResourceFile}
}

// SampleTree returns a small "my-files" tree used across tests.
// It contains a docs-old sibling to catch bare string-prefix matches.
func SampleTree() []domain.Resource {
	return []domain.Resource{
		Folder("my-files"),
		Folder("my-files/docs"),
		File("my-files/docs/project-plan.md"),
		Folder("my-files/docs/project-a"),
		File("my-files/docs/project-a/readme.md"),
		Folder("my-files/docs/project-a/assets"),
		File("my-files/docs/project-a/assets/logo.png"),
		Folder("my-files/docs-old"),
		File("my-files/docs-old/legacy.txt"),
		Folder("my-files/archive"),
		File("my-files/notes.txt"),
	}
}

// SampleTrash returns trashed items with one folder anchor and one orphan
func SampleTrash() []domain.Resource {
	return []domain.Resource{
		{ID: "1", Name: "project-a", Path: "my-files/projects/project-a", Type: domain.ResourceFolder},
		{ID: "2", Name: "readme.md", Path: "my-files/projects/project-a/readme.md", Type: domain.ResourceFile},
		{ID: "3", Name: "orphan.txt", Path: "my-files/random/orphan.txt", Type: domain.ResourceFile},
	}
}

// Clone returns an independent copy of resources
func Clone(resources []domain.Resource) []domain.Resource {
	out := make([]domain.Resource, len(resources))
	copy(out, resources)
	return out
}

// Paths returns the path of every resource in order
func Paths(resources []domain.Resource) []string {
	out := make([]string, len(resources))
	for i, r := range resources {
		out[i] = r.Path
	}
	return out
}

// Find returns the resource at path
func Find(resources []domain.Resource, path string) (domain.Resource, bool) {
	for _, r := range resources {
		if r.Path == path {
			return r, true
		}
	}
	return domain.Resource{}, false
}

// AssertUnchanged fails the test if got differs from want element by element
func AssertUnchanged(t *testing.T, got, want []domain.Resource) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("collection length changed: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("resource %d changed: got %+v, want %+v", i, got[i], want[i])
		}
	}
}
