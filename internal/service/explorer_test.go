package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/Ning0612/Explorer/internal/adapter"
	"github.com/Ning0612/Explorer/internal/config"
	"github.com/Ning0612/Explorer/internal/core/nested"
	"github.com/Ning0612/Explorer/internal/core/route"
	"github.com/Ning0612/Explorer/internal/core/tree"
	"github.com/Ning0612/Explorer/internal/domain"
	"github.com/Ning0612/Explorer/internal/lock"
	"github.com/Ning0612/Explorer/internal/progress"
	"github.com/Ning0612/Explorer/internal/store"
	"github.com/Ning0612/Explorer/internal/testutil"
)

// newTestService creates a service over a temp data dir seeded with the
// sample tree. Fresh IDs are "new-1", "new-2", ...
func newTestService(t *testing.T, trashed []domain.Resource) (*ExplorerService, string) {
	t.Helper()

	dir := t.TempDir()
	filesDir := filepath.Join(dir, "files")
	yaml := fmt.Sprintf("data_dir: %q\nsources:\n  - name: my-files\n    type: local\n    root: %q\n",
		filepath.Join(dir, "data"), filesDir)

	cfg, err := config.LoadFromString(yaml)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	svc, err := NewExplorerService(cfg)
	if err != nil {
		t.Fatalf("NewExplorerService() error = %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	n := 0
	svc.newID = func() string {
		n++
		return "new-" + strconv.Itoa(n)
	}

	active := testutil.SampleTree()
	for i := range active {
		active[i].ID = "id:" + active[i].Path
	}
	if err := svc.store.ReplaceResources(active, trashed); err != nil {
		t.Fatalf("ReplaceResources() error = %v", err)
	}

	return svc, filesDir
}

func loadActive(t *testing.T, svc *ExplorerService) []domain.Resource {
	t.Helper()
	active, err := svc.store.LoadResources()
	if err != nil {
		t.Fatalf("LoadResources() error = %v", err)
	}
	return active
}

func lastEdit(t *testing.T, svc *ExplorerService) *store.EditRecord {
	t.Helper()
	last, err := svc.store.GetLastEdit()
	if err != nil || last == nil {
		t.Fatalf("GetLastEdit() = %v, %v", last, err)
	}
	return last
}

func TestRename(t *testing.T) {
	svc, _ := newTestService(t, nil)

	result, err := svc.Rename(context.Background(), "my-files/docs", "documents")
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if result.Summary.Relocated != 6 || result.Summary.Added != 0 || result.Summary.Removed != 0 {
		t.Errorf("Unexpected summary: %+v", result.Summary)
	}

	active := loadActive(t, svc)
	r, ok := testutil.Find(active, "my-files/documents/project-a/assets/logo.png")
	if !ok || r.ID != "id:my-files/docs/project-a/assets/logo.png" {
		t.Errorf("Expected relocated logo to keep its ID, got %+v", r)
	}
	if _, ok := testutil.Find(active, "my-files/docs-old/legacy.txt"); !ok {
		t.Error("Textual sibling docs-old must be untouched")
	}

	last := lastEdit(t, svc)
	if last.Operation != OpRename || last.Status != store.StatusSuccess || last.Changed != 6 {
		t.Errorf("Unexpected history record: %+v", last)
	}
	if last.Destination != "documents" {
		t.Errorf("Expected destination 'documents', got %q", last.Destination)
	}
}

func TestMove_RejectedLeavesStore(t *testing.T) {
	svc, _ := newTestService(t, nil)
	before := loadActive(t, svc)

	tests := []struct {
		name        string
		target      string
		destination string
		wantErr     error
	}{
		{"into itself", "my-files/docs", "my-files/docs/project-a", domain.ErrInvalidMove},
		{"missing target", "my-files/nope", "my-files/archive", domain.ErrResourceNotFound},
		{"file destination", "my-files/docs", "my-files/notes.txt", domain.ErrDestinationNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Move(context.Background(), tt.target, tt.destination)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Move() error = %v, want %v", err, tt.wantErr)
			}

			testutil.AssertUnchanged(t, loadActive(t, svc), before)

			last := lastEdit(t, svc)
			if last.Status != store.StatusFailed || last.Error == "" {
				t.Errorf("Expected failed history record, got %+v", last)
			}
		})
	}
}

func TestMove(t *testing.T) {
	svc, _ := newTestService(t, nil)

	result, err := svc.Move(context.Background(), "my-files/docs/project-a", "my-files/archive")
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if result.Summary.Relocated != 4 {
		t.Errorf("Expected 4 relocated, got %+v", result.Summary)
	}

	archive, _ := testutil.Find(loadActive(t, svc), "my-files/archive")
	if archive.Empty {
		t.Error("archive should no longer be empty")
	}
}

func TestCopy_AssignsFreshIDs(t *testing.T) {
	svc, _ := newTestService(t, nil)

	result, err := svc.Copy(context.Background(), "my-files/docs/project-a", "my-files/docs", tree.CopyOptions{})
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if result.Summary.Added != 4 || result.Summary.Relocated != 0 {
		t.Errorf("Unexpected summary: %+v", result.Summary)
	}

	active := loadActive(t, svc)
	want := map[string]string{
		"my-files/docs/project-a copy":                 "new-1",
		"my-files/docs/project-a copy/readme.md":       "new-2",
		"my-files/docs/project-a copy/assets":          "new-3",
		"my-files/docs/project-a copy/assets/logo.png": "new-4",
		"my-files/docs/project-a":                      "id:my-files/docs/project-a",
		"my-files/docs/project-a/assets/logo.png":      "id:my-files/docs/project-a/assets/logo.png",
	}
	for path, id := range want {
		r, ok := testutil.Find(active, path)
		if !ok || r.ID != id {
			t.Errorf("%s: got %+v, want ID %s", path, r, id)
		}
	}

	// A second copy probes the next free name
	if _, err := svc.Copy(context.Background(), "my-files/docs/project-a", "my-files/docs", tree.CopyOptions{}); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if _, ok := testutil.Find(loadActive(t, svc), "my-files/docs/project-a copy 2"); !ok {
		t.Error("Expected 'project-a copy 2'")
	}
}

func TestCopy_NewName(t *testing.T) {
	svc, _ := newTestService(t, nil)

	if _, err := svc.Copy(context.Background(), "my-files/notes.txt", "my-files/archive", tree.CopyOptions{NewName: "notes-backup.txt"}); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if _, ok := testutil.Find(loadActive(t, svc), "my-files/archive/notes-backup.txt"); !ok {
		t.Error("Expected copy under the requested name")
	}
}

func TestTrashAndRestore(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	result, err := svc.Trash(ctx, "my-files/docs/project-a")
	if err != nil {
		t.Fatalf("Trash() error = %v", err)
	}
	if result.Summary.Removed != 4 {
		t.Errorf("Expected 4 removed, got %+v", result.Summary)
	}
	if _, ok := testutil.Find(loadActive(t, svc), "my-files/docs/project-a/readme.md"); ok {
		t.Error("Trashed descendant still active")
	}

	listing, err := svc.ListTrash("", "")
	if err != nil {
		t.Fatalf("ListTrash() error = %v", err)
	}
	if listing.VirtualRoot != "trash/project-a" || len(listing.Resources) != 1 || listing.Resources[0].Name != "project-a" {
		t.Errorf("Unexpected trash root listing: %+v", listing)
	}

	view, err := svc.Open("/trash")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := testutil.Paths(view.Resources); !reflect.DeepEqual(got, []string{"my-files/docs/project-a"}) {
		t.Errorf("Unexpected trash root view: %v", got)
	}
	if view.VirtualRoot != "trash/project-a" {
		t.Errorf("Unexpected virtual root %q", view.VirtualRoot)
	}

	view, err = svc.Open("/trash/project-a")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := testutil.Paths(view.Resources); !reflect.DeepEqual(got, []string{
		"my-files/docs/project-a/readme.md",
		"my-files/docs/project-a/assets",
	}) {
		t.Errorf("Unexpected trash view: %v", got)
	}

	if _, err := svc.Restore(ctx, "my-files/docs/project-a"); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if _, ok := testutil.Find(loadActive(t, svc), "my-files/docs/project-a/assets/logo.png"); !ok {
		t.Error("Restored descendant missing")
	}
	listing, _ = svc.ListTrash("", "")
	if len(listing.Resources) != 0 {
		t.Errorf("Trash should be empty, got %+v", listing.Resources)
	}
}

func TestTrash_Errors(t *testing.T) {
	svc, _ := newTestService(t, []domain.Resource{testutil.File("my-files/notes.txt")})
	ctx := context.Background()

	if _, err := svc.Trash(ctx, "my-files/missing"); !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound, got %v", err)
	}
	if _, err := svc.Trash(ctx, "my-files/notes.txt"); !errors.Is(err, domain.ErrPathCollision) {
		t.Errorf("Expected ErrPathCollision, got %v", err)
	}
}

func TestRestore_Errors(t *testing.T) {
	svc, _ := newTestService(t, []domain.Resource{testutil.File("my-files/notes.txt")})
	ctx := context.Background()

	if _, err := svc.Restore(ctx, "my-files/missing"); !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound, got %v", err)
	}
	if _, err := svc.Restore(ctx, "my-files/notes.txt"); !errors.Is(err, domain.ErrPathCollision) {
		t.Errorf("Expected ErrPathCollision, got %v", err)
	}

	// Trash a folder, then its parent; the child can't come back alone
	if _, err := svc.Trash(ctx, "my-files/docs/project-a"); err != nil {
		t.Fatalf("Trash() error = %v", err)
	}
	if _, err := svc.Trash(ctx, "my-files/docs"); err != nil {
		t.Fatalf("Trash() error = %v", err)
	}
	if _, err := svc.Restore(ctx, "my-files/docs/project-a"); !errors.Is(err, domain.ErrDestinationNotFound) {
		t.Errorf("Expected ErrDestinationNotFound, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	svc, _ := newTestService(t, nil)

	got, err := svc.Search("  PROJECT ")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := []string{"my-files/docs/project-plan.md", "my-files/docs/project-a"}
	if !reflect.DeepEqual(testutil.Paths(got), want) {
		t.Errorf("Search() = %v, want %v", testutil.Paths(got), want)
	}
}

func TestTree(t *testing.T) {
	svc, _ := newTestService(t, nil)

	tests := []struct {
		folderPath string
		want       []string
		wantErr    error
	}{
		{"", testutil.Paths(testutil.SampleTree()), nil},
		{"my-files/docs-old", []string{"my-files/docs-old/legacy.txt"}, nil},
		{"my-files/archive", []string{}, nil},
		{"my-files/notes.txt", nil, domain.ErrResourceNotFound},
		{"my-files/missing", nil, domain.ErrResourceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.folderPath, func(t *testing.T) {
			nodes, err := svc.Tree(tt.folderPath)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Tree() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := nested.FlattenPaths(nodes); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tree() paths = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	svc, _ := newTestService(t, nil)

	lostAndFound := testutil.Folder("my-files/lost+found")
	lostAndFound.Empty = true
	active := append(loadActive(t, svc), lostAndFound)
	if err := svc.store.ReplaceResources(active, nil); err != nil {
		t.Fatalf("ReplaceResources() error = %v", err)
	}

	tests := []struct {
		pathname string
		want     []string
		wantErr  error
	}{
		{"/reading", []string{"my-files"}, nil},
		{"/reading/my-files", []string{"my-files/docs", "my-files/docs-old", "my-files/archive", "my-files/notes.txt"}, nil},
		{"/reading/my-files/docs", []string{"my-files/docs/project-plan.md", "my-files/docs/project-a"}, nil},
		{"/reading/my-files/missing", nil, domain.ErrResourceNotFound},
		{"/reading/my-files/notes.txt", nil, domain.ErrResourceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.pathname, func(t *testing.T) {
			view, err := svc.Open(tt.pathname)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := testutil.Paths(view.Resources); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Open() = %v, want %v", got, tt.want)
			}
			if view.Location.View != "reading" {
				t.Errorf("Unexpected view %q", view.Location.View)
			}
		})
	}
}

func TestImport_LocalSource(t *testing.T) {
	svc, filesDir := newTestService(t, nil)

	// A second root that import must leave alone
	active := append(loadActive(t, svc), testutil.Folder("other"))
	if err := svc.store.ReplaceResources(active, nil); err != nil {
		t.Fatalf("ReplaceResources() error = %v", err)
	}

	testutil.CreateTestFile(t, filesDir, "report.pdf", []byte("r"))
	testutil.CreateTestFile(t, filesDir, "photos/cat.jpg", []byte("c"))

	result, err := svc.Import(context.Background(), "my-files")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	got := loadActive(t, svc)
	want := []string{"other", "my-files", "my-files/photos", "my-files/photos/cat.jpg", "my-files/report.pdf"}
	if !reflect.DeepEqual(testutil.Paths(got), want) {
		t.Errorf("Import() paths = %v, want %v", testutil.Paths(got), want)
	}
	// the source root survives with its ID; everything else is new
	if got[1].ID != "id:my-files" {
		t.Errorf("Expected the root to keep its ID, got %q", got[1].ID)
	}
	for _, r := range got[2:] {
		if len(r.ID) < 4 || r.ID[:4] != "new-" {
			t.Errorf("%s: expected a fresh ID, got %q", r.Path, r.ID)
		}
	}

	if result.Summary.Removed != 10 || result.Summary.Added != 3 || result.Summary.Relocated != 0 {
		t.Errorf("Unexpected summary: %+v", result.Summary)
	}
	if last := lastEdit(t, svc); last.Operation != OpImport || last.Target != "my-files" {
		t.Errorf("Unexpected history record: %+v", last)
	}
}

func TestImport_ReimportKeepsIDs(t *testing.T) {
	svc, filesDir := newTestService(t, nil)

	testutil.CreateTestFile(t, filesDir, "a.txt", []byte("a"))
	testutil.CreateTestFile(t, filesDir, "sub/b.txt", []byte("b"))

	var updates []progress.Update
	svc.SetReporter(progress.NewCallbackReporter(func(u progress.Update) {
		updates = append(updates, u)
	}))

	if _, err := svc.Import(context.Background(), "my-files"); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	first := loadActive(t, svc)

	if len(updates) == 0 || updates[0].Type != progress.UpdateStart || updates[len(updates)-1].Type != progress.UpdateDone {
		t.Fatalf("Expected start and done updates, got %+v", updates)
	}
	if done := updates[len(updates)-1]; done.Found != 3 || done.Source != "my-files" {
		t.Errorf("Unexpected done update: %+v", done)
	}

	// b.txt becomes a folder, c.txt is new
	if err := os.Remove(filepath.Join(filesDir, "sub", "b.txt")); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(filesDir, "sub", "b.txt"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	testutil.CreateTestFile(t, filesDir, "c.txt", []byte("c"))

	result, err := svc.Import(context.Background(), "my-files")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Summary.Added != 2 || result.Summary.Removed != 1 || result.Summary.Relocated != 0 {
		t.Errorf("Unexpected summary: %+v", result.Summary)
	}

	second := loadActive(t, svc)
	for _, path := range []string{"my-files", "my-files/a.txt", "my-files/sub"} {
		before, _ := testutil.Find(first, path)
		after, ok := testutil.Find(second, path)
		if !ok || after.ID != before.ID {
			t.Errorf("%s: expected ID %q to survive, got %q", path, before.ID, after.ID)
		}
	}
	if b, _ := testutil.Find(second, "my-files/sub/b.txt"); !b.IsFolder() || !b.Empty {
		t.Errorf("Expected b.txt to be an empty folder, got %+v", b)
	}
}

func TestRunImport(t *testing.T) {
	svc, filesDir := newTestService(t, nil)
	testutil.CreateTestFile(t, filesDir, "a.txt", []byte("a"))

	if err := svc.RunImport(context.Background(), ""); err != nil {
		t.Fatalf("RunImport() error = %v", err)
	}
	if _, ok := testutil.Find(loadActive(t, svc), "my-files/a.txt"); !ok {
		t.Error("Expected my-files/a.txt after importing all sources")
	}

	err := svc.RunImport(context.Background(), "unknown")
	if !errors.Is(err, domain.ErrSourceNotFound) {
		t.Errorf("Expected ErrSourceNotFound, got %v", err)
	}
}

type fakeSource struct {
	resources []domain.Resource
	err       error
	closed    bool
}

func (f *fakeSource) Walk(ctx context.Context) ([]domain.Resource, error) {
	return f.resources, f.err
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type fakeFactory struct {
	source *fakeSource
}

func (f fakeFactory) Supports(sourceType domain.SourceType) bool { return true }

func (f fakeFactory) Create(ctx context.Context, src domain.Source) (adapter.Source, error) {
	return f.source, nil
}

func TestImport_Errors(t *testing.T) {
	svc, _ := newTestService(t, nil)
	before := loadActive(t, svc)

	if _, err := svc.Import(context.Background(), "unknown"); !errors.Is(err, domain.ErrSourceNotFound) {
		t.Errorf("Expected ErrSourceNotFound, got %v", err)
	}

	source := &fakeSource{err: domain.ErrPermissionDenied}
	svc.SetSourceFactory(fakeFactory{source: source})

	if _, err := svc.Import(context.Background(), "my-files"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("Expected ErrPermissionDenied, got %v", err)
	}
	if !source.closed {
		t.Error("source was not closed")
	}
	testutil.AssertUnchanged(t, loadActive(t, svc), before)
}

func TestOpen_TrashFolderWithEscapedName(t *testing.T) {
	tests := []struct {
		name   string
		folder string
	}{
		{"percent sequence", "100%20done"},
		{"space", "100 done"},
		{"plus", "a+b"},
		{"parentheses", "draft(1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folder := "my-files/" + tt.folder
			svc, _ := newTestService(t, []domain.Resource{
				testutil.Folder(folder),
				testutil.File(folder + "/a.txt"),
			})

			pathname := route.Location{View: "trash", FolderPath: tt.folder}.Pathname()
			view, err := svc.Open(pathname)
			if err != nil {
				t.Fatalf("Open(%q) error = %v", pathname, err)
			}
			if got := testutil.Paths(view.Resources); !reflect.DeepEqual(got, []string{folder + "/a.txt"}) {
				t.Errorf("Open(%q) = %v, want 1 child", pathname, got)
			}
		})
	}
}

func TestEdit_LockHeld(t *testing.T) {
	svc, _ := newTestService(t, nil)

	other, err := lock.NewFileLock(svc.config.GetLockPath())
	if err != nil {
		t.Fatalf("NewFileLock() error = %v", err)
	}
	if err := other.Acquire("import"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer other.Release()

	if !svc.IsLocked() {
		t.Error("Expected IsLocked() to report the other holder")
	}

	_, err = svc.Rename(context.Background(), "my-files/notes.txt", "todo.txt")
	if !lock.IsLockError(err) {
		t.Errorf("Expected lock error, got %v", err)
	}

	holder, err := svc.GetLockHolder()
	if err != nil || holder.Operation != "import" {
		t.Errorf("GetLockHolder() = %+v, %v", holder, err)
	}

	if err := svc.ForceUnlock(); err != nil {
		t.Fatalf("ForceUnlock() error = %v", err)
	}
	if _, err := svc.Rename(context.Background(), "my-files/notes.txt", "todo.txt"); err != nil {
		t.Errorf("Rename() after unlock error = %v", err)
	}
}

func TestNewExplorerService_LockStaleTimeout(t *testing.T) {
	tests := []struct {
		name     string
		timeout  string
		wantHeld bool
	}{
		{"default keeps a recent remote lock", "", true},
		{"short timeout breaks it", "lock_stale_timeout: 1m\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataDir := filepath.Join(t.TempDir(), "data")
			cfg, err := config.LoadFromString(fmt.Sprintf("data_dir: %q\n%s", dataDir, tt.timeout))
			if err != nil {
				t.Fatalf("LoadFromString() error = %v", err)
			}

			svc, err := NewExplorerService(cfg)
			if err != nil {
				t.Fatalf("NewExplorerService() error = %v", err)
			}
			defer svc.Close()

			holder := lock.LockInfo{
				PID:       12345,
				Hostname:  "other-host.invalid",
				StartTime: time.Now().Add(-5 * time.Minute),
				Operation: "import",
			}
			data, err := json.Marshal(holder)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if err := os.WriteFile(filepath.Join(dataDir, lock.LockFileName), data, 0644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}

			err = svc.lock.Acquire("rename")
			if tt.wantHeld {
				if !lock.IsLockError(err) {
					t.Errorf("Expected lock error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Acquire() error = %v", err)
			}
			svc.lock.Release()
		})
	}
}

func TestEdit_Cancelled(t *testing.T) {
	svc, _ := newTestService(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Rename(ctx, "my-files/notes.txt", "todo.txt"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestHistory(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	svc.Rename(ctx, "my-files/notes.txt", "todo.txt")
	svc.Trash(ctx, "my-files/todo.txt")

	history, err := svc.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 || history[0].Operation != OpTrash || history[1].Operation != OpRename {
		t.Errorf("Unexpected history: %+v", history)
	}

	if _, err := svc.History(0); err == nil {
		t.Error("Expected error for zero limit")
	}
}
