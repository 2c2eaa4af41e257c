package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Ning0612/Explorer/internal/logger"
	"github.com/Ning0612/Explorer/internal/testutil"
)

// setupCLI writes a config with one local source and returns its path
func setupCLI(t *testing.T) string {
	t.Helper()

	dir, cleanup := testutil.TempDir(t)
	t.Cleanup(cleanup)

	testutil.CreateTestFile(t, dir, "files/docs/a.txt", []byte("a"))
	testutil.CreateTestFile(t, dir, "files/notes.txt", []byte("notes"))

	cfg := fmt.Sprintf(`
data_dir: %q
log:
  level: error
sources:
  - name: my-files
    type: local
    root: %q
`, filepath.Join(dir, "data"), filepath.Join(dir, "files"))

	return testutil.CreateTestFile(t, dir, "config.yaml", []byte(cfg))
}

func execute(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configPath}, args...))

	err := root.Execute()
	logger.Shutdown()
	return out.String(), err
}

func mustExecute(t *testing.T, configPath string, args ...string) string {
	t.Helper()

	out, err := execute(t, configPath, args...)
	if err != nil {
		t.Fatalf("%v: unexpected error: %v\n%s", args, err, out)
	}
	return out
}

func TestCLI_Workflow(t *testing.T) {
	cfg := setupCLI(t)

	steps := []struct {
		args []string
		want []string
	}{
		{[]string{"import", "my-files"}, []string{"walking my-files...", "imported my-files: 4 added, 0 removed"}},
		{[]string{"open", "/reading/my-files"}, []string{"/reading/my-files", "docs", "/reading/my-files/docs", "notes.txt"}},
		{[]string{"search", "NOTES"}, []string{"my-files/notes.txt"}},
		{[]string{"tree"}, []string{"my-files/\n  docs/\n    a.txt\n  notes.txt\n"}},
		{[]string{"tree", "my-files", "--paths"}, []string{"my-files/docs\nmy-files/docs/a.txt\nmy-files/notes.txt\n"}},
		{[]string{"rename", "my-files/docs", "papers"}, []string{"rename: 0 added, 0 removed, 2 relocated", "~ my-files/docs -> my-files/papers"}},
		{[]string{"copy", "my-files/notes.txt", "my-files/papers"}, []string{"copy: 1 added", "+ my-files/papers/notes.txt copy"}},
		{[]string{"trash", "my-files/papers"}, []string{"trash: 0 added, 3 removed"}},
		{[]string{"trash-ls"}, []string{"virtual root: trash/papers", "trash/papers", "my-files/papers"}},
		{[]string{"trash-ls", "trash/papers"}, []string{"trash/papers/a.txt", "trash/papers/notes.txt"}},
		{[]string{"open", "/trash/papers"}, []string{"/trash/papers", "/trash/papers/a.txt"}},
		{[]string{"restore", "my-files/papers"}, []string{"restore: 3 added"}},
		{[]string{"move", "my-files/notes.txt", "my-files/papers"}, []string{"~ my-files/notes.txt -> my-files/papers/notes.txt"}},
		{[]string{"history", "--limit", "2"}, []string{"TIME", "move", "restore"}},
		{[]string{"unlock"}, []string{"Not locked."}},
	}

	for _, step := range steps {
		out := mustExecute(t, cfg, step.args...)
		for _, want := range step.want {
			if !strings.Contains(out, want) {
				t.Errorf("%v: expected output to contain %q, got:\n%s", step.args, want, out)
			}
		}
	}
}

func TestCLI_Errors(t *testing.T) {
	cfg := setupCLI(t)
	mustExecute(t, cfg, "import", "my-files")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown source", []string{"import", "nope"}, "source not found"},
		{"missing target", []string{"rename", "my-files/missing", "x"}, "not found"},
		{"tree of a file", []string{"tree", "my-files/notes.txt"}, "not found"},
		{"move into itself", []string{"move", "my-files/docs", "my-files/docs"}, "into itself"},
		{"missing args", []string{"move", "my-files/docs"}, "accepts 2 arg(s)"},
		{"auth local source", []string{"auth", "my-files"}, "not a gdrive source"},
		{"stop without watcher", []string{"watch", "--stop"}, "watcher is not running"},
		{"watch unknown source", []string{"watch", "nope"}, "source not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, cfg, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCLI_ImportQuiet(t *testing.T) {
	cfg := setupCLI(t)

	out := mustExecute(t, cfg, "import", "--quiet", "my-files")
	if strings.Contains(out, "walking") {
		t.Errorf("Expected no progress output, got:\n%s", out)
	}

	// re-importing an unchanged source changes nothing
	out = mustExecute(t, cfg, "import", "-q", "my-files")
	if !strings.Contains(out, "imported my-files: 0 added, 0 removed") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestCLI_ExplicitConfigMissing(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	_, err := execute(t, filepath.Join(dir, "missing.yaml"), "history")
	if err == nil || !strings.Contains(err.Error(), "failed to load config") {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestRun_ExitCode(t *testing.T) {
	cfg := setupCLI(t)

	if code := run([]string{"--config", cfg, "history"}); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
	if code := run([]string{"--config", cfg, "rename"}); code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
}
