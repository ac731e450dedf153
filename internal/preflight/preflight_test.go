package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"animforge/internal/config"
	"animforge/internal/repair"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckHistoryLocation(t *testing.T) {
	dir := t.TempDir()
	fresh := CheckHistoryLocation(filepath.Join(dir, "history.db"))
	if !fresh.Passed || !strings.Contains(fresh.Detail, "will be created") {
		t.Fatalf("expected creatable database, got %#v", fresh)
	}

	missing := CheckHistoryLocation(filepath.Join(dir, "absent", "history.db"))
	if missing.Passed {
		t.Fatal("expected failure when parent directory is missing")
	}

	if bad := CheckHistoryLocation(dir); bad.Passed {
		t.Fatal("expected failure when path is a directory")
	}
}

type stubOracle struct {
	healthErr error
}

func (s stubOracle) Complete(context.Context, string, string) (string, error) { return "", nil }
func (s stubOracle) Name() string                                             { return "stub:model" }
func (s stubOracle) HealthCheck(context.Context) error                        { return s.healthErr }

func TestCheckRepair(t *testing.T) {
	ctx := context.Background()

	unavailable := CheckRepair(ctx, repair.NewWithOracle(nil, nil))
	if unavailable.Passed {
		t.Fatal("expected failure without an oracle")
	}

	ok := CheckRepair(ctx, repair.NewWithOracle(stubOracle{}, nil))
	if !ok.Passed || !strings.Contains(ok.Detail, "stub:model") {
		t.Fatalf("expected pass naming backend, got %#v", ok)
	}

	slow := CheckRepair(ctx, repair.NewWithOracle(stubOracle{healthErr: context.DeadlineExceeded}, nil))
	if slow.Passed || !strings.Contains(slow.Detail, "timed out") {
		t.Fatalf("expected timeout summary, got %#v", slow)
	}

	failed := CheckRepair(ctx, repair.NewWithOracle(stubOracle{healthErr: errors.New("401 unauthorized")}, nil))
	if failed.Passed || failed.Detail != "401 unauthorized" {
		t.Fatalf("unexpected failure detail %#v", failed)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.History.Enabled = false
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), &cfg, nil)
	if len(results) != 3 {
		t.Fatalf("expected 3 directory results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Fatalf("expected %s to pass, got %s", r.Name, r.Detail)
		}
	}
}

func TestRunAll_IncludesHistoryAndRepair(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.History.Enabled = true
	cfg.History.Path = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), &cfg, repair.NewWithOracle(stubOracle{}, nil))
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "History database") || !strings.Contains(joined, "Repair oracle") {
		t.Fatalf("expected history and repair checks, got %s", joined)
	}
}
