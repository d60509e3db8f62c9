package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"amuza/internal/testsupport"
)

func TestRunAllPassesWithMockedDevices(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	results := RunAll(context.Background(), cfg)
	if len(results) == 0 {
		t.Fatal("RunAll returned no results")
	}
	for _, r := range Failed(results) {
		t.Errorf("%s failed: %s", r.Name, r.Detail)
	}
}

func TestRunAllChecksDeviceNodesForRealLinks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Amuza.Mock = false
	cfg.Amuza.Port = filepath.Join(t.TempDir(), "no-such-tty")

	failed := Failed(RunAll(context.Background(), cfg))
	if len(failed) != 1 {
		t.Fatalf("got %d failures, want 1: %+v", len(failed), failed)
	}
	if failed[0].Name != "Fraction collector port" {
		t.Errorf("failed check = %s", failed[0].Name)
	}
}

func TestCheckDirectoryAccessCreatesMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "readings")

	result := CheckDirectoryAccess("Readings directory", dir)
	if !result.Passed {
		t.Fatalf("check failed: %s", result.Detail)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestCheckDirectoryAccessRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if result := CheckDirectoryAccess("Readings directory", path); result.Passed {
		t.Error("check passed for a regular file")
	}
}

func TestCheckDeviceNodeRejectsRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tty")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if result := CheckDeviceNode("Port", path); result.Passed {
		t.Error("check passed for a regular file")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	if result := CheckFreeSpace("Free space", t.TempDir(), 1); !result.Passed {
		t.Errorf("check failed: %s", result.Detail)
	}
}
