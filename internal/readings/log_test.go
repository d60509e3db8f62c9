package readings

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"amuza/internal/device"
	"amuza/internal/potentiostat"
)

func testFrame(counter uint64, at time.Time) potentiostat.Frame {
	return potentiostat.Frame{
		Timestamp: at,
		Counter:   counter,
		Channels:  [potentiostat.ChannelCount]float64{1.5, -0.25, 2, 0, 3.125, 1, 37.5},
	}
}

func TestAppendCreatesSessionFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "readings")
	l := NewLogger(dir)

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("readings directory created before first append")
	}

	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)
	if err := l.Append(testFrame(1, start)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := l.Append(testFrame(2, start.Add(90*time.Second))); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	path := filepath.Join(dir, "2026-03-14_09-26-53.tsv")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading session file: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), data)
	}
	if lines[0] != "Created: 2026-03-14 09:26:53" {
		t.Errorf("created line = %q", lines[0])
	}
	if lines[1] != "counter\tt[min]\t#1ch1\t#1ch2\t#1ch3\t#1ch4\t#1ch5\t#1ch6\t#1ch7" {
		t.Errorf("header line = %q", lines[1])
	}
	if lines[2] != "Start: 2026-03-14 09:26:53" {
		t.Errorf("start line = %q", lines[2])
	}
	if lines[3] != "1\t0.000\t1.500\t-0.250\t2.000\t0.000\t3.125\t1.000\t37.500" {
		t.Errorf("first row = %q", lines[3])
	}
	if !strings.HasPrefix(lines[4], "2\t1.500\t") {
		t.Errorf("second row = %q, want 1.5 minute offset", lines[4])
	}
}

func TestCloseThenAppendStartsNewSession(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(dir)

	first := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	if err := l.Append(testFrame(1, first)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	firstPath := l.Path()
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second := first.Add(time.Hour)
	if err := l.Append(testFrame(1, second)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	defer l.Close()

	if l.Path() == firstPath {
		t.Error("second session reused the first session file")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d session files, want 2", len(entries))
	}
}

func TestAppendFailureClassifiesAsStorage(t *testing.T) {
	// A regular file where the readings directory should be makes
	// MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "readings")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	l := NewLogger(blocker)
	err := l.Append(testFrame(1, time.Now()))
	if err == nil {
		t.Fatal("Append() should fail when the directory cannot be created")
	}
	if !errors.Is(err, device.ErrStorage) {
		t.Errorf("error = %v, want ErrStorage", err)
	}
	if errors.Is(err, device.ErrDevice) {
		t.Errorf("error = %v, should not classify as device error", err)
	}
}

func TestCloseWithoutSessionIsNoop(t *testing.T) {
	l := NewLogger(t.TempDir())
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
