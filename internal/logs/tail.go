package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// TailOptions selects the window of amuzad.log to read.
type TailOptions struct {
	// Offset is the byte position to resume reading from. A negative
	// offset requests the last Limit lines of the file instead.
	Offset int64
	// Limit caps the number of lines returned when Offset is negative.
	Limit int
	// Follow polls for new lines for up to Wait when the read comes
	// back empty.
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

const followPollInterval = 250 * time.Millisecond

// Tail reads a window of log lines from path. A missing file is not an
// error; the daemon may simply not have logged anything yet.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result, err := readWindow(path, opts.Offset, opts.Limit)
	if err != nil || len(result.Lines) > 0 || !opts.Follow || opts.Wait <= 0 {
		return result, err
	}

	// Nothing new yet. Poll until a line shows up or the wait expires.
	deadline := time.Now().Add(opts.Wait)
	ticker := time.NewTicker(followPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
		next, err := readWindow(path, result.Offset, 0)
		if err != nil {
			return result, err
		}
		if len(next.Lines) > 0 || time.Now().After(deadline) {
			return next, nil
		}
		result = next
	}
}

// readWindow reads lines starting at offset, or the last keep lines of
// the whole file when offset is negative.
func readWindow(path string, offset int64, keep int) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return TailResult{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{}, fmt.Errorf("log path %q is a directory", path)
	}
	size := info.Size()

	tailMode := offset < 0
	if tailMode {
		if keep <= 0 {
			// Last zero lines: just report where the file ends.
			return TailResult{Offset: size}, nil
		}
		offset = 0
	} else if offset > size {
		// The file was truncated or rotated under us.
		offset = size
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{}, fmt.Errorf("seek log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if tailMode && len(lines) >= 2*keep {
			lines = append(lines[:0], lines[len(lines)-keep:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return TailResult{}, fmt.Errorf("read log file: %w", err)
	}
	if tailMode && len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}

	return TailResult{Lines: lines, Offset: size}, nil
}
