package readings

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"amuza/internal/device"
	"amuza/internal/potentiostat"
)

const timestampLayout = "2006-01-02 15:04:05"

// Logger appends sensor frames to a per-session TSV file. The readings
// directory and the session file are created lazily on the first
// append, so a daemon that records nothing leaves nothing behind.
type Logger struct {
	dir string

	mu    sync.Mutex
	file  *os.File
	w     *bufio.Writer
	start time.Time
	path  string
}

// NewLogger returns a logger that will write sessions under dir.
func NewLogger(dir string) *Logger {
	return &Logger{dir: dir}
}

// Append writes one frame to the current session, opening a new session
// file if none is active.
func (l *Logger) Append(frame potentiostat.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		if err := l.openSession(frame.Timestamp); err != nil {
			return err
		}
	}

	minutes := frame.Timestamp.Sub(l.start).Minutes()
	row := make([]string, 0, 2+potentiostat.ChannelCount)
	row = append(row, fmt.Sprintf("%d", frame.Counter), fmt.Sprintf("%.3f", minutes))
	for _, v := range frame.Channels {
		row = append(row, fmt.Sprintf("%.3f", v))
	}
	if _, err := l.w.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
		return device.Wrap(device.ErrStorage, "readings", "append", "writing sample row", err)
	}
	return l.w.Flush()
}

// Path returns the active session file path, or empty when no session
// is open.
func (l *Logger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Close ends the current session. The next Append starts a new one.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	flushErr := l.w.Flush()
	closeErr := l.file.Close()
	l.file = nil
	l.w = nil
	l.path = ""
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (l *Logger) openSession(start time.Time) error {
	if start.IsZero() {
		start = time.Now()
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return device.Wrap(device.ErrStorage, "readings", "open", "creating readings directory", err)
	}

	name := start.Format("2006-01-02_15-04-05") + ".tsv"
	path := filepath.Join(l.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return device.Wrap(device.ErrStorage, "readings", "open", "creating session file", err)
	}

	w := bufio.NewWriter(file)
	header := make([]string, 0, 2+potentiostat.ChannelCount)
	header = append(header, "counter", "t[min]")
	for i := 1; i <= potentiostat.ChannelCount; i++ {
		header = append(header, fmt.Sprintf("#1ch%d", i))
	}

	lines := fmt.Sprintf("Created: %s\n%s\nStart: %s\n",
		start.Format(timestampLayout),
		strings.Join(header, "\t"),
		start.Format(timestampLayout))
	if _, err := w.WriteString(lines); err != nil {
		file.Close()
		return device.Wrap(device.ErrStorage, "readings", "open", "writing session header", err)
	}

	l.file = file
	l.w = w
	l.start = start
	l.path = path
	return nil
}
