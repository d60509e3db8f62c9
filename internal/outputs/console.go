package outputs

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"amuza/internal/calibration"
)

// ConsoleOutput prints one line per sample.
type ConsoleOutput struct {
	w io.Writer
}

// NewConsole returns a console sink writing to w. A nil writer uses
// stdout.
func NewConsole(w io.Writer) *ConsoleOutput {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleOutput{w: w}
}

func (c *ConsoleOutput) Publish(sample Sample) error {
	parts := make([]string, 0, 3+len(sample.Metabolites))
	parts = append(parts, sample.Timestamp.Format(time.RFC3339))
	if sample.Well != "" {
		parts = append(parts, "well="+sample.Well)
	}

	names := make([]string, 0, len(sample.Metabolites))
	for m := range sample.Metabolites {
		names = append(names, string(m))
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%.4f", name, sample.Metabolites[calibration.Metabolite(name)]))
	}
	parts = append(parts, fmt.Sprintf("temp=%.1f", sample.Temperature))

	_, err := fmt.Fprintln(c.w, strings.Join(parts, " "))
	return err
}

func (c *ConsoleOutput) Close() error { return nil }
