package wellplate

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Rows is the number of plate rows (A through H).
	Rows = 8
	// Columns is the number of plate columns (1 through 12).
	Columns = 12
	// Count is the total number of wells on the plate.
	Count = Rows * Columns
)

// Well identifies one position on the plate. Row and Col are 1-based:
// row 1 is "A", column 1 is the leftmost column.
type Well struct {
	Row int
	Col int
}

// New constructs a well from 1-based row and column coordinates.
func New(row, col int) (Well, error) {
	w := Well{Row: row, Col: col}
	if err := w.Validate(); err != nil {
		return Well{}, err
	}
	return w, nil
}

// Parse converts a label such as "A1" or "H12" into a Well.
func Parse(label string) (Well, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(label))
	if len(trimmed) < 2 {
		return Well{}, fmt.Errorf("well label %q: too short", label)
	}
	rowChar := trimmed[0]
	if rowChar < 'A' || rowChar > 'A'+Rows-1 {
		return Well{}, fmt.Errorf("well label %q: row must be A-H", label)
	}
	col, err := strconv.Atoi(trimmed[1:])
	if err != nil {
		return Well{}, fmt.Errorf("well label %q: column is not a number", label)
	}
	return New(int(rowChar-'A')+1, col)
}

// FromIndex converts a device well number (1-96) back into a Well.
func FromIndex(index int) (Well, error) {
	if index < 1 || index > Count {
		return Well{}, fmt.Errorf("well index %d out of range 1-%d", index, Count)
	}
	return Well{
		Row: (index-1)%Rows + 1,
		Col: (index-1)/Rows + 1,
	}, nil
}

// Validate reports whether the well lies on the plate.
func (w Well) Validate() error {
	if w.Row < 1 || w.Row > Rows {
		return fmt.Errorf("well row %d out of range 1-%d", w.Row, Rows)
	}
	if w.Col < 1 || w.Col > Columns {
		return fmt.Errorf("well column %d out of range 1-%d", w.Col, Columns)
	}
	return nil
}

// Label returns the human form of the well, e.g. "A1".
func (w Well) Label() string {
	return fmt.Sprintf("%c%d", 'A'+w.Row-1, w.Col)
}

// Index returns the device well number the AMUZA protocol uses. Numbering
// runs down each column before advancing to the next: A1=1, B1=2, ...,
// H1=8, A2=9, ..., H12=96.
func (w Well) Index() int {
	return (w.Col-1)*Rows + w.Row
}

func (w Well) String() string {
	return w.Label()
}
