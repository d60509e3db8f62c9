package wellplate

import (
	"fmt"
	"strings"
)

// Selection is an ordered list of wells to visit during a sampling run.
// Order is significant: MOVE runs honor it exactly, including repeats.
type Selection []Well

// ParseSelection parses a comma-separated list of well labels, e.g.
// "A1,B3,A1". A single range in the form "A1:C1" expands to the
// contiguous run of device well numbers between the two endpoints.
func ParseSelection(spec string) (Selection, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return nil, nil
	}
	if strings.Contains(trimmed, ":") {
		parts := strings.SplitN(trimmed, ":", 2)
		from, err := Parse(parts[0])
		if err != nil {
			return nil, err
		}
		to, err := Parse(parts[1])
		if err != nil {
			return nil, err
		}
		return Range(from, to)
	}

	fields := strings.Split(trimmed, ",")
	selection := make(Selection, 0, len(fields))
	for _, field := range fields {
		if strings.TrimSpace(field) == "" {
			continue
		}
		well, err := Parse(field)
		if err != nil {
			return nil, err
		}
		selection = append(selection, well)
	}
	return selection, nil
}

// Range returns the contiguous selection from one well to another in device
// numbering order, endpoints included.
func Range(from, to Well) (Selection, error) {
	if err := from.Validate(); err != nil {
		return nil, err
	}
	if err := to.Validate(); err != nil {
		return nil, err
	}
	start, end := from.Index(), to.Index()
	if start > end {
		return nil, fmt.Errorf("range %s:%s is reversed", from.Label(), to.Label())
	}
	selection := make(Selection, 0, end-start+1)
	for index := start; index <= end; index++ {
		well, err := FromIndex(index)
		if err != nil {
			return nil, err
		}
		selection = append(selection, well)
	}
	return selection, nil
}

// Validate checks every well in the selection lies on the plate.
func (s Selection) Validate() error {
	for _, well := range s {
		if err := well.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Contiguous reports whether the selection is a strictly increasing run of
// consecutive device well numbers, as RUNPLATE requires.
func (s Selection) Contiguous() bool {
	for i := 1; i < len(s); i++ {
		if s[i].Index() != s[i-1].Index()+1 {
			return false
		}
	}
	return true
}

// Unique reports whether no well appears more than once.
func (s Selection) Unique() bool {
	seen := make(map[int]struct{}, len(s))
	for _, well := range s {
		index := well.Index()
		if _, ok := seen[index]; ok {
			return false
		}
		seen[index] = struct{}{}
	}
	return true
}

// Indices returns the device well numbers in selection order.
func (s Selection) Indices() []int {
	indices := make([]int, len(s))
	for i, well := range s {
		indices[i] = well.Index()
	}
	return indices
}

// Labels returns the well labels in selection order.
func (s Selection) Labels() []string {
	labels := make([]string, len(s))
	for i, well := range s {
		labels[i] = well.Label()
	}
	return labels
}

func (s Selection) String() string {
	return strings.Join(s.Labels(), ",")
}
