package models

import (
	"fmt"
	"sort"
)

// DegenerateInputError is returned when a computation needs to divide by a
// variance that is zero
type DegenerateInputError struct {
	Operation string
	Count     int
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate input for %s: zero variance over %d values", e.Operation, e.Count)
}

// MalformedRecordError marks a single record that cannot take part in a pass
type MalformedRecordError struct {
	Index  int
	Field  string
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed record at position %d (%s): %s: %v", e.Index, e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed record at position %d (%s): %s", e.Index, e.Field, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// InsufficientDataError is returned when there are fewer points than requested clusters
type InsufficientDataError struct {
	Points   int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d points, need at least %d", e.Points, e.Required)
}

// EmptyClusterError reports a centroid that lost all of its members.
// k-means recovers from it by reseeding; it only escapes when no point can be moved.
type EmptyClusterError struct {
	Cluster   int
	Iteration int
}

func (e *EmptyClusterError) Error() string {
	return fmt.Sprintf("cluster %d has no members at iteration %d", e.Cluster, e.Iteration)
}

// MalformedIndices collects the positions of every MalformedRecordError in err,
// including errors joined with errors.Join. The result is sorted and unique.
func MalformedIndices(err error) []int {
	seen := make(map[int]struct{})
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if mre, ok := e.(*MalformedRecordError); ok {
			seen[mre.Index] = struct{}{}
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)

	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}
