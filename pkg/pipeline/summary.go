package pipeline

import (
	"time"

	"github.com/menta2k/vehicle-counter/pkg/counter"
	"github.com/menta2k/vehicle-counter/pkg/types"
)

// Summary is the result of a run: frames processed, final counts and
// detection time
type Summary struct {
	Frames int             `json:"frames"`
	Counts []counter.Entry `json:"counts"`
	Total  time.Duration   `json:"total"`
}

func newSummary(frames int, c *counter.Counter, total time.Duration) *Summary {
	return &Summary{Frames: frames, Counts: c.Snapshot(), Total: total}
}

// Count returns the final count for category, or 0 if it was not counted
func (s *Summary) Count(category types.Category) int {
	for _, e := range s.Counts {
		if e.Category == category {
			return e.Count
		}
	}
	return 0
}

// Objects returns the sum of all category counts
func (s *Summary) Objects() int {
	n := 0
	for _, e := range s.Counts {
		n += e.Count
	}
	return n
}

// Average returns the mean detection time per frame. It returns
// ErrDivisionUndefined when no frames were processed.
func (s *Summary) Average() (time.Duration, error) {
	if s.Frames == 0 {
		return 0, ErrDivisionUndefined
	}
	return s.Total / time.Duration(s.Frames), nil
}
