package pipeline

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Stopwatch measures how long a scoped call takes
type Stopwatch struct {
	clock clock.Clock
}

// NewStopwatch creates a stopwatch reading c; a nil c uses the wall clock
func NewStopwatch(c clock.Clock) *Stopwatch {
	if c == nil {
		c = clock.New()
	}
	return &Stopwatch{clock: c}
}

// Time runs fn and returns its elapsed time. The duration is reported even
// when fn fails and is never negative.
func (s *Stopwatch) Time(fn func() error) (time.Duration, error) {
	start := s.clock.Now()
	err := fn()
	elapsed := s.clock.Since(start)
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed, err
}
