package pipeline

import (
	"errors"
	"fmt"

	"github.com/menta2k/vehicle-counter/pkg/counter"
	"github.com/menta2k/vehicle-counter/pkg/types"
)

var (
	// ErrStreamOpen is returned when the input or output stream cannot be opened
	ErrStreamOpen = errors.New("stream open failed")

	// ErrEmptyStream is returned when the input opens but has no readable first frame
	ErrEmptyStream = errors.New("input stream has no frames")

	// ErrDivisionUndefined is returned by Summary.Average when no frames were processed
	ErrDivisionUndefined = errors.New("no frames processed")

	// ErrInvalidState is returned for counts recorded against unregistered categories
	ErrInvalidState = counter.ErrInvalidState

	// ErrAlreadyRun is returned when Run is called on a driver that has left INIT
	ErrAlreadyRun = errors.New("driver already run")
)

// DetectionError reports a detector failure for one category
type DetectionError struct {
	Category types.Category
	Frame    int
	Err      error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("detection failed for %s on frame %d: %v", e.Category, e.Frame, e.Err)
}

func (e *DetectionError) Unwrap() error {
	return e.Err
}
