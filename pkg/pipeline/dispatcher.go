package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/menta2k/vehicle-counter/pkg/annotate"
	"github.com/menta2k/vehicle-counter/pkg/counter"
	"github.com/menta2k/vehicle-counter/pkg/detection"
	"github.com/menta2k/vehicle-counter/pkg/types"
)

// Dispatcher runs every handle over a frame in a fixed order, draws the
// boxes each one finds and counts them
type Dispatcher struct {
	handles   []*detection.Handle
	annotator *annotate.Annotator
}

// NewDispatcher creates a dispatcher for handles, which run in slice order
func NewDispatcher(handles []*detection.Handle) (*Dispatcher, error) {
	if len(handles) == 0 {
		return nil, errors.New("pipeline: at least one detector handle is required")
	}
	seen := make(map[types.Category]struct{}, len(handles))
	for i, h := range handles {
		if h == nil {
			return nil, fmt.Errorf("pipeline: handle %d is nil", i)
		}
		if _, ok := seen[h.Category()]; ok {
			return nil, fmt.Errorf("pipeline: duplicate category %q", h.Category())
		}
		seen[h.Category()] = struct{}{}
	}
	return &Dispatcher{
		handles:   append([]*detection.Handle(nil), handles...),
		annotator: annotate.New(),
	}, nil
}

// WithAnnotator returns a copy of d that draws with a
func (d *Dispatcher) WithAnnotator(a *annotate.Annotator) *Dispatcher {
	if a == nil {
		a = annotate.New()
	}
	return &Dispatcher{handles: d.handles, annotator: a}
}

// Categories returns the handle categories in dispatch order
func (d *Dispatcher) Categories() []types.Category {
	out := make([]types.Category, len(d.handles))
	for i, h := range d.handles {
		out[i] = h.Category()
	}
	return out
}

// Process detects, annotates and counts one frame. Counts are merged into c
// only after every handle has succeeded, so a failed frame leaves c
// unchanged. It returns the number of boxes found across all handles.
func (d *Dispatcher) Process(ctx context.Context, frame *image.NRGBA, c *counter.Counter) (int, error) {
	tally := make(counter.Tally, len(d.handles))
	found := 0
	for _, h := range d.handles {
		boxes, err := h.Detect(ctx, frame)
		if err != nil {
			return 0, &DetectionError{Category: h.Category(), Err: err}
		}
		d.annotator.Draw(frame, boxes, h.Color(), h.Category().Title())
		tally[h.Category()] += len(boxes)
		found += len(boxes)
	}
	if err := c.Merge(tally); err != nil {
		return 0, err
	}
	return found, nil
}
