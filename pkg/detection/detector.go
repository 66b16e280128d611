// Package detection binds detection capabilities to the categories they count.
package detection

import (
	"context"
	"errors"
	"image"

	"github.com/menta2k/vehicle-counter/pkg/types"
)

// Detector finds objects of one kind in a frame. Implementations must not
// modify the frame and must return the same boxes for the same frame. A nil
// or empty result means nothing was found.
type Detector interface {
	Detect(ctx context.Context, frame *image.NRGBA) ([]types.Box, error)
}

// DetectorFunc adapts an ordinary function to the Detector interface
type DetectorFunc func(ctx context.Context, frame *image.NRGBA) ([]types.Box, error)

// Detect calls f(ctx, frame)
func (f DetectorFunc) Detect(ctx context.Context, frame *image.NRGBA) ([]types.Box, error) {
	return f(ctx, frame)
}

// Handle binds a Detector to the category it counts and the color its boxes
// are drawn in. A Handle is immutable once created.
type Handle struct {
	detector Detector
	color    types.Color
	category types.Category
}

// NewHandle creates a Handle
func NewHandle(category types.Category, color types.Color, detector Detector) (*Handle, error) {
	if category == "" {
		return nil, errors.New("detection: category cannot be empty")
	}
	if detector == nil {
		return nil, errors.New("detection: detector cannot be nil")
	}
	return &Handle{detector: detector, color: color, category: category}, nil
}

// Category returns the category this handle counts
func (h *Handle) Category() types.Category {
	return h.category
}

// Color returns the overlay color for this handle's boxes
func (h *Handle) Color() types.Color {
	return h.color
}

// Detect delegates to the wrapped detector
func (h *Handle) Detect(ctx context.Context, frame *image.NRGBA) ([]types.Box, error) {
	return h.detector.Detect(ctx, frame)
}

// Detector returns the wrapped detector
func (h *Handle) Detector() Detector {
	return h.detector
}
