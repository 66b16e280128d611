// Package frame describes decoded video frames and checks that they are usable.
package frame

import (
	"errors"
	"fmt"
	"image"
)

// ErrMalformed marks a frame that cannot be processed
var ErrMalformed = errors.New("malformed frame")

// Info contains basic frame metadata
type Info struct {
	Width       int
	Height      int
	AspectRatio float64
	Area        int
}

// GetInfo returns basic information about a frame
func GetInfo(img image.Image) Info {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := Info{
		Width:  width,
		Height: height,
		Area:   width * height,
	}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// SameSize reports whether both frames have the same dimensions
func (i Info) SameSize(o Info) bool {
	return i.Width == o.Width && i.Height == o.Height
}

func (i Info) String() string {
	return fmt.Sprintf("%dx%d", i.Width, i.Height)
}

// Validate checks that img is a non-empty frame with a consistent pixel buffer.
// When want has non-zero dimensions, img must match them exactly.
// All failures wrap ErrMalformed.
func Validate(img *image.NRGBA, want Info) error {
	if img == nil {
		return fmt.Errorf("%w: nil frame", ErrMalformed)
	}
	info := GetInfo(img)
	if info.Area <= 0 {
		return fmt.Errorf("%w: empty frame %v", ErrMalformed, info)
	}
	if len(img.Pix) < img.PixOffset(img.Rect.Max.X-1, img.Rect.Max.Y-1)+4 {
		return fmt.Errorf("%w: pixel buffer too short for %v", ErrMalformed, info)
	}
	if want.Width > 0 && want.Height > 0 && !info.SameSize(want) {
		return fmt.Errorf("%w: size %v does not match stream size %v", ErrMalformed, info, want)
	}
	return nil
}
