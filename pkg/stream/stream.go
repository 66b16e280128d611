// Package stream defines the frame source and sink contracts used by the
// pipeline, along with in-memory and image-sequence implementations.
//
// Video container backends live in separate packages (pkg/video for OpenCV,
// pkg/ffmpeg for ffmpeg) so that programs which do not need them avoid the
// native dependencies.
package stream

import (
	"context"
	"errors"
	"image"

	"github.com/menta2k/vehicle-counter/pkg/frame"
)

var (
	// ErrEndOfStream is returned by Source.Read when no frames remain
	ErrEndOfStream = errors.New("end of stream")

	// ErrMalformedFrame is returned by Source.Read when the next frame
	// exists but cannot be decoded into a usable frame.
	ErrMalformedFrame = frame.ErrMalformed
)

// Source produces decoded frames in stream order
type Source interface {
	// Read returns the next frame. The caller owns the returned frame.
	// At the end of the stream it returns ErrEndOfStream.
	Read(ctx context.Context) (*image.NRGBA, error)
	Close() error
}

// Sink consumes frames in stream order
type Sink interface {
	// Write encodes frame. The sink must not retain frame after returning.
	Write(frame *image.NRGBA) error
	Close() error
}

// SinkOptions describes the output stream. Width and Height are fixed for the
// whole stream.
type SinkOptions struct {
	Width  int
	Height int
	FPS    float64
	Codec  string
}

// Opener opens a Source by name (a file path, directory or device)
type Opener func(ctx context.Context, name string) (Source, error)

// SinkOpener opens a Sink by name
type SinkOpener func(ctx context.Context, name string, opts SinkOptions) (Sink, error)

// CheckSize returns ErrFrameSize when f does not have the dimensions in opts
func CheckSize(f *image.NRGBA, opts SinkOptions) error {
	if f == nil {
		return ErrFrameSize
	}
	b := f.Bounds()
	if b.Dx() != opts.Width || b.Dy() != opts.Height {
		return ErrFrameSize
	}
	return nil
}

// ErrFrameSize is returned by sinks for frames that do not match the stream size
var ErrFrameSize = errors.New("frame size does not match output stream")
