// Package vehiclecounter counts vehicles and pedestrians in video.
//
// Frames are read from an input stream, every configured detector runs over
// each frame in a fixed order, the boxes it finds are drawn onto the frame
// and counted per category, and the annotated frame is written to the output
// stream. The run ends at the end of the input or at the first malformed
// frame and yields a pipeline.Summary.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		vehiclecounter "github.com/menta2k/vehicle-counter"
//		"github.com/menta2k/vehicle-counter/pkg/detection"
//		"github.com/menta2k/vehicle-counter/pkg/types"
//		"github.com/menta2k/vehicle-counter/pkg/vision"
//	)
//
//	func main() {
//		cars, err := detection.NewHandle(types.Car, types.DefaultColor(types.Car), vision.New())
//		if err != nil {
//			log.Fatal(err)
//		}
//		vc, err := vehiclecounter.New([]*detection.Handle{cars})
//		if err != nil {
//			log.Fatal(err)
//		}
//		// reads frames/ and writes annotated/ as numbered images
//		summary, err := vc.Process(context.Background(), "frames", "annotated")
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println(summary.Frames, summary.Count(types.Car))
//	}
//
// The library is made of these components:
//
// 1. Detection (pkg/detection): detector handles and the vision-model detector
// 2. Vision (pkg/vision): a model-free saliency detector
// 3. Pipeline (pkg/pipeline): the dispatcher, the driver and the run summary
// 4. Streams (pkg/stream): frame sources and sinks
//
// OpenCV (pkg/video, pkg/cascade) and ffmpeg (pkg/ffmpeg) backends are kept
// in their own packages and are wired in with WithStreams.
package vehiclecounter

import (
	"context"
	"errors"
	"image"

	"github.com/menta2k/vehicle-counter/pkg/detection"
	"github.com/menta2k/vehicle-counter/pkg/frame"
	"github.com/menta2k/vehicle-counter/pkg/pipeline"
	"github.com/menta2k/vehicle-counter/pkg/stream"
)

// Version of the vehicle counter library
const Version = "1.0.0"

// VehicleCounter provides a high-level interface over the frame pipeline
type VehicleCounter struct {
	handles []*detection.Handle
	open    stream.Opener
	create  stream.SinkOpener
	options []pipeline.Option
}

// Option configures a VehicleCounter
type Option func(*VehicleCounter)

// WithStreams sets how inputs and outputs are opened. The default reads and
// writes directories of numbered images.
func WithStreams(open stream.Opener, create stream.SinkOpener) Option {
	return func(vc *VehicleCounter) {
		vc.open = open
		vc.create = create
	}
}

// WithPipelineOptions passes options to every driver the counter creates
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(vc *VehicleCounter) {
		vc.options = append(vc.options, opts...)
	}
}

// New creates a VehicleCounter running handles in order
func New(handles []*detection.Handle, opts ...Option) (*VehicleCounter, error) {
	if len(handles) == 0 {
		return nil, errors.New("at least one detector handle is required")
	}
	vc := &VehicleCounter{
		handles: append([]*detection.Handle(nil), handles...),
	}
	for _, opt := range opts {
		opt(vc)
	}
	if vc.open == nil && vc.create == nil {
		vc.open = stream.OpenImageSequence
		vc.create = stream.CreateImageSequence
		// image sequences are written as png unless a codec option overrides it
		vc.options = append([]pipeline.Option{pipeline.WithCodec("png")}, vc.options...)
	}
	// fail early on duplicate categories and missing openers
	if _, err := vc.driver(vc.open, vc.create); err != nil {
		return nil, err
	}
	return vc, nil
}

func (vc *VehicleCounter) driver(open stream.Opener, create stream.SinkOpener, extra ...pipeline.Option) (*pipeline.Driver, error) {
	opts := append(append([]pipeline.Option(nil), vc.options...), extra...)
	return pipeline.New(vc.handles, open, create, opts...)
}

// Process runs the pipeline from source to destination
func (vc *VehicleCounter) Process(ctx context.Context, source, destination string) (*pipeline.Summary, error) {
	d, err := vc.driver(vc.open, vc.create)
	if err != nil {
		return nil, err
	}
	return d.Run(ctx, source, destination)
}

// ProcessFrames runs the pipeline over in-memory frames and returns the
// summary and the annotated output frames. The input frames are not modified.
func (vc *VehicleCounter) ProcessFrames(ctx context.Context, frames []*image.NRGBA, opts ...pipeline.Option) (*pipeline.Summary, []*image.NRGBA, error) {
	var sink *stream.MemorySink
	d, err := vc.driver(
		stream.MemoryOpener(stream.NewMemorySource(frames...)),
		stream.MemorySinkOpener(func(s *stream.MemorySink) { sink = s }),
		opts...,
	)
	if err != nil {
		return nil, nil, err
	}
	summary, err := d.Run(ctx, "memory", "memory")
	var out []*image.NRGBA
	if sink != nil {
		out = sink.Frames()
	}
	return summary, out, err
}

// Handles returns the detector handles in dispatch order
func (vc *VehicleCounter) Handles() []*detection.Handle {
	return append([]*detection.Handle(nil), vc.handles...)
}

// GetFrameInfo returns basic information about a frame
func GetFrameInfo(img image.Image) frame.Info {
	return frame.GetInfo(img)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
