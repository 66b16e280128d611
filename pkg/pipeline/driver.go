// Package pipeline drives frames from an input stream through the detector
// handles and into an output stream, counting what it finds.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/menta2k/vehicle-counter/pkg/annotate"
	"github.com/menta2k/vehicle-counter/pkg/counter"
	"github.com/menta2k/vehicle-counter/pkg/detection"
	"github.com/menta2k/vehicle-counter/pkg/frame"
	"github.com/menta2k/vehicle-counter/pkg/stream"
)

const (
	// DefaultFPS is the output frame rate
	DefaultFPS = 20.0
	// DefaultCodec is the output fourcc code
	DefaultCodec = "XVID"
)

// FrameStats describes one processed frame
type FrameStats struct {
	Index   int // 1-based
	Boxes   int
	Elapsed time.Duration
	Total   time.Duration
}

// Option configures a Driver
type Option func(*Driver)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock sets the clock used to time detection
func WithClock(c clock.Clock) Option {
	return func(d *Driver) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithOutputFPS sets the output frame rate
func WithOutputFPS(fps float64) Option {
	return func(d *Driver) {
		d.fps = fps
	}
}

// WithCodec sets the output codec
func WithCodec(codec string) Option {
	return func(d *Driver) {
		d.codec = codec
	}
}

// WithProcessProbeFrame makes the first frame, which sizes the output, count
// as frame 1 instead of being used only for sizing
func WithProcessProbeFrame(process bool) Option {
	return func(d *Driver) {
		d.processProbe = process
	}
}

// WithFrameHook registers fn to be called after every frame is written
func WithFrameHook(fn func(FrameStats)) Option {
	return func(d *Driver) {
		d.hook = fn
	}
}

// WithAnnotator sets the annotator used to draw boxes
func WithAnnotator(a *annotate.Annotator) Option {
	return func(d *Driver) {
		d.annotator = a
	}
}

// Driver reads frames, dispatches them to the detector handles and writes
// the annotated frames out. A Driver runs once.
type Driver struct {
	dispatcher   *Dispatcher
	open         stream.Opener
	create       stream.SinkOpener
	logger       *zap.Logger
	clock        clock.Clock
	annotator    *annotate.Annotator
	fps          float64
	codec        string
	processProbe bool
	hook         func(FrameStats)

	started atomic.Bool
	state   atomic.Int32
}

// New creates a driver for handles reading through open and writing through create
func New(handles []*detection.Handle, open stream.Opener, create stream.SinkOpener, opts ...Option) (*Driver, error) {
	dispatcher, err := NewDispatcher(handles)
	if err != nil {
		return nil, err
	}
	if open == nil || create == nil {
		return nil, errors.New("pipeline: stream openers are required")
	}
	d := &Driver{
		dispatcher: dispatcher,
		open:       open,
		create:     create,
		logger:     zap.NewNop(),
		clock:      clock.New(),
		fps:        DefaultFPS,
		codec:      DefaultCodec,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.fps <= 0 {
		return nil, fmt.Errorf("pipeline: output fps must be positive, got %v", d.fps)
	}
	if d.annotator != nil {
		d.dispatcher = d.dispatcher.WithAnnotator(d.annotator)
	}
	return d, nil
}

// State returns the current lifecycle state
func (d *Driver) State() State {
	return State(d.state.Load())
}

// Run processes source into destination and returns the run summary.
//
// End of stream and malformed frames end the run normally. Any other failure
// is returned together with the summary of the frames completed before it,
// or a nil summary if none completed. Both streams are always closed.
func (d *Driver) Run(ctx context.Context, source, destination string) (summary *Summary, err error) {
	if !d.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}
	defer d.state.Store(int32(StateDone))

	logger := d.logger.With(zap.String("source", source), zap.String("destination", destination))

	counts, err := counter.New(d.dispatcher.Categories()...)
	if err != nil {
		return nil, err
	}

	src, err := d.open(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: input %s: %v", ErrStreamOpen, source, err)
	}
	defer func() {
		err = multierr.Append(err, closeStream("input", src.Close()))
	}()

	probe, err := src.Read(ctx)
	if err == nil {
		err = frame.Validate(probe, frame.Info{})
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrEmptyStream, source, err)
	}
	info := frame.GetInfo(probe)

	sink, err := d.create(ctx, destination, stream.SinkOptions{
		Width:  info.Width,
		Height: info.Height,
		FPS:    d.fps,
		Codec:  d.codec,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: output %s: %v", ErrStreamOpen, destination, err)
	}
	defer func() {
		err = multierr.Append(err, closeStream("output", sink.Close()))
	}()

	d.state.Store(int32(StateRunning))
	logger.Info("pipeline running",
		zap.Stringer("size", info),
		zap.Float64("fps", d.fps),
		zap.String("codec", d.codec),
		zap.Strings("categories", categoryNames(counts)))

	var (
		frames  int
		total   time.Duration
		pending *image.NRGBA
		watch   = NewStopwatch(d.clock)
	)
	if d.processProbe {
		pending = probe
	}
	partial := func() *Summary {
		if frames == 0 {
			return nil
		}
		return newSummary(frames, counts, total)
	}

	for {
		if err := ctx.Err(); err != nil {
			return partial(), err
		}

		f := pending
		pending = nil
		if f == nil {
			f, err = src.Read(ctx)
			if err == nil {
				err = frame.Validate(f, info)
			}
			switch {
			case err == nil:
			case errors.Is(err, stream.ErrEndOfStream):
				logger.Info("end of stream", zap.Int("frames", frames))
				return newSummary(frames, counts, total), nil
			case errors.Is(err, stream.ErrMalformedFrame):
				logger.Warn("malformed frame, stopping", zap.Int("frames", frames), zap.Error(err))
				return newSummary(frames, counts, total), nil
			case ctx.Err() != nil:
				return partial(), ctx.Err()
			default:
				return partial(), fmt.Errorf("read frame %d: %w", frames+1, err)
			}
		}

		var boxes int
		elapsed, perr := watch.Time(func() error {
			var derr error
			boxes, derr = d.dispatcher.Process(ctx, f, counts)
			return derr
		})
		if perr != nil {
			var de *DetectionError
			if errors.As(perr, &de) {
				de.Frame = frames + 1
			}
			logger.Error("frame failed", zap.Int("frame", frames+1), zap.Error(perr))
			return partial(), perr
		}
		frames++
		total += elapsed

		logger.Debug("frame processed",
			zap.Int("frame", frames),
			zap.Int("boxes", boxes),
			zap.Duration("inference", elapsed))

		if err := sink.Write(f); err != nil {
			return partial(), fmt.Errorf("write frame %d: %w", frames, err)
		}
		if d.hook != nil {
			d.hook(FrameStats{Index: frames, Boxes: boxes, Elapsed: elapsed, Total: total})
		}
	}
}

func closeStream(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("close %s stream: %w", name, err)
}

func categoryNames(c *counter.Counter) []string {
	cats := c.Categories()
	out := make([]string, len(cats))
	for i, cat := range cats {
		out[i] = string(cat)
	}
	return out
}
