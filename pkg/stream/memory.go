package stream

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
)

// ErrClosed is returned when a closed stream is used
var ErrClosed = errors.New("stream closed")

// MemorySource replays a fixed list of frames. Frames are copied on Read so
// the list can be replayed or compared against afterwards.
type MemorySource struct {
	frames []*image.NRGBA
	errs   map[int]error
	next   int
	closed bool
}

// NewMemorySource creates a source over frames
func NewMemorySource(frames ...*image.NRGBA) *MemorySource {
	return &MemorySource{frames: frames, errs: map[int]error{}}
}

// FailAt makes the i-th Read (0-based) return err instead of a frame
func (s *MemorySource) FailAt(i int, err error) *MemorySource {
	s.errs[i] = err
	return s
}

// Read returns a copy of the next frame
func (s *MemorySource) Read(ctx context.Context) (*image.NRGBA, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := s.next
	s.next++
	if err, ok := s.errs[i]; ok {
		return nil, err
	}
	if i >= len(s.frames) {
		return nil, ErrEndOfStream
	}
	return cloneFrame(s.frames[i]), nil
}

// Reads returns how many times Read was called
func (s *MemorySource) Reads() int {
	return s.next
}

// Close marks the source closed
func (s *MemorySource) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called
func (s *MemorySource) Closed() bool {
	return s.closed
}

// MemorySink keeps copies of every frame written to it
type MemorySink struct {
	opts   SinkOptions
	mu     sync.Mutex
	frames []*image.NRGBA
	closed bool
}

// NewMemorySink creates an empty sink
func NewMemorySink(opts SinkOptions) *MemorySink {
	return &MemorySink{opts: opts}
}

// Write stores a copy of frame
func (s *MemorySink) Write(f *image.NRGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := CheckSize(f, s.opts); err != nil {
		return fmt.Errorf("memory sink: %w", err)
	}
	s.frames = append(s.frames, cloneFrame(f))
	return nil
}

// Close marks the sink closed
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Frames returns the frames written so far
func (s *MemorySink) Frames() []*image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*image.NRGBA, len(s.frames))
	copy(out, s.frames)
	return out
}

// Options returns the options the sink was opened with
func (s *MemorySink) Options() SinkOptions {
	return s.opts
}

// Closed reports whether Close was called
func (s *MemorySink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MemoryOpener returns an Opener that always yields src
func MemoryOpener(src Source) Opener {
	return func(ctx context.Context, name string) (Source, error) {
		return src, nil
	}
}

// MemorySinkOpener returns a SinkOpener that creates a MemorySink and
// reports it through created.
func MemorySinkOpener(created func(*MemorySink)) SinkOpener {
	return func(ctx context.Context, name string, opts SinkOptions) (Sink, error) {
		s := NewMemorySink(opts)
		if created != nil {
			created(s)
		}
		return s, nil
	}
}

func cloneFrame(f *image.NRGBA) *image.NRGBA {
	if f == nil {
		return nil
	}
	out := &image.NRGBA{
		Pix:    make([]byte, len(f.Pix)),
		Stride: f.Stride,
		Rect:   f.Rect,
	}
	copy(out.Pix, f.Pix)
	return out
}
