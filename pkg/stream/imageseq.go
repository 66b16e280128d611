package stream

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/menta2k/vehicle-counter/internal/utils"
	"github.com/menta2k/vehicle-counter/pkg/processing"
)

const imageSequenceQuality = 90

// ImageSequenceSource reads the still images of a directory, in name order,
// as a stream of frames.
type ImageSequenceSource struct {
	dir       string
	files     []string
	next      int
	processor *processing.Processor
}

// OpenImageSequence opens dir as a frame source. It fails if dir cannot be listed.
func OpenImageSequence(ctx context.Context, dir string) (Source, error) {
	if !utils.DirExists(dir) {
		return nil, fmt.Errorf("image sequence: %s is not a directory", dir)
	}
	files, err := utils.ListImageFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("image sequence: %w", err)
	}
	return &ImageSequenceSource{dir: dir, files: files, processor: processing.NewProcessor()}, nil
}

// Read decodes the next image. Undecodable files yield ErrMalformedFrame.
func (s *ImageSequenceSource) Read(ctx context.Context) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.files) {
		return nil, ErrEndOfStream
	}
	path := s.files[s.next]
	s.next++
	f, err := s.processor.LoadFrame(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, path, err)
	}
	return f, nil
}

// Len returns the number of images in the sequence
func (s *ImageSequenceSource) Len() int {
	return len(s.files)
}

// Close is a no-op; files are opened and closed per frame
func (s *ImageSequenceSource) Close() error {
	return nil
}

// ImageSequenceSink writes every frame as a numbered image file. The codec
// selects the image format: png, jpg or webp.
type ImageSequenceSink struct {
	dir       string
	format    string
	opts      SinkOptions
	n         int
	processor *processing.Processor
}

// CreateImageSequence creates dir if needed and returns a sink writing into it
func CreateImageSequence(ctx context.Context, dir string, opts SinkOptions) (Sink, error) {
	format, err := imageFormat(opts.Codec)
	if err != nil {
		return nil, err
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("image sequence: invalid frame size %dx%d", opts.Width, opts.Height)
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("image sequence: %w", err)
	}
	return &ImageSequenceSink{dir: dir, format: format, opts: opts, processor: processing.NewProcessor()}, nil
}

// Write saves f as the next numbered file
func (s *ImageSequenceSink) Write(f *image.NRGBA) error {
	if err := CheckSize(f, s.opts); err != nil {
		return fmt.Errorf("image sequence: %w", err)
	}
	s.n++
	path := utils.FrameFilename(s.dir, s.n, s.format)
	lossless := s.format == "webp"
	if err := s.processor.SaveImage(f, path, s.format, imageSequenceQuality, lossless); err != nil {
		return fmt.Errorf("image sequence: save %s: %w", path, err)
	}
	return nil
}

// Written returns the number of frames written
func (s *ImageSequenceSink) Written() int {
	return s.n
}

// Close is a no-op; every frame is flushed by Write
func (s *ImageSequenceSink) Close() error {
	return nil
}

func imageFormat(codec string) (string, error) {
	switch strings.ToLower(codec) {
	case "", "png":
		return "png", nil
	case "jpg", "jpeg":
		return "jpg", nil
	case "webp":
		return "webp", nil
	}
	return "", fmt.Errorf("image sequence: unsupported codec %q (use png, jpg or webp)", codec)
}
