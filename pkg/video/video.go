// Package video reads and writes video containers and capture devices through
// OpenCV.
package video

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/menta2k/vehicle-counter/pkg/processing"
	"github.com/menta2k/vehicle-counter/pkg/stream"
)

// Capture is a stream.Source over an OpenCV VideoCapture
type Capture struct {
	name    string
	capture *gocv.VideoCapture
	img     gocv.Mat
	mu      sync.Mutex
}

// Open opens a video file, URL or device ID ("0") as a frame source
func Open(ctx context.Context, name string) (stream.Source, error) {
	capture, err := gocv.OpenVideoCapture(name)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", name, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("open video %s: capture not opened", name)
	}
	return &Capture{name: name, capture: capture, img: gocv.NewMat()}, nil
}

// Read decodes the next frame
func (c *Capture) Read(ctx context.Context) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if ok := c.capture.Read(&c.img); !ok {
		return nil, stream.ErrEndOfStream
	}
	if c.img.Empty() {
		return nil, fmt.Errorf("%w: empty frame captured from %s", stream.ErrMalformedFrame, c.name)
	}

	img, err := c.img.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stream.ErrMalformedFrame, err)
	}
	return processing.ToFrame(img), nil
}

// FPS returns the frame rate reported by the container, or 0 if unknown
func (c *Capture) FPS() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture.Get(gocv.VideoCaptureFPS)
}

// Close releases the capture
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.img.Close()
	return c.capture.Close()
}

// Writer is a stream.Sink over an OpenCV VideoWriter
type Writer struct {
	opts   stream.SinkOptions
	writer *gocv.VideoWriter
	mu     sync.Mutex
}

// Create opens name for writing with the codec, frame rate and frame size in opts
func Create(ctx context.Context, name string, opts stream.SinkOptions) (stream.Sink, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("create video %s: invalid frame size %dx%d", name, opts.Width, opts.Height)
	}
	if len(opts.Codec) != 4 {
		return nil, fmt.Errorf("create video %s: codec must be a fourcc code, got %q", name, opts.Codec)
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("create video %s: fps must be positive", name)
	}

	writer, err := gocv.VideoWriterFile(name, opts.Codec, opts.FPS, opts.Width, opts.Height, true)
	if err != nil {
		return nil, fmt.Errorf("create video %s: %w", name, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("create video %s: writer not opened", name)
	}
	return &Writer{opts: opts, writer: writer}, nil
}

// Write encodes one frame
func (w *Writer) Write(frame *image.NRGBA) error {
	if err := stream.CheckSize(frame, w.opts); err != nil {
		return err
	}
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writer.Write(mat)
}

// Close finalizes the container
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writer.Close()
}

var (
	_ stream.Opener     = Open
	_ stream.SinkOpener = Create
)
