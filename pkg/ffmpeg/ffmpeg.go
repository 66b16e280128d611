// Package ffmpeg reads and writes video through an ffmpeg subprocess that
// exchanges raw RGBA frames over pipes.
package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/menta2k/vehicle-counter/pkg/stream"
)

// ErrNotInstalled is returned when no ffmpeg binary is on the PATH
var ErrNotInstalled = errors.New("ffmpeg: binary not found in PATH")

// startupGrace is how long Create waits for the encoder to fail on open
var startupGrace = 500 * time.Millisecond

// Available reports whether ffmpeg can be run
func Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe returns the frame size of the first video stream in name
func Probe(name string) (int, int, error) {
	out, err := ffmpeg.Probe(name)
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe %s: %w", name, err)
	}
	var res probeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return 0, 0, fmt.Errorf("ffprobe %s: %w", name, err)
	}
	for _, s := range res.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			return s.Width, s.Height, nil
		}
	}
	return 0, 0, fmt.Errorf("ffprobe %s: no video stream", name)
}

// Source decodes a video into raw RGBA frames
type Source struct {
	name   string
	width  int
	height int
	pipe   *io.PipeReader
	cancel context.CancelFunc
	done   chan error
	err    error
	once   sync.Once
}

// Open starts decoding name
func Open(ctx context.Context, name string) (stream.Source, error) {
	if !Available() {
		return nil, ErrNotInstalled
	}
	w, h, err := Probe(name)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()
	s := &Source{name: name, width: w, height: h, pipe: pr, cancel: cancel, done: make(chan error, 1)}

	cmd := ffmpeg.Input(name).
		Output("pipe:", ffmpeg.KwArgs{"format": "rawvideo", "pix_fmt": "rgba"}).
		WithOutput(pw)
	cmd.Context = runCtx

	go func() {
		err := cmd.Run()
		pw.CloseWithError(err)
		s.done <- err
	}()
	return s, nil
}

// Size returns the frame size reported by ffprobe
func (s *Source) Size() (int, int) {
	return s.width, s.height
}

// Read returns the next decoded frame
func (s *Source) Read(ctx context.Context) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := image.NewNRGBA(image.Rect(0, 0, s.width, s.height))
	_, err := io.ReadFull(s.pipe, f.Pix)
	switch {
	case err == nil:
		return f, nil
	case errors.Is(err, io.EOF):
		return nil, stream.ErrEndOfStream
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%w: truncated frame in %s", stream.ErrMalformedFrame, s.name)
	default:
		return nil, fmt.Errorf("ffmpeg decode %s: %w", s.name, err)
	}
}

// Close stops the decoder. An error is returned only when ffmpeg had
// already exited on its own with a failure.
func (s *Source) Close() error {
	s.once.Do(func() {
		select {
		case err := <-s.done:
			if err != nil {
				s.err = fmt.Errorf("ffmpeg decode %s: %w", s.name, err)
			}
			s.pipe.Close()
			s.cancel()
		default:
			// killed by us, its exit status is meaningless
			s.cancel()
			s.pipe.Close()
			<-s.done
		}
	})
	return s.err
}

// Sink encodes raw RGBA frames into a video file
type Sink struct {
	name string
	opts stream.SinkOptions
	pipe *io.PipeWriter
	done chan error
	err  error
	once sync.Once
}

// Create starts an encoder writing to name
func Create(ctx context.Context, name string, opts stream.SinkOptions) (stream.Sink, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("ffmpeg encode %s: invalid frame size %dx%d", name, opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("ffmpeg encode %s: fps must be positive", name)
	}
	if err := checkWritable(name); err != nil {
		return nil, fmt.Errorf("ffmpeg encode %s: %w", name, err)
	}
	if !Available() {
		return nil, ErrNotInstalled
	}

	pr, pw := io.Pipe()
	cmd := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"framerate": opts.FPS,
	}).
		Output(name, CodecArgs(opts.Codec)).
		OverWriteOutput().
		WithInput(pr)

	s := &Sink{name: name, opts: opts, pipe: pw, done: make(chan error, 1)}
	go func() {
		err := cmd.Run()
		pr.CloseWithError(err)
		s.done <- err
	}()

	// the encoder never exits before its input is closed unless it failed
	// to open the output or the codec
	select {
	case err := <-s.done:
		pw.Close()
		if err == nil {
			err = errors.New("exited before any frame was written")
		}
		return nil, fmt.Errorf("ffmpeg encode %s: %w", name, err)
	case <-ctx.Done():
		pw.CloseWithError(ctx.Err())
		<-s.done
		return nil, ctx.Err()
	case <-time.After(startupGrace):
	}
	return s, nil
}

// checkWritable fails when name cannot be created, e.g. a missing directory
func checkWritable(name string) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Write sends one frame to the encoder
func (s *Sink) Write(frame *image.NRGBA) error {
	if err := stream.CheckSize(frame, s.opts); err != nil {
		return err
	}
	rowLen := s.opts.Width * 4
	for y := 0; y < s.opts.Height; y++ {
		off := frame.PixOffset(frame.Rect.Min.X, frame.Rect.Min.Y+y)
		if _, err := s.pipe.Write(frame.Pix[off : off+rowLen]); err != nil {
			return fmt.Errorf("ffmpeg encode %s: %w", s.name, err)
		}
	}
	return nil
}

// Close flushes the encoder and waits for ffmpeg to exit
func (s *Sink) Close() error {
	s.once.Do(func() {
		s.pipe.Close()
		if err := <-s.done; err != nil {
			s.err = fmt.Errorf("ffmpeg encode %s: %w", s.name, err)
		}
	})
	return s.err
}

// CodecArgs maps a fourcc code or ffmpeg encoder name to output arguments
func CodecArgs(codec string) ffmpeg.KwArgs {
	switch strings.ToUpper(codec) {
	case "", "XVID":
		return ffmpeg.KwArgs{"vcodec": "mpeg4", "vtag": "xvid", "pix_fmt": "yuv420p"}
	case "MP4V", "FMP4":
		return ffmpeg.KwArgs{"vcodec": "mpeg4", "pix_fmt": "yuv420p"}
	case "MJPG":
		return ffmpeg.KwArgs{"vcodec": "mjpeg", "pix_fmt": "yuvj420p"}
	case "H264", "AVC1", "X264":
		return ffmpeg.KwArgs{"vcodec": "libx264", "pix_fmt": "yuv420p"}
	}
	return ffmpeg.KwArgs{"vcodec": strings.ToLower(codec), "pix_fmt": "yuv420p"}
}

var (
	_ stream.Opener     = Open
	_ stream.SinkOpener = Create
)
