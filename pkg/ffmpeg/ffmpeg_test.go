package ffmpeg

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/vehicle-counter/pkg/stream"
)

func TestCodecArgs(t *testing.T) {
	require.Equal(t, "mpeg4", CodecArgs("XVID")["vcodec"])
	require.Equal(t, "xvid", CodecArgs("xvid")["vtag"])
	require.Equal(t, "mpeg4", CodecArgs("")["vcodec"])
	require.Equal(t, "mjpeg", CodecArgs("MJPG")["vcodec"])
	require.Equal(t, "libx264", CodecArgs("avc1")["vcodec"])
	require.Equal(t, "libvpx", CodecArgs("LIBVPX")["vcodec"])
}

func TestCreateRejectsBadOptions(t *testing.T) {
	name := filepath.Join(t.TempDir(), "out.avi")
	_, err := Create(context.Background(), name, stream.SinkOptions{Width: 0, Height: 4, FPS: 20})
	require.Error(t, err)
	_, err = Create(context.Background(), name, stream.SinkOptions{Width: 4, Height: 4, FPS: 0})
	require.Error(t, err)
}

func TestCreateMissingDirectory(t *testing.T) {
	name := filepath.Join(t.TempDir(), "missing", "out.avi")
	sink, err := Create(context.Background(), name, stream.SinkOptions{Width: 4, Height: 4, FPS: 20})
	require.Error(t, err)
	require.Nil(t, sink)
	require.NoFileExists(t, name)
}

func TestSourceCloseReportsDecoderFailure(t *testing.T) {
	pr, _ := io.Pipe()
	s := &Source{name: "clip.mp4", pipe: pr, cancel: func() {}, done: make(chan error, 1)}
	s.done <- errors.New("exit status 1")

	err := s.Close()
	require.ErrorContains(t, err, "exit status 1")
	require.Equal(t, err, s.Close())
}

func TestSourceCloseIgnoresKill(t *testing.T) {
	pr, _ := io.Pipe()
	done := make(chan error, 1)
	s := &Source{
		name:   "clip.mp4",
		pipe:   pr,
		cancel: func() { done <- errors.New("signal: killed") },
		done:   done,
	}
	require.NoError(t, s.Close())
}

func TestRoundTrip(t *testing.T) {
	if !Available() {
		t.Skip("ffmpeg not installed")
	}
	name := filepath.Join(t.TempDir(), "out.avi")
	opts := stream.SinkOptions{Width: 32, Height: 24, FPS: 20, Codec: "MJPG"}

	sink, err := Create(context.Background(), name, opts)
	require.NoError(t, err)

	frame := image.NewNRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			frame.SetNRGBA(x, y, color.NRGBA{200, 50, 50, 255})
		}
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, sink.Write(frame))
	}
	require.ErrorIs(t, sink.Write(image.NewNRGBA(image.Rect(0, 0, 2, 2))), stream.ErrFrameSize)
	require.NoError(t, sink.Close())

	w, h, err := Probe(name)
	require.NoError(t, err)
	require.Equal(t, 32, w)
	require.Equal(t, 24, h)

	src, err := Open(context.Background(), name)
	require.NoError(t, err)
	defer src.Close()

	n := 0
	for {
		f, err := src.Read(context.Background())
		if errors.Is(err, stream.ErrEndOfStream) {
			break
		}
		require.NoError(t, err)
		require.Equal(t, image.Rect(0, 0, 32, 24), f.Bounds())
		n++
	}
	require.Equal(t, 4, n)
}
