package processing

import (
	"encoding/base64"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 100, 255})
		}
	}
	return img
}

func TestToFrameCopies(t *testing.T) {
	src := testImage(16, 8)
	f := ToFrame(src)
	require.Equal(t, image.Rect(0, 0, 16, 8), f.Bounds())
	require.Equal(t, color.NRGBA{3, 2, 100, 255}, f.NRGBAAt(3, 2))

	f.SetNRGBA(3, 2, color.NRGBA{})
	require.Equal(t, color.RGBA{3, 2, 100, 255}, src.RGBAAt(3, 2))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	src := ToFrame(testImage(32, 24))

	for _, format := range []string{"png", "webp"} {
		path := filepath.Join(dir, "frame."+format)
		require.NoError(t, p.SaveImage(src, path, format, 90, true))

		loaded, err := p.LoadFrame(path)
		require.NoError(t, err, format)
		require.Equal(t, src.Bounds(), loaded.Bounds(), format)
		require.Equal(t, src.NRGBAAt(5, 7), loaded.NRGBAAt(5, 7), format)
	}

	jpgPath := filepath.Join(dir, "frame.jpg")
	require.NoError(t, p.SaveImage(src, jpgPath, "jpg", 90, false))
	loaded, err := p.LoadFrame(jpgPath)
	require.NoError(t, err)
	require.Equal(t, src.Bounds(), loaded.Bounds())
}

func TestLoadImageRejectsGarbage(t *testing.T) {
	p := NewProcessor()
	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := p.LoadImage(path)
	require.Error(t, err)

	_, err = p.LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()
	b64, err := p.PrepareImageForModel(testImage(200, 100), "jpg", 50, 80)
	require.NoError(t, err)

	data, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	img, err := p.DecodeImage(data)
	require.NoError(t, err)
	require.Equal(t, 50, img.Bounds().Dx())
	require.Equal(t, 25, img.Bounds().Dy())
}

func TestDecodeImageUnsupported(t *testing.T) {
	_, err := NewProcessor().DecodeImage([]byte("GIF? no"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPrepareImageForModelKeepsSmallImages(t *testing.T) {
	p := NewProcessor()
	b64, err := p.PrepareImageForModel(testImage(40, 30), "png", 1024, 0)
	require.NoError(t, err)

	data, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	img, err := p.DecodeImage(data)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
}
