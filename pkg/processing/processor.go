// Package processing converts between frame buffers, image files and the
// encoded payloads sent to vision models.
package processing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned for data no registered decoder accepts
var ErrUnsupportedFormat = errors.New("image: unknown or unsupported format")

// Processor loads, saves and encodes frames
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// ToFrame converts any image to a frame buffer. The result never aliases img.
func ToFrame(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// LoadImage reads and decodes the image at path
func (p *Processor) LoadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := p.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// LoadFrame loads an image file as a frame buffer
func (p *Processor) LoadFrame(path string) (*image.NRGBA, error) {
	img, err := p.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return ToFrame(img), nil
}

// DecodeImage decodes data, honouring EXIF orientation. WebP files the
// x/image decoder rejects are retried with libwebp.
func (p *Processor) DecodeImage(data []byte) (image.Image, error) {
	if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, ErrUnsupportedFormat
}

// PrepareImageForModel downscales img to fit maxDim (0 keeps the size),
// encodes it as jpg or png and returns it base64 encoded
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	var err error
	if strings.EqualFold(format, "png") {
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	} else {
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	}
	if err != nil {
		return "", fmt.Errorf("encode model payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SaveImage writes img to path as png, webp or jpg. quality applies to jpg
// and lossy webp.
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		return saveWebP(img, path, quality, lossless)
	case "png":
		return imaging.Save(img, path, imaging.PNGCompressionLevel(png.DefaultCompression))
	default:
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

func saveWebP(img image.Image, path string, quality int, lossless bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return webp.Encode(f, img, &webp.Options{Lossless: lossless, Quality: float32(quality)})
}
