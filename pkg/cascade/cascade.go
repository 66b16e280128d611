// Package cascade detects objects with OpenCV Haar/LBP cascade classifiers.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/menta2k/vehicle-counter/pkg/types"
)

// Config holds cascade detection parameters
type Config struct {
	ModelPath    string
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int // smallest object side in pixels, 0 = no limit
}

// DefaultConfig returns the parameters the counter has always used
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:    modelPath,
		ScaleFactor:  1.1,
		MinNeighbors: 1,
	}
}

// Detector runs a trained cascade over grayscale frames
type Detector struct {
	classifier gocv.CascadeClassifier
	config     Config
	mu         sync.Mutex // Protects inference
}

// New loads a cascade model from disk
func New(cfg Config) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("cascade model not found: %s: %w", cfg.ModelPath, err)
	}
	if cfg.ScaleFactor <= 1 {
		return nil, fmt.Errorf("cascade scale factor must be greater than 1, got %v", cfg.ScaleFactor)
	}
	if cfg.MinNeighbors < 0 {
		return nil, errors.New("cascade min neighbors cannot be negative")
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.ModelPath) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade model: %s", cfg.ModelPath)
	}

	return &Detector{classifier: classifier, config: cfg}, nil
}

// Detect converts the frame to grayscale and returns one box per match
func (d *Detector) Detect(ctx context.Context, frame *image.NRGBA) ([]types.Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer img.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	minSize := image.Pt(d.config.MinSize, d.config.MinSize)

	d.mu.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(gray, d.config.ScaleFactor, d.config.MinNeighbors, 0, minSize, image.Point{})
	d.mu.Unlock()

	boxes := make([]types.Box, 0, len(rects))
	offset := frame.Bounds().Min
	for _, r := range rects {
		boxes = append(boxes, types.BoxFromRect(r.Add(offset)))
	}
	return boxes, nil
}

// Config returns the detection parameters
func (d *Detector) Config() Config {
	return d.config
}

// Close releases the classifier
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}
