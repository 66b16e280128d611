package vision

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/menta2k/vehicle-counter/pkg/types"
)

// createTestFrame creates a black frame with white squares at the given corners
func createTestFrame(width, height, side int, corners ...image.Point) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 255})
		}
	}
	for _, c := range corners {
		for y := c.Y; y < c.Y+side; y++ {
			for x := c.X; x < c.X+side; x++ {
				img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

func TestNew(t *testing.T) {
	detector := New()
	if detector == nil {
		t.Fatal("New() returned nil")
	}

	if detector.Config().CellSize != 8 {
		t.Errorf("Expected cell size 8, got %d", detector.Config().CellSize)
	}
}

func TestNewWithConfig(t *testing.T) {
	cfg := DetectionConfig{Threshold: 0.5}

	detector := NewWithConfig(cfg)
	if detector.Config().Threshold != 0.5 {
		t.Errorf("Expected threshold 0.5, got %f", detector.Config().Threshold)
	}
	if detector.Config().CellSize != 8 {
		t.Errorf("Expected zero cell size to fall back to 8, got %d", detector.Config().CellSize)
	}
}

func TestDetectSingleBlob(t *testing.T) {
	frame := createTestFrame(64, 64, 16, image.Pt(16, 16))

	boxes, err := New().Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	want := []types.Box{{X: 16, Y: 16, W: 16, H: 16}}
	if !reflect.DeepEqual(boxes, want) {
		t.Errorf("Expected %v, got %v", want, boxes)
	}
}

func TestDetectOrdersBoxes(t *testing.T) {
	frame := createTestFrame(64, 64, 16, image.Pt(40, 40), image.Pt(16, 16))

	boxes, err := New().Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	want := []types.Box{
		{X: 16, Y: 16, W: 16, H: 16},
		{X: 40, Y: 40, W: 16, H: 16},
	}
	if !reflect.DeepEqual(boxes, want) {
		t.Errorf("Expected %v, got %v", want, boxes)
	}
}

func TestDetectUniformFrame(t *testing.T) {
	frame := createTestFrame(32, 32, 0)

	boxes, err := New().Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(boxes) != 0 {
		t.Errorf("Expected no boxes on a uniform frame, got %v", boxes)
	}
}

func TestDetectIsDeterministicAndReadOnly(t *testing.T) {
	frame := createTestFrame(64, 48, 16, image.Pt(8, 8))
	before := bytes.Clone(frame.Pix)
	detector := New()

	first, err := detector.Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	second, err := detector.Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical results, got %v and %v", first, second)
	}
	if !bytes.Equal(before, frame.Pix) {
		t.Error("Detect modified the frame")
	}
}

func TestDetectMaxRegions(t *testing.T) {
	frame := createTestFrame(64, 64, 8, image.Pt(8, 8), image.Pt(40, 8), image.Pt(8, 40))
	cfg := DefaultConfig()
	cfg.MaxRegions = 2

	boxes, err := NewWithConfig(cfg).Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(boxes) != 2 {
		t.Errorf("Expected 2 boxes, got %d", len(boxes))
	}
}

func TestDetectCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New().Detect(ctx, createTestFrame(8, 8, 0)); err == nil {
		t.Error("Expected error for canceled context")
	}
}

func TestCalculateRegionScore(t *testing.T) {
	d := New()
	saliencyMap := [][]float64{
		{1, 1, 0},
		{1, 1, 0},
	}

	if got := d.calculateRegionScore(saliencyMap, 0, 0, 2, 2); got != 1 {
		t.Errorf("Expected score 1, got %f", got)
	}
	if got := d.calculateRegionScore(saliencyMap, 2, 0, 4, 4); got != 0 {
		t.Errorf("Expected score 0, got %f", got)
	}
	if got := d.calculateRegionScore(saliencyMap, 5, 5, 1, 1); got != 0 {
		t.Errorf("Expected score 0 outside the map, got %f", got)
	}
}
