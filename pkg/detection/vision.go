package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/menta2k/vehicle-counter/pkg/client"
	"github.com/menta2k/vehicle-counter/pkg/processing"
	"github.com/menta2k/vehicle-counter/pkg/types"
)

// DefaultPrompt is the prompt used to ask a vision model for object boxes
const DefaultPrompt = `You are a road traffic object locator.

Return JSON only:
{
  "objects": [
    {"label": "string", "confidence": 0.0, "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}}
  ]
}

HARD RULES
- One entry per visible object. Labels: car, truck, van, bus, bicycle, motorcycle, person.
- All coordinates are normalized to [0,1] (NOT pixels). x,y is the top-left corner.
- Boxes must tightly include the object.
- If nothing is visible, return {"objects": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// VisionConfig configures a VisionDetector
type VisionConfig struct {
	Model         string
	Prompt        string
	Labels        []string // model labels counted by this detector
	MinConfidence float64
	SendFormat    string // jpg or png
	SendSize      int    // max long side sent to the model, 0 = original
	SendQuality   int
}

// DefaultVisionConfig returns defaults for a category
func DefaultVisionConfig(model string, category types.Category) VisionConfig {
	return VisionConfig{
		Model:         model,
		Prompt:        DefaultPrompt,
		Labels:        DefaultLabels(category),
		MinConfidence: 0.3,
		SendFormat:    "jpg",
		SendSize:      1024,
		SendQuality:   85,
	}
}

// DefaultLabels returns the model labels that count towards a category
func DefaultLabels(category types.Category) []string {
	switch category {
	case types.Car:
		return []string{"car", "truck", "van", "suv"}
	case types.Bike:
		return []string{"bike", "bicycle", "motorcycle", "motorbike"}
	case types.Pedestrian:
		return []string{"pedestrian", "person", "people"}
	case types.Bus:
		return []string{"bus"}
	}
	return []string{string(category)}
}

// VisionDetector locates objects by asking a vision-language model
type VisionDetector struct {
	client    client.VisionClient
	config    VisionConfig
	labels    map[string]struct{}
	processor *processing.Processor
}

// NewVisionDetector creates a detector backed by a vision model client
func NewVisionDetector(c client.VisionClient, cfg VisionConfig) (*VisionDetector, error) {
	if c == nil {
		return nil, errors.New("detection: vision client cannot be nil")
	}
	if cfg.Model == "" {
		return nil, errors.New("detection: vision model name is required")
	}
	if len(cfg.Labels) == 0 {
		return nil, errors.New("detection: at least one label is required")
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.SendQuality <= 0 {
		cfg.SendQuality = 85
	}
	labels := make(map[string]struct{}, len(cfg.Labels))
	for _, l := range cfg.Labels {
		labels[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	return &VisionDetector{
		client:    c,
		config:    cfg,
		labels:    labels,
		processor: processing.NewProcessor(),
	}, nil
}

// Detect sends the frame to the model and returns the boxes whose label is
// one of the configured labels
func (d *VisionDetector) Detect(ctx context.Context, frame *image.NRGBA) ([]types.Box, error) {
	imgB64, err := d.processor.PrepareImageForModel(frame, d.config.SendFormat, d.config.SendSize, d.config.SendQuality)
	if err != nil {
		return nil, fmt.Errorf("prepare frame for model: %w", err)
	}

	list, err := d.client.LocateObjects(ctx, d.config.Model, d.config.Prompt, imgB64)
	if err != nil {
		return nil, err
	}

	w, h := frame.Bounds().Dx(), frame.Bounds().Dy()
	var boxes []types.Box
	for _, obj := range list.Objects {
		if _, ok := d.labels[obj.Label]; !ok {
			continue
		}
		if obj.Confidence < d.config.MinConfidence {
			continue
		}
		b := obj.Box.ToPixels(w, h)
		b.X += frame.Bounds().Min.X
		b.Y += frame.Bounds().Min.Y
		boxes = append(boxes, b)
	}
	return boxes, nil
}
