// Package vision implements a model-free detector that boxes regions which
// stand out from the rest of the frame.
package vision

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/menta2k/vehicle-counter/pkg/types"
)

// SaliencyDetector finds high-contrast blobs in a frame. It keeps no state
// between calls, so the same frame always yields the same boxes.
type SaliencyDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for saliency detection
type DetectionConfig struct {
	CellSize       int     // side of the square cells the frame is scored in
	Threshold      float64 // minimum mean cell saliency, 0..1
	EdgeWeight     float64
	ContrastWeight float64
	MinArea        int // boxes smaller than this many pixels are dropped
	MaxRegions     int // 0 = unlimited
}

// DefaultConfig returns the default detection configuration
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		CellSize:       8,
		Threshold:      0.25,
		EdgeWeight:     0.5,
		ContrastWeight: 1.0,
		MinArea:        64,
		MaxRegions:     32,
	}
}

// New creates a new SaliencyDetector with default configuration
func New() *SaliencyDetector {
	return &SaliencyDetector{config: DefaultConfig()}
}

// NewWithConfig creates a new SaliencyDetector with custom configuration
func NewWithConfig(config DetectionConfig) *SaliencyDetector {
	if config.CellSize <= 0 {
		config.CellSize = DefaultConfig().CellSize
	}
	return &SaliencyDetector{config: config}
}

// Config returns the detector configuration
func (d *SaliencyDetector) Config() DetectionConfig {
	return d.config
}

// Detect returns one box per connected group of salient cells, ordered top
// to bottom then left to right
func (d *SaliencyDetector) Detect(ctx context.Context, frame *image.NRGBA) ([]types.Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := frame.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, nil
	}

	saliencyMap := d.SaliencyMap(frame)
	cells := d.salientCells(saliencyMap, width, height)
	boxes := d.groupCells(cells, width, height)

	for i := range boxes {
		boxes[i].X += bounds.Min.X
		boxes[i].Y += bounds.Min.Y
	}
	return boxes, nil
}

// SaliencyMap scores every pixel by its local edge strength and its
// luminance distance from the frame mean. Values are in 0..1 for weights
// that sum to at most 1.
func (d *SaliencyDetector) SaliencyMap(frame *image.NRGBA) [][]float64 {
	bounds := frame.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	lum := make([][]float64, height)
	var total float64
	for y := 0; y < height; y++ {
		lum[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			i := frame.PixOffset(x+bounds.Min.X, y+bounds.Min.Y)
			p := frame.Pix[i : i+3 : i+3]
			l := (0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])) / 255.0
			lum[y][x] = l
			total += l
		}
	}
	mean := total / float64(width*height)

	saliencyMap := make([][]float64, height)
	for y := 0; y < height; y++ {
		saliencyMap[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var edge float64
			n := 0
			for _, off := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				nx, ny := x+off[0], y+off[1]
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				edge += math.Abs(lum[y][x] - lum[ny][nx])
				n++
			}
			if n > 0 {
				edge /= float64(n)
			}
			contrast := math.Abs(lum[y][x] - mean)
			saliencyMap[y][x] = d.config.EdgeWeight*edge + d.config.ContrastWeight*contrast
		}
	}
	return saliencyMap
}

// salientCells marks the cells whose mean saliency passes the threshold
func (d *SaliencyDetector) salientCells(saliencyMap [][]float64, width, height int) [][]bool {
	size := d.config.CellSize
	cols := (width + size - 1) / size
	rows := (height + size - 1) / size

	cells := make([][]bool, rows)
	for cy := 0; cy < rows; cy++ {
		cells[cy] = make([]bool, cols)
		for cx := 0; cx < cols; cx++ {
			cells[cy][cx] = d.calculateRegionScore(saliencyMap, cx*size, cy*size, size, size) >= d.config.Threshold
		}
	}
	return cells
}

func (d *SaliencyDetector) calculateRegionScore(saliencyMap [][]float64, x, y, width, height int) float64 {
	var totalScore float64
	count := 0

	for ry := y; ry < y+height && ry < len(saliencyMap); ry++ {
		for rx := x; rx < x+width && rx < len(saliencyMap[ry]); rx++ {
			totalScore += saliencyMap[ry][rx]
			count++
		}
	}

	if count == 0 {
		return 0
	}

	return totalScore / float64(count)
}

// groupCells flood-fills 4-connected salient cells into pixel boxes
func (d *SaliencyDetector) groupCells(cells [][]bool, width, height int) []types.Box {
	size := d.config.CellSize
	rows := len(cells)
	if rows == 0 {
		return nil
	}
	cols := len(cells[0])
	seen := make([][]bool, rows)
	for i := range seen {
		seen[i] = make([]bool, cols)
	}

	var boxes []types.Box
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			if !cells[cy][cx] || seen[cy][cx] {
				continue
			}
			minX, minY, maxX, maxY := cx, cy, cx, cy
			queue := [][2]int{{cx, cy}}
			seen[cy][cx] = true
			for len(queue) > 0 {
				c := queue[0]
				queue = queue[1:]
				minX, maxX = min(minX, c[0]), max(maxX, c[0])
				minY, maxY = min(minY, c[1]), max(maxY, c[1])
				for _, off := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
					nx, ny := c[0]+off[0], c[1]+off[1]
					if nx < 0 || ny < 0 || nx >= cols || ny >= rows || seen[ny][nx] || !cells[ny][nx] {
						continue
					}
					seen[ny][nx] = true
					queue = append(queue, [2]int{nx, ny})
				}
			}

			x0, y0 := minX*size, minY*size
			x1, y1 := min((maxX+1)*size, width), min((maxY+1)*size, height)
			box := types.Box{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
			if box.Area() < d.config.MinArea {
				continue
			}
			boxes = append(boxes, box)
		}
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		if boxes[i].Y != boxes[j].Y {
			return boxes[i].Y < boxes[j].Y
		}
		return boxes[i].X < boxes[j].X
	})
	if d.config.MaxRegions > 0 && len(boxes) > d.config.MaxRegions {
		boxes = boxes[:d.config.MaxRegions]
	}
	return boxes
}
