package types

import (
	"image"
	"image/color"
	"strings"
)

// Category is one of the fixed detection classes a run counts.
type Category string

const (
	Car        Category = "car"
	Bike       Category = "bike"
	Pedestrian Category = "pedestrian"
	Bus        Category = "bus"
)

// DefaultCategories returns the built-in categories in dispatch order
func DefaultCategories() []Category {
	return []Category{Car, Bike, Pedestrian, Bus}
}

// Title returns the category name for reports, e.g. "Car"
func (c Category) Title() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// Box is a bounding box in frame-local pixel coordinates
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// BoxFromRect converts an image.Rectangle to a Box
func BoxFromRect(r image.Rectangle) Box {
	r = r.Canon()
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Rect returns the box as an image.Rectangle
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Area returns the area of the box in pixels
func (b Box) Area() int {
	return b.W * b.H
}

// NormBox is a bounding box with coordinates normalized to the [0,1] range
type NormBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ToPixels converts the normalized box to pixel coordinates of a width x height frame
func (n NormBox) ToPixels(width, height int) Box {
	fw, fh := float64(width), float64(height)
	x0 := int(clamp(n.X, 0, 1)*fw + 0.5)
	y0 := int(clamp(n.Y, 0, 1)*fh + 0.5)
	x1 := int(clamp(n.X+n.W, 0, 1)*fw + 0.5)
	y1 := int(clamp(n.Y+n.H, 0, 1)*fh + 0.5)
	return Box{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Color is an overlay color with 8-bit channels
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// NRGBA returns the color as an opaque color.NRGBA
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// DefaultColor returns the overlay color used for a built-in category
func DefaultColor(c Category) Color {
	switch c {
	case Car:
		return Color{R: 255}
	case Bike:
		return Color{G: 255}
	case Pedestrian:
		return Color{B: 255}
	default:
		return Color{R: 255, G: 255, B: 255}
	}
}

// DetectedObject is a single object reported by a vision model
type DetectedObject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        NormBox `json:"box"`
}

// ObjectList contains the objects a vision model located in one image
type ObjectList struct {
	Objects []DetectedObject `json:"objects"`
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
