// Package annotate draws detection overlays onto frames in place.
package annotate

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/vehicle-counter/pkg/types"
)

// DefaultThickness is the rectangle outline width in pixels
const DefaultThickness = 2

// Annotator draws rectangle outlines, and optionally category labels, for
// detected boxes.
type Annotator struct {
	Thickness int
	Labels    bool
	face      font.Face
}

// New creates an Annotator with the default thickness and no labels
func New() *Annotator {
	return &Annotator{Thickness: DefaultThickness}
}

// NewWithLabels creates an Annotator that also writes the category name
// above every box.
func NewWithLabels(thickness int) *Annotator {
	return &Annotator{Thickness: thickness, Labels: true, face: basicfont.Face7x13}
}

// Annotate draws boxes onto frame using the default Annotator
func Annotate(frame *image.NRGBA, boxes []types.Box, c types.Color) *image.NRGBA {
	return New().Draw(frame, boxes, c, "")
}

// Draw outlines every box on frame, in slice order, and returns frame.
// label is only rendered when a.Labels is set. With no boxes the frame is
// left untouched.
func (a *Annotator) Draw(frame *image.NRGBA, boxes []types.Box, c types.Color, label string) *image.NRGBA {
	if frame == nil || len(boxes) == 0 {
		return frame
	}
	stroke := a.Thickness
	if stroke < 1 {
		stroke = DefaultThickness
	}
	col := c.NRGBA()
	for _, b := range boxes {
		drawRect(frame, b, col, stroke)
		if a.Labels && label != "" {
			a.drawLabel(frame, b, col, label, stroke)
		}
	}
	return frame
}

func (a *Annotator) drawLabel(frame *image.NRGBA, b types.Box, c color.NRGBA, label string, stroke int) {
	face := a.face
	if face == nil {
		face = basicfont.Face7x13
	}
	ascent := face.Metrics().Ascent.Ceil()
	y := b.Y - 3
	if y-ascent < 0 {
		// no room above the box
		y = b.Y + ascent + stroke
	}
	d := font.Drawer{
		Dst:  frame,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(b.X, y),
	}
	d.DrawString(label)
}

// drawRect outlines the rectangle from (x,y) to (x+w,y+h) inclusive. Strokes
// grow inward and are clipped to the frame.
func drawRect(img *image.NRGBA, b types.Box, c color.NRGBA, stroke int) {
	x0, y0 := b.X, b.Y
	x1, y1 := b.X+b.W, b.Y+b.H
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1+1, c)
		drawHLine(img, y1-s, x0, x1+1, c)
		drawVLine(img, x0+s, y0, y1+1, c)
		drawVLine(img, x1-s, y0, y1+1, c)
	}
}

// drawHLine fills [x0,x1) on row y
func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	r := img.Bounds()
	if y < r.Min.Y || y >= r.Max.Y {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x0 < r.Min.X {
		x0 = r.Min.X
	}
	if x1 > r.Max.X {
		x1 = r.Max.X
	}
	if x0 >= x1 {
		return
	}
	i := img.PixOffset(x0, y)
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

// drawVLine fills [y0,y1) on column x
func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	r := img.Bounds()
	if x < r.Min.X || x >= r.Max.X {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y0 < r.Min.Y {
		y0 = r.Min.Y
	}
	if y1 > r.Max.Y {
		y1 = r.Max.Y
	}
	if y0 >= y1 {
		return
	}
	i := img.PixOffset(x, y0)
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
