// Package point turns pointer and touch positions on a rendered image into
// resolution-independent coordinates.
package point

import (
	"errors"
	"math"
)

// ErrBoxNotReady is returned when the image has no usable rendered size yet.
var ErrBoxNotReady = errors.New("image bounding box not ready")

// Box is the rendered bounding box of an image in viewport pixels.
type Box struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Ready reports whether the box can be used to locate and normalize a point.
func (b Box) Ready() bool {
	return finite(b.Left) && finite(b.Top) &&
		finite(b.Width) && finite(b.Height) &&
		b.Width > 0 && b.Height > 0
}

// Pixel is a position relative to the image's top-left corner, clamped to the box.
type Pixel struct {
	X float64
	Y float64
}

// Normalized is a position expressed as a fraction of image width and height.
type Normalized struct {
	X float64
	Y float64
}

// Locate converts a viewport position into an image-local pixel. Positions
// outside the box are clamped onto its edge.
func Locate(clientX, clientY float64, box Box) (Pixel, error) {
	if !box.Ready() || !finite(clientX) || !finite(clientY) {
		return Pixel{}, ErrBoxNotReady
	}
	return Pixel{
		X: clamp(clientX-box.Left, 0, box.Width),
		Y: clamp(clientY-box.Top, 0, box.Height),
	}, nil
}

// Normalize divides the pixel by the box size. The result is always in [0,1].
func (p Pixel) Normalize(box Box) (Normalized, error) {
	if !box.Ready() {
		return Normalized{}, ErrBoxNotReady
	}
	return Normalized{
		X: clamp(p.X/box.Width, 0, 1),
		Y: clamp(p.Y/box.Height, 0, 1),
	}, nil
}

// Normalize locates and normalizes a viewport position in one step.
func Normalize(clientX, clientY float64, box Box) (Normalized, error) {
	px, err := Locate(clientX, clientY, box)
	if err != nil {
		return Normalized{}, err
	}
	return px.Normalize(box)
}

// Selection is a located pixel together with the box it was measured against.
type Selection struct {
	Pixel Pixel
	Box   Box
}

// Normalized returns the selection as a fraction of its box.
func (s Selection) Normalized() (Normalized, error) {
	return s.Pixel.Normalize(s.Box)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
