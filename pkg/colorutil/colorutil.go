// Package colorutil provides the pixel color types shared by the training and
// classification stages.
package colorutil

import (
	"image/color"
	"math"
)

// Overlay colors used when rendering masks and painted regions.
var (
	Black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
)

// Triplet is a single 3-channel pixel sample. Channel order follows the
// source that produced it (BGR for cameras, RGB for image files).
type Triplet [3]uint8

// Vec returns the triplet as a floating point vector.
func (t Triplet) Vec() Vec3 {
	return Vec3{float64(t[0]), float64(t[1]), float64(t[2])}
}

// Vec3 is a 3-component floating point color vector.
type Vec3 [3]float64

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Slice returns the vector as a freshly allocated slice.
func (v Vec3) Slice() []float64 {
	return []float64{v[0], v[1], v[2]}
}

// Space names the channel layout frames are converted into before sampling.
type Space string

const (
	SpaceNative Space = "native" // whatever the source delivers
	SpaceRGB    Space = "rgb"
	SpaceHSV    Space = "hsv"
)

// Valid reports whether s is a known color space.
func (s Space) Valid() bool {
	switch s {
	case SpaceNative, SpaceRGB, SpaceHSV:
		return true
	}
	return false
}

// RGBToHSV converts RGB (0-255) to HSV (OpenCV convention: H 0-180, S 0-255, V 0-255).
func RGBToHSV(r, g, b float64) (h, s, v float64) {
	r /= 255.0
	g /= 255.0
	b /= 255.0

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := maxC - minC

	v = maxC * 255.0

	if maxC == 0 {
		s = 0
	} else {
		s = (diff / maxC) * 255.0
	}

	if diff == 0 {
		h = 0
	} else if maxC == r {
		h = 60 * math.Mod((g-b)/diff, 6)
	} else if maxC == g {
		h = 60 * ((b-r)/diff + 2)
	} else {
		h = 60 * ((r-g)/diff + 4)
	}

	if h < 0 {
		h += 360
	}

	h = h / 2 // OpenCV's 0-180 range

	return h, s, v
}

// HSVTriplet converts an RGB triplet into an HSV triplet, rounding to bytes.
func HSVTriplet(rgb Triplet) Triplet {
	h, s, v := RGBToHSV(float64(rgb[0]), float64(rgb[1]), float64(rgb[2]))
	return Triplet{clampByte(h), clampByte(s), clampByte(v)}
}

func clampByte(f float64) uint8 {
	f = math.Round(f)
	if f < 0 {
		return 0
	}
	if f > 255 {
		return 255
	}
	return uint8(f)
}
