// Package mask provides the per-pixel boolean grid used both for the
// painted training region and for per-frame segmentation output.
package mask

import (
	"image"
	"image/color"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/tiff"
)

// Mask is a row-major grid of booleans.
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

// New allocates an all-false mask.
func New(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Bits:   make([]bool, width*height),
	}
}

// FromImage marks every pixel whose gray level is non-zero, the same rule
// the painted marker image followed.
func FromImage(img image.Image) *Mask {
	b := img.Bounds()
	m := New(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			m.Bits[y*m.Width+x] = g.Y != 0
		}
	}
	return m
}

// Load decodes a mask image (PNG or TIFF).
func Load(path string) (*Mask, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open mask")
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode mask %s", path)
	}
	return FromImage(img), nil
}

// At reports whether (x, y) is set. Out-of-range coordinates are false.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Bits[y*m.Width+x]
}

// Set writes (x, y). Out-of-range coordinates are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Bits[y*m.Width+x] = v
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	bits := make([]bool, len(m.Bits))
	copy(bits, m.Bits)
	return &Mask{Width: m.Width, Height: m.Height, Bits: bits}
}

// Gray renders the mask as 255 for set pixels and 0 otherwise.
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, b := range m.Bits {
		if b {
			img.Pix[i] = 0xFF
		}
	}
	return img
}
