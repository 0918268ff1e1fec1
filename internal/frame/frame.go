// Package frame provides the 3-channel pixel grid consumed by training and
// classification, plus loading from image files.
package frame

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"colorseg/pkg/colorutil"

	"github.com/pkg/errors"
	_ "golang.org/x/image/tiff"
)

// Order identifies the channel layout of a frame's pixels.
type Order int

const (
	OrderRGB Order = iota
	OrderBGR       // gocv capture default
	OrderHSV       // OpenCV convention, H 0-180
)

func (o Order) String() string {
	switch o {
	case OrderRGB:
		return "rgb"
	case OrderBGR:
		return "bgr"
	case OrderHSV:
		return "hsv"
	default:
		return "unknown"
	}
}

// ParseOrder is the inverse of Order.String.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "rgb":
		return OrderRGB, nil
	case "bgr":
		return OrderBGR, nil
	case "hsv":
		return OrderHSV, nil
	}
	return 0, errors.Errorf("unknown channel order %q", s)
}

// Frame is a fixed-size grid of 3-channel pixels stored row-major, three
// bytes per pixel.
type Frame struct {
	Width  int
	Height int
	Order  Order
	Pix    []uint8
}

// New allocates a zeroed frame.
func New(width, height int, order Order) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Order:  order,
		Pix:    make([]uint8, width*height*3),
	}
}

// FromBytes wraps interleaved 3-channel data. The slice is not copied.
func FromBytes(width, height int, order Order, data []byte) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	if len(data) != width*height*3 {
		return nil, errors.Errorf("frame data has %d bytes, want %d for %dx%d", len(data), width*height*3, width, height)
	}
	return &Frame{Width: width, Height: height, Order: order, Pix: data}, nil
}

// FromImage converts any image to an RGB frame.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := New(b.Dx(), b.Dy(), OrderRGB)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			f.Set(x, y, colorutil.Triplet{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8)})
		}
	}
	return f
}

// Load decodes an image file (PNG, JPEG or TIFF) into an RGB frame.
func Load(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open image")
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %s", path)
	}
	return FromImage(img), nil
}

// Bounds returns the frame rectangle anchored at the origin.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// SameSize reports whether the frame has the given dimensions.
func (f *Frame) SameSize(width, height int) bool {
	return f.Width == width && f.Height == height
}

// At returns the pixel at (x, y).
func (f *Frame) At(x, y int) colorutil.Triplet {
	i := (y*f.Width + x) * 3
	return colorutil.Triplet{f.Pix[i], f.Pix[i+1], f.Pix[i+2]}
}

// Set writes the pixel at (x, y).
func (f *Frame) Set(x, y int, c colorutil.Triplet) {
	i := (y*f.Width + x) * 3
	f.Pix[i] = c[0]
	f.Pix[i+1] = c[1]
	f.Pix[i+2] = c[2]
}

// Row returns the interleaved bytes of row y.
func (f *Frame) Row(y int) []uint8 {
	start := y * f.Width * 3
	return f.Pix[start : start+f.Width*3]
}

// Fill sets every pixel to c.
func (f *Frame) Fill(c colorutil.Triplet) {
	for i := 0; i < len(f.Pix); i += 3 {
		f.Pix[i] = c[0]
		f.Pix[i+1] = c[1]
		f.Pix[i+2] = c[2]
	}
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	pix := make([]uint8, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Width: f.Width, Height: f.Height, Order: f.Order, Pix: pix}
}

// ToHSV returns an HSV copy of an RGB or BGR frame. HSV frames are cloned.
func (f *Frame) ToHSV() *Frame {
	out := f.Clone()
	if f.Order == OrderHSV {
		return out
	}
	out.Order = OrderHSV
	for i := 0; i < len(out.Pix); i += 3 {
		rgb := colorutil.Triplet{out.Pix[i], out.Pix[i+1], out.Pix[i+2]}
		if f.Order == OrderBGR {
			rgb[0], rgb[2] = rgb[2], rgb[0]
		}
		hsv := colorutil.HSVTriplet(rgb)
		out.Pix[i], out.Pix[i+1], out.Pix[i+2] = hsv[0], hsv[1], hsv[2]
	}
	return out
}

// ToRGBA renders the frame for display. HSV frames are shown with their raw
// channels mapped to R, G and B.
func (f *Frame) ToRGBA() *image.RGBA {
	img := image.NewRGBA(f.Bounds())
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := f.At(x, y)
			if f.Order == OrderBGR {
				c[0], c[2] = c[2], c[0]
			}
			img.SetRGBA(x, y, color.RGBA{R: c[0], G: c[1], B: c[2], A: 255})
		}
	}
	return img
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
