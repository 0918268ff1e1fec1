// Package classify labels every pixel of a frame by its Mahalanobis distance
// from a trained color model.
package classify

import (
	"context"
	"image"
	"math"
	"runtime"

	"colorseg/internal/frame"
	"colorseg/internal/mask"
	"colorseg/pkg/colorutil"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// DefaultThreshold is the distance below which a pixel is foreground.
const DefaultThreshold = 10.0

// Classifier holds an immutable trained model. It is safe for concurrent use.
type Classifier struct {
	mean      [3]float64
	inv       [3][3]float64
	threshold float64
	workers   int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithThreshold sets the foreground distance threshold.
func WithThreshold(t float64) Option {
	return func(c *Classifier) {
		c.threshold = t
	}
}

// WithWorkers bounds how many row bands are classified at once. Values
// below one select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(c *Classifier) {
		c.workers = n
	}
}

// New builds a classifier from a mean vector and a 3×3 inverse covariance.
// Both are copied.
func New(mean colorutil.Vec3, inverse mat.Symmetric, opts ...Option) *Classifier {
	c := &Classifier{
		mean:      mean,
		threshold: DefaultThreshold,
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			c.inv[i][j] = inverse.At(i, j)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers < 1 {
		c.workers = runtime.NumCPU()
	}
	return c
}

// Threshold returns the configured threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Mean returns the trained mean.
func (c *Classifier) Mean() colorutil.Vec3 {
	return c.mean
}

// Distance returns sqrt((p − mean)ᵗ · Inv · (p − mean)).
func (c *Classifier) Distance(p colorutil.Triplet) float64 {
	return c.distance(float64(p[0]), float64(p[1]), float64(p[2]))
}

func (c *Classifier) distance(p0, p1, p2 float64) float64 {
	d0 := p0 - c.mean[0]
	d1 := p1 - c.mean[1]
	d2 := p2 - c.mean[2]
	q := d0*(c.inv[0][0]*d0+c.inv[0][1]*d1+c.inv[0][2]*d2) +
		d1*(c.inv[1][0]*d0+c.inv[1][1]*d1+c.inv[1][2]*d2) +
		d2*(c.inv[2][0]*d0+c.inv[2][1]*d1+c.inv[2][2]*d2)
	// The inverse is positive semi-definite; rounding can still dip below zero.
	if q < 0 {
		q = 0
	}
	return math.Sqrt(q)
}

// Classify computes the distance map and foreground mask for every pixel.
func (c *Classifier) Classify(ctx context.Context, f *frame.Frame) (*Result, error) {
	res := &Result{
		Width:     f.Width,
		Height:    f.Height,
		Threshold: c.threshold,
		Distances: make([]float64, f.Width*f.Height),
		Mask:      mask.New(f.Width, f.Height),
	}

	band := f.Height / (c.workers * 4)
	if band < 1 {
		band = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for y0 := 0; y0 < f.Height; y0 += band {
		y1 := min(y0+band, f.Height)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.classifyRows(f, res, y0, y1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// classifyRows writes rows [y0, y1) of res. Bands never overlap.
func (c *Classifier) classifyRows(f *frame.Frame, res *Result, y0, y1 int) {
	for y := y0; y < y1; y++ {
		row := f.Row(y)
		out := y * f.Width
		for x := 0; x < f.Width; x++ {
			d := c.distance(float64(row[3*x]), float64(row[3*x+1]), float64(row[3*x+2]))
			res.Distances[out+x] = d
			res.Mask.Bits[out+x] = d < c.threshold
		}
	}
}

// Result is the per-frame output of Classify.
type Result struct {
	Width     int
	Height    int
	Threshold float64
	Distances []float64
	Mask      *mask.Mask
}

// ForegroundCount returns the number of pixels closer than the threshold.
func (r *Result) ForegroundCount() int {
	return r.Mask.Count()
}

// BackgroundCount returns the number of remaining pixels.
func (r *Result) BackgroundCount() int {
	return r.Width*r.Height - r.ForegroundCount()
}

// Rethreshold derives a new mask from the stored distances.
func (r *Result) Rethreshold(threshold float64) *mask.Mask {
	m := mask.New(r.Width, r.Height)
	for i, d := range r.Distances {
		m.Bits[i] = d < threshold
	}
	return m
}

// DistanceImage renders distances scaled by scale and clamped to 255.
func (r *Result) DistanceImage(scale float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
	for i, d := range r.Distances {
		v := d * scale
		if v > 255 || math.IsInf(v, 1) {
			v = 255
		}
		img.Pix[i] = uint8(v)
	}
	return img
}

// MaskImage renders the foreground mask as 0/255.
func (r *Result) MaskImage() *image.Gray {
	return r.Mask.Gray()
}
