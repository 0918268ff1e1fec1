// Package features gathers color samples from the pixels of a reference
// frame selected by a training mask.
package features

import (
	"colorseg/internal/frame"
	"colorseg/internal/mask"
	"colorseg/pkg/colorutil"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultMaxSamples bounds collection when no cap is configured.
const DefaultMaxSamples = 100000

var (
	// ErrEmptyMask is returned when the mask selects no pixels. No model can
	// be trained from it.
	ErrEmptyMask = errors.New("training mask selects no pixels")

	// ErrDimensionMismatch is returned when the frame and mask sizes differ.
	ErrDimensionMismatch = errors.New("frame and mask dimensions differ")
)

// SampleSet holds the collected colors and their running mean.
type SampleSet struct {
	Samples []colorutil.Triplet
	Mean    colorutil.Vec3

	// Truncated is set when the cap stopped the scan before every masked
	// pixel was visited.
	Truncated bool
}

// Len returns the number of samples.
func (s *SampleSet) Len() int {
	return len(s.Samples)
}

// Add appends a sample and folds it into the running mean:
// mean_n = mean_{n-1}*(1 - 1/n) + sample_n/n.
func (s *SampleSet) Add(c colorutil.Triplet) {
	s.Samples = append(s.Samples, c)
	n := float64(len(s.Samples))
	for ch := 0; ch < 3; ch++ {
		s.Mean[ch] = s.Mean[ch]*(1.0-1.0/n) + (1.0/n)*float64(c[ch])
	}
}

// Matrix returns the samples as an N×3 matrix, one row per sample.
func (s *SampleSet) Matrix() *mat.Dense {
	data := make([]float64, 0, len(s.Samples)*3)
	for _, c := range s.Samples {
		data = append(data, float64(c[0]), float64(c[1]), float64(c[2]))
	}
	return mat.NewDense(len(s.Samples), 3, data)
}

// Collector scans a frame against a mask.
type Collector struct {
	// MaxSamples caps how many samples are gathered.
	MaxSamples int
}

// NewCollector returns a collector capped at maxSamples. Non-positive values
// select DefaultMaxSamples.
func NewCollector(maxSamples int) *Collector {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Collector{MaxSamples: maxSamples}
}

// Collect gathers the color at every set mask pixel in row-major order,
// stopping once MaxSamples samples are held.
func (c *Collector) Collect(f *frame.Frame, m *mask.Mask) (*SampleSet, error) {
	if !f.SameSize(m.Width, m.Height) {
		return nil, errors.Wrapf(ErrDimensionMismatch, "frame %dx%d, mask %dx%d", f.Width, f.Height, m.Width, m.Height)
	}

	limit := c.MaxSamples
	if limit <= 0 {
		limit = DefaultMaxSamples
	}

	set := &SampleSet{Samples: make([]colorutil.Triplet, 0, min(limit, m.Count()))}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Bits[y*m.Width+x] {
				continue
			}
			if set.Len() == limit {
				set.Truncated = true
				return set, nil
			}
			set.Add(f.At(x, y))
		}
	}

	if set.Len() == 0 {
		return nil, ErrEmptyMask
	}
	return set, nil
}
