package features

import (
	"math/rand"
	"testing"

	"colorseg/internal/frame"
	"colorseg/internal/mask"
	"colorseg/pkg/colorutil"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func twoPassMean(samples []colorutil.Triplet) colorutil.Vec3 {
	var sum colorutil.Vec3
	for _, s := range samples {
		for ch := 0; ch < 3; ch++ {
			sum[ch] += float64(s[ch])
		}
	}
	n := float64(len(samples))
	return colorutil.Vec3{sum[0] / n, sum[1] / n, sum[2] / n}
}

func randomSamples(rng *rand.Rand, n int) []colorutil.Triplet {
	out := make([]colorutil.Triplet, n)
	for i := range out {
		out[i] = colorutil.Triplet{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256))}
	}
	return out
}

func TestIncrementalMeanMatchesTwoPass(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	samples := randomSamples(rng, 5000)
	want := twoPassMean(samples)

	for trial := 0; trial < 5; trial++ {
		rng.Shuffle(len(samples), func(i, j int) { samples[i], samples[j] = samples[j], samples[i] })

		var set SampleSet
		for _, s := range samples {
			set.Add(s)
		}
		for ch := 0; ch < 3; ch++ {
			assert.InDelta(t, want[ch], set.Mean[ch], 1e-9, "trial %d channel %d", trial, ch)
		}
	}
}

func TestMatrixAgreesWithStatMean(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	var set SampleSet
	for _, s := range randomSamples(rng, 300) {
		set.Add(s)
	}

	m := set.Matrix()
	r, c := m.Dims()
	require.Equal(t, 300, r)
	require.Equal(t, 3, c)
	for ch := 0; ch < 3; ch++ {
		col := mat.Col(nil, ch, m)
		assert.InDelta(t, stat.Mean(col, nil), set.Mean[ch], 1e-9)
	}
}

func TestCollectUsesMaskCoordinates(t *testing.T) {
	// Non-square frame so swapped (y,x) indexing would read the wrong pixel.
	f := frame.New(5, 2, frame.OrderRGB)
	f.Set(4, 1, colorutil.Triplet{40, 41, 42})
	f.Set(1, 0, colorutil.Triplet{10, 11, 12})
	f.Set(0, 1, colorutil.Triplet{99, 99, 99})

	m := mask.New(5, 2)
	m.Set(4, 1, true)
	m.Set(1, 0, true)

	set, err := NewCollector(0).Collect(f, m)
	require.NoError(t, err)
	assert.Equal(t, []colorutil.Triplet{{10, 11, 12}, {40, 41, 42}}, set.Samples)
	assert.Equal(t, colorutil.Vec3{25, 26, 27}, set.Mean)
	assert.False(t, set.Truncated)
}

func TestCollectEmptyMask(t *testing.T) {
	f := frame.New(4, 4, frame.OrderRGB)
	_, err := NewCollector(10).Collect(f, mask.New(4, 4))
	assert.True(t, errors.Is(err, ErrEmptyMask))
}

func TestCollectDimensionMismatch(t *testing.T) {
	f := frame.New(4, 4, frame.OrderRGB)
	_, err := NewCollector(10).Collect(f, mask.New(4, 3))
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestCollectStopsAtCap(t *testing.T) {
	f := frame.New(10, 10, frame.OrderRGB)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			f.Set(x, y, colorutil.Triplet{uint8(x), uint8(y), 0})
		}
	}
	m := mask.New(10, 10)
	for i := range m.Bits {
		m.Bits[i] = true
	}

	set, err := NewCollector(15).Collect(f, m)
	require.NoError(t, err)
	assert.Equal(t, 15, set.Len())
	assert.True(t, set.Truncated)
	// Row-major: the first row, then five pixels of the second.
	assert.Equal(t, colorutil.Triplet{4, 1, 0}, set.Samples[14])
	assert.True(t, floats.EqualApprox(twoPassMean(set.Samples).Slice(), set.Mean.Slice(), 1e-12))
}

func TestCollectCapEqualToRegion(t *testing.T) {
	f := frame.New(3, 1, frame.OrderRGB)
	m := mask.New(3, 1)
	m.Set(0, 0, true)
	m.Set(2, 0, true)

	set, err := NewCollector(2).Collect(f, m)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.False(t, set.Truncated)
}

func TestNewCollectorDefault(t *testing.T) {
	assert.Equal(t, DefaultMaxSamples, NewCollector(-1).MaxSamples)
	assert.Equal(t, 42, NewCollector(42).MaxSamples)
}
