package model

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"colorseg/internal/classify"
	"colorseg/internal/features"
	"colorseg/internal/frame"
	"colorseg/internal/mask"
	"colorseg/pkg/colorutil"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// fourByFour is a 4×4 frame of (200,200,200) with the top-left 2×2 block set
// to (10,10,10) and marked in the mask.
func fourByFour() (*frame.Frame, *mask.Mask) {
	f := frame.New(4, 4, frame.OrderRGB)
	f.Fill(colorutil.Triplet{200, 200, 200})
	m := mask.New(4, 4)
	for _, p := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		f.Set(p[0], p[1], colorutil.Triplet{10, 10, 10})
		m.Set(p[0], p[1], true)
	}
	return f, m
}

func TestEndToEndUniformRegion(t *testing.T) {
	f, m := fourByFour()

	md, err := Train(f, m, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, [3]float64{10, 10, 10}, md.Mean)
	assert.Equal(t, 4, md.Samples)
	assert.False(t, md.Truncated)
	assert.True(t, md.Singular())
	assert.True(t, md.Regularized)

	res, err := md.Classifier(classify.WithThreshold(10)).Classify(context.Background(), f)
	require.NoError(t, err)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, m.At(x, y), res.Mask.At(x, y), "pixel (%d,%d)", x, y)
		}
	}
	assert.Equal(t, 4, res.ForegroundCount())
	assert.Equal(t, 12, res.BackgroundCount())
}

func TestDefaultOptionsKeepFullRankMetricExact(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	f := frame.New(20, 20, frame.OrderRGB)
	m := mask.New(20, 20)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			f.Set(x, y, colorutil.Triplet{
				uint8(100 + rng.Intn(5)),
				uint8(50 + rng.Intn(5)),
				uint8(30 + rng.Intn(5)),
			})
			m.Set(x, y, true)
		}
	}

	md, err := Train(f, m, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, md.Rank)
	assert.False(t, md.Regularized)

	var prod mat.Dense
	prod.Mul(md.InverseMatrix(), md.CovarianceMatrix())
	identity := mat.NewDiagDense(3, []float64{1, 1, 1})
	assert.True(t, mat.EqualApprox(&prod, identity, 1e-9), "InvCov·Cov = %v", mat.Formatted(&prod))

	exact, err := Train(f, m, Options{})
	require.NoError(t, err)
	c := colorutil.Triplet{106, 50, 30}
	assert.InDelta(t, exact.Classifier().Distance(c), md.Classifier().Distance(c), 1e-9)
}

func TestEndToEndWithoutRegularizationStaysFinite(t *testing.T) {
	f, m := fourByFour()

	md, err := Train(f, m, Options{})
	require.NoError(t, err)
	assert.True(t, md.Singular())

	res, err := md.Classifier().Classify(context.Background(), f)
	require.NoError(t, err)
	for _, d := range res.Distances {
		assert.False(t, math.IsNaN(d))
	}
}

func TestEmptyMaskIsConfigurationError(t *testing.T) {
	f, _ := fourByFour()
	_, err := Train(f, mask.New(4, 4), DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, features.ErrEmptyMask))
}

func TestSampleCapTruncatesAndTrains(t *testing.T) {
	f := frame.New(10, 10, frame.OrderRGB)
	m := mask.New(10, 10)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			f.Set(x, y, colorutil.Triplet{uint8(x * 20), uint8(y * 20), uint8((x + y) * 10)})
			m.Set(x, y, true)
		}
	}

	md, err := Train(f, m, Options{MaxSamples: 15})
	require.NoError(t, err)
	assert.Equal(t, 15, md.Samples)
	assert.True(t, md.Truncated)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := frame.New(8, 8, frame.OrderBGR)
	m := mask.New(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			f.Set(x, y, colorutil.Triplet{uint8(30 + x*7), uint8(60 + y*5), uint8(90 + x*y)})
			m.Set(x, y, x < 5)
		}
	}
	md, err := Train(f, m, DefaultOptions())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "models", "skin.json")
	require.NoError(t, md.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, md.Mean, loaded.Mean)
	assert.Equal(t, md.Inverse, loaded.Inverse)
	assert.Equal(t, "bgr", loaded.Order)
	assert.True(t, md.TrainedAt.Equal(loaded.TrainedAt))
	assert.True(t, mat.Equal(md.InverseMatrix(), loaded.InverseMatrix()))

	ctx := context.Background()
	want, err := md.Classifier(classify.WithThreshold(3)).Classify(ctx, f)
	require.NoError(t, err)
	got, err := loaded.Classifier(classify.WithThreshold(3)).Classify(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, want.Distances, got.Distances)
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99}`), 0644))

	_, err := Load(path)
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestMatrixConversionIsSymmetric(t *testing.T) {
	a := [3][3]float64{{1, 2, 3}, {2, 4, 5}, {3, 5, 6}}
	m := fromArray(a)
	assert.Equal(t, a, toArray(m))
}
