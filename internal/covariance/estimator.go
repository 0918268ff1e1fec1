// Package covariance estimates the color covariance of a sample set and the
// (pseudo-)inverse used as the Mahalanobis metric.
package covariance

import (
	"math"

	"colorseg/internal/features"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultTolerance is the relative eigenvalue cutoff below which a
	// direction is treated as degenerate.
	DefaultTolerance = 1e-9

	// DefaultRegularization is the variance the CLI adds to every channel
	// when the covariance is rank deficient. One intensity level squared
	// keeps a uniform training region from collapsing the metric.
	DefaultRegularization = 1.0

	// minEigenvalue is an absolute floor in squared intensity units; below it
	// a direction carries only rounding noise from the running mean.
	minEigenvalue = 1e-12

	dim = 3
)

// ErrTooFewSamples is returned when covariance is undefined.
var ErrTooFewSamples = errors.New("at least two samples are needed to estimate covariance")

// Estimator computes a covariance matrix and its inverse.
type Estimator struct {
	// Tolerance is relative to the largest eigenvalue. Zero selects
	// DefaultTolerance.
	Tolerance float64

	// Regularization is added to the covariance diagonal when the
	// covariance is rank deficient. Full-rank covariances are inverted
	// exactly.
	Regularization float64
}

// Estimate is the fitted second-order model of a sample set.
type Estimate struct {
	Mean       [dim]float64
	Covariance *mat.SymDense
	Inverse    *mat.SymDense
	Samples    int

	// Rank counts the eigenvalues of the covariance kept by the
	// pseudo-inverse.
	Rank int

	// Regularized is set when Inverse is the inverse of Cov + λI.
	Regularized bool
}

// Singular reports whether the inverse dropped at least one direction.
func (e *Estimate) Singular() bool {
	return e.Rank < dim
}

// Estimate computes Cov = (1/N) Σ (x_i − mean)(x_i − mean)ᵗ in one pass over
// the samples and inverts it.
func (est Estimator) Estimate(set *features.SampleSet) (*Estimate, error) {
	n := set.Len()
	if n < 2 {
		return nil, errors.Wrapf(ErrTooFewSamples, "got %d", n)
	}

	// SymDense stores a single triangle, so the result is exactly symmetric.
	cov := mat.NewSymDense(dim, nil)
	dev := mat.NewVecDense(dim, nil)
	scale := 1.0 / float64(n)
	for _, s := range set.Samples {
		for ch := 0; ch < dim; ch++ {
			dev.SetVec(ch, float64(s[ch])-set.Mean[ch])
		}
		cov.SymRankOne(cov, scale, dev)
	}

	tol := est.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	inv, rank := PseudoInverse(cov, tol)

	regularized := false
	if rank < dim && est.Regularization > 0 {
		ridge := mat.NewSymDense(dim, nil)
		ridge.CopySym(cov)
		for i := 0; i < dim; i++ {
			ridge.SetSym(i, i, ridge.At(i, i)+est.Regularization)
		}
		inv, _ = PseudoInverse(ridge, tol)
		regularized = true
	}

	return &Estimate{
		Mean:        set.Mean,
		Covariance:  cov,
		Inverse:     inv,
		Samples:     n,
		Rank:        rank,
		Regularized: regularized,
	}, nil
}

// PseudoInverse inverts a symmetric matrix through its eigen-decomposition.
// Eigenvalues at or below max(tol·|λ|max, minEigenvalue) contribute a zero
// inverse eigenvalue instead of an infinite one. The returned rank counts the
// eigenvalues that were kept. A failed factorization yields the zero matrix.
func PseudoInverse(a mat.Symmetric, tol float64) (*mat.SymDense, int) {
	n := a.SymmetricDim()
	inv := mat.NewSymDense(n, nil)

	var eig mat.EigenSym
	if ok := eig.Factorize(a, true); !ok {
		return inv, 0
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	var largest float64
	for _, v := range values {
		largest = math.Max(largest, math.Abs(v))
	}
	if largest == 0 || math.IsNaN(largest) || math.IsInf(largest, 0) {
		return inv, 0
	}
	cutoff := math.Max(tol*largest, minEigenvalue)

	rank := 0
	for i, v := range values {
		if v <= cutoff {
			continue
		}
		inv.SymRankOne(inv, 1/v, vectors.ColView(i))
		rank++
	}
	return inv, rank
}
