// Package model trains the color model from a painted frame and persists it
// so later sessions can classify without repainting.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"colorseg/internal/classify"
	"colorseg/internal/covariance"
	"colorseg/internal/features"
	"colorseg/internal/frame"
	"colorseg/internal/mask"
	"colorseg/pkg/colorutil"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// FormatVersion is bumped when the JSON layout changes incompatibly.
const FormatVersion = 1

// ErrFormat is returned for model files this build cannot read.
var ErrFormat = errors.New("unsupported model file")

// Options controls training.
type Options struct {
	MaxSamples     int
	Tolerance      float64
	Regularization float64
}

// DefaultOptions returns the options used by the CLI when nothing is
// configured.
func DefaultOptions() Options {
	return Options{
		MaxSamples:     features.DefaultMaxSamples,
		Tolerance:      covariance.DefaultTolerance,
		Regularization: covariance.DefaultRegularization,
	}
}

// Model is a trained color model.
type Model struct {
	Version    int           `json:"version"`
	Order      string        `json:"channel_order"`
	Mean       [3]float64    `json:"mean"`
	Covariance [3][3]float64 `json:"covariance"`
	Inverse    [3][3]float64 `json:"inverse"`
	Rank       int           `json:"rank"`
	Samples    int           `json:"samples"`
	Truncated  bool          `json:"truncated"`

	// Regularized is set when the covariance was rank deficient and the
	// inverse was taken of Cov + Regularization·I.
	Regularized    bool      `json:"regularized"`
	Regularization float64   `json:"regularization"`
	Tolerance      float64   `json:"tolerance"`
	TrainedAt      time.Time `json:"trained_at"`
}

// Train collects samples from f under m, estimates their covariance and
// returns the fitted model. Training happens once; the result is immutable.
func Train(f *frame.Frame, m *mask.Mask, opts Options) (*Model, error) {
	set, err := features.NewCollector(opts.MaxSamples).Collect(f, m)
	if err != nil {
		return nil, errors.Wrap(err, "collect samples")
	}
	est, err := covariance.Estimator{
		Tolerance:      opts.Tolerance,
		Regularization: opts.Regularization,
	}.Estimate(set)
	if err != nil {
		return nil, errors.Wrap(err, "estimate covariance")
	}

	md := &Model{
		Version:        FormatVersion,
		Order:          f.Order.String(),
		Mean:           est.Mean,
		Rank:           est.Rank,
		Samples:        est.Samples,
		Truncated:      set.Truncated,
		Regularized:    est.Regularized,
		Regularization: opts.Regularization,
		Tolerance:      opts.Tolerance,
		TrainedAt:      time.Now().UTC(),
	}
	md.Covariance = toArray(est.Covariance)
	md.Inverse = toArray(est.Inverse)
	return md, nil
}

// Singular reports whether the training covariance was rank deficient.
func (md *Model) Singular() bool {
	return md.Rank < 3
}

// InverseMatrix returns the inverse covariance as a gonum matrix.
func (md *Model) InverseMatrix() *mat.SymDense {
	return fromArray(md.Inverse)
}

// CovarianceMatrix returns the covariance as a gonum matrix.
func (md *Model) CovarianceMatrix() *mat.SymDense {
	return fromArray(md.Covariance)
}

// Classifier builds a classifier for the model.
func (md *Model) Classifier(opts ...classify.Option) *classify.Classifier {
	return classify.New(colorutil.Vec3(md.Mean), md.InverseMatrix(), opts...)
}

// String summarizes the model for logs.
func (md *Model) String() string {
	return fmt.Sprintf("mean=(%.2f, %.2f, %.2f) order=%s samples=%d rank=%d",
		md.Mean[0], md.Mean[1], md.Mean[2], md.Order, md.Samples, md.Rank)
}

// Save writes the model as indented JSON, creating parent directories.
func (md *Model) Save(path string) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal model")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "create model directory")
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a model written by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var md Model
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, errors.Wrap(err, "unmarshal model")
	}
	if md.Version != FormatVersion {
		return nil, errors.Wrapf(ErrFormat, "%s: version %d", path, md.Version)
	}
	return &md, nil
}

func toArray(m mat.Symmetric) [3][3]float64 {
	var a [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			a[i][j] = m.At(i, j)
		}
	}
	return a
}

func fromArray(a [3][3]float64) *mat.SymDense {
	m := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			m.SetSym(i, j, a[i][j])
		}
	}
	return m
}
