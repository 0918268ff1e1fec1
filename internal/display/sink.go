// Package display presents classification results.
package display

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"colorseg/internal/classify"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	// ErrQuit is returned by Show when the user asked to stop.
	ErrQuit = errors.New("quit requested")

	// ErrNoOpenCV is returned for window sinks in builds without OpenCV.
	ErrNoOpenCV = errors.New("built without OpenCV support")
)

// Sink consumes one result per frame. Sinks never feed back into
// classification.
type Sink interface {
	Show(ctx context.Context, res *classify.Result) error
	Close() error
}

// Discard drops every result.
type Discard struct{}

func (Discard) Show(context.Context, *classify.Result) error { return nil }
func (Discard) Close() error                                  { return nil }

// Multi fans a result out to several sinks, stopping at the first error.
type Multi []Sink

func (m Multi) Show(ctx context.Context, res *classify.Result) error {
	for _, s := range m {
		if err := s.Show(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// FileSink writes the mask, and optionally the scaled distance map, of each
// frame as numbered PNG files.
type FileSink struct {
	dir       string
	scale     float64
	distances bool
	log       zerolog.Logger
	n         int
}

// NewFileSink creates dir if needed. A scale of zero skips distance maps.
func NewFileSink(dir string, scale float64, log zerolog.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}
	return &FileSink{dir: dir, scale: scale, distances: scale > 0, log: log}, nil
}

// Show writes mask_NNNNNN.png and, when enabled, distance_NNNNNN.png.
func (s *FileSink) Show(ctx context.Context, res *classify.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	maskPath := s.Path("mask", s.n)
	if err := writePNG(maskPath, res.MaskImage()); err != nil {
		return err
	}
	if s.distances {
		if err := writePNG(s.Path("distance", s.n), res.DistanceImage(s.scale)); err != nil {
			return err
		}
	}
	s.log.Debug().Str("path", maskPath).Int("frame", s.n).Msg("mask written")
	s.n++
	return nil
}

// Path returns the file name used for kind at frame n.
func (s *FileSink) Path(kind string, n int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%06d.png", kind, n))
}

// Written returns the number of frames written so far.
func (s *FileSink) Written() int {
	return s.n
}

func (s *FileSink) Close() error { return nil }

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create image file")
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return f.Close()
}
