//go:build nocv

package display

import (
	"context"

	"colorseg/internal/classify"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// WindowSink is unavailable without OpenCV.
type WindowSink struct{}

// NewWindowSink always fails without OpenCV.
func NewWindowSink(title string, scale float64, saveDir string, log zerolog.Logger) (*WindowSink, error) {
	return nil, errors.Wrap(ErrNoOpenCV, title)
}

func (w *WindowSink) Show(context.Context, *classify.Result) error { return ErrNoOpenCV }
func (w *WindowSink) Close() error                                  { return nil }
