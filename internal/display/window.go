//go:build !nocv

package display

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"colorseg/internal/classify"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

const (
	keyEsc  = 27
	keyQuit = 'q'
	keySave = 's'
)

// WindowSink shows the distance map and mask in two highgui windows.
type WindowSink struct {
	distance *gocv.Window
	mask     *gocv.Window
	scale    float64
	saveDir  string
	log      zerolog.Logger
	saved    int
}

// NewWindowSink opens the windows. Pressing s saves the current mask to
// saveDir when it is set.
func NewWindowSink(title string, scale float64, saveDir string, log zerolog.Logger) (*WindowSink, error) {
	return &WindowSink{
		distance: gocv.NewWindow(title + " - distance"),
		mask:     gocv.NewWindow(title + " - mask"),
		scale:    scale,
		saveDir:  saveDir,
		log:      log,
	}, nil
}

// Show displays res and polls the keyboard once.
func (w *WindowSink) Show(ctx context.Context, res *classify.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dist, err := grayMat(res.DistanceImage(w.scale))
	if err != nil {
		return err
	}
	defer dist.Close()
	mask, err := grayMat(res.MaskImage())
	if err != nil {
		return err
	}
	defer mask.Close()

	w.distance.IMShow(dist)
	w.mask.IMShow(mask)

	switch w.mask.WaitKey(1) {
	case keyEsc, keyQuit:
		return ErrQuit
	case keySave:
		w.save(mask)
	}
	return nil
}

func (w *WindowSink) save(mask gocv.Mat) {
	if w.saveDir == "" {
		w.log.Warn().Msg("no output directory configured, mask not saved")
		return
	}
	path := filepath.Join(w.saveDir, fmt.Sprintf("snapshot_%03d.png", w.saved))
	if ok := gocv.IMWrite(path, mask); !ok {
		w.log.Error().Str("path", path).Msg("failed to save mask")
		return
	}
	w.saved++
	w.log.Info().Str("path", path).Msg("mask saved")
}

// Close destroys both windows.
func (w *WindowSink) Close() error {
	w.distance.Close()
	return w.mask.Close()
}

func grayMat(img *image.Gray) (gocv.Mat, error) {
	b := img.Bounds()
	m, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8U, img.Pix)
	if err != nil {
		return m, errors.Wrap(err, "wrap gray image")
	}
	return m, nil
}
