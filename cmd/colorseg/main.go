// Command colorseg learns a color region from a painted training mask and
// segments live video by Mahalanobis distance to it.
//
// Usage:
//
//	colorseg run [SOURCE]                 paint, train and segment in one session
//	colorseg train -o model.json [SOURCE] train a model and save it
//	colorseg classify -m model.json [SOURCE]
//	colorseg version
//
// SOURCE is a camera index (default 0), a video file, an image file or a
// directory of images.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"colorseg/internal/config"
	"colorseg/internal/covariance"
	"colorseg/internal/features"
	"colorseg/internal/model"
	"colorseg/ui/paintwin"

	"github.com/pkg/errors"
)

const (
	exitOK     = 0
	exitError  = 1
	exitConfig = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	if errors.Is(err, paintwin.ErrAborted) {
		fmt.Fprintln(os.Stderr, "colorseg: painting aborted, nothing trained")
		return exitOK
	}
	fmt.Fprintln(os.Stderr, "colorseg:", err)
	return exitCode(err)
}

// exitCode maps configuration errors to exitConfig and everything else to
// exitError.
func exitCode(err error) int {
	for _, target := range []error{
		config.ErrInvalid,
		features.ErrEmptyMask,
		features.ErrDimensionMismatch,
		covariance.ErrTooFewSamples,
		model.ErrFormat,
		errUsage,
	} {
		if errors.Is(err, target) {
			return exitConfig
		}
	}
	return exitError
}
