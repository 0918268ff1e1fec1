// Package capture supplies frames from cameras, video files and still images.
//
// A Source returns io.EOF once no further frames will arrive. A transient
// read failure is reported as ErrFrameDropped; the caller may ask again.
package capture

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"colorseg/internal/frame"
	"colorseg/pkg/colorutil"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// MaxConsecutiveDrops is how many dropped frames in a row end a stream.
const MaxConsecutiveDrops = 30

var (
	// ErrFrameDropped reports a frame the device failed to deliver.
	ErrFrameDropped = errors.New("frame dropped")

	// ErrSizeChanged reports a frame whose dimensions differ from the first.
	ErrSizeChanged = errors.New("frame dimensions changed mid-stream")

	// ErrNoOpenCV is returned for camera and video sources in builds
	// without OpenCV.
	ErrNoOpenCV = errors.New("built without OpenCV support")
)

// Source delivers frames of fixed dimensions.
type Source interface {
	Next(ctx context.Context) (*frame.Frame, error)
	Close() error
}

// Options configures how frames are prepared before they leave a source.
type Options struct {
	// WarmupFrames are read and discarded when the source opens.
	WarmupFrames int
	ColorSpace   colorutil.Space

	// Equalize applies per-channel histogram equalization (OpenCV sources
	// only).
	Equalize bool

	Log zerolog.Logger
}

// IsCameraIndex reports whether target names a camera rather than a path.
func IsCameraIndex(target string) bool {
	if target == "" {
		return false
	}
	for _, r := range target {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Open selects a source for target: a camera index ("0"), a directory or
// file of still images, or anything OpenCV can decode as video.
func Open(target string, opts Options) (Source, error) {
	if IsCameraIndex(target) {
		id, err := strconv.Atoi(target)
		if err != nil {
			return nil, errors.Wrapf(err, "camera index %q", target)
		}
		return OpenCamera(id, opts)
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, errors.Wrap(err, "open source")
	}
	var paths []string
	switch {
	case info.IsDir():
		if paths, err = listImages(target); err != nil {
			return nil, err
		}
	case frame.IsSupportedFormat(target):
		paths = []string{target}
	default:
		return OpenVideoFile(target, opts)
	}
	seq, err := NewImageSequence(paths, opts)
	if err != nil {
		return nil, err
	}
	return seq, nil
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "list images")
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if frame.IsSupportedFormat(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no images in %s", dir)
	}
	sort.Strings(paths)
	return paths, nil
}
