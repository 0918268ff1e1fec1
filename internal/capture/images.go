package capture

import (
	"context"
	"io"

	"colorseg/internal/frame"
	"colorseg/pkg/colorutil"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ImageSequence replays still images as a stream, decoding one per call.
type ImageSequence struct {
	paths []string
	next  int
	space colorutil.Space
	log   zerolog.Logger

	width, height int
}

// NewImageSequence returns a source over paths in order. Warm-up frames are
// skipped the same way a camera would discard them.
func NewImageSequence(paths []string, opts Options) (*ImageSequence, error) {
	if len(paths) == 0 {
		return nil, errors.New("image sequence is empty")
	}
	s := &ImageSequence{
		paths: paths,
		space: opts.ColorSpace,
		log:   opts.Log,
	}
	if opts.Equalize {
		s.log.Warn().Msg("histogram equalization needs OpenCV, ignored for still images")
	}
	// Still images have no sensor to settle, but a single image must still
	// reach the loop, so warm-up never consumes the last frame.
	s.next = min(opts.WarmupFrames, len(paths)-1)
	if s.next < 0 {
		s.next = 0
	}
	return s, nil
}

// Len returns the number of images in the sequence.
func (s *ImageSequence) Len() int {
	return len(s.paths)
}

// Next decodes the next image.
func (s *ImageSequence) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.paths) {
		return nil, io.EOF
	}
	path := s.paths[s.next]
	s.next++

	f, err := frame.Load(path)
	if err != nil {
		return nil, err
	}
	if s.width == 0 {
		s.width, s.height = f.Width, f.Height
	} else if !f.SameSize(s.width, s.height) {
		return nil, errors.Wrapf(ErrSizeChanged, "%s is %dx%d, stream is %dx%d", path, f.Width, f.Height, s.width, s.height)
	}
	if s.space == colorutil.SpaceHSV {
		f = f.ToHSV()
	}
	s.log.Debug().Str("path", path).Msg("image loaded")
	return f, nil
}

// Close is a no-op.
func (s *ImageSequence) Close() error {
	return nil
}
