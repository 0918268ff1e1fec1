//go:build !nocv

package capture

import (
	"context"
	"io"

	"colorseg/internal/frame"
	"colorseg/pkg/colorutil"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// VideoSource reads frames through OpenCV from a camera or a video file.
type VideoSource struct {
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	work   gocv.Mat
	live   bool
	opts   Options
	log    zerolog.Logger
	width  int
	height int
}

// OpenCamera opens camera id.
func OpenCamera(id int, opts Options) (Source, error) {
	vc, err := gocv.VideoCaptureDevice(id)
	if err != nil {
		return nil, errors.Wrapf(err, "open camera %d", id)
	}
	return newVideoSource(vc, true, opts)
}

// OpenVideoFile opens a video file.
func OpenVideoFile(path string, opts Options) (Source, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open video %s", path)
	}
	return newVideoSource(vc, false, opts)
}

func newVideoSource(vc *gocv.VideoCapture, live bool, opts Options) (*VideoSource, error) {
	s := &VideoSource{
		cap:  vc,
		mat:  gocv.NewMat(),
		work: gocv.NewMat(),
		live: live,
		opts: opts,
		log:  opts.Log,
	}
	// Cameras often hand out a dark or half-exposed first frame.
	for i := 0; i < opts.WarmupFrames; i++ {
		if ok := vc.Read(&s.mat); !ok {
			s.log.Debug().Int("frame", i).Msg("warm-up read failed")
		}
	}
	return s, nil
}

// Next grabs the next frame and converts it to the configured color space.
func (s *VideoSource) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := s.cap.Read(&s.mat); !ok || s.mat.Empty() {
		if s.live {
			return nil, ErrFrameDropped
		}
		return nil, io.EOF
	}

	if err := s.normalize(); err != nil {
		return nil, err
	}
	if s.opts.Equalize {
		equalize(&s.mat)
	}

	order := frame.OrderBGR
	src := s.mat
	switch s.opts.ColorSpace {
	case colorutil.SpaceRGB:
		gocv.CvtColor(s.mat, &s.work, gocv.ColorBGRToRGB)
		src, order = s.work, frame.OrderRGB
	case colorutil.SpaceHSV:
		gocv.CvtColor(s.mat, &s.work, gocv.ColorBGRToHSV)
		src, order = s.work, frame.OrderHSV
	}

	if s.width == 0 {
		s.width, s.height = src.Cols(), src.Rows()
		s.log.Info().Int("width", s.width).Int("height", s.height).Str("order", order.String()).Msg("stream opened")
	} else if src.Cols() != s.width || src.Rows() != s.height {
		return nil, errors.Wrapf(ErrSizeChanged, "got %dx%d, stream is %dx%d", src.Cols(), src.Rows(), s.width, s.height)
	}

	// ToBytes copies, so the frame outlives the next Read.
	return frame.FromBytes(src.Cols(), src.Rows(), order, src.ToBytes())
}

// normalize brings grayscale and BGRA captures to 3-channel BGR.
func (s *VideoSource) normalize() error {
	switch s.mat.Channels() {
	case 3:
		return nil
	case 1:
		gocv.CvtColor(s.mat, &s.work, gocv.ColorGrayToBGR)
	case 4:
		gocv.CvtColor(s.mat, &s.work, gocv.ColorBGRAToBGR)
	default:
		return errors.Errorf("unsupported capture with %d channels", s.mat.Channels())
	}
	s.mat, s.work = s.work, s.mat
	return nil
}

// equalize runs histogram equalization on each channel independently.
func equalize(m *gocv.Mat) {
	channels := gocv.Split(*m)
	for i := range channels {
		defer channels[i].Close()
		gocv.EqualizeHist(channels[i], &channels[i])
	}
	gocv.Merge(channels, m)
}

// Close releases the device and buffers.
func (s *VideoSource) Close() error {
	s.mat.Close()
	s.work.Close()
	return s.cap.Close()
}
