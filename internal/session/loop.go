// Package session drives captured frames through a trained classifier.
package session

import (
	"context"
	"io"
	"time"

	"colorseg/internal/capture"
	"colorseg/internal/classify"
	"colorseg/internal/display"
	"colorseg/internal/frame"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Reason says why a loop stopped.
type Reason string

const (
	ReasonEndOfStream Reason = "end of stream"
	ReasonQuit        Reason = "quit"
	ReasonCanceled    Reason = "canceled"
	ReasonFrameLimit  Reason = "frame limit"
	ReasonDropped     Reason = "too many dropped frames"
)

// Stats summarizes a run.
type Stats struct {
	Frames     int
	Dropped    int
	Foreground int64
	Pixels     int64
	Elapsed    time.Duration
	Reason     Reason
}

// FPS returns the average classification rate.
func (s Stats) FPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Elapsed.Seconds()
}

// Loop classifies every frame of Source and hands the result to Sink.
type Loop struct {
	Source     capture.Source
	Classifier *classify.Classifier
	Sink       display.Sink
	Log        zerolog.Logger

	// MaxFrames stops the loop after that many frames. Zero means no limit.
	MaxFrames int

	// MaxDrops overrides capture.MaxConsecutiveDrops when positive.
	MaxDrops int
}

// Run processes frames until the stream ends, the sink asks to quit, the
// frame limit is reached or ctx is done. None of these is an error.
func (l *Loop) Run(ctx context.Context) (st Stats, err error) {
	start := time.Now()
	defer func() { st.Elapsed = time.Since(start) }()

	sink := l.Sink
	if sink == nil {
		sink = display.Discard{}
	}
	maxDrops := l.MaxDrops
	if maxDrops <= 0 {
		maxDrops = capture.MaxConsecutiveDrops
	}

	drops := 0
	for {
		if l.MaxFrames > 0 && st.Frames >= l.MaxFrames {
			st.Reason = ReasonFrameLimit
			break
		}
		if ctx.Err() != nil {
			st.Reason = ReasonCanceled
			break
		}

		f, err := l.Source.Next(ctx)
		switch {
		case err == nil:
			drops = 0
		case errors.Is(err, io.EOF):
			st.Reason = ReasonEndOfStream
		case errors.Is(err, capture.ErrFrameDropped):
			st.Dropped++
			drops++
			l.Log.Debug().Int("consecutive", drops).Msg("frame dropped")
			if drops < maxDrops {
				continue
			}
			l.Log.Warn().Int("dropped", drops).Msg("capture stopped delivering frames")
			st.Reason = ReasonDropped
		case isCanceled(ctx, err):
			st.Reason = ReasonCanceled
		default:
			return st, errors.Wrap(err, "read frame")
		}
		if st.Reason != "" {
			break
		}

		res, err := l.Classifier.Classify(ctx, f)
		if err != nil {
			if isCanceled(ctx, err) {
				st.Reason = ReasonCanceled
				break
			}
			return st, errors.Wrap(err, "classify frame")
		}
		st.Frames++
		st.Foreground += int64(res.ForegroundCount())
		st.Pixels += int64(res.Width * res.Height)
		l.Log.Debug().
			Int("frame", st.Frames).
			Int("foreground", res.ForegroundCount()).
			Int("background", res.BackgroundCount()).
			Msg("frame classified")

		if err := sink.Show(ctx, res); err != nil {
			if errors.Is(err, display.ErrQuit) {
				st.Reason = ReasonQuit
				break
			}
			if isCanceled(ctx, err) {
				st.Reason = ReasonCanceled
				break
			}
			return st, errors.Wrap(err, "display frame")
		}
	}

	st.Elapsed = time.Since(start)
	l.Log.Info().
		Int("frames", st.Frames).
		Float64("fps", st.FPS()).
		Int("dropped", st.Dropped).
		Str("reason", string(st.Reason)).
		Msg("frame loop finished")
	return st, nil
}

// Reference returns the first frame the source delivers, skipping dropped
// frames. It is the frame the user paints on.
func Reference(ctx context.Context, src capture.Source) (*frame.Frame, error) {
	for drops := 0; ; {
		f, err := src.Next(ctx)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, capture.ErrFrameDropped) {
			if errors.Is(err, io.EOF) {
				return nil, errors.Wrap(err, "source ended before delivering a reference frame")
			}
			return nil, errors.Wrap(err, "read reference frame")
		}
		if drops++; drops >= capture.MaxConsecutiveDrops {
			return nil, errors.Wrapf(err, "no reference frame after %d attempts", drops)
		}
	}
}

func isCanceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// Prepend returns a source that yields f before reading from src. The
// reference frame goes back into the stream this way, so a single still
// image is still classified.
func Prepend(f *frame.Frame, src capture.Source) capture.Source {
	return &prepended{first: f, Source: src}
}

type prepended struct {
	first *frame.Frame
	capture.Source
}

func (p *prepended) Next(ctx context.Context) (*frame.Frame, error) {
	if p.first != nil {
		f := p.first
		p.first = nil
		return f, nil
	}
	return p.Source.Next(ctx)
}
