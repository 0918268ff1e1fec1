package session

import (
	"context"
	"io"
	"testing"

	"colorseg/internal/capture"
	"colorseg/internal/classify"
	"colorseg/internal/display"
	"colorseg/internal/frame"
	"colorseg/pkg/colorutil"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// scriptedSource replays a fixed list of frames and errors, then io.EOF.
type scriptedSource struct {
	steps  []step
	closed bool
}

type step struct {
	f   *frame.Frame
	err error
}

func (s *scriptedSource) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.steps) == 0 {
		return nil, io.EOF
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	return st.f, st.err
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

type collectSink struct {
	results []*classify.Result
	quitAt  int
	onShow  func()
}

func (c *collectSink) Show(_ context.Context, res *classify.Result) error {
	c.results = append(c.results, res)
	if c.onShow != nil {
		c.onShow()
	}
	if c.quitAt > 0 && len(c.results) == c.quitAt {
		return display.ErrQuit
	}
	return nil
}

func (c *collectSink) Close() error { return nil }

func solid(c colorutil.Triplet) *frame.Frame {
	f := frame.New(3, 2, frame.OrderRGB)
	f.Fill(c)
	return f
}

func classifier() *classify.Classifier {
	inv := mat.NewSymDense(3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	return classify.New(colorutil.Vec3{10, 10, 10}, inv, classify.WithThreshold(10), classify.WithWorkers(2))
}

func TestEndOfStreamIsNormal(t *testing.T) {
	src := &scriptedSource{steps: []step{
		{f: solid(colorutil.Triplet{10, 10, 10})},
		{f: solid(colorutil.Triplet{200, 200, 200})},
	}}
	sink := &collectSink{}
	loop := &Loop{Source: src, Classifier: classifier(), Sink: sink, Log: zerolog.Nop()}

	st, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonEndOfStream, st.Reason)
	assert.Equal(t, 2, st.Frames)
	assert.Equal(t, int64(6), st.Foreground)
	assert.Equal(t, int64(12), st.Pixels)

	require.Len(t, sink.results, 2)
	assert.Equal(t, 6, sink.results[0].ForegroundCount())
	assert.Equal(t, 0, sink.results[1].ForegroundCount())
}

func TestDroppedFramesAreSkipped(t *testing.T) {
	src := &scriptedSource{steps: []step{
		{err: capture.ErrFrameDropped},
		{f: solid(colorutil.Triplet{10, 10, 10})},
		{err: capture.ErrFrameDropped},
		{err: capture.ErrFrameDropped},
		{f: solid(colorutil.Triplet{10, 10, 10})},
	}}
	loop := &Loop{Source: src, Classifier: classifier(), Log: zerolog.Nop(), MaxDrops: 3}

	st, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Frames)
	assert.Equal(t, 3, st.Dropped)
	assert.Equal(t, ReasonEndOfStream, st.Reason)
}

func TestTooManyDropsEndStream(t *testing.T) {
	var steps []step
	for i := 0; i < 5; i++ {
		steps = append(steps, step{err: capture.ErrFrameDropped})
	}
	steps = append(steps, step{f: solid(colorutil.Triplet{})})
	src := &scriptedSource{steps: steps}
	loop := &Loop{Source: src, Classifier: classifier(), Log: zerolog.Nop(), MaxDrops: 3}

	st, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonDropped, st.Reason)
	assert.Equal(t, 0, st.Frames)
	assert.Len(t, src.steps, 3, "loop stopped reading after the third drop")
}

func TestQuitStopsLoop(t *testing.T) {
	var steps []step
	for i := 0; i < 10; i++ {
		steps = append(steps, step{f: solid(colorutil.Triplet{10, 10, 10})})
	}
	sink := &collectSink{quitAt: 3}
	loop := &Loop{Source: &scriptedSource{steps: steps}, Classifier: classifier(), Sink: sink, Log: zerolog.Nop()}

	st, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonQuit, st.Reason)
	assert.Equal(t, 3, st.Frames)
}

func TestCancelStopsLoop(t *testing.T) {
	var steps []step
	for i := 0; i < 10; i++ {
		steps = append(steps, step{f: solid(colorutil.Triplet{10, 10, 10})})
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &collectSink{}
	sink.onShow = func() {
		if len(sink.results) == 2 {
			cancel()
		}
	}
	loop := &Loop{Source: &scriptedSource{steps: steps}, Classifier: classifier(), Sink: sink, Log: zerolog.Nop()}

	st, err := loop.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReasonCanceled, st.Reason)
	assert.Equal(t, 2, st.Frames)
}

func TestFrameLimit(t *testing.T) {
	var steps []step
	for i := 0; i < 10; i++ {
		steps = append(steps, step{f: solid(colorutil.Triplet{})})
	}
	loop := &Loop{Source: &scriptedSource{steps: steps}, Classifier: classifier(), Log: zerolog.Nop(), MaxFrames: 4}

	st, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonFrameLimit, st.Reason)
	assert.Equal(t, 4, st.Frames)
}

func TestSourceFailureIsReturned(t *testing.T) {
	boom := errors.New("device unplugged")
	loop := &Loop{Source: &scriptedSource{steps: []step{{err: boom}}}, Classifier: classifier(), Log: zerolog.Nop()}

	_, err := loop.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestSinkFailureIsReturned(t *testing.T) {
	boom := errors.New("disk full")
	src := &scriptedSource{steps: []step{{f: solid(colorutil.Triplet{})}}}
	loop := &Loop{Source: src, Classifier: classifier(), Sink: failingSink{boom}, Log: zerolog.Nop()}

	_, err := loop.Run(context.Background())
	assert.True(t, errors.Is(err, boom))
}

type failingSink struct{ err error }

func (f failingSink) Show(context.Context, *classify.Result) error { return f.err }
func (f failingSink) Close() error                                  { return nil }

func TestReferenceSkipsDrops(t *testing.T) {
	want := solid(colorutil.Triplet{1, 2, 3})
	src := &scriptedSource{steps: []step{
		{err: capture.ErrFrameDropped},
		{err: capture.ErrFrameDropped},
		{f: want},
	}}
	got, err := Reference(context.Background(), src)
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestReferenceOnEmptyStream(t *testing.T) {
	_, err := Reference(context.Background(), &scriptedSource{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestStatsFPS(t *testing.T) {
	assert.Zero(t, Stats{Frames: 3}.FPS())
}

func TestPrependYieldsFrameFirst(t *testing.T) {
	ref := solid(colorutil.Triplet{10, 10, 10})
	src := &scriptedSource{steps: []step{{f: solid(colorutil.Triplet{200, 200, 200})}}}
	sink := &collectSink{}
	loop := &Loop{Source: Prepend(ref, src), Classifier: classifier(), Sink: sink, Log: zerolog.Nop()}

	st, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Frames)
	assert.Equal(t, 6, sink.results[0].ForegroundCount())
	assert.Equal(t, 0, sink.results[1].ForegroundCount())

	require.NoError(t, Prepend(ref, src).Close())
	assert.True(t, src.closed)
}
