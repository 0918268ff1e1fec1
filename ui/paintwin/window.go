// Package paintwin is the interactive window where the user paints the
// training region over a reference frame and then watches live results.
package paintwin

import (
	"context"
	"fmt"
	"sync"

	"colorseg/internal/classify"
	"colorseg/internal/frame"
	"colorseg/internal/mask"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const appID = "io.colorseg.paint"

// ErrAborted is returned when the window closes before painting is done.
var ErrAborted = errors.New("painting aborted")

// Options configures the window.
type Options struct {
	Title       string
	StrokeWidth float64
	Zoom        float32

	// DistanceView shows the scaled distance map instead of the mask.
	DistanceView  bool
	DistanceScale float64

	Log zerolog.Logger
}

// Trained runs once painting is finalized. It owns the rest of the session
// and reports every result to sink. Closing the window cancels ctx.
type Trained func(ctx context.Context, m *mask.Mask, sink *LiveSink) error

// Run shows ref for painting and blocks until the window closes. Enter or
// Space finalizes the mask and hands it to next, C clears the painting,
// Escape aborts before finalizing and quits afterwards. Run must be called
// from the main goroutine.
func Run(ctx context.Context, ref *frame.Frame, opts Options, next Trained) error {
	if opts.Title == "" {
		opts.Title = "colorseg"
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a := app.NewWithID(appID)
	w := a.NewWindow(opts.Title)

	pc := NewPaintCanvas(ref, opts.StrokeWidth, opts.Zoom)
	status := widget.NewLabel("Paint over the region to learn, then press Enter. C clears, Esc quits.")
	pc.OnChange(func(n int) {
		status.SetText(fmt.Sprintf("%d pixels painted. Enter to train, C to clear.", n))
	})
	w.SetContent(container.NewBorder(nil, status, nil, nil, pc))

	var (
		mu        sync.Mutex
		finalized bool
		runErr    error
		wg        sync.WaitGroup
	)

	finalize := func() {
		mu.Lock()
		defer mu.Unlock()
		if finalized {
			return
		}
		if pc.Painted() == 0 {
			status.SetText("Nothing painted yet.")
			return
		}
		finalized = true
		m := pc.Finalize()
		opts.Log.Info().Int("pixels", m.Count()).Msg("training mask finalized")
		status.SetText("Training...")

		sink := &LiveSink{canvas: pc, status: status, distance: opts.DistanceView, scale: opts.DistanceScale}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := next(ctx, m, sink)
			mu.Lock()
			runErr = err
			mu.Unlock()
			if err != nil {
				status.SetText("Stopped: " + err.Error())
				return
			}
			status.SetText("Stream ended. Close the window to exit.")
		}()
	}

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyReturn, fyne.KeyEnter, fyne.KeySpace:
			finalize()
		case fyne.KeyC:
			mu.Lock()
			done := finalized
			mu.Unlock()
			if !done {
				pc.Clear()
			}
		case fyne.KeyEscape:
			w.Close()
		}
	})
	w.SetOnClosed(cancel)

	go func() {
		<-ctx.Done()
		a.Quit()
	}()

	w.ShowAndRun()
	cancel()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if !finalized {
		return ErrAborted
	}
	return runErr
}

// LiveSink renders results into the painting window.
type LiveSink struct {
	canvas   *PaintCanvas
	status   *widget.Label
	distance bool
	scale    float64
	frames   int
}

// Show implements display.Sink.
func (s *LiveSink) Show(ctx context.Context, res *classify.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.distance {
		s.canvas.SetLive(res.DistanceImage(s.scale))
	} else {
		s.canvas.SetLive(res.MaskImage())
	}
	s.frames++
	s.status.SetText(fmt.Sprintf("frame %d: %d foreground, %d background", s.frames, res.ForegroundCount(), res.BackgroundCount()))
	return nil
}

// Close implements display.Sink.
func (s *LiveSink) Close() error { return nil }
