package paintwin

import (
	"image"
	"sync"

	"colorseg/internal/frame"
	"colorseg/internal/mask"
	"colorseg/internal/painter"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// PaintCanvas shows the reference frame and turns pointer input into
// painter events. Once live, it shows result images instead and ignores
// input.
type PaintCanvas struct {
	widget.BaseWidget

	mu      sync.Mutex
	ref     *frame.Frame
	painter *painter.Painter
	live    image.Image

	raster *fynecanvas.Raster
	zoom   float32

	onChange func(painted int)
}

// NewPaintCanvas creates a canvas for ref displayed at zoom (1 = one screen
// pixel per frame pixel).
func NewPaintCanvas(ref *frame.Frame, strokeWidth float64, zoom float32) *PaintCanvas {
	if zoom <= 0 {
		zoom = 1
	}
	pc := &PaintCanvas{
		ref:     ref,
		painter: painter.New(ref.Width, ref.Height, strokeWidth),
		zoom:    zoom,
	}
	pc.raster = fynecanvas.NewRaster(pc.draw)
	pc.raster.ScaleMode = fynecanvas.ImageScalePixels
	pc.raster.SetMinSize(fyne.NewSize(float32(ref.Width)*zoom, float32(ref.Height)*zoom))
	pc.ExtendBaseWidget(pc)
	return pc
}

// OnChange registers a callback run after every stroke update.
func (pc *PaintCanvas) OnChange(fn func(painted int)) {
	pc.onChange = fn
}

// Painted returns the number of painted pixels.
func (pc *PaintCanvas) Painted() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.painter.PaintedCount()
}

// Handle feeds one event to the painter and redraws.
func (pc *PaintCanvas) Handle(ev painter.Event) {
	pc.mu.Lock()
	if pc.live != nil {
		pc.mu.Unlock()
		return
	}
	pc.painter.Handle(ev)
	n := pc.painter.PaintedCount()
	pc.mu.Unlock()

	pc.raster.Refresh()
	if pc.onChange != nil {
		pc.onChange(n)
	}
}

// Clear erases the painting.
func (pc *PaintCanvas) Clear() {
	pc.mu.Lock()
	pc.painter.Clear()
	pc.mu.Unlock()
	pc.raster.Refresh()
	if pc.onChange != nil {
		pc.onChange(0)
	}
}

// Finalize ends painting and returns the snapshot mask. Input is ignored
// from then on.
func (pc *PaintCanvas) Finalize() *mask.Mask {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.painter.Release()
	pc.live = pc.ref.ToRGBA()
	return pc.painter.Snapshot()
}

// SetLive replaces the displayed image. Safe from any goroutine.
func (pc *PaintCanvas) SetLive(img image.Image) {
	pc.mu.Lock()
	pc.live = img
	pc.mu.Unlock()
	pc.raster.Refresh()
}

func (pc *PaintCanvas) draw(w, h int) image.Image {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.live != nil {
		return pc.live
	}
	return pc.painter.Overlay(pc.ref)
}

// toImage maps a widget position to frame pixel coordinates.
func (pc *PaintCanvas) toImage(pos fyne.Position) image.Point {
	return widgetToImage(pos, pc.Size(), pc.ref.Width, pc.ref.Height)
}

func widgetToImage(pos fyne.Position, size fyne.Size, w, h int) image.Point {
	if size.Width <= 0 || size.Height <= 0 {
		return image.Point{}
	}
	x := int(pos.X / size.Width * float32(w))
	y := int(pos.Y / size.Height * float32(h))
	return image.Pt(clamp(x, 0, w-1), clamp(y, 0, h-1))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MouseDown implements desktop.Mouseable.
func (pc *PaintCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	pc.Handle(painter.Event{Kind: painter.Press, Point: pc.toImage(ev.Position)})
}

// MouseUp implements desktop.Mouseable.
func (pc *PaintCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	pc.Handle(painter.Event{Kind: painter.Release})
}

// Dragged implements fyne.Draggable. Drags on devices without mouse-down
// events start the stroke at the drag origin.
func (pc *PaintCanvas) Dragged(ev *fyne.DragEvent) {
	pc.mu.Lock()
	idle := pc.painter.State() == painter.Idle
	pc.mu.Unlock()
	if idle {
		start := ev.Position.Subtract(ev.Dragged)
		pc.Handle(painter.Event{Kind: painter.Press, Point: pc.toImage(start)})
	}
	pc.Handle(painter.Event{Kind: painter.Move, Point: pc.toImage(ev.Position)})
}

// DragEnd implements fyne.Draggable.
func (pc *PaintCanvas) DragEnd() {
	pc.Handle(painter.Event{Kind: painter.Release})
}

// CreateRenderer implements fyne.Widget.
func (pc *PaintCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &paintCanvasRenderer{canvas: pc}
}

type paintCanvasRenderer struct {
	canvas *PaintCanvas
}

func (r *paintCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
}

func (r *paintCanvasRenderer) MinSize() fyne.Size {
	return r.canvas.raster.MinSize()
}

func (r *paintCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *paintCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *paintCanvasRenderer) Destroy() {}
