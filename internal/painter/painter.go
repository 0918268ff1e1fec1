// Package painter turns pointer strokes over a reference frame into a
// training mask.
//
// The painter is an explicit two-state machine. A press starts a stroke,
// each move while the button is held draws a fixed-width segment from the
// last recorded position, and a release ends the stroke. The UI feeds it
// discrete events; it never registers callbacks of its own.
package painter

import (
	"image"
	"image/color"
	"image/draw"

	"colorseg/internal/frame"
	"colorseg/internal/mask"
	"colorseg/pkg/colorutil"
	"colorseg/pkg/geometry"

	"golang.org/x/image/vector"
)

// DefaultStrokeWidth is the brush width in pixels.
const DefaultStrokeWidth = 2.0

// coverageOn is the alpha at which a pixel counts as painted.
const coverageOn = 0x80

// State is the stroke state.
type State int

const (
	Idle State = iota
	Drawing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Drawing:
		return "drawing"
	default:
		return "unknown"
	}
}

// EventKind identifies a pointer event.
type EventKind int

const (
	Press EventKind = iota
	Move
	Release
)

// Event is a discrete pointer event in frame pixel coordinates.
type Event struct {
	Kind  EventKind
	Point image.Point
}

// Painter owns the canvas until a snapshot is taken.
type Painter struct {
	width       int
	height      int
	strokeWidth float64

	state State
	last  image.Point

	canvas *image.Alpha
	raster *vector.Rasterizer
}

// New returns an idle painter with an empty canvas.
func New(width, height int, strokeWidth float64) *Painter {
	if strokeWidth <= 0 {
		strokeWidth = DefaultStrokeWidth
	}
	return &Painter{
		width:       width,
		height:      height,
		strokeWidth: strokeWidth,
		canvas:      image.NewAlpha(image.Rect(0, 0, width, height)),
	}
}

// State returns the current stroke state.
func (p *Painter) State() State {
	return p.state
}

// Handle dispatches an event.
func (p *Painter) Handle(ev Event) {
	switch ev.Kind {
	case Press:
		p.Press(ev.Point)
	case Move:
		p.Move(ev.Point)
	case Release:
		p.Release()
	}
}

// Press starts a stroke at pt.
func (p *Painter) Press(pt image.Point) {
	p.state = Drawing
	p.last = pt
	p.segment(pt, pt)
}

// Move extends the current stroke to pt. Moves while idle are ignored.
func (p *Painter) Move(pt image.Point) {
	if p.state != Drawing {
		return
	}
	p.segment(p.last, pt)
	p.last = pt
}

// Release ends the current stroke.
func (p *Painter) Release() {
	p.state = Idle
}

// Clear erases every stroke and returns to idle.
func (p *Painter) Clear() {
	for i := range p.canvas.Pix {
		p.canvas.Pix[i] = 0
	}
	p.state = Idle
}

// PaintedCount returns the number of painted pixels.
func (p *Painter) PaintedCount() int {
	n := 0
	for _, a := range p.canvas.Pix {
		if a >= coverageOn {
			n++
		}
	}
	return n
}

// Snapshot returns an independent mask of the painted region.
func (p *Painter) Snapshot() *mask.Mask {
	m := mask.New(p.width, p.height)
	for y := 0; y < p.height; y++ {
		row := p.canvas.Pix[y*p.canvas.Stride : y*p.canvas.Stride+p.width]
		for x, a := range row {
			m.Bits[y*p.width+x] = a >= coverageOn
		}
	}
	return m
}

// Overlay renders f with the painted region highlighted.
func (p *Painter) Overlay(f *frame.Frame) *image.RGBA {
	img := f.ToRGBA()
	hl := colorutil.Magenta
	for y := 0; y < min(p.height, f.Height); y++ {
		for x := 0; x < min(p.width, f.Width); x++ {
			if p.canvas.AlphaAt(x, y).A < coverageOn {
				continue
			}
			c := img.RGBAAt(x, y)
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((uint16(c.R) + uint16(hl.R)) / 2),
				G: uint8((uint16(c.G) + uint16(hl.G)) / 2),
				B: uint8((uint16(c.B) + uint16(hl.B)) / 2),
				A: 255,
			})
		}
	}
	return img
}

// segment rasterizes a segment of strokeWidth between pixel centers a and b,
// capped with a square at each end so consecutive segments join. Each shape
// is composited on its own; overlapping shapes with opposite winding would
// otherwise cancel out.
func (p *Painter) segment(a, b image.Point) {
	hw := p.strokeWidth / 2
	ca, cb := geometry.PixelCenter(a), geometry.PixelCenter(b)

	p.fill(geometry.Square(ca, hw))
	band, ok := geometry.Band(ca, cb, hw)
	if !ok {
		return
	}
	p.fill(band)
	p.fill(geometry.Square(cb, hw))
}

// fill composites a convex quad onto the canvas.
func (p *Painter) fill(q geometry.Quad) {
	if p.raster == nil {
		p.raster = vector.NewRasterizer(p.width, p.height)
	} else {
		p.raster.Reset(p.width, p.height)
	}
	z := p.raster
	z.DrawOp = draw.Over
	z.MoveTo(float32(q[0].X), float32(q[0].Y))
	for _, pt := range q[1:] {
		z.LineTo(float32(pt.X), float32(pt.Y))
	}
	z.ClosePath()
	z.Draw(p.canvas, p.canvas.Bounds(), image.Opaque, image.Point{})
}
