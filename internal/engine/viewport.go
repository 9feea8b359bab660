package engine

import (
	"math"

	"github.com/dxfview/dxfview/internal/drawing"
)

// Scale limits and steps used when the renderer config leaves them unset.
const (
	DefaultMinScale      = 0.1
	DefaultMaxScale      = 10.0
	DefaultZoomInFactor  = 1.1
	DefaultZoomOutFactor = 0.9
	DefaultFitMargin     = 0.2
	DefaultDragThreshold = 3.0
)

// zoomEpsilon is the smallest scale change that counts as a zoom.
const zoomEpsilon = 1e-9

// ViewState maps drawing space onto the container. The drawing origin sits
// at the container center when both offsets are zero; offsets are in screen
// pixels.
type ViewState struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// DefaultViewState returns scale 1 with no offset.
func DefaultViewState() ViewState {
	return ViewState{Scale: 1}
}

// Size is a container size in screen pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsEmpty reports whether the size has no area.
func (s Size) IsEmpty() bool {
	return !(s.Width > 0 && s.Height > 0)
}

// DrawingToScreen maps a drawing-space point to screen pixels. Screen Y grows
// downward, drawing Y grows upward.
func DrawingToScreen(p drawing.Vec2, state ViewState, container Size) drawing.Vec2 {
	return drawing.Vec2{
		X: container.Width/2 + state.OffsetX + p.X*state.Scale,
		Y: container.Height/2 + state.OffsetY - p.Y*state.Scale,
	}
}

// ScreenToDrawing is the inverse of DrawingToScreen.
func ScreenToDrawing(p drawing.Vec2, state ViewState, container Size) drawing.Vec2 {
	s := state.Scale
	if s <= 0 {
		s = DefaultMinScale
	}
	return drawing.Vec2{
		X: (p.X - container.Width/2 - state.OffsetX) / s,
		Y: (container.Height/2 + state.OffsetY - p.Y) / s,
	}
}

// VisibleRegion returns the drawing-space box currently on screen.
func VisibleRegion(state ViewState, container Size) BoundingBox {
	if container.IsEmpty() || !(state.Scale > 0) {
		return BoundingBox{}
	}
	screen := BoundingBox{Width: container.Width, Height: container.Height}
	return state.Matrix(container).Invert().TransformBox(screen)
}

// Matrix returns the drawing-to-screen transform for a container.
func (v ViewState) Matrix(container Size) Matrix2D {
	return Translate(container.Width/2+v.OffsetX, container.Height/2+v.OffsetY).
		Multiply(Scale(v.Scale, -v.Scale))
}

// ClampScale limits s to [minScale, maxScale]. Non-positive limits fall back
// to the defaults, and a non-positive or NaN s becomes minScale.
func ClampScale(s, minScale, maxScale float64) float64 {
	if !(minScale > 0) {
		minScale = DefaultMinScale
	}
	if !(maxScale > 0) {
		maxScale = DefaultMaxScale
	}
	if maxScale < minScale {
		maxScale = minScale
	}
	if !(s > 0) {
		return minScale
	}
	return math.Min(math.Max(s, minScale), maxScale)
}

// FitToBox centers box in the container, scaled to fill it minus margin
// (a fraction of the container).
func FitToBox(box BoundingBox, container Size, margin float64) ViewState {
	if box.IsEmpty() || container.IsEmpty() {
		return DefaultViewState()
	}
	if margin < 0 || margin >= 1 {
		margin = DefaultFitMargin
	}

	s := math.Min(container.Width/box.Width, container.Height/box.Height) * (1 - margin)
	return ViewState{
		Scale:   s,
		OffsetX: -box.CenterX() * s,
		OffsetY: box.CenterY() * s,
	}
}

// ZoomAtPoint scales by factor while keeping the drawing point under pointer
// fixed. The boolean is false when the clamped scale does not change; the
// state is then returned unchanged.
func ZoomAtPoint(state ViewState, pointer drawing.Vec2, container Size, factor, minScale, maxScale float64) (ViewState, bool) {
	current := ClampScale(state.Scale, minScale, maxScale)
	next := ClampScale(current*factor, minScale, maxScale)
	if math.Abs(next-state.Scale) < zoomEpsilon {
		return state, false
	}

	anchor := ScreenToDrawing(pointer, state, container)
	return ViewState{
		Scale:   next,
		OffsetX: pointer.X - container.Width/2 - anchor.X*next,
		OffsetY: pointer.Y - container.Height/2 + anchor.Y*next,
	}, true
}

// PanBy moves the view by a screen-space delta.
func PanBy(state ViewState, dx, dy float64) ViewState {
	state.OffsetX += dx
	state.OffsetY += dy
	return state
}

// ResizeView adapts state to a new container size so the drawing region
// visible before stays visible: the center point is kept and the scale
// follows the tighter of the two size ratios.
func ResizeView(state ViewState, old, next Size, minScale, maxScale float64) ViewState {
	if old.IsEmpty() || next.IsEmpty() {
		return state
	}

	center := ScreenToDrawing(drawing.Vec2{X: old.Width / 2, Y: old.Height / 2}, state, old)
	ratio := math.Min(next.Width/old.Width, next.Height/old.Height)
	s := ClampScale(state.Scale*ratio, minScale, maxScale)
	return ViewState{
		Scale:   s,
		OffsetX: -center.X * s,
		OffsetY: center.Y * s,
	}
}

// DragTracker tells a click from a drag. Movement shorter than the
// threshold never pans, and releasing without panning counts as a click.
type DragTracker struct {
	threshold float64
	pressed   bool
	dragging  bool
	start     drawing.Vec2
	last      drawing.Vec2
}

// NewDragTracker creates a tracker with the given threshold in pixels.
func NewDragTracker(threshold float64) *DragTracker {
	if threshold < 0 {
		threshold = DefaultDragThreshold
	}
	return &DragTracker{threshold: threshold}
}

// Down starts tracking at p.
func (d *DragTracker) Down(p drawing.Vec2) {
	d.pressed = true
	d.dragging = false
	d.start, d.last = p, p
}

// Move returns the pan delta since the last emitted position. ok is false
// while the pointer is up or still inside the threshold.
func (d *DragTracker) Move(p drawing.Vec2) (dx, dy float64, ok bool) {
	if !d.pressed {
		return 0, 0, false
	}
	if !d.dragging {
		if math.Hypot(p.X-d.start.X, p.Y-d.start.Y) < d.threshold {
			return 0, 0, false
		}
		d.dragging = true
	}
	dx, dy = p.X-d.last.X, p.Y-d.last.Y
	d.last = p
	return dx, dy, true
}

// Up ends tracking and reports whether the gesture was a click.
func (d *DragTracker) Up() bool {
	click := d.pressed && !d.dragging
	d.pressed, d.dragging = false, false
	return click
}
