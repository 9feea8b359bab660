package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxfview/dxfview/internal/drawing"
)

var container = Size{Width: 800, Height: 600}

func TestZoomAtPointKeepsAnchor(t *testing.T) {
	pointers := []drawing.Vec2{{X: 0, Y: 0}, {X: 400, Y: 300}, {X: 731, Y: 17}, {X: 12.5, Y: 590}}
	scales := []float64{0.1, 0.37, 1, 4.2, 10}

	for _, factor := range []float64{DefaultZoomOutFactor, DefaultZoomInFactor} {
		for _, s := range scales {
			for _, ptr := range pointers {
				state := ViewState{Scale: s, OffsetX: -35, OffsetY: 120}
				before := ScreenToDrawing(ptr, state, container)

				next, changed := ZoomAtPoint(state, ptr, container, factor, DefaultMinScale, DefaultMaxScale)
				if !changed {
					assert.Equal(t, state, next)
					continue
				}
				after := ScreenToDrawing(ptr, next, container)
				assert.InDelta(t, before.X, after.X, 1e-6)
				assert.InDelta(t, before.Y, after.Y, 1e-6)
			}
		}
	}
}

func TestZoomAtPointNoOpAtLimit(t *testing.T) {
	state := ViewState{Scale: DefaultMaxScale, OffsetX: 3}

	next, changed := ZoomAtPoint(state, drawing.Vec2{X: 10, Y: 10}, container, DefaultZoomInFactor, DefaultMinScale, DefaultMaxScale)
	assert.False(t, changed)
	assert.Equal(t, state, next)

	next, changed = ZoomAtPoint(state, drawing.Vec2{X: 10, Y: 10}, container, DefaultZoomOutFactor, DefaultMinScale, DefaultMaxScale)
	assert.True(t, changed)
	assert.InDelta(t, 9, next.Scale, 1e-9)
}

func TestScreenDrawingRoundTrip(t *testing.T) {
	states := []ViewState{
		DefaultViewState(),
		{Scale: 0.1, OffsetX: 1000, OffsetY: -1000},
		{Scale: 7.5, OffsetX: -3.25, OffsetY: 44},
	}
	points := []drawing.Vec2{{X: 0, Y: 0}, {X: -4999, Y: 4999}, {X: 1.5, Y: -2.25}}

	for _, st := range states {
		for _, p := range points {
			back := ScreenToDrawing(DrawingToScreen(p, st, container), st, container)
			assert.InDelta(t, p.X, back.X, 1e-9)
			assert.InDelta(t, p.Y, back.Y, 1e-9)
		}
	}
}

func TestDrawingOriginAtContainerCenter(t *testing.T) {
	p := DrawingToScreen(drawing.Vec2{}, DefaultViewState(), container)
	assert.Equal(t, drawing.Vec2{X: 400, Y: 300}, p)

	// Drawing Y up is screen Y down.
	up := DrawingToScreen(drawing.Vec2{Y: 10}, DefaultViewState(), container)
	assert.Equal(t, 290.0, up.Y)

	m := ViewState{Scale: 2, OffsetX: 5, OffsetY: -5}.Matrix(container)
	x, y := m.TransformPoint(3, 4)
	want := DrawingToScreen(drawing.Vec2{X: 3, Y: 4}, ViewState{Scale: 2, OffsetX: 5, OffsetY: -5}, container)
	assert.InDelta(t, want.X, x, 1e-9)
	assert.InDelta(t, want.Y, y, 1e-9)
}

func TestClampScale(t *testing.T) {
	assert.Equal(t, 0.1, ClampScale(0, 0.1, 10))
	assert.Equal(t, 0.1, ClampScale(-3, 0.1, 10))
	assert.Equal(t, 10.0, ClampScale(50, 0.1, 10))
	assert.Equal(t, 2.0, ClampScale(2, 0.1, 10))
	assert.Equal(t, 100.0, ClampScale(500, 0.1, 100))
	assert.Equal(t, DefaultMinScale, ClampScale(0.001, 0, 0))
}

func TestFitToBox(t *testing.T) {
	box := BoundingBox{MinX: 0, MinY: 0, Width: 100, Height: 50}

	st := FitToBox(box, container, DefaultFitMargin)
	assert.InDelta(t, 6.4, st.Scale, 1e-9)

	center := DrawingToScreen(drawing.Vec2{X: 50, Y: 25}, st, container)
	assert.InDelta(t, 400, center.X, 1e-9)
	assert.InDelta(t, 300, center.Y, 1e-9)

	assert.Equal(t, DefaultViewState(), FitToBox(box, Size{}, DefaultFitMargin))
}

func TestPanBy(t *testing.T) {
	st := PanBy(ViewState{Scale: 2, OffsetX: 1, OffsetY: 1}, 10, -4)
	assert.Equal(t, ViewState{Scale: 2, OffsetX: 11, OffsetY: -3}, st)
}

func TestResizeViewKeepsVisibleRegion(t *testing.T) {
	st := ViewState{Scale: 2, OffsetX: 40, OffsetY: -20}
	center := ScreenToDrawing(drawing.Vec2{X: 400, Y: 300}, st, container)

	bigger := Size{Width: 1600, Height: 900}
	next := ResizeView(st, container, bigger, DefaultMinScale, DefaultMaxScale)

	// Tighter ratio is 900/600.
	assert.InDelta(t, 3, next.Scale, 1e-9)
	after := ScreenToDrawing(drawing.Vec2{X: 800, Y: 450}, next, bigger)
	assert.InDelta(t, center.X, after.X, 1e-9)
	assert.InDelta(t, center.Y, after.Y, 1e-9)

	assert.Equal(t, st, ResizeView(st, Size{}, bigger, DefaultMinScale, DefaultMaxScale))
}

func TestDragTracker(t *testing.T) {
	d := NewDragTracker(DefaultDragThreshold)

	d.Down(drawing.Vec2{X: 10, Y: 10})
	_, _, ok := d.Move(drawing.Vec2{X: 11, Y: 11})
	assert.False(t, ok)
	assert.True(t, d.Up(), "small wobble is still a click")

	d.Down(drawing.Vec2{X: 10, Y: 10})
	dx, dy, ok := d.Move(drawing.Vec2{X: 20, Y: 10})
	require.True(t, ok)
	assert.Equal(t, 10.0, dx)
	assert.Equal(t, 0.0, dy)
	dx, _, ok = d.Move(drawing.Vec2{X: 25, Y: 10})
	require.True(t, ok)
	assert.Equal(t, 5.0, dx)
	assert.False(t, d.Up())

	_, _, ok = d.Move(drawing.Vec2{X: 50, Y: 50})
	assert.False(t, ok)
}

func TestVisibleRegion(t *testing.T) {
	st := ViewState{Scale: 2, OffsetX: 100, OffsetY: -50}

	r := VisibleRegion(st, container)
	assert.InDelta(t, -250, r.MinX, 1e-9)
	assert.InDelta(t, -175, r.MinY, 1e-9)
	assert.InDelta(t, 400, r.Width, 1e-9)
	assert.InDelta(t, 300, r.Height, 1e-9)

	topLeft := ScreenToDrawing(drawing.Vec2{}, st, container)
	assert.InDelta(t, topLeft.X, r.MinX, 1e-9)
	assert.InDelta(t, topLeft.Y, r.MaxY(), 1e-9)

	assert.True(t, VisibleRegion(st, Size{}).IsEmpty())
}
