package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxfview/dxfview/internal/drawing"
)

func line(x0, y0, x1, y1 float64) *drawing.Line {
	return &drawing.Line{
		Base:  drawing.Base{Type: drawing.TypeLine},
		Start: &drawing.Vec2{X: x0, Y: y0},
		End:   &drawing.Vec2{X: x1, Y: y1},
	}
}

func square(half float64) *drawing.Polyline {
	return &drawing.Polyline{
		Base:   drawing.Base{Type: drawing.TypeLWPolyline},
		Points: []drawing.Vec2{{X: -half, Y: -half}, {X: half, Y: -half}, {X: half, Y: half}, {X: -half, Y: half}},
		Closed: true,
	}
}

func TestComputeBoundsEmptyInput(t *testing.T) {
	first := ComputeBounds(nil, DefaultBoundsConfig())
	second := ComputeBounds([]drawing.Entity{}, DefaultBoundsConfig())

	assert.Equal(t, FallbackBounds, first)
	assert.Equal(t, first, second)
}

func TestComputeBoundsRejectsOutliers(t *testing.T) {
	entities := []drawing.Entity{
		square(10),
		line(0, 0, 1e7, 1e7),
	}

	box, report := ComputeBoundsReport(entities, DefaultBoundsConfig())

	// [-10, 10] plus 5% padding on each side.
	assert.InDelta(t, -11, box.MinX, 1e-9)
	assert.InDelta(t, -11, box.MinY, 1e-9)
	assert.InDelta(t, 22, box.Width, 1e-9)
	assert.InDelta(t, 22, box.Height, 1e-9)
	assert.Equal(t, 1, report.Outliers)
	assert.Empty(t, report.Corrected)
}

func TestComputeBoundsAllOutliersFallsBack(t *testing.T) {
	box, report := ComputeBoundsReport([]drawing.Entity{line(6000, 6000, -9000, 7000)}, DefaultBoundsConfig())

	assert.Equal(t, FallbackBounds, box)
	assert.True(t, report.Fallback)
	assert.Equal(t, 2, report.Outliers)
}

func TestComputeBoundsMalformedAndUnknownContributeNothing(t *testing.T) {
	entities := []drawing.Entity{
		&drawing.Circle{Base: drawing.Base{Type: drawing.TypeCircle}, Center: &drawing.Vec2{}},
		&drawing.Line{Base: drawing.Base{Type: drawing.TypeLine}},
		&drawing.Unknown{Base: drawing.Base{Type: "DIMENSION"}},
		nil,
	}

	assert.Equal(t, FallbackBounds, ComputeBounds(entities, DefaultBoundsConfig()))
}

func TestComputeBoundsSmallDrawingRecentersOnMedian(t *testing.T) {
	entities := []drawing.Entity{
		&drawing.Circle{
			Base:   drawing.Base{Type: drawing.TypeCircle},
			Center: &drawing.Vec2{X: 3, Y: 4},
			Radius: drawing.Ptr(1.0),
		},
	}

	box, report := ComputeBoundsReport(entities, DefaultBoundsConfig())

	assert.Equal(t, "median", report.Corrected)
	assert.InDelta(t, 3, box.CenterX(), 1e-9)
	assert.InDelta(t, 4, box.CenterY(), 1e-9)
	assert.InDelta(t, 220, box.Width, 1e-9)
	assert.InDelta(t, 220, box.Height, 1e-9)
}

func TestComputeBoundsMedianResistsSkew(t *testing.T) {
	// A thin horizontal strip: most vertices sit near x=0, one far right.
	entities := []drawing.Entity{
		line(0, 0, 1, 0),
		line(2, 0, 3, 0),
		line(4, 0, 2000, 0),
	}

	box, report := ComputeBoundsReport(entities, DefaultBoundsConfig())

	require.Equal(t, "median", report.Corrected)
	// Sorted xs: 0 1 2 3 4 2000; x[n/2] is 3.
	assert.InDelta(t, 3, box.CenterX(), 1e-9)
	assert.InDelta(t, 0, box.CenterY(), 1e-9)
}

func TestComputeBoundsTextHeavySquaresUp(t *testing.T) {
	entities := []drawing.Entity{
		&drawing.Text{
			Base:   drawing.Base{Type: drawing.TypeText},
			Text:   "AB",
			Insert: &drawing.Vec2{},
			Height: drawing.Ptr(2.0),
		},
	}

	box, report := ComputeBoundsReport(entities, DefaultBoundsConfig())

	assert.True(t, report.TextHeavy)
	assert.Equal(t, "text-square", report.Corrected)
	// Text extent x [-0.24, 2.64], y [-2.4, 0.6]; squared to 50 + 2*25, then 5% padding.
	assert.InDelta(t, 110, box.Width, 1e-9)
	assert.InDelta(t, 110, box.Height, 1e-9)
	assert.InDelta(t, 1.2, box.CenterX(), 1e-9)
	assert.InDelta(t, -0.9, box.CenterY(), 1e-9)
}

func TestComputeBoundsEntityRules(t *testing.T) {
	tests := []struct {
		name   string
		entity drawing.Entity
		minX   float64
		width  float64
	}{
		{
			name: "ellipse uses major radius on both axes",
			entity: &drawing.Ellipse{
				Base:      drawing.Base{Type: drawing.TypeEllipse},
				Center:    &drawing.Vec2{},
				MajorAxis: &drawing.Vec2{X: 30, Y: 40},
				Ratio:     drawing.Ptr(0.5),
			},
			minX:  -55,
			width: 110,
		},
		{
			name: "point gets a fixed margin",
			entity: &drawing.Point{
				Base:     drawing.Base{Type: drawing.TypePoint},
				Location: &drawing.Vec2{},
			},
			minX:  -5.5,
			width: 11,
		},
		{
			name: "arc ignores its angular span",
			entity: &drawing.Arc{
				Base:       drawing.Base{Type: drawing.TypeArc},
				Center:     &drawing.Vec2{},
				Radius:     drawing.Ptr(20.0),
				StartAngle: drawing.Ptr(0.0),
				EndAngle:   drawing.Ptr(90.0),
			},
			minX:  -22,
			width: 44,
		},
		{
			name: "hatch edges",
			entity: &drawing.Hatch{
				Base: drawing.Base{Type: drawing.TypeHatch},
				BoundaryPaths: []drawing.BoundaryPath{{
					Type: drawing.PathEdge,
					Edges: []drawing.Edge{
						{Type: drawing.EdgeLine, Start: &drawing.Vec2{X: -20}, End: &drawing.Vec2{X: 20}},
						{Type: drawing.EdgeArc, Center: &drawing.Vec2{}, Radius: drawing.Ptr(20.0)},
					},
				}},
			},
			minX:  -22,
			width: 44,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box := ComputeBounds([]drawing.Entity{tt.entity}, DefaultBoundsConfig())
			assert.InDelta(t, tt.minX, box.MinX, 1e-9)
			assert.InDelta(t, tt.width, box.Width, 1e-9)
		})
	}
}

func TestComputeBoundsCorrectionsDisabledKeepsArea(t *testing.T) {
	cfg := DefaultBoundsConfig()
	cfg.DisableSmallCorrection = true
	cfg.DisableAspectCorrection = true

	box, report := ComputeBoundsReport([]drawing.Entity{line(0, 0, 100, 0)}, cfg)

	assert.Equal(t, "min-dimension", report.Corrected)
	assert.InDelta(t, 110, box.Width, 1e-9)
	assert.InDelta(t, 11, box.Height, 1e-9)
}

func TestComputeBoundsAlwaysPositive(t *testing.T) {
	inputs := [][]drawing.Entity{
		nil,
		{line(1, 1, 1, 1)},
		{line(0, 0, 0, 500)},
		{square(0)},
		{&drawing.Text{Base: drawing.Base{Type: drawing.TypeMText}, Insert: &drawing.Vec2{X: 4999, Y: -4999}}},
		drawing.NewSampleDrawing().VisibleEntities(nil),
	}

	for _, entities := range inputs {
		box := ComputeBounds(entities, DefaultBoundsConfig())
		assert.Greater(t, box.Width, 0.0)
		assert.Greater(t, box.Height, 0.0)
	}
}

func TestIsVerticalText(t *testing.T) {
	assert.False(t, isVerticalText(0))
	assert.False(t, isVerticalText(45))
	assert.True(t, isVerticalText(90))
	assert.True(t, isVerticalText(270))
	assert.True(t, isVerticalText(-90))
	assert.False(t, isVerticalText(180))
}

func TestBoundingBoxHelpers(t *testing.T) {
	a := BoundingBox{MinX: 0, MinY: 0, Width: 10, Height: 10}
	b := BoundingBox{MinX: 5, MinY: -5, Width: 10, Height: 10}

	u := a.Union(b)
	assert.Equal(t, BoundingBox{MinX: 0, MinY: -5, Width: 15, Height: 15}, u)
	assert.True(t, a.Contains(10, 10))
	assert.False(t, a.Contains(10.1, 10))
	assert.Equal(t, a, BoundingBox{}.Union(a))
	assert.Equal(t, 5.0, a.CenterX())
}

func TestUpperMedian(t *testing.T) {
	assert.Equal(t, 0.0, upperMedian(nil))
	assert.Equal(t, 7.0, upperMedian([]float64{7}))
	assert.Equal(t, 9.0, upperMedian([]float64{9, 1}))
	assert.Equal(t, 2.0, upperMedian([]float64{3, 1, 2}))
	assert.Equal(t, 3.0, upperMedian([]float64{4, 1, 3, 2}))
}

func TestComputeBoundsRejectsNonFiniteRadius(t *testing.T) {
	d, err := drawing.Decode([]byte(`{"L": [
		{"type": "LINE", "start": [0, 0], "end": [10, 10]},
		{"type": "CIRCLE", "center": [5, 5], "radius": 1e999},
		{"type": "ARC", "center": [5, 5], "radius": -1e999, "start_angle": 0, "end_angle": 90}
	]}`))
	require.NoError(t, err)

	box, report := ComputeBoundsReport(d.VisibleEntities(nil), DefaultBoundsConfig())

	assert.Equal(t, 2, report.Outliers)
	assert.False(t, math.IsNaN(box.Width) || math.IsNaN(box.MinX))
	assert.Greater(t, box.Width, 0.0)
	assert.Greater(t, box.Height, 0.0)

	view := FitToBox(box, Size{Width: 800, Height: 600}, DefaultFitMargin)
	assert.False(t, math.IsNaN(view.Scale))
	assert.False(t, math.IsNaN(view.OffsetX))
}

func TestComputeBoundsRejectsHugeRadius(t *testing.T) {
	entities := []drawing.Entity{
		square(10),
		&drawing.Circle{
			Base:   drawing.Base{Type: drawing.TypeCircle},
			Center: &drawing.Vec2{},
			Radius: drawing.Ptr(1e8),
		},
	}

	box, report := ComputeBoundsReport(entities, DefaultBoundsConfig())

	assert.Equal(t, 1, report.Outliers)
	assert.InDelta(t, 22, box.Width, 1e-9)
}
