package engine

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/dxfview/dxfview/internal/drawing"
)

// BoundsConfig tunes ComputeBounds. Non-positive sizes and thresholds take
// the values from DefaultBoundsConfig; Padding and TextPadding are used as
// given so they can be switched off.
type BoundsConfig struct {
	OutlierThreshold float64 // |coordinate| above this is ignored
	Padding          float64 // fraction added on each side of the final box
	MinDimension     float64 // width or height below this triggers correction
	MaxAspect        float64 // aspect above this (or below 1/this) triggers correction
	RecenterHalfSize float64 // half-size of the box built around the median
	MinTextBoxSize   float64 // minimum side for text-heavy drawings
	TextPadding      float64 // extra fraction around text-heavy drawings
	PointMargin      float64 // margin around POINT entities

	DisableSmallCorrection  bool
	DisableAspectCorrection bool
}

// DefaultBoundsConfig returns the standard bounds tuning.
func DefaultBoundsConfig() BoundsConfig {
	return BoundsConfig{
		OutlierThreshold: 5000,
		Padding:          0.05,
		MinDimension:     10,
		MaxAspect:        10,
		RecenterHalfSize: 100,
		MinTextBoxSize:   50,
		TextPadding:      0.5,
		PointMargin:      5,
	}
}

func (c BoundsConfig) withDefaults() BoundsConfig {
	d := DefaultBoundsConfig()
	if c.OutlierThreshold <= 0 {
		c.OutlierThreshold = d.OutlierThreshold
	}
	if c.Padding < 0 {
		c.Padding = 0
	}
	if c.MinDimension <= 0 {
		c.MinDimension = d.MinDimension
	}
	if c.MaxAspect <= 1 {
		c.MaxAspect = d.MaxAspect
	}
	if c.RecenterHalfSize <= 0 {
		c.RecenterHalfSize = d.RecenterHalfSize
	}
	if c.MinTextBoxSize <= 0 {
		c.MinTextBoxSize = d.MinTextBoxSize
	}
	if c.TextPadding < 0 {
		c.TextPadding = 0
	}
	if c.PointMargin <= 0 {
		c.PointMargin = d.PointMargin
	}
	return c
}

// FallbackBounds is returned when nothing in the drawing contributed a
// usable coordinate.
var FallbackBounds = BoundingBox{MinX: -50, MinY: -50, Width: 100, Height: 100}

// Text extent estimation.
const (
	textCharWidth     = 0.6 // character width as a fraction of text height
	defaultTextHeight = 10.0
)

// BoundsReport describes how a box was derived.
type BoundsReport struct {
	Entities     int
	Contributing int
	Outliers     int
	TextEntities int
	TextHeavy    bool
	Fallback     bool
	Corrected    string // "", "text-square", "median", "min-dimension"
}

// ComputeBounds returns a robust extent box for entities. It never fails:
// empty and degenerate input map to documented fallbacks, and the result
// always has positive width and height.
func ComputeBounds(entities []drawing.Entity, cfg BoundsConfig) BoundingBox {
	box, _ := ComputeBoundsReport(entities, cfg)
	return box
}

// ComputeBoundsReport is ComputeBounds plus a description of the decisions
// taken along the way.
func ComputeBoundsReport(entities []drawing.Entity, cfg BoundsConfig) (BoundingBox, BoundsReport) {
	cfg = cfg.withDefaults()
	acc := newBoundsAccumulator(cfg.OutlierThreshold)
	report := BoundsReport{Entities: len(entities)}

	for _, e := range entities {
		if e == nil {
			continue
		}
		if drawing.IsText(e) {
			report.TextEntities++
		}
		before := acc.samples()
		acc.addEntity(e, cfg)
		if acc.samples() > before {
			report.Contributing++
		}
	}
	report.Outliers = acc.outliers
	report.TextHeavy = report.TextEntities > 0 && float64(report.TextEntities)/float64(len(entities)) > 0.5

	if !acc.valid() {
		report.Fallback = true
		return FallbackBounds, report
	}

	minX, minY, maxX, maxY := acc.minX, acc.minY, acc.maxX, acc.maxY
	w, h := maxX-minX, maxY-minY

	small := !cfg.DisableSmallCorrection && (w < cfg.MinDimension || h < cfg.MinDimension)
	extreme := false
	if !cfg.DisableAspectCorrection {
		if h <= 0 || w <= 0 {
			extreme = true
		} else if aspect := w / h; aspect > cfg.MaxAspect || aspect < 1/cfg.MaxAspect {
			extreme = true
		}
	}

	switch {
	case (small || extreme) && report.TextHeavy:
		side := math.Max(math.Max(w, h), cfg.MinTextBoxSize)
		pad := side * cfg.TextPadding
		cx, cy := (minX+maxX)/2, (minY+maxY)/2
		half := side/2 + pad
		minX, minY, maxX, maxY = cx-half, cy-half, cx+half, cy+half
		report.Corrected = "text-square"
	case small || extreme:
		mx, my := acc.median()
		r := cfg.RecenterHalfSize
		minX, minY, maxX, maxY = mx-r, my-r, mx+r, my+r
		report.Corrected = "median"
	default:
		// Corrections may be switched off; the box must still have area.
		if w <= 0 {
			cx := (minX + maxX) / 2
			minX, maxX = cx-cfg.MinDimension/2, cx+cfg.MinDimension/2
			report.Corrected = "min-dimension"
		}
		if h <= 0 {
			cy := (minY + maxY) / 2
			minY, maxY = cy-cfg.MinDimension/2, cy+cfg.MinDimension/2
			report.Corrected = "min-dimension"
		}
	}

	w, h = maxX-minX, maxY-minY
	padX, padY := w*cfg.Padding, h*cfg.Padding
	return BoundingBox{
		MinX:   minX - padX,
		MinY:   minY - padY,
		Width:  w + 2*padX,
		Height: h + 2*padY,
	}, report
}

// boundsAccumulator tracks running extents plus the anchor coordinates used
// for median recentering.
type boundsAccumulator struct {
	threshold              float64
	minX, minY, maxX, maxY float64
	xs, ys                 []float64
	outliers               int
}

func newBoundsAccumulator(threshold float64) *boundsAccumulator {
	return &boundsAccumulator{
		threshold: threshold,
		minX:      math.Inf(1),
		minY:      math.Inf(1),
		maxX:      math.Inf(-1),
		maxY:      math.Inf(-1),
	}
}

func (a *boundsAccumulator) valid() bool {
	return !math.IsInf(a.minX, 1) && !math.IsInf(a.maxX, -1)
}

func (a *boundsAccumulator) samples() int { return len(a.xs) }

// addVertex records an anchor coordinate. It reports false when the
// coordinate was rejected as an outlier.
func (a *boundsAccumulator) addVertex(v drawing.Vec2) bool {
	if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.Abs(v.X) > a.threshold || math.Abs(v.Y) > a.threshold {
		a.outliers++
		return false
	}
	a.extend(v.X, v.Y, v.X, v.Y)
	a.xs = append(a.xs, v.X)
	a.ys = append(a.ys, v.Y)
	return true
}

// extend widens the running extents without any outlier test. Only call it
// for offsets derived from an anchor that passed addVertex.
func (a *boundsAccumulator) extend(x0, y0, x1, y1 float64) {
	a.minX = math.Min(a.minX, math.Min(x0, x1))
	a.minY = math.Min(a.minY, math.Min(y0, y1))
	a.maxX = math.Max(a.maxX, math.Max(x0, x1))
	a.maxY = math.Max(a.maxY, math.Max(y0, y1))
}

func (a *boundsAccumulator) addRadius(center *drawing.Vec2, rx, ry float64) {
	if center == nil {
		return
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if !finite(rx) || !finite(ry) || rx > a.threshold || ry > a.threshold {
		a.outliers++
		return
	}
	if !a.addVertex(*center) {
		return
	}
	a.extend(center.X-rx, center.Y-ry, center.X+rx, center.Y+ry)
}

func (a *boundsAccumulator) addPoints(pts []drawing.Vec2) {
	for _, p := range pts {
		a.addVertex(p)
	}
}

func (a *boundsAccumulator) addEntity(e drawing.Entity, cfg BoundsConfig) {
	switch ent := e.(type) {
	case *drawing.Line:
		if ent.Start != nil {
			a.addVertex(*ent.Start)
		}
		if ent.End != nil {
			a.addVertex(*ent.End)
		}
	case *drawing.Polyline:
		a.addPoints(ent.Points)
	case *drawing.Spline:
		if len(ent.ControlPoints) > 0 {
			a.addPoints(ent.ControlPoints)
		} else {
			a.addPoints(ent.FitPoints)
		}
	case *drawing.Circle:
		if ent.Radius != nil {
			a.addRadius(ent.Center, *ent.Radius, *ent.Radius)
		}
	case *drawing.Arc:
		if ent.Radius != nil {
			a.addRadius(ent.Center, *ent.Radius, *ent.Radius)
		}
	case *drawing.Ellipse:
		if ent.MajorAxis != nil {
			major := ent.MajorAxis.Len()
			a.addRadius(ent.Center, major, major)
		}
	case *drawing.Point:
		if ent.Location != nil {
			a.addRadius(ent.Location, cfg.PointMargin, cfg.PointMargin)
		}
	case *drawing.Text:
		a.addText(ent)
	case *drawing.Hatch:
		a.addHatch(ent)
	}
}

func (a *boundsAccumulator) addText(t *drawing.Text) {
	if t.Insert == nil || !a.addVertex(*t.Insert) {
		return
	}
	height := defaultTextHeight
	if t.Height != nil && *t.Height > 0 {
		height = *t.Height
	}
	width := float64(len([]rune(t.Text))) * height * textCharWidth
	x, y := t.Insert.X, t.Insert.Y

	if isVerticalText(t.Rotation) {
		a.extend(x-height, y-width/2, x+height, y+width/2)
		return
	}
	a.extend(x-width*0.1, y-height*1.2, x+width*1.1, y+height*0.3)
}

// isVerticalText reports whether a rotation puts text within 45 degrees of
// vertical.
func isVerticalText(rotation float64) bool {
	r := math.Mod(rotation, 180)
	if r < 0 {
		r += 180
	}
	return r > 45 && r < 135
}

func (a *boundsAccumulator) addHatch(h *drawing.Hatch) {
	for _, path := range h.BoundaryPaths {
		a.addPoints(path.Points)
		for _, edge := range path.Edges {
			switch edge.Type {
			case drawing.EdgeLine:
				if edge.Start != nil {
					a.addVertex(*edge.Start)
				}
				if edge.End != nil {
					a.addVertex(*edge.End)
				}
			case drawing.EdgeArc:
				if edge.Radius != nil {
					a.addRadius(edge.Center, *edge.Radius, *edge.Radius)
				}
			case drawing.EdgeEllipse:
				if edge.MajorAxis != nil {
					major := edge.MajorAxis.Len()
					a.addRadius(edge.Center, major, major)
				}
			case drawing.EdgeSpline:
				a.addPoints(edge.Points)
			}
		}
	}
}

// median returns x[n/2] of the sorted anchor coordinates on each axis.
func (a *boundsAccumulator) median() (float64, float64) {
	return upperMedian(a.xs), upperMedian(a.ys)
}

// upperMedian returns sorted(v)[len(v)/2]. Empirical picks the lower middle
// sample, so the smallest value is dropped first.
func upperMedian(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	switch len(s) {
	case 0:
		return 0
	case 1:
		return s[0]
	}
	return stat.Quantile(0.5, stat.Empirical, s[1:], nil)
}

// BoundingBox is an axis-aligned extent in drawing space.
type BoundingBox struct {
	MinX   float64 `json:"minX"`
	MinY   float64 `json:"minY"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b BoundingBox) MaxX() float64    { return b.MinX + b.Width }
func (b BoundingBox) MaxY() float64    { return b.MinY + b.Height }
func (b BoundingBox) CenterX() float64 { return b.MinX + b.Width/2 }
func (b BoundingBox) CenterY() float64 { return b.MinY + b.Height/2 }

// Contains checks if a point is inside the box.
func (b BoundingBox) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX() && y >= b.MinY && y <= b.MaxY()
}

// IsEmpty checks if the box has zero or negative area.
func (b BoundingBox) IsEmpty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Union returns the smallest box containing both boxes.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	if b.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return b
	}
	minX := math.Min(b.MinX, other.MinX)
	minY := math.Min(b.MinY, other.MinY)
	maxX := math.Max(b.MaxX(), other.MaxX())
	maxY := math.Max(b.MaxY(), other.MaxY())
	return BoundingBox{MinX: minX, MinY: minY, Width: maxX - minX, Height: maxY - minY}
}

// Expand grows the box by d on every side.
func (b BoundingBox) Expand(d float64) BoundingBox {
	return BoundingBox{MinX: b.MinX - d, MinY: b.MinY - d, Width: b.Width + 2*d, Height: b.Height + 2*d}
}
