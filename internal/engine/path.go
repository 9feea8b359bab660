package engine

import (
	"math"

	"github.com/dxfview/dxfview/internal/drawing"
)

// PathCommand is a single path segment in Canvas2D form:
// ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], ["Q", x1, y1, x, y], ["Z"].
type PathCommand []interface{}

// Bezier constant for a quarter circle: 4 * (sqrt(2) - 1) / 3.
const kappa = 0.5522847498

// textCharAdvance is the assumed glyph advance as a fraction of font size.
const textCharAdvance = 0.6

// Path returns the primitive's outline in drawing space. Text has no path;
// it is drawn with its own op.
func (p Primitive) Path() []PathCommand {
	switch p.Kind {
	case PrimSegment, PrimPolyline:
		return polylinePath(p.Points, false)
	case PrimPolygon, PrimRegion:
		return polylinePath(p.Points, true)
	case PrimCircle:
		return ellipsePath(p.Center, p.RX, p.RX, 0)
	case PrimEllipse:
		return ellipsePath(p.Center, p.RX, p.RY, p.Rotation)
	case PrimArc:
		sweep := p.SweepAngle
		if sweep == 0 {
			sweep = 360
		}
		return arcPath(p.Center, p.RX, p.StartAngle, sweep)
	}
	return nil
}

func polylinePath(pts []drawing.Vec2, closed bool) []PathCommand {
	if len(pts) == 0 {
		return nil
	}
	path := make([]PathCommand, 0, len(pts)+1)
	path = append(path, PathCommand{"M", pts[0].X, pts[0].Y})
	for _, v := range pts[1:] {
		path = append(path, PathCommand{"L", v.X, v.Y})
	}
	if closed {
		path = append(path, PathCommand{"Z"})
	}
	return path
}

// ellipsePath approximates an ellipse with four cubic beziers around the
// origin, then moves it into place.
func ellipsePath(c drawing.Vec2, rx, ry, rotation float64) []PathCommand {
	kx, ky := rx*kappa, ry*kappa
	local := [][]float64{
		{rx, 0},
		{rx, ky, kx, ry, 0, ry},
		{-kx, ry, -rx, ky, -rx, 0},
		{-rx, -ky, -kx, -ry, 0, -ry},
		{kx, -ry, rx, -ky, rx, 0},
	}

	m := Translate(c.X, c.Y).Multiply(RotateDegrees(rotation))
	path := make([]PathCommand, 0, len(local)+1)
	for i, coords := range local {
		op := "C"
		if i == 0 {
			op = "M"
		}
		path = append(path, transformCommand(m, op, coords))
	}
	return append(path, PathCommand{"Z"})
}

// arcPath approximates a counter-clockwise circular arc with one cubic
// bezier per quarter turn (or less).
func arcPath(c drawing.Vec2, r, startDeg, sweepDeg float64) []PathCommand {
	segments := int(math.Ceil(sweepDeg / 90))
	if segments < 1 {
		segments = 1
	}
	step := sweepDeg / float64(segments) * math.Pi / 180
	k := 4.0 / 3.0 * math.Tan(step/4)

	a0 := startDeg * math.Pi / 180
	path := []PathCommand{{"M", c.X + r*math.Cos(a0), c.Y + r*math.Sin(a0)}}
	for i := 0; i < segments; i++ {
		a1 := a0 + step
		cos0, sin0 := math.Cos(a0), math.Sin(a0)
		cos1, sin1 := math.Cos(a1), math.Sin(a1)
		path = append(path, PathCommand{
			"C",
			c.X + r*(cos0-k*sin0), c.Y + r*(sin0+k*cos0),
			c.X + r*(cos1+k*sin1), c.Y + r*(sin1-k*cos1),
			c.X + r*cos1, c.Y + r*sin1,
		})
		a0 = a1
	}
	return path
}

func transformCommand(m Matrix2D, op string, coords []float64) PathCommand {
	cmd := PathCommand{op}
	for i := 0; i+1 < len(coords); i += 2 {
		x, y := m.TransformPoint(coords[i], coords[i+1])
		cmd = append(cmd, x, y)
	}
	return cmd
}

// textCorners returns the corners of the estimated text box, rotated about
// the insert point.
func (p Primitive) textCorners() []drawing.Vec2 {
	if p.Kind != PrimText || len(p.Points) == 0 {
		return nil
	}
	in := p.Points[0]
	w := float64(len([]rune(p.Text))) * p.FontSize * textCharAdvance
	h := p.FontSize
	m := RotateAbout(p.Rotation, in.X, in.Y)
	return []drawing.Vec2{
		m.Apply(drawing.Vec2{X: in.X, Y: in.Y}),
		m.Apply(drawing.Vec2{X: in.X + w, Y: in.Y}),
		m.Apply(drawing.Vec2{X: in.X + w, Y: in.Y + h}),
		m.Apply(drawing.Vec2{X: in.X, Y: in.Y + h}),
	}
}

// Bounds returns the axis-aligned box of the primitive in drawing space.
// Bezier control points are included, so curved shapes get a slightly
// generous box.
func (p Primitive) Bounds() BoundingBox {
	if p.Kind == PrimText {
		return computePathBounds(polylinePath(p.textCorners(), true), IdentityMatrix())
	}
	return computePathBounds(p.Path(), IdentityMatrix())
}

// computePathBounds computes the axis-aligned bounding box of a path after
// applying transform.
func computePathBounds(path []PathCommand, transform Matrix2D) BoundingBox {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	for _, cmd := range path {
		if len(cmd) == 0 {
			continue
		}
		if op, ok := cmd[0].(string); !ok || op == "Z" {
			continue
		}
		for i := 1; i+1 < len(cmd); i += 2 {
			x, y := transform.TransformPoint(toFloat64(cmd[i]), toFloat64(cmd[i+1]))
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
	}

	if math.IsInf(minX, 1) {
		return BoundingBox{}
	}
	return BoundingBox{MinX: minX, MinY: minY, Width: maxX - minX, Height: maxY - minY}
}

// toFloat64 converts an interface{} to float64.
func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
