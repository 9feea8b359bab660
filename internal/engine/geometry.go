package engine

import (
	"fmt"
	"math"

	"github.com/dxfview/dxfview/internal/drawing"
)

// PrimitiveKind names a renderable shape.
type PrimitiveKind string

const (
	PrimSegment  PrimitiveKind = "segment"
	PrimCircle   PrimitiveKind = "circle"
	PrimArc      PrimitiveKind = "arc"
	PrimEllipse  PrimitiveKind = "ellipse"
	PrimPolyline PrimitiveKind = "polyline"
	PrimPolygon  PrimitiveKind = "polygon"
	PrimText     PrimitiveKind = "text"
	PrimRegion   PrimitiveKind = "region"
)

// Identity ties a primitive back to its source entity. The selection code is
// the only consumer; the mapper just copies it through.
type Identity struct {
	Handle string `json:"handle,omitempty"`
	Layer  string `json:"layer"`
	Type   string `json:"type"`
	Index  int    `json:"index"`
}

// Primitive is a drawing-space shape description. Which fields are set
// depends on Kind:
//
//	segment           Points[0..1]
//	circle            Center, RX (== RY)
//	arc               Center, RX, Points[0] start, Points[1] end, LargeArc, Sweep,
//	                  StartAngle, SweepAngle
//	ellipse           Center, RX, RY, Rotation
//	polyline/polygon  Points
//	text              Points[0] insert, Text, FontSize, Rotation
//	region            Points (outline), Filled
type Primitive struct {
	Kind       PrimitiveKind  `json:"kind"`
	ID         Identity       `json:"id"`
	Points     []drawing.Vec2 `json:"points,omitempty"`
	Center     drawing.Vec2   `json:"center"`
	RX         float64        `json:"rx,omitempty"`
	RY         float64        `json:"ry,omitempty"`
	Rotation   float64        `json:"rotation,omitempty"`
	LargeArc   bool           `json:"largeArc,omitempty"`
	Sweep      bool           `json:"sweep,omitempty"`
	StartAngle float64        `json:"startAngle,omitempty"` // degrees, counter-clockwise
	SweepAngle float64        `json:"sweepAngle,omitempty"`
	Text       string         `json:"text,omitempty"`
	FontSize   float64        `json:"fontSize,omitempty"`
	Filled     bool           `json:"filled,omitempty"`
	Color      string         `json:"color,omitempty"`
}

// MapOptions controls size conventions of the mapper.
type MapOptions struct {
	TextScale   float64 // font size = text height * TextScale
	PointRadius float64 // radius of POINT markers in drawing units
}

// DefaultMapOptions returns the standard mapping conventions.
func DefaultMapOptions() MapOptions {
	return MapOptions{TextScale: 10, PointRadius: 2}
}

// MapToPrimitive converts one entity into a primitive. The boolean is false
// for unknown entities and for entities missing a field their type requires;
// nothing is drawn for those.
func MapToPrimitive(e drawing.Entity, id Identity, opts MapOptions) (Primitive, bool) {
	if e == nil {
		return Primitive{}, false
	}
	if opts.TextScale <= 0 {
		opts.TextScale = DefaultMapOptions().TextScale
	}
	if opts.PointRadius <= 0 {
		opts.PointRadius = DefaultMapOptions().PointRadius
	}

	h := e.Header()
	if id.Type == "" {
		id.Type = h.Type
	}
	if id.Layer == "" {
		id.Layer = h.Layer
	}
	if id.Handle == "" {
		id.Handle = h.Handle
	}
	p := Primitive{ID: id, Color: h.RGB}

	switch ent := e.(type) {
	case *drawing.Line:
		if ent.Start == nil || ent.End == nil {
			return Primitive{}, false
		}
		p.Kind = PrimSegment
		p.Points = []drawing.Vec2{*ent.Start, *ent.End}

	case *drawing.Circle:
		if ent.Center == nil || ent.Radius == nil || !finite(*ent.Radius) {
			return Primitive{}, false
		}
		p.Kind = PrimCircle
		p.Center = *ent.Center
		p.RX, p.RY = math.Abs(*ent.Radius), math.Abs(*ent.Radius)

	case *drawing.Point:
		if ent.Location == nil {
			return Primitive{}, false
		}
		p.Kind = PrimCircle
		p.Center = *ent.Location
		p.RX, p.RY = opts.PointRadius, opts.PointRadius
		p.Filled = true

	case *drawing.Arc:
		if ent.Center == nil || ent.Radius == nil || ent.StartAngle == nil || ent.EndAngle == nil {
			return Primitive{}, false
		}
		r := math.Abs(*ent.Radius)
		p.Kind = PrimArc
		p.Center = *ent.Center
		p.RX, p.RY = r, r
		p.Points = []drawing.Vec2{
			pointOnCircle(*ent.Center, r, *ent.StartAngle),
			pointOnCircle(*ent.Center, r, *ent.EndAngle),
		}
		p.StartAngle = *ent.StartAngle
		p.SweepAngle = ArcSweep(*ent.StartAngle, *ent.EndAngle)
		p.LargeArc = p.SweepAngle > 180
		p.Sweep = true

	case *drawing.Ellipse:
		if ent.Center == nil || ent.MajorAxis == nil || ent.Ratio == nil {
			return Primitive{}, false
		}
		rx := ent.MajorAxis.Len()
		p.Kind = PrimEllipse
		p.Center = *ent.Center
		p.RX = rx
		p.RY = rx * *ent.Ratio
		p.Rotation = math.Atan2(ent.MajorAxis.Y, ent.MajorAxis.X) * 180 / math.Pi

	case *drawing.Polyline:
		if len(ent.Points) < 2 {
			return Primitive{}, false
		}
		p.Kind = polyKind(ent.Closed)
		p.Points = ent.Points

	case *drawing.Spline:
		// Control points stand in for the curve; no NURBS evaluation.
		pts := ent.ControlPoints
		if len(pts) == 0 {
			pts = ent.FitPoints
		}
		if len(pts) < 2 {
			return Primitive{}, false
		}
		p.Kind = polyKind(ent.Closed)
		p.Points = pts

	case *drawing.Text:
		if ent.Insert == nil || ent.Height == nil {
			return Primitive{}, false
		}
		p.Kind = PrimText
		p.Points = []drawing.Vec2{*ent.Insert}
		p.Text = ent.Text
		p.FontSize = *ent.Height * opts.TextScale
		p.Rotation = ent.Rotation

	case *drawing.Hatch:
		outline, ok := hatchPlaceholder(ent)
		if !ok {
			return Primitive{}, false
		}
		p.Kind = PrimRegion
		p.Points = outline
		p.Filled = ent.SolidFill

	default:
		return Primitive{}, false
	}

	return p, true
}

// ArcSweep returns the counter-clockwise sweep from start to end in degrees,
// normalized to [0, 360).
func ArcSweep(start, end float64) float64 {
	return math.Mod(math.Mod(end-start, 360)+360, 360)
}

func pointOnCircle(c drawing.Vec2, r, degrees float64) drawing.Vec2 {
	rad := degrees * math.Pi / 180
	return drawing.Vec2{X: c.X + r*math.Cos(rad), Y: c.Y + r*math.Sin(rad)}
}

func polyKind(closed bool) PrimitiveKind {
	if closed {
		return PrimPolygon
	}
	return PrimPolyline
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// hatchPlaceholder returns the rectangle spanned by the hatch boundary data.
// Exact boundary geometry is not reproduced.
func hatchPlaceholder(h *drawing.Hatch) ([]drawing.Vec2, bool) {
	acc := newBoundsAccumulator(math.Inf(1))
	acc.addHatch(h)
	if !acc.valid() {
		return nil, false
	}
	return []drawing.Vec2{
		{X: acc.minX, Y: acc.minY},
		{X: acc.maxX, Y: acc.minY},
		{X: acc.maxX, Y: acc.maxY},
		{X: acc.minX, Y: acc.maxY},
	}, true
}

// SVGArcPath encodes an arc primitive as an SVG path in drawing space.
func (p Primitive) SVGArcPath() string {
	if p.Kind != PrimArc || len(p.Points) < 2 {
		return ""
	}
	return fmt.Sprintf("M %g %g A %g %g 0 %d %d %g %g",
		p.Points[0].X, p.Points[0].Y, p.RX, p.RY, flag(p.LargeArc), flag(p.Sweep), p.Points[1].X, p.Points[1].Y)
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
