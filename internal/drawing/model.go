package drawing

import (
	"encoding/json"
	"fmt"
	"math"
)

// Entity type names as emitted by the parser.
const (
	TypeLine       = "LINE"
	TypeCircle     = "CIRCLE"
	TypeArc        = "ARC"
	TypeEllipse    = "ELLIPSE"
	TypePoint      = "POINT"
	TypeLWPolyline = "LWPOLYLINE"
	TypePolyline   = "POLYLINE"
	TypeSpline     = "SPLINE"
	TypeText       = "TEXT"
	TypeMText      = "MTEXT"
	TypeHatch      = "HATCH"
)

// Vec2 is a drawing-space coordinate. Z values from the parser are dropped.
type Vec2 struct {
	X float64
	Y float64
}

// MarshalJSON encodes the point as [x, y] like the parser does.
func (v Vec2) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{v.X, v.Y})
}

// UnmarshalJSON accepts [x, y] or [x, y, z].
func (v *Vec2) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return err
	}
	if len(coords) < 2 {
		return fmt.Errorf("point needs at least 2 coordinates, got %d", len(coords))
	}
	v.X, v.Y = coords[0], coords[1]
	return nil
}

// Len returns the vector magnitude.
func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Base holds the fields common to every entity variant.
type Base struct {
	Type     string `json:"type"`
	Handle   string `json:"handle,omitempty"`
	Layer    string `json:"layer"`
	Color    *int   `json:"color,omitempty"`
	RGB      string `json:"rgb,omitempty"`
	Linetype string `json:"linetype,omitempty"`
}

// Header returns the common fields.
func (b *Base) Header() *Base { return b }

// Entity is one drawn object. The set of implementations is closed: Line,
// Circle, Arc, Ellipse, Point, Polyline, Spline, Text, Hatch and Unknown.
type Entity interface {
	Header() *Base
	Kind() Kind
}

// Kind discriminates entity variants.
type Kind int

const (
	KindUnknown Kind = iota
	KindLine
	KindCircle
	KindArc
	KindEllipse
	KindPoint
	KindPolyline
	KindSpline
	KindText
	KindHatch
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindCircle:
		return "circle"
	case KindArc:
		return "arc"
	case KindEllipse:
		return "ellipse"
	case KindPoint:
		return "point"
	case KindPolyline:
		return "polyline"
	case KindSpline:
		return "spline"
	case KindText:
		return "text"
	case KindHatch:
		return "hatch"
	default:
		return "unknown"
	}
}

// Required fields are pointers (or slices) so a missing value can be told
// apart from a zero value.

type Line struct {
	Base
	Start *Vec2 `json:"start,omitempty"`
	End   *Vec2 `json:"end,omitempty"`
}

type Circle struct {
	Base
	Center *Vec2    `json:"center,omitempty"`
	Radius *float64 `json:"radius,omitempty"`
}

type Arc struct {
	Base
	Center     *Vec2    `json:"center,omitempty"`
	Radius     *float64 `json:"radius,omitempty"`
	StartAngle *float64 `json:"start_angle,omitempty"`
	EndAngle   *float64 `json:"end_angle,omitempty"`
}

type Ellipse struct {
	Base
	Center    *Vec2    `json:"center,omitempty"`
	MajorAxis *Vec2    `json:"major_axis,omitempty"`
	Ratio     *float64 `json:"ratio,omitempty"`
}

type Point struct {
	Base
	Location *Vec2 `json:"location,omitempty"`
}

// Polyline covers both LWPOLYLINE and POLYLINE records.
type Polyline struct {
	Base
	Points []Vec2 `json:"points,omitempty"`
	Closed bool   `json:"closed"`
}

// Spline is rendered through its control points; fit points are kept for
// clients that want them.
type Spline struct {
	Base
	ControlPoints []Vec2 `json:"control_points,omitempty"`
	FitPoints     []Vec2 `json:"points,omitempty"`
	Degree        int    `json:"degree,omitempty"`
	Closed        bool   `json:"closed"`
}

// Text covers TEXT and MTEXT records.
type Text struct {
	Base
	Text     string   `json:"text"`
	Insert   *Vec2    `json:"insert,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation float64  `json:"rotation"`
}

type Hatch struct {
	Base
	PatternName   string         `json:"pattern_name,omitempty"`
	SolidFill     bool           `json:"solid_fill"`
	BoundaryPaths []BoundaryPath `json:"boundary_paths,omitempty"`
}

// Boundary path kinds.
const (
	PathPolyline = "polyline"
	PathEdge     = "edge"
)

// BoundaryPath is one hatch boundary loop.
type BoundaryPath struct {
	Type   string `json:"type"`
	Points []Vec2 `json:"points,omitempty"`
	Closed bool   `json:"closed,omitempty"`
	Edges  []Edge `json:"edges,omitempty"`
}

// Edge kinds inside an edge boundary path.
const (
	EdgeLine    = "line"
	EdgeArc     = "arc"
	EdgeEllipse = "ellipse"
	EdgeSpline  = "spline"
)

// Edge is one segment of an edge boundary path.
type Edge struct {
	Type       string   `json:"type"`
	Start      *Vec2    `json:"start,omitempty"`
	End        *Vec2    `json:"end,omitempty"`
	Center     *Vec2    `json:"center,omitempty"`
	Radius     *float64 `json:"radius,omitempty"`
	MajorAxis  *Vec2    `json:"major_axis,omitempty"`
	Ratio      *float64 `json:"ratio,omitempty"`
	StartAngle *float64 `json:"start_angle,omitempty"`
	EndAngle   *float64 `json:"end_angle,omitempty"`
	Points     []Vec2   `json:"points,omitempty"`
}

// Unknown is any entity type the viewer does not draw. It only keeps the
// common fields.
type Unknown struct {
	Base
}

func (*Line) Kind() Kind     { return KindLine }
func (*Circle) Kind() Kind   { return KindCircle }
func (*Arc) Kind() Kind      { return KindArc }
func (*Ellipse) Kind() Kind  { return KindEllipse }
func (*Point) Kind() Kind    { return KindPoint }
func (*Polyline) Kind() Kind { return KindPolyline }
func (*Spline) Kind() Kind   { return KindSpline }
func (*Text) Kind() Kind     { return KindText }
func (*Hatch) Kind() Kind    { return KindHatch }
func (*Unknown) Kind() Kind  { return KindUnknown }

// KindOf maps a parser type name to its variant.
func KindOf(typeName string) Kind {
	switch typeName {
	case TypeLine:
		return KindLine
	case TypeCircle:
		return KindCircle
	case TypeArc:
		return KindArc
	case TypeEllipse:
		return KindEllipse
	case TypePoint:
		return KindPoint
	case TypeLWPolyline, TypePolyline:
		return KindPolyline
	case TypeSpline:
		return KindSpline
	case TypeText, TypeMText:
		return KindText
	case TypeHatch:
		return KindHatch
	default:
		return KindUnknown
	}
}

// IsText reports whether the entity is a TEXT or MTEXT record.
func IsText(e Entity) bool {
	return e != nil && e.Kind() == KindText
}

// Ptr returns a pointer to v. Handy for building entities in code.
func Ptr[T any](v T) *T {
	return &v
}
