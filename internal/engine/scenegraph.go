package engine

import (
	"math"

	"github.com/dxfview/dxfview/internal/drawing"
)

// OriginExtent is how far the origin axes reach along each direction.
const OriginExtent = 10000

// Axis colors of the origin overlay.
const (
	AxisXColor = "#ff5555"
	AxisYColor = "#55ff55"
)

// SceneGraph is the retained, render-ready form of the visible drawing. It is
// rebuilt when the drawing, the visibility map or the mapping options
// change; view changes only re-project it.
type SceneGraph struct {
	Nodes    []*SceneNode // painter's order: layers in drawing order, then the overlay
	ByHandle map[string]*SceneNode
	Skipped  int // entities that mapped to nothing
}

// SceneNode is one mapped primitive.
type SceneNode struct {
	Primitive Primitive
	Path      []PathCommand // drawing space
	Bounds    BoundingBox
	Overlay   bool // not part of the drawing, never selectable
}

// NewSceneGraph creates an empty scene graph.
func NewSceneGraph() *SceneGraph {
	return &SceneGraph{ByHandle: make(map[string]*SceneNode)}
}

// BuildSceneGraph maps every visible entity. Entities keep their index in
// the layer's full list so identities stay stable when other layers are
// hidden.
func BuildSceneGraph(d *drawing.LayeredDrawing, vis drawing.Visibility, opts MapOptions, originAxes bool) *SceneGraph {
	sg := NewSceneGraph()
	if d != nil {
		for _, layer := range d.Layers() {
			if !vis.IsVisible(layer.Name) {
				continue
			}
			for i, e := range layer.Entities {
				if e == nil {
					sg.Skipped++
					continue
				}
				id := Identity{Layer: layer.Name, Type: e.Header().Type, Index: i, Handle: e.Header().Handle}
				p, ok := MapToPrimitive(e, id, opts)
				if !ok {
					sg.Skipped++
					continue
				}
				sg.add(&SceneNode{Primitive: p})
			}
		}
	}

	if originAxes && vis.IsVisible(drawing.OriginLayer) {
		for i, axis := range originAxisPrimitives() {
			axis.ID.Index = i
			sg.add(&SceneNode{Primitive: axis, Overlay: true})
		}
	}
	return sg
}

func originAxisPrimitives() []Primitive {
	return []Primitive{
		{
			Kind:   PrimSegment,
			ID:     Identity{Layer: drawing.OriginLayer, Type: "AXIS"},
			Points: []drawing.Vec2{{X: -OriginExtent}, {X: OriginExtent}},
			Color:  AxisXColor,
		},
		{
			Kind:   PrimSegment,
			ID:     Identity{Layer: drawing.OriginLayer, Type: "AXIS"},
			Points: []drawing.Vec2{{Y: -OriginExtent}, {Y: OriginExtent}},
			Color:  AxisYColor,
		},
	}
}

func (sg *SceneGraph) add(n *SceneNode) {
	n.Path = n.Primitive.Path()
	n.Bounds = n.Primitive.Bounds()
	sg.Nodes = append(sg.Nodes, n)
	if h := n.Primitive.ID.Handle; h != "" && !n.Overlay {
		sg.ByHandle[h] = n
	}
}

// HitTest returns the frontmost selectable node within tolerance (drawing
// units) of p, or nil.
func HitTest(sg *SceneGraph, p drawing.Vec2, tolerance float64) *SceneNode {
	if sg == nil {
		return nil
	}
	for i := len(sg.Nodes) - 1; i >= 0; i-- {
		n := sg.Nodes[i]
		if n.Overlay || !n.Bounds.Expand(tolerance).Contains(p.X, p.Y) {
			continue
		}
		if hitPrimitive(n.Primitive, p, tolerance) {
			return n
		}
	}
	return nil
}

func hitPrimitive(prim Primitive, p drawing.Vec2, tol float64) bool {
	switch prim.Kind {
	case PrimSegment, PrimPolyline:
		return nearPolyline(prim.Points, p, tol, false)

	case PrimPolygon:
		return nearPolyline(prim.Points, p, tol, true)

	case PrimRegion:
		if prim.Filled && insidePolygon(prim.Points, p) {
			return true
		}
		return nearPolyline(prim.Points, p, tol, true)

	case PrimCircle:
		d := math.Hypot(p.X-prim.Center.X, p.Y-prim.Center.Y)
		if prim.Filled {
			return d <= prim.RX+tol
		}
		return math.Abs(d-prim.RX) <= tol

	case PrimArc:
		d := math.Hypot(p.X-prim.Center.X, p.Y-prim.Center.Y)
		if math.Abs(d-prim.RX) > tol {
			return false
		}
		if prim.SweepAngle == 0 {
			return true
		}
		angle := math.Atan2(p.Y-prim.Center.Y, p.X-prim.Center.X) * 180 / math.Pi
		return ArcSweep(prim.StartAngle, angle) <= prim.SweepAngle

	case PrimEllipse:
		if prim.RX <= 0 || prim.RY <= 0 {
			return false
		}
		local := RotateDegrees(-prim.Rotation).Apply(drawing.Vec2{X: p.X - prim.Center.X, Y: p.Y - prim.Center.Y})
		r := math.Hypot(local.X/prim.RX, local.Y/prim.RY)
		return math.Abs(r-1)*math.Min(prim.RX, prim.RY) <= tol

	case PrimText:
		return insidePolygon(prim.textCorners(), p)
	}
	return false
}

func nearPolyline(pts []drawing.Vec2, p drawing.Vec2, tol float64, closed bool) bool {
	for i := 1; i < len(pts); i++ {
		if segmentDistance(pts[i-1], pts[i], p) <= tol {
			return true
		}
	}
	if closed && len(pts) > 2 {
		return segmentDistance(pts[len(pts)-1], pts[0], p) <= tol
	}
	return false
}

func segmentDistance(a, b, p drawing.Vec2) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// insidePolygon is the even-odd ray casting test.
func insidePolygon(pts []drawing.Vec2, p drawing.Vec2) bool {
	inside := false
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		a, b := pts[i], pts[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}
