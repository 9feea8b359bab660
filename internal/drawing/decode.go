package drawing

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// DecodeError reports parser output that is not a layer -> entities object.
type DecodeError struct {
	Message string
}

func (e *DecodeError) Error() string {
	return "decode drawing: " + e.Message
}

// Decode turns parser JSON into a LayeredDrawing. Layer order follows the
// document. Individual malformed records never fail the whole drawing; they
// decode with their broken fields left empty.
func Decode(data []byte) (*LayeredDrawing, error) {
	if !gjson.ValidBytes(data) {
		return nil, &DecodeError{Message: "invalid JSON"}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &DecodeError{Message: "expected an object of layers"}
	}

	d := NewLayeredDrawing()
	var decodeErr error
	root.ForEach(func(key, value gjson.Result) bool {
		layer := key.String()
		if !value.IsArray() {
			decodeErr = &DecodeError{Message: fmt.Sprintf("layer %q is not an array", layer)}
			return false
		}
		records := value.Array()
		entities := make([]Entity, 0, len(records))
		for _, rec := range records {
			entities = append(entities, decodeEntity(layer, rec))
		}
		d.Append(layer, entities...)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return d, nil
}

// DecodeEntity decodes a single entity record. Anything that is not a JSON
// object decodes to Unknown.
func DecodeEntity(layer string, data []byte) Entity {
	if !gjson.ValidBytes(data) {
		return &Unknown{Base: Base{Layer: layer}}
	}
	return decodeEntity(layer, gjson.ParseBytes(data))
}

func decodeEntity(layer string, rec gjson.Result) Entity {
	base := Base{Layer: layer}
	if !rec.IsObject() {
		return &Unknown{Base: base}
	}

	base.Type = rec.Get("type").String()
	base.Handle = rec.Get("handle").String()
	if l := rec.Get("layer"); l.Type == gjson.String && l.Str != "" {
		base.Layer = l.Str
	}
	if c := rec.Get("color"); c.Type == gjson.Number {
		color := int(c.Int())
		base.Color = &color
	}
	base.RGB = rec.Get("rgb").String()
	base.Linetype = rec.Get("linetype").String()

	switch KindOf(base.Type) {
	case KindLine:
		return &Line{
			Base:  base,
			Start: vec(rec.Get("start")),
			End:   vec(rec.Get("end")),
		}
	case KindCircle:
		return &Circle{
			Base:   base,
			Center: vec(rec.Get("center")),
			Radius: num(rec.Get("radius")),
		}
	case KindArc:
		return &Arc{
			Base:       base,
			Center:     vec(rec.Get("center")),
			Radius:     num(rec.Get("radius")),
			StartAngle: num(rec.Get("start_angle")),
			EndAngle:   num(rec.Get("end_angle")),
		}
	case KindEllipse:
		return &Ellipse{
			Base:      base,
			Center:    vec(rec.Get("center")),
			MajorAxis: vec(rec.Get("major_axis")),
			Ratio:     num(rec.Get("ratio")),
		}
	case KindPoint:
		return &Point{
			Base:     base,
			Location: vec(rec.Get("location")),
		}
	case KindPolyline:
		return &Polyline{
			Base:   base,
			Points: points(rec.Get("points")),
			Closed: rec.Get("closed").Bool(),
		}
	case KindSpline:
		return &Spline{
			Base:          base,
			ControlPoints: points(rec.Get("control_points")),
			FitPoints:     points(rec.Get("points")),
			Degree:        int(rec.Get("degree").Int()),
			Closed:        rec.Get("closed").Bool(),
		}
	case KindText:
		height := num(rec.Get("height"))
		if height == nil {
			height = num(rec.Get("char_height"))
		}
		return &Text{
			Base:     base,
			Text:     rec.Get("text").String(),
			Insert:   vec(rec.Get("insert")),
			Height:   height,
			Rotation: rec.Get("rotation").Float(),
		}
	case KindHatch:
		h := &Hatch{
			Base:        base,
			PatternName: rec.Get("pattern_name").String(),
			SolidFill:   rec.Get("solid_fill").Bool(),
		}
		rec.Get("boundary_paths").ForEach(func(_, p gjson.Result) bool {
			h.BoundaryPaths = append(h.BoundaryPaths, boundaryPath(p))
			return true
		})
		return h
	default:
		return &Unknown{Base: base}
	}
}

func boundaryPath(p gjson.Result) BoundaryPath {
	bp := BoundaryPath{
		Type:   p.Get("type").String(),
		Points: points(p.Get("points")),
		Closed: p.Get("closed").Bool(),
	}
	p.Get("edges").ForEach(func(_, e gjson.Result) bool {
		bp.Edges = append(bp.Edges, Edge{
			Type:       e.Get("type").String(),
			Start:      vec(e.Get("start")),
			End:        vec(e.Get("end")),
			Center:     vec(e.Get("center")),
			Radius:     num(e.Get("radius")),
			MajorAxis:  vec(e.Get("major_axis")),
			Ratio:      num(e.Get("ratio")),
			StartAngle: num(e.Get("start_angle")),
			EndAngle:   num(e.Get("end_angle")),
			Points:     points(e.Get("points")),
		})
		return true
	})
	return bp
}

// vec reads [x, y] or [x, y, z]; anything else is nil.
func vec(r gjson.Result) *Vec2 {
	if !r.IsArray() {
		return nil
	}
	coords := r.Array()
	if len(coords) < 2 || coords[0].Type != gjson.Number || coords[1].Type != gjson.Number {
		return nil
	}
	return &Vec2{X: coords[0].Num, Y: coords[1].Num}
}

func num(r gjson.Result) *float64 {
	if r.Type != gjson.Number {
		return nil
	}
	v := r.Num
	return &v
}

// points returns nil when the list is missing or any vertex is malformed,
// so a half-broken outline is never drawn.
func points(r gjson.Result) []Vec2 {
	if !r.IsArray() {
		return nil
	}
	items := r.Array()
	out := make([]Vec2, 0, len(items))
	for _, item := range items {
		v := vec(item)
		if v == nil {
			return nil
		}
		out = append(out, *v)
	}
	return out
}
