package drawing

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parserOutput = `{
  "Walls": [
    {"type": "LINE", "handle": "A1", "layer": "Walls", "start": [0, 0, 0], "end": [10, 5, 0], "color": 7, "rgb": "#ffffff"},
    {"type": "LWPOLYLINE", "handle": "A2", "layer": "Walls", "points": [[0, 0], [1, 0], [1, 1]], "closed": true}
  ],
  "0": [
    {"type": "ARC", "handle": "B1", "layer": "0", "center": [1, 2], "radius": 3, "start_angle": 0, "end_angle": 270},
    {"type": "CIRCLE", "handle": "B2", "layer": "0", "center": [1, 2]},
    {"type": "HATCH", "handle": "B3", "layer": "0", "solid_fill": 1,
     "boundary_paths": [{"type": "edge", "edges": [{"type": "line", "start": [0, 0], "end": [4, 0]}, {"type": "arc", "center": [2, 0], "radius": 2, "start_angle": 0, "end_angle": 180}]}]},
    {"type": "DIMENSION", "handle": "B4", "layer": "0", "defpoint": [0, 0]}
  ],
  "Notes": [
    {"type": "MTEXT", "handle": "C1", "layer": "Notes", "text": "hello", "insert": [5, 5], "height": 2.5, "rotation": 90}
  ]
}`

func TestDecodePreservesLayerOrder(t *testing.T) {
	d, err := Decode([]byte(parserOutput))
	require.NoError(t, err)

	assert.Equal(t, []string{"Walls", "0", "Notes"}, d.LayerNames())
	assert.Equal(t, 7, d.EntityCount())
	assert.Equal(t, "A1", d.FirstHandle())
}

func TestDecodeVariants(t *testing.T) {
	d, err := Decode([]byte(parserOutput))
	require.NoError(t, err)

	e, ok := d.Entity("Walls", 0)
	require.True(t, ok)
	line, ok := e.(*Line)
	require.True(t, ok)
	assert.Equal(t, Vec2{10, 5}, *line.End)
	require.NotNil(t, line.Color)
	assert.Equal(t, 7, *line.Color)
	assert.Equal(t, "#ffffff", line.RGB)

	e, _ = d.Entity("Walls", 1)
	poly := e.(*Polyline)
	assert.True(t, poly.Closed)
	assert.Len(t, poly.Points, 3)

	e, _ = d.Entity("0", 1)
	circle := e.(*Circle)
	assert.NotNil(t, circle.Center)
	assert.Nil(t, circle.Radius, "missing radius must stay observable")

	e, _ = d.Entity("0", 2)
	hatch := e.(*Hatch)
	assert.True(t, hatch.SolidFill)
	require.Len(t, hatch.BoundaryPaths, 1)
	assert.Equal(t, PathEdge, hatch.BoundaryPaths[0].Type)
	require.Len(t, hatch.BoundaryPaths[0].Edges, 2)
	assert.Equal(t, EdgeArc, hatch.BoundaryPaths[0].Edges[1].Type)

	e, _ = d.Entity("0", 3)
	assert.Equal(t, KindUnknown, e.Kind())
	assert.Equal(t, "DIMENSION", e.Header().Type)

	e, _ = d.Entity("Notes", 0)
	text := e.(*Text)
	assert.Equal(t, "hello", text.Text)
	assert.Equal(t, 90.0, text.Rotation)
	assert.Equal(t, TypeMText, text.Type)
}

func TestDecodeMalformedPointsFailClosed(t *testing.T) {
	d, err := Decode([]byte(`{"L": [{"type": "POLYLINE", "points": [[0, 0], ["x", 1]]}, {"type": "LINE", "start": [1]}]}`))
	require.NoError(t, err)

	e, _ := d.Entity("L", 0)
	assert.Nil(t, e.(*Polyline).Points)

	e, _ = d.Entity("L", 1)
	assert.Nil(t, e.(*Line).Start)
	assert.Equal(t, "L", e.Header().Layer, "layer falls back to the map key")
}

func TestDecodeRejectsNonObject(t *testing.T) {
	for _, input := range []string{`[]`, `not json`, `{"L": 3}`} {
		_, err := Decode([]byte(input))
		require.Error(t, err, input)

		var decodeErr *DecodeError
		assert.True(t, errors.As(err, &decodeErr), input)
	}
}

func TestMarshalKeepsOrder(t *testing.T) {
	d, err := Decode([]byte(parserOutput))
	require.NoError(t, err)

	data, err := json.Marshal(d)
	require.NoError(t, err)

	again, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, d.LayerNames(), again.LayerNames())
	assert.Equal(t, d.EntityCount(), again.EntityCount())

	e, _ := again.Entity("0", 0)
	arc := e.(*Arc)
	assert.Equal(t, 270.0, *arc.EndAngle)
}

func TestVisibility(t *testing.T) {
	v := Visibility{"Walls": false}

	assert.False(t, v.IsVisible("Walls"))
	assert.True(t, v.IsVisible("Doors"))
	assert.True(t, v.IsVisible(OriginLayer))

	d, err := Decode([]byte(parserOutput))
	require.NoError(t, err)
	assert.Len(t, d.VisibleEntities(v), 5)
	assert.Len(t, d.VisibleEntities(nil), 7)
}

func TestSampleDrawingCoversEveryKind(t *testing.T) {
	d := NewSampleDrawing()

	seen := map[Kind]bool{}
	for _, l := range d.Layers() {
		for _, e := range l.Entities {
			seen[e.Kind()] = true
		}
	}
	for _, k := range []Kind{KindLine, KindCircle, KindArc, KindEllipse, KindPoint, KindPolyline, KindSpline, KindText, KindHatch} {
		assert.True(t, seen[k], k.String())
	}
}

func TestDecodeEntity(t *testing.T) {
	e := DecodeEntity("Walls", []byte(`{"type": "CIRCLE", "handle": "9F", "center": [1, 1], "radius": 2}`))
	circle, ok := e.(*Circle)
	require.True(t, ok)
	assert.Equal(t, "9F", circle.Handle)
	assert.Equal(t, "Walls", circle.Layer)
	assert.Equal(t, 2.0, *circle.Radius)

	assert.Equal(t, KindUnknown, DecodeEntity("Walls", []byte(`nope`)).Kind())
}
