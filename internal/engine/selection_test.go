package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxfview/dxfview/internal/drawing"
)

type recordedChange struct {
	feature *SelectedFeature
	source  SelectionSource
}

func recordChanges(s *SelectionController) *[]recordedChange {
	var changes []recordedChange
	s.OnChange(func(f *SelectedFeature, src SelectionSource) {
		changes = append(changes, recordedChange{f, src})
	})
	return &changes
}

func TestSelectTwiceTogglesOff(t *testing.T) {
	s := NewSelectionController()
	changes := recordChanges(s)
	ent := line(0, 0, 1, 1)

	f := s.Select("Walls", drawing.TypeLine, 2, ent)
	require.NotNil(t, f)
	assert.Equal(t, "Walls", s.Current().LayerName)

	f = s.Select("Walls", drawing.TypeLine, 2, ent)
	assert.Nil(t, f)
	assert.Nil(t, s.Current())

	require.Len(t, *changes, 2)
	assert.Nil(t, (*changes)[1].feature)
	assert.Equal(t, SourceCanvas, (*changes)[1].source)
}

func TestSelectReplacesDifferentTriple(t *testing.T) {
	s := NewSelectionController()

	s.Select("Walls", drawing.TypeLine, 0, nil)
	s.Select("Walls", drawing.TypeLine, 1, nil)

	cur := s.Current()
	require.NotNil(t, cur)
	assert.Equal(t, 1, cur.EntityIndex)
}

func TestSetFromTreeDoesNotToggle(t *testing.T) {
	s := NewSelectionController()
	changes := recordChanges(s)
	f := &SelectedFeature{LayerName: "0", EntityType: drawing.TypeArc, EntityIndex: 0}

	assert.True(t, s.Set(f))
	assert.False(t, s.Set(f))
	assert.NotNil(t, s.Current())

	assert.True(t, s.Set(nil))
	assert.False(t, s.Clear())

	require.Len(t, *changes, 2)
	assert.Equal(t, SourceTree, (*changes)[0].source)
}

func TestCurrentIsACopy(t *testing.T) {
	s := NewSelectionController()
	s.Select("A", drawing.TypeLine, 0, nil)

	s.Current().LayerName = "mutated"
	assert.Equal(t, "A", s.Current().LayerName)
}

func TestIsHighlightedPrefersHandle(t *testing.T) {
	s := NewSelectionController()
	ent := line(0, 0, 1, 1)
	ent.Handle = "1F"
	s.Select("Walls", drawing.TypeLine, 3, ent)

	assert.True(t, s.IsHighlighted(Identity{Handle: "1F", Layer: "Other", Type: drawing.TypeLine, Index: 9}))
	assert.False(t, s.IsHighlighted(Identity{Handle: "20", Layer: "Walls", Type: drawing.TypeLine, Index: 3}))
	assert.True(t, s.IsHighlighted(Identity{Layer: "Walls", Type: drawing.TypeLine, Index: 3}))
	assert.False(t, s.IsHighlighted(Identity{Layer: "Walls", Type: drawing.TypeLine, Index: 4}))

	s.Clear()
	assert.False(t, s.IsHighlighted(Identity{Handle: "1F"}))
}

func TestTreePath(t *testing.T) {
	f := SelectedFeature{LayerName: "Walls", EntityType: drawing.TypeLine, EntityIndex: 3}
	assert.Equal(t, []string{"Walls", "LINE", "Walls:LINE:3"}, TreePath(f))
}

func TestSelectedFeatureJSONKeepsEntityVariant(t *testing.T) {
	ent := line(0, 0, 4, 2)
	ent.Handle = "AB"
	data, err := json.Marshal(SelectedFeature{LayerName: "L", EntityType: drawing.TypeLine, EntityIndex: 1, Entity: ent})
	require.NoError(t, err)

	var back SelectedFeature
	require.NoError(t, json.Unmarshal(data, &back))
	got, ok := back.Entity.(*drawing.Line)
	require.True(t, ok)
	assert.Equal(t, "AB", back.Handle())
	assert.Equal(t, drawing.Vec2{X: 4, Y: 2}, *got.End)

	require.NoError(t, json.Unmarshal([]byte(`{"layerName": "L", "entityType": "ARC", "entityIndex": 0}`), &back))
	assert.Nil(t, back.Entity)
}
