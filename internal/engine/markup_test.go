package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxfview/dxfview/internal/drawing"
)

const renderedMarkup = `<?xml version="1.0"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
  <g data-layer="Walls">
    <line x1="0" y1="0" x2="10" y2="0"/>
    <path d="M 0 0 L 5 5" data-handle="A2"/>
    <line x1="0" y1="5" x2="10" y2="5"/>
  </g>
  <g id="Notes">
    <text x="1" y="1">hello</text>
    <circle cx="5" cy="5" r="2"/>
  </g>
</svg>`

func TestBuildMarkupIndex(t *testing.T) {
	ix, err := BuildMarkupIndex(renderedMarkup)
	require.NoError(t, err)
	require.Equal(t, 5, ix.Len())

	els := ix.Elements()
	assert.Equal(t, MarkupElement{Ordinal: 1, Tag: "path", Layer: "Walls", Handle: "A2"}, els[1])
	assert.Equal(t, "Notes", els[4].Layer)
}

func TestBuildMarkupIndexRejectsBrokenMarkup(t *testing.T) {
	_, err := BuildMarkupIndex(`<svg><g></svg`)
	assert.Error(t, err)
}

func TestHighlightMarkupChain(t *testing.T) {
	ix, err := BuildMarkupIndex(renderedMarkup)
	require.NoError(t, err)

	withHandle := line(0, 0, 1, 1)
	withHandle.Handle = "A2"

	tests := []struct {
		name string
		sel  *SelectedFeature
		want []int
	}{
		{"no selection", nil, nil},
		{"handle", &SelectedFeature{LayerName: "Walls", EntityType: drawing.TypeLine, EntityIndex: 0, Entity: withHandle}, []int{1}},
		{"same tag", &SelectedFeature{LayerName: "Walls", EntityType: drawing.TypeText, EntityIndex: 0}, []int{3}},
		{"same tag counts lines and paths", &SelectedFeature{LayerName: "Walls", EntityType: drawing.TypeLine, EntityIndex: 2}, []int{2}},
		{"any shape", &SelectedFeature{LayerName: "Walls", EntityType: drawing.TypeText, EntityIndex: 4}, []int{4}},
		{"layer group", &SelectedFeature{LayerName: "Notes", EntityType: drawing.TypeCircle, EntityIndex: 7}, []int{3, 4}},
		{"neighborhood", &SelectedFeature{LayerName: "Gone", EntityType: drawing.TypeCircle, EntityIndex: 6}, []int{4}},
		{"everything", &SelectedFeature{LayerName: "Gone", EntityType: drawing.TypeCircle, EntityIndex: 40}, []int{0, 1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HighlightMarkup(ix, tt.sel))
		})
	}
}

func TestHighlightMarkupEmptyIndex(t *testing.T) {
	ix, err := BuildMarkupIndex(`<svg/>`)
	require.NoError(t, err)

	assert.Empty(t, HighlightMarkup(ix, &SelectedFeature{EntityType: drawing.TypeLine}))
	assert.Empty(t, HighlightMarkup(nil, &SelectedFeature{EntityType: drawing.TypeLine}))
}
