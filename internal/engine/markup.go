package engine

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dxfview/dxfview/internal/drawing"
)

// Pre-rendered markup from the parser does not keep a 1:1 mapping between
// entities and SVG elements. MarkupIndex records the shape elements in
// document order so a selection can still be highlighted by position.

var shapeTags = map[string]bool{
	"line":     true,
	"circle":   true,
	"ellipse":  true,
	"path":     true,
	"polyline": true,
	"polygon":  true,
	"rect":     true,
	"text":     true,
}

// tagsForType lists the SVG tags a renderer may emit for an entity type.
var tagsForType = map[drawing.Kind][]string{
	drawing.KindLine:     {"line", "path"},
	drawing.KindCircle:   {"circle", "path"},
	drawing.KindArc:      {"path"},
	drawing.KindEllipse:  {"ellipse", "path"},
	drawing.KindPoint:    {"circle"},
	drawing.KindPolyline: {"polyline", "polygon", "path"},
	drawing.KindSpline:   {"path", "polyline"},
	drawing.KindText:     {"text"},
	drawing.KindHatch:    {"path", "polygon"},
}

// neighborhood is how far around the target ordinal the fallback reaches.
const neighborhood = 2

// MarkupElement is one shape element of the markup.
type MarkupElement struct {
	Ordinal int    `json:"ordinal"` // position among shape elements
	Tag     string `json:"tag"`
	Layer   string `json:"layer,omitempty"` // nearest enclosing layer group
	Handle  string `json:"handle,omitempty"`
}

// MarkupIndex is the shape inventory of one SVG document.
type MarkupIndex struct {
	elements []MarkupElement
}

// BuildMarkupIndex walks an SVG document and records its shape elements.
func BuildMarkupIndex(markup string) (*MarkupIndex, error) {
	dec := xml.NewDecoder(strings.NewReader(markup))
	dec.Strict = false

	ix := &MarkupIndex{}
	var layers []string // one entry per open element
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("index markup: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			parent := ""
			if len(layers) > 0 {
				parent = layers[len(layers)-1]
			}
			tag := strings.ToLower(t.Name.Local)
			layer := parent
			if tag == "g" {
				if l := layerAttr(t.Attr); l != "" {
					layer = l
				}
			}
			layers = append(layers, layer)

			if shapeTags[tag] {
				ix.elements = append(ix.elements, MarkupElement{
					Ordinal: len(ix.elements),
					Tag:     tag,
					Layer:   layer,
					Handle:  attr(t.Attr, "data-handle"),
				})
			}
		case xml.EndElement:
			if len(layers) > 0 {
				layers = layers[:len(layers)-1]
			}
		}
	}
	return ix, nil
}

func layerAttr(attrs []xml.Attr) string {
	for _, name := range []string{"data-layer", "id", "class"} {
		if v := attr(attrs, name); v != "" {
			return v
		}
	}
	return ""
}

func attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Len returns the number of shape elements.
func (ix *MarkupIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.elements)
}

// Elements returns the shape elements in document order.
func (ix *MarkupIndex) Elements() []MarkupElement {
	if ix == nil {
		return nil
	}
	return append([]MarkupElement(nil), ix.elements...)
}

// HighlightMarkup returns the ordinals of the shape elements to highlight
// for sel. A handle match wins outright. Otherwise the search widens step by
// step: the EntityIndex-th element with a matching tag, the EntityIndex-th
// shape of any tag, every shape in the layer's group, the shapes around
// EntityIndex, and finally every shape. An empty result means nothing is
// highlighted.
func HighlightMarkup(ix *MarkupIndex, sel *SelectedFeature) []int {
	if sel == nil || ix.Len() == 0 {
		return nil
	}
	idx := sel.EntityIndex

	if h := sel.Handle(); h != "" {
		if hits := ix.filter(func(el MarkupElement) bool { return el.Handle == h }); len(hits) > 0 {
			return hits
		}
	}

	if tags := tagsForType[drawing.KindOf(sel.EntityType)]; len(tags) > 0 {
		sameTag := ix.filter(func(el MarkupElement) bool { return slices.Contains(tags, el.Tag) })
		if idx >= 0 && idx < len(sameTag) {
			return []int{sameTag[idx]}
		}
	}

	if idx >= 0 && idx < len(ix.elements) {
		return []int{idx}
	}

	if sel.LayerName != "" {
		if group := ix.filter(func(el MarkupElement) bool { return el.Layer == sel.LayerName }); len(group) > 0 {
			return group
		}
	}

	if near := ix.filter(func(el MarkupElement) bool {
		return el.Ordinal >= idx-neighborhood && el.Ordinal <= idx+neighborhood
	}); len(near) > 0 {
		return near
	}

	return ix.filter(func(MarkupElement) bool { return true })
}

func (ix *MarkupIndex) filter(keep func(MarkupElement) bool) []int {
	var out []int
	for _, el := range ix.elements {
		if keep(el) {
			out = append(out, el.Ordinal)
		}
	}
	return out
}
