package drawing

import (
	"bytes"
	"encoding/json"
)

// OriginLayer is the synthetic overlay layer drawn by the viewer itself.
// The parser never produces it.
const OriginLayer = "Origin & Axes"

// Layer is one named group of entities in parser order.
type Layer struct {
	Name     string
	Entities []Entity
}

// LayeredDrawing maps layer names to ordered entity sequences. Layer order
// is the order the parser emitted them in.
type LayeredDrawing struct {
	layers []Layer
	index  map[string]int
}

// NewLayeredDrawing returns an empty drawing.
func NewLayeredDrawing() *LayeredDrawing {
	return &LayeredDrawing{index: make(map[string]int)}
}

// Append adds entities to the named layer, creating it at the end when new.
func (d *LayeredDrawing) Append(layer string, entities ...Entity) {
	if i, ok := d.index[layer]; ok {
		d.layers[i].Entities = append(d.layers[i].Entities, entities...)
		return
	}
	d.index[layer] = len(d.layers)
	d.layers = append(d.layers, Layer{Name: layer, Entities: entities})
}

// Layers returns the layers in order. Callers must not mutate the result.
func (d *LayeredDrawing) Layers() []Layer {
	if d == nil {
		return nil
	}
	return d.layers
}

// LayerNames returns layer names in order.
func (d *LayeredDrawing) LayerNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.layers))
	for i, l := range d.layers {
		names[i] = l.Name
	}
	return names
}

// Layer returns the entities of one layer.
func (d *LayeredDrawing) Layer(name string) ([]Entity, bool) {
	if d == nil {
		return nil, false
	}
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.layers[i].Entities, true
}

// Entity looks up an entity by layer and index.
func (d *LayeredDrawing) Entity(layer string, index int) (Entity, bool) {
	entities, ok := d.Layer(layer)
	if !ok || index < 0 || index >= len(entities) {
		return nil, false
	}
	return entities[index], true
}

// EntityCount returns the total number of entities across layers.
func (d *LayeredDrawing) EntityCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, l := range d.layers {
		n += len(l.Entities)
	}
	return n
}

// FirstHandle returns the handle of the first entity in the drawing, or "".
// The viewer uses it to tell a newly loaded file from a refiltered one.
func (d *LayeredDrawing) FirstHandle() string {
	if d == nil {
		return ""
	}
	for _, l := range d.layers {
		if len(l.Entities) > 0 {
			return l.Entities[0].Header().Handle
		}
	}
	return ""
}

// VisibleEntities returns every entity on a visible layer, in layer order.
func (d *LayeredDrawing) VisibleEntities(v Visibility) []Entity {
	if d == nil {
		return nil
	}
	var out []Entity
	for _, l := range d.layers {
		if !v.IsVisible(l.Name) {
			continue
		}
		out = append(out, l.Entities...)
	}
	return out
}

// MarshalJSON writes the drawing as a JSON object keeping layer order.
func (d *LayeredDrawing) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range d.Layers() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(l.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		entities := l.Entities
		if entities == nil {
			entities = []Entity{}
		}
		data, err := json.Marshal(entities)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Visibility maps layer names to their visible flag. Layers missing from the
// map are visible, OriginLayer included.
type Visibility map[string]bool

// IsVisible reports whether a layer should be drawn.
func (v Visibility) IsVisible(layer string) bool {
	visible, ok := v[layer]
	if !ok {
		return true
	}
	return visible
}

// Clone returns an independent copy.
func (v Visibility) Clone() Visibility {
	out := make(Visibility, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}
