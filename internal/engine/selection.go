package engine

import (
	"encoding/json"
	"fmt"

	"github.com/dxfview/dxfview/internal/drawing"
)

// SelectedFeature is the single selected entity. EntityIndex is the
// position inside the layer's ordered entity list.
type SelectedFeature struct {
	LayerName   string         `json:"layerName"`
	EntityType  string         `json:"entityType"`
	EntityIndex int            `json:"entityIndex"`
	Entity      drawing.Entity `json:"entity,omitempty"`
}

// Handle returns the selected entity's handle, or "" when unknown.
func (f SelectedFeature) Handle() string {
	if f.Entity == nil {
		return ""
	}
	return f.Entity.Header().Handle
}

// Key is the feature's tree-row key, "layer:type:index".
func (f SelectedFeature) Key() string {
	return fmt.Sprintf("%s:%s:%d", f.LayerName, f.EntityType, f.EntityIndex)
}

// UnmarshalJSON decodes the entity snapshot into its concrete variant.
func (f *SelectedFeature) UnmarshalJSON(data []byte) error {
	var raw struct {
		LayerName   string          `json:"layerName"`
		EntityType  string          `json:"entityType"`
		EntityIndex int             `json:"entityIndex"`
		Entity      json.RawMessage `json:"entity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = SelectedFeature{LayerName: raw.LayerName, EntityType: raw.EntityType, EntityIndex: raw.EntityIndex}
	if len(raw.Entity) > 0 && string(raw.Entity) != "null" {
		f.Entity = drawing.DecodeEntity(raw.LayerName, raw.Entity)
	}
	return nil
}

func (f SelectedFeature) sameTriple(o SelectedFeature) bool {
	return f.LayerName == o.LayerName && f.EntityType == o.EntityType && f.EntityIndex == o.EntityIndex
}

// SelectionSource says where a selection change came from.
type SelectionSource string

const (
	SourceCanvas SelectionSource = "canvas"
	SourceTree   SelectionSource = "tree"
	SourceReload SelectionSource = "reload"
)

// SelectionListener receives every selection change. feature is nil when
// the selection was cleared.
type SelectionListener func(feature *SelectedFeature, source SelectionSource)

// SelectionController holds at most one SelectedFeature. It is not safe for
// concurrent use; the Engine serializes access.
type SelectionController struct {
	current   *SelectedFeature
	listeners []SelectionListener
}

// NewSelectionController creates an empty controller.
func NewSelectionController() *SelectionController {
	return &SelectionController{}
}

// OnChange registers a listener.
func (s *SelectionController) OnChange(l SelectionListener) {
	if l != nil {
		s.listeners = append(s.listeners, l)
	}
}

// Select handles a canvas click. Selecting the held triple again clears the
// selection; any other triple replaces it.
func (s *SelectionController) Select(layer, entityType string, index int, entity drawing.Entity) *SelectedFeature {
	next := SelectedFeature{LayerName: layer, EntityType: entityType, EntityIndex: index, Entity: entity}
	if s.current != nil && s.current.sameTriple(next) {
		s.current = nil
		s.emit(SourceCanvas)
		return nil
	}
	s.current = &next
	s.emit(SourceCanvas)
	return s.Current()
}

// Set applies a selection requested by the tree. A nil feature clears.
// Setting the held triple again is not a toggle and reports no change.
func (s *SelectionController) Set(feature *SelectedFeature) bool {
	if feature == nil {
		return s.clear(SourceTree)
	}
	if s.current != nil && s.current.sameTriple(*feature) {
		return false
	}
	f := *feature
	s.current = &f
	s.emit(SourceTree)
	return true
}

// Clear drops the selection, e.g. when another drawing is loaded.
func (s *SelectionController) Clear() bool {
	return s.clear(SourceReload)
}

func (s *SelectionController) clear(src SelectionSource) bool {
	if s.current == nil {
		return false
	}
	s.current = nil
	s.emit(src)
	return true
}

// Current returns a copy of the selection, or nil.
func (s *SelectionController) Current() *SelectedFeature {
	if s.current == nil {
		return nil
	}
	f := *s.current
	return &f
}

// IsHighlighted reports whether a primitive belongs to the selection. When
// both sides carry a handle the handles decide; otherwise the
// (layer, type, index) triple must match.
func (s *SelectionController) IsHighlighted(id Identity) bool {
	if s.current == nil {
		return false
	}
	if h := s.current.Handle(); h != "" && id.Handle != "" {
		return h == id.Handle
	}
	return s.current.LayerName == id.Layer &&
		s.current.EntityType == id.Type &&
		s.current.EntityIndex == id.Index
}

func (s *SelectionController) emit(src SelectionSource) {
	cur := s.Current()
	for _, l := range s.listeners {
		l(cur, src)
	}
}

// TreePath lists the tree rows to expand so the feature's row is visible:
// layer, entity type, then the feature key.
func TreePath(f SelectedFeature) []string {
	return []string{f.LayerName, f.EntityType, f.Key()}
}

// refresh swaps the held entity snapshot without emitting a change.
func (s *SelectionController) refresh(e drawing.Entity) {
	if s.current != nil {
		s.current.Entity = e
	}
}
