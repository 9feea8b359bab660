package collab

import (
	"encoding/json"

	"github.com/dxfview/dxfview/internal/drawing"
	"github.com/dxfview/dxfview/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

const (
	// Client -> server
	TypeSelectionRequest = "selection.request"
	TypeViewWheel        = "view.wheel"
	TypeViewPan          = "view.pan"
	TypeViewResize       = "view.resize"
	TypeViewFit          = "view.fit"
	TypeViewReset        = "view.reset"
	TypeViewZoomIn       = "view.zoomIn"
	TypeViewZoomOut      = "view.zoomOut"
	TypeCanvasClick      = "canvas.click"
	TypeLayerVisibility  = "layer.visibility"
	TypeFrameRequest     = "frame.request"

	// Server -> client
	TypeWelcome          = "welcome"
	TypeSelectionChanged = "selection.changed"
	TypeTreeExpand       = "tree.expand"
	TypeViewState        = "view.state"
	TypeFrame            = "frame"
	TypeLayers           = "layers"
	TypeError            = "error"

	// Both directions
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
)

// viewActions maps view message types to session view actions.
var viewActions = map[string]string{
	TypeViewWheel:   "wheel",
	TypeViewPan:     "pan",
	TypeViewResize:  "resize",
	TypeViewFit:     "fit",
	TypeViewReset:   "reset",
	TypeViewZoomIn:  "zoomIn",
	TypeViewZoomOut: "zoomOut",
}

type WelcomePayload struct {
	ClientID  string                  `json:"clientId"`
	Layers    []engine.LayerInfo      `json:"layers"`
	View      engine.ViewState        `json:"view"`
	Selection *engine.SelectedFeature `json:"selection"`
}

// SelectionChangedPayload carries the new selection; Feature is nil when it
// was cleared.
type SelectionChangedPayload struct {
	Feature *engine.SelectedFeature `json:"feature"`
	Source  engine.SelectionSource  `json:"source"`
	Key     string                  `json:"key,omitempty"`
}

// TreeExpandPayload asks the tree to open and reveal the row at Path.
type TreeExpandPayload struct {
	Path []string `json:"path"`
}

type ClickPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type LayerVisibilityPayload struct {
	Layer   string `json:"layer"`
	Visible bool   `json:"visible"`
}

type FramePayload struct {
	View      engine.ViewState     `json:"view"`
	Container engine.Size          `json:"container"`
	Commands  []engine.DrawCommand `json:"commands"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// PresencePayload is a viewer's pointer in drawing coordinates. Hover is
// filled in by the server with the object id under the cursor.
type PresencePayload struct {
	Cursor      *drawing.Vec2 `json:"cursor,omitempty"`
	Hover       string        `json:"hover,omitempty"`
	DisplayName string        `json:"displayName,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
	Order     []string                    `json:"order"`
}

type PresenceJoinPayload struct {
	ClientID    string `json:"clientId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
}
