package session

import (
	"fmt"

	"github.com/dxfview/dxfview/internal/engine"
)

// ViewAction is one viewport command as sent over HTTP or the websocket.
// Which fields matter depends on Action.
type ViewAction struct {
	Action string  `json:"action"` // fit, reset, zoomIn, zoomOut, pan, wheel, resize
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
	DeltaY float64 `json:"deltaY,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Apply runs the action against eng.
func (a ViewAction) Apply(eng *engine.Engine) error {
	switch a.Action {
	case "fit":
		eng.FitView()
	case "reset":
		eng.ResetView()
	case "zoomIn":
		eng.ZoomIn()
	case "zoomOut":
		eng.ZoomOut()
	case "pan":
		eng.Pan(a.DX, a.DY)
	case "wheel":
		eng.Wheel(a.X, a.Y, a.DeltaY)
	case "resize":
		eng.Resize(a.Width, a.Height)
	default:
		return fmt.Errorf("unknown view action %q", a.Action)
	}
	return nil
}
