package engine

import (
	"encoding/json"
	"fmt"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "clear", "path", "text"
	ObjectID    string        `json:"objectId,omitempty"`    // handle, or layer:type:index
	Layer       string        `json:"layer,omitempty"`       // For hit correlation
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" ops
	Text        string        `json:"text,omitempty"`        // Label for "text" ops
	FontSize    float64       `json:"fontSize,omitempty"`    // In text-local units
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // In path units
	Selected    bool          `json:"selected,omitempty"`
}

// RenderStyle holds the colors and widths of a frame. Widths are screen
// pixels.
type RenderStyle struct {
	Background          string
	DefaultColor        string
	SelectionColor      string
	HoverColor          string
	BoundingBoxColor    string
	StrokeWidth         float64
	SelectedStrokeWidth float64
	ShowBoundingBox     bool
}

// DefaultRenderStyle returns the stock dark theme.
func DefaultRenderStyle() RenderStyle {
	return RenderStyle{
		Background:          "#1e1e1e",
		DefaultColor:        "#ffffff",
		SelectionColor:      "#ff0000",
		HoverColor:          "#4488ff",
		BoundingBoxColor:    "#ffff00",
		StrokeWidth:         1,
		SelectedStrokeWidth: 2,
	}
}

// Frame is everything needed to draw one view of a scene.
type Frame struct {
	Scene     *SceneGraph
	View      ViewState
	Container Size
	Bounds    BoundingBox
	Style     RenderStyle
	Selection *SelectionController
}

// ObjectID names a node for the frontend.
func ObjectID(id Identity) string {
	if id.Handle != "" {
		return id.Handle
	}
	return fmt.Sprintf("%s:%s:%d", id.Layer, id.Type, id.Index)
}

// CompileDrawCommands generates a draw command buffer for a frame.
// Commands are in painter's order (back to front).
func CompileDrawCommands(f Frame) []DrawCommand {
	commands := []DrawCommand{{Op: "clear", Fill: f.Style.Background}}
	if f.Scene == nil {
		return commands
	}

	view := f.View.Matrix(f.Container)
	scale := f.View.Scale
	if scale <= 0 {
		scale = 1
	}

	for _, n := range f.Scene.Nodes {
		prim := n.Primitive
		selected := !n.Overlay && f.Selection != nil && f.Selection.IsHighlighted(prim.ID)
		color, width := f.Style.strokeFor(prim, selected)

		if prim.Kind == PrimText {
			commands = append(commands, textCommand(prim, f.View, f.Container, color, selected))
			continue
		}
		if len(n.Path) == 0 {
			continue
		}
		cmd := DrawCommand{
			Op:          "path",
			ObjectID:    ObjectID(prim.ID),
			Layer:       prim.ID.Layer,
			Transform:   view.ToSlice(),
			Path:        n.Path,
			Stroke:      color,
			StrokeWidth: width / scale,
			Selected:    selected,
		}
		if prim.Filled {
			cmd.Fill = color
		}
		commands = append(commands, cmd)
	}

	if f.Style.ShowBoundingBox && !f.Bounds.IsEmpty() {
		b := f.Bounds
		commands = append(commands, DrawCommand{
			Op:        "path",
			Transform: view.ToSlice(),
			Path: []PathCommand{
				{"M", b.MinX, b.MinY},
				{"L", b.MaxX(), b.MinY},
				{"L", b.MaxX(), b.MaxY()},
				{"L", b.MinX, b.MaxY()},
				{"Z"},
			},
			Stroke:      f.Style.BoundingBoxColor,
			StrokeWidth: f.Style.StrokeWidth / scale,
		})
	}
	return commands
}

// textCommand positions a label in screen space so glyphs are upright. The
// font size scales with the view like every other primitive.
func textCommand(prim Primitive, view ViewState, container Size, color string, selected bool) DrawCommand {
	anchor := DrawingToScreen(prim.Points[0], view, container)
	m := Translate(anchor.X, anchor.Y).
		Multiply(RotateDegrees(-prim.Rotation)).
		Multiply(Scale(view.Scale, view.Scale))
	return DrawCommand{
		Op:        "text",
		ObjectID:  ObjectID(prim.ID),
		Layer:     prim.ID.Layer,
		Transform: m.ToSlice(),
		Text:      prim.Text,
		FontSize:  prim.FontSize,
		Fill:      color,
		Selected:  selected,
	}
}

func (s RenderStyle) strokeFor(p Primitive, selected bool) (string, float64) {
	if selected {
		return s.SelectionColor, s.SelectedStrokeWidth
	}
	if p.Color != "" {
		return p.Color, s.StrokeWidth
	}
	return s.DefaultColor, s.StrokeWidth
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// HitTestResult identifies the entity under a screen point.
type HitTestResult struct {
	ObjectID string  `json:"objectId"`
	Layer    string  `json:"layer"`
	Type     string  `json:"type"`
	Index    int     `json:"index"`
	X        float64 `json:"x"` // drawing space
	Y        float64 `json:"y"`
}
