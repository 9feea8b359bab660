package engine

import (
	"fmt"
	"html"
	"io"
	"math"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/dxfview/dxfview/internal/drawing"
)

// Fallback frame size for exports without a known container.
const (
	defaultExportWidth  = 1024
	defaultExportHeight = 768
)

// RenderSVG writes the frame as a standalone SVG document in screen space.
// Layers become groups tagged with data-layer and shapes carry data-handle,
// so the output can be indexed again with BuildMarkupIndex.
func RenderSVG(w io.Writer, f Frame) {
	if f.Container.IsEmpty() {
		f.Container = Size{Width: defaultExportWidth, Height: defaultExportHeight}
		if f.Scene != nil && !f.Bounds.IsEmpty() {
			f.View = FitToBox(f.Bounds, f.Container, DefaultFitMargin)
		}
	}
	width := int(math.Round(f.Container.Width))
	height := int(math.Round(f.Container.Height))

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:"+f.Style.Background)

	view := f.View.Matrix(f.Container)
	open := false
	layer := ""
	if f.Scene != nil {
		for _, n := range f.Scene.Nodes {
			prim := n.Primitive
			if !open || prim.ID.Layer != layer {
				if open {
					canvas.Gend()
				}
				layer = prim.ID.Layer
				canvas.Group(attrPair("data-layer", layer))
				open = true
			}

			selected := !n.Overlay && f.Selection != nil && f.Selection.IsHighlighted(prim.ID)
			color, strokeWidth := f.Style.strokeFor(prim, selected)
			id := attrPair("data-handle", ObjectID(prim.ID))

			if prim.Kind == PrimText {
				anchor := view.Apply(prim.Points[0])
				canvas.Gtransform(fmt.Sprintf("translate(%s,%s) rotate(%s)",
					num(anchor.X), num(anchor.Y), num(-prim.Rotation)))
				canvas.Text(0, 0, prim.Text,
					fmt.Sprintf("fill:%s;font-size:%spx", color, num(prim.FontSize*f.View.Scale)), id)
				canvas.Gend()
				continue
			}
			if len(n.Path) == 0 {
				continue
			}

			fill := "none"
			if prim.Filled {
				fill = color
			}
			canvas.Path(pathData(n.Path, view),
				fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%s", fill, color, num(strokeWidth)), id)
		}
	}
	if open {
		canvas.Gend()
	}

	if f.Style.ShowBoundingBox && !f.Bounds.IsEmpty() {
		b := f.Bounds
		corners := []drawing.Vec2{
			{X: b.MinX, Y: b.MinY}, {X: b.MaxX(), Y: b.MinY}, {X: b.MaxX(), Y: b.MaxY()}, {X: b.MinX, Y: b.MaxY()},
		}
		canvas.Path(pathData(polylinePath(corners, true), view),
			fmt.Sprintf("fill:none;stroke:%s;stroke-dasharray:4,2", f.Style.BoundingBoxColor))
	}
	canvas.End()
}

// pathData encodes Canvas2D-style commands as SVG path data after applying m.
func pathData(path []PathCommand, m Matrix2D) string {
	var b strings.Builder
	for _, cmd := range path {
		if len(cmd) == 0 {
			continue
		}
		op, ok := cmd[0].(string)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(op)
		for i := 1; i+1 < len(cmd); i += 2 {
			x, y := m.TransformPoint(toFloat64(cmd[i]), toFloat64(cmd[i+1]))
			b.WriteByte(' ')
			b.WriteString(num(x))
			b.WriteByte(' ')
			b.WriteString(num(y))
		}
	}
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func attrPair(name, value string) string {
	return fmt.Sprintf(`%s="%s"`, name, html.EscapeString(value))
}
