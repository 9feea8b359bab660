package drawing

// NewSampleDrawing builds a small drawing that exercises every entity
// variant. Used by the wasm demo and the CLI sample command.
func NewSampleDrawing() *LayeredDrawing {
	d := NewLayeredDrawing()

	d.Append("Outline",
		&Polyline{
			Base:   Base{Type: TypeLWPolyline, Handle: "1A", Layer: "Outline"},
			Points: []Vec2{{0, 0}, {200, 0}, {200, 120}, {0, 120}},
			Closed: true,
		},
		&Line{
			Base:  Base{Type: TypeLine, Handle: "1B", Layer: "Outline"},
			Start: &Vec2{0, 60},
			End:   &Vec2{200, 60},
		},
	)

	d.Append("Holes",
		&Circle{
			Base:   Base{Type: TypeCircle, Handle: "2A", Layer: "Holes"},
			Center: &Vec2{40, 30},
			Radius: Ptr(12.0),
		},
		&Circle{
			Base:   Base{Type: TypeCircle, Handle: "2B", Layer: "Holes"},
			Center: &Vec2{160, 30},
			Radius: Ptr(12.0),
		},
		&Ellipse{
			Base:      Base{Type: TypeEllipse, Handle: "2C", Layer: "Holes"},
			Center:    &Vec2{100, 90},
			MajorAxis: &Vec2{30, 10},
			Ratio:     Ptr(0.5),
		},
	)

	d.Append("Curves",
		&Arc{
			Base:       Base{Type: TypeArc, Handle: "3A", Layer: "Curves"},
			Center:     &Vec2{100, 30},
			Radius:     Ptr(20.0),
			StartAngle: Ptr(0.0),
			EndAngle:   Ptr(270.0),
		},
		&Spline{
			Base:          Base{Type: TypeSpline, Handle: "3B", Layer: "Curves"},
			ControlPoints: []Vec2{{10, 100}, {40, 115}, {70, 95}, {90, 110}},
			Degree:        3,
		},
	)

	d.Append("Annotations",
		&Text{
			Base:   Base{Type: TypeText, Handle: "4A", Layer: "Annotations"},
			Text:   "SAMPLE PART",
			Insert: &Vec2{60, 130},
			Height: Ptr(6.0),
		},
		&Point{
			Base:     Base{Type: TypePoint, Handle: "4B", Layer: "Annotations"},
			Location: &Vec2{100, 60},
		},
	)

	d.Append("Fill",
		&Hatch{
			Base:        Base{Type: TypeHatch, Handle: "5A", Layer: "Fill"},
			PatternName: "SOLID",
			SolidFill:   true,
			BoundaryPaths: []BoundaryPath{{
				Type:   PathPolyline,
				Points: []Vec2{{170, 80}, {190, 80}, {190, 110}, {170, 110}},
				Closed: true,
			}},
		},
	)

	return d
}
