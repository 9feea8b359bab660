package engine

import "time"

// ZoomSettings bounds and steps the view scale.
type ZoomSettings struct {
	Min       float64
	Max       float64
	InFactor  float64
	OutFactor float64
	Initial   float64
}

// Settings is the engine's view of the renderer configuration.
type Settings struct {
	Bounds        BoundsConfig
	Map           MapOptions
	Zoom          ZoomSettings
	Style         RenderStyle
	OriginAxes    bool
	FitMargin     float64       // fraction of the container left empty on fit
	HitTolerance  float64       // pixels
	DragThreshold float64       // pixels
	CenterDelay   time.Duration // deferred centering after a load
}

// DefaultSettings returns the settings used for an empty configuration.
func DefaultSettings() Settings {
	return Settings{
		Bounds: DefaultBoundsConfig(),
		Map:    DefaultMapOptions(),
		Zoom: ZoomSettings{
			Min:       DefaultMinScale,
			Max:       DefaultMaxScale,
			InFactor:  DefaultZoomInFactor,
			OutFactor: DefaultZoomOutFactor,
			Initial:   1,
		},
		Style:         DefaultRenderStyle(),
		OriginAxes:    true,
		FitMargin:     DefaultFitMargin,
		HitTolerance:  4,
		DragThreshold: DefaultDragThreshold,
		CenterDelay:   50 * time.Millisecond,
	}
}

// normalized replaces unusable values with defaults.
func (s Settings) normalized() Settings {
	def := DefaultSettings()
	z := &s.Zoom
	if !(z.Min > 0) {
		z.Min = def.Zoom.Min
	}
	if !(z.Max >= z.Min) {
		z.Max = max(def.Zoom.Max, z.Min)
	}
	if !(z.InFactor > 1) {
		z.InFactor = def.Zoom.InFactor
	}
	if !(z.OutFactor > 0 && z.OutFactor < 1) {
		z.OutFactor = def.Zoom.OutFactor
	}
	if !(z.Initial > 0) {
		z.Initial = def.Zoom.Initial
	}
	if s.FitMargin < 0 || s.FitMargin >= 1 {
		s.FitMargin = def.FitMargin
	}
	if !(s.HitTolerance > 0) {
		s.HitTolerance = def.HitTolerance
	}
	if s.DragThreshold < 0 {
		s.DragThreshold = def.DragThreshold
	}
	if s.CenterDelay < 0 {
		s.CenterDelay = 0
	}
	if s.Map.TextScale <= 0 {
		s.Map.TextScale = def.Map.TextScale
	}
	if s.Map.PointRadius <= 0 {
		s.Map.PointRadius = def.Map.PointRadius
	}
	st := &s.Style
	if st.Background == "" {
		st.Background = def.Style.Background
	}
	if st.DefaultColor == "" {
		st.DefaultColor = def.Style.DefaultColor
	}
	if st.SelectionColor == "" {
		st.SelectionColor = def.Style.SelectionColor
	}
	if st.HoverColor == "" {
		st.HoverColor = def.Style.HoverColor
	}
	if st.BoundingBoxColor == "" {
		st.BoundingBoxColor = def.Style.BoundingBoxColor
	}
	if st.StrokeWidth <= 0 {
		st.StrokeWidth = def.Style.StrokeWidth
	}
	if st.SelectedStrokeWidth <= 0 {
		st.SelectedStrokeWidth = def.Style.SelectedStrokeWidth
	}
	return s
}
