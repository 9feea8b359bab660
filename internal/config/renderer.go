package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dxfview/dxfview/internal/engine"
)

// Renderer mirrors the viewer's renderer configuration object. Every field
// is optional; Normalize fills in defaults. JSON files load too, since JSON
// is valid YAML.
type Renderer struct {
	Canvas Canvas `yaml:"canvas" json:"canvas"`
}

type Canvas struct {
	Zoom      Zoom      `yaml:"zoom" json:"zoom"`
	Colors    Colors    `yaml:"colors" json:"colors"`
	Rendering Rendering `yaml:"rendering" json:"rendering"`
}

type Zoom struct {
	Min       float64 `yaml:"min" json:"min"`
	Max       float64 `yaml:"max" json:"max"`
	InFactor  float64 `yaml:"inFactor" json:"inFactor"`
	OutFactor float64 `yaml:"outFactor" json:"outFactor"`
	Initial   float64 `yaml:"initial" json:"initial"`
}

type Colors struct {
	Background  string `yaml:"background" json:"background"`
	Default     string `yaml:"default" json:"default"`
	Selection   string `yaml:"selection" json:"selection"`
	Hover       string `yaml:"hover" json:"hover"`
	BoundingBox string `yaml:"boundingBox" json:"boundingBox"`
}

// Rendering holds bounds and drawing tuning. Pointer fields distinguish
// "unset" from an explicit zero.
type Rendering struct {
	ShowBoundingBox                bool     `yaml:"showBoundingBox" json:"showBoundingBox"`
	ShowOriginAxes                 *bool    `yaml:"showOriginAxes" json:"showOriginAxes"`
	ThresholdForExtremeCoordinates float64  `yaml:"thresholdForExtremeCoordinates" json:"thresholdForExtremeCoordinates"`
	BoundsPadding                  *float64 `yaml:"boundsPadding" json:"boundsPadding"`
	MinimumEntitySize              float64  `yaml:"minimumEntitySize" json:"minimumEntitySize"`
	MaxAspectRatio                 float64  `yaml:"maxAspectRatio" json:"maxAspectRatio"`
	MinTextBoxSize                 float64  `yaml:"minTextBoxSize" json:"minTextBoxSize"`
	TextPadding                    *float64 `yaml:"textPadding" json:"textPadding"`
	DisableSmallCorrection         bool     `yaml:"disableSmallCorrection" json:"disableSmallCorrection"`
	DisableAspectCorrection        bool     `yaml:"disableAspectCorrection" json:"disableAspectCorrection"`
	TextScaleFactor                float64  `yaml:"textScaleFactor" json:"textScaleFactor"`
	PointSize                      float64  `yaml:"pointSize" json:"pointSize"`
	LineWidth                      float64  `yaml:"lineWidth" json:"lineWidth"`
	SelectedLineWidth              float64  `yaml:"selectedLineWidth" json:"selectedLineWidth"`
	FitMargin                      *float64 `yaml:"fitMargin" json:"fitMargin"`
	HitTolerance                   float64  `yaml:"hitTolerance" json:"hitTolerance"`
	DragThreshold                  *float64 `yaml:"dragThreshold" json:"dragThreshold"`
	CenterDelayMS                  *int     `yaml:"centerDelayMs" json:"centerDelayMs"`
}

// DefaultRenderer returns the configuration used when no file is given.
func DefaultRenderer() Renderer {
	return Renderer{}.Normalize()
}

// LoadRenderer reads a YAML or JSON renderer config. An empty path yields
// the defaults.
func LoadRenderer(path string) (Renderer, error) {
	if path == "" {
		return DefaultRenderer(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Renderer{}, fmt.Errorf("read renderer config: %w", err)
	}
	return ParseRenderer(data)
}

// ParseRenderer decodes a renderer config and normalizes it.
func ParseRenderer(data []byte) (Renderer, error) {
	var r Renderer
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Renderer{}, fmt.Errorf("parse renderer config: %w", err)
	}
	return r.Normalize(), nil
}

// Normalize replaces unset values with defaults.
func (r Renderer) Normalize() Renderer {
	def := engine.DefaultSettings()
	bounds := engine.DefaultBoundsConfig()

	z := &r.Canvas.Zoom
	orFloat(&z.Min, def.Zoom.Min)
	orFloat(&z.Max, def.Zoom.Max)
	orFloat(&z.InFactor, def.Zoom.InFactor)
	orFloat(&z.OutFactor, def.Zoom.OutFactor)
	orFloat(&z.Initial, def.Zoom.Initial)
	if z.Max < z.Min {
		z.Max = z.Min
	}

	c := &r.Canvas.Colors
	orString(&c.Background, def.Style.Background)
	orString(&c.Default, def.Style.DefaultColor)
	orString(&c.Selection, def.Style.SelectionColor)
	orString(&c.Hover, def.Style.HoverColor)
	orString(&c.BoundingBox, def.Style.BoundingBoxColor)

	g := &r.Canvas.Rendering
	if g.ShowOriginAxes == nil {
		g.ShowOriginAxes = ptr(def.OriginAxes)
	}
	orFloat(&g.ThresholdForExtremeCoordinates, bounds.OutlierThreshold)
	if g.BoundsPadding == nil || *g.BoundsPadding < 0 {
		g.BoundsPadding = ptr(bounds.Padding)
	}
	orFloat(&g.MinimumEntitySize, bounds.MinDimension)
	orFloat(&g.MaxAspectRatio, bounds.MaxAspect)
	orFloat(&g.MinTextBoxSize, bounds.MinTextBoxSize)
	if g.TextPadding == nil || *g.TextPadding < 0 {
		g.TextPadding = ptr(bounds.TextPadding)
	}
	orFloat(&g.TextScaleFactor, def.Map.TextScale)
	orFloat(&g.PointSize, def.Map.PointRadius)
	orFloat(&g.LineWidth, def.Style.StrokeWidth)
	orFloat(&g.SelectedLineWidth, def.Style.SelectedStrokeWidth)
	if g.FitMargin == nil || *g.FitMargin < 0 || *g.FitMargin >= 1 {
		g.FitMargin = ptr(def.FitMargin)
	}
	orFloat(&g.HitTolerance, def.HitTolerance)
	if g.DragThreshold == nil || *g.DragThreshold < 0 {
		g.DragThreshold = ptr(def.DragThreshold)
	}
	if g.CenterDelayMS == nil || *g.CenterDelayMS < 0 {
		g.CenterDelayMS = ptr(int(def.CenterDelay / time.Millisecond))
	}
	return r
}

// EngineSettings converts the config for the engine.
func (r Renderer) EngineSettings() engine.Settings {
	r = r.Normalize()
	z, c, g := r.Canvas.Zoom, r.Canvas.Colors, r.Canvas.Rendering
	return engine.Settings{
		Bounds: engine.BoundsConfig{
			OutlierThreshold:        g.ThresholdForExtremeCoordinates,
			Padding:                 *g.BoundsPadding,
			MinDimension:            g.MinimumEntitySize,
			MaxAspect:               g.MaxAspectRatio,
			RecenterHalfSize:        engine.DefaultBoundsConfig().RecenterHalfSize,
			MinTextBoxSize:          g.MinTextBoxSize,
			TextPadding:             *g.TextPadding,
			PointMargin:             engine.DefaultBoundsConfig().PointMargin,
			DisableSmallCorrection:  g.DisableSmallCorrection,
			DisableAspectCorrection: g.DisableAspectCorrection,
		},
		Map: engine.MapOptions{TextScale: g.TextScaleFactor, PointRadius: g.PointSize},
		Zoom: engine.ZoomSettings{
			Min:       z.Min,
			Max:       z.Max,
			InFactor:  z.InFactor,
			OutFactor: z.OutFactor,
			Initial:   z.Initial,
		},
		Style: engine.RenderStyle{
			Background:          c.Background,
			DefaultColor:        c.Default,
			SelectionColor:      c.Selection,
			HoverColor:          c.Hover,
			BoundingBoxColor:    c.BoundingBox,
			StrokeWidth:         g.LineWidth,
			SelectedStrokeWidth: g.SelectedLineWidth,
			ShowBoundingBox:     g.ShowBoundingBox,
		},
		OriginAxes:    *g.ShowOriginAxes,
		FitMargin:     *g.FitMargin,
		HitTolerance:  g.HitTolerance,
		DragThreshold: *g.DragThreshold,
		CenterDelay:   time.Duration(*g.CenterDelayMS) * time.Millisecond,
	}
}

func orFloat(v *float64, def float64) {
	if !(*v > 0) {
		*v = def
	}
}

func orString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func ptr[T any](v T) *T { return &v }
