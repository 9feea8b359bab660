//go:build js && wasm

package main

import (
	"encoding/json"
	"errors"
	"syscall/js"

	"github.com/dxfview/dxfview/internal/config"
	"github.com/dxfview/dxfview/internal/drawing"
	"github.com/dxfview/dxfview/internal/engine"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine()

	dxfviewEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	dxfviewEngine.Set("loadDrawing", js.FuncOf(loadDrawing))
	dxfviewEngine.Set("loadSampleDrawing", js.FuncOf(loadSampleDrawing))
	dxfviewEngine.Set("loadMarkup", js.FuncOf(loadMarkup))
	dxfviewEngine.Set("failLoad", js.FuncOf(failLoad))
	dxfviewEngine.Set("resize", js.FuncOf(resize))
	dxfviewEngine.Set("wheel", js.FuncOf(wheel))
	dxfviewEngine.Set("zoomIn", js.FuncOf(zoomIn))
	dxfviewEngine.Set("zoomOut", js.FuncOf(zoomOut))
	dxfviewEngine.Set("pan", js.FuncOf(pan))
	dxfviewEngine.Set("fitView", js.FuncOf(fitView))
	dxfviewEngine.Set("resetView", js.FuncOf(resetView))
	dxfviewEngine.Set("pointerDown", js.FuncOf(pointerDown))
	dxfviewEngine.Set("pointerMove", js.FuncOf(pointerMove))
	dxfviewEngine.Set("pointerUp", js.FuncOf(pointerUp))
	dxfviewEngine.Set("clickEntity", js.FuncOf(clickEntity))
	dxfviewEngine.Set("setSelection", js.FuncOf(setSelection))
	dxfviewEngine.Set("clearSelection", js.FuncOf(clearSelection))
	dxfviewEngine.Set("setLayerVisible", js.FuncOf(setLayerVisible))
	dxfviewEngine.Set("setSettings", js.FuncOf(setSettings))
	dxfviewEngine.Set("onSelectionChange", js.FuncOf(onSelectionChange))

	// --- Queries (frontend ← engine) ---
	dxfviewEngine.Set("render", js.FuncOf(render))
	dxfviewEngine.Set("hitTest", js.FuncOf(hitTest))
	dxfviewEngine.Set("getViewState", js.FuncOf(getViewState))
	dxfviewEngine.Set("getSelection", js.FuncOf(getSelection))
	dxfviewEngine.Set("getBounds", js.FuncOf(getBounds))
	dxfviewEngine.Set("getLayers", js.FuncOf(getLayers))
	dxfviewEngine.Set("getMarkupHighlights", js.FuncOf(getMarkupHighlights))
	dxfviewEngine.Set("getError", js.FuncOf(getError))
	dxfviewEngine.Set("getDebugLog", js.FuncOf(getDebugLog))

	js.Global().Set("dxfviewEngine", dxfviewEngine)
	js.Global().Set("dxfviewWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

func toJSON(v any) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf("null")
	}
	return js.ValueOf(string(data))
}

func floats(args []js.Value, n int) ([]float64, bool) {
	if len(args) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = args[i].Float()
	}
	return out, true
}

// --- Command Handlers ---

func loadDrawing(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing drawing JSON")
	}
	d, err := drawing.Decode([]byte(args[0].String()))
	if err != nil {
		eng.FailLoad(err)
		return fail(err.Error())
	}
	eng.LoadDrawing(d)
	return ok()
}

func loadSampleDrawing(this js.Value, args []js.Value) interface{} {
	eng.LoadDrawing(drawing.NewSampleDrawing())
	return ok()
}

func loadMarkup(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing markup")
	}
	if err := eng.LoadMarkup(args[0].String()); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func failLoad(this js.Value, args []js.Value) interface{} {
	msg := "load failed"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		msg = args[0].String()
	}
	eng.FailLoad(errors.New(msg))
	return nil
}

func resize(this js.Value, args []js.Value) interface{} {
	if v, ok := floats(args, 2); ok {
		eng.Resize(v[0], v[1])
	}
	return nil
}

func wheel(this js.Value, args []js.Value) interface{} {
	v, ok := floats(args, 3)
	if !ok {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.Wheel(v[0], v[1], v[2]))
}

func zoomIn(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.ZoomIn())
}

func zoomOut(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.ZoomOut())
}

func pan(this js.Value, args []js.Value) interface{} {
	if v, ok := floats(args, 2); ok {
		eng.Pan(v[0], v[1])
	}
	return nil
}

func fitView(this js.Value, args []js.Value) interface{} {
	eng.FitView()
	return nil
}

func resetView(this js.Value, args []js.Value) interface{} {
	eng.ResetView()
	return nil
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if v, ok := floats(args, 2); ok {
		eng.PointerDown(v[0], v[1])
	}
	return nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	v, ok := floats(args, 2)
	if !ok {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.PointerMove(v[0], v[1]))
}

// pointerUp returns the hit as JSON, or "null" for a drag or a miss.
func pointerUp(this js.Value, args []js.Value) interface{} {
	v, ok := floats(args, 2)
	if !ok {
		return js.ValueOf("null")
	}
	return toJSON(eng.PointerUp(v[0], v[1]))
}

func clickEntity(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return fail("clickEntity(layer, type, index)")
	}
	f, err := eng.ClickEntity(args[0].String(), args[1].String(), args[2].Int())
	if err != nil {
		return fail(err.Error())
	}
	return toJSON(f)
}

func setSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		eng.ClearSelection()
		return ok()
	}
	var f engine.SelectedFeature
	if err := json.Unmarshal([]byte(args[0].String()), &f); err != nil {
		return fail(err.Error())
	}
	if _, err := eng.SetSelection(&f); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func clearSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.ClearSelection())
}

func setLayerVisible(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.SetLayerVisible(args[0].String(), args[1].Bool())
	return nil
}

// setSettings applies a renderer config given as JSON or YAML.
func setSettings(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing renderer config")
	}
	r, err := config.ParseRenderer([]byte(args[0].String()))
	if err != nil {
		return fail(err.Error())
	}
	eng.SetSettings(r.EngineSettings())
	return ok()
}

// onSelectionChange registers fn(selectionJSON, source). The callback runs
// on its own goroutine so it may call back into the engine.
func onSelectionChange(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}
	fn := args[0]
	eng.OnSelectionChange(func(f *engine.SelectedFeature, src engine.SelectionSource) {
		payload := toJSON(f)
		go fn.Invoke(payload, js.ValueOf(string(src)))
	})
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	v, ok := floats(args, 2)
	if !ok {
		return js.ValueOf("null")
	}
	return toJSON(eng.HitTest(v[0], v[1]))
}

func getViewState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetViewState())
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelection())
}

func getBounds(this js.Value, args []js.Value) interface{} {
	box, report := eng.Bounds()
	return toJSON(map[string]any{"box": box, "report": report})
}

func getLayers(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.Layers())
}

func getMarkupHighlights(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.MarkupHighlights())
}

func getError(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Error())
}

func getDebugLog(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.DebugLog())
}
