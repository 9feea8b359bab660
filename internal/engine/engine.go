package engine

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/dxfview/dxfview/internal/drawing"
	"github.com/dxfview/dxfview/internal/logbuf"
)

// ErrNoEntity is returned when a selection names an entity that does not
// exist in the current drawing.
var ErrNoEntity = errors.New("entity not found")

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithDebugLog logs into ring (and on to next, which may be nil) and exposes
// the ring through DebugLog.
func WithDebugLog(ring *logbuf.Ring, next slog.Handler) Option {
	return func(e *Engine) {
		e.debug = ring
		e.log = slog.New(logbuf.NewHandler(ring, slog.LevelDebug, next))
	}
}

// WithScheduler replaces the timer used for deferred centering.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithSettings sets the initial settings.
func WithSettings(s Settings) Option {
	return func(e *Engine) { e.settings = s.normalized() }
}

// LayerInfo summarizes one layer for the layer panel.
type LayerInfo struct {
	Name     string `json:"name"`
	Entities int    `json:"entities"`
	Visible  bool   `json:"visible"`
}

// Engine owns the loaded drawing, its view and its selection. It processes
// commands from the frontend and returns query results. All methods are safe
// for concurrent use; each one runs atomically.
type Engine struct {
	mu sync.Mutex

	log      *slog.Logger
	debug    *logbuf.Ring
	sched    Scheduler
	settings Settings

	// Document state
	drawing     *drawing.LayeredDrawing
	firstHandle string
	visibility  drawing.Visibility
	lastErr     string

	// View state
	container Size
	view      ViewState
	bounds    BoundingBox
	report    BoundsReport
	drag      *DragTracker
	centerGen uint64
	viewHooks []func(ViewState)

	selection *SelectionController
	markup    *MarkupIndex

	// Retained scene graph, rebuilt when dirty
	scene *SceneGraph
	dirty bool
}

// NewEngine creates a new engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		log:        slog.Default(),
		sched:      timerScheduler{},
		settings:   DefaultSettings(),
		visibility: drawing.Visibility{},
		selection:  NewSelectionController(),
		bounds:     FallbackBounds,
		dirty:      true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.view = ViewState{Scale: e.settings.Zoom.Initial}
	e.drag = NewDragTracker(e.settings.DragThreshold)
	return e
}

// OnSelectionChange registers a selection listener. Listeners run while the
// engine is locked and must not call back into it.
func (e *Engine) OnSelectionChange(l SelectionListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selection.OnChange(l)
}

// OnViewChange registers a callback for view changes that happen outside a
// command, such as deferred centering. It runs without the lock held.
func (e *Engine) OnViewChange(f func(ViewState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.viewHooks = append(e.viewHooks, f)
}

// --- Commands (frontend → backend) ---

// LoadDrawing installs a parse result. A drawing whose first handle differs
// from the current one is treated as a new file: bounds are recomputed, the
// view is fit and the selection cleared. Otherwise the view is kept and the
// selection is re-synchronized against the new entities. Reports whether
// the drawing was new.
func (e *Engine) LoadDrawing(d *drawing.LayeredDrawing) bool {
	if d == nil {
		e.FailLoad(errors.New("no drawing"))
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	handle := d.FirstHandle()
	isNew := e.drawing == nil || handle != e.firstHandle
	e.drawing = d
	e.firstHandle = handle
	e.lastErr = ""
	e.dirty = true
	e.recomputeBounds()

	e.log.Info("drawing loaded",
		"layers", len(d.LayerNames()),
		"entities", d.EntityCount(),
		"firstHandle", handle,
		"new", isNew)

	if isNew {
		e.selection.Clear()
		e.markup = nil
		e.view = e.fitView()
		e.scheduleCentering()
		return true
	}
	e.resyncSelection()
	return false
}

// FailLoad records a parse failure. The last good drawing and selection
// stay in place.
func (e *Engine) FailLoad(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		return
	}
	e.lastErr = err.Error()
	e.log.Error("drawing load failed", "error", err, "keptDrawing", e.drawing != nil)
}

// LoadMarkup indexes pre-rendered SVG for the markup highlight fallback.
func (e *Engine) LoadMarkup(markup string) error {
	ix, err := BuildMarkupIndex(markup)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.markup = ix
	e.log.Debug("markup indexed", "shapes", ix.Len())
	return nil
}

// SetVisibility replaces the layer visibility map. Bounds follow the
// visible content; the view is kept.
func (e *Engine) SetVisibility(v drawing.Visibility) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visibility = v.Clone()
	e.dirty = true
	e.recomputeBounds()
}

// SetLayerVisible toggles one layer.
func (e *Engine) SetLayerVisible(layer string, visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.visibility.IsVisible(layer) == visible {
		return
	}
	e.visibility[layer] = visible
	e.dirty = true
	e.recomputeBounds()
	e.log.Debug("layer visibility", "layer", layer, "visible", visible)
}

// SetSettings applies a new renderer configuration. Bounds are recomputed,
// the view is kept within the new scale limits.
func (e *Engine) SetSettings(s Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s.normalized()
	e.drag = NewDragTracker(e.settings.DragThreshold)
	e.dirty = true
	e.recomputeBounds()

	z := e.settings.Zoom
	if clamped := ClampScale(e.view.Scale, z.Min, z.Max); clamped != e.view.Scale {
		c := ScreenToDrawing(e.center(), e.view, e.container)
		e.view = ViewState{Scale: clamped, OffsetX: -c.X * clamped, OffsetY: c.Y * clamped}
	}
}

// Resize records a new container size. The first usable size fits the
// drawing; later ones keep the visible region.
func (e *Engine) Resize(width, height float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := Size{Width: width, Height: height}
	if next.IsEmpty() || math.IsInf(width, 0) || math.IsInf(height, 0) {
		e.log.Warn("ignoring resize", "width", width, "height", height)
		return
	}
	if next == e.container {
		return
	}

	old := e.container
	e.container = next
	if old.IsEmpty() {
		if e.drawing != nil {
			e.view = e.fitView()
		}
		return
	}
	e.view = ResizeView(e.view, old, next, e.settings.Zoom.Min, e.settings.Zoom.Max)
}

// Wheel zooms around the cursor: negative deltaY zooms in. Reports whether
// the view changed.
func (e *Engine) Wheel(x, y, deltaY float64) bool {
	if deltaY == 0 {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	factor := e.settings.Zoom.OutFactor
	if deltaY < 0 {
		factor = e.settings.Zoom.InFactor
	}
	return e.zoomAt(drawing.Vec2{X: x, Y: y}, factor)
}

// ZoomIn zooms one step around the container center.
func (e *Engine) ZoomIn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.zoomAt(e.center(), e.settings.Zoom.InFactor)
}

// ZoomOut zooms one step out around the container center.
func (e *Engine) ZoomOut() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.zoomAt(e.center(), e.settings.Zoom.OutFactor)
}

// Pan moves the view by a screen delta.
func (e *Engine) Pan(dx, dy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelCentering()
	e.view = PanBy(e.view, dx, dy)
}

// PointerDown starts a drag or click.
func (e *Engine) PointerDown(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.drag.Down(drawing.Vec2{X: x, Y: y})
}

// PointerMove pans once the pointer has left the drag threshold. Reports
// whether the view moved.
func (e *Engine) PointerMove(x, y float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	dx, dy, ok := e.drag.Move(drawing.Vec2{X: x, Y: y})
	if !ok {
		return false
	}
	e.cancelCentering()
	e.view = PanBy(e.view, dx, dy)
	return true
}

// PointerUp ends the gesture. A release that never became a drag is a
// click: the entity under the pointer is selected (or deselected when it
// already was). Returns the hit, or nil.
func (e *Engine) PointerUp(x, y float64) *HitTestResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.drag.Up() {
		return nil
	}
	hit := e.hitTest(x, y)
	if hit == nil {
		return nil
	}
	if _, err := e.clickEntity(hit.Layer, hit.Type, hit.Index); err != nil {
		e.log.Warn("click on stale entity", "object", hit.ObjectID, "error", err)
	}
	return hit
}

// ClickEntity toggles the selection of an entity, as a canvas click does.
func (e *Engine) ClickEntity(layer, entityType string, index int) (*SelectedFeature, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clickEntity(layer, entityType, index)
}

// SetSelection applies a selection made in the tree. nil clears it.
func (e *Engine) SetSelection(f *SelectedFeature) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f == nil {
		return e.selection.Set(nil), nil
	}
	next := *f
	if e.drawing != nil {
		if ent, ok := e.drawing.Entity(next.LayerName, next.EntityIndex); ok && ent != nil {
			if ent.Header().Type != next.EntityType {
				return false, ErrNoEntity
			}
			next.Entity = ent
		} else {
			return false, ErrNoEntity
		}
	}
	return e.selection.Set(&next), nil
}

// ClearSelection drops any selection.
func (e *Engine) ClearSelection() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection.Set(nil)
}

// FitView recomputes bounds and fits them. Any pending deferred centering
// is dropped.
func (e *Engine) FitView() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelCentering()
	e.recomputeBounds()
	e.view = e.fitView()
}

// ResetView fits the current bounds without recomputing them. Any pending
// deferred centering is dropped.
func (e *Engine) ResetView() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelCentering()
	e.view = e.fitView()
}

// --- Queries (frontend ← backend) ---

// Render returns the current frame as draw-command JSON.
func (e *Engine) Render() string {
	result, err := DrawCommandsToJSON(e.RenderCommands())
	if err != nil {
		e.log.Error("encode draw commands", "error", err)
	}
	return result
}

// RenderCommands returns the current frame's draw commands.
func (e *Engine) RenderCommands() []DrawCommand {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CompileDrawCommands(e.frame())
}

// RenderSVG writes the current frame as SVG.
func (e *Engine) RenderSVG(w io.Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	RenderSVG(w, e.frame())
}

// HitTest returns the entity under a screen point, or nil.
func (e *Engine) HitTest(x, y float64) *HitTestResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hitTest(x, y)
}

// ViewState returns the current view.
func (e *Engine) ViewState() ViewState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// Container returns the current container size.
func (e *Engine) Container() Size {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.container
}

// Bounds returns the content bounds and how they were derived.
func (e *Engine) Bounds() (BoundingBox, BoundsReport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bounds, e.report
}

// Selection returns a copy of the selection, or nil.
func (e *Engine) Selection() *SelectedFeature {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection.Current()
}

// MarkupHighlights returns the ordinals of the markup shapes that stand for
// the selection.
func (e *Engine) MarkupHighlights() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return HighlightMarkup(e.markup, e.selection.Current())
}

// Error returns the last load error, or "" after a successful load.
func (e *Engine) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Drawing returns the loaded drawing. Callers must not mutate it.
func (e *Engine) Drawing() *drawing.LayeredDrawing {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drawing
}

// Layers lists the drawing's layers in order, followed by the origin
// overlay.
func (e *Engine) Layers() []LayerInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []LayerInfo
	if e.drawing != nil {
		for _, l := range e.drawing.Layers() {
			out = append(out, LayerInfo{Name: l.Name, Entities: len(l.Entities), Visible: e.visibility.IsVisible(l.Name)})
		}
	}
	if e.settings.OriginAxes {
		out = append(out, LayerInfo{Name: drawing.OriginLayer, Entities: 2, Visible: e.visibility.IsVisible(drawing.OriginLayer)})
	}
	return out
}

// DebugLog returns the retained log entries, oldest first.
func (e *Engine) DebugLog() []logbuf.Entry {
	if e.debug == nil {
		return nil
	}
	return e.debug.Entries()
}

// GetViewState returns the view as JSON.
func (e *Engine) GetViewState() string {
	data, _ := json.Marshal(e.ViewState())
	return string(data)
}

// GetSelection returns the selection as JSON ("null" when empty).
func (e *Engine) GetSelection() string {
	data, _ := json.Marshal(e.Selection())
	return string(data)
}

// --- internals, called with mu held ---

func (e *Engine) frame() Frame {
	if e.dirty {
		e.scene = BuildSceneGraph(e.drawing, e.visibility, e.settings.Map, e.settings.OriginAxes)
		e.dirty = false
		if e.scene.Skipped > 0 {
			e.log.Debug("entities not rendered", "count", e.scene.Skipped)
		}
	}
	return Frame{
		Scene:     e.scene,
		View:      e.view,
		Container: e.container,
		Bounds:    e.bounds,
		Style:     e.settings.Style,
		Selection: e.selection,
	}
}

func (e *Engine) recomputeBounds() {
	var entities []drawing.Entity
	if e.drawing != nil {
		entities = e.drawing.VisibleEntities(e.visibility)
	}
	e.bounds, e.report = ComputeBoundsReport(entities, e.settings.Bounds)
	e.log.Debug("bounds computed",
		"minX", e.bounds.MinX, "minY", e.bounds.MinY,
		"width", e.bounds.Width, "height", e.bounds.Height,
		"outliers", e.report.Outliers,
		"corrected", e.report.Corrected,
		"fallback", e.report.Fallback)
}

// fitView fits the bounds into the container within the zoom limits. Without
// a container the initial scale is used.
func (e *Engine) fitView() ViewState {
	z := e.settings.Zoom
	if e.container.IsEmpty() {
		return ViewState{Scale: ClampScale(z.Initial, z.Min, z.Max)}
	}
	v := FitToBox(e.bounds, e.container, e.settings.FitMargin)
	if s := ClampScale(v.Scale, z.Min, z.Max); s != v.Scale {
		v = ViewState{Scale: s, OffsetX: -e.bounds.CenterX() * s, OffsetY: e.bounds.CenterY() * s}
	}
	return v
}

func (e *Engine) zoomAt(p drawing.Vec2, factor float64) bool {
	next, changed := ZoomAtPoint(e.view, p, e.container, factor, e.settings.Zoom.Min, e.settings.Zoom.Max)
	if !changed {
		return false
	}
	e.cancelCentering()
	e.view = next
	return true
}

func (e *Engine) center() drawing.Vec2 {
	return drawing.Vec2{X: e.container.Width / 2, Y: e.container.Height / 2}
}

// scheduleCentering refits after a short delay, once the frontend has laid
// out the container. A newer fit, reset or user zoom/pan supersedes it.
func (e *Engine) scheduleCentering() {
	e.centerGen++
	gen := e.centerGen
	e.sched.AfterFunc(e.settings.CenterDelay, func() {
		e.mu.Lock()
		if gen != e.centerGen {
			e.mu.Unlock()
			e.log.Debug("deferred centering superseded", "generation", gen)
			return
		}
		e.view = e.fitView()
		view := e.view
		hooks := append([]func(ViewState){}, e.viewHooks...)
		e.mu.Unlock()

		for _, h := range hooks {
			h(view)
		}
	})
}

func (e *Engine) cancelCentering() {
	e.centerGen++
}

func (e *Engine) hitTest(x, y float64) *HitTestResult {
	if e.drawing == nil {
		return nil
	}
	sg := e.frame().Scene
	p := ScreenToDrawing(drawing.Vec2{X: x, Y: y}, e.view, e.container)
	n := HitTest(sg, p, e.settings.HitTolerance/e.view.Scale)
	if n == nil {
		return nil
	}
	id := n.Primitive.ID
	return &HitTestResult{ObjectID: ObjectID(id), Layer: id.Layer, Type: id.Type, Index: id.Index, X: p.X, Y: p.Y}
}

func (e *Engine) clickEntity(layer, entityType string, index int) (*SelectedFeature, error) {
	if e.drawing == nil {
		return nil, ErrNoEntity
	}
	ent, ok := e.drawing.Entity(layer, index)
	if !ok || ent == nil || ent.Header().Type != entityType {
		return nil, ErrNoEntity
	}
	f := e.selection.Select(layer, entityType, index, ent)
	if f != nil {
		e.log.Info("entity selected", "layer", layer, "type", entityType, "index", index, "handle", f.Handle())
	} else {
		e.log.Info("selection cleared", "layer", layer, "type", entityType, "index", index)
	}
	return f, nil
}

// resyncSelection refreshes the selected snapshot after a reparse of the
// same drawing, or clears the selection when its entity is gone.
func (e *Engine) resyncSelection() {
	cur := e.selection.Current()
	if cur == nil {
		return
	}
	ent, ok := e.drawing.Entity(cur.LayerName, cur.EntityIndex)
	if !ok || ent == nil || ent.Header().Type != cur.EntityType {
		e.selection.Clear()
		return
	}
	e.selection.refresh(ent)
}
