package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dxfview/dxfview/internal/config"
	"github.com/dxfview/dxfview/internal/engine"
	"github.com/dxfview/dxfview/internal/parser"
	"github.com/dxfview/dxfview/internal/typeid"
)

type Handler struct {
	service    *Service
	drawingDir string
}

func NewHandler(service *Service, drawingDir string) *Handler {
	return &Handler{service: service, drawingDir: drawingDir}
}

// Register mounts the session routes on an /api subrouter.
func (h *Handler) Register(api *mux.Router) {
	api.HandleFunc("/sessions", h.List).Methods("GET")
	api.HandleFunc("/sessions", h.Open).Methods("POST")
	api.HandleFunc("/sessions/{sessionId}", h.Get).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}", h.Close).Methods("DELETE")
	api.HandleFunc("/sessions/{sessionId}/reload", h.Reload).Methods("POST")
	api.HandleFunc("/sessions/{sessionId}/layers", h.Layers).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/layers/{layer}", h.SetLayer).Methods("PUT")
	api.HandleFunc("/sessions/{sessionId}/frame", h.Frame).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/view", h.View).Methods("POST")
	api.HandleFunc("/sessions/{sessionId}/click", h.Click).Methods("POST")
	api.HandleFunc("/sessions/{sessionId}/selection", h.GetSelection).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/selection", h.SetSelection).Methods("PUT")
	api.HandleFunc("/sessions/{sessionId}/selection", h.ClearSelection).Methods("DELETE")
	api.HandleFunc("/sessions/{sessionId}/markup/highlights", h.MarkupHighlights).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/debug", h.Debug).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/settings", h.SetSettings).Methods("PUT")
}

type openRequest struct {
	DrawingID string `json:"drawingId"`
	Path      string `json:"path"`
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

type clickRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type clickResponse struct {
	Hit       *engine.HitTestResult   `json:"hit"`
	Selection *engine.SelectedFeature `json:"selection"`
}

type frameResponse struct {
	View      engine.ViewState     `json:"view"`
	Container engine.Size          `json:"container"`
	Commands  []engine.DrawCommand `json:"commands"`
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	path := req.Path
	if req.DrawingID != "" {
		if err := typeid.Validate(req.DrawingID, typeid.PrefixDrawing); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid drawingId"})
			return
		}
		path = filepath.Join(h.drawingDir, req.DrawingID+".dxf")
	}
	if path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "drawingId or path is required"})
		return
	}

	sess, err := h.service.Open(r.Context(), path)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Info())
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.List())
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Close(mux.Vars(r)["sessionId"]); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Reload(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

func (h *Handler) Layers(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Engine.Layers())
}

func (h *Handler) SetLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	sess.Engine.SetLayerVisible(mux.Vars(r)["layer"], req.Visible)
	writeJSON(w, http.StatusOK, sess.Engine.Layers())
}

// Frame returns the draw commands for the current view. Optional width and
// height query parameters resize the container first.
func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if width, height, ok := sizeParams(r); ok {
		sess.Engine.Resize(width, height)
	}
	writeJSON(w, http.StatusOK, frameResponse{
		View:      sess.Engine.ViewState(),
		Container: sess.Engine.Container(),
		Commands:  sess.Engine.RenderCommands(),
	})
}

func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var action ViewAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := action.Apply(sess.Engine); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sess.Engine.ViewState())
}

// SetSettings applies a renderer config to one session. Unset options take
// their defaults; bounds are recomputed and the view is kept within the new
// zoom limits.
func (h *Handler) SetSettings(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req config.Renderer
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	sess.Engine.SetSettings(req.Normalize().EngineSettings())
	writeJSON(w, http.StatusOK, sess.Info())
}

func (h *Handler) Click(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	sess.Engine.PointerDown(req.X, req.Y)
	hit := sess.Engine.PointerUp(req.X, req.Y)
	writeJSON(w, http.StatusOK, clickResponse{Hit: hit, Selection: sess.Engine.Selection()})
}

func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Engine.Selection())
}

func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var f engine.SelectedFeature
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if _, err := sess.Engine.SetSelection(&f); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Engine.Selection())
}

func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Engine.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkupHighlights(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	ordinals := sess.Engine.MarkupHighlights()
	if ordinals == nil {
		ordinals = []int{}
	}
	writeJSON(w, http.StatusOK, map[string][]int{"ordinals": ordinals})
}

func (h *Handler) Debug(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Engine.DebugLog())
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, err := h.service.Get(mux.Vars(r)["sessionId"])
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return sess, true
}

func sizeParams(r *http.Request) (float64, float64, bool) {
	q := r.URL.Query()
	width, err := strconv.ParseFloat(q.Get("width"), 64)
	if err != nil {
		return 0, 0, false
	}
	height, err := strconv.ParseFloat(q.Get("height"), 64)
	if err != nil {
		return 0, 0, false
	}
	return width, height, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	var decodeErr *parser.DecodeError
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, engine.ErrNoEntity):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "entity not found"})
	case errors.As(err, &decodeErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": decodeErr.Error()})
	default:
		slog.Error("session request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
