package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dxfview/dxfview/internal/session"
)

type Handler struct {
	sessions *session.Service
}

func NewHandler(sessions *session.Service) *Handler {
	return &Handler{sessions: sessions}
}

// ExportSVG handles GET /api/sessions/{sessionId}/export.svg. The current
// view is written as an SVG attachment.
func (h *Handler) ExportSVG(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(mux.Vars(r)["sessionId"])
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(sess.Path), filepath.Ext(sess.Path))
	}
	name = sanitize(name)

	var buf bytes.Buffer
	sess.Engine.RenderSVG(&buf)

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.svg"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())

	slog.Info("export complete", "session", sess.ID, "size", buf.Len())
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
	if name == "" {
		return "drawing"
	}
	return name
}
