package upload

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dxfview/dxfview/internal/typeid"
)

const maxUploadSize = 50 << 20 // 50MB

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Handler stores uploaded DXF files.
type Handler struct {
	dir string // directory to store drawing files
}

// NewHandler creates a new upload handler that stores files in dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create drawing dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

// Upload handles POST /drawings/upload (multipart form with "file" field).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large (max 50MB)", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".dxf") {
		http.Error(w, "only .dxf files are supported", http.StatusBadRequest)
		return
	}

	drawingID := typeid.NewDrawingID()
	filePath := filepath.Join(h.dir, drawingID+".dxf")

	size, err := copyFile(filePath, file)
	if err != nil {
		slog.Error("save drawing file", "error", err)
		os.Remove(filePath)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}

	slog.Info("drawing uploaded", "id", drawingID, "name", header.Filename, "size", size)

	resp := UploadResponse{
		ID:   drawingID,
		Path: filePath,
		Name: header.Filename,
		Size: size,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Delete removes a drawing file from disk.
func (h *Handler) Delete(drawingID string) error {
	if err := typeid.Validate(drawingID, typeid.PrefixDrawing); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(h.dir, drawingID+".dxf")); err != nil {
		return fmt.Errorf("drawing not found: %s", drawingID)
	}
	return nil
}

// Remove handles DELETE /drawings/{drawingId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.Delete(mux.Vars(r)["drawingId"]); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// copyFile copies src reader to a file at dst path.
func copyFile(dst string, src io.Reader) (int64, error) {
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()
	return io.Copy(out, src)
}
