package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type Handler struct {
	service *Service
	exists  func(sessionID string) bool
}

// NewHandler creates the token handler. exists reports whether a session
// is open; tokens are only issued for open sessions.
func NewHandler(service *Service, exists func(sessionID string) bool) *Handler {
	return &Handler{service: service, exists: exists}
}

type tokenRequest struct {
	SessionID  string `json:"sessionId"` // empty for an all-sessions token
	Passphrase string `json:"passphrase"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"sessionId"`
}

// Token handles POST /auth/token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.service.CheckPassphrase(req.Passphrase); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		slog.Error("check passphrase failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	subject := req.SessionID
	if subject == "" {
		subject = AnySession
	} else if h.exists != nil && !h.exists(subject) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}

	token, err := h.service.IssueToken(subject)
	if err != nil {
		slog.Error("issue token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, SessionID: subject})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
