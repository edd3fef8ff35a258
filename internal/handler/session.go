package handler

import (
	"net/http"

	"github.com/efreitasn/tradeserver/internal/session"
)

// SessionSource lists live protocol sessions, most recent first.
type SessionSource interface {
	Sessions() []*session.Session
}

// SessionHandler serves the live session list.
type SessionHandler struct {
	sessions SessionSource
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionSource) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
	}
}

type sessionResponse struct {
	SessionID   string `json:"session_id"`
	RemoteAddr  string `json:"remote_addr"`
	ConnectedAt string `json:"connected_at"`
}

type sessionListResponse struct {
	Sessions []sessionResponse `json:"sessions"`
	Total    int               `json:"total"`
}

// List handles GET /sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	live := h.sessions.Sessions()
	resp := make([]sessionResponse, len(live))
	for i, s := range live {
		resp[i] = sessionResponse{
			SessionID:   s.ID,
			RemoteAddr:  s.RemoteAddr,
			ConnectedAt: s.ConnectedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	WriteJSON(w, http.StatusOK, sessionListResponse{
		Sessions: resp,
		Total:    len(resp),
	})
}
