package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/httputil"
	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/session"
	"beomusic_backend/internal/transport/http/middleware"
)

// SessionHandler exposes server-held browse sessions, for clients that
// page with "load more" instead of passing cursors around.
type SessionHandler struct {
	browser *session.Browser
	log     *logrus.Entry
}

func NewSessionHandler(browser *session.Browser, log *logrus.Logger) *SessionHandler {
	return &SessionHandler{
		browser: browser,
		log:     logger.Component(log, "SessionHandler"),
	}
}

type openSessionRequest struct {
	PageSize int `json:"page_size"`
}

// Open handles POST /songs/{songId}/comment-sessions
// Starts a session and returns it with the first page.
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	songID := chi.URLParam(r, "songId")

	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.PageSize < 0 {
		httputil.WriteBadRequest(w, "page_size must not be negative")
		return
	}

	page, err := h.browser.Open(r.Context(), viewerID, songID, req.PageSize)
	if err != nil {
		h.writeError(w, err, logrus.Fields{"song_id": songID})
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, page)
}

// Get handles GET /comment-sessions/{sessionId}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(viewerID, sessionID string) (interface{}, error) {
		return h.browser.Get(r.Context(), viewerID, sessionID)
	})
}

// More handles POST /comment-sessions/{sessionId}/more
func (h *SessionHandler) More(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(viewerID, sessionID string) (interface{}, error) {
		return h.browser.LoadMore(r.Context(), viewerID, sessionID)
	})
}

// Reset handles POST /comment-sessions/{sessionId}/reset
// Restarts from the newest comment; the only way out of a failed session.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(viewerID, sessionID string) (interface{}, error) {
		return h.browser.Reset(r.Context(), viewerID, sessionID)
	})
}

// Close handles DELETE /comment-sessions/{sessionId}
// A load still running for the session is discarded when it finishes.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	sessionID := chi.URLParam(r, "sessionId")

	if err := h.browser.Close(r.Context(), viewerID, sessionID); err != nil {
		h.writeError(w, err, logrus.Fields{"session_id": sessionID})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) withSession(w http.ResponseWriter, r *http.Request, call func(viewerID, sessionID string) (interface{}, error)) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	sessionID := chi.URLParam(r, "sessionId")

	result, err := call(viewerID, sessionID)
	if err != nil {
		h.writeError(w, err, logrus.Fields{"session_id": sessionID})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *SessionHandler) writeError(w http.ResponseWriter, err error, fields logrus.Fields) {
	if httputil.WriteServiceError(w, err) {
		return
	}
	h.log.WithError(err).WithFields(fields).Error("session request failed")
	httputil.WriteInternalError(w, "Internal server error")
}
