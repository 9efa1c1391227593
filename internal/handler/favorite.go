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
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/service"
	"beomusic_backend/internal/transport/http/middleware"
)

type FavoriteHandler struct {
	library *service.LibraryService
	log     *logrus.Entry
}

func NewFavoriteHandler(library *service.LibraryService, log *logrus.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		library: library,
		log:     logger.Component(log, "FavoriteHandler"),
	}
}

// List handles GET /me/favorites
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	songs, err := h.library.Favorites(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"songs": songs})
}

// Status handles GET /me/favorites/{songId}
func (h *FavoriteHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	songID := chi.URLParam(r, "songId")

	status, err := h.library.IsFavorite(r.Context(), userID, songID)
	if err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID, "song_id": songID})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, status)
}

// Add handles PUT /me/favorites/{songId}
// The body may carry song metadata; an empty body records only the song ID.
// Repeating the call is a no-op.
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	song, ok := decodeSong(w, r)
	if !ok {
		return
	}

	if err := h.library.AddFavorite(r.Context(), userID, song); err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID, "song_id": song.ID})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.FavoriteStatus{SongID: song.ID, IsFavorite: true})
}

// Remove handles DELETE /me/favorites/{songId}
func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	songID := chi.URLParam(r, "songId")

	if err := h.library.RemoveFavorite(r.Context(), userID, songID); err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID, "song_id": songID})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Toggle handles POST /me/favorites/{songId}/toggle
func (h *FavoriteHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	song, ok := decodeSong(w, r)
	if !ok {
		return
	}

	status, err := h.library.ToggleFavorite(r.Context(), userID, song)
	if err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID, "song_id": song.ID})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *FavoriteHandler) writeError(w http.ResponseWriter, err error, fields logrus.Fields) {
	if httputil.WriteServiceError(w, err) {
		return
	}
	h.log.WithError(err).WithFields(fields).Error("favorite request failed")
	httputil.WriteInternalError(w, "Internal server error")
}

// decodeSong reads optional song metadata from the body. The song ID always
// comes from the path.
func decodeSong(w http.ResponseWriter, r *http.Request) (model.Song, bool) {
	var req model.AddSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteBadRequest(w, "Invalid request body")
		return model.Song{}, false
	}
	req.SongID = chi.URLParam(r, "songId")
	return req.Song(), true
}
