package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/httputil"
	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/service"
	"beomusic_backend/internal/transport/http/middleware"
)

type AlbumHandler struct {
	library *service.LibraryService
	log     *logrus.Entry
}

func NewAlbumHandler(library *service.LibraryService, log *logrus.Logger) *AlbumHandler {
	return &AlbumHandler{
		library: library,
		log:     logger.Component(log, "AlbumHandler"),
	}
}

// List handles GET /me/albums
// Returns the caller's albums, newest first, including the favorites album once it exists.
func (h *AlbumHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	albums, err := h.library.ListAlbums(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"albums": albums})
}

// Create handles POST /me/albums
func (h *AlbumHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.CreateAlbumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	album, err := h.library.CreateAlbum(r.Context(), userID, &req)
	if err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID})
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, album)
}

// Get handles GET /albums/{albumId}
func (h *AlbumHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	albumID := chi.URLParam(r, "albumId")

	album, err := h.library.GetAlbum(r.Context(), userID, albumID)
	if err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID, "album_id": albumID})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, album)
}

// Update handles PATCH /albums/{albumId}
// Only the fields present in the body change. The favorites album is read-only.
func (h *AlbumHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	albumID := chi.URLParam(r, "albumId")

	var req model.UpdateAlbumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	album, err := h.library.UpdateAlbum(r.Context(), userID, albumID, &req)
	if err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID, "album_id": albumID})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, album)
}

// Delete handles DELETE /albums/{albumId}
func (h *AlbumHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	albumID := chi.URLParam(r, "albumId")

	if err := h.library.DeleteAlbum(r.Context(), userID, albumID); err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID, "album_id": albumID})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Songs handles GET /albums/{albumId}/songs
// Returns the album's songs in the order they were added.
func (h *AlbumHandler) Songs(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	albumID := chi.URLParam(r, "albumId")

	songs, err := h.library.AlbumSongs(r.Context(), userID, albumID)
	if err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID, "album_id": albumID})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"songs": songs})
}

// AddSong handles POST /albums/{albumId}/songs
// Adding a song that is already in the album returns the album unchanged.
func (h *AlbumHandler) AddSong(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	albumID := chi.URLParam(r, "albumId")

	var req model.AddSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	album, err := h.library.AddSong(r.Context(), userID, albumID, &req)
	if err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID, "album_id": albumID, "song_id": req.SongID})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, album)
}

// RemoveSong handles DELETE /albums/{albumId}/songs/{songId}
func (h *AlbumHandler) RemoveSong(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	albumID := chi.URLParam(r, "albumId")
	songID := chi.URLParam(r, "songId")

	album, err := h.library.RemoveSong(r.Context(), userID, albumID, songID)
	if err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID, "album_id": albumID, "song_id": songID})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, album)
}

func (h *AlbumHandler) writeError(w http.ResponseWriter, err error, fields logrus.Fields) {
	if httputil.WriteServiceError(w, err) {
		return
	}
	h.log.WithError(err).WithFields(fields).Error("album request failed")
	httputil.WriteInternalError(w, "Internal server error")
}
