package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/httputil"
	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/service"
	"beomusic_backend/internal/transport/http/middleware"
)

type CommentHandler struct {
	commentService *service.CommentService
	log            *logrus.Entry
}

func NewCommentHandler(commentService *service.CommentService, log *logrus.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		log:            logger.Component(log, "CommentHandler"),
	}
}

// List handles GET /songs/{songId}/comments?cursor=&limit=
// Returns one page of comments, newest first. Pass next_cursor back as cursor
// to continue.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	songID := chi.URLParam(r, "songId")

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	page, err := h.commentService.List(r.Context(), songID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		h.writeError(w, err, logrus.Fields{"song_id": songID})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, page)
}

// Create handles POST /songs/{songId}/comments
// Creates a comment on a song for the authenticated user.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	songID := chi.URLParam(r, "songId")

	var req model.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	comment, err := h.commentService.Post(r.Context(), userID, songID, req.Content)
	if err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID, "song_id": songID})
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Delete handles DELETE /comments/{commentId}
// Deletes a comment (only the author can delete).
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	commentID := chi.URLParam(r, "commentId")

	if err := h.commentService.Delete(r.Context(), userID, commentID); err != nil {
		h.writeError(w, err, logrus.Fields{"user_id": userID, "comment_id": commentID})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CommentHandler) writeError(w http.ResponseWriter, err error, fields logrus.Fields) {
	if httputil.WriteServiceError(w, err) {
		return
	}
	h.log.WithError(err).WithFields(fields).Error("comment request failed")
	httputil.WriteInternalError(w, "Internal server error")
}

// parseLimit reads the optional limit query parameter. 0 means "use the default".
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		httputil.WriteBadRequest(w, "Limit must be a positive integer")
		return 0, false
	}
	return limit, true
}
