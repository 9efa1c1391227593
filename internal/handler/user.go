package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/httputil"
	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/service"
	"beomusic_backend/internal/transport/http/middleware"
)

type UserHandler struct {
	userService *service.UserService
	log         *logrus.Entry
}

func NewUserHandler(userService *service.UserService, log *logrus.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         logger.Component(log, "UserHandler"),
	}
}

// Me returns the currently authenticated user
// GET /me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		h.log.WithError(err).WithField("user_id", userID).Error("get user failed")
		httputil.WriteInternalError(w, "Failed to get user")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// UpdateMe changes the display name and/or avatar. It accepts a JSON body
// {"display_name": "..."} or a multipart form with display_name and avatar.
// PATCH /me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var displayName *string
	var avatar *service.AvatarUpload

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body struct {
			DisplayName *string `json:"display_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.WriteBadRequest(w, "Invalid request body")
			return
		}
		displayName = body.DisplayName
	} else {
		if !parseAvatarForm(w, r) {
			return
		}
		if values, ok := r.MultipartForm.Value["display_name"]; ok && len(values) > 0 {
			displayName = &values[0]
		}
		upload, closeAvatar, ok := avatarFromForm(w, r)
		if !ok {
			return
		}
		defer closeAvatar()
		avatar = upload
	}

	if displayName == nil && avatar == nil {
		httputil.WriteBadRequest(w, "Nothing to update")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, displayName, avatar)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		if writeAvatarError(w, err) {
			return
		}
		h.log.WithError(err).WithField("user_id", userID).Error("update profile failed")
		httputil.WriteInternalError(w, "Failed to update profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}
