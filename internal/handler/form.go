package handler

import (
	"errors"
	"net/http"
	"strings"

	"beomusic_backend/internal/httputil"
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/service"
)

// parseAvatarForm parses a multipart body sized for one avatar. It writes the
// error response and returns false on failure.
func parseAvatarForm(w http.ResponseWriter, r *http.Request) bool {
	maxFormSize := int64(model.MaxAvatarSizeBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
		case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
		default:
			httputil.WriteBadRequest(w, "Invalid form data")
		}
		return false
	}
	return true
}

// avatarFromForm returns the "avatar" file part, or nil when none was sent.
// The returned func closes the file and is always safe to call.
func avatarFromForm(w http.ResponseWriter, r *http.Request) (*service.AvatarUpload, func(), bool) {
	file, header, err := r.FormFile("avatar")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, true
	}
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid avatar upload")
		return nil, func() {}, false
	}

	return &service.AvatarUpload{
		Body:        file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	}, func() { file.Close() }, true
}

// writeAvatarError maps avatar upload failures. It reports false for other errors.
func writeAvatarError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
	case errors.Is(err, model.ErrInvalidImageType):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
	case errors.Is(err, model.ErrMediaDisabled):
		httputil.WriteBadRequest(w, "Avatar uploads are not enabled")
	default:
		return false
	}
	return true
}
