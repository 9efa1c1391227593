package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"beomusic_backend/internal/model"
)

// Error codes returned in the error envelope
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL_ERROR"

	ErrCodeRemoteUnavailable = "REMOTE_UNAVAILABLE"
	ErrCodeLoadInProgress    = "LOAD_IN_PROGRESS"
	ErrCodeSessionFailed     = "SESSION_FAILED"
	ErrCodeSessionGone       = "SESSION_GONE"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// If encoding fails, we can't do much - headers already sent
			// Log would be useful here in production
			return
		}
	}
}

// WriteError writes an error response in the envelope format:
// {"error": {"code": "ERROR_CODE", "message": "Human readable message"}}
func WriteError(w http.ResponseWriter, status int, code string, message string) {
	response := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
	WriteJSON(w, status, response)
}

// Common error response helpers

// WriteBadRequest writes a 400 Bad Request error
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteBadRequestWithCode writes a 400 Bad Request error with a custom code
func WriteBadRequestWithCode(w http.ResponseWriter, code string, message string) {
	WriteError(w, http.StatusBadRequest, code, message)
}

// WriteUnauthorized writes a 401 Unauthorized error
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// WriteUnauthorizedWithCode writes a 401 Unauthorized error with a custom code
func WriteUnauthorizedWithCode(w http.ResponseWriter, code string, message string) {
	WriteError(w, http.StatusUnauthorized, code, message)
}

// WriteForbidden writes a 403 Forbidden error
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// WriteNotFound writes a 404 Not Found error
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteConflict writes a 409 Conflict error
func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, ErrCodeConflict, message)
}

// WriteInternalError writes a 500 Internal Server Error
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// WriteRemoteUnavailable writes a 502 with the backing store's message unchanged
func WriteRemoteUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, ErrCodeRemoteUnavailable, message)
}

// WriteServiceError maps the domain errors shared by the handlers to a
// response. It reports false, writing nothing, when err is not one of them.
func WriteServiceError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		WriteUnauthorized(w, "Authentication required")
	case errors.Is(err, model.ErrNotCommentOwner):
		WriteForbidden(w, "You can only delete your own comments")
	case errors.Is(err, model.ErrCommentNotFound):
		WriteNotFound(w, "Comment not found")
	case errors.Is(err, model.ErrUserNotFound):
		WriteNotFound(w, "User not found")
	case errors.Is(err, model.ErrNotAlbumOwner):
		WriteForbidden(w, "You can only access your own albums")
	case errors.Is(err, model.ErrAlbumNotFound):
		WriteNotFound(w, "Album not found")
	case errors.Is(err, model.ErrSongNotInAlbum):
		WriteNotFound(w, "Song is not in this album")
	case errors.Is(err, model.ErrSessionNotFound):
		WriteNotFound(w, "Browse session not found")
	case errors.Is(err, model.ErrLoadInProgress):
		WriteError(w, http.StatusConflict, ErrCodeLoadInProgress, err.Error())
	case errors.Is(err, model.ErrSessionFailed):
		WriteError(w, http.StatusConflict, ErrCodeSessionFailed, err.Error())
	case errors.Is(err, model.ErrSessionGone):
		WriteError(w, http.StatusConflict, ErrCodeSessionGone, err.Error())
	case errors.Is(err, model.ErrContentRequired),
		errors.Is(err, model.ErrContentTooLong),
		errors.Is(err, model.ErrSongIDRequired),
		errors.Is(err, model.ErrInvalidCursor),
		errors.Is(err, model.ErrInvalidPageSize),
		errors.Is(err, model.ErrAlbumTitleRequired),
		errors.Is(err, model.ErrAlbumTitleTooLong),
		errors.Is(err, model.ErrAlbumDescTooLong),
		errors.Is(err, model.ErrInvalidSongID),
		errors.Is(err, model.ErrFavoritesAlbumLocked):
		WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrRemoteUnavailable):
		WriteRemoteUnavailable(w, err.Error())
	default:
		return false
	}
	return true
}
