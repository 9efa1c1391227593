package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/httputil"
	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/service"
	"beomusic_backend/internal/transport/http/middleware"
)

type DeviceHandler struct {
	deviceService *service.DeviceService
	log           *logrus.Entry
}

func NewDeviceHandler(deviceService *service.DeviceService, log *logrus.Logger) *DeviceHandler {
	return &DeviceHandler{
		deviceService: deviceService,
		log:           logger.Component(log, "DeviceHandler"),
	}
}

// Register handles POST /me/devices
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(userID string, req model.RegisterTokenRequest) error {
		return h.deviceService.Register(r.Context(), userID, req.Token, req.Platform)
	})
}

// Unregister handles DELETE /me/devices
func (h *DeviceHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(userID string, req model.RegisterTokenRequest) error {
		return h.deviceService.Unregister(r.Context(), userID, req.Token)
	})
}

func (h *DeviceHandler) handle(w http.ResponseWriter, r *http.Request, apply func(string, model.RegisterTokenRequest) error) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := apply(userID, req); err != nil {
		switch {
		case errors.Is(err, service.ErrTokenRequired), errors.Is(err, service.ErrInvalidPlatform):
			httputil.WriteBadRequest(w, err.Error())
		default:
			h.log.WithError(err).WithField("user_id", userID).Error("device token update failed")
			httputil.WriteInternalError(w, "Failed to update device token")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
