package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/repository"
)

// Device registration errors
var (
	ErrTokenRequired   = errors.New("device token is required")
	ErrInvalidPlatform = errors.New("platform must be ios or android")
)

// DeviceService keeps the FCM tokens used for comment notifications.
type DeviceService struct {
	repo repository.DeviceTokenRepository
	log  *logrus.Entry
}

func NewDeviceService(repo repository.DeviceTokenRepository, log *logrus.Logger) *DeviceService {
	return &DeviceService{repo: repo, log: logger.Component(log, "DeviceService")}
}

// Register stores token for userID. Registering a token another user held
// moves it to userID.
func (s *DeviceService) Register(ctx context.Context, userID, token, platform string) error {
	token = strings.TrimSpace(token)
	platform = strings.ToLower(strings.TrimSpace(platform))
	if token == "" {
		return ErrTokenRequired
	}
	if !model.IsValidPlatform(platform) {
		return ErrInvalidPlatform
	}

	if err := s.repo.Upsert(ctx, userID, token, platform); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "platform": platform}).Info("device registered")
	return nil
}

// Unregister removes one of userID's tokens, typically on sign-out.
func (s *DeviceService) Unregister(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenRequired
	}
	return s.repo.Delete(ctx, userID, token)
}
