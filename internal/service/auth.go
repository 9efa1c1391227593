package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/config"
	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/repository"
)

// AuthService issues access tokens and rotating refresh tokens with reuse detection.
type AuthService struct {
	refreshTokenRepo repository.RefreshTokenRepository
	config           *config.Config
	now              func() time.Time
	log              *logrus.Entry
}

func NewAuthService(refreshTokenRepo repository.RefreshTokenRepository, cfg *config.Config, log *logrus.Logger) *AuthService {
	return &AuthService{
		refreshTokenRepo: refreshTokenRepo,
		config:           cfg,
		now:              time.Now,
		log:              logger.Component(log, "AuthService"),
	}
}

// GenerateTokenPair issues a new access token and persists a refresh token.
func (s *AuthService) GenerateTokenPair(ctx context.Context, userID, deviceInfo, ipAddress string) (*model.TokenPair, error) {
	return s.issue(ctx, uuid.NewString(), userID, deviceInfo, ipAddress)
}

// RefreshTokens exchanges a refresh token for a new pair. The old token is
// revoked before the new one is stored; presenting a revoked token again
// revokes every token the user holds.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshTokenRaw, deviceInfo, ipAddress string) (*model.TokenPair, string, error) {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, s.hashToken(refreshTokenRaw))
	if err != nil {
		if errors.Is(err, model.ErrRefreshTokenNotFound) {
			return nil, "", model.ErrRefreshTokenNotFound
		}
		return nil, "", fmt.Errorf("find refresh token: %w", err)
	}

	if token.IsRevoked() {
		s.revokeTokenFamily(ctx, token)
		return nil, "", model.ErrRefreshTokenReused
	}
	if token.IsExpired() {
		return nil, "", model.ErrRefreshTokenExpired
	}

	nextID := uuid.NewString()
	if err := s.refreshTokenRepo.Revoke(ctx, token.ID, &nextID); err != nil {
		if errors.Is(err, model.ErrRefreshTokenRevoked) {
			// Another request rotated this token first.
			s.revokeTokenFamily(ctx, token)
			return nil, "", model.ErrRefreshTokenReused
		}
		return nil, "", fmt.Errorf("revoke refresh token: %w", err)
	}

	pair, err := s.issue(ctx, nextID, token.UserID, deviceInfo, ipAddress)
	if err != nil {
		return nil, "", err
	}
	return pair, token.UserID, nil
}

// RevokeRefreshToken logs out one session. Unknown and already revoked
// tokens are not an error.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshTokenRaw string) error {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, s.hashToken(refreshTokenRaw))
	if err != nil {
		if errors.Is(err, model.ErrRefreshTokenNotFound) {
			return nil
		}
		return err
	}
	if err := s.refreshTokenRepo.Revoke(ctx, token.ID, nil); err != nil && !errors.Is(err, model.ErrRefreshTokenRevoked) {
		return err
	}
	return nil
}

func (s *AuthService) RevokeAllUserTokens(ctx context.Context, userID string) error {
	return s.refreshTokenRepo.RevokeAllForUser(ctx, userID)
}

// CleanupExpired deletes refresh tokens that expired more than retention ago.
func (s *AuthService) CleanupExpired(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.refreshTokenRepo.DeleteExpired(ctx, retention)
	if err != nil {
		return 0, err
	}
	s.log.WithField("deleted", n).Info("expired refresh tokens removed")
	return n, nil
}

func (s *AuthService) issue(ctx context.Context, tokenID, userID, deviceInfo, ipAddress string) (*model.TokenPair, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshTokenRaw := uuid.NewString()
	refreshToken := &model.RefreshToken{
		ID:        tokenID,
		UserID:    userID,
		TokenHash: s.hashToken(refreshTokenRaw),
		ExpiresAt: s.now().Add(time.Duration(s.config.RefreshTokenMaxAge) * time.Second),
	}
	if deviceInfo != "" {
		refreshToken.DeviceInfo = &deviceInfo
	}
	if ipAddress != "" {
		refreshToken.IPAddress = &ipAddress
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenRaw,
		ExpiresIn:    s.config.AccessTokenMaxAge,
	}, nil
}

func (s *AuthService) revokeTokenFamily(ctx context.Context, token *model.RefreshToken) {
	entry := s.log.WithFields(logrus.Fields{"user_id": token.UserID, "token_id": token.ID})
	if err := s.refreshTokenRepo.RevokeAllForUser(ctx, token.UserID); err != nil {
		entry.WithError(err).Error("refresh token reuse detected; failed to revoke token family")
		return
	}
	entry.Warn("refresh token reuse detected; all tokens revoked")
}

func (s *AuthService) generateAccessToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func (s *AuthService) hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
