package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/repository"
)

// UserService handles business logic for user operations
type UserService struct {
	repo    repository.UserRepository
	avatars AvatarStorage // nil when uploads are not configured
	log     *logrus.Entry
}

func NewUserService(repo repository.UserRepository, avatars AvatarStorage, log *logrus.Logger) *UserService {
	return &UserService{
		repo:    repo,
		avatars: avatars,
		log:     logger.Component(log, "UserService"),
	}
}

// Register creates an account. When avatar is set it is uploaded first, and
// removed again if the account cannot be created.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest, avatar *AvatarUpload) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, model.ErrUsernameRequired
	}
	if len(req.Password) < model.MinPasswordLength {
		return nil, model.ErrPasswordTooShort
	}

	exists, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:       username,
		PasswordHashed: string(hashedPassword),
		AvatarURL:      req.AvatarURL,
		AvatarKey:      req.AvatarKey,
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		user.Email = &email
	}
	if displayName := strings.TrimSpace(req.DisplayName); displayName != "" {
		user.DisplayName = &displayName
	}

	var uploadedKey string
	if avatar != nil {
		upload, err := s.uploadAvatar(ctx, *avatar)
		if err != nil {
			return nil, err
		}
		user.AvatarURL = &upload.URL
		user.AvatarKey = &upload.Key
		uploadedKey = upload.Key
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if uploadedKey != "" {
			if derr := s.avatars.DeleteObject(context.WithoutCancel(ctx), uploadedKey); derr != nil {
				s.log.WithError(derr).WithField("key", uploadedKey).Warn("failed to remove orphaned avatar")
			}
		}
		if errors.Is(err, model.ErrUsernameExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Login authenticates a user with username and password.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		// Don't reveal whether username exists or not
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile changes the display name and/or avatar. Comments already
// posted keep the profile they were written with, so the previous avatar
// object is left in place.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, displayName *string, avatar *AvatarUpload) (*model.User, error) {
	req := &model.UpdateProfileRequest{}
	if displayName != nil {
		name := strings.TrimSpace(*displayName)
		req.DisplayName = &name
	}

	if avatar != nil {
		upload, err := s.uploadAvatar(ctx, *avatar)
		if err != nil {
			return nil, err
		}
		req.AvatarURL = &upload.URL
		req.AvatarKey = &upload.Key
	}

	user, err := s.repo.UpdateProfile(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", userID).Info("profile updated")
	return user, nil
}

func (s *UserService) uploadAvatar(ctx context.Context, avatar AvatarUpload) (*model.UploadResult, error) {
	if s.avatars == nil {
		return nil, model.ErrMediaDisabled
	}
	return s.avatars.UploadAvatar(ctx, avatar)
}
