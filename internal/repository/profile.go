package repository

import (
	"context"
	"errors"
	"strings"

	"beomusic_backend/internal/docstore"
	"beomusic_backend/internal/model"
)

// ProfileStore resolves the public profile copied into a comment at post time.
type ProfileStore interface {
	// GetProfile returns model.ErrUserNotFound when the user has no profile.
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
}

type userProfileStore struct {
	users UserRepository
}

// NewUserProfileStore serves profiles from the accounts table.
func NewUserProfileStore(users UserRepository) ProfileStore {
	return &userProfileStore{users: users}
}

func (s *userProfileStore) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

const (
	usersCollection = "users"

	fieldProfileUsername = "username"
	fieldProfilePhotoURL = "photoUrl"
)

type docProfileStore struct {
	store docstore.Store
}

// NewDocProfileStore reads profiles from the document store's users
// collection, keyed by Firebase UID, where the mobile app keeps them.
func NewDocProfileStore(store docstore.Store) ProfileStore {
	return &docProfileStore{store: store}
}

func (s *docProfileStore) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	doc, err := s.store.Get(ctx, usersCollection, userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, model.ErrUserNotFound
		}
		return nil, model.NewRemoteError("get profile", err)
	}

	name := strings.TrimSpace(doc.String(fieldProfileUsername))
	if name == "" {
		name = model.AnonymousUsername
	}
	return &model.Profile{
		DisplayName: name,
		AvatarURL:   doc.OptionalString(fieldProfilePhotoURL),
	}, nil
}
