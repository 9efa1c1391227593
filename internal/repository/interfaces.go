package repository

import (
	"context"
	"time"

	"beomusic_backend/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// UpdateProfile applies the non-nil fields of req and returns the updated user
	UpdateProfile(ctx context.Context, id string, req *model.UpdateProfileRequest) (*model.User, error)
	TouchLastLogin(ctx context.Context, id string) error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type DeviceTokenRepository interface {
	// Upsert creates or updates a device token for a user
	Upsert(ctx context.Context, userID, token, platform string) error
	// GetByUserID returns all device tokens for a user
	GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error)
	// Delete removes one of the user's device tokens
	Delete(ctx context.Context, userID, token string) error
	// DeleteTokens removes tokens the push provider reported as unregistered
	DeleteTokens(ctx context.Context, tokens []string) error
}

// CommentStore reads and writes song comments in the remote document store.
// Every backend failure comes back as a *model.RemoteError.
type CommentStore interface {
	// FetchAll returns every comment on the song, unordered and unlimited.
	FetchAll(ctx context.Context, songID string) ([]model.Comment, error)
	// Insert stores a new comment; the store assigns its ID and timestamp.
	Insert(ctx context.Context, songID, content string, author model.CommentAuthor) (*model.Comment, error)
	// Delete removes the comment if requesterID is its author.
	Delete(ctx context.Context, commentID, requesterID string) error
}

// AlbumStore keeps user albums and their song entries in the document store.
// Membership changes update the album's song count in the same transaction.
type AlbumStore interface {
	Create(ctx context.Context, userID string, req *model.CreateAlbumRequest) (*model.Album, error)
	Get(ctx context.Context, albumID string) (*model.Album, error)
	ListByUser(ctx context.Context, userID string) ([]model.Album, error)
	// Update applies the non-nil fields of req if requesterID owns the album
	Update(ctx context.Context, albumID, requesterID string, req *model.UpdateAlbumRequest) (*model.Album, error)
	Delete(ctx context.Context, albumID, requesterID string) error
	AddSong(ctx context.Context, albumID, requesterID string, song model.Song) (*model.Album, error)
	RemoveSong(ctx context.Context, albumID, requesterID, songID string) (*model.Album, error)
	ListSongs(ctx context.Context, albumID string) ([]model.AlbumSong, error)
	AddFavorite(ctx context.Context, userID string, song model.Song) (*model.Album, error)
	RemoveFavorite(ctx context.Context, userID, songID string) error
	ToggleFavorite(ctx context.Context, userID string, song model.Song) (bool, error)
	IsFavorite(ctx context.Context, userID, songID string) (bool, error)
}
