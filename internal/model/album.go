package model

import (
	"errors"
	"time"
)

// Album is a user's song collection. SongCount is kept in step with the
// album's entries by the store. Each user has at most one favorites album,
// created on the first favorite.
type Album struct {
	ID          string    `json:"album_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CoverURL    *string   `json:"cover_image_url,omitempty"`
	SongCount   int64     `json:"song_count"`
	Favorites   bool      `json:"is_favorites"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Song is the metadata the app stores alongside an album entry.
type Song struct {
	ID         string  `json:"song_id"`
	Title      string  `json:"title,omitempty"`
	Artist     string  `json:"artist,omitempty"`
	PreviewURL *string `json:"preview_url,omitempty"`
}

// AlbumSong is a song as listed in an album, oldest addition first.
type AlbumSong struct {
	Song
	AddedAt time.Time `json:"added_at"`
}

// CreateAlbumRequest is the request body for creating an album.
type CreateAlbumRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	CoverURL    *string `json:"cover_image_url"`
}

// UpdateAlbumRequest changes the non-nil fields of an album.
type UpdateAlbumRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	CoverURL    *string `json:"cover_image_url"`
}

// AddSongRequest is the request body for adding a song to an album.
// Metadata is optional; without it only the membership is recorded.
type AddSongRequest struct {
	SongID     string  `json:"song_id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	PreviewURL *string `json:"preview_url"`
}

// Song returns the song metadata carried by the request.
func (r AddSongRequest) Song() Song {
	return Song{ID: r.SongID, Title: r.Title, Artist: r.Artist, PreviewURL: r.PreviewURL}
}

// FavoriteStatus reports whether a song is in the caller's favorites.
type FavoriteStatus struct {
	SongID     string `json:"song_id"`
	IsFavorite bool   `json:"is_favorite"`
}

// Album constraints
const (
	MaxAlbumTitleLength       = 100
	MaxAlbumDescriptionLength = 500

	FavoritesAlbumTitle       = "Favorite Songs"
	FavoritesAlbumDescription = "Your favorite songs"
)

// FavoritesAlbumID is the fixed ID of a user's favorites album.
func FavoritesAlbumID(userID string) string {
	return userID + "_favorites"
}

// Album errors
var (
	ErrAlbumNotFound        = errors.New("album not found")
	ErrNotAlbumOwner        = errors.New("not the owner of this album")
	ErrAlbumTitleRequired   = errors.New("album title is required")
	ErrAlbumTitleTooLong    = errors.New("album title too long")
	ErrAlbumDescTooLong     = errors.New("album description too long")
	ErrSongNotInAlbum       = errors.New("song is not in this album")
	ErrFavoritesAlbumLocked = errors.New("the favorites album cannot be modified directly")
	ErrInvalidSongID        = errors.New("invalid song id")
)
