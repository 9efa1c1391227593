package model

import (
	"errors"
	"time"
)

// Comment is a comment left on a song.
// ID and CreatedAt are assigned by the document store and never change afterwards.
// Username and UserPhotoURL are copied from the author's profile at post time.
type Comment struct {
	ID           string     `json:"comment_id"`
	SongID       string     `json:"song_id"`
	UserID       string     `json:"user_id"`
	Content      string     `json:"content"`
	Username     string     `json:"username"`
	UserPhotoURL *string    `json:"user_photo_url,omitempty"`
	CreatedAt    *time.Time `json:"timestamp,omitempty"` // nil until the server timestamp lands
}

// CommentAuthor is the profile snapshot written into a new comment.
type CommentAuthor struct {
	UserID   string
	Username string
	PhotoURL *string
}

// CreateCommentRequest is the request body for posting a comment.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CommentPage is one page of a song's comments, newest first.
type CommentPage struct {
	Comments   []Comment `json:"comments"`
	NextCursor *string   `json:"next_cursor,omitempty"`
	HasMore    bool      `json:"has_more"`
}

// Comment constraints
const (
	MaxCommentLength       = 1000
	DefaultCommentPageSize = 20
	MaxCommentPageSize     = 50
	AnonymousUsername      = "Anonymous"
)

// Comment errors
var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrNotCommentOwner = errors.New("not the owner of this comment")
	ErrContentRequired = errors.New("comment content is required")
	ErrContentTooLong  = errors.New("comment content too long")
	ErrSongIDRequired  = errors.New("song id is required")
	ErrInvalidCursor   = errors.New("invalid cursor")
	ErrInvalidPageSize = errors.New("page size must be positive")
)
