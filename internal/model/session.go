package model

import (
	"errors"
	"time"
)

// SessionState is the caller-visible state of a comment browse session.
//
//	idle -> loading -> loaded | failed
//	loaded (has_more) -> loading      (load more)
//	failed | loaded | idle -> idle    (reset)
type SessionState string

const (
	SessionIdle    SessionState = "idle"
	SessionLoading SessionState = "loading"
	SessionLoaded  SessionState = "loaded"
	SessionFailed  SessionState = "failed"
)

// BrowseSession tracks one viewer paging through one song's comments.
// Generation is bumped on every load and reset; a load result is applied
// only if the generation it started with is still current.
type BrowseSession struct {
	ID         string       `json:"session_id"`
	ViewerID   string       `json:"-"`
	SongID     string       `json:"song_id"`
	State      SessionState `json:"state"`
	Cursor     string       `json:"cursor,omitempty"`
	HasMore    bool         `json:"has_more"`
	Generation int64        `json:"-"`
	PageSize   int          `json:"page_size"`
	LastError  string       `json:"last_error,omitempty"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// BrowsePage is returned by every session load.
type BrowsePage struct {
	Session  *BrowseSession `json:"session"`
	Comments []Comment      `json:"comments"`
}

// Session errors
var (
	ErrSessionNotFound = errors.New("browse session not found")
	ErrLoadInProgress  = errors.New("a page is already loading for this session")
	ErrSessionFailed   = errors.New("browse session failed; reset it to retry")
	ErrNoMorePages     = errors.New("no more comments to load") // Store only; Browser reports an empty page
	ErrSessionGone     = errors.New("browse session was closed or reset while loading")
)
