// Package session keeps server-side comment browse sessions: which page a
// viewer has reached on a song and whether a load is in flight.
//
// Every load is tagged with the session generation it started under. Reset
// and Close move the generation on or remove the session, so a load that
// finishes afterwards is dropped instead of overwriting newer state.
package session

import (
	"context"
	"time"

	"beomusic_backend/internal/model"
)

// Store persists browse sessions. Implementations must apply each
// transition atomically.
type Store interface {
	// Create saves a new idle session.
	Create(ctx context.Context, s *model.BrowseSession) error

	// Get returns model.ErrSessionNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*model.BrowseSession, error)

	// BeginLoad moves the session to loading and bumps its generation.
	// It fails with ErrLoadInProgress, ErrSessionFailed or ErrNoMorePages
	// when the current state does not allow a load.
	BeginLoad(ctx context.Context, id string) (*model.BrowseSession, error)

	// Complete records a loaded page if gen is still current; otherwise ErrSessionGone.
	Complete(ctx context.Context, id string, gen int64, cursor string, hasMore bool) (*model.BrowseSession, error)

	// Fail records a failed load if gen is still current; otherwise ErrSessionGone.
	Fail(ctx context.Context, id string, gen int64, reason string) (*model.BrowseSession, error)

	// Reset returns the session to idle at the start of the sequence and
	// bumps the generation, orphaning any in-flight load.
	Reset(ctx context.Context, id string) (*model.BrowseSession, error)

	// Delete removes the session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, id string) error
}

// checkBegin reports whether a load may start from the session's current state.
func checkBegin(s *model.BrowseSession) error {
	switch s.State {
	case model.SessionLoading:
		return model.ErrLoadInProgress
	case model.SessionFailed:
		return model.ErrSessionFailed
	case model.SessionLoaded:
		if !s.HasMore {
			return model.ErrNoMorePages
		}
	}
	return nil
}

func clone(s *model.BrowseSession) *model.BrowseSession {
	c := *s
	return &c
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
