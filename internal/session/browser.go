package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/metrics"
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/pagination"
)

// PageSource assembles comment pages. *pagination.Assembler satisfies it.
type PageSource interface {
	NextPage(ctx context.Context, songID string, cursor pagination.Cursor, pageSize int) (pagination.Page, error)
}

// Browser drives the browse session state machine:
//
//	Open:     create idle session, then load the first page
//	LoadMore: loaded(has_more) -> loading -> loaded | failed
//	Reset:    any state -> idle -> loading (first page)
//	Close:    drop the session; an in-flight load is discarded
//
// A session belongs to the viewer who opened it. Other viewers get
// ErrSessionNotFound so session IDs cannot be guessed.
type Browser struct {
	store       Store
	pages       PageSource
	defaultSize int
	maxSize     int
	log         *logrus.Entry
}

func NewBrowser(store Store, pages PageSource, defaultSize, maxSize int, log *logrus.Logger) *Browser {
	return &Browser{
		store:       store,
		pages:       pages,
		defaultSize: defaultSize,
		maxSize:     maxSize,
		log:         logger.Component(log, "Browser"),
	}
}

// Open starts a session on a song and returns its first page.
// pageSize <= 0 selects the default; larger than the maximum is clamped.
func (b *Browser) Open(ctx context.Context, viewerID, songID string, pageSize int) (*model.BrowsePage, error) {
	if viewerID == "" {
		return nil, model.ErrUnauthenticated
	}
	if songID == "" {
		return nil, model.ErrSongIDRequired
	}

	s := &model.BrowseSession{
		ID:       uuid.NewString(),
		ViewerID: viewerID,
		SongID:   songID,
		State:    model.SessionIdle,
		PageSize: b.clampSize(pageSize),
	}
	if err := b.store.Create(ctx, s); err != nil {
		return nil, err
	}
	metrics.BrowseSessions.WithLabelValues(string(model.SessionIdle)).Inc()

	b.log.WithFields(logrus.Fields{"session_id": s.ID, "song_id": songID, "viewer_id": viewerID}).
		Debug("browse session opened")
	return b.load(ctx, s.ID)
}

// LoadMore fetches the page after the session cursor. Once the session has
// no more pages it returns the session unchanged with no comments.
func (b *Browser) LoadMore(ctx context.Context, viewerID, sessionID string) (*model.BrowsePage, error) {
	if _, err := b.owned(ctx, viewerID, sessionID); err != nil {
		return nil, err
	}
	return b.load(ctx, sessionID)
}

// Reset rewinds the session to the start and loads the first page again.
// This is the only way out of the failed state.
func (b *Browser) Reset(ctx context.Context, viewerID, sessionID string) (*model.BrowsePage, error) {
	if _, err := b.owned(ctx, viewerID, sessionID); err != nil {
		return nil, err
	}
	if _, err := b.store.Reset(ctx, sessionID); err != nil {
		return nil, err
	}
	metrics.BrowseSessions.WithLabelValues(string(model.SessionIdle)).Inc()
	return b.load(ctx, sessionID)
}

// Close abandons the session.
func (b *Browser) Close(ctx context.Context, viewerID, sessionID string) error {
	if _, err := b.owned(ctx, viewerID, sessionID); err != nil {
		return err
	}
	if err := b.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	b.log.WithField("session_id", sessionID).Debug("browse session closed")
	return nil
}

// Get returns the session state without loading anything.
func (b *Browser) Get(ctx context.Context, viewerID, sessionID string) (*model.BrowseSession, error) {
	return b.owned(ctx, viewerID, sessionID)
}

func (b *Browser) load(ctx context.Context, sessionID string) (*model.BrowsePage, error) {
	s, err := b.store.BeginLoad(ctx, sessionID)
	if errors.Is(err, model.ErrNoMorePages) {
		// Running out of comments is not a failure: report the loaded
		// session again with nothing new.
		current, gerr := b.store.Get(ctx, sessionID)
		if gerr != nil {
			return nil, gerr
		}
		return &model.BrowsePage{Session: current, Comments: []model.Comment{}}, nil
	}
	if err != nil {
		return nil, err
	}
	metrics.BrowseSessions.WithLabelValues(string(model.SessionLoading)).Inc()

	page, err := b.fetch(ctx, s)

	// The request context may already be canceled; the transition still has
	// to land so the session does not stay in loading.
	storeCtx := context.WithoutCancel(ctx)
	entry := b.log.WithFields(logrus.Fields{"session_id": s.ID, "generation": s.Generation})

	if err != nil {
		if _, ferr := b.store.Fail(storeCtx, sessionID, s.Generation, err.Error()); ferr != nil {
			if errors.Is(ferr, model.ErrSessionGone) {
				entry.Debug("dropped failed load for closed or reset session")
				return nil, model.ErrSessionGone
			}
			entry.WithError(ferr).Warn("failed to record load failure")
		}
		metrics.BrowseSessions.WithLabelValues(string(model.SessionFailed)).Inc()
		entry.WithError(err).Warn("comment page load failed")
		return nil, err
	}

	updated, err := b.store.Complete(storeCtx, sessionID, s.Generation, page.Next.String(), page.HasMore)
	if err != nil {
		if errors.Is(err, model.ErrSessionGone) {
			entry.Debug("dropped page for closed or reset session")
		}
		return nil, err
	}
	metrics.BrowseSessions.WithLabelValues(string(model.SessionLoaded)).Inc()

	return &model.BrowsePage{Session: updated, Comments: page.Items}, nil
}

func (b *Browser) fetch(ctx context.Context, s *model.BrowseSession) (pagination.Page, error) {
	cursor, err := pagination.ParseCursor(s.Cursor)
	if err != nil {
		return pagination.Page{}, err
	}
	return b.pages.NextPage(ctx, s.SongID, cursor, s.PageSize)
}

func (b *Browser) owned(ctx context.Context, viewerID, sessionID string) (*model.BrowseSession, error) {
	if viewerID == "" {
		return nil, model.ErrUnauthenticated
	}
	s, err := b.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.ViewerID != viewerID {
		return nil, model.ErrSessionNotFound
	}
	return s, nil
}

func (b *Browser) clampSize(size int) int {
	if size <= 0 {
		return b.defaultSize
	}
	if size > b.maxSize {
		return b.maxSize
	}
	return size
}
