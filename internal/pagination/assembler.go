package pagination

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/metrics"
	"beomusic_backend/internal/model"
)

const (
	kindFirst = "first"
	kindNext  = "next"
)

// Fetcher returns every comment on a song in no particular order.
type Fetcher interface {
	FetchAll(ctx context.Context, songID string) ([]model.Comment, error)
}

// Page is one window of the ordered comment sequence.
type Page struct {
	Items   []model.Comment
	Next    Cursor
	HasMore bool
}

// Assembler builds pages by fetching the whole set, sorting it and slicing.
//
// It keeps no state between calls. If comments are posted or deleted between
// FirstPage and NextPage the continuation can skip or repeat items, because
// the cursor is a timestamp value rather than a position in a snapshot.
type Assembler struct {
	fetcher Fetcher
	log     *logrus.Entry
}

func NewAssembler(fetcher Fetcher, log *logrus.Logger) *Assembler {
	return &Assembler{
		fetcher: fetcher,
		log:     logger.Component(log, "PageAssembler"),
	}
}

// FirstPage returns the newest pageSize comments.
func (a *Assembler) FirstPage(ctx context.Context, songID string, pageSize int) (Page, error) {
	return a.load(ctx, kindFirst, songID, pageSize, func(sorted []model.Comment) int {
		return 0
	})
}

// NextPage returns up to pageSize comments strictly older than cursor.
// A none cursor is the same as FirstPage.
func (a *Assembler) NextPage(ctx context.Context, songID string, cursor Cursor, pageSize int) (Page, error) {
	if cursor.IsNone() {
		return a.FirstPage(ctx, songID, pageSize)
	}
	return a.load(ctx, kindNext, songID, pageSize, func(sorted []model.Comment) int {
		return startAfter(sorted, cursor.Time())
	})
}

func (a *Assembler) load(ctx context.Context, kind, songID string, pageSize int, start func([]model.Comment) int) (page Page, err error) {
	begin := time.Now()
	defer func() {
		metrics.PageLoads.WithLabelValues(kind, metrics.Outcome(err)).Inc()
		metrics.PageDuration.WithLabelValues(kind).Observe(time.Since(begin).Seconds())
	}()

	if songID == "" {
		return Page{}, model.ErrSongIDRequired
	}
	if pageSize <= 0 {
		return Page{}, model.ErrInvalidPageSize
	}

	comments, err := a.fetcher.FetchAll(ctx, songID)
	if err != nil {
		return Page{}, err
	}
	metrics.FetchedSetSize.Observe(float64(len(comments)))

	Sort(comments)
	page = window(comments, start(comments), pageSize)

	a.log.WithFields(logrus.Fields{
		"song_id":  songID,
		"kind":     kind,
		"fetched":  len(comments),
		"returned": len(page.Items),
		"has_more": page.HasMore,
	}).Debug("assembled comment page")

	return page, nil
}

// startAfter returns the index of the first comment strictly older than t,
// or len(sorted) when there is none. Comments without a timestamp sort last
// and count as older than any cursor.
func startAfter(sorted []model.Comment, t time.Time) int {
	for i, c := range sorted {
		if c.CreatedAt == nil || c.CreatedAt.Before(t) {
			return i
		}
	}
	return len(sorted)
}

// window slices sorted[from:from+size] and derives the following cursor.
// HasMore is true whenever the page came back full, so a set whose size is a
// multiple of size costs one extra empty fetch at the end.
func window(sorted []model.Comment, from, size int) Page {
	if from >= len(sorted) {
		return Page{Items: []model.Comment{}, Next: None()}
	}

	end := from + size
	if end > len(sorted) {
		end = len(sorted)
	}
	items := sorted[from:end]

	page := Page{Items: items, HasMore: len(items) == size}
	last := items[len(items)-1]
	if last.CreatedAt == nil {
		// Nothing to resume from once untimestamped comments are reached.
		page.HasMore = false
		return page
	}
	page.Next = At(*last.CreatedAt)
	return page
}
