package worker

import (
	"context"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/metrics"
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/queue"
	"beomusic_backend/internal/service"
)

const (
	// maxTokenLookups bounds concurrent device token queries per event.
	maxTokenLookups = 8

	previewLength = 80
)

// CommentLister returns every comment on a song. repository.CommentStore satisfies it.
type CommentLister interface {
	FetchAll(ctx context.Context, songID string) ([]model.Comment, error)
}

// DeviceTokenStore looks up and prunes push tokens.
type DeviceTokenStore interface {
	GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error)
	DeleteTokens(ctx context.Context, tokens []string) error
}

// PushSender delivers a notification and returns the tokens that are no
// longer registered. *service.FCMClient satisfies it.
type PushSender interface {
	Send(ctx context.Context, tokens []string, n service.PushNotification) ([]string, error)
}

// Handler processes comment events from the queue.
type Handler struct {
	comments CommentLister
	tokens   DeviceTokenStore
	push     PushSender // nil when FCM is not configured
	log      *logrus.Entry
}

// NewHandler creates a new event handler.
func NewHandler(comments CommentLister, tokens DeviceTokenStore, push PushSender, log *logrus.Logger) *Handler {
	return &Handler{
		comments: comments,
		tokens:   tokens,
		push:     push,
		log:      logger.Component(log, "Worker"),
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.CommentEvent) (err error) {
	startTime := time.Now()
	defer func() {
		metrics.EventsProcessed.WithLabelValues(event.Type, metrics.Outcome(err)).Inc()
	}()

	switch event.Type {
	case queue.EventCommentPosted:
		err = h.handleCommentPosted(ctx, event)
	default:
		err = fmt.Errorf("unknown event type: %s", event.Type)
	}

	entry := h.log.WithFields(logrus.Fields{"type": event.Type, "duration": time.Since(startTime)})
	if err != nil {
		entry.WithError(err).Error("handle event failed")
		return err
	}
	entry.Debug("handle event ok")
	return nil
}

// handleCommentPosted notifies everyone who commented on the song before
// the new comment, except its author.
func (h *Handler) handleCommentPosted(ctx context.Context, event queue.CommentEvent) error {
	entry := h.log.WithFields(logrus.Fields{"song_id": event.SongID, "comment_id": event.CommentID})

	if h.push == nil {
		entry.Debug("push not configured, skipping")
		return nil
	}

	comments, err := h.comments.FetchAll(ctx, event.SongID)
	if err != nil {
		return fmt.Errorf("fetch comments: %w", err)
	}

	recipients := earlierCommenters(comments, event)
	if len(recipients) == 0 {
		entry.Debug("no earlier commenters")
		return nil
	}

	tokens, err := h.loadTokens(ctx, recipients)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		entry.WithField("recipients", len(recipients)).Debug("recipients have no devices")
		return nil
	}

	stale, err := h.push.Send(ctx, tokens, commentNotification(event))
	if len(stale) > 0 {
		if derr := h.tokens.DeleteTokens(ctx, stale); derr != nil {
			entry.WithError(derr).Warn("failed to delete stale device tokens")
		}
	}
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}

	entry.WithFields(logrus.Fields{
		"recipients": len(recipients),
		"tokens":     len(tokens),
		"stale":      len(stale),
	}).Info("comment notification sent")
	return nil
}

// loadTokens queries every recipient's devices concurrently and waits for
// all of them. Any failed lookup fails the whole batch.
func (h *Handler) loadTokens(ctx context.Context, recipients []string) ([]string, error) {
	perUser := make([][]model.DeviceToken, len(recipients))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxTokenLookups)
	for i, userID := range recipients {
		g.Go(func() error {
			devices, err := h.tokens.GetByUserID(gctx, userID)
			if err != nil {
				return fmt.Errorf("get device tokens for %s: %w", userID, err)
			}
			perUser[i] = devices
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var tokens []string
	for _, devices := range perUser {
		for _, d := range devices {
			if _, dup := seen[d.Token]; dup {
				continue
			}
			seen[d.Token] = struct{}{}
			tokens = append(tokens, d.Token)
		}
	}
	return tokens, nil
}

// earlierCommenters returns the distinct authors of comments posted before
// the event's comment, sorted, without the event's author. When the event
// has no timestamp every other comment counts as earlier.
func earlierCommenters(comments []model.Comment, event queue.CommentEvent) []string {
	postedAt, known := event.PostedTime()

	seen := make(map[string]struct{})
	for _, c := range comments {
		if c.ID == event.CommentID || c.UserID == "" || c.UserID == event.AuthorID {
			continue
		}
		if known && c.CreatedAt != nil && !c.CreatedAt.Before(postedAt) {
			continue
		}
		seen[c.UserID] = struct{}{}
	}

	users := make([]string, 0, len(seen))
	for id := range seen {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

func commentNotification(event queue.CommentEvent) service.PushNotification {
	author := event.AuthorName
	if author == "" {
		author = model.AnonymousUsername
	}
	return service.PushNotification{
		Title: "New comment",
		Body:  fmt.Sprintf("%s also commented: %s", author, preview(event.Content)),
		Data: map[string]string{
			"type":       event.Type,
			"song_id":    event.SongID,
			"comment_id": event.CommentID,
		},
	}
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLength]) + "…"
}
