package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/metrics"
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/pagination"
	"beomusic_backend/internal/queue"
	"beomusic_backend/internal/repository"
)

// CommentPager assembles pages of a song's comments. *pagination.Assembler satisfies it.
type CommentPager interface {
	NextPage(ctx context.Context, songID string, cursor pagination.Cursor, pageSize int) (pagination.Page, error)
}

type CommentService struct {
	comments    repository.CommentStore
	profiles    repository.ProfileStore
	pages       CommentPager
	publisher   queue.Publisher // nil when Redis is not configured
	defaultSize int
	maxSize     int
	log         *logrus.Entry
}

func NewCommentService(
	comments repository.CommentStore,
	profiles repository.ProfileStore,
	pages CommentPager,
	publisher queue.Publisher,
	defaultSize, maxSize int,
	log *logrus.Logger,
) *CommentService {
	if defaultSize <= 0 {
		defaultSize = model.DefaultCommentPageSize
	}
	if maxSize < defaultSize {
		maxSize = defaultSize
	}
	return &CommentService{
		comments:    comments,
		profiles:    profiles,
		pages:       pages,
		publisher:   publisher,
		defaultSize: defaultSize,
		maxSize:     maxSize,
		log:         logger.Component(log, "CommentService"),
	}
}

// Post stores a comment by userID on songID. The author's current profile is
// copied into the comment; later profile changes do not touch it.
// A failed insert is not retried, so a client retrying after a lost response
// can create a duplicate.
func (s *CommentService) Post(ctx context.Context, userID, songID, content string) (comment *model.Comment, err error) {
	defer func() {
		metrics.CommentsPosted.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	if userID == "" {
		return nil, model.ErrUnauthenticated
	}
	if songID == "" {
		return nil, model.ErrSongIDRequired
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.ErrContentRequired
	}
	if utf8.RuneCountInString(content) > model.MaxCommentLength {
		return nil, model.ErrContentTooLong
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	comment, err = s.comments.Insert(ctx, songID, content, model.CommentAuthor{
		UserID:   userID,
		Username: profile.DisplayName,
		PhotoURL: profile.AvatarURL,
	})
	if err != nil {
		s.log.WithError(err).WithField("song_id", songID).Warn("insert comment failed")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"song_id":    songID,
		"comment_id": comment.ID,
	}).Info("comment posted")

	s.publishPosted(ctx, comment)
	return comment, nil
}

// Delete removes a comment if userID wrote it.
func (s *CommentService) Delete(ctx context.Context, userID, commentID string) (err error) {
	defer func() {
		metrics.CommentsDeleted.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	if err := s.comments.Delete(ctx, commentID, userID); err != nil {
		if errors.Is(err, model.ErrNotCommentOwner) {
			s.log.WithFields(logrus.Fields{"user_id": userID, "comment_id": commentID}).Warn("delete rejected: not the author")
		}
		return err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "comment_id": commentID}).Info("comment deleted")
	return nil
}

// List returns one page of a song's comments, newest first. An empty cursor
// returns the first page; otherwise the page continues after the cursor.
// limit <= 0 selects the default page size and larger values are capped.
func (s *CommentService) List(ctx context.Context, songID, cursor string, limit int) (*model.CommentPage, error) {
	c, err := pagination.ParseCursor(cursor)
	if err != nil {
		return nil, err
	}

	page, err := s.pages.NextPage(ctx, songID, c, s.clampLimit(limit))
	if err != nil {
		return nil, err
	}

	return &model.CommentPage{
		Comments:   page.Items,
		NextCursor: page.Next.Ptr(),
		HasMore:    page.HasMore,
	}, nil
}

func (s *CommentService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultSize
	}
	if limit > s.maxSize {
		return s.maxSize
	}
	return limit
}

// publishPosted is best-effort: the comment is already stored, so a failed
// publish only costs the notification.
func (s *CommentService) publishPosted(ctx context.Context, comment *model.Comment) {
	if s.publisher == nil {
		return
	}
	event := queue.NewCommentPostedEvent(comment)
	if _, err := s.publisher.Publish(context.WithoutCancel(ctx), queue.StreamComments, event); err != nil {
		s.log.WithError(err).WithField("comment_id", comment.ID).Warn("failed to publish comment_posted event")
	}
}
