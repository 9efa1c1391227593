package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"beomusic_backend/internal/model"
)

// Event types for the comments stream
const (
	EventCommentPosted = "comment_posted"
)

// Stream names
const (
	StreamComments = "stream:comments"
)

// Consumer group name for comment notification workers
const (
	ConsumerGroupComments = "comment_workers"
)

// CommentEvent is published to the comments stream after a comment is stored.
type CommentEvent struct {
	Type      string `json:"type"`      // EventCommentPosted
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	CommentID  string `json:"comment_id"`
	SongID     string `json:"song_id"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	Content    string `json:"content"`

	// PostedAt is the comment's store timestamp in Unix nanoseconds, 0 when unknown.
	PostedAt int64 `json:"posted_at,omitempty"`
}

// NewCommentPostedEvent creates the event for a freshly stored comment.
// Workers notify the earlier commenters on the same song.
func NewCommentPostedEvent(c *model.Comment) CommentEvent {
	event := CommentEvent{
		Type:       EventCommentPosted,
		Timestamp:  time.Now().Unix(),
		CommentID:  c.ID,
		SongID:     c.SongID,
		AuthorID:   c.UserID,
		AuthorName: c.Username,
		Content:    c.Content,
	}
	if c.CreatedAt != nil {
		event.PostedAt = c.CreatedAt.UnixNano()
	}
	return event
}

// PostedTime returns PostedAt as a time, and false when it is unknown.
func (e CommentEvent) PostedTime() (time.Time, bool) {
	if e.PostedAt == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, e.PostedAt).UTC(), true
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e CommentEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseCommentEvent parses a CommentEvent from Redis stream message values.
func ParseCommentEvent(values map[string]interface{}) (CommentEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return CommentEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event CommentEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return CommentEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
