package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/logger"
)

// Publisher defines the interface for publishing events to a stream.
type Publisher interface {
	// Publish adds an event to the specified stream.
	// Returns the message ID assigned by Redis.
	Publish(ctx context.Context, stream string, event CommentEvent) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
	log    *logrus.Entry
}

// NewPublisher creates a new Publisher backed by Redis Streams.
func NewPublisher(client *redis.Client, log *logrus.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, log: logger.Component(log, "Publisher")}
}

// Publish adds an event to the stream using XADD.
// Uses "*" for auto-generated message ID (timestamp-sequence).
func (p *RedisPublisher) Publish(ctx context.Context, stream string, event CommentEvent) (string, error) {
	startTime := time.Now()
	entry := p.log.WithFields(logrus.Fields{"stream": stream, "type": event.Type})

	values, err := event.ToMap()
	if err != nil {
		entry.WithError(err).Error("publish failed")
		return "", fmt.Errorf("serialize event: %w", err)
	}

	// XADD stream * field value [field value ...]
	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		entry.WithError(err).Error("publish failed")
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	entry.WithFields(logrus.Fields{
		"msg_id":     messageID,
		"song_id":    event.SongID,
		"comment_id": event.CommentID,
		"duration":   time.Since(startTime),
	}).Debug("publish ok")

	return messageID, nil
}

// PublishCommentPosted is a convenience method for publishing comment posted events.
func (p *RedisPublisher) PublishCommentPosted(ctx context.Context, event CommentEvent) (string, error) {
	return p.Publish(ctx, StreamComments, event)
}
