package service

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/logger"
)

// FCM accepts at most this many tokens per multicast.
const maxMulticastTokens = 500

// PushNotification is one notification sent to a set of device tokens.
type PushNotification struct {
	Title string
	Body  string
	Data  map[string]string
}

// FCMClient sends push notifications through Firebase Cloud Messaging.
type FCMClient struct {
	client *messaging.Client
	log    *logrus.Entry
}

// NewFCMClient creates a messaging client from an initialised Firebase app.
func NewFCMClient(ctx context.Context, app *firebase.App, log *logrus.Logger) (*FCMClient, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}
	return &FCMClient{client: client, log: logger.Component(log, "FCM")}, nil
}

// Send delivers n to every token, in batches of maxMulticastTokens. It
// returns the tokens FCM reported as no longer registered so the caller can
// forget them. Other per-token failures are only logged.
func (c *FCMClient) Send(ctx context.Context, tokens []string, n PushNotification) ([]string, error) {
	var stale []string
	for start := 0; start < len(tokens); start += maxMulticastTokens {
		end := start + maxMulticastTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[start:end]

		resp, err := c.client.SendEachForMulticast(ctx, buildMulticast(batch, n))
		if err != nil {
			return stale, fmt.Errorf("send multicast: %w", err)
		}

		c.log.WithFields(logrus.Fields{
			"tokens":  len(batch),
			"success": resp.SuccessCount,
			"failure": resp.FailureCount,
		}).Info("push batch sent")

		for i, r := range resp.Responses {
			if r.Success {
				continue
			}
			if messaging.IsUnregistered(r.Error) || messaging.IsInvalidArgument(r.Error) {
				stale = append(stale, batch[i])
				continue
			}
			c.log.WithError(r.Error).Warn("push to token failed")
		}
	}
	return stale, nil
}

func buildMulticast(tokens []string, n PushNotification) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}
