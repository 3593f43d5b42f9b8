package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-portal/internal/config"
	"github.com/spec-kit/complaint-portal/internal/events"
)

// Broadcaster pushes lifecycle events to real-time consumers.
type Broadcaster interface {
	Broadcast(ctx context.Context, event events.Event) error
}

// RealtimeBroadcaster fans events out over a Redis pub/sub channel and an
// optional webhook endpoint. Both targets are best-effort.
type RealtimeBroadcaster struct {
	redis      *redis.Client
	channel    string
	webhookURL string
	http       *resty.Client
	logger     *zap.Logger
}

// NewRealtimeBroadcaster constructs the broadcaster. redisClient may be nil
// when Redis is not configured.
func NewRealtimeBroadcaster(redisClient *redis.Client, cfg config.NotificationConfig, logger *zap.Logger) *RealtimeBroadcaster {
	httpClient := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(2)
	return &RealtimeBroadcaster{
		redis:      redisClient,
		channel:    cfg.RealtimeChan,
		webhookURL: cfg.WebhookURL,
		http:       httpClient,
		logger:     logger,
	}
}

// Broadcast publishes the event to every configured target. Failures are
// logged and do not propagate.
func (b *RealtimeBroadcaster) Broadcast(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if b.redis != nil {
		if err := b.redis.Publish(ctx, b.channel, payload).Err(); err != nil {
			b.logger.Warn("redis publish failed",
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	}

	if b.webhookURL != "" {
		if _, err := b.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(payload).
			Post(b.webhookURL); err != nil {
			b.logger.Warn("webhook delivery failed",
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	}
	return nil
}
