package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis notifier defaults.
const (
	DefaultChannel   = "mudra:recording_completed"
	DefaultRecentKey = "mudra:recordings:recent"
	DefaultTimeout   = 5 * time.Second
	DefaultRetries   = 3
	DefaultRecent    = 50
	DefaultBackoff   = 500 * time.Millisecond
)

// RedisConfig configures the Redis notifier.
type RedisConfig struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name.
	Channel string
	// RecentKey is a capped list holding the latest events. Empty uses
	// DefaultRecentKey.
	RecentKey string
	// Recent is the length of the recent list. Zero uses DefaultRecent;
	// negative disables the list.
	Recent int
	// Timeout is the per-attempt timeout.
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// Backoff is the delay before the first retry; it doubles each retry.
	Backoff time.Duration
}

// RedisNotifier publishes events via Redis PUBLISH and keeps a capped list
// of recent events for late subscribers.
type RedisNotifier struct {
	config RedisConfig
	client *goredis.Client
}

// NewRedis creates a Redis notifier from the given config.
func NewRedis(cfg RedisConfig) (*RedisNotifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis notifier requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis notifier: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.RecentKey == "" {
		cfg.RecentKey = DefaultRecentKey
	}
	if cfg.Recent == 0 {
		cfg.Recent = DefaultRecent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &RedisNotifier{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Notify publishes the event as JSON, retrying with exponential backoff.
func (n *RedisNotifier) Notify(ctx context.Context, event *RecordingCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	var lastErr error
	// attempts = 1 initial + retries
	attempts := 1 + n.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("redis: context canceled: %w", err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * n.config.Backoff
			select {
			case <-ctx.Done():
				return fmt.Errorf("redis: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, n.config.Timeout)
		lastErr = n.send(attemptCtx, body)
		cancel()

		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("redis: failed after %d attempts: %w", attempts, lastErr)
}

func (n *RedisNotifier) send(ctx context.Context, body []byte) error {
	_, err := n.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Publish(ctx, n.config.Channel, body)
		if n.config.Recent > 0 {
			pipe.LPush(ctx, n.config.RecentKey, body)
			pipe.LTrim(ctx, n.config.RecentKey, 0, int64(n.config.Recent-1))
		}
		return nil
	})
	return err
}

// Recent returns up to limit of the latest events, newest first.
func (n *RedisNotifier) Recent(ctx context.Context, limit int) ([]*RecordingCompletedEvent, error) {
	if n.config.Recent < 0 {
		return nil, nil
	}
	if limit <= 0 || limit > n.config.Recent {
		limit = n.config.Recent
	}

	raw, err := n.client.LRange(ctx, n.config.RecentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read recent events: %w", err)
	}

	events := make([]*RecordingCompletedEvent, 0, len(raw))
	for _, item := range raw {
		var e RecordingCompletedEvent
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("redis: decode recent event: %w", err)
		}
		events = append(events, &e)
	}
	return events, nil
}

// Close releases notifier resources.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

var _ Notifier = (*RedisNotifier)(nil)
