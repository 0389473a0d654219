package services

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytwatch/internal/credentials"
	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/desertthunder/ytwatch/internal/fetch"
	"github.com/desertthunder/ytwatch/internal/shared"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Stack is the access layer assembled from configuration.
type Stack struct {
	YouTube *YouTube
	Redis   *redis.Client // nil without [cache] redis_url
}

// Close releases the Redis connection, if any.
func (s *Stack) Close() error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Close()
}

// New builds the credential rotator, cache, rate limiter, classifier and access client described by cfg, and the
// YouTube client on top of them.
func New(ctx context.Context, cfg *shared.Config, sink events.Sink, logger *log.Logger) (*Stack, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	creds, err := credentials.New(cfg.Keys(), sink)
	if err != nil {
		return nil, err
	}

	rdb, err := fetch.NewRedisClient(ctx, cfg.Cache.RedisURL, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
	}

	cache := fetch.NewCache(fetch.CacheOpts{
		Version:    cfg.Cache.Version,
		MaxEntries: cfg.Cache.MaxEntries,
		Redis:      rdb,
		Prefix:     cfg.Cache.KeyPrefix,
		Sink:       sink,
	})

	var limiter *rate.Limiter
	if cfg.API.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.API.RateLimit), max(cfg.API.Burst, 1))
	}

	client := fetch.NewClient(creds, cache, fetch.Options{
		HTTPClient: &http.Client{Timeout: cfg.API.Timeout.Duration},
		Limiter:    limiter,
		Classifier: fetch.NewClassifier(cfg.API.RotateStatuses, cfg.API.QuotaReasons),
		Sink:       sink,
		Logger:     shared.WithLogger(logger, "component", "fetch"),
	})

	yt := NewYouTube(client, YouTubeOpts{
		BaseURL: cfg.Credentials.YouTube.BaseURL,
		TTL:     TTLsFromConfig(cfg.Cache.TTL),
		Sink:    sink,
		Logger:  shared.WithLogger(logger, "component", "youtube"),
	})
	return &Stack{YouTube: yt, Redis: rdb}, nil
}
