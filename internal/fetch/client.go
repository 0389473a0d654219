package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytwatch/internal/credentials"
	"github.com/desertthunder/ytwatch/internal/events"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// URLBuilder returns the request URL for one credential.
type URLBuilder func(credential string) string

// Options configures a [Client]. Zero values select defaults.
type Options struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Classifier Classifier
	Sink       events.Sink
	Logger     *log.Logger
}

// Client performs cached, deduplicated, credential-rotating GET requests.
//
// At most one attempt sequence is in flight per key; concurrent callers for the same key share its result.
type Client struct {
	http       *http.Client
	creds      *credentials.Rotator
	cache      *Cache
	limiter    *rate.Limiter
	classifier Classifier
	sink       events.Sink
	logger     *log.Logger
	group      singleflight.Group
	attempts   atomic.Int64
}

var errUnavailable = errors.New("resource unavailable")

// NewClient creates a [Client] over the given credentials and cache.
func NewClient(creds *credentials.Rotator, cache *Cache, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Classifier == nil {
		opts.Classifier = NewClassifier(nil, nil)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Client{
		http:       opts.HTTPClient,
		creds:      creds,
		cache:      cache,
		limiter:    opts.Limiter,
		classifier: opts.Classifier,
		sink:       events.OrNop(opts.Sink),
		logger:     opts.Logger,
	}
}

// Cache exposes the underlying cache for inspection.
func (c *Client) Cache() *Cache { return c.cache }

// Credentials exposes the rotator.
func (c *Client) Credentials() *credentials.Rotator { return c.creds }

// Attempts is the number of network requests made so far.
func (c *Client) Attempts() int64 { return c.attempts.Load() }

// Resource returns the body for key, from cache when fresh, otherwise from the network.
//
// The boolean is false when the source is unavailable: every credential was spent, the upstream returned a
// non-quota error or a malformed body, the transport failed, or ctx ended while waiting. Callers never see
// transport errors.
func (c *Client) Resource(ctx context.Context, key string, build URLBuilder, ttl time.Duration) ([]byte, bool) {
	if body, ok := c.cache.Get(ctx, key); ok {
		return body, true
	}

	// The shared attempt outlives any single waiter.
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if body, ok := c.cache.lookup(detached, key); ok {
			return body, nil
		}
		body := c.attempt(detached, key, build)
		if body == nil {
			return nil, errUnavailable
		}
		c.cache.Set(detached, key, body, ttl)
		return body, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			events.Emit(c.sink, events.RequestCoalesced, "", "key", key)
		}
		if res.Err != nil {
			return nil, false
		}
		return res.Val.([]byte), true
	case <-ctx.Done():
		return nil, false
	}
}

// attempt walks the credential set once, starting at the current cursor.
func (c *Client) attempt(ctx context.Context, key string, build URLBuilder) []byte {
	n := c.creds.Len()
	for i := 0; i < n; i++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		status, body, err := c.get(ctx, build(c.creds.Current()))
		if err != nil {
			c.logger.Warn("request failed", "key", key, "error", err)
			events.Emit(c.sink, events.RequestFailed, err.Error(), "key", key)
			return nil
		}

		switch v := c.classifier.Classify(status, body); v {
		case Accept:
			return body
		case Rotate:
			c.logger.Debug("credential rejected", "key", key, "status", status, "slot", c.creds.Index())
			c.creds.Rotate()
		default:
			c.logger.Warn("upstream error", "key", key, "status", status)
			events.Emit(c.sink, events.RequestFailed, fmt.Sprintf("status %d", status), "key", key, "status", status)
			return nil
		}
	}

	c.logger.Warn("all credentials exhausted", "key", key, "credentials", n)
	events.Emit(c.sink, events.QuotaExhausted, "every API key was rejected", "key", key, "credentials", n)
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string) (int, []byte, error) {
	c.attempts.Add(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
