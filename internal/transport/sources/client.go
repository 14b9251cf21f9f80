// Package sources fetches destination facts from open, unauthenticated data sources.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/tripwise/internal/domain"
)

// maxBody caps how much of a source response is read.
const maxBody = 1 << 20

// ClientConfig holds settings shared by every HTTP-backed source.
type ClientConfig struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
}

// client is a rate-limited, retrying JSON GET helper. One client per source
// so that each upstream gets its own budget.
type client struct {
	name       string
	http       *http.Client
	limiter    *rate.Limiter
	userAgent  string
	maxRetries uint64
}

func newClient(name string, cfg ClientConfig) *client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &client{
		name:       name,
		http:       &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		userAgent:  cfg.UserAgent,
		maxRetries: uint64(retries),
	}
}

// get fetches url and returns the body of a 2xx response.
// 429 and 5xx responses and transport errors are retried with exponential backoff.
func (c *client) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(domain.NewSourceError(c.name, 0, err))
		}
		b, err := c.do(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx)

	if err := backoff.Retry(op, b); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return nil, perm.Err
		}
		return nil, err //nolint:wrapcheck // already a SourceError
	}
	return body, nil
}

func (c *client) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(domain.NewSourceError(c.name, 0, err))
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(domain.NewSourceError(c.name, 0, err))
		}
		return nil, domain.NewSourceError(c.name, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, domain.NewSourceError(c.name, 0, fmt.Errorf("read body: %w", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.NewSourceError(c.name, resp.StatusCode, domain.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, domain.NewSourceError(c.name, resp.StatusCode, nil)
	default:
		return nil, backoff.Permanent(domain.NewSourceError(c.name, resp.StatusCode, nil))
	}
}
