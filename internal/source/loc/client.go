package loc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
)

// client wraps the HTTP transport with bounded exponential-backoff retry.
// 429 and 5xx responses and connection failures are retried; 404 and
// malformed payloads fail immediately as permanent.
type client struct {
	http      *http.Client
	userAgent string
	attempts  int
	backoff   time.Duration
	logger    *slog.Logger
}

func (c *client) getJSON(ctx context.Context, url string, out any) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return source.Wrap(source.ErrPermanent, "decode response", url, err)
	}
	return nil
}

// get issues a GET with retry. The caller owns the response body on success.
func (c *client) get(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			delay := c.backoff * (1 << (attempt - 2))
			c.logger.Debug("retrying request", "url", url, "attempt", attempt, "delay", delay)
			if err := sleepContext(ctx, delay); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, source.Wrap(source.ErrPermanent, "build request", url, err)
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = source.Wrap(source.ErrTransient, "request", url, err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp, nil
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return nil, source.Wrap(source.ErrPermanent, "request", fmt.Sprintf("%s: %s", url, resp.Status), nil)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = source.Wrap(source.ErrTransient, "request", fmt.Sprintf("%s: %s", url, resp.Status), nil)
			continue
		default:
			resp.Body.Close()
			return nil, source.Wrap(source.ErrPermanent, "request", fmt.Sprintf("%s: %s", url, resp.Status), nil)
		}
	}
	if lastErr == nil {
		lastErr = source.Wrap(source.ErrTransient, "request", url, nil)
	}
	return nil, fmt.Errorf("after %d attempts: %w", c.attempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// absoluteURL resolves the protocol-relative and path-relative URL shapes
// the archive mixes into its JSON payloads.
func absoluteURL(url string) string {
	switch {
	case strings.HasPrefix(url, "//"):
		return "https:" + url
	case strings.HasPrefix(url, "/"):
		return baseURL + url
	default:
		return url
	}
}

// jsonURL appends the fo=json selector to an archive page URL.
func jsonURL(url string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "fo=json"
}

func (l *LOC) waitScan(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.WaitScan(ctx)
}
