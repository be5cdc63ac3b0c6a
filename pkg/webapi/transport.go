package webapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	// webOrigin is sent as Origin and Referer on every request. Upstream
	// rejects requests that do not look like they come from the web player.
	webOrigin = "https://open.spotify.com"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	maxBackoff      = 30 * time.Second
	maxErrorBodyLen = 512
)

// transport issues HTTP requests with a per-attempt timeout and retries
// temporary failures with exponential backoff.
type transport struct {
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration
	logger     zerolog.Logger
}

// webHeaders returns the headers the official web client sends.
func webHeaders() http.Header {
	h := make(http.Header)
	h.Set("Accept", "application/json")
	h.Set("Origin", webOrigin)
	h.Set("Referer", webOrigin+"/")
	h.Set("User-Agent", userAgent)
	h.Set("App-Platform", "WebPlayer")
	return h
}

// get performs a GET request and returns the response body.
//
// It handles:
// - Per-attempt timeouts
// - Retries of network errors, 5xx and 429 responses
// - Retry-After on 429 responses
// - Context cancellation
//
// Non-2xx responses are returned as *HTTPError, transport failures as an
// error matching ErrNetwork. If ctx is done the context error is returned.
func (t *transport) get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	var lastErr error
	backoff := t.backoff
	attempts := t.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		t.logger.Debug().
			Str("url", redactQuery(rawURL)).
			Int("attempt", i+1).
			Int("max_attempts", attempts).
			Msg("request")

		body, wait, err := t.attempt(ctx, rawURL, header)
		if err == nil {
			return body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err

		if !shouldRetry(err) || i == attempts-1 {
			return nil, err
		}

		delay := backoff
		if wait > 0 {
			delay = wait
		}
		t.logger.Debug().Err(err).Dur("delay", delay).Msg("retrying request")
		if !sleep(ctx, delay) {
			return nil, ctx.Err()
		}
		backoff = nextBackoff(backoff)
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// attempt performs a single request. The returned duration is the server's
// Retry-After hint, if any.
func (t *transport) attempt(ctx context.Context, rawURL string, header http.Header) ([]byte, time.Duration, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, 0, &networkError{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &networkError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := body
		if len(snippet) > maxErrorBodyLen {
			snippet = snippet[:maxErrorBodyLen]
		}
		httpErr := &HTTPError{
			Method:     http.MethodGet,
			URL:        redactQuery(rawURL),
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
		}
		return nil, retryAfter(resp), httpErr
	}

	return body, 0, nil
}

// shouldRetry reports whether a failed attempt is worth repeating.
func shouldRetry(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(resp *http.Response) time.Duration {
	if resp.StatusCode != http.StatusTooManyRequests {
		return 0
	}
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// redactQuery strips the query string so one-time codes and cursors do not
// end up in logs or error messages.
func redactQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}

// sleep waits for the specified duration or until context is cancelled.
// Returns true if sleep completed, false if context was cancelled.
func sleep(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff doubles the backoff, capped at 30 seconds.
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
