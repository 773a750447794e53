package amadeus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	derr "github.com/ozzus/fare-watcher/internal/domain/errors"
)

const (
	defaultMaxAttempts = 4
	defaultBaseDelay   = time.Second
	maxErrorBody       = 4 << 10
)

type SleepFunc func(ctx context.Context, d time.Duration) error

// Backoff retries a call while the upstream answers 429. Attempt i waits
// BaseDelay * 2^i before the next one.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       SleepFunc
}

func NewBackoff(maxAttempts int) Backoff {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return Backoff{
		MaxAttempts: maxAttempts,
		BaseDelay:   defaultBaseDelay,
		Sleep:       sleep,
	}
}

// Do returns the first 2xx response. A 401 means the bearer credential was
// rejected and is an *errors.AuthError. Every other outcome is an
// *errors.UpstreamError; transport failures are not retried.
func (b Backoff) Do(ctx context.Context, call func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	attempts := b.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	wait := b.Sleep
	if wait == nil {
		wait = sleep
	}

	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := call(ctx)
		if err != nil {
			return nil, derr.NewUpstreamError(0, nil, err)
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return resp, nil
		}

		body := drain(resp)
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, derr.NewAuthError(resp.StatusCode, body, nil)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return nil, derr.NewUpstreamError(resp.StatusCode, body, nil)
		}
		if attempt == attempts-1 {
			return nil, derr.NewUpstreamError(resp.StatusCode, body, fmt.Errorf("still throttled after %d attempts", attempts))
		}

		if err := wait(ctx, b.delay(attempt)); err != nil {
			return nil, derr.NewUpstreamError(0, nil, err)
		}
	}

	return nil, derr.NewUpstreamError(0, nil, fmt.Errorf("no attempts made"))
}

func (b Backoff) delay(attempt int) time.Duration {
	base := b.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	return base << attempt
}

func drain(resp *http.Response) []byte {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return body
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
