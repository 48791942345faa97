package client

import (
	"context"
	"errors"
	"net/url"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 100 * time.Millisecond

	authPath = "/auth"
)

// ErrSessionExpired is returned after the retry budget for a session-expired
// call is exhausted and the token store has been cleared.
var ErrSessionExpired = errors.New("인증이 만료되었습니다. 페이지를 새로고침해주세요.")

// Navigator redirects the user agent after a terminal session expiry. A nil
// Navigator means there is no user agent to redirect (CLI, worker, test) and
// the redirect is skipped.
type Navigator interface {
	// CurrentPath returns the path the user is on, used to build the
	// post-login redirect target.
	CurrentPath() string
	Redirect(target string)
}

// RetryConfig controls the retry policy of NewRetryableCall.
type RetryConfig struct {
	// MaxRetries is the number of re-attempts after the initial call.
	// Zero means the default of 3; negative disables retries.
	MaxRetries int
	// RetryDelay is the fixed sleep between attempts. Zero means 100ms.
	RetryDelay time.Duration
	// OnRetry is invoked before each re-attempt with the retry ordinal
	// (1-based). Token refresh hooks go here.
	OnRetry func(count int)
	// OnMaxRetriesExceeded is invoked once when the budget is exhausted,
	// before tokens are cleared.
	OnMaxRetriesExceeded func()
}

func (c RetryConfig) maxRetries() int {
	switch {
	case c.MaxRetries == 0:
		return defaultMaxRetries
	case c.MaxRetries < 0:
		return 0
	default:
		return c.MaxRetries
	}
}

func (c RetryConfig) retryDelay() time.Duration {
	if c.RetryDelay == 0 {
		return defaultRetryDelay
	}
	return c.RetryDelay
}

// NewRetryableCall wraps call with a session-expiry retry policy. Errors that
// IsSessionExpired classifies are retried up to cfg.MaxRetries times with a
// fixed delay; on exhaustion the token store is cleared, the navigator (if
// any) is sent to the auth page, and ErrSessionExpired is returned. All other
// errors pass through unchanged on the first attempt.
//
// The attempt counter is local to each invocation of the returned function,
// so concurrent invocations never share retry budgets.
func NewRetryableCall[T any](call func(ctx context.Context) (T, error), cfg RetryConfig, tokens TokenStore, nav Navigator) func(ctx context.Context) (T, error) {
	maxRetries := cfg.maxRetries()
	delay := cfg.retryDelay()

	return func(ctx context.Context) (T, error) {
		var zero T
		for attempt := 0; ; attempt++ {
			result, err := call(ctx)
			if err == nil {
				return result, nil
			}
			if !IsSessionExpired(err) {
				return zero, err
			}
			if attempt >= maxRetries {
				expireSession(cfg, tokens, nav)
				return zero, ErrSessionExpired
			}

			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt + 1)
			}

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
}

// expireSession runs the terminal failure path: notify, drop both tokens and
// send the user agent back to the auth page.
func expireSession(cfg RetryConfig, tokens TokenStore, nav Navigator) {
	if cfg.OnMaxRetriesExceeded != nil {
		cfg.OnMaxRetriesExceeded()
	}
	if tokens != nil {
		tokens.Clear()
	}
	if nav == nil {
		return
	}

	target := authPath
	if path := nav.CurrentPath(); path != "" && path != "/" {
		target += "?redirect=" + url.QueryEscape(path)
	}
	nav.Redirect(target)
}
