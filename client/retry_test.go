package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestIsSessionExpired(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"status 401", &APIError{Status: http.StatusUnauthorized}, true},
		{"failed response with 401", &APIError{Status: http.StatusUnauthorized, Ok: false, Message: "whatever"}, true},
		{"message contains 401", &APIError{Status: http.StatusBadGateway, Message: "upstream replied 401"}, true},
		{"message contains unauthorized", errors.New("request Unauthorized by gateway"), true},
		{"korean session expired", errors.New("인증이 만료되었습니다"), true},
		{"korean auth failed", &APIError{Status: http.StatusForbidden, Message: "인증 실패"}, true},
		{"plain network error", errors.New("network down"), false},
		{"500 api error", &APIError{Status: http.StatusInternalServerError, Message: "boom"}, false},
		{"wrapped 401", &APIError{Status: http.StatusNotFound, Message: "UNAUTHORIZED token"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSessionExpired(tt.err); got != tt.expected {
				t.Errorf("IsSessionExpired(%v) = %v, expected %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRetryableCallRetriesThenSucceeds(t *testing.T) {
	tokens := NewMemoryTokenStore()
	tokens.SetTokens("access", "refresh")

	calls := 0
	call := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &APIError{Status: http.StatusUnauthorized}
		}
		return "ok", nil
	}

	retries := 0
	wrapped := NewRetryableCall(call, RetryConfig{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		OnRetry:    func(count int) { retries = count },
	}, tokens, nil)

	result, err := wrapped(context.Background())
	if err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}
	if result != "ok" {
		t.Errorf("Expected result 'ok', got %q", result)
	}
	if calls != 2 {
		t.Errorf("Expected exactly 2 calls, got %d", calls)
	}
	if retries != 1 {
		t.Errorf("Expected one retry notification, got count %d", retries)
	}
	if tokens.AccessToken() != "access" {
		t.Error("Tokens should survive a recovered call")
	}
}

func TestRetryableCallExhaustion(t *testing.T) {
	tokens := NewMemoryTokenStore()
	tokens.SetTokens("access", "refresh")

	calls := 0
	call := func(ctx context.Context) (string, error) {
		calls++
		return "", &APIError{Status: http.StatusUnauthorized}
	}

	exceeded := 0
	wrapped := NewRetryableCall(call, RetryConfig{
		MaxRetries:           2,
		RetryDelay:           time.Millisecond,
		OnMaxRetriesExceeded: func() { exceeded++ },
	}, tokens, nil)

	_, err := wrapped(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Expected ErrSessionExpired, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected initial attempt + 2 retries = 3 calls, got %d", calls)
	}
	if exceeded != 1 {
		t.Errorf("Expected OnMaxRetriesExceeded exactly once, got %d", exceeded)
	}
	if tokens.AccessToken() != "" || tokens.RefreshToken() != "" {
		t.Error("Expected both tokens cleared after exhaustion")
	}
}

func TestRetryableCallNon401Passthrough(t *testing.T) {
	tokens := NewMemoryTokenStore()
	tokens.SetTokens("access", "refresh")

	networkErr := errors.New("network down")
	calls := 0
	call := func(ctx context.Context) (string, error) {
		calls++
		return "", networkErr
	}

	callbackFired := false
	wrapped := NewRetryableCall(call, RetryConfig{
		RetryDelay:           time.Millisecond,
		OnRetry:              func(int) { callbackFired = true },
		OnMaxRetriesExceeded: func() { callbackFired = true },
	}, tokens, nil)

	_, err := wrapped(context.Background())
	if !errors.Is(err, networkErr) {
		t.Fatalf("Expected the original error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected no retry for non-auth errors, got %d calls", calls)
	}
	if callbackFired {
		t.Error("Callbacks must not fire for non-auth errors")
	}
	if tokens.AccessToken() == "" {
		t.Error("Tokens must survive non-auth errors")
	}
}

func TestRetryableCallCounterResetsPerInvocation(t *testing.T) {
	tokens := NewMemoryTokenStore()

	failuresLeft := 1
	call := func(ctx context.Context) (string, error) {
		if failuresLeft > 0 {
			failuresLeft--
			return "", &APIError{Status: http.StatusUnauthorized}
		}
		return "ok", nil
	}

	wrapped := NewRetryableCall(call, RetryConfig{
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	}, tokens, nil)

	if _, err := wrapped(context.Background()); err != nil {
		t.Fatalf("First invocation should recover: %v", err)
	}

	// A fresh invocation gets a fresh retry budget rather than immediate
	// exhaustion.
	failuresLeft = 1
	if _, err := wrapped(context.Background()); err != nil {
		t.Fatalf("Second invocation should recover too: %v", err)
	}
}

func TestRetryableCallContextCancellation(t *testing.T) {
	tokens := NewMemoryTokenStore()

	call := func(ctx context.Context) (string, error) {
		return "", &APIError{Status: http.StatusUnauthorized}
	}
	wrapped := NewRetryableCall(call, RetryConfig{
		MaxRetries: 5,
		RetryDelay: time.Hour,
	}, tokens, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := wrapped(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

type fakeNavigator struct {
	path     string
	redirect string
}

func (n *fakeNavigator) CurrentPath() string    { return n.path }
func (n *fakeNavigator) Redirect(target string) { n.redirect = target }

func TestRetryableCallRedirect(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"root path", "/", "/auth"},
		{"empty path", "", "/auth"},
		{"deep path", "/contracts/42", "/auth?redirect=%2Fcontracts%2F42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := NewMemoryTokenStore()
			nav := &fakeNavigator{path: tt.path}

			call := func(ctx context.Context) (string, error) {
				return "", &APIError{Status: http.StatusUnauthorized}
			}
			wrapped := NewRetryableCall(call, RetryConfig{
				MaxRetries: -1,
				RetryDelay: time.Millisecond,
			}, tokens, nav)

			if _, err := wrapped(context.Background()); !errors.Is(err, ErrSessionExpired) {
				t.Fatalf("Expected ErrSessionExpired, got %v", err)
			}
			if nav.redirect != tt.expected {
				t.Errorf("Expected redirect %q, got %q", tt.expected, nav.redirect)
			}
		})
	}
}
