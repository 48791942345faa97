package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is the failure shape the backend surfaces on non-2xx responses.
// Ok mirrors the HTTP-level success flag so callers that only persist the
// decoded body can still classify the failure later.
type APIError struct {
	Status  int
	Ok      bool
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (status %d)", e.Status)
}

var sessionExpiredMarkers = []string{
	"401",
	"unauthorized",
	"인증이 만료",
	"인증 실패",
}

func containsSessionMarker(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range sessionExpiredMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsSessionExpired reports whether err represents an expired or invalid auth
// session. It matches a 401 status, a failed response carrying status 401, or
// any error/message text containing a session-expiry marker.
func IsSessionExpired(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized {
			return true
		}
		return containsSessionMarker(apiErr.Message)
	}

	return containsSessionMarker(err.Error())
}
