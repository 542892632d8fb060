package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"albumsync/internal/services"
)

const (
	insufficientScopeMessage = "insufficient authentication scopes"
	insufficientScopeReason  = "ACCESS_TOKEN_SCOPE_INSUFFICIENT"
)

// APIError is a non-2xx response from the Library API.
type APIError struct {
	StatusCode int
	// Status is the canonical status name from the error body (PERMISSION_DENIED).
	Status  string
	Message string
	// Reason is the ErrorInfo reason when the body carries one.
	Reason string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Status != "" {
		return fmt.Sprintf("remote: %d %s: %s", e.StatusCode, e.Status, msg)
	}
	return fmt.Sprintf("remote: %d: %s", e.StatusCode, msg)
}

// Is lets callers match scope rejections and retryable statuses against the
// shared service markers.
func (e *APIError) Is(target error) bool {
	switch target {
	case services.ErrInsufficientScope:
		return e.InsufficientScope()
	case services.ErrTransient:
		return IsRetryableStatus(e.StatusCode)
	}
	return false
}

// InsufficientScope reports whether the token lacked a required scope.
func (e *APIError) InsufficientScope() bool {
	if e.StatusCode != http.StatusForbidden {
		return false
	}
	return e.Reason == insufficientScopeReason ||
		strings.Contains(strings.ToLower(e.Message), insufficientScopeMessage)
}

// IsRetryableStatus reports whether a response status is worth retrying:
// rate limiting and server errors.
func IsRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Reason string `json:"reason"`
		} `json:"details"`
	} `json:"error"`
}

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && (envelope.Error.Message != "" || envelope.Error.Status != "") {
		apiErr.Status = envelope.Error.Status
		apiErr.Message = envelope.Error.Message
		for _, detail := range envelope.Error.Details {
			if detail.Reason != "" {
				apiErr.Reason = detail.Reason
				break
			}
		}
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
