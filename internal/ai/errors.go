package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx answer from a provider.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api error: status=%d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " code=%s", e.Code)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " request_id=%s", e.RequestID)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " message=%s", e.Message)
	}
	return b.String()
}

// decodeAPIError reads the error body shapes of OpenAI-compatible routers
// ({"error": {"message", "code"}}) and of Ollama ({"error": "..."}).
func decodeAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}
	var raw struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Code    string          `json:"code"`
	}
	if json.Unmarshal(body, &raw) != nil {
		e.Message = strings.TrimSpace(string(body))
		return e
	}
	e.Message, e.Code = raw.Message, raw.Code
	var nested struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	}
	var flat string
	switch {
	case json.Unmarshal(raw.Error, &flat) == nil:
		e.Message = flat
	case json.Unmarshal(raw.Error, &nested) == nil:
		if nested.Message != "" {
			e.Message = nested.Message
		}
		if c, ok := nested.Code.(string); ok && c != "" {
			e.Code = c
		}
	}
	return e
}

// classify maps an APIError to the typed error for its status.
func classify(e *APIError, h http.Header) error {
	switch sc := e.StatusCode; {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: e}
	case sc == http.StatusTooManyRequests:
		return &RateLimitError{APIError: e, RetryAfter: retryAfter(h)}
	case sc == http.StatusNotFound:
		if e.Code == "model_not_found" || containsAll(e.Message, "model", "not found") {
			return &ModelNotFoundError{APIError: e}
		}
		return e
	case sc == http.StatusBadRequest:
		return &BadRequestError{APIError: e}
	case e.Code == "quota_exceeded" || containsAny(e.Message, "quota", "billing", "limit exceeded"):
		return &QuotaExceededError{APIError: e}
	case sc >= 500:
		return &ServerError{APIError: e}
	}
	return e
}

func containsAll(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return s != ""
}

func containsAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// AuthError indicates authentication/authorization failures (401/403).
type AuthError struct{ *APIError }

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.APIError.Error())
}

// RateLimitError indicates 429 responses and may include a Retry-After.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.APIError.Error())
}

// ModelNotFoundError indicates the requested model is not available.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model not found: %s", e.APIError.Error())
}

// BadRequestError indicates a 4xx request problem (e.g., 400 validation).
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return fmt.Sprintf("bad request: %s", e.APIError.Error()) }

// QuotaExceededError indicates billing/quota problems.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.APIError.Error())
}

// ServerError indicates 5xx errors from the provider.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return fmt.Sprintf("provider error: %s", e.APIError.Error()) }

// UnreachableError indicates the target runtime is not reachable (e.g., local Ollama down).
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Unwrap() error { return e.Err }

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}

// MalformedResponseError indicates a success status with an undecodable body.
type MalformedResponseError struct{ Err error }

func (e *MalformedResponseError) Error() string { return fmt.Sprintf("decode response: %v", e.Err) }

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsProviderError reports whether err is a failure reported by, or while
// reaching, a text generation provider.
func IsProviderError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingAPIKey) {
		return true
	}
	var (
		apiErr   *APIError
		auth     *AuthError
		rate     *RateLimitError
		notFound *ModelNotFoundError
		bad      *BadRequestError
		quota    *QuotaExceededError
		server   *ServerError
		unreach  *UnreachableError
		badBody  *MalformedResponseError
		urlErr   *url.Error
	)
	return errors.As(err, &apiErr) || errors.As(err, &auth) || errors.As(err, &rate) ||
		errors.As(err, &notFound) || errors.As(err, &bad) || errors.As(err, &quota) ||
		errors.As(err, &server) || errors.As(err, &unreach) || errors.As(err, &badBody) ||
		errors.As(err, &urlErr)
}
