package errors

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

var (
	ErrAuth           = errors.New("authentication failed")
	ErrUpstream       = errors.New("upstream search failed")
	ErrThrottled      = errors.New("upstream throttled")
	ErrMalformedOffer = errors.New("malformed offer")
	ErrNotification   = errors.New("notification delivery failed")
	ErrTokenNotFound  = errors.New("token not found")
	ErrInvalidConfig  = errors.New("invalid config")
)

// maxBodyLen bounds response bodies kept in errors and logs.
const maxBodyLen = 512

// AuthError is fatal for a run: every search call needs the credential.
type AuthError struct {
	Status int
	Body   string
	Err    error
}

func NewAuthError(status int, body []byte, cause error) *AuthError {
	return &AuthError{Status: status, Body: Truncate(string(body)), Err: cause}
}

func (e *AuthError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%v: %v", ErrAuth, e.Err)
	}
	return fmt.Sprintf("%v: status %d: %s", ErrAuth, e.Status, e.Body)
}

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuth}
	}
	return []error{ErrAuth, e.Err}
}

// UpstreamError fails a single query. Status is 0 for transport failures.
type UpstreamError struct {
	Status int
	Body   string
	Err    error
}

func NewUpstreamError(status int, body []byte, cause error) *UpstreamError {
	return &UpstreamError{Status: status, Body: Truncate(string(body)), Err: cause}
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Status == 0:
		return fmt.Sprintf("%v: %v", ErrUpstream, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%v: status %d: %v", ErrUpstream, e.Status, e.Err)
	default:
		return fmt.Sprintf("%v: status %d: %s", ErrUpstream, e.Status, e.Body)
	}
}

func (e *UpstreamError) Unwrap() []error {
	errs := []error{ErrUpstream}
	if e.Status == http.StatusTooManyRequests {
		errs = append(errs, ErrThrottled)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NotificationError never changes the outcome of a run.
type NotificationError struct {
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrNotification, e.Err)
}

func (e *NotificationError) Unwrap() []error {
	return []error{ErrNotification, e.Err}
}

// Truncate caps s at maxBodyLen bytes without splitting a UTF-8 sequence.
func Truncate(s string) string {
	if len(s) <= maxBodyLen {
		return s
	}
	n := maxBodyLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
