package client

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is matched by every AuthRedirectError
var ErrUnauthorized = errors.New("unauthorized")

// AuthRedirectError means the session is missing or expired. The caller
// must send the user to LoginURL instead of reporting a failure.
type AuthRedirectError struct {
	LoginURL string
}

func (e *AuthRedirectError) Error() string {
	return "authentication required, redirect to " + e.LoginURL
}

// Is makes errors.Is(err, ErrUnauthorized) true
func (e *AuthRedirectError) Is(target error) bool {
	return target == ErrUnauthorized
}

// HTTPError is any other non-2xx backend response
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// IsNotFound reports whether err is a backend 404
func IsNotFound(err error) bool {
	var herr *HTTPError
	return errors.As(err, &herr) && herr.Status == 404
}
