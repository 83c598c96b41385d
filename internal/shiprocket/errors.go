package shiprocket

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthError means the credential exchange itself was rejected. It is fatal
// to the whole run; there is no point retrying other orders with the same
// credentials.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("shiprocket auth failed (status %d): %s", e.StatusCode, e.Message)
}

// APIError is any non-2xx response from the platform other than an auth
// rejection. Callers treat these as transient: log, skip the current order,
// keep the batch going.
type APIError struct {
	StatusCode int
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shiprocket API %s returned status %d", e.Path, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the platform. The wallet feed
// 404s for orders that have no billing data yet, which is expected and not
// an error condition.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsAuthError reports whether err originated from a rejected credential
// exchange.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
