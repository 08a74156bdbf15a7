package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrOverloaded marks a provider capacity error that should trigger a
	// model fallback rather than a plain retry.
	ErrOverloaded = errors.New("provider overloaded")
	// ErrNotConfigured is returned when a provider has no credentials
	ErrNotConfigured = errors.New("provider not configured")
)

// StatusError is a non-success HTTP response from a provider
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, strings.TrimSpace(e.Body))
}

// Is lets errors.Is(err, ErrOverloaded) match 503 responses
func (e *StatusError) Is(target error) bool {
	return target == ErrOverloaded && e.StatusCode == http.StatusServiceUnavailable
}

// IsOverloaded reports whether err is an overload-class failure
func IsOverloaded(err error) bool {
	return errors.Is(err, ErrOverloaded)
}
