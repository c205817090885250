package adminapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound matches a ServerError for an unknown key
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized matches a ServerError for a missing or rejected admin session
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError is a local precondition failure; no request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// TransportError covers network failures and malformed responses.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError is a failure reported by the admin API itself.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: server error (status %d): %s", e.Op, e.StatusCode, e.Message)
}

// Is lets callers test for ErrNotFound and ErrUnauthorized with errors.Is
func (e *ServerError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// Message returns the human-readable text for any client error
func Message(err error) string {
	var ve *ValidationError
	var se *ServerError
	var te *TransportError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &se):
		return se.Message
	case errors.As(err, &te):
		return "Network error occurred"
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}
