package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Error classes, matched with errors.Is.
var (
	ErrNetwork    = errors.New("network error")
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

// Error is a failed backend call.
type Error struct {
	Op      string
	Class   error
	Status  int
	Message string
	Data    map[string]any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %v (%d): %s", e.Op, e.Class, e.Status, msg)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Class, msg)
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Class}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// classify maps an HTTP status to an error class. 404 is not-found, other
// 4xx are rejected requests and everything else is a network failure.
func classify(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 400 && status < 500:
		return ErrValidation
	default:
		return ErrNetwork
	}
}

// apiError is the backend's error body.
type apiError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}
