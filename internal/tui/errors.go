package tui

import (
	"errors"
	"fmt"

	"github.com/pders01/folio/internal/query"
	"github.com/pders01/folio/internal/remote"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// describeError turns fetch and input errors into a status line.
func describeError(err error) string {
	var verr *query.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, remote.ErrNotFound):
		return "not found: " + err.Error()
	case errors.Is(err, remote.ErrNetwork):
		return "backend unreachable: " + err.Error()
	default:
		return err.Error()
	}
}
