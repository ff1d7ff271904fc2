package query

import (
	"fmt"
	"strings"
)

// Kind identifies one of the browsable resource collections.
type Kind string

const (
	Articles Kind = "articles"
	Chapters Kind = "chapters"
)

// Kinds lists every browsable kind in display order.
var Kinds = []Kind{Articles, Chapters}

func (k Kind) String() string { return string(k) }

// Label is the human-facing name used in headers.
func (k Kind) Label() string {
	switch k {
	case Articles:
		return "articles"
	case Chapters:
		return "chapters"
	default:
		return "unknown"
	}
}

// Next cycles articles -> chapters -> articles.
func (k Kind) Next() Kind {
	if k == Articles {
		return Chapters
	}
	return Articles
}

// ParseKind accepts the kind names plus their singular forms.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "articles", "article":
		return Articles, nil
	case "chapters", "chapter":
		return Chapters, nil
	default:
		return "", &ValidationError{Field: "kind", Value: s, Reason: "must be articles or chapters"}
	}
}

// ValidationError is a client-side rejection of input. It never reaches the
// network.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
