package tui

import (
	"fmt"
	"strings"

	"github.com/pders01/folio/internal/query"
)

// StatusKind is the severity of the status bar message.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

// statusBadgeWidth is the room kept left of the help line for the view badge.
const statusBadgeWidth = 14

// Short status bar messages.
const (
	MsgLoading        = "Loading…"
	MsgRefreshing     = "Refreshing…"
	MsgRendering      = "Rendering…"
	MsgNoResults      = "No results"
	MsgFirstPage      = "Already on the first page"
	MsgLastPage       = "Already on the last page"
	MsgKeywordsFull   = "Keyword limit reached"
	MsgInvalidKeyword = "Only lowercase letters, digits and hyphens"
	MsgNoLink         = "This record has no page to open"
)

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

// MsgPosition summarizes where the view stands, e.g. "page 2/5 • 23 articles".
func MsgPosition(kind query.Kind, page, totalPages, totalItems int) string {
	if totalPages == 0 {
		return fmt.Sprintf("no %s", kind.Label())
	}
	return fmt.Sprintf("page %d/%d • %d %s", page, totalPages, totalItems, kind.Label())
}

func MsgSortedBy(field string, dir query.Direction) string {
	arrow := "↑"
	if dir == query.Desc {
		arrow = "↓"
	}
	return fmt.Sprintf("sorted by %s %s", field, arrow)
}

func MsgOpened(url string) string {
	return "Opened " + strings.TrimSpace(url)
}
