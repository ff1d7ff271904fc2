package tui

import (
	"github.com/pders01/folio/internal/browse"
	"github.com/pders01/folio/internal/debounce"
	"github.com/pders01/folio/internal/query"
)

type View int

const (
	ViewBrowse View = iota
	ViewSearch
	ViewKeywords
	ViewReader
)

func (v View) String() string {
	switch v {
	case ViewBrowse:
		return "browse"
	case ViewSearch:
		return "search"
	case ViewKeywords:
		return "keywords"
	case ViewReader:
		return "reader"
	default:
		return "unknown"
	}
}

// pageMsg carries a fetch result back to the event loop.
type pageMsg[T any] struct {
	resp browse.Response[T]
}

// searchTickMsg fires when the search debounce period for token elapses.
type searchTickMsg struct {
	token debounce.Token
}

type keywordTickMsg struct {
	kind  query.Kind
	token debounce.Token
}

type keywordsFoundMsg struct {
	kind  query.Kind
	token debounce.Token
	found []string
	err   error
}

// keywordResolvedMsg reports whether a typed word is already a known keyword.
type keywordResolvedMsg struct {
	kind  query.Kind
	word  string
	known bool
	err   error
}

type recordRenderedMsg struct {
	id      string
	content string
}

type openedMsg struct {
	url string
}

type errorMsg struct {
	err error
}
