package browse

import (
	"net/url"
	"strings"

	"github.com/pders01/folio/internal/query"
)

// Entry is a parsed search entry point such as /browse/chapters?search=x.
type Entry struct {
	Kind   query.Kind
	Search string
}

// Path renders the entry back into its location form.
func (e Entry) Path() string {
	p := "/browse/" + string(e.Kind)
	if e.Search != "" {
		p += "?" + url.Values{"search": {e.Search}}.Encode()
	}
	return p
}

// Searcher is the part of a controller an entry seeds.
type Searcher interface {
	SetSearch(text string) Request
}

// Seed pre-seeds the entry's search on s and returns the request to run.
func (e Entry) Seed(s Searcher) Request {
	return s.SetSearch(e.Search)
}

// ParseLocation accepts "/browse/{kind}?search=text", "browse/{kind}" or a
// bare kind name. An empty location opens articles.
func ParseLocation(loc string) (Entry, error) {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return Entry{Kind: query.Articles}, nil
	}
	u, err := url.Parse(loc)
	if err != nil {
		return Entry{}, &query.ValidationError{Field: "location", Value: loc, Reason: err.Error()}
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	var kindName string
	switch {
	case len(segments) == 1 && segments[0] != "browse":
		kindName = segments[0]
	case len(segments) == 2 && segments[0] == "browse":
		kindName = segments[1]
	default:
		return Entry{}, &query.ValidationError{Field: "location", Value: loc, Reason: "expected /browse/{kind}"}
	}

	kind, err := query.ParseKind(kindName)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Kind: kind, Search: strings.TrimSpace(u.Query().Get("search"))}, nil
}
