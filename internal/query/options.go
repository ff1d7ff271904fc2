package query

import (
	"net/url"
	"strconv"
	"strings"
)

// Direction is the sort direction of a query.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

const (
	DefaultPageSize  = 5
	DefaultSortField = "created"
)

// Options describes how a collection should be fetched. It is a value type:
// every With* method returns a modified copy and the receiver is untouched.
type Options struct {
	SortField     string
	SortDirection Direction
	Filter        string
	Page          int
	PageSize      int
}

// DefaultOptions is the newest-first first page the browse views open with.
func DefaultOptions() Options {
	return Options{
		SortField:     DefaultSortField,
		SortDirection: Desc,
		Page:          1,
		PageSize:      DefaultPageSize,
	}
}

// SortToken encodes field and direction as a single backend sort token:
// "+field" ascending, "-field" descending.
func SortToken(field string, dir Direction) string {
	if dir == Asc {
		return "+" + field
	}
	return "-" + field
}

// ParseSortToken is the inverse of SortToken. A bare field sorts ascending.
func ParseSortToken(token string) (string, Direction) {
	token = strings.TrimSpace(token)
	switch {
	case strings.HasPrefix(token, "-"):
		return token[1:], Desc
	case strings.HasPrefix(token, "+"):
		return token[1:], Asc
	default:
		return token, Asc
	}
}

// Sort returns the sort token for the options, or "" when no field is set.
func (o Options) Sort() string {
	if o.SortField == "" {
		return ""
	}
	return SortToken(o.SortField, o.SortDirection)
}

// WithSort changes the sort and resets to the first page.
func (o Options) WithSort(field string, dir Direction) Options {
	o.SortField = field
	o.SortDirection = dir
	o.Page = 1
	return o
}

// WithFilter changes the filter and resets to the first page.
func (o Options) WithFilter(filter string) Options {
	o.Filter = filter
	o.Page = 1
	return o
}

// WithPageSize changes the page size and resets to the first page.
func (o Options) WithPageSize(n int) Options {
	o.PageSize = n
	o.Page = 1
	return o
}

// WithPage moves to page n; nothing else changes.
func (o Options) WithPage(n int) Options {
	o.Page = n
	return o
}

// Validate checks the pagination bounds.
func (o Options) Validate() error {
	if o.Page < 1 {
		return &ValidationError{Field: "page", Value: strconv.Itoa(o.Page), Reason: "must be >= 1"}
	}
	if o.PageSize < 1 {
		return &ValidationError{Field: "perPage", Value: strconv.Itoa(o.PageSize), Reason: "must be >= 1"}
	}
	if o.SortDirection != "" && o.SortDirection != Asc && o.SortDirection != Desc {
		return &ValidationError{Field: "sort", Value: string(o.SortDirection), Reason: "direction must be asc or desc"}
	}
	return nil
}

// Params encodes the options as list API query parameters.
func (o Options) Params() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(o.Page))
	v.Set("perPage", strconv.Itoa(o.PageSize))
	if s := o.Sort(); s != "" {
		v.Set("sort", s)
	}
	if o.Filter != "" {
		v.Set("filter", o.Filter)
	}
	return v
}

// FromParams decodes list API query parameters, falling back to defaults for
// anything absent.
func FromParams(v url.Values, defaults Options) (Options, error) {
	o := defaults
	if p := v.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return o, &ValidationError{Field: "page", Value: p, Reason: "not a number"}
		}
		o.Page = n
	}
	if p := v.Get("perPage"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return o, &ValidationError{Field: "perPage", Value: p, Reason: "not a number"}
		}
		o.PageSize = n
	}
	if s := v.Get("sort"); s != "" {
		o.SortField, o.SortDirection = ParseSortToken(s)
	}
	if f, ok := v["filter"]; ok && len(f) > 0 {
		o.Filter = f[0]
	}
	return o, o.Validate()
}
