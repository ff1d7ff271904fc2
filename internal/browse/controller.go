// Package browse drives paginated, sorted and filtered listing of one kind.
//
// A Controller is owned by a single event loop. Every mutation returns a
// Request; the caller runs Fetch wherever it likes (Fetch reads no mutable
// state) and hands the Response back to Apply on the event loop. Apply only
// commits the response of the most recently issued request, so a slow
// response can never overwrite a newer one.
package browse

import (
	"context"
	"strconv"

	"github.com/pders01/folio/internal/query"
)

// Fetcher lists one page of a kind.
type Fetcher[T any] interface {
	FetchPage(ctx context.Context, kind query.Kind, opts query.Options) (*query.Page[T], error)
}

// Request is one issued fetch. Seq orders requests of one controller.
type Request struct {
	Seq     uint64
	Kind    query.Kind
	Options query.Options
}

type Response[T any] struct {
	Request Request
	Page    *query.Page[T]
	Err     error
}

// State is a snapshot of a controller.
type State[T any] struct {
	Kind       query.Kind
	Options    query.Options
	Search     string
	Filters    []string
	Rows       []T
	TotalItems int
	TotalPages int
	Loading    bool
	Loaded     bool
	Err        error
}

// Empty reports a resolved fetch that returned no rows.
func (s State[T]) Empty() bool {
	return s.Loaded && !s.Loading && s.Err == nil && len(s.Rows) == 0
}

type Controller[T any] struct {
	kind         query.Kind
	fetcher      Fetcher[T]
	searchFields []string

	opts    query.Options
	filters []string
	search  string

	seq        uint64
	rows       []T
	totalItems int
	totalPages int
	loading    bool
	loaded     bool
	lastErr    error
}

// NewController creates a controller for kind. opts supplies the initial
// sort and page size; its Filter is replaced by the controller's clauses.
// searchFields are the fields SetSearch matches against.
func NewController[T any](kind query.Kind, fetcher Fetcher[T], opts query.Options, searchFields ...string) *Controller[T] {
	c := &Controller[T]{
		kind:         kind,
		fetcher:      fetcher,
		searchFields: searchFields,
		opts:         opts,
	}
	if c.opts.Page < 1 {
		c.opts.Page = 1
	}
	if c.opts.PageSize < 1 {
		c.opts.PageSize = query.DefaultPageSize
	}
	c.opts.Filter = c.filter()
	return c
}

func (c *Controller[T]) Kind() query.Kind { return c.kind }

func (c *Controller[T]) Options() query.Options { return c.opts }

// SetSort sorts by field. Sorting by the current field again flips the
// direction; a new field starts ascending.
func (c *Controller[T]) SetSort(field string) Request {
	dir := query.Asc
	if field == c.opts.SortField {
		dir = c.opts.SortDirection.Flip()
	}
	c.opts = c.opts.WithSort(field, dir)
	return c.issue()
}

// SetSortDirection keeps the field and sets the direction.
func (c *Controller[T]) SetSortDirection(dir query.Direction) Request {
	c.opts = c.opts.WithSort(c.opts.SortField, dir)
	return c.issue()
}

// SetFilter replaces the filter clauses; blank clauses are dropped.
func (c *Controller[T]) SetFilter(clauses ...string) Request {
	c.filters = c.filters[:0]
	for _, clause := range clauses {
		if clause != "" {
			c.filters = append(c.filters, clause)
		}
	}
	c.opts = c.opts.WithFilter(c.filter())
	return c.issue()
}

// SetSearch sets the free-text search combined with the filter clauses.
func (c *Controller[T]) SetSearch(text string) Request {
	c.search = text
	c.opts = c.opts.WithFilter(c.filter())
	return c.issue()
}

// SetPage moves to page n. Pages past the end are allowed and come back
// empty.
func (c *Controller[T]) SetPage(n int) (Request, error) {
	if n < 1 {
		return Request{}, &query.ValidationError{Field: "page", Value: strconv.Itoa(n), Reason: "must be >= 1"}
	}
	c.opts = c.opts.WithPage(n)
	return c.issue(), nil
}

func (c *Controller[T]) SetPageSize(n int) (Request, error) {
	if n < 1 {
		return Request{}, &query.ValidationError{Field: "perPage", Value: strconv.Itoa(n), Reason: "must be >= 1"}
	}
	c.opts = c.opts.WithPageSize(n)
	return c.issue(), nil
}

// Refresh re-issues the current options.
func (c *Controller[T]) Refresh() Request {
	return c.issue()
}

// Fetch runs req against the fetcher. It does not touch controller state.
func (c *Controller[T]) Fetch(ctx context.Context, req Request) Response[T] {
	page, err := c.fetcher.FetchPage(ctx, req.Kind, req.Options)
	if err == nil && page == nil {
		page = query.NewPage[T](nil, req.Options.Page, req.Options.PageSize, 0)
	}
	return Response[T]{Request: req, Page: page, Err: err}
}

// Apply commits resp if it answers the latest request and reports whether it
// did. A failure keeps the previous rows.
func (c *Controller[T]) Apply(resp Response[T]) bool {
	if resp.Request.Seq != c.seq {
		return false
	}
	c.loading = false
	c.loaded = true
	if resp.Err != nil {
		c.lastErr = resp.Err
		return true
	}
	c.lastErr = nil
	c.rows = resp.Page.Items
	c.totalItems = resp.Page.TotalItems
	c.totalPages = resp.Page.TotalPages
	return true
}

func (c *Controller[T]) State() State[T] {
	return State[T]{
		Kind:       c.kind,
		Options:    c.opts,
		Search:     c.search,
		Filters:    append([]string(nil), c.filters...),
		Rows:       c.rows,
		TotalItems: c.totalItems,
		TotalPages: c.totalPages,
		Loading:    c.loading,
		Loaded:     c.loaded,
		Err:        c.lastErr,
	}
}

func (c *Controller[T]) issue() Request {
	c.seq++
	c.loading = true
	return Request{Seq: c.seq, Kind: c.kind, Options: c.opts}
}

func (c *Controller[T]) filter() string {
	clauses := append([]string(nil), c.filters...)
	clauses = append(clauses, query.SearchClause(c.search, c.searchFields...))
	return query.And(clauses...)
}
