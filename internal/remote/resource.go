package remote

import (
	"context"
	"encoding/json"

	"github.com/pders01/folio/internal/query"
	"github.com/pders01/folio/internal/storage"
)

// Resource is a typed fetcher over one kind's collection.
type Resource[T any] struct {
	client     *Client
	kind       query.Kind
	collection string
}

// NewResource binds a client to the collection of kind.
func NewResource[T any](c *Client, kind query.Kind) (*Resource[T], error) {
	collection, err := Collection(kind)
	if err != nil {
		return nil, err
	}
	return &Resource[T]{client: c, kind: kind, collection: collection}, nil
}

func (c *Client) Articles() *Resource[storage.Article] {
	return &Resource[storage.Article]{client: c, kind: query.Articles, collection: ArticlesCollection}
}

func (c *Client) Chapters() *Resource[storage.Chapter] {
	return &Resource[storage.Chapter]{client: c, kind: query.Chapters, collection: ChaptersCollection}
}

// FetchPage lists one page and decodes its items. No retry is attempted.
func (r *Resource[T]) FetchPage(ctx context.Context, kind query.Kind, opts query.Options) (*query.Page[T], error) {
	if kind != r.kind {
		verr := &query.ValidationError{Field: "kind", Value: string(kind), Reason: "resource serves " + string(r.kind)}
		return nil, &Error{Op: "list " + r.collection, Class: ErrValidation, Message: verr.Error(), Err: verr}
	}
	raw, err := r.client.List(ctx, r.collection, opts)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(raw.Items))
	for _, data := range raw.Items {
		var item T
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, &Error{Op: "list " + r.collection, Class: ErrNetwork, Message: "malformed record", Err: err}
		}
		items = append(items, item)
	}
	return &query.Page[T]{
		Items:      items,
		Page:       raw.Page,
		PerPage:    raw.PerPage,
		TotalItems: raw.TotalItems,
		TotalPages: raw.TotalPages,
	}, nil
}

// Get fetches one record by ID.
func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	raw, err := r.client.View(ctx, r.collection, id)
	if err != nil {
		return nil, err
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, &Error{Op: "view " + r.collection, Class: ErrNetwork, Message: "malformed record", Err: err}
	}
	return &item, nil
}
