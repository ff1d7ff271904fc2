// Package local serves the list contract from the on-disk store so folio
// works without a remote backend.
package local

import (
	"context"
	"errors"
	"fmt"

	"github.com/pders01/folio/internal/debuglog"
	"github.com/pders01/folio/internal/query"
	"github.com/pders01/folio/internal/search"
	"github.com/pders01/folio/internal/storage"
)

type Backend struct {
	store *storage.Store
	index *search.Index
}

func New(store *storage.Store, index *search.Index) *Backend {
	return &Backend{store: store, index: index}
}

// Open opens the database and the search index, rebuilding the index when it
// is empty.
func Open(dbPath, indexPath string) (*Backend, error) {
	store, err := storage.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	index, err := search.Open(indexPath)
	if err != nil {
		store.Close()
		return nil, err
	}
	b := New(store, index)
	if n, err := index.DocCount(); err == nil && n == 0 {
		if err := index.Reindex(store); err != nil {
			b.Close()
			return nil, fmt.Errorf("building index: %w", err)
		}
		debuglog.Infof("search index rebuilt at %s", indexPath)
	}
	return b, nil
}

func (b *Backend) Close() error {
	return errors.Join(b.index.Close(), b.store.Close())
}

func (b *Backend) Store() *storage.Store { return b.store }

func (b *Backend) Index() *search.Index { return b.index }

// Source is a typed fetcher over one collection of the store.
type Source[T any] struct {
	kind query.Kind
	list func(query.Options) (*query.Page[T], error)
}

// FetchPage lists one page. A kind other than the source's own is a
// validation error.
func (s *Source[T]) FetchPage(ctx context.Context, kind query.Kind, opts query.Options) (*query.Page[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if kind != s.kind {
		return nil, &query.ValidationError{Field: "kind", Value: string(kind), Reason: "not served by the " + string(s.kind) + " source"}
	}
	return s.list(opts)
}

func (b *Backend) Articles() *Source[storage.Article] {
	return &Source[storage.Article]{kind: query.Articles, list: b.store.ListArticles}
}

func (b *Backend) Chapters() *Source[storage.Chapter] {
	return &Source[storage.Chapter]{kind: query.Chapters, list: b.store.ListChapters}
}

// SimilarKeywords looks up keyword candidates in the index.
func (b *Backend) SimilarKeywords(ctx context.Context, fragment string) ([]string, error) {
	return b.index.SimilarKeywords(ctx, fragment)
}

// Search runs a full-text query over one kind.
func (b *Backend) Search(kind query.Kind, text string, limit int) ([]search.Result, error) {
	return b.index.Search(kind, text, limit)
}

// SaveArticles stores and indexes articles and registers their keywords.
func (b *Backend) SaveArticles(ctx context.Context, articles ...storage.Article) error {
	if err := storage.Retry(ctx, func() error { return b.store.SaveArticles(articles...) }); err != nil {
		return fmt.Errorf("saving articles: %w", err)
	}
	if err := b.index.IndexArticles(articles...); err != nil {
		return fmt.Errorf("indexing articles: %w", err)
	}
	var words []string
	for _, a := range articles {
		words = append(words, a.Keywords...)
	}
	return b.SaveKeywords(ctx, words...)
}

// SaveChapters stores and indexes chapters and registers their keywords.
func (b *Backend) SaveChapters(ctx context.Context, chapters ...storage.Chapter) error {
	if err := storage.Retry(ctx, func() error { return b.store.SaveChapters(chapters...) }); err != nil {
		return fmt.Errorf("saving chapters: %w", err)
	}
	if err := b.index.IndexChapters(chapters...); err != nil {
		return fmt.Errorf("indexing chapters: %w", err)
	}
	var words []string
	for _, c := range chapters {
		words = append(words, c.Keywords...)
	}
	return b.SaveKeywords(ctx, words...)
}

// SaveKeywords registers new keywords. Known words are ignored.
func (b *Backend) SaveKeywords(ctx context.Context, words ...string) error {
	if len(words) == 0 {
		return nil
	}
	var created []storage.Keyword
	err := storage.Retry(ctx, func() error {
		var err error
		created, err = b.store.SaveKeywords(words...)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving keywords: %w", err)
	}
	if len(created) == 0 {
		return nil
	}
	debuglog.Debugf("registered %d new keywords", len(created))
	return b.index.IndexKeywords(created...)
}
