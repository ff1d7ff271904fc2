package browse

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pders01/folio/internal/query"
	"github.com/pders01/folio/internal/storage"
)

// Overview is the landing view: the top entries of both kinds.
type Overview struct {
	Articles *query.Page[storage.Article]
	Chapters *query.Page[storage.Chapter]
}

// FetchOverview fetches both kinds concurrently with the same options. The
// first failure cancels the other fetch.
func FetchOverview(ctx context.Context, articles Fetcher[storage.Article], chapters Fetcher[storage.Chapter], opts query.Options) (*Overview, error) {
	g, ctx := errgroup.WithContext(ctx)
	var out Overview
	g.Go(func() error {
		page, err := articles.FetchPage(ctx, query.Articles, opts)
		if err != nil {
			return fmt.Errorf("articles: %w", err)
		}
		out.Articles = page
		return nil
	})
	g.Go(func() error {
		page, err := chapters.FetchPage(ctx, query.Chapters, opts)
		if err != nil {
			return fmt.Errorf("chapters: %w", err)
		}
		out.Chapters = page
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
