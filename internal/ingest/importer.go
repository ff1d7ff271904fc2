// Package ingest fills the local store from RSS/Atom feeds and TOML
// fixtures.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pders01/folio/internal/debuglog"
	"github.com/pders01/folio/internal/storage"
	"github.com/pders01/folio/internal/validation"
)

// Saver persists imported records.
type Saver interface {
	SaveChapters(ctx context.Context, chapters ...storage.Chapter) error
	SaveArticles(ctx context.Context, articles ...storage.Article) error
}

// Result summarizes one imported feed.
type Result struct {
	URL      string
	Chapter  storage.Chapter
	Articles int
}

type Importer struct {
	saver        Saver
	fetcher      *Fetcher
	parser       *Parser
	urlValidator *validation.URLValidator
	// Workers bounds concurrent imports in ImportAll.
	Workers int
}

func NewImporter(saver Saver, user string, timeout time.Duration) *Importer {
	return &Importer{
		saver:        saver,
		fetcher:      NewFetcher(timeout),
		parser:       NewParser(user),
		urlValidator: validation.NewURLValidator(),
		Workers:      5,
	}
}

// SetPermissiveValidation allows localhost and private feed URLs.
func (im *Importer) SetPermissiveValidation(permissive bool) {
	if permissive {
		im.urlValidator = validation.NewPermissiveURLValidator()
	} else {
		im.urlValidator = validation.NewURLValidator()
	}
}

// Import fetches one feed and stores it as a chapter with its articles.
func (im *Importer) Import(ctx context.Context, url string) (*Result, error) {
	normalizedURL, err := im.urlValidator.ValidateAndNormalize(url)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}

	body, err := im.fetcher.Fetch(ctx, normalizedURL)
	if err != nil {
		return nil, err
	}

	chapter, articles, err := im.parser.Parse(body, normalizedURL)
	if err != nil {
		return nil, err
	}

	if err := im.saver.SaveChapters(ctx, chapter); err != nil {
		return nil, fmt.Errorf("saving chapter: %w", err)
	}
	if len(articles) > 0 {
		if err := im.saver.SaveArticles(ctx, articles...); err != nil {
			return nil, fmt.Errorf("saving articles: %w", err)
		}
	}

	debuglog.WithFields(map[string]any{"url": normalizedURL, "articles": len(articles)}).Infof("imported feed %q", chapter.Title)
	return &Result{URL: normalizedURL, Chapter: chapter, Articles: len(articles)}, nil
}

// ImportAll imports feeds with a bounded worker pool. Results keep the input
// order; failed feeds leave a nil entry and their errors are joined.
func (im *Importer) ImportAll(ctx context.Context, urls []string) ([]*Result, error) {
	results := make([]*Result, len(urls))
	if len(urls) == 0 {
		return results, nil
	}

	workers := im.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int, len(urls))
	errChan := make(chan error, len(urls))

	var wg sync.WaitGroup
	for i := 0; i < workers && i < len(urls); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res, err := im.Import(ctx, urls[idx])
				if err != nil {
					errChan <- fmt.Errorf("%s: %w", urls[idx], err)
					continue
				}
				results[idx] = res
			}
		}()
	}

	for i := range urls {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	return results, errors.Join(errs...)
}
