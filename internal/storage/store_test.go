package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/pders01/folio/internal/debuglog"
	"github.com/pders01/folio/internal/query"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedArticles(t *testing.T, store *Store, n int) []Article {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	articles := make([]Article, 0, n)
	for i := 0; i < n; i++ {
		articles = append(articles, Article{
			ID:         fmt.Sprintf("art%012d", i),
			Title:      fmt.Sprintf("Article %d", i),
			User:       "u1",
			Visibility: VisibilityPublic,
			Keywords:   []string{"go"},
			Likes:      i * 10,
			Created:    base.Add(time.Duration(i) * time.Hour),
			Updated:    base.Add(time.Duration(i) * time.Hour),
		})
	}
	require.NoError(t, store.SaveArticles(articles...))
	return articles
}

func TestStore_SaveAndGetArticle(t *testing.T) {
	store := setupTestStore(t)

	article := Article{
		ID:         "abc123",
		Title:      "Limits",
		Content:    "# Limits\n\nbody",
		Visibility: VisibilityPublic,
		Keywords:   []string{"calculo", "limites"},
		Created:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveArticles(article))

	got, err := store.GetArticle("abc123")
	require.NoError(t, err)
	assert.Equal(t, article.Title, got.Title)
	assert.Equal(t, article.Keywords, got.Keywords)
	assert.True(t, article.Created.Equal(got.Created))
}

func TestStore_GetArticle_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetArticle("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_SaveRequiresID(t *testing.T) {
	store := setupTestStore(t)

	err := store.SaveChapters(Chapter{Title: "no id"})
	assert.Error(t, err)

	calls := 0
	start := time.Now()
	err = Retry(context.Background(), func() error {
		calls++
		return store.SaveChapters(Chapter{Title: "no id"})
	})
	assert.ErrorContains(t, err, "record without id")
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestStore_SkipsUndecodableRecords(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "store.log")
	require.NoError(t, debuglog.Setup(debuglog.LevelWarn, logPath))
	t.Cleanup(func() { _ = debuglog.Setup(debuglog.LevelOff) })

	store := setupTestStore(t)
	seedArticles(t, store, 2)
	require.NoError(t, store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(articlesBucket).Put([]byte("broken000000000"), []byte("{not json"))
	}))

	all, err := store.AllArticles()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, debuglog.Close())
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "broken000000000")
}

func TestStore_ListArticles_Pagination(t *testing.T) {
	store := setupTestStore(t)
	seedArticles(t, store, 12)

	page, err := store.ListArticles(query.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 12, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 5)
	assert.Equal(t, "Article 11", page.Items[0].Title, "newest first")

	last, err := store.ListArticles(query.DefaultOptions().WithPage(3))
	require.NoError(t, err)
	assert.Len(t, last.Items, 2)

	past, err := store.ListArticles(query.DefaultOptions().WithPage(9))
	require.NoError(t, err)
	assert.Empty(t, past.Items)
	assert.Equal(t, 12, past.TotalItems)
}

func TestStore_ListArticles_NumericSort(t *testing.T) {
	store := setupTestStore(t)
	seedArticles(t, store, 12)

	page, err := store.ListArticles(query.DefaultOptions().WithSort("likes", query.Asc).WithPageSize(3))
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	// 0, 10, 20 numerically; a string sort would put 100 before 20.
	assert.Equal(t, []int{0, 10, 20}, []int{page.Items[0].Likes, page.Items[1].Likes, page.Items[2].Likes})
}

func TestStore_ListArticles_Filter(t *testing.T) {
	store := setupTestStore(t)
	seedArticles(t, store, 12)
	require.NoError(t, store.SaveArticles(Article{
		ID:         "private0000001",
		Title:      "Hidden",
		Visibility: VisibilityPrivate,
		Keywords:   []string{"calculo"},
	}))

	tests := []struct {
		name   string
		filter string
		want   int
	}{
		{"all", "", 13},
		{"visibility", `visibility="public"`, 12},
		{"keyword any-of", `keywords="calculo"`, 1},
		{"contains", `title~"article 1"`, 3},
		{"numeric", `likes>=100`, 2},
		{"or", `(title~"hidden"||likes=0)`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := store.ListArticles(query.DefaultOptions().WithFilter(tt.filter))
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.TotalItems)
		})
	}
}

func TestStore_ListArticles_Validation(t *testing.T) {
	store := setupTestStore(t)

	tests := []struct {
		name  string
		opts  query.Options
		field string
	}{
		{"unknown filter field", query.DefaultOptions().WithFilter(`bogus="x"`), "filter"},
		{"malformed filter", query.DefaultOptions().WithFilter(`title="x`), "filter"},
		{"unknown sort field", query.DefaultOptions().WithSort("bogus", query.Asc), "sort"},
		{"page zero", query.DefaultOptions().WithPage(0), "page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.ListArticles(tt.opts)
			var verr *query.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestStore_ListChapters(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.SaveChapters(
		Chapter{ID: "ch1", Title: "Algebra", Articles: []string{"a", "b"}},
		Chapter{ID: "ch2", Title: "Calculus"},
	))

	page, err := store.ListChapters(query.DefaultOptions().WithSort("title", query.Asc))
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Algebra", page.Items[0].Title)

	got, err := store.GetChapter("ch1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Articles)
}

func TestStore_SaveKeywords_Dedupes(t *testing.T) {
	store := setupTestStore(t)

	created, err := store.SaveKeywords("calculo", "algebra", "calculo", " ")
	require.NoError(t, err)
	assert.Len(t, created, 2)

	created, err = store.SaveKeywords("algebra", "geometria")
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "geometria", created[0].Word)

	all, err := store.Keywords()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := store.ListKeywords(query.Options{
		SortField: "word", SortDirection: query.Asc, Filter: `word~"ca"`, Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "calculo", page.Items[0].Word)
}

func TestStore_Counts(t *testing.T) {
	store := setupTestStore(t)
	seedArticles(t, store, 3)
	_, err := store.SaveKeywords("go")
	require.NoError(t, err)

	articles, chapters, keywords, err := store.Counts()
	require.NoError(t, err)
	assert.Equal(t, 3, articles)
	assert.Equal(t, 0, chapters)
	assert.Equal(t, 1, keywords)
}

func TestRetry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New("locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = Retry(context.Background(), func() error {
		calls++
		return errors.New("locked")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	invalid := errors.New("invalid record")
	err = Retry(context.Background(), func() error {
		calls++
		return backoff.Permanent(invalid)
	})
	assert.ErrorIs(t, err, invalid)
	assert.Equal(t, 1, calls)
}
