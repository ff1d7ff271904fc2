package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/folio/internal/config"
	"github.com/pders01/folio/internal/query"
	"github.com/pders01/folio/internal/remote"
	"github.com/pders01/folio/internal/storage"
)

func setupServer(t *testing.T) (*Server, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var articles []storage.Article
	for i, title := range []string{"Limits", "Derivatives", "Integrals", "Vectors", "Matrices", "Groups", "Rings"} {
		articles = append(articles, storage.Article{
			ID:         "article00000000" + string(rune('a'+i)),
			Title:      title,
			Visibility: storage.VisibilityPublic,
			Keywords:   []string{"math"},
			Likes:      i,
			Created:    base.Add(time.Duration(i) * time.Hour),
		})
	}
	require.NoError(t, store.SaveArticles(articles...))
	require.NoError(t, store.SaveChapters(storage.Chapter{ID: "chapter00000001", Title: "Calculus", Created: base}))
	_, err = store.SaveKeywords("calculo", "algebra", "algebra-linear", "math")
	require.NoError(t, err)

	return New(store, config.ServerConfig{Mode: gin.TestMode}), store
}

func do(t *testing.T, s *Server, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func TestServer_Health(t *testing.T) {
	s, _ := setupServer(t)
	w, body := do(t, s, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 7, data["articles"])
	assert.EqualValues(t, 4, data["keywords"])
}

func TestServer_RequestIDPassthrough(t *testing.T) {
	s, _ := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

func TestServer_ListRecords(t *testing.T) {
	s, _ := setupServer(t)
	w, body := do(t, s, "/api/collections/articles_stats/records?page=2&perPage=3&sort=-created")
	require.Equal(t, http.StatusOK, w.Code)

	assert.EqualValues(t, 2, body["page"])
	assert.EqualValues(t, 3, body["perPage"])
	assert.EqualValues(t, 7, body["totalItems"])
	assert.EqualValues(t, 3, body["totalPages"])
	items := body["items"].([]any)
	require.Len(t, items, 3)
	assert.Equal(t, "Vectors", items[0].(map[string]any)["title"])
}

func TestServer_Errors(t *testing.T) {
	s, _ := setupServer(t)

	tests := []struct {
		name   string
		target string
		status int
		field  string
	}{
		{"unknown collection", "/api/collections/users/records", http.StatusNotFound, ""},
		{"unknown route", "/api/nothing", http.StatusNotFound, ""},
		{"missing record", "/api/collections/articles_stats/records/zzzzzzzzzzzzzzz", http.StatusNotFound, ""},
		{"bad page", "/api/collections/articles_stats/records?page=0", http.StatusBadRequest, "page"},
		{"bad perPage", "/api/collections/articles_stats/records?perPage=x", http.StatusBadRequest, "perPage"},
		{"perPage too large", "/api/collections/articles_stats/records?perPage=501", http.StatusBadRequest, "perPage"},
		{"bad filter", "/api/collections/articles_stats/records?filter=title%3D", http.StatusBadRequest, "filter"},
		{"unknown sort field", "/api/collections/chapters_stats/records?sort=-nope", http.StatusBadRequest, "sort"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, s, tt.target)
			assert.Equal(t, tt.status, w.Code)
			assert.EqualValues(t, tt.status, body["code"])
			assert.NotEmpty(t, body["message"])
			if tt.field != "" {
				assert.Contains(t, body["data"], tt.field)
			}
		})
	}
}

// The remote client and the server agree on the wire format.
func TestServer_RemoteClientRoundTrip(t *testing.T) {
	s, _ := setupServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	client, err := remote.New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, client.Health(ctx))

	opts := query.DefaultOptions().WithFilter(query.Contains("title", "i"))
	page, err := client.Articles().FetchPage(ctx, query.Articles, opts)
	require.NoError(t, err)
	assert.Equal(t, 5, page.PerPage)
	assert.Equal(t, 5, page.TotalItems)
	var got []string
	for _, a := range page.Items {
		assert.True(t, strings.Contains(strings.ToLower(a.Title), "i"), a.Title)
		got = append(got, a.Title)
	}
	// "Integrals" has only an upper-case I; "~" ignores case.
	assert.Equal(t, []string{"Rings", "Matrices", "Integrals", "Derivatives", "Limits"}, got)

	page, err = client.Articles().FetchPage(ctx, query.Articles, query.DefaultOptions().WithFilter(query.Contains("title", "INTEGRALS")))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Integrals", page.Items[0].Title)

	chapter, err := client.Chapters().Get(ctx, "chapter00000001")
	require.NoError(t, err)
	assert.Equal(t, "Calculus", chapter.Title)

	_, err = client.Chapters().Get(ctx, "missing00000000")
	assert.True(t, errors.Is(err, remote.ErrNotFound))

	words, err := client.SimilarKeywords(ctx, "alg")
	require.NoError(t, err)
	assert.Equal(t, []string{"algebra", "algebra-linear"}, words)

	_, err = client.Articles().FetchPage(ctx, query.Articles, query.DefaultOptions().WithSort("nope", query.Asc))
	var rerr *remote.Error
	require.ErrorAs(t, err, &rerr)
	assert.True(t, errors.Is(err, remote.ErrValidation))
	assert.Equal(t, http.StatusBadRequest, rerr.Status)
}

func TestServer_Run(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, err)
	defer store.Close()

	s := New(store, config.ServerConfig{Addr: "127.0.0.1:0", Mode: gin.TestMode})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
