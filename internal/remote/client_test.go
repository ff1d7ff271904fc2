package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/folio/internal/query"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	require.NoError(t, err)
	return c
}

func TestNew_ValidatesBaseURL(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("ftp://backend")
	assert.Error(t, err)

	c, err := New("http://127.0.0.1:8090/")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8090", c.BaseURL())
}

func TestFetchPage_SendsQueryAndDecodes(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/collections/articles_stats/records", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "5", q.Get("perPage"))
		assert.Equal(t, "+title", q.Get("sort"))
		assert.Equal(t, `visibility="public"`, q.Get("filter"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"page":2,"perPage":5,"totalItems":7,"totalPages":2,
			"items":[{"id":"a6","title":"Vectors","keywords":["algebra"]},{"id":"a7","title":"Zeros"}]}`)
	})

	opts := query.DefaultOptions().WithSort("title", query.Asc).WithFilter(query.Eq("visibility", "public")).WithPage(2)
	page, err := c.Articles().FetchPage(context.Background(), query.Articles, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 7, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Vectors", page.Items[0].Title)
	assert.Equal(t, []string{"algebra"}, page.Items[0].Keywords)
}

func TestFetchPage_EmptyItems(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"page":3,"perPage":10,"totalItems":23,"totalPages":3,"items":null}`)
	})

	page, err := c.Chapters().FetchPage(context.Background(), query.Chapters, query.DefaultOptions().WithPage(3))
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestFetchPage_ErrorClasses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		class   error
		message string
	}{
		{"bad filter", http.StatusBadRequest, `{"code":400,"message":"Something went wrong while processing your request.","data":{"filter":"invalid"}}`, ErrValidation, "Something went wrong"},
		{"missing collection", http.StatusNotFound, `{"code":404,"message":"Missing collection context.","data":{}}`, ErrNotFound, "Missing collection"},
		{"server down", http.StatusBadGateway, `upstream gone`, ErrNetwork, "Bad Gateway"},
		{"forbidden", http.StatusForbidden, `{"code":403,"message":"Only admins can perform this action.","data":{}}`, ErrValidation, "Only admins"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			_, err := c.Articles().FetchPage(context.Background(), query.Articles, query.DefaultOptions())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.class), "got %v", err)

			var rerr *Error
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, tt.status, rerr.Status)
			assert.Contains(t, rerr.Message, tt.message)
		})
	}
}

func TestFetchPage_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := New(srv.URL)
	require.NoError(t, err)
	srv.Close()

	_, err = c.Articles().FetchPage(context.Background(), query.Articles, query.DefaultOptions())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestFetchPage_CancelledContext(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Articles().FetchPage(ctx, query.Articles, query.DefaultOptions())
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchPage_MalformedBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[`)
	})
	_, err := c.Articles().FetchPage(context.Background(), query.Articles, query.DefaultOptions())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestFetchPage_ValidationNeverHitsNetwork(t *testing.T) {
	calls := 0
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"items":[]}`)
	})

	_, err := c.Articles().FetchPage(context.Background(), query.Articles, query.DefaultOptions().WithPage(0))
	assert.ErrorIs(t, err, ErrValidation)
	var verr *query.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = c.Articles().FetchPage(context.Background(), query.Chapters, query.DefaultOptions())
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, calls)
}

func TestResourceGet(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/collections/chapters_stats/records/c1":
			fmt.Fprint(w, `{"id":"c1","title":"Calculus","articles":["a1","a2"]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"code":404,"message":"The requested resource wasn't found.","data":{}}`)
		}
	})

	ch, err := c.Chapters().Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Calculus", ch.Title)
	assert.Equal(t, []string{"a1", "a2"}, ch.Articles)

	_, err = c.Chapters().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSimilarKeywords(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/collections/key_words/records", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, `word~"alg"`, q.Get("filter"))
		assert.Equal(t, "+word", q.Get("sort"))
		assert.Equal(t, "10", q.Get("perPage"))
		fmt.Fprint(w, `{"page":1,"perPage":10,"totalItems":2,"totalPages":1,
			"items":[{"id":"k1","word":"algebra"},{"id":"k2","word":"algebra-2"}]}`)
	})

	words, err := c.SimilarKeywords(context.Background(), "alg")
	require.NoError(t, err)
	assert.Equal(t, []string{"algebra", "algebra-2"}, words)
}

func TestNewResource(t *testing.T) {
	c, err := New("http://localhost:8090")
	require.NoError(t, err)

	_, err = NewResource[map[string]any](c, query.Kind("users"))
	assert.Error(t, err)

	r, err := NewResource[map[string]any](c, query.Chapters)
	require.NoError(t, err)
	assert.Equal(t, ChaptersCollection, r.collection)
}

func TestHealth(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		fmt.Fprint(w, `{"code":200,"message":"API is healthy."}`)
	})
	assert.NoError(t, c.Health(context.Background()))
}
