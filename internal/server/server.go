// Package server exposes the local store over the same list API the remote
// backend speaks, so one folio instance can serve another.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pders01/folio/internal/config"
	"github.com/pders01/folio/internal/debuglog"
	"github.com/pders01/folio/internal/query"
	"github.com/pders01/folio/internal/remote"
	"github.com/pders01/folio/internal/storage"
)

// MaxPerPage bounds the perPage parameter.
const MaxPerPage = 500

const shutdownTimeout = 10 * time.Second

// collection serves one named collection of the store.
type collection struct {
	list func(query.Options) (any, error)
	view func(id string) (any, error)
}

type Server struct {
	store       *storage.Store
	router      *gin.Engine
	addr        string
	collections map[string]collection
}

func New(store *storage.Store, cfg config.ServerConfig) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		store: store,
		addr:  cfg.Addr,
	}
	s.collections = map[string]collection{
		remote.ArticlesCollection: {
			list: func(o query.Options) (any, error) { return store.ListArticles(o) },
			view: func(id string) (any, error) { return store.GetArticle(id) },
		},
		remote.ChaptersCollection: {
			list: func(o query.Options) (any, error) { return store.ListChapters(o) },
			view: func(id string) (any, error) { return store.GetChapter(id) },
		},
		remote.KeywordsCollection: {
			list: func(o query.Options) (any, error) { return store.ListKeywords(o) },
			view: func(id string) (any, error) { return store.GetKeyword(id) },
		},
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger())

	api := router.Group("/api")
	api.GET("/health", s.health)
	api.GET("/collections/:collection/records", s.listRecords)
	api.GET("/collections/:collection/records/:id", s.viewRecord)
	router.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "The requested resource wasn't found.", nil)
	})

	s.router = router
	return s
}

// Handler is the HTTP handler serving the API.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		debuglog.Infof("serving on http://%s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) health(c *gin.Context) {
	articles, chapters, keywords, err := s.store.Counts()
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "API is healthy.",
		"data": gin.H{
			"articles": articles,
			"chapters": chapters,
			"keywords": keywords,
		},
	})
}

func (s *Server) listRecords(c *gin.Context) {
	coll, ok := s.lookup(c)
	if !ok {
		return
	}
	defaults := query.Options{Page: 1, PageSize: 30}
	opts, err := query.FromParams(c.Request.URL.Query(), defaults)
	if err == nil && opts.PageSize > MaxPerPage {
		err = &query.ValidationError{Field: "perPage", Value: c.Query("perPage"), Reason: "must be <= 500"}
	}
	if err != nil {
		writeStoreError(c, err)
		return
	}
	page, err := coll.list(opts)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) viewRecord(c *gin.Context) {
	coll, ok := s.lookup(c)
	if !ok {
		return
	}
	rec, err := coll.view(c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) lookup(c *gin.Context) (collection, bool) {
	coll, ok := s.collections[c.Param("collection")]
	if !ok {
		writeError(c, http.StatusNotFound, "Missing collection context.", nil)
	}
	return coll, ok
}
