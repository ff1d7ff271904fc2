package main

import (
	"errors"
	"fmt"

	"github.com/pders01/folio/internal/browse"
	"github.com/pders01/folio/internal/config"
	"github.com/pders01/folio/internal/keywords"
	"github.com/pders01/folio/internal/local"
	"github.com/pders01/folio/internal/remote"
	"github.com/pders01/folio/internal/storage"
	"github.com/pders01/folio/internal/tui"
)

var errNeedsLocal = errors.New("this command works on the local store; drop --backend or set backend.mode = \"local\"")

// sources is the backend a command reads from. local is nil in remote mode.
type sources struct {
	articles browse.Fetcher[storage.Article]
	chapters browse.Fetcher[storage.Chapter]
	keywords keywords.Lookup
	local    *local.Backend
}

func openSources(cfg *config.Config) (*sources, error) {
	if cfg.Backend.Mode == config.BackendRemote {
		client, err := remote.New(cfg.Backend.URL, remote.WithTimeout(cfg.Backend.Timeout))
		if err != nil {
			return nil, err
		}
		return &sources{articles: client.Articles(), chapters: client.Chapters(), keywords: client}, nil
	}

	b, err := openLocal(cfg)
	if err != nil {
		return nil, err
	}
	return &sources{articles: b.Articles(), chapters: b.Chapters(), keywords: b, local: b}, nil
}

func openLocal(cfg *config.Config) (*local.Backend, error) {
	if cfg.Backend.Mode == config.BackendRemote {
		return nil, errNeedsLocal
	}
	b, err := local.Open(cfg.Database.Path, cfg.Database.SearchIndex)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	return b, nil
}

func (s *sources) Backend() tui.Backend {
	return tui.Backend{Articles: s.articles, Chapters: s.chapters, Keywords: s.keywords}
}

func (s *sources) Close() error {
	if s.local == nil {
		return nil
	}
	return s.local.Close()
}
