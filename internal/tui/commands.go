package tui

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/folio/internal/browse"
	"github.com/pders01/folio/internal/debounce"
	"github.com/pders01/folio/internal/query"
	"github.com/pders01/folio/internal/storage"
)

const (
	fetchTimeout  = 15 * time.Second
	lookupTimeout = 5 * time.Second
)

// fetchPage runs req off the event loop; the result comes back as a pageMsg
// and is committed by Apply only if req is still the latest request.
func fetchPage[T any](c *browse.Controller[T], req browse.Request) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		return pageMsg[T]{resp: c.Fetch(ctx, req)}
	}
}

func scheduleSearch(wait time.Duration, token debounce.Token) tea.Cmd {
	return tea.Tick(wait, func(time.Time) tea.Msg { return searchTickMsg{token: token} })
}

func scheduleKeywordLookup(wait time.Duration, kind query.Kind, token debounce.Token) tea.Cmd {
	return tea.Tick(wait, func(time.Time) tea.Msg { return keywordTickMsg{kind: kind, token: token} })
}

func (a *App) lookupKeywords(kind query.Kind, token debounce.Token, fragment string) tea.Cmd {
	lookup := a.backend.Keywords
	return func() tea.Msg {
		if lookup == nil {
			return keywordsFoundMsg{kind: kind, token: token}
		}
		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		defer cancel()
		found, err := lookup.SimilarKeywords(ctx, fragment)
		return keywordsFoundMsg{kind: kind, token: token, found: found, err: err}
	}
}

// resolveKeyword looks word up before it is picked, so a known keyword typed
// in full is selected rather than minted.
func (a *App) resolveKeyword(kind query.Kind, word string) tea.Cmd {
	lookup := a.backend.Keywords
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		defer cancel()
		found, err := lookup.SimilarKeywords(ctx, word)
		if err != nil {
			return keywordResolvedMsg{kind: kind, word: word, err: err}
		}
		return keywordResolvedMsg{kind: kind, word: word, known: slices.Contains(found, word)}
	}
}

func (a *App) renderRecord(rec query.Fielder) tea.Cmd {
	id := recordID(rec)
	markdown := recordMarkdown(rec, a.config.UI.Reader.MaxDescriptionLength)
	r, err := a.getRenderer()
	return func() tea.Msg {
		if err != nil {
			return recordRenderedMsg{id: id, content: "Error initializing renderer: " + err.Error()}
		}
		rendered, err := r.Render(markdown)
		if err != nil {
			return recordRenderedMsg{id: id, content: fmt.Sprintf("# Error\n\nFailed to render: %s\n\nPress Escape to go back.", err)}
		}
		return recordRenderedMsg{id: id, content: rendered}
	}
}

func (a *App) openURL(link string) tea.Cmd {
	launcher := a.launcher
	return func() tea.Msg {
		if err := launcher.Open(link); err != nil {
			return errorMsg{err: wrapErr("open", err)}
		}
		return openedMsg{url: link}
	}
}

// recordLink is the page "open" shows for rec: the article's own link when it
// came from a feed, otherwise its page on the web front end.
func recordLink(rec query.Fielder, webURL string) (string, bool) {
	base := strings.TrimRight(webURL, "/")
	switch r := rec.(type) {
	case storage.Article:
		if r.URL != "" {
			return r.URL, true
		}
		if base == "" || r.Chapter == "" {
			return "", false
		}
		return base + "/chapter/" + url.PathEscape(r.Chapter) + "/" + url.PathEscape(r.ID), true
	case storage.Chapter:
		if base == "" {
			return "", false
		}
		return base + "/chapter/" + url.PathEscape(r.ID), true
	}
	return "", false
}

func recordID(rec query.Fielder) string {
	values, _ := rec.Field("id")
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func recordMarkdown(rec query.Fielder, maxDescription int) string {
	var b strings.Builder
	switch r := rec.(type) {
	case storage.Article:
		fmt.Fprintf(&b, "# %s\n\n", r.Title)
		writeMeta(&b, r.User, r.Created, r.Likes, r.Views)
		writeKeywords(&b, r.Keywords)
		if desc := r.Description; desc != "" {
			if maxDescription > 0 {
				desc = truncateEnd(desc, maxDescription)
			}
			fmt.Fprintf(&b, "> %s\n\n", desc)
		}
		b.WriteString("---\n\n")
		if r.Content != "" {
			b.WriteString(r.Content)
		} else {
			b.WriteString(r.Description)
		}
	case storage.Chapter:
		fmt.Fprintf(&b, "# %s\n\n", r.Title)
		writeMeta(&b, r.User, r.Created, r.Likes, r.Views)
		writeKeywords(&b, r.Keywords)
		b.WriteString("---\n\n")
		if r.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", r.Description)
		}
		fmt.Fprintf(&b, "**%d articles**\n", len(r.Articles))
	}
	return b.String()
}

func writeMeta(b *strings.Builder, user string, created time.Time, likes, views int) {
	var parts []string
	if user != "" {
		parts = append(parts, user)
	}
	if !created.IsZero() {
		parts = append(parts, created.Format("Jan 2, 2006"))
	}
	parts = append(parts, fmt.Sprintf("%d likes", likes), fmt.Sprintf("%d views", views))
	fmt.Fprintf(b, "*%s*\n\n", strings.Join(parts, " • "))
}

func writeKeywords(b *strings.Builder, words []string) {
	if len(words) == 0 {
		return
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = "`" + w + "`"
	}
	fmt.Fprintf(b, "%s\n\n", strings.Join(quoted, " "))
}
