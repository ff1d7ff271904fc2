package tui

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/folio/internal/browse"
	"github.com/pders01/folio/internal/config"
	"github.com/pders01/folio/internal/query"
	"github.com/pders01/folio/internal/remote"
	"github.com/pders01/folio/internal/storage"
)

type listable interface {
	query.Fielder
	Key() string
}

// memFetcher serves a fixed collection through the store's list semantics.
type memFetcher[T listable] struct {
	items []T
	err   error
	calls int
}

func (m *memFetcher[T]) FetchPage(_ context.Context, _ query.Kind, opts query.Options) (*query.Page[T], error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return storage.List(m.items, opts)
}

type stubLookup []string

func (s stubLookup) SimilarKeywords(_ context.Context, fragment string) ([]string, error) {
	var out []string
	for _, w := range s {
		if strings.HasPrefix(w, fragment) {
			out = append(out, w)
		}
	}
	return out, nil
}

func testArticles() []storage.Article {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := []struct {
		title    string
		keywords []string
	}{
		{"Limits", []string{"calculo"}},
		{"Derivatives", []string{"calculo"}},
		{"Integrals", []string{"calculo", "math"}},
		{"Vectors", []string{"algebra", "algebra-linear"}},
		{"Matrices", []string{"algebra"}},
		{"Eigenvalues", []string{"algebra-linear"}},
		{"Draft notes", nil},
	}
	out := make([]storage.Article, len(rows))
	for i, r := range rows {
		created := base.AddDate(0, 0, i)
		out[i] = storage.Article{
			ID:          "article00000000" + string(rune('a'+i)),
			Title:       r.title,
			Description: r.title + " explained",
			Chapter:     "chapter00000001",
			Visibility:  storage.VisibilityPublic,
			Keywords:    r.keywords,
			Likes:       i,
			Created:     created,
			Updated:     created,
		}
	}
	return out
}

func testChapters() []storage.Chapter {
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	return []storage.Chapter{
		{ID: "chapter00000001", Title: "Calculus I", Visibility: storage.VisibilityPublic, Created: created, Updated: created},
		{ID: "chapter00000002", Title: "Linear Algebra", Visibility: storage.VisibilityPublic, Created: created.Add(time.Hour), Updated: created.Add(time.Hour)},
	}
}

func newTestApp(t *testing.T) (*App, *memFetcher[storage.Article], *memFetcher[storage.Chapter]) {
	t.Helper()
	articles := &memFetcher[storage.Article]{items: testArticles()}
	chapters := &memFetcher[storage.Chapter]{items: testChapters()}
	backend := Backend{
		Articles: articles,
		Chapters: chapters,
		Keywords: stubLookup{"algebra", "algebra-linear", "calculo", "math"},
	}
	a := NewApp(backend, config.TestConfig(), browse.Entry{Kind: query.Articles})
	a.searchInput.Cursor.SetMode(cursor.CursorStatic)
	a.keywordInput.Cursor.SetMode(cursor.CursorStatic)
	a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	settle(t, a, a.Init())
	return a, articles, chapters
}

// settle runs cmd and feeds every app message it produces back into Update
// until nothing is left.
func settle(t *testing.T, a *App, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			settle(t, a, c)
		}
	case pageMsg[storage.Article], pageMsg[storage.Chapter], searchTickMsg, keywordTickMsg,
		keywordsFoundMsg, keywordResolvedMsg, recordRenderedMsg, openedMsg, errorMsg:
		_, next := a.Update(msg)
		settle(t, a, next)
	}
}

func press(t *testing.T, a *App, k string) tea.Cmd {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		msg = tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := a.Update(msg)
	return cmd
}

func typeText(t *testing.T, a *App, text string) []tea.Cmd {
	t.Helper()
	var cmds []tea.Cmd
	for _, r := range text {
		cmds = append(cmds, press(t, a, string(r)))
	}
	return cmds
}

func titles(st tableState) []string {
	out := make([]string, len(st.rows))
	for i, r := range st.rows {
		v, _ := r.Field("title")
		out[i] = v[0]
	}
	return out
}

func sortedTitles(st tableState) []string {
	out := titles(st)
	sort.Strings(out)
	return out
}

func TestInitLoadsBothKinds(t *testing.T) {
	a, articles, chapters := newTestApp(t)

	st := a.state()
	assert.Equal(t, query.Articles, st.kind)
	assert.Equal(t, 7, st.totalItems)
	assert.Equal(t, 2, st.totalPages)
	assert.Equal(t, []string{"Draft notes", "Eigenvalues", "Matrices", "Vectors", "Integrals"}, titles(st))
	assert.Equal(t, 1, articles.calls)
	assert.Equal(t, 1, chapters.calls)
	assert.True(t, a.chapters.State().Loaded)
}

func TestEntrySeedsSearch(t *testing.T) {
	articles := &memFetcher[storage.Article]{items: testArticles()}
	chapters := &memFetcher[storage.Chapter]{items: testChapters()}
	a := NewApp(Backend{Articles: articles, Chapters: chapters}, config.TestConfig(),
		browse.Entry{Kind: query.Chapters, Search: "linear"})
	settle(t, a, a.Init())

	st := a.state()
	assert.Equal(t, query.Chapters, a.Kind())
	assert.Equal(t, "linear", st.search)
	assert.Equal(t, []string{"Linear Algebra"}, titles(st))
	assert.Equal(t, "linear", a.searchInput.Value())
}

func TestViewStateTransitions(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		expected View
		check    func(*testing.T, *App)
	}{
		{name: "search opens", keys: []string{"/"}, expected: ViewSearch,
			check: func(t *testing.T, a *App) { assert.True(t, a.searchInput.Focused()) }},
		{name: "search closes on escape", keys: []string{"/", "esc"}, expected: ViewBrowse,
			check: func(t *testing.T, a *App) { assert.False(t, a.searchInput.Focused()) }},
		{name: "search closes on down", keys: []string{"/", "down"}, expected: ViewBrowse},
		{name: "keywords open", keys: []string{"k"}, expected: ViewKeywords,
			check: func(t *testing.T, a *App) { assert.True(t, a.keywordInput.Focused()) }},
		{name: "keywords close", keys: []string{"k", "esc"}, expected: ViewBrowse},
		{name: "reader opens on enter", keys: []string{"enter"}, expected: ViewReader,
			check: func(t *testing.T, a *App) {
				require.NotNil(t, a.current)
				assert.Equal(t, "article00000000g", recordID(a.current))
			}},
		{name: "reader closes", keys: []string{"down", "enter", "esc"}, expected: ViewBrowse,
			check: func(t *testing.T, a *App) { assert.Nil(t, a.current) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, _ := newTestApp(t)
			for _, k := range tt.keys {
				press(t, a, k)
			}
			assert.Equal(t, tt.expected, a.view)
			if tt.check != nil {
				tt.check(t, a)
			}
		})
	}
}

func TestCursorStaysInRange(t *testing.T) {
	a, _, _ := newTestApp(t)

	press(t, a, "up")
	assert.Equal(t, 0, a.cursor)
	for range 10 {
		press(t, a, "down")
	}
	assert.Equal(t, 4, a.cursor)

	rec, ok := a.selected()
	require.True(t, ok)
	title, _ := rec.Field("title")
	assert.Equal(t, []string{"Integrals"}, title)
}

func TestSortKeys(t *testing.T) {
	a, _, _ := newTestApp(t)

	settle(t, a, press(t, a, "s"))
	opts := a.active().Options()
	assert.Equal(t, "updated", opts.SortField)
	assert.Equal(t, query.Asc, opts.SortDirection)
	assert.Equal(t, "Limits", titles(a.state())[0])
	assert.Equal(t, MsgSortedBy("updated", query.Asc), a.status)

	settle(t, a, press(t, a, "S"))
	opts = a.active().Options()
	assert.Equal(t, "updated", opts.SortField)
	assert.Equal(t, query.Desc, opts.SortDirection)
	assert.Equal(t, "Draft notes", titles(a.state())[0])

	// Wraps around to the first sortable column.
	settle(t, a, press(t, a, "s"))
	assert.Equal(t, "title", a.active().Options().SortField)
	assert.Equal(t, "Derivatives", titles(a.state())[0])
}

func TestPageKeys(t *testing.T) {
	a, _, _ := newTestApp(t)

	settle(t, a, press(t, a, "right"))
	st := a.state()
	assert.Equal(t, 2, st.opts.Page)
	assert.Equal(t, []string{"Derivatives", "Limits"}, titles(st))

	assert.Nil(t, press(t, a, "right"))
	assert.Equal(t, MsgLastPage, a.status)
	assert.Equal(t, 2, a.state().opts.Page)

	settle(t, a, press(t, a, "left"))
	assert.Equal(t, 1, a.state().opts.Page)

	assert.Nil(t, press(t, a, "left"))
	assert.Equal(t, MsgFirstPage, a.status)
	assert.Equal(t, StatusWarn, a.statusKind)
}

func TestPageSizeKeys(t *testing.T) {
	a, _, _ := newTestApp(t)

	settle(t, a, press(t, a, "right"))
	settle(t, a, press(t, a, "+"))
	st := a.state()
	assert.Equal(t, 6, st.opts.PageSize)
	assert.Equal(t, 1, st.opts.Page)
	assert.Len(t, st.rows, 6)

	for range 5 {
		settle(t, a, press(t, a, "-"))
	}
	assert.Equal(t, 1, a.state().opts.PageSize)

	assert.Nil(t, press(t, a, "-"))
	assert.Equal(t, 1, a.state().opts.PageSize)
	assert.Equal(t, StatusError, a.statusKind)
	assert.Contains(t, a.status, "invalid")
}

func TestStalePageIsDiscarded(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()

	older := a.articles.SetSearch("lim")
	newer := a.articles.SetSearch("vec")
	newerResp := a.articles.Fetch(ctx, newer)
	olderResp := a.articles.Fetch(ctx, older)

	a.Update(pageMsg[storage.Article]{resp: newerResp})
	a.Update(pageMsg[storage.Article]{resp: olderResp})

	st := a.state()
	assert.False(t, st.loading)
	assert.Equal(t, []string{"Vectors"}, titles(st))
}

func TestSearchDebounce(t *testing.T) {
	a, articles, _ := newTestApp(t)
	press(t, a, "/")
	before := articles.calls

	cmds := typeText(t, a, "vec")
	assert.Equal(t, "vec", a.search.Raw())
	assert.Equal(t, "", a.state().search)

	for _, cmd := range cmds {
		settle(t, a, cmd)
	}
	assert.Equal(t, before+1, articles.calls)
	assert.Equal(t, "vec", a.state().search)
	assert.Equal(t, []string{"Vectors"}, titles(a.state()))
}

func TestSearchEnterCommits(t *testing.T) {
	a, _, _ := newTestApp(t)
	press(t, a, "/")
	typeText(t, a, "  matrices ")

	settle(t, a, press(t, a, "enter"))
	assert.Equal(t, ViewBrowse, a.view)
	assert.Equal(t, "matrices", a.state().search)
	assert.Equal(t, []string{"Matrices"}, titles(a.state()))
	assert.False(t, a.search.Pending())
}

func TestKeywordPickFiltersRows(t *testing.T) {
	a, _, _ := newTestApp(t)
	press(t, a, "k")

	for _, cmd := range typeText(t, a, "alg") {
		settle(t, a, cmd)
	}
	set := a.keywordSet()
	assert.Equal(t, []string{"algebra", "algebra-linear"}, set.Candidates())
	assert.Equal(t, 0, a.keywordCursor)

	press(t, a, "down")
	assert.Equal(t, 1, a.keywordCursor)
	settle(t, a, press(t, a, "enter"))

	assert.Equal(t, []string{"algebra-linear"}, set.Selected())
	assert.Equal(t, "", a.keywordInput.Value())
	st := a.state()
	assert.Equal(t, []string{query.Eq("keywords", "algebra-linear")}, st.filters)
	assert.Equal(t, []string{"Eigenvalues", "Vectors"}, titles(st))

	settle(t, a, press(t, a, "backspace"))
	assert.Empty(t, set.Selected())
	assert.Empty(t, a.state().filters)
	assert.Equal(t, 7, a.state().totalItems)
}

func TestKeywordCreateNew(t *testing.T) {
	a, _, _ := newTestApp(t)
	press(t, a, "k")
	for _, cmd := range typeText(t, a, "zz") {
		settle(t, a, cmd)
	}
	assert.Empty(t, a.keywordSet().Candidates())
	assert.Equal(t, -1, a.keywordCursor)

	settle(t, a, press(t, a, "enter"))
	assert.Equal(t, []string{"zz"}, a.keywordSet().Selected())
	assert.True(t, a.keywordSet().IsMinted("zz"))
	assert.True(t, a.state().empty)

	press(t, a, "esc")
	assert.Contains(t, a.View(), MsgNoResults)
}

func TestKeywordEnterBeforeLookupSelectsKnownWord(t *testing.T) {
	a, _, _ := newTestApp(t)
	press(t, a, "k")
	typeText(t, a, "calculo")
	require.Empty(t, a.keywordSet().Candidates())

	cmd := press(t, a, "enter")
	require.NotNil(t, cmd)
	assert.Empty(t, a.keywordSet().Selected())

	settle(t, a, cmd)
	set := a.keywordSet()
	assert.Equal(t, []string{"calculo"}, set.Selected())
	assert.False(t, set.IsMinted("calculo"))
	assert.Equal(t, "", a.keywordInput.Value())
	assert.Equal(t, []string{"Derivatives", "Integrals", "Limits"}, sortedTitles(a.state()))
}

func TestKeywordResolvedAfterInputChangedIsDropped(t *testing.T) {
	a, _, _ := newTestApp(t)
	press(t, a, "k")
	typeText(t, a, "math")

	cmd := press(t, a, "enter")
	require.NotNil(t, cmd)
	typeText(t, a, "s")

	settle(t, a, cmd)
	assert.Empty(t, a.keywordSet().Selected())
	assert.Equal(t, "maths", a.keywordInput.Value())
}

func TestKeywordInvalidInput(t *testing.T) {
	a, _, _ := newTestApp(t)
	press(t, a, "k")
	typeText(t, a, "Bad")

	assert.False(t, a.keywordSet().Valid())
	assert.Equal(t, MsgInvalidKeyword, a.status)

	assert.Nil(t, press(t, a, "enter"))
	assert.Empty(t, a.keywordSet().Selected())
	assert.Equal(t, StatusWarn, a.statusKind)
}

func TestKeywordsArePerKind(t *testing.T) {
	a, _, _ := newTestApp(t)
	press(t, a, "k")
	typeText(t, a, "math")
	press(t, a, "up")
	settle(t, a, press(t, a, "enter"))
	press(t, a, "esc")
	require.Equal(t, []string{"math"}, a.keywordSet().Selected())

	settle(t, a, press(t, a, "tab"))
	assert.Equal(t, query.Chapters, a.Kind())
	assert.Empty(t, a.keywordSet().Selected())
	assert.Empty(t, a.state().filters)
}

func TestSwitchKind(t *testing.T) {
	a, _, chapters := newTestApp(t)
	calls := chapters.calls

	assert.Nil(t, press(t, a, "tab"))
	assert.Equal(t, query.Chapters, a.Kind())
	assert.Equal(t, calls, chapters.calls)
	assert.Equal(t, []string{"Linear Algebra", "Calculus I"}, titles(a.state()))

	press(t, a, "tab")
	assert.Equal(t, query.Articles, a.Kind())
}

func TestBackClearsQueryBeforeQuitting(t *testing.T) {
	a, _, _ := newTestApp(t)
	settle(t, a, a.commitSearch("vec"))
	require.Equal(t, "vec", a.state().search)

	cmd := press(t, a, "esc")
	require.NotNil(t, cmd)
	settle(t, a, cmd)
	assert.Equal(t, "", a.state().search)
	assert.Equal(t, "", a.searchInput.Value())
	assert.Equal(t, 7, a.state().totalItems)

	cmd = press(t, a, "esc")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestFetchErrorKeepsRows(t *testing.T) {
	a, articles, _ := newTestApp(t)
	articles.err = &remote.Error{Op: "list articles_stats", Class: remote.ErrNetwork, Message: "connection refused"}

	settle(t, a, press(t, a, "r"))
	st := a.state()
	assert.Len(t, st.rows, 5)
	require.Error(t, st.err)
	assert.Equal(t, StatusError, a.statusKind)
	assert.Contains(t, a.status, "backend unreachable")

	articles.err = nil
	settle(t, a, press(t, a, "r"))
	assert.NoError(t, a.state().err)
	assert.Empty(t, a.status)
}

func TestReaderRendersRecord(t *testing.T) {
	a, _, _ := newTestApp(t)
	settle(t, a, press(t, a, "enter"))

	assert.Equal(t, ViewReader, a.view)
	assert.Empty(t, a.status)
	assert.Contains(t, a.viewport.View(), "Draft notes")
}

func TestOpenWithoutLink(t *testing.T) {
	a, _, _ := newTestApp(t)
	a.config.UI.WebURL = ""

	assert.Nil(t, press(t, a, "o"))
	assert.Equal(t, MsgNoLink, a.status)
}

func TestRecordLink(t *testing.T) {
	tests := []struct {
		name   string
		rec    query.Fielder
		webURL string
		want   string
		ok     bool
	}{
		{name: "feed article", rec: storage.Article{ID: "a1", URL: "https://example.com/post"}, want: "https://example.com/post", ok: true},
		{name: "article page", rec: storage.Article{ID: "a1", Chapter: "c1"}, webURL: "https://folio.example/", want: "https://folio.example/chapter/c1/a1", ok: true},
		{name: "article without front end", rec: storage.Article{ID: "a1", Chapter: "c1"}},
		{name: "article without chapter", rec: storage.Article{ID: "a1"}, webURL: "https://folio.example"},
		{name: "chapter page", rec: storage.Chapter{ID: "c1"}, webURL: "https://folio.example", want: "https://folio.example/chapter/c1", ok: true},
		{name: "chapter without front end", rec: storage.Chapter{ID: "c1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := recordLink(tt.rec, tt.webURL)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordMarkdown(t *testing.T) {
	article := storage.Article{
		Title:       "Vectors",
		Description: strings.Repeat("long ", 20),
		Content:     "Body text",
		User:        "ana",
		Keywords:    []string{"algebra"},
		Likes:       3,
		Created:     time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
	}

	md := recordMarkdown(article, 20)
	assert.Contains(t, md, "# Vectors")
	assert.Contains(t, md, "*ana • Mar 4, 2024 • 3 likes • 0 views*")
	assert.Contains(t, md, "`algebra`")
	assert.Contains(t, md, "Body text")
	assert.NotContains(t, md, article.Description)

	full := recordMarkdown(article, 0)
	assert.Contains(t, full, strings.TrimSpace(article.Description))

	chapter := storage.Chapter{Title: "Linear Algebra", Articles: []string{"a", "b"}}
	assert.Contains(t, recordMarkdown(chapter, 0), "**2 articles**")
}

func TestBrowseView(t *testing.T) {
	a, _, _ := newTestApp(t)

	out := a.View()
	assert.Contains(t, out, "articles")
	assert.Contains(t, out, "page 1/2 • 7 articles")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "Draft notes")
	assert.Contains(t, out, "  browse  ")
	assert.Contains(t, out, "2024-03-07")

	a.help.ShowAll = true
	assert.Contains(t, a.View(), "sort direction")
}

func TestWelcomeOnEmptyStore(t *testing.T) {
	a := NewApp(Backend{
		Articles: &memFetcher[storage.Article]{},
		Chapters: &memFetcher[storage.Chapter]{},
	}, config.TestConfig(), browse.Entry{})
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	settle(t, a, a.Init())

	assert.Equal(t, query.Articles, a.Kind())
	assert.Contains(t, a.View(), "folio seed")
}
