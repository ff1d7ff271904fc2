// Package tui is the terminal browser: a sortable, pageable table of
// articles or chapters with debounced search, a keyword filter picker and a
// markdown reader.
package tui

import (
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/folio/internal/browse"
	"github.com/pders01/folio/internal/config"
	"github.com/pders01/folio/internal/debounce"
	"github.com/pders01/folio/internal/keywords"
	"github.com/pders01/folio/internal/media"
	"github.com/pders01/folio/internal/query"
	"github.com/pders01/folio/internal/storage"
)

// Backend is what the browser reads from. Keywords may be nil, which
// disables keyword suggestions but not filtering.
type Backend struct {
	Articles browse.Fetcher[storage.Article]
	Chapters browse.Fetcher[storage.Chapter]
	Keywords keywords.Lookup
}

// pager is the kind-independent part of a controller.
type pager interface {
	Kind() query.Kind
	Options() query.Options
	SetSort(field string) browse.Request
	SetFilter(clauses ...string) browse.Request
	SetSearch(text string) browse.Request
	SetPage(n int) (browse.Request, error)
	SetPageSize(n int) (browse.Request, error)
	Refresh() browse.Request
}

type App struct {
	config     *config.Config
	backend    Backend
	catalog    *browse.Catalog
	launcher   *media.Launcher
	keyHandler *KeyHandler
	help       help.Model
	entry      browse.Entry

	kind     query.Kind
	articles *browse.Controller[storage.Article]
	chapters *browse.Controller[storage.Chapter]
	cursor   int

	view          View
	searchInput   textinput.Model
	search        debounce.Value
	keywordInput  textinput.Model
	keywordSets   map[query.Kind]*keywords.Set
	keywordCursor int
	viewport      viewport.Model
	current       query.Fielder

	status     string
	statusKind StatusKind

	width           int
	height          int
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

// NewApp builds the browser opened at entry.
func NewApp(backend Backend, cfg *config.Config, entry browse.Entry) *App {
	ApplyTheme(cfg.UI.Colors)
	catalog := browse.DefaultCatalog()

	if entry.Kind == "" {
		entry.Kind = query.Articles
		if k, err := query.ParseKind(cfg.Browse.DefaultKind); err == nil {
			entry.Kind = k
		}
	}

	si := textinput.New()
	si.Placeholder = "Search titles and descriptions..."
	si.Prompt = "/ "
	si.CharLimit = 256
	si.SetValue(entry.Search)

	ki := textinput.New()
	ki.Placeholder = "Type a keyword..."
	ki.Prompt = "# "
	ki.CharLimit = 64

	a := &App{
		config:   cfg,
		backend:  backend,
		catalog:  catalog,
		launcher: media.NewLauncher(cfg),
		help:     help.New(),
		entry:    entry,
		kind:     entry.Kind,
		articles: browse.NewController(query.Articles, backend.Articles,
			catalog.Options(query.Articles, cfg.Browse.PageSize), catalog.Articles.SearchFields...),
		chapters: browse.NewController(query.Chapters, backend.Chapters,
			catalog.Options(query.Chapters, cfg.Browse.PageSize), catalog.Chapters.SearchFields...),
		view:         ViewBrowse,
		searchInput:  si,
		search:       debounce.NewValue(entry.Search),
		keywordInput: ki,
		keywordSets: map[query.Kind]*keywords.Set{
			query.Articles: keywords.NewSet(cfg.Keywords.Max),
			query.Chapters: keywords.NewSet(cfg.Keywords.Max),
		},
		keywordCursor: -1,
		viewport:      viewport.New(0, 0),
	}
	a.keyHandler = NewKeyHandler(a, cfg)
	return a
}

func (a *App) Init() tea.Cmd {
	first := a.entry.Seed(a.active())
	var second browse.Request
	if a.kind == query.Articles {
		second = a.chapters.Refresh()
	} else {
		second = a.articles.Refresh()
	}
	return tea.Batch(tea.EnterAltScreen, a.run(first), a.run(second))
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 3
		a.help.Width = max(msg.Width-statusBadgeWidth, 0)
		inputWidth := msg.Width - 8
		if inputWidth < 20 {
			inputWidth = msg.Width
		}
		a.searchInput.Width = inputWidth
		a.keywordInput.Width = inputWidth

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case pageMsg[storage.Article]:
		if a.articles.Apply(msg.resp) {
			a.afterApply(query.Articles, msg.resp.Err)
		}

	case pageMsg[storage.Chapter]:
		if a.chapters.Apply(msg.resp) {
			a.afterApply(query.Chapters, msg.resp.Err)
		}

	case searchTickMsg:
		if a.search.Settle(msg.token) {
			return a, a.applySearch(a.search.Committed())
		}

	case keywordTickMsg:
		if text, ok := a.keywordSets[msg.kind].Settle(msg.token); ok {
			return a, a.lookupKeywords(msg.kind, msg.token, text)
		}

	case keywordsFoundMsg:
		set := a.keywordSets[msg.kind]
		if set.ApplyCandidates(msg.token, msg.found, msg.err) {
			if msg.err != nil {
				a.setStatus(describeError(wrapErr("keyword lookup", msg.err)), StatusError)
			}
			a.keywordCursor = -1
			if len(set.Candidates()) > 0 {
				a.keywordCursor = 0
			}
		}

	case keywordResolvedMsg:
		return a, a.finishKeyword(msg)

	case recordRenderedMsg:
		if a.view == ViewReader && a.current != nil && recordID(a.current) == msg.id {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.clearStatus()
		}

	case openedMsg:
		a.setStatus(MsgOpened(truncateMiddle(msg.url, 60)), StatusSuccess)

	case errorMsg:
		a.setStatus(describeError(msg.err), StatusError)

	case tea.MouseMsg:
		if a.view == ViewReader {
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			return a, cmd
		}
	}

	return a, nil
}

// Kind is the kind currently shown.
func (a *App) Kind() query.Kind { return a.kind }

func (a *App) active() pager {
	if a.kind == query.Chapters {
		return a.chapters
	}
	return a.articles
}

func (a *App) state() tableState {
	if a.kind == query.Chapters {
		return snapshot(a.chapters)
	}
	return snapshot(a.articles)
}

func (a *App) keywordSet() *keywords.Set { return a.keywordSets[a.kind] }

// run dispatches req to the controller that issued it.
func (a *App) run(req browse.Request) tea.Cmd {
	if req.Kind == query.Chapters {
		return fetchPage(a.chapters, req)
	}
	return fetchPage(a.articles, req)
}

func (a *App) afterApply(kind query.Kind, err error) {
	if kind != a.kind {
		return
	}
	a.moveCursor(0)
	if err != nil {
		a.setStatus(describeError(err), StatusError)
		return
	}
	if a.statusKind == StatusError || a.status == MsgRefreshing {
		a.clearStatus()
	}
}

func (a *App) onSearchInput(text string) tea.Cmd {
	if text == a.search.Raw() {
		return nil
	}
	token := a.search.Input(text)
	return scheduleSearch(a.config.Browse.Debounce, token)
}

// commitSearch applies text right away, dropping any pending debounce.
func (a *App) commitSearch(text string) tea.Cmd {
	a.search.Reset(text)
	a.searchInput.SetValue(text)
	return a.applySearch(text)
}

func (a *App) applySearch(text string) tea.Cmd {
	a.cursor = 0
	return a.run(a.active().SetSearch(text))
}

func (a *App) switchKind() tea.Cmd {
	a.kind = a.kind.Next()
	a.cursor = 0
	st := a.state()
	a.search.Reset(st.search)
	a.searchInput.SetValue(st.search)
	a.clearStatus()
	if !st.loading && !st.loaded {
		return a.run(a.active().Refresh())
	}
	return nil
}

func (a *App) nextSort() tea.Cmd {
	fields := a.catalog.SortableFields(a.kind)
	if len(fields) == 0 {
		return nil
	}
	next := fields[0]
	current := a.active().Options().SortField
	for i, f := range fields {
		if f == current {
			next = fields[(i+1)%len(fields)]
			break
		}
	}
	a.cursor = 0
	req := a.active().SetSort(next)
	a.setStatus(MsgSortedBy(req.Options.SortField, req.Options.SortDirection), StatusInfo)
	return a.run(req)
}

// flipSort sorts by the current field again, which flips the direction.
func (a *App) flipSort() tea.Cmd {
	field := a.active().Options().SortField
	if field == "" {
		return a.nextSort()
	}
	a.cursor = 0
	req := a.active().SetSort(field)
	a.setStatus(MsgSortedBy(req.Options.SortField, req.Options.SortDirection), StatusInfo)
	return a.run(req)
}

func (a *App) changePage(delta int) tea.Cmd {
	st := a.state()
	n := st.opts.Page + delta
	if n < 1 {
		a.setStatus(MsgFirstPage, StatusWarn)
		return nil
	}
	if delta > 0 && n > max(st.totalPages, 1) {
		a.setStatus(MsgLastPage, StatusWarn)
		return nil
	}
	req, err := a.active().SetPage(n)
	if err != nil {
		a.setStatus(describeError(err), StatusError)
		return nil
	}
	a.cursor = 0
	return a.run(req)
}

func (a *App) changePageSize(delta int) tea.Cmd {
	req, err := a.active().SetPageSize(a.active().Options().PageSize + delta)
	if err != nil {
		a.setStatus(describeError(err), StatusError)
		return nil
	}
	a.cursor = 0
	return a.run(req)
}

// clearQuery drops search and keyword filter; nil when neither is set.
func (a *App) clearQuery() tea.Cmd {
	st := a.state()
	if st.search == "" && len(st.filters) == 0 {
		return nil
	}
	set := a.keywordSet()
	for _, w := range set.Selected() {
		set.Deselect(w)
	}
	a.search.Reset("")
	a.searchInput.Reset()
	a.cursor = 0
	a.active().SetFilter()
	return a.run(a.active().SetSearch(""))
}

func (a *App) enterKeywords() tea.Cmd {
	a.view = ViewKeywords
	a.keywordInput.Reset()
	a.keywordCursor = -1
	return a.keywordInput.Focus()
}

func (a *App) onKeywordInput(text string) tea.Cmd {
	set := a.keywordSet()
	token, schedule := set.OnInputChange(text)
	a.keywordCursor = -1
	switch {
	case text != "" && set.Full():
		a.setStatus(MsgKeywordsFull, StatusWarn)
	case !set.Valid():
		a.setStatus(MsgInvalidKeyword, StatusWarn)
	default:
		a.clearStatus()
	}
	if !schedule {
		return nil
	}
	return scheduleKeywordLookup(a.config.Keywords.Debounce, a.kind, token)
}

func (a *App) moveKeywordCursor(delta int) {
	n := len(a.keywordSet().Candidates())
	a.keywordCursor += delta
	if a.keywordCursor < -1 {
		a.keywordCursor = -1
	}
	if a.keywordCursor > n-1 {
		a.keywordCursor = n - 1
	}
}

// pickKeyword selects the highlighted suggestion, or the typed word when no
// suggestion is highlighted, and refilters.
func (a *App) pickKeyword() tea.Cmd {
	set := a.keywordSet()
	candidates := set.Candidates()
	switch {
	case a.keywordCursor >= 0 && a.keywordCursor < len(candidates):
		if !set.Select(candidates[a.keywordCursor]) {
			a.setStatus(MsgKeywordsFull, StatusWarn)
			return nil
		}
	default:
		raw := strings.TrimSpace(a.keywordInput.Value())
		if raw == "" {
			return nil
		}
		if slices.Contains(candidates, raw) {
			set.Select(raw)
			break
		}
		if a.backend.Keywords != nil && set.Valid() && keywords.ValidWord(raw) && !set.Contains(raw) && !set.Full() {
			return a.resolveKeyword(a.kind, raw)
		}
		if err := set.CreateNew(raw); err != nil {
			a.setStatus(describeError(err), StatusWarn)
			return nil
		}
	}
	return a.keywordPicked()
}

// finishKeyword picks a word resolved by resolveKeyword. It is dropped when
// the kind or the typed text changed while the lookup ran.
func (a *App) finishKeyword(msg keywordResolvedMsg) tea.Cmd {
	if msg.kind != a.kind || strings.TrimSpace(a.keywordInput.Value()) != msg.word {
		return nil
	}
	set := a.keywordSet()
	switch {
	case msg.err != nil:
		a.setStatus(describeError(wrapErr("keyword lookup", msg.err)), StatusError)
		return nil
	case msg.known:
		if !set.Select(msg.word) {
			a.setStatus(MsgKeywordsFull, StatusWarn)
			return nil
		}
	default:
		if err := set.CreateNew(msg.word); err != nil {
			a.setStatus(describeError(err), StatusWarn)
			return nil
		}
	}
	return a.keywordPicked()
}

func (a *App) keywordPicked() tea.Cmd {
	a.keywordInput.Reset()
	a.keywordSet().OnInputChange("")
	a.keywordCursor = -1
	return a.applyKeywordFilter()
}

func (a *App) dropLastKeyword() tea.Cmd {
	set := a.keywordSet()
	selected := set.Selected()
	if len(selected) == 0 {
		return nil
	}
	set.Deselect(selected[len(selected)-1])
	return a.applyKeywordFilter()
}

func (a *App) applyKeywordFilter() tea.Cmd {
	selected := a.keywordSet().Selected()
	clauses := make([]string, len(selected))
	for i, w := range selected {
		clauses[i] = query.Eq("keywords", w)
	}
	a.cursor = 0
	return a.run(a.active().SetFilter(clauses...))
}

func (a *App) selected() (query.Fielder, bool) {
	rows := a.state().rows
	if a.cursor < 0 || a.cursor >= len(rows) {
		return nil, false
	}
	return rows[a.cursor], true
}

func (a *App) moveCursor(delta int) {
	n := len(a.state().rows)
	a.cursor += delta
	if a.cursor > n-1 {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) openReader(rec query.Fielder) tea.Cmd {
	a.current = rec
	a.view = ViewReader
	a.viewport.SetContent("")
	a.setStatus(MsgRendering, StatusInfo)
	return a.renderRecord(rec)
}

func (a *App) openRecord(rec query.Fielder) tea.Cmd {
	link, ok := recordLink(rec, a.config.UI.WebURL)
	if !ok {
		a.setStatus(MsgNoLink, StatusWarn)
		return nil
	}
	return a.openURL(link)
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

func (a *App) clearStatus() {
	a.status = ""
	a.statusKind = StatusInfo
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	reader := a.config.UI.Reader
	wordWrapWidth := (a.width * 9) / 10
	if reader.WordWrapMaxWidth > 0 && wordWrapWidth > reader.WordWrapMaxWidth {
		wordWrapWidth = reader.WordWrapMaxWidth
	}
	if wordWrapWidth < reader.WordWrapMinWidth {
		wordWrapWidth = reader.WordWrapMinWidth
	}
	if a.width > 0 && a.width < 50 {
		wordWrapWidth = max(a.width-4, 20)
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) View() string {
	var content string
	bodyHeight := a.height - 3

	switch a.view {
	case ViewReader:
		content = a.viewport.View()
	case ViewKeywords:
		content = a.keywordsView()
	default:
		content = a.browseView(bodyHeight)
	}

	separatorWidth := max(a.width-2, 0)
	separator := SeparatorStyle.Render("─" + strings.Repeat("─", separatorWidth))
	return lipgloss.JoinVertical(lipgloss.Top, content, separator, a.statusBar())
}

func (a *App) browseView(height int) string {
	st := a.state()

	subtitle := MsgPosition(st.kind, st.opts.Page, st.totalPages, st.totalItems) +
		" • " + MsgSortedBy(st.opts.SortField, st.opts.SortDirection) +
		" • " + strconv.Itoa(st.opts.PageSize) + " per page"
	if st.loading {
		subtitle += " • " + MsgLoading
	}
	rows := []string{renderHeader("› "+st.kind.Label(), subtitle, a.width)}

	if a.view == ViewSearch || st.search != "" {
		rows = append(rows, renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width))
	}
	if selected := a.keywordSet().Selected(); len(selected) > 0 {
		rows = append(rows, renderMuted("keywords ")+renderChips(selected, a.keywordSet().IsMinted))
	}
	rows = append(rows, "")

	switch {
	case st.empty && st.search == "" && len(st.filters) == 0 && st.opts.Page == 1:
		rows = append(rows, renderCentered(a.width, max(height-len(rows), 1), GetWelcomeMessage()))
	case st.empty:
		rows = append(rows, renderCentered(a.width, max(height-len(rows), 1), renderMuted(MsgNoResults)))
	case !st.loaded && st.loading:
		rows = append(rows, renderCentered(a.width, max(height-len(rows), 1), renderMuted(MsgLoading)))
	default:
		rows = append(rows, renderTable(a.catalog.Layout(st.kind), st, a.cursor, a.width))
	}

	return ContentWrapper(a.width, max(height, 1)).Render(lipgloss.JoinVertical(lipgloss.Top, rows...))
}

func (a *App) keywordsView() string {
	set := a.keywordSet()
	rows := []string{
		renderHeader("› keywords", "filter "+a.kind.Label()+" by up to "+strconv.Itoa(set.Max())+" keywords", a.width),
		"",
	}
	if selected := set.Selected(); len(selected) > 0 {
		rows = append(rows, renderChips(selected, set.IsMinted), "")
	}
	rows = append(rows, renderInputFrame(a.keywordInput.View(), a.keywordInput.Focused(), a.keywordInput.Width))
	if !set.Valid() {
		rows = append(rows, ErrorMessageStyle.Render(MsgInvalidKeyword))
	}
	if set.Fetching() {
		rows = append(rows, renderMuted(MsgLoading))
	}
	for i, c := range set.Candidates() {
		line := "  " + c
		if i == a.keywordCursor {
			line = SelectedRowStyle.Render("› " + c)
		}
		rows = append(rows, line)
	}
	return ContentWrapper(a.width, max(a.height-3, 1)).Render(lipgloss.JoinVertical(lipgloss.Top, rows...))
}

func (a *App) statusBar() string {
	if a.status != "" {
		style := StatusInfoStyle
		prefix := ""
		switch a.statusKind {
		case StatusSuccess:
			style = StatusSuccessStyle
			prefix = "✓ "
		case StatusWarn:
			style = StatusWarnStyle
		case StatusError:
			style = StatusErrorStyle
			prefix = "✗ "
		}
		return StatusBarStyle.Width(a.width).Render(style.Render(prefix + a.status))
	}
	badge := TitleStyle.Render(a.view.String())
	help := a.help.View(a.keyHandler.GetHelpForCurrentView())
	return StatusBarStyle.Width(a.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, badge, " ", help))
}
