package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/folio/internal/config"
)

// keyMap holds the configurable bindings plus the fixed navigation keys.
type keyMap struct {
	Quit         key.Binding
	ForceQuit    key.Binding
	Search       key.Binding
	SwitchKind   key.Binding
	NextSort     key.Binding
	FlipSort     key.Binding
	NextPage     key.Binding
	PrevPage     key.Binding
	PageSizeUp   key.Binding
	PageSizeDown key.Binding
	Keywords     key.Binding
	Open         key.Binding
	Refresh      key.Binding
	Back         key.Binding
	Help         key.Binding
	Up           key.Binding
	Down         key.Binding
	Select       key.Binding
	Remove       key.Binding
}

func newKeyMap(cfg config.KeyConfig) keyMap {
	b := cfg.Bindings
	bind := func(k, help string) key.Binding {
		return key.NewBinding(key.WithKeys(k), key.WithHelp(k, help))
	}
	forceQuit := cfg.Modifier + "+c"
	return keyMap{
		Quit:         bind(b.Quit, "quit"),
		ForceQuit:    key.NewBinding(key.WithKeys(forceQuit, "ctrl+c"), key.WithHelp(forceQuit, "quit")),
		Search:       bind(b.Search, "search"),
		SwitchKind:   bind(b.SwitchKind, "articles/chapters"),
		NextSort:     bind(b.NextSort, "sort column"),
		FlipSort:     bind(b.FlipSort, "sort direction"),
		NextPage:     bind(b.NextPage, "next page"),
		PrevPage:     bind(b.PrevPage, "prev page"),
		PageSizeUp:   bind(b.PageSizeUp, "more per page"),
		PageSizeDown: bind(b.PageSizeDown, "fewer per page"),
		Keywords:     bind(b.Keywords, "keywords"),
		Open:         bind(b.Open, "open in browser"),
		Refresh:      bind(b.Refresh, "refresh"),
		Back:         bind(b.Back, "back"),
		Help:         bind(b.Help, "help"),
		Up:           key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "up")),
		Down:         key.NewBinding(key.WithKeys("down", "j", "ctrl+n"), key.WithHelp("↓/j", "down")),
		Select:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Remove:       key.NewBinding(key.WithKeys("backspace"), key.WithHelp("⌫", "remove last")),
	}
}

// viewHelp adapts a set of bindings to help.KeyMap.
type viewHelp struct {
	short []key.Binding
	full  [][]key.Binding
}

func (h viewHelp) ShortHelp() []key.Binding  { return h.short }
func (h viewHelp) FullHelp() [][]key.Binding { return h.full }

type KeyHandler struct {
	app  *App
	keys keyMap
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	return &KeyHandler{app: app, keys: newKeyMap(cfg.Keys)}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, kh.keys.ForceQuit) {
		return kh.app, tea.Quit
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(msg); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewSearch:
		return kh.app.searchInput.Focused()
	case ViewKeywords:
		return kh.app.keywordInput.Focused()
	default:
		return false
	}
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	switch {
	case key.Matches(msg, kh.keys.Back):
		return kh.navigateBack()
	}

	switch a.view {
	case ViewSearch:
		switch {
		case key.Matches(msg, kh.keys.Select):
			a.searchInput.Blur()
			a.view = ViewBrowse
			return a, a.commitSearch(sanitizeSearchInput(a.searchInput.Value()))
		case msg.Type == tea.KeyDown:
			a.searchInput.Blur()
			a.view = ViewBrowse
			return a, nil
		}
	case ViewKeywords:
		switch {
		case key.Matches(msg, kh.keys.Select):
			return a, a.pickKeyword()
		case msg.Type == tea.KeyUp:
			a.moveKeywordCursor(-1)
			return a, nil
		case msg.Type == tea.KeyDown:
			a.moveKeywordCursor(1)
			return a, nil
		case key.Matches(msg, kh.keys.Remove) && a.keywordInput.Value() == "":
			return a, a.dropLastKeyword()
		}
	}

	return kh.delegateToTextInput(msg)
}

// delegateToTextInput passes the key to the focused input and schedules the
// debounced follow-up when the text changed.
func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	switch a.view {
	case ViewSearch:
		var cmd tea.Cmd
		a.searchInput, cmd = a.searchInput.Update(msg)
		return a, tea.Batch(cmd, a.onSearchInput(sanitizeSearchInput(a.searchInput.Value())))

	case ViewKeywords:
		prev := a.keywordInput.Value()
		var cmd tea.Cmd
		a.keywordInput, cmd = a.keywordInput.Update(msg)
		if a.keywordInput.Value() == prev {
			return a, cmd
		}
		return a, tea.Batch(cmd, a.onKeywordInput(a.keywordInput.Value()))

	default:
		return a, nil
	}
}

func (kh *KeyHandler) handleCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	switch {
	case key.Matches(msg, kh.keys.Quit):
		return a, tea.Quit, true
	case key.Matches(msg, kh.keys.Back):
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case key.Matches(msg, kh.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil, true
	}

	switch a.view {
	case ViewBrowse:
		return kh.handleBrowseCustomKeys(msg)
	case ViewReader:
		return kh.handleReaderCustomKeys(msg)
	default:
		return a, nil, false
	}
}

func (kh *KeyHandler) handleBrowseCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	switch {
	case key.Matches(msg, kh.keys.Search):
		a.view = ViewSearch
		a.searchInput.CursorEnd()
		return a, a.searchInput.Focus(), true
	case key.Matches(msg, kh.keys.Keywords):
		return a, a.enterKeywords(), true
	case key.Matches(msg, kh.keys.SwitchKind):
		return a, a.switchKind(), true
	case key.Matches(msg, kh.keys.NextSort):
		return a, a.nextSort(), true
	case key.Matches(msg, kh.keys.FlipSort):
		return a, a.flipSort(), true
	case key.Matches(msg, kh.keys.NextPage):
		return a, a.changePage(1), true
	case key.Matches(msg, kh.keys.PrevPage):
		return a, a.changePage(-1), true
	case key.Matches(msg, kh.keys.PageSizeUp):
		return a, a.changePageSize(1), true
	case key.Matches(msg, kh.keys.PageSizeDown):
		return a, a.changePageSize(-1), true
	case key.Matches(msg, kh.keys.Refresh):
		a.setStatus(MsgRefreshing, StatusInfo)
		return a, a.run(a.active().Refresh()), true
	case key.Matches(msg, kh.keys.Open):
		if rec, ok := a.selected(); ok {
			return a, a.openRecord(rec), true
		}
		return a, nil, true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleReaderCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	if key.Matches(msg, kh.keys.Open) && a.current != nil {
		return a, a.openRecord(a.current), true
	}
	return a, nil, false
}

// delegateToCharm handles navigation keys and lets the viewport scroll.
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	switch a.view {
	case ViewBrowse:
		switch {
		case key.Matches(msg, kh.keys.Up):
			a.moveCursor(-1)
		case key.Matches(msg, kh.keys.Down):
			a.moveCursor(1)
		case key.Matches(msg, kh.keys.Select):
			if rec, ok := a.selected(); ok {
				return a, a.openReader(rec)
			}
		}
		return a, nil

	case ViewReader:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd

	default:
		return a, nil
	}
}

// navigateBack leaves the current view. At the top level it clears an
// active search or keyword filter first and quits once nothing is left.
func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	a := kh.app
	switch a.view {
	case ViewSearch:
		a.searchInput.Blur()
		a.view = ViewBrowse
		return a, nil

	case ViewKeywords:
		a.keywordInput.Blur()
		a.keywordInput.Reset()
		a.keywordSet().OnInputChange("")
		a.view = ViewBrowse
		return a, nil

	case ViewReader:
		a.view = ViewBrowse
		a.current = nil
		return a, nil

	default:
		if cmd := a.clearQuery(); cmd != nil {
			return a, cmd
		}
		return a, tea.Quit
	}
}

// GetHelpForCurrentView returns the bindings worth showing in the status bar.
func (kh *KeyHandler) GetHelpForCurrentView() viewHelp {
	k := kh.keys
	switch kh.app.view {
	case ViewBrowse:
		return viewHelp{
			short: []key.Binding{k.Search, k.Keywords, k.SwitchKind, k.NextSort, k.NextPage, k.Help},
			full: [][]key.Binding{
				{k.Up, k.Down, k.Select, k.Open},
				{k.Search, k.Keywords, k.SwitchKind, k.Refresh},
				{k.NextSort, k.FlipSort, k.NextPage, k.PrevPage},
				{k.PageSizeUp, k.PageSizeDown, k.Back, k.Quit},
			},
		}
	case ViewSearch:
		bindings := []key.Binding{k.Select, k.Down, k.Back}
		return viewHelp{short: bindings, full: [][]key.Binding{bindings}}
	case ViewKeywords:
		bindings := []key.Binding{k.Up, k.Down, k.Select, k.Remove, k.Back}
		return viewHelp{short: bindings, full: [][]key.Binding{bindings}}
	case ViewReader:
		bindings := []key.Binding{k.Open, k.Back, k.Quit}
		return viewHelp{short: bindings, full: [][]key.Binding{bindings}}
	default:
		return viewHelp{}
	}
}

// sanitizeSearchInput sanitizes and limits search input length
func sanitizeSearchInput(input string) string {
	input = strings.TrimSpace(input)

	if len(input) > 256 {
		input = input[:256]
	}

	input = strings.ReplaceAll(input, "\n", " ")
	input = strings.ReplaceAll(input, "\r", " ")
	input = strings.ReplaceAll(input, "\t", " ")

	for strings.Contains(input, "  ") {
		input = strings.ReplaceAll(input, "  ", " ")
	}

	return strings.TrimSpace(input)
}
