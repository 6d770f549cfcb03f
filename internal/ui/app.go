package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/popcorn/internal/events"
	"github.com/abelbrown/popcorn/internal/session"
)

// focus is the pane receiving keys.
type focus int

const (
	focusSearch focus = iota
	focusResults
	focusWatched
)

// Options configures the App beyond its session.
type Options struct {
	Events     *events.Logger // nil disables tracing
	Ring       *events.Ring   // nil disables the debug overlay
	MaxResults int            // rows shown in the result list, 0 for all
	ShowHelp   bool
}

// App is the root Bubble Tea model.
// IMPORTANT: App never runs a fetch itself. It hands session requests to
// Bubble Tea as commands and feeds their completions back to the session.
type App struct {
	sess   *session.Session
	events *events.Logger
	ring   *events.Ring

	input   textinput.Model
	spinner spinner.Model
	help    help.Model

	focus         focus
	cursor        int // results pane
	watchedCursor int
	maxResults    int

	// Most recent requests handed to the runtime. Only tests read them back,
	// to run a fetch by hand and feed its completion to Update.
	lastSearch *session.SearchRequest
	lastDetail *session.DetailRequest

	notice    string
	width     int
	height    int
	ready     bool
	showDebug bool
	quitting  bool
}

// NewApp creates an App driving sess.
func NewApp(sess *session.Session, opts Options) App {
	ti := textinput.New()
	ti.Placeholder = "Search movies..."
	ti.Prompt = "🔍 "
	ti.CharLimit = 120
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = StatusBarKey

	h := help.New()
	h.ShowAll = opts.ShowHelp

	return App{
		sess:       sess,
		events:     opts.Events,
		ring:       opts.Ring,
		input:      ti,
		spinner:    sp,
		help:       h,
		focus:      focusSearch,
		maxResults: opts.MaxResults,
	}
}

// Init starts the cursor blinking.
func (a App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if events.TraceEnabled() {
		a.events.Emit(events.Event{
			Level: events.LevelDebug, Kind: events.KindMsgReceived, Comp: "ui",
			Msg: fmt.Sprintf("%T", msg),
		})
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.help.Width = msg.Width
		a.input.Width = max(10, msg.Width/2-8)
		return a, nil

	case searchDoneMsg:
		if a.sess.ApplySearch(msg.done) {
			a.sess.ReconcileSelection()
			a.cursor = 0
		}
		return a, nil

	case detailDoneMsg:
		a.sess.ApplyDetail(msg.done)
		return a, nil

	case spinner.TickMsg:
		if !a.busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	if a.focus == focusSearch {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.notice = ""

	if msg.Type == tea.KeyCtrlC {
		return a.quit()
	}

	if a.showDebug {
		if key.Matches(msg, keys.Debug) || key.Matches(msg, keys.Close) {
			a.showDebug = false
		}
		return a, nil
	}

	if a.focus == focusSearch {
		return a.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return a.quit()

	case key.Matches(msg, keys.Search):
		// Jump to the search box with a fresh query.
		a.input.SetValue("")
		a.sess.SetQuery("")
		a.focus = focusSearch
		return a, a.input.Focus()

	case key.Matches(msg, keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil

	case key.Matches(msg, keys.Debug):
		if a.ring != nil {
			a.showDebug = true
		}
		return a, nil

	case key.Matches(msg, keys.Switch):
		if a.focus == focusResults {
			a.focus = focusWatched
		} else {
			a.focus = focusResults
		}
		return a, nil

	case key.Matches(msg, keys.Up):
		a.moveCursor(-1)
		return a, nil

	case key.Matches(msg, keys.Down):
		a.moveCursor(1)
		return a, nil

	case key.Matches(msg, keys.Open):
		return a.openUnderCursor()

	case key.Matches(msg, keys.Close):
		a.sess.CloseDetail()
		return a, nil

	case key.Matches(msg, keys.Rate):
		r, _ := ratingFor(msg.String())
		return a.rate(r)

	case key.Matches(msg, keys.Add):
		return a.addCurrent()

	case key.Matches(msg, keys.Delete):
		return a.deleteUnderCursor()
	}

	return a, nil
}

// handleSearchKey routes keys while the search box has focus. Everything not
// bound here is typed into the box.
func (a App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if a.sess.DetailOpen() {
			a.sess.CloseDetail()
			return a, nil
		}
		a.blurSearch()
		return a, nil
	case tea.KeyEnter, tea.KeyTab, tea.KeyDown:
		a.blurSearch()
		return a, nil
	}

	before := a.input.Value()
	var inputCmd tea.Cmd
	a.input, inputCmd = a.input.Update(msg)
	if a.input.Value() == before {
		return a, inputCmd
	}

	// Search as you type: every change supersedes the previous request.
	a.lastSearch = a.sess.SetQuery(a.input.Value())
	a.cursor = 0
	if a.lastSearch == nil {
		return a, inputCmd
	}
	return a, tea.Batch(inputCmd, searchCmd(a.lastSearch), a.spinner.Tick)
}

func (a *App) blurSearch() {
	a.input.Blur()
	a.focus = focusResults
}

func (a App) quit() (tea.Model, tea.Cmd) {
	a.sess.Close()
	a.quitting = true
	return a, tea.Quit
}

func (a *App) moveCursor(delta int) {
	switch a.focus {
	case focusResults:
		a.cursor = clamp(a.cursor+delta, 0, len(a.visibleResults())-1)
	case focusWatched:
		a.watchedCursor = clamp(a.watchedCursor+delta, 0, len(a.sess.Watched())-1)
	}
}

// openUnderCursor toggles the detail for the row under the cursor.
func (a App) openUnderCursor() (tea.Model, tea.Cmd) {
	var id string
	switch a.focus {
	case focusResults:
		results := a.visibleResults()
		if a.cursor >= len(results) {
			return a, nil
		}
		id = results[a.cursor].ID
	case focusWatched:
		watched := a.sess.Watched()
		if a.watchedCursor >= len(watched) {
			return a, nil
		}
		id = watched[a.watchedCursor].ID
	}

	a.lastDetail = a.sess.SelectMovie(id)
	if a.lastDetail == nil {
		return a, nil
	}
	return a, tea.Batch(detailCmd(a.lastDetail), a.spinner.Tick)
}

func (a App) rate(r float64) (tea.Model, tea.Cmd) {
	if !a.sess.DetailOpen() || a.sess.IsWatched(a.sess.SelectedID()) {
		return a, nil
	}
	if err := a.sess.SetRating(r); err != nil {
		a.notice = err.Error()
	}
	return a, nil
}

func (a App) addCurrent() (tea.Model, tea.Cmd) {
	if !a.sess.DetailOpen() {
		return a, nil
	}
	title := ""
	if d, ok := a.sess.Detail(); ok {
		title = d.Title
	}

	err := a.sess.AddCurrent()
	switch {
	case err == nil:
		a.notice = fmt.Sprintf("Added %s", title)
		a.watchedCursor = len(a.sess.Watched()) - 1
	case errors.Is(err, session.ErrInvalidRating):
		a.notice = "Rate it first (1-9, 0 for 10)"
	default:
		a.notice = err.Error()
	}
	return a, nil
}

func (a App) deleteUnderCursor() (tea.Model, tea.Cmd) {
	if a.focus != focusWatched {
		return a, nil
	}
	watched := a.sess.Watched()
	if a.watchedCursor >= len(watched) {
		return a, nil
	}
	w := watched[a.watchedCursor]
	if a.sess.DeleteWatched(w.ID) {
		a.notice = fmt.Sprintf("Removed %s", w.Title)
	}
	a.watchedCursor = clamp(a.watchedCursor, 0, len(a.sess.Watched())-1)
	return a, nil
}

// busy reports whether any request is outstanding.
func (a App) busy() bool {
	return a.sess.Loading() || a.sess.DetailLoading()
}

// visibleResults applies the MaxResults cap.
func (a App) visibleResults() []movieRow {
	results := a.sess.Results()
	if a.maxResults > 0 && len(results) > a.maxResults {
		results = results[:a.maxResults]
	}
	rows := make([]movieRow, len(results))
	for i, r := range results {
		rows[i] = movieRow{ID: r.ID, Title: r.Title, Year: r.Year}
	}
	return rows
}

// movieRow is one line of the results pane.
type movieRow struct {
	ID, Title, Year string
}

func searchCmd(req *session.SearchRequest) tea.Cmd {
	return func() tea.Msg {
		return searchDoneMsg{done: req.Run()}
	}
}

func detailCmd(req *session.DetailRequest) tea.Cmd {
	return func() tea.Msg {
		return detailDoneMsg{done: req.Run()}
	}
}

// View renders the UI.
func (a App) View() string {
	if a.quitting {
		return ""
	}
	if !a.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(a.renderHeader())
	b.WriteString("\n")

	if a.showDebug {
		b.WriteString(debugOverlay(a.ring, a.sess.Lanes(), a.width, a.height-2))
		b.WriteString("\n")
		b.WriteString(debugStatusBar(a.width))
		return b.String()
	}

	b.WriteString(a.renderPanes())
	b.WriteString("\n")
	b.WriteString(a.renderStatusBar())
	return b.String()
}

// Focus returns the focused pane (for testing).
func (a App) Focus() focus {
	return a.focus
}

// Session returns the driven session (for testing).
func (a App) Session() *session.Session {
	return a.sess
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
