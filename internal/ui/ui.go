package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/courier/internal/api"
	"github.com/five82/courier/internal/jobs"
	"github.com/five82/courier/internal/logtail"
	"github.com/five82/courier/internal/state"
)

// Navigator moves between screens.
type Navigator interface {
	Navigate(ctx context.Context, to state.Screen) error
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
}

// JobControl drives the job tracker.
type JobControl interface {
	Submit(ctx context.Context, creator api.JobCreator, req api.JobRequest) (api.Job, error)
	Cancel(ctx context.Context) error
	Retry(ctx context.Context) error
	Dismiss()
}

// Reloader refreshes the order and vehicle lists.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Storage persists UI preferences.
type Storage interface {
	Read(namespace string) ([]byte, error)
	Write(namespace string, blob []byte) error
}

var _ JobControl = (*jobs.Tracker)(nil)

const (
	prefsNamespace = "ui"
	logTailLines   = 200
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     *state.Store
	Navigator Navigator
	Jobs      JobControl
	Creator   api.JobCreator
	Data      Reloader
	Prefs     Storage // nil disables theme persistence
	BranchID  int64
	LogFile   string
}

type uiPrefs struct {
	Theme string `toml:"theme"`
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx      context.Context
	store    *state.Store
	nav      Navigator
	jobs     JobControl
	creator  api.JobCreator
	data     Reloader
	prefs    Storage
	branchID int64
	logFile  string

	keys  keyMap
	help  help.Model
	theme Theme

	width    int
	height   int
	ready    bool
	showHelp bool
	cursor   int

	searching bool
	search    textinput.Model
	importIn  textinput.Model

	progress progress.Model
	job      *api.Job
	solution *api.Solution

	flash   string
	lastErr error

	logs     []logtail.Entry
	logLevel slog.Level
}

// New creates the root model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	search := textinput.New()
	search.Placeholder = "code, customer or address"
	search.Prompt = "/ "
	search.CharLimit = 80

	importIn := textinput.New()
	importIn.Placeholder = "ORD-001, ORD-002"
	importIn.Prompt = "> "

	m := Model{
		ctx:      ctx,
		store:    opts.Store,
		nav:      opts.Navigator,
		jobs:     opts.Jobs,
		creator:  opts.Creator,
		data:     opts.Data,
		prefs:    opts.Prefs,
		branchID: opts.BranchID,
		logFile:  opts.LogFile,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		theme:    GetTheme(""),
		search:   search,
		importIn: importIn,
		progress: progress.New(progress.WithDefaultGradient()),
		logLevel: slog.LevelInfo,
	}
	m.theme = GetTheme(m.loadTheme())
	return m
}

func (m Model) loadTheme() string {
	if m.prefs == nil {
		return ""
	}
	blob, err := m.prefs.Read(prefsNamespace)
	if err != nil || len(blob) == 0 {
		return ""
	}
	var p uiPrefs
	if err := toml.Unmarshal(blob, &p); err != nil {
		return ""
	}
	return p.Theme
}

func (m Model) saveTheme() {
	if m.prefs == nil {
		return
	}
	blob, err := toml.Marshal(uiPrefs{Theme: m.theme.Name})
	if err == nil {
		err = m.prefs.Write(prefsNamespace, blob)
	}
	if err != nil {
		slog.Warn("save ui preferences failed", slog.Any("error", err))
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.EnterAltScreen}
	if m.store != nil && m.store.CurrentScreen() == state.ScreenSettings {
		cmds = append(cmds, m.loadLogsCmd())
	}
	return tea.Batch(cmds...)
}

type (
	actionDoneMsg struct {
		action string
		err    error
	}
	logsMsg struct {
		entries []logtail.Entry
		err     error
	}
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(msg.Width/2, 10)
		m.ready = true
		return m, nil

	case jobMsg:
		job := api.Job(msg)
		m.job = &job
		m.lastErr = nil
		return m, m.progress.SetPercent(float64(job.Progress) / 100)

	case progress.FrameMsg:
		model, cmd := m.progress.Update(msg)
		if p, ok := model.(progress.Model); ok {
			m.progress = p
		}
		return m, cmd

	case solutionMsg:
		sol := api.Solution(msg)
		m.solution = &sol
		m.flash = fmt.Sprintf("Solution %d ready: %d routes, %d stops", sol.ID, len(sol.Routes), sol.StopCount())
		m.navigate(state.ScreenRoutes)
		return m, nil

	case errorMsg:
		m.lastErr = msg.err
		return m, nil

	case modalMsg:
		return m.openModal(string(msg))

	case storeMsg:
		if state.Key(msg) == state.KeyCurrentScreen {
			m.cursor = 0
			if m.store.CurrentScreen() == state.ScreenSettings {
				return m, m.loadLogsCmd()
			}
		}
		m.clampCursor()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.lastErr = fmt.Errorf("%s: %w", msg.action, msg.err)
		} else {
			m.flash = msg.action + " done"
		}
		return m, nil

	case logsMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.logs = msg.entries
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if modal := m.store.ActiveModal(); modal != "" {
		return m.renderModal(modal)
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if modal := m.store.ActiveModal(); modal != "" {
		return m.handleModalKey(modal, msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.saveTheme()
		return m, nil
	case key.Matches(msg, m.keys.NextScreen):
		m.report(m.nav.Next(m.ctx))
		return m, nil
	case key.Matches(msg, m.keys.PrevScreen):
		m.report(m.nav.Prev(m.ctx))
		return m, nil
	case key.Matches(msg, m.keys.ToggleSidebar):
		m.store.ToggleSidebar()
		return m, nil
	case key.Matches(msg, m.keys.Logout):
		m.jobs.Dismiss()
		m.store.Reset()
		m.job, m.solution, m.lastErr = nil, nil, nil
		m.flash = "Logged out; dashboard state cleared"
		return m, nil
	case key.Matches(msg, m.keys.Escape):
		m.flash, m.lastErr = "", nil
		return m, nil
	case key.Matches(msg, m.keys.Import):
		return m.openModal(state.ModalImport)
	case key.Matches(msg, m.keys.Plan):
		return m.openModal(state.ModalRoutePlanning)
	case key.Matches(msg, m.keys.Cancel):
		return m, m.actionCmd("cancel job", m.jobs.Cancel)
	case key.Matches(msg, m.keys.Retry):
		return m, m.actionCmd("retry solution", m.jobs.Retry)
	case key.Matches(msg, m.keys.Dismiss):
		m.jobs.Dismiss()
		m.job = nil
		m.lastErr = nil
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		if m.store.CurrentScreen() == state.ScreenSettings {
			return m, m.loadLogsCmd()
		}
		return m, m.actionCmd("reload", m.data.Reload)
	}

	if screen, ok := screenForKey(msg.String()); ok {
		m.navigate(screen)
		return m, nil
	}

	switch m.store.CurrentScreen() {
	case state.ScreenOrders:
		return m.handleOrdersKey(msg)
	case state.ScreenFleet:
		return m.handleFleetKey(msg)
	case state.ScreenSettings:
		if key.Matches(msg, m.keys.LogLevel) {
			m.logLevel = nextLogLevel(m.logLevel)
			return m, m.loadLogsCmd()
		}
	}
	return m, nil
}

func screenForKey(k string) (state.Screen, bool) {
	screens := state.Screens()
	if len(k) == 1 && k[0] >= '1' && int(k[0]-'1') < len(screens) {
		return screens[k[0]-'1'], true
	}
	return "", false
}

func (m *Model) navigate(screen state.Screen) {
	m.report(m.nav.Navigate(m.ctx, screen))
}

func (m *Model) report(err error) {
	if err != nil {
		m.lastErr = err
	}
}

func (m Model) handleOrdersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	orders := m.store.FilteredOrders()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.cursor = min(m.cursor+1, max(len(orders)-1, 0))
	case key.Matches(msg, m.keys.Toggle):
		if m.cursor < len(orders) {
			m.store.ToggleOrder(orders[m.cursor].ID)
		}
	case key.Matches(msg, m.keys.SelectAll):
		ids := make([]int64, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		m.store.SelectOrders(ids)
	case key.Matches(msg, m.keys.Clear):
		m.store.ClearOrderSelection()
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(m.store.Filters().Search)
		m.search.CursorEnd()
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Status):
		m.store.SetFilters(state.FilterPatch{Status: state.String(nextStatus(m.store.Filters().Status))})
	case key.Matches(msg, m.keys.Priority):
		m.store.SetFilters(state.FilterPatch{Priority: state.String(nextPriority(m.store.Filters().Priority))})
	case key.Matches(msg, m.keys.PrevDay):
		m.shiftDate(-1)
	case key.Matches(msg, m.keys.NextDay):
		m.shiftDate(1)
	}
	return m, nil
}

func (m Model) handleFleetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	vehicles := m.store.Vehicles()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.cursor = min(m.cursor+1, max(len(vehicles)-1, 0))
	case key.Matches(msg, m.keys.Toggle):
		if m.cursor < len(vehicles) {
			m.store.ToggleVehicle(vehicles[m.cursor].ID)
		}
	case key.Matches(msg, m.keys.Clear):
		m.store.ClearVehicleSelection()
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		m.store.SetFilters(state.FilterPatch{Search: state.String(strings.TrimSpace(m.search.Value()))})
		m.cursor = 0
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m *Model) shiftDate(days int) {
	current, err := time.Parse(state.DateLayout, m.store.Filters().Date)
	if err != nil {
		current = time.Now()
	}
	next := current.AddDate(0, 0, days).Format(state.DateLayout)
	m.store.SetFilters(state.FilterPatch{Date: state.String(next)})
	m.cursor = 0
}

func (m *Model) clampCursor() {
	var n int
	switch m.store.CurrentScreen() {
	case state.ScreenOrders:
		n = len(m.store.FilteredOrders())
	case state.ScreenFleet:
		n = len(m.store.Vehicles())
	}
	m.cursor = max(min(m.cursor, n-1), 0)
}

func (m Model) actionCmd(action string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

func (m Model) loadLogsCmd() tea.Cmd {
	path, filter := m.logFile, logtail.Filter{MinLevel: m.logLevel}
	return func() tea.Msg {
		entries, err := logtail.Tail(path, logTailLines, filter)
		return logsMsg{entries: entries, err: err}
	}
}

var statusCycle = []string{"", api.OrderPending, api.OrderAssigned, api.OrderInTransit, api.OrderCompleted, api.OrderFailed, api.OrderCancelled}

var priorityCycle = []string{"", "high", "medium", "low"}

func nextStatus(current string) string   { return cycle(statusCycle, current) }
func nextPriority(current string) string { return cycle(priorityCycle, current) }

func nextLogLevel(l slog.Level) slog.Level {
	switch {
	case l < slog.LevelInfo:
		return slog.LevelInfo
	case l < slog.LevelWarn:
		return slog.LevelWarn
	case l < slog.LevelError:
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

func cycle(values []string, current string) string {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}
