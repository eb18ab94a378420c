package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/cpsync/internal/device"
	"github.com/five82/cpsync/internal/logging"
	"github.com/five82/cpsync/internal/logtail"
	"github.com/five82/cpsync/internal/prefs"
	"github.com/five82/cpsync/internal/queue"
	"github.com/five82/cpsync/internal/state"
	"github.com/five82/cpsync/internal/syncer"
)

// View represents the current active view.
type View int

const (
	ViewConnect View = iota
	ViewQueue
	ViewProgress
	ViewHistory
	ViewLogs
)

// Controller is the part of the cpsync controller the UI drives.
type Controller interface {
	Snapshot() state.Snapshot
	Queue() []queue.Entry
	Connect(ctx context.Context, address string) device.ProbeResult
	AddPaths(paths ...string) (int, error)
	RemoveAt(index int) bool
	ClearQueue()
	Sync(ctx context.Context) (syncer.Pass, error)
}

// Start is the address the connect view opens with. Connect starts a probe
// right away instead of waiting for the user.
type Start struct {
	Address string
	Connect bool
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Controller Controller
	// Changes wakes the UI when the controller publishes an event.
	Changes   <-chan struct{}
	Start     Start
	PollTick  time.Duration
	ThemeName string
	PrefsPath string
	LogPath   string
	Logger    *zap.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	ctrl      Controller
	changes   <-chan struct{}
	prefsPath string
	logPath   string
	logger    *zap.Logger
	pollTick  time.Duration
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	returnView  View // where esc leaves the log view to
	width       int
	height      int
	ready       bool
	showHelp    bool

	// Data state
	snapshot    state.Snapshot
	entries     []queue.Entry
	seen        bool
	lastState   state.ConnState
	lastUpdated time.Time

	// Queue state
	selectedRow int
	adding      bool
	pathInput   textinput.Model

	// Connect state
	addressInput textinput.Model
	connecting   bool

	notice      string
	noticeError bool

	progress progress.Model
	logLines []string
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}
	theme := GetTheme(themeName)

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	address := textinput.New()
	address.Prompt = "Address: "
	address.Placeholder = "192.168.4.1"
	address.CharLimit = 256
	address.SetValue(strings.TrimSpace(opts.Start.Address))
	address.Focus()

	path := textinput.New()
	path.Prompt = "File: "
	path.Placeholder = "~/Books/*.epub"
	path.CharLimit = 4096

	return Model{
		ctx:          ctx,
		ctrl:         opts.Controller,
		changes:      opts.Changes,
		prefsPath:    prefsPath,
		logPath:      opts.LogPath,
		logger:       logging.OrNop(opts.Logger),
		pollTick:     pollTick,
		keys:         DefaultKeyMap(),
		theme:        theme,
		currentView:  ViewConnect,
		addressInput: address,
		pathInput:    path,
		connecting:   opts.Start.Connect && address.Value() != "",
		progress:     newProgressBar(theme, 40),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		textinput.Blink,
		tickCmd(m.pollTick),
		fetchSnapshotCmd(m.ctrl),
		waitForChangeCmd(m.changes),
	}
	// A device link connects without waiting for enter.
	if m.connecting {
		cmds = append(cmds, connectCmd(m.ctx, m.ctrl, m.addressInput.Value()))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.progress.Width = progressWidth(msg.Width)
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(m.pollTick), fetchSnapshotCmd(m.ctrl)}
		if m.currentView == ViewLogs {
			cmds = append(cmds, readLogsCmd(m.logPath, m.logLimit()))
		}
		return m, tea.Batch(cmds...)

	case changeMsg:
		return m, tea.Batch(fetchSnapshotCmd(m.ctrl), waitForChangeCmd(m.changes))

	case snapshotMsg:
		m.applySnapshot(msg.snapshot, msg.entries)
		return m, nil

	case connectResultMsg:
		m.connecting = false
		if msg.result.Connected() {
			m.addressInput.Blur()
			m.currentView = ViewQueue
			m.setNotice("", false)
		}
		return m, fetchSnapshotCmd(m.ctrl)

	case syncDoneMsg:
		switch {
		case msg.err == nil:
			m.setNotice("", false)
			m.show(ViewHistory)
		case errors.Is(msg.err, syncer.ErrNotConnected):
			m.setNotice("Device not connected", true)
		case errors.Is(msg.err, syncer.ErrSyncInProgress):
			m.setNotice("A sync is already running", false)
		case errors.Is(msg.err, syncer.ErrQueueEmpty):
			m.setNotice("Nothing queued", false)
		default:
			m.setNotice(msg.err.Error(), true)
		}
		return m, fetchSnapshotCmd(m.ctrl)

	case addResultMsg:
		switch {
		case msg.err != nil && msg.added == 0:
			m.setNotice(msg.err.Error(), true)
		case msg.err != nil:
			m.setNotice(fmt.Sprintf("Added %d, some files were skipped", msg.added), true)
		default:
			m.setNotice(fmt.Sprintf("Added %d %s", msg.added, plural(msg.added, "file", "files")), false)
		}
		return m, fetchSnapshotCmd(m.ctrl)

	case logsMsg:
		m.logLines = msg.lines
		return m, nil
	}

	// Cursor blink and other input internals.
	var cmd tea.Cmd
	switch {
	case m.currentView == ViewConnect:
		m.addressInput, cmd = m.addressInput.Update(msg)
	case m.adding:
		m.pathInput, cmd = m.pathInput.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// applySnapshot stores fresh controller state and moves between views when
// a pass starts or finishes, or the device comes back.
func (m *Model) applySnapshot(snap state.Snapshot, entries []queue.Entry) {
	prev, seen := m.snapshot, m.seen
	m.snapshot = snap
	m.entries = entries
	m.seen = true
	m.lastUpdated = time.Now()
	m.clampSelection()

	reconnected := m.lastState != state.Connected && snap.Connection.State == state.Connected
	m.lastState = snap.Connection.State

	finished := !snap.Syncing && snap.PassID != "" &&
		(prev.Syncing || (seen && snap.PassID != prev.PassID))
	switch {
	case snap.Syncing:
		m.show(ViewProgress)
	case finished:
		m.show(ViewHistory)
	case reconnected && m.currentView == ViewConnect && !m.connecting:
		m.addressInput.Blur()
		m.currentView = ViewQueue
	}
}

// show switches to v, or queues it behind the log view.
func (m *Model) show(v View) {
	if m.currentView == ViewLogs {
		m.returnView = v
		return
	}
	if m.currentView == ViewConnect {
		m.addressInput.Blur()
	}
	m.currentView = v
}

func (m *Model) setNotice(text string, isError bool) {
	m.notice = text
	m.noticeError = isError
}

func (m *Model) clampSelection() {
	if m.selectedRow >= len(m.entries) {
		m.selectedRow = len(m.entries) - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Text inputs take every other key.
	if m.currentView == ViewConnect {
		return m.handleConnectKey(msg)
	}
	if m.adding {
		return m.handleAddKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		if m.currentView != ViewLogs {
			m.returnView = m.currentView
			m.currentView = ViewLogs
		}
		return m, readLogsCmd(m.logPath, m.logLimit())

	case key.Matches(msg, m.keys.Escape):
		if m.currentView == ViewLogs {
			m.currentView = m.returnView
		}
		return m, nil
	}

	switch m.currentView {
	case ViewQueue:
		return m.handleQueueKey(msg)
	case ViewHistory:
		return m.handleHistoryKey(msg)
	}
	return m, nil
}

func (m Model) handleConnectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		address := strings.TrimSpace(m.addressInput.Value())
		if address == "" || m.connecting {
			return m, nil
		}
		m.connecting = true
		m.setNotice("", false)
		return m, connectCmd(m.ctx, m.ctrl, address)

	case tea.KeyEsc:
		if m.snapshot.Connection.State == state.Connected {
			m.addressInput.Blur()
			m.currentView = ViewQueue
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.addressInput, cmd = m.addressInput.Update(msg)
	return m, cmd
}

func (m Model) handleAddKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		input := strings.TrimSpace(m.pathInput.Value())
		m.adding = false
		m.pathInput.Blur()
		if input == "" {
			return m, nil
		}
		return m, addCmd(m.ctrl, expandPaths(input))

	case tea.KeyEsc:
		m.adding = false
		m.pathInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m Model) handleQueueKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < len(m.entries)-1 {
			m.selectedRow++
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = max(len(m.entries)-1, 0)

	case key.Matches(msg, m.keys.AddFile):
		m.adding = true
		m.pathInput.SetValue("")
		return m, m.pathInput.Focus()

	case key.Matches(msg, m.keys.Remove):
		if len(m.entries) == 0 {
			return m, nil
		}
		m.ctrl.RemoveAt(m.selectedRow)
		return m, fetchSnapshotCmd(m.ctrl)

	case key.Matches(msg, m.keys.Clear):
		m.ctrl.ClearQueue()
		m.selectedRow = 0
		return m, fetchSnapshotCmd(m.ctrl)

	case key.Matches(msg, m.keys.Sync):
		return m, syncCmd(m.ctx, m.ctrl)

	case key.Matches(msg, m.keys.ViewConnect):
		m.currentView = ViewConnect
		return m, m.addressInput.Focus()
	}
	return m, nil
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.NewSync):
		m.setNotice("", false)
		m.currentView = ViewQueue
	case key.Matches(msg, m.keys.ViewConnect):
		m.currentView = ViewConnect
		return m, m.addressInput.Focus()
	}
	return m, nil
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	m.progress = newProgressBar(m.theme, m.progress.Width)
	if m.prefsPath == "" {
		return
	}
	name := m.theme.Name
	if err := prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name }); err != nil {
		m.logger.Warn("save theme preference", zap.Error(err))
	}
}

// logLimit is how many log lines fit under the header.
func (m Model) logLimit() int {
	return max(m.height-5, 10)
}

func newProgressBar(t Theme, width int) progress.Model {
	bar := progress.New(progress.WithGradient(t.Accent, t.Success))
	bar.Width = width
	return bar
}

func progressWidth(termWidth int) int {
	return min(max(termWidth-12, 10), 60)
}

// expandPaths resolves ~ and glob patterns. A pattern that matches nothing
// is passed through so the controller reports it.
func expandPaths(input string) []string {
	if input == "~" || strings.HasPrefix(input, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			input = filepath.Join(home, strings.TrimPrefix(input, "~"))
		}
	}
	if strings.ContainsAny(input, "*?[") {
		if matches, err := filepath.Glob(input); err == nil && len(matches) > 0 {
			return matches
		}
	}
	return []string{input}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Messages

type tickMsg time.Time

type changeMsg struct{}

type snapshotMsg struct {
	snapshot state.Snapshot
	entries  []queue.Entry
}

type connectResultMsg struct {
	result device.ProbeResult
}

type syncDoneMsg struct {
	pass syncer.Pass
	err  error
}

type addResultMsg struct {
	added int
	err   error
}

type logsMsg struct {
	lines []string
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(ctrl Controller) tea.Cmd {
	if ctrl == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg{snapshot: ctrl.Snapshot(), entries: ctrl.Queue()}
	}
}

func waitForChangeCmd(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changeMsg{}
	}
}

func connectCmd(ctx context.Context, ctrl Controller, address string) tea.Cmd {
	return func() tea.Msg {
		return connectResultMsg{result: ctrl.Connect(ctx, address)}
	}
}

func syncCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		pass, err := ctrl.Sync(ctx)
		return syncDoneMsg{pass: pass, err: err}
	}
}

func addCmd(ctrl Controller, paths []string) tea.Cmd {
	return func() tea.Msg {
		added, err := ctrl.AddPaths(paths...)
		return addResultMsg{added: added, err: err}
	}
}

func readLogsCmd(path string, limit int) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, limit)
		if err != nil {
			lines = []string{"cannot read log: " + err.Error()}
		}
		return logsMsg{lines: lines}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	if opts.Controller == nil {
		return errors.New("ui: controller is required")
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
