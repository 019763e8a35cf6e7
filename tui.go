package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/cellbuf"
	"github.com/cursork/glimpsh/focus"
	"github.com/cursork/glimpsh/gaze"
	"github.com/cursork/glimpsh/logger"
	"github.com/cursork/glimpsh/metrics"
)

// Accent for focused borders and the palette prompt
var AccentColor = lipgloss.Color("63")

// Cursor style - inverted colors
var cursorStyle = lipgloss.NewStyle().
	Background(lipgloss.Color("255")).
	Foreground(lipgloss.Color("0"))

// colorEnabled is false on terminals without colour; focus then shows
// through border shape and bold alone.
var colorEnabled = true

func setColorProfile(p colorprofile.Profile) {
	colorEnabled = p > colorprofile.Ascii
}

func borderStyle(focused bool) lipgloss.Style {
	s := lipgloss.NewStyle()
	if !focused {
		return s
	}
	s = s.Bold(true)
	if colorEnabled {
		s = s.Foreground(AccentColor)
	}
	return s
}

// gazeEventKind says which client callback produced a gazeEvent.
type gazeEventKind int

const (
	gazeSampled gazeEventKind = iota
	gazeConnected
	gazeDisconnected
	gazeIdentified
	gazeStatus
	gazeFailed
)

// gazeEvent wraps callbacks from the gaze client goroutine.
type gazeEvent struct {
	kind   gazeEventKind
	sample gaze.Sample
	ident  gaze.ServerIdentity
	status string
	err    error
}

// gazeBridge hands client callbacks to the Update loop in order. Sends
// block until Update takes the event or the bridge is closed.
type gazeBridge struct {
	events chan gazeEvent
	done   chan struct{}
}

func newGazeBridge() *gazeBridge {
	return &gazeBridge{
		events: make(chan gazeEvent, 64),
		done:   make(chan struct{}),
	}
}

func (b *gazeBridge) send(ev gazeEvent) {
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// Handlers returns client handlers that feed the bridge.
func (b *gazeBridge) Handlers() gaze.Handlers {
	return gaze.Handlers{
		OnSample:     func(s gaze.Sample) { b.send(gazeEvent{kind: gazeSampled, sample: s}) },
		OnConnect:    func() { b.send(gazeEvent{kind: gazeConnected}) },
		OnDisconnect: func() { b.send(gazeEvent{kind: gazeDisconnected}) },
		OnIdentity:   func(id gaze.ServerIdentity) { b.send(gazeEvent{kind: gazeIdentified, ident: id}) },
		OnStatus:     func(s string) { b.send(gazeEvent{kind: gazeStatus, status: s}) },
		OnError:      func(err error) { b.send(gazeEvent{kind: gazeFailed, err: err}) },
	}
}

// Close releases any callback blocked in send. Call it once, after the
// program has stopped reading events.
func (b *gazeBridge) Close() {
	close(b.done)
}

// waitForGaze waits for the next gaze event.
func waitForGaze(ch <-chan gazeEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// ModelOptions wires a Model to its collaborators. Client, Mock and Events
// are nil when gaze is disabled.
type ModelOptions struct {
	Config  Config
	Keys    KeyMap
	Label   string
	Client  *gaze.Client
	Mock    *gaze.MockServer
	Events  <-chan gazeEvent
	Logger  logger.Logger
	Ring    *logger.Ring
	Metrics *metrics.Manager
	Version string
	Now     func() time.Time

	// ShowDebug opens the debug pane at startup.
	ShowDebug bool
}

// Model holds all state for the TUI.
type Model struct {
	log     logger.Logger
	ring    *logger.Ring
	version string
	now     func() time.Time

	// Focus
	grid   *PaneGrid
	engine *focus.Engine

	// Gaze
	client *gaze.Client
	mock   *gaze.MockServer
	events <-chan gazeEvent
	cursor *GazeCursor
	status statusInfo

	// Floating panes
	panes     *Overlays
	debugPane *DebugPane
	palette   *CommandPalette

	// Help
	help help.Model
	keys KeyMap

	// Terminal dimensions
	width  int
	height int
}

// NewModel builds the grid and its focus engine. The first pane starts
// focused so keys have somewhere to go before gaze arrives.
func NewModel(opts ModelOptions) (Model, error) {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ring := opts.Ring
	if ring == nil {
		ring = logger.NewRing(500)
	}

	grid, err := NewPaneGrid(cfg.Grid.Rows, cfg.Grid.Cols, opts.Label)
	if err != nil {
		return Model{}, fmt.Errorf("grid: %w", err)
	}

	focusLog := log.Named("focus")
	engine, err := focus.New(grid,
		focus.WithDwell(time.Duration(cfg.Gaze.DwellTimeMS)*time.Millisecond),
		focus.WithLogger(focusLog),
		focus.WithMetrics(opts.Metrics),
		focus.WithOnFocusChange(func(prev, next int) {
			focusLog.Info(context.Background(), "pane focused", logger.Int("pane", next+1))
		}),
	)
	if err != nil {
		return Model{}, fmt.Errorf("focus engine: %w", err)
	}
	engine.Focus(0)

	m := Model{
		log:     log,
		ring:    ring,
		version: opts.Version,
		now:     now,
		grid:    grid,
		engine:  engine,
		client:  opts.Client,
		mock:    opts.Mock,
		events:  opts.Events,
		cursor:  &GazeCursor{},
		panes:   NewOverlays(80, 24), // Will be updated on WindowSizeMsg
		help:    help.New(),
		keys:    opts.Keys,
		width:   80,
		height:  24,
	}
	m.status = statusInfo{
		Conn:      connDisabled,
		Focused:   engine.CurrentFocus(),
		Panes:     grid.PaneCount(),
		Candidate: focus.NoPane,
		Version:   opts.Version,
	}
	if m.client != nil {
		m.status.Conn = connConnecting
	}
	m.layout()
	if opts.ShowDebug {
		m.toggleDebugPane()
	}
	return m, nil
}

func (m Model) Init() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return tea.Batch(waitForGaze(m.events), cursorTick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.panes.Resize(msg.Width, msg.Height)
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case gazeEvent:
		m.handleGaze(msg)
		return m, waitForGaze(m.events)

	case cursorTickMsg:
		m.cursor.Advance()
		m.refreshProgress(m.now())
		return m, cursorTick()
	}
	return m, nil
}

// layout splits the screen: status bar on top, help at the bottom, the
// grid in between. Gaze space is the grid area in cells.
func (m *Model) layout() {
	gridH := max(m.height-1-m.helpHeight(), 1)
	m.grid.Layout(0, 1, m.width, gridH)
	m.engine.SetViewport(float64(m.width), float64(gridH))
	if m.mock != nil {
		m.mock.SetScreen(float64(m.width), float64(gridH))
	}
}

func (m *Model) helpHeight() int {
	if !m.help.ShowAll {
		return 1
	}
	m.help.Width = m.width
	return lipgloss.Height(m.help.View(m.keys))
}

func (m *Model) handleGaze(ev gazeEvent) {
	switch ev.kind {
	case gazeSampled:
		x0, y0, w, h := m.grid.Area()
		x, y := gaze.ToScreen(ev.sample, float64(w), float64(h))
		m.status.GazeX, m.status.GazeY = x, y
		m.cursor.Place(x, y, x0, y0, w, h)
		m.cursor.Visible = true

		at := m.now()
		if c := ev.sample.Cell; c != nil {
			m.engine.UpdateCell(c.Row, c.Col, at)
		} else {
			m.engine.UpdatePosition(x, y, at)
		}
		m.refreshProgress(at)

	case gazeConnected:
		m.status.Conn = connConnected
		m.cursor.Visible = true

	case gazeDisconnected:
		m.status.Conn = connDisconnected
		if m.client != nil && m.client.Running() {
			m.status.Conn = connConnecting
		}
		m.cursor.Visible = false
		m.engine.UpdatePosition(-1, -1, m.now())
		m.refreshProgress(m.now())

	case gazeIdentified:
		m.status.Server = ev.ident.Name

	case gazeStatus:
		m.log.Debug(context.Background(), "gaze status", logger.String("status", ev.status))

	case gazeFailed:
		m.log.Debug(context.Background(), "gaze error", logger.Error(ev.err))
	}
}

// refreshProgress copies engine state into the status bar and the dwell
// gauge.
func (m *Model) refreshProgress(at time.Time) {
	candidate, frac := m.engine.Progress(at)
	m.status.Focused = m.engine.CurrentFocus()
	m.status.Candidate = candidate
	m.status.Progress = frac
	m.grid.SetProgress(candidate, frac)
}

// focusPane applies a manual focus request, bypassing dwell.
func (m *Model) focusPane(index int) {
	if m.engine.Focus(index) {
		m.panes.Blur()
	}
	m.refreshProgress(m.now())
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global shortcuts (always work regardless of focus)
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.ToggleDebug):
		m.toggleDebugPane()
		return m, nil

	case key.Matches(msg, m.keys.CommandPalette):
		m.togglePalette()
		return m, nil

	case key.Matches(msg, m.keys.CyclePane):
		if !m.panes.Empty() {
			m.panes.Cycle()
			return m, nil
		}

	case key.Matches(msg, m.keys.ClosePane):
		if fp := m.panes.Focused(); fp != nil {
			m.closePane(fp.ID)
			return m, nil
		}

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.FocusPane):
		if i := m.keys.FocusIndex(msg.String()); i >= 0 {
			m.focusPane(i)
		}
		return m, nil

	case key.Matches(msg, m.keys.GazeUp, m.keys.GazeDown, m.keys.GazeLeft, m.keys.GazeRight):
		if m.mock != nil {
			m.moveGaze(msg)
			return m, nil
		}
	}

	// Route to focused pane first
	if fp := m.panes.Focused(); fp != nil && fp.Content != nil {
		if fp.Content.HandleKey(msg) {
			return m.afterPaletteKey()
		}
		return m, nil
	}

	// Everything else types into the focused grid pane
	m.grid.HandleKey(msg)
	return m, nil
}

func (m *Model) moveGaze(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.GazeUp):
		m.mock.Move(gaze.Up)
	case key.Matches(msg, m.keys.GazeDown):
		m.mock.Move(gaze.Down)
	case key.Matches(msg, m.keys.GazeLeft):
		m.mock.Move(gaze.Left)
	case key.Matches(msg, m.keys.GazeRight):
		m.mock.Move(gaze.Right)
	}
}

func (m *Model) toggleDebugPane() {
	if m.panes.Get("debug") != nil {
		m.closePane("debug")
		return
	}

	_, gy, _, gh := m.grid.Area()
	paneW := min(60, m.width)
	paneH := max(gh-2, 5)
	paneX := max(m.width-paneW-2, 0)

	m.debugPane = NewDebugPane(m.ring)
	m.panes.Open(NewPane("debug", m.debugPane, paneX, gy+1, paneW, paneH))
}

func (m *Model) togglePalette() {
	if m.panes.Get("commands") != nil {
		m.closePane("commands")
		return
	}

	paneW := min(60, m.width)
	paneH := min(m.grid.PaneCount()+8, max(m.height-4, 5))
	paneX := max((m.width-paneW)/2, 0)

	m.palette = NewCommandPalette(paletteCommands(m.grid.PaneCount(), m.keys))
	m.panes.Open(NewPane("commands", m.palette, paneX, 2, paneW, paneH))
}

func (m *Model) toggleGuide() {
	if m.panes.Get("guide") != nil {
		m.closePane("guide")
		return
	}

	paneW := min(72, m.width)
	paneH := max(m.height-4, 5)
	paneX := max((m.width-paneW)/2, 0)

	doc, err := NewDocPane(guideFS, guideIndex)
	if err != nil {
		m.log.Warn(context.Background(), "guide unavailable", logger.Error(err))
		return
	}
	m.panes.Open(NewPane("guide", doc, paneX, 2, paneW, paneH))
}

func (m *Model) closePane(id string) {
	m.panes.Close(id)
	switch id {
	case "debug":
		m.debugPane = nil
	case "commands":
		m.palette = nil
	}
}

// afterPaletteKey runs a command picked in the palette, if any.
func (m Model) afterPaletteKey() (tea.Model, tea.Cmd) {
	if m.palette == nil || m.palette.Chosen() == "" {
		return m, nil
	}
	action := m.palette.Chosen()
	m.closePane("commands")
	return m.runCommand(action)
}

func (m Model) runCommand(name string) (tea.Model, tea.Cmd) {
	m.log.Debug(context.Background(), "command", logger.String("name", name))
	if i, ok := focusCommand(name); ok {
		m.focusPane(i)
		return m, nil
	}

	switch name {
	case "debug":
		m.toggleDebugPane()
	case "guide":
		m.toggleGuide()
	case "keys":
		m.help.ShowAll = true
		m.layout()
	case "reconnect":
		if m.client == nil {
			return m, nil
		}
		m.status.Conn = connConnecting
		client := m.client
		return m, func() tea.Msg {
			client.Stop()
			client.Start()
			return nil
		}
	case "quit":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	// Check if any pane is being dragged
	if pane := m.panes.Dragging(); pane != nil {
		switch msg.Action {
		case tea.MouseActionMotion:
			pane.DragTo(msg.X, msg.Y, m.width, m.height)
			return m, nil
		case tea.MouseActionRelease:
			pane.EndDrag()
			return m, nil
		}
	}

	// Hit test for pane interactions
	pane := m.panes.At(msg.X, msg.Y)

	switch msg.Button {
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		if pane == nil {
			// Click on the grid focuses that tile
			m.panes.Blur()
			if i, ok := m.grid.TileAt(msg.X, msg.Y); ok {
				m.focusPane(i)
			}
			return m, nil
		}
		m.panes.Focus(pane.ID)
		if pane.BeginDrag(msg.X, msg.Y) {
			return m, nil
		}
		body := pane.Region(msg.X, msg.Y) == RegionBody
		if body && pane.Content != nil && pane.Content.HandleMouse(msg.X-pane.X-1, msg.Y-pane.Y-1, msg) {
			return m.afterPaletteKey()
		}
		return m, nil

	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		if pane != nil && pane.Content != nil {
			pane.Content.HandleMouse(msg.X-pane.X-1, msg.Y-pane.Y-1, msg)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	w, h := m.width, m.height
	if w < 20 {
		w = 80
	}
	if h < 5 {
		h = 24
	}

	buf := cellbuf.NewBuffer(w, h)

	// Status bar on top
	cellbuf.SetContentRect(buf, renderStatus(m.status, w), cellbuf.Rect(0, 0, w, 1))

	// Grid, then floating panes, then the gaze cursor over everything
	m.grid.Draw(buf)
	m.panes.Draw(buf)
	m.cursor.Draw(buf)

	// Help at bottom
	m.help.Width = w
	helpView := m.help.View(m.keys)
	helpH := lipgloss.Height(helpView)
	cellbuf.SetContentRect(buf, helpView, cellbuf.Rect(0, h-helpH, w, helpH))

	return cellbuf.Render(buf)
}
