// Package app is the board's root Bubble Tea model.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pps-player/tablewatch/internal/board/client"
	"github.com/pps-player/tablewatch/internal/board/theme"
	"github.com/pps-player/tablewatch/internal/board/views/feed"
	"github.com/pps-player/tablewatch/internal/board/views/history"
	"github.com/pps-player/tablewatch/internal/board/views/status"
	"github.com/pps-player/tablewatch/internal/board/views/tables"
	"github.com/pps-player/tablewatch/internal/table"
	"github.com/pps-player/tablewatch/internal/ws"
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayHistory
	OverlayFeed
)

const (
	historyLimit = 50
	stripLines   = 4
)

type clockMsg time.Time

type historyMsg struct {
	tableName string
	entries   []table.Entry
	err       error
}

type tablesMsg struct {
	entries []table.Entry
	health  *ws.HealthPayload
	err     error
}

// Model is the root Bubble Tea model.
type Model struct {
	ws     *client.WSClient
	http   *client.HTTPClient
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time

	keys   KeyMap
	width  int
	height int
	clock  time.Time

	overlay Overlay

	statusBar status.Model
	tables    tables.Model
	history   history.Model
	feed      feed.Model

	connected   bool
	lastMessage time.Time
}

// New creates the root model.
func New(ws *client.WSClient, http *client.HTTPClient) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		ws:        ws,
		http:      http,
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
		clock:     time.Now(),
		keys:      DefaultKeyMap(),
		statusBar: status.New(),
		tables:    tables.New(),
		feed:      feed.New(),
	}
}

// Init starts the WebSocket connection and the once-a-second clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.ws.Listen(m.ctx), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.tables.Width = msg.Width
		return m, nil

	case clockMsg:
		m.clock = time.Time(msg)
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case client.WSConnectedMsg:
		m.connected = true
		m.statusBar.Connected = true
		m.feed.Add(m.now(), "ws", "connected")
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSDisconnectedMsg:
		m.connected = false
		m.statusBar.Connected = false
		if msg.Err != nil {
			m.feed.Add(m.now(), "ws", "disconnected: "+msg.Err.Error())
		}
		return m, m.ws.Listen(m.ctx)

	case client.WSSnapshotMsg:
		m.lastMessage = m.now()
		m.statusBar.StoreID = msg.Payload.StoreID
		m.statusBar.Health = msg.Payload.Health
		m.tables.SetEntries(msg.Payload.Tables)
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSEventMsg:
		m.lastMessage = m.now()
		e := msg.Payload
		m.feed.Add(e.At, e.Kind.String(), e.Text)
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSHealthMsg:
		m.lastMessage = m.now()
		m.statusBar.Health = msg.Payload
		m.feed.Add(m.now(), "hlth", fmt.Sprintf("poller %s", msg.Payload.Status))
		return m, m.ws.ReadLoop(m.ctx)

	case historyMsg:
		if m.overlay != OverlayHistory || m.history.TableName != msg.tableName {
			return m, nil
		}
		m.history.Loading = false
		if msg.err != nil {
			m.history.Err = msg.err.Error()
		} else {
			m.history.Entries = msg.entries
		}
		return m, nil

	case tablesMsg:
		if msg.err != nil {
			m.feed.Add(m.now(), "ws", "refresh failed: "+msg.err.Error())
			return m, nil
		}
		m.tables.SetEntries(msg.entries)
		if msg.health != nil {
			m.statusBar.Health = *msg.health
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancel()
		return m, tea.Quit
	}

	if m.overlay != OverlayNone {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.overlay = OverlayNone
		case m.overlay == OverlayFeed && key.Matches(msg, m.keys.Up):
			m.feed.ScrollUp(1)
		case m.overlay == OverlayFeed && key.Matches(msg, m.keys.Down):
			m.feed.ScrollDown(1)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		m.tables.Next()

	case key.Matches(msg, m.keys.Up):
		m.tables.Prev()

	case key.Matches(msg, m.keys.History):
		e, ok := m.tables.SelectedEntry()
		if !ok {
			return m, nil
		}
		m.overlay = OverlayHistory
		m.history = history.New(e.TableName)
		return m, m.fetchHistory(e.TableName)

	case key.Matches(msg, m.keys.Feed):
		m.overlay = OverlayFeed

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetchTables()
	}

	return m, nil
}

func (m Model) fetchHistory(name string) tea.Cmd {
	hc := m.http
	return func() tea.Msg {
		entries, err := hc.History(name, historyLimit)
		return historyMsg{tableName: name, entries: entries, err: err}
	}
}

func (m Model) fetchTables() tea.Cmd {
	hc := m.http
	return func() tea.Msg {
		entries, err := hc.Tables()
		if err != nil {
			return tablesMsg{err: err}
		}
		health, err := hc.Health()
		return tablesMsg{entries: entries, health: health, err: err}
	}
}

// View renders the full board.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var body string
	switch m.overlay {
	case OverlayHistory:
		body = m.history.View()
	case OverlayFeed:
		body = m.feed.View(m.width, m.height-4)
	default:
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.tables.View(m.clock),
			"",
			theme.StyleHeader.Render("  Announcements"),
			m.feed.Strip(stripLines),
		)
	}

	sections := []string{m.statusBar.View()}
	if !m.connected {
		sections = append(sections, renderDisconnected(m.width))
	}
	sections = append(sections,
		body,
		theme.StyleDimmed.Render(fmt.Sprintf("  j/k:navigate  h:history  a:announcements  r:refresh  q:quit  (updated %s)",
			status.Age(m.lastMessage, m.clock))),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderDisconnected(width int) string {
	return lipgloss.NewStyle().
		Width(max(40, width)).
		Padding(0, 1).
		Foreground(theme.ColorDanger).
		Bold(true).
		Render("DISCONNECTED  Reconnecting to the tablewatch server...")
}
