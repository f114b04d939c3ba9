package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/sessions"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SessionListView ViewState = iota
	LedgerView
	SummaryView
)

// Model represents the TUI application state.
type Model struct {
	view     ViewState
	store    sessions.Store
	width    int
	height   int
	sessions []*models.Session
	selected *models.Session

	sessionList list.Model
	ledgerList  list.Model

	err  error
	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model backed by the given session store.
func NewModel(store sessions.Store) *Model {
	return &Model{
		view:  SessionListView,
		store: store,
		help:  help.New(),
		keys:  newKeyMap(),
	}
}

// Init initializes the TUI by loading sessions from the store.
func (m *Model) Init() tea.Cmd {
	return m.loadSessions()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.sessionList.Width() == 0 {
			m.sessionList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.ledgerList.Width() == 0 {
			m.ledgerList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case SessionListView:
			return m.handleSessionListKeys(msg)
		case LedgerView:
			return m.handleLedgerKeys(msg)
		case SummaryView:
			return m.handleSummaryKeys(msg)
		}

	case Msg:
		if msg.kind == MsgSessionsLoaded {
			data := msg.data.(struct {
				sessions []*models.Session
				err      error
			})
			if data.err != nil {
				m.err = data.err
				return m, tea.Quit
			}
			m.sessions = data.sessions
			items := make([]list.Item, len(data.sessions))
			for i, session := range data.sessions {
				items[i] = sessionItem{session: session}
			}
			m.sessionList = list.New(items, list.NewDefaultDelegate(), 0, 0)
			m.sessionList.Title = "Migration Sessions"
			m.sessionList.SetSize(m.width-4, m.height-8)
			return m, nil
		}
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case SessionListView:
		return m.renderSessionList()
	case LedgerView:
		return m.renderLedger()
	case SummaryView:
		return m.renderSummary()
	default:
		return ""
	}
}

func (m *Model) handleSessionListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		return m, m.loadSessions()
	case "enter":
		selected := m.sessionList.SelectedItem()
		if selected != nil {
			if item, ok := selected.(sessionItem); ok {
				m.selected = item.session
				m.buildLedgerList()
				m.view = LedgerView
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.sessionList, cmd = m.sessionList.Update(msg)
	return m, cmd
}

func (m *Model) handleLedgerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = SessionListView
		return m, nil
	case "tab":
		m.view = SummaryView
		return m, nil
	}

	var cmd tea.Cmd
	m.ledgerList, cmd = m.ledgerList.Update(msg)
	return m, cmd
}

func (m *Model) handleSummaryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "tab":
		m.view = LedgerView
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case SessionListView:
		m.sessionList, cmd = m.sessionList.Update(msg)
	case LedgerView:
		m.ledgerList, cmd = m.ledgerList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadSessions() tea.Cmd {
	return func() tea.Msg {
		loaded, err := m.store.List()
		return sessionsLoadedMsg(loaded, err)
	}
}

func (m *Model) buildLedgerList() {
	ledger := m.selected.Ledger()
	items := make([]list.Item, len(ledger))
	for i, entry := range ledger {
		items[i] = entryItem{entry: entry}
	}
	m.ledgerList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.ledgerList.Title = fmt.Sprintf("Ledger for '%s'", m.selected.Name())
	m.ledgerList.SetSize(m.width-4, m.height-8)
}

func (m *Model) renderSessionList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.reload, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.sessionList.View(), helpView)
}

func (m *Model) renderLedger() string {
	helpKeys := []key.Binding{m.keys.summary, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.ledgerList.View(), helpView)
}

func (m *Model) renderSummary() string {
	s := m.selected
	title := styles.title.Render(fmt.Sprintf("Session %s", s.ID()))

	var status string
	switch s.Status() {
	case models.SessionCompleted:
		status = styles.ok.Render(string(s.Status()))
	case models.SessionFailed:
		status = styles.err.Render(string(s.Status()))
	default:
		status = styles.warn.Render(string(s.Status()))
	}

	info := fmt.Sprintf(
		"\nStatus: %s\nPhase: %s\nSource: %s\nTarget: %s\nOperations: %d total, %d completed, %d failed\n",
		status, s.Phase(), s.Source(), s.Target(),
		s.TotalOps(), s.CompletedOps(), s.FailedOps(),
	)

	var lists string
	if migrated := s.MigratedEntities(); len(migrated) > 0 {
		lists += fmt.Sprintf("\nMigrated entities: %s\n", strings.Join(migrated, ", "))
	}
	if pending := s.PendingEntities(); len(pending) > 0 {
		lists += fmt.Sprintf("Pending entities: %s\n", styles.warn.Render(strings.Join(pending, ", ")))
	}
	if migrated := s.MigratedContainers(); len(migrated) > 0 {
		lists += fmt.Sprintf("Migrated containers: %s\n", strings.Join(migrated, ", "))
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s%s%s\n%s", title, info, lists, helpView)
}
