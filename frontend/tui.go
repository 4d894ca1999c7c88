package frontend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"gitlab.com/linkinlog/queueMirror/view"
)

// Cells wider than this many columns are cut and end in an ellipsis.
const maxCellWidth = 40

const logLines = 5

type KeyMap struct {
	SearchActivate key.Binding
	SearchClear    key.Binding
	SearchConfirm  key.Binding
	Save           key.Binding
	Quit           key.Binding
}

var DefaultKeyMap = KeyMap{
	SearchActivate: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	SearchClear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear search"),
	),
	SearchConfirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "done"),
	),
	Save: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "save snapshot"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	connectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	offlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	tableStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func NewTUI(sl *slog.Logger) *TUIServer {
	return &TUIServer{slogger: sl}
}

// TUIServer renders the board in the terminal.
type TUIServer struct {
	slogger *slog.Logger

	lock    sync.Mutex
	program *tea.Program
}

func (t *TUIServer) Start(b Backend) <-chan error {
	errs := make(chan error, 1)

	program := tea.NewProgram(newModel(b), tea.WithAltScreen())

	t.lock.Lock()
	t.program = program
	t.lock.Unlock()

	go func() {
		_, err := program.Run()
		t.slogger.Info("tui exited", "error", err)

		switch {
		case errors.Is(err, tea.ErrProgramKilled):
		case err != nil:
			errs <- fmt.Errorf("tui: %w", err)
		default:
			errs <- ErrQuit
		}
	}()

	return errs
}

func (t *TUIServer) Close(ctx context.Context) error {
	t.lock.Lock()
	program := t.program
	t.program = nil
	t.lock.Unlock()

	if program == nil {
		return nil
	}

	program.Kill()
	program.Wait()
	return nil
}

type boardChangedMsg struct{}

type requestDoneMsg struct {
	what string
	err  error
}

type model struct {
	backend Backend
	board   *view.Board
	changes <-chan struct{}
	keys    KeyMap

	search textinput.Model
	notice string

	width  int
	height int
}

func newModel(b Backend) model {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search"
	search.CharLimit = 256

	board := b.Board()

	return model{
		backend: b,
		board:   board,
		changes: board.Subscribe(),
		keys:    DefaultKeyMap,
		search:  search,
	}
}

func (m model) Init() tea.Cmd {
	return listenForChange(m.changes)
}

// listenForChange blocks until the board signals a change.
func listenForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return boardChangedMsg{}
	}
}

func download(b Backend) tea.Cmd {
	return func() tea.Msg {
		return requestDoneMsg{what: "download requested", err: b.Download()}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case boardChangedMsg:
		return m, listenForChange(m.changes)

	case requestDoneMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("%s: %s", msg.what, msg.err)
		} else {
			m.notice = msg.what
		}
		return m, nil

	case tea.KeyMsg:
		if m.search.Focused() {
			return m.handleSearchKeys(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.SearchActivate):
			return m, m.search.Focus()

		case key.Matches(msg, m.keys.SearchClear):
			m.search.SetValue("")

		case key.Matches(msg, m.keys.Save):
			if !m.board.Status().CanSave {
				m.notice = "nothing to save"
				return m, nil
			}
			return m, download(m.backend)
		}
	}

	return m, nil
}

func (m model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit

	case key.Matches(msg, m.keys.SearchClear):
		if m.search.Value() != "" {
			m.search.SetValue("")
		} else {
			m.search.Blur()
		}
		return m, nil

	case key.Matches(msg, m.keys.SearchConfirm):
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.statusLine())
	b.WriteString("\n")

	if m.search.Focused() || m.search.Value() != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.tablesView())
	b.WriteString("\n\n")

	for _, line := range lastLines(m.board.Log(), logLines) {
		b.WriteString(mutedStyle.Render(printable(line)))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString(m.notice)
		b.WriteString("\n")
	}

	b.WriteString(mutedStyle.Render(m.helpLine()))
	return b.String()
}

func (m model) statusLine() string {
	st := m.board.Status()

	conn := offlineStyle.Render("disconnected")
	if st.Connected {
		conn = connectedStyle.Render("connected")
	}

	return fmt.Sprintf("%s  %s  peers: %d", titleStyle.Render("queueMirror"), conn, st.Peers)
}

func (m model) tablesView() string {
	if m.board.Status().Placeholder {
		return tableStyle.Render(headerStyle.Render("queues") + "\n" + mutedStyle.Render("waiting for data"))
	}

	tables := view.FilterTables(m.board.Tables(), m.search.Value())

	rendered := make([]string, 0, len(tables))
	for _, t := range tables {
		rendered = append(rendered, renderTable(t))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func renderTable(t view.Table) string {
	lines := make([]string, 0, len(t.Rows)+1)
	lines = append(lines, headerStyle.Render(cell(t.Key)))
	for _, row := range t.Rows {
		lines = append(lines, cell(row))
	}
	return tableStyle.Render(strings.Join(lines, "\n"))
}

// cell renders a server value on one line of at most maxCellWidth columns.
func cell(value string) string {
	return ansi.Truncate(printable(value), maxCellWidth, "…")
}

// printable drops terminal escape sequences and turns the remaining control
// characters into spaces.
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, ansi.Strip(s))
}

func (m model) helpLine() string {
	bindings := []key.Binding{m.keys.SearchActivate, m.keys.SearchClear, m.keys.Quit}
	if m.board.Status().CanSave {
		bindings = append(bindings, m.keys.Save)
	}

	help := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	return strings.Join(help, " • ")
}

func lastLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
