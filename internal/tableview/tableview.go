// Package tableview renders a session's materialized frame as an interactive
// table with the operation history alongside it. History commands (undo,
// redo, execute, mode) are bound to keys and issued through the session;
// the resulting session messages flow back in asynchronously and refresh
// the table.
package tableview

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/siftdata/sift/internal/config"
	"github.com/siftdata/sift/internal/frame"
	"github.com/siftdata/sift/internal/op"
	"github.com/siftdata/sift/internal/session"
)

var (
	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	sidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			PaddingLeft(1).
			PaddingRight(1)

	titleStyle  = lipgloss.NewStyle().Bold(true)
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	queuedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	undoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Faint(true)
)

// sessionMsg wraps a session message for delivery into the program.
type sessionMsg struct {
	msg session.Message
}

// Model is the bubbletea model for the table view.
type Model struct {
	sess  *session.Session
	cfg   config.ViewConfig
	table table.Model

	status string
	width  int
}

// NewModel builds the view for a session's current state.
func NewModel(sess *session.Session, cfg config.ViewConfig) Model {
	m := Model{sess: sess, cfg: cfg}
	m.table = table.New(
		table.WithFocused(true),
		table.WithHeight(cfg.MaxRows),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	m.table.SetStyles(styles)
	m.reload(sess.Frame())
	return m
}

// reload replaces the table contents with f.
func (m *Model) reload(f *frame.Frame) {
	names := f.Columns()
	cols := make([]table.Column, len(names))
	for i, name := range names {
		cols[i] = table.Column{Title: name, Width: columnWidth(f, name, m.cfg.MaxWidth/max(len(names), 1))}
	}

	rows := make([]table.Row, f.NumRows())
	for i := 0; i < f.NumRows(); i++ {
		row := make(table.Row, len(names))
		for j, name := range names {
			col, _ := f.Column(name)
			row[j] = frame.FormatValue(col.Value(i))
		}
		rows[i] = row
	}

	// Rows must be cleared before narrowing columns.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	m.status = fmt.Sprintf("%d rows x %d cols", f.NumRows(), f.NumCols())
}

// columnWidth sizes a column to its widest cell, capped.
func columnWidth(f *frame.Frame, name string, cap int) int {
	w := len(name)
	col, _ := f.Column(name)
	for i := 0; i < col.Len(); i++ {
		if l := len(frame.FormatValue(col.Value(i))); l > w {
			w = l
		}
	}
	if cap >= 4 && w > cap {
		w = cap
	}
	return w
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "u":
			if _, err := m.sess.Undo(); err != nil {
				m.status = err.Error()
			}
			return m, nil
		case "r":
			if _, err := m.sess.Redo(); err != nil {
				m.status = err.Error()
			}
			return m, nil
		case "x":
			if err := m.sess.ExecuteQueued(); err != nil {
				m.status = err.Error()
			}
			return m, nil
		case "m":
			next := session.Eager
			if m.sess.Mode() == session.Eager {
				next = session.Lazy
			}
			m.sess.SetMode(next)
			m.status = "mode: " + string(next)
			return m, nil
		case "c":
			m.sess.Cancel()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if h := msg.Height - 6; h > 2 && h < m.cfg.MaxRows {
			m.table.SetHeight(h)
		}
	case sessionMsg:
		switch ev := msg.msg.(type) {
		case session.FrameUpdated:
			m.reload(ev.Frame)
		case session.OperationUpdated:
			if ev.Err != nil {
				m.status = fmt.Sprintf("failed: %s: %s", ev.Label, ev.Err)
			}
		case session.MaterializeDone:
			if ev.Canceled {
				m.status = "execution canceled"
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	main := baseStyle.Render(m.table.View())
	side := sidebarStyle.Render(m.sidebar())
	body := lipgloss.JoinHorizontal(lipgloss.Top, main, side)
	footer := statusStyle.Render(m.status + "  (u undo  r redo  x run  m mode  c cancel  q quit)")
	return lipgloss.JoinVertical(lipgloss.Left, body, footer)
}

// sidebar renders the operation history with state markers.
func (m Model) sidebar() string {
	out := titleStyle.Render("operations") + "\n"
	entries := m.sess.Entries()
	if len(entries) == 0 {
		return out + undoneStyle.Render("(none)")
	}
	for _, o := range entries {
		line := fmt.Sprintf("%s %s", glyph(o.State()), o.Label())
		switch o.State() {
		case op.Executed:
			line = doneStyle.Render(line)
		case op.Failed:
			line = failedStyle.Render(line)
		case op.Queued:
			line = queuedStyle.Render(line)
		case op.Undone:
			line = undoneStyle.Render(line)
		}
		out += line + "\n"
	}
	return out
}

func glyph(st op.State) string {
	switch st {
	case op.Queued:
		return "·"
	case op.Executed:
		return "✓"
	case op.Failed:
		return "✗"
	case op.Undone:
		return "↩"
	default:
		return "?"
	}
}

// Run opens the table view and blocks until the user quits it. setSink
// attaches the program to the session's message stream for live updates and
// detaches it on exit.
func Run(sess *session.Session, cfg config.ViewConfig, setSink func(func(session.Message))) error {
	p := tea.NewProgram(NewModel(sess, cfg), tea.WithAltScreen())

	if setSink != nil {
		setSink(func(msg session.Message) {
			p.Send(sessionMsg{msg: msg})
		})
		defer setSink(nil)
	}

	_, err := p.Run()
	return err
}
