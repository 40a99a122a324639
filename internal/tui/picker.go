package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/averonhq/deskchat/internal/roster"
	"github.com/averonhq/deskchat/internal/wire"
)

type directoryLoadedMsg struct {
	entries []wire.Participant
	err     error
}

type membersChangedMsg struct {
	err error
}

// pickerModel is the add-participants dialog for a group thread. Filtering
// narrows the directory; selections survive filter changes.
type pickerModel struct {
	session *Session
	thread  wire.Thread
	picker  *roster.Picker

	filter  textinput.Model
	spinner spinner.Model
	cursor  int
	loading bool
	saving  bool
	err     error

	windowWidth  int
	windowHeight int
}

func newPickerModel(session *Session, thread wire.Thread, width, height int) pickerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	filter := textinput.New()
	filter.Placeholder = "Filter by name, code or role"
	filter.Focus()

	return pickerModel{
		session:      session,
		thread:       thread,
		picker:       roster.NewPicker(nil),
		filter:       filter,
		spinner:      s,
		loading:      true,
		windowWidth:  width,
		windowHeight: height,
	}
}

func (m pickerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadDirectoryCmd(), textinput.Blink)
}

func (m pickerModel) loadDirectoryCmd() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		entries, err := session.Roster.Directory(context.Background())
		return directoryLoadedMsg{entries: entries, err: err}
	}
}

func (m pickerModel) saveCmd() tea.Cmd {
	session := m.session
	thread := m.thread
	picker := m.picker
	return func() tea.Msg {
		return membersChangedMsg{err: session.Roster.Add(context.Background(), thread, picker)}
	}
}

func (m pickerModel) backToMessages() (tea.Model, tea.Cmd) {
	messages := newMessagesModel(m.session, m.thread, m.windowWidth, m.windowHeight)
	return messages, messages.Init()
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		return m, nil

	case directoryLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.picker.SetEntries(msg.entries)
		return m, nil

	case membersChangedMsg:
		m.saving = false
		if msg.err != nil && !errors.Is(msg.err, roster.ErrNoSelection) {
			m.err = msg.err
			return m, nil
		}
		return m.backToMessages()

	case spinner.TickMsg:
		if m.loading || m.saving {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			return m.backToMessages()

		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "down", "ctrl+n":
			if m.cursor < len(m.picker.Visible())-1 {
				m.cursor++
			}
			return m, nil

		case "tab":
			visible := m.picker.Visible()
			if m.cursor < len(visible) {
				m.picker.Toggle(visible[m.cursor].EmployeeCode)
			}
			return m, nil

		case "enter":
			if m.saving || len(m.picker.Selected()) == 0 {
				return m, nil
			}
			m.saving = true
			return m, tea.Batch(m.spinner.Tick, m.saveCmd())

		default:
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.picker.Filter(m.filter.Value())
			if visible := m.picker.Visible(); m.cursor >= len(visible) {
				m.cursor = 0
			}
			return m, cmd
		}
	}

	return m, nil
}

func (m pickerModel) View() string {
	s := titleStyle.Render(fmt.Sprintf("Add members to %s", m.thread.DisplayName())) + "\n"

	if m.loading {
		return s + fmt.Sprintf("\n  %s Loading directory...\n", m.spinner.View())
	}
	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}

	s += m.filter.View() + "\n\n"

	visible := m.picker.Visible()
	maxRows := m.windowHeight - 10
	if maxRows < 5 {
		maxRows = 5
	}
	for i, entry := range visible {
		if i >= maxRows {
			s += helpStyle.Render(fmt.Sprintf("  ... %d more, narrow the filter", len(visible)-maxRows)) + "\n"
			break
		}
		check := "[ ]"
		if m.picker.IsSelected(entry.EmployeeCode) {
			check = "[x]"
		}
		line := fmt.Sprintf("%s %s (%s)", check, entry.FullName, entry.EmployeeCode)
		if entry.Role != "" {
			line += " · " + entry.Role
		}
		if i == m.cursor {
			s += selectedStyle.Render("> "+line) + "\n"
		} else {
			s += normalStyle.Render("  "+line) + "\n"
		}
	}
	if len(visible) == 0 {
		s += normalStyle.Render("  No matches.") + "\n"
	}

	if m.saving {
		s += fmt.Sprintf("\n%s Saving...\n", m.spinner.View())
	}

	selected := m.picker.Selected()
	s += "\n" + statusStyle.Render(fmt.Sprintf("%d selected", len(selected))) + "\n"
	s += helpStyle.Render("type: filter • ↑↓: move • tab: toggle • enter: add • esc: back")
	return strings.TrimRight(s, "\n") + "\n"
}
