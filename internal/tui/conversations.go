package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/averonhq/deskchat/internal/wire"
)

type threadItem struct {
	thread wire.Thread
}

func (i threadItem) Title() string {
	title := i.thread.DisplayName()
	if i.thread.UnreadCount > 0 {
		title += " " + unreadBadgeStyle.Render(fmt.Sprintf("(%d)", i.thread.UnreadCount))
	}
	return title
}

func (i threadItem) Description() string {
	preview := i.thread.LastMessage
	if len(preview) > 50 {
		preview = preview[:47] + "..."
	}
	return fmt.Sprintf("%s • %s", formatTimeAgo(i.thread.LastMessageAt), preview)
}

func (i threadItem) FilterValue() string {
	return i.thread.DisplayName()
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	duration := time.Since(t)
	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		return fmt.Sprintf("%dm ago", int(duration.Minutes()))
	case duration < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(duration.Hours()))
	case duration < 48*time.Hour:
		return "yesterday"
	case duration < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(duration.Hours()/24))
	}
	return t.Format("Jan 2")
}

type threadsFetchedMsg struct {
	threads []wire.Thread
	cached  bool
	err     error
}

type conversationsModel struct {
	session      *Session
	list         list.Model
	loading      bool
	err          error
	spinner      spinner.Model
	windowWidth  int
	windowHeight int
}

func newConversationsModel(session *Session) conversationsModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("81")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("243"))

	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Conversations"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return conversationsModel{
		session:      session,
		list:         l,
		loading:      true,
		spinner:      s,
		windowWidth:  80,
		windowHeight: 30,
	}
}

func (m conversationsModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCachedCmd(), m.fetchThreadsCmd())
}

// loadCachedCmd shows the last known thread list instantly; the REST fetch
// replaces it when it lands.
func (m conversationsModel) loadCachedCmd() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		if session.Cache == nil {
			return nil
		}
		threads, err := session.Cache.Threads()
		if err != nil || len(threads) == 0 {
			return nil
		}
		return threadsFetchedMsg{threads: threads, cached: true}
	}
}

func (m conversationsModel) fetchThreadsCmd() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		threads, err := session.API.ListThreads(context.Background())
		if err != nil {
			return threadsFetchedMsg{err: err}
		}
		if session.Cache != nil {
			if err := session.Cache.SaveThreads(threads); err != nil {
				session.Logger.Warn().Err(err).Msg("thread cache write failed")
			}
		}
		return threadsFetchedMsg{threads: threads}
	}
}

func (m *conversationsModel) refreshItems() {
	threads := m.session.State.Snapshot()
	items := make([]list.Item, len(threads))
	for i, thread := range threads {
		items[i] = threadItem{thread: thread}
	}
	m.list.SetItems(items)
	if unread := m.session.State.TotalUnread(); unread > 0 {
		m.list.Title = fmt.Sprintf("Conversations (%d unread)", unread)
	} else {
		m.list.Title = "Conversations"
	}
}

func (m conversationsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case threadsFetchedMsg:
		if msg.err != nil {
			m.loading = false
			m.err = msg.err
			return m, nil
		}
		// A cached snapshot never overwrites live data already on screen.
		if msg.cached && !m.loading {
			return m, nil
		}
		if !msg.cached {
			m.loading = false
			m.err = nil
		}
		m.session.State.SetThreads(msg.threads)
		m.refreshItems()
		return m, nil

	case InboxEventMsg:
		m.refreshItems()
		return m, nil

	case ThreadEventMsg:
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.list.FilterState() == list.Filtering {
				break
			}
			return m, tea.Quit

		case "r":
			if m.list.FilterState() != list.Filtering && !m.loading {
				m.loading = true
				return m, tea.Batch(m.spinner.Tick, m.fetchThreadsCmd())
			}

		case "enter":
			if item, ok := m.list.SelectedItem().(threadItem); ok && !m.loading {
				messages := newMessagesModel(m.session, item.thread, m.windowWidth, m.windowHeight)
				return messages, messages.Init()
			}
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m conversationsModel) View() string {
	if m.loading && len(m.list.Items()) == 0 {
		return fmt.Sprintf("\n  %s Loading conversations...\n", m.spinner.View())
	}

	if m.err != nil && len(m.list.Items()) == 0 {
		s := titleStyle.Render("Conversations") + "\n\n"
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
		s += helpStyle.Render("r: retry • q: quit")
		return s
	}

	if len(m.list.Items()) == 0 {
		s := titleStyle.Render("Conversations") + "\n\n"
		s += normalStyle.Render("  No conversations yet.") + "\n"
		s += "\n" + helpStyle.Render("r: refresh • q: quit")
		return s
	}

	s := m.list.View() + "\n"
	s += helpStyle.Render("↑↓/jk: navigate • enter: open • /: search • r: refresh • q: quit")
	return s
}
