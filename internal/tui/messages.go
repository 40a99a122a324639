package tui

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"

	"github.com/averonhq/deskchat/internal/composer"
	"github.com/averonhq/deskchat/internal/gateway"
	"github.com/averonhq/deskchat/internal/view"
	"github.com/averonhq/deskchat/internal/wire"
)

type historyLoadedMsg struct {
	threadID string
	messages []*wire.Message
	cached   bool
	err      error
}

type sentResultMsg struct {
	sent bool
	echo *wire.Message
	err  error
}

type readMarkedMsg struct {
	err error
}

type typingExpiredMsg struct{}

// sendPipeline uploads staged files and posts the message. The echo survives
// the call so the update loop can collapse the optimistic draft.
type sendPipeline struct {
	session  *Session
	threadID string
	echo     *wire.Message
}

func (p *sendPipeline) send(ctx context.Context, text string, files []composer.StagedFile) (bool, error) {
	var attachmentIDs []string
	for _, staged := range files {
		f, err := os.Open(staged.Path)
		if err != nil {
			return false, fmt.Errorf("open %s: %w", staged.Name, err)
		}
		attachment, err := p.session.API.UploadAttachment(ctx, staged.Name, f)
		f.Close()
		if err != nil {
			return false, fmt.Errorf("upload %s: %w", staged.Name, err)
		}
		attachmentIDs = append(attachmentIDs, attachment.ID)
	}

	echo, err := p.session.API.SendMessage(ctx, p.threadID, text, attachmentIDs)
	if err != nil {
		return false, err
	}
	p.echo = echo
	return true, nil
}

type messagesModel struct {
	session  *Session
	thread   wire.Thread
	messages []*wire.Message

	socket   *gateway.ThreadSocket
	pipeline *sendPipeline
	composer *composer.Composer

	viewport  viewport.Model
	textarea  textarea.Model
	spinner   spinner.Model
	pathInput textinput.Model

	loading   bool
	sending   bool
	attaching bool
	err       error

	// openCursor freezes the unread separator where it was when the thread was
	// opened; marking read moves the server cursor, not the separator.
	openCursor  string
	typingUntil time.Time

	windowWidth  int
	windowHeight int
}

func newMessagesModel(session *Session, thread wire.Thread, width, height int) messagesModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	vp := viewport.New(80, 20)

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.CharLimit = 4000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	pi := textinput.New()
	pi.Placeholder = "/path/to/file"

	pipeline := &sendPipeline{session: session, threadID: thread.ID}
	comp := composer.New(pipeline.send, session.Logger,
		composer.WithMaxBytes(session.Config.MaxAttachmentBytes()))

	socket := gateway.NewThreadSocket(gateway.ThreadSocketConfig{
		BaseURL:   session.Config.ServerURL,
		ThreadID:  thread.ID,
		Token:     session.Config.Token,
		Handler:   session.deliverThreadEvent,
		Logger:    session.Logger,
		Heartbeat: session.Config.Heartbeat,
		Backoff:   session.Config.ReconnectBase,
	})

	m := messagesModel{
		session:    session,
		thread:     thread,
		socket:     socket,
		pipeline:   pipeline,
		composer:   comp,
		viewport:   vp,
		textarea:   ta,
		spinner:    s,
		pathInput:  pi,
		loading:    true,
		openCursor: session.State.OwnCursor(thread.ID),
	}
	if width > 0 {
		m.resize(width, height)
	}
	return m
}

func (m messagesModel) Init() tea.Cmd {
	m.socket.Start()
	m.session.State.SetActive(m.thread.ID)
	return tea.Batch(m.spinner.Tick, m.loadCachedHistoryCmd(), m.fetchHistoryCmd())
}

func (m messagesModel) loadCachedHistoryCmd() tea.Cmd {
	session := m.session
	threadID := m.thread.ID
	limit := session.Config.HistoryLimit
	return func() tea.Msg {
		if session.Cache == nil {
			return nil
		}
		messages, err := session.Cache.Messages(threadID, limit)
		if err != nil || len(messages) == 0 {
			return nil
		}
		return historyLoadedMsg{threadID: threadID, messages: messages, cached: true}
	}
}

func (m messagesModel) fetchHistoryCmd() tea.Cmd {
	session := m.session
	threadID := m.thread.ID
	limit := session.Config.HistoryLimit
	return func() tea.Msg {
		messages, err := session.API.History(context.Background(), threadID, limit)
		if err != nil {
			return historyLoadedMsg{threadID: threadID, err: err}
		}
		if session.Cache != nil {
			if err := session.Cache.SaveMessages(threadID, messages); err != nil {
				session.Logger.Warn().Err(err).Msg("history cache write failed")
			}
		}
		return historyLoadedMsg{threadID: threadID, messages: messages}
	}
}

func (m messagesModel) sendCmd() tea.Cmd {
	pipeline := m.pipeline
	comp := m.composer
	return func() tea.Msg {
		pipeline.echo = nil
		sent, err := comp.Send(context.Background())
		return sentResultMsg{sent: sent, echo: pipeline.echo, err: err}
	}
}

func (m messagesModel) markReadCmd(messageID string) tea.Cmd {
	session := m.session
	threadID := m.thread.ID
	return func() tea.Msg {
		if err := session.API.MarkRead(context.Background(), threadID, messageID); err != nil {
			return readMarkedMsg{err: err}
		}
		session.State.MarkOwnRead(threadID, messageID)
		return readMarkedMsg{}
	}
}

// lastInboundID returns the newest message authored by someone else, the one
// a read receipt should point at.
func (m *messagesModel) lastInboundID() string {
	for i := len(m.messages) - 1; i >= 0; i-- {
		message := m.messages[i]
		if message.SenderID != m.session.SelfID && !message.IsLocalDraft() {
			return message.ID
		}
	}
	return ""
}

func (m *messagesModel) resize(width, height int) {
	m.windowWidth = width
	m.windowHeight = height

	headerHeight := 3
	composerHeight := 6
	m.viewport.Width = width - 2
	m.viewport.Height = height - headerHeight - composerHeight
	if m.viewport.Height < 3 {
		m.viewport.Height = 3
	}
	m.textarea.SetWidth(width - 4)
	m.pathInput.Width = width - 8
}

func (m *messagesModel) mergeMessages(incoming []*wire.Message) {
	for _, message := range incoming {
		m.messages = view.MergeEcho(m.messages, message)
	}
	sort.SliceStable(m.messages, func(i, j int) bool {
		if !m.messages[i].CreatedAt.Equal(m.messages[j].CreatedAt) {
			return m.messages[i].CreatedAt.Before(m.messages[j].CreatedAt)
		}
		return m.messages[i].ID < m.messages[j].ID
	})
}

func (m *messagesModel) refreshViewport(scrollToBottom bool) {
	timeline := view.Build(m.messages, m.session.State.PeerCursors(), m.openCursor, m.session.SelfID)
	m.viewport.SetContent(m.renderTimeline(timeline))
	if scrollToBottom {
		m.viewport.GotoBottom()
	}
}

func (m messagesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshViewport(false)
		return m, nil

	case historyLoadedMsg:
		if msg.threadID != m.thread.ID {
			return m, nil
		}
		if msg.err != nil {
			m.loading = false
			m.err = msg.err
			return m, nil
		}
		if msg.cached && !m.loading {
			return m, nil
		}
		m.mergeMessages(msg.messages)
		var cmd tea.Cmd
		if !msg.cached {
			m.loading = false
			m.err = nil
			if id := m.lastInboundID(); id != "" {
				cmd = m.markReadCmd(id)
			}
		}
		m.refreshViewport(true)
		return m, cmd

	case ThreadEventMsg:
		return m.handleThreadEvent(msg.Event)

	case InboxEventMsg:
		// A message for this thread can arrive on the account socket while the
		// per-thread socket is reconnecting.
		ev := msg.Event
		if ev.Kind == wire.KindMessage && ev.Message != nil && ev.Message.ThreadID == m.thread.ID {
			m.mergeMessages([]*wire.Message{ev.Message})
			m.refreshViewport(true)
		}
		return m, nil

	case sentResultMsg:
		m.sending = false
		if msg.err != nil {
			m.err = msg.err
			m.refreshViewport(true)
			return m, nil
		}
		m.err = nil
		if msg.sent {
			m.textarea.Reset()
			if msg.echo != nil {
				m.mergeMessages([]*wire.Message{msg.echo})
			}
		}
		m.refreshViewport(true)
		return m, nil

	case readMarkedMsg:
		if msg.err != nil {
			m.session.Logger.Warn().Err(msg.err).Str("thread_id", m.thread.ID).Msg("mark read failed")
		}
		return m, nil

	case typingExpiredMsg:
		return m, nil

	case spinner.TickMsg:
		if m.loading || m.sending {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m messagesModel) handleThreadEvent(event gateway.Event) (tea.Model, tea.Cmd) {
	switch event.Kind {
	case wire.KindMessage:
		if event.Message == nil || event.Message.ThreadID != m.thread.ID {
			return m, nil
		}
		m.mergeMessages([]*wire.Message{event.Message})
		m.refreshViewport(true)
		var cmd tea.Cmd
		if event.Message.SenderID != m.session.SelfID {
			cmd = m.markReadCmd(event.Message.ID)
		}
		return m, cmd

	case wire.KindRead:
		m.session.State.Apply(event)
		m.refreshViewport(false)
		return m, nil

	case wire.KindTyping:
		m.typingUntil = time.Now().Add(3 * time.Second)
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg { return typingExpiredMsg{} })
	}
	return m, nil
}

func (m messagesModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.socket.Stop()
		return m, tea.Quit
	}

	if m.attaching {
		switch msg.String() {
		case "esc":
			m.attaching = false
			m.pathInput.Reset()
			m.textarea.Focus()
			return m, nil
		case "enter":
			path := strings.TrimSpace(m.pathInput.Value())
			if path != "" {
				added, skipped := m.composer.AddFiles(path)
				if skipped > 0 {
					m.err = fmt.Errorf("%s rejected: missing or over the %d MB limit",
						path, m.session.Config.MaxAttachmentMB)
					m.composer.TakeSkipped()
				} else if added > 0 {
					m.err = nil
				}
			}
			m.attaching = false
			m.pathInput.Reset()
			m.textarea.Focus()
			return m, nil
		default:
			var cmd tea.Cmd
			m.pathInput, cmd = m.pathInput.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "esc":
		m.socket.Stop()
		m.session.State.SetActive("")
		conversations := newConversationsModel(m.session)
		if m.windowWidth > 0 {
			updated, cmd := conversations.Update(tea.WindowSizeMsg{Width: m.windowWidth, Height: m.windowHeight})
			conversations = updated.(conversationsModel)
			return conversations, tea.Batch(conversations.Init(), cmd)
		}
		return conversations, conversations.Init()

	case "enter":
		if m.sending || m.loading {
			return m, nil
		}
		m.composer.SetText(m.textarea.Value())
		text := strings.TrimSpace(m.textarea.Value())
		if text == "" && len(m.composer.Pending()) == 0 {
			return m, nil
		}
		if text != "" {
			draft := &wire.Message{
				ID:        wire.LocalDraftPrefix + uuid.NewString(),
				ThreadID:  m.thread.ID,
				SenderID:  m.session.SelfID,
				Body:      text,
				CreatedAt: time.Now().UTC(),
				Status:    wire.StatusSending,
			}
			m.mergeMessages([]*wire.Message{draft})
		}
		m.sending = true
		m.refreshViewport(true)
		return m, tea.Batch(m.spinner.Tick, m.sendCmd())

	case "alt+enter":
		m.textarea.InsertString("\n")
		return m, nil

	case "ctrl+a":
		m.attaching = true
		m.textarea.Blur()
		m.pathInput.Focus()
		return m, textinput.Blink

	case "ctrl+x":
		if pending := m.composer.Pending(); len(pending) > 0 {
			m.composer.RemovePending(len(pending) - 1)
		}
		return m, nil

	case "ctrl+g":
		if m.thread.Type == wire.ThreadGroup {
			m.socket.Stop()
			picker := newPickerModel(m.session, m.thread, m.windowWidth, m.windowHeight)
			return picker, picker.Init()
		}
		return m, nil

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *messagesModel) renderTimeline(timeline view.Timeline) string {
	wrapWidth := m.viewport.Width - 6
	if wrapWidth <= 0 {
		wrapWidth = 74
	}

	names := make(map[string]string, len(m.thread.Participants))
	for _, participant := range m.thread.Participants {
		names[participant.EmployeeCode] = participant.FullName
	}

	var content strings.Builder
	for i, item := range timeline.Items {
		if i == timeline.FirstUnread {
			content.WriteString(unreadDividerStyle.Render("── Unread ──") + "\n")
		}

		if item.Kind == view.ItemDay {
			content.WriteString("\n" + dayDividerStyle.Render("── "+item.Date.Format("Mon, Jan 2 2006")+" ──") + "\n")
			continue
		}

		message := item.Message
		if item.ShowHeader {
			sender := "You"
			if !item.Mine {
				sender = names[message.SenderID]
				if sender == "" {
					sender = message.SenderID
				}
			}
			header := fmt.Sprintf("%s • %s", sender, message.CreatedAt.Local().Format("3:04 PM"))
			content.WriteString(messageHeaderStyle.Render(header) + "\n")
		}

		if body := view.RenderBody(message.Body); body != "" {
			style := messageTheirsStyle
			if item.Mine {
				style = messageMineStyle
			}
			content.WriteString(style.Render(wordwrap.String(body, wrapWidth)))
			if item.Mine && message.Status != "" {
				content.WriteString(messageStatusStyle.Render(" · " + string(message.Status)))
			}
			content.WriteString("\n")
		}

		for _, attachment := range message.Attachments {
			label := fmt.Sprintf("📎 %s", attachment.Filename)
			if attachment.SizeBytes > 0 {
				label += fmt.Sprintf(" (%d KB)", attachment.SizeBytes/1024)
			}
			content.WriteString(attachmentStyle.Render(label) + "\n")
		}
	}

	return content.String()
}

func (m messagesModel) View() string {
	if m.loading && len(m.messages) == 0 {
		return fmt.Sprintf("\n  %s Loading messages...\n", m.spinner.View())
	}

	title := m.thread.DisplayName()
	if !m.socket.IsOpen() {
		title += statusStyle.Render("  (reconnecting...)")
	}
	s := titleStyle.Render(title) + "\n"

	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}
	if time.Now().Before(m.typingUntil) {
		s += statusStyle.Render("typing...") + "\n"
	}

	s += m.viewport.View() + "\n"

	if pending := m.composer.Pending(); len(pending) > 0 {
		var names []string
		for _, file := range pending {
			names = append(names, file.Name)
		}
		s += attachmentStyle.Render("Attached: "+strings.Join(names, ", ")) + "\n"
	}

	if m.attaching {
		s += inputStyle.Render("Attach file:") + " " + m.pathInput.View() + "\n"
		s += helpStyle.Render("enter: add • esc: cancel")
		return s
	}

	if m.sending {
		s += fmt.Sprintf("%s Sending...\n", m.spinner.View())
	}
	s += m.textarea.View() + "\n"

	help := "enter: send • alt+enter: newline • ctrl+a: attach • esc: back"
	if m.thread.Type == wire.ThreadGroup {
		help += " • ctrl+g: members"
	}
	s += helpStyle.Render(help)
	return s
}
