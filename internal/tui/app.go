// Package tui is the terminal front end: a conversation list, a message view
// fed by the render pipeline, and dialogs for group membership.
package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/averonhq/deskchat/internal/cache"
	"github.com/averonhq/deskchat/internal/config"
	"github.com/averonhq/deskchat/internal/gateway"
	"github.com/averonhq/deskchat/internal/inbox"
	"github.com/averonhq/deskchat/internal/rest"
	"github.com/averonhq/deskchat/internal/roster"
)

// InboxEventMsg is a live event from the account-wide socket, already folded
// into the inbox state before delivery.
type InboxEventMsg struct {
	Event gateway.Event
}

// ThreadEventMsg is a live event from the per-thread socket.
type ThreadEventMsg struct {
	Event gateway.Event
}

// Session bundles the backend plumbing every screen needs.
type Session struct {
	Config config.Config
	API    *rest.Client
	State  *inbox.State
	Cache  *cache.Store
	Roster *roster.Service
	SelfID string
	Logger zerolog.Logger

	mu      sync.Mutex
	program *tea.Program
}

// Run starts the UI loop on the conversation list and blocks until quit.
func (s *Session) Run() error {
	model := newConversationsModel(s)
	program := tea.NewProgram(model, tea.WithAltScreen())

	s.mu.Lock()
	s.program = program
	s.mu.Unlock()

	_, err := program.Run()
	return err
}

// DeliverInboxEvent folds a socket event into the inbox state and wakes the
// UI. Safe to call from socket goroutines before and after Run.
func (s *Session) DeliverInboxEvent(event gateway.Event) {
	s.State.Apply(event)
	s.send(InboxEventMsg{Event: event})
}

func (s *Session) deliverThreadEvent(event gateway.Event) {
	s.send(ThreadEventMsg{Event: event})
}

func (s *Session) send(msg tea.Msg) {
	s.mu.Lock()
	program := s.program
	s.mu.Unlock()
	if program != nil {
		program.Send(msg)
	}
}
