package roster

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/averonhq/deskchat/internal/wire"
)

var ErrNoSelection = errors.New("roster: no participants selected")

// API is the slice of the backend client the roster service needs.
type API interface {
	ListRoster(ctx context.Context) ([]wire.Participant, error)
	RenameThread(ctx context.Context, threadID, name string) error
	AddParticipants(ctx context.Context, threadID string, employeeCodes []string) error
	RemoveParticipant(ctx context.Context, threadID, employeeCode string) error
	CreateThread(ctx context.Context, name string, employeeCodes []string) (wire.Thread, error)
}

// Service wraps the membership endpoints with client-side guards, so the UI
// never issues requests that the backend would reject anyway.
type Service struct {
	api    API
	selfID string
	logger zerolog.Logger
}

func NewService(api API, selfID string, logger zerolog.Logger) *Service {
	return &Service{
		api:    api,
		selfID: selfID,
		logger: logger.With().Str("component", "roster").Logger(),
	}
}

// Directory fetches the employee list, excluding the caller so they never
// appear in their own add-participant picker.
func (s *Service) Directory(ctx context.Context) ([]wire.Participant, error) {
	entries, err := s.api.ListRoster(ctx)
	if err != nil {
		return nil, err
	}
	out := entries[:0]
	for _, entry := range entries {
		if entry.EmployeeCode != s.selfID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Rename changes a group thread's display name.
func (s *Service) Rename(ctx context.Context, threadID, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("roster: name must not be empty")
	}
	if err := s.api.RenameThread(ctx, threadID, strings.TrimSpace(name)); err != nil {
		return err
	}
	s.logger.Info().Str("thread_id", threadID).Msg("thread renamed")
	return nil
}

// Add invites the picked members to a thread, skipping anyone already in it.
func (s *Service) Add(ctx context.Context, thread wire.Thread, picker *Picker) error {
	existing := make(map[string]bool, len(thread.Participants))
	for _, member := range thread.Participants {
		existing[member.EmployeeCode] = true
	}

	var codes []string
	for _, code := range picker.Selected() {
		if !existing[code] {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return ErrNoSelection
	}

	if err := s.api.AddParticipants(ctx, thread.ID, codes); err != nil {
		return err
	}
	picker.Clear()
	s.logger.Info().Str("thread_id", thread.ID).Int("count", len(codes)).Msg("participants added")
	return nil
}

// Remove drops one member from a thread. Removing yourself leaves the group.
func (s *Service) Remove(ctx context.Context, threadID, employeeCode string) error {
	return s.api.RemoveParticipant(ctx, threadID, employeeCode)
}

// CreateGroup starts a new group thread with the picked members.
func (s *Service) CreateGroup(ctx context.Context, name string, picker *Picker) (wire.Thread, error) {
	codes := picker.Selected()
	if len(codes) == 0 {
		return wire.Thread{}, ErrNoSelection
	}
	thread, err := s.api.CreateThread(ctx, strings.TrimSpace(name), codes)
	if err != nil {
		return wire.Thread{}, err
	}
	picker.Clear()
	return thread, nil
}
