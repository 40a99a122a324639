// Package composer holds the local-only outgoing message state: draft text
// plus staged attachments. It performs no network calls itself; submission is
// delegated to an injected send function so a failed send always preserves
// the draft for retry.
package composer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/averonhq/deskchat/internal/observability"
)

// MaxAttachmentBytes is the per-file staging cap. Files above it are skipped
// locally before any network call.
const MaxAttachmentBytes int64 = 25 << 20

// ErrNoSendFunc is returned when Send is called on a composer built without
// a send function.
var ErrNoSendFunc = errors.New("composer: no send function configured")

// StagedFile is an attachment accepted into the pending set.
type StagedFile struct {
	Path     string
	Name     string
	Size     int64
	MimeType string
}

// SendFunc submits the trimmed draft and staged files. It reports whether the
// send succeeded; only then does the composer clear its state.
type SendFunc func(ctx context.Context, text string, files []StagedFile) (bool, error)

// Composer accumulates one outgoing message. It is not safe for concurrent
// use; the UI event loop is its only caller.
type Composer struct {
	send     SendFunc
	maxBytes int64
	logger   zerolog.Logger

	text     string
	pending  []StagedFile
	skipped  int
	disabled bool
}

// Option customises a Composer.
type Option func(*Composer)

// WithMaxBytes overrides the attachment size cap.
func WithMaxBytes(n int64) Option {
	return func(c *Composer) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// New builds a composer around the given send function.
func New(send SendFunc, logger zerolog.Logger, opts ...Option) *Composer {
	c := &Composer{
		send:     send,
		maxBytes: MaxAttachmentBytes,
		logger:   logger.With().Str("component", "composer").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetText replaces the draft text.
func (c *Composer) SetText(text string) { c.text = text }

// Text returns the current draft text.
func (c *Composer) Text() string { return c.text }

// SetDisabled externally enables or disables submission.
func (c *Composer) SetDisabled(disabled bool) { c.disabled = disabled }

// Pending returns the staged files in selection order.
func (c *Composer) Pending() []StagedFile { return c.pending }

// AddFiles stages the given paths, preserving selection order. Files above
// the size cap or unreadable on disk are skipped and counted for feedback.
func (c *Composer) AddFiles(paths ...string) (added, skipped int) {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable attachment")
			skipped++
			continue
		}
		if info.Size() > c.maxBytes {
			c.logger.Info().Str("path", path).Int64("size", info.Size()).Msg("skipping oversized attachment")
			skipped++
			continue
		}

		mime := "application/octet-stream"
		if detected, err := mimetype.DetectFile(path); err == nil {
			mime = detected.String()
		}

		c.pending = append(c.pending, StagedFile{
			Path:     path,
			Name:     info.Name(),
			Size:     info.Size(),
			MimeType: mime,
		})
		added++
	}

	c.skipped += skipped
	return added, skipped
}

// RemovePending removes one staged file by position. Out-of-range indexes are
// ignored.
func (c *Composer) RemovePending(index int) {
	if index < 0 || index >= len(c.pending) {
		return
	}
	c.pending = append(c.pending[:index], c.pending[index+1:]...)
}

// TakeSkipped returns the accumulated skipped-file count and resets it, for
// one-shot user feedback.
func (c *Composer) TakeSkipped() int {
	n := c.skipped
	c.skipped = 0
	return n
}

// Send submits the draft. It is a no-op (false, nil) when the composer is
// disabled or there is neither trimmed text nor a staged file. State clears
// only when the send function reports success.
func (c *Composer) Send(ctx context.Context) (bool, error) {
	if c.disabled {
		return false, nil
	}

	trimmed := strings.TrimSpace(c.text)
	if trimmed == "" && len(c.pending) == 0 {
		return false, nil
	}
	if c.send == nil {
		return false, ErrNoSendFunc
	}

	ok, err := c.send(ctx, trimmed, c.pending)
	if err != nil {
		return false, fmt.Errorf("composer send: %w", err)
	}
	if !ok {
		return false, nil
	}

	observability.MessagesSent().Inc()
	c.text = ""
	c.pending = nil
	c.skipped = 0
	return true, nil
}
