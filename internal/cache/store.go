// Package cache persists thread summaries and message history in a local
// sqlite file, so the client shows the last known state instantly on startup
// and rides out backend outages.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/averonhq/deskchat/internal/observability"
	"github.com/averonhq/deskchat/internal/wire"
)

type threadRow struct {
	ID            string `gorm:"primaryKey"`
	Name          string
	Type          string
	LastMessage   string
	LastMessageAt time.Time `gorm:"index"`
	UnreadCount   int
	Participants  datatypes.JSON
	UpdatedAt     time.Time
}

func (threadRow) TableName() string { return "threads" }

type messageRow struct {
	ID          string `gorm:"primaryKey"`
	ThreadID    string `gorm:"index:idx_messages_thread_created,priority:1"`
	SenderID    string
	Body        string
	CreatedAt   time.Time `gorm:"index:idx_messages_thread_created,priority:2"`
	Attachments datatypes.JSON
}

func (messageRow) TableName() string { return "messages" }

// Store wraps the sqlite history cache. All methods are safe for concurrent
// use; gorm serializes access to the underlying connection.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open creates or migrates the cache database at path.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if err := db.AutoMigrate(&threadRow{}, &messageRow{}); err != nil {
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "cache").Logger(),
	}, nil
}

// SaveThreads upserts the latest thread summaries.
func (s *Store) SaveThreads(threads []wire.Thread) error {
	if len(threads) == 0 {
		return nil
	}
	rows := make([]threadRow, 0, len(threads))
	for _, thread := range threads {
		participants, err := json.Marshal(thread.Participants)
		if err != nil {
			return fmt.Errorf("encode participants: %w", err)
		}
		rows = append(rows, threadRow{
			ID:            thread.ID,
			Name:          thread.Name,
			Type:          string(thread.Type),
			LastMessage:   thread.LastMessage,
			LastMessageAt: thread.LastMessageAt,
			UnreadCount:   thread.UnreadCount,
			Participants:  participants,
		})
	}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
}

// Threads returns the cached summaries, most recent activity first.
func (s *Store) Threads() ([]wire.Thread, error) {
	var rows []threadRow
	if err := s.db.Order("last_message_at DESC").Find(&rows).Error; err != nil {
		observability.CacheReads().WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read cached threads: %w", err)
	}
	if len(rows) == 0 {
		observability.CacheReads().WithLabelValues("miss").Inc()
		return nil, nil
	}
	observability.CacheReads().WithLabelValues("hit").Inc()

	out := make([]wire.Thread, 0, len(rows))
	for _, row := range rows {
		thread := wire.Thread{
			ID:            row.ID,
			Name:          row.Name,
			Type:          wire.ThreadType(row.Type),
			LastMessage:   row.LastMessage,
			LastMessageAt: row.LastMessageAt,
			UnreadCount:   row.UnreadCount,
		}
		if len(row.Participants) > 0 {
			if err := json.Unmarshal(row.Participants, &thread.Participants); err != nil {
				s.logger.Warn().Err(err).Str("thread_id", row.ID).Msg("corrupt participants column, dropping")
			}
		}
		out = append(out, thread)
	}
	return out, nil
}

// SaveMessages upserts history for one thread. Message ids are stable across
// refetches, so repeated saves converge instead of duplicating.
func (s *Store) SaveMessages(threadID string, messages []*wire.Message) error {
	if len(messages) == 0 {
		return nil
	}
	rows := make([]messageRow, 0, len(messages))
	for _, message := range messages {
		if message.IsLocalDraft() {
			continue
		}
		attachments, err := json.Marshal(message.Attachments)
		if err != nil {
			return fmt.Errorf("encode attachments: %w", err)
		}
		rows = append(rows, messageRow{
			ID:          message.ID,
			ThreadID:    threadID,
			SenderID:    message.SenderID,
			Body:        message.Body,
			CreatedAt:   message.CreatedAt,
			Attachments: attachments,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
}

// Messages returns cached history for a thread in chronological order,
// limited to the most recent n entries when limit is positive.
func (s *Store) Messages(threadID string, limit int) ([]*wire.Message, error) {
	query := s.db.Where("thread_id = ?", threadID).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []messageRow
	if err := query.Find(&rows).Error; err != nil {
		observability.CacheReads().WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read cached messages: %w", err)
	}
	if len(rows) == 0 {
		observability.CacheReads().WithLabelValues("miss").Inc()
		return nil, nil
	}
	observability.CacheReads().WithLabelValues("hit").Inc()

	out := make([]*wire.Message, len(rows))
	for i, row := range rows {
		message := &wire.Message{
			ID:        row.ID,
			ThreadID:  row.ThreadID,
			SenderID:  row.SenderID,
			Body:      row.Body,
			CreatedAt: row.CreatedAt,
			Status:    wire.StatusDelivered,
		}
		if len(row.Attachments) > 0 {
			if err := json.Unmarshal(row.Attachments, &message.Attachments); err != nil {
				s.logger.Warn().Err(err).Str("message_id", row.ID).Msg("corrupt attachments column, dropping")
			}
		}
		// Rows came back newest first; flip to chronological.
		out[len(rows)-1-i] = message
	}
	return out, nil
}

// Prune deletes messages older than the cutoff across all threads.
func (s *Store) Prune(olderThan time.Time) error {
	return s.db.Where("created_at < ?", olderThan).Delete(&messageRow{}).Error
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
