package indexer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/media-indexer/internal/models"
)

// EventPublisher publishes indexing events
type EventPublisher interface {
	PublishMediaIndexed(ctx context.Context, event MediaIndexedEvent) error
	PublishIndexCompleted(ctx context.Context, event IndexCompletedEvent) error
}

// MediaIndexedEvent is published for every newly stored file
type MediaIndexedEvent struct {
	RunID     uuid.UUID        `json:"run_id"`
	ChatID    int64            `json:"chat_id"`
	MessageID int              `json:"message_id"`
	FileID    string           `json:"file_id"`
	FileName  string           `json:"file_name"`
	FileSize  int64            `json:"file_size"`
	MimeType  string           `json:"mime_type"`
	Kind      models.MediaKind `json:"kind"`
	IndexedAt time.Time        `json:"indexed_at"`
}

// IndexCompletedEvent is published when a run ends, successfully or not
type IndexCompletedEvent struct {
	RunID      uuid.UUID `json:"run_id"`
	ChatID     int64     `json:"chat_id"`
	Title      string    `json:"title"`
	LastID     int       `json:"last_id"`
	Counters   Counters  `json:"counters"`
	Cancelled  bool      `json:"cancelled"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
