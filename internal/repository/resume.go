package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blockedby/media-indexer/internal/models"
)

// ResumeRepository handles the index_resume table.
type ResumeRepository struct {
	db *gorm.DB
}

// NewResumeRepository creates a new resume repository
func NewResumeRepository(db *gorm.DB) *ResumeRepository {
	return &ResumeRepository{db: db}
}

// Get returns the resume cursor of a channel; found is false when the channel was never indexed.
func (r *ResumeRepository) Get(ctx context.Context, chatID int64) (lastID int, found bool, err error) {
	var rec models.ResumeRecord
	err = r.db.WithContext(ctx).Where("chat_id = ?", chatID).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get resume cursor: %w", err)
	}
	return rec.LastID, true, nil
}

// Set upserts the resume cursor of a channel.
func (r *ResumeRepository) Set(ctx context.Context, chatID int64, lastID int) error {
	rec := models.ResumeRecord{
		ChatID:    chatID,
		LastID:    lastID,
		UpdatedAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_id", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("set resume cursor: %w", err)
	}
	return nil
}

// List returns all resume cursors, most recently updated first.
func (r *ResumeRepository) List(ctx context.Context) ([]models.ResumeRecord, error) {
	var recs []models.ResumeRecord
	if err := r.db.WithContext(ctx).Order("updated_at DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list resume cursors: %w", err)
	}
	return recs, nil
}
