package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/blockedby/media-indexer/internal/models"
)

// MediaStats contains aggregated statistics of the indexed files.
type MediaStats struct {
	TotalFiles int64 `json:"total_files"`
	Videos     int64 `json:"videos"`
	Documents  int64 `json:"documents"`
	TotalSize  int64 `json:"total_size"`
	Channels   int64 `json:"channels"`
	TodayFiles int64 `json:"today_files"`
}

// StatsRepository provides access to statistics data in the database.
type StatsRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db, now: time.Now}
}

// GetStats retrieves aggregated statistics of the media_files table.
func (r *StatsRepository) GetStats(ctx context.Context) (*MediaStats, error) {
	stats := &MediaStats{}
	midnight := r.now().UTC().Truncate(24 * time.Hour)

	// Aggregated query for files
	err := r.db.WithContext(ctx).Model(&models.MediaFile{}).
		Select(`
			COUNT(*) AS total_files,
			COUNT(CASE WHEN kind = ? THEN 1 END) AS videos,
			COUNT(CASE WHEN kind = ? THEN 1 END) AS documents,
			COALESCE(SUM(file_size), 0) AS total_size,
			COUNT(DISTINCT chat_id) AS channels,
			COUNT(CASE WHEN created_at >= ? THEN 1 END) AS today_files
		`, models.MediaVideo, models.MediaDocument, midnight).
		Scan(stats).Error
	if err != nil {
		return nil, fmt.Errorf("get media stats: %w", err)
	}

	return stats, nil
}
