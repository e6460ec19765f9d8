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

// MediaRepository stores indexed media metadata in the media_files table.
type MediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Save inserts the file unless a file with the same id is already stored.
// It never returns an error: storage faults are reported as a Failed result.
func (r *MediaRepository) Save(ctx context.Context, file *models.MediaFile) models.SaveResult {
	if file == nil || file.FileID == "" {
		return models.Failed("missing file id")
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "file_id"}}, DoNothing: true}).
		Create(file)
	if res.Error != nil {
		return models.Failed(res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return models.Duplicate()
	}
	return models.Saved()
}

// GetByID returns a stored file or nil if it does not exist.
func (r *MediaRepository) GetByID(ctx context.Context, fileID string) (*models.MediaFile, error) {
	var file models.MediaFile
	err := r.db.WithContext(ctx).Where("file_id = ?", fileID).Take(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get media file: %w", err)
	}
	return &file, nil
}

// CountByChat returns how many files were indexed from a channel.
func (r *MediaRepository) CountByChat(ctx context.Context, chatID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.MediaFile{}).Where("chat_id = ?", chatID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count media files: %w", err)
	}
	return n, nil
}
