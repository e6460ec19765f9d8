package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/media-indexer/internal/models"
)

func TestMediaRepository_Save(t *testing.T) {
	ctx := context.Background()
	repo := NewMediaRepository(setupTestDB(t))

	file := &models.MediaFile{
		FileID:    "5301",
		FileName:  "movie.mkv",
		FileSize:  1 << 20,
		MimeType:  "video/x-matroska",
		Kind:      models.MediaVideo,
		Duration:  1500,
		Width:     1920,
		Height:    1080,
		Caption:   "a caption",
		ChatID:    -1001,
		MessageID: 42,
	}

	res := repo.Save(ctx, file)
	assert.Equal(t, models.OutcomeSaved, res.Outcome)

	again := *file
	again.MessageID = 43
	res = repo.Save(ctx, &again)
	assert.Equal(t, models.OutcomeDuplicate, res.Outcome)

	stored, err := repo.GetByID(ctx, "5301")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 42, stored.MessageID, "duplicate must not overwrite the first copy")
	assert.Equal(t, "a caption", stored.Caption)
	assert.Equal(t, 1500, stored.Duration)
	assert.Equal(t, 1920, stored.Width)
	assert.Equal(t, 1080, stored.Height)

	n, err := repo.CountByChat(ctx, -1001)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMediaRepository_SaveWithoutID(t *testing.T) {
	repo := NewMediaRepository(setupTestDB(t))

	res := repo.Save(context.Background(), &models.MediaFile{FileName: "x"})
	assert.Equal(t, models.OutcomeFailed, res.Outcome)
	assert.NotEmpty(t, res.Reason)
}

func TestMediaRepository_GetByIDMissing(t *testing.T) {
	repo := NewMediaRepository(setupTestDB(t))

	file, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, file)
}
