package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/media-indexer/internal/models"
	"github.com/blockedby/media-indexer/internal/repository"
	"github.com/blockedby/media-indexer/internal/telegram"
)

type staticStatus telegram.Status

func (s staticStatus) GetStatus() telegram.Status { return telegram.Status(s) }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type listingResume struct {
	*memResume
}

func (l listingResume) List(ctx context.Context) ([]models.ResumeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.ResumeRecord
	for chatID, lastID := range l.data {
		out = append(out, models.ResumeRecord{ChatID: chatID, LastID: lastID})
	}
	return out, nil
}

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandler_Health(t *testing.T) {
	ctrl := NewController(newBlockingScanner(), &recordingReporter{}, nil)

	t.Run("ok", func(t *testing.T) {
		router := NewRouter(NewHandler(ctrl, newMemResume(), staticStatus(telegram.StatusReady), pingFunc(func(context.Context) error { return nil })))

		rec := serve(t, router, http.MethodGet, "/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "READY", body["telegram"])
		assert.Equal(t, "ok", body["database"])
	})

	t.Run("database down", func(t *testing.T) {
		router := NewRouter(NewHandler(ctrl, newMemResume(), nil, pingFunc(func(context.Context) error { return errors.New("connection refused") })))

		rec := serve(t, router, http.MethodGet, "/health")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "degraded", decodeBody(t, rec)["status"])
	})
}

func TestHandler_StatusAndCancel(t *testing.T) {
	scanner := newBlockingScanner()
	ctrl := NewController(scanner, &recordingReporter{}, nil)
	router := NewRouter(NewHandler(ctrl, newMemResume(), nil, nil))

	rec := serve(t, router, http.MethodGet, "/api/v1/index/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", decodeBody(t, rec)["status"])

	rec = serve(t, router, http.MethodDelete, "/api/v1/index/current")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	run, err := ctrl.Start(startRequest())
	require.NoError(t, err)
	<-scanner.started

	rec = serve(t, router, http.MethodGet, "/api/v1/index/status")
	body := decodeBody(t, rec)
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, run.ID.String(), body["run_id"])
	assert.Equal(t, "Films", body["title"])

	rec = serve(t, router, http.MethodDelete, "/api/v1/index/current")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	done := make(chan struct{})
	go func() {
		ctrl.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
	assert.True(t, run.Cancelled())
}

func TestHandler_Resume(t *testing.T) {
	store := newMemResume()
	store.data[testChatID] = 812
	ctrl := NewController(newBlockingScanner(), &recordingReporter{}, nil)

	t.Run("get", func(t *testing.T) {
		router := NewRouter(NewHandler(ctrl, store, nil, nil))

		rec := serve(t, router, http.MethodGet, "/api/v1/index/resume/-1001234567890")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(812), decodeBody(t, rec)["last_id"])

		rec = serve(t, router, http.MethodGet, "/api/v1/index/resume/-1009")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = serve(t, router, http.MethodGet, "/api/v1/index/resume/abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list unsupported", func(t *testing.T) {
		router := NewRouter(NewHandler(ctrl, store, nil, nil))

		rec := serve(t, router, http.MethodGet, "/api/v1/index/resume")
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		router := NewRouter(NewHandler(ctrl, listingResume{store}, nil, nil))

		rec := serve(t, router, http.MethodGet, "/api/v1/index/resume")
		assert.Equal(t, http.StatusOK, rec.Code)

		var records []models.ResumeRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
		require.Len(t, records, 1)
		assert.Equal(t, testChatID, records[0].ChatID)
	})
}

type statsFunc func(ctx context.Context) (*repository.MediaStats, error)

func (f statsFunc) GetStats(ctx context.Context) (*repository.MediaStats, error) { return f(ctx) }

func TestHandler_Stats(t *testing.T) {
	ctrl := NewController(newBlockingScanner(), &recordingReporter{}, nil)

	t.Run("not configured", func(t *testing.T) {
		router := NewRouter(NewHandler(ctrl, newMemResume(), nil, nil))
		rec := serve(t, router, http.MethodGet, "/api/v1/index/stats")
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		h := NewHandler(ctrl, newMemResume(), nil, nil).WithStats(statsFunc(func(context.Context) (*repository.MediaStats, error) {
			return &repository.MediaStats{TotalFiles: 3, Videos: 2, Documents: 1, Channels: 1}, nil
		}))

		rec := serve(t, NewRouter(h), http.MethodGet, "/api/v1/index/stats")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(3), body["total_files"])
		assert.Equal(t, float64(2), body["videos"])
	})

	t.Run("error", func(t *testing.T) {
		h := NewHandler(ctrl, newMemResume(), nil, nil).WithStats(statsFunc(func(context.Context) (*repository.MediaStats, error) {
			return nil, errors.New("db closed")
		}))

		rec := serve(t, NewRouter(h), http.MethodGet, "/api/v1/index/stats")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "db closed", decodeBody(t, rec)["error"])
	})
}

type mediaMap map[string]*models.MediaFile

func (m mediaMap) GetByID(ctx context.Context, fileID string) (*models.MediaFile, error) {
	return m[fileID], nil
}

func (m mediaMap) CountByChat(ctx context.Context, chatID int64) (int64, error) {
	var n int64
	for _, f := range m {
		if f.ChatID == chatID {
			n++
		}
	}
	return n, nil
}

type connected bool

func (c connected) IsConnected() bool { return bool(c) }

func TestHandler_Media(t *testing.T) {
	ctrl := NewController(newBlockingScanner(), &recordingReporter{}, nil)
	media := mediaMap{
		"5301": {FileID: "5301", FileName: "movie.mkv", Kind: models.MediaVideo, ChatID: testChatID, MessageID: 42},
		"5302": {FileID: "5302", Kind: models.MediaDocument, ChatID: testChatID, MessageID: 43},
		"9":    {FileID: "9", ChatID: -1009},
	}

	t.Run("not configured", func(t *testing.T) {
		router := NewRouter(NewHandler(ctrl, newMemResume(), nil, nil))
		rec := serve(t, router, http.MethodGet, "/api/v1/index/media/5301")
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})

	t.Run("get", func(t *testing.T) {
		router := NewRouter(NewHandler(ctrl, newMemResume(), nil, nil).WithMedia(media))

		rec := serve(t, router, http.MethodGet, "/api/v1/index/media/5301")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "movie.mkv", body["file_name"])
		assert.Equal(t, float64(42), body["message_id"])

		rec = serve(t, router, http.MethodGet, "/api/v1/index/media/404")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("resume includes indexed files", func(t *testing.T) {
		store := newMemResume()
		store.data[testChatID] = 812
		router := NewRouter(NewHandler(ctrl, store, nil, nil).WithMedia(media))

		rec := serve(t, router, http.MethodGet, "/api/v1/index/resume/-1001234567890")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(812), body["last_id"])
		assert.Equal(t, float64(2), body["indexed_files"])
	})
}

func TestHandler_HealthReportsEvents(t *testing.T) {
	ctrl := NewController(newBlockingScanner(), &recordingReporter{}, nil)

	rec := serve(t, NewRouter(NewHandler(ctrl, newMemResume(), nil, nil).WithEvents(connected(false))), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disconnected", decodeBody(t, rec)["nats"])

	rec = serve(t, NewRouter(NewHandler(ctrl, newMemResume(), nil, nil).WithEvents(connected(true))), http.MethodGet, "/health")
	assert.Equal(t, "ok", decodeBody(t, rec)["nats"])
}
