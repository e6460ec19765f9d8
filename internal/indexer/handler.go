package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blockedby/media-indexer/internal/models"
	"github.com/blockedby/media-indexer/internal/repository"
	"github.com/blockedby/media-indexer/internal/telegram"
)

// StatusProvider reports the bot connection status
type StatusProvider interface {
	GetStatus() telegram.Status
}

// Pinger checks a storage backend
type Pinger interface {
	Ping(ctx context.Context) error
}

// ResumeLister lists all stored resume cursors
type ResumeLister interface {
	List(ctx context.Context) ([]models.ResumeRecord, error)
}

// StatsProvider aggregates the stored media
type StatsProvider interface {
	GetStats(ctx context.Context) (*repository.MediaStats, error)
}

// MediaLookup reads stored media files
type MediaLookup interface {
	GetByID(ctx context.Context, fileID string) (*models.MediaFile, error)
	CountByChat(ctx context.Context, chatID int64) (int64, error)
}

// Connector reports whether the event bus is reachable
type Connector interface {
	IsConnected() bool
}

// Handler handles HTTP requests for the admin api
type Handler struct {
	controller *Controller
	resume     ResumeStore
	bot        StatusProvider
	db         Pinger
	stats      StatsProvider
	media      MediaLookup
	events     Connector
}

// NewHandler creates a new handler. bot and db may be nil.
func NewHandler(controller *Controller, resume ResumeStore, bot StatusProvider, db Pinger) *Handler {
	return &Handler{
		controller: controller,
		resume:     resume,
		bot:        bot,
		db:         db,
	}
}

// WithStats enables GET /api/v1/index/stats.
func (h *Handler) WithStats(stats StatsProvider) *Handler {
	h.stats = stats
	return h
}

// WithMedia enables GET /api/v1/index/media/{fileID} and file counts on resume lookups.
func (h *Handler) WithMedia(media MediaLookup) *Handler {
	h.media = media
	return h
}

// WithEvents adds the event bus to the health report.
func (h *Handler) WithEvents(events Connector) *Handler {
	h.events = events
	return h
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}
	code := http.StatusOK

	if h.bot != nil {
		resp["telegram"] = string(h.bot.GetStatus())
	}
	if h.events != nil {
		// informational, never degrades health
		resp["nats"] = "disconnected"
		if h.events.IsConnected() {
			resp["nats"] = "ok"
		}
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			resp["status"] = "degraded"
			resp["database"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			resp["database"] = "ok"
		}
	}

	respondJSON(w, code, resp)
}

// Status handles GET /api/v1/index/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	run := h.controller.Current()
	if run == nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "idle"})
		return
	}

	snap := run.Snapshot(time.Now())
	status := "running"
	if snap.Cancelled {
		status = "stopping"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"run_id":     run.ID.String(),
		"chat_id":    run.ChatID,
		"title":      run.Title,
		"last_id":    run.LastID,
		"started_at": run.StartedAt.Format(time.RFC3339),
		"current_id": snap.Current,
		"stop_id":    snap.Stop,
		"counters":   snap.Counters,
		"speed":      snap.Speed,
		"eta":        FormatDuration(snap.ETA),
		"elapsed":    FormatDuration(snap.Elapsed),
	})
}

// Cancel handles DELETE /api/v1/index/current
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !h.controller.Cancel() {
		respondError(w, http.StatusNotFound, "no index run is active")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"message": "index run stopping",
	})
}

// GetResume handles GET /api/v1/index/resume/{chatID}
func (h *Handler) GetResume(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	lastID, found, err := h.resume.Get(r.Context(), chatID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "no resume cursor for chat")
		return
	}

	resp := map[string]int64{
		"chat_id": chatID,
		"last_id": int64(lastID),
	}
	if h.media != nil {
		n, err := h.media.CountByChat(r.Context(), chatID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["indexed_files"] = n
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetMedia handles GET /api/v1/index/media/{fileID}
func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		respondError(w, http.StatusNotImplemented, "media lookup is not available")
		return
	}

	file, err := h.media.GetByID(r.Context(), chi.URLParam(r, "fileID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if file == nil {
		respondError(w, http.StatusNotFound, "media file not found")
		return
	}
	respondJSON(w, http.StatusOK, file)
}

// ListResume handles GET /api/v1/index/resume
func (h *Handler) ListResume(w http.ResponseWriter, r *http.Request) {
	lister, ok := h.resume.(ResumeLister)
	if !ok {
		respondError(w, http.StatusNotImplemented, "resume store cannot list cursors")
		return
	}

	records, err := lister.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// Stats handles GET /api/v1/index/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		respondError(w, http.StatusNotImplemented, "stats are not available")
		return
	}

	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
