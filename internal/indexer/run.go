package indexer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Counters are the per-run tallies shown in reports.
type Counters struct {
	Processed int `json:"processed"`
	Saved     int `json:"saved"`
	Duplicate int `json:"duplicate"`
	Failed    int `json:"failed"`
	NoMedia   int `json:"no_media"`
}

// StatusMessage is the bot message a run edits to report progress.
type StatusMessage struct {
	ChatID int64
	MsgID  int
}

// StartRequest describes a confirmed run.
type StartRequest struct {
	ChatID int64
	Title  string
	LastID int
	Skip   int
	Status StatusMessage
}

// Run is the state of one indexing run. It carries its own cancel flag;
// the scanner polls it once per message.
type Run struct {
	ID        uuid.UUID
	ChatID    int64
	Title     string
	LastID    int
	Skip      int
	Status    StatusMessage
	StartedAt time.Time

	cancelled atomic.Bool

	mu       sync.RWMutex
	counters Counters
	current  int
	stop     int
}

// NewRun creates a run for a confirmed request.
func NewRun(req StartRequest, now time.Time) *Run {
	return &Run{
		ID:        uuid.New(),
		ChatID:    req.ChatID,
		Title:     req.Title,
		LastID:    req.LastID,
		Skip:      req.Skip,
		Status:    req.Status,
		StartedAt: now,
		current:   req.LastID - req.Skip,
	}
}

// Cancel asks the scanner to stop after the current message.
func (r *Run) Cancel() {
	r.cancelled.Store(true)
}

// Cancelled reports whether Cancel was called.
func (r *Run) Cancelled() bool {
	return r.cancelled.Load()
}

func (r *Run) setStop(stop int) {
	r.mu.Lock()
	r.stop = stop
	r.mu.Unlock()
}

func (r *Run) update(current int, c Counters) {
	r.mu.Lock()
	r.current = current
	r.counters = c
	r.mu.Unlock()
}

// Snapshot captures the progress of the run at now.
func (r *Run) Snapshot(now time.Time) Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return NewSnapshot(SnapshotInput{
		RunID:     r.ID,
		ChatID:    r.ChatID,
		Title:     r.Title,
		Counters:  r.counters,
		Current:   r.current,
		Stop:      r.stop,
		Elapsed:   now.Sub(r.StartedAt),
		Cancelled: r.Cancelled(),
	})
}
