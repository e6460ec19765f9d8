package indexer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/blockedby/media-indexer/internal/logger"
	"github.com/blockedby/media-indexer/internal/models"
	"github.com/blockedby/media-indexer/internal/telegram"
)

// DefaultProgressEvery is how many processed messages pass between progress reports.
const DefaultProgressEvery = 50

// Fetcher fetches single channel messages
type Fetcher interface {
	GetMessage(ctx context.Context, chatID int64, msgID int) (*telegram.Message, error)
}

// ResumeStore persists the resume cursor of each channel
type ResumeStore interface {
	Get(ctx context.Context, chatID int64) (lastID int, found bool, err error)
	Set(ctx context.Context, chatID int64, lastID int) error
}

// Saver stores media file metadata
type Saver interface {
	Save(ctx context.Context, file *models.MediaFile) models.SaveResult
}

// ProgressFunc receives periodic progress while a run scans.
type ProgressFunc func(ctx context.Context, snap Snapshot) error

// Result is the outcome of a scan that was not aborted.
type Result struct {
	Counters  Counters
	Stop      int
	Cursor    int // first id not visited
	Cancelled bool
}

// Scanner walks a channel backward one message at a time.
type Scanner struct {
	fetcher       Fetcher
	resume        ResumeStore
	saver         Saver
	publisher     EventPublisher
	log           *logger.Logger
	progressEvery int

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewScanner creates a scanner. publisher may be nil.
func NewScanner(fetcher Fetcher, resume ResumeStore, saver Saver, publisher EventPublisher, progressEvery int) *Scanner {
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}
	return &Scanner{
		fetcher:       fetcher,
		resume:        resume,
		saver:         saver,
		publisher:     publisher,
		log:           logger.Get().Component("scanner"),
		progressEvery: progressEvery,
		sleep:         sleepCtx,
		now:           time.Now,
	}
}

// Scan walks ids from run.LastID-run.Skip down to the stored resume cursor
// (exclusive). Flood waits are slept out and the same id is retried; other
// fetch errors skip the id. A run that is not cancelled stores run.LastID as
// the new resume cursor. Any returned error means the run was aborted and the
// cursor was left untouched.
func (s *Scanner) Scan(ctx context.Context, run *Run, progress ProgressFunc) (*Result, error) {
	stop, found, err := s.resume.Get(ctx, run.ChatID)
	if err != nil {
		return nil, fmt.Errorf("load resume cursor: %w", err)
	}
	if !found || stop < 0 {
		stop = 0
	}
	run.setStop(stop)

	log := s.log.With().Str("run_id", run.ID.String()).Int64("chat_id", run.ChatID).Logger()
	log.Info().Int("last_id", run.LastID).Int("stop_id", stop).Msg("scan started")

	var (
		c         Counters
		cancelled bool
		current   = run.LastID - run.Skip
	)

	for current > stop {
		if run.Cancelled() {
			cancelled = true
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := s.fetcher.GetMessage(ctx, run.ChatID, current)
		if err != nil {
			if wait, ok := telegram.FloodWait(err); ok {
				log.Warn().Int("msg_id", current).Dur("wait", wait).Msg("flood wait, retrying same message")
				if err := s.sleep(ctx, wait); err != nil {
					return nil, err
				}
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Debug().Err(err).Int("msg_id", current).Msg("fetch failed, skipping message")
			current--
			continue
		}

		c.Processed++
		run.update(current, c)

		if progress != nil && c.Processed%s.progressEvery == 0 {
			if err := progress(ctx, run.Snapshot(s.now())); err != nil && !telegram.IsNotModified(err) {
				return nil, fmt.Errorf("progress report: %w", err)
			}
		}

		if !msg.HasMedia() || !msg.Kind.Indexable() {
			c.NoMedia++
			current--
			continue
		}
		if msg.Media == nil {
			current--
			continue
		}

		file := mediaFile(run.ChatID, msg, s.now())
		res := s.saver.Save(ctx, file)
		switch res.Outcome {
		case models.OutcomeSaved:
			c.Saved++
			s.publishIndexed(ctx, run, file)
		case models.OutcomeDuplicate:
			c.Duplicate++
		default:
			c.Failed++
			log.Warn().Int("msg_id", current).Str("file_id", file.FileID).Str("reason", res.Reason).Msg("save failed")
		}
		current--
	}

	run.update(current, c)

	// a stop pressed during the last fetch still counts
	cancelled = cancelled || run.Cancelled()

	if !cancelled {
		if err := s.resume.Set(ctx, run.ChatID, run.LastID); err != nil {
			return nil, fmt.Errorf("save resume cursor: %w", err)
		}
	}

	log.Info().
		Int("processed", c.Processed).
		Int("saved", c.Saved).
		Int("duplicate", c.Duplicate).
		Int("failed", c.Failed).
		Int("no_media", c.NoMedia).
		Bool("cancelled", cancelled).
		Msg("scan finished")

	return &Result{Counters: c, Stop: stop, Cursor: current, Cancelled: cancelled}, nil
}

func (s *Scanner) publishIndexed(ctx context.Context, run *Run, file *models.MediaFile) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishMediaIndexed(ctx, MediaIndexedEvent{
		RunID:     run.ID,
		ChatID:    file.ChatID,
		MessageID: file.MessageID,
		FileID:    file.FileID,
		FileName:  file.FileName,
		FileSize:  file.FileSize,
		MimeType:  file.MimeType,
		Kind:      file.Kind,
		IndexedAt: file.CreatedAt,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("file_id", file.FileID).Msg("failed to publish media event")
	}
}

// mediaFile converts the message attachment, caption included.
func mediaFile(chatID int64, msg *telegram.Message, now time.Time) *models.MediaFile {
	m := msg.Media
	return &models.MediaFile{
		FileID:        m.FileID,
		AccessHash:    m.AccessHash,
		FileReference: m.FileReference,
		FileName:      m.FileName,
		FileSize:      m.Size,
		MimeType:      m.MimeType,
		Duration:      int(math.Round(m.Duration)),
		Width:         m.Width,
		Height:        m.Height,
		Kind:          msg.Kind,
		Caption:       msg.Text,
		ChatID:        chatID,
		MessageID:     msg.ID,
		CreatedAt:     now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
