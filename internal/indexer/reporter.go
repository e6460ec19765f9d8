package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/blockedby/media-indexer/internal/logger"
	"github.com/blockedby/media-indexer/internal/telegram"
)

// DefaultDeleteAfter is how long a final summary stays visible.
const DefaultDeleteAfter = 120 * time.Second

// bot texts
const (
	TextStarted        = "⚡ Indexing started…"
	TextAlreadyRunning = "⏳ Indexing already running"
	TextClosed         = "❌ Cancelled"
	TextStopping       = "Stopping…"
	TextNotRunning     = "Nothing is running"
)

// Messenger sends, edits and deletes bot messages
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, buttons [][]telegram.Button) (int, error)
	EditText(ctx context.Context, chatID int64, msgID int, text string, buttons [][]telegram.Button) error
	DeleteMessage(ctx context.Context, chatID int64, msgID int) error
}

// ReporterConfig configures the status reporter.
type ReporterConfig struct {
	LogChannel  int64         // audit channel, 0 disables
	DeleteAfter time.Duration // summary lifetime, 0 keeps it
}

// StatusReporter renders run state into the status message and the audit channel.
type StatusReporter struct {
	messenger   Messenger
	logChannel  int64
	deleteAfter time.Duration
	log         *logger.Logger
}

// NewStatusReporter creates a reporter.
func NewStatusReporter(m Messenger, cfg ReporterConfig) *StatusReporter {
	return &StatusReporter{
		messenger:   m,
		logChannel:  cfg.LogChannel,
		deleteAfter: cfg.DeleteAfter,
		log:         logger.Get().Component("reporter"),
	}
}

// StopKeyboard is the single button shown while a run is active.
func StopKeyboard() [][]telegram.Button {
	return [][]telegram.Button{{{Text: "🛑 STOP", Data: Action{Kind: ActionCancel}.Encode()}}}
}

// ConfirmKeyboard asks the operator to start or dismiss a run.
func ConfirmKeyboard(t *Target) [][]telegram.Button {
	return [][]telegram.Button{
		{{Text: "✅ START INDEXING", Data: StartAction(t.ChatID, t.LastID, 0).Encode()}},
		{{Text: "❌ CANCEL", Data: Action{Kind: ActionClose}.Encode()}},
	}
}

// ConfirmText describes the target awaiting confirmation.
func ConfirmText(t *Target) string {
	return fmt.Sprintf("📢 Channel: %s\n🆔 ID: %d\n📊 Last Message: %d", t.Title, t.ChatID, t.LastID)
}

// ErrorText is the reply for a failed resolution.
func ErrorText(err error) string {
	return "❌ Error: " + err.Error()
}

// Started marks the status message as running.
func (r *StatusReporter) Started(ctx context.Context, msg StatusMessage) error {
	return r.edit(ctx, msg, TextStarted, StopKeyboard())
}

// Progress shows the periodic status. Errors are returned unfiltered.
func (r *StatusReporter) Progress(ctx context.Context, msg StatusMessage, snap Snapshot) error {
	return r.messenger.EditText(ctx, msg.ChatID, msg.MsgID, snap.ProgressText(), StopKeyboard())
}

// Finished shows the summary, schedules its deletion and sends the audit log.
func (r *StatusReporter) Finished(ctx context.Context, msg StatusMessage, snap Snapshot) error {
	if err := r.edit(ctx, msg, snap.SummaryText(), nil); err != nil {
		return err
	}
	r.scheduleDelete(msg)
	r.sendLog(ctx, snap.ReportText())
	return nil
}

// Failed reports an aborted run.
func (r *StatusReporter) Failed(ctx context.Context, msg StatusMessage, cause error) error {
	return r.edit(ctx, msg, "❌ Failed: "+cause.Error(), nil)
}

func (r *StatusReporter) edit(ctx context.Context, msg StatusMessage, text string, buttons [][]telegram.Button) error {
	err := r.messenger.EditText(ctx, msg.ChatID, msg.MsgID, text, buttons)
	if err != nil && !telegram.IsNotModified(err) {
		return fmt.Errorf("edit status message: %w", err)
	}
	return nil
}

func (r *StatusReporter) scheduleDelete(msg StatusMessage) {
	if r.deleteAfter <= 0 {
		return
	}
	time.AfterFunc(r.deleteAfter, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.messenger.DeleteMessage(ctx, msg.ChatID, msg.MsgID); err != nil {
			r.log.Debug().Err(err).Int("msg_id", msg.MsgID).Msg("auto delete failed")
		}
	})
}

func (r *StatusReporter) sendLog(ctx context.Context, text string) {
	if r.logChannel == 0 {
		return
	}
	if _, err := r.messenger.SendText(ctx, r.logChannel, text, nil); err != nil {
		r.log.Debug().Err(err).Int64("channel", r.logChannel).Msg("audit log failed")
	}
}
