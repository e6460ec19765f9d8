package indexer

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// SnapshotInput is the raw state a Snapshot is computed from.
type SnapshotInput struct {
	RunID     uuid.UUID
	ChatID    int64
	Title     string
	Counters  Counters
	Current   int
	Stop      int
	Elapsed   time.Duration
	Cancelled bool
}

// Snapshot is the progress of a run with derived throughput and ETA.
type Snapshot struct {
	RunID     uuid.UUID     `json:"run_id"`
	ChatID    int64         `json:"chat_id"`
	Title     string        `json:"title"`
	Counters  Counters      `json:"counters"`
	Current   int           `json:"current_id"`
	Stop      int           `json:"stop_id"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Speed     float64       `json:"speed"` // processed messages per second
	ETA       time.Duration `json:"eta_ns"`
	Cancelled bool          `json:"cancelled"`
}

// NewSnapshot derives speed = processed/elapsed and ETA = (current-stop)/speed,
// with a zero ETA while the speed is zero.
func NewSnapshot(in SnapshotInput) Snapshot {
	s := Snapshot{
		RunID:     in.RunID,
		ChatID:    in.ChatID,
		Title:     in.Title,
		Counters:  in.Counters,
		Current:   in.Current,
		Stop:      in.Stop,
		Elapsed:   in.Elapsed,
		Cancelled: in.Cancelled,
	}
	if secs := in.Elapsed.Seconds(); secs > 0 {
		s.Speed = float64(in.Counters.Processed) / secs
	}
	if s.Speed > 0 {
		remaining := float64(in.Current - in.Stop)
		if remaining > 0 {
			s.ETA = time.Duration(remaining / s.Speed * float64(time.Second))
		}
	}
	return s
}

// ProgressText is the periodic status shown while scanning.
func (s Snapshot) ProgressText() string {
	c := s.Counters
	return fmt.Sprintf(
		"📊 %s scanned\n✅ %s | ♻️ %s | ❌ %s\n⚡ %.2f/s\n⏳ %s",
		humanize.Comma(int64(c.Processed)),
		humanize.Comma(int64(c.Saved)),
		humanize.Comma(int64(c.Duplicate)),
		humanize.Comma(int64(c.Failed)),
		s.Speed,
		FormatDuration(s.ETA),
	)
}

// SummaryText is the final status of a finished run.
func (s Snapshot) SummaryText() string {
	c := s.Counters
	return fmt.Sprintf(
		"%s\n\n📢 %s\n🆔 %d\n\n✅ %s | ♻️ %s | ❌ %s | 🚫 %s\n⏱ %s",
		s.title(),
		s.Title,
		s.ChatID,
		humanize.Comma(int64(c.Saved)),
		humanize.Comma(int64(c.Duplicate)),
		humanize.Comma(int64(c.Failed)),
		humanize.Comma(int64(c.NoMedia)),
		FormatDuration(s.Elapsed),
	)
}

// ReportText is the audit log entry of a finished run.
func (s Snapshot) ReportText() string {
	c := s.Counters
	var b strings.Builder
	b.WriteString("📊 Index Report\n\n")
	fmt.Fprintf(&b, "📢 Channel: %s\n", s.Title)
	fmt.Fprintf(&b, "🆔 Channel ID: %d\n", s.ChatID)
	if s.Cancelled {
		b.WriteString("🛑 Stopped early\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "✅ Saved: %s\n", humanize.Comma(int64(c.Saved)))
	fmt.Fprintf(&b, "♻️ Duplicate: %s\n", humanize.Comma(int64(c.Duplicate)))
	fmt.Fprintf(&b, "❌ Errors: %s\n", humanize.Comma(int64(c.Failed)))
	fmt.Fprintf(&b, "🚫 Non-media: %s\n", humanize.Comma(int64(c.NoMedia)))
	fmt.Fprintf(&b, "⏱ Time: %s", FormatDuration(s.Elapsed))
	return b.String()
}

func (s Snapshot) title() string {
	if s.Cancelled {
		return "🛑 Index Stopped"
	}
	return "✅ Index Completed"
}

// FormatDuration renders d as "1d 2h 3m 4s", dropping zero parts.
func FormatDuration(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	if secs <= 0 {
		return "0s"
	}

	units := []struct {
		suffix string
		size   int64
	}{
		{"d", 86400},
		{"h", 3600},
		{"m", 60},
		{"s", 1},
	}

	parts := make([]string, 0, len(units))
	for _, u := range units {
		if n := secs / u.size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, u.suffix))
			secs %= u.size
		}
	}
	return strings.Join(parts, " ")
}
