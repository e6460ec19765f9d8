package models

import "time"

// MediaKind is the kind of attachment a message carries.
type MediaKind string

// MediaKind constants follow the classification telegram clients show to users.
const (
	MediaNone      MediaKind = ""
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaDocument  MediaKind = "document"
	MediaAudio     MediaKind = "audio"
	MediaVoice     MediaKind = "voice"
	MediaAnimation MediaKind = "animation"
	MediaVideoNote MediaKind = "video_note"
	MediaSticker   MediaKind = "sticker"
	MediaOther     MediaKind = "other"
)

// Indexable reports whether files of this kind are stored by the indexer.
func (k MediaKind) Indexable() bool {
	return k == MediaVideo || k == MediaDocument
}

// MediaFile is the stored metadata of an indexed file.
type MediaFile struct {
	FileID        string    `json:"file_id" gorm:"primaryKey;column:file_id"`
	AccessHash    int64     `json:"access_hash" gorm:"column:access_hash"`
	FileReference []byte    `json:"-" gorm:"column:file_reference"`
	FileName      string    `json:"file_name" gorm:"column:file_name;index"`
	FileSize      int64     `json:"file_size" gorm:"column:file_size"`
	MimeType      string    `json:"mime_type" gorm:"column:mime_type"`
	Duration      int       `json:"duration,omitempty" gorm:"column:duration"` // seconds
	Width         int       `json:"width,omitempty" gorm:"column:width"`
	Height        int       `json:"height,omitempty" gorm:"column:height"`
	Kind          MediaKind `json:"kind" gorm:"column:kind"`
	Caption       string    `json:"caption,omitempty" gorm:"column:caption"`
	ChatID        int64     `json:"chat_id" gorm:"column:chat_id"`
	MessageID     int       `json:"message_id" gorm:"column:message_id"`
	CreatedAt     time.Time `json:"created_at" gorm:"column:created_at"`
}

// TableName pins the table name shared with the SQL migrations.
func (MediaFile) TableName() string {
	return "media_files"
}

// SaveOutcome classifies the result of storing a media file.
type SaveOutcome int

// SaveOutcome values.
const (
	OutcomeSaved SaveOutcome = iota
	OutcomeDuplicate
	OutcomeFailed
)

func (o SaveOutcome) String() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// SaveResult is the result of a save; Reason is set only for failures.
type SaveResult struct {
	Outcome SaveOutcome
	Reason  string
}

// Saved is the result of a newly stored file.
func Saved() SaveResult { return SaveResult{Outcome: OutcomeSaved} }

// Duplicate is the result of a file that was already stored.
func Duplicate() SaveResult { return SaveResult{Outcome: OutcomeDuplicate} }

// Failed is the result of a file that could not be stored.
func Failed(reason string) SaveResult { return SaveResult{Outcome: OutcomeFailed, Reason: reason} }
