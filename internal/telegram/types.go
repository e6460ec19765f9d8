package telegram

import (
	"time"

	"github.com/blockedby/media-indexer/internal/models"
)

// ChatType is the kind of a telegram chat.
type ChatType string

// ChatType constants.
const (
	ChatTypeChannel    ChatType = "channel"    // broadcast channel
	ChatTypeSupergroup ChatType = "supergroup" // megagroup or gigagroup
	ChatTypeGroup      ChatType = "group"      // basic group
	ChatTypeUser       ChatType = "user"
)

// Channel represents a telegram chat as seen by the bot
type Channel struct {
	ID         int64    // raw id, without the -100 prefix
	AccessHash int64    // access hash for api calls
	Username   string   // public username (without @), may be empty
	Title      string   // chat title or user name
	Type       ChatType // channel, supergroup, group or user
}

// IsChannel reports whether the chat is a broadcast channel.
func (c *Channel) IsChannel() bool {
	return c.Type == ChatTypeChannel
}

// FullID returns the signed chat id in the form bot clients use (-100... for channels).
func (c *Channel) FullID() int64 {
	switch c.Type {
	case ChatTypeChannel, ChatTypeSupergroup:
		return FullChannelID(c.ID)
	case ChatTypeGroup:
		return -c.ID
	default:
		return c.ID
	}
}

// Message represents a parsed telegram message
type Message struct {
	ID      int              // message id (unique within chat)
	ChatID  int64            // full chat id
	Text    string           // text, or caption of a media message
	Date    time.Time        // creation timestamp
	Kind    models.MediaKind // attachment kind, empty when the message has no media
	Media   *Media           // attachment details, nil when missing or not a file
	Forward *ForwardOrigin   // set for messages forwarded from a channel
}

// HasMedia reports whether the message carries an attachment of any kind.
func (m *Message) HasMedia() bool {
	return m != nil && m.Kind != models.MediaNone
}

// Media describes a file attached to a message
type Media struct {
	FileID        string
	AccessHash    int64
	FileReference []byte
	FileName      string
	MimeType      string
	Size          int64
	Duration      float64 // seconds, for video and audio
	Width         int
	Height        int
}

// ForwardOrigin is the channel post a message was forwarded from.
type ForwardOrigin struct {
	ChannelID int64 // full channel id
	MessageID int   // channel post id
}

// Button is an inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}
