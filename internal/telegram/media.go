package telegram

import (
	"strconv"
	"time"

	"github.com/gotd/td/tg"

	"github.com/blockedby/media-indexer/internal/models"
)

// ParseMessage converts a raw telegram message to our Message type.
func ParseMessage(m *tg.Message, chatID int64) *Message {
	msg := &Message{
		ID:     m.ID,
		ChatID: chatID,
		Text:   m.Message,
		Date:   time.Unix(int64(m.Date), 0),
	}

	if fwd, ok := m.GetFwdFrom(); ok {
		if pc, ok := fwd.FromID.(*tg.PeerChannel); ok {
			msg.Forward = &ForwardOrigin{
				ChannelID: FullChannelID(pc.ChannelID),
				MessageID: fwd.ChannelPost,
			}
		}
	}

	msg.Kind, msg.Media = parseMedia(m.Media)
	return msg
}

// parseMedia classifies the attachment; the returned Media is nil unless the
// attachment is a document object.
func parseMedia(media tg.MessageMediaClass) (models.MediaKind, *Media) {
	switch m := media.(type) {
	case nil:
		return models.MediaNone, nil
	case *tg.MessageMediaEmpty:
		return models.MediaNone, nil
	case *tg.MessageMediaPhoto:
		return models.MediaPhoto, nil
	case *tg.MessageMediaDocument:
		if m.Document == nil {
			return documentKindFromFlags(m), nil
		}
		doc, ok := m.Document.AsNotEmpty()
		if !ok {
			return documentKindFromFlags(m), nil
		}
		return parseDocument(doc)
	default:
		return models.MediaOther, nil
	}
}

// documentKindFromFlags guesses the kind of a document whose object is missing.
func documentKindFromFlags(m *tg.MessageMediaDocument) models.MediaKind {
	switch {
	case m.Round:
		return models.MediaVideoNote
	case m.Voice:
		return models.MediaVoice
	case m.Video:
		return models.MediaVideo
	default:
		return models.MediaDocument
	}
}

func parseDocument(doc *tg.Document) (models.MediaKind, *Media) {
	media := &Media{
		FileID:        strconv.FormatInt(doc.ID, 10),
		AccessHash:    doc.AccessHash,
		FileReference: doc.FileReference,
		MimeType:      doc.MimeType,
		Size:          doc.Size,
	}

	var (
		video    *tg.DocumentAttributeVideo
		audio    *tg.DocumentAttributeAudio
		animated bool
		sticker  bool
	)
	for _, attr := range doc.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeFilename:
			media.FileName = a.FileName
		case *tg.DocumentAttributeVideo:
			video = a
		case *tg.DocumentAttributeAudio:
			audio = a
		case *tg.DocumentAttributeAnimated:
			animated = true
		case *tg.DocumentAttributeSticker:
			sticker = true
		}
	}

	if video != nil {
		media.Duration = video.Duration
		media.Width = video.W
		media.Height = video.H
	}
	if audio != nil && video == nil {
		media.Duration = float64(audio.Duration)
	}

	switch {
	case sticker:
		return models.MediaSticker, media
	case animated:
		return models.MediaAnimation, media
	case video != nil && video.RoundMessage:
		return models.MediaVideoNote, media
	case video != nil:
		return models.MediaVideo, media
	case audio != nil && audio.Voice:
		return models.MediaVoice, media
	case audio != nil:
		return models.MediaAudio, media
	default:
		return models.MediaDocument, media
	}
}
