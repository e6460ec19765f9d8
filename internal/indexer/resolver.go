package indexer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/blockedby/media-indexer/internal/telegram"
)

// resolution errors
var (
	ErrNotApplicable = errors.New("message is neither a channel link nor a channel forward")
	ErrInvalidLink   = errors.New("invalid message link")
	ErrNotChannel    = errors.New("only channels are supported")
)

var linkPrefixes = []string{"https://t.me/", "http://t.me/", "t.me/"}

var usernameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,31}$`)

// Candidate is an unverified scan target taken from an incoming message.
type Candidate struct {
	ChatID    int64  // full channel id, zero when Username is set
	Username  string // public username from a link
	MessageID int    // newest message to scan
}

// Target is a verified channel and the newest message id to scan.
type Target struct {
	ChatID int64
	Title  string
	LastID int
}

// CandidateFromMessage extracts a candidate from a link or a channel forward.
// Other message shapes yield ErrNotApplicable.
func CandidateFromMessage(msg *telegram.Message) (Candidate, error) {
	if msg == nil {
		return Candidate{}, ErrNotApplicable
	}
	if c, err := ParseLink(msg.Text); !errors.Is(err, ErrNotApplicable) {
		return c, err
	}
	if msg.Forward != nil && msg.Forward.MessageID > 0 {
		return Candidate{ChatID: msg.Forward.ChannelID, MessageID: msg.Forward.MessageID}, nil
	}
	return Candidate{}, ErrNotApplicable
}

// ParseLink parses https://t.me/<username>/<id> and https://t.me/c/<channel>/<id> links.
func ParseLink(text string) (Candidate, error) {
	text = strings.TrimSpace(text)

	var rest string
	for _, prefix := range linkPrefixes {
		if strings.HasPrefix(text, prefix) {
			rest = strings.TrimPrefix(text, prefix)
			break
		}
	}
	if rest == "" {
		return Candidate{}, ErrNotApplicable
	}

	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) < 2 {
		return Candidate{}, fmt.Errorf("%w: %s", ErrInvalidLink, text)
	}

	msgID, err := strconv.Atoi(segments[len(segments)-1])
	if err != nil || msgID <= 0 {
		return Candidate{}, fmt.Errorf("%w: bad message id in %s", ErrInvalidLink, text)
	}

	chatPart := segments[len(segments)-2]
	// private links carry an optional topic id: c/<channel>/<topic>/<id>
	if segments[0] == "c" && len(segments) >= 3 {
		chatPart = segments[1]
	}

	if raw, err := strconv.ParseInt(chatPart, 10, 64); err == nil {
		if raw <= 0 {
			return Candidate{}, fmt.Errorf("%w: bad channel id in %s", ErrInvalidLink, text)
		}
		return Candidate{ChatID: telegram.FullChannelID(raw), MessageID: msgID}, nil
	}
	if !usernameRe.MatchString(chatPart) {
		return Candidate{}, fmt.Errorf("%w: bad username in %s", ErrInvalidLink, text)
	}
	return Candidate{Username: chatPart, MessageID: msgID}, nil
}

// ChatLookup queries telegram for chats.
type ChatLookup interface {
	GetChat(ctx context.Context, chatID int64) (*telegram.Channel, error)
	ResolveUsername(ctx context.Context, username string) (*telegram.Channel, error)
}

// Resolver verifies that candidates point at broadcast channels.
type Resolver struct {
	chats ChatLookup
}

// NewResolver creates a resolver backed by the given lookup.
func NewResolver(chats ChatLookup) *Resolver {
	return &Resolver{chats: chats}
}

// Resolve looks the candidate chat up and returns a target with a numeric channel id.
func (r *Resolver) Resolve(ctx context.Context, c Candidate) (*Target, error) {
	var (
		ch  *telegram.Channel
		err error
	)
	if c.Username != "" {
		ch, err = r.chats.ResolveUsername(ctx, c.Username)
	} else {
		ch, err = r.chats.GetChat(ctx, c.ChatID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup chat: %w", err)
	}
	if !ch.IsChannel() {
		return nil, ErrNotChannel
	}
	return &Target{ChatID: ch.FullID(), Title: ch.Title, LastID: c.MessageID}, nil
}

// Lookup verifies a channel by full id.
func (r *Resolver) Lookup(ctx context.Context, chatID int64) (*Target, error) {
	return r.Resolve(ctx, Candidate{ChatID: chatID})
}
