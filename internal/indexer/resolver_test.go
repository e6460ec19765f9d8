package indexer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/media-indexer/internal/telegram"
)

func TestParseLink(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Candidate
		err  error
	}{
		{name: "private link", text: "https://t.me/c/1234567890/812", want: Candidate{ChatID: -1001234567890, MessageID: 812}},
		{name: "private topic link", text: "https://t.me/c/1234567890/4/812", want: Candidate{ChatID: -1001234567890, MessageID: 812}},
		{name: "public link", text: "https://t.me/moviesarchive/55", want: Candidate{Username: "moviesarchive", MessageID: 55}},
		{name: "http and query", text: "http://t.me/moviesarchive/55?single", want: Candidate{Username: "moviesarchive", MessageID: 55}},
		{name: "no scheme", text: "t.me/moviesarchive/55/", want: Candidate{Username: "moviesarchive", MessageID: 55}},
		{name: "surrounding space", text: "  https://t.me/c/77/9\n", want: Candidate{ChatID: -1000000000077, MessageID: 9}},
		{name: "plain text", text: "hello there", err: ErrNotApplicable},
		{name: "other site", text: "https://example.com/a/1", err: ErrNotApplicable},
		{name: "empty", text: "", err: ErrNotApplicable},
		{name: "no message id", text: "https://t.me/moviesarchive", err: ErrInvalidLink},
		{name: "bad message id", text: "https://t.me/moviesarchive/abc", err: ErrInvalidLink},
		{name: "zero message id", text: "https://t.me/moviesarchive/0", err: ErrInvalidLink},
		{name: "bad username", text: "https://t.me/a-b/5", err: ErrInvalidLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLink(tt.text)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCandidateFromMessage(t *testing.T) {
	t.Run("channel forward", func(t *testing.T) {
		msg := &telegram.Message{
			ID:      3,
			Text:    "some forwarded text",
			Forward: &telegram.ForwardOrigin{ChannelID: -1001234567890, MessageID: 812},
		}
		got, err := CandidateFromMessage(msg)
		require.NoError(t, err)
		assert.Equal(t, Candidate{ChatID: -1001234567890, MessageID: 812}, got)
	})

	t.Run("link wins over forward", func(t *testing.T) {
		msg := &telegram.Message{
			Text:    "https://t.me/c/1/2",
			Forward: &telegram.ForwardOrigin{ChannelID: -1009, MessageID: 1},
		}
		got, err := CandidateFromMessage(msg)
		require.NoError(t, err)
		assert.Equal(t, int64(-1000000000001), got.ChatID)
	})

	t.Run("bad link is reported", func(t *testing.T) {
		_, err := CandidateFromMessage(&telegram.Message{Text: "https://t.me/c/1/x"})
		assert.ErrorIs(t, err, ErrInvalidLink)
	})

	t.Run("plain message is ignored", func(t *testing.T) {
		_, err := CandidateFromMessage(&telegram.Message{Text: "hi"})
		assert.ErrorIs(t, err, ErrNotApplicable)

		_, err = CandidateFromMessage(nil)
		assert.ErrorIs(t, err, ErrNotApplicable)
	})
}

type fakeLookup struct {
	chats     map[int64]*telegram.Channel
	usernames map[string]*telegram.Channel
	err       error
}

func (f *fakeLookup) GetChat(ctx context.Context, chatID int64) (*telegram.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	if ch, ok := f.chats[chatID]; ok {
		return ch, nil
	}
	return nil, telegram.ErrChatNotFound
}

func (f *fakeLookup) ResolveUsername(ctx context.Context, username string) (*telegram.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	if ch, ok := f.usernames[username]; ok {
		return ch, nil
	}
	return nil, telegram.ErrChatNotFound
}

func TestResolver_Resolve(t *testing.T) {
	films := &telegram.Channel{ID: 1234567890, Title: "Films", Username: "moviesarchive", Type: telegram.ChatTypeChannel}
	group := &telegram.Channel{ID: 555, Title: "Chat", Type: telegram.ChatTypeSupergroup}
	lookup := &fakeLookup{
		chats:     map[int64]*telegram.Channel{-1001234567890: films, -1000000000555: group},
		usernames: map[string]*telegram.Channel{"moviesarchive": films, "someone": {ID: 9, Type: telegram.ChatTypeUser}},
	}
	r := NewResolver(lookup)
	ctx := context.Background()

	got, err := r.Resolve(ctx, Candidate{ChatID: -1001234567890, MessageID: 812})
	require.NoError(t, err)
	assert.Equal(t, &Target{ChatID: -1001234567890, Title: "Films", LastID: 812}, got)

	// usernames become numeric ids
	got, err = r.Resolve(ctx, Candidate{Username: "moviesarchive", MessageID: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(-1001234567890), got.ChatID)

	_, err = r.Resolve(ctx, Candidate{ChatID: -1000000000555, MessageID: 1})
	assert.ErrorIs(t, err, ErrNotChannel)

	_, err = r.Resolve(ctx, Candidate{Username: "someone", MessageID: 1})
	assert.ErrorIs(t, err, ErrNotChannel)

	_, err = r.Resolve(ctx, Candidate{ChatID: -1009999, MessageID: 1})
	assert.ErrorIs(t, err, telegram.ErrChatNotFound)

	lookup.err = errors.New("CHANNEL_PRIVATE")
	_, err = r.Resolve(ctx, Candidate{ChatID: -1001234567890, MessageID: 1})
	require.Error(t, err)
	assert.Contains(t, ErrorText(err), "❌ Error: lookup chat: CHANNEL_PRIVATE")
}

func TestResolver_Lookup(t *testing.T) {
	films := &telegram.Channel{ID: 1234567890, Title: "Films", Type: telegram.ChatTypeChannel}
	r := NewResolver(&fakeLookup{chats: map[int64]*telegram.Channel{-1001234567890: films}})

	got, err := r.Lookup(context.Background(), -1001234567890)
	require.NoError(t, err)
	assert.Equal(t, "Films", got.Title)
}
