package bot

import (
	"github.com/celestix/gotgproto/dispatcher"
	"github.com/celestix/gotgproto/dispatcher/handlers"
	"github.com/celestix/gotgproto/dispatcher/handlers/filters"
	"github.com/celestix/gotgproto/ext"
	"github.com/celestix/gotgproto/types"
	"github.com/gotd/td/tg"

	"github.com/blockedby/media-indexer/internal/indexer"
	"github.com/blockedby/media-indexer/internal/telegram"
)

// ChatCache remembers chats seen in updates
type ChatCache interface {
	RememberChats(chats []tg.ChatClass)
}

// Register adds the bot handlers to the dispatcher.
func (b *Bot) Register(d dispatcher.Dispatcher, cache ChatCache) {
	d.AddHandler(handlers.NewMessage(incomingPrivate, func(ctx *ext.Context, u *ext.Update) error {
		return b.onMessage(ctx, u, cache)
	}))
	d.AddHandler(handlers.NewCallbackQuery(filters.CallbackQuery.Prefix(indexer.ActionPrefix+"|"), b.onCallback))
}

func incomingPrivate(m *types.Message) bool {
	if m == nil || m.Message == nil || m.Out {
		return false
	}
	_, ok := m.PeerID.(*tg.PeerUser)
	return ok
}

func (b *Bot) onMessage(ctx *ext.Context, u *ext.Update, cache ChatCache) error {
	m := u.EffectiveMessage
	peer, ok := m.PeerID.(*tg.PeerUser)
	if !ok {
		return nil
	}

	if cache != nil && u.Entities != nil {
		chats := make([]tg.ChatClass, 0, len(u.Entities.Channels))
		for _, ch := range u.Entities.Channels {
			chats = append(chats, ch)
		}
		cache.RememberChats(chats)
	}

	handled, err := b.HandleMessage(ctx, peer.UserID, telegram.ParseMessage(m.Message, peer.UserID))
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", peer.UserID).Msg("failed to handle message")
	}
	if handled {
		return dispatcher.EndGroups
	}
	return nil
}

func (b *Bot) onCallback(ctx *ext.Context, u *ext.Update) error {
	q := u.CallbackQuery
	answer, err := b.HandleCallback(ctx, CallbackQuery{
		UserID: q.UserID,
		ChatID: peerID(q.Peer),
		MsgID:  q.MsgID,
		Data:   string(q.Data),
	})
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", q.UserID).Str("data", string(q.Data)).Msg("failed to handle callback")
	}
	if answer != nil {
		if _, err := ctx.AnswerCallback(&tg.MessagesSetBotCallbackAnswerRequest{
			QueryID: q.QueryID,
			Message: answer.Text,
			Alert:   answer.Alert,
		}); err != nil {
			b.log.Debug().Err(err).Msg("failed to answer callback")
		}
	}
	return dispatcher.EndGroups
}

// peerID converts a peer to the signed id form used across the bot.
func peerID(p tg.PeerClass) int64 {
	switch p := p.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return -p.ChatID
	case *tg.PeerChannel:
		return telegram.FullChannelID(p.ChannelID)
	}
	return 0
}
