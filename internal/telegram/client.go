// Package telegram wraps the gotgproto bot client with the raw api calls the
// indexer needs.
package telegram

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/storage"
	"github.com/gotd/td/tg"

	"github.com/blockedby/media-indexer/internal/logger"
)

// Client provides the high-level telegram operations used by the bot and the indexer.
// It uses the Manager to access the underlying protocol client.
type Client struct {
	manager     *Manager
	rateLimiter *RateLimiter
	log         *logger.Logger

	// chats seen in api responses, keyed by full id
	chats   map[int64]*Channel
	chatsMu sync.RWMutex
}

// NewClient creates a new telegram client wrapper using the Manager.
func NewClient(manager *Manager, limiter *RateLimiter) *Client {
	if limiter == nil {
		limiter = DefaultRateLimiter()
	}
	return &Client{
		manager:     manager,
		rateLimiter: limiter,
		log:         logger.Get().Component("telegram"),
		chats:       make(map[int64]*Channel),
	}
}

// GetStatus returns the current status of the telegram client.
func (c *Client) GetStatus() Status {
	return c.manager.GetStatus()
}

func (c *Client) getProto() (*gotgproto.Client, error) {
	proto := c.manager.GetClient()
	if proto == nil {
		return nil, ErrNotAuthorized
	}
	return proto, nil
}

// API returns the raw tg.Client for direct API calls.
func (c *Client) API() (*tg.Client, error) {
	proto, err := c.getProto()
	if err != nil {
		return nil, err
	}
	return proto.API(), nil
}

// call waits for the rate limiter, runs fn and records any FLOOD_WAIT it returns.
func (c *Client) call(ctx context.Context, op string, fn func(api *tg.Client) error) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}
	api, err := c.API()
	if err != nil {
		return err
	}
	if err := fn(api); err != nil {
		if wait, ok := FloodWait(err); ok {
			c.log.Warn().Str("op", op).Dur("wait", wait).Msg("FLOOD_WAIT detected, updating rate limiter")
			c.rateLimiter.SetFloodWait(wait)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResolveUsername resolves a public username (with or without @) to a chat.
func (c *Client) ResolveUsername(ctx context.Context, username string) (*Channel, error) {
	username = strings.TrimPrefix(username, "@")

	var resolved *tg.ContactsResolvedPeer
	err := c.call(ctx, "resolve username", func(api *tg.Client) error {
		var err error
		resolved, err = api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
			Username: username,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	c.RememberChats(resolved.Chats)

	switch p := resolved.Peer.(type) {
	case *tg.PeerChannel:
		if ch := c.cached(FullChannelID(p.ChannelID)); ch != nil {
			return ch, nil
		}
	case *tg.PeerChat:
		if ch := c.cached(-p.ChatID); ch != nil {
			return ch, nil
		}
	case *tg.PeerUser:
		return &Channel{ID: p.UserID, Username: username, Type: ChatTypeUser}, nil
	}
	return nil, fmt.Errorf("%w: @%s", ErrChatNotFound, username)
}

// GetChat returns the chat with the given full id.
func (c *Client) GetChat(ctx context.Context, chatID int64) (*Channel, error) {
	if ch := c.cached(chatID); ch != nil {
		return ch, nil
	}

	raw, isChannel := RawChannelID(chatID)
	if !isChannel {
		if chatID > 0 {
			return &Channel{ID: chatID, Type: ChatTypeUser}, nil
		}
		return &Channel{ID: -chatID, Type: ChatTypeGroup}, nil
	}

	input, err := c.inputChannel(raw)
	if err != nil {
		return nil, err
	}

	var chats tg.MessagesChatsClass
	err = c.call(ctx, "get channel", func(api *tg.Client) error {
		var err error
		chats, err = api.ChannelsGetChannels(ctx, []tg.InputChannelClass{input})
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, chat := range chats.GetChats() {
		if forbidden, ok := chat.(*tg.ChannelForbidden); ok && forbidden.ID == raw {
			return nil, fmt.Errorf("%w: channel %d is private or the bot was removed", ErrChatNotFound, chatID)
		}
	}
	c.RememberChats(chats.GetChats())

	if ch := c.cached(chatID); ch != nil {
		return ch, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrChatNotFound, chatID)
}

// GetMessage fetches a single channel message. A deleted or service message
// yields a nil message and no error.
func (c *Client) GetMessage(ctx context.Context, chatID int64, msgID int) (*Message, error) {
	raw, ok := RawChannelID(chatID)
	if !ok {
		return nil, fmt.Errorf("%w: %d is not a channel id", ErrChatNotFound, chatID)
	}
	input, err := c.inputChannel(raw)
	if err != nil {
		return nil, err
	}

	var res tg.MessagesMessagesClass
	err = c.call(ctx, "get message", func(api *tg.Client) error {
		var err error
		res, err = api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: input,
			ID:      []tg.InputMessageClass{&tg.InputMessageID{ID: msgID}},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	modified, ok := res.AsModified()
	if !ok {
		return nil, nil
	}
	c.RememberChats(modified.GetChats())

	for _, m := range modified.GetMessages() {
		if msg, ok := m.(*tg.Message); ok && msg.ID == msgID {
			return ParseMessage(msg, chatID), nil
		}
	}
	return nil, nil
}

// SendText sends a message with an optional inline keyboard and returns its id.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, buttons [][]Button) (int, error) {
	peer, err := c.inputPeer(chatID)
	if err != nil {
		return 0, err
	}
	randomID, err := newRandomID()
	if err != nil {
		return 0, err
	}

	req := &tg.MessagesSendMessageRequest{
		Peer:      peer,
		Message:   text,
		RandomID:  randomID,
		NoWebpage: true,
	}
	if markup := InlineKeyboard(buttons); markup != nil {
		req.ReplyMarkup = markup
	}

	var updates tg.UpdatesClass
	err = c.call(ctx, "send message", func(api *tg.Client) error {
		var err error
		updates, err = api.MessagesSendMessage(ctx, req)
		return err
	})
	if err != nil {
		return 0, err
	}
	return SentMessageID(updates, randomID), nil
}

// EditText replaces the text and keyboard of a message. A nil keyboard removes it.
func (c *Client) EditText(ctx context.Context, chatID int64, msgID int, text string, buttons [][]Button) error {
	peer, err := c.inputPeer(chatID)
	if err != nil {
		return err
	}

	req := &tg.MessagesEditMessageRequest{
		Peer:      peer,
		ID:        msgID,
		Message:   text,
		NoWebpage: true,
	}
	if markup := InlineKeyboard(buttons); markup != nil {
		req.ReplyMarkup = markup
	} else {
		req.ReplyMarkup = &tg.ReplyInlineMarkup{}
	}

	return c.call(ctx, "edit message", func(api *tg.Client) error {
		_, err := api.MessagesEditMessage(ctx, req)
		return err
	})
}

// DeleteMessage deletes a message for everyone.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, msgID int) error {
	if raw, ok := RawChannelID(chatID); ok {
		input, err := c.inputChannel(raw)
		if err != nil {
			return err
		}
		return c.call(ctx, "delete message", func(api *tg.Client) error {
			_, err := api.ChannelsDeleteMessages(ctx, &tg.ChannelsDeleteMessagesRequest{
				Channel: input,
				ID:      []int{msgID},
			})
			return err
		})
	}

	return c.call(ctx, "delete message", func(api *tg.Client) error {
		_, err := api.MessagesDeleteMessages(ctx, &tg.MessagesDeleteMessagesRequest{
			Revoke: true,
			ID:     []int{msgID},
		})
		return err
	})
}

// RememberChats caches chat metadata and stores channel access hashes in the
// session peer storage.
func (c *Client) RememberChats(chats []tg.ChatClass) {
	var peers *storage.PeerStorage
	if proto := c.manager.GetClient(); proto != nil {
		peers = proto.PeerStorage
	}

	c.chatsMu.Lock()
	defer c.chatsMu.Unlock()
	for _, chat := range chats {
		ch := ChannelFromChat(chat)
		if ch == nil {
			continue
		}
		// min constructors carry no usable access hash
		if prev, ok := c.chats[ch.FullID()]; ok && ch.AccessHash == 0 {
			ch.AccessHash = prev.AccessHash
		}
		c.chats[ch.FullID()] = ch
		if peers != nil && ch.AccessHash != 0 && ch.Type != ChatTypeGroup {
			peers.AddPeer(ch.ID, ch.AccessHash, storage.TypeChannel, ch.Username)
		}
	}
}

func (c *Client) cached(chatID int64) *Channel {
	c.chatsMu.RLock()
	defer c.chatsMu.RUnlock()
	return c.chats[chatID]
}

func (c *Client) inputChannel(raw int64) (*tg.InputChannel, error) {
	if ch := c.cached(FullChannelID(raw)); ch != nil && ch.AccessHash != 0 {
		return &tg.InputChannel{ChannelID: raw, AccessHash: ch.AccessHash}, nil
	}
	proto, err := c.getProto()
	if err != nil {
		return nil, err
	}
	if peer, ok := proto.PeerStorage.GetInputPeerById(raw).(*tg.InputPeerChannel); ok {
		return &tg.InputChannel{ChannelID: raw, AccessHash: peer.AccessHash}, nil
	}
	// bots may address channels they are a member of without a hash
	return &tg.InputChannel{ChannelID: raw}, nil
}

func (c *Client) inputPeer(chatID int64) (tg.InputPeerClass, error) {
	if raw, ok := RawChannelID(chatID); ok {
		input, err := c.inputChannel(raw)
		if err != nil {
			return nil, err
		}
		return &tg.InputPeerChannel{ChannelID: input.ChannelID, AccessHash: input.AccessHash}, nil
	}
	if chatID < 0 {
		return &tg.InputPeerChat{ChatID: -chatID}, nil
	}

	proto, err := c.getProto()
	if err != nil {
		return nil, err
	}
	if peer, ok := proto.PeerStorage.GetInputPeerById(chatID).(*tg.InputPeerUser); ok {
		return peer, nil
	}
	return &tg.InputPeerUser{UserID: chatID}, nil
}

// ChannelFromChat converts an api chat object; it returns nil for unusable kinds.
func ChannelFromChat(chat tg.ChatClass) *Channel {
	switch ch := chat.(type) {
	case *tg.Channel:
		out := &Channel{
			ID:       ch.ID,
			Title:    ch.Title,
			Username: ch.Username,
			Type:     ChatTypeSupergroup,
		}
		if hash, ok := ch.GetAccessHash(); ok && !ch.Min {
			out.AccessHash = hash
		}
		if ch.Broadcast {
			out.Type = ChatTypeChannel
		}
		return out
	case *tg.Chat:
		return &Channel{ID: ch.ID, Title: ch.Title, Type: ChatTypeGroup}
	default:
		return nil
	}
}

// InlineKeyboard builds a callback-button keyboard; it returns nil for no buttons.
func InlineKeyboard(buttons [][]Button) *tg.ReplyInlineMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([]tg.KeyboardButtonRow, 0, len(buttons))
	for _, row := range buttons {
		kbRow := tg.KeyboardButtonRow{}
		for _, b := range row {
			kbRow.Buttons = append(kbRow.Buttons, &tg.KeyboardButtonCallback{
				Text: b.Text,
				Data: []byte(b.Data),
			})
		}
		rows = append(rows, kbRow)
	}
	return &tg.ReplyInlineMarkup{Rows: rows}
}

// SentMessageID finds the id assigned to a message sent with randomID.
func SentMessageID(updates tg.UpdatesClass, randomID int64) int {
	switch u := updates.(type) {
	case *tg.UpdateShortSentMessage:
		return u.ID
	case *tg.Updates:
		return sentIDFromList(u.Updates, randomID)
	case *tg.UpdatesCombined:
		return sentIDFromList(u.Updates, randomID)
	}
	return 0
}

func sentIDFromList(list []tg.UpdateClass, randomID int64) int {
	fallback := 0
	for _, upd := range list {
		switch u := upd.(type) {
		case *tg.UpdateMessageID:
			if u.RandomID == randomID {
				return u.ID
			}
		case *tg.UpdateNewMessage:
			fallback = u.Message.GetID()
		case *tg.UpdateNewChannelMessage:
			fallback = u.Message.GetID()
		}
	}
	return fallback
}

func newRandomID() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("random id: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}
