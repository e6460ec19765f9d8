// Package bot wires the indexer command flow into the telegram dispatcher.
package bot

import (
	"context"
	"errors"

	"github.com/blockedby/media-indexer/internal/indexer"
	"github.com/blockedby/media-indexer/internal/logger"
	"github.com/blockedby/media-indexer/internal/telegram"
)

// Runner controls index runs
type Runner interface {
	Busy() bool
	Start(req indexer.StartRequest) (*indexer.Run, error)
	Cancel() bool
}

// Resolver turns candidates into verified channels
type Resolver interface {
	Resolve(ctx context.Context, c indexer.Candidate) (*indexer.Target, error)
	Lookup(ctx context.Context, chatID int64) (*indexer.Target, error)
}

// AdminChecker reports whether a user may use the bot
type AdminChecker interface {
	IsAdmin(userID int64) bool
}

// CallbackQuery is a button press.
type CallbackQuery struct {
	UserID int64
	ChatID int64
	MsgID  int
	Data   string
}

// Answer is the popup shown for a button press.
type Answer struct {
	Text  string
	Alert bool
}

// Bot handles operator messages and button presses.
type Bot struct {
	admins    AdminChecker
	messenger indexer.Messenger
	resolver  Resolver
	runner    Runner
	log       *logger.Logger
}

// New creates a bot.
func New(admins AdminChecker, messenger indexer.Messenger, resolver Resolver, runner Runner) *Bot {
	return &Bot{
		admins:    admins,
		messenger: messenger,
		resolver:  resolver,
		runner:    runner,
		log:       logger.Get().Component("bot"),
	}
}

// HandleMessage handles a private message. It reports whether the message was
// an index request; other messages and non-admin senders are ignored silently.
func (b *Bot) HandleMessage(ctx context.Context, senderID int64, msg *telegram.Message) (bool, error) {
	if !b.admins.IsAdmin(senderID) {
		return false, nil
	}

	candidate, err := indexer.CandidateFromMessage(msg)
	if errors.Is(err, indexer.ErrNotApplicable) {
		return false, nil
	}

	if b.runner.Busy() {
		return true, b.reply(ctx, msg.ChatID, indexer.TextAlreadyRunning, nil)
	}
	if err != nil {
		return true, b.reply(ctx, msg.ChatID, indexer.ErrorText(err), nil)
	}

	target, err := b.resolver.Resolve(ctx, candidate)
	if err != nil {
		b.log.Info().Err(err).Int64("chat_id", candidate.ChatID).Str("username", candidate.Username).Msg("index request rejected")
		if errors.Is(err, indexer.ErrNotChannel) {
			return true, b.reply(ctx, msg.ChatID, "❌ Only channels supported", nil)
		}
		return true, b.reply(ctx, msg.ChatID, indexer.ErrorText(err), nil)
	}

	return true, b.reply(ctx, msg.ChatID, indexer.ConfirmText(target), indexer.ConfirmKeyboard(target))
}

// HandleCallback handles an idx| button press. A nil answer means the press is ignored.
func (b *Bot) HandleCallback(ctx context.Context, q CallbackQuery) (*Answer, error) {
	if !b.admins.IsAdmin(q.UserID) {
		return nil, nil
	}

	action, err := indexer.ParseAction(q.Data)
	if err != nil {
		return &Answer{Text: "Unknown action"}, nil
	}

	switch action.Kind {
	case indexer.ActionClose:
		return &Answer{}, b.edit(ctx, q, indexer.TextClosed)

	case indexer.ActionCancel:
		if !b.runner.Cancel() {
			return &Answer{Text: indexer.TextNotRunning}, nil
		}
		return &Answer{Text: indexer.TextStopping, Alert: true}, nil

	case indexer.ActionStart:
		if b.runner.Busy() {
			return &Answer{Text: indexer.TextAlreadyRunning, Alert: true}, nil
		}

		target, err := b.resolver.Lookup(ctx, action.ChatID)
		if err != nil {
			return &Answer{}, b.edit(ctx, q, indexer.ErrorText(err))
		}

		run, err := b.runner.Start(indexer.StartRequest{
			ChatID: target.ChatID,
			Title:  target.Title,
			LastID: action.LastID,
			Skip:   action.Skip,
			Status: indexer.StatusMessage{ChatID: q.ChatID, MsgID: q.MsgID},
		})
		if errors.Is(err, indexer.ErrAlreadyRunning) {
			return &Answer{Text: indexer.TextAlreadyRunning, Alert: true}, nil
		}
		if err != nil {
			return &Answer{}, err
		}
		b.log.Info().Str("run_id", run.ID.String()).Int64("chat_id", run.ChatID).Int64("admin", q.UserID).Msg("index run confirmed")
		return &Answer{}, nil
	}

	return &Answer{Text: "Unknown action"}, nil
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, buttons [][]telegram.Button) error {
	_, err := b.messenger.SendText(ctx, chatID, text, buttons)
	return err
}

func (b *Bot) edit(ctx context.Context, q CallbackQuery, text string) error {
	err := b.messenger.EditText(ctx, q.ChatID, q.MsgID, text, nil)
	if telegram.IsNotModified(err) {
		return nil
	}
	return err
}
