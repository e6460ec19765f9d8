package indexer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ActionPrefix routes callback data to the indexer.
const ActionPrefix = "idx"

const actionSep = "|"

// ErrInvalidAction is returned for callback data that is not an indexer action.
var ErrInvalidAction = errors.New("invalid index action")

// ActionKind is the subcommand of a callback action.
type ActionKind string

// ActionKind values.
const (
	ActionStart  ActionKind = "start"  // confirm and start a run
	ActionCancel ActionKind = "cancel" // stop the active run
	ActionClose  ActionKind = "close"  // dismiss the confirmation
)

// Action is a decoded callback token: idx|start|<chat>|<last>|<skip>, idx|cancel or idx|close.
type Action struct {
	Kind   ActionKind
	ChatID int64
	LastID int
	Skip   int
}

// StartAction builds the confirmation token for a run.
func StartAction(chatID int64, lastID, skip int) Action {
	return Action{Kind: ActionStart, ChatID: chatID, LastID: lastID, Skip: skip}
}

// Encode renders the action as callback data.
func (a Action) Encode() string {
	if a.Kind != ActionStart {
		return ActionPrefix + actionSep + string(a.Kind)
	}
	return strings.Join([]string{
		ActionPrefix,
		string(a.Kind),
		strconv.FormatInt(a.ChatID, 10),
		strconv.Itoa(a.LastID),
		strconv.Itoa(a.Skip),
	}, actionSep)
}

// ParseAction decodes callback data produced by Encode.
func ParseAction(data string) (Action, error) {
	parts := strings.Split(data, actionSep)
	if len(parts) < 2 || parts[0] != ActionPrefix {
		return Action{}, fmt.Errorf("%w: %q", ErrInvalidAction, data)
	}

	kind := ActionKind(parts[1])
	switch kind {
	case ActionCancel, ActionClose:
		if len(parts) != 2 {
			return Action{}, fmt.Errorf("%w: %q", ErrInvalidAction, data)
		}
		return Action{Kind: kind}, nil
	case ActionStart:
	default:
		return Action{}, fmt.Errorf("%w: unknown subcommand %q", ErrInvalidAction, parts[1])
	}

	if len(parts) != 5 {
		return Action{}, fmt.Errorf("%w: %q", ErrInvalidAction, data)
	}
	chatID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Action{}, fmt.Errorf("%w: chat id: %v", ErrInvalidAction, err)
	}
	lastID, err := strconv.Atoi(parts[3])
	if err != nil {
		return Action{}, fmt.Errorf("%w: last id: %v", ErrInvalidAction, err)
	}
	skip, err := strconv.Atoi(parts[4])
	if err != nil || skip < 0 {
		return Action{}, fmt.Errorf("%w: skip %q", ErrInvalidAction, parts[4])
	}
	return StartAction(chatID, lastID, skip), nil
}
