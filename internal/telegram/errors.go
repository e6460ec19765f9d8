package telegram

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gotd/td/tgerr"
)

// errors
var (
	ErrNotAuthorized = errors.New("telegram client not authorized")
	ErrChatNotFound  = errors.New("chat not found")
)

// FloodWait reports whether err is a FLOOD_WAIT error and how long telegram asked to wait.
func FloodWait(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	if d, ok := tgerr.AsFloodWait(err); ok {
		return d, true
	}
	// errors that lost their rpc type on the way still carry the text,
	// e.g. "rpc error code 420: FLOOD_WAIT (15)" or "FLOOD_WAIT_15"
	str := err.Error()
	idx := strings.Index(str, "FLOOD_WAIT")
	if idx < 0 {
		return 0, false
	}
	rest := strings.TrimLeft(str[idx+len("FLOOD_WAIT"):], "_ (")
	var seconds int
	if _, scanErr := fmt.Sscanf(rest, "%d", &seconds); scanErr != nil {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// IsNotModified reports whether an edit was rejected because nothing changed.
func IsNotModified(err error) bool {
	return tgerr.Is(err, "MESSAGE_NOT_MODIFIED")
}
