package telegram

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gotd/td/tgerr"
	"github.com/stretchr/testify/assert"
)

func TestFloodWait(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   time.Duration
		wantOK bool
	}{
		{name: "nil", err: nil},
		{name: "rpc error", err: tgerr.New(420, "FLOOD_WAIT_3"), want: 3 * time.Second, wantOK: true},
		{name: "wrapped rpc error", err: fmt.Errorf("get message: %w", tgerr.New(420, "FLOOD_WAIT_15")), want: 15 * time.Second, wantOK: true},
		{name: "plain text", err: errors.New("FLOOD_WAIT_7"), want: 7 * time.Second, wantOK: true},
		{name: "other rpc error", err: tgerr.New(400, "CHANNEL_INVALID")},
		{name: "other error", err: errors.New("connection reset")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FloodWait(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsNotModified(t *testing.T) {
	assert.True(t, IsNotModified(tgerr.New(400, "MESSAGE_NOT_MODIFIED")))
	assert.True(t, IsNotModified(fmt.Errorf("edit message: %w", tgerr.New(400, "MESSAGE_NOT_MODIFIED"))))
	assert.False(t, IsNotModified(tgerr.New(400, "MESSAGE_ID_INVALID")))
	assert.False(t, IsNotModified(nil))
}
