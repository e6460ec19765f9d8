package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_NopBeforeInit(t *testing.T) {
	Global = nil

	l := Get()
	require.NotNil(t, l)
	// must not panic
	l.Info().Msg("dropped")
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "indexer.log")

	l, err := New("debug", path)
	require.NoError(t, err)

	l.Component("scanner").Info().Int("chat", 1).Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"scanner"`)
	assert.Contains(t, string(data), "hello")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := New("nonsense", "")
	require.NoError(t, err)
	assert.Equal(t, "info", l.GetLevel().String())
}
