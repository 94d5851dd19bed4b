package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud", OutputPaths: []string{"stdout"}})
	assert.Error(t, err)
}

func TestNewFromSettingsHonorsLevel(t *testing.T) {
	logger := NewFromSettings("warn", false)
	require.NotNil(t, logger)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewFromSettingsBadLevelFallsBack(t *testing.T) {
	logger := NewFromSettings("loud", true)
	require.NotNil(t, logger)

	// Development default is debug.
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestParseLevel(t *testing.T) {
	for level, want := range map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	} {
		got, err := parseLevel(level)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
