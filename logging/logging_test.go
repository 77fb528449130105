package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerLevels(t *testing.T) {
	logger, err := NewLogger("test", false)
	require.NoError(t, err)
	assert.False(t, logger.Desugar().Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Desugar().Core().Enabled(zap.InfoLevel))

	debug, err := NewLogger("test", true)
	require.NoError(t, err)
	assert.True(t, debug.Desugar().Core().Enabled(zap.DebugLevel))
}

func TestNewLoggerConfigDisablesStacktraces(t *testing.T) {
	cfg := NewLoggerConfig()
	assert.True(t, cfg.DisableStacktrace)
	assert.Equal(t, "console", cfg.Encoding)
}
