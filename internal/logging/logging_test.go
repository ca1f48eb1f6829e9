package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		verbose bool
		want    zapcore.Level
	}{
		{"info", false, zapcore.InfoLevel},
		{"warn", false, zapcore.WarnLevel},
		{"error", true, zapcore.DebugLevel},
		{"bogus", false, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		logger, err := New(tt.level, tt.verbose)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(tt.want), tt.level)
		if tt.want > zapcore.DebugLevel {
			assert.False(t, logger.Core().Enabled(tt.want-1), tt.level)
		}
	}
}
