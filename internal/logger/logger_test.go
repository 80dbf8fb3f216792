package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"rebot/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.LoggingConfig
		debug  bool
		info   bool
		hasErr bool
	}{
		{name: "json info", cfg: config.LoggingConfig{Level: "info", Format: "json"}, info: true},
		{name: "console debug", cfg: config.LoggingConfig{Level: "DEBUG", Format: "console"}, debug: true, info: true},
		{name: "warn", cfg: config.LoggingConfig{Level: "warn"}},
		{name: "bad level", cfg: config.LoggingConfig{Level: "loud"}, hasErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.debug, l.Core().Enabled(zapcore.DebugLevel))
			assert.Equal(t, tt.info, l.Core().Enabled(zapcore.InfoLevel))
			assert.True(t, l.Core().Enabled(zapcore.ErrorLevel))
		})
	}
}
