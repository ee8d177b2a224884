package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundflow-core/internal/config"
)

func TestNewLogger_LevelThresholds(t *testing.T) {
	testCases := []struct {
		name     string
		logLevel string
		enabled  slog.Level
		disabled slog.Level
	}{
		{"DebugEnablesEverything", "debug", slog.LevelDebug, slog.Level(-8)},
		{"InfoSuppressesDebug", "info", slog.LevelInfo, slog.LevelDebug},
		{"WarnSuppressesInfo", "warn", slog.LevelWarn, slog.LevelInfo},
		{"ErrorSuppressesWarn", "error", slog.LevelError, slog.LevelWarn},
		{"UnknownDefaultsToInfo", "verbose", slog.LevelInfo, slog.LevelDebug},
		{"EmptyDefaultsToInfo", "", slog.LevelInfo, slog.LevelDebug},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{
				Application: config.ApplicationConfig{Name: "fundflow-test"},
				Logging:     config.LoggingConfig{Level: tc.logLevel},
			}

			log := NewLogger(cfg)
			require.NotNil(t, log)

			ctx := context.Background()
			assert.True(t, log.Enabled(ctx, tc.enabled))
			assert.False(t, log.Enabled(ctx, tc.disabled))
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("Warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("anything else"))
}
