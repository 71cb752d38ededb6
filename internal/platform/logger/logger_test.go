package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mnemo-app/mnemo-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupReturnsLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "bogus"} {
		logger, err := Setup(config.ServerConfig{Port: 8080, LogLevel: level})
		require.NoError(t, err, "level %q", level)
		require.NotNil(t, logger, "level %q", level)
	}
}

func TestFromContext(t *testing.T) {
	t.Run("empty_context_falls_back_to_default", func(t *testing.T) {
		assert.Equal(t, slog.Default(), FromContext(context.Background()))
	})

	t.Run("nil_context_falls_back_to_default", func(t *testing.T) {
		//nolint:staticcheck // deliberately passing nil to exercise the guard
		assert.Equal(t, slog.Default(), FromContext(nil))
	})

	t.Run("returns_stored_logger", func(t *testing.T) {
		stored := slog.Default().With("component", "test")
		ctx := WithLogger(context.Background(), stored)
		assert.Same(t, stored, FromContext(ctx))
	})
}

func TestFromContextOrDefault(t *testing.T) {
	fallback := slog.Default().With("component", "fallback")

	t.Run("prefers_context_logger", func(t *testing.T) {
		stored := slog.Default().With("component", "stored")
		ctx := WithLogger(context.Background(), stored)
		assert.Same(t, stored, FromContextOrDefault(ctx, fallback))
	})

	t.Run("falls_back_to_provided", func(t *testing.T) {
		assert.Same(t, fallback, FromContextOrDefault(context.Background(), fallback))
	})

	t.Run("nil_fallback_uses_default", func(t *testing.T) {
		assert.Equal(t, slog.Default(), FromContextOrDefault(context.Background(), nil))
	})
}
