package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yingtu35/deadlink-patrol/internal/logger"
)

func TestNew_WithFieldsReturnsDistinctLogger(t *testing.T) {
	base, err := logger.New(logger.Config{Level: "warn", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)

	enriched := base.With(logger.String("run_id", "abc"))
	assert.NotSame(t, base, enriched)

	// Must not panic; info is filtered at warn level.
	enriched.Info("filtered")
	enriched.Warn("visible", logger.Int("count", 1))
}

func TestNop_IsUsable(t *testing.T) {
	l := logger.NewNop()
	l.Debug("x")
	l.Fatal("does not exit")
	assert.Same(t, l, l.With(logger.String("k", "v")))
	assert.NoError(t, l.Sync())
}

func TestConfig_SetDefaults(t *testing.T) {
	var cfg logger.Config
	cfg.SetDefaults()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
}
