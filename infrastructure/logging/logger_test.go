package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/heinscr/books-library/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TeesToRotatingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "books.log")
	cfg := &config.Config{Environment: "development", LogLevel: "info", LogFile: file}

	logger, err := New(cfg)
	require.NoError(t, err)
	logger.Info("book ingested")
	_ = logger.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"book ingested"`)
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(&config.Config{LogLevel: "loud"})
	assert.Error(t, err)
}

func TestNew_Production(t *testing.T) {
	logger, err := New(&config.Config{Environment: "production", LogLevel: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
}
