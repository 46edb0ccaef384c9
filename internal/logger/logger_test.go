package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWriter_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWriter(&buf, "warn")
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("sweep store failed", zap.String("store", "core_entities"))
	require.NoError(t, log.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "sweep store failed", entry["msg"])
	assert.Equal(t, "core_entities", entry["store"])
}

func TestNew_UnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud", Output: "stderr"})
	assert.Error(t, err)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hera.log")
	log, err := New(Config{Level: "info", Format: "auto", Output: path})
	require.NoError(t, err)

	log.Info("store ready")
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(raw), &entry))
	assert.Equal(t, "store ready", entry["msg"])
}
