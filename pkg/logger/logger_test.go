package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitInvalidLevel(t *testing.T) {
	assert.Error(t, Init("loud", "json", "stdout"))
}

func TestInitFileJSON(t *testing.T) {
	previous := Log
	t.Cleanup(func() { Log = previous })

	path := filepath.Join(t.TempDir(), "gateway.log")
	require.NoError(t, Init("info", "json", path))

	Debug("hidden")
	Named("vision").Info("Prediction stored", zap.Int("orderNumber", 2))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Prediction stored", entry["message"])
	assert.Equal(t, "vision", entry["logger"])
	assert.Equal(t, ServiceName, entry["service"])
	assert.Equal(t, float64(2), entry["orderNumber"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}
