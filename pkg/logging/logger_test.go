package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLinesAreSelfContainedJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriting(zapcore.AddSync(&buf))

	logger.Info("navigating to publish page", zap.String("correlationId", "abc"))
	logger.Named("ingest").Info("resolved 2 images")
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "log", first["type"])
	assert.Equal(t, "navigating to publish page", first["message"])
	assert.Equal(t, "abc", first["correlationId"])
	assert.NotEmpty(t, first["timestamp"])
	assert.NotContains(t, first, "level")

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "ingest", second["component"])
}
