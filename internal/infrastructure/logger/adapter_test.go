package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerAdapter_KeyValuesAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.WithField("domain", "a.com").
		WithFields(map[string]any{"tier": "config-driven"}).
		Info("tier finished", "records", 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "tier finished", entries[0].Message)
	assert.Equal(t, "a.com", ctx["domain"])
	assert.Equal(t, "config-driven", ctx["tier"])
	assert.EqualValues(t, 3, ctx["records"])
}

func TestNewLoggerAdapter_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLoggerAdapter(Config{Dir: dir, Task: "https://a.com/post?id=1", Level: "debug"})
	require.NoError(t, err)

	l.Debug("simplified", "nodes", 12)
	require.NoError(t, l.Close())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0].Name(), "_https___a_com_post_id_1.log"))

	raw, err := os.ReadFile(filepath.Join(dir, files[0].Name()))
	require.NoError(t, err)
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &line))
	assert.Equal(t, "simplified", line["msg"])
	assert.EqualValues(t, 12, line["nodes"])
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "task", sanitize("///"))
	assert.Equal(t, "a_b", sanitize("a b"))
	assert.Len(t, sanitize(strings.Repeat("x", 100)), 60)
}
