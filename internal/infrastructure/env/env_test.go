package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"comment-extractor/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvServiceIn_OverlaysAppEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EXTRACTOR_TEST_A=base\nEXTRACTOR_TEST_B=base\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test"), []byte("EXTRACTOR_TEST_B=override\n"), 0o600))
	t.Setenv("APP_ENV", "test")
	t.Setenv("EXTRACTOR_TEST_A", "")
	t.Setenv("EXTRACTOR_TEST_B", "")
	os.Unsetenv("EXTRACTOR_TEST_A")
	os.Unsetenv("EXTRACTOR_TEST_B")

	e := NewEnvServiceIn(dir)

	assert.Equal(t, "base", e.Get("EXTRACTOR_TEST_A"))
	assert.Equal(t, "override", e.Get("EXTRACTOR_TEST_B"))
}

func TestEnvService_TypedGetters(t *testing.T) {
	e := &EnvService{}
	t.Setenv("T_INT", "42")
	t.Setenv("T_BAD_INT", "x")
	t.Setenv("T_BOOL", "false")
	t.Setenv("T_FLOAT", "0.75")
	t.Setenv("T_DUR", "1.5s")
	t.Setenv("T_DUR_MS", "250")
	t.Setenv("T_STR", "value")

	assert.Equal(t, 42, e.GetInt("T_INT", 1))
	assert.Equal(t, 1, e.GetInt("T_BAD_INT", 1))
	assert.Equal(t, 7, e.GetInt("T_MISSING", 7))
	assert.False(t, e.GetBool("T_BOOL", true))
	assert.InDelta(t, 0.75, e.GetFloat("T_FLOAT", 0), 1e-9)
	assert.Equal(t, 1500*time.Millisecond, e.GetDuration("T_DUR", 0))
	assert.Equal(t, 250*time.Millisecond, e.GetDuration("T_DUR_MS", 0))
	assert.Equal(t, time.Second, e.GetDuration("T_MISSING", time.Second))
	assert.Equal(t, "value", e.GetWithDefault("T_STR", "d"))
	assert.Equal(t, "d", e.GetWithDefault("T_MISSING", "d"))
}

func TestApplySettings(t *testing.T) {
	t.Setenv("EXTRACTOR_MAX_DEPTH", "6")
	t.Setenv("EXTRACTOR_HIGH_CONFIDENCE", "0.8")
	t.Setenv("EXTRACTOR_SCROLL_SETTLE_DELAY", "0s")
	t.Setenv("EXTRACTOR_CACHE_ENABLED", "false")
	t.Setenv("EXTRACTOR_MODEL", "openai/gpt-4o-mini")

	s := ApplySettings(&EnvService{}, entity.DefaultSettings())

	assert.Equal(t, 6, s.MaxDepth)
	assert.InDelta(t, 0.8, s.HighConfidence, 1e-9)
	assert.Equal(t, time.Duration(0), s.ScrollSettleDelay)
	assert.False(t, s.CacheEnabled)
	assert.Equal(t, "openai/gpt-4o-mini", s.Model.Name)
	assert.Equal(t, entity.DefaultSettings().MaxScrolls, s.MaxScrolls)
}
