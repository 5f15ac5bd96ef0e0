package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"comment-extractor/internal/application/port/input"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/infrastructure/document/htmldoc"
	"comment-extractor/internal/infrastructure/env"
	"comment-extractor/internal/infrastructure/logger"
	"comment-extractor/internal/infrastructure/store/redisstore"
	"comment-extractor/internal/usecase/oracletest"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedTransport struct {
	*oracletest.Scripted
}

func (s scriptedTransport) Complete(ctx context.Context, req entity.OracleRequest) (*entity.OracleResponse, error) {
	return s.Request(ctx, req)
}

const seedYAML = `
settings:
  scrollSettleDelay: 0s
  unchangedScrollThreshold: 1
configs:
  - domain: example.com
    container: {selector: "#comments"}
    item: {selector: ".comment"}
    fields:
      - {name: username, rule: {selector: ".author"}}
      - {name: content, rule: {selector: ".text"}}
`

const page = `<html><body><div id="comments">
<div class="comment"><span class="author">alice</span><p class="text">hello</p></div>
</div></body></html>`

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedYAML), 0o600))

	return Config{
		Store:     StoreMemory,
		SeedPath:  seedPath,
		Documents: DocumentsStatic,
		Log:       logger.Config{Dir: filepath.Join(dir, "log"), Task: "test"},
		Env:       &env.EnvService{},
		Transport: scriptedTransport{oracletest.New()},
	}
}

func TestNewContainer_SeedEnvAndExtraction(t *testing.T) {
	t.Setenv("EXTRACTOR_MAX_SCROLLS", "7")

	c, err := NewContainer(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 7, c.Settings.MaxScrolls)
	assert.Equal(t, 1, c.Settings.UnchangedScrollThreshold)

	doc, err := htmldoc.New(page)
	require.NoError(t, err)
	res, err := c.Extractor.Execute(context.Background(), doc, input.ExtractRequest{URL: "https://example.com/p"})
	require.NoError(t, err)
	assert.Equal(t, entity.StrategyConfigDriven, res.Strategy)
	require.Len(t, res.Comments, 1)
	assert.Equal(t, "alice", res.Comments[0].Username)

	assert.NotNil(t, c.MetricsHandler())
	_, ok := c.Documents.(htmldoc.Source)
	assert.True(t, ok)
}

func TestNewContainer_RedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store = StoreRedis
	cfg.Redis = redisstore.Config{Address: mr.Addr(), Prefix: "di:"}

	c, err := NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Store.GetConfig(context.Background(), "example.com")
	require.NoError(t, err)
	assert.True(t, mr.Exists("di:configs"))
}

func TestNewContainer_UnknownOptions(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"store":     func(c *Config) { c.Store = "sqlite" },
		"documents": func(c *Config) { c.Documents = "carrier-pigeon" },
		"oracle": func(c *Config) {
			c.Transport = nil
			c.Oracle.Provider = "other"
		},
	} {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t)
			mutate(&cfg)
			_, err := NewContainer(context.Background(), cfg)
			assert.ErrorIs(t, err, ErrUnknownOption)
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_ADDRESS", "localhost:6380")
	t.Setenv("DOCUMENT_SOURCE", "static")
	t.Setenv("OPENROUTER_MODEL_NAME", "some/model")
	t.Setenv("BROWSER_HEADLESS", "false")

	cfg := ConfigFromEnv(&env.EnvService{}, "run")
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "localhost:6380", cfg.Redis.Address)
	assert.Equal(t, DocumentsStatic, cfg.Documents)
	assert.Equal(t, "some/model", cfg.Oracle.Model)
	assert.Equal(t, ProviderOpenRouter, cfg.Oracle.Provider)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "run", cfg.Log.Task)
}
