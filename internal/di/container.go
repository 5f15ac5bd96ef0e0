package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/application/service"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/infrastructure/browser/rod"
	"comment-extractor/internal/infrastructure/document/htmldoc"
	"comment-extractor/internal/infrastructure/env"
	"comment-extractor/internal/infrastructure/llm/channel"
	"comment-extractor/internal/infrastructure/llm/langchain"
	"comment-extractor/internal/infrastructure/llm/openrouter"
	"comment-extractor/internal/infrastructure/logger"
	"comment-extractor/internal/infrastructure/metrics"
	"comment-extractor/internal/infrastructure/prompts"
	"comment-extractor/internal/infrastructure/store/memstore"
	"comment-extractor/internal/infrastructure/store/redisstore"
	"comment-extractor/internal/infrastructure/store/seed"
	"comment-extractor/internal/usecase/orchestrator"
	"comment-extractor/internal/usecase/runstate"
	"comment-extractor/internal/usecase/strategy/aidiscovery"
	"comment-extractor/internal/usecase/strategy/configdriven"
	"comment-extractor/internal/usecase/strategy/progressive"

	"github.com/prometheus/client_golang/prometheus"
)

// Oracle providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderLangchain  = "langchain"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Document sources.
const (
	DocumentsBrowser = "browser"
	DocumentsStatic  = "static"
)

var ErrUnknownOption = errors.New("unknown option")

type OracleConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Stream   bool
}

type Config struct {
	Oracle    OracleConfig
	Store     string
	Redis     redisstore.Config
	SeedPath  string
	Documents string
	Browser   rod.BrowserConfig
	Log       logger.Config
	// Env overlays EXTRACTOR_* settings after the store and seed.
	Env output.ConfigPort
	// Transport, when set, replaces the provider transport.
	Transport output.OracleTransport
}

// ConfigFromEnv reads the container configuration from environment.
func ConfigFromEnv(cfg output.ConfigPort, task string) Config {
	browser := rod.DefaultConfig()
	browser.Headless = cfg.GetBool("BROWSER_HEADLESS", true)
	browser.NoSandbox = cfg.GetBool("BROWSER_NO_SANDBOX", false)
	browser.ControlURL = cfg.Get("BROWSER_CONTROL_URL")
	browser.Timeout = cfg.GetDuration("BROWSER_TIMEOUT", browser.Timeout)

	baseURL := cfg.GetWithDefault("OPENROUTER_BASE_URL", openrouter.DefaultConfig("", "").BaseURL)

	return Config{
		Oracle: OracleConfig{
			Provider: cfg.GetWithDefault("ORACLE_PROVIDER", ProviderOpenRouter),
			APIKey:   cfg.Get("OPENROUTER_API_KEY"),
			Model:    cfg.Get("OPENROUTER_MODEL_NAME"),
			BaseURL:  baseURL,
			Stream:   cfg.GetBool("ORACLE_STREAM", false),
		},
		Store: cfg.GetWithDefault("STORE_BACKEND", StoreMemory),
		Redis: redisstore.Config{
			Address:  cfg.Get("REDIS_ADDRESS"),
			Password: cfg.Get("REDIS_PASSWORD"),
			DB:       cfg.GetInt("REDIS_DB", 0),
			Prefix:   cfg.Get("REDIS_PREFIX"),
		},
		SeedPath:  cfg.Get("SEED_FILE"),
		Documents: cfg.GetWithDefault("DOCUMENT_SOURCE", DocumentsBrowser),
		Browser:   browser,
		Log: logger.Config{
			Dir:     cfg.GetWithDefault("LOG_DIR", "log"),
			Task:    task,
			Level:   cfg.GetWithDefault("LOG_LEVEL", "info"),
			Console: cfg.GetBool("LOG_CONSOLE", true),
		},
		Env: cfg,
	}
}

type Container struct {
	Logger    output.LoggerPort
	Settings  entity.Settings
	Store     output.SettingsStore
	Oracle    *channel.Channel
	Discovery *aidiscovery.Strategy
	Extractor *orchestrator.UseCase
	Documents output.DocumentSource
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry

	closers []func()
}

func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	log, err := logger.NewLoggerAdapter(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	c := &Container{Logger: log}

	if err := c.build(ctx, cfg); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context, cfg Config) error {
	store, err := c.newStore(cfg)
	if err != nil {
		return err
	}
	c.Store = store

	if cfg.SeedPath != "" {
		f, err := seed.Load(cfg.SeedPath)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, store, f, c.Logger); err != nil {
			return err
		}
	}

	settings, err := store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if cfg.Env != nil {
		settings = env.ApplySettings(cfg.Env, settings)
	}
	if settings.Model.Name == "" {
		settings.Model.Name = cfg.Oracle.Model
	}
	c.Settings = settings

	c.Registry = prometheus.NewRegistry()
	c.Metrics = metrics.New(c.Registry)

	transport, err := c.newTransport(cfg)
	if err != nil {
		return err
	}
	c.Oracle = channel.New(transport, channel.Options{
		SystemPrompt: prompts.SystemPrompt,
		Model:        settings.Model,
		Logger:       c.Logger.WithField("component", "oracle"),
		Metrics:      c.Metrics,
	})

	c.Discovery = aidiscovery.New(c.Oracle, store, settings, c.Logger)
	registry := service.NewStrategyRegistry(
		configdriven.New(store, settings, c.Logger),
		c.Discovery,
		progressive.New(c.Oracle, settings, c.Logger),
	)
	c.Extractor = orchestrator.New(registry, runstate.New(settings.MaxRunDuration), c.Metrics, c.Logger)

	docs, err := c.newDocuments(cfg)
	if err != nil {
		return err
	}
	c.Documents = docs

	c.Logger.Info("container ready",
		"store", cfg.Store,
		"oracle", cfg.Oracle.Provider,
		"documents", cfg.Documents,
		"model", settings.Model.Name,
	)
	return nil
}

func (c *Container) newStore(cfg Config) (output.SettingsStore, error) {
	switch cfg.Store {
	case "", StoreMemory:
		return memstore.New(), nil
	case StoreRedis:
		client, err := redisstore.NewClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = client.Close() })
		return redisstore.New(client, cfg.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("%w: store %q", ErrUnknownOption, cfg.Store)
	}
}

func (c *Container) newTransport(cfg Config) (output.OracleTransport, error) {
	if cfg.Transport != nil {
		return cfg.Transport, nil
	}
	switch cfg.Oracle.Provider {
	case "", ProviderOpenRouter:
		orCfg := openrouter.DefaultConfig(cfg.Oracle.APIKey, cfg.Oracle.Model)
		if cfg.Oracle.BaseURL != "" {
			orCfg.BaseURL = cfg.Oracle.BaseURL
		}
		orCfg.Stream = cfg.Oracle.Stream
		orCfg.Logger = c.Logger
		return openrouter.NewOpenRouterAdapter(orCfg), nil
	case ProviderLangchain:
		return langchain.NewOpenAICompatible(cfg.Oracle.APIKey, cfg.Oracle.Model, cfg.Oracle.BaseURL)
	default:
		return nil, fmt.Errorf("%w: oracle provider %q", ErrUnknownOption, cfg.Oracle.Provider)
	}
}

func (c *Container) newDocuments(cfg Config) (output.DocumentSource, error) {
	switch cfg.Documents {
	case "", DocumentsBrowser:
		src := rod.NewSource(cfg.Browser)
		c.closers = append(c.closers, src.Close)
		return src, nil
	case DocumentsStatic:
		return htmldoc.Source{Client: &http.Client{Timeout: time.Minute}}, nil
	default:
		return nil, fmt.Errorf("%w: document source %q", ErrUnknownOption, cfg.Documents)
	}
}

// MetricsHandler serves the container's Prometheus registry.
func (c *Container) MetricsHandler() http.Handler {
	return metrics.Handler(c.Registry)
}

// Close waits for background config generation, then releases the oracle
// channel, browser and store connections.
func (c *Container) Close() {
	if c.Discovery != nil {
		c.Discovery.Wait()
	}
	if c.Oracle != nil {
		_ = c.Oracle.Close()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	if c.Logger != nil {
		_ = c.Logger.Close()
	}
}
