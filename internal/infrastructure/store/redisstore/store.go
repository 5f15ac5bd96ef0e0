// Package redisstore persists settings, per-domain configs and opaque values
// in Redis so several extractor processes can share learned configs.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"

	"github.com/redis/go-redis/v9"
)

var _ output.SettingsStore = (*Store)(nil)

// Config holds Redis connection configuration.
type Config struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// ErrEmptyAddress is returned when the Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

const (
	connectionTimeout = 5 * time.Second
	defaultPrefix     = "extractor:"
)

// NewClient creates a Redis client and verifies the connection.
func NewClient(cfg Config) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Store implements output.SettingsStore. Configs live in one hash keyed by
// domain; settings and values are plain string keys.
type Store struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) settingsKey() string { return s.prefix + "settings" }
func (s *Store) configsKey() string  { return s.prefix + "configs" }
func (s *Store) valueKey(k string) string {
	return s.prefix + "value:" + k
}

func (s *Store) GetSettings(ctx context.Context) (entity.Settings, error) {
	raw, err := s.client.Get(ctx, s.settingsKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.DefaultSettings(), nil
	}
	if err != nil {
		return entity.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	var settings entity.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return entity.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings.WithDefaults(), nil
}

func (s *Store) SaveSettings(ctx context.Context, settings entity.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.client.Set(ctx, s.settingsKey(), raw, 0).Err(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *Store) GetConfig(ctx context.Context, domain string) (*entity.ExtractionConfig, error) {
	raw, err := s.client.HGet(ctx, s.configsKey(), domain).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("config %s: %w", domain, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get config %s: %w", domain, err)
	}
	var cfg entity.ExtractionConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", domain, err)
	}
	return &cfg, nil
}

func (s *Store) SaveConfig(ctx context.Context, cfg *entity.ExtractionConfig) error {
	if err := cfg.Check(); err != nil {
		return err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config %s: %w", cfg.Domain, err)
	}
	if err := s.client.HSet(ctx, s.configsKey(), cfg.Domain, raw).Err(); err != nil {
		return fmt.Errorf("save config %s: %w", cfg.Domain, err)
	}
	return nil
}

// ListConfigs returns every stored config ordered by domain. Entries that no
// longer decode are skipped.
func (s *Store) ListConfigs(ctx context.Context) ([]entity.ExtractionConfig, error) {
	all, err := s.client.HGetAll(ctx, s.configsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	out := make([]entity.ExtractionConfig, 0, len(all))
	for _, raw := range all {
		var cfg entity.ExtractionConfig
		if json.Unmarshal([]byte(raw), &cfg) != nil {
			continue
		}
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

func (s *Store) GetValue(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.valueKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("key %s: %w", key, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return raw, nil
}

func (s *Store) SetValue(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.valueKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
