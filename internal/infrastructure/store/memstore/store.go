// Package memstore is an in-process SettingsStore.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
)

var _ output.SettingsStore = (*Store)(nil)

type Store struct {
	mu       sync.RWMutex
	settings *entity.Settings
	configs  map[string]entity.ExtractionConfig
	values   map[string][]byte
}

func New() *Store {
	return &Store{
		configs: make(map[string]entity.ExtractionConfig),
		values:  make(map[string][]byte),
	}
}

// GetSettings returns the saved settings or the defaults.
func (s *Store) GetSettings(ctx context.Context) (entity.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return entity.DefaultSettings(), nil
	}
	return s.settings.WithDefaults(), nil
}

func (s *Store) SaveSettings(ctx context.Context, settings entity.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
	return nil
}

func (s *Store) GetConfig(ctx context.Context, domain string) (*entity.ExtractionConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[domain]
	if !ok {
		return nil, fmt.Errorf("config %s: %w", domain, entity.ErrNotFound)
	}
	return &cfg, nil
}

func (s *Store) SaveConfig(ctx context.Context, cfg *entity.ExtractionConfig) error {
	if err := cfg.Check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.Domain] = *cfg
	return nil
}

func (s *Store) ListConfigs(ctx context.Context) ([]entity.ExtractionConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.ExtractionConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

func (s *Store) GetValue(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, fmt.Errorf("key %s: %w", key, entity.ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) SetValue(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}
