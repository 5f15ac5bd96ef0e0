package output

import (
	"context"

	"comment-extractor/internal/domain/entity"
)

// SettingsStore is the durable settings/config store. Writes are
// last-writer-wins.
type SettingsStore interface {
	GetSettings(ctx context.Context) (entity.Settings, error)
	SaveSettings(ctx context.Context, s entity.Settings) error

	GetConfig(ctx context.Context, domain string) (*entity.ExtractionConfig, error)
	SaveConfig(ctx context.Context, cfg *entity.ExtractionConfig) error
	ListConfigs(ctx context.Context) ([]entity.ExtractionConfig, error)

	GetValue(ctx context.Context, key string) ([]byte, error)
	SetValue(ctx context.Context, key string, value []byte) error
}
