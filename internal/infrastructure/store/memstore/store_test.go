package memstore

import (
	"context"
	"testing"

	"comment-extractor/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(domain string) *entity.ExtractionConfig {
	return &entity.ExtractionConfig{
		Domain:    domain,
		Container: entity.PathRule("#comments"),
		Item:      entity.PathRule(".comment"),
		Fields: []entity.FieldSelector{
			{Name: entity.FieldUsername, Rule: entity.PathRule(".author")},
			{Name: entity.FieldContent, Rule: entity.PathRule(".text")},
		},
	}
}

func TestStore_SettingsDefaultUntilSaved(t *testing.T) {
	ctx := context.Background()
	s := New()

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultSettings(), got)

	custom := entity.DefaultSettings()
	custom.MaxRetries = 7
	require.NoError(t, s.SaveSettings(ctx, custom))

	got, err = s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, got.MaxRetries)
}

func TestStore_Configs(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.GetConfig(ctx, "a.com")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	require.NoError(t, s.SaveConfig(ctx, validConfig("b.com")))
	require.NoError(t, s.SaveConfig(ctx, validConfig("a.com")))

	bad := validConfig("c.com")
	bad.Fields = nil
	assert.ErrorIs(t, s.SaveConfig(ctx, bad), entity.ErrInvalidConfig)

	list, err := s.ListConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.com", list[0].Domain)

	cfg, err := s.GetConfig(ctx, "b.com")
	require.NoError(t, err)
	assert.Equal(t, ".comment", cfg.Item.Selector)
}

func TestStore_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()

	v := []byte("abc")
	require.NoError(t, s.SetValue(ctx, "k", v))
	v[0] = 'x'

	got, err := s.GetValue(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	_, err = s.GetValue(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
