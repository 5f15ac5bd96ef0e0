package redisstore

import (
	"context"
	"testing"

	"comment-extractor/internal/domain/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "test:"), mr
}

func validConfig(domain string) *entity.ExtractionConfig {
	return &entity.ExtractionConfig{
		Domain:    domain,
		Container: entity.PathRule("#comments"),
		Item:      entity.PathRule(".comment"),
		Fields: []entity.FieldSelector{
			{Name: entity.FieldUsername, Rule: entity.PathRule(".author")},
			{Name: entity.FieldContent, Rule: entity.ParseRule("re:^said")},
		},
	}
}

func TestNewClient_EmptyAddress(t *testing.T) {
	client, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrEmptyAddress)
	assert.Nil(t, client)
}

func TestNewClient_Pings(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client, err := NewClient(Config{Address: addr})
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	mr.Close()
	_, err = NewClient(Config{Address: addr})
	assert.Error(t, err)
}

func TestStore_Settings(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultSettings(), got)

	custom := entity.DefaultSettings()
	custom.MaxScrolls = 9
	custom.CacheEnabled = false
	require.NoError(t, s.SaveSettings(ctx, custom))
	assert.True(t, mr.Exists("test:settings"))

	got, err = s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, got.MaxScrolls)
	assert.False(t, got.CacheEnabled)
}

func TestStore_CorruptSettings(t *testing.T) {
	s, mr := newStore(t)
	require.NoError(t, mr.Set("test:settings", "{not json"))

	_, err := s.GetSettings(context.Background())
	assert.Error(t, err)
}

func TestStore_Configs(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	_, err := s.GetConfig(ctx, "a.com")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	require.NoError(t, s.SaveConfig(ctx, validConfig("b.com")))
	require.NoError(t, s.SaveConfig(ctx, validConfig("a.com")))

	bad := validConfig("c.com")
	bad.Item = entity.SelectorRule{}
	assert.ErrorIs(t, s.SaveConfig(ctx, bad), entity.ErrInvalidConfig)

	mr.HSet("test:configs", "broken.com", "{")

	list, err := s.ListConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.com", list[0].Domain)
	assert.Equal(t, "b.com", list[1].Domain)

	cfg, err := s.GetConfig(ctx, "b.com")
	require.NoError(t, err)
	content, ok := cfg.Field(entity.FieldContent)
	require.True(t, ok)
	assert.Equal(t, entity.RuleTextPattern, content.Rule.Kind)
	assert.Equal(t, "^said", content.Rule.Selector)
}

func TestStore_Values(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	_, err := s.GetValue(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	require.NoError(t, s.SetValue(ctx, "cache", []byte(`{"a":1}`)))
	raw, err := mr.Get("test:value:cache")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, raw)

	got, err := s.GetValue(ctx, "cache")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestNew_DefaultPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := New(client, "")
	require.NoError(t, s.SetValue(context.Background(), "k", []byte("v")))
	assert.True(t, mr.Exists(defaultPrefix+"value:k"))
}
