// Package selectorcache persists discovered selector maps per
// (domain, content type) on top of the settings store.
package selectorcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
)

const keyPrefix = "selector_cache"

func Key(domain, contentType string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, domain, contentType)
}

type Cache struct {
	store output.SettingsStore
	now   func() time.Time
}

func New(store output.SettingsStore) *Cache {
	return &Cache{store: store, now: time.Now}
}

// Get returns the raw entry, invalidated or not.
func (c *Cache) Get(ctx context.Context, domain, contentType string) (*entity.SelectorCacheEntry, error) {
	raw, err := c.store.GetValue(ctx, Key(domain, contentType))
	if err != nil {
		return nil, err
	}
	var entry entity.SelectorCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry %s: %w", Key(domain, contentType), err)
	}
	return &entry, nil
}

// Lookup returns a usable entry. Invalidated entries and misses report false.
func (c *Cache) Lookup(ctx context.Context, domain, contentType string) (*entity.SelectorCacheEntry, bool, error) {
	entry, err := c.Get(ctx, domain, contentType)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if entry.Invalidated || len(entry.Selectors) == 0 {
		return entry, false, nil
	}
	return entry, true, nil
}

// Store records a freshly discovered selector map, replacing any previous
// entry for the key.
func (c *Cache) Store(ctx context.Context, domain, contentType string, selectors entity.SelectorMap) error {
	return c.put(ctx, &entity.SelectorCacheEntry{
		Domain:       domain,
		ContentType:  contentType,
		Selectors:    selectors.Clone(),
		LastUsed:     c.now(),
		SuccessCount: 1,
	})
}

// RecordUse bumps the success counter of a reused entry.
func (c *Cache) RecordUse(ctx context.Context, domain, contentType string) error {
	entry, err := c.Get(ctx, domain, contentType)
	if err != nil {
		return err
	}
	entry.SuccessCount++
	entry.LastUsed = c.now()
	return c.put(ctx, entry)
}

// Invalidate marks the entry unusable without deleting it.
func (c *Cache) Invalidate(ctx context.Context, domain, contentType string) error {
	entry, err := c.Get(ctx, domain, contentType)
	if errors.Is(err, entity.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if entry.Invalidated {
		return nil
	}
	entry.Invalidated = true
	entry.InvalidatedAt = c.now()
	return c.put(ctx, entry)
}

func (c *Cache) put(ctx context.Context, entry *entity.SelectorCacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return c.store.SetValue(ctx, Key(entry.Domain, entry.ContentType), raw)
}
