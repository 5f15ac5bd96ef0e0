package heuristics

import (
	"testing"

	"comment-extractor/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		domain string
		found  bool
	}{
		{"youtube.com", true},
		{"www.youtube.com", true},
		{"m.youtube.com", true},
		{"YouTube.com", true},
		{"notyoutube.com", false},
		{"news.ycombinator.com", true},
		{"ycombinator.com", false},
		{"example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			_, ok := Lookup(tt.domain)
			assert.Equal(t, tt.found, ok)
		})
	}
}

func TestLookup_ReturnsCopy(t *testing.T) {
	m, ok := Lookup("reddit.com")
	require.True(t, ok)
	m[entity.FieldItem] = "changed"

	again, _ := Lookup("reddit.com")
	assert.Equal(t, "shreddit-comment", again[entity.FieldItem])
}

func TestKnownSitesCarryRequiredFields(t *testing.T) {
	for _, s := range known {
		assert.True(t, s.selectors.HasRequired(), s.domain)
	}
}
