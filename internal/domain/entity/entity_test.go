package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRule(t *testing.T) {
	r := ParseRule("  re:^\\d+ likes$ ")
	assert.Equal(t, RuleTextPattern, r.Kind)
	assert.Equal(t, `^\d+ likes$`, r.Selector)
	assert.Equal(t, `re:^\d+ likes$`, r.String())

	p := ParseRule(".author")
	assert.Equal(t, RulePathExpression, p.Kind)
	assert.Equal(t, ".author", p.String())

	assert.True(t, PathRule("").SelfReference())
	assert.True(t, PathRule(":scope").SelfReference())
	assert.False(t, ParseRule("re:").SelfReference())
	assert.True(t, PathRule("  ").IsZero())
}

func TestSelectorMap_MergeKeepsExisting(t *testing.T) {
	m := SelectorMap{FieldItem: ".c", FieldUsername: ""}
	merged := m.Merge(SelectorMap{FieldItem: ".other", FieldUsername: ".u", FieldContent: " "})

	assert.Equal(t, ".c", merged[FieldItem])
	assert.Equal(t, ".u", merged[FieldUsername])
	assert.Empty(t, merged[FieldContent])
	assert.Empty(t, m[FieldUsername])
	assert.False(t, merged.HasRequired())

	merged[FieldContent] = ".t"
	assert.True(t, merged.HasRequired())
}

func TestSelectorMap_ConfigRoundTrip(t *testing.T) {
	m := SelectorMap{
		FieldContainer:      "#comments",
		FieldItem:           ".comment",
		FieldUsername:       ".author",
		FieldContent:        "re:said.*",
		FieldLikes:          ".votes",
		FieldReplyContainer: ".replies",
		FieldReplyItem:      ".reply",
		FieldReplyExpand:    "button.more",
	}
	cfg := m.ToConfig("example.com")
	require.NoError(t, cfg.Check())
	require.NotNil(t, cfg.Replies)
	require.NotNil(t, cfg.Replies.ExpandControl)

	content, ok := cfg.Field(FieldContent)
	require.True(t, ok)
	assert.Equal(t, RuleTextPattern, content.Rule.Kind)

	assert.Equal(t, m, cfg.SelectorMap())
}

func TestToConfig_DefaultsContainerToBody(t *testing.T) {
	cfg := SelectorMap{FieldItem: ".c", FieldUsername: ".u", FieldContent: ".t"}.ToConfig("a.com")
	assert.Equal(t, "body", cfg.Container.Selector)
	assert.Nil(t, cfg.Replies)
}

func TestCheck(t *testing.T) {
	cfg := SelectorMap{FieldItem: ".c", FieldUsername: ".u", FieldContent: ".t"}.ToConfig("a.com")
	require.NoError(t, cfg.Check())

	noDomain := *cfg
	noDomain.Domain = ""
	assert.ErrorIs(t, noDomain.Check(), ErrInvalidConfig)

	noContent := *cfg
	noContent.Fields = noContent.Fields[:1]
	assert.ErrorIs(t, noContent.Check(), ErrInvalidConfig)
}

func TestSettings_WithDefaults(t *testing.T) {
	s := Settings{ReserveRatio: 1.5, ScrollSettleDelay: -1, MaxScrolls: 4}.WithDefaults()
	d := DefaultSettings()

	assert.Equal(t, 4, s.MaxScrolls)
	assert.Equal(t, d.ReserveRatio, s.ReserveRatio)
	assert.Equal(t, d.ScrollSettleDelay, s.ScrollSettleDelay)
	assert.Equal(t, d.MaxRunDuration, s.MaxRunDuration)
	assert.False(t, s.CacheEnabled)

	zeroDelay := Settings{}.WithDefaults()
	assert.Equal(t, time.Duration(0), zeroDelay.ScrollSettleDelay)
}

func TestExtractionError(t *testing.T) {
	err := &ExtractionError{Domain: "a.com", Attempts: []TierAttempt{
		{Strategy: StrategyConfigDriven, Reason: "no config"},
		{Strategy: StrategyAIDiscovery, Reason: "no container"},
	}}
	assert.True(t, errors.Is(err, ErrNoContainer))
	assert.Contains(t, err.Error(), "config-driven: no config; ai-discovery: no container")
}

func TestContentMetrics_GrewFrom(t *testing.T) {
	before := ContentMetrics{ContentLength: 100, ChildCount: 3}
	assert.False(t, before.GrewFrom(before))
	assert.True(t, ContentMetrics{ContentLength: 101, ChildCount: 3}.GrewFrom(before))
	assert.True(t, ContentMetrics{ContentLength: 90, ChildCount: 4}.GrewFrom(before))
}

func TestComment_Total(t *testing.T) {
	c := Comment{Replies: []Comment{{}, {Replies: []Comment{{}}}}}
	assert.Equal(t, 4, c.Total())
}
