package entity

import (
	"fmt"
	"time"
)

// ExtractionConfig is a durable, validated rule set for one domain.
type ExtractionConfig struct {
	Domain    string          `json:"domain" yaml:"domain"`
	Container SelectorRule    `json:"container" yaml:"container"`
	Item      SelectorRule    `json:"item" yaml:"item"`
	Fields    []FieldSelector `json:"fields" yaml:"fields"`
	Replies   *ReplyConfig    `json:"replies,omitempty" yaml:"replies,omitempty"`
	Scroll    *ScrollConfig   `json:"scrollConfig,omitempty" yaml:"scrollConfig,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// ReplyConfig describes where nested replies of an item live. Container and
// ExpandControl are searched inside the item first, then inside its parent.
type ReplyConfig struct {
	Container     SelectorRule    `json:"container" yaml:"container"`
	Item          SelectorRule    `json:"item" yaml:"item"`
	ExpandControl *SelectorRule   `json:"expandControl,omitempty" yaml:"expandControl,omitempty"`
	Fields        []FieldSelector `json:"fields,omitempty" yaml:"fields,omitempty"`
	MaxDepth      int             `json:"maxDepth,omitempty" yaml:"maxDepth,omitempty"`
}

type ScrollConfig struct {
	MaxScrolls       int           `json:"maxScrolls,omitempty" yaml:"maxScrolls,omitempty"`
	SettleDelay      time.Duration `json:"settleDelay,omitempty" yaml:"settleDelay,omitempty"`
	UnchangedLimit   int           `json:"unchangedLimit,omitempty" yaml:"unchangedLimit,omitempty"`
	ZeroNewPassLimit int           `json:"zeroNewPassLimit,omitempty" yaml:"zeroNewPassLimit,omitempty"`
}

func (c *ExtractionConfig) Field(name string) (FieldSelector, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSelector{}, false
}

// Check verifies the static shape of the config. Live resolution of
// container/item is the validator's job.
func (c *ExtractionConfig) Check() error {
	if c.Domain == "" {
		return fmt.Errorf("%w: empty domain", ErrInvalidConfig)
	}
	if c.Container.IsZero() || c.Item.IsZero() {
		return fmt.Errorf("%w: container and item rules are required", ErrInvalidConfig)
	}
	for _, name := range []string{FieldUsername, FieldContent} {
		if _, ok := c.Field(name); !ok {
			return fmt.Errorf("%w: missing field %q", ErrInvalidConfig, name)
		}
	}
	return nil
}

// ToConfig promotes a discovered selector map into an ExtractionConfig.
func (m SelectorMap) ToConfig(domain string) *ExtractionConfig {
	cfg := &ExtractionConfig{
		Domain:    domain,
		Container: ParseRule(m[FieldContainer]),
		Item:      ParseRule(m[FieldItem]),
	}
	if cfg.Container.IsZero() {
		cfg.Container = PathRule("body")
	}
	for _, name := range []string{FieldUsername, FieldContent, FieldTimestamp, FieldLikes} {
		if rule, ok := m[name]; ok && rule != "" {
			cfg.Fields = append(cfg.Fields, FieldSelector{Name: name, Rule: ParseRule(rule)})
		}
	}
	if item := m[FieldReplyItem]; item != "" {
		rc := &ReplyConfig{
			Container: ParseRule(m[FieldReplyContainer]),
			Item:      ParseRule(item),
		}
		if expand := m[FieldReplyExpand]; expand != "" {
			r := ParseRule(expand)
			rc.ExpandControl = &r
		}
		cfg.Replies = rc
	}
	return cfg
}

// SelectorMap flattens the config back into field rules.
func (c *ExtractionConfig) SelectorMap() SelectorMap {
	m := SelectorMap{
		FieldContainer: c.Container.String(),
		FieldItem:      c.Item.String(),
	}
	for _, f := range c.Fields {
		m[f.Name] = f.Rule.String()
	}
	if c.Replies != nil {
		m[FieldReplyItem] = c.Replies.Item.String()
		if !c.Replies.Container.IsZero() {
			m[FieldReplyContainer] = c.Replies.Container.String()
		}
		if c.Replies.ExpandControl != nil {
			m[FieldReplyExpand] = c.Replies.ExpandControl.String()
		}
	}
	return m
}
