package entity

import "strings"

type RuleKind string

const (
	RulePathExpression RuleKind = "path-expression"
	RuleTextPattern    RuleKind = "text-pattern"
)

// TextPatternPrefix marks a rule string as a regular expression over element text.
const TextPatternPrefix = "re:"

// Well-known field names.
const (
	FieldContainer      = "container"
	FieldItem           = "item"
	FieldUsername       = "username"
	FieldContent        = "content"
	FieldTimestamp      = "timestamp"
	FieldLikes          = "likes"
	FieldReplyContainer = "replyContainer"
	FieldReplyItem      = "replyItem"
	FieldReplyExpand    = "replyExpand"
)

// RequiredFields must each resolve to at least one element.
var RequiredFields = []string{FieldItem, FieldUsername, FieldContent}

func IsRequiredField(name string) bool {
	for _, f := range RequiredFields {
		if f == name {
			return true
		}
	}
	return false
}

type SelectorRule struct {
	Selector string   `json:"selector" yaml:"selector"`
	Kind     RuleKind `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// ParseRule turns a flat rule string into a SelectorRule.
func ParseRule(s string) SelectorRule {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, TextPatternPrefix) {
		return SelectorRule{Selector: strings.TrimPrefix(s, TextPatternPrefix), Kind: RuleTextPattern}
	}
	return SelectorRule{Selector: s, Kind: RulePathExpression}
}

func PathRule(selector string) SelectorRule {
	return SelectorRule{Selector: selector, Kind: RulePathExpression}
}

// String is the inverse of ParseRule.
func (r SelectorRule) String() string {
	if r.Kind == RuleTextPattern {
		return TextPatternPrefix + r.Selector
	}
	return r.Selector
}

func (r SelectorRule) IsZero() bool {
	return strings.TrimSpace(r.Selector) == ""
}

// SelfReference reports whether the rule addresses the scope element itself.
func (r SelectorRule) SelfReference() bool {
	s := strings.TrimSpace(r.Selector)
	return r.Kind != RuleTextPattern && (s == "" || s == ":scope")
}

type FieldSelector struct {
	Name      string       `json:"name" yaml:"name"`
	Rule      SelectorRule `json:"rule" yaml:"rule"`
	Attribute string       `json:"attribute,omitempty" yaml:"attribute,omitempty"`
}

// SelectorMap is a flat field name to rule string dictionary.
type SelectorMap map[string]string

func (m SelectorMap) Clone() SelectorMap {
	out := make(SelectorMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge fills fields missing from m with values from other. Existing
// non-empty fields are never overwritten.
func (m SelectorMap) Merge(other SelectorMap) SelectorMap {
	out := m.Clone()
	for k, v := range other {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if cur, ok := out[k]; ok && strings.TrimSpace(cur) != "" {
			continue
		}
		out[k] = v
	}
	return out
}

// HasRequired reports whether all required fields carry a rule.
func (m SelectorMap) HasRequired() bool {
	for _, f := range RequiredFields {
		if strings.TrimSpace(m[f]) == "" {
			return false
		}
	}
	return true
}
