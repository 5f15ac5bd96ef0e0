// Package validator tests rule sets against the live document and classifies
// the outcome per field.
package validator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/usecase/selectorpath"
)

// InvalidRule is the match count reported for a syntactically invalid rule.
const InvalidRule = -1

// Match evaluates rule under scope. Self references return the scope itself,
// derived selector paths are resolved structurally, everything else goes to
// the document's query engine.
func Match(ctx context.Context, doc output.DocumentPort, scope entity.ElementHandle, rule entity.SelectorRule, pierce bool) ([]entity.ElementHandle, error) {
	if rule.SelfReference() {
		if scope == entity.NoElement {
			return nil, fmt.Errorf("%w: self reference without scope", entity.ErrInvalidSelector)
		}
		return []entity.ElementHandle{scope}, nil
	}
	if rule.Kind != entity.RuleTextPattern && selectorpath.IsDerived(rule.Selector) {
		h, err := selectorpath.Resolve(ctx, doc, rule.Selector)
		if errors.Is(err, entity.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []entity.ElementHandle{h}, nil
	}
	return doc.Query(ctx, entity.Query{Scope: scope, Rule: rule, PierceOpaque: pierce})
}

// First returns the first match of rule under scope, if any. The search
// enters opaque roots, including the one attached to scope itself.
func First(ctx context.Context, doc output.DocumentPort, scope entity.ElementHandle, rule entity.SelectorRule) (entity.ElementHandle, bool, error) {
	found, err := Match(ctx, doc, scope, rule, true)
	if err != nil || len(found) == 0 {
		return entity.NoElement, false, err
	}
	return found[0], true, nil
}

// TestSelectors counts live matches per field across the whole document,
// opaque roots included. Invalid rules count InvalidRule.
func TestSelectors(ctx context.Context, doc output.DocumentPort, selectors entity.SelectorMap) (map[string]int, error) {
	counts := make(map[string]int, len(selectors))
	for field, raw := range selectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rule := entity.ParseRule(raw)
		if rule.IsZero() {
			counts[field] = 0
			continue
		}
		found, err := Match(ctx, doc, entity.NoElement, rule, true)
		switch {
		case errors.Is(err, entity.ErrInvalidSelector):
			counts[field] = InvalidRule
		case err != nil:
			return nil, fmt.Errorf("test selector %s: %w", field, err)
		default:
			counts[field] = len(found)
		}
	}
	return counts, nil
}

// ValidateSelectorResults requires every required field to match at least
// once. Optional fields never affect the outcome.
func ValidateSelectorResults(counts map[string]int) bool {
	for _, f := range entity.RequiredFields {
		if counts[f] <= 0 {
			return false
		}
	}
	return true
}

// CategorizeSelectors splits a rule set into successful rules (required
// fields with matches and every optional field) and failed required rules.
func CategorizeSelectors(selectors entity.SelectorMap, counts map[string]int) (successful, failed entity.SelectorMap) {
	successful = entity.SelectorMap{}
	failed = entity.SelectorMap{}
	for field, rule := range selectors {
		if entity.IsRequiredField(field) && counts[field] <= 0 {
			failed[field] = rule
			continue
		}
		successful[field] = rule
	}
	return successful, failed
}

// MissingRequired lists required fields absent from selectors entirely.
func MissingRequired(selectors entity.SelectorMap) []string {
	var missing []string
	for _, f := range entity.RequiredFields {
		if strings.TrimSpace(selectors[f]) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Diagnostics renders one human readable line per field, sorted by name.
func Diagnostics(selectors entity.SelectorMap, counts map[string]int) []string {
	fields := make([]string, 0, len(selectors))
	for f := range selectors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		kind := "optional"
		if entity.IsRequiredField(f) {
			kind = "required"
		}
		n := counts[f]
		switch {
		case n == InvalidRule:
			lines = append(lines, fmt.Sprintf("✗ %s (%s): invalid selector %q", f, kind, selectors[f]))
		case n == 0:
			lines = append(lines, fmt.Sprintf("✗ %s (%s): no matches for %q", f, kind, selectors[f]))
		default:
			lines = append(lines, fmt.Sprintf("✓ %s (%s): %d matches for %q", f, kind, n, selectors[f]))
		}
	}
	return lines
}

// ConfigCheck is the live resolution outcome of an ExtractionConfig.
type ConfigCheck struct {
	ContainerMatches int
	ItemMatches      int
	Container        entity.ElementHandle
}

func (c ConfigCheck) Valid() bool {
	return c.ContainerMatches > 0 && c.ItemMatches > 0
}

// ValidateConfig checks that the container and at least one item resolve.
func ValidateConfig(ctx context.Context, doc output.DocumentPort, cfg *entity.ExtractionConfig) (ConfigCheck, error) {
	var check ConfigCheck
	if err := cfg.Check(); err != nil {
		return check, err
	}

	containers, err := Match(ctx, doc, entity.NoElement, cfg.Container, true)
	if err != nil {
		return check, fmt.Errorf("container: %w", err)
	}
	check.ContainerMatches = len(containers)
	if len(containers) == 0 {
		return check, nil
	}
	check.Container = containers[0]

	items, err := Match(ctx, doc, check.Container, cfg.Item, false)
	if err != nil {
		return check, fmt.Errorf("item: %w", err)
	}
	check.ItemMatches = len(items)
	return check, nil
}
