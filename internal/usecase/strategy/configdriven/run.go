package configdriven

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/usecase/loadmore"
	"comment-extractor/internal/usecase/records"
	"comment-extractor/internal/usecase/runstate"
	"comment-extractor/internal/usecase/validator"
)

// run is the mutable state of one extraction run.
type run struct {
	doc      output.DocumentPort
	cfg      *entity.ExtractionConfig
	settings entity.Settings
	max      int
	logger   output.LoggerPort

	collector   *records.Collector
	processed   map[entity.ElementHandle]string
	topLevel    []entity.ElementHandle
	diagnostics map[string]entity.FieldDiagnostic
	patterns    map[string]*regexp.Regexp
}

func newRun(doc output.DocumentPort, cfg *entity.ExtractionConfig, settings entity.Settings, max int, logger output.LoggerPort) *run {
	return &run{
		doc:         doc,
		cfg:         cfg,
		settings:    settings,
		max:         max,
		logger:      logger,
		collector:   records.NewCollector(),
		processed:   make(map[entity.ElementHandle]string),
		diagnostics: make(map[string]entity.FieldDiagnostic),
		patterns:    make(map[string]*regexp.Regexp),
	}
}

func (r *run) full() bool {
	return r.max > 0 && r.collector.Len() >= r.max
}

// pass walks every item currently in container and returns how many new
// top-level records were collected.
func (r *run) pass(ctx context.Context, container entity.ElementHandle) (int, error) {
	items, err := validator.Match(ctx, r.doc, container, r.cfg.Item, true)
	if err != nil {
		return 0, fmt.Errorf("match items: %w", err)
	}

	// occurrences numbers identical triples in document order so that
	// distinct elements get distinct ids while re-renders keep theirs.
	occurrences := make(map[string]int)
	added := 0
	for _, item := range items {
		if r.full() {
			break
		}
		if err := runstate.Check(ctx); err != nil {
			return added, err
		}
		if key, seen := r.processed[item]; seen {
			if key != "" {
				occurrences[key]++
			}
			continue
		}
		nested, err := r.nestedInMatched(ctx, item)
		if err != nil {
			return added, err
		}
		if nested {
			r.processed[item] = ""
			continue
		}

		rec, key, err := r.extract(ctx, item, r.cfg.Fields, occurrences)
		if err != nil {
			return added, err
		}
		r.processed[item] = key
		r.topLevel = append(r.topLevel, item)

		if r.cfg.Replies != nil {
			replies, err := r.replies(ctx, item, 1)
			if err != nil {
				return added, err
			}
			rec.Replies = replies
		}
		if r.collector.Add(rec) {
			added++
		}
	}
	return added, nil
}

// nestedInMatched reports whether item lies inside an item already taken,
// which happens when the item rule also matches replies.
func (r *run) nestedInMatched(ctx context.Context, item entity.ElementHandle) (bool, error) {
	for _, prev := range r.topLevel {
		inside, err := r.doc.Contains(ctx, prev, item)
		if err != nil {
			return false, err
		}
		if inside {
			return true, nil
		}
	}
	return false, nil
}

// extract reads fields from item. The returned key identifies the triple for
// ordinal numbering.
func (r *run) extract(ctx context.Context, item entity.ElementHandle, fields []entity.FieldSelector, occurrences map[string]int) (entity.Comment, string, error) {
	var rec entity.Comment
	for _, f := range fields {
		value, ok, err := r.field(ctx, item, f)
		if err != nil {
			return rec, "", fmt.Errorf("field %s: %w", f.Name, err)
		}
		d := r.diagnostics[f.Name]
		if ok && value != "" {
			d.Matched++
		} else {
			d.Failed++
		}
		r.diagnostics[f.Name] = d

		switch f.Name {
		case entity.FieldUsername:
			rec.Username = value
		case entity.FieldContent:
			rec.Content = value
		case entity.FieldTimestamp:
			rec.Timestamp = value
		case entity.FieldLikes:
			rec.Likes = records.ParseCount(value)
		}
	}

	key := strings.Join([]string{rec.Username, rec.Content, rec.Timestamp}, "\x1f")
	ordinal := occurrences[key]
	occurrences[key]++
	rec.ID = records.ID(rec.Username, rec.Content, rec.Timestamp, ordinal)
	rec.Replies = []entity.Comment{}
	return rec, key, nil
}

// field evaluates one field rule inside item.
func (r *run) field(ctx context.Context, item entity.ElementHandle, f entity.FieldSelector) (string, bool, error) {
	el, ok, err := validator.First(ctx, r.doc, item, f.Rule)
	if err != nil || !ok {
		return "", false, err
	}

	if f.Attribute != "" {
		v, ok, err := r.doc.Attribute(ctx, el, f.Attribute)
		return strings.TrimSpace(v), ok, err
	}

	text, err := r.doc.Text(ctx, el)
	if err != nil {
		return "", false, err
	}
	if f.Rule.Kind != entity.RuleTextPattern {
		return text, true, nil
	}

	re, err := r.pattern(f.Rule.Selector)
	if err != nil {
		return "", false, err
	}
	m := re.FindStringSubmatch(text)
	switch {
	case m == nil:
		return "", false, nil
	case len(m) > 1:
		return strings.TrimSpace(m[1]), true, nil
	default:
		return strings.TrimSpace(m[0]), true, nil
	}
}

func (r *run) pattern(expr string) (*regexp.Regexp, error) {
	if re, ok := r.patterns[expr]; ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidSelector, err)
	}
	r.patterns[expr] = re
	return re, nil
}

func (r *run) maxReplyDepth() int {
	if r.cfg.Replies.MaxDepth > 0 {
		return r.cfg.Replies.MaxDepth
	}
	return r.settings.MaxReplyDepth
}

// replies expands and collects the replies of item, recursing up to the
// configured nesting depth.
func (r *run) replies(ctx context.Context, item entity.ElementHandle, depth int) ([]entity.Comment, error) {
	out := []entity.Comment{}
	if depth > r.maxReplyDepth() {
		return out, nil
	}
	rc := r.cfg.Replies

	if rc.ExpandControl != nil {
		if err := r.expand(ctx, item, *rc.ExpandControl); err != nil {
			return out, err
		}
	}

	found, err := r.replyItems(ctx, item)
	if err != nil {
		return out, err
	}

	fields := rc.Fields
	if len(fields) == 0 {
		fields = r.cfg.Fields
	}
	occurrences := make(map[string]int)
	var taken []entity.ElementHandle
	for _, h := range found {
		if h == item {
			continue
		}
		if _, seen := r.processed[h]; seen {
			continue
		}
		nested := false
		for _, prev := range taken {
			if nested, err = r.doc.Contains(ctx, prev, h); err != nil {
				return out, err
			} else if nested {
				break
			}
		}
		if nested {
			continue
		}

		rec, key, err := r.extract(ctx, h, fields, occurrences)
		if err != nil {
			return out, err
		}
		r.processed[h] = key
		taken = append(taken, h)

		if rec.Replies, err = r.replies(ctx, h, depth+1); err != nil {
			return out, err
		}
		if records.Valid(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// replyItems lists reply elements of item. The reply container is looked
// up inside the item first, then inside its parent.
func (r *run) replyItems(ctx context.Context, item entity.ElementHandle) ([]entity.ElementHandle, error) {
	rc := r.cfg.Replies
	scope := item
	if !rc.Container.IsZero() {
		c, ok, err := r.within(ctx, item, rc.Container)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		scope = c
	}
	return validator.Match(ctx, r.doc, scope, rc.Item, true)
}

// within finds rule inside item, falling back to item's parent.
func (r *run) within(ctx context.Context, item entity.ElementHandle, rule entity.SelectorRule) (entity.ElementHandle, bool, error) {
	h, ok, err := validator.First(ctx, r.doc, item, rule)
	if err != nil || ok {
		return h, ok, err
	}
	parent, ok, err := r.doc.Parent(ctx, item)
	if err != nil || !ok {
		return entity.NoElement, false, err
	}
	h, ok, err = validator.First(ctx, r.doc, parent.Handle, rule)
	if err != nil || !ok {
		return h, ok, err
	}
	// A match inside another thread belongs to that thread.
	for _, other := range r.topLevel {
		if other == item {
			continue
		}
		inside, err := r.doc.Contains(ctx, other, h)
		if err != nil {
			return entity.NoElement, false, err
		}
		if !inside {
			continue
		}
		own, err := r.doc.Contains(ctx, other, item)
		if err != nil {
			return entity.NoElement, false, err
		}
		if !own {
			return entity.NoElement, false, nil
		}
	}
	return h, true, nil
}

// expand activates the reply control of item and waits until the reply
// count rises above its baseline or the timeout passes. Only observed
// growth counts as success.
func (r *run) expand(ctx context.Context, item entity.ElementHandle, control entity.SelectorRule) error {
	ctrl, ok, err := r.within(ctx, item, control)
	if err != nil || !ok {
		return err
	}

	before, err := r.replyItems(ctx, item)
	if err != nil {
		return err
	}
	baseline := len(before)

	if err := r.doc.Activate(ctx, ctrl); err != nil {
		r.logger.Debug("reply expand activation failed", "error", err)
	}

	deadline := time.Now().Add(r.settings.ReplyExpandTimeout)
	for {
		now, err := r.replyItems(ctx, item)
		if err != nil {
			return err
		}
		if len(now) > baseline {
			r.logger.Debug("replies expanded", "before", baseline, "after", len(now))
			return nil
		}
		if !time.Now().Before(deadline) {
			r.logger.Debug("reply expansion timed out", "baseline", baseline)
			return nil
		}
		if err := loadmore.Sleep(ctx, r.settings.ReplyPollInterval); err != nil {
			return fmt.Errorf("%w: %v", entity.ErrCancelled, err)
		}
	}
}
