// Package loadmore drives content growth and decides when it has stalled.
package loadmore

import (
	"context"
	"fmt"
	"time"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
)

// Growth is the before/after measurement of one load-more attempt.
type Growth struct {
	Before entity.ContentMetrics
	After  entity.ContentMetrics
}

func (g Growth) Grew() bool {
	return g.After.GrewFrom(g.Before)
}

type Controller struct {
	doc    output.DocumentPort
	settle time.Duration
	logger output.LoggerPort
}

func New(doc output.DocumentPort, settle time.Duration, logger output.LoggerPort) *Controller {
	return &Controller{doc: doc, settle: settle, logger: logger}
}

// LoadMore triggers growth, waits for the settle delay and measures scope
// before and after.
func (c *Controller) LoadMore(ctx context.Context, scope entity.ElementHandle) (Growth, error) {
	var g Growth
	before, err := c.doc.Metrics(ctx, scope)
	if err != nil {
		return g, fmt.Errorf("measure before growth: %w", err)
	}
	g.Before = before

	if err := c.doc.TriggerGrowth(ctx); err != nil {
		return g, fmt.Errorf("trigger growth: %w", err)
	}
	if err := Sleep(ctx, c.settle); err != nil {
		return g, err
	}

	after, err := c.doc.Metrics(ctx, scope)
	if err != nil {
		return g, fmt.Errorf("measure after growth: %w", err)
	}
	g.After = after

	c.logger.Debug("load more",
		"before_length", before.ContentLength,
		"after_length", after.ContentLength,
		"before_children", before.ChildCount,
		"after_children", after.ChildCount,
		"grew", g.Grew(),
	)
	return g, nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StallTracker counts consecutive unproductive attempts.
type StallTracker struct {
	limit int
	count int
}

func NewStallTracker(limit int) *StallTracker {
	if limit < 1 {
		limit = 1
	}
	return &StallTracker{limit: limit}
}

// Record registers one attempt and reports whether the limit is reached.
func (s *StallTracker) Record(progress bool) bool {
	if progress {
		s.count = 0
		return false
	}
	s.count++
	return s.count >= s.limit
}

func (s *StallTracker) Count() int {
	return s.count
}

func (s *StallTracker) Stalled() bool {
	return s.count >= s.limit
}
