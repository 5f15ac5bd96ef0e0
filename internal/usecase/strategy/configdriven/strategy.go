// Package configdriven extracts comments deterministically from a durable
// ExtractionConfig.
package configdriven

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"comment-extractor/internal/application/port/input"
	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/usecase/loadmore"
	"comment-extractor/internal/usecase/records"
	"comment-extractor/internal/usecase/runstate"
	"comment-extractor/internal/usecase/validator"
)

var _ input.Strategy = (*Strategy)(nil)

// DiagnosticsKey is the store key under which field diagnostics of the last
// run for domain are kept.
func DiagnosticsKey(domain string) string {
	return "diagnostics:" + domain
}

type Strategy struct {
	store    output.SettingsStore
	settings entity.Settings
	logger   output.LoggerPort
}

func New(store output.SettingsStore, settings entity.Settings, logger output.LoggerPort) *Strategy {
	return &Strategy{store: store, settings: settings.WithDefaults(), logger: logger}
}

func (s *Strategy) Kind() entity.StrategyKind {
	return entity.StrategyConfigDriven
}

// Execute loads the durable config for the target domain and runs it.
func (s *Strategy) Execute(ctx context.Context, doc output.DocumentPort, target entity.Target) (*entity.StrategyResult, error) {
	cfg, err := s.store.GetConfig(ctx, target.Domain)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return s.Run(ctx, doc, cfg, target)
}

// Run extracts with cfg until the target count is reached or the page stops
// producing new records.
func (s *Strategy) Run(ctx context.Context, doc output.DocumentPort, cfg *entity.ExtractionConfig, target entity.Target) (*entity.StrategyResult, error) {
	start := time.Now()
	log := s.logger.WithFields(map[string]any{"strategy": string(s.Kind()), "domain": cfg.Domain})

	check, err := validator.ValidateConfig(ctx, doc, cfg)
	if err != nil {
		return nil, err
	}
	if !check.Valid() {
		log.Warn("config no longer matches the page",
			"container_matches", check.ContainerMatches,
			"item_matches", check.ItemMatches,
		)
		return nil, fmt.Errorf("%w: config for %s matched %d containers, %d items",
			entity.ErrNoContainer, cfg.Domain, check.ContainerMatches, check.ItemMatches)
	}
	log.Info("config-driven extraction started", "items", check.ItemMatches, "max_comments", target.MaxComments)

	limits := s.limits(cfg)
	run := newRun(doc, cfg, s.settings, target.MaxComments, log)
	loader := loadmore.New(doc, limits.settle, log)
	zeroNew := loadmore.NewStallTracker(limits.zeroNew)
	noGrowth := loadmore.NewStallTracker(limits.unchanged)

	result := &entity.StrategyResult{
		Strategy:  s.Kind(),
		Selectors: cfg.SelectorMap(),
	}
	container := check.Container
	scrolls := 0

	for {
		if err := runstate.Check(ctx); err != nil {
			result.Cancelled = true
			result.StopReason = entity.StopCancelled
			break
		}
		result.Iterations++

		container, err = s.relocate(ctx, doc, cfg, container)
		if err != nil {
			return nil, err
		}
		added, err := run.pass(ctx, container)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, entity.ErrCancelled) {
				result.Cancelled = true
				result.StopReason = entity.StopCancelled
				break
			}
			return nil, err
		}
		log.Debug("extraction pass", "pass", result.Iterations, "added", added, "total", run.collector.Len())

		if run.full() {
			result.StopReason = entity.StopTargetReached
			break
		}
		if zeroNew.Record(added > 0) {
			result.StopReason = entity.StopNoNewRecords
			break
		}
		if scrolls >= limits.maxScrolls {
			result.StopReason = entity.StopMaxScrolls
			break
		}

		scrolls++
		growth, err := loader.LoadMore(ctx, container)
		if err != nil {
			if runstate.Cancelled(ctx) {
				result.Cancelled = true
				result.StopReason = entity.StopCancelled
				break
			}
			return nil, err
		}
		if noGrowth.Record(growth.Grew()) {
			log.Info("content stopped growing", "attempts", noGrowth.Count())
			result.StopReason = entity.StopNoGrowth
			break
		}
	}

	result.Comments = records.Truncate(run.collector.Comments(), target.MaxComments)
	result.Diagnostics = run.diagnostics
	result.Duration = time.Since(start)
	s.saveDiagnostics(ctx, cfg.Domain, run.diagnostics, log)

	log.Info("config-driven extraction finished",
		"records", len(result.Comments),
		"passes", result.Iterations,
		"scrolls", scrolls,
		"stop_reason", result.StopReason,
	)
	return result, nil
}

type limits struct {
	maxScrolls int
	unchanged  int
	zeroNew    int
	settle     time.Duration
}

// limits merges per-config scroll settings over the engine settings.
func (s *Strategy) limits(cfg *entity.ExtractionConfig) limits {
	l := limits{
		maxScrolls: s.settings.MaxScrolls,
		unchanged:  s.settings.UnchangedScrollThreshold,
		zeroNew:    s.settings.ZeroNewThreshold,
		settle:     s.settings.ScrollSettleDelay,
	}
	if sc := cfg.Scroll; sc != nil {
		if sc.MaxScrolls > 0 {
			l.maxScrolls = sc.MaxScrolls
		}
		if sc.UnchangedLimit > 0 {
			l.unchanged = sc.UnchangedLimit
		}
		if sc.ZeroNewPassLimit > 0 {
			l.zeroNew = sc.ZeroNewPassLimit
		}
		if sc.SettleDelay > 0 {
			l.settle = sc.SettleDelay
		}
	}
	return l
}

// relocate re-resolves the container if its element was replaced.
func (s *Strategy) relocate(ctx context.Context, doc output.DocumentPort, cfg *entity.ExtractionConfig, container entity.ElementHandle) (entity.ElementHandle, error) {
	if _, err := doc.Describe(ctx, container); err == nil {
		return container, nil
	} else if !errors.Is(err, entity.ErrElementGone) {
		return entity.NoElement, err
	}
	found, err := validator.Match(ctx, doc, entity.NoElement, cfg.Container, true)
	if err != nil {
		return entity.NoElement, err
	}
	if len(found) == 0 {
		return entity.NoElement, fmt.Errorf("%w: container disappeared", entity.ErrNoContainer)
	}
	return found[0], nil
}

func (s *Strategy) saveDiagnostics(ctx context.Context, domain string, diag map[string]entity.FieldDiagnostic, log output.LoggerPort) {
	raw, err := json.Marshal(diag)
	if err != nil {
		return
	}
	if err := s.store.SetValue(context.WithoutCancel(ctx), DiagnosticsKey(domain), raw); err != nil {
		log.Warn("failed to save field diagnostics", "error", err)
	}
}
