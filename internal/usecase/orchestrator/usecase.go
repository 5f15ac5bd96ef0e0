// Package orchestrator runs the extraction tiers in fallback order and
// returns the first tier's records that produced any.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"comment-extractor/internal/application/port/input"
	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/usecase/records"
	"comment-extractor/internal/usecase/runstate"
)

var _ input.Extractor = (*UseCase)(nil)

// Request errors, returned before any tier runs.
var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrInvalidTarget   = errors.New("invalid target")
)

// Run outcomes reported to metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeEmpty     = "empty"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

type UseCase struct {
	registry input.StrategyRegistry
	state    *runstate.State
	metrics  output.MetricsPort
	logger   output.LoggerPort
}

func New(
	registry input.StrategyRegistry,
	state *runstate.State,
	metrics output.MetricsPort,
	logger output.LoggerPort,
) *UseCase {
	if metrics == nil {
		metrics = output.NopMetrics{}
	}
	return &UseCase{
		registry: registry,
		state:    state,
		metrics:  metrics,
		logger:   logger,
	}
}

// Cancel stops the active run, if any. Tiers observe it at their next
// checkpoint and the run returns what was collected so far.
func (uc *UseCase) Cancel() bool {
	if !uc.state.Active() {
		return false
	}
	uc.state.Cancel()
	return true
}

func (uc *UseCase) Active() bool {
	return uc.state.Active()
}

func (uc *UseCase) Execute(ctx context.Context, doc output.DocumentPort, req input.ExtractRequest) (*input.ExtractResult, error) {
	target, err := targetFor(req)
	if err != nil {
		return nil, err
	}
	tiers, err := uc.tiers(req.Strategy)
	if err != nil {
		return nil, err
	}

	ctx, stop, err := uc.state.Start(ctx)
	if err != nil {
		return nil, err
	}
	defer stop()

	log := uc.logger.WithFields(map[string]any{"domain": target.Domain, "url": target.URL})
	log.Info("extraction started", "tiers", fmt.Sprint(tiers), "max_comments", target.MaxComments)

	result := &input.ExtractResult{}
	var empty *entity.StrategyResult

	for _, kind := range tiers {
		strategy, _ := uc.registry.Get(kind)
		tierLog := log.WithField("strategy", string(kind))
		tierLog.Info("tier started")

		start := time.Now()
		res, err := strategy.Execute(ctx, doc, target)
		elapsed := time.Since(start)

		attempt := entity.TierAttempt{Strategy: kind}
		switch {
		case err != nil && (errors.Is(err, entity.ErrCancelled) || runstate.Cancelled(ctx)):
			attempt.Reason = "cancelled"
			result.Attempts = append(result.Attempts, attempt)
			uc.metrics.RunFinished(string(kind), OutcomeCancelled, 0, elapsed)
			tierLog.Info("tier cancelled", "elapsed", elapsed)
			result.Strategy = kind
			result.StopReason = entity.StopCancelled
			result.Cancelled = true
			result.Comments = []entity.Comment{}
			return result, nil

		case err != nil:
			attempt.Reason = err.Error()
			result.Attempts = append(result.Attempts, attempt)
			uc.metrics.RunFinished(string(kind), OutcomeError, 0, elapsed)
			tierLog.Warn("tier failed", "error", err, "elapsed", elapsed)
			continue
		}

		comments := records.Truncate(records.Sanitize(res.Comments), target.MaxComments)
		attempt.Records = len(comments)

		if res.Cancelled {
			attempt.Reason = "cancelled"
			result.Attempts = append(result.Attempts, attempt)
			uc.metrics.RunFinished(string(kind), OutcomeCancelled, len(comments), elapsed)
			tierLog.Info("tier cancelled", "records", len(comments), "elapsed", elapsed)
			return uc.finish(result, res, comments), nil
		}

		if len(comments) == 0 {
			attempt.Reason = "no records (" + string(res.StopReason) + ")"
			result.Attempts = append(result.Attempts, attempt)
			uc.metrics.RunFinished(string(kind), OutcomeEmpty, 0, elapsed)
			tierLog.Info("tier produced no records", "stop_reason", res.StopReason, "elapsed", elapsed)
			if empty == nil {
				empty = res
			}
			continue
		}

		result.Attempts = append(result.Attempts, attempt)
		uc.metrics.RunFinished(string(kind), OutcomeSuccess, len(comments), elapsed)
		tierLog.Info("tier finished",
			"records", len(comments),
			"iterations", res.Iterations,
			"stop_reason", res.StopReason,
			"elapsed", elapsed,
		)
		return uc.finish(result, res, comments), nil
	}

	if empty != nil {
		log.Info("extraction finished without records", "attempts", len(result.Attempts))
		return uc.finish(result, empty, []entity.Comment{}), nil
	}
	if len(tiers) == 0 {
		log.Warn("no strategies registered")
		result.Comments = []entity.Comment{}
		result.StopReason = entity.StopCompleted
		return result, nil
	}
	log.Error("every tier failed", "attempts", len(result.Attempts))
	return nil, &entity.ExtractionError{Domain: target.Domain, Attempts: result.Attempts}
}

func (uc *UseCase) finish(result *input.ExtractResult, res *entity.StrategyResult, comments []entity.Comment) *input.ExtractResult {
	result.Comments = comments
	result.Strategy = res.Strategy
	result.StopReason = res.StopReason
	result.Diagnostics = res.Diagnostics
	result.Cancelled = res.Cancelled
	return result
}

// tiers resolves the forced tier or the registered fallback chain.
func (uc *UseCase) tiers(forced entity.StrategyKind) ([]entity.StrategyKind, error) {
	if forced != "" {
		if _, ok := uc.registry.Get(forced); !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownStrategy, forced)
		}
		return []entity.StrategyKind{forced}, nil
	}
	return uc.registry.Kinds(), nil
}

func targetFor(req input.ExtractRequest) (entity.Target, error) {
	target := entity.Target{URL: req.URL, Domain: req.Domain, MaxComments: max(req.MaxComments, 0)}
	if target.Domain == "" {
		d, err := DomainOf(req.URL)
		if err != nil {
			return target, err
		}
		target.Domain = d
	}
	target.Domain = NormalizeDomain(target.Domain)
	return target, nil
}

// DomainOf returns the normalized host of rawURL.
func DomainOf(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: url %q has no host", ErrInvalidTarget, rawURL)
	}
	return NormalizeDomain(u.Hostname()), nil
}

func NormalizeDomain(domain string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
}
