// Package progressive explores the page with the oracle one snapshot at a
// time, expanding collapsed regions it points at until it reports
// completion.
package progressive

import (
	"context"
	"sort"
	"strings"
	"time"

	"comment-extractor/internal/application/port/input"
	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/infrastructure/prompts"
	"comment-extractor/internal/usecase/loadmore"
	"comment-extractor/internal/usecase/oraclejson"
	"comment-extractor/internal/usecase/records"
	"comment-extractor/internal/usecase/runstate"
	"comment-extractor/internal/usecase/simplifier"
)

var _ input.Strategy = (*Strategy)(nil)

type Strategy struct {
	oracle   output.OraclePort
	settings entity.Settings
	logger   output.LoggerPort
}

func New(oracle output.OraclePort, settings entity.Settings, logger output.LoggerPort) *Strategy {
	return &Strategy{oracle: oracle, settings: settings.WithDefaults(), logger: logger}
}

func (s *Strategy) Kind() entity.StrategyKind {
	return entity.StrategyAIProgressive
}

func (s *Strategy) Execute(ctx context.Context, doc output.DocumentPort, target entity.Target) (*entity.StrategyResult, error) {
	start := time.Now()
	log := s.logger.WithFields(map[string]any{"strategy": string(s.Kind()), "domain": target.Domain})
	simp := simplifier.New(doc, simplifier.Options{TextPreviewLength: s.settings.TextPreviewLength})
	loader := loadmore.New(doc, s.settings.ScrollSettleDelay, log)
	collector := records.NewCollector()
	result := &entity.StrategyResult{Strategy: s.Kind()}

	if err := runstate.Check(ctx); err != nil {
		result.Cancelled = true
		result.StopReason = entity.StopCancelled
		return result, nil
	}
	tree, err := simp.SimplifyDocument(ctx, s.settings.ProgressiveInitialDepth)
	if err != nil {
		return nil, err
	}
	expanded := make(map[string]bool)

	for {
		if result.Iterations >= s.settings.ProgressiveMaxIterations {
			result.StopReason = entity.StopMaxIterations
			break
		}
		if runstate.Cancelled(ctx) {
			result.Cancelled = true
			result.StopReason = entity.StopCancelled
			break
		}
		result.Iterations++
		iter := log.WithField("iteration", result.Iterations)

		prompt, err := prompts.Progressive(prompts.ProgressiveData{
			Outline:       simplifier.NodeToString(tree),
			Iteration:     result.Iterations,
			MaxIterations: s.settings.ProgressiveMaxIterations,
			Collected:     collector.Len(),
			Target:        target.MaxComments,
			MaxExpand:     s.settings.ProgressiveMaxExpand,
		})
		if err != nil {
			return nil, err
		}
		resp, err := s.oracle.Request(ctx, entity.OracleRequest{
			Kind:         entity.OracleKindProgressive,
			Prompt:       prompt,
			SystemPrompt: prompts.SystemPrompt,
			Model:        s.settings.Model,
		})
		if runstate.Cancelled(ctx) {
			result.Cancelled = true
			result.StopReason = entity.StopCancelled
			break
		}
		if err != nil {
			iter.Warn("progressive request failed", "error", err)
			continue
		}

		reply := oraclejson.ParseProgressive(resp.Content)
		added := collector.AddAll(reply.Records())
		iter.Debug("snapshot processed",
			"returned", len(reply.Comments),
			"new", added,
			"expand", len(reply.Expand),
			"need_scroll", reply.NeedScroll,
			"complete", reply.Complete,
		)

		if target.MaxComments > 0 && collector.Len() >= target.MaxComments {
			result.StopReason = entity.StopTargetReached
			break
		}
		if reply.Complete {
			result.StopReason = entity.StopCompleted
			break
		}

		applied := 0
		for _, sel := range rank(reply.Expand, s.settings.ProgressiveMaxExpand, expanded) {
			sub, err := simp.ExpandNode(ctx, sel, s.settings.ProgressiveInitialDepth)
			if err != nil {
				iter.Debug("expand target not found", "selector", sel, "error", err)
				continue
			}
			expanded[sel] = true
			tree = simplifier.UpdateTreeWithExpanded(tree, sub)
			applied++
		}

		if reply.NeedScroll {
			if _, err := loader.LoadMore(ctx, entity.NoElement); err != nil {
				if runstate.Cancelled(ctx) {
					result.Cancelled = true
					result.StopReason = entity.StopCancelled
					break
				}
				return nil, err
			}
			if tree, err = simp.SimplifyDocument(ctx, s.settings.ProgressiveInitialDepth); err != nil {
				return nil, err
			}
			clear(expanded)
			continue
		}
		if applied == 0 {
			result.StopReason = entity.StopStuck
			break
		}
	}

	result.Comments = records.Truncate(collector.Comments(), target.MaxComments)
	result.Duration = time.Since(start)
	log.Info("progressive extraction finished",
		"records", len(result.Comments),
		"iterations", result.Iterations,
		"stop_reason", result.StopReason,
	)
	return result, nil
}

// rank orders expand requests by priority (1 first, unranked last), drops
// duplicates and paths already expanded, and keeps at most limit.
func rank(reqs []oraclejson.ExpandRequest, limit int, done map[string]bool) []string {
	ordered := make([]oraclejson.ExpandRequest, 0, len(reqs))
	for _, r := range reqs {
		r.Selector = strings.TrimSpace(r.Selector)
		if r.Selector != "" {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := ordered[i].Priority, ordered[j].Priority
		if (pi > 0) != (pj > 0) {
			return pi > 0
		}
		return pi < pj
	})

	seen := make(map[string]bool, len(ordered))
	var out []string
	for _, r := range ordered {
		if len(out) >= limit {
			break
		}
		if seen[r.Selector] || done[r.Selector] {
			continue
		}
		seen[r.Selector] = true
		out = append(out, r.Selector)
	}
	return out
}
