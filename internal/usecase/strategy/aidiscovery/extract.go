package aidiscovery

import (
	"context"
	"errors"
	"fmt"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/infrastructure/prompts"
	"comment-extractor/internal/usecase/loadmore"
	"comment-extractor/internal/usecase/oraclejson"
	"comment-extractor/internal/usecase/records"
	"comment-extractor/internal/usecase/runstate"
	"comment-extractor/internal/usecase/simplifier"
	"comment-extractor/internal/usecase/tokenizer"
)

// extractLoop simplifies the container, asks the oracle for records chunk
// by chunk and loads more content until a stop condition holds.
func (s *Strategy) extractLoop(ctx context.Context, doc output.DocumentPort, simp *simplifier.Simplifier, cand *candidate, target entity.Target, log output.LoggerPort) (*entity.StrategyResult, error) {
	collector := records.NewCollector()
	loader := loadmore.New(doc, s.settings.ScrollSettleDelay, log)
	zeroNew := loadmore.NewStallTracker(s.settings.ZeroNewThreshold)
	noGrowth := loadmore.NewStallTracker(s.settings.UnchangedScrollThreshold)
	full := func() bool { return target.MaxComments > 0 && collector.Len() >= target.MaxComments }

	result := &entity.StrategyResult{Strategy: s.Kind(), Selectors: cand.selectors.Clone()}
	containerRule := entity.ParseRule(cand.selectors[entity.FieldContainer])
	container := cand.container
	scrolls := 0

loop:
	for {
		if runstate.Cancelled(ctx) {
			result.Cancelled = true
			result.StopReason = entity.StopCancelled
			break
		}
		result.Iterations++

		if _, err := doc.Describe(ctx, container); errors.Is(err, entity.ErrElementGone) {
			h, ok, err := locateRule(ctx, doc, containerRule)
			if err != nil || !ok {
				return nil, fmt.Errorf("%w: container disappeared", entity.ErrNoContainer)
			}
			container = h
		}

		added, err := s.extractPass(ctx, simp, container, collector, target, result.Iterations, log)
		if errors.Is(err, entity.ErrCancelled) {
			result.Cancelled = true
			result.StopReason = entity.StopCancelled
			break
		}
		if err != nil {
			return nil, err
		}

		switch {
		case full():
			result.StopReason = entity.StopTargetReached
			break loop
		case zeroNew.Record(added > 0):
			result.StopReason = entity.StopNoNewRecords
			break loop
		case scrolls >= s.settings.MaxScrolls:
			result.StopReason = entity.StopMaxScrolls
			break loop
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
			result.StopReason = entity.StopNoGrowth
			break
		}
	}

	result.Comments = records.Truncate(collector.Comments(), target.MaxComments)
	log.Info("ai extraction finished",
		"records", len(result.Comments),
		"iterations", result.Iterations,
		"scrolls", scrolls,
		"stop_reason", result.StopReason,
	)
	return result, nil
}

// extractPass sends one snapshot of the container to the oracle. Chunks
// are processed strictly in order.
func (s *Strategy) extractPass(ctx context.Context, simp *simplifier.Simplifier, container entity.ElementHandle, collector *records.Collector, target entity.Target, iteration int, log output.LoggerPort) (int, error) {
	tree, err := simp.Simplify(ctx, container, s.settings.MaxDepth, false)
	if err != nil {
		if runstate.Cancelled(ctx) {
			return 0, entity.ErrCancelled
		}
		return 0, fmt.Errorf("simplify container: %w", err)
	}
	outline := simplifier.NodeToString(tree)

	remaining := 0
	if target.MaxComments > 0 {
		remaining = target.MaxComments - collector.Len()
	}
	overhead := prompts.Overhead(func(o string) (string, error) {
		return prompts.Extract(prompts.ExtractData{Chunked: prompts.Chunked{Outline: o}, Remaining: remaining})
	})
	chunks := tokenizer.ChunkWithOverhead(outline, overhead, s.chunkOptions())

	added := 0
	for i, chunk := range chunks {
		if err := runstate.Check(ctx); err != nil {
			return added, entity.ErrCancelled
		}
		prompt, err := prompts.Extract(prompts.ExtractData{
			Chunked:   prompts.Chunked{Outline: chunk, ChunkIndex: i + 1, ChunkCount: len(chunks)},
			Remaining: remaining,
		})
		if err != nil {
			return added, err
		}

		resp, err := s.oracle.Request(ctx, entity.OracleRequest{
			Kind:         entity.OracleKindExtract,
			Prompt:       prompt,
			SystemPrompt: prompts.SystemPrompt,
			Model:        s.settings.Model,
		})
		if runstate.Cancelled(ctx) {
			return added, entity.ErrCancelled
		}
		if err != nil {
			log.Warn("extraction request failed", "iteration", iteration, "chunk", i+1, "error", err)
			continue
		}

		recs := oraclejson.ParseExtraction(resp.Content).Records()
		n := collector.AddAll(recs)
		added += n
		log.Debug("chunk extracted", "iteration", iteration, "chunk", i+1, "returned", len(recs), "new", n)

		if target.MaxComments > 0 && collector.Len() >= target.MaxComments {
			break
		}
	}
	return added, nil
}
