package aidiscovery

import (
	"context"
	"fmt"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/infrastructure/prompts"
	"comment-extractor/internal/usecase/oraclejson"
	"comment-extractor/internal/usecase/runstate"
	"comment-extractor/internal/usecase/simplifier"
	"comment-extractor/internal/usecase/tokenizer"
)

// detectContainer asks the oracle for the comment container chunk by chunk
// and keeps the most confident candidate that resolves live. It returns ""
// when nothing reached the minimum confidence.
func (s *Strategy) detectContainer(ctx context.Context, doc output.DocumentPort, simp *simplifier.Simplifier, target entity.Target, log output.LoggerPort) (string, error) {
	if err := runstate.Check(ctx); err != nil {
		return "", err
	}
	depth := max(1, s.settings.MaxDepth/2)
	tree, err := simp.SimplifyDocument(ctx, depth)
	if err != nil {
		return "", fmt.Errorf("simplify document: %w", err)
	}
	outline := simplifier.NodeToString(tree)

	overhead := prompts.Overhead(func(o string) (string, error) {
		return prompts.Detect(prompts.DetectData{Chunked: prompts.Chunked{Outline: o}, URL: target.URL})
	})
	chunks := tokenizer.ChunkWithOverhead(outline, overhead, s.chunkOptions())
	log.Info("detecting comment container", "depth", depth, "nodes", tree.Count(), "chunks", len(chunks))

	var best oraclejson.Detection
	for i, chunk := range chunks {
		if err := runstate.Check(ctx); err != nil {
			return "", err
		}
		prompt, err := prompts.Detect(prompts.DetectData{
			Chunked: prompts.Chunked{Outline: chunk, ChunkIndex: i + 1, ChunkCount: len(chunks)},
			URL:     target.URL,
		})
		if err != nil {
			return "", err
		}

		resp, err := s.oracle.Request(ctx, entity.OracleRequest{
			Kind:         entity.OracleKindDetect,
			Prompt:       prompt,
			SystemPrompt: prompts.SystemPrompt,
			Model:        s.settings.Model,
		})
		if err := runstate.Check(ctx); err != nil {
			return "", err
		}
		if err != nil {
			log.Warn("container detection request failed", "chunk", i+1, "error", err)
			continue
		}

		d := oraclejson.ParseDetection(resp.Content)
		if !d.Found() {
			log.Debug("no container in chunk", "chunk", i+1)
			continue
		}
		if _, ok, err := locateRule(ctx, doc, entity.ParseRule(d.Selector)); err != nil || !ok {
			log.Debug("detected selector does not resolve", "chunk", i+1, "selector", d.Selector)
			continue
		}
		log.Debug("container candidate", "chunk", i+1, "selector", d.Selector, "confidence", d.Confidence)

		if d.Confidence > best.Confidence || !best.Found() {
			best = d
		}
		if best.Confidence >= s.settings.HighConfidence {
			log.Debug("high confidence container, stopping detection", "chunk", i+1)
			break
		}
	}

	if !best.Found() || best.Confidence < s.settings.MinConfidence {
		log.Info("container detection inconclusive", "best_confidence", best.Confidence)
		return "", nil
	}
	return best.Selector, nil
}
