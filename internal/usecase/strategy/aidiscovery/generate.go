package aidiscovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/infrastructure/prompts"
	"comment-extractor/internal/usecase/oraclejson"
	"comment-extractor/internal/usecase/simplifier"
	"comment-extractor/internal/usecase/tokenizer"
	"comment-extractor/internal/usecase/validator"
)

const backgroundTimeout = 2 * time.Minute

// generateInBackground discovers a full selector map for the domain while the
// foreground run keeps extracting. The returned join blocks until generation
// has finished and must be called before the document is handed back; once
// the run's context is done it cancels generation instead of waiting for it.
func (s *Strategy) generateInBackground(ctx context.Context, doc output.DocumentPort, domain, containerSel string, log output.LoggerPort) (join func()) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
	log = log.WithField("task", "config-generation")
	done := make(chan struct{})

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer close(done)
		defer cancel()

		cfg, err := s.generateConfig(bg, doc, domain, containerSel, log)
		if err != nil {
			log.Warn("background config generation failed", "error", err)
			return
		}
		if cfg == nil {
			log.Info("background config generation gave up")
			return
		}
		log.Info("background config generated", "fields", len(cfg.Fields))
	}()

	return func() {
		select {
		case <-done:
		case <-ctx.Done():
			cancel()
			<-done
		}
	}
}

// generateConfig asks the oracle for field rules and retries with the failed
// ones until every rule resolves. Successful rules are kept between
// attempts. A nil config means the retries were exhausted.
func (s *Strategy) generateConfig(ctx context.Context, doc output.DocumentPort, domain, containerSel string, log output.LoggerPort) (*entity.ExtractionConfig, error) {
	// The run's simplifier memo is not shared across goroutines.
	simp := s.newSimplifier(doc)

	container, ok, err := locateRule(ctx, doc, entity.ParseRule(containerSel))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrNoContainer, containerSel)
	}
	tree, err := simp.Simplify(ctx, container, s.settings.MaxDepth, true)
	if err != nil {
		return nil, fmt.Errorf("simplify container: %w", err)
	}
	outline := simplifier.NodeToString(tree)

	current := entity.SelectorMap{entity.FieldContainer: containerSel}
	var failed entity.SelectorMap
	var diagnostics []string

	for attempt := 1; attempt <= s.settings.MaxRetries; attempt++ {
		data := prompts.SelectorsData{Domain: domain, Known: current, Failed: failed, Diagnostics: diagnostics}
		overhead := prompts.Overhead(func(o string) (string, error) {
			d := data
			d.Outline = o
			return prompts.Selectors(d)
		})
		chunks := tokenizer.ChunkWithOverhead(outline, overhead, s.chunkOptions())

		proposed := current.Clone()
		rejected := entity.SelectorMap{}
		for i, chunk := range chunks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			d := data
			d.Chunked = prompts.Chunked{Outline: chunk, ChunkIndex: i + 1, ChunkCount: len(chunks)}
			prompt, err := prompts.Selectors(d)
			if err != nil {
				return nil, err
			}
			resp, err := s.oracle.Request(ctx, entity.OracleRequest{
				Kind:         entity.OracleKindSelectors,
				Prompt:       prompt,
				SystemPrompt: prompts.SystemPrompt,
				Model:        s.settings.Model,
			})
			if err != nil {
				log.Warn("selector discovery request failed", "attempt", attempt, "chunk", i+1, "error", err)
				continue
			}
			proposed = proposed.Merge(oraclejson.ParseSelectors(resp.Content).Selectors)
			if proposed, err = pruneFailed(ctx, doc, proposed, rejected); err != nil {
				return nil, err
			}
		}

		// Rejected rules stay in the report unless a later chunk replaced them.
		proposed = proposed.Merge(rejected)
		counts, err := validator.TestSelectors(ctx, doc, proposed)
		if err != nil {
			return nil, err
		}
		diagnostics = validator.Diagnostics(proposed, counts)

		if proposed.HasRequired() && validator.ValidateSelectorResults(counts) {
			cfg := proposed.ToConfig(domain)
			check, err := validator.ValidateConfig(ctx, doc, cfg)
			if err == nil && check.Valid() {
				cfg.UpdatedAt = time.Now()
				if err := s.store.SaveConfig(ctx, cfg); err != nil {
					return nil, fmt.Errorf("save config: %w", err)
				}
				if err := s.cache.Store(ctx, domain, entity.ContentTypeComments, proposed); err != nil {
					log.Warn("failed to cache generated selectors", "error", err)
				}
				return cfg, nil
			}
			log.Debug("generated config does not resolve items", "attempt", attempt, "error", err)
		}

		var successful entity.SelectorMap
		successful, failed = validator.CategorizeSelectors(proposed, counts)
		current = successful
		current[entity.FieldContainer] = containerSel
		for _, f := range validator.MissingRequired(current) {
			if _, ok := failed[f]; !ok {
				failed[f] = ""
			}
		}
		log.Info("selector discovery attempt incomplete",
			"attempt", attempt,
			"failed", len(failed),
			"diagnostics", diagnostics,
		)
	}
	return nil, nil
}

// pruneFailed drops required rules without live matches so that a later
// chunk can fill the gap. Dropped rules are recorded in rejected.
func pruneFailed(ctx context.Context, doc output.DocumentPort, selectors, rejected entity.SelectorMap) (entity.SelectorMap, error) {
	counts, err := validator.TestSelectors(ctx, doc, selectors)
	if err != nil {
		return nil, err
	}
	successful, failed := validator.CategorizeSelectors(selectors, counts)
	for f, rule := range failed {
		if strings.TrimSpace(rule) != "" {
			rejected[f] = rule
		}
	}
	return successful, nil
}
