// Package aidiscovery locates the comment region through cached selectors,
// known-site heuristics or the oracle, then extracts records from it.
package aidiscovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"comment-extractor/internal/application/port/input"
	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/usecase/heuristics"
	"comment-extractor/internal/usecase/selectorcache"
	"comment-extractor/internal/usecase/simplifier"
	"comment-extractor/internal/usecase/strategy/configdriven"
	"comment-extractor/internal/usecase/tokenizer"
	"comment-extractor/internal/usecase/validator"
)

var _ input.Strategy = (*Strategy)(nil)

// Source names where the container selector came from.
type Source string

const (
	SourceCache     Source = "cache"
	SourceHeuristic Source = "heuristic"
	SourceOracle    Source = "oracle"
)

type Strategy struct {
	oracle   output.OraclePort
	store    output.SettingsStore
	cache    *selectorcache.Cache
	runner   *configdriven.Strategy
	settings entity.Settings
	logger   output.LoggerPort

	background sync.WaitGroup
}

func New(oracle output.OraclePort, store output.SettingsStore, settings entity.Settings, logger output.LoggerPort) *Strategy {
	settings = settings.WithDefaults()
	return &Strategy{
		oracle:   oracle,
		store:    store,
		cache:    selectorcache.New(store),
		runner:   configdriven.New(store, settings, logger),
		settings: settings,
		logger:   logger,
	}
}

func (s *Strategy) Kind() entity.StrategyKind {
	return entity.StrategyAIDiscovery
}

// Wait blocks until every config generation started by Execute has
// finished. Execute already joins its own; Wait covers callers shutting down
// while a run is still in flight.
func (s *Strategy) Wait() {
	s.background.Wait()
}

// candidate is a container selector plus whatever field rules came with it.
type candidate struct {
	source    Source
	selectors entity.SelectorMap
	container entity.ElementHandle
}

func (s *Strategy) Execute(ctx context.Context, doc output.DocumentPort, target entity.Target) (*entity.StrategyResult, error) {
	start := time.Now()
	log := s.logger.WithFields(map[string]any{"strategy": string(s.Kind()), "domain": target.Domain})
	simp := s.newSimplifier(doc)

	cand, err := s.locate(ctx, doc, simp, target, log)
	if err != nil {
		return nil, err
	}
	log.Info("comment container located", "source", cand.source, "selector", cand.selectors[entity.FieldContainer])

	if cand.selectors.HasRequired() {
		if res, ok := s.runPromoted(ctx, doc, cand, target, log); ok {
			res.Duration = time.Since(start)
			return res, nil
		}
	} else if s.settings.BackgroundConfigGeneration {
		join := s.generateInBackground(ctx, doc, target.Domain, cand.selectors[entity.FieldContainer], log)
		defer join()
	}

	res, err := s.extractLoop(ctx, doc, simp, cand, target, log)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

// locate tries cache, heuristics and the oracle in that order. Each live
// validation failure is logged before falling through.
func (s *Strategy) locate(ctx context.Context, doc output.DocumentPort, simp *simplifier.Simplifier, target entity.Target, log output.LoggerPort) (*candidate, error) {
	if s.settings.CacheEnabled {
		entry, ok, err := s.cache.Lookup(ctx, target.Domain, entity.ContentTypeComments)
		if err != nil {
			log.Warn("selector cache lookup failed", "error", err)
		}
		if ok {
			cand, err := s.validateMap(ctx, doc, SourceCache, entry.Selectors, log)
			if err != nil {
				return nil, err
			}
			if cand != nil {
				if err := s.cache.RecordUse(ctx, target.Domain, entity.ContentTypeComments); err != nil {
					log.Warn("failed to record cache use", "error", err)
				}
				return cand, nil
			}
			if err := s.cache.Invalidate(ctx, target.Domain, entity.ContentTypeComments); err != nil {
				log.Warn("failed to invalidate cache entry", "error", err)
			}
		}
	}

	if known, ok := heuristics.Lookup(target.Domain); ok {
		cand, err := s.validateMap(ctx, doc, SourceHeuristic, known, log)
		if err != nil {
			return nil, err
		}
		if cand != nil {
			return cand, nil
		}
	}

	sel, err := s.detectContainer(ctx, doc, simp, target, log)
	if err != nil {
		return nil, err
	}
	if sel == "" {
		return nil, fmt.Errorf("%w: oracle detection found no container", entity.ErrNoContainer)
	}
	h, ok, err := locateRule(ctx, doc, entity.ParseRule(sel))
	if err != nil || !ok {
		return nil, fmt.Errorf("%w: detected selector %q does not resolve", entity.ErrNoContainer, sel)
	}
	return &candidate{
		source:    SourceOracle,
		selectors: entity.SelectorMap{entity.FieldContainer: sel},
		container: h,
	}, nil
}

// validateMap re-checks a stored selector map against the live page. A
// nil candidate means the map is stale.
func (s *Strategy) validateMap(ctx context.Context, doc output.DocumentPort, source Source, selectors entity.SelectorMap, log output.LoggerPort) (*candidate, error) {
	counts, err := validator.TestSelectors(ctx, doc, selectors)
	if err != nil {
		return nil, err
	}
	containerRule := selectors[entity.FieldContainer]
	if containerRule == "" {
		containerRule = "body"
	}
	h, ok, err := locateRule(ctx, doc, entity.ParseRule(containerRule))
	if err != nil && !errors.Is(err, entity.ErrInvalidSelector) {
		return nil, err
	}
	if !ok || !validator.ValidateSelectorResults(counts) {
		log.Info("stored selectors no longer match",
			"source", source,
			"diagnostics", validator.Diagnostics(selectors, counts),
		)
		return nil, nil
	}
	return &candidate{source: source, selectors: selectors.Clone(), container: h}, nil
}

// runPromoted turns a complete selector map into a config and extracts
// deterministically. It reports false when promotion yields nothing, so
// the caller falls back to oracle extraction.
func (s *Strategy) runPromoted(ctx context.Context, doc output.DocumentPort, cand *candidate, target entity.Target, log output.LoggerPort) (*entity.StrategyResult, bool) {
	cfg := cand.selectors.ToConfig(target.Domain)
	cfg.UpdatedAt = time.Now()

	res, err := s.runner.Run(ctx, doc, cfg, target)
	if err != nil {
		log.Warn("promoted selectors failed", "source", cand.source, "error", err)
		return nil, false
	}
	if len(res.Comments) == 0 && !res.Cancelled {
		log.Info("promoted selectors extracted nothing", "source", cand.source)
		return nil, false
	}

	if cand.source != SourceCache {
		if err := s.cache.Store(ctx, target.Domain, entity.ContentTypeComments, cand.selectors); err != nil {
			log.Warn("failed to cache selectors", "error", err)
		}
	}
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		log.Warn("failed to save durable config", "error", err)
	}

	res.Strategy = s.Kind()
	return res, true
}

func locateRule(ctx context.Context, doc output.DocumentPort, rule entity.SelectorRule) (entity.ElementHandle, bool, error) {
	found, err := validator.Match(ctx, doc, entity.NoElement, rule, true)
	if err != nil || len(found) == 0 {
		return entity.NoElement, false, err
	}
	return found[0], true, nil
}

func (s *Strategy) newSimplifier(doc output.DocumentPort) *simplifier.Simplifier {
	return simplifier.New(doc, simplifier.Options{TextPreviewLength: s.settings.TextPreviewLength})
}

func (s *Strategy) chunkOptions() tokenizer.Options {
	return tokenizer.Options{
		MaxTokens:    s.settings.ChunkMaxTokens,
		ReserveRatio: s.settings.ReserveRatio,
		MinChunkSize: s.settings.MinChunkSize,
	}
}
