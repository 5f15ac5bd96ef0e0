package service

import (
	"slices"

	"comment-extractor/internal/application/port/input"
	"comment-extractor/internal/domain/entity"
)

var _ input.StrategyRegistry = (*StrategyRegistryImpl)(nil)

type StrategyRegistryImpl struct {
	strategies map[entity.StrategyKind]input.Strategy
}

func NewStrategyRegistry(strategies ...input.Strategy) *StrategyRegistryImpl {
	r := &StrategyRegistryImpl{
		strategies: make(map[entity.StrategyKind]input.Strategy),
	}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// Register adds a tier, replacing any previous tier of the same kind.
func (r *StrategyRegistryImpl) Register(s input.Strategy) {
	r.strategies[s.Kind()] = s
}

func (r *StrategyRegistryImpl) Get(kind entity.StrategyKind) (input.Strategy, bool) {
	s, ok := r.strategies[kind]
	return s, ok
}

// Kinds lists registered tiers in fallback order. Kinds outside
// entity.StrategyOrder follow in name order.
func (r *StrategyRegistryImpl) Kinds() []entity.StrategyKind {
	result := make([]entity.StrategyKind, 0, len(r.strategies))
	for _, k := range entity.StrategyOrder {
		if _, ok := r.strategies[k]; ok {
			result = append(result, k)
		}
	}
	var extra []entity.StrategyKind
	for k := range r.strategies {
		if !slices.Contains(entity.StrategyOrder, k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	return append(result, extra...)
}
