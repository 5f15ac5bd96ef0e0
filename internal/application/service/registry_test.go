package service

import (
	"context"
	"testing"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

type fakeStrategy entity.StrategyKind

func (f fakeStrategy) Kind() entity.StrategyKind { return entity.StrategyKind(f) }

func (f fakeStrategy) Execute(context.Context, output.DocumentPort, entity.Target) (*entity.StrategyResult, error) {
	return &entity.StrategyResult{Strategy: f.Kind()}, nil
}

func TestStrategyRegistry_KindsFollowFallbackOrder(t *testing.T) {
	r := NewStrategyRegistry(
		fakeStrategy("zz-custom"),
		fakeStrategy(entity.StrategyAIProgressive),
		fakeStrategy(entity.StrategyConfigDriven),
		fakeStrategy("aa-custom"),
	)

	assert.Equal(t, []entity.StrategyKind{
		entity.StrategyConfigDriven,
		entity.StrategyAIProgressive,
		"aa-custom",
		"zz-custom",
	}, r.Kinds())
}

func TestStrategyRegistry_Get(t *testing.T) {
	r := NewStrategyRegistry()
	_, ok := r.Get(entity.StrategyAIDiscovery)
	assert.False(t, ok)

	r.Register(fakeStrategy(entity.StrategyAIDiscovery))
	s, ok := r.Get(entity.StrategyAIDiscovery)
	assert.True(t, ok)
	assert.Equal(t, entity.StrategyAIDiscovery, s.Kind())
}
