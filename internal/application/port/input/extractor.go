package input

import (
	"context"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
)

type ExtractRequest struct {
	URL         string
	Domain      string
	MaxComments int
	// Strategy forces a single tier instead of the fallback chain.
	Strategy entity.StrategyKind
}

type ExtractResult struct {
	Comments    []entity.Comment                  `json:"comments"`
	Strategy    entity.StrategyKind               `json:"strategy"`
	StopReason  entity.StopReason                 `json:"stopReason"`
	Attempts    []entity.TierAttempt              `json:"attempts"`
	Diagnostics map[string]entity.FieldDiagnostic `json:"diagnostics,omitempty"`
	Cancelled   bool                              `json:"cancelled,omitempty"`
}

type Extractor interface {
	Execute(ctx context.Context, doc output.DocumentPort, req ExtractRequest) (*ExtractResult, error)
}

// Strategy is one extraction tier.
type Strategy interface {
	Kind() entity.StrategyKind
	Execute(ctx context.Context, doc output.DocumentPort, target entity.Target) (*entity.StrategyResult, error)
}

// StrategyRegistry resolves tiers by kind.
type StrategyRegistry interface {
	Get(kind entity.StrategyKind) (Strategy, bool)
	Kinds() []entity.StrategyKind
}
