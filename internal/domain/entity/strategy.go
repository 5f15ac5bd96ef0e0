package entity

import "time"

type StrategyKind string

const (
	StrategyConfigDriven  StrategyKind = "config-driven"
	StrategyAIDiscovery   StrategyKind = "ai-discovery"
	StrategyAIProgressive StrategyKind = "ai-progressive"
)

// StrategyOrder is the fixed fallback priority.
var StrategyOrder = []StrategyKind{StrategyConfigDriven, StrategyAIDiscovery, StrategyAIProgressive}

type StopReason string

const (
	StopTargetReached StopReason = "target-reached"
	StopNoNewRecords  StopReason = "no-new-records"
	StopNoGrowth      StopReason = "no-growth"
	StopMaxScrolls    StopReason = "max-scrolls"
	StopMaxIterations StopReason = "max-iterations"
	StopCompleted     StopReason = "completed"
	StopStuck         StopReason = "stuck"
	StopCancelled     StopReason = "cancelled"
)

// Target identifies what a run extracts from.
type Target struct {
	URL         string
	Domain      string
	MaxComments int
}

// FieldDiagnostic counts how often a field rule matched across a run.
type FieldDiagnostic struct {
	Matched int `json:"matched"`
	Failed  int `json:"failed"`
}

// TierAttempt records what happened inside one tier.
type TierAttempt struct {
	Strategy StrategyKind `json:"strategy"`
	Records  int          `json:"records"`
	Reason   string       `json:"reason,omitempty"`
}

// StrategyResult is what a single tier returns.
type StrategyResult struct {
	Strategy    StrategyKind               `json:"strategy"`
	Comments    []Comment                  `json:"comments"`
	StopReason  StopReason                 `json:"stopReason"`
	Iterations  int                        `json:"iterations"`
	Selectors   SelectorMap                `json:"selectors,omitempty"`
	Diagnostics map[string]FieldDiagnostic `json:"diagnostics,omitempty"`
	Cancelled   bool                       `json:"cancelled,omitempty"`
	Duration    time.Duration              `json:"duration"`
}
