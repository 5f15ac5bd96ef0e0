package output

import "time"

type MetricsPort interface {
	RunFinished(strategy, outcome string, records int, duration time.Duration)
	OracleCall(kind string, tokens int, err error)
}

type NopMetrics struct{}

func (NopMetrics) RunFinished(string, string, int, time.Duration) {}
func (NopMetrics) OracleCall(string, int, error)                  {}
