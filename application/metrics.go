package application

import "time"

// Metrics receives engine counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	RecordBid(result string)
	RecordSnipeExtension()
	RecordSettlement(outcome string, duration time.Duration)
	UpdateActiveAuctions(delta int64)
}

type noopMetrics struct{}

func (noopMetrics) RecordBid(string)                      {}
func (noopMetrics) RecordSnipeExtension()                 {}
func (noopMetrics) RecordSettlement(string, time.Duration) {}
func (noopMetrics) UpdateActiveAuctions(int64)            {}
