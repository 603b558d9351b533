package observability

// Metric name prefixes
const (
	MetricPrefix = "dkpauction"
)

// Metric names
const (
	BidsTotal            = MetricPrefix + ".bids.total"
	SnipeExtensionsTotal = MetricPrefix + ".snipe.extensions_total"

	AuctionsActive = MetricPrefix + ".auctions.active"

	SettlementsTotal   = MetricPrefix + ".settlements.total"
	SettlementDuration = MetricPrefix + ".settlement.duration"

	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelResult    = "result"
	LabelOutcome   = "outcome"
	LabelEventType = "event_type"
)
