package infrastructure

import (
	"fmt"

	"dkpauction/domain/events"
)

const (
	SubjectAuctionStarted = "auctions.started"
	SubjectBidPlaced      = "auctions.bid_placed"
	SubjectAuctionEnded   = "auctions.ended"
	SubjectBalanceChanged = "ledger.balance_changed"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeAuctionStarted:
		return SubjectAuctionStarted
	case events.EventTypeBidPlaced:
		return SubjectBidPlaced
	case events.EventTypeAuctionEnded:
		return SubjectAuctionEnded
	case events.EventTypeBalanceChange:
		return SubjectBalanceChanged
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case SubjectAuctionStarted:
		return events.EventTypeAuctionStarted
	case SubjectBidPlaced:
		return events.EventTypeBidPlaced
	case SubjectAuctionEnded:
		return events.EventTypeAuctionEnded
	case SubjectBalanceChanged:
		return events.EventTypeBalanceChange
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		SubjectAuctionStarted,
		SubjectBidPlaced,
		SubjectAuctionEnded,
		SubjectBalanceChanged,
	}
}
