package infrastructure

import (
	"testing"

	"dkpauction/domain/events"

	"github.com/stretchr/testify/assert"
)

func TestEventSubjectMapper_RoundTrip(t *testing.T) {
	mapper := NewEventSubjectMapper()

	tests := []struct {
		name    string
		event   events.Event
		subject string
	}{
		{"auction started", events.AuctionStartedEvent{AuctionID: 1}, "auctions.started"},
		{"bid placed", events.BidPlacedEvent{AuctionID: 1, UserID: 2, Amount: 10}, "auctions.bid_placed"},
		{"auction ended", events.AuctionEndedEvent{AuctionID: 1}, "auctions.ended"},
		{"balance change", events.BalanceChangeEvent{UserID: 2}, "ledger.balance_changed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject := mapper.MapEventToSubject(tt.event)
			assert.Equal(t, tt.subject, subject)
			assert.Equal(t, tt.event.Type(), mapper.MapSubjectToEventType(subject))
		})
	}

	assert.Len(t, mapper.GetAllSubjects(), len(tests))
}
