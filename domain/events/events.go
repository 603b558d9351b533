package events

import (
	"time"

	"dkpauction/domain/entities"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeAuctionStarted EventType = "auction_started"
	EventTypeBidPlaced      EventType = "bid_placed"
	EventTypeAuctionEnded   EventType = "auction_ended"
	EventTypeBalanceChange  EventType = "balance_change"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// AuctionStartedEvent is emitted once an auction is persisted and open for bids
type AuctionStartedEvent struct {
	AuctionID       int64          `json:"auctionId"`
	Item            string         `json:"item"`
	ItemMetadata    map[string]any `json:"itemMetadata,omitempty"`
	MinBid          int64          `json:"minBid"`
	DurationSeconds int64          `json:"durationSeconds"`
	EndsAt          time.Time      `json:"endsAt"`
	CreatedBy       *int64         `json:"createdBy,omitempty"`
}

func (e AuctionStartedEvent) Type() EventType {
	return EventTypeAuctionStarted
}

// BidPlacedEvent is emitted after an accepted bid commits
type BidPlacedEvent struct {
	AuctionID     int64      `json:"auctionId"`
	UserID        int64      `json:"userId"`
	Amount        int64      `json:"amount"`
	OutbidUserID  *int64     `json:"outbidUserId,omitempty"`
	TieWithUserID *int64     `json:"tieWithUserId,omitempty"`
	TimeExtended  bool       `json:"timeExtended"`
	NewEndsAt     *time.Time `json:"newEndsAt,omitempty"`
}

func (e BidPlacedEvent) Type() EventType {
	return EventTypeBidPlaced
}

// RollResult is one tie-break roll carried on AuctionEndedEvent
type RollResult struct {
	UserID   int64 `json:"userId"`
	Roll     int   `json:"roll"`
	IsWinner bool  `json:"isWinner"`
}

// AuctionEndedEvent is emitted once settlement commits.
// Cancelled auctions carry no winner.
type AuctionEndedEvent struct {
	AuctionID  int64                  `json:"auctionId"`
	Status     entities.AuctionStatus `json:"status"`
	WinnerID   *int64                 `json:"winnerId,omitempty"`
	WinningBid *int64                 `json:"winningBid,omitempty"`
	WasTie     bool                   `json:"wasTie"`
	Rolls      []RollResult           `json:"rolls,omitempty"`
}

func (e AuctionEndedEvent) Type() EventType {
	return EventTypeAuctionEnded
}

// BalanceChangeEvent represents a ledger change that was recorded
type BalanceChangeEvent struct {
	UserID      int64                      `json:"userId"`
	OldBalance  int64                      `json:"oldBalance"`
	NewBalance  int64                      `json:"newBalance"`
	AmountDelta int64                      `json:"amountDelta"`
	Reason      entities.TransactionReason `json:"reason"`
	AuctionID   *int64                     `json:"auctionId,omitempty"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// NewAuctionEndedEvent builds the event payload from a settlement result
func NewAuctionEndedEvent(result *entities.SettlementResult) AuctionEndedEvent {
	event := AuctionEndedEvent{
		AuctionID:  result.AuctionID,
		Status:     result.Status,
		WinnerID:   result.WinnerID,
		WinningBid: result.WinningBid,
		WasTie:     result.WasTie,
	}
	for _, r := range result.Rolls {
		event.Rolls = append(event.Rolls, RollResult{UserID: r.DiscordID, Roll: r.Roll, IsWinner: r.IsWinner})
	}
	return event
}
