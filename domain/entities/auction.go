package entities

import "time"

// AuctionStatus represents the lifecycle state of an auction
type AuctionStatus string

const (
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusCompleted AuctionStatus = "completed"
	AuctionStatusCancelled AuctionStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed
func (s AuctionStatus) IsTerminal() bool {
	return s == AuctionStatusCompleted || s == AuctionStatusCancelled
}

// Auction is a timed competitive sale of a single item for DKP
type Auction struct {
	ID              int64          `db:"id"`
	ItemName        string         `db:"item_name"`
	ItemMetadata    map[string]any `db:"item_metadata"`
	MinBid          int64          `db:"min_bid"`
	DurationSeconds int64          `db:"duration_seconds"`
	CreatedBy       *int64         `db:"created_by"`
	CreatedAt       time.Time      `db:"created_at"`
	OriginalEndsAt  time.Time      `db:"original_ends_at"`
	EndsAt          time.Time      `db:"ends_at"`
	Status          AuctionStatus  `db:"status"`
	WinnerDiscordID *int64         `db:"winner_discord_id"`
	WinningBid      *int64         `db:"winning_bid"`
	WasTie          bool           `db:"was_tie"`
	WinningRoll     *int           `db:"winning_roll"`
	ClosedAt        *time.Time     `db:"closed_at"`
}

// IsActive returns true while the auction accepts bids and awaits settlement
func (a *Auction) IsActive() bool {
	return a.Status == AuctionStatusActive
}

// IsOpenAt reports whether a bid arriving at now can still be accepted
func (a *Auction) IsOpenAt(now time.Time) bool {
	return a.IsActive() && now.Before(a.EndsAt)
}

// Remaining is the time left until the scheduled close, never negative
func (a *Auction) Remaining(now time.Time) time.Duration {
	if d := a.EndsAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// TotalExtension is how far anti-snipe has pushed the close past the original end
func (a *Auction) TotalExtension() time.Duration {
	return a.EndsAt.Sub(a.OriginalEndsAt)
}

// Duration returns the configured auction length
func (a *Auction) Duration() time.Duration {
	return time.Duration(a.DurationSeconds) * time.Second
}

// AuctionDetail is an auction with its current bids and any persisted tie rolls
type AuctionDetail struct {
	Auction *Auction
	Bids    []*Bid
	Rolls   []*TieRoll
}

// ActiveAuctionView is what a bidder sees when listing open auctions.
// AvailableForUser is nil when the requester has no ledger account.
type ActiveAuctionView struct {
	Auction          *Auction
	Bids             []*Bid
	AvailableForUser *int64
}

// CreateAuctionParams describes a new auction; nil fields take configured defaults
type CreateAuctionParams struct {
	ItemName     string
	ItemMetadata map[string]any
	MinBid       *int64
	Duration     *time.Duration
	CreatedBy    *int64
}
