package entities

import "time"

// Bid is a user's current offer on an auction; one per user per auction
type Bid struct {
	AuctionID int64     `db:"auction_id"`
	DiscordID int64     `db:"discord_id"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}

// BidPlacement is the outcome of an accepted bid
type BidPlacement struct {
	Bid            *Bid
	PreviousLeader *Bid // highest bid before this one, nil if none
	OutbidUserID   *int64
	TieWithUserID  *int64 // nil while bids must strictly exceed the leader
	TimeExtended   bool
	NewEndsAt      *time.Time
	EndsAt         time.Time
}

// HighestBid returns the leading bid from a slice, or nil when empty.
// Ties on amount resolve to the earliest bid.
func HighestBid(bids []*Bid) *Bid {
	var top *Bid
	for _, b := range bids {
		if top == nil || b.Amount > top.Amount ||
			(b.Amount == top.Amount && b.CreatedAt.Before(top.CreatedAt)) {
			top = b
		}
	}
	return top
}
