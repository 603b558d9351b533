package entities

import "time"

// TieRoll is one bidder's roll when several valid bids share the top amount
type TieRoll struct {
	AuctionID int64     `db:"auction_id"`
	DiscordID int64     `db:"discord_id"`
	Roll      int       `db:"roll"`
	IsWinner  bool      `db:"is_winner"`
	CreatedAt time.Time `db:"created_at"`
}

// SettlementResult is the outcome of closing an auction
type SettlementResult struct {
	AuctionID       int64
	Status          AuctionStatus
	WinnerID        *int64
	WinningBid      *int64
	WasTie          bool
	WinningRoll     *int
	Rolls           []*TieRoll
	RejectedBidders []int64 // bids dropped because balance no longer covered them
	Rounds          int     // tie roll rounds needed, 0 without a tie
	LedgerEntry     *LedgerEntry
	ClosedAt        time.Time
}

// HasWinner reports whether the auction completed with a sale
func (r *SettlementResult) HasWinner() bool {
	return r.WinnerID != nil
}
