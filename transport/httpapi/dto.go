package httpapi

import (
	"time"

	"dkpauction/domain/entities"
)

type CreateAuctionRequest struct {
	Item            string         `json:"item" binding:"required"`
	ItemMetadata    map[string]any `json:"itemMetadata"`
	MinBid          *int64         `json:"minBid"`
	DurationSeconds *int64         `json:"durationSeconds"`
}

type PlaceBidRequest struct {
	Amount int64 `json:"amount"`
}

type CreateAccountRequest struct {
	UserID   int64  `json:"userId" binding:"required"`
	Username string `json:"username"`
}

type AdjustmentRequest struct {
	Delta    int64          `json:"delta"`
	Reason   string         `json:"reason" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

type BidResponse struct {
	UserID    int64     `json:"userId"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

type RollResponse struct {
	UserID   int64 `json:"userId"`
	Roll     int   `json:"roll"`
	IsWinner bool  `json:"isWinner"`
}

type AuctionResponse struct {
	ID                         int64          `json:"id"`
	Item                       string         `json:"item"`
	ItemMetadata               map[string]any `json:"itemMetadata,omitempty"`
	MinBid                     int64          `json:"minBid"`
	Status                     string         `json:"status"`
	CreatedAt                  time.Time      `json:"createdAt"`
	OriginalEndsAt             time.Time      `json:"originalEndsAt"`
	EndsAt                     time.Time      `json:"endsAt"`
	HighestBid                 *BidResponse   `json:"highestBid,omitempty"`
	Bids                       []BidResponse  `json:"bids,omitempty"`
	Winner                     *int64         `json:"winner,omitempty"`
	WinningBid                 *int64         `json:"winningBid,omitempty"`
	WasTie                     bool           `json:"wasTie"`
	Rolls                      []RollResponse `json:"rolls,omitempty"`
	AvailableForRequestingUser *int64         `json:"availableForRequestingUser,omitempty"`
}

type PlaceBidResponse struct {
	Accepted     bool       `json:"accepted"`
	TimeExtended bool       `json:"timeExtended"`
	NewEndsAt    *time.Time `json:"newEndsAt,omitempty"`
	EndsAt       time.Time  `json:"endsAt"`
	OutbidUserID *int64     `json:"outbidUserId,omitempty"`
}

type SettlementResponse struct {
	AuctionID       int64          `json:"auctionId"`
	Status          string         `json:"status"`
	Winner          *int64         `json:"winner,omitempty"`
	WinningBid      *int64         `json:"winningBid,omitempty"`
	WasTie          bool           `json:"wasTie"`
	Rolls           []RollResponse `json:"rolls"`
	RejectedBidders []int64        `json:"rejectedBidders,omitempty"`
}

type AccountResponse struct {
	UserID         int64  `json:"userId"`
	Username       string `json:"username"`
	Balance        int64  `json:"balance"`
	Available      *int64 `json:"available,omitempty"`
	LifetimeGained int64  `json:"lifetimeGained"`
	LifetimeSpent  int64  `json:"lifetimeSpent"`
}

type LedgerEntryResponse struct {
	ID            int64          `json:"id"`
	UserID        int64          `json:"userId"`
	AmountDelta   int64          `json:"amountDelta"`
	BalanceBefore int64          `json:"balanceBefore"`
	BalanceAfter  int64          `json:"balanceAfter"`
	Reason        string         `json:"reason"`
	AuctionID     *int64         `json:"auctionId,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func toBidResponses(bids []*entities.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, BidResponse{UserID: b.DiscordID, Amount: b.Amount, CreatedAt: b.CreatedAt})
	}
	return out
}

func toRollResponses(rolls []*entities.TieRoll) []RollResponse {
	out := make([]RollResponse, 0, len(rolls))
	for _, r := range rolls {
		out = append(out, RollResponse{UserID: r.DiscordID, Roll: r.Roll, IsWinner: r.IsWinner})
	}
	return out
}

func toAuctionResponse(a *entities.Auction, bids []*entities.Bid) AuctionResponse {
	resp := AuctionResponse{
		ID:             a.ID,
		Item:           a.ItemName,
		ItemMetadata:   a.ItemMetadata,
		MinBid:         a.MinBid,
		Status:         string(a.Status),
		CreatedAt:      a.CreatedAt,
		OriginalEndsAt: a.OriginalEndsAt,
		EndsAt:         a.EndsAt,
		Winner:         a.WinnerDiscordID,
		WinningBid:     a.WinningBid,
		WasTie:         a.WasTie,
	}
	if len(bids) > 0 {
		resp.Bids = toBidResponses(bids)
		if top := entities.HighestBid(bids); top != nil {
			resp.HighestBid = &BidResponse{UserID: top.DiscordID, Amount: top.Amount, CreatedAt: top.CreatedAt}
		}
	}
	return resp
}

func toSettlementResponse(r *entities.SettlementResult) SettlementResponse {
	return SettlementResponse{
		AuctionID:       r.AuctionID,
		Status:          string(r.Status),
		Winner:          r.WinnerID,
		WinningBid:      r.WinningBid,
		WasTie:          r.WasTie,
		Rolls:           toRollResponses(r.Rolls),
		RejectedBidders: r.RejectedBidders,
	}
}

func toAccountResponse(a *entities.Account) AccountResponse {
	return AccountResponse{
		UserID:         a.DiscordID,
		Username:       a.Username,
		Balance:        a.Balance,
		LifetimeGained: a.LifetimeGained,
		LifetimeSpent:  a.LifetimeSpent,
	}
}

func toLedgerEntryResponse(e *entities.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:            e.ID,
		UserID:        e.DiscordID,
		AmountDelta:   e.AmountDelta,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		Reason:        string(e.Reason),
		AuctionID:     e.AuctionID,
		Metadata:      e.Metadata,
		CreatedAt:     e.CreatedAt,
	}
}
