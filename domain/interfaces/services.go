package interfaces

import (
	"context"
	"time"

	"dkpauction/domain/entities"
)

// LedgerService owns DKP balances and the commitment calculation
type LedgerService interface {
	// Balance returns the settled balance
	Balance(ctx context.Context, userID int64) (int64, error)

	// Committed returns DKP the user is currently leading with on other active auctions
	Committed(ctx context.Context, userID, excludeAuctionID int64) (int64, error)

	// Available returns balance minus committed. It may be negative.
	Available(ctx context.Context, userID, excludeAuctionID int64) (int64, error)

	// Debit charges an auction winner
	Debit(ctx context.Context, userID, amount, auctionID int64) (*entities.LedgerEntry, error)

	// Adjust applies an award or correction, honoring the balance cap
	Adjust(ctx context.Context, userID, delta int64, reason entities.TransactionReason, metadata map[string]any) (*entities.LedgerEntry, error)

	// EnsureAccount returns the user's account, creating an empty one if needed
	EnsureAccount(ctx context.Context, userID int64, username string) (*entities.Account, error)

	// GetAccount returns the account or ErrAccountNotFound
	GetAccount(ctx context.Context, userID int64) (*entities.Account, error)

	// History returns the user's ledger entries newest first
	History(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error)
}

// BidService validates and records bids
type BidService interface {
	// PlaceBid validates and stores a bid, applying anti-snipe extension
	PlaceBid(ctx context.Context, auctionID, userID, amount int64, now time.Time) (*entities.BidPlacement, error)
}

// AuctionService manages auction lifecycle and queries
type AuctionService interface {
	// CreateAuction opens a new auction
	CreateAuction(ctx context.Context, params entities.CreateAuctionParams, now time.Time) (*entities.Auction, error)

	// GetAuction returns an auction with bids and rolls
	GetAuction(ctx context.Context, id int64) (*entities.AuctionDetail, error)

	// ListActive returns open auctions with the requester's available DKP
	ListActive(ctx context.Context, requestingUserID *int64) ([]*entities.ActiveAuctionView, error)

	// ListOverdue returns active auctions past their close time
	ListOverdue(ctx context.Context, now time.Time) ([]*entities.Auction, error)
}

// SettlementService closes auctions
type SettlementService interface {
	// Close settles the auction exactly once
	Close(ctx context.Context, auctionID int64, now time.Time) (*entities.SettlementResult, error)
}
