package interfaces

import (
	"context"
	"time"

	"dkpauction/domain/entities"
	"dkpauction/domain/events"
)

// AccountRepository defines data access for DKP ledger accounts
type AccountRepository interface {
	// GetByDiscordID retrieves an account, nil when it does not exist
	GetByDiscordID(ctx context.Context, discordID int64) (*entities.Account, error)

	// GetByDiscordIDForUpdate retrieves an account and locks the row
	GetByDiscordIDForUpdate(ctx context.Context, discordID int64) (*entities.Account, error)

	// GetBalances fetches settled balances for many users in one query.
	// Users without an account are absent from the map.
	GetBalances(ctx context.Context, discordIDs []int64) (map[int64]int64, error)

	// Create inserts a zero-balance account
	Create(ctx context.Context, discordID int64, username string) (*entities.Account, error)

	// ApplyDelta changes the balance and lifetime counters in one guarded update.
	// Returns ErrInsufficientFunds when the balance would go negative.
	ApplyDelta(ctx context.Context, discordID int64, delta, gained, spent int64) (*entities.Account, error)

	// GetAll returns all accounts ordered by balance descending
	GetAll(ctx context.Context) ([]*entities.Account, error)
}

// LedgerEntryRepository defines access to the append-only transaction log
type LedgerEntryRepository interface {
	// Append records a ledger entry and populates its ID and CreatedAt
	Append(ctx context.Context, entry *entities.LedgerEntry) error

	// GetByUser returns a user's entries newest first
	GetByUser(ctx context.Context, discordID int64, limit int) ([]*entities.LedgerEntry, error)

	// GetByAuction returns entries that reference an auction
	GetByAuction(ctx context.Context, auctionID int64) ([]*entities.LedgerEntry, error)
}

// AuctionRepository defines data access for auctions and their tie rolls
type AuctionRepository interface {
	// Create inserts the auction and populates its ID
	Create(ctx context.Context, auction *entities.Auction) error

	// GetByID retrieves an auction, nil when it does not exist
	GetByID(ctx context.Context, id int64) (*entities.Auction, error)

	// GetByIDForUpdate retrieves an auction and locks the row for the transaction
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Auction, error)

	// GetActive returns all active auctions ordered by ends_at
	GetActive(ctx context.Context) ([]*entities.Auction, error)

	// GetOverdue returns active auctions whose ends_at is not after now
	GetOverdue(ctx context.Context, now time.Time) ([]*entities.Auction, error)

	// UpdateEndsAt moves the scheduled close forward; it never moves it back
	UpdateEndsAt(ctx context.Context, id int64, endsAt time.Time) error

	// MarkSettled writes the terminal state. Returns ErrAuctionNotActive when
	// the auction already left the active state.
	MarkSettled(ctx context.Context, result *entities.SettlementResult) error

	// SaveRolls persists the deciding round of tie rolls
	SaveRolls(ctx context.Context, rolls []*entities.TieRoll) error

	// GetRolls returns persisted tie rolls for an auction, highest first
	GetRolls(ctx context.Context, auctionID int64) ([]*entities.TieRoll, error)
}

// BidRepository defines data access for auction bids
type BidRepository interface {
	// GetHighest returns the leading bid, nil when the auction has none
	GetHighest(ctx context.Context, auctionID int64) (*entities.Bid, error)

	// GetByAuction returns bids ordered by amount descending, then earliest first
	GetByAuction(ctx context.Context, auctionID int64) ([]*entities.Bid, error)

	// Replace deletes the user's prior bid on the auction and inserts bid.
	// Returns the deleted bid, nil if there was none.
	Replace(ctx context.Context, bid *entities.Bid) (*entities.Bid, error)

	// GetCommittedAmount sums the user's bids on active auctions other than
	// excludeAuctionID where the bid equals that auction's maximum.
	// excludeAuctionID of 0 excludes nothing.
	GetCommittedAmount(ctx context.Context, discordID, excludeAuctionID int64) (int64, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}
