package testutil

import (
	"context"
	"testing"
	"time"

	"dkpauction/database"
	"dkpauction/domain/entities"

	"github.com/stretchr/testify/require"
)

// CreateTestAuction builds an active auction ending duration after start
func CreateTestAuction(item string, minBid int64, start time.Time, duration time.Duration) *entities.Auction {
	endsAt := start.Add(duration)
	return &entities.Auction{
		ItemName:        item,
		ItemMetadata:    map[string]any{"source": "test"},
		MinBid:          minBid,
		DurationSeconds: int64(duration / time.Second),
		CreatedAt:       start,
		OriginalEndsAt:  endsAt,
		EndsAt:          endsAt,
		Status:          entities.AuctionStatusActive,
	}
}

// SeedAccount inserts an account with a starting balance directly
func SeedAccount(t *testing.T, db *database.DB, discordID int64, username string, balance int64) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		INSERT INTO dkp_accounts (discord_id, username, balance, lifetime_gained)
		VALUES ($1, $2, $3, $3)`,
		discordID, username, balance)
	require.NoError(t, err)
}

// SeedAuction inserts an auction directly and returns its ID
func SeedAuction(t *testing.T, db *database.DB, auction *entities.Auction) int64 {
	t.Helper()
	err := db.QueryRow(context.Background(), `
		INSERT INTO auctions (item_name, min_bid, duration_seconds, created_at, original_ends_at, ends_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		auction.ItemName, auction.MinBid, auction.DurationSeconds, auction.CreatedAt,
		auction.OriginalEndsAt, auction.EndsAt, string(auction.Status),
	).Scan(&auction.ID)
	require.NoError(t, err)
	return auction.ID
}

// SeedBid inserts a bid directly
func SeedBid(t *testing.T, db *database.DB, auctionID, discordID, amount int64, at time.Time) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		INSERT INTO auction_bids (auction_id, discord_id, amount, created_at)
		VALUES ($1, $2, $3, $4)`,
		auctionID, discordID, amount, at)
	require.NoError(t, err)
}
