package repository

import (
	"context"
	"testing"
	"time"

	"dkpauction/domain/entities"
	"dkpauction/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerEntryRepository_AppendAndQuery(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewLedgerEntryRepository(testDB.DB)
	ctx := context.Background()
	testutil.SeedAccount(t, testDB.DB, 3001, "rogue", 0)

	award := &entities.LedgerEntry{
		DiscordID:     3001,
		AmountDelta:   25,
		BalanceBefore: 0,
		BalanceAfter:  25,
		Reason:        entities.TransactionReasonAward,
		Metadata:      map[string]any{"raid": "molten core"},
	}
	require.NoError(t, repo.Append(ctx, award))
	assert.NotZero(t, award.ID)
	assert.False(t, award.CreatedAt.IsZero())

	adjustment := &entities.LedgerEntry{
		DiscordID:     3001,
		AmountDelta:   -5,
		BalanceBefore: 25,
		BalanceAfter:  20,
		Reason:        entities.TransactionReasonAdjustment,
	}
	require.NoError(t, repo.Append(ctx, adjustment))

	t.Run("newest first with limit", func(t *testing.T) {
		entries, err := repo.GetByUser(ctx, 3001, 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, adjustment.ID, entries[0].ID)
		assert.Equal(t, entities.TransactionReasonAdjustment, entries[0].Reason)
		assert.Empty(t, entries[0].Metadata)
	})

	t.Run("metadata round trips", func(t *testing.T) {
		entries, err := repo.GetByUser(ctx, 3001, 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "molten core", entries[1].Metadata["raid"])
	})

	t.Run("auction entries", func(t *testing.T) {
		auctionID := testutil.SeedAuction(t, testDB.DB, testutil.CreateTestAuction("Thunderfury", 0, time.Now(), time.Minute))
		testutil.SeedAccount(t, testDB.DB, 3002, "warrior", 50)

		win := &entities.LedgerEntry{
			DiscordID:     3002,
			AmountDelta:   -30,
			BalanceBefore: 50,
			BalanceAfter:  20,
			Reason:        entities.TransactionReasonAuctionWin,
			AuctionID:     &auctionID,
		}
		require.NoError(t, repo.Append(ctx, win))

		entries, err := repo.GetByAuction(ctx, auctionID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.NotNil(t, entries[0].AuctionID)
		assert.Equal(t, auctionID, *entries[0].AuctionID)
		assert.Equal(t, int64(-30), entries[0].AmountDelta)
	})
}
