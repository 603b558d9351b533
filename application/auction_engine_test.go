package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"dkpauction/domain/entities"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func activeAuction(id int64, endsAt time.Time) *entities.Auction {
	return &entities.Auction{
		ID:              id,
		ItemName:        "Band of Unnatural Forces",
		DurationSeconds: 300,
		CreatedAt:       endsAt.Add(-5 * time.Minute),
		OriginalEndsAt:  endsAt,
		EndsAt:          endsAt,
		Status:          entities.AuctionStatusActive,
	}
}

func serializationFailure() error {
	return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
}

func TestAuctionEngine_CreateAuction(t *testing.T) {
	tests := []struct {
		name        string
		commitErrs  []error
		wantUoWs    int
		wantErr     bool
		wantPending bool
	}{
		{
			name:        "arms deadline after commit",
			wantUoWs:    1,
			wantPending: true,
		},
		{
			name:        "retries serialization failure",
			commitErrs:  []error{serializationFailure()},
			wantUoWs:    2,
			wantPending: true,
		},
		{
			name:       "non-retryable commit failure",
			commitErrs: []error{errors.New("connection reset")},
			wantUoWs:   1,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newEngineFixture()
			fx.factory.FailCommits(tt.commitErrs...)
			fx.factory.AuctionRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Auction")).
				Run(func(args mock.Arguments) {
					args.Get(1).(*entities.Auction).ID = 42
				}).Return(nil)

			auction, err := fx.engine.CreateAuction(context.Background(), entities.CreateAuctionParams{ItemName: "Ashkandi"})

			assert.Len(t, fx.factory.Created(), tt.wantUoWs)
			_, pending := fx.scheduler.Pending(42)
			assert.Equal(t, tt.wantPending, pending)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, int64(0), fx.metrics.active)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testNow.Add(5*time.Minute), auction.EndsAt)
			assert.Equal(t, int64(1), fx.metrics.active)
		})
	}
}

func TestAuctionEngine_PlaceBid(t *testing.T) {
	const auctionID, userID = int64(7), int64(100)

	t.Run("accepted bid far from deadline", func(t *testing.T) {
		fx := newEngineFixture()
		auction := activeAuction(auctionID, testNow.Add(4*time.Minute))
		fx.factory.AuctionRepo.On("GetByIDForUpdate", mock.Anything, auctionID).Return(auction, nil)
		fx.factory.BidRepo.On("GetHighest", mock.Anything, auctionID).Return(nil, nil)
		fx.factory.AccountRepo.On("GetByDiscordID", mock.Anything, userID).Return(&entities.Account{DiscordID: userID, Balance: 50}, nil)
		fx.factory.BidRepo.On("GetCommittedAmount", mock.Anything, userID, auctionID).Return(int64(0), nil)
		fx.factory.BidRepo.On("Replace", mock.Anything, mock.AnythingOfType("*entities.Bid")).Return(nil, nil)

		placement, err := fx.engine.PlaceBid(context.Background(), auctionID, userID, 10)
		require.NoError(t, err)
		assert.False(t, placement.TimeExtended)
		assert.Equal(t, 1, fx.metrics.bids["OK"])
		assert.Equal(t, 0, fx.metrics.snipeExtensions)
		assert.Empty(t, fx.timers.Live())
		fx.factory.AssertExpectations(t)
	})

	t.Run("late bid re-arms the deadline", func(t *testing.T) {
		fx := newEngineFixture()
		endsAt := testNow.Add(10 * time.Second)
		auction := activeAuction(auctionID, endsAt)
		require.NoError(t, fx.scheduler.Schedule(auctionID, endsAt))

		fx.factory.AuctionRepo.On("GetByIDForUpdate", mock.Anything, auctionID).Return(auction, nil)
		fx.factory.BidRepo.On("GetHighest", mock.Anything, auctionID).Return(nil, nil)
		fx.factory.AccountRepo.On("GetByDiscordID", mock.Anything, userID).Return(&entities.Account{DiscordID: userID, Balance: 50}, nil)
		fx.factory.BidRepo.On("GetCommittedAmount", mock.Anything, userID, auctionID).Return(int64(0), nil)
		fx.factory.BidRepo.On("Replace", mock.Anything, mock.AnythingOfType("*entities.Bid")).Return(nil, nil)
		fx.factory.AuctionRepo.On("UpdateEndsAt", mock.Anything, auctionID, endsAt.Add(30*time.Second)).Return(nil)

		placement, err := fx.engine.PlaceBid(context.Background(), auctionID, userID, 10)
		require.NoError(t, err)
		assert.True(t, placement.TimeExtended)

		at, ok := fx.scheduler.Pending(auctionID)
		require.True(t, ok)
		assert.Equal(t, endsAt.Add(30*time.Second), at)
		assert.Len(t, fx.timers.Live(), 1, "old deadline was cancelled")
		assert.Equal(t, 1, fx.metrics.snipeExtensions)
	})

	t.Run("rejection rolls back and is not retried", func(t *testing.T) {
		fx := newEngineFixture()
		fx.factory.AuctionRepo.On("GetByIDForUpdate", mock.Anything, auctionID).Return(nil, nil)

		_, err := fx.engine.PlaceBid(context.Background(), auctionID, userID, 10)
		assert.ErrorIs(t, err, entities.ErrAuctionNotFound)

		created := fx.factory.Created()
		require.Len(t, created, 1)
		assert.True(t, created[0].rolledBack)
		assert.False(t, created[0].committed)
		assert.Equal(t, 1, fx.metrics.bids[entities.CodeAuctionNotFound])
	})

	t.Run("gives up after configured retries", func(t *testing.T) {
		fx := newEngineFixture()
		failures := make([]error, 10)
		for i := range failures {
			failures[i] = serializationFailure()
		}
		fx.factory.FailCommits(failures...)
		fx.factory.AuctionRepo.On("GetByIDForUpdate", mock.Anything, auctionID).Return(activeAuction(auctionID, testNow.Add(time.Hour)), nil)
		fx.factory.BidRepo.On("GetHighest", mock.Anything, auctionID).Return(nil, nil)
		fx.factory.AccountRepo.On("GetByDiscordID", mock.Anything, userID).Return(&entities.Account{DiscordID: userID, Balance: 50}, nil)
		fx.factory.BidRepo.On("GetCommittedAmount", mock.Anything, userID, auctionID).Return(int64(0), nil)
		fx.factory.BidRepo.On("Replace", mock.Anything, mock.AnythingOfType("*entities.Bid")).Return(nil, nil)

		_, err := fx.engine.PlaceBid(context.Background(), auctionID, userID, 10)
		require.Error(t, err)
		assert.Len(t, fx.factory.Created(), 6, "one attempt plus five retries")
		assert.Equal(t, 1, fx.metrics.bids[entities.CodeInternal])
	})
}

func TestAuctionEngine_CloseAuction(t *testing.T) {
	const auctionID, winnerID = int64(3), int64(100)

	t.Run("settles and drops the timer", func(t *testing.T) {
		fx := newEngineFixture()
		auction := activeAuction(auctionID, testNow.Add(time.Minute))
		require.NoError(t, fx.scheduler.Schedule(auctionID, auction.EndsAt))

		fx.factory.AuctionRepo.On("GetByIDForUpdate", mock.Anything, auctionID).Return(auction, nil)
		fx.factory.BidRepo.On("GetByAuction", mock.Anything, auctionID).Return([]*entities.Bid{
			{AuctionID: auctionID, DiscordID: winnerID, Amount: 20, CreatedAt: testNow},
		}, nil)
		fx.factory.AccountRepo.On("GetBalances", mock.Anything, []int64{winnerID}).Return(map[int64]int64{winnerID: 30}, nil)
		fx.factory.AccountRepo.On("ApplyDelta", mock.Anything, winnerID, int64(-20), int64(0), int64(20)).
			Return(&entities.Account{DiscordID: winnerID, Balance: 10}, nil)
		fx.factory.LedgerRepo.On("Append", mock.Anything, mock.AnythingOfType("*entities.LedgerEntry")).Return(nil)
		fx.factory.AuctionRepo.On("MarkSettled", mock.Anything, mock.MatchedBy(func(r *entities.SettlementResult) bool {
			return r.Status == entities.AuctionStatusCompleted && *r.WinnerID == winnerID
		})).Return(nil)

		result, err := fx.engine.CloseAuction(context.Background(), auctionID)
		require.NoError(t, err)
		assert.Equal(t, winnerID, *result.WinnerID)

		_, pending := fx.scheduler.Pending(auctionID)
		assert.False(t, pending)
		assert.Equal(t, 1, fx.metrics.settlements["completed"])
		fx.factory.AssertExpectations(t)
	})

	t.Run("already settled is a no-op", func(t *testing.T) {
		fx := newEngineFixture()
		auction := activeAuction(auctionID, testNow.Add(-time.Minute))
		auction.Status = entities.AuctionStatusCompleted
		fx.factory.AuctionRepo.On("GetByIDForUpdate", mock.Anything, auctionID).Return(auction, nil)

		_, err := fx.engine.CloseAuction(context.Background(), auctionID)
		assert.ErrorIs(t, err, entities.ErrAuctionNotActive)
		assert.Equal(t, 0, fx.scheduler.Len())
		assert.Equal(t, 1, fx.metrics.settlements["noop"])
	})

	t.Run("failure re-arms from stored deadline", func(t *testing.T) {
		fx := newEngineFixture()
		auction := activeAuction(auctionID, testNow.Add(time.Minute))
		require.NoError(t, fx.scheduler.Schedule(auctionID, auction.EndsAt))

		fx.factory.AuctionRepo.On("GetByIDForUpdate", mock.Anything, auctionID).Return(auction, nil)
		fx.factory.BidRepo.On("GetByAuction", mock.Anything, auctionID).Return(nil, errors.New("db down")).Once()
		fx.factory.AuctionRepo.On("GetByID", mock.Anything, auctionID).Return(auction, nil)
		fx.factory.BidRepo.On("GetByAuction", mock.Anything, auctionID).Return([]*entities.Bid{}, nil)

		_, err := fx.engine.CloseAuction(context.Background(), auctionID)
		require.Error(t, err)

		at, pending := fx.scheduler.Pending(auctionID)
		require.True(t, pending)
		assert.Equal(t, auction.EndsAt, at)
		assert.Equal(t, 1, fx.metrics.settlements["error"])
	})
}

func TestAuctionEngine_TimerExpiry(t *testing.T) {
	const auctionID = int64(11)

	t.Run("extended deadline defers settlement", func(t *testing.T) {
		fx := newEngineFixture()
		extended := activeAuction(auctionID, testNow.Add(30*time.Second))
		fx.factory.AuctionRepo.On("GetByIDForUpdate", mock.Anything, auctionID).Return(extended, nil).Once()

		fx.engine.handleExpiry(auctionID)

		at, pending := fx.scheduler.Pending(auctionID)
		require.True(t, pending)
		assert.Equal(t, extended.EndsAt, at)
		fx.factory.BidRepo.AssertNotCalled(t, "GetByAuction", mock.Anything, mock.Anything)
	})

	t.Run("due auction without bids is cancelled", func(t *testing.T) {
		fx := newEngineFixture()
		due := activeAuction(auctionID, testNow.Add(-time.Second))
		fx.factory.AuctionRepo.On("GetByIDForUpdate", mock.Anything, auctionID).Return(due, nil)
		fx.factory.BidRepo.On("GetByAuction", mock.Anything, auctionID).Return([]*entities.Bid{}, nil)
		fx.factory.AuctionRepo.On("MarkSettled", mock.Anything, mock.MatchedBy(func(r *entities.SettlementResult) bool {
			return r.Status == entities.AuctionStatusCancelled && r.WinnerID == nil
		})).Return(nil)

		require.NoError(t, fx.scheduler.Schedule(auctionID, testNow.Add(time.Minute)))
		fx.timers.FireAll()

		assert.Equal(t, 1, fx.metrics.settlements["cancelled"])
		assert.Equal(t, int64(-1), fx.metrics.active)
		assert.Equal(t, 0, fx.scheduler.Len())
	})
}

func TestAuctionEngine_SettleOverdue(t *testing.T) {
	fx := newEngineFixture()

	overdue := activeAuction(1, testNow.Add(-time.Minute))
	armed := activeAuction(2, testNow.Add(-time.Second))
	require.NoError(t, fx.scheduler.Schedule(2, testNow.Add(time.Second)))

	fx.factory.AuctionRepo.On("GetOverdue", mock.Anything, testNow).Return([]*entities.Auction{overdue, armed}, nil)
	fx.factory.AuctionRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(overdue, nil)
	fx.factory.BidRepo.On("GetByAuction", mock.Anything, int64(1)).Return([]*entities.Bid{}, nil)
	fx.factory.AuctionRepo.On("MarkSettled", mock.Anything, mock.MatchedBy(func(r *entities.SettlementResult) bool {
		return r.AuctionID == 1
	})).Return(nil)

	settled, err := fx.engine.SettleOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, settled)
	fx.factory.AuctionRepo.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, int64(2))
}

func TestAuctionEngine_Rehydrate(t *testing.T) {
	fx := newEngineFixture()

	a := activeAuction(1, testNow.Add(time.Minute))
	b := activeAuction(2, testNow.Add(2*time.Minute))
	fx.factory.AuctionRepo.On("GetActive", mock.Anything).Return([]*entities.Auction{a, b}, nil)
	fx.factory.BidRepo.On("GetByAuction", mock.Anything, mock.Anything).Return([]*entities.Bid{}, nil)

	armed, err := fx.engine.Rehydrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, armed)
	assert.Equal(t, 2, fx.scheduler.Len())
	assert.Equal(t, int64(2), fx.metrics.active)

	at, ok := fx.scheduler.Pending(2)
	require.True(t, ok)
	assert.Equal(t, b.EndsAt, at)
}

func TestAuctionEngine_AdjustBalance(t *testing.T) {
	fx := newEngineFixture()
	const userID = int64(100)

	fx.factory.AccountRepo.On("GetByDiscordIDForUpdate", mock.Anything, userID).Return(&entities.Account{DiscordID: userID, Balance: 10}, nil)
	fx.factory.AccountRepo.On("ApplyDelta", mock.Anything, userID, int64(25), int64(25), int64(0)).
		Return(&entities.Account{DiscordID: userID, Balance: 35}, nil)
	fx.factory.LedgerRepo.On("Append", mock.Anything, mock.AnythingOfType("*entities.LedgerEntry")).Return(nil)

	entry, err := fx.engine.AdjustBalance(context.Background(), userID, 25, entities.TransactionReasonAward, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), entry.BalanceBefore)
	assert.Equal(t, int64(35), entry.BalanceAfter)

	created := fx.factory.Created()
	require.Len(t, created, 1)
	assert.True(t, created[0].committed)
}
