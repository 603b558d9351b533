package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"dkpauction/config"
	"dkpauction/domain/entities"
	"dkpauction/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_Available(t *testing.T) {
	tests := []struct {
		name          string
		setupMocks    func(*MockHelper)
		expected      int64
		expectedError error
	}{
		{
			name: "balance minus committed",
			setupMocks: func(h *MockHelper) {
				h.ExpectAccount(TestUser1ID, 100)
				h.ExpectCommitted(TestUser1ID, TestAuctionID, 10)
			},
			expected: 90,
		},
		{
			name: "over-committed user goes negative",
			setupMocks: func(h *MockHelper) {
				h.ExpectAccount(TestUser1ID, 50)
				h.ExpectCommitted(TestUser1ID, TestAuctionID, 80)
			},
			expected: -30,
		},
		{
			name: "missing account",
			setupMocks: func(h *MockHelper) {
				h.mocks.AccountRepo.On("GetByDiscordID", mock.Anything, TestUser1ID).Return(nil, nil)
			},
			expectedError: entities.ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := NewTestMocks()
			tt.setupMocks(NewMockHelper(mocks))

			available, err := mocks.Ledger().Available(context.Background(), TestUser1ID, TestAuctionID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, available)
			}
			mocks.AssertAllExpectations(t)
		})
	}
}

func TestLedgerService_Committed_WrapsRepositoryError(t *testing.T) {
	mocks := NewTestMocks()
	mocks.BidRepo.On("GetCommittedAmount", mock.Anything, TestUser1ID, int64(0)).Return(int64(0), errors.New("timeout"))

	_, err := mocks.Ledger().Committed(context.Background(), TestUser1ID, 0)
	assert.ErrorContains(t, err, "failed to calculate committed DKP")
}

func TestLedgerService_Debit(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	helper := NewMockHelper(mocks)
	helper.ExpectDebit(TestUser1ID, 40, 100)
	mocks.CapturePublished()

	entry, err := mocks.Ledger().Debit(ctx, TestUser1ID, 40, TestAuctionID)
	require.NoError(t, err)

	assert.Equal(t, int64(-40), entry.AmountDelta)
	assert.Equal(t, int64(100), entry.BalanceBefore)
	assert.Equal(t, int64(60), entry.BalanceAfter)
	require.NotNil(t, entry.AuctionID)
	assert.Equal(t, TestAuctionID, *entry.AuctionID)

	changes := mocks.PublishedOfType(events.EventTypeBalanceChange)
	require.Len(t, changes, 1)
	assert.Equal(t, int64(60), changes[0].(events.BalanceChangeEvent).NewBalance)
	mocks.AssertAllExpectations(t)
}

func TestLedgerService_Debit_InsufficientFunds(t *testing.T) {
	mocks := NewTestMocks()
	mocks.AccountRepo.On("ApplyDelta", mock.Anything, TestUser1ID, int64(-40), int64(0), int64(40)).
		Return(nil, fmt.Errorf("%w: balance would go negative", entities.ErrInsufficientFunds))

	_, err := mocks.Ledger().Debit(context.Background(), TestUser1ID, 40, TestAuctionID)

	assert.ErrorIs(t, err, entities.ErrInsufficientFunds)
	mocks.LedgerRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestLedgerService_Debit_RejectsNonPositive(t *testing.T) {
	mocks := NewTestMocks()
	_, err := mocks.Ledger().Debit(context.Background(), TestUser1ID, 0, TestAuctionID)
	assert.ErrorIs(t, err, entities.ErrInvalidAmount)
}

func TestLedgerService_Adjust(t *testing.T) {
	tests := []struct {
		name          string
		balanceCap    int64
		balance       int64
		delta         int64
		expectedDelta int64
		expectedError error
	}{
		{name: "award uncapped", balance: 100, delta: 250, expectedDelta: 250},
		{name: "award clamped to cap", balanceCap: 500, balance: 450, delta: 100, expectedDelta: 50},
		{name: "deduction", balance: 100, delta: -30, expectedDelta: -30},
		{name: "deduction below zero", balance: 20, delta: -30, expectedError: entities.ErrInsufficientFunds},
		{name: "already at cap", balanceCap: 500, balance: 500, delta: 10, expectedError: entities.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withTestConfig(t, func(c *config.Config) { c.BalanceCap = tt.balanceCap })

			mocks := NewTestMocks()
			mocks.AccountRepo.On("GetByDiscordIDForUpdate", mock.Anything, TestUser1ID).
				Return(&entities.Account{DiscordID: TestUser1ID, Balance: tt.balance}, nil)
			if tt.expectedError == nil {
				var gained int64
				if tt.expectedDelta > 0 {
					gained = tt.expectedDelta
				}
				mocks.AccountRepo.On("ApplyDelta", mock.Anything, TestUser1ID, tt.expectedDelta, gained, int64(0)).
					Return(&entities.Account{DiscordID: TestUser1ID, Balance: tt.balance + tt.expectedDelta}, nil)
				mocks.LedgerRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
				mocks.CapturePublished()
			}

			entry, err := mocks.Ledger().Adjust(context.Background(), TestUser1ID, tt.delta, entities.TransactionReasonAward, nil)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				mocks.AccountRepo.AssertNotCalled(t, "ApplyDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedDelta, entry.AmountDelta)
			assert.Equal(t, tt.balance+tt.expectedDelta, entry.BalanceAfter)
			if tt.expectedDelta != tt.delta {
				assert.Equal(t, tt.delta, entry.Metadata["requested_delta"])
			}
			mocks.AssertAllExpectations(t)
		})
	}
}

func TestLedgerService_Adjust_Validation(t *testing.T) {
	mocks := NewTestMocks()
	ledger := mocks.Ledger()
	ctx := context.Background()

	_, err := ledger.Adjust(ctx, TestUser1ID, 0, entities.TransactionReasonAward, nil)
	assert.ErrorIs(t, err, entities.ErrInvalidAmount)

	_, err = ledger.Adjust(ctx, TestUser1ID, 10, entities.TransactionReasonAuctionWin, nil)
	assert.ErrorIs(t, err, entities.ErrInvalidAmount)

	mocks.AccountRepo.On("GetByDiscordIDForUpdate", mock.Anything, TestUser2ID).Return(nil, nil)
	_, err = ledger.Adjust(ctx, TestUser2ID, 10, entities.TransactionReasonAward, nil)
	assert.ErrorIs(t, err, entities.ErrAccountNotFound)
}

func TestLedgerService_EnsureAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("existing account returned", func(t *testing.T) {
		mocks := NewTestMocks()
		existing := &entities.Account{DiscordID: TestUser1ID, Username: "tank", Balance: 70}
		mocks.AccountRepo.On("GetByDiscordID", mock.Anything, TestUser1ID).Return(existing, nil)

		account, err := mocks.Ledger().EnsureAccount(ctx, TestUser1ID, "tank")
		require.NoError(t, err)
		assert.Same(t, existing, account)
		mocks.AccountRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing account created", func(t *testing.T) {
		mocks := NewTestMocks()
		mocks.AccountRepo.On("GetByDiscordID", mock.Anything, TestUser1ID).Return(nil, nil)
		mocks.AccountRepo.On("Create", mock.Anything, TestUser1ID, "healer").
			Return(&entities.Account{DiscordID: TestUser1ID, Username: "healer"}, nil)

		account, err := mocks.Ledger().EnsureAccount(ctx, TestUser1ID, "healer")
		require.NoError(t, err)
		assert.Equal(t, int64(0), account.Balance)
		mocks.AssertAllExpectations(t)
	})
}

func TestLedgerService_History_DefaultLimit(t *testing.T) {
	mocks := NewTestMocks()
	NewMockHelper(mocks).ExpectAccount(TestUser1ID, 10)
	mocks.LedgerRepo.On("GetByUser", mock.Anything, TestUser1ID, 50).Return([]*entities.LedgerEntry{}, nil)

	entries, err := mocks.Ledger().History(context.Background(), TestUser1ID, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	mocks.AssertAllExpectations(t)
}
