package httpapi

import (
	"context"

	"dkpauction/domain/entities"

	"github.com/stretchr/testify/mock"
)

type MockAuctionEngine struct {
	mock.Mock
}

func (m *MockAuctionEngine) CreateAuction(ctx context.Context, params entities.CreateAuctionParams) (*entities.Auction, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Auction), args.Error(1)
}

func (m *MockAuctionEngine) ListActive(ctx context.Context, requestingUserID *int64) ([]*entities.ActiveAuctionView, error) {
	args := m.Called(ctx, requestingUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ActiveAuctionView), args.Error(1)
}

func (m *MockAuctionEngine) GetAuction(ctx context.Context, auctionID int64) (*entities.AuctionDetail, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AuctionDetail), args.Error(1)
}

func (m *MockAuctionEngine) PlaceBid(ctx context.Context, auctionID, userID, amount int64) (*entities.BidPlacement, error) {
	args := m.Called(ctx, auctionID, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.BidPlacement), args.Error(1)
}

func (m *MockAuctionEngine) CloseAuction(ctx context.Context, auctionID int64) (*entities.SettlementResult, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SettlementResult), args.Error(1)
}

func (m *MockAuctionEngine) EnsureAccount(ctx context.Context, userID int64, username string) (*entities.Account, error) {
	args := m.Called(ctx, userID, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAuctionEngine) GetAccount(ctx context.Context, userID int64) (*entities.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAuctionEngine) Available(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAuctionEngine) History(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

func (m *MockAuctionEngine) AdjustBalance(ctx context.Context, userID, delta int64, reason entities.TransactionReason, metadata map[string]any) (*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID, delta, reason, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerEntry), args.Error(1)
}
