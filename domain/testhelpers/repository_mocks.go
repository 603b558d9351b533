package testhelpers

import (
	"context"
	"time"

	"dkpauction/domain/entities"
	"dkpauction/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByDiscordID(ctx context.Context, discordID int64) (*entities.Account, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByDiscordIDForUpdate(ctx context.Context, discordID int64) (*entities.Account, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetBalances(ctx context.Context, discordIDs []int64) (map[int64]int64, error) {
	args := m.Called(ctx, discordIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]int64), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, discordID int64, username string) (*entities.Account, error) {
	args := m.Called(ctx, discordID, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) ApplyDelta(ctx context.Context, discordID int64, delta, gained, spent int64) (*entities.Account, error) {
	args := m.Called(ctx, discordID, delta, gained, spent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetAll(ctx context.Context) ([]*entities.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Account), args.Error(1)
}

// MockLedgerEntryRepository is a mock implementation of LedgerEntryRepository
type MockLedgerEntryRepository struct {
	mock.Mock
}

func (m *MockLedgerEntryRepository) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerEntryRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerEntryRepository) GetByAuction(ctx context.Context, auctionID int64) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

// MockAuctionRepository is a mock implementation of AuctionRepository
type MockAuctionRepository struct {
	mock.Mock
}

func (m *MockAuctionRepository) Create(ctx context.Context, auction *entities.Auction) error {
	args := m.Called(ctx, auction)
	return args.Error(0)
}

func (m *MockAuctionRepository) GetByID(ctx context.Context, id int64) (*entities.Auction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Auction), args.Error(1)
}

func (m *MockAuctionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Auction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Auction), args.Error(1)
}

func (m *MockAuctionRepository) GetActive(ctx context.Context) ([]*entities.Auction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Auction), args.Error(1)
}

func (m *MockAuctionRepository) GetOverdue(ctx context.Context, now time.Time) ([]*entities.Auction, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Auction), args.Error(1)
}

func (m *MockAuctionRepository) UpdateEndsAt(ctx context.Context, id int64, endsAt time.Time) error {
	args := m.Called(ctx, id, endsAt)
	return args.Error(0)
}

func (m *MockAuctionRepository) MarkSettled(ctx context.Context, result *entities.SettlementResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockAuctionRepository) SaveRolls(ctx context.Context, rolls []*entities.TieRoll) error {
	args := m.Called(ctx, rolls)
	return args.Error(0)
}

func (m *MockAuctionRepository) GetRolls(ctx context.Context, auctionID int64) ([]*entities.TieRoll, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TieRoll), args.Error(1)
}

// MockBidRepository is a mock implementation of BidRepository
type MockBidRepository struct {
	mock.Mock
}

func (m *MockBidRepository) GetHighest(ctx context.Context, auctionID int64) (*entities.Bid, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bid), args.Error(1)
}

func (m *MockBidRepository) GetByAuction(ctx context.Context, auctionID int64) ([]*entities.Bid, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Bid), args.Error(1)
}

func (m *MockBidRepository) Replace(ctx context.Context, bid *entities.Bid) (*entities.Bid, error) {
	args := m.Called(ctx, bid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bid), args.Error(1)
}

func (m *MockBidRepository) GetCommittedAmount(ctx context.Context, discordID, excludeAuctionID int64) (int64, error) {
	args := m.Called(ctx, discordID, excludeAuctionID)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
