package services

import (
	"context"
	"fmt"

	"dkpauction/config"
	"dkpauction/domain/entities"
	"dkpauction/domain/interfaces"
	"dkpauction/domain/utils"

	log "github.com/sirupsen/logrus"
)

type ledgerService struct {
	config         *config.Config
	accountRepo    interfaces.AccountRepository
	bidRepo        interfaces.BidRepository
	ledgerRepo     interfaces.LedgerEntryRepository
	eventPublisher interfaces.EventPublisher
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	accountRepo interfaces.AccountRepository,
	bidRepo interfaces.BidRepository,
	ledgerRepo interfaces.LedgerEntryRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.LedgerService {
	return &ledgerService{
		config:         config.Get(),
		accountRepo:    accountRepo,
		bidRepo:        bidRepo,
		ledgerRepo:     ledgerRepo,
		eventPublisher: eventPublisher,
	}
}

// GetAccount returns the account or ErrAccountNotFound
func (s *ledgerService) GetAccount(ctx context.Context, userID int64) (*entities.Account, error) {
	account, err := s.accountRepo.GetByDiscordID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: user %d", entities.ErrAccountNotFound, userID)
	}
	return account, nil
}

// Balance returns the settled balance
func (s *ledgerService) Balance(ctx context.Context, userID int64) (int64, error) {
	account, err := s.GetAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Committed returns DKP the user currently leads with on other active auctions.
// A bid that has been outbid commits nothing.
func (s *ledgerService) Committed(ctx context.Context, userID, excludeAuctionID int64) (int64, error) {
	committed, err := s.bidRepo.GetCommittedAmount(ctx, userID, excludeAuctionID)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate committed DKP: %w", err)
	}
	return committed, nil
}

// Available returns balance minus committed
func (s *ledgerService) Available(ctx context.Context, userID, excludeAuctionID int64) (int64, error) {
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	committed, err := s.Committed(ctx, userID, excludeAuctionID)
	if err != nil {
		return 0, err
	}
	return balance - committed, nil
}

// Debit charges an auction winner. The update is guarded so the balance can
// never go negative even if it changed since the bids were validated.
func (s *ledgerService) Debit(ctx context.Context, userID, amount, auctionID int64) (*entities.LedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: debit of %d", entities.ErrInvalidAmount, amount)
	}

	account, err := s.accountRepo.ApplyDelta(ctx, userID, -amount, 0, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit user %d: %w", userID, err)
	}

	entry := &entities.LedgerEntry{
		DiscordID:     userID,
		AmountDelta:   -amount,
		BalanceBefore: account.Balance + amount,
		BalanceAfter:  account.Balance,
		Reason:        entities.TransactionReasonAuctionWin,
		AuctionID:     &auctionID,
		Metadata:      map[string]any{"auction_id": auctionID},
	}
	if err := utils.RecordLedgerChange(ctx, s.ledgerRepo, s.eventPublisher, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// Adjust applies an award or correction. Positive deltas are clamped to the
// configured balance cap; the recorded delta is the effective one.
func (s *ledgerService) Adjust(ctx context.Context, userID, delta int64, reason entities.TransactionReason, metadata map[string]any) (*entities.LedgerEntry, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: adjustment cannot be zero", entities.ErrInvalidAmount)
	}
	if !reason.IsValid() || reason == entities.TransactionReasonAuctionWin {
		return nil, fmt.Errorf("%w: unsupported adjustment reason %q", entities.ErrInvalidAmount, reason)
	}

	account, err := s.accountRepo.GetByDiscordIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: user %d", entities.ErrAccountNotFound, userID)
	}

	newBalance := account.ApplyCap(delta, s.config.BalanceCap)
	if newBalance < 0 {
		return nil, fmt.Errorf("%w: balance %d cannot absorb %d", entities.ErrInsufficientFunds, account.Balance, delta)
	}
	effective := newBalance - account.Balance
	if effective == 0 {
		return nil, fmt.Errorf("%w: balance already at cap %d", entities.ErrInvalidAmount, s.config.BalanceCap)
	}

	var gained int64
	if effective > 0 {
		gained = effective
	}
	updated, err := s.accountRepo.ApplyDelta(ctx, userID, effective, gained, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	if effective != delta {
		metadata["requested_delta"] = delta
	}

	entry := &entities.LedgerEntry{
		DiscordID:     userID,
		AmountDelta:   effective,
		BalanceBefore: updated.Balance - effective,
		BalanceAfter:  updated.Balance,
		Reason:        reason,
		Metadata:      metadata,
	}
	if err := utils.RecordLedgerChange(ctx, s.ledgerRepo, s.eventPublisher, entry); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"userID":     userID,
		"delta":      effective,
		"reason":     reason,
		"newBalance": utils.FormatDKP(updated.Balance),
	}).Info("DKP balance adjusted")

	return entry, nil
}

// EnsureAccount returns the user's account, creating an empty one if needed
func (s *ledgerService) EnsureAccount(ctx context.Context, userID int64, username string) (*entities.Account, error) {
	account, err := s.accountRepo.GetByDiscordID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account != nil {
		return account, nil
	}

	account, err = s.accountRepo.Create(ctx, userID, username)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":   userID,
		"username": username,
	}).Info("Created DKP account")

	return account, nil
}

// History returns the user's ledger entries newest first
func (s *ledgerService) History(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error) {
	if limit <= 0 {
		limit = utils.DefaultHistoryLimit
	}
	if _, err := s.GetAccount(ctx, userID); err != nil {
		return nil, err
	}
	entries, err := s.ledgerRepo.GetByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	return entries, nil
}
