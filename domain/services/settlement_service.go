package services

import (
	"context"
	"fmt"
	"time"

	"dkpauction/domain/entities"
	"dkpauction/domain/events"
	"dkpauction/domain/interfaces"
	"dkpauction/domain/utils"

	log "github.com/sirupsen/logrus"
)

type settlementService struct {
	auctionRepo    interfaces.AuctionRepository
	bidRepo        interfaces.BidRepository
	accountRepo    interfaces.AccountRepository
	ledger         interfaces.LedgerService
	eventPublisher interfaces.EventPublisher
	randSource     RandSource
}

// NewSettlementService creates a new settlement service. A nil randSource
// uses crypto/rand.
func NewSettlementService(
	auctionRepo interfaces.AuctionRepository,
	bidRepo interfaces.BidRepository,
	accountRepo interfaces.AccountRepository,
	ledger interfaces.LedgerService,
	eventPublisher interfaces.EventPublisher,
	randSource RandSource,
) interfaces.SettlementService {
	if randSource == nil {
		randSource = NewCryptoRandSource()
	}
	return &settlementService{
		auctionRepo:    auctionRepo,
		bidRepo:        bidRepo,
		accountRepo:    accountRepo,
		ledger:         ledger,
		eventPublisher: eventPublisher,
		randSource:     randSource,
	}
}

// Close settles an auction. It returns ErrAuctionNotActive without side
// effects when the auction was already settled, which makes repeated closes
// safe. Any other error leaves the auction active for a later retry.
func (s *settlementService) Close(ctx context.Context, auctionID int64, now time.Time) (*entities.SettlementResult, error) {
	auction, err := s.auctionRepo.GetByIDForUpdate(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	if auction == nil {
		return nil, fmt.Errorf("%w: %d", entities.ErrAuctionNotFound, auctionID)
	}
	if !auction.IsActive() {
		return nil, fmt.Errorf("%w: auction %d is %s", entities.ErrAuctionNotActive, auctionID, auction.Status)
	}

	bids, err := s.bidRepo.GetByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}

	result := &entities.SettlementResult{
		AuctionID: auctionID,
		ClosedAt:  now,
	}

	valid, rejected, err := s.fundedBids(ctx, bids)
	if err != nil {
		return nil, err
	}
	result.RejectedBidders = rejected

	if len(valid) == 0 {
		result.Status = entities.AuctionStatusCancelled
		if err := s.auctionRepo.MarkSettled(ctx, result); err != nil {
			return nil, fmt.Errorf("failed to cancel auction: %w", err)
		}
		s.publishEnded(result)

		log.WithFields(log.Fields{
			"auctionID":     auctionID,
			"bidCount":      len(bids),
			"rejectedCount": len(rejected),
		}).Info("Auction cancelled with no valid bids")
		return result, nil
	}

	top := valid[0].Amount
	var tied []int64
	for _, b := range valid {
		if b.Amount == top {
			tied = append(tied, b.DiscordID)
		}
	}

	winnerID := tied[0]
	if len(tied) > 1 {
		rolls, winner, rounds, err := RollOff(auctionID, tied, s.randSource)
		if err != nil {
			return nil, err
		}
		for _, r := range rolls {
			r.CreatedAt = now
		}
		if err := s.auctionRepo.SaveRolls(ctx, rolls); err != nil {
			return nil, fmt.Errorf("failed to save tie rolls: %w", err)
		}

		winnerID = winner.DiscordID
		winningRoll := winner.Roll
		result.WasTie = true
		result.WinningRoll = &winningRoll
		result.Rolls = rolls
		result.Rounds = rounds
	}

	entry, err := s.ledger.Debit(ctx, winnerID, top, auctionID)
	if err != nil {
		return nil, err
	}

	result.Status = entities.AuctionStatusCompleted
	result.WinnerID = &winnerID
	result.WinningBid = &top
	result.LedgerEntry = entry

	if err := s.auctionRepo.MarkSettled(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to complete auction: %w", err)
	}
	s.publishEnded(result)

	log.WithFields(log.Fields{
		"auctionID":  auctionID,
		"item":       auction.ItemName,
		"winnerID":   winnerID,
		"winningBid": utils.FormatDKP(top),
		"wasTie":     result.WasTie,
		"tieRounds":  result.Rounds,
	}).Info("Auction settled")

	return result, nil
}

// fundedBids drops bids whose bidder can no longer cover them. Bids arrive
// sorted by amount descending and keep that order.
func (s *settlementService) fundedBids(ctx context.Context, bids []*entities.Bid) ([]*entities.Bid, []int64, error) {
	if len(bids) == 0 {
		return nil, nil, nil
	}

	userIDs := make([]int64, 0, len(bids))
	for _, b := range bids {
		userIDs = append(userIDs, b.DiscordID)
	}
	balances, err := s.accountRepo.GetBalances(ctx, userIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get bidder balances: %w", err)
	}

	var valid []*entities.Bid
	var rejected []int64
	for _, b := range bids {
		if balance, ok := balances[b.DiscordID]; ok && balance >= b.Amount {
			valid = append(valid, b)
		} else {
			rejected = append(rejected, b.DiscordID)
		}
	}
	return valid, rejected, nil
}

func (s *settlementService) publishEnded(result *entities.SettlementResult) {
	if err := s.eventPublisher.Publish(events.NewAuctionEndedEvent(result)); err != nil {
		log.WithError(err).WithField("auctionID", result.AuctionID).Error("Failed to publish auction ended event")
	}
}
