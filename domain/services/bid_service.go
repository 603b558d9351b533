package services

import (
	"context"
	"fmt"
	"time"

	"dkpauction/config"
	"dkpauction/domain/entities"
	"dkpauction/domain/events"
	"dkpauction/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type bidService struct {
	auctionRepo    interfaces.AuctionRepository
	bidRepo        interfaces.BidRepository
	ledger         interfaces.LedgerService
	eventPublisher interfaces.EventPublisher
	snipePolicy    SnipePolicy
}

// NewBidService creates a new bid service
func NewBidService(
	auctionRepo interfaces.AuctionRepository,
	bidRepo interfaces.BidRepository,
	ledger interfaces.LedgerService,
	eventPublisher interfaces.EventPublisher,
) interfaces.BidService {
	return &bidService{
		auctionRepo:    auctionRepo,
		bidRepo:        bidRepo,
		ledger:         ledger,
		eventPublisher: eventPublisher,
		snipePolicy:    NewSnipePolicy(config.Get()),
	}
}

// PlaceBid validates and stores a bid. Checks run in a fixed order so the
// rejection reason is deterministic: auction state, amount, leading bid, funds.
// Must run inside a serializable unit of work.
func (s *bidService) PlaceBid(ctx context.Context, auctionID, userID, amount int64, now time.Time) (*entities.BidPlacement, error) {
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
	if !auction.IsOpenAt(now) {
		return nil, fmt.Errorf("%w: auction %d ended at %s", entities.ErrAuctionNotActive, auctionID, auction.EndsAt.Format(time.RFC3339))
	}

	if amount <= 0 {
		return nil, fmt.Errorf("%w: got %d", entities.ErrInvalidAmount, amount)
	}

	leader, err := s.bidRepo.GetHighest(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}
	if leader != nil && amount <= leader.Amount {
		return nil, fmt.Errorf("%w: current highest bid is %d", entities.ErrBidTooLow, leader.Amount)
	}
	if leader == nil && amount < auction.MinBid {
		return nil, fmt.Errorf("%w: minimum bid is %d", entities.ErrBidTooLow, auction.MinBid)
	}

	available, err := s.ledger.Available(ctx, userID, auctionID)
	if err != nil {
		return nil, err
	}
	if available < amount {
		return nil, fmt.Errorf("%w: available %d, bid %d", entities.ErrInsufficientFunds, available, amount)
	}

	bid := &entities.Bid{
		AuctionID: auctionID,
		DiscordID: userID,
		Amount:    amount,
		CreatedAt: now,
	}
	if _, err := s.bidRepo.Replace(ctx, bid); err != nil {
		return nil, fmt.Errorf("failed to store bid: %w", err)
	}

	placement := &entities.BidPlacement{
		Bid:            bid,
		PreviousLeader: leader,
		EndsAt:         auction.EndsAt,
	}
	if leader != nil && leader.DiscordID != userID {
		outbid := leader.DiscordID
		placement.OutbidUserID = &outbid
	}

	if newEndsAt, extended := s.snipePolicy.Evaluate(auction.EndsAt, auction.OriginalEndsAt, now); extended {
		if err := s.auctionRepo.UpdateEndsAt(ctx, auctionID, newEndsAt); err != nil {
			return nil, fmt.Errorf("failed to extend auction: %w", err)
		}
		placement.TimeExtended = true
		placement.NewEndsAt = &newEndsAt
		placement.EndsAt = newEndsAt

		log.WithFields(log.Fields{
			"auctionID":      auctionID,
			"userID":         userID,
			"newEndsAt":      newEndsAt,
			"totalExtension": newEndsAt.Sub(auction.OriginalEndsAt),
		}).Info("Anti-snipe extension applied")
	}

	if err := s.eventPublisher.Publish(events.BidPlacedEvent{
		AuctionID:     auctionID,
		UserID:        userID,
		Amount:        amount,
		OutbidUserID:  placement.OutbidUserID,
		TieWithUserID: placement.TieWithUserID,
		TimeExtended:  placement.TimeExtended,
		NewEndsAt:     placement.NewEndsAt,
	}); err != nil {
		log.WithError(err).Error("Failed to publish bid placed event")
	}

	log.WithFields(log.Fields{
		"auctionID": auctionID,
		"userID":    userID,
		"amount":    amount,
		"available": available,
	}).Debug("Bid accepted")

	return placement, nil
}
