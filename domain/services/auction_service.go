package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dkpauction/config"
	"dkpauction/domain/entities"
	"dkpauction/domain/events"
	"dkpauction/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const maxItemNameLength = 255

type auctionService struct {
	config         *config.Config
	auctionRepo    interfaces.AuctionRepository
	bidRepo        interfaces.BidRepository
	ledger         interfaces.LedgerService
	eventPublisher interfaces.EventPublisher
}

// NewAuctionService creates a new auction service
func NewAuctionService(
	auctionRepo interfaces.AuctionRepository,
	bidRepo interfaces.BidRepository,
	ledger interfaces.LedgerService,
	eventPublisher interfaces.EventPublisher,
) interfaces.AuctionService {
	return &auctionService{
		config:         config.Get(),
		auctionRepo:    auctionRepo,
		bidRepo:        bidRepo,
		ledger:         ledger,
		eventPublisher: eventPublisher,
	}
}

// CreateAuction opens a new auction. Missing minimum bid and duration fall
// back to configured defaults.
func (s *auctionService) CreateAuction(ctx context.Context, params entities.CreateAuctionParams, now time.Time) (*entities.Auction, error) {
	itemName := strings.TrimSpace(params.ItemName)
	if itemName == "" {
		return nil, fmt.Errorf("%w: item name cannot be empty", entities.ErrInvalidAuction)
	}
	if len(itemName) > maxItemNameLength {
		return nil, fmt.Errorf("%w: item name exceeds %d characters", entities.ErrInvalidAuction, maxItemNameLength)
	}

	minBid := s.config.DefaultMinBid
	if params.MinBid != nil {
		minBid = *params.MinBid
	}
	if minBid < 0 {
		return nil, fmt.Errorf("%w: minimum bid cannot be negative", entities.ErrInvalidAuction)
	}

	duration := s.config.DefaultAuctionDuration
	if params.Duration != nil {
		duration = *params.Duration
	}
	if duration < time.Second {
		return nil, fmt.Errorf("%w: duration must be at least one second", entities.ErrInvalidAuction)
	}
	duration = duration.Truncate(time.Second)

	endsAt := now.Add(duration)
	auction := &entities.Auction{
		ItemName:        itemName,
		ItemMetadata:    params.ItemMetadata,
		MinBid:          minBid,
		DurationSeconds: int64(duration / time.Second),
		CreatedBy:       params.CreatedBy,
		CreatedAt:       now,
		OriginalEndsAt:  endsAt,
		EndsAt:          endsAt,
		Status:          entities.AuctionStatusActive,
	}
	if auction.ItemMetadata == nil {
		auction.ItemMetadata = map[string]any{}
	}

	if err := s.auctionRepo.Create(ctx, auction); err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}

	if err := s.eventPublisher.Publish(events.AuctionStartedEvent{
		AuctionID:       auction.ID,
		Item:            auction.ItemName,
		ItemMetadata:    auction.ItemMetadata,
		MinBid:          auction.MinBid,
		DurationSeconds: auction.DurationSeconds,
		EndsAt:          auction.EndsAt,
		CreatedBy:       auction.CreatedBy,
	}); err != nil {
		log.WithError(err).Error("Failed to publish auction started event")
	}

	log.WithFields(log.Fields{
		"auctionID": auction.ID,
		"item":      auction.ItemName,
		"minBid":    auction.MinBid,
		"endsAt":    auction.EndsAt,
	}).Info("Auction started")

	return auction, nil
}

// GetAuction returns an auction with bids and rolls
func (s *auctionService) GetAuction(ctx context.Context, id int64) (*entities.AuctionDetail, error) {
	auction, err := s.auctionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	if auction == nil {
		return nil, fmt.Errorf("%w: %d", entities.ErrAuctionNotFound, id)
	}

	bids, err := s.bidRepo.GetByAuction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}

	var rolls []*entities.TieRoll
	if auction.WasTie {
		rolls, err = s.auctionRepo.GetRolls(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get tie rolls: %w", err)
		}
	}

	return &entities.AuctionDetail{Auction: auction, Bids: bids, Rolls: rolls}, nil
}

// ListActive returns open auctions. When requestingUserID has an account,
// each view carries what that user could still bid on the auction.
func (s *auctionService) ListActive(ctx context.Context, requestingUserID *int64) ([]*entities.ActiveAuctionView, error) {
	auctions, err := s.auctionRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active auctions: %w", err)
	}

	hasAccount := false
	if requestingUserID != nil {
		_, err := s.ledger.GetAccount(ctx, *requestingUserID)
		switch {
		case err == nil:
			hasAccount = true
		case !errors.Is(err, entities.ErrAccountNotFound):
			return nil, err
		}
	}

	views := make([]*entities.ActiveAuctionView, 0, len(auctions))
	for _, auction := range auctions {
		bids, err := s.bidRepo.GetByAuction(ctx, auction.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get bids for auction %d: %w", auction.ID, err)
		}

		view := &entities.ActiveAuctionView{Auction: auction, Bids: bids}
		if hasAccount {
			available, err := s.ledger.Available(ctx, *requestingUserID, auction.ID)
			if err != nil {
				return nil, err
			}
			view.AvailableForUser = &available
		}
		views = append(views, view)
	}

	return views, nil
}

// ListOverdue returns active auctions past their close time
func (s *auctionService) ListOverdue(ctx context.Context, now time.Time) ([]*entities.Auction, error) {
	auctions, err := s.auctionRepo.GetOverdue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get overdue auctions: %w", err)
	}
	return auctions, nil
}
