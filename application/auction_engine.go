package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dkpauction/config"
	"dkpauction/database"
	"dkpauction/domain/entities"
	"dkpauction/domain/interfaces"
	"dkpauction/domain/services"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// Bid result label for accepted bids
const bidResultAccepted = "OK"

// AuctionEngine runs every auction and ledger operation in its own unit of
// work and performs the post-commit side effects: deadline timers and metrics.
type AuctionEngine struct {
	config     *config.Config
	uowFactory UnitOfWorkFactory
	scheduler  *SnipeScheduler
	metrics    Metrics
	randSource services.RandSource
	now        func() time.Time
}

// NewAuctionEngine creates an engine and installs itself as the scheduler's
// expiry handler. metrics and randSource may be nil.
func NewAuctionEngine(
	uowFactory UnitOfWorkFactory,
	scheduler *SnipeScheduler,
	metrics Metrics,
	randSource services.RandSource,
) *AuctionEngine {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	e := &AuctionEngine{
		config:     config.Get(),
		uowFactory: uowFactory,
		scheduler:  scheduler,
		metrics:    metrics,
		randSource: randSource,
		now:        time.Now,
	}
	scheduler.SetExpiryHandler(e.handleExpiry)
	return e
}

// serviceSet is the domain services bound to one unit of work
type serviceSet struct {
	ledger     interfaces.LedgerService
	auctions   interfaces.AuctionService
	bids       interfaces.BidService
	settlement interfaces.SettlementService
}

func (e *AuctionEngine) servicesFor(uow UnitOfWork) serviceSet {
	ledger := services.NewLedgerService(uow.AccountRepository(), uow.BidRepository(), uow.LedgerEntryRepository(), uow.EventBus())
	return serviceSet{
		ledger:   ledger,
		auctions: services.NewAuctionService(uow.AuctionRepository(), uow.BidRepository(), ledger, uow.EventBus()),
		bids:     services.NewBidService(uow.AuctionRepository(), uow.BidRepository(), ledger, uow.EventBus()),
		settlement: services.NewSettlementService(
			uow.AuctionRepository(), uow.BidRepository(), uow.AccountRepository(), ledger, uow.EventBus(), e.randSource,
		),
	}
}

// runInTx executes fn in a fresh unit of work and commits it. Serialization
// conflicts replay the whole transaction with backoff; anything else is final.
func (e *AuctionEngine) runInTx(ctx context.Context, op string, fn func(svc serviceSet, uow UnitOfWork) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		uow := e.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to begin transaction: %w", err))
		}

		if err := fn(e.servicesFor(uow), uow); err != nil {
			if rbErr := uow.Rollback(); rbErr != nil {
				log.WithError(rbErr).WithField("op", op).Error("Failed to rollback transaction")
			}
			if database.IsRetryableTxError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		if err := uow.Commit(); err != nil {
			if database.IsRetryableTxError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 250 * time.Millisecond
	policy.MaxElapsedTime = 0

	return backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, e.config.TxMaxRetries), ctx),
		func(err error, wait time.Duration) {
			log.WithFields(log.Fields{
				"op":      op,
				"attempt": attempt,
				"wait":    wait,
				"error":   err,
			}).Debug("Retrying transaction after serialization conflict")
		},
	)
}

// CreateAuction opens an auction and arms its deadline
func (e *AuctionEngine) CreateAuction(ctx context.Context, params entities.CreateAuctionParams) (*entities.Auction, error) {
	now := e.now().UTC()

	var auction *entities.Auction
	err := e.runInTx(ctx, "create_auction", func(svc serviceSet, _ UnitOfWork) error {
		var err error
		auction, err = svc.auctions.CreateAuction(ctx, params, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.metrics.UpdateActiveAuctions(1)
	if err := e.scheduler.Schedule(auction.ID, auction.EndsAt); err != nil {
		log.WithError(err).WithField("auctionID", auction.ID).Error("Failed to arm auction deadline")
	}

	return auction, nil
}

// PlaceBid validates and stores a bid. An anti-snipe extension re-arms the
// deadline after commit.
func (e *AuctionEngine) PlaceBid(ctx context.Context, auctionID, userID, amount int64) (*entities.BidPlacement, error) {
	now := e.now().UTC()

	var placement *entities.BidPlacement
	err := e.runInTx(ctx, "place_bid", func(svc serviceSet, _ UnitOfWork) error {
		var err error
		placement, err = svc.bids.PlaceBid(ctx, auctionID, userID, amount, now)
		return err
	})
	if err != nil {
		e.metrics.RecordBid(entities.ErrorCode(err))
		if !entities.IsDomainError(err) {
			log.WithError(err).WithFields(log.Fields{
				"auctionID": auctionID,
				"userID":    userID,
			}).Error("Failed to place bid")
		}
		return nil, err
	}
	e.metrics.RecordBid(bidResultAccepted)

	if placement.TimeExtended && placement.NewEndsAt != nil {
		e.metrics.RecordSnipeExtension()
		if err := e.scheduler.Schedule(auctionID, *placement.NewEndsAt); err != nil {
			log.WithError(err).WithField("auctionID", auctionID).Error("Failed to re-arm extended deadline")
		}
	}

	return placement, nil
}

// CloseAuction settles an auction now, regardless of its deadline. When
// settlement fails the deadline is re-armed from the stored ends_at.
func (e *AuctionEngine) CloseAuction(ctx context.Context, auctionID int64) (*entities.SettlementResult, error) {
	e.scheduler.Cancel(auctionID)

	result, err := e.settle(ctx, auctionID, false)
	if err != nil {
		if !errors.Is(err, entities.ErrAuctionNotActive) && !errors.Is(err, entities.ErrAuctionNotFound) {
			e.rearm(ctx, auctionID)
		}
		return nil, err
	}
	return result, nil
}

// settle closes the auction in one unit of work. With onlyIfDue the auction
// is left alone when its deadline moved past now, and the timer is re-armed.
func (e *AuctionEngine) settle(ctx context.Context, auctionID int64, onlyIfDue bool) (*entities.SettlementResult, error) {
	start := time.Now()
	now := e.now().UTC()

	var result *entities.SettlementResult
	var deferredUntil *time.Time
	err := e.runInTx(ctx, "settle_auction", func(svc serviceSet, uow UnitOfWork) error {
		result, deferredUntil = nil, nil

		if onlyIfDue {
			auction, err := uow.AuctionRepository().GetByIDForUpdate(ctx, auctionID)
			if err != nil {
				return err
			}
			if auction != nil && auction.IsOpenAt(now) {
				endsAt := auction.EndsAt
				deferredUntil = &endsAt
				return nil
			}
		}

		var err error
		result, err = svc.settlement.Close(ctx, auctionID, now)
		return err
	})

	switch {
	case err != nil && errors.Is(err, entities.ErrAuctionNotActive):
		e.metrics.RecordSettlement("noop", time.Since(start))
		return nil, err
	case err != nil:
		e.metrics.RecordSettlement("error", time.Since(start))
		return nil, err
	case deferredUntil != nil:
		if err := e.scheduler.Schedule(auctionID, *deferredUntil); err != nil {
			log.WithError(err).WithField("auctionID", auctionID).Error("Failed to re-arm extended deadline")
		}
		return nil, nil
	}

	e.metrics.RecordSettlement(string(result.Status), time.Since(start))
	e.metrics.UpdateActiveAuctions(-1)
	return result, nil
}

// handleExpiry is the timer-driven close
func (e *AuctionEngine) handleExpiry(auctionID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), e.config.SettlementTimeout)
	defer cancel()

	result, err := e.settle(ctx, auctionID, true)
	if err != nil {
		if errors.Is(err, entities.ErrAuctionNotActive) {
			log.WithField("auctionID", auctionID).Debug("Auction already settled when deadline fired")
			return
		}
		log.WithError(err).WithField("auctionID", auctionID).Error("Scheduled settlement failed, sweeper will retry")
		return
	}
	if result == nil {
		return
	}

	log.WithFields(log.Fields{
		"auctionID": auctionID,
		"status":    result.Status,
	}).Debug("Scheduled settlement completed")
}

func (e *AuctionEngine) rearm(ctx context.Context, auctionID int64) {
	detail, err := e.GetAuction(ctx, auctionID)
	if err != nil {
		log.WithError(err).WithField("auctionID", auctionID).Warn("Could not reload auction to re-arm deadline")
		return
	}
	if !detail.Auction.IsActive() {
		return
	}
	if err := e.scheduler.Schedule(auctionID, detail.Auction.EndsAt); err != nil {
		log.WithError(err).WithField("auctionID", auctionID).Error("Failed to re-arm auction deadline")
	}
}

// GetAuction returns an auction with its bids and tie rolls
func (e *AuctionEngine) GetAuction(ctx context.Context, auctionID int64) (*entities.AuctionDetail, error) {
	var detail *entities.AuctionDetail
	err := e.runInTx(ctx, "get_auction", func(svc serviceSet, _ UnitOfWork) error {
		var err error
		detail, err = svc.auctions.GetAuction(ctx, auctionID)
		return err
	})
	return detail, err
}

// ListActive returns open auctions with the requester's available DKP
func (e *AuctionEngine) ListActive(ctx context.Context, requestingUserID *int64) ([]*entities.ActiveAuctionView, error) {
	var views []*entities.ActiveAuctionView
	err := e.runInTx(ctx, "list_active", func(svc serviceSet, _ UnitOfWork) error {
		var err error
		views, err = svc.auctions.ListActive(ctx, requestingUserID)
		return err
	})
	return views, err
}

// GetAccount returns the account or ErrAccountNotFound
func (e *AuctionEngine) GetAccount(ctx context.Context, userID int64) (*entities.Account, error) {
	var account *entities.Account
	err := e.runInTx(ctx, "get_account", func(svc serviceSet, _ UnitOfWork) error {
		var err error
		account, err = svc.ledger.GetAccount(ctx, userID)
		return err
	})
	return account, err
}

// Balance returns the settled balance
func (e *AuctionEngine) Balance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := e.runInTx(ctx, "balance", func(svc serviceSet, _ UnitOfWork) error {
		var err error
		balance, err = svc.ledger.Balance(ctx, userID)
		return err
	})
	return balance, err
}

// Available returns balance minus DKP committed on every active auction
func (e *AuctionEngine) Available(ctx context.Context, userID int64) (int64, error) {
	var available int64
	err := e.runInTx(ctx, "available", func(svc serviceSet, _ UnitOfWork) error {
		var err error
		available, err = svc.ledger.Available(ctx, userID, 0)
		return err
	})
	return available, err
}

// AdjustBalance applies an award or correction
func (e *AuctionEngine) AdjustBalance(ctx context.Context, userID, delta int64, reason entities.TransactionReason, metadata map[string]any) (*entities.LedgerEntry, error) {
	var entry *entities.LedgerEntry
	err := e.runInTx(ctx, "adjust_balance", func(svc serviceSet, _ UnitOfWork) error {
		var err error
		entry, err = svc.ledger.Adjust(ctx, userID, delta, reason, metadata)
		return err
	})
	return entry, err
}

// EnsureAccount returns the user's account, creating an empty one if needed
func (e *AuctionEngine) EnsureAccount(ctx context.Context, userID int64, username string) (*entities.Account, error) {
	var account *entities.Account
	err := e.runInTx(ctx, "ensure_account", func(svc serviceSet, _ UnitOfWork) error {
		var err error
		account, err = svc.ledger.EnsureAccount(ctx, userID, username)
		return err
	})
	return account, err
}

// History returns the user's ledger entries newest first
func (e *AuctionEngine) History(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error) {
	var entries []*entities.LedgerEntry
	err := e.runInTx(ctx, "history", func(svc serviceSet, _ UnitOfWork) error {
		var err error
		entries, err = svc.ledger.History(ctx, userID, limit)
		return err
	})
	return entries, err
}

// Rehydrate arms a deadline for every active auction. Past-due auctions
// settle right away.
func (e *AuctionEngine) Rehydrate(ctx context.Context) (int, error) {
	var active []*entities.ActiveAuctionView
	err := e.runInTx(ctx, "rehydrate", func(svc serviceSet, _ UnitOfWork) error {
		var err error
		active, err = svc.auctions.ListActive(ctx, nil)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load active auctions: %w", err)
	}

	armed := 0
	for _, view := range active {
		if err := e.scheduler.Schedule(view.Auction.ID, view.Auction.EndsAt); err != nil {
			log.WithError(err).WithField("auctionID", view.Auction.ID).Error("Failed to arm auction deadline")
			continue
		}
		armed++
	}
	e.metrics.UpdateActiveAuctions(int64(len(active)))

	log.WithFields(log.Fields{
		"active": len(active),
		"armed":  armed,
	}).Info("Rehydrated auction deadlines")
	return armed, nil
}

// SettleOverdue settles active auctions past their deadline that have no
// armed timer. It returns how many were settled.
func (e *AuctionEngine) SettleOverdue(ctx context.Context) (int, error) {
	now := e.now().UTC()

	var overdue []*entities.Auction
	err := e.runInTx(ctx, "list_overdue", func(svc serviceSet, _ UnitOfWork) error {
		var err error
		overdue, err = svc.auctions.ListOverdue(ctx, now)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue auctions: %w", err)
	}

	settled := 0
	var errs []error
	for _, auction := range overdue {
		if _, pending := e.scheduler.Pending(auction.ID); pending {
			continue
		}

		result, err := e.settle(ctx, auction.ID, true)
		switch {
		case errors.Is(err, entities.ErrAuctionNotActive):
		case err != nil:
			errs = append(errs, fmt.Errorf("auction %d: %w", auction.ID, err))
		case result != nil:
			settled++
		}
	}
	return settled, errors.Join(errs...)
}

// Stop cancels every armed deadline
func (e *AuctionEngine) Stop() {
	e.scheduler.Stop()
}
