package application

import (
	"context"

	"dkpauction/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new serializable transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and then flushes buffered events
	Commit() error

	// Rollback rolls back the transaction and discards buffered events
	Rollback() error

	// Repository getters
	AccountRepository() interfaces.AccountRepository
	LedgerEntryRepository() interfaces.LedgerEntryRepository
	AuctionRepository() interfaces.AuctionRepository
	BidRepository() interfaces.BidRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory creates UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// TransactionalEventPublisher buffers events until the owning transaction resolves
type TransactionalEventPublisher interface {
	interfaces.EventPublisher

	// Flush publishes all buffered events
	Flush(ctx context.Context) error

	// Discard drops all buffered events
	Discard()
}
