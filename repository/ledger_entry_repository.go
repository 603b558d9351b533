package repository

import (
	"context"
	"fmt"

	"dkpauction/database"
	"dkpauction/domain/entities"

	"github.com/jackc/pgx/v5"
)

const ledgerColumns = `id, discord_id, amount_delta, balance_before, balance_after, reason, auction_id, metadata, created_at`

type ledgerEntryRepository struct {
	q Queryable
}

// NewLedgerEntryRepository creates a ledger repository outside any transaction
func NewLedgerEntryRepository(db *database.DB) *ledgerEntryRepository {
	return &ledgerEntryRepository{q: db.Pool}
}

func newLedgerEntryRepository(q Queryable) *ledgerEntryRepository {
	return &ledgerEntryRepository{q: q}
}

// Append records a ledger entry
func (r *ledgerEntryRepository) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	query := `
		INSERT INTO dkp_transactions (discord_id, amount_delta, balance_before, balance_after, reason, auction_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		entry.DiscordID,
		entry.AmountDelta,
		entry.BalanceBefore,
		entry.BalanceAfter,
		string(entry.Reason),
		entry.AuctionID,
		metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// GetByUser returns a user's entries newest first
func (r *ledgerEntryRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*entities.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM dkp_transactions
		WHERE discord_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	return collectLedgerEntries(rows)
}

// GetByAuction returns entries referencing an auction
func (r *ledgerEntryRepository) GetByAuction(ctx context.Context, auctionID int64) ([]*entities.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM dkp_transactions
		WHERE auction_id = $1
		ORDER BY id`

	rows, err := r.q.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query auction ledger entries: %w", err)
	}
	return collectLedgerEntries(rows)
}

func collectLedgerEntries(rows pgx.Rows) ([]*entities.LedgerEntry, error) {
	defer rows.Close()

	var entries []*entities.LedgerEntry
	for rows.Next() {
		var e entities.LedgerEntry
		var reason string
		err := rows.Scan(
			&e.ID,
			&e.DiscordID,
			&e.AmountDelta,
			&e.BalanceBefore,
			&e.BalanceAfter,
			&reason,
			&e.AuctionID,
			&e.Metadata,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Reason = entities.TransactionReason(reason)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}
