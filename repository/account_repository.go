package repository

import (
	"context"
	"errors"
	"fmt"

	"dkpauction/database"
	"dkpauction/domain/entities"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `discord_id, username, balance, lifetime_gained, lifetime_spent, created_at, updated_at`

type accountRepository struct {
	q Queryable
}

// NewAccountRepository creates an account repository outside any transaction
func NewAccountRepository(db *database.DB) *accountRepository {
	return &accountRepository{q: db.Pool}
}

func newAccountRepository(q Queryable) *accountRepository {
	return &accountRepository{q: q}
}

func scanAccount(row pgx.Row) (*entities.Account, error) {
	var a entities.Account
	err := row.Scan(&a.DiscordID, &a.Username, &a.Balance, &a.LifetimeGained, &a.LifetimeSpent, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByDiscordID retrieves an account, nil when it does not exist
func (r *accountRepository) GetByDiscordID(ctx context.Context, discordID int64) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM dkp_accounts WHERE discord_id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, discordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// GetByDiscordIDForUpdate retrieves an account and locks the row
func (r *accountRepository) GetByDiscordIDForUpdate(ctx context.Context, discordID int64) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM dkp_accounts WHERE discord_id = $1 FOR UPDATE`

	account, err := scanAccount(r.q.QueryRow(ctx, query, discordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account for update: %w", err)
	}
	return account, nil
}

// GetBalances fetches balances for many users in one round-trip
func (r *accountRepository) GetBalances(ctx context.Context, discordIDs []int64) (map[int64]int64, error) {
	balances := make(map[int64]int64, len(discordIDs))
	if len(discordIDs) == 0 {
		return balances, nil
	}

	rows, err := r.q.Query(ctx, `SELECT discord_id, balance FROM dkp_accounts WHERE discord_id = ANY($1)`, discordIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, balance int64
		if err := rows.Scan(&id, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances[id] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balances: %w", err)
	}
	return balances, nil
}

// Create inserts a zero-balance account. Creating an existing account only
// refreshes a non-empty username.
func (r *accountRepository) Create(ctx context.Context, discordID int64, username string) (*entities.Account, error) {
	query := `
		INSERT INTO dkp_accounts (discord_id, username)
		VALUES ($1, $2)
		ON CONFLICT (discord_id) DO UPDATE
			SET username = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username ELSE dkp_accounts.username END,
			    updated_at = NOW()
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, discordID, username))
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// ApplyDelta changes balance and lifetime counters in one guarded statement
func (r *accountRepository) ApplyDelta(ctx context.Context, discordID int64, delta, gained, spent int64) (*entities.Account, error) {
	query := `
		UPDATE dkp_accounts
		SET balance = balance + $2,
		    lifetime_gained = lifetime_gained + $3,
		    lifetime_spent = lifetime_spent + $4,
		    updated_at = NOW()
		WHERE discord_id = $1 AND balance + $2 >= 0
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, discordID, delta, gained, spent))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM dkp_accounts WHERE discord_id = $1)`, discordID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check account: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: user %d", entities.ErrAccountNotFound, discordID)
		}
		return nil, fmt.Errorf("%w: user %d cannot absorb %d", entities.ErrInsufficientFunds, discordID, delta)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	return account, nil
}

// GetAll returns all accounts ordered by balance descending
func (r *accountRepository) GetAll(ctx context.Context) ([]*entities.Account, error) {
	rows, err := r.q.Query(ctx, `SELECT `+accountColumns+` FROM dkp_accounts ORDER BY balance DESC, discord_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*entities.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}
