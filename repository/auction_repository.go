package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dkpauction/database"
	"dkpauction/domain/entities"

	"github.com/jackc/pgx/v5"
)

const auctionColumns = `id, item_name, item_metadata, min_bid, duration_seconds, created_by, created_at,
	original_ends_at, ends_at, status, winner_discord_id, winning_bid, was_tie, winning_roll, closed_at`

type auctionRepository struct {
	q Queryable
}

// NewAuctionRepository creates an auction repository outside any transaction
func NewAuctionRepository(db *database.DB) *auctionRepository {
	return &auctionRepository{q: db.Pool}
}

func newAuctionRepository(q Queryable) *auctionRepository {
	return &auctionRepository{q: q}
}

func scanAuction(row pgx.Row) (*entities.Auction, error) {
	var a entities.Auction
	var status string
	err := row.Scan(
		&a.ID,
		&a.ItemName,
		&a.ItemMetadata,
		&a.MinBid,
		&a.DurationSeconds,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.OriginalEndsAt,
		&a.EndsAt,
		&status,
		&a.WinnerDiscordID,
		&a.WinningBid,
		&a.WasTie,
		&a.WinningRoll,
		&a.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = entities.AuctionStatus(status)
	return &a, nil
}

// Create inserts the auction and populates its ID
func (r *auctionRepository) Create(ctx context.Context, auction *entities.Auction) error {
	metadata := auction.ItemMetadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	if auction.Status == "" {
		auction.Status = entities.AuctionStatusActive
	}

	query := `
		INSERT INTO auctions (item_name, item_metadata, min_bid, duration_seconds, created_by, created_at, original_ends_at, ends_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.q.QueryRow(ctx, query,
		auction.ItemName,
		metadata,
		auction.MinBid,
		auction.DurationSeconds,
		auction.CreatedBy,
		auction.CreatedAt,
		auction.OriginalEndsAt,
		auction.EndsAt,
		string(auction.Status),
	).Scan(&auction.ID)
	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}
	return nil
}

// GetByID retrieves an auction, nil when it does not exist
func (r *auctionRepository) GetByID(ctx context.Context, id int64) (*entities.Auction, error) {
	auction, err := scanAuction(r.q.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return auction, nil
}

// GetByIDForUpdate retrieves an auction and locks the row
func (r *auctionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Auction, error) {
	auction, err := scanAuction(r.q.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auction for update: %w", err)
	}
	return auction, nil
}

// GetActive returns all active auctions soonest-ending first
func (r *auctionRepository) GetActive(ctx context.Context) ([]*entities.Auction, error) {
	rows, err := r.q.Query(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE status = 'active' ORDER BY ends_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active auctions: %w", err)
	}
	return collectAuctions(rows)
}

// GetOverdue returns active auctions whose ends_at is not after now
func (r *auctionRepository) GetOverdue(ctx context.Context, now time.Time) ([]*entities.Auction, error) {
	rows, err := r.q.Query(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE status = 'active' AND ends_at <= $1 ORDER BY ends_at, id`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue auctions: %w", err)
	}
	return collectAuctions(rows)
}

// UpdateEndsAt moves the close time of an active auction forward
func (r *auctionRepository) UpdateEndsAt(ctx context.Context, id int64, endsAt time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE auctions SET ends_at = $2 WHERE id = $1 AND status = 'active' AND ends_at <= $2`, id, endsAt)
	if err != nil {
		return fmt.Errorf("failed to update auction end time: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: auction %d", entities.ErrAuctionNotActive, id)
	}
	return nil
}

// MarkSettled writes the terminal state of an active auction
func (r *auctionRepository) MarkSettled(ctx context.Context, result *entities.SettlementResult) error {
	query := `
		UPDATE auctions
		SET status = $2,
		    winner_discord_id = $3,
		    winning_bid = $4,
		    was_tie = $5,
		    winning_roll = $6,
		    closed_at = $7
		WHERE id = $1 AND status = 'active'`

	tag, err := r.q.Exec(ctx, query,
		result.AuctionID,
		string(result.Status),
		result.WinnerID,
		result.WinningBid,
		result.WasTie,
		result.WinningRoll,
		result.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to settle auction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: auction %d", entities.ErrAuctionNotActive, result.AuctionID)
	}
	return nil
}

// SaveRolls persists tie rolls
func (r *auctionRepository) SaveRolls(ctx context.Context, rolls []*entities.TieRoll) error {
	query := `
		INSERT INTO auction_rolls (auction_id, discord_id, roll, is_winner, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	for _, roll := range rolls {
		createdAt := roll.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := r.q.Exec(ctx, query, roll.AuctionID, roll.DiscordID, roll.Roll, roll.IsWinner, createdAt); err != nil {
			return fmt.Errorf("failed to insert tie roll for user %d: %w", roll.DiscordID, err)
		}
	}
	return nil
}

// GetRolls returns persisted tie rolls, highest first
func (r *auctionRepository) GetRolls(ctx context.Context, auctionID int64) ([]*entities.TieRoll, error) {
	query := `
		SELECT auction_id, discord_id, roll, is_winner, created_at
		FROM auction_rolls
		WHERE auction_id = $1
		ORDER BY roll DESC, discord_id`

	rows, err := r.q.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tie rolls: %w", err)
	}
	defer rows.Close()

	var rolls []*entities.TieRoll
	for rows.Next() {
		var roll entities.TieRoll
		if err := rows.Scan(&roll.AuctionID, &roll.DiscordID, &roll.Roll, &roll.IsWinner, &roll.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tie roll: %w", err)
		}
		rolls = append(rolls, &roll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tie rolls: %w", err)
	}
	return rolls, nil
}

func collectAuctions(rows pgx.Rows) ([]*entities.Auction, error) {
	defer rows.Close()

	var auctions []*entities.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}
	return auctions, nil
}
