package repository

import (
	"context"
	"errors"
	"fmt"

	"dkpauction/database"
	"dkpauction/domain/entities"

	"github.com/jackc/pgx/v5"
)

type bidRepository struct {
	q Queryable
}

// NewBidRepository creates a bid repository outside any transaction
func NewBidRepository(db *database.DB) *bidRepository {
	return &bidRepository{q: db.Pool}
}

func newBidRepository(q Queryable) *bidRepository {
	return &bidRepository{q: q}
}

// GetHighest returns the leading bid. Equal amounts go to the earlier bid.
func (r *bidRepository) GetHighest(ctx context.Context, auctionID int64) (*entities.Bid, error) {
	query := `
		SELECT auction_id, discord_id, amount, created_at
		FROM auction_bids
		WHERE auction_id = $1
		ORDER BY amount DESC, created_at ASC
		LIMIT 1`

	var bid entities.Bid
	err := r.q.QueryRow(ctx, query, auctionID).Scan(&bid.AuctionID, &bid.DiscordID, &bid.Amount, &bid.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}
	return &bid, nil
}

// GetByAuction returns bids by amount descending, then earliest first
func (r *bidRepository) GetByAuction(ctx context.Context, auctionID int64) ([]*entities.Bid, error) {
	query := `
		SELECT auction_id, discord_id, amount, created_at
		FROM auction_bids
		WHERE auction_id = $1
		ORDER BY amount DESC, created_at ASC, discord_id ASC`

	rows, err := r.q.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var bids []*entities.Bid
	for rows.Next() {
		var bid entities.Bid
		if err := rows.Scan(&bid.AuctionID, &bid.DiscordID, &bid.Amount, &bid.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, &bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}
	return bids, nil
}

// Replace swaps the user's bid on the auction for bid and returns the old one
func (r *bidRepository) Replace(ctx context.Context, bid *entities.Bid) (*entities.Bid, error) {
	var prev entities.Bid
	err := r.q.QueryRow(ctx, `
		DELETE FROM auction_bids
		WHERE auction_id = $1 AND discord_id = $2
		RETURNING auction_id, discord_id, amount, created_at`,
		bid.AuctionID, bid.DiscordID,
	).Scan(&prev.AuctionID, &prev.DiscordID, &prev.Amount, &prev.CreatedAt)

	var previous *entities.Bid
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to remove previous bid: %w", err)
	default:
		previous = &prev
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO auction_bids (auction_id, discord_id, amount, created_at)
		VALUES ($1, $2, $3, $4)`,
		bid.AuctionID, bid.DiscordID, bid.Amount, bid.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert bid: %w", err)
	}
	return previous, nil
}

// GetCommittedAmount sums the user's leading bids on other active auctions.
// A bid that ties the maximum counts as committed for every tied bidder.
func (r *bidRepository) GetCommittedAmount(ctx context.Context, discordID, excludeAuctionID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(b.amount), 0)::BIGINT
		FROM auction_bids b
		JOIN auctions a ON a.id = b.auction_id
		WHERE b.discord_id = $1
		  AND a.status = 'active'
		  AND a.id <> $2
		  AND b.amount = (
		      SELECT MAX(m.amount) FROM auction_bids m WHERE m.auction_id = b.auction_id
		  )`

	var committed int64
	if err := r.q.QueryRow(ctx, query, discordID, excludeAuctionID).Scan(&committed); err != nil {
		return 0, fmt.Errorf("failed to get committed amount: %w", err)
	}
	return committed, nil
}
