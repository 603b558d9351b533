package entities

import "time"

// Account is a member's DKP ledger record
type Account struct {
	DiscordID      int64     `db:"discord_id"`
	Username       string    `db:"username"`
	Balance        int64     `db:"balance"`
	LifetimeGained int64     `db:"lifetime_gained"`
	LifetimeSpent  int64     `db:"lifetime_spent"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// HasSufficientBalance checks if the settled balance covers amount
func (a *Account) HasSufficientBalance(amount int64) bool {
	return a.Balance >= amount
}

// ApplyCap returns the balance after adding delta, clamped to limit when limit is positive
func (a *Account) ApplyCap(delta, limit int64) int64 {
	next := a.Balance + delta
	if delta > 0 && limit > 0 && next > limit {
		// Never claw back an existing over-cap balance on a positive award
		if a.Balance > limit {
			return a.Balance
		}
		return limit
	}
	return next
}
