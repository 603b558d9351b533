package entities

import (
	"errors"
	"time"
)

// TransactionReason classifies a ledger change
type TransactionReason string

const (
	TransactionReasonAuctionWin TransactionReason = "auction_win"
	TransactionReasonAward      TransactionReason = "award"
	TransactionReasonAdjustment TransactionReason = "adjustment"
	TransactionReasonDecay      TransactionReason = "decay"
	TransactionReasonInitial    TransactionReason = "initial"
)

// IsValid reports whether the reason is one the ledger accepts
func (r TransactionReason) IsValid() bool {
	switch r {
	case TransactionReasonAuctionWin, TransactionReasonAward, TransactionReasonAdjustment,
		TransactionReasonDecay, TransactionReasonInitial:
		return true
	}
	return false
}

// LedgerEntry is one append-only row of the DKP transaction log
type LedgerEntry struct {
	ID            int64             `db:"id"`
	DiscordID     int64             `db:"discord_id"`
	AmountDelta   int64             `db:"amount_delta"`
	BalanceBefore int64             `db:"balance_before"`
	BalanceAfter  int64             `db:"balance_after"`
	Reason        TransactionReason `db:"reason"`
	AuctionID     *int64            `db:"auction_id"`
	Metadata      map[string]any    `db:"metadata"`
	CreatedAt     time.Time         `db:"created_at"`
}

// Validate checks the entry is internally consistent before it is appended
func (e *LedgerEntry) Validate() error {
	if e.AmountDelta == 0 {
		return errors.New("amount delta cannot be zero")
	}
	if e.BalanceAfter != e.BalanceBefore+e.AmountDelta {
		return errors.New("balance calculation is inconsistent")
	}
	if e.BalanceAfter < 0 {
		return errors.New("balance cannot go negative")
	}
	if !e.Reason.IsValid() {
		return errors.New("unknown transaction reason")
	}
	if e.Reason == TransactionReasonAuctionWin && e.AuctionID == nil {
		return errors.New("auction win must reference an auction")
	}
	return nil
}
