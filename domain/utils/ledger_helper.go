package utils

import (
	"context"
	"fmt"

	"dkpauction/domain/entities"
	"dkpauction/domain/events"
	"dkpauction/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// DefaultHistoryLimit bounds ledger history queries when the caller gives no limit
const DefaultHistoryLimit = 50

// RecordLedgerChange appends a ledger entry and emits a balance change event.
// This is the single entry point for recording balance changes.
func RecordLedgerChange(ctx context.Context, ledgerRepo interfaces.LedgerEntryRepository, eventPublisher interfaces.EventPublisher, entry *entities.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid ledger entry: %w", err)
	}

	if err := ledgerRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	event := events.BalanceChangeEvent{
		UserID:      entry.DiscordID,
		OldBalance:  entry.BalanceBefore,
		NewBalance:  entry.BalanceAfter,
		AmountDelta: entry.AmountDelta,
		Reason:      entry.Reason,
		AuctionID:   entry.AuctionID,
	}
	log.WithFields(log.Fields{
		"userID":      event.UserID,
		"oldBalance":  event.OldBalance,
		"newBalance":  event.NewBalance,
		"amountDelta": event.AmountDelta,
		"reason":      event.Reason,
	}).Debug("Publishing BalanceChangeEvent")

	// Event delivery is fire-and-forget; the ledger row is the source of truth
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish balance change event")
	}

	return nil
}

// FormatDKP formats a DKP amount using short notation (e.g. 12.5k)
func FormatDKP(value int64) string {
	absValue := value
	sign := ""
	if value < 0 {
		absValue = -value
		sign = "-"
	}

	switch {
	case absValue >= 1_000_000:
		return fmt.Sprintf("%s%.2fM", sign, float64(absValue)/1_000_000)
	case absValue >= 10_000:
		return fmt.Sprintf("%s%dk", sign, absValue/1_000)
	case absValue >= 1_000:
		return fmt.Sprintf("%s%.1fk", sign, float64(absValue)/1_000)
	default:
		return fmt.Sprintf("%s%d", sign, absValue)
	}
}
