package cmd

import (
	"context"

	"dkpauction/domain/events"

	log "github.com/sirupsen/logrus"
)

// subscribeAuditLog records committed auction outcomes and ledger changes
func subscribeAuditLog(bus *events.Bus) {
	bus.Subscribe(events.EventTypeAuctionEnded, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.AuctionEndedEvent)
		if !ok {
			return
		}
		fields := log.Fields{
			"auctionID": e.AuctionID,
			"status":    e.Status,
			"wasTie":    e.WasTie,
		}
		if e.WinnerID != nil {
			fields["winnerID"] = *e.WinnerID
			fields["winningBid"] = *e.WinningBid
		}
		log.WithFields(fields).Info("audit: auction ended")
	})

	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.BalanceChangeEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"userID":     e.UserID,
			"delta":      e.AmountDelta,
			"oldBalance": e.OldBalance,
			"newBalance": e.NewBalance,
			"reason":     e.Reason,
		}).Info("audit: balance changed")
	})
}
