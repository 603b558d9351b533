package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// PeriodicRunner schedules a recurring job
type PeriodicRunner interface {
	Every(interval time.Duration, name string, fn func()) error
}

// OverdueSettler settles auctions whose deadline passed without a timer
type OverdueSettler interface {
	SettleOverdue(ctx context.Context) (int, error)
}

// SettlementSweeper periodically settles overdue auctions. It covers timers
// lost to a failed settlement or a restart between rehydration passes.
type SettlementSweeper struct {
	settler  OverdueSettler
	interval time.Duration
	timeout  time.Duration
}

// NewSettlementSweeper creates a sweeper
func NewSettlementSweeper(settler OverdueSettler, interval, timeout time.Duration) *SettlementSweeper {
	return &SettlementSweeper{
		settler:  settler,
		interval: interval,
		timeout:  timeout,
	}
}

// Start registers the sweep with runner. Sweeps stop once ctx is done.
func (w *SettlementSweeper) Start(ctx context.Context, runner PeriodicRunner) error {
	return runner.Every(w.interval, "settlement-sweeper", func() {
		if ctx.Err() != nil {
			return
		}
		w.Sweep(ctx)
	})
}

// Sweep runs one settlement pass
func (w *SettlementSweeper) Sweep(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	settled, err := w.settler.SettleOverdue(ctx)
	if err != nil {
		log.WithError(err).Error("Settlement sweep finished with errors")
	}
	if settled > 0 {
		log.WithField("settled", settled).Info("Settlement sweep closed overdue auctions")
	}
	return settled
}
