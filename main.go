package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"dkpauction/application"
	"dkpauction/cmd"
	"dkpauction/config"
	"dkpauction/database"
	"dkpauction/domain/entities"
	"dkpauction/domain/events"
	"dkpauction/infrastructure"

	log "github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) > 1 {
		var err error
		switch os.Args[1] {
		case "migrate":
			err = handleMigrationCommand(os.Args[2:])
		case "update-balance":
			err = handleUpdateBalanceCommand(os.Args[2:])
		default:
			err = fmt.Errorf("unknown command: %s", os.Args[1])
		}
		if err != nil {
			log.WithError(err).Fatal("Command failed")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx); err != nil {
		log.WithError(err).Fatal("Application error")
	}
}

func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: dkpauction migrate [up|down|status] [args...]")
	}

	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}

// handleUpdateBalanceCommand applies an admin adjustment, creating the
// account first when the user has none
func handleUpdateBalanceCommand(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: dkpauction update-balance <user-id> <delta> [reason]")
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", args[0], err)
	}
	delta, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid delta %q: %w", args[1], err)
	}
	reason := entities.TransactionReasonAdjustment
	if len(args) > 2 {
		reason = entities.TransactionReason(args[2])
	}

	ctx := context.Background()
	cfg := config.Get()
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	jobs, err := infrastructure.NewJobScheduler()
	if err != nil {
		return err
	}
	defer func() { _ = jobs.Shutdown() }()

	bus := events.NewBus()
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, infrastructure.NewNoopEventPublisher(bus))
	engine := application.NewAuctionEngine(uowFactory, application.NewSnipeScheduler(jobs), nil, nil)

	if _, err := engine.EnsureAccount(ctx, userID, ""); err != nil {
		return err
	}
	entry, err := engine.AdjustBalance(ctx, userID, delta, reason, map[string]any{"source": "cli"})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"userID":        userID,
		"delta":         entry.AmountDelta,
		"balanceBefore": entry.BalanceBefore,
		"balanceAfter":  entry.BalanceAfter,
		"reason":        entry.Reason,
	}).Info("Balance updated")
	return nil
}
