// Command sync-worker drains the local outbox into the household database.
// It wakes on AMQP sync nudges and on its poll interval.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetbook/internal/amqp"
	"budgetbook/internal/backend"
	"budgetbook/internal/cli"
	applog "budgetbook/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentSync)

	userID := flag.String("user", cfg.DevUserID, "user id to sync as")
	email := flag.String("email", cfg.DevUserEmail, "email of the user to sync as")
	flag.Parse()

	if !cfg.RemoteEnabled() {
		logger.Error("REMOTE_DATABASE_URL is required for the sync worker")
		os.Exit(1)
	}
	if *userID == "" || *email == "" {
		logger.Error("A user is required: set -user/-email or DEV_USER_ID/DEV_USER_EMAIL")
		os.Exit(1)
	}

	logger.Info("Starting sync-worker", "backend", cfg.DataBackend, "amqp_enabled", cfg.AMQPURL != "")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err)
		os.Exit(1)
	}
	defer res.Cleanup()
	app := res.Backend

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if _, err := app.Household.SignIn(ctx, *userID, *email, ""); err != nil {
		logger.Error("Failed to sign in", "error", err, "user_id", *userID)
		os.Exit(1)
	}

	processor := app.SyncProcessor
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if app.AMQP != nil {
		g.Go(func() error {
			err := app.AMQP.ConsumeSyncNudges(gctx, func(_ context.Context, n *amqp.SyncNudge) error {
				logger.Debug("Sync nudge received", "outbox_id", n.OutboxID, "kind", n.Kind, "operation", n.Operation)
				processor.Wake()
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - relying on the poll interval", "interval", cfg.SyncInterval)
	}
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return processor.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Sync worker stopped with error", "error", err)
	}

	if st, err := processor.Stats(context.Background()); err == nil {
		logger.Info("Outbox state at shutdown",
			"pending", st.Pending, "processing", st.Processing, "failed", st.Failed)
	}
	if ctx.Err() != nil {
		cli.WaitForShutdown(ctx, done)
	}
	logger.Info("Worker shutdown complete")
}
