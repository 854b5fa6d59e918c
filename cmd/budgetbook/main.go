package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"budgetbook/internal/auth"
	"budgetbook/internal/backend"
	"budgetbook/internal/cli"
	applog "budgetbook/internal/log"
	"budgetbook/internal/config"
	apphttp "budgetbook/internal/http"
	"budgetbook/internal/middleware/ratelimit"
)

const (
	maxSessions     = 1000
	sessionTTL      = 7 * 24 * time.Hour
	cacheSweepEvery = 5 * time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	app := res.Backend

	sessions := auth.NewSessions(maxSessions, sessionTTL)
	app.Caches.Register(sessions.Cache())

	authHandler := auth.NewHandler(newProvider(cfg), sessions, sessionHooks(app), strings.HasPrefix(cfg.OAuthRedirectURL, "https://"))

	srv, err := apphttp.NewServer(":"+cfg.Port, app, authHandler, apphttp.Options{
		RateLimit: ratelimit.Config{RequestsPerMinute: 120},
		Logger:    logger.WithComponent(applog.ComponentHTTP),
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if app.SyncProcessor != nil {
			if err := app.SyncProcessor.Stop(shutdownCtx); err != nil {
				logger.Error("Sync processor shutdown error", "error", err)
			}
		}
		app.Caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	app.Caches.StartCleanup(ctx, cacheSweepEvery)
	go app.Notifications.Run(ctx)
	if app.SyncProcessor != nil {
		if err := app.SyncProcessor.Start(ctx); err != nil {
			logger.Error("Failed to start sync processor", "error", err)
			os.Exit(1)
		}
	}

	go func() {
		logger.Info("Starting budgetbook server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"remote_enabled", cfg.RemoteEnabled(),
			"oauth_enabled", cfg.OAuthEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// newProvider picks the identity provider: the configured OAuth server, or
// a fixed local user for development.
func newProvider(cfg *config.Config) auth.Provider {
	if cfg.OAuthEnabled() {
		return auth.NewOAuthProvider(auth.OAuthConfig{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			AuthURL:      cfg.OAuthAuthURL,
			TokenURL:     cfg.OAuthTokenURL,
			UserInfoURL:  cfg.OAuthUserInfoURL,
			RedirectURL:  cfg.OAuthRedirectURL,
		})
	}
	id, email := cfg.DevUserID, cfg.DevUserEmail
	if id == "" {
		id = "local"
	}
	if email == "" {
		email = id + "@localhost"
	}
	return auth.DevProvider{User: auth.User{ID: id, Email: email, Name: id}}
}

// sessionHooks binds sign-in to the household identity and sign-out to
// wiping the local ledger.
func sessionHooks(app *backend.Backend) auth.Hooks {
	return auth.Hooks{
		SignIn: func(ctx context.Context, u auth.User) error {
			if app.Household == nil {
				return nil
			}
			if _, err := app.Household.SignIn(ctx, u.ID, u.Email, u.Name); err != nil {
				return err
			}
			if _, err := app.SyncProcessor.Pull(ctx); err != nil {
				slog.WarnContext(ctx, "Initial pull failed", "error", err, "user_id", u.ID)
			}
			if err := app.Notifications.Refresh(ctx); err != nil {
				slog.WarnContext(ctx, "Notification refresh failed", "error", err)
			}
			return nil
		},
		SignOut: func(ctx context.Context) error {
			if app.Household != nil {
				app.Household.SignOut(ctx)
			}
			return app.Store.ClearAll(ctx)
		},
	}
}
