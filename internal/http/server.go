package http

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"budgetbook/internal/auth"
	"budgetbook/internal/backend"
	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
	"budgetbook/internal/middleware/ratelimit"
	"budgetbook/internal/middleware/security"
	"budgetbook/internal/middleware/trace"
	appweb "budgetbook/web"
)

// Options tune the middleware around the routes.
type Options struct {
	RateLimit       ratelimit.Config
	BlockSuspicious bool
	Logger          *applog.Logger
}

// Server is the budgetbook web server: dashboard pages, HTMX partials and
// the JSON API, all behind the session guard except health checks, static
// assets and the auth flow.
type Server struct {
	http.Server

	app       *backend.Backend
	auth      *auth.Handler
	templates *template.Template
	detector  *security.Detector
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	events    *applog.StructuredLogger
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, app *backend.Backend, authHandler *auth.Handler, opts Options) (*Server, error) {
	if app == nil || authHandler == nil {
		return nil, fmt.Errorf("new server: backend and auth handler are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background()).WithComponent(applog.ComponentHTTP)
	}

	t, err := appweb.Templates(templateFuncs)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		app:       app,
		auth:      authHandler,
		templates: t,
		detector:  security.NewDetector(opts.BlockSuspicious),
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		events:    applog.NewStructuredLogger(logger),
		started:   time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, s.events)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", s.handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)

	static, err := appweb.Static()
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	root.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServerFS(static))))

	authHandler.Register(root)
	root.Handle("/", authHandler.RequireSession(s.appRoutes()))

	var h http.Handler = root
	h = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.Writes)(h)
	h = s.detector.Middleware(h)
	h = applog.RequestIDMiddleware(trace.RequestID)(h)
	h = applog.Middleware(logger)(h)
	h = s.tracer.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// appRoutes are the signed-in routes.
func (s *Server) appRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, auth.DefaultNext, http.StatusFound)
	})
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /ui/month-overview", s.handleMonthOverview)
	mux.HandleFunc("GET /ui/notifications", s.handleNotificationsPartial)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/categories", s.handleCategoryGrid)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("GET /api/budgets/current", s.handleCurrentBudget)
	mux.HandleFunc("PUT /api/budgets/current", s.handleSetCurrentBudget)
	mux.HandleFunc("GET /api/budgets/{year}/{month}", s.handleGetBudget)
	mux.HandleFunc("PUT /api/budgets/{year}/{month}", s.handleSaveBudget)
	mux.HandleFunc("DELETE /api/budgets/{year}/{month}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/reminders", s.handleListReminders)
	mux.HandleFunc("GET /api/reminders/due", s.handleDueReminders)
	mux.HandleFunc("POST /api/reminders", s.handleCreateReminder)
	mux.HandleFunc("PUT /api/reminders/{id}", s.handleUpdateReminder)
	mux.HandleFunc("DELETE /api/reminders/{id}", s.handleDeleteReminder)

	mux.HandleFunc("GET /api/shopping", s.handleShopping)
	mux.HandleFunc("POST /api/shopping/trips", s.handleStartTrip)
	mux.HandleFunc("POST /api/shopping/trips/{id}/items", s.handleAddTripItem)
	mux.HandleFunc("DELETE /api/shopping/trips/{id}/items/{item}", s.handleRemoveTripItem)
	mux.HandleFunc("POST /api/shopping/trips/{id}/complete", s.handleCompleteTrip)
	mux.HandleFunc("DELETE /api/shopping/trips/{id}", s.handleCancelTrip)

	mux.HandleFunc("GET /api/settings", s.handleSettings)
	mux.HandleFunc("PUT /api/settings/currency", s.handleSetCurrency)
	mux.HandleFunc("POST /api/settings/payment-methods", s.handleAddPaymentMethod)
	mux.HandleFunc("DELETE /api/settings/payment-methods/{label}", s.handleRemovePaymentMethod)

	mux.HandleFunc("GET /api/household", s.handleHousehold)
	mux.HandleFunc("POST /api/household/invites", s.handleInvite)
	mux.HandleFunc("DELETE /api/household/invites/{id}", s.handleRevokeInvite)
	mux.HandleFunc("GET /api/invites", s.handleMyInvites)
	mux.HandleFunc("POST /api/invites/{id}/accept", s.handleAcceptInvite)
	mux.HandleFunc("GET /api/notifications", s.handleNotifications)

	mux.HandleFunc("POST /api/sync", s.handleSyncNow)
	mux.HandleFunc("GET /api/sync/stats", s.handleSyncStats)
	mux.HandleFunc("POST /api/sync/retry-failed", s.handleRetryFailed)

	mux.HandleFunc("GET /export.csv", s.handleExportCSV)
	mux.HandleFunc("POST /api/export/sheets", s.handleExportSheets)

	return mux
}

func (s *Server) today() core.Date {
	return s.app.Analytics.Today()
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports readiness along with the state of the optional
// integrations and the in-process caches.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]any{
		"templates": "ok",
		"ledger":    "ok",
	}
	status, code := "ready", http.StatusOK

	if s.app.SyncProcessor != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if st, err := s.app.SyncProcessor.Stats(ctx); err != nil {
			checks["outbox"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["outbox"] = st
		}
	} else {
		checks["outbox"] = "remote sync disabled"
	}

	if s.app.Summaries != nil {
		checks["summary_cache"] = s.app.Summaries.Stats()
	}
	checks["rate_limiter"] = s.limiter.GetMetrics()
	checks["requests"] = s.tracer.GetMetrics()
	checks["security"] = s.detector.GetMetrics()

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
