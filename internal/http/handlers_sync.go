package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	applog "budgetbook/internal/log"
	"budgetbook/internal/services"
)

const syncTimeout = 60 * time.Second

func (s *Server) syncProcessor() (*services.SyncProcessor, error) {
	if s.app.SyncProcessor == nil {
		return nil, errRemoteDisabled
	}
	return s.app.SyncProcessor, nil
}

// handleSyncNow pushes the outbox and pulls the household ledger, reporting
// failures to the caller.
func (s *Server) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	p, err := s.syncProcessor()
	if err != nil {
		writeError(w, r, applog.OpSync, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), syncTimeout)
	defer cancel()

	res, err := p.SyncNow(ctx)
	if err != nil {
		writeError(w, r, applog.OpSync, err)
		return
	}
	s.events.LogSyncCompleted(ctx, res.Pushed, res.Pulled.Added, res.Pulled.Updated)
	today := s.today()
	respond(w, r, http.StatusOK, res, func(b *HTMXResponseBuilder) {
		b.TriggerLedgerChanged(today.Year(), today.Month()).
			TriggerOverviewRefresh(today.Year(), today.Month()).
			TriggerSuccessNotification(fmt.Sprintf("Synced: %d sent, %d received", res.Pushed, res.Pulled.Added+res.Pulled.Updated))
	})
}

func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	p, err := s.syncProcessor()
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	st, err := p.Stats(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queue":   st,
		"running": p.IsRunning(),
	})
}

func (s *Server) handleRetryFailed(w http.ResponseWriter, r *http.Request) {
	p, err := s.syncProcessor()
	if err != nil {
		writeError(w, r, applog.OpSync, err)
		return
	}
	if err := p.RetryFailed(r.Context()); err != nil {
		writeError(w, r, applog.OpSync, err)
		return
	}
	respond(w, r, http.StatusAccepted, map[string]string{"status": "retrying"}, func(b *HTMXResponseBuilder) {
		b.Status(http.StatusOK).TriggerSuccessNotification("Retrying failed changes")
	})
}

// handleExportCSV streams the CSV export as a download. The body is built
// first so a failure can still produce a proper error status.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.app.Export.WriteCSV(r.Context(), &buf); err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	name := fmt.Sprintf("budgetbook-%s.csv", s.today())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), syncTimeout)
	defer cancel()

	res, err := s.app.Export.Publish(ctx)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	s.events.LogExportPublished(ctx, res.Ref, res.Rows)
	respond(w, r, http.StatusOK, res, func(b *HTMXResponseBuilder) {
		b.TriggerSuccessNotification(fmt.Sprintf("Exported %d rows", res.Rows))
	})
}
