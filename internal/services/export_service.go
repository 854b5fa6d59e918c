package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"budgetbook/internal/export"
	"budgetbook/internal/sheets"
)

var ErrExportUnavailable = errors.New("sheets export is not configured")

// ExportService renders the ledger and its budgets as an export table.
type ExportService struct {
	ledger    *LedgerService
	budgets   *BudgetService
	publisher sheets.Publisher
	sheetName string
}

// NewExportService builds the service. publisher may be nil, in which case
// only CSV export is available.
func NewExportService(ledgerSvc *LedgerService, budgets *BudgetService, publisher sheets.Publisher, sheetName string) *ExportService {
	return &ExportService{ledger: ledgerSvc, budgets: budgets, publisher: publisher, sheetName: sheetName}
}

func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer) error {
	return export.WriteCSV(w, s.ledger.List(ctx), s.budgets.List(ctx))
}

// Published describes a finished sheet export.
type Published struct {
	Ref  string `json:"ref"`
	Rows int    `json:"rows"`
}

// Publish writes the export table to the configured sheet.
func (s *ExportService) Publish(ctx context.Context) (Published, error) {
	if s.publisher == nil {
		return Published{}, ErrExportUnavailable
	}
	rows := export.Rows(s.ledger.List(ctx), s.budgets.List(ctx))
	ref, err := s.publisher.Publish(ctx, s.sheetName, rows)
	if err != nil {
		return Published{}, fmt.Errorf("publish export: %w", err)
	}
	return Published{Ref: ref, Rows: len(rows)}, nil
}
