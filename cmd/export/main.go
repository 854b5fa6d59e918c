// Command export writes the ledger and budgets as CSV, or publishes the same
// table to the configured Google Sheet.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"budgetbook/internal/backend"
	"budgetbook/internal/cli"
	applog "budgetbook/internal/log"
)

func main() {
	out := flag.String("out", "-", "CSV output file, - for stdout")
	toSheets := flag.Bool("sheets", false, "publish to Google Sheets instead of writing CSV")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout")
	flag.Parse()

	cfg, logger := cli.Bootstrap(applog.ComponentExport)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err)
		os.Exit(1)
	}
	defer res.Cleanup()
	svc := res.Backend.Export

	if *toSheets {
		pub, err := svc.Publish(ctx)
		if err != nil {
			logger.Error("Sheets export failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Export published", "ref", pub.Ref, "rows", pub.Rows)
		return
	}

	if err := writeCSV(*out, func(w io.Writer) error { return svc.WriteCSV(ctx, w) }); err != nil {
		logger.Error("CSV export failed", "error", err, "out", *out)
		os.Exit(1)
	}
	if *out != "-" {
		logger.Info("CSV export written", "out", *out)
	}
}

func writeCSV(path string, write func(io.Writer) error) error {
	if path == "-" {
		w := bufio.NewWriter(os.Stdout)
		if err := write(w); err != nil {
			return err
		}
		return w.Flush()
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
