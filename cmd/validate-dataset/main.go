package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/async"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/audit"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/common"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/imageio"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/report"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	cfg := common.LoadConfig()

	var (
		dir        = flag.String("dir", cfg.Dataset.OutputDir, "dataset directory to check")
		reports    = flag.String("reports", cfg.Dataset.ReportDir, "directory for validation_report.txt")
		maxSamples = flag.Int("max-samples", 0, "lines checked per split (0 = all)")
		skipImages = flag.Bool("skip-images", false, "do not open referenced images")
		skipText   = flag.Bool("skip-text", false, "do not check text content")
		xlsx       = flag.Bool("xlsx", cfg.Dataset.WriteXLSX, "also write an XLSX report")
		limit      = flag.Int("show", report.DefaultIssueLimit, "issues printed to the console")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *maxSamples < 0 {
		printError("Error: --max-samples must not be negative\n")
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := async.NewPool(logger, async.WithWorkers(cfg.Workers.Count), async.WithQueueSize(cfg.Workers.QueueSize))
	auditor := audit.New(audit.Config{
		MaxSamples:    *maxSamples,
		SkipImages:    *skipImages,
		SkipText:      *skipText,
		MaxTextLength: cfg.Image.MaxTextLength,
	}, imageio.NewLoader(), pool, logger)

	outcome, err := auditor.Audit(ctx, *dir)
	if err != nil {
		printError("Error: auditing %s: %v\n", *dir, err)
		os.Exit(1)
	}

	if err := report.PrintValidationSummary(os.Stdout, outcome, *limit); err != nil {
		printError("Error: printing summary: %v\n", err)
	}

	reportPath := filepath.Join(*reports, constants.ValidationReportFile)
	if err := report.Save(reportPath, func(w io.Writer) error {
		return report.WriteValidationReport(w, outcome)
	}); err != nil {
		printError("Error: writing report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Report: %s\n", reportPath)

	if *xlsx {
		wb := report.NewWorkbook(logger)
		wb.AddAudit(outcome)
		xlsxPath := filepath.Join(*reports, constants.ReportWorkbookFile)
		if err := wb.Save(xlsxPath); err != nil {
			printError("Error: writing workbook: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Workbook: %s\n", xlsxPath)
	}

	if _, invalid := outcome.Totals(); invalid > 0 || len(outcome.MissingDirs) > 0 || !outcome.MetadataValid {
		os.Exit(3)
	}
}
