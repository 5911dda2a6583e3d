package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/common"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/pipeline"
	repo "github.com/joseph-ayodele/ocr-dataset-prep/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	cfg := common.LoadConfig()

	// Flags override environment configuration
	var (
		images  = flag.String("images", cfg.Dataset.InputImages, "directory holding the source images")
		labels  = flag.String("labels", cfg.Dataset.InputLabels, "label file to convert")
		out     = flag.String("out", cfg.Dataset.OutputDir, "dataset output directory")
		reports = flag.String("reports", cfg.Dataset.ReportDir, "report output directory")
		ratio   = flag.Float64("train-ratio", cfg.Split.TrainRatio, "fraction of valid pairs assigned to train")
		seed    = flag.Uint64("seed", cfg.Split.Seed, "split seed")
		height  = flag.Int("height", cfg.Image.TargetHeight, "normalized image height")
		workers = flag.Int("workers", cfg.Workers.Count, "concurrent image workers")
		formats = flag.String("formats", "", "comma-separated label formats to try ("+strings.Join(constants.AsStringSlice(), ",")+")")
		xlsx    = flag.Bool("xlsx", cfg.Dataset.WriteXLSX, "also write an XLSX report")
		catalog = flag.String("catalog", cfg.Catalog.DSN, "catalog DSN (postgres:// or sqlite path); empty disables")
	)
	flag.Parse()

	cfg.Dataset.InputImages = *images
	cfg.Dataset.InputLabels = *labels
	cfg.Dataset.OutputDir = *out
	cfg.Dataset.ReportDir = *reports
	cfg.Dataset.WriteXLSX = *xlsx
	cfg.Split.TrainRatio = *ratio
	cfg.Split.Seed = *seed
	cfg.Image.TargetHeight = *height
	if *workers != cfg.Workers.Count {
		cfg.Workers.Count = *workers
		cfg.Workers.QueueSize = 2 * *workers
	}
	cfg.Catalog.DSN = *catalog
	if *formats != "" {
		parsed, ok := common.ParseFormats(*formats)
		if !ok {
			printError("Error: invalid --formats %q\n", *formats)
			os.Exit(1)
		}
		cfg.Parse.Formats = parsed
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []pipeline.Option
	if cfg.Catalog.DSN != "" {
		db, err := openCatalog(ctx, cfg.Catalog, logger)
		if err != nil {
			printError("Error: opening catalog: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		opts = append(opts, pipeline.WithCatalog(repo.NewRunRepository(db, logger), repo.NewSampleRepository(db, logger)))
	}

	processor := pipeline.FromConfig(cfg, logger, opts...)
	summary, err := processor.Run(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNoValidPairs) {
			printError("Error: no valid image/text pairs found in %s\n", cfg.Dataset.InputLabels)
			os.Exit(2)
		}
		printError("Error: preparing dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nDataset prepared\n")
	fmt.Printf("Run ID: %s\n", summary.RunID)
	fmt.Printf("Label records: %d (rejected lines: %d)\n", summary.Parsed, summary.Rejected)
	fmt.Printf("Valid pairs: %d (invalid: %d)\n", summary.Valid, summary.Invalid)
	fmt.Printf("Train / Val: %d / %d\n", summary.Train, summary.Val)
	fmt.Printf("Processed: %d (failed: %d, %.1f%%)\n", summary.Processed, summary.Failed, summary.SuccessRate())
	fmt.Printf("Characters: %d\n", summary.CharacterCount)
	fmt.Printf("Output: %s\n", summary.OutputDir)
	fmt.Printf("Reports: %s\n", filepath.Clean(cfg.Dataset.ReportDir))
	fmt.Printf("Duration: %s\n", summary.Duration)
}

func openCatalog(ctx context.Context, c common.CatalogConfig, logger *slog.Logger) (*repo.DB, error) {
	db, err := repo.Open(ctx, repo.Config{
		DSN:             c.DSN,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
		DialTimeout:     c.DialTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
