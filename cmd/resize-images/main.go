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
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/common"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/imageio"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/report"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/resize"
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
		in         = flag.String("in", "", "directory of images to resize (required)")
		out        = flag.String("out", "", "output directory (required)")
		height     = flag.Int("height", cfg.Image.TargetHeight, "target height")
		minWidth   = flag.Int("min-width", cfg.Image.MinWidth, "minimum output width")
		maxWidth   = flag.Int("max-width", cfg.Image.MaxWidth, "maximum output width")
		quality    = flag.Int("quality", cfg.Image.JPEGQuality, "JPEG quality (1-100)")
		workers    = flag.Int("workers", cfg.Workers.Count, "concurrent image workers")
		skipHidden = flag.Bool("skip-hidden", true, "ignore dot-files")
	)
	flag.Parse()

	if *in == "" || *out == "" {
		printError("Error: --in and --out are required\n")
		os.Exit(1)
	}
	v := common.NewValidator().
		Field("height", *height, common.Positive).
		Field("min-width", *minWidth, common.Positive).
		Field("max-width", *maxWidth, common.Positive).
		Field("quality", *quality, common.IntBetween(1, 100)).
		Field("workers", *workers, common.Positive).
		Check(*minWidth <= *maxWidth, "min-width", *minWidth, "must not exceed max-width")
	if err := common.ValidateAndReturnError("INVALID_FLAGS", v); err != nil {
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

	normalizer := imageio.NewNormalizer(imageio.Config{
		TargetHeight: *height,
		MinWidth:     *minWidth,
		MaxWidth:     *maxWidth,
		Quality:      *quality,
	}, imageio.NewLoader(), logger)
	pool := async.NewPool(logger, async.WithWorkers(*workers))
	resizer := resize.NewResizer(normalizer, pool, *skipHidden, logger)

	results, stats, err := resizer.ResizeDirectory(ctx, *in, *out)
	if err != nil {
		printError("Error: resizing %s: %v\n", *in, err)
		os.Exit(1)
	}
	for _, r := range results {
		if !r.OK() {
			printError("  %s: %s\n", filepath.Base(r.Path), r.Err)
		}
	}

	if err := report.WriteResizeReport(os.Stdout, stats); err != nil {
		printError("Error: printing report: %v\n", err)
	}
	reportPath := filepath.Join(*out, constants.ResizeReportFile)
	if err := report.Save(reportPath, func(w io.Writer) error {
		return report.WriteResizeReport(w, stats)
	}); err != nil {
		printError("Error: writing report: %v\n", err)
		os.Exit(1)
	}
	if stats.Failed > 0 {
		os.Exit(3)
	}
}
