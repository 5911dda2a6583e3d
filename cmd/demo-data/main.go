package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/ocr-dataset-prep/internal/common"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/demo"
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
		dir      = flag.String("dir", "demo", "directory to write demo data into")
		fontPath = flag.String("font", "", "TrueType/OpenType font for rendering (optional)")
		fontSize = flag.Float64("font-size", 24, "font size in points when --font is set")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	images, err := demo.Generate(*dir, demo.Options{FontPath: *fontPath, FontSize: *fontSize, Logger: logger})
	if err != nil {
		printError("Error: generating demo data: %v\n", err)
		os.Exit(1)
	}

	imgDir := filepath.Join(*dir, demo.ImagesDir)
	fmt.Printf("\nDemo data written\n")
	fmt.Printf("Images: %d in %s\n", len(images), imgDir)
	fmt.Printf("Labels: %s\n", filepath.Join(*dir, demo.LabelsFile))
	fmt.Printf("Sample label files: %s\n", filepath.Join(*dir, demo.SamplesDir))
	fmt.Printf("\nTry: prepare-dataset --images %s --labels %s\n", imgDir, filepath.Join(*dir, demo.LabelsFile))
}
