package common

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
)

// Config holds all application configuration
type Config struct {
	Dataset  DatasetConfig
	Image    ImageConfig
	Split    SplitConfig
	Parse    ParseConfig
	Workers  WorkerConfig
	Catalog  CatalogConfig
	LogLevel string
}

// DatasetConfig holds input/output locations
type DatasetConfig struct {
	InputImages string
	InputLabels string
	OutputDir   string
	ReportDir   string
	WriteXLSX   bool
}

// ImageConfig holds normalization and validation bounds
type ImageConfig struct {
	TargetHeight  int
	MaxWidth      int
	MinWidth      int
	JPEGQuality   int
	MinSide       int
	MaxTextLength int
}

// SplitConfig holds train/val partition settings
type SplitConfig struct {
	TrainRatio float64
	Seed       uint64
}

// ParseConfig holds label-format settings
type ParseConfig struct {
	Formats       []constants.LabelFormat
	AllowBareText bool
}

// WorkerConfig sizes the per-record worker pools
type WorkerConfig struct {
	Count     int
	QueueSize int
}

// CatalogConfig holds database-related configuration for the run catalog.
// An empty DSN disables the catalog.
type CatalogConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	workers := getEnvAsInt("WORKERS", runtime.NumCPU())
	return &Config{
		Dataset: DatasetConfig{
			InputImages: getEnv("INPUT_IMAGES", "input/images"),
			InputLabels: getEnv("INPUT_LABELS", "input/labels.txt"),
			OutputDir:   getEnv("OUTPUT_DIR", "output/recognition_dataset"),
			ReportDir:   getEnv("REPORT_DIR", "output/validation_reports"),
			WriteXLSX:   getEnvAsBool("WRITE_XLSX", false),
		},
		Image: ImageConfig{
			TargetHeight:  getEnvAsInt("TARGET_HEIGHT", 32),
			MaxWidth:      getEnvAsInt("MAX_WIDTH", 512),
			MinWidth:      getEnvAsInt("MIN_WIDTH", 16),
			JPEGQuality:   getEnvAsInt("JPEG_QUALITY", 95),
			MinSide:       getEnvAsInt("MIN_IMAGE_SIDE", 8),
			MaxTextLength: getEnvAsInt("MAX_TEXT_LENGTH", 100),
		},
		Split: SplitConfig{
			TrainRatio: getEnvAsFloat64("TRAIN_RATIO", 0.8),
			Seed:       getEnvAsUint64("SPLIT_SEED", 42),
		},
		Parse: ParseConfig{
			Formats:       getEnvAsFormats("LABEL_FORMATS", constants.AllFormats()),
			AllowBareText: getEnvAsBool("ALLOW_BARE_TEXT", true),
		},
		Workers: WorkerConfig{
			Count:     workers,
			QueueSize: getEnvAsInt("QUEUE_SIZE", 2*workers),
		},
		Catalog: CatalogConfig{
			DSN:             getEnv("CATALOG_DSN", ""),
			MaxConns:        getEnvAsInt32("CATALOG_MAX_CONNS", 4),
			MinConns:        getEnvAsInt32("CATALOG_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("CATALOG_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("CATALOG_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("CATALOG_DIAL_TIMEOUT", 3*time.Second),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsFormats(key string, defaultValue []constants.LabelFormat) []constants.LabelFormat {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	formats, ok := ParseFormats(value)
	if !ok {
		return defaultValue
	}
	return formats
}

// ParseFormats parses a comma-separated format list, keeping precedence order
// regardless of the order given.
func ParseFormats(list string) ([]constants.LabelFormat, bool) {
	want := map[constants.LabelFormat]bool{}
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, ok := constants.Canonicalize(part)
		if !ok {
			return nil, false
		}
		want[f] = true
	}
	var out []constants.LabelFormat
	for _, f := range constants.AllFormats() {
		if want[f] {
			out = append(out, f)
		}
	}
	return out, len(out) > 0
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("INPUT_IMAGES", c.Dataset.InputImages, Required).
		Field("INPUT_LABELS", c.Dataset.InputLabels, Required).
		Field("OUTPUT_DIR", c.Dataset.OutputDir, Required).
		Field("REPORT_DIR", c.Dataset.ReportDir, Required).
		Field("TARGET_HEIGHT", c.Image.TargetHeight, Positive).
		Field("MIN_WIDTH", c.Image.MinWidth, Positive).
		Field("MAX_WIDTH", c.Image.MaxWidth, Positive).
		Field("JPEG_QUALITY", c.Image.JPEGQuality, IntBetween(1, 100)).
		Field("MIN_IMAGE_SIDE", c.Image.MinSide, Positive).
		Field("MAX_TEXT_LENGTH", c.Image.MaxTextLength, Positive).
		Field("TRAIN_RATIO", c.Split.TrainRatio, OpenUnitInterval).
		Field("WORKERS", c.Workers.Count, Positive).
		Field("QUEUE_SIZE", c.Workers.QueueSize, Positive).
		Check(c.Image.MinWidth <= c.Image.MaxWidth, "MIN_WIDTH", c.Image.MinWidth, "must not exceed MAX_WIDTH").
		Check(len(c.Parse.Formats) > 0, "LABEL_FORMATS", c.Parse.Formats, "must enable at least one format")
	return ValidateAndReturnError("CONFIG_ERROR", v)
}
