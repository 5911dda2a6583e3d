package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/ocr-dataset-prep/internal/async"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/common"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/imageio"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/labels"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/validator"
)

// FromConfig assembles a Processor and its stages from application config.
func FromConfig(c *common.Config, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	loader := imageio.NewLoader()
	pool := async.NewPool(logger, async.WithWorkers(c.Workers.Count), async.WithQueueSize(c.Workers.QueueSize))

	v := validator.New(validator.Config{
		ImageDir:      c.Dataset.InputImages,
		MinSide:       c.Image.MinSide,
		MaxTextLength: c.Image.MaxTextLength,
	}, loader, logger)
	n := imageio.NewNormalizer(imageio.Config{
		TargetHeight: c.Image.TargetHeight,
		MinWidth:     c.Image.MinWidth,
		MaxWidth:     c.Image.MaxWidth,
		Quality:      c.Image.JPEGQuality,
	}, loader, logger)

	return NewProcessor(logger,
		Config{
			LabelsPath: c.Dataset.InputLabels,
			ImageDir:   c.Dataset.InputImages,
			OutputDir:  c.Dataset.OutputDir,
			ReportDir:  c.Dataset.ReportDir,
			WriteXLSX:  c.Dataset.WriteXLSX,
			TrainRatio: c.Split.TrainRatio,
			Seed:       c.Split.Seed,
		},
		labels.Options{
			ImageDir:      c.Dataset.InputImages,
			Formats:       c.Parse.Formats,
			AllowBareText: c.Parse.AllowBareText,
			Logger:        logger,
		},
		NewValidateStage(v, pool, logger),
		NewNormalizeStage(n, pool, c.Dataset.InputImages, c.Dataset.OutputDir, logger),
		opts...,
	)
}
