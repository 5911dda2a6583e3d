// Package pipeline turns a label file and an image directory into a split,
// normalized and annotated recognition dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/common"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/dictionary"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/fsutil"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/labels"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/metadata"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/repository"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/split"
)

// Config locates inputs and outputs of one run.
type Config struct {
	LabelsPath string
	ImageDir   string
	OutputDir  string
	ReportDir  string // empty disables report files
	WriteXLSX  bool
	TrainRatio float64
	Seed       uint64
}

// Processor runs parse, validate, split, normalize and the dataset artifacts.
type Processor struct {
	logger    *slog.Logger
	cfg       Config
	parse     labels.Options
	validate  *ValidateStage
	normalize *NormalizeStage
	runs      repository.RunRepository
	samples   repository.SampleRepository
}

type Option func(*Processor)

// WithCatalog records every run and its samples.
func WithCatalog(runs repository.RunRepository, samples repository.SampleRepository) Option {
	return func(p *Processor) {
		p.runs = runs
		p.samples = samples
	}
}

func NewProcessor(logger *slog.Logger, cfg Config, parse labels.Options, validate *ValidateStage, normalize *NormalizeStage, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if parse.Logger == nil {
		parse.Logger = logger
	}
	if parse.ImageDir == "" {
		parse.ImageDir = cfg.ImageDir
	}
	p := &Processor{logger: logger, cfg: cfg, parse: parse, validate: validate, normalize: normalize}
	for _, o := range opts {
		o(p)
	}
	return p
}

// runState carries what the stages produced, for reports and the catalog.
type runState struct {
	records    []entity.LabelRecord
	rejections []entity.ParseRejection
	pairs      []entity.ValidatedPair
	split      entity.DatasetSplit
	outcomes   []NormalizeOutcome
}

// Run executes the whole preparation. Per-item problems are counted in the
// summary; the only data condition that stops the run is common.ErrNoValidPairs,
// in which case nothing is written under OutputDir.
func (p *Processor) Run(ctx context.Context) (entity.ProcessingSummary, error) {
	start := time.Now()
	ctx, runID := common.EnsureRunID(ctx)
	logger := p.logger.With("run_id", runID)
	sum := entity.ProcessingSummary{RunID: runID, OutputDir: p.cfg.OutputDir}

	if _, err := split.New(p.cfg.TrainRatio, p.cfg.Seed); err != nil {
		return sum, err
	}
	catalogID := p.startCatalogRun(ctx, runID)

	st, err := p.run(ctx, logger, &sum)
	sum.Duration = time.Since(start)
	p.finishCatalogRun(ctx, catalogID, st, sum, err)
	if err != nil {
		if errors.Is(err, common.ErrNoValidPairs) {
			logger.Error("pipeline.run.no_valid_pairs", "parsed", sum.Parsed, "invalid", sum.Invalid)
		} else {
			logger.Error("pipeline.run.failed", "error", err)
		}
		return sum, err
	}

	logger.Info("pipeline.run.ok",
		"valid", sum.Valid,
		"invalid", sum.Invalid,
		"train", sum.Train,
		"val", sum.Val,
		"processed", sum.Processed,
		"failed", sum.Failed,
		"characters", sum.CharacterCount,
		"elapsed_ms", sum.Duration.Milliseconds(),
	)
	return sum, nil
}

func (p *Processor) run(ctx context.Context, logger *slog.Logger, sum *entity.ProcessingSummary) (*runState, error) {
	st := &runState{}

	// 1) parse
	records, rejections, err := labels.ParseFile(ctx, p.cfg.LabelsPath, p.parse)
	if err != nil {
		return st, common.WrapError(err, "parse labels")
	}
	st.records, st.rejections = records, rejections
	sum.Parsed, sum.Rejected = len(records), len(rejections)
	for _, r := range records {
		if r.Unreliable {
			sum.Unreliable++
		}
	}
	logger.Info("pipeline.parse.ok", "records", sum.Parsed, "rejected", sum.Rejected, "unreliable", sum.Unreliable)

	// 2) validate
	pairs, tally, err := p.validate.Run(ctx, records)
	if err != nil {
		return st, err
	}
	st.pairs = pairs
	sum.Valid, sum.Invalid = tally.Succeeded, tally.Failed
	valid := ValidOnly(pairs)
	if len(valid) == 0 {
		return st, common.NewAppError("NO_VALID_PAIRS",
			fmt.Sprintf("%d records parsed, none valid", len(records)), common.ErrNoValidPairs)
	}

	// 3) split
	splitter, _ := split.New(p.cfg.TrainRatio, p.cfg.Seed)
	ds, err := splitter.Split(valid)
	if err != nil {
		return st, err
	}
	st.split = ds
	sum.Train, sum.Val = len(ds.Train), len(ds.Val)
	logger.Info("pipeline.split.ok", "train", sum.Train, "val", sum.Val, "seed", p.cfg.Seed)

	// 4) normalize
	root := p.cfg.OutputDir
	if err := fsutil.EnsureDirs(
		filepath.Join(root, constants.ImagesDir, string(constants.SplitTrain)),
		filepath.Join(root, constants.ImagesDir, string(constants.SplitVal)),
		filepath.Join(root, constants.AnnotationsDir),
	); err != nil {
		return st, err
	}
	tasks, dups := p.normalize.Tasks(ds)
	outcomes, ntally, err := p.normalize.Run(ctx, tasks)
	st.outcomes = append(outcomes, dups...)
	sum.Processed = ntally.Succeeded
	sum.Failed = ntally.Failed + len(dups)
	if err != nil {
		return st, err
	}

	// 5) annotations, successful items only
	if err := writeAnnotations(root, outcomes); err != nil {
		return st, err
	}

	// 6) dictionary and metadata over every valid pair
	dict := dictionary.Build(ds.Texts())
	md := metadata.Aggregate(ds.Train, ds.Val, dict)
	md.DatasetInfo.RunID = sum.RunID
	if err := metadata.Save(root, md, dict); err != nil {
		return st, common.WrapError(err, "save metadata")
	}
	sum.CharacterCount = dict.Len()

	// 7) reports
	if err := p.writeReports(st, *sum); err != nil {
		// Dataset files are already written at this point.
		logger.Warn("pipeline.reports.failed", "error", err)
	}
	return st, nil
}

func (p *Processor) startCatalogRun(ctx context.Context, runID string) uuid.UUID {
	if p.runs == nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(runID)
	if err != nil {
		id = uuid.New()
	}
	run, err := p.runs.Start(ctx, entity.Run{
		ID:          id,
		InputLabels: p.cfg.LabelsPath,
		OutputDir:   p.cfg.OutputDir,
		Seed:        p.cfg.Seed,
		TrainRatio:  p.cfg.TrainRatio,
	})
	if err != nil {
		p.logger.Warn("pipeline.catalog.start_failed", "run_id", runID, "error", err)
		return uuid.Nil
	}
	return run.ID
}

// finishCatalogRun logs catalog failures without failing the run.
func (p *Processor) finishCatalogRun(ctx context.Context, id uuid.UUID, st *runState, sum entity.ProcessingSummary, runErr error) {
	if p.runs == nil || id == uuid.Nil {
		return
	}
	// Record the outcome even when the run was cancelled.
	ctx = context.WithoutCancel(ctx)
	if p.samples != nil && st != nil {
		if err := p.samples.InsertBatch(ctx, samplesFor(id, st)); err != nil {
			p.logger.Warn("pipeline.catalog.samples_failed", "run_id", id, "error", err)
		}
	}
	out := repository.RunOutcome{
		Valid:     sum.Valid,
		Invalid:   sum.Invalid,
		Processed: sum.Processed,
		Failed:    sum.Failed,
	}
	if runErr != nil {
		out.ErrorMessage = runErr.Error()
	}
	if err := p.runs.Finish(ctx, id, out); err != nil {
		p.logger.Warn("pipeline.catalog.finish_failed", "run_id", id, "error", err)
	}
}

// samplesFor gives every parsed record its terminal status.
func samplesFor(runID uuid.UUID, st *runState) []entity.Sample {
	byLine := make(map[int]NormalizeOutcome, len(st.outcomes))
	for _, o := range st.outcomes {
		byLine[o.Task.Pair.Record.Line] = o
	}
	out := make([]entity.Sample, 0, len(st.pairs))
	for _, pair := range st.pairs {
		rec := pair.Record
		s := entity.Sample{RunID: runID, Line: rec.Line, ImageRef: rec.ImageRef, Text: rec.Text, Reason: pair.Reason}
		switch o, ok := byLine[rec.Line]; {
		case !pair.Valid:
			s.Status = string(constants.SampleInvalid)
		case ok && o.OK():
			s.Split, s.Status, s.OutputRel = string(o.Task.Split), string(constants.SampleWritten), o.Task.Rel
		case ok:
			s.Split, s.Status = string(o.Task.Split), string(constants.SampleNormFailed)
			if o.Result.Err != nil {
				s.Reason = o.Result.Err.Error()
			}
		default:
			// valid but never normalized: the run stopped before this item
			s.Status = string(constants.SampleNormFailed)
		}
		out = append(out, s)
	}
	return out
}
