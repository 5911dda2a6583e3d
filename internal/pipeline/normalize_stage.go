package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"path/filepath"
	"slices"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/async"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/imageio"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/validator"
)

// ErrDuplicateOutput marks a pair whose destination name is already taken within its split.
var ErrDuplicateOutput = errors.New("duplicate output name")

// NormalizeTask is one image to write into a split.
type NormalizeTask struct {
	Split constants.Split
	Pair  entity.ValidatedPair
	// Rel is the path written to the annotation file, relative to the dataset root.
	Rel string
}

// NormalizeOutcome is the per-item result of the normalize stage.
type NormalizeOutcome struct {
	Task   NormalizeTask
	Result imageio.Result
}

func (o NormalizeOutcome) OK() bool { return o.Result.OK }

type NormalizeStage struct {
	Logger     *slog.Logger
	Normalizer *imageio.Normalizer
	Pool       *async.Pool
	ImageDir   string
	OutputDir  string
}

func NewNormalizeStage(n *imageio.Normalizer, pool *async.Pool, imageDir, outputDir string, logger *slog.Logger) *NormalizeStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &NormalizeStage{Logger: logger, Normalizer: n, Pool: pool, ImageDir: imageDir, OutputDir: outputDir}
}

// Tasks lays out the split in split order. Two pairs of one split that map
// to the same output name would overwrite each other, so every pair after
// the first is returned as a failed outcome instead of a task.
func (s *NormalizeStage) Tasks(ds entity.DatasetSplit) ([]NormalizeTask, []NormalizeOutcome) {
	var tasks []NormalizeTask
	var dups []NormalizeOutcome
	for _, split := range constants.Splits {
		seen := map[string]int{}
		for _, p := range ds.Pairs(split) {
			name := imageio.OutputName(p.Record.ImageRef)
			t := NormalizeTask{
				Split: split,
				Pair:  p,
				Rel:   path.Join(constants.ImagesDir, string(split), name),
			}
			if first, ok := seen[name]; ok {
				s.Logger.Warn("pipeline.normalize.duplicate", "split", split, "line", p.Record.Line, "first_line", first, "name", name)
				dups = append(dups, NormalizeOutcome{Task: t, Result: imageio.Result{
					Source: p.Record.ImageRef,
					Dest:   t.Rel,
					Err:    ErrDuplicateOutput,
				}})
				continue
			}
			seen[name] = p.Record.Line
			tasks = append(tasks, t)
		}
	}
	return tasks, dups
}

// Run writes every task's image and returns outcomes in task order. After
// cancellation only the tasks that actually ran have an outcome.
func (s *NormalizeStage) Run(ctx context.Context, tasks []NormalizeTask) ([]NormalizeOutcome, async.Tally, error) {
	outcomes, tally, err := async.Map(ctx, s.Pool, "normalize", tasks, func(ctx context.Context, t NormalizeTask) (NormalizeOutcome, bool) {
		src, _ := validator.Resolve(s.ImageDir, t.Pair.Record.ImageRef)
		dst := filepath.Join(s.OutputDir, filepath.FromSlash(t.Rel))
		res := s.Normalizer.Process(ctx, src, dst)
		if !res.OK {
			s.Logger.Warn("pipeline.normalize.failed", "line", t.Pair.Record.Line, "image", t.Pair.Record.ImageRef, "error", res.Err)
		}
		return NormalizeOutcome{Task: t, Result: res}, res.OK
	})
	if err != nil {
		outcomes = slices.DeleteFunc(outcomes, func(o NormalizeOutcome) bool { return o.Task.Rel == "" })
	}
	return outcomes, tally, err
}
