// Package resize normalizes every image of a directory without a label file.
package resize

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/async"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/fsutil"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/imageio"
)

type FileResult struct {
	Path           string
	Dest           string
	OriginalWidth  int
	OriginalHeight int
	Width          int
	Height         int
	Err            string
}

func (r FileResult) OK() bool { return r.Err == "" }

type Resizer struct {
	normalizer *imageio.Normalizer
	pool       *async.Pool
	skipHidden bool
	logger     *slog.Logger
}

func NewResizer(n *imageio.Normalizer, pool *async.Pool, skipHidden bool, logger *slog.Logger) *Resizer {
	if logger == nil {
		logger = slog.Default()
	}
	if pool == nil {
		pool = async.NewPool(logger)
	}
	return &Resizer{normalizer: n, pool: pool, skipHidden: skipHidden, logger: logger}
}

// ResizeDirectory normalizes the images directly inside in (subdirectories are
// not entered) and writes "<stem>_resized.jpg" files to out. Extensions match
// case-insensitively. Returns per-file results in name order plus aggregate stats.
func (r *Resizer) ResizeDirectory(ctx context.Context, in, out string) ([]FileResult, entity.ResizeStats, error) {
	cfg := r.normalizer.Config()
	stats := entity.ResizeStats{
		InputDir:     in,
		OutputDir:    out,
		TargetHeight: cfg.TargetHeight,
		MinWidth:     cfg.MinWidth,
		MaxWidth:     cfg.MaxWidth,
		Quality:      cfg.Quality,
	}
	if strings.TrimSpace(in) == "" {
		return nil, stats, errors.New("input directory is required")
	}

	var sources []string
	err := filepath.WalkDir(in, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == in {
				return walkErr
			}
			stats.Scanned++
			stats.Failed++
			return nil
		}
		if path == in {
			return nil
		}
		stats.Scanned++
		if d.IsDir() {
			return filepath.SkipDir
		}
		if r.skipHidden && isHidden(path) {
			return nil
		}
		if _, ok := constants.ResizableExtensions[constants.NormalizeExt(filepath.Ext(path))]; !ok {
			return nil
		}
		stats.Matched++
		sources = append(sources, path)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk: %w", err)
	}
	if err := fsutil.EnsureDirs(out); err != nil {
		return nil, stats, err
	}

	results := make([]FileResult, 0, len(sources))
	var todo []FileResult
	taken := map[string]string{}
	for _, src := range sources {
		name := imageio.OutputName(filepath.Base(src))
		fr := FileResult{Path: src, Dest: filepath.Join(out, name)}
		if prev, dup := taken[name]; dup {
			fr.Err = fmt.Sprintf("duplicate output name %s (already written for %s)", name, filepath.Base(prev))
			r.logger.Warn("resize.file.duplicate", "path", src, "dest", name)
			results = append(results, fr)
			continue
		}
		taken[name] = src
		todo = append(todo, fr)
	}

	done, _, err := async.Map(ctx, r.pool, "resize", todo, func(ctx context.Context, fr FileResult) (FileResult, bool) {
		res := r.normalizer.Process(ctx, fr.Path, fr.Dest)
		fr.OriginalWidth, fr.OriginalHeight = res.OriginalWidth, res.OriginalHeight
		fr.Width, fr.Height = res.Width, res.Height
		if !res.OK {
			fr.Err = res.Err.Error()
		}
		return fr, res.OK
	})
	results = append(results, done...)
	slices.SortStableFunc(results, func(a, b FileResult) int { return strings.Compare(a.Path, b.Path) })
	summarize(results, &stats)
	if err != nil {
		return results, stats, err
	}

	r.logger.Info("resize.dir.ok", "input", in, "output", out,
		"matched", stats.Matched, "succeeded", stats.Succeeded, "failed", stats.Failed)
	return results, stats, nil
}

// summarize fills the success counters and size averages. Walk failures were
// already counted into Failed.
func summarize(results []FileResult, stats *entity.ResizeStats) {
	var orig, resized, ratio []float64
	for _, fr := range results {
		if !fr.OK() || fr.OriginalWidth == 0 {
			if fr.Path != "" {
				stats.Failed++
			}
			continue
		}
		stats.Succeeded++
		orig = append(orig, float64(fr.OriginalWidth))
		resized = append(resized, float64(fr.Width))
		ratio = append(ratio, float64(fr.Width)/float64(fr.OriginalWidth))
	}
	if len(orig) == 0 {
		return
	}
	stats.AvgOriginalWidth = stat.Mean(orig, nil)
	stats.AvgResizedWidth = stat.Mean(resized, nil)
	stats.AvgScaleRatio = stat.Mean(ratio, nil)
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
