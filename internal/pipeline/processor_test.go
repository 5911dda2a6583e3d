package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/async"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/common"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/imageio"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/repository"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 3), uint8(y * 5), 128, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
}

type fixture struct {
	cfg    *common.Config
	images string
	out    string
	report string
}

func newFixture(t *testing.T, labels string, images map[string][2]int) fixture {
	t.Helper()
	root := t.TempDir()
	fx := fixture{
		images: filepath.Join(root, "images"),
		out:    filepath.Join(root, "dataset"),
		report: filepath.Join(root, "reports"),
	}
	if err := os.MkdirAll(fx.images, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, size := range images {
		writeJPEG(t, filepath.Join(fx.images, name), size[0], size[1])
	}
	labelsPath := filepath.Join(root, "labels.txt")
	if err := os.WriteFile(labelsPath, []byte(labels), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := common.LoadConfig()
	cfg.Dataset = common.DatasetConfig{
		InputImages: fx.images,
		InputLabels: labelsPath,
		OutputDir:   fx.out,
		ReportDir:   fx.report,
		WriteXLSX:   true,
	}
	cfg.Split = common.SplitConfig{TrainRatio: 0.8, Seed: 42}
	cfg.Workers = common.WorkerConfig{Count: 2, QueueSize: 4}
	cfg.Parse.Formats = constants.AllFormats()
	cfg.Parse.AllowBareText = true
	fx.cfg = cfg
	return fx
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s := strings.TrimSuffix(string(b), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

const threeLines = "a.jpg\tHELLO\nb.jpg TEST\n{\"image\":\"c.jpg\",\"text\":\"X\"}\n\n"

func TestRunThreeLineScenario(t *testing.T) {
	fx := newFixture(t, threeLines, map[string][2]int{
		"a.jpg": {120, 40},
		"b.jpg": {60, 30},
		"c.jpg": {20, 20},
	})
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: "sqlite://:memory:"}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	runs := repository.NewRunRepository(db, quietLogger())
	samples := repository.NewSampleRepository(db, quietLogger())

	p := FromConfig(fx.cfg, quietLogger(), WithCatalog(runs, samples))
	sum, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Parsed != 3 || sum.Valid != 3 || sum.Invalid != 0 {
		t.Fatalf("summary: %+v", sum)
	}
	if sum.Train != 2 || sum.Val != 1 || sum.Processed != 3 || sum.Failed != 0 {
		t.Fatalf("split/normalize: %+v", sum)
	}

	train := readLines(t, filepath.Join(fx.out, constants.AnnotationsDir, "train_annotation.txt"))
	val := readLines(t, filepath.Join(fx.out, constants.AnnotationsDir, "val_annotation.txt"))
	if len(train) != 2 || len(val) != 1 {
		t.Fatalf("annotations train=%q val=%q", train, val)
	}
	for _, l := range append(train, val...) {
		rel, _, ok := strings.Cut(l, "\t")
		if !ok {
			t.Fatalf("annotation line without tab: %q", l)
		}
		f, err := os.Open(filepath.Join(fx.out, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("annotated image missing: %v", err)
		}
		cfg, err := jpeg.DecodeConfig(f)
		f.Close()
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Height != 32 || cfg.Width < 16 || cfg.Width > 512 {
			t.Fatalf("%s is %dx%d", rel, cfg.Width, cfg.Height)
		}
	}
	if !strings.HasPrefix(val[0], "images/val/") || !strings.HasPrefix(train[0], "images/train/") {
		t.Fatalf("unexpected paths: %q %q", train, val)
	}

	dict := readLines(t, filepath.Join(fx.out, constants.MetadataDir, constants.CharDictFile))
	if len(dict) != 4+7 || dict[0] != "<blank>" || dict[3] != "<unk>" {
		t.Fatalf("dictionary = %q", dict)
	}
	if sum.CharacterCount != len(dict) {
		t.Fatalf("character count %d, dict %d", sum.CharacterCount, len(dict))
	}
	if _, err := os.Stat(filepath.Join(fx.out, constants.MetadataDir, constants.DatasetInfoFile)); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{constants.SummaryFile, constants.ReportWorkbookFile} {
		if _, err := os.Stat(filepath.Join(fx.report, name)); err != nil {
			t.Fatalf("report %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(fx.report, constants.ValidationErrorsFile)); !os.IsNotExist(err) {
		t.Fatalf("no validation errors expected, stat err = %v", err)
	}

	list, err := runs.List(ctx, 5)
	if err != nil || len(list) != 1 {
		t.Fatalf("runs: %v %d", err, len(list))
	}
	if list[0].Status != string(constants.RunOK) || list[0].Processed != 3 {
		t.Fatalf("catalog run: %+v", list[0])
	}
	counts, err := samples.CountByRun(ctx, list[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts[string(constants.SampleWritten)] != 3 {
		t.Fatalf("sample counts = %v", counts)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	labels := ""
	images := map[string][2]int{}
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		labels += n + ".jpg\t" + strings.ToUpper(n) + "\n"
		images[n+".jpg"] = [2]int{40, 20}
	}
	var first []string
	for i := 0; i < 2; i++ {
		fx := newFixture(t, labels, images)
		if _, err := FromConfig(fx.cfg, quietLogger()).Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		got := readLines(t, filepath.Join(fx.out, constants.AnnotationsDir, "train_annotation.txt"))
		if len(got) != 6 {
			t.Fatalf("train size = %d, want floor(0.8*8)=6", len(got))
		}
		if i == 0 {
			first = got
			continue
		}
		if strings.Join(got, "\n") != strings.Join(first, "\n") {
			t.Fatalf("runs differ:\n%q\n%q", first, got)
		}
	}
}

func TestRunRecordsInvalidPairs(t *testing.T) {
	labels := "a.jpg\tHELLO\nmissing.jpg\tGONE\nsmall.jpg\tTINY\nb.jpg\t" + strings.Repeat("x", 101) + "\n"
	fx := newFixture(t, labels, map[string][2]int{
		"a.jpg":     {40, 20},
		"b.jpg":     {40, 20},
		"small.jpg": {6, 20},
	})
	sum, err := FromConfig(fx.cfg, quietLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Valid != 1 || sum.Invalid != 3 || sum.Train+sum.Val != 1 {
		t.Fatalf("summary: %+v", sum)
	}
	lines := readLines(t, filepath.Join(fx.report, constants.ValidationErrorsFile))
	body := strings.Join(lines, "\n")
	for _, want := range []string{
		"Line 2: image file not found",
		"Line 3: image too small: 6x20",
		"Line 4: text too long: 101 characters",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("validation_errors.txt missing %q", want)
		}
	}
}

func TestRunNoValidPairsWritesNothing(t *testing.T) {
	fx := newFixture(t, "missing.jpg\tHELLO\n\nnope.png other\n", nil)
	fx.cfg.Parse.AllowBareText = false
	sum, err := FromConfig(fx.cfg, quietLogger()).Run(context.Background())
	if !errors.Is(err, common.ErrNoValidPairs) {
		t.Fatalf("err = %v", err)
	}
	if sum.Parsed != 2 || sum.Invalid != 2 {
		t.Fatalf("summary: %+v", sum)
	}
	for _, dir := range []string{fx.out, fx.report} {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Fatalf("%s should not exist, stat err = %v", dir, err)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	fx := newFixture(t, threeLines, map[string][2]int{"a.jpg": {40, 20}, "b.jpg": {40, 20}, "c.jpg": {40, 20}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := FromConfig(fx.cfg, quietLogger()).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if _, err := os.Stat(fx.out); !os.IsNotExist(err) {
		t.Fatalf("output written after cancellation: %v", err)
	}
}

func TestRunRejectsBadRatio(t *testing.T) {
	fx := newFixture(t, threeLines, nil)
	fx.cfg.Split.TrainRatio = 1
	if _, err := FromConfig(fx.cfg, quietLogger()).Run(context.Background()); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestTasksFlagsDuplicateNames(t *testing.T) {
	pair := func(line int, ref string) entity.ValidatedPair {
		return entity.ValidatedPair{Record: entity.LabelRecord{Line: line, ImageRef: ref, Text: "t"}, Valid: true}
	}
	ds := entity.DatasetSplit{
		Train: []entity.ValidatedPair{pair(1, "x/a.jpg"), pair(2, "y/a.png"), pair(3, "b.jpg")},
		Val:   []entity.ValidatedPair{pair(4, "a.jpg")},
	}
	s := NewNormalizeStage(nil, nil, "", "", quietLogger())
	tasks, dups := s.Tasks(ds)
	if len(tasks) != 3 || len(dups) != 1 {
		t.Fatalf("tasks=%d dups=%d", len(tasks), len(dups))
	}
	if dups[0].Task.Pair.Record.Line != 2 || !errors.Is(dups[0].Result.Err, ErrDuplicateOutput) || dups[0].OK() {
		t.Fatalf("duplicate outcome: %+v", dups[0])
	}
	if tasks[0].Rel != "images/train/a_resized.jpg" || tasks[2].Rel != "images/val/a_resized.jpg" {
		t.Fatalf("rel paths: %q %q", tasks[0].Rel, tasks[2].Rel)
	}
}

func TestNormalizeStageCancelledSkipsTasks(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, filepath.Join(dir, "a.jpg"), 40, 20)
	n := imageio.NewNormalizer(imageio.Config{}, nil, quietLogger())
	s := NewNormalizeStage(n, async.NewPool(quietLogger(), async.WithWorkers(2)), dir, filepath.Join(dir, "out"), quietLogger())
	ds := entity.DatasetSplit{Train: []entity.ValidatedPair{
		{Record: entity.LabelRecord{Line: 1, ImageRef: "a.jpg", Text: "A"}, Valid: true},
	}}
	tasks, _ := s.Tasks(ds)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes, tally, err := s.Run(ctx, tasks)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(outcomes) != 0 || tally.Failed != 0 || tally.Skipped != len(tasks) {
		t.Fatalf("outcomes=%d tally=%+v", len(outcomes), tally)
	}
}
