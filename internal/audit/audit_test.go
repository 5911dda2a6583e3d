package audit

import (
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/async"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/common"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/dictionary"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/metadata"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 40, 32))); err != nil {
		t.Fatal(err)
	}
}

// buildDataset lays out a dataset with one good and several bad train lines.
func buildDataset(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "images/train/a_resized.jpg"))
	writePNG(t, filepath.Join(root, "images/train/long_resized.jpg"))
	writePNG(t, filepath.Join(root, "images/val/c_resized.jpg"))
	writeFile(t, filepath.Join(root, "images/train/broken_resized.jpg"), "not an image")

	writeFile(t, filepath.Join(root, "annotations/train_annotation.txt"), strings.Join([]string{
		"images/train/a_resized.jpg\tHELLO",
		"images/train/missing_resized.jpg\tGONE",
		"images/train/broken_resized.jpg\tBAD",
		"no tab here",
		"",
		"images/train/a_resized.jpg\t  ",
		"images/train/long_resized.jpg\t" + strings.Repeat("y", 120),
		"../outside.jpg\tESCAPE",
	}, "\n")+"\n")
	writeFile(t, filepath.Join(root, "annotations/val_annotation.txt"), "images/val/c_resized.jpg\tX\n")

	dict := dictionary.Build([]string{"HELLO", "X", strings.Repeat("y", 120)})
	pairs := []entity.ValidatedPair{
		{Record: entity.LabelRecord{Text: "HELLO"}, Valid: true},
		{Record: entity.LabelRecord{Text: strings.Repeat("y", 120)}, Valid: true},
	}
	md := metadata.Aggregate(pairs, []entity.ValidatedPair{{Record: entity.LabelRecord{Text: "X"}, Valid: true}}, dict)
	if err := metadata.Save(root, md, dict); err != nil {
		t.Fatal(err)
	}
	return root
}

func newAuditor(cfg Config) *Auditor {
	return New(cfg, nil, async.NewPool(quiet(), async.WithWorkers(2)), quiet())
}

func TestAudit(t *testing.T) {
	root := buildDataset(t)
	out, err := newAuditor(Config{}).Audit(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.MissingDirs) != 0 || len(out.Splits) != 2 {
		t.Fatalf("outcome: %+v", out)
	}
	train := out.Splits[0]
	if train.Lines != 8 || train.Valid != 2 || train.Invalid != 5 {
		t.Fatalf("train audit: %+v", train)
	}
	if train.MinLength != 5 || train.MaxLength != 120 || train.UniqueChars != 5 {
		t.Fatalf("train stats: %+v", train)
	}
	wantIssues := []string{
		"train line 2: Image not found: images/train/missing_resized.jpg",
		"train line 3: Cannot load image: images/train/broken_resized.jpg",
		"train line 4: No tab separator found",
		"train line 6: No tab separator found", // trailing blanks are trimmed with the line
		"train line 7: Text too long (120 chars): ",
		"train line 8: Image not found: ../outside.jpg",
	}
	if len(train.Issues) != len(wantIssues) {
		t.Fatalf("issues = %q", train.Issues)
	}
	for i, want := range wantIssues {
		if !strings.HasPrefix(train.Issues[i], want) {
			t.Errorf("issue %d = %q, want prefix %q", i, train.Issues[i], want)
		}
	}
	if out.Splits[1].Valid != 1 || len(out.Splits[1].Issues) != 0 {
		t.Fatalf("val audit: %+v", out.Splits[1])
	}
	if !out.MetadataValid || out.DictEntries != 4+6 {
		t.Fatalf("metadata valid=%v notes=%q dict=%d", out.MetadataValid, out.MetadataNotes, out.DictEntries)
	}
}

func TestAuditMaxSamples(t *testing.T) {
	root := buildDataset(t)
	out, err := newAuditor(Config{MaxSamples: 2}).Audit(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	train := out.Splits[0]
	if train.Lines != 8 || train.Valid+train.Invalid != 2 {
		t.Fatalf("train audit: %+v", train)
	}
}

func TestAuditMissingDirs(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "images", "train"), 0o755); err != nil {
		t.Fatal(err)
	}
	out, err := newAuditor(Config{}).Audit(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(out.MissingDirs, ",") != "images/val,annotations,metadata" || len(out.Splits) != 0 {
		t.Fatalf("outcome: %+v", out)
	}

	if _, err := newAuditor(Config{}).Audit(context.Background(), filepath.Join(root, "nope")); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("missing root: %v", err)
	}
}

func TestAuditMetadataProblems(t *testing.T) {
	root := buildDataset(t)
	writeFile(t, filepath.Join(root, constants.MetadataDir, constants.CharDictFile), "<blank>\n<eos>\n")
	if err := os.Remove(filepath.Join(root, constants.AnnotationsDir, "val_annotation.txt")); err != nil {
		t.Fatal(err)
	}

	out, err := newAuditor(Config{}).Audit(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if out.MetadataValid || out.DictEntries != 2 {
		t.Fatalf("metadata valid=%v dict=%d", out.MetadataValid, out.DictEntries)
	}
	if len(out.Splits[1].Issues) != 1 || out.Splits[1].Issues[0] != "val: Annotation file not found" {
		t.Fatalf("val issues: %q", out.Splits[1].Issues)
	}

	writeFile(t, filepath.Join(root, constants.MetadataDir, constants.DatasetInfoFile), "{not json")
	out, _ = newAuditor(Config{}).Audit(context.Background(), root)
	if out.MetadataValid || len(out.MetadataNotes) == 0 || !strings.Contains(out.MetadataNotes[0], "invalid") {
		t.Fatalf("notes: %q", out.MetadataNotes)
	}
}

func TestCheckLineText(t *testing.T) {
	a := newAuditor(Config{SkipImages: true, MaxTextLength: 3})
	cases := []struct {
		line  string
		valid bool
		issue string
	}{
		{"x.jpg\tabc", true, ""},
		{"x.jpg\t \u3000", false, "Empty text content"},
		{"x.jpg\tabcd", true, "Text too long (4 chars): abcd..."},
	}
	for _, c := range cases {
		got := a.checkLine("", lineCheck{num: 1, text: c.line})
		if got.valid != c.valid || got.issue != c.issue {
			t.Errorf("%q: valid=%v issue=%q", c.line, got.valid, got.issue)
		}
	}
}

func TestAuditMetadataDecodeFailure(t *testing.T) {
	root := buildDataset(t)
	// Passes the schema (a non-negative integer) but overflows int.
	writeFile(t, filepath.Join(root, constants.MetadataDir, constants.DatasetInfoFile), `{
  "dataset_info": {"total_samples": 100000000000000000000000000000, "train_samples": 2, "val_samples": 1, "train_ratio": 0.67},
  "character_info": {"total_characters": 1, "character_list": ["a"]},
  "text_statistics": {"min_length": 1, "max_length": 120, "avg_length": 42, "total_characters": 126}
}`)
	out, err := newAuditor(Config{}).Audit(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if out.MetadataValid {
		t.Fatalf("undecodable metadata accepted")
	}
	found := false
	for _, n := range out.MetadataNotes {
		if strings.Contains(n, "cannot be decoded") {
			found = true
		}
	}
	if !found {
		t.Fatalf("notes: %q", out.MetadataNotes)
	}
}
