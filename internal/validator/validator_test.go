package validator

import (
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func setup(t *testing.T) (*Validator, string) {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "ok.png"), 40, 20)
	writePNG(t, filepath.Join(dir, "sub", "nested.png"), 8, 8)
	writePNG(t, filepath.Join(dir, "short.png"), 20, 7)
	if err := os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "folder.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}
	v := New(Config{ImageDir: dir}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return v, dir
}

func TestValidate(t *testing.T) {
	v, _ := setup(t)
	cases := []struct {
		name    string
		ref     string
		text    string
		valid   bool
		reason  string
		failure constants.Failure
	}{
		{"valid", "ok.png", "HELLO", true, "Valid", constants.FailureNone},
		{"valid nested minimum size", "sub/nested.png", "x", true, "Valid", constants.FailureNone},
		{"missing", "nope.png", "HELLO", false, "image file not found", constants.FailureNotFound},
		{"escapes dir", "../ok.png", "HELLO", false, "image file not found", constants.FailureNotFound},
		{"absolute", "/etc/passwd", "HELLO", false, "image file not found", constants.FailureNotFound},
		{"directory", "folder.jpg", "HELLO", false, "image file not found", constants.FailureNotFound},
		{"undecodable", "broken.jpg", "HELLO", false, "cannot load image", constants.FailureDecode},
		{"too small", "short.png", "HELLO", false, "image too small: 20x7", constants.FailureTooSmall},
		{"blank text", "ok.png", "   ", false, "empty text content", constants.FailureEmptyText},
		{"empty text", "ok.png", "", false, "empty text content", constants.FailureEmptyText},
		{"100 chars", "ok.png", strings.Repeat("a", 100), true, "Valid", constants.FailureNone},
		{"101 chars", "ok.png", strings.Repeat("a", 101), false, "text too long: 101 characters", constants.FailureTextTooLong},
		{"100 code points multi-byte", "ok.png", strings.Repeat("ก", 100), true, "Valid", constants.FailureNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := v.Validate(context.Background(), entity.LabelRecord{Line: 1, ImageRef: tc.ref, Text: tc.text})
			if got.Valid != tc.valid || got.Reason != tc.reason || got.Failure != tc.failure {
				t.Fatalf("got valid=%v reason=%q failure=%q", got.Valid, got.Reason, got.Failure)
			}
			if got.Record.ImageRef != tc.ref {
				t.Fatalf("record not carried through")
			}
		})
	}
}

func TestValidateRecordsDimensions(t *testing.T) {
	v, _ := setup(t)
	got := v.Validate(context.Background(), entity.LabelRecord{ImageRef: "ok.png", Text: "A"})
	if got.Width != 40 || got.Height != 20 {
		t.Fatalf("dims %dx%d", got.Width, got.Height)
	}
}

func TestValidateIsPure(t *testing.T) {
	v, _ := setup(t)
	rec := entity.LabelRecord{ImageRef: "ok.png", Text: "again"}
	a := v.Validate(context.Background(), rec)
	b := v.Validate(context.Background(), rec)
	if a != b {
		t.Fatalf("repeated validation differs: %+v vs %+v", a, b)
	}
}

func TestValidateCancelled(t *testing.T) {
	v, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := v.Validate(ctx, entity.LabelRecord{ImageRef: "ok.png", Text: "HELLO"})
	if got.Valid || got.Failure != constants.FailureCancelled || got.Reason != ReasonCancelled {
		t.Fatalf("got valid=%v reason=%q failure=%q", got.Valid, got.Reason, got.Failure)
	}

	got = v.Validate(ctx, entity.LabelRecord{ImageRef: "nope.png", Text: "HELLO"})
	if got.Failure != constants.FailureNotFound {
		t.Fatalf("missing file is reported before cancellation, got %q", got.Failure)
	}
}
