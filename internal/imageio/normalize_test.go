package imageio

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/joseph-ayodele/ocr-dataset-prep/internal/common"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/4+y/4)%2 == 0 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, solid(w, h)); err != nil {
		t.Fatal(err)
	}
}

func newTestNormalizer() *Normalizer {
	return NewNormalizer(Config{TargetHeight: 32, MinWidth: 16, MaxWidth: 512, Quality: 95}, nil, quietLogger())
}

func TestTargetWidth(t *testing.T) {
	n := newTestNormalizer()
	cases := []struct {
		w, h, want int
	}{
		{100, 50, 64},
		{45, 32, 45},
		{3, 2, 48},
		{10, 100, 16},    // clamped up
		{10000, 32, 512}, // clamped down
		{101, 64, 51},    // 50.5 rounds half away from zero
		{0, 10, 16},      // degenerate
	}
	for _, tc := range cases {
		if got := n.TargetWidth(tc.w, tc.h); got != tc.want {
			t.Fatalf("TargetWidth(%d,%d)=%d want %d", tc.w, tc.h, got, tc.want)
		}
	}
}

func TestResizeBounds(t *testing.T) {
	n := newTestNormalizer()
	sizes := [][2]int{{8, 8}, {200, 60}, {2000, 20}, {30, 400}, {512, 32}}
	for _, s := range sizes {
		out := n.Resize(solid(s[0], s[1]))
		b := out.Pixels.Bounds()
		if out.Height != 32 || b.Dy() != 32 {
			t.Fatalf("%v: height %d/%d", s, out.Height, b.Dy())
		}
		if out.Width < 16 || out.Width > 512 || b.Dx() != out.Width {
			t.Fatalf("%v: width %d/%d", s, out.Width, b.Dx())
		}
	}
}

func TestProcessWritesJPEG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "word.png")
	writePNG(t, src, 200, 60)
	dst := filepath.Join(dir, OutputName("word.png"))

	res := newTestNormalizer().Process(context.Background(), src, dst)
	if !res.OK || res.Err != nil {
		t.Fatalf("process failed: %+v", res)
	}
	if res.OriginalWidth != 200 || res.OriginalHeight != 60 || res.Width != 107 || res.Height != 32 {
		t.Fatalf("unexpected dims %+v", res)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
	if cfg.Width != 107 || cfg.Height != 32 {
		t.Fatalf("jpeg dims %dx%d", cfg.Width, cfg.Height)
	}
}

func TestProcessFailuresAreValues(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.jpg")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	n := newTestNormalizer()

	res := n.Process(context.Background(), bad, filepath.Join(dir, "bad_resized.jpg"))
	if res.OK || res.Err == nil {
		t.Fatalf("expected failure, got %+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad_resized.jpg")); !os.IsNotExist(err) {
		t.Fatalf("no output expected for failed decode")
	}

	good := filepath.Join(dir, "good.png")
	writePNG(t, good, 40, 40)
	res = n.Process(context.Background(), good, filepath.Join(dir, "missing", "good_resized.jpg"))
	if res.OK || res.Err == nil {
		t.Fatalf("expected write failure, got %+v", res)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = n.Process(ctx, good, filepath.Join(dir, "good_resized.jpg"))
	if res.OK {
		t.Fatalf("cancelled context must not process")
	}
}

func TestLoaderDecodesBMP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bmp")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(f, solid(24, 12)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := NewLoader().Decode(path)
	if err != nil {
		t.Fatalf("decode bmp: %v", err)
	}
	if img.Bounds().Dx() != 24 || img.Bounds().Dy() != 12 {
		t.Fatalf("bounds %v", img.Bounds())
	}
}

func TestOutputName(t *testing.T) {
	cases := map[string]string{
		"a.jpg":                    "a_resized.jpg",
		"demo_images/demo_001.png": "demo_001_resized.jpg",
		"scan.v2.bmp":              "scan.v2_resized.jpg",
		"noext":                    "noext_resized.jpg",
	}
	for in, want := range cases {
		if got := OutputName(in); got != want {
			t.Fatalf("OutputName(%q)=%q want %q", in, got, want)
		}
	}
}

type panicDecoder struct{}

func (panicDecoder) Decode(string) (image.Image, error) { panic("corrupt header") }

func TestProcessRecoversDecoderPanic(t *testing.T) {
	dir := t.TempDir()
	n := NewNormalizer(Config{}, panicDecoder{}, quietLogger())
	res := n.Process(context.Background(), filepath.Join(dir, "a.png"), filepath.Join(dir, "a_resized.jpg"))
	if res.OK {
		t.Fatalf("expected failure")
	}
	if !errors.Is(res.Err, common.ErrInternal) {
		t.Fatalf("panic should surface as ErrInternal, got %v", res.Err)
	}
}
