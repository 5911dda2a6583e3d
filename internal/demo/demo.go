// Package demo writes a small synthetic dataset for trying the pipeline end to end.
package demo

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/joseph-ayodele/ocr-dataset-prep/internal/fsutil"
)

// SampleTexts are rendered one per image.
var SampleTexts = []string{
	"สวัสดีครับ",
	"PaddleOCR",
	"ภาษาไทย",
	"Hello World",
	"1234567890",
	"Recognition Test",
	"สำเร็จแล้ว",
	"Machine Learning",
	"Text Detection",
	"Deep Learning",
}

// Layout under the demo root.
const (
	ImagesDir  = "demo_images"
	LabelsFile = "demo_labels.txt"
	SamplesDir = "samples"
)

const (
	imageHeight = 60
	minWidth    = 200
	pxPerRune   = 15
	quality     = 95
)

type Options struct {
	// FontPath is an OpenType/TrueType font; empty uses the built-in ASCII face,
	// which leaves non-Latin glyphs blank.
	FontPath string
	FontSize float64
	Logger   *slog.Logger
}

// Image is one generated sample.
type Image struct {
	Name string
	Text string
}

// Generate renders SampleTexts under dir, writes a tab-separated label file
// referencing them, and writes sample label files in the tab, space and JSON
// layouts. Image references are relative to dir/demo_images.
func Generate(dir string, opts Options) ([]Image, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	face, closeFace, err := loadFace(opts)
	if err != nil {
		return nil, err
	}
	defer closeFace()

	imgDir := filepath.Join(dir, ImagesDir)
	if err := fsutil.EnsureDirs(imgDir, filepath.Join(dir, SamplesDir)); err != nil {
		return nil, err
	}

	var out []Image
	var lines []string
	for i, text := range SampleTexts {
		name := fmt.Sprintf("demo_%03d.jpg", i+1)
		img := Render(text, face)
		err := fsutil.WriteFileAtomic(filepath.Join(imgDir, name), 0o644, func(w io.Writer) error {
			return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
		})
		if err != nil {
			return out, fmt.Errorf("write %s: %w", name, err)
		}
		logger.Debug("demo.image.ok", "name", name, "text", text)
		out = append(out, Image{Name: name, Text: text})
		lines = append(lines, name+"\t"+text)
	}
	if err := fsutil.WriteLines(filepath.Join(dir, LabelsFile), lines); err != nil {
		return out, err
	}
	if err := WriteSampleLabelFiles(filepath.Join(dir, SamplesDir)); err != nil {
		return out, err
	}
	logger.Info("demo.generate.ok", "dir", dir, "images", len(out))
	return out, nil
}

// Render draws text centered in black on a white canvas of height 60 and
// width max(200, 15 per character).
func Render(text string, face font.Face) image.Image {
	if face == nil {
		face = basicfont.Face7x13
	}
	w := max(minWidth, utf8.RuneCountInString(text)*pxPerRune)
	img := image.NewRGBA(image.Rect(0, 0, w, imageHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: face}
	m := face.Metrics()
	textW := d.MeasureString(text)
	textH := m.Ascent + m.Descent
	x := (fixed.I(w) - textW) / 2
	y := (fixed.I(imageHeight)-textH)/2 + m.Ascent
	d.Dot = fixed.Point26_6{X: max(x, 0), Y: y}
	d.DrawString(text)
	return img
}

func loadFace(opts Options) (font.Face, func(), error) {
	if opts.FontPath == "" {
		return basicfont.Face7x13, func() {}, nil
	}
	b, err := os.ReadFile(opts.FontPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read font: %w", err)
	}
	fnt, err := opentype.Parse(b)
	if err != nil {
		return nil, nil, fmt.Errorf("parse font: %w", err)
	}
	size := opts.FontSize
	if size <= 0 {
		size = 24
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, nil, fmt.Errorf("font face: %w", err)
	}
	return face, func() { _ = face.Close() }, nil
}

// WriteSampleLabelFiles writes the same three labels in each accepted layout.
func WriteSampleLabelFiles(dir string) error {
	samples := []struct{ image, text string }{
		{"img_001.jpg", "สวัสดีครับ"},
		{"img_002.jpg", "PaddleOCR"},
		{"img_003.jpg", "Hello World"},
	}
	var tab, space, jsonl []string
	for _, s := range samples {
		tab = append(tab, s.image+"\t"+s.text)
		space = append(space, s.image+" "+s.text)
		b, err := json.Marshal(map[string]string{"image": s.image, "text": s.text})
		if err != nil {
			return err
		}
		jsonl = append(jsonl, string(b))
	}
	for name, lines := range map[string][]string{
		"tab_separated.txt":   tab,
		"space_separated.txt": space,
		"json_lines.txt":      jsonl,
	} {
		if err := fsutil.WriteLines(filepath.Join(dir, name), lines); err != nil {
			return err
		}
	}
	return nil
}
