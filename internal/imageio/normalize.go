package imageio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/common"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/fsutil"
)

type Config struct {
	TargetHeight int // default 32
	MinWidth     int // default 16
	MaxWidth     int // default 512
	Quality      int // JPEG quality 1..100, default 95
}

// Result is the per-image outcome of Process. Failures are values, not errors
// returned up the stack.
type Result struct {
	Source         string
	Dest           string
	OK             bool
	OriginalWidth  int
	OriginalHeight int
	Width          int
	Height         int
	Err            error
}

type Normalizer struct {
	cfg     Config
	decoder Decoder
	logger  *slog.Logger
}

func NewNormalizer(cfg Config, decoder Decoder, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if decoder == nil {
		decoder = NewLoader()
	}
	if cfg.TargetHeight <= 0 {
		cfg.TargetHeight = 32
	}
	if cfg.MinWidth <= 0 {
		cfg.MinWidth = 16
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = 512
	}
	if cfg.MaxWidth < cfg.MinWidth {
		cfg.MaxWidth = cfg.MinWidth
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 95
	}
	return &Normalizer{cfg: cfg, decoder: decoder, logger: logger}
}

// Config returns the effective configuration after defaults.
func (n *Normalizer) Config() Config { return n.cfg }

// TargetWidth is round(w * H / h) clamped to [MinWidth, MaxWidth].
func (n *Normalizer) TargetWidth(w, h int) int {
	if w <= 0 || h <= 0 {
		return n.cfg.MinWidth
	}
	width := int(math.Round(float64(w) * float64(n.cfg.TargetHeight) / float64(h)))
	return min(max(width, n.cfg.MinWidth), n.cfg.MaxWidth)
}

// Resize scales src to the target height. The Catmull-Rom kernel is stretched
// over the source footprint when shrinking, which keeps thin strokes from aliasing.
// Transparent areas end up white.
func (n *Normalizer) Resize(src image.Image) entity.NormalizedImage {
	b := src.Bounds()
	w := n.TargetWidth(b.Dx(), b.Dy())
	h := n.cfg.TargetHeight

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	return entity.NormalizedImage{Width: w, Height: h, Pixels: dst}
}

// Encode writes img as JPEG at the configured quality.
func (n *Normalizer) Encode(w io.Writer, img entity.NormalizedImage) error {
	if img.Pixels == nil {
		return errors.New("encode: empty image")
	}
	return imaging.Encode(w, img.Pixels, imaging.JPEG, imaging.JPEGQuality(n.cfg.Quality))
}

// Process decodes srcPath, resizes it and writes the JPEG to dstPath.
// It never panics past the item: decoder panics become a failed Result.
func (n *Normalizer) Process(ctx context.Context, srcPath, dstPath string) (res Result) {
	res = Result{Source: srcPath, Dest: dstPath}
	defer func() {
		if r := recover(); r != nil {
			res.OK = false
			res.Err = fmt.Errorf("%w: normalize panic: %v", common.ErrInternal, r)
		}
		if res.Err != nil {
			n.logger.Error("imageio.normalize.failed", "source", srcPath, "dest", dstPath, "error", res.Err)
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	src, err := n.decoder.Decode(srcPath)
	if err != nil {
		res.Err = err
		return res
	}
	b := src.Bounds()
	res.OriginalWidth, res.OriginalHeight = b.Dx(), b.Dy()
	if res.OriginalWidth == 0 || res.OriginalHeight == 0 {
		res.Err = fmt.Errorf("decode %s: empty image", srcPath)
		return res
	}

	out := n.Resize(src)
	if err := fsutil.WriteFileAtomic(dstPath, 0o644, func(w io.Writer) error {
		return n.Encode(w, out)
	}); err != nil {
		res.Err = fmt.Errorf("write %s: %w", dstPath, err)
		return res
	}

	res.OK = true
	res.Width, res.Height = out.Width, out.Height
	n.logger.Debug("imageio.normalize.ok",
		"source", srcPath,
		"original", fmt.Sprintf("%dx%d", res.OriginalWidth, res.OriginalHeight),
		"resized", fmt.Sprintf("%dx%d", res.Width, res.Height))
	return res
}

// OutputName derives "<stem>_resized.jpg" from an image reference.
func OutputName(ref string) string {
	base := filepath.Base(filepath.FromSlash(ref))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + constants.ResizedSuffix + constants.OutputExt
}
