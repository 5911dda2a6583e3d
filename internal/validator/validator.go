// Package validator decides whether a parsed label record is usable for training.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/imageio"
)

// Reasons recorded on ValidatedPair.
const (
	ReasonValid          = "Valid"
	ReasonNotFound       = "image file not found"
	ReasonCannotLoad     = "cannot load image"
	ReasonTooSmallFmt    = "image too small: %dx%d"
	ReasonEmptyText      = "empty text content"
	ReasonTextTooLongFmt = "text too long: %d characters"
	ReasonCancelled      = "validation cancelled"
)

type Config struct {
	ImageDir      string
	MinSide       int // default 8
	MaxTextLength int // code points, default 100
}

// Validator checks pairs independently; it keeps no state between calls and is
// safe for concurrent use.
type Validator struct {
	cfg     Config
	decoder imageio.Decoder
	logger  *slog.Logger
}

func New(cfg Config, decoder imageio.Decoder, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	if decoder == nil {
		decoder = imageio.NewLoader()
	}
	if cfg.MinSide <= 0 {
		cfg.MinSide = 8
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = 100
	}
	return &Validator{cfg: cfg, decoder: decoder, logger: logger}
}

// ResolvePath joins ref onto the image directory. ok is false when ref escapes it.
func (v *Validator) ResolvePath(ref string) (string, bool) {
	return Resolve(v.cfg.ImageDir, ref)
}

// Resolve joins ref onto dir and reports whether the result stays under dir.
func Resolve(dir, ref string) (string, bool) {
	ref = filepath.FromSlash(ref)
	if filepath.IsAbs(ref) {
		return "", false
	}
	full := filepath.Join(dir, ref)
	rel, err := filepath.Rel(dir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

// Validate runs the checks in order and stops at the first failure.
func (v *Validator) Validate(ctx context.Context, rec entity.LabelRecord) entity.ValidatedPair {
	out := entity.ValidatedPair{Record: rec}
	fail := func(kind constants.Failure, reason string) entity.ValidatedPair {
		out.Valid = false
		out.Failure = kind
		out.Reason = reason
		v.logger.Debug("validator.pair.invalid", "line", rec.Line, "image", rec.ImageRef, "reason", reason)
		return out
	}

	path, ok := v.ResolvePath(rec.ImageRef)
	if !ok {
		return fail(constants.FailureNotFound, ReasonNotFound)
	}
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return fail(constants.FailureNotFound, ReasonNotFound)
	}

	if err := ctx.Err(); err != nil {
		return fail(constants.FailureCancelled, ReasonCancelled)
	}
	img, err := v.decoder.Decode(path)
	if err != nil || img == nil {
		return fail(constants.FailureDecode, ReasonCannotLoad)
	}

	b := img.Bounds()
	out.Width, out.Height = b.Dx(), b.Dy()
	if out.Height < v.cfg.MinSide || out.Width < v.cfg.MinSide {
		return fail(constants.FailureTooSmall, fmt.Sprintf(ReasonTooSmallFmt, out.Width, out.Height))
	}

	if strings.TrimSpace(rec.Text) == "" {
		return fail(constants.FailureEmptyText, ReasonEmptyText)
	}
	if n := utf8.RuneCountInString(rec.Text); n > v.cfg.MaxTextLength {
		return fail(constants.FailureTextTooLong, fmt.Sprintf(ReasonTextTooLongFmt, n))
	}

	out.Valid = true
	out.Reason = ReasonValid
	return out
}
