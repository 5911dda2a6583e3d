package labels

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
)

const (
	maxLineBytes       = 1 << 20
	rejectPreviewBytes = 256
)

// Options configures label parsing.
type Options struct {
	// ImageDir is consulted only by the bare-text fallback.
	ImageDir string
	// Formats enabled, in any order; nil enables all. Precedence is fixed.
	Formats       []constants.LabelFormat
	AllowBareText bool
	Logger        *slog.Logger
}

// Reader yields LabelRecords lazily from a label stream, one per recognized line.
// Blank lines are skipped; unrecognized lines are logged and kept as rejections.
type Reader struct {
	br         *bufio.Reader
	formats    []Format
	logger     *slog.Logger
	line       int
	rec        entity.LabelRecord
	rejections []entity.ParseRejection
	err        error
}

func NewReader(r io.Reader, opts Options) *Reader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{br: bufio.NewReaderSize(r, 64*1024), formats: buildFormats(opts), logger: logger}
}

// Next advances to the next record. It returns false at end of input or on a read error.
// Lines longer than maxLineBytes are rejected like any other unrecognized line.
func (r *Reader) Next() bool {
	for {
		raw, size, err := r.readLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = fmt.Errorf("read labels at line %d: %w", r.line+1, err)
			}
			return false
		}
		r.line++
		if size > maxLineBytes {
			text := strings.ToValidUTF8(string(raw[:rejectPreviewBytes]), "") + "..."
			r.rejections = append(r.rejections, entity.ParseRejection{Line: r.line, Text: text})
			r.logger.Warn("labels.parse.too_long", "line", r.line, "bytes", size, "limit", maxLineBytes)
			continue
		}
		line := string(raw)
		if r.line == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rec, ok := r.parse(line)
		if !ok {
			r.rejections = append(r.rejections, entity.ParseRejection{Line: r.line, Text: line})
			r.logger.Warn("labels.parse.skipped", "line", r.line, "text", line)
			continue
		}
		r.rec = rec
		return true
	}
}

// readLine returns the next line without its terminator and the line's full
// length. At most maxLineBytes are kept; the rest of a longer line is drained.
func (r *Reader) readLine() ([]byte, int, error) {
	var buf []byte
	size := 0
	for {
		frag, more, err := r.br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && size > 0 {
				return buf, size, nil
			}
			return nil, 0, err
		}
		size += len(frag)
		if keep := maxLineBytes - len(buf); keep > 0 {
			buf = append(buf, frag[:min(keep, len(frag))]...)
		}
		if !more {
			return buf, size, nil
		}
	}
}

func (r *Reader) parse(line string) (entity.LabelRecord, bool) {
	for _, f := range r.formats {
		ref, text, ok := f.Parse(line)
		if !ok {
			continue
		}
		rec := entity.LabelRecord{
			Line:     r.line,
			ImageRef: ref,
			Text:     text,
			Format:   f.Name(),
		}
		if f.Name() == constants.FormatBareText {
			rec.Unreliable = true
			r.logger.Warn("labels.parse.bare_text",
				"line", r.line,
				"image", ref,
				"note", "paired by directory order; correspondence is not guaranteed")
		}
		return rec, true
	}
	return entity.LabelRecord{}, false
}

// Record returns the record produced by the last successful Next.
func (r *Reader) Record() entity.LabelRecord { return r.rec }

// Rejections returns the lines discarded so far.
func (r *Reader) Rejections() []entity.ParseRejection { return r.rejections }

// Err returns the first read error, if any.
func (r *Reader) Err() error { return r.err }

// ParseFile reads every record of a label file.
func ParseFile(ctx context.Context, path string, opts Options) ([]entity.LabelRecord, []entity.ParseRejection, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open labels: %w", err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			logger.Warn("labels.close.failed", "path", path, "error", err)
		}
	}(f)

	logger.Info("labels.parse.start", "path", path)
	rd := NewReader(f, opts)
	var recs []entity.LabelRecord
	for rd.Next() {
		if err := ctx.Err(); err != nil {
			return recs, rd.Rejections(), err
		}
		recs = append(recs, rd.Record())
	}
	if err := rd.Err(); err != nil {
		return recs, rd.Rejections(), err
	}
	logger.Info("labels.parse.ok", "path", path, "records", len(recs), "rejected", len(rd.Rejections()))
	return recs, rd.Rejections(), nil
}
