// Package audit re-validates a prepared dataset directory.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/async"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/common"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/dictionary"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/imageio"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/schema"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/validator"
)

type Config struct {
	MaxSamples    int // lines checked per split; 0 checks all
	SkipImages    bool
	SkipText      bool
	MaxTextLength int // longer texts are reported but stay valid
}

type Auditor struct {
	cfg     Config
	decoder imageio.Decoder
	pool    *async.Pool
	logger  *slog.Logger
}

func New(cfg Config, decoder imageio.Decoder, pool *async.Pool, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	if decoder == nil {
		decoder = imageio.NewLoader()
	}
	if pool == nil {
		pool = async.NewPool(logger)
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = 100
	}
	return &Auditor{cfg: cfg, decoder: decoder, pool: pool, logger: logger}
}

// RequiredDirs must exist under a dataset root before its files are checked.
func RequiredDirs() []string {
	return []string{
		filepath.Join(constants.ImagesDir, string(constants.SplitTrain)),
		filepath.Join(constants.ImagesDir, string(constants.SplitVal)),
		constants.AnnotationsDir,
		constants.MetadataDir,
	}
}

// Audit checks layout, annotations and metadata of the dataset at root.
// A missing root is an error; every other finding is part of the outcome.
func (a *Auditor) Audit(ctx context.Context, root string) (entity.AuditOutcome, error) {
	out := entity.AuditOutcome{DatasetDir: root, CheckedAt: time.Now()}
	if st, err := os.Stat(root); err != nil || !st.IsDir() {
		return out, common.WrapError(common.ErrNotFound, "dataset directory "+root)
	}

	for _, d := range RequiredDirs() {
		if st, err := os.Stat(filepath.Join(root, d)); err != nil || !st.IsDir() {
			out.MissingDirs = append(out.MissingDirs, filepath.ToSlash(d))
		}
	}
	if len(out.MissingDirs) > 0 {
		a.logger.Warn("audit.layout.missing", "dataset", root, "dirs", out.MissingDirs)
		return out, nil
	}

	for _, split := range constants.Splits {
		sa, err := a.auditSplit(ctx, root, split)
		if err != nil {
			return out, err
		}
		out.Splits = append(out.Splits, sa)
	}
	a.auditMetadata(root, &out)

	valid, invalid := out.Totals()
	a.logger.Info("audit.ok", "dataset", root, "valid", valid, "invalid", invalid,
		"issues", len(out.Issues()), "metadata_valid", out.MetadataValid)
	return out, nil
}

type lineCheck struct {
	num   int
	image string
	text  string
	issue string
	valid bool
}

func (a *Auditor) auditSplit(ctx context.Context, root string, split constants.Split) (entity.SplitAudit, error) {
	name := string(split)
	sa := entity.SplitAudit{Split: name}
	path := filepath.Join(root, constants.AnnotationsDir, constants.AnnotationFile(split))

	lines, err := readLines(path)
	if errors.Is(err, os.ErrNotExist) {
		sa.Issues = append(sa.Issues, name+": Annotation file not found")
		return sa, nil
	}
	if err != nil {
		return sa, fmt.Errorf("read %s: %w", path, err)
	}
	sa.Lines = len(lines)

	limit := len(lines)
	if a.cfg.MaxSamples > 0 && a.cfg.MaxSamples < limit {
		limit = a.cfg.MaxSamples
	}
	var todo []lineCheck
	for i, l := range lines[:limit] {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		todo = append(todo, lineCheck{num: i + 1, text: l})
	}

	checked, _, err := async.Map(ctx, a.pool, "audit."+name, todo, func(_ context.Context, c lineCheck) (lineCheck, bool) {
		c = a.checkLine(root, c)
		return c, c.valid
	})
	if err != nil {
		return sa, err
	}

	unique := map[rune]struct{}{}
	for _, c := range checked {
		if c.issue != "" {
			sa.Issues = append(sa.Issues, fmt.Sprintf("%s line %d: %s", name, c.num, c.issue))
		}
		if !c.valid {
			sa.Invalid++
			continue
		}
		sa.Valid++
		if a.cfg.SkipText {
			continue
		}
		n := utf8.RuneCountInString(c.text)
		if sa.TotalChars == 0 || n < sa.MinLength {
			sa.MinLength = n
		}
		sa.MaxLength = max(sa.MaxLength, n)
		sa.TotalChars += n
		for _, r := range c.text {
			unique[r] = struct{}{}
		}
	}
	sa.UniqueChars = len(unique)
	return sa, nil
}

// checkLine validates one "<path>\t<text>" annotation line. A too-long text
// is reported but the line stays valid.
func (a *Auditor) checkLine(root string, c lineCheck) lineCheck {
	ref, text, ok := strings.Cut(c.text, "\t")
	if !ok {
		c.issue = "No tab separator found"
		return c
	}
	c.image, c.text = ref, text

	if !a.cfg.SkipImages {
		full, ok := validator.Resolve(root, ref)
		if !ok {
			c.issue = "Image not found: " + ref
			return c
		}
		if st, err := os.Stat(full); err != nil || st.IsDir() {
			c.issue = "Image not found: " + ref
			return c
		}
		if img, err := a.decoder.Decode(full); err != nil || img == nil {
			c.issue = "Cannot load image: " + ref
			return c
		}
	}

	if !a.cfg.SkipText {
		if strings.TrimSpace(text) == "" {
			c.issue = "Empty text content"
			return c
		}
		if n := utf8.RuneCountInString(text); n > a.cfg.MaxTextLength {
			c.issue = fmt.Sprintf("Text too long (%d chars): %s...", n, prefix(text, 50))
		}
	}
	c.valid = true
	return c
}

func (a *Auditor) auditMetadata(root string, out *entity.AuditOutcome) {
	out.MetadataValid = true
	note := func(format string, args ...any) {
		out.MetadataValid = false
		out.MetadataNotes = append(out.MetadataNotes, fmt.Sprintf(format, args...))
	}

	dir := filepath.Join(root, constants.MetadataDir)
	var md entity.DatasetMetadata
	raw, err := os.ReadFile(filepath.Join(dir, constants.DatasetInfoFile))
	if err != nil {
		note("%s not found", constants.DatasetInfoFile)
	} else if verr := schema.ValidateDatasetInfo(raw); verr != nil {
		note("%s invalid: %v", constants.DatasetInfoFile, verr)
	} else if derr := json.Unmarshal(raw, &md); derr != nil {
		note("%s cannot be decoded: %v", constants.DatasetInfoFile, derr)
	} else {
		info := md.DatasetInfo
		if info.TrainSamples+info.ValSamples != info.TotalSamples {
			note("split counts %d+%d do not add up to %d", info.TrainSamples, info.ValSamples, info.TotalSamples)
		}
		if md.CharacterInfo.TotalCharacters != len(md.CharacterInfo.CharacterList) {
			note("character list has %d entries, total_characters says %d",
				len(md.CharacterInfo.CharacterList), md.CharacterInfo.TotalCharacters)
		}
	}

	dict, err := dictionary.Load(filepath.Join(dir, constants.CharDictFile))
	if err != nil {
		note("%s not found", constants.CharDictFile)
		return
	}
	out.DictEntries = dict.Len()
	entries := dict.Entries()
	for i, tok := range constants.ReservedTokens {
		if i >= len(entries) || entries[i] != tok {
			note("%s does not start with the reserved tokens", constants.CharDictFile)
			break
		}
	}
	if raw != nil && md.CharacterInfo.TotalCharacters > 0 && md.CharacterInfo.TotalCharacters != out.DictEntries {
		note("%s has %d entries, metadata says %d", constants.CharDictFile, out.DictEntries, md.CharacterInfo.TotalCharacters)
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out, sc.Err()
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
