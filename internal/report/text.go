// Package report renders run and audit outcomes for operators.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
)

// DefaultIssueLimit caps issues printed to the console. Persisted reports list all of them.
const DefaultIssueLimit = 10

// printer remembers the first write error so rendering code can stay linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) heading(title, underline string, width int) {
	p.printf("%s\n%s\n", title, strings.Repeat(underline, width))
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// WriteValidationReport persists an audit outcome with every issue.
func WriteValidationReport(w io.Writer, o entity.AuditOutcome) error {
	p := &printer{w: w}
	valid, invalid := o.Totals()

	p.heading("RECOGNITION DATASET VALIDATION REPORT", "=", 60)
	p.printf("\nDataset directory: %s\n", o.DatasetDir)
	p.printf("Validation time: %s\n\n", o.CheckedAt.Format(time.DateTime))

	p.heading("SUMMARY", "-", 20)
	p.printf("Total samples: %d\n", valid+invalid)
	p.printf("Valid samples: %d\n", valid)
	p.printf("Invalid samples: %d\n", invalid)
	if valid+invalid > 0 {
		p.printf("Validity rate: %.1f%%\n", rate(valid, valid+invalid))
	}
	p.printf("Metadata valid: %s\n", yesNo(o.MetadataValid))
	p.printf("Dictionary entries: %d\n", o.DictEntries)
	if len(o.MissingDirs) > 0 {
		p.printf("Missing directories: %s\n", strings.Join(o.MissingDirs, ", "))
	}
	p.printf("\n")

	for _, s := range o.Splits {
		p.heading(strings.ToUpper(s.Split)+" SET", "-", 20)
		p.printf("Lines: %d\n", s.Lines)
		p.printf("Valid samples: %d\n", s.Valid)
		p.printf("Invalid samples: %d\n", s.Invalid)
		p.printf("Issues found: %d\n", len(s.Issues))
		if s.TotalChars > 0 {
			p.printf("Text length range: %d-%d chars\n", s.MinLength, s.MaxLength)
			p.printf("Unique characters: %d\n", s.UniqueChars)
		}
		p.printf("\n")
	}

	if len(o.MetadataNotes) > 0 {
		p.heading("METADATA", "-", 20)
		for _, n := range o.MetadataNotes {
			p.printf("• %s\n", n)
		}
		p.printf("\n")
	}

	if issues := o.Issues(); len(issues) > 0 {
		p.heading("ISSUES FOUND", "-", 20)
		for _, issue := range issues {
			p.printf("• %s\n", issue)
		}
	}
	return p.err
}

// PrintValidationSummary is the console rendering of an audit; at most limit issues are listed.
func PrintValidationSummary(w io.Writer, o entity.AuditOutcome, limit int) error {
	p := &printer{w: w}
	valid, invalid := o.Totals()
	total := valid + invalid

	p.printf("Validation Summary\n")
	p.printf("  Total samples: %d\n", total)
	p.printf("  Valid samples: %d\n", valid)
	p.printf("  Invalid samples: %d\n", invalid)
	if total > 0 {
		p.printf("  Validity rate: %.1f%%\n", rate(valid, total))
	}
	for _, s := range o.Splits {
		p.printf("\n%s set\n", s.Split)
		p.printf("  Valid: %d\n  Invalid: %d\n  Issues: %d\n", s.Valid, s.Invalid, len(s.Issues))
	}

	issues := o.Issues()
	if len(issues) == 0 {
		return p.err
	}
	p.printf("\nIssues Found (%d):\n", len(issues))
	shown := issues
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, issue := range shown {
		p.printf("  • %s\n", issue)
	}
	if rest := len(issues) - len(shown); rest > 0 {
		p.printf("  ... and %d more\n", rest)
	}
	return p.err
}

// WriteProcessingSummary renders summary.txt for a preparation run.
func WriteProcessingSummary(w io.Writer, s entity.ProcessingSummary) error {
	p := &printer{w: w}
	p.heading("DATA PROCESSING SUMMARY", "=", 50)
	p.printf("\nRun: %s\n", s.RunID)
	p.printf("Label records parsed: %d (rejected lines: %d, unreliable: %d)\n", s.Parsed, s.Rejected, s.Unreliable)
	p.printf("Valid pairs: %d\n", s.Valid)
	p.printf("Invalid pairs: %d\n", s.Invalid)
	p.printf("Train/val: %d/%d\n\n", s.Train, s.Val)

	p.printf("Total processed: %d\n", s.Processed+s.Failed)
	p.printf("Successful: %d\n", s.Processed)
	p.printf("Failed: %d\n", s.Failed)
	p.printf("Success rate: %.1f%%\n", s.SuccessRate())
	p.printf("Characters in dictionary: %d\n", s.CharacterCount)
	p.printf("Duration: %s\n\n", s.Duration.Round(time.Millisecond))

	p.printf("Generated files:\n")
	p.printf("- Training images: %s/images/train/\n", s.OutputDir)
	p.printf("- Validation images: %s/images/val/\n", s.OutputDir)
	p.printf("- Annotations: %s/annotations/\n", s.OutputDir)
	p.printf("- Metadata: %s/metadata/\n", s.OutputDir)
	return p.err
}

// WriteValidationErrors renders validation_errors.txt, one "Line N: reason" per entry.
func WriteValidationErrors(w io.Writer, lines []string) error {
	p := &printer{w: w}
	p.heading("VALIDATION ERRORS", "=", 50)
	p.printf("\n")
	for _, l := range lines {
		p.printf("%s\n", l)
	}
	return p.err
}

// WriteResizeReport renders resize_report.txt.
func WriteResizeReport(w io.Writer, r entity.ResizeStats) error {
	p := &printer{w: w}
	p.heading("IMAGE RESIZE REPORT", "=", 50)
	p.printf("\nInput directory: %s\n", r.InputDir)
	p.printf("Output directory: %s\n", r.OutputDir)
	p.printf("Target height: %dpx\n", r.TargetHeight)
	p.printf("Width range: %d-%dpx\n", r.MinWidth, r.MaxWidth)
	p.printf("JPEG quality: %d%%\n\n", r.Quality)

	p.printf("Results:\n")
	p.printf("  Total files: %d\n", r.Matched)
	p.printf("  Processed: %d\n", r.Succeeded)
	p.printf("  Failed: %d\n", r.Failed)
	p.printf("  Success rate: %.1f%%\n\n", rate(r.Succeeded, r.Matched))

	if r.Succeeded > 0 {
		p.printf("Size Statistics:\n")
		p.printf("  Average original width: %.1fpx\n", r.AvgOriginalWidth)
		p.printf("  Average resized width: %.1fpx\n", r.AvgResizedWidth)
		p.printf("  Average scale ratio: %.3f\n", r.AvgScaleRatio)
	}
	return p.err
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
