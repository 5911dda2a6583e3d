package pipeline

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/fsutil"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/report"
)

// AnnotationLine is "<relative image path>\t<text>".
func AnnotationLine(rel, text string) string {
	return rel + "\t" + text
}

// writeAnnotations writes one file per split, keeping split order and
// listing only images that were written.
func writeAnnotations(root string, outcomes []NormalizeOutcome) error {
	lines := map[constants.Split][]string{}
	for _, o := range outcomes {
		if o.OK() {
			lines[o.Task.Split] = append(lines[o.Task.Split], AnnotationLine(o.Task.Rel, o.Task.Pair.Record.Text))
		}
	}
	for _, split := range constants.Splits {
		path := filepath.Join(root, constants.AnnotationsDir, constants.AnnotationFile(split))
		if err := fsutil.WriteLines(path, lines[split]); err != nil {
			return fmt.Errorf("write %s annotation: %w", split, err)
		}
	}
	return nil
}

// ValidationErrorLines renders invalid pairs as "Line N: reason".
func ValidationErrorLines(pairs []entity.ValidatedPair) []string {
	var out []string
	for _, p := range pairs {
		if !p.Valid {
			out = append(out, fmt.Sprintf("Line %d: %s", p.Record.Line, p.Reason))
		}
	}
	return out
}

func (p *Processor) writeReports(st *runState, sum entity.ProcessingSummary) error {
	dir := p.cfg.ReportDir
	if dir == "" {
		return nil
	}
	if err := fsutil.EnsureDirs(dir); err != nil {
		return err
	}

	if lines := ValidationErrorLines(st.pairs); len(lines) > 0 {
		err := report.Save(filepath.Join(dir, constants.ValidationErrorsFile), func(w io.Writer) error {
			return report.WriteValidationErrors(w, lines)
		})
		if err != nil {
			return err
		}
	}
	err := report.Save(filepath.Join(dir, constants.SummaryFile), func(w io.Writer) error {
		return report.WriteProcessingSummary(w, sum)
	})
	if err != nil {
		return err
	}
	if !p.cfg.WriteXLSX {
		return nil
	}

	wb := report.NewWorkbook(p.logger)
	wb.AddProcessingSummary(sum)
	for _, r := range st.rejections {
		wb.AddIssue(report.IssueRow{Stage: "parse", Line: r.Line, Message: "no label format matched: " + r.Text})
	}
	for _, pair := range st.pairs {
		switch {
		case !pair.Valid:
			wb.AddIssue(report.IssueRow{Stage: "validate", Line: pair.Record.Line, Image: pair.Record.ImageRef, Message: pair.Reason})
		case pair.Record.Unreliable:
			wb.AddIssue(report.IssueRow{Stage: "parse", Line: pair.Record.Line, Image: pair.Record.ImageRef, Message: "image paired by directory order"})
		}
	}
	for _, o := range st.outcomes {
		if !o.OK() && o.Result.Err != nil {
			wb.AddIssue(report.IssueRow{Stage: "normalize", Line: o.Task.Pair.Record.Line, Image: o.Task.Pair.Record.ImageRef, Message: o.Result.Err.Error()})
		}
	}
	return wb.Save(filepath.Join(dir, constants.ReportWorkbookFile))
}
