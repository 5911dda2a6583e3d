package report

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
)

// IssueRow is one line of the Issues sheet.
type IssueRow struct {
	Stage   string // parse, validate, normalize, audit
	Line    int
	Image   string
	Message string
}

// Workbook collects run or audit results and renders them as XLSX.
type Workbook struct {
	summary [][2]any
	issues  []IssueRow
	logger  *slog.Logger
}

func NewWorkbook(logger *slog.Logger) *Workbook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workbook{logger: logger}
}

// AddSummary appends a metric/value row to the Summary sheet.
func (b *Workbook) AddSummary(metric string, value any) {
	b.summary = append(b.summary, [2]any{metric, value})
}

// AddIssue appends a row to the Issues sheet.
func (b *Workbook) AddIssue(row IssueRow) {
	b.issues = append(b.issues, row)
}

// AddProcessingSummary fills the Summary sheet from a preparation run.
func (b *Workbook) AddProcessingSummary(s entity.ProcessingSummary) {
	b.AddSummary("Run", s.RunID)
	b.AddSummary("Parsed records", s.Parsed)
	b.AddSummary("Rejected lines", s.Rejected)
	b.AddSummary("Unreliable records", s.Unreliable)
	b.AddSummary("Valid pairs", s.Valid)
	b.AddSummary("Invalid pairs", s.Invalid)
	b.AddSummary("Train", s.Train)
	b.AddSummary("Val", s.Val)
	b.AddSummary("Processed", s.Processed)
	b.AddSummary("Failed", s.Failed)
	b.AddSummary("Success rate (%)", fmt.Sprintf("%.1f", s.SuccessRate()))
	b.AddSummary("Dictionary size", s.CharacterCount)
	b.AddSummary("Output directory", s.OutputDir)
}

// AddAudit fills both sheets from a dataset audit.
func (b *Workbook) AddAudit(o entity.AuditOutcome) {
	valid, invalid := o.Totals()
	b.AddSummary("Dataset directory", o.DatasetDir)
	b.AddSummary("Checked at", o.CheckedAt.Format(time.DateTime))
	b.AddSummary("Valid samples", valid)
	b.AddSummary("Invalid samples", invalid)
	b.AddSummary("Metadata valid", yesNo(o.MetadataValid))
	b.AddSummary("Dictionary entries", o.DictEntries)
	for _, s := range o.Splits {
		b.AddSummary(s.Split+" valid", s.Valid)
		b.AddSummary(s.Split+" invalid", s.Invalid)
		for _, issue := range s.Issues {
			b.AddIssue(IssueRow{Stage: "audit", Message: issue})
		}
	}
}

// Bytes renders the workbook.
func (b *Workbook) Bytes() ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const summarySheet = "Summary"
	const issuesSheet = "Issues"
	// The default sheet is renamed so the workbook opens on Summary.
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(issuesSheet); err != nil {
		return nil, err
	}
	index, _ := f.GetSheetIndex(summarySheet)
	f.SetActiveSheet(index)

	write := func(sheet string, col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	write(summarySheet, 1, 1, "Metric")
	write(summarySheet, 2, 1, "Value")
	for i, kv := range b.summary {
		write(summarySheet, 1, i+2, kv[0])
		write(summarySheet, 2, i+2, kv[1])
	}

	for i, h := range []string{"Stage", "Line", "Image", "Message"} {
		write(issuesSheet, i+1, 1, h)
	}
	for i, r := range b.issues {
		row := i + 2
		write(issuesSheet, 1, row, r.Stage)
		if r.Line > 0 {
			write(issuesSheet, 2, row, r.Line)
		}
		write(issuesSheet, 3, row, r.Image)
		write(issuesSheet, 4, row, truncate(r.Message, 240))
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 28)
	_ = f.SetColWidth(summarySheet, "B", "B", 60)
	_ = f.SetColWidth(issuesSheet, "A", "B", 10)
	_ = f.SetColWidth(issuesSheet, "C", "C", 40)
	_ = f.SetColWidth(issuesSheet, "D", "D", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	b.logger.Info("report.xlsx.ok",
		"summary_rows", len(b.summary),
		"issue_rows", len(b.issues),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
