package entity

import "time"

// ProcessingSummary is the outcome of one preparation run.
type ProcessingSummary struct {
	RunID          string
	Parsed         int
	Rejected       int // label lines matching no format
	Unreliable     int // records paired by directory order
	Valid          int
	Invalid        int
	Train          int
	Val            int
	Processed      int // images normalized and annotated
	Failed         int // images that failed normalization
	CharacterCount int
	OutputDir      string
	Duration       time.Duration
}

// SuccessRate is Processed over Processed+Failed, in percent.
func (s ProcessingSummary) SuccessRate() float64 {
	total := s.Processed + s.Failed
	if total == 0 {
		return 0
	}
	return float64(s.Processed) / float64(total) * 100
}

// SplitAudit is the re-validation result of one annotation file.
type SplitAudit struct {
	Split       string
	Lines       int
	Valid       int
	Invalid     int
	Issues      []string
	MinLength   int
	MaxLength   int
	TotalChars  int
	UniqueChars int
}

// AuditOutcome is the re-validation result of a whole dataset directory.
type AuditOutcome struct {
	DatasetDir    string
	CheckedAt     time.Time
	MissingDirs   []string
	Splits        []SplitAudit
	MetadataValid bool
	MetadataNotes []string
	DictEntries   int
}

// Totals sums valid and invalid samples over all splits.
func (o AuditOutcome) Totals() (valid, invalid int) {
	for _, s := range o.Splits {
		valid += s.Valid
		invalid += s.Invalid
	}
	return valid, invalid
}

// Issues concatenates issues of all splits in split order.
func (o AuditOutcome) Issues() []string {
	var out []string
	for _, s := range o.Splits {
		out = append(out, s.Issues...)
	}
	return out
}

// ResizeStats summarizes a directory resize.
type ResizeStats struct {
	InputDir         string
	OutputDir        string
	TargetHeight     int
	MinWidth         int
	MaxWidth         int
	Quality          int
	Scanned          int
	Matched          int
	Succeeded        int
	Failed           int
	AvgOriginalWidth float64
	AvgResizedWidth  float64
	AvgScaleRatio    float64
}
