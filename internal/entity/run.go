package entity

import (
	"time"

	"github.com/google/uuid"
)

// Run is a preparation run as stored in the catalog.
type Run struct {
	ID          uuid.UUID  `json:"id"`
	InputLabels string     `json:"input_labels"`
	OutputDir   string     `json:"output_dir"`
	Seed        uint64     `json:"seed"`
	TrainRatio  float64    `json:"train_ratio"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Valid       int        `json:"valid"`
	Invalid     int        `json:"invalid"`
	Processed   int        `json:"processed"`
	Failed      int        `json:"failed"`
	Error       *string    `json:"error,omitempty"`
}

// Sample is one label record's terminal outcome within a run.
type Sample struct {
	RunID     uuid.UUID `json:"run_id"`
	Line      int       `json:"line"`
	ImageRef  string    `json:"image_ref"`
	Text      string    `json:"text"`
	Split     string    `json:"split,omitempty"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	OutputRel string    `json:"output_rel,omitempty"`
}
