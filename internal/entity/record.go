package entity

import (
	"image"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
)

// LabelRecord is one parsed label line. Immutable after parsing.
type LabelRecord struct {
	Line     int                   `json:"line"`
	ImageRef string                `json:"image"`
	Text     string                `json:"text"`
	Format   constants.LabelFormat `json:"format"`
	// Unreliable marks records whose image was guessed from directory order.
	Unreliable bool `json:"unreliable,omitempty"`
}

// ParseRejection is a non-blank label line that matched no format.
type ParseRejection struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// ValidatedPair is a LabelRecord with its validation outcome.
type ValidatedPair struct {
	Record  LabelRecord       `json:"record"`
	Valid   bool              `json:"valid"`
	Reason  string            `json:"reason"`
	Failure constants.Failure `json:"failure,omitempty"`
	Width   int               `json:"width,omitempty"`
	Height  int               `json:"height,omitempty"`
}

// DatasetSplit holds only valid pairs. Indices refer to the slice given to the splitter.
type DatasetSplit struct {
	Train        []ValidatedPair
	Val          []ValidatedPair
	TrainIndices []int
	ValIndices   []int
}

// Pairs returns the pairs of one partition.
func (s DatasetSplit) Pairs(split constants.Split) []ValidatedPair {
	if split == constants.SplitTrain {
		return s.Train
	}
	return s.Val
}

// Texts returns the texts of train followed by val.
func (s DatasetSplit) Texts() []string {
	out := make([]string, 0, len(s.Train)+len(s.Val))
	for _, p := range s.Train {
		out = append(out, p.Record.Text)
	}
	for _, p := range s.Val {
		out = append(out, p.Record.Text)
	}
	return out
}

// NormalizedImage is a resized image; Height always equals the configured target.
type NormalizedImage struct {
	Width  int
	Height int
	Pixels image.Image
}
