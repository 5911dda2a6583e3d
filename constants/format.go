package constants

import (
	"strings"
)

// LabelFormat names one of the tolerated label-line layouts.
type LabelFormat string

const (
	FormatTab      LabelFormat = "tab"
	FormatSpace    LabelFormat = "space"
	FormatJSON     LabelFormat = "json"
	FormatBareText LabelFormat = "bare"
)

// allFormats is the precedence order in which a line is tried.
var allFormats = []LabelFormat{
	FormatTab,
	FormatSpace,
	FormatJSON,
	FormatBareText,
}

// AllFormats returns every label format in precedence order.
func AllFormats() []LabelFormat {
	out := make([]LabelFormat, len(allFormats))
	copy(out, allFormats)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allFormats))
	for i, f := range allFormats {
		result[i] = string(f)
	}
	return result
}

// Canonicalize maps user input (config, flags) onto a LabelFormat.
func Canonicalize(input string) (LabelFormat, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]LabelFormat{
		"tsv":        FormatTab,
		"tabbed":     FormatTab,
		"whitespace": FormatSpace,
		"jsonl":      FormatJSON,
		"json-lines": FormatJSON,
		"text":       FormatBareText,
		"bare-text":  FormatBareText,
		"fallback":   FormatBareText,
	}
	if f, ok := synonyms[normalized]; ok {
		return f, true
	}

	for _, f := range allFormats {
		if normalized == string(f) {
			return f, true
		}
	}
	return "", false
}

// Split names a dataset partition.
type Split string

const (
	SplitTrain Split = "train"
	SplitVal   Split = "val"
)

// Splits lists the partitions in output order.
var Splits = []Split{SplitTrain, SplitVal}

// ReservedTokens precede the data characters in every character dictionary.
var ReservedTokens = []string{"<blank>", "<eos>", "<sos>", "<unk>"}
