// Package dictionary builds the closed symbol set a recognition model predicts over.
package dictionary

import (
	"io"
	"os"
	"slices"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/fsutil"
)

// Dictionary is the reserved tokens followed by data characters in code-point order.
// Reserved tokens are multi-rune strings and data entries single code points,
// so the two groups cannot collide.
type Dictionary struct {
	entries []string
}

// Build collects the distinct code points of texts.
func Build(texts []string) Dictionary {
	set := map[rune]struct{}{}
	for _, t := range texts {
		for _, r := range t {
			set[r] = struct{}{}
		}
	}
	runes := make([]rune, 0, len(set))
	for r := range set {
		runes = append(runes, r)
	}
	slices.Sort(runes)

	entries := make([]string, 0, len(constants.ReservedTokens)+len(runes))
	entries = append(entries, constants.ReservedTokens...)
	for _, r := range runes {
		entries = append(entries, string(r))
	}
	return Dictionary{entries: entries}
}

// Entries returns a copy of the dictionary in order.
func (d Dictionary) Entries() []string {
	return slices.Clone(d.entries)
}

// Len is 4 + the number of distinct data characters.
func (d Dictionary) Len() int { return len(d.entries) }

// DataCharacters returns the number of non-reserved entries.
func (d Dictionary) DataCharacters() int {
	return max(len(d.entries)-len(constants.ReservedTokens), 0)
}

// WriteTo writes one entry per line.
func (d Dictionary) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, e := range d.entries {
		n, err := io.WriteString(w, e+"\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Save writes the dictionary file atomically.
func (d Dictionary) Save(path string) error {
	return fsutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		_, err := d.WriteTo(w)
		return err
	})
}

// Load reads a dictionary file back, one entry per line.
func Load(path string) (Dictionary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Dictionary{}, err
	}
	var entries []string
	start := 0
	for i := 0; i < len(b); i++ {
		if b[i] == '\n' {
			entries = append(entries, string(b[start:i]))
			start = i + 1
		}
	}
	if start < len(b) {
		entries = append(entries, string(b[start:]))
	}
	return Dictionary{entries: entries}, nil
}
