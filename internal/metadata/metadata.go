// Package metadata computes and persists the dataset-level description.
package metadata

import (
	"encoding/json"
	"io"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/dictionary"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/fsutil"
)

// Aggregate describes the union of train and val. With zero pairs every
// statistic, including the realized ratio, is 0.
func Aggregate(train, val []entity.ValidatedPair, dict dictionary.Dictionary) entity.DatasetMetadata {
	total := len(train) + len(val)
	md := entity.DatasetMetadata{
		DatasetInfo: entity.DatasetInfo{
			TotalSamples: total,
			TrainSamples: len(train),
			ValSamples:   len(val),
		},
		CharacterInfo: entity.CharacterInfo{
			TotalCharacters: dict.Len(),
			CharacterList:   dict.Entries(),
		},
	}
	if total == 0 {
		return md
	}
	md.DatasetInfo.TrainRatio = float64(len(train)) / float64(total)

	lengths := make([]float64, 0, total)
	for _, p := range train {
		lengths = append(lengths, float64(utf8.RuneCountInString(p.Record.Text)))
	}
	for _, p := range val {
		lengths = append(lengths, float64(utf8.RuneCountInString(p.Record.Text)))
	}
	md.TextStatistics = TextStats(lengths)
	return md
}

// TextStats summarizes a set of text lengths. Empty input yields zeros.
func TextStats(lengths []float64) entity.TextStatistics {
	if len(lengths) == 0 {
		return entity.TextStatistics{}
	}
	sorted := slices.Clone(lengths)
	slices.Sort(sorted)
	return entity.TextStatistics{
		MinLength:       int(floats.Min(sorted)),
		MaxLength:       int(floats.Max(sorted)),
		AvgLength:       stat.Mean(sorted, nil),
		MedianLength:    stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95Length:       stat.Quantile(0.95, stat.Empirical, sorted, nil),
		TotalCharacters: int(floats.Sum(sorted)),
	}
}

// Encode writes md as indented JSON without HTML escaping, so '<' and '&'
// in the character list stay readable.
func Encode(w io.Writer, md entity.DatasetMetadata) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(md)
}

// Save writes metadata/dataset_info.json and metadata/character_dict.txt under root.
func Save(root string, md entity.DatasetMetadata, dict dictionary.Dictionary) error {
	dir := filepath.Join(root, constants.MetadataDir)
	if err := fsutil.EnsureDirs(dir); err != nil {
		return err
	}
	err := fsutil.WriteFileAtomic(filepath.Join(dir, constants.DatasetInfoFile), 0o644, func(w io.Writer) error {
		return Encode(w, md)
	})
	if err != nil {
		return err
	}
	return dict.Save(filepath.Join(dir, constants.CharDictFile))
}
