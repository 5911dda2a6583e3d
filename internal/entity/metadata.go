package entity

// DatasetMetadata is serialized to metadata/dataset_info.json.
type DatasetMetadata struct {
	DatasetInfo    DatasetInfo    `json:"dataset_info"`
	CharacterInfo  CharacterInfo  `json:"character_info"`
	TextStatistics TextStatistics `json:"text_statistics"`
}

type DatasetInfo struct {
	RunID        string  `json:"run_id,omitempty"`
	TotalSamples int     `json:"total_samples"`
	TrainSamples int     `json:"train_samples"`
	ValSamples   int     `json:"val_samples"`
	TrainRatio   float64 `json:"train_ratio"`
}

type CharacterInfo struct {
	TotalCharacters int      `json:"total_characters"`
	CharacterList   []string `json:"character_list"`
}

type TextStatistics struct {
	MinLength       int     `json:"min_length"`
	MaxLength       int     `json:"max_length"`
	AvgLength       float64 `json:"avg_length"`
	MedianLength    float64 `json:"median_length"`
	P95Length       float64 `json:"p95_length"`
	TotalCharacters int     `json:"total_characters"`
}
