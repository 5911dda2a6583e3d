package schema

// LabelLine is the schema of a single-line JSON label.
// Extra properties are tolerated; only image and text are read.
func LabelLine() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"image": map[string]any{"type": "string", "minLength": 1},
			"text":  map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"image", "text"},
	}
}

// DatasetInfo is the schema of metadata/dataset_info.json.
func DatasetInfo() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"dataset_info", "character_info", "text_statistics"},
		"properties": map[string]any{
			"dataset_info": object(map[string]any{
				"run_id":        map[string]any{"type": "string"},
				"total_samples": count(),
				"train_samples": count(),
				"val_samples":   count(),
				"train_ratio":   map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			}, "total_samples", "train_samples", "val_samples", "train_ratio"),
			"character_info": object(map[string]any{
				"total_characters": count(),
				"character_list": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string", "minLength": 1},
					"uniqueItems": true,
				},
			}, "total_characters", "character_list"),
			"text_statistics": object(map[string]any{
				"min_length":       count(),
				"max_length":       count(),
				"avg_length":       length(),
				"median_length":    length(),
				"p95_length":       length(),
				"total_characters": count(),
			}, "min_length", "max_length", "avg_length", "total_characters"),
		},
	}
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func count() map[string]any {
	return map[string]any{"type": "integer", "minimum": 0}
}

func length() map[string]any {
	return map[string]any{"type": "number", "minimum": 0}
}
