// Package schema holds the JSON-Schemas of the dataset's JSON artifacts.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/ocr-dataset-prep/internal/common"
)

// Compile compiles schemaMap under the given resource name.
func Compile(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

// Validate decodes data and checks it against s.
func Validate(s *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: json does not match schema: %w", common.ErrValidation, err)
	}
	return nil
}

var (
	labelLine   = sync.OnceValues(func() (*jsonschema.Schema, error) { return Compile("label_line.json", LabelLine()) })
	datasetInfo = sync.OnceValues(func() (*jsonschema.Schema, error) { return Compile("dataset_info.json", DatasetInfo()) })
)

// ValidateLabelLine checks one single-line JSON label object.
func ValidateLabelLine(data []byte) error {
	s, err := labelLine()
	if err != nil {
		return err
	}
	return Validate(s, data)
}

// ValidateDatasetInfo checks the contents of metadata/dataset_info.json.
func ValidateDatasetInfo(data []byte) error {
	s, err := datasetInfo()
	if err != nil {
		return err
	}
	return Validate(s, data)
}
