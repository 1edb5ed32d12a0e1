package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
	"github.com/nhomyk/AgenticQA-sub001/internal/schema"
)

// datasetFile is the YAML shape of a dataset on disk.
type datasetFile struct {
	Source        string           `yaml:"source"`
	CapturedAt    time.Time        `yaml:"captured_at"`
	IdentityField string           `yaml:"identity_field"`
	Records       []map[string]any `yaml:"records"`
}

// LoadDataset reads a dataset from a YAML file.
//
// Expected shape:
//
//	source: inventory-export
//	captured_at: 2026-08-23T10:00:00Z
//	identity_field: id
//	records:
//	  - id: 1
//	    name: alpha
func LoadDataset(path string) (dataset.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return dataset.Dataset{}, WrapExitError(ExitCommandError, fmt.Sprintf("reading dataset %s", path), err)
	}

	var file datasetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return dataset.Dataset{}, WrapExitError(ExitCommandError, fmt.Sprintf("parsing dataset %s", path), err)
	}
	if file.IdentityField == "" {
		return dataset.Dataset{}, NewExitError(ExitCommandError, fmt.Sprintf("dataset %s: identity_field is required", path))
	}
	if file.CapturedAt.IsZero() {
		file.CapturedAt = time.Now().UTC()
	}

	records := make([]dataset.Record, len(file.Records))
	for i, m := range file.Records {
		fields, err := dataset.ObjectFromAny(m)
		if err != nil {
			return dataset.Dataset{}, WrapExitError(ExitCommandError,
				fmt.Sprintf("dataset %s: record %d", path, i), err)
		}
		records[i] = dataset.Record{Fields: fields}
	}

	return dataset.Dataset{
		Source:        file.Source,
		CapturedAt:    file.CapturedAt,
		IdentityField: file.IdentityField,
		Records:       records,
	}, nil
}

// LoadSchema reads a schema declaration from a YAML file.
func LoadSchema(path string) (*schema.Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("reading schema %s", path), err)
	}

	var s schema.Schema
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("parsing schema %s", path), err)
	}
	return &s, nil
}
