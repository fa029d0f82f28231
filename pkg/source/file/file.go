// Package file serves series from a dataset file.
//
// A dataset is a [source.Dataset] encoded as YAML (.yaml, .yml) or JSON
// (.json). It is written by "covidchart export" and lets the CLI work
// without the prediction service.
package file

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/source"
)

// Open reads the dataset at path.
func Open(path string) (*source.Memory, error) {
	ds, err := Read(path)
	if err != nil {
		return nil, err
	}
	m, err := source.NewMemory(ds)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetchFailure, err, "load %s", path)
	}
	return m, nil
}

// Read decodes the dataset at path without converting its series.
func Read(path string) (source.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return source.Dataset{}, errors.Wrap(errors.ErrCodeNotFound, err, "dataset %s", path)
		}
		return source.Dataset{}, errors.Wrap(errors.ErrCodeFetchFailure, err, "read %s", path)
	}

	var ds source.Dataset
	if isJSON(path) {
		err = json.Unmarshal(data, &ds)
	} else {
		err = yaml.Unmarshal(data, &ds)
	}
	if err != nil {
		return source.Dataset{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", path)
	}
	return ds, nil
}

// Write encodes ds to path, choosing the format from the extension.
func Write(path string, ds source.Dataset) error {
	var buf bytes.Buffer
	if isJSON(path) {
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(ds); err != nil {
			return err
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(ds); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// IsDataset reports whether path has a dataset extension.
func IsDataset(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
