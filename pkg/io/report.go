package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/labeltower/pkg/errors"
	"github.com/matzehuels/labeltower/pkg/result"
)

// WriteReport encodes rep as indented JSON.
func WriteReport(rep *result.Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportReport writes rep to a JSON file at path.
func ExportReport(rep *result.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteReport(rep, f)
}

// ReadReport decodes a report written by [WriteReport].
func ReadReport(r io.Reader) (*result.Report, error) {
	var rep result.Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode report")
	}
	if rep.RunID == "" {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "report has no run_id")
	}
	return &rep, nil
}

// ImportReport reads the report file at path.
func ImportReport(path string) (*result.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	defer f.Close()
	return ReadReport(f)
}
