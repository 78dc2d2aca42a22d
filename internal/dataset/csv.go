package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// LoadCSV reads a headed CSV file into a Dataset typed by schema. Headers
// must cover every schema column; extra file columns are ignored. An
// optional nameCol column (empty string to disable) supplies row names.
func LoadCSV(path string, schema Schema, nameCol string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: no data rows", path)
	}

	headers := records[0]
	rows := records[1:]

	headerIdx := make(map[string]int, len(headers))
	for i, h := range headers {
		headerIdx[strings.TrimSpace(h)] = i
	}

	var names []string
	if nameCol != "" {
		idx, ok := headerIdx[nameCol]
		if !ok {
			return nil, &SchemaError{Column: nameCol, Reason: "name column not found in file"}
		}
		names = make([]string, len(rows))
		for i, row := range rows {
			names[i] = row[idx]
		}
	}

	columns := make([]Column, 0, len(schema.Columns))
	for _, spec := range schema.Columns {
		idx, ok := headerIdx[spec.Name]
		if !ok {
			return nil, &SchemaError{Column: spec.Name, Reason: "column not found in file"}
		}
		raw := make([]string, len(rows))
		for i, row := range rows {
			if idx >= len(row) {
				return nil, &SchemaError{Column: spec.Name, Reason: fmt.Sprintf("row %d is short", i)}
			}
			raw[i] = strings.TrimSpace(row[idx])
		}
		col, err := buildColumn(spec, raw)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}

	return New(names, columns)
}
