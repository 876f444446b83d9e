// Package export renders report datasets to the formats the mentors
// actually hand out: CSV for spreadsheets and PDF for the printed
// pit-display copy.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is a rendered report: ordered column headers plus rows keyed
// by header name. Row order is the report's display order.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// RenderCSV writes the dataset as CSV with a header row.
func RenderCSV(ds Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(ds.Headers); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	record := make([]string, len(ds.Headers))
	for _, row := range ds.Rows {
		for i, h := range ds.Headers {
			record[i] = row[h]
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
