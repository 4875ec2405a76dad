package locate

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CSVTable reads each sheet from "<dir>/<sheet>.csv", the layout produced by
// exporting every tab of the workbook.
type CSVTable struct {
	dir string
}

// NewCSVTable returns a table rooted at dir.
func NewCSVTable(dir string) *CSVTable {
	return &CSVTable{dir: dir}
}

// Rows implements Table.
func (t *CSVTable) Rows(_ context.Context, sheet string) ([]map[string]string, error) {
	f, err := os.Open(filepath.Join(t.dir, sheet+".csv"))
	if err != nil {
		return nil, fmt.Errorf("open sheet %q: %w", sheet, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sheet %q header: %w", sheet, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
