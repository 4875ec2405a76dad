package locate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteTable reads each sheet from a table of the same name.
type SQLiteTable struct {
	db *sql.DB
}

// OpenSQLite opens the existing database at path. A missing file is an
// error rather than a new empty database.
func OpenSQLite(path string) (*SQLiteTable, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("open sqlite: %s is not a regular file", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLiteTable{db: db}, nil
}

// NewSQLiteTable wraps an existing handle.
func NewSQLiteTable(db *sql.DB) *SQLiteTable {
	return &SQLiteTable{db: db}
}

// Close closes the database.
func (t *SQLiteTable) Close() error {
	return t.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Rows implements Table.
func (t *SQLiteTable) Rows(ctx context.Context, sheet string) ([]map[string]string, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(sheet))
	if err != nil {
		return nil, fmt.Errorf("select %q: %w", sheet, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %q: %w", sheet, err)
	}

	var out []map[string]string
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %q: %w", sheet, err)
		}
		row := make(map[string]string, len(cols))
		for i, c := range cols {
			row[c] = cellString(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %q: %w", sheet, err)
	}
	return out, nil
}

// cellString renders a cell the way a spreadsheet export would: integers
// without a decimal point, NULL as empty.
func cellString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
