package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is an ordered tabular payload ready for rendering. Rows shorter than
// Columns are padded with empty cells; longer rows are an error.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// CSV renders the table as RFC 4180 CSV with a header row. The title is not
// emitted; CSV consumers get column names only.
func CSV(t Table) ([]byte, error) {
	rows, err := t.normalized()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

func (t Table) normalized() ([][]string, error) {
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		if len(row) > len(t.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, table has %d columns", i, len(row), len(t.Columns))
		}
		padded := make([]string, len(t.Columns))
		copy(padded, row)
		rows[i] = padded
	}
	return rows, nil
}
