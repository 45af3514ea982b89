package pipesql

import (
	"database/sql"
)

// scanRows calls fn once per row with the column names and a fresh value slice,
// and closes rows. It returns the number of rows handed to fn.
func scanRows(rows *sql.Rows, fn func(cols []string, vals []any) error) (int, error) {
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	n := 0
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return n, err
		}
		n++
		if err := fn(cols, vals); err != nil {
			return n, err
		}
	}
	return n, rows.Err()
}

// scanStrings reads a single string column from every row.
func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	_, err := scanRows(rows, func(_ []string, vals []any) error {
		switch v := vals[0].(type) {
		case string:
			out = append(out, v)
		case []byte:
			out = append(out, string(v))
		}
		return nil
	})
	return out, err
}
