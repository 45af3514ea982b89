package pipesql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"

	"github.com/mickamy/pipesql/internal/ident"
	"github.com/mickamy/pipesql/internal/query"
)

// TableNamer provides a custom table name for a model.
type TableNamer interface {
	TableName() string
}

// TableMeta is what the pipeline needs to know about a table before scanning it.
type TableMeta struct {
	Schema string
	Table  string
	// UniqueKeys lists the primary-key columns in key order; empty when the table has none.
	UniqueKeys []string
}

// LoadTableMeta resolves target to a table and loads its primary-key columns.
// target is a table name (optionally "schema.table") or a model value; a model
// implementing TableNamer names itself, otherwise its type name is pluralized
// in snake_case.
func LoadTableMeta(ctx context.Context, db *sql.DB, d Dialect, target any) (TableMeta, error) {
	return loadTableMeta(ctx, db, d, target, "")
}

// loadTableMeta is LoadTableMeta with a schema used when target names none.
func loadTableMeta(ctx context.Context, db *sql.DB, d Dialect, target any, defaultSchema string) (TableMeta, error) {
	name, err := resolveTableName(target)
	if err != nil {
		return TableMeta{}, err
	}
	meta, err := splitTableName(name)
	if err != nil {
		return TableMeta{}, err
	}
	if meta.Schema == "" {
		meta.Schema = defaultSchema
	}

	q, args := uniqueKeysSQL(d, meta.Schema, meta.Table)
	if d.BindStyle() == BindDollar {
		q = query.Rebind(q)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return TableMeta{}, fmt.Errorf("pipesql: failed to load unique keys of %s: %w", name, err)
	}
	keys, err := scanStrings(rows)
	if err != nil {
		return TableMeta{}, fmt.Errorf("pipesql: failed to scan unique keys of %s: %w", name, err)
	}
	meta.UniqueKeys = keys
	return meta, nil
}

func uniqueKeysSQL(d Dialect, schema, table string) (string, []any) {
	if uq, ok := d.(UniqueKeyQuerier); ok {
		return uq.UniqueKeysSQL(schema, table)
	}
	return NewBaseDialect(d.Name()).UniqueKeysSQL(schema, table)
}

func splitTableName(name string) (TableMeta, error) {
	parts := ident.SplitQualified(name)
	switch len(parts) {
	case 1:
		return TableMeta{Table: parts[0]}, nil
	case 2:
		return TableMeta{Schema: parts[0], Table: parts[1]}, nil
	default:
		return TableMeta{}, fmt.Errorf("pipesql: unsupported table identifier %q", name)
	}
}

// resolveTableName names the table behind target: the string itself, the
// TableName of a TableNamer model, or the pluralized snake_case type name.
func resolveTableName(target any) (string, error) {
	if s, ok := target.(string); ok {
		if name := strings.TrimSpace(s); name != "" {
			return name, nil
		}
		return "", errors.New("pipesql: empty table name")
	}
	if target == nil {
		return "", errors.New("pipesql: nil table target")
	}

	v := reflect.ValueOf(target)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", fmt.Errorf("pipesql: nil pointer target %T", target)
		}
		v = v.Elem()
	}
	if namer, ok := tableNamer(v); ok {
		name := strings.TrimSpace(namer.TableName())
		if name == "" {
			return "", fmt.Errorf("pipesql: %T names an empty table", target)
		}
		return name, nil
	}
	switch {
	case v.Kind() != reflect.Struct:
		return "", fmt.Errorf("pipesql: unsupported table target %T", target)
	case v.Type().Name() == "":
		return "", fmt.Errorf("pipesql: cannot derive table name for anonymous %v", v.Type())
	}
	return inflection.Plural(toSnakeCase(v.Type().Name())), nil
}

// tableNamer finds TableName on v whichever receiver it is declared on.
func tableNamer(v reflect.Value) (TableNamer, bool) {
	if namer, ok := v.Interface().(TableNamer); ok {
		return namer, true
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	namer, ok := p.Interface().(TableNamer)
	return namer, ok
}

// toSnakeCase splits s into words where the case changes, so "HTTPLog"
// becomes "http_log" and "userID" becomes "user_id".
func toSnakeCase(s string) string {
	runes := []rune(s)
	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		if !unicode.IsUpper(runes[i]) {
			continue
		}
		prev := runes[i-1]
		acronymEnd := unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
		if unicode.IsLower(prev) || unicode.IsDigit(prev) || acronymEnd {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	words = append(words, string(runes[start:]))
	return strings.ToLower(strings.Join(words, "_"))
}
