// Package sqlite registers the SQLite dialect.
//
//	import _ "github.com/mickamy/pipesql/dialect/sqlite"
package sqlite

import (
	"github.com/mickamy/pipesql"
)

func init() {
	pipesql.Register(pipesql.SQLite, New())
}

// Dialect is the SQLite dialect. It shares the PostgreSQL upsert syntax.
type Dialect struct {
	pipesql.BaseDialect
}

func New() Dialect {
	return Dialect{BaseDialect: pipesql.NewBaseDialect(pipesql.SQLite,
		pipesql.WithReservedWords("ABORT", "ATTACH", "AUTOINCREMENT", "DETACH", "GLOB", "INDEX",
			"ISNULL", "NOTNULL", "PRAGMA", "RAISE", "REGEXP", "VACUUM"),
	)}
}

func (d Dialect) BuildInsertOnDuplicateClause(_ string, r *pipesql.Record) (string, bool) {
	return pipesql.OnConflictDoUpdate(d, r)
}

// UniqueKeysSQL reads the primary key through the table_info pragma.
func (d Dialect) UniqueKeysSQL(schema, table string) (string, []any) {
	if schema == "" {
		return "SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk", []any{table}
	}
	return "SELECT name FROM pragma_table_info(?, ?) WHERE pk > 0 ORDER BY pk", []any{table, schema}
}
