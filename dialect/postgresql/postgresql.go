// Package postgresql registers the PostgreSQL dialect.
//
//	import _ "github.com/mickamy/pipesql/dialect/postgresql"
package postgresql

import (
	"github.com/mickamy/pipesql"
)

func init() {
	pipesql.Register(pipesql.PostgreSQL, New())
}

// Dialect is the PostgreSQL dialect: "$n" binds and ON CONFLICT upserts.
type Dialect struct {
	pipesql.BaseDialect
}

func New() Dialect {
	return Dialect{BaseDialect: pipesql.NewBaseDialect(pipesql.PostgreSQL,
		pipesql.WithBindStyle(pipesql.BindDollar),
		pipesql.WithCurrentSchema("current_schema()"),
		pipesql.WithReservedWords("ANALYSE", "ANALYZE", "ARRAY", "ASYMMETRIC", "BOTH", "CAST",
			"COLLATE", "CURRENT_DATE", "CURRENT_USER", "DEFERRABLE", "DO", "FETCH", "GRANT",
			"INITIALLY", "LATERAL", "LEADING", "LOCALTIME", "OFFSET", "ONLY", "PLACING",
			"RETURNING", "SESSION_USER", "SOME", "SYMMETRIC", "TRAILING", "VARIADIC", "WINDOW"),
	)}
}

func (d Dialect) BuildInsertOnDuplicateClause(_ string, r *pipesql.Record) (string, bool) {
	return pipesql.OnConflictDoUpdate(d, r)
}

// UniqueKeysSQL reads the primary key from pg_catalog, in index column order.
func (d Dialect) UniqueKeysSQL(schema, table string) (string, []any) {
	schemaExpr := "current_schema()"
	args := []any{table}
	if schema != "" {
		schemaExpr = "?"
		args = append(args, schema)
	}
	q := "SELECT a.attname FROM pg_index i" +
		" JOIN pg_class r ON r.oid = i.indrelid" +
		" JOIN pg_namespace n ON n.oid = r.relnamespace" +
		" JOIN pg_attribute a ON a.attrelid = r.oid AND a.attnum = ANY(i.indkey)" +
		" WHERE i.indisprimary AND r.relname = ? AND n.nspname = " + schemaExpr +
		" ORDER BY array_position(i.indkey::int2[], a.attnum)"
	return q, args
}
