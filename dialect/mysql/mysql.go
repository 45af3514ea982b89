// Package mysql registers the MySQL dialect.
//
//	import _ "github.com/mickamy/pipesql/dialect/mysql"
package mysql

import (
	"strings"

	"github.com/mickamy/pipesql"
)

func init() {
	pipesql.Register(pipesql.MySQL, New())
}

// Dialect is the MySQL dialect: backtick quoting and ON DUPLICATE KEY UPDATE upserts.
type Dialect struct {
	pipesql.BaseDialect
}

func New() Dialect {
	return Dialect{BaseDialect: pipesql.NewBaseDialect(pipesql.MySQL,
		pipesql.WithQuoteChar('`'),
		pipesql.WithCurrentSchema("DATABASE()"),
		pipesql.WithReservedWords("CHANGE", "CONDITION", "DATABASE", "DUAL", "GROUPS", "INDEX",
			"KEY", "KEYS", "LOCK", "MATCH", "OPTION", "RANGE", "RANK", "READ", "ROWS", "SCHEMA",
			"SHOW", "SIGNAL", "WRITE"),
	)}
}

// BuildInsertOnDuplicateClause renders "ON DUPLICATE KEY UPDATE c=VALUES(c),...".
// MySQL has no DO NOTHING form, so a record made only of key columns reassigns
// its first key to itself.
func (d Dialect) BuildInsertOnDuplicateClause(_ string, r *pipesql.Record) (string, bool) {
	var set []string
	var firstKey string
	for _, c := range r.Columns() {
		name := pipesql.EscapeIdentifier(d, c.Name)
		if c.UniqueKey {
			if firstKey == "" {
				firstKey = name
			}
			continue
		}
		set = append(set, name+"=VALUES("+name+")")
	}
	if len(set) == 0 {
		return "ON DUPLICATE KEY UPDATE " + firstKey + "=" + firstKey, true
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(set, ","), true
}
