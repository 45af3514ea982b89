// Package opengauss registers the openGauss dialect.
//
//	import _ "github.com/mickamy/pipesql/dialect/opengauss"
package opengauss

import (
	"strings"

	"github.com/mickamy/pipesql"
)

func init() {
	pipesql.Register(pipesql.OpenGauss, New())
}

// Dialect is the openGauss dialect. Inserts turn into upserts through
// ON DUPLICATE KEY UPDATE, reassigning every column outside the unique key.
type Dialect struct {
	pipesql.BaseDialect
}

func New() Dialect {
	return Dialect{BaseDialect: pipesql.NewBaseDialect(pipesql.OpenGauss,
		pipesql.WithBindStyle(pipesql.BindDollar),
		pipesql.WithCurrentSchema("current_schema()"),
		pipesql.WithReservedWords("ANALYSE", "ANALYZE", "ARRAY", "CAST", "DO", "FETCH", "GRANT",
			"LATERAL", "OFFSET", "ONLY", "RETURNING", "WINDOW"),
	)}
}

// BuildInsertOnDuplicateClause renders "ON DUPLICATE KEY UPDATE c=EXCLUDED.c,...".
// Unique-key columns cannot be reassigned on conflict and are skipped; when nothing
// is left the clause is "ON DUPLICATE KEY UPDATE NOTHING".
func (d Dialect) BuildInsertOnDuplicateClause(_ string, r *pipesql.Record) (string, bool) {
	var set []string
	for _, c := range r.Columns() {
		if c.UniqueKey {
			continue
		}
		name := pipesql.EscapeIdentifier(d, c.Name)
		set = append(set, name+"=EXCLUDED."+name)
	}
	if len(set) == 0 {
		return "ON DUPLICATE KEY UPDATE NOTHING", true
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(set, ","), true
}
