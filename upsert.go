package pipesql

import (
	"strings"
)

// OnConflictDoUpdate renders "ON CONFLICT (k,...) DO UPDATE SET c=EXCLUDED.c,..."
// for dialects following the PostgreSQL upsert syntax. The conflict target is the
// unique-key columns of r; a record with none has no clause. When every column is
// part of the key the clause is "ON CONFLICT (k,...) DO NOTHING".
func OnConflictDoUpdate(d Dialect, r *Record) (string, bool) {
	var keys, set []string
	for _, c := range r.columns {
		name := EscapeIdentifier(d, c.Name)
		if c.UniqueKey {
			keys = append(keys, name)
			continue
		}
		set = append(set, name+"=EXCLUDED."+name)
	}
	if len(keys) == 0 {
		return "", false
	}
	target := "ON CONFLICT (" + strings.Join(keys, ",") + ")"
	if len(set) == 0 {
		return target + " DO NOTHING", true
	}
	return target + " DO UPDATE SET " + strings.Join(set, ","), true
}
