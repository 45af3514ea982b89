package pipesql

import (
	"slices"
	"strings"

	"github.com/mickamy/pipesql/internal/ident"
)

// EscapeIdentifier renders name for d. Plain identifiers that are not reserved
// words are returned unchanged; "*" and identifiers already quoted for d are
// kept verbatim; everything else is quoted.
func EscapeIdentifier(d Dialect, name string) string {
	q := d.QuoteChar()
	if name == "*" || ident.IsQuoted(name, q) {
		return name
	}
	if ident.IsPlain(name) && !d.IsReservedWord(name) {
		return name
	}
	return ident.Quote(name, q)
}

// qualifiedTableName renders "schema.table", or table alone when schema is empty.
// A table already written as "schema.table" is escaped part by part; when it was
// written with quotes, every part stays quoted.
func qualifiedTableName(d Dialect, schema, table string) string {
	if strings.TrimSpace(schema) != "" {
		return EscapeIdentifier(d, schema) + "." + EscapeIdentifier(d, table)
	}
	parts := ident.SplitQualified(table)
	if len(parts) < 2 || slices.Contains(parts, "") {
		return EscapeIdentifier(d, table)
	}
	q := d.QuoteChar()
	quoted := strings.ContainsRune(table, q)
	for i, p := range parts {
		if quoted {
			parts[i] = ident.Quote(p, q)
			continue
		}
		parts[i] = EscapeIdentifier(d, p)
	}
	return strings.Join(parts, ".")
}

func escapeAll(d Dialect, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = EscapeIdentifier(d, n)
	}
	return out
}
