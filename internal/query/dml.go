package query

import (
	"strconv"
	"strings"
)

// ColumnList joins names with "," and no spaces: "a,b,c".
func ColumnList(names []string) string {
	return strings.Join(names, ",")
}

// Placeholders renders n comma separated "?" markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(2*n - 1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('?')
	}
	return b.String()
}

// Assignments renders "name = ?" pairs joined by sep.
// UPDATE SET lists use "," and WHERE conditions use " AND ".
func Assignments(names []string, sep string) string {
	var b strings.Builder
	for i, n := range names {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(n)
		b.WriteString(" = ?")
	}
	return b.String()
}

// Rebind rewrites "?" markers into "$1", "$2", ... in textual order.
// Markers inside quoted identifiers or string literals are left untouched.
func Rebind(q string) string {
	if !strings.Contains(q, "?") {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	var quote byte
	n := 0
	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '`' || c == '\'':
			quote = c
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
