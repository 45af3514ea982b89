package pipesql

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Database type identifiers of the bundled dialects.
const (
	H2         = "H2"
	SQL92      = "SQL92"
	MySQL      = "MySQL"
	PostgreSQL = "PostgreSQL"
	OpenGauss  = "openGauss"
	SQLite     = "SQLite"
)

// BindStyle is the placeholder syntax a driver expects.
type BindStyle int

const (
	// BindQuestion keeps "?" markers.
	BindQuestion BindStyle = iota
	// BindDollar numbers markers as "$1", "$2", ...
	BindDollar
)

// Dialect describes the SQL syntax of one target database product.
// Implementations must be safe for concurrent use.
type Dialect interface {
	Name() string
	QuoteChar() rune
	IsReservedWord(word string) bool
	BindStyle() BindStyle
}

// UpsertDialect is implemented by dialects that can turn an INSERT into an upsert.
type UpsertDialect interface {
	Dialect
	// BuildInsertOnDuplicateClause returns the clause appended after the INSERT
	// statement of r, or false when the dialect has none for r.
	BuildInsertOnDuplicateClause(schema string, r *Record) (string, bool)
}

// UniqueKeyQuerier is implemented by dialects that can list the primary-key columns
// of a table. The query returns one column name per row, in key order.
type UniqueKeyQuerier interface {
	UniqueKeysSQL(schema, table string) (string, []any)
}

var commonReservedWords = []string{
	"ALL", "AND", "AS", "ASC", "BETWEEN", "BY", "CASE", "CHECK", "COLUMN", "CONSTRAINT",
	"CREATE", "CROSS", "DEFAULT", "DELETE", "DESC", "DISTINCT", "DROP", "ELSE", "END",
	"EXISTS", "FALSE", "FOR", "FOREIGN", "FROM", "FULL", "GROUP", "HAVING", "IN", "INNER",
	"INSERT", "INTO", "IS", "JOIN", "LEFT", "LIKE", "LIMIT", "NOT", "NULL", "ON", "OR",
	"ORDER", "OUTER", "PRIMARY", "REFERENCES", "RIGHT", "SELECT", "SET", "TABLE", "THEN",
	"TO", "TRUE", "UNION", "UNIQUE", "UPDATE", "USER", "USING", "VALUES", "WHEN", "WHERE",
	"WITH",
}

// BaseDialect is the shared ANSI behavior that concrete dialects embed.
type BaseDialect struct {
	name          string
	quote         rune
	bind          BindStyle
	currentSchema string
	reserved      map[string]struct{}
}

// BaseOption customizes a BaseDialect.
type BaseOption func(*BaseDialect)

// WithQuoteChar sets the identifier quote character (default '"').
func WithQuoteChar(q rune) BaseOption {
	return func(d *BaseDialect) { d.quote = q }
}

// WithBindStyle sets the placeholder syntax (default BindQuestion).
func WithBindStyle(s BindStyle) BaseOption {
	return func(d *BaseDialect) { d.bind = s }
}

// WithReservedWords adds words that must be quoted when used as identifiers.
func WithReservedWords(words ...string) BaseOption {
	return func(d *BaseDialect) {
		for _, w := range words {
			d.reserved[strings.ToUpper(w)] = struct{}{}
		}
	}
}

// WithCurrentSchema sets the SQL expression naming the session schema,
// used when a metadata lookup is given no schema (default "CURRENT_SCHEMA").
func WithCurrentSchema(expr string) BaseOption {
	return func(d *BaseDialect) { d.currentSchema = expr }
}

// NewBaseDialect builds a BaseDialect named name.
func NewBaseDialect(name string, opts ...BaseOption) BaseDialect {
	d := BaseDialect{
		name:          name,
		quote:         '"',
		bind:          BindQuestion,
		currentSchema: "CURRENT_SCHEMA",
		reserved:      make(map[string]struct{}, len(commonReservedWords)),
	}
	for _, w := range commonReservedWords {
		d.reserved[w] = struct{}{}
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func (d BaseDialect) Name() string { return d.name }

func (d BaseDialect) QuoteChar() rune { return d.quote }

func (d BaseDialect) BindStyle() BindStyle { return d.bind }

func (d BaseDialect) IsReservedWord(word string) bool {
	_, ok := d.reserved[strings.ToUpper(word)]
	return ok
}

// UniqueKeysSQL looks primary-key columns up in information_schema.
func (d BaseDialect) UniqueKeysSQL(schema, table string) (string, []any) {
	schemaExpr := d.currentSchema
	args := []any{table}
	if schema != "" {
		schemaExpr = "?"
		args = append(args, schema)
	}
	q := "SELECT kcu.column_name FROM information_schema.table_constraints tc" +
		" JOIN information_schema.key_column_usage kcu" +
		" ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema AND tc.table_name = kcu.table_name" +
		" WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_name = ? AND tc.table_schema = " + schemaExpr +
		" ORDER BY kcu.ordinal_position"
	return q, args
}

type registration struct {
	name    string
	dialect Dialect
}

var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]registration)
)

func init() {
	Register(H2, NewBaseDialect(H2))
	Register(SQL92, NewBaseDialect(SQL92))
}

// Register makes a dialect available under a database type identifier.
// Identifiers are case-insensitive. It panics on a nil dialect or a duplicate
// identifier, and is meant to be called from init functions.
func Register(name string, d Dialect) {
	if d == nil {
		panic("pipesql: Register dialect is nil")
	}
	key := strings.ToLower(name)
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	if _, dup := dialects[key]; dup {
		panic("pipesql: Register called twice for dialect " + name)
	}
	dialects[key] = registration{name: name, dialect: d}
}

// LookupDialect returns the dialect registered for databaseType.
func LookupDialect(databaseType string) (Dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	reg, ok := dialects[strings.ToLower(strings.TrimSpace(databaseType))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (forgotten import?)", ErrUnknownDialect, databaseType)
	}
	return reg.dialect, nil
}

// Dialects returns the registered identifiers, sorted.
func Dialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	out := make([]string, 0, len(dialects))
	for _, reg := range dialects {
		out = append(out, reg.name)
	}
	slices.Sort(out)
	return out
}
