package pipesql

import (
	"fmt"
	"strconv"

	"github.com/mickamy/pipesql/internal/query"
)

// Engine renders pipeline SQL for one dialect. It holds no per-call state and
// is safe for concurrent use.
type Engine struct {
	dialect Dialect
}

// NewEngine returns an engine bound to d. A nil dialect selects SQL92.
func NewEngine(d Dialect) *Engine {
	if d == nil {
		d = NewBaseDialect(SQL92)
	}
	return &Engine{dialect: d}
}

// NewEngineFor returns an engine for a registered database type.
func NewEngineFor(databaseType string) (*Engine, error) {
	d, err := LookupDialect(databaseType)
	if err != nil {
		return nil, err
	}
	return NewEngine(d), nil
}

func (e *Engine) Dialect() Dialect { return e.dialect }

// BuildQueryAllOrderingSQL renders one page of a full-table scan ordered by
// orderBy. The first page has no predicate; later pages bind the last orderBy
// value seen to the single "?" so paging follows a cursor instead of an offset.
func (e *Engine) BuildQueryAllOrderingSQL(schema, table string, columns []string, orderBy string, first bool) string {
	key := EscapeIdentifier(e.dialect, orderBy)
	if first {
		return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s ASC", e.projection(columns), e.table(schema, table), key)
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s>? ORDER BY %s ASC", e.projection(columns), e.table(schema, table), key, key)
}

// BuildQueryPageSQL is BuildQueryAllOrderingSQL bounded to limit rows.
// A non-positive limit leaves the query unbounded.
func (e *Engine) BuildQueryPageSQL(schema, table string, columns []string, orderBy string, first bool, limit int) string {
	q := e.BuildQueryAllOrderingSQL(schema, table, columns, orderBy, first)
	if limit <= 0 {
		return q
	}
	return q + " LIMIT " + strconv.Itoa(limit)
}

// BuildQueryRangeOrderingSQL renders a scan of the key range starting at the
// first "?" (inclusive or exclusive) and, when bounded, ending at the second
// "?" inclusive.
func (e *Engine) BuildQueryRangeOrderingSQL(schema, table string, columns []string, key string, lowerInclusive, bounded bool) string {
	k := EscapeIdentifier(e.dialect, key)
	op := ">"
	if lowerInclusive {
		op = ">="
	}
	where := k + op + "?"
	if bounded {
		where += " AND " + k + "<=?"
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s ASC", e.projection(columns), e.table(schema, table), where, k)
}

// BuildNoUniqueKeyQueryAllSQL renders an unordered scan for tables without a usable key.
func (e *Engine) BuildNoUniqueKeyQueryAllSQL(schema, table string, columns []string) string {
	return fmt.Sprintf("SELECT %s FROM %s", e.projection(columns), e.table(schema, table))
}

func (e *Engine) BuildCountSQL(schema, table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", e.table(schema, table))
}

func (e *Engine) BuildUniqueKeyMinMaxValuesSQL(schema, table, key string) string {
	k := EscapeIdentifier(e.dialect, key)
	return fmt.Sprintf("SELECT MIN(%s),MAX(%s) FROM %s", k, k, e.table(schema, table))
}

// BuildInsertSQL renders an INSERT with one "?" per column in record order,
// followed by the dialect's on-duplicate clause when it has one.
func (e *Engine) BuildInsertSQL(schema string, r *Record) (string, error) {
	if err := r.validate(); err != nil {
		return "", err
	}
	q := fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s)",
		e.table(schema, r.table),
		query.ColumnList(escapeAll(e.dialect, columnNames(r.columns))),
		query.Placeholders(len(r.columns)),
	)
	if clause, ok := e.BuildInsertOnDuplicateClause(schema, r); ok {
		q += " " + clause
	}
	return q, nil
}

// BuildInsertOnDuplicateClause returns the dialect's upsert clause for r.
// Dialects without the capability report false.
func (e *Engine) BuildInsertOnDuplicateClause(schema string, r *Record) (string, bool) {
	d, ok := e.dialect.(UpsertDialect)
	if !ok {
		return "", false
	}
	return d.BuildInsertOnDuplicateClause(schema, r)
}

// BuildUpsertSQL is BuildInsertSQL for callers that cannot proceed without the
// on-duplicate clause.
func (e *Engine) BuildUpsertSQL(schema string, r *Record) (string, error) {
	if err := r.validate(); err != nil {
		return "", err
	}
	if _, ok := e.BuildInsertOnDuplicateClause(schema, r); !ok {
		return "", fmt.Errorf("%w: %s has no upsert clause for table %s", ErrUnsupportedDialectFeature, e.dialect.Name(), r.table)
	}
	return e.BuildInsertSQL(schema, r)
}

// BuildUpdateSQL renders "UPDATE t SET c = ?,... WHERE k = ? AND ...".
//
// The SET list holds the updated columns. When none is updated, the columns not
// used as conditions are passed through instead; when there are none of those
// either, ErrNoUpdatableColumns is returned.
func (e *Engine) BuildUpdateSQL(schema string, r *Record, conditions []Column) (string, error) {
	q, _, err := e.buildUpdate(schema, r, conditions)
	return q, err
}

func (e *Engine) buildUpdate(schema string, r *Record, conditions []Column) (string, []Column, error) {
	if err := r.validate(); err != nil {
		return "", nil, err
	}
	if len(conditions) == 0 {
		return "", nil, fmt.Errorf("%w: update of %s", ErrAmbiguousRowIdentification, r.table)
	}
	set := updateSetColumns(r, conditions)
	if len(set) == 0 {
		return "", nil, fmt.Errorf("%w: update of %s", ErrNoUpdatableColumns, r.table)
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		e.table(schema, r.table),
		query.Assignments(escapeAll(e.dialect, columnNames(set)), ","),
		query.Assignments(escapeAll(e.dialect, columnNames(conditions)), " AND "),
	)
	return q, set, nil
}

func updateSetColumns(r *Record, conditions []Column) []Column {
	if set := ExtractSetColumns(r); len(set) > 0 {
		return set
	}
	cond := make(map[string]struct{}, len(conditions))
	for _, c := range conditions {
		cond[c.Name] = struct{}{}
	}
	var out []Column
	for _, c := range r.columns {
		if _, ok := cond[c.Name]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// BuildDeleteSQL renders "DELETE FROM t WHERE k = ? AND ...".
func (e *Engine) BuildDeleteSQL(schema string, r *Record, conditions []Column) (string, error) {
	if err := r.validate(); err != nil {
		return "", err
	}
	if len(conditions) == 0 {
		return "", fmt.Errorf("%w: delete from %s", ErrAmbiguousRowIdentification, r.table)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s",
		e.table(schema, r.table),
		query.Assignments(escapeAll(e.dialect, columnNames(conditions)), " AND "),
	), nil
}

func (e *Engine) table(schema, table string) string {
	return qualifiedTableName(e.dialect, schema, table)
}

// projection keeps a lone "*" verbatim; an empty list selects every column.
func (e *Engine) projection(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	return query.ColumnList(escapeAll(e.dialect, columns))
}
