package pipesql

import (
	"fmt"
	"strings"
)

// ChangeType is the kind of a captured mutation.
type ChangeType int

const (
	Insert ChangeType = iota + 1
	Update
	Delete
)

func (t ChangeType) String() string {
	switch t {
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(t))
	}
}

// ParseChangeType parses INSERT, UPDATE or DELETE, case-insensitively.
func ParseChangeType(s string) (ChangeType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INSERT":
		return Insert, nil
	case "UPDATE":
		return Update, nil
	case "DELETE":
		return Delete, nil
	}
	return 0, fmt.Errorf("pipesql: unknown change type %q", s)
}

// Column is one captured column of a row.
type Column struct {
	Name  string
	Value any

	// OldValue is the before-image of the column, meaningful only when HasOldValue is set.
	OldValue    any
	HasOldValue bool

	// Updated marks a column changed by the write.
	Updated bool

	// UniqueKey marks a column that is part of the row identity.
	UniqueKey bool
}

// NewColumn returns a column without a before-image.
func NewColumn(name string, value any, updated, uniqueKey bool) Column {
	return Column{Name: name, Value: value, Updated: updated, UniqueKey: uniqueKey}
}

// ConditionValue is the value bound when the column appears in a WHERE clause.
// A key changed by an UPDATE must be matched on its old value.
func (c Column) ConditionValue() any {
	if c.HasOldValue {
		return c.OldValue
	}
	return c.Value
}

// Record is one captured mutation or one scanned row. It is immutable once built.
type Record struct {
	typ      ChangeType
	table    string
	position Position
	columns  []Column
}

func (r *Record) Type() ChangeType { return r.typ }

func (r *Record) Table() string { return r.table }

// Position returns the checkpoint token of the record, never nil.
func (r *Record) Position() Position {
	if r.position == nil {
		return PlaceholderPosition{}
	}
	return r.position
}

// Columns returns a copy of the columns in capture order.
func (r *Record) Columns() []Column {
	out := make([]Column, len(r.columns))
	copy(out, r.columns)
	return out
}

// Column returns the column named name.
func (r *Record) Column(name string) (Column, bool) {
	for _, c := range r.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (r *Record) Len() int { return len(r.columns) }

// validate rejects records that cannot be rendered. It also guards zero-value records
// that did not go through RecordBuilder.
func (r *Record) validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrMalformedRecord)
	}
	if strings.TrimSpace(r.table) == "" {
		return fmt.Errorf("%w: empty table name", ErrMalformedRecord)
	}
	if len(r.columns) == 0 {
		return fmt.Errorf("%w: table %s has no columns", ErrMalformedRecord, r.table)
	}
	seen := make(map[string]struct{}, len(r.columns))
	for _, c := range r.columns {
		if c.Name == "" {
			return fmt.Errorf("%w: table %s has an unnamed column", ErrMalformedRecord, r.table)
		}
		if _, ok := seen[c.Name]; ok {
			return fmt.Errorf("%w: table %s has duplicate column %q", ErrMalformedRecord, r.table, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// RecordBuilder accumulates columns for a single Record.
type RecordBuilder struct {
	rec Record
}

// NewRecordBuilder starts a record; capacity pre-sizes the column slice.
func NewRecordBuilder(typ ChangeType, table string, pos Position, capacity int) *RecordBuilder {
	if capacity < 0 {
		capacity = 0
	}
	return &RecordBuilder{rec: Record{
		typ:      typ,
		table:    table,
		position: pos,
		columns:  make([]Column, 0, capacity),
	}}
}

func (b *RecordBuilder) AddColumn(c Column) *RecordBuilder {
	b.rec.columns = append(b.rec.columns, c)
	return b
}

// Build validates the accumulated columns and returns the record.
// Columns added after Build do not affect records already built.
func (b *RecordBuilder) Build() (*Record, error) {
	r := b.rec
	r.columns = append([]Column(nil), b.rec.columns...)
	if err := r.validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
