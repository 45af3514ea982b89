package pipesql

import (
	"fmt"
)

// Statement is a rendered record: SQL text plus its arguments in "?" order.
type Statement struct {
	Table    string
	Type     ChangeType
	SQL      string
	Args     []any
	// Columns names the column bound to each entry of Args.
	Columns  []string
	Position Position
}

// Statement classifies r and renders it according to its change type.
//
// Arguments follow the placeholders left to right: every column for INSERT;
// SET values then condition values for UPDATE; condition values for DELETE.
// Condition values use the before-image of a column when the record carries one.
func (e *Engine) Statement(schema string, r *Record, auxiliary []string) (Statement, error) {
	if err := r.validate(); err != nil {
		return Statement{}, err
	}
	st := Statement{Table: r.table, Type: r.typ, Position: r.Position()}
	switch r.typ {
	case Insert:
		q, err := e.BuildInsertSQL(schema, r)
		if err != nil {
			return Statement{}, err
		}
		st.SQL = q
		st.Args = values(r.columns)
		st.Columns = columnNames(r.columns)
	case Update:
		cond := ExtractConditionColumns(r, auxiliary)
		q, set, err := e.buildUpdate(schema, r, cond)
		if err != nil {
			return Statement{}, err
		}
		st.SQL = q
		st.Args = append(values(set), conditionValues(cond)...)
		st.Columns = append(columnNames(set), columnNames(cond)...)
	case Delete:
		cond := ExtractConditionColumns(r, auxiliary)
		q, err := e.BuildDeleteSQL(schema, r, cond)
		if err != nil {
			return Statement{}, err
		}
		st.SQL = q
		st.Args = conditionValues(cond)
		st.Columns = columnNames(cond)
	default:
		return Statement{}, fmt.Errorf("%w: unknown change type %s", ErrMalformedRecord, r.typ)
	}
	return st, nil
}

func values(cs []Column) []any {
	out := make([]any, len(cs))
	for i, c := range cs {
		out[i] = c.Value
	}
	return out
}

func conditionValues(cs []Column) []any {
	out := make([]any, len(cs))
	for i, c := range cs {
		out[i] = c.ConditionValue()
	}
	return out
}
