package pipesql

// ExtractIdentityColumns returns the unique-key columns of r in record order.
//
// When no column is flagged as a unique key every column is returned, so the row is
// matched on its full image. This is best effort: on a table holding duplicate rows
// such a match can hit more than one row.
func ExtractIdentityColumns(r *Record) []Column {
	var out []Column
	for _, c := range r.columns {
		if c.UniqueKey {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return r.Columns()
	}
	return out
}

// ExtractConditionColumns returns the identity columns of r followed by the columns
// named in auxiliary, both in record order and without duplicate names.
// Auxiliary names absent from the record are ignored.
func ExtractConditionColumns(r *Record, auxiliary []string) []Column {
	out := ExtractIdentityColumns(r)
	if len(auxiliary) == 0 {
		return out
	}
	want := make(map[string]struct{}, len(auxiliary))
	for _, n := range auxiliary {
		want[n] = struct{}{}
	}
	seen := make(map[string]struct{}, len(out))
	for _, c := range out {
		seen[c.Name] = struct{}{}
	}
	for _, c := range r.columns {
		if _, ok := want[c.Name]; !ok {
			continue
		}
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}

// ExtractSetColumns returns the updated columns of r in record order.
func ExtractSetColumns(r *Record) []Column {
	var out []Column
	for _, c := range r.columns {
		if c.Updated {
			out = append(out, c)
		}
	}
	return out
}

// Classification is the column split used to render one record.
type Classification struct {
	// Identity locates the target row.
	Identity []Column
	// Condition is Identity plus auxiliary columns; it feeds WHERE clauses.
	Condition []Column
	// Set is every column for INSERT, the updated columns for UPDATE and empty for DELETE.
	Set []Column
}

// Classify splits the columns of r according to its change type.
func Classify(r *Record, auxiliary []string) Classification {
	c := Classification{
		Identity:  ExtractIdentityColumns(r),
		Condition: ExtractConditionColumns(r, auxiliary),
	}
	switch r.typ {
	case Insert:
		c.Set = r.Columns()
	case Update:
		c.Set = ExtractSetColumns(r)
	}
	return c
}

func columnNames(cs []Column) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}
