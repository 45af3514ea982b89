package pipesql_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mickamy/pipesql"
)

// mockRecord has a unique key "id", a plain column "sc" and three updated columns.
func mockRecord(t *testing.T, typ pipesql.ChangeType, table string) *pipesql.Record {
	t.Helper()
	r, err := pipesql.NewRecordBuilder(typ, table, pipesql.PlaceholderPosition{}, 5).
		AddColumn(pipesql.NewColumn("id", 1, false, true)).
		AddColumn(pipesql.NewColumn("sc", 10, false, false)).
		AddColumn(pipesql.NewColumn("c1", "a", true, false)).
		AddColumn(pipesql.NewColumn("c2", "b", true, false)).
		AddColumn(pipesql.NewColumn("c3", "c", true, false)).
		Build()
	require.NoError(t, err)
	return r
}

// mockRecordWithoutUniqueKey has no column flagged as a unique key.
func mockRecordWithoutUniqueKey(t *testing.T, typ pipesql.ChangeType) *pipesql.Record {
	t.Helper()
	r, err := pipesql.NewRecordBuilder(typ, "t_order", pipesql.PlaceholderPosition{}, 2).
		AddColumn(pipesql.NewColumn("id", 1, false, false)).
		AddColumn(pipesql.NewColumn("name", "foo", true, false)).
		Build()
	require.NoError(t, err)
	return r
}

func names(cs []pipesql.Column) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}
