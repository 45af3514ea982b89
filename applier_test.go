package pipesql_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	_ "modernc.org/sqlite"

	"github.com/mickamy/pipesql"
	_ "github.com/mickamy/pipesql/dialect/postgresql"
	_ "github.com/mickamy/pipesql/dialect/sqlite"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func engineFor(t *testing.T, databaseType string) *pipesql.Engine {
	t.Helper()
	e, err := pipesql.NewEngineFor(databaseType)
	require.NoError(t, err)
	return e
}

func TestApplier_Apply(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	a := pipesql.NewApplier(db, engineFor(t, pipesql.H2), pipesql.ApplierConfig{
		ConditionColumns: map[string][]string{"t2": {"sc"}},
	})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t2(id,sc,c1,c2,c3) VALUES(?,?,?,?,?)").
		WithArgs(1, 10, "a", "b", "c").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE t2 SET c1 = ?,c2 = ?,c3 = ? WHERE id = ? AND sc = ?").
		WithArgs("a", "b", "c", 1, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM t2 WHERE id = ? AND sc = ?").
		WithArgs(1, 10).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	res, err := a.Apply(context.Background(),
		mockRecord(t, pipesql.Insert, "t2"),
		mockRecord(t, pipesql.Update, "t2"),
		mockRecord(t, pipesql.Delete, "t2"),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, int64(2), res.RowsAffected)
	assert.Len(t, res.Statements, 3)
	assert.Equal(t, pipesql.PlaceholderPosition{}, res.Position)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplier_Apply_RebindsForDollarDialect(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	a := pipesql.NewApplier(db, engineFor(t, pipesql.PostgreSQL), pipesql.ApplierConfig{Schema: "public", RequireUpsert: true})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO public.t2(id,sc,c1,c2,c3) VALUES($1,$2,$3,$4,$5) ON CONFLICT (id) DO UPDATE SET sc=EXCLUDED.sc,c1=EXCLUDED.c1,c2=EXCLUDED.c2,c3=EXCLUDED.c3").
		WithArgs(1, 10, "a", "b", "c").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE public.t2 SET c1 = $1,c2 = $2,c3 = $3 WHERE id = $4").
		WithArgs("a", "b", "c", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := a.Apply(context.Background(), mockRecord(t, pipesql.Insert, "t2"), mockRecord(t, pipesql.Update, "t2"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplier_Apply_RollsBackOnError(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	a := pipesql.NewApplier(db, engineFor(t, pipesql.H2), pipesql.ApplierConfig{})
	errBoom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t2(id,sc,c1,c2,c3) VALUES(?,?,?,?,?)").
		WillReturnError(errBoom)
	mock.ExpectRollback()

	_, err := a.Apply(context.Background(), mockRecord(t, pipesql.Insert, "t2"), mockRecord(t, pipesql.Delete, "t2"))
	assert.ErrorIs(t, err, errBoom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplier_Apply_RejectsBeforeTouchingDatabase(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name    string
		cfg     pipesql.ApplierConfig
		records []*pipesql.Record
		wantErr error
	}{
		{
			name:    "malformed record",
			records: []*pipesql.Record{mockRecord(t, pipesql.Insert, "t2"), {}},
			wantErr: pipesql.ErrMalformedRecord,
		},
		{
			name:    "nil record",
			records: []*pipesql.Record{nil},
			wantErr: pipesql.ErrMalformedRecord,
		},
		{
			name:    "upsert required",
			cfg:     pipesql.ApplierConfig{RequireUpsert: true},
			records: []*pipesql.Record{mockRecord(t, pipesql.Insert, "t2")},
			wantErr: pipesql.ErrUnsupportedDialectFeature,
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			db, mock := newMockDB(t)
			a := pipesql.NewApplier(db, engineFor(t, pipesql.H2), tc.cfg)
			_, err := a.Apply(context.Background(), tc.records...)
			assert.ErrorIs(t, err, tc.wantErr)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestApplier_Apply_DryRunLogsRedactedArgs(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	core, logs := observer.New(zapcore.DebugLevel)
	a := pipesql.NewApplier(db, engineFor(t, pipesql.H2), pipesql.ApplierConfig{
		Redact: pipesql.RedactMap{"c1": func(string, any) any { return "***" }},
		Logger: zap.New(core),
	})

	ctx := pipesql.WithDryRun(pipesql.WithBatchID(context.Background(), "batch-1"))
	res, err := a.Apply(ctx, mockRecord(t, pipesql.Insert, "t2"))
	require.NoError(t, err)
	require.Len(t, res.Statements, 1)
	assert.Equal(t, int64(0), res.RowsAffected)

	entries := logs.FilterMessage("statement").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "batch-1", fields["batch_id"])
	assert.Equal(t, "applier", fields["component"])
	args, ok := fields["args"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "***", args["3:c1"])
	assert.Equal(t, "b", args["4:c2"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplier_Apply_Empty(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	res, err := pipesql.NewApplier(db, engineFor(t, pipesql.H2), pipesql.ApplierConfig{}).Apply(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Statements)
	require.NoError(t, mock.ExpectationsWereMet())
}

func openSQLite(t *testing.T, ddl ...string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// a single connection keeps one in-memory database and serializes lanes
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	for _, q := range ddl {
		_, err := db.Exec(q)
		require.NoError(t, err)
	}
	return db
}

func orderRecord(t *testing.T, typ pipesql.ChangeType, orderID int64, userID int64, status string) *pipesql.Record {
	t.Helper()
	r, err := pipesql.NewRecordBuilder(typ, "t_order", pipesql.CursorPosition{Value: orderID}, 3).
		AddColumn(pipesql.NewColumn("order_id", orderID, false, true)).
		AddColumn(pipesql.NewColumn("user_id", userID, typ == pipesql.Insert, false)).
		AddColumn(pipesql.NewColumn("status", status, true, false)).
		Build()
	require.NoError(t, err)
	return r
}

const orderDDL = "CREATE TABLE t_order (order_id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL, status TEXT NOT NULL)"

func TestApplier_SQLite_Upsert(t *testing.T) {
	t.Parallel()

	db := openSQLite(t, orderDDL)
	a := pipesql.NewApplier(db, engineFor(t, pipesql.SQLite), pipesql.ApplierConfig{RequireUpsert: true})
	ctx := context.Background()

	_, err := a.Apply(ctx,
		orderRecord(t, pipesql.Insert, 1, 7, "new"),
		orderRecord(t, pipesql.Insert, 1, 8, "replayed"),
		orderRecord(t, pipesql.Insert, 2, 7, "new"),
	)
	require.NoError(t, err)

	res, err := a.Apply(ctx,
		orderRecord(t, pipesql.Update, 2, 7, "paid"),
		orderRecord(t, pipesql.Delete, 1, 8, "replayed"),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowsAffected)
	assert.Equal(t, pipesql.CursorPosition{Value: int64(1)}, res.Position)

	var (
		count  int
		status string
	)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t_order").Scan(&count))
	assert.Equal(t, 1, count)
	require.NoError(t, db.QueryRow("SELECT status FROM t_order WHERE order_id = 2").Scan(&status))
	assert.Equal(t, "paid", status)
}

func TestApplier_SQLite_ApplyPartitioned(t *testing.T) {
	t.Parallel()

	db := openSQLite(t, orderDDL)
	a := pipesql.NewApplier(db, engineFor(t, pipesql.SQLite), pipesql.ApplierConfig{Lanes: 4})

	var records []*pipesql.Record
	for id := int64(1); id <= 20; id++ {
		records = append(records, orderRecord(t, pipesql.Insert, id, id%3, "new"))
	}
	for id := int64(2); id <= 20; id += 2 {
		records = append(records, orderRecord(t, pipesql.Update, id, id%3, "paid"))
	}
	for id := int64(5); id <= 20; id += 5 {
		records = append(records, orderRecord(t, pipesql.Delete, id, id%3, "gone"))
	}

	res, err := a.ApplyPartitioned(context.Background(), records...)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Inserted)
	assert.Equal(t, 10, res.Updated)
	assert.Equal(t, 4, res.Deleted)
	assert.Len(t, res.Statements, 34)

	var total, paid int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t_order").Scan(&total))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t_order WHERE status = 'paid'").Scan(&paid))
	assert.Equal(t, 16, total)
	assert.Equal(t, 8, paid)
}

func TestApplier_Render_ConditionColumnsByBaseTableName(t *testing.T) {
	t.Parallel()

	db, _ := newMockDB(t)
	a := pipesql.NewApplier(db, engineFor(t, pipesql.H2), pipesql.ApplierConfig{
		ConditionColumns: map[string][]string{"t2": {"sc"}},
	})

	st, err := a.Render(mockRecord(t, pipesql.Delete, "shop.t2"))
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM shop.t2 WHERE id = ? AND sc = ?", st.SQL)
	assert.Equal(t, []string{"id", "sc"}, st.Columns)
	assert.Equal(t, []any{1, 10}, st.Args)
}

func TestApplier_SQLite_ApplyPartitioned_WithoutUniqueKey(t *testing.T) {
	t.Parallel()

	db := openSQLite(t, "CREATE TABLE t_note (id INTEGER NOT NULL, name TEXT NOT NULL)")
	a := pipesql.NewApplier(db, engineFor(t, pipesql.SQLite), pipesql.ApplierConfig{Lanes: 8})

	var records []*pipesql.Record
	for id := int64(1); id <= 20; id++ {
		r, err := pipesql.NewRecordBuilder(pipesql.Insert, "t_note", pipesql.PlaceholderPosition{}, 2).
			AddColumn(pipesql.NewColumn("id", id, true, false)).
			AddColumn(pipesql.NewColumn("name", "a", true, false)).
			Build()
		require.NoError(t, err)
		records = append(records, r)

		r, err = pipesql.NewRecordBuilder(pipesql.Update, "t_note", pipesql.PlaceholderPosition{}, 2).
			AddColumn(pipesql.NewColumn("id", id, false, false)).
			AddColumn(pipesql.Column{Name: "name", Value: "b", OldValue: "a", HasOldValue: true, Updated: true}).
			Build()
		require.NoError(t, err)
		records = append(records, r)
	}

	res, err := a.ApplyPartitioned(context.Background(), records...)
	require.NoError(t, err)
	assert.Equal(t, int64(40), res.RowsAffected)

	var stale int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t_note WHERE name <> 'b'").Scan(&stale))
	assert.Equal(t, 0, stale)
}

func TestApplier_SQLite_ApplyPartitioned_KeyChange(t *testing.T) {
	t.Parallel()

	db := openSQLite(t, orderDDL)
	a := pipesql.NewApplier(db, engineFor(t, pipesql.SQLite), pipesql.ApplierConfig{Lanes: 8})

	var records []*pipesql.Record
	for id := int64(1); id <= 20; id++ {
		records = append(records, orderRecord(t, pipesql.Insert, id, id%3, "new"))
	}
	moved, err := pipesql.NewRecordBuilder(pipesql.Update, "t_order", pipesql.PlaceholderPosition{}, 2).
		AddColumn(pipesql.Column{Name: "order_id", Value: int64(101), OldValue: int64(1), HasOldValue: true, Updated: true, UniqueKey: true}).
		AddColumn(pipesql.NewColumn("status", "moved", true, false)).
		Build()
	require.NoError(t, err)
	records = append(records, moved, orderRecord(t, pipesql.Update, 101, 1, "paid"))

	res, err := a.ApplyPartitioned(context.Background(), records...)
	require.NoError(t, err)
	assert.Equal(t, int64(22), res.RowsAffected)

	var (
		old    int
		status string
	)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t_order WHERE order_id = 1").Scan(&old))
	assert.Equal(t, 0, old)
	require.NoError(t, db.QueryRow("SELECT status FROM t_order WHERE order_id = 101").Scan(&status))
	assert.Equal(t, "paid", status)
}
