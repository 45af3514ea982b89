package pipesql

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/mickamy/pipesql/internal/ident"
	"github.com/mickamy/pipesql/internal/query"
)

// DumperConfig defines how a table is scanned.
type DumperConfig struct {
	Schema   string   // used when the target names no schema
	Columns  []string // projection; empty selects "*"
	OrderBy  string   // cursor column; defaults to the first primary-key column
	PageSize int      // rows per page (default 1000)
	Logger   *zap.Logger
}

// Dumper reads a whole table page by page, following a cursor on a unique
// column so the scan stays consistent under concurrent writes.
type Dumper struct {
	db     *sql.DB
	engine *Engine
	cfg    DumperConfig
	logger *zap.Logger
}

func NewDumper(db *sql.DB, engine *Engine, cfg DumperConfig) *Dumper {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dumper{
		db:     db,
		engine: engine,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "dumper"), zap.String("dialect", engine.Dialect().Name())),
	}
}

// Dump scans target starting after from and hands every row to fn as an INSERT
// record. Records carry a CursorPosition on the ordering column, so the position
// of the last record handed to fn can be persisted and passed back as from to
// resume. Dump returns FinishedPosition once a page comes back empty.
//
// A table without any unique key is read in one unordered pass whose records
// carry a PlaceholderPosition; such a scan cannot be resumed.
func (d *Dumper) Dump(ctx context.Context, target any, from Position, fn func(*Record) error) (Position, error) {
	if from == nil {
		from = PlaceholderPosition{}
	}
	if from.Kind() == PositionFinished {
		return from, nil
	}
	meta, err := loadTableMeta(ctx, d.db, d.engine.Dialect(), target, d.cfg.Schema)
	if err != nil {
		return from, err
	}
	table := d.tableRef(meta)
	orderBy := d.cfg.OrderBy
	if orderBy == "" && len(meta.UniqueKeys) > 0 {
		orderBy = meta.UniqueKeys[0]
	}
	keys := make(map[string]struct{}, len(meta.UniqueKeys)+1)
	for _, k := range meta.UniqueKeys {
		keys[k] = struct{}{}
	}
	if orderBy == "" {
		return d.dumpUnordered(ctx, meta, table, keys, fn)
	}
	if len(keys) == 0 {
		keys[orderBy] = struct{}{}
	}
	if len(d.cfg.Columns) > 0 && !slices.Contains(d.cfg.Columns, "*") && !slices.Contains(d.cfg.Columns, orderBy) {
		return from, fmt.Errorf("pipesql: ordering column %s is not projected from %s", orderBy, meta.Table)
	}

	logger := d.logger.With(zap.String("table", meta.Table), zap.String("order_by", orderBy))
	pos := from
	first := true
	var last any
	if c, ok := from.(CursorPosition); ok {
		first = false
		last = c.Value
	}
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return pos, err
		}
		q := d.engine.BuildQueryPageSQL(meta.Schema, table, d.cfg.Columns, orderBy, first, d.cfg.PageSize)
		var args []any
		if !first {
			args = []any{last}
		}
		if d.engine.Dialect().BindStyle() == BindDollar {
			q = query.Rebind(q)
		}
		rows, err := d.db.QueryContext(ctx, q, args...)
		if err != nil {
			return pos, fmt.Errorf("pipesql: failed to query %s: %w", meta.Table, err)
		}
		n, err := scanRows(rows, func(cols []string, vals []any) error {
			idx := slices.Index(cols, orderBy)
			if idx < 0 {
				return fmt.Errorf("pipesql: ordering column %s missing from result", orderBy)
			}
			cursor, err := NewCursorPosition(vals[idx])
			if err != nil {
				return err
			}
			r, err := scannedRecord(table, cursor, cols, vals, keys)
			if err != nil {
				return err
			}
			if err := fn(r); err != nil {
				return err
			}
			pos = cursor
			last = cursor.Value
			return nil
		})
		if err != nil {
			return pos, err
		}
		logger.Debug("page dumped", zap.Int("page", page), zap.Int("rows", n), zap.Stringer("position", pos))
		if n == 0 {
			logger.Info("table dumped", zap.Int("pages", page))
			return FinishedPosition{}, nil
		}
		first = false
	}
}

func (d *Dumper) dumpUnordered(ctx context.Context, meta TableMeta, table string, keys map[string]struct{}, fn func(*Record) error) (Position, error) {
	d.logger.Warn("table has no unique key; dumping without cursor", zap.String("table", meta.Table))
	q := d.engine.BuildNoUniqueKeyQueryAllSQL(meta.Schema, table, d.cfg.Columns)
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return PlaceholderPosition{}, fmt.Errorf("pipesql: failed to query %s: %w", meta.Table, err)
	}
	_, err = scanRows(rows, func(cols []string, vals []any) error {
		r, err := scannedRecord(table, PlaceholderPosition{}, cols, vals, keys)
		if err != nil {
			return err
		}
		return fn(r)
	})
	if err != nil {
		return PlaceholderPosition{}, err
	}
	return FinishedPosition{}, nil
}

// tableRef keeps a table name containing a dot quoted, so it is not read back
// as "schema.table" when rendered or replayed.
func (d *Dumper) tableRef(meta TableMeta) string {
	if !strings.Contains(meta.Table, ".") {
		return meta.Table
	}
	return ident.Quote(meta.Table, d.engine.Dialect().QuoteChar())
}

func scannedRecord(table string, pos Position, cols []string, vals []any, keys map[string]struct{}) (*Record, error) {
	b := NewRecordBuilder(Insert, table, pos, len(cols))
	for i, c := range cols {
		_, uk := keys[c]
		b.AddColumn(NewColumn(c, vals[i], true, uk))
	}
	return b.Build()
}
