package pipesql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mickamy/pipesql/internal/ident"
	"github.com/mickamy/pipesql/internal/partition"
	"github.com/mickamy/pipesql/internal/query"
)

// RedactFunc defines a function used to sanitize or mask values before logging.
type RedactFunc func(key string, v any) any

// RedactMap maps column names to specific redaction functions.
type RedactMap map[string]RedactFunc

// ApplierConfig defines how records are replayed against a target database.
type ApplierConfig struct {
	Schema           string              // target schema; empty uses the session default
	ConditionColumns map[string][]string // per table, extra WHERE columns beyond the unique key
	RequireUpsert    bool                // fail inserts when the dialect has no upsert clause
	Lanes            int                 // partitions used by ApplyPartitioned (default 1)
	Redact           RedactMap           // optional column-based redaction for logs
	Logger           *zap.Logger
}

// Applier renders records with an Engine and executes them in transactions.
type Applier struct {
	db     *sql.DB
	engine *Engine
	cfg    ApplierConfig
	logger *zap.Logger
}

// NewApplier creates an Applier with sensible defaults.
func NewApplier(db *sql.DB, engine *Engine, cfg ApplierConfig) *Applier {
	if cfg.Lanes < 1 {
		cfg.Lanes = 1
	}
	if cfg.Redact == nil {
		cfg.Redact = RedactMap{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applier{
		db:     db,
		engine: engine,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "applier"), zap.String("dialect", engine.Dialect().Name())),
	}
}

// Result summarizes one Apply call.
type Result struct {
	Statements   []Statement
	Inserted     int
	Updated      int
	Deleted      int
	RowsAffected int64
	// Position is the position of the last record of the call.
	Position Position
}

func (r *Result) add(st Statement, affected int64) {
	r.Statements = append(r.Statements, st)
	r.RowsAffected += affected
	switch st.Type {
	case Insert:
		r.Inserted++
	case Update:
		r.Updated++
	case Delete:
		r.Deleted++
	}
}

func (r *Result) merge(o Result) {
	r.Statements = append(r.Statements, o.Statements...)
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Deleted += o.Deleted
	r.RowsAffected += o.RowsAffected
}

// Render turns a record into the statement the applier would execute,
// with placeholders rebound for the dialect.
func (a *Applier) Render(r *Record) (Statement, error) {
	if err := r.validate(); err != nil {
		return Statement{}, err
	}
	st, err := a.engine.Statement(a.cfg.Schema, r, a.conditionColumns(r.Table()))
	if err != nil {
		return Statement{}, err
	}
	if a.cfg.RequireUpsert && st.Type == Insert {
		if _, ok := a.engine.BuildInsertOnDuplicateClause(a.cfg.Schema, r); !ok {
			return Statement{}, fmt.Errorf("%w: %s cannot upsert into %s", ErrUnsupportedDialectFeature, a.engine.Dialect().Name(), r.Table())
		}
	}
	if a.engine.Dialect().BindStyle() == BindDollar {
		st.SQL = query.Rebind(st.SQL)
	}
	return st, nil
}

// Apply executes records in order inside a single transaction. Every record is
// rendered before the transaction starts, so a malformed record aborts the batch
// without touching the database. Under WithDryRun nothing is executed.
func (a *Applier) Apply(ctx context.Context, records ...*Record) (Result, error) {
	if len(records) == 0 {
		return Result{}, nil
	}
	stmts := make([]Statement, len(records))
	for i, r := range records {
		st, err := a.Render(r)
		if err != nil {
			return Result{}, err
		}
		stmts[i] = st
	}
	res, err := a.execute(ctx, stmts)
	if err != nil {
		return Result{}, err
	}
	res.Position = records[len(records)-1].Position()
	return res, nil
}

// ApplyPartitioned routes records into lanes by table and unique-key values and
// applies each lane in its own transaction, concurrently. Mutations of the same
// row stay in one lane in their original order; there is no atomicity across lanes.
// Tables without a unique key, and tables whose key is rewritten by an UPDATE in
// the batch, are routed to a single lane.
func (a *Applier) ApplyPartitioned(ctx context.Context, records ...*Record) (Result, error) {
	if len(records) == 0 {
		return Result{}, nil
	}
	pinned := keyChangingTables(records)
	lanes := partition.New[Statement](a.cfg.Lanes)
	for _, r := range records {
		st, err := a.Render(r)
		if err != nil {
			return Result{}, err
		}
		lanes.Add(partitionKey(r, pinned), st)
	}

	var (
		mu  sync.Mutex
		res Result
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, lane := range lanes.Drain() {
		lane := lane
		g.Go(func() error {
			lr, err := a.execute(gctx, lane)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			res.merge(lr)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	res.Position = records[len(records)-1].Position()
	return res, nil
}

// conditionColumns looks table up as given, then by its unqualified name.
func (a *Applier) conditionColumns(table string) []string {
	if cols, ok := a.cfg.ConditionColumns[table]; ok {
		return cols
	}
	return a.cfg.ConditionColumns[ident.BaseTableName(table)]
}

// partitionKey is the table name followed by the values of the columns flagged
// as unique key. Columns outside the key can change between mutations of one row
// and never take part in routing.
func partitionKey(r *Record, pinned map[string]struct{}) string {
	if _, ok := pinned[r.Table()]; ok {
		return r.Table()
	}
	var b strings.Builder
	b.WriteString(r.Table())
	for _, c := range r.columns {
		if !c.UniqueKey {
			continue
		}
		b.WriteByte('|')
		_, _ = fmt.Fprint(&b, c.ConditionValue())
	}
	return b.String()
}

// keyChangingTables returns the tables with an UPDATE moving a row to another key.
func keyChangingTables(records []*Record) map[string]struct{} {
	out := make(map[string]struct{})
	for _, r := range records {
		if r == nil || r.typ != Update {
			continue
		}
		for _, c := range r.columns {
			if c.UniqueKey && c.HasOldValue && fmt.Sprint(c.OldValue) != fmt.Sprint(c.Value) {
				out[r.Table()] = struct{}{}
				break
			}
		}
	}
	return out
}

func (a *Applier) execute(ctx context.Context, stmts []Statement) (Result, error) {
	m := extractMeta(ctx)
	if m.batchID == "" {
		m.batchID = uuid.NewString()
	}
	logger := a.logger.With(zap.String("batch_id", m.batchID))
	if m.reason != "" {
		logger = logger.With(zap.String("reason", m.reason))
	}

	var res Result
	if extractDryRun(ctx) {
		for _, st := range stmts {
			a.logStatement(logger, st)
			res.add(st, 0)
		}
		logger.Debug("dry run", zap.Int("statements", len(stmts)))
		return res, nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("pipesql: failed to begin transaction: %w", err)
	}
	for _, st := range stmts {
		a.logStatement(logger, st)
		out, err := tx.ExecContext(ctx, st.SQL, st.Args...)
		if err != nil {
			_ = tx.Rollback()
			logger.Warn("statement failed", zap.String("table", st.Table), zap.Stringer("type", st.Type), zap.Error(err))
			return Result{}, fmt.Errorf("pipesql: failed to apply %s on %s: %w", st.Type, st.Table, err)
		}
		var affected int64
		if n, err := out.RowsAffected(); err == nil {
			affected = n
		}
		if affected == 0 && st.Type != Insert {
			logger.Warn("no row matched", zap.String("table", st.Table), zap.Stringer("type", st.Type), zap.Stringer("position", st.Position))
		}
		res.add(st, affected)
	}
	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("pipesql: failed to commit: %w", err)
	}
	logger.Info("batch applied",
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("deleted", res.Deleted),
		zap.Int64("rows_affected", res.RowsAffected),
	)
	return res, nil
}

func (a *Applier) logStatement(logger *zap.Logger, st Statement) {
	if ce := logger.Check(zap.DebugLevel, "statement"); ce != nil {
		ce.Write(zap.String("sql", st.SQL), zap.Any("args", a.redactArgs(st)))
	}
}

// redactArgs returns the arguments of st keyed by column with cfg.Redact applied.
func (a *Applier) redactArgs(st Statement) map[string]any {
	out := make(map[string]any, len(st.Args))
	for i, v := range st.Args {
		k := fmt.Sprintf("%d", i+1)
		if i < len(st.Columns) {
			k = fmt.Sprintf("%d:%s", i+1, st.Columns[i])
			if fn, ok := a.cfg.Redact[st.Columns[i]]; ok && fn != nil {
				v = fn(st.Columns[i], v)
			}
		}
		out[k] = v
	}
	return out
}
