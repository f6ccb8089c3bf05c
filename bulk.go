package sqlbulk

import (
	"context"
	"fmt"
	"reflect"

	"github.com/sqlbulk/sqlbulk/clause"
	"github.com/sqlbulk/sqlbulk/schema"
	"github.com/sqlbulk/sqlbulk/utils"
)

// Operation bulk statement kind
type Operation string

const (
	Insert Operation = "INSERT"
	Upsert Operation = "UPSERT"
	Update Operation = "UPDATE"
)

// Result reports what one bulk call did. Statements is populated in DryRun
// mode only
type Result struct {
	RowsAffected int64
	Batches      int
	Statements   []*Statement
}

// BulkInsert writes entities with multi-row INSERT statements. entities must
// be a slice of one mapped struct type, by value or by pointer; pass pointer
// elements (or an addressable slice) when SetOutputIdentity is on, identity
// values are written back in place.
func (db *DB) BulkInsert(ctx context.Context, entities interface{}, opts ...Options) (*Result, error) {
	return db.run(ctx, Insert, entities, firstOpt(opts))
}

// BulkUpsert writes entities with INSERT ... ON DUPLICATE KEY UPDATE, so rows
// colliding on the primary or a unique key are overwritten with the incoming
// values
func (db *DB) BulkUpsert(ctx context.Context, entities interface{}, opts ...Options) (*Result, error) {
	return db.run(ctx, Upsert, entities, firstOpt(opts))
}

// BulkUpdate rewrites the non-key columns of existing rows, addressed by
// their key values. Entities sharing identical new column values are folded
// into one statement.
func (db *DB) BulkUpdate(ctx context.Context, entities interface{}, opts ...Options) (*Result, error) {
	return db.run(ctx, Update, entities, firstOpt(opts))
}

func firstOpt(opts []Options) Options {
	if len(opts) > 0 {
		return opts[0]
	}
	return Options{}
}

func (db *DB) run(ctx context.Context, op Operation, entities interface{}, opts Options) (*Result, error) {
	opts, err := opts.withDefaults(db)
	if err != nil {
		return nil, err
	}

	rv, err := entitySlice(entities)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if rv.Len() == 0 {
		return result, nil
	}

	sch, err := schema.Parse(entities, db.cacheStore, db.NamingStrategy)
	if err != nil {
		return nil, err
	}

	visited := map[reflect.Type]bool{}
	if err := db.runSchema(ctx, op, sch, rv, opts, visited, result); err != nil {
		return result, err
	}
	return result, nil
}

// runSchema drives one table through the pipeline: partition, synthesize,
// bind, execute, reconcile, then cascade. Called recursively for child
// collections.
func (db *DB) runSchema(ctx context.Context, op Operation, sch *schema.Schema, rv reflect.Value, opts Options, visited map[reflect.Type]bool, result *Result) error {
	if rv.Len() == 0 {
		return nil
	}

	visited[sch.ModelType] = true
	defer delete(visited, sch.ModelType)

	batches, err := partition(rv, opts.BatchSize)
	if err != nil {
		return err
	}

	for idx, batch := range batches {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}

		if err := db.runBatch(ctx, op, sch, batch, opts, result); err != nil {
			return fmt.Errorf("%s batch %d of %s: %w", op, idx, sch.Table, err)
		}
	}
	result.Batches += len(batches)

	if opts.IncludeChildren {
		return db.cascade(ctx, op, sch, rv, opts, visited, result)
	}
	return nil
}

func (db *DB) runBatch(ctx context.Context, op Operation, sch *schema.Schema, batch reflect.Value, opts Options, result *Result) error {
	if op == Update {
		return db.execUpdate(ctx, sch, batch, result)
	}

	lastID, err := db.execInsert(ctx, op, sch, batch, result)
	if err != nil {
		return err
	}

	if db.DryRun || !opts.SetOutputIdentity || sch.AutoIncrementField == nil {
		return nil
	}
	if op == Insert && opts.SequentialIdentity && lastID > 0 {
		return assignSequential(sch, batch, lastID)
	}
	return db.reconcileIdentities(ctx, sch, batch)
}

func (db *DB) execInsert(ctx context.Context, op Operation, sch *schema.Schema, batch reflect.Value, result *Result) (lastID int64, err error) {
	fields := sch.WriteFields()
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: %s has no writable columns", ErrInvalidData, sch.Name)
	}

	values, err := bindRows(batch, fields)
	if err != nil {
		return 0, err
	}

	rows := make([][]interface{}, batch.Len())
	for i := range rows {
		rows[i] = values[i*len(fields) : (i+1)*len(fields)]
	}

	stmt := db.newStatement(sch)
	exprs := []clause.Expression{
		clause.Insert{Table: clause.Table{Name: sch.Table}},
		clause.Values{Columns: columnsOf(fields), Values: rows},
	}
	if op == Upsert {
		dupFields := sch.SetFields()
		if len(dupFields) == 0 {
			// key-only table, assign a key to itself so the statement parses
			dupFields = sch.KeyFields()
		}
		exprs = append(exprs, clause.OnDuplicateKey{Columns: columnsOf(dupFields)})
	}
	stmt.Build(exprs...)

	_, lastID, err = db.execStmt(ctx, stmt, result)
	return lastID, err
}

// execUpdate folds the batch into one UPDATE per distinct SET tuple: rows
// that assign identical values share a statement and are addressed together
// through a keyed OR predicate
func (db *DB) execUpdate(ctx context.Context, sch *schema.Schema, batch reflect.Value, result *Result) error {
	setFields := sch.SetFields()
	if len(setFields) == 0 {
		return fmt.Errorf("%w: %s has no updatable non-key columns", ErrInvalidData, sch.Name)
	}
	keyFields := sch.KeyFields()

	setVals, err := bindRows(batch, setFields)
	if err != nil {
		return err
	}
	keyVals, err := bindRows(batch, keyFields)
	if err != nil {
		return err
	}

	k, m := len(setFields), len(keyFields)
	type group struct {
		set  []interface{}
		keys [][]interface{}
	}
	var order []string
	groups := map[string]*group{}
	for i := 0; i < batch.Len(); i++ {
		set := setVals[i*k : (i+1)*k]
		id := utils.ToStringKey(set...)
		g, ok := groups[id]
		if !ok {
			g = &group{set: set}
			groups[id] = g
			order = append(order, id)
		}
		g.keys = append(g.keys, keyVals[i*m:(i+1)*m])
	}

	keyColumns := columnsOf(keyFields)
	for _, id := range order {
		g := groups[id]

		assignments := make(clause.Set, k)
		for j, field := range setFields {
			assignments[j] = clause.Assignment{Column: clause.Column{Name: field.DBName}, Value: g.set[j]}
		}

		stmt := db.newStatement(sch)
		stmt.Build(
			clause.Update{Table: clause.Table{Name: sch.Table}},
			assignments,
			clause.Where{Exprs: []clause.Expression{
				clause.KeyRows{Columns: keyColumns, Rows: g.keys},
			}},
		)

		if _, _, err := db.execStmt(ctx, stmt, result); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) execStmt(ctx context.Context, stmt *Statement, result *Result) (rowsAffected, lastID int64, err error) {
	if db.DryRun {
		result.Statements = append(result.Statements, stmt)
		return 0, 0, nil
	}

	rowsAffected, lastID, err = db.exec(ctx, stmt)
	result.RowsAffected += rowsAffected
	return rowsAffected, lastID, err
}

func entitySlice(entities interface{}) (reflect.Value, error) {
	rv := reflect.ValueOf(entities)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil value", ErrInvalidData)
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice:
		return rv, nil
	case reflect.Array:
		// partitioning slices the value, which needs an addressable array
		if !rv.CanAddr() {
			copied := reflect.New(rv.Type()).Elem()
			copied.Set(rv)
			rv = copied
		}
		return rv.Slice(0, rv.Len()), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: expected a slice of mapped structs, got %T", ErrUnmappedType, entities)
}
