package sqlbulk

import (
	"context"
	"fmt"
	"reflect"

	"github.com/sqlbulk/sqlbulk/clause"
	"github.com/sqlbulk/sqlbulk/schema"
	"github.com/sqlbulk/sqlbulk/utils"
)

// lookupFields picks the columns that re-identify freshly written rows:
// key columns excluding the identity column, falling back to the full
// writable column set when every declared key is server generated
func lookupFields(sch *schema.Schema) ([]*schema.Field, error) {
	var fields []*schema.Field
	for _, field := range sch.PrimaryFields {
		if field != sch.AutoIncrementField {
			fields = append(fields, field)
		}
	}
	if len(fields) > 0 {
		return fields, nil
	}

	for _, name := range sch.UniqueKeyOrder {
		key := sch.UniqueKeys[name]
		usable := true
		for _, field := range key {
			if field == sch.AutoIncrementField {
				usable = false
				break
			}
		}
		if usable {
			return key, nil
		}
	}

	for _, field := range sch.WriteFields() {
		if field != sch.AutoIncrementField {
			fields = append(fields, field)
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w on %s", ErrMissingLookupColumns, sch.Name)
	}
	return fields, nil
}

// reconcileIdentities re-selects the rows the batch just wrote and copies the
// server-generated identity of each onto its entity, matched by lookup key.
// Lookup values are normalized through utils.ToStringKey so a native int on
// the entity matches the []byte the text protocol hands back.
func (db *DB) reconcileIdentities(ctx context.Context, sch *schema.Schema, batch reflect.Value) error {
	lookup, err := lookupFields(sch)
	if err != nil {
		return err
	}

	values, err := bindRows(batch, lookup)
	if err != nil {
		return err
	}

	n, m := batch.Len(), len(lookup)
	pending := make(map[string]int, n)
	keyRows := make([][]interface{}, n)
	for i := 0; i < n; i++ {
		row := values[i*m : (i+1)*m]
		keyRows[i] = row

		key := utils.ToStringKey(row...)
		if _, dup := pending[key]; dup {
			return fmt.Errorf("%w: %w within one call on %s", ErrIncompleteReconciliation, ErrAmbiguousLookupKey, sch.Table)
		}
		pending[key] = i
	}

	columns := make([]clause.Column, 0, m+1)
	columns = append(columns, clause.Column{Name: sch.AutoIncrementField.DBName})
	columns = append(columns, columnsOf(lookup)...)

	stmt := db.newStatement(sch)
	stmt.Build(
		clause.Select{Columns: columns},
		clause.From{Table: clause.Table{Name: sch.Table}},
		clause.Where{Exprs: []clause.Expression{
			clause.KeyRows{Columns: columnsOf(lookup), Rows: keyRows},
		}},
	)

	rows, err := db.query(ctx, stmt)
	if err != nil {
		return err
	}
	defer rows.Close()

	matched := 0
	dest := make([]interface{}, m+1)
	for rows.Next() {
		for i := range dest {
			dest[i] = new(interface{})
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("%w: %v", ErrStatement, err)
		}

		row := make([]interface{}, m)
		for i := range row {
			row[i] = *dest[i+1].(*interface{})
		}
		idx, ok := pending[utils.ToStringKey(row...)]
		if !ok {
			continue
		}

		entity := indirectEntity(batch.Index(idx))
		if err := sch.AutoIncrementField.Set(entity, *dest[0].(*interface{})); err != nil {
			return fmt.Errorf("%w: %v", ErrFieldAccess, err)
		}
		delete(pending, utils.ToStringKey(row...))
		matched++
	}
	if err := rows.Err(); err != nil {
		return classifyErr(err)
	}

	if matched != n {
		return fmt.Errorf("%w: matched %d of %d rows on %s", ErrIncompleteReconciliation, matched, n, sch.Table)
	}
	return nil
}

// assignSequential writes lastID+i onto entity i, relying on MySQL returning
// the first generated identity of a multi-row insert
func assignSequential(sch *schema.Schema, batch reflect.Value, lastID int64) error {
	for i := 0; i < batch.Len(); i++ {
		entity := indirectEntity(batch.Index(i))
		if !entity.IsValid() {
			return fmt.Errorf("%w: entity at index %d is nil", ErrInvalidData, i)
		}
		if err := sch.AutoIncrementField.Set(entity, lastID+int64(i)); err != nil {
			return fmt.Errorf("%w: %v", ErrFieldAccess, err)
		}
	}
	return nil
}
