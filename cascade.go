package sqlbulk

import (
	"context"
	"fmt"
	"reflect"

	"github.com/sqlbulk/sqlbulk/schema"
)

// cascade pushes the operation down every child relation of sch: rewrites the
// foreign key columns of each child from its parent's key values, flattens
// the per-parent collections into one typed slice, and runs the child table
// through the same pipeline
func (db *DB) cascade(ctx context.Context, op Operation, sch *schema.Schema, rv reflect.Value, opts Options, visited map[reflect.Type]bool, result *Result) error {
	for _, rel := range sch.Children {
		if opts.childExcluded(rel.Name) {
			continue
		}

		flat := reflect.MakeSlice(reflect.SliceOf(reflect.PtrTo(rel.ChildSchema.ModelType)), 0, rv.Len())

		for i := 0; i < rv.Len(); i++ {
			parent := indirectEntity(rv.Index(i))
			if !parent.IsValid() {
				continue
			}

			refValues := make([]interface{}, len(rel.References))
			usable := true
			for j, ref := range rel.References {
				v, zero := ref.ValueOf(parent)
				if v == nil || (zero && ref == sch.AutoIncrementField) {
					// parent was never identified, its children cannot be linked
					usable = false
					break
				}
				refValues[j] = v
			}
			if !usable {
				continue
			}

			children := rel.Field.ReflectValueOf(parent)
			for j := 0; j < children.Len(); j++ {
				child := indirectEntity(children.Index(j))
				if !child.IsValid() {
					return fmt.Errorf("%w: nil child in %s.%s", ErrInvalidData, sch.Name, rel.Name)
				}

				for k, fk := range rel.ForeignKeys {
					if err := fk.Set(child, refValues[k]); err != nil {
						return fmt.Errorf("%w: %v", ErrFieldAccess, err)
					}
				}
				flat = reflect.Append(flat, child.Addr())
			}
		}

		if flat.Len() == 0 {
			continue
		}
		if visited[rel.ChildSchema.ModelType] {
			return fmt.Errorf("%w: %s -> %s", ErrCyclicRelation, sch.Name, rel.ChildSchema.Name)
		}
		if err := db.runSchema(ctx, op, rel.ChildSchema, flat, opts, visited, result); err != nil {
			return fmt.Errorf("cascade %s: %w", rel.Name, err)
		}
	}
	return nil
}
