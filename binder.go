package sqlbulk

import (
	"fmt"
	"reflect"

	"github.com/sqlbulk/sqlbulk/schema"
)

// bindRows reads fields off every entity in batch and returns the bound
// values in row-major order: the value for column j of row i sits at
// index i*len(fields)+j. Nil values on fields carrying a default are
// replaced by the parsed default so the database column never receives
// an explicit NULL the mapping did not ask for.
func bindRows(batch reflect.Value, fields []*schema.Field) (values []interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFieldAccess, r)
		}
	}()

	n := batch.Len()
	values = make([]interface{}, 0, n*len(fields))
	for i := 0; i < n; i++ {
		entity := indirectEntity(batch.Index(i))
		if !entity.IsValid() {
			return nil, fmt.Errorf("%w: entity at index %d is nil", ErrInvalidData, i)
		}

		for _, field := range fields {
			v, perr := field.ProviderValue(entity)
			if perr != nil {
				return nil, fmt.Errorf("%w: %v", ErrFieldAccess, perr)
			}
			if v == nil && field.DefaultValueInterface != nil {
				v = field.DefaultValueInterface
			}
			values = append(values, v)
		}
	}
	return values, nil
}

// indirectEntity unwraps pointers and interfaces down to the struct value,
// returning the zero Value when a nil pointer is found on the way.
func indirectEntity(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
