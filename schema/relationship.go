package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Relationship describes a has-many navigation from a parent schema to a
// child collection, with the foreign key linkage the cascade needs
type Relationship struct {
	Name        string // navigation (field) name on the parent
	Field       *Field // the slice field holding the children
	Schema      *Schema
	ChildSchema *Schema
	ForeignKeys []*Field // on the child, aligned with References
	References  []*Field // on the parent
}

func (schema *Schema) parseRelation(fieldStruct reflect.StructField) error {
	childType := fieldStruct.Type.Elem()
	for childType.Kind() == reflect.Ptr {
		childType = childType.Elem()
	}

	childSchema, err := getOrParse(reflect.New(childType).Interface(), schema.cacheStore, schema.namer)
	if err != nil {
		return fmt.Errorf("failed to parse child %s of %s: %w", fieldStruct.Name, schema.Name, err)
	}

	tagSettings := ParseTagSetting(fieldStruct.Tag.Get("bulk"), ";")

	relation := &Relationship{
		Name:        fieldStruct.Name,
		Schema:      schema,
		ChildSchema: childSchema,
	}

	relation.Field = &Field{
		Name:        fieldStruct.Name,
		FieldType:   fieldStruct.Type,
		StructField: fieldStruct,
		Schema:      schema,
	}
	relation.Field.setupValuerAndSetter()

	// principal side: referenced parent fields, primary key by default
	if refs := tagSettings["REFERENCES"]; refs != "" {
		for _, name := range strings.Split(refs, ",") {
			f := schema.LookUpField(strings.TrimSpace(name))
			if f == nil {
				return fmt.Errorf("%w: reference %s on %s.%s", ErrInvalidField, name, schema.Name, fieldStruct.Name)
			}
			relation.References = append(relation.References, f)
		}
	} else {
		relation.References = append(relation.References, schema.PrimaryFields...)
	}

	if len(relation.References) == 0 {
		return fmt.Errorf("%w: relation %s.%s has no principal key", ErrMissingKey, schema.Name, fieldStruct.Name)
	}

	// dependent side: foreign key fields on the child, Parent+RefName by convention
	if fks := tagSettings["FOREIGNKEY"]; fks != "" {
		for _, name := range strings.Split(fks, ",") {
			f := childSchema.LookUpField(strings.TrimSpace(name))
			if f == nil {
				return fmt.Errorf("%w: foreign key %s on %s.%s", ErrInvalidField, name, schema.Name, fieldStruct.Name)
			}
			relation.ForeignKeys = append(relation.ForeignKeys, f)
		}
	} else {
		for _, ref := range relation.References {
			f := childSchema.LookUpField(schema.Name + ref.Name)
			if f == nil {
				return fmt.Errorf("%w: no foreign key %s on %s for relation %s.%s",
					ErrInvalidField, schema.Name+ref.Name, childSchema.Name, schema.Name, fieldStruct.Name)
			}
			relation.ForeignKeys = append(relation.ForeignKeys, f)
		}
	}

	if len(relation.ForeignKeys) != len(relation.References) {
		return fmt.Errorf("%w: relation %s.%s has %d foreign keys for %d references",
			ErrInvalidField, schema.Name, fieldStruct.Name, len(relation.ForeignKeys), len(relation.References))
	}

	schema.Children = append(schema.Children, relation)
	return nil
}

// isChildCollection reports whether a struct field declares a child
// collection: a slice of structs other than []byte and time types
func isChildCollection(fieldStruct reflect.StructField) bool {
	if fieldStruct.Type.Kind() != reflect.Slice {
		return false
	}

	elem := fieldStruct.Type.Elem()
	for elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}

	return elem.Kind() == reflect.Struct && !elem.ConvertibleTo(TimeReflectType)
}
