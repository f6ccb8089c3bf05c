package schema

import (
	"errors"
	"fmt"
	"go/ast"
	"reflect"
	"sync"
)

// resolver errors, surfaced before any statement is built
var (
	// ErrUnsupportedDataType the value is not (a collection of) a mapped struct type
	ErrUnsupportedDataType = errors.New("unsupported data type")
	// ErrMissingTableName no table name could be determined for the type
	ErrMissingTableName = errors.New("missing table name")
	// ErrMissingKey neither a primary key nor an alternate key is declared
	ErrMissingKey = errors.New("primary or alternate key required")
	// ErrInvalidField a tag references a field that does not exist or is misdeclared
	ErrInvalidField = errors.New("invalid field")
)

// Schema table metadata derived from a struct type, immutable once parsed
type Schema struct {
	Name               string
	ModelType          reflect.Type
	Table              string
	Fields             []*Field
	FieldsByName       map[string]*Field
	FieldsByDBName     map[string]*Field
	PrimaryFields      []*Field
	UniqueKeys         map[string][]*Field
	UniqueKeyOrder     []string
	AutoIncrementField *Field
	Children           []*Relationship

	err         error
	initialized chan struct{}
	namer       Namer
	cacheStore  *sync.Map
}

func (schema Schema) String() string {
	return fmt.Sprintf("%v.%v", schema.ModelType.PkgPath(), schema.ModelType.Name())
}

// LookUpField looks up a field by struct name or column name
func (schema *Schema) LookUpField(name string) *Field {
	if field, ok := schema.FieldsByDBName[name]; ok {
		return field
	}
	if field, ok := schema.FieldsByName[name]; ok {
		return field
	}
	return nil
}

// KeyFields returns the primary key, or the first declared alternate key when
// no primary key exists
func (schema *Schema) KeyFields() []*Field {
	if len(schema.PrimaryFields) > 0 {
		return schema.PrimaryFields
	}
	for _, name := range schema.UniqueKeyOrder {
		return schema.UniqueKeys[name]
	}
	return nil
}

// WriteFields returns the insert/upsert column set: the identity column and
// non-key server-generated columns are excluded, key columns always included
func (schema *Schema) WriteFields() []*Field {
	fields := make([]*Field, 0, len(schema.Fields))
	for _, field := range schema.Fields {
		if field == schema.AutoIncrementField {
			continue
		}
		if !field.Creatable && !field.keyMember() {
			continue
		}
		fields = append(fields, field)
	}
	return fields
}

// SetFields returns the columns an update statement assigns: updatable
// non-key columns
func (schema *Schema) SetFields() []*Field {
	fields := make([]*Field, 0, len(schema.Fields))
	for _, field := range schema.Fields {
		if field == schema.AutoIncrementField || field.keyMember() || !field.Updatable {
			continue
		}
		fields = append(fields, field)
	}
	return fields
}

func (field *Field) keyMember() bool {
	return field.PrimaryKey || field.Unique || len(field.UniqueKeys) > 0
}

// Parse derives table metadata for dest's type, reading through cacheStore.
// Parsed schemas are cached for the process lifetime; mapped types are static
// for a process run.
func Parse(dest interface{}, cacheStore *sync.Map, namer Namer) (*Schema, error) {
	return parse(dest, cacheStore, namer, true)
}

// getOrParse is the non-blocking variant used while resolving relations, so a
// self-referential type can see its own in-flight schema
func getOrParse(dest interface{}, cacheStore *sync.Map, namer Namer) (*Schema, error) {
	return parse(dest, cacheStore, namer, false)
}

func parse(dest interface{}, cacheStore *sync.Map, namer Namer, wait bool) (*Schema, error) {
	if dest == nil {
		return nil, fmt.Errorf("%w: %+v", ErrUnsupportedDataType, dest)
	}

	modelType := reflect.Indirect(reflect.ValueOf(dest)).Type()
	for modelType.Kind() == reflect.Slice || modelType.Kind() == reflect.Array || modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}

	if modelType.Kind() != reflect.Struct {
		if modelType.PkgPath() == "" {
			return nil, fmt.Errorf("%w: %+v", ErrUnsupportedDataType, dest)
		}
		return nil, fmt.Errorf("%w: %s.%s", ErrUnsupportedDataType, modelType.PkgPath(), modelType.Name())
	}

	if v, ok := cacheStore.Load(modelType); ok {
		s := v.(*Schema)
		if wait {
			<-s.initialized
		}
		return s, s.err
	}

	schema := &Schema{
		Name:           modelType.Name(),
		ModelType:      modelType,
		FieldsByName:   map[string]*Field{},
		FieldsByDBName: map[string]*Field{},
		UniqueKeys:     map[string][]*Field{},
		initialized:    make(chan struct{}),
		namer:          namer,
		cacheStore:     cacheStore,
	}

	if tabler, ok := reflect.New(modelType).Interface().(Tabler); ok {
		schema.Table = tabler.TableName()
	} else {
		schema.Table = namer.TableName(modelType.Name())
	}
	if schema.Table == "" {
		return nil, fmt.Errorf("%w for %s", ErrMissingTableName, schema)
	}

	if v, loaded := cacheStore.LoadOrStore(modelType, schema); loaded {
		s := v.(*Schema)
		if wait {
			<-s.initialized
		}
		return s, s.err
	}

	defer close(schema.initialized)
	defer func() {
		if schema.err != nil {
			cacheStore.Delete(modelType)
		}
	}()

	var relationFields []reflect.StructField
	for i := 0; i < modelType.NumField(); i++ {
		fieldStruct := modelType.Field(i)
		if !ast.IsExported(fieldStruct.Name) {
			continue
		}
		if tag := fieldStruct.Tag.Get("bulk"); tag == "-" {
			continue
		}
		if isChildCollection(fieldStruct) {
			relationFields = append(relationFields, fieldStruct)
			continue
		}

		field := schema.ParseField(fieldStruct)
		if field.DataType == "" {
			// not a mappable column (nested struct, map, chan, ...)
			continue
		}
		schema.Fields = append(schema.Fields, field)
	}

	for _, field := range schema.Fields {
		if field.DBName == "" {
			field.DBName = namer.ColumnName(schema.Table, field.Name)
		}
		if _, ok := schema.FieldsByDBName[field.DBName]; !ok {
			schema.FieldsByDBName[field.DBName] = field
		}
		schema.FieldsByName[field.Name] = field

		if field.PrimaryKey {
			schema.PrimaryFields = append(schema.PrimaryFields, field)
		}
	}

	if len(schema.PrimaryFields) == 0 {
		if f, ok := schema.FieldsByName["ID"]; ok {
			f.PrimaryKey = true
			schema.PrimaryFields = append(schema.PrimaryFields, f)
		}
	}

	for _, field := range schema.Fields {
		if field.Unique && len(field.UniqueKeys) == 0 {
			field.UniqueKeys = append(field.UniqueKeys, "uq_"+field.DBName)
		}
		for _, name := range field.UniqueKeys {
			if _, ok := schema.UniqueKeys[name]; !ok {
				schema.UniqueKeyOrder = append(schema.UniqueKeyOrder, name)
			}
			schema.UniqueKeys[name] = append(schema.UniqueKeys[name], field)
		}
	}

	// single integer primary key defaults to auto increment unless tagged off
	if len(schema.PrimaryFields) == 1 {
		pf := schema.PrimaryFields[0]
		if _, tagged := pf.TagSettings["AUTOINCREMENT"]; !tagged && (pf.DataType == Int || pf.DataType == Uint) {
			pf.AutoIncrement = true
		}
	}

	for _, field := range schema.Fields {
		if !field.AutoIncrement {
			continue
		}
		if schema.AutoIncrementField != nil {
			schema.err = fmt.Errorf("%w: %s declares multiple auto increment columns", ErrInvalidField, schema)
			return schema, schema.err
		}
		if !field.keyMember() {
			schema.err = fmt.Errorf("%w: auto increment column %s.%s must be part of a key", ErrInvalidField, schema.Name, field.Name)
			return schema, schema.err
		}
		schema.AutoIncrementField = field
	}

	if len(schema.PrimaryFields) == 0 && len(schema.UniqueKeys) == 0 {
		schema.err = fmt.Errorf("%w on %s", ErrMissingKey, schema)
		return schema, schema.err
	}

	for _, fieldStruct := range relationFields {
		if err := schema.parseRelation(fieldStruct); err != nil {
			schema.err = err
			return schema, schema.err
		}
	}

	return schema, nil
}
