package schema

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"github.com/sqlbulk/sqlbulk/utils"
)

// DataType provider-level data type name
type DataType string

// TimeReflectType reflect type of time.Time
var TimeReflectType = reflect.TypeOf(time.Time{})

const (
	Bool   DataType = "bool"
	Int    DataType = "int"
	Uint   DataType = "uint"
	Float  DataType = "float"
	String DataType = "string"
	Time   DataType = "time"
	Bytes  DataType = "bytes"
)

// Field maps one struct field to one table column
type Field struct {
	Name                  string
	DBName                string
	DataType              DataType
	PrimaryKey            bool
	AutoIncrement         bool
	Creatable             bool
	Updatable             bool
	Readable              bool
	HasDefaultValue       bool
	DefaultValue          string
	DefaultValueInterface interface{}
	NotNull               bool
	Unique                bool
	UniqueKeys            []string
	FieldType             reflect.Type
	IndirectFieldType     reflect.Type
	StructField           reflect.StructField
	TagSettings           map[string]string
	Schema                *Schema

	// accessors bound at parse time, no reflection walking per call
	ReflectValueOf func(reflect.Value) reflect.Value
	ValueOf        func(reflect.Value) (value interface{}, zero bool)
	Set            func(reflect.Value, interface{}) error
}

// ParseField parse one struct field into a column descriptor
func (schema *Schema) ParseField(fieldStruct reflect.StructField) *Field {
	field := &Field{
		Name:              fieldStruct.Name,
		FieldType:         fieldStruct.Type,
		IndirectFieldType: fieldStruct.Type,
		StructField:       fieldStruct,
		Creatable:         true,
		Updatable:         true,
		Readable:          true,
		TagSettings:       ParseTagSetting(fieldStruct.Tag.Get("bulk"), ";"),
		Schema:            schema,
	}

	for field.IndirectFieldType.Kind() == reflect.Ptr {
		field.IndirectFieldType = field.IndirectFieldType.Elem()
	}

	if dbName, ok := field.TagSettings["COLUMN"]; ok {
		field.DBName = dbName
	}

	if val, ok := field.TagSettings["PRIMARYKEY"]; ok && utils.CheckTruth(val) {
		field.PrimaryKey = true
	}

	if val, ok := field.TagSettings["AUTOINCREMENT"]; ok {
		field.AutoIncrement = utils.CheckTruth(val)
	}

	if v, ok := field.TagSettings["DEFAULT"]; ok {
		field.HasDefaultValue = true
		field.DefaultValue = v
	}

	if val, ok := field.TagSettings["NOT NULL"]; ok && utils.CheckTruth(val) {
		field.NotNull = true
	}

	if val, ok := field.TagSettings["UNIQUE"]; ok && utils.CheckTruth(val) {
		field.Unique = true
	}

	if val, ok := field.TagSettings["UNIQUEINDEX"]; ok {
		name := val
		if name == "UNIQUEINDEX" || name == "" {
			name = "udx_" + strings.ToLower(field.Name)
		}
		field.UniqueKeys = append(field.UniqueKeys, name)
	}

	if v, ok := field.TagSettings["->"]; ok {
		field.Readable = true
		if !utils.CheckTruth(v) {
			field.Readable = false
		}
	}

	if v, ok := field.TagSettings["<-"]; ok {
		field.Creatable = true
		field.Updatable = true

		if v != "<-" {
			if !strings.Contains(v, "create") {
				field.Creatable = false
			}
			if !strings.Contains(v, "update") {
				field.Updatable = false
			}
			if !utils.CheckTruth(v) {
				field.Creatable = false
				field.Updatable = false
			}
		}
	}

	fieldValue := reflect.New(field.IndirectFieldType)
	if valuer, ok := fieldValue.Interface().(driver.Valuer); ok {
		if v, err := valuer.Value(); err == nil && v != nil {
			fieldValue = reflect.ValueOf(v)
		} else if rv := reflect.Indirect(fieldValue); rv.Kind() == reflect.Struct && !rv.Type().ConvertibleTo(TimeReflectType) && rv.NumField() > 0 {
			// zero-valued Valuer yields nil; infer the data type from the
			// payload field (sql.NullString and friends keep it first)
			fieldValue = reflect.New(rv.Type().Field(0).Type)
		}
	}

	switch reflect.Indirect(fieldValue).Kind() {
	case reflect.Bool:
		field.DataType = Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		field.DataType = Int
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		field.DataType = Uint
	case reflect.Float32, reflect.Float64:
		field.DataType = Float
	case reflect.String:
		field.DataType = String
	case reflect.Struct:
		if _, ok := fieldValue.Interface().(*time.Time); ok {
			field.DataType = Time
		} else if fieldValue.Type().ConvertibleTo(TimeReflectType) {
			field.DataType = Time
		} else if field.IndirectFieldType.ConvertibleTo(TimeReflectType) {
			field.DataType = Time
		}
	case reflect.Slice:
		if field.IndirectFieldType.Elem().Kind() == reflect.Uint8 {
			field.DataType = Bytes
		}
	}

	if dataTyper, ok := field.TagSettings["TYPE"]; ok {
		field.DataType = DataType(dataTyper)
	}

	if field.HasDefaultValue && field.DataType == Time {
		if t, err := now.Parse(field.DefaultValue); err == nil {
			field.DefaultValueInterface = t
		}
	} else if field.HasDefaultValue {
		switch field.DataType {
		case Bool:
			field.DefaultValueInterface = strings.EqualFold(field.DefaultValue, "true")
		case Int:
			if v, err := strconv.ParseInt(field.DefaultValue, 10, 64); err == nil {
				field.DefaultValueInterface = v
			}
		case Uint:
			if v, err := strconv.ParseUint(field.DefaultValue, 10, 64); err == nil {
				field.DefaultValueInterface = v
			}
		case Float:
			if v, err := strconv.ParseFloat(field.DefaultValue, 64); err == nil {
				field.DefaultValueInterface = v
			}
		case String:
			field.DefaultValueInterface = strings.Trim(field.DefaultValue, "'\"")
		}
	}

	field.setupValuerAndSetter()
	return field
}

func (field *Field) setupValuerAndSetter() {
	fieldIndex := field.StructField.Index[0]

	// ValueOf
	field.ValueOf = func(value reflect.Value) (interface{}, bool) {
		fieldValue := reflect.Indirect(value).Field(fieldIndex)
		if fieldValue.Kind() == reflect.Ptr && fieldValue.IsNil() {
			return nil, true
		}
		return fieldValue.Interface(), fieldValue.IsZero()
	}

	// ReflectValueOf
	field.ReflectValueOf = func(value reflect.Value) reflect.Value {
		return reflect.Indirect(value).Field(fieldIndex)
	}

	// Set
	field.Set = func(value reflect.Value, v interface{}) error {
		fieldValue := field.ReflectValueOf(value)
		if !fieldValue.CanSet() {
			return fmt.Errorf("field %s.%s is not settable", field.Schema.Name, field.Name)
		}

		if v == nil {
			fieldValue.Set(reflect.Zero(fieldValue.Type()))
			return nil
		}

		if valuer, ok := v.(driver.Valuer); ok {
			var err error
			if v, err = valuer.Value(); err != nil {
				return err
			}
			if v == nil {
				fieldValue.Set(reflect.Zero(fieldValue.Type()))
				return nil
			}
		}

		target := fieldValue
		if target.Kind() == reflect.Ptr {
			if target.IsNil() {
				target.Set(reflect.New(target.Type().Elem()))
			}
			target = target.Elem()
		}

		return convertAssign(target, v, field)
	}
}

func convertAssign(target reflect.Value, v interface{}, field *Field) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			target.Set(reflect.Zero(target.Type()))
			return nil
		}
		rv = rv.Elem()
	}

	if rv.Type().AssignableTo(target.Type()) {
		target.Set(rv)
		return nil
	}

	if target.CanAddr() {
		if scanner, ok := target.Addr().Interface().(sql.Scanner); ok {
			return scanner.Scan(v)
		}
	}

	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			target.SetInt(rv.Int())
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			target.SetInt(int64(rv.Uint()))
			return nil
		case reflect.Float32, reflect.Float64:
			target.SetInt(int64(rv.Float()))
			return nil
		case reflect.String:
			if i, err := strconv.ParseInt(rv.String(), 10, 64); err == nil {
				target.SetInt(i)
				return nil
			}
		case reflect.Slice:
			if rv.Type().Elem().Kind() == reflect.Uint8 {
				if i, err := strconv.ParseInt(string(rv.Bytes()), 10, 64); err == nil {
					target.SetInt(i)
					return nil
				}
			}
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			target.SetUint(uint64(rv.Int()))
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			target.SetUint(rv.Uint())
			return nil
		case reflect.Float32, reflect.Float64:
			target.SetUint(uint64(rv.Float()))
			return nil
		case reflect.String:
			if i, err := strconv.ParseUint(rv.String(), 10, 64); err == nil {
				target.SetUint(i)
				return nil
			}
		case reflect.Slice:
			if rv.Type().Elem().Kind() == reflect.Uint8 {
				if i, err := strconv.ParseUint(string(rv.Bytes()), 10, 64); err == nil {
					target.SetUint(i)
					return nil
				}
			}
		}
	case reflect.Float32, reflect.Float64:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			target.SetFloat(float64(rv.Int()))
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			target.SetFloat(float64(rv.Uint()))
			return nil
		case reflect.Float32, reflect.Float64:
			target.SetFloat(rv.Float())
			return nil
		case reflect.String:
			if f, err := strconv.ParseFloat(rv.String(), 64); err == nil {
				target.SetFloat(f)
				return nil
			}
		case reflect.Slice:
			if rv.Type().Elem().Kind() == reflect.Uint8 {
				if f, err := strconv.ParseFloat(string(rv.Bytes()), 64); err == nil {
					target.SetFloat(f)
					return nil
				}
			}
		}
	case reflect.String:
		switch rv.Kind() {
		case reflect.String:
			target.SetString(rv.String())
			return nil
		case reflect.Slice:
			if rv.Type().Elem().Kind() == reflect.Uint8 {
				target.SetString(string(rv.Bytes()))
				return nil
			}
		default:
			target.SetString(fmt.Sprint(rv.Interface()))
			return nil
		}
	case reflect.Bool:
		switch rv.Kind() {
		case reflect.Bool:
			target.SetBool(rv.Bool())
			return nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			target.SetBool(rv.Int() != 0)
			return nil
		case reflect.Slice:
			if rv.Type().Elem().Kind() == reflect.Uint8 {
				if b, err := strconv.ParseBool(string(rv.Bytes())); err == nil {
					target.SetBool(b)
					return nil
				}
			}
		}
	default:
		if rv.Type().ConvertibleTo(target.Type()) {
			target.Set(rv.Convert(target.Type()))
			return nil
		}
	}

	return fmt.Errorf("failed to set value %#v to field %s.%s", v, field.Schema.Name, field.Name)
}

// ProviderValue reads the field on entity and converts it to the value handed
// to the driver: nil for absent values, driver.Valuer unwrapped, named scalar
// types (enums) reduced to their underlying representation.
func (field *Field) ProviderValue(entity reflect.Value) (interface{}, error) {
	v, _ := field.ValueOf(entity)
	if v == nil {
		return nil, nil
	}

	if valuer, ok := v.(driver.Valuer); ok {
		val, err := valuer.Value()
		if err != nil {
			return nil, fmt.Errorf("valuer for %s.%s: %w", field.Schema.Name, field.Name, err)
		}
		return val, nil
	}

	switch v.(type) {
	case time.Time, *time.Time, []byte, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, sql.RawBytes:
		return v, nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	}

	if rv.Type().ConvertibleTo(TimeReflectType) {
		return rv.Convert(TimeReflectType).Interface(), nil
	}

	return rv.Interface(), nil
}
