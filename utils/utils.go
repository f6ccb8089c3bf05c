package utils

import (
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
)

var sourceDir string

func init() {
	_, file, _, _ := runtime.Caller(0)
	// compatible solution to get the module source directory with various operating systems
	sourceDir = filepath.ToSlash(filepath.Dir(filepath.Dir(file))) + "/"
}

// FileWithLineNum return the file name and line number of the first caller
// outside this module
func FileWithLineNum() string {
	for i := 2; i < 15; i++ {
		_, file, line, ok := runtime.Caller(i)
		if ok && (!strings.HasPrefix(file, sourceDir) || strings.HasSuffix(file, "_test.go")) {
			return file + ":" + strconv.FormatInt(int64(line), 10)
		}
	}

	return ""
}

// CallerFrame returns the first stack frame outside this module
func CallerFrame() runtime.Frame {
	pcs := make([]uintptr, 15)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.File, sourceDir) || strings.HasSuffix(frame.File, "_test.go") {
			return frame
		}
		if !more {
			return runtime.Frame{}
		}
	}
}

// CheckTruth check string true or not
func CheckTruth(vals ...string) bool {
	for _, val := range vals {
		if val != "" && !strings.EqualFold(val, "false") {
			return true
		}
	}
	return false
}

// ToStringKey joins values into a composite key string, normalizing each value
// so that equal keys produce equal strings regardless of the value's wire
// representation. Segments are length-prefixed, so distinct tuples cannot
// collide through their delimiters.
func ToStringKey(values ...interface{}) string {
	results := make([]string, len(values))

	for idx, value := range values {
		if valuer, ok := value.(driver.Valuer); ok {
			value, _ = valuer.Value()
		}

		switch v := value.(type) {
		case string:
			results[idx] = v
		case []byte:
			results[idx] = string(v)
		case int:
			results[idx] = strconv.FormatInt(int64(v), 10)
		case int64:
			results[idx] = strconv.FormatInt(v, 10)
		case uint:
			results[idx] = strconv.FormatUint(uint64(v), 10)
		case uint64:
			results[idx] = strconv.FormatUint(v, 10)
		case nil:
			results[idx] = "<nil>"
		default:
			rv := reflect.Indirect(reflect.ValueOf(value))
			if !rv.IsValid() {
				results[idx] = "<nil>"
				break
			}

			switch rv.Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				results[idx] = strconv.FormatInt(rv.Int(), 10)
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				results[idx] = strconv.FormatUint(rv.Uint(), 10)
			case reflect.Float32, reflect.Float64:
				results[idx] = strconv.FormatFloat(rv.Float(), 'g', -1, 64)
			case reflect.Bool:
				results[idx] = strconv.FormatBool(rv.Bool())
			case reflect.String:
				results[idx] = rv.String()
			default:
				results[idx] = fmt.Sprint(rv.Interface())
			}
		}
	}

	var sb strings.Builder
	for _, r := range results {
		sb.WriteString(strconv.Itoa(len(r)))
		sb.WriteByte(':')
		sb.WriteString(r)
	}
	return sb.String()
}
