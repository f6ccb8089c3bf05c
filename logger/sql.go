package logger

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
	"unicode"
)

const tmFmtWithMS = "2006-01-02 15:04:05.999"

func isPrintable(s []byte) bool {
	for _, r := range s {
		if !unicode.IsPrint(rune(r)) {
			return false
		}
	}
	return true
}

// ExplainSQL inlines vars into a `?`-placeholder statement for trace output.
// The result is for humans only, values still travel to the server as bound
// parameters.
func ExplainSQL(sql string, escaper string, avars ...interface{}) string {
	vars := make([]string, len(avars))

	for idx, v := range avars {
		if valuer, ok := v.(driver.Valuer); ok {
			v, _ = valuer.Value()
		}

		switch v := v.(type) {
		case bool:
			vars[idx] = fmt.Sprint(v)
		case time.Time:
			vars[idx] = escaper + v.Format(tmFmtWithMS) + escaper
		case *time.Time:
			if v != nil {
				vars[idx] = escaper + v.Format(tmFmtWithMS) + escaper
			} else {
				vars[idx] = "NULL"
			}
		case []byte:
			if isPrintable(v) {
				vars[idx] = escaper + strings.ReplaceAll(string(v), escaper, "\\"+escaper) + escaper
			} else {
				vars[idx] = escaper + "<binary>" + escaper
			}
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			vars[idx] = fmt.Sprintf("%d", v)
		case float32, float64:
			vars[idx] = fmt.Sprintf("%.6f", v)
		case string:
			vars[idx] = escaper + strings.ReplaceAll(v, escaper, "\\"+escaper) + escaper
		default:
			if v == nil {
				vars[idx] = "NULL"
			} else {
				vars[idx] = escaper + strings.ReplaceAll(fmt.Sprint(v), escaper, "\\"+escaper) + escaper
			}
		}
	}

	var sb strings.Builder
	sb.Grow(len(sql) + 32)
	idx := 0
	for _, r := range sql {
		if r == '?' && idx < len(vars) {
			sb.WriteString(vars[idx])
			idx++
		} else {
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
