package restore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// FormatValue renders v as a SQL literal for an INSERT. It is total: any input
// yields some literal, falling back to a quoted string.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(val)
	case json.RawMessage:
		return formatRawJSON(val)
	case []byte:
		return quote(string(val))
	// bool before numbers; never 1/0.
	case bool:
		if val {
			return "true"
		}
		return "false"
	case json.Number:
		return val.String()
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(val)
	case float32:
		return formatFloat(float64(val), 32)
	case float64:
		return formatFloat(val, 64)
	case []any:
		return formatArray(len(val), func(i int) any { return val[i] })
	case map[string]any:
		return formatJSON(val)
	case time.Time:
		return quote(val.Format(time.RFC3339Nano))
	case fmt.Stringer:
		return quote(val.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return "NULL"
		}
		return FormatValue(rv.Elem().Interface())
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return formatFloat(rv.Float(), 32)
	case reflect.Float64:
		return formatFloat(rv.Float(), 64)
	case reflect.Slice, reflect.Array:
		return formatArray(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	case reflect.Map, reflect.Struct:
		return formatJSON(v)
	}
	return quote(fmt.Sprint(v))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatFloat(f float64, bits int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return quote(strconv.FormatFloat(f, 'g', -1, bits))
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

func formatArray(n int, at func(int) any) string {
	items := make([]string, n)
	for i := range items {
		items[i] = FormatValue(at(i))
	}
	return "ARRAY[" + strings.Join(items, ", ") + "]"
}

func formatJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return quote(fmt.Sprint(v))
	}
	return quote(strings.TrimSuffix(buf.String(), "\n"))
}

// formatRawJSON keeps captured JSON text as is, key order included.
func formatRawJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return quote(string(raw))
	}
	return quote(buf.String())
}
