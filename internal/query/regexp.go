package query

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"modernc.org/sqlite"

	"github.com/aidanlsb/tabula/internal/model"
)

// SQL functions the compiled predicates rely on. They decode stored cell
// JSON with the same rules as model.DecodeCell so pushdown and in-memory
// evaluation agree on what a value means.
func init() {
	// SQLite invokes the "regexp" function with (pattern, value).
	sqlite.MustRegisterDeterministicScalarFunction("regexp", 2, regexpFunc)
	sqlite.MustRegisterDeterministicScalarFunction("cell_text", 1, cellTextFunc)
	sqlite.MustRegisterDeterministicScalarFunction("cell_number", 1, cellNumberFunc)
	sqlite.MustRegisterDeterministicScalarFunction("cell_time", 1, cellTimeFunc)
	sqlite.MustRegisterDeterministicScalarFunction("cell_is_date", 1, cellIsDateFunc)
	sqlite.MustRegisterDeterministicScalarFunction("cell_bool", 1, cellBoolFunc)
	sqlite.MustRegisterDeterministicScalarFunction("cell_has", 2, cellHasFunc)
}

func regexpFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("regexp expects 2 arguments")
	}

	pattern, ok := driverValueToString(args[0])
	if !ok || pattern == "" {
		return int64(0), nil
	}
	value, ok := driverValueToString(args[1])
	if !ok {
		return int64(0), nil
	}

	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}

	if re.MatchString(value) {
		return int64(1), nil
	}
	return int64(0), nil
}

// maxCachedPatterns bounds the pattern cache; patterns come from clients.
const maxCachedPatterns = 256

// patterns caches compiled regexps by source.
var (
	patterns     sync.Map
	patternCount atomic.Int64
)

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if patternCount.Load() >= maxCachedPatterns {
		return re, nil
	}
	actual, loaded := patterns.LoadOrStore(pattern, re)
	if !loaded {
		patternCount.Add(1)
	}
	return actual.(*regexp.Regexp), nil
}

// cell_text(value): the cell as plain text (lists joined with ", "), or
// NULL when the cell is null or blank.
func cellTextFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	v, ok := decodeArg(args, model.TypeString)
	if !ok {
		return nil, nil
	}
	s := v.String()
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return s, nil
}

// cell_number(value): the numeric value, or NULL when it is not a number.
func cellNumberFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	v, ok := decodeArg(args, model.TypeNumber)
	if !ok || v.Kind != model.ValueNumber {
		return nil, nil
	}
	return v.Number, nil
}

// cell_time(value): Unix seconds, or NULL when the value is not a date.
func cellTimeFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	v, ok := decodeArg(args, model.TypeDatetime)
	if !ok || !v.HasTime {
		return nil, nil
	}
	return v.Time.Unix(), nil
}

// cell_is_date(value): 1 when the value is a plain calendar date.
func cellIsDateFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	v, ok := decodeArg(args, model.TypeDate)
	if !ok || !v.IsDateOnly() {
		return int64(0), nil
	}
	return int64(1), nil
}

// cell_bool(value): 1 or 0, or NULL for a null cell.
func cellBoolFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	v, ok := decodeArg(args, model.TypeBoolean)
	if !ok {
		return nil, nil
	}
	if v.Bool {
		return int64(1), nil
	}
	return int64(0), nil
}

// cell_has(value, needle): 1 when any element of the value (a scalar counts
// as a one-element list) equals needle, ignoring case and surrounding space.
func cellHasFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("cell_has expects 2 arguments")
	}
	needle, ok := driverValueToString(args[1])
	if !ok {
		return int64(0), nil
	}
	v, ok := decodeArg(args[:1], model.TypeCustomArray)
	if !ok {
		return int64(0), nil
	}
	needle = strings.TrimSpace(needle)
	for _, item := range v.List {
		if strings.EqualFold(strings.TrimSpace(item), needle) {
			return int64(1), nil
		}
	}
	return int64(0), nil
}

func decodeArg(args []driver.Value, t model.ColumnType) (model.CellValue, bool) {
	if len(args) != 1 {
		return model.CellValue{}, false
	}
	raw, ok := driverValueToString(args[0])
	if !ok {
		return model.CellValue{}, false
	}
	v := model.DecodeCell(t, raw)
	if v.IsNull() {
		return model.CellValue{}, false
	}
	return v, true
}

func driverValueToString(v driver.Value) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case []byte:
		return string(val), true
	default:
		return fmt.Sprint(val), true
	}
}
