package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/aidanlsb/tabula/internal/model"
)

// Condition is one client-supplied filter. Values arrive as JSON strings,
// numbers or booleans and are normalized to strings; nil means absent.
type Condition struct {
	ColumnID    int64            `json:"columnId"`
	ColumnName  string           `json:"columnName,omitempty"`
	ColumnType  model.ColumnType `json:"columnType"`
	Operator    Operator         `json:"operator"`
	Value       *string          `json:"value,omitempty"`
	SecondValue *string          `json:"secondValue,omitempty"`
}

// wireCondition is the loosely typed shape clients actually send.
type wireCondition struct {
	ColumnID    any    `json:"columnId"`
	ColumnName  string `json:"columnName"`
	ColumnType  string `json:"columnType"`
	Operator    string `json:"operator"`
	Value       any    `json:"value"`
	SecondValue any    `json:"secondValue"`
}

// UnmarshalJSON accepts numeric or string column ids and scalar values of
// any JSON type.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var w wireCondition
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	id, err := parseColumnID(w.ColumnID)
	if err != nil {
		return err
	}

	*c = Condition{
		ColumnID:    id,
		ColumnName:  w.ColumnName,
		ColumnType:  model.ColumnType(strings.TrimSpace(w.ColumnType)),
		Operator:    Operator(strings.TrimSpace(w.Operator)),
		Value:       normalizeValue(w.Value),
		SecondValue: normalizeValue(w.SecondValue),
	}
	return nil
}

// ValueString returns the value or "" when absent.
func (c Condition) ValueString() string {
	if c.Value == nil {
		return ""
	}
	return *c.Value
}

// SecondValueString returns the second value or "" when absent.
func (c Condition) SecondValueString() string {
	if c.SecondValue == nil {
		return ""
	}
	return *c.SecondValue
}

func (c Condition) String() string {
	switch {
	case c.Value == nil:
		return fmt.Sprintf("%s(#%d) %s", c.ColumnName, c.ColumnID, c.Operator)
	case c.SecondValue == nil:
		return fmt.Sprintf("%s(#%d) %s %q", c.ColumnName, c.ColumnID, c.Operator, *c.Value)
	default:
		return fmt.Sprintf("%s(#%d) %s %q..%q", c.ColumnName, c.ColumnID, c.Operator, *c.Value, *c.SecondValue)
	}
}

// StringPtr is a convenience for building conditions in code.
func StringPtr(s string) *string {
	return &s
}

func parseColumnID(v any) (int64, error) {
	switch val := v.(type) {
	case float64:
		return int64(val), nil
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid columnId %q", val)
		}
		return id, nil
	case nil:
		return 0, fmt.Errorf("missing columnId")
	default:
		return 0, fmt.Errorf("invalid columnId %v", val)
	}
}

func normalizeValue(v any) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return &val
	case float64:
		s := model.FormatNumber(val)
		return &s
	case bool:
		s := strconv.FormatBool(val)
		return &s
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil
		}
		s := string(b)
		return &s
	}
}

// ParseFilters decodes a JSON array of conditions. Malformed input never
// fails the request: a broken document yields no conditions, and a broken
// element is skipped. Both are reported through the ignored list.
func ParseFilters(raw string) ([]Condition, []Ignored) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, []Ignored{{Reason: ReasonMalformedJSON, Detail: err.Error()}}
	}

	conds := make([]Condition, 0, len(elems))
	var ignored []Ignored
	for i, elem := range elems {
		var c Condition
		if err := json.Unmarshal(elem, &c); err != nil {
			ignored = append(ignored, Ignored{Reason: ReasonMalformedJSON, Detail: fmt.Sprintf("element %d: %v", i, err)})
			continue
		}
		conds = append(conds, c)
	}
	return conds, ignored
}
