package filter

import (
	"testing"

	"github.com/aidanlsb/tabula/internal/model"
)

func TestValuesAreWellFormed(t *testing.T) {
	v := StringPtr

	tests := []struct {
		name string
		cond Condition
		typ  model.ColumnType
		want bool
	}{
		{"no-value operator without value", Condition{Operator: OpIsEmpty}, model.TypeString, true},
		{"relative date without value", Condition{Operator: OpThisWeek}, model.TypeDate, true},
		{"missing value", Condition{Operator: OpEquals}, model.TypeString, false},
		{"empty text value is present", Condition{Operator: OpEquals, Value: v("")}, model.TypeString, true},
		{"numeric value", Condition{Operator: OpGreaterThan, Value: v(" 4.5 ")}, model.TypeNumber, true},
		{"non numeric value", Condition{Operator: OpGreaterThan, Value: v("four")}, model.TypeNumber, false},
		{"infinite value", Condition{Operator: OpEquals, Value: v("Inf")}, model.TypeNumber, false},
		{"range needs second", Condition{Operator: OpBetween, Value: v("1")}, model.TypeNumber, false},
		{"range second not numeric", Condition{Operator: OpBetween, Value: v("1"), SecondValue: v("x")}, model.TypeNumber, false},
		{"range ok", Condition{Operator: OpNotBetween, Value: v("30"), SecondValue: v("18")}, model.TypeNumber, true},
		{"date ok", Condition{Operator: OpBefore, Value: v("2025-01-01")}, model.TypeDate, true},
		{"datetime ok", Condition{Operator: OpAfter, Value: v("2025-01-01T10:00:00Z")}, model.TypeDatetime, true},
		{"date bad", Condition{Operator: OpEquals, Value: v("last tuesday")}, model.TypeDate, false},
		{"date range bad bound", Condition{Operator: OpBetween, Value: v("2025-01-01"), SecondValue: v("soon")}, model.TypeDate, false},
		{"regex compiles", Condition{Operator: OpRegex, Value: v(" ^ac(me)?$ ")}, model.TypeString, true},
		{"regex does not compile", Condition{Operator: OpRegex, Value: v("([")}, model.TypeString, false},
		{"boolean any value", Condition{Operator: OpEquals, Value: v("yes")}, model.TypeBoolean, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValuesAreWellFormed(tt.cond, tt.typ); got != tt.want {
				t.Fatalf("ValuesAreWellFormed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	columns := []model.Column{
		{ID: 1, Name: "Name", Type: model.TypeString},
		{ID: 2, Name: "Age", Type: model.TypeNumber},
	}

	conds := []Condition{
		{ColumnID: 1, ColumnType: model.TypeString, Operator: OpStartsWith, Value: StringPtr("ac")},
		{ColumnID: 2, ColumnType: model.TypeNumber, Operator: OpContains, Value: StringPtr("1")},
		{ColumnID: 2, ColumnType: model.TypeNumber, Operator: OpGreaterThan, Value: StringPtr("abc")},
		{ColumnID: 9, ColumnType: model.TypeString, Operator: OpEquals, Value: StringPtr("x")},
		// Stale client type: the stored type wins.
		{ColumnID: 2, ColumnType: model.TypeString, Operator: OpGreaterThan, Value: StringPtr("10")},
	}

	accepted, ignored := Validate(conds, columns)
	if len(accepted) != 2 {
		t.Fatalf("expected 2 accepted, got %d: %v", len(accepted), accepted)
	}
	if accepted[1].ColumnType != model.TypeNumber || accepted[1].ColumnName != "Age" {
		t.Fatalf("expected declared type/name to be applied, got %+v", accepted[1])
	}

	reasons := map[Reason]int{}
	for _, ig := range ignored {
		reasons[ig.Reason]++
		if ig.Condition == nil {
			t.Fatalf("validation drops must carry the condition")
		}
	}
	if reasons[ReasonOperatorNotAllowed] != 1 || reasons[ReasonMalformedValue] != 1 || reasons[ReasonUnknownColumn] != 1 {
		t.Fatalf("unexpected reasons %v", reasons)
	}
}

func TestValidateWithoutColumnsTrustsClientType(t *testing.T) {
	conds := []Condition{{ColumnID: 42, ColumnType: model.TypeBoolean, Operator: OpEquals, Value: StringPtr("true")}}
	accepted, ignored := Validate(conds, nil)
	if len(accepted) != 1 || len(ignored) != 0 {
		t.Fatalf("got %v %v", accepted, ignored)
	}
}

func TestValidateNeverPanicsOnInvalidPairs(t *testing.T) {
	types := []model.ColumnType{model.TypeString, model.TypeNumber, model.TypeBoolean, model.TypeDate, model.TypeReference, model.TypeCustomArray, "mystery"}
	ops := []Operator{OpEquals, OpContains, OpRegex, OpBetween, OpToday, OpIsEmpty, "bogus"}

	for _, typ := range types {
		for _, op := range ops {
			c := Condition{ColumnID: 1, ColumnType: typ, Operator: op}
			accepted, ignored := Validate([]Condition{c}, nil)
			if len(accepted)+len(ignored) != 1 {
				t.Fatalf("%s/%s: condition lost", typ, op)
			}
			if !IsAllowed(typ, op) && len(accepted) != 0 {
				t.Fatalf("%s/%s: disallowed pair accepted", typ, op)
			}
		}
	}
}

func TestValidateWithLegacyReferenceDialect(t *testing.T) {
	cols := []model.Column{
		{ID: 1, Name: "Company", Type: model.TypeReference},
		{ID: 2, Name: "Tags", Type: model.TypeCustomArray},
	}
	conds := []Condition{
		{ColumnID: 1, Operator: OpStartsWith, Value: StringPtr("20")},
		{ColumnID: 1, Operator: OpNotContains, Value: StringPtr("9")},
		{ColumnID: 1, Operator: OpRegex, Value: StringPtr("^2")},
		{ColumnID: 2, Operator: OpContains, Value: StringPtr("vip")},
	}

	accepted, ignored := Validate(conds, cols)
	if len(accepted) != 0 || len(ignored) != 4 {
		t.Fatalf("default dialect: accepted %v, ignored %v", accepted, ignored)
	}

	accepted, ignored = ValidateWith(conds, cols, FallbackOptions{LegacyReferenceDialect: true})
	if len(accepted) != 2 || accepted[0].Operator != OpStartsWith || accepted[1].Operator != OpNotContains {
		t.Fatalf("legacy dialect accepted %v", accepted)
	}
	// regex stays text-only and customArray is unaffected.
	if len(ignored) != 2 {
		t.Fatalf("legacy dialect ignored %v", ignored)
	}
}

func TestIgnoredString(t *testing.T) {
	c := Condition{ColumnID: 4, ColumnName: "Age", Operator: OpContains, Value: StringPtr("1")}

	tests := []struct {
		in   Ignored
		want string
	}{
		{Ignored{Condition: &c, Reason: ReasonOperatorNotAllowed}, `Age(#4) contains "1": operator_not_allowed`},
		{Ignored{Reason: ReasonMalformedJSON, Detail: "unexpected EOF"}, "malformed_json (unexpected EOF)"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
