package types

import (
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm/clause"
)

type CommonFilterOperator string

const (
	CommonFilterOperatorEq    CommonFilterOperator = "eq"
	CommonFilterOperatorNotEq CommonFilterOperator = "not_eq"
	CommonFilterOperatorLt    CommonFilterOperator = "lt"
	CommonFilterOperatorLte   CommonFilterOperator = "lte"
	CommonFilterOperatorGt    CommonFilterOperator = "gt"
	CommonFilterOperatorGte   CommonFilterOperator = "gte"
	CommonFilterOperatorRange CommonFilterOperator = "range"
	CommonFilterOperatorIn    CommonFilterOperator = "in"
	CommonFilterOperatorNotIn CommonFilterOperator = "not_in"
)

// minValues is the number of values each operator reads.
var minValues = map[CommonFilterOperator]int{
	CommonFilterOperatorEq:    1,
	CommonFilterOperatorNotEq: 1,
	CommonFilterOperatorLt:    1,
	CommonFilterOperatorLte:   1,
	CommonFilterOperatorGt:    1,
	CommonFilterOperatorGte:   1,
	CommonFilterOperatorRange: 2,
	CommonFilterOperatorIn:    1,
	CommonFilterOperatorNotIn: 1,
}

// CommonFilter is one column predicate of an admin query. Field names a
// column and is only trusted after CheckFilters.
type CommonFilter struct {
	Field    string               `json:"field"`
	Operator CommonFilterOperator `json:"operator"`
	Values   []any                `json:"values"`
}

// CheckFilters rejects filters on columns outside allowed, unknown
// operators and filters that carry too few values.
func CheckFilters(filters []*CommonFilter, allowed ...string) error {
	for _, f := range filters {
		if f == nil {
			return fmt.Errorf("filter is empty")
		}
		if !lo.Contains(allowed, f.Field) {
			return fmt.Errorf("unsupported filter field %q", f.Field)
		}
		n, ok := minValues[f.Operator]
		if !ok {
			return fmt.Errorf("unsupported operator %q on %s", f.Operator, f.Field)
		}
		if len(f.Values) < n {
			return fmt.Errorf("operator %s on %s needs %d value(s)", f.Operator, f.Field, n)
		}
	}
	return nil
}

// Build writes the predicate. A filter without values writes nothing.
func (f *CommonFilter) Build(builder clause.Builder) {
	if len(f.Values) == 0 {
		return
	}
	col := clause.Column{Name: f.Field}
	value := f.Values[0]

	switch f.Operator {
	case CommonFilterOperatorEq:
		clause.Eq{Column: col, Value: value}.Build(builder)
	case CommonFilterOperatorNotEq:
		clause.Neq{Column: col, Value: value}.Build(builder)
	case CommonFilterOperatorLt:
		clause.Lt{Column: col, Value: value}.Build(builder)
	case CommonFilterOperatorLte:
		clause.Lte{Column: col, Value: value}.Build(builder)
	case CommonFilterOperatorGt:
		clause.Gt{Column: col, Value: value}.Build(builder)
	case CommonFilterOperatorGte:
		clause.Gte{Column: col, Value: value}.Build(builder)
	case CommonFilterOperatorRange:
		if len(f.Values) < 2 {
			return
		}
		clause.And(clause.Gte{Column: col, Value: f.Values[0]}, clause.Lte{Column: col, Value: f.Values[1]}).Build(builder)
	case CommonFilterOperatorIn:
		clause.IN{Column: col, Values: f.Values}.Build(builder)
	case CommonFilterOperatorNotIn:
		clause.Not(clause.IN{Column: col, Values: f.Values}).Build(builder)
	}
}
