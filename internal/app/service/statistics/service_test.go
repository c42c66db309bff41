package statistics

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"
)

// sqlRecorder is a minimal clause.Builder that renders columns as "name"
// and placeholders as ?.
type sqlRecorder struct {
	strings.Builder
	vars []any
}

func (r *sqlRecorder) WriteQuoted(field any) {
	switch v := field.(type) {
	case clause.Column:
		fmt.Fprintf(r, "%q", v.Name)
	default:
		fmt.Fprintf(r, "%q", fmt.Sprint(v))
	}
}

func (r *sqlRecorder) AddVar(w clause.Writer, vars ...any) {
	for i, v := range vars {
		if i > 0 {
			_, _ = w.WriteString(",")
		}
		r.vars = append(r.vars, v)
		_, _ = w.WriteString("?")
	}
}

func (r *sqlRecorder) AddError(err error) error { return err }

func TestStatisticRequest_Filters(t *testing.T) {
	req := &StatisticRequest{
		Filters: []*types.CommonFilter{
			{Field: "plan_id", Operator: types.CommonFilterOperatorEq, Values: []any{"pro"}},
			{Field: "status", Operator: types.CommonFilterOperatorEq, Values: []any{"expired"}},
		},
	}

	live := req.GetFilters(StatisticTypeLiveSubscriptionCount)
	require.Len(t, live.Filters, 1)
	assert.Equal(t, "plan_id", live.Filters[0].Field)

	retired := req.GetFilters(StatisticTypeDailyRetirementCount)
	require.Len(t, retired.Filters, 2)

	rec := &sqlRecorder{}
	retired.Build(rec)
	assert.Equal(t, `"plan_id" = ? AND "status" = ?`, rec.String())
	assert.Equal(t, []any{"pro", "expired"}, rec.vars)

	empty := &sqlRecorder{}
	(&StatisticRequest{}).Build(empty)
	assert.Equal(t, "1=1", empty.String())
}

func TestStatisticRequest_Validate(t *testing.T) {
	assert.True(t, apperr.IsValidation((&StatisticRequest{}).Validate()))
	assert.True(t, apperr.IsValidation((&StatisticRequest{DataItems: []*StatisticDataItem{{ID: "gmv"}}}).Validate()))
	assert.NoError(t, (&StatisticRequest{DataItems: []*StatisticDataItem{{ID: StatisticTypePushUsageTotal}}}).Validate())

	injected := &StatisticRequest{
		DataItems: []*StatisticDataItem{{ID: StatisticTypePushUsageTotal}},
		Filters:   []*types.CommonFilter{{Field: "1=1; --", Operator: types.CommonFilterOperatorEq, Values: []any{"x"}}},
	}
	assert.True(t, apperr.IsValidation(injected.Validate()))

	shortRange := &StatisticRequest{
		DataItems: []*StatisticDataItem{{ID: StatisticTypePushUsageTotal}},
		Filters:   []*types.CommonFilter{{Field: "plan_id", Operator: types.CommonFilterOperatorRange, Values: []any{"a"}}},
	}
	assert.True(t, apperr.IsValidation(shortRange.Validate()))
}

func TestGetStatistic_FilterRestrictedItemsAreEmpty(t *testing.T) {
	// Every item is excluded by the status filter, so no query runs.
	s := New(nil)
	res, err := s.GetStatistic(context.Background(), &StatisticRequest{
		Filters: []*types.CommonFilter{{Field: "status", Operator: types.CommonFilterOperatorEq, Values: []any{"expired"}}},
		DataItems: []*StatisticDataItem{
			{ID: StatisticTypeLiveSubscriptionCount},
			{ID: StatisticTypePushUsageTotal},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.DataItems, 2)
	assert.Nil(t, res.DataItems[StatisticTypeLiveSubscriptionCount])
	assert.Nil(t, res.DataItems[StatisticTypePushUsageTotal])
}

func TestScanHistoryRequest_Normalize(t *testing.T) {
	req := &ScanHistoryRequest{From: -5, Size: 10000}
	require.NoError(t, req.normalize())
	assert.Equal(t, 0, req.From)
	assert.Equal(t, maxScanSize, req.Size)
	assert.Equal(t, "retired_at", req.SortBy)

	assert.True(t, apperr.IsValidation((&ScanHistoryRequest{SortBy: "id; drop table"}).normalize()))
	assert.True(t, apperr.IsValidation((&ScanHistoryRequest{SortOrder: "sideways"}).normalize()))
	assert.True(t, apperr.IsValidation((&ScanHistoryRequest{Filters: []*types.CommonFilter{
		{Field: "usage", Operator: types.CommonFilterOperatorEq, Values: []any{"{}"}},
	}}).normalize()))

	_, err := New(nil).ScanHistory(context.Background(), nil)
	assert.True(t, apperr.IsValidation(err))
}

func TestFiltersAnd(t *testing.T) {
	rec := &sqlRecorder{}
	filtersAnd{filters: []*types.CommonFilter{
		{Field: "user_id", Operator: types.CommonFilterOperatorEq, Values: []any{"u1"}},
		{Field: "retired_at", Operator: types.CommonFilterOperatorGte, Values: []any{"2026-01-01"}},
	}}.Build(rec)
	assert.Equal(t, `("user_id" = ? AND "retired_at" >= ?)`, rec.String())
}

func TestCommonFilter_Operators(t *testing.T) {
	cases := []struct {
		filter types.CommonFilter
		want   string
	}{
		{types.CommonFilter{Field: "status", Operator: types.CommonFilterOperatorNotEq, Values: []any{"expired"}}, `"status" <> ?`},
		{types.CommonFilter{Field: "retired_at", Operator: types.CommonFilterOperatorRange, Values: []any{"a", "b"}}, `("retired_at" >= ? AND "retired_at" <= ?)`},
		{types.CommonFilter{Field: "plan_id", Operator: types.CommonFilterOperatorIn, Values: []any{"basic", "pro"}}, `"plan_id" IN (?,?)`},
		{types.CommonFilter{Field: "plan_id", Operator: types.CommonFilterOperatorEq}, ``},
	}
	for _, tc := range cases {
		rec := &sqlRecorder{}
		tc.filter.Build(rec)
		assert.Equal(t, tc.want, rec.String(), string(tc.filter.Operator))
	}
}
