package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatisticType string

const (
	// Live subscriptions grouped by plan
	StatisticTypeLiveSubscriptionCount StatisticType = "live_subscription_count"
	// Retirements per day grouped by terminal status
	StatisticTypeDailyRetirementCount StatisticType = "daily_retirement_count"
	// Listings moved to another post type per day
	StatisticTypeDailyTransferCount StatisticType = "daily_transfer_count"
	// Push usage of live subscriptions grouped by plan
	StatisticTypePushUsageTotal StatisticType = "push_usage_total"
)

var statisticTypes = []StatisticType{
	StatisticTypeLiveSubscriptionCount,
	StatisticTypeDailyRetirementCount,
	StatisticTypeDailyTransferCount,
	StatisticTypePushUsageTotal,
}

// Filter fields that only make sense for some statistic types
type StatisticFilterType string

const (
	StatisticFilterTypeStatus StatisticFilterType = "status"
)

var filterTypes = []StatisticFilterType{
	StatisticFilterTypeStatus,
}

// statisticFilterFields are the columns shared by every statistic source table.
var statisticFilterFields = []string{"user_id", "plan_id", "status"}

var validFilters = map[StatisticFilterType][]StatisticType{
	StatisticFilterTypeStatus: {StatisticTypeDailyRetirementCount},
}

type StatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type StatisticRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	DataItems []*StatisticDataItem  `json:"data_items"`
}

// GetFilters drops the filters that do not apply to statisticType.
func (f *StatisticRequest) GetFilters(statisticType StatisticType) *StatisticRequest {
	if f == nil || len(f.Filters) == 0 {
		return f
	}
	var result StatisticRequest
	for _, filter := range f.Filters {
		if statisticTypes, ok := validFilters[StatisticFilterType(filter.Field)]; ok {
			if lo.Contains(statisticTypes, statisticType) {
				result.Filters = append(result.Filters, filter)
			}
		} else {
			result.Filters = append(result.Filters, filter)
		}
	}
	return &result
}

// Build composes a WHERE clause from the filters.
func (f *StatisticRequest) Build(builder clause.Builder) {
	if f == nil || len(f.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, filter := range f.Filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		filter.Build(builder)
	}
}

type StatisticResponseDataItem struct {
	Date   string `json:"date,omitempty"`
	Label  string `json:"label,omitempty"`
	Value  int64  `json:"value"`
	Value2 int64  `json:"value2,omitempty"`
}

type StatisticResponse struct {
	DataItems map[StatisticType][]StatisticResponseDataItem `json:"data_items"`
}

// ScanHistoryRequest pages through package history for admin views.
type ScanHistoryRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanHistoryResponse struct {
	Items []*models.PackageHistory `json:"items"`
	Total int64                    `json:"total"`
}

var historySortColumns = []string{"retired_at", "purchase_date", "expiry_date", "user_id", "plan_id", "status"}

var historyFilterFields = []string{"user_id", "subscription_id", "plan_id", "status", "retired_at", "purchase_date", "expiry_date"}

const maxScanSize = 200

// Service provides statistics operations
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Service { return &Service{db: db, now: time.Now} }

func (s *Service) getLiveSubscriptionCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.UserSubscription{}).TableName()).
		Select("plan_id AS label, count(*) AS value").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeLiveSubscriptionCount)}}).
		Where("status IN ?", types.LiveStatuses).
		Where("expiry_date >= ?", s.now()).
		Group("plan_id").
		Order("plan_id")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyRetirementCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.PackageHistory{}).TableName()).
		Select("TO_CHAR(retired_at, 'YYYY-MM-DD') AS date, status AS label, count(*) AS value").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailyRetirementCount)}}).
		Group("TO_CHAR(retired_at, 'YYYY-MM-DD')").
		Group("status").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyTransferCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.PackageHistory{}).TableName()).
		Select("TO_CHAR(retired_at, 'YYYY-MM-DD') AS date, COALESCE(SUM(jsonb_array_length(transferred_properties)), 0) AS value").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailyTransferCount)}}).
		Where("status = ?", types.SubscriptionStatusUpgraded).
		Group("TO_CHAR(retired_at, 'YYYY-MM-DD')").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// getPushUsageTotal reports used pushes as value and granted pushes as value2.
func (s *Service) getPushUsageTotal(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.UserSubscription{}).TableName()).
		Select("plan_id AS label, COALESCE(SUM(push_used), 0) AS value, COALESCE(SUM(push_total), 0) AS value2").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypePushUsageTotal)}}).
		Where("status IN ?", types.LiveStatuses).
		Where("expiry_date >= ?", s.now()).
		Group("plan_id").
		Order("plan_id")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getStatistic(ctx context.Context, request *StatisticRequest, dataItem *StatisticDataItem) ([]StatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeLiveSubscriptionCount:
		return s.getLiveSubscriptionCount(ctx, request)
	case StatisticTypeDailyRetirementCount:
		return s.getDailyRetirementCount(ctx, request)
	case StatisticTypeDailyTransferCount:
		return s.getDailyTransferCount(ctx, request)
	case StatisticTypePushUsageTotal:
		return s.getPushUsageTotal(ctx, request)
	default:
		return nil, apperr.Validation("data_items", "invalid data item id: %s", dataItem.ID)
	}
}

// Validate rejects unknown data items before any query runs.
func (f *StatisticRequest) Validate() error {
	if f == nil || len(f.DataItems) == 0 {
		return apperr.Validation("data_items", "at least one data item is required")
	}
	for _, di := range f.DataItems {
		if di == nil || !lo.Contains(statisticTypes, di.ID) {
			return apperr.Validation("data_items", "invalid data item id")
		}
	}
	if err := types.CheckFilters(f.Filters, statisticFilterFields...); err != nil {
		return apperr.Validation("filters", "%s", err.Error())
	}
	return nil
}

// GetStatistic computes every requested data item concurrently.
func (s *Service) GetStatistic(ctx context.Context, request *StatisticRequest) (*StatisticResponse, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []StatisticResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *StatisticDataItem) {
			defer wg.Done()
			// A filter restricted to other statistic types yields no data.
			for _, filter := range request.Filters {
				ft := StatisticFilterType(filter.Field)
				if lo.Contains(filterTypes, ft) && !lo.Contains(validFilters[ft], di.ID) {
					resChan <- &lo.Entry[StatisticType, []StatisticResponseDataItem]{Key: di.ID, Value: nil}
					return
				}
			}
			res, err := s.getStatistic(ctx, request, di)
			if err != nil {
				errChan <- fmt.Errorf("failed to compute %s: %w", di.ID, err)
				return
			}
			resChan <- &lo.Entry[StatisticType, []StatisticResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	go func() { wg.Wait(); close(errChan); close(resChan) }()

	results := make(map[StatisticType][]StatisticResponseDataItem)
	for i := 0; i < len(request.DataItems); i++ {
		select {
		case err := <-errChan:
			if err != nil {
				return nil, err
			}
		case entry := <-resChan:
			results[entry.Key] = entry.Value
		}
	}
	return &StatisticResponse{DataItems: results}, nil
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// normalize clamps paging and rejects sort columns outside the allow list.
func (req *ScanHistoryRequest) normalize() error {
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.Size > maxScanSize {
		req.Size = maxScanSize
	}
	if req.From < 0 {
		req.From = 0
	}
	if req.SortBy == "" {
		req.SortBy = "retired_at"
	}
	if !lo.Contains(historySortColumns, req.SortBy) {
		return apperr.Validation("sort_by", "unsupported sort column %q", req.SortBy)
	}
	if req.SortOrder != "" && req.SortOrder != "asc" && req.SortOrder != "desc" {
		return apperr.Validation("sort_order", "must be asc or desc")
	}
	if err := types.CheckFilters(req.Filters, historyFilterFields...); err != nil {
		return apperr.Validation("filters", "%s", err.Error())
	}
	return nil
}

// ScanHistory lists package history across users with filters and paging.
func (s *Service) ScanHistory(ctx context.Context, req *ScanHistoryRequest) (*ScanHistoryResponse, error) {
	if req == nil {
		return nil, apperr.Validation("request", "required")
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Model(&models.PackageHistory{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}

	var rows []*models.PackageHistory
	q := tx.Limit(req.Size).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"},
			{Column: clause.Column{Name: "id"}, Desc: req.SortOrder != "asc"},
		}})
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	if rows == nil {
		rows = []*models.PackageHistory{}
	}
	return &ScanHistoryResponse{Items: rows, Total: total}, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
