package types

import (
	"sort"
	"time"
)

type DurationUnit string

const (
	DurationUnitDay   DurationUnit = "day"
	DurationUnitMonth DurationUnit = "month"
	DurationUnitYear  DurationUnit = "year"
)

// Duration is the length of one subscription cycle.
type Duration struct {
	Value int          `json:"value" mapstructure:"value" validate:"gt=0"`
	Unit  DurationUnit `json:"unit" mapstructure:"unit" validate:"oneof=day month year"`
}

// AddTo returns t moved forward by the duration in calendar units.
func (d Duration) AddTo(t time.Time) time.Time {
	switch d.Unit {
	case DurationUnitDay:
		return t.AddDate(0, 0, d.Value)
	case DurationUnitMonth:
		return t.AddDate(0, d.Value, 0)
	case DurationUnitYear:
		return t.AddDate(d.Value, 0, 0)
	}
	return t
}

// PostType is a priority tier a listing can be published under.
// Lower Priority means a higher tier.
type PostType struct {
	ID          string `json:"id" mapstructure:"id" validate:"required"`
	DisplayName string `json:"display_name" mapstructure:"display_name" validate:"required"`
	Priority    int    `json:"priority" mapstructure:"priority" validate:"gte=0"`
	Color       string `json:"color" mapstructure:"color"`
	StarRating  int    `json:"star_rating" mapstructure:"star_rating" validate:"gte=0,lte=5"`
}

type PostTypeLimit struct {
	PostTypeID string `json:"post_type_id" mapstructure:"post_type_id" validate:"required"`
	Limit      int    `json:"limit" mapstructure:"limit" validate:"gte=0"`
}

// PackagePlan is a purchasable template. Plans are never edited in place;
// a changed offer is published under a new id.
type PackagePlan struct {
	ID            string          `json:"id" mapstructure:"id" validate:"required"`
	Name          string          `json:"name" mapstructure:"name" validate:"required"`
	DisplayName   string          `json:"display_name" mapstructure:"display_name" validate:"required"`
	Price         int64           `json:"price" mapstructure:"price" validate:"gte=0"`
	Currency      string          `json:"currency" mapstructure:"currency"`
	Duration      Duration        `json:"duration" mapstructure:"duration"`
	Limits        []PostTypeLimit `json:"limits" mapstructure:"limits" validate:"min=1,dive"`
	FreePushCount int             `json:"free_push_count" mapstructure:"free_push_count" validate:"gte=0"`
}

// SortPostTypes orders post types by priority, ties broken by id.
func SortPostTypes(items []PostType) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return items[i].ID < items[j].ID
	})
}
