package models

import (
	"time"

	"github.com/fatflowers/entitlement/pkg/types"
	"gorm.io/datatypes"
)

// UserSubscription is one entitlement instance of a user, created from a
// plan snapshot. At most one row per user is live (trial or active).
type UserSubscription struct {
	ID     string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string                   `gorm:"column:user_id;type:varchar(64);not null;index:idx_user_subscription_user_start,priority:1" json:"user_id"`
	PlanID string                   `gorm:"column:plan_id;type:varchar(64);not null" json:"plan_id"`
	Status types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	// IsTrial marks subscriptions granted by the one-time trial.
	IsTrial bool `gorm:"column:is_trial;not null;default:false" json:"is_trial"`
	// Plan is a deep copy of the plan taken at acquisition.
	Plan       datatypes.JSONType[*types.PlanSnapshot] `gorm:"column:plan;type:jsonb;not null" json:"plan"`
	PushUsed   int                                     `gorm:"column:push_used;not null;default:0" json:"push_used"`
	PushTotal  int                                     `gorm:"column:push_total;not null;default:0" json:"push_total"`
	StartDate  time.Time                               `gorm:"column:start_date;not null;index:idx_user_subscription_user_start,priority:2" json:"start_date"`
	ExpiryDate time.Time                               `gorm:"column:expiry_date;not null;index" json:"expiry_date"`
	RetiredAt  *time.Time                              `gorm:"column:retired_at;default:null" json:"retired_at"`
	// Version increases on every status change.
	Version   int64     `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserSubscription) TableName() string {
	return "user_subscription"
}

// Live reports whether the subscription grants entitlements at now.
func (s *UserSubscription) Live(now time.Time) bool {
	return s != nil && s.Status.IsLive() && !now.After(s.ExpiryDate)
}

// Due reports whether a live-status subscription has passed its expiry.
func (s *UserSubscription) Due(now time.Time) bool {
	return s != nil && s.Status.IsLive() && now.After(s.ExpiryDate)
}

func (s *UserSubscription) Snapshot() *types.PlanSnapshot {
	if s == nil {
		return nil
	}
	return s.Plan.Data()
}

func (s *UserSubscription) PushUsage() types.PushUsage {
	return types.PushUsage{Used: s.PushUsed, Total: s.PushTotal}
}

// Clone returns a deep copy, including the plan snapshot.
func (s *UserSubscription) Clone() *UserSubscription {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Plan = datatypes.NewJSONType(s.Snapshot().Clone())
	if s.RetiredAt != nil {
		at := *s.RetiredAt
		cp.RetiredAt = &at
	}
	return &cp
}

// SubscriptionUsage is the arena counter addressed by (user, post type) for
// the user's live subscription. Rows of retired subscriptions have Live false.
type SubscriptionUsage struct {
	SubscriptionID string `gorm:"column:subscription_id;type:uuid;primaryKey" json:"subscription_id"`
	PostTypeID     string `gorm:"column:post_type_id;type:varchar(64);primaryKey" json:"post_type_id"`
	UserID         string `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Used           int    `gorm:"column:used;not null;default:0" json:"used"`
	LimitCount     int    `gorm:"column:limit_count;not null" json:"limit"`
	Live           bool   `gorm:"column:live;not null;default:true" json:"live"`
	// ExpiryDate mirrors the owning subscription so the guarded increment
	// touches a single row.
	ExpiryDate time.Time `gorm:"column:expiry_date;not null" json:"expiry_date"`
}

func (SubscriptionUsage) TableName() string {
	return "subscription_usage"
}

func (u *SubscriptionUsage) Counter() types.Counter {
	return types.Counter{Used: u.Used, Limit: u.LimitCount}
}

// UsageMap folds usage rows into a post type keyed map.
func UsageMap(rows []*SubscriptionUsage) types.UsageMap {
	m := make(types.UsageMap, len(rows))
	for _, r := range rows {
		m[r.PostTypeID] = r.Counter()
	}
	return m
}

// NewUsageRows builds zeroed counters for every post type in the snapshot.
func NewUsageRows(sub *UserSubscription) []*SubscriptionUsage {
	snap := sub.Snapshot()
	if snap == nil {
		return nil
	}
	rows := make([]*SubscriptionUsage, 0, len(snap.Limits))
	for _, l := range snap.Limits {
		rows = append(rows, &SubscriptionUsage{
			SubscriptionID: sub.ID,
			PostTypeID:     l.PostTypeID,
			UserID:         sub.UserID,
			LimitCount:     l.Limit,
			Live:           true,
			ExpiryDate:     sub.ExpiryDate,
		})
	}
	return rows
}
