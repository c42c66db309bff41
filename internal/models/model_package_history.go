package models

import (
	"time"

	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PackageHistory archives one retired subscription. Rows are written once,
// in the same transaction that retires the subscription.
type PackageHistory struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;index:idx_package_history_user_retired,priority:1" json:"user_id"`
	// SubscriptionID is unique: a subscription retires at most once.
	SubscriptionID string                   `gorm:"column:subscription_id;type:uuid;not null;uniqueIndex" json:"subscription_id"`
	PlanID         string                   `gorm:"column:plan_id;type:varchar(64);not null" json:"plan_id"`
	Status         types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	// Plan is a deep copy of the subscription's plan snapshot.
	Plan                  datatypes.JSONType[*types.PlanSnapshot]    `gorm:"column:plan;type:jsonb;not null" json:"plan"`
	Usage                 datatypes.JSONType[types.UsageMap]         `gorm:"column:usage;type:jsonb;not null" json:"usage"`
	PushUsage             datatypes.JSONType[types.PushUsage]        `gorm:"column:push_usage;type:jsonb;not null" json:"push_usage"`
	TransferredProperties datatypes.JSONType[[]types.TransferRecord] `gorm:"column:transferred_properties;type:jsonb;not null;default:'[]'" json:"transferred_properties"`
	PurchaseDate          time.Time                                  `gorm:"column:purchase_date;not null" json:"purchase_date"`
	ExpiryDate            time.Time                                  `gorm:"column:expiry_date;not null" json:"expiry_date"`
	RetiredAt             time.Time                                  `gorm:"column:retired_at;not null;index:idx_package_history_user_retired,priority:2" json:"retired_at"`
	CreatedAt             time.Time                                  `json:"created_at"`
}

func (PackageHistory) TableName() string {
	return "package_history"
}

func (*PackageHistory) BeforeUpdate(*gorm.DB) error { return apperr.ErrHistoryImmutable }

func (*PackageHistory) BeforeDelete(*gorm.DB) error { return apperr.ErrHistoryImmutable }

func (h *PackageHistory) Transfers() []types.TransferRecord {
	return h.TransferredProperties.Data()
}

// Clone returns a deep copy whose maps and slices are not shared with h.
func (h *PackageHistory) Clone() *PackageHistory {
	if h == nil {
		return nil
	}
	cp := *h
	cp.Plan = datatypes.NewJSONType(h.Plan.Data().Clone())
	cp.Usage = datatypes.NewJSONType(h.Usage.Data().Clone())
	cp.TransferredProperties = datatypes.NewJSONType(append([]types.TransferRecord(nil), h.Transfers()...))
	return &cp
}
