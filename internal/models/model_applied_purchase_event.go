package models

import "time"

// AppliedPurchaseEvent marks a purchase event id as consumed. It is written
// in the transaction that applies the purchase, so an event changes a
// subscription at most once.
type AppliedPurchaseEvent struct {
	EventID        string    `gorm:"column:event_id;type:varchar(128);primary_key" json:"event_id"`
	UserID         string    `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	SubscriptionID string    `gorm:"column:subscription_id;type:varchar(64)" json:"subscription_id"`
	AppliedAt      time.Time `gorm:"column:applied_at;not null" json:"applied_at"`
}

func (AppliedPurchaseEvent) TableName() string { return "applied_purchase_event" }
