package models

import (
	"time"

	"gorm.io/datatypes"
)

type PurchaseEventLogStatus string

const (
	PurchaseEventLogStatusReceived     PurchaseEventLogStatus = "received"
	PurchaseEventLogStatusHandled      PurchaseEventLogStatus = "handled"
	PurchaseEventLogStatusHandleFailed PurchaseEventLogStatus = "handle_failed"
)

// PurchaseEventLog records every signed purchase event and its outcome.
// Use case: troubleshooting and replay.
type PurchaseEventLog struct {
	ID        string                 `gorm:"column:id;type:uuid;primary_key" json:"id"`
	EventID   string                 `gorm:"column:event_id;type:varchar(128);index" json:"event_id"`
	UserID    *string                `gorm:"column:user_id;type:varchar(64)" json:"user_id"`
	TraceID   string                 `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	PlanID    string                 `gorm:"column:plan_id;type:varchar(64)" json:"plan_id"`
	Mode      string                 `gorm:"column:mode;type:varchar(32)" json:"mode"`
	EventTime time.Time              `gorm:"column:event_time" json:"event_time"`
	Data      datatypes.JSON         `gorm:"column:data;type:jsonb" json:"data"`
	Result    *datatypes.JSON        `gorm:"column:result;type:jsonb" json:"result"`
	Status    PurchaseEventLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func (PurchaseEventLog) TableName() string { return "purchase_event_log" }
