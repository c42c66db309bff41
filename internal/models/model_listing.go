package models

import (
	"time"
)

// PackageInfo is the package snapshot frozen on a listing when it is
// published. It only changes through a transfer, a detach or the
// deactivation of the subscription it was taken from.
type PackageInfo struct {
	SubscriptionID string     `gorm:"column:subscription_id;type:varchar(64);index" json:"subscription_id"`
	PlanID         string     `gorm:"column:plan_id;type:varchar(64)" json:"plan_id"`
	DisplayName    string     `gorm:"column:display_name;type:varchar(128)" json:"display_name"`
	Priority       int        `gorm:"column:priority" json:"priority"`
	Color          string     `gorm:"column:color;type:varchar(32)" json:"color"`
	StarRating     int        `gorm:"column:star_rating" json:"star_rating"`
	ExpiryDate     *time.Time `gorm:"column:expiry_date" json:"expiry_date"`
	IsActive       bool       `gorm:"column:is_active;not null;default:false" json:"is_active"`
}

// NewPackageInfo freezes the package of sub for a listing published under
// postTypeID. ok is false when the post type is not part of the plan.
func NewPackageInfo(sub *UserSubscription, postTypeID string) (PackageInfo, bool) {
	snap := sub.Snapshot()
	entry, ok := snap.Find(postTypeID)
	if !ok {
		return PackageInfo{}, false
	}
	expiry := sub.ExpiryDate
	return PackageInfo{
		SubscriptionID: sub.ID,
		PlanID:         snap.PlanID,
		DisplayName:    snap.DisplayName,
		Priority:       entry.Priority,
		Color:          entry.Color,
		StarRating:     entry.StarRating,
		ExpiryDate:     &expiry,
		IsActive:       true,
	}, true
}

// Usable reports whether the frozen package still permits edits and
// promotion at now.
func (p PackageInfo) Usable(now time.Time) bool {
	if !p.IsActive || p.SubscriptionID == "" {
		return false
	}
	return p.ExpiryDate == nil || !now.After(*p.ExpiryDate)
}

// Listing is the slice of a property listing this service owns: its post
// type and frozen package association.
type Listing struct {
	ID     string `gorm:"column:id;type:varchar(64);primary_key" json:"property_id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Title  string `gorm:"column:title;type:varchar(256)" json:"title"`
	// PostTypeID is empty while the listing has no package.
	PostTypeID string      `gorm:"column:post_type_id;type:varchar(64);not null;default:''" json:"post_type_id"`
	Package    PackageInfo `gorm:"embedded;embeddedPrefix:package_" json:"package_info"`
	PromotedAt *time.Time  `gorm:"column:promoted_at" json:"promoted_at"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (Listing) TableName() string {
	return "listing"
}

func (l *Listing) Attached() bool {
	return l != nil && l.PostTypeID != "" && l.Package.SubscriptionID != ""
}

// Editable reports whether the listing may be edited or promoted at now.
func (l *Listing) Editable(now time.Time) bool {
	return l.Attached() && l.Package.Usable(now)
}

func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	cp := *l
	if l.Package.ExpiryDate != nil {
		at := *l.Package.ExpiryDate
		cp.Package.ExpiryDate = &at
	}
	if l.PromotedAt != nil {
		at := *l.PromotedAt
		cp.PromotedAt = &at
	}
	return &cp
}
