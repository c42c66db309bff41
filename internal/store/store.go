// Package store persists subscriptions, their usage counters, listing
// package associations and the history ledger.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/types"
	"gorm.io/datatypes"
)

// Store is implemented by the postgres store and the in-memory store.
//
// Counter operations are single guarded writes: they succeed only if the
// guard holds at the moment of the write. A failed guard is classified into
// a domain error after the fact without holding any lock.
type Store interface {
	// GetLatestSubscription returns the live subscription of the user, or
	// the most recent retired one. apperr.ErrNoSubscription if none exists.
	GetLatestSubscription(ctx context.Context, userID string) (*models.UserSubscription, error)
	ListUsage(ctx context.Context, subscriptionID string) ([]*models.SubscriptionUsage, error)
	// ListDueSubscriptions returns live-status subscriptions whose expiry is
	// before now, oldest expiry first.
	ListDueSubscriptions(ctx context.Context, now time.Time, limit int) ([]*models.UserSubscription, error)
	HasTrial(ctx context.Context, userID string) (bool, error)
	// EventApplied reports whether a transition carrying eventID has been
	// committed.
	EventApplied(ctx context.Context, eventID string) (bool, error)

	IncrementPostUsage(ctx context.Context, userID, postTypeID string, now time.Time) (*models.SubscriptionUsage, error)
	DecrementPostUsage(ctx context.Context, userID, postTypeID string) (*models.SubscriptionUsage, error)
	IncrementPushUsage(ctx context.Context, userID string, now time.Time) (*models.UserSubscription, error)
	DecrementPushUsage(ctx context.Context, subscriptionID string) error

	GetListing(ctx context.Context, propertyID string) (*models.Listing, error)
	ListListings(ctx context.Context, userID string) ([]*models.Listing, error)
	// AttachListing consumes one unit of the listing's post type and freezes
	// the live subscription's package onto the listing in one unit.
	AttachListing(ctx context.Context, listing *models.Listing, now time.Time) (*models.Listing, *models.SubscriptionUsage, error)
	DetachListing(ctx context.Context, userID, propertyID string) (*models.Listing, error)
	MarkPromoted(ctx context.Context, propertyID string, at time.Time) error

	// CommitTransition applies t atomically. A concurrent change to any row
	// t depends on fails the whole commit with apperr.ErrConcurrencyConflict.
	CommitTransition(ctx context.Context, t *Transition) (*models.PackageHistory, error)

	AppendHistory(ctx context.Context, h *models.PackageHistory) error
	// ListHistory returns the user's entries, most recently retired first.
	ListHistory(ctx context.Context, userID string) ([]*models.PackageHistory, error)
}

// Transition retires the user's live subscription, creates the next one, or
// both, together with the listing changes they imply.
type Transition struct {
	UserID string
	At     time.Time
	Retire *Retirement
	Next   *models.UserSubscription
	// Transfers remap listings whose post type is not part of Next's plan.
	Transfers []ListingTransfer
	// RequirePostTypes, when set, makes the commit fail if any attached
	// listing of the user would be left on a post type outside the list.
	RequirePostTypes []string
	// EventID, when set, is claimed by the commit. A second commit carrying
	// the same id fails with apperr.ErrEventDuplicate.
	EventID string
}

type Retirement struct {
	SubscriptionID string
	// Version is the version the plan was built from.
	Version   int64
	Status    types.SubscriptionStatus
	HistoryID string
	// DeactivateListings clears is_active on listings bound to the retired
	// subscription.
	DeactivateListings bool
}

type ListingTransfer struct {
	PropertyID    string
	PropertyTitle string
	FromPostType  string
	ToPostType    string
	// FromPriority is the tier the listing was ranked in before the move.
	FromPriority int
	Package      models.PackageInfo
}

// BuildHistory archives retired with the counters observed at retirement.
func BuildHistory(t *Transition, retired *models.UserSubscription, usage []*models.SubscriptionUsage) *models.PackageHistory {
	fromPackage := ""
	if snap := retired.Snapshot(); snap != nil {
		fromPackage = snap.DisplayName
	}
	toPackage := ""
	if t.Next != nil && t.Next.Snapshot() != nil {
		toPackage = t.Next.Snapshot().DisplayName
	}
	records := make([]types.TransferRecord, 0, len(t.Transfers))
	for _, tr := range t.Transfers {
		records = append(records, types.TransferRecord{
			PropertyID:             tr.PropertyID,
			PropertyTitle:          tr.PropertyTitle,
			FromPostType:           tr.FromPostType,
			ToPostType:             tr.ToPostType,
			TransferredFromPackage: fromPackage,
			TransferredToPackage:   toPackage,
			TransferDate:           t.At,
		})
	}
	return &models.PackageHistory{
		ID:                    t.Retire.HistoryID,
		UserID:                retired.UserID,
		SubscriptionID:        retired.ID,
		PlanID:                retired.PlanID,
		Status:                t.Retire.Status,
		Plan:                  datatypes.NewJSONType(retired.Snapshot().Clone()),
		Usage:                 datatypes.NewJSONType(models.UsageMap(usage)),
		PushUsage:             datatypes.NewJSONType(retired.PushUsage()),
		TransferredProperties: datatypes.NewJSONType(records),
		PurchaseDate:          retired.StartDate,
		ExpiryDate:            retired.ExpiryDate,
		RetiredAt:             t.At,
	}
}

// Validate checks the shape of t before any write is attempted.
func (t *Transition) Validate() error {
	if t.UserID == "" {
		return apperr.Validation("user_id", "required")
	}
	if t.Retire == nil && t.Next == nil {
		return fmt.Errorf("empty transition for user %s", t.UserID)
	}
	if t.Retire != nil {
		if !t.Retire.Status.IsTerminal() {
			return fmt.Errorf("%w: retire into %s", apperr.ErrInvalidTransition, t.Retire.Status)
		}
		if t.Retire.HistoryID == "" {
			return fmt.Errorf("retirement of %s has no history id", t.Retire.SubscriptionID)
		}
	}
	if t.Next != nil {
		if !t.Next.Status.IsLive() || t.Next.UserID != t.UserID {
			return fmt.Errorf("%w: next subscription must be live and owned by %s", apperr.ErrInvalidTransition, t.UserID)
		}
	}
	return nil
}

// ClassifyPostFailure explains why a guarded post increment matched no row,
// given the user's live usage rows read afterwards.
func ClassifyPostFailure(live []*models.SubscriptionUsage, postTypeID string, now time.Time) error {
	if len(live) == 0 {
		return apperr.ErrSubscriptionInactive
	}
	for _, row := range live {
		if row.PostTypeID != postTypeID {
			continue
		}
		if now.After(row.ExpiryDate) {
			return apperr.ErrSubscriptionInactive
		}
		return apperr.ErrConcurrencyConflict
	}
	return apperr.ErrPostTypeNotInPlan
}

// ClassifyPushFailure explains why a guarded push increment matched no row.
func ClassifyPushFailure(latest *models.UserSubscription, now time.Time) error {
	if !latest.Live(now) {
		return apperr.ErrSubscriptionExpired
	}
	return apperr.ErrPushQuotaExhausted
}

// LatestFirst orders subscriptions so that a live one comes first, then the
// most recently started.
func LatestFirst(a, b *models.UserSubscription) bool {
	if a.Status.IsLive() != b.Status.IsLive() {
		return a.Status.IsLive()
	}
	if !a.StartDate.Equal(b.StartDate) {
		return a.StartDate.After(b.StartDate)
	}
	return a.ID > b.ID
}
