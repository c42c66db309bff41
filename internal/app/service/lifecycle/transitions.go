package lifecycle

import (
	"fmt"
	"time"

	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/store"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/tool"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/samber/lo"
	"gorm.io/datatypes"
)

// The planners below are pure: they turn the state read from the store into
// a store.Transition and never touch the store themselves.

type ids func() string

func retirement(cur *models.UserSubscription, to types.SubscriptionStatus, newID ids) (*store.Retirement, error) {
	if !types.CanTransition(cur.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, cur.Status, to)
	}
	return &store.Retirement{
		SubscriptionID: cur.ID,
		Version:        cur.Version,
		Status:         to,
		HistoryID:      newID(),
		// Expired and cancelled instances take their listings' packages down
		// with them. Upgraded and renewed ones leave the frozen snapshots
		// alone; they lapse at their own expiry.
		DeactivateListings: to == types.SubscriptionStatusExpired || to == types.SubscriptionStatusCancelled,
	}, nil
}

func newSubscription(userID string, snap *types.PlanSnapshot, status types.SubscriptionStatus, start, expiry time.Time, newID ids) *models.UserSubscription {
	return &models.UserSubscription{
		ID:         newID(),
		UserID:     userID,
		PlanID:     snap.PlanID,
		Status:     status,
		IsTrial:    status == types.SubscriptionStatusTrial,
		Plan:       datatypes.NewJSONType(snap.Clone()),
		PushTotal:  snap.FreePushCount,
		StartDate:  start,
		ExpiryDate: expiry,
		Version:    1,
	}
}

// planExpire retires a due subscription as EXPIRED.
func planExpire(cur *models.UserSubscription, now time.Time, newID ids) (*store.Transition, error) {
	if !cur.Due(now) {
		return nil, fmt.Errorf("subscription %s is not due", cur.ID)
	}
	r, err := retirement(cur, types.SubscriptionStatusExpired, newID)
	if err != nil {
		return nil, err
	}
	return &store.Transition{UserID: cur.UserID, At: now, Retire: r}, nil
}

// planCancel retires a live subscription as CANCELLED, effective now.
func planCancel(cur *models.UserSubscription, now time.Time, newID ids) (*store.Transition, error) {
	r, err := retirement(cur, types.SubscriptionStatusCancelled, newID)
	if err != nil {
		return nil, err
	}
	return &store.Transition{UserID: cur.UserID, At: now, Retire: r}, nil
}

// planStart creates a first or fresh subscription. A live-status but due
// current subscription is expired in the same commit.
func planStart(userID string, cur *models.UserSubscription, snap *types.PlanSnapshot, status types.SubscriptionStatus, now time.Time, newID ids) (*store.Transition, error) {
	t := &store.Transition{UserID: userID, At: now}
	if cur != nil && cur.Status.IsLive() {
		if !cur.Due(now) {
			return nil, apperr.ErrSubscriptionExists
		}
		r, err := retirement(cur, types.SubscriptionStatusExpired, newID)
		if err != nil {
			return nil, err
		}
		t.Retire = r
	}
	t.Next = newSubscription(userID, snap, status, now, snap.Duration.AddTo(now), newID)
	return t, nil
}

// planRenew closes the current cycle as RENEWED and opens the next one on
// the same plan with zeroed counters. Time left on the current cycle is
// carried over.
func planRenew(cur *models.UserSubscription, snap *types.PlanSnapshot, now time.Time, newID ids) (*store.Transition, error) {
	if cur.PlanID != snap.PlanID {
		return nil, apperr.Validation("plan_id", "renewal must use the current plan %q, use upgrade for %q", cur.PlanID, snap.PlanID)
	}
	r, err := retirement(cur, types.SubscriptionStatusRenewed, newID)
	if err != nil {
		return nil, err
	}
	expiry := snap.Duration.AddTo(tool.MaxTime(now, cur.ExpiryDate))
	return &store.Transition{
		UserID: cur.UserID,
		At:     now,
		Retire: r,
		Next:   newSubscription(cur.UserID, snap, types.SubscriptionStatusActive, now, expiry, newID),
	}, nil
}

// planUpgrade closes the current cycle as UPGRADED, opens one on the new
// plan and moves every listing whose post type the new plan lacks to target.
// A moved listing keeps its active flag: a package that was taken down stays
// down.
func planUpgrade(cur *models.UserSubscription, snap *types.PlanSnapshot, target types.SnapshotLimit, listings []*models.Listing, now time.Time, newID ids) (*store.Transition, error) {
	if cur.PlanID == snap.PlanID {
		return nil, apperr.Validation("plan_id", "already on plan %q, use renew", snap.PlanID)
	}
	r, err := retirement(cur, types.SubscriptionStatusUpgraded, newID)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Find(target.PostTypeID); !ok {
		return nil, apperr.Validation("plan_id", "plan %q has no post type %q", snap.PlanID, target.PostTypeID)
	}
	next := newSubscription(cur.UserID, snap, types.SubscriptionStatusActive, now, snap.Duration.AddTo(now), newID)
	inPlan := snap.PostTypeIDs()

	var transfers []store.ListingTransfer
	for _, l := range listings {
		if l.UserID != cur.UserID || l.PostTypeID == "" || lo.Contains(inPlan, l.PostTypeID) {
			continue
		}
		info, _ := models.NewPackageInfo(next, target.PostTypeID)
		info.IsActive = l.Package.IsActive
		transfers = append(transfers, store.ListingTransfer{
			PropertyID:    l.ID,
			PropertyTitle: l.Title,
			FromPostType:  l.PostTypeID,
			ToPostType:    target.PostTypeID,
			FromPriority:  l.Package.Priority,
			Package:       info,
		})
	}
	return &store.Transition{
		UserID:           cur.UserID,
		At:               now,
		Retire:           r,
		Next:             next,
		Transfers:        transfers,
		RequirePostTypes: inPlan,
	}, nil
}
