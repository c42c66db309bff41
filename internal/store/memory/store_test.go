package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/store"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func seedSubscription(id, userID string, now time.Time, limits map[string]int, push int) *models.UserSubscription {
	snap := &types.PlanSnapshot{PlanID: "plan-" + id, DisplayName: "Plan " + id, FreePushCount: push}
	prio := 1
	for _, pt := range []string{"vip", "featured", "standard"} {
		if limit, ok := limits[pt]; ok {
			snap.Limits = append(snap.Limits, types.SnapshotLimit{PostTypeID: pt, DisplayName: pt, Priority: prio, Limit: limit})
		}
		prio++
	}
	return &models.UserSubscription{
		ID:         id,
		UserID:     userID,
		PlanID:     snap.PlanID,
		Status:     types.SubscriptionStatusActive,
		Plan:       datatypes.NewJSONType(snap),
		PushTotal:  push,
		StartDate:  now.Add(-time.Hour),
		ExpiryDate: now.Add(24 * time.Hour),
		Version:    1,
	}
}

func TestIncrementPostUsage_ConcurrentLastUnit(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := New()
	s.PutSubscription(seedSubscription("s1", "u1", now, map[string]int{"standard": 1}, 0))

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.IncrementPostUsage(ctx, "u1", "standard", now)
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range errs {
		if err == nil {
			success++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)
	}
	assert.Equal(t, 1, success)

	rows, err := s.ListUsage(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Used)
}

func TestIncrementPostUsage_Classification(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := New()
	s.PutSubscription(seedSubscription("s1", "u1", now, map[string]int{"standard": 1}, 0))

	_, err := s.IncrementPostUsage(ctx, "u1", "vip", now)
	assert.ErrorIs(t, err, apperr.ErrPostTypeNotInPlan)

	_, err = s.IncrementPostUsage(ctx, "u1", "standard", now.Add(48*time.Hour))
	assert.ErrorIs(t, err, apperr.ErrSubscriptionInactive)

	_, err = s.IncrementPostUsage(ctx, "nobody", "standard", now)
	assert.ErrorIs(t, err, apperr.ErrSubscriptionInactive)

	row, err := s.IncrementPostUsage(ctx, "u1", "standard", now)
	require.NoError(t, err)
	assert.Equal(t, types.Counter{Used: 1, Limit: 1}, row.Counter())

	row, err = s.DecrementPostUsage(ctx, "u1", "standard")
	require.NoError(t, err)
	assert.Equal(t, 0, row.Used)
	_, err = s.DecrementPostUsage(ctx, "u1", "standard")
	assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)
}

func TestPushUsage(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := New()
	s.PutSubscription(seedSubscription("s1", "u1", now, map[string]int{"standard": 1}, 1))

	sub, err := s.IncrementPushUsage(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.PushUsed)

	_, err = s.IncrementPushUsage(ctx, "u1", now)
	assert.ErrorIs(t, err, apperr.ErrPushQuotaExhausted)

	require.NoError(t, s.DecrementPushUsage(ctx, "s1"))
	_, err = s.IncrementPushUsage(ctx, "u1", now.Add(48*time.Hour))
	assert.ErrorIs(t, err, apperr.ErrSubscriptionExpired)
}

func TestAttachAndDetachListing(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := New()
	s.PutSubscription(seedSubscription("s1", "u1", now, map[string]int{"standard": 2}, 0))

	saved, usage, err := s.AttachListing(ctx, &models.Listing{ID: "p1", UserID: "u1", Title: "Flat", PostTypeID: "standard"}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Used)
	assert.Equal(t, "s1", saved.Package.SubscriptionID)
	assert.True(t, saved.Package.IsActive)

	_, _, err = s.AttachListing(ctx, &models.Listing{ID: "p1", UserID: "u1", PostTypeID: "standard"}, now)
	assert.True(t, apperr.IsValidation(err))

	_, _, err = s.AttachListing(ctx, &models.Listing{ID: "p1", UserID: "other", PostTypeID: "standard"}, now)
	assert.ErrorIs(t, err, apperr.ErrListingNotFound)

	detached, err := s.DetachListing(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.False(t, detached.Attached())

	rows, err := s.ListUsage(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, rows[0].Used, "detach leaves counters untouched")

	_, err = s.DetachListing(ctx, "u1", "missing")
	assert.ErrorIs(t, err, apperr.ErrListingNotFound)
}

func TestCommitTransition_UpgradeWithTransfer(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := New()
	old := seedSubscription("s1", "u1", now, map[string]int{"standard": 2}, 1)
	s.PutSubscription(old)
	_, _, err := s.AttachListing(ctx, &models.Listing{ID: "p1", UserID: "u1", Title: "Flat", PostTypeID: "standard"}, now)
	require.NoError(t, err)

	next := seedSubscription("s2", "u1", now, map[string]int{"vip": 1}, 5)
	next.StartDate = now
	info, ok := models.NewPackageInfo(next, "vip")
	require.True(t, ok)

	entry, err := s.CommitTransition(ctx, &store.Transition{
		UserID: "u1",
		At:     now,
		Retire: &store.Retirement{SubscriptionID: "s1", Version: 1, Status: types.SubscriptionStatusUpgraded, HistoryID: "h1"},
		Next:   next,
		Transfers: []store.ListingTransfer{{
			PropertyID: "p1", PropertyTitle: "Flat", FromPostType: "standard", ToPostType: "vip", Package: info,
		}},
		RequirePostTypes: []string{"vip"},
	})
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, types.SubscriptionStatusUpgraded, entry.Status)
	assert.Equal(t, types.UsageMap{"standard": {Used: 1, Limit: 2}}, entry.Usage.Data())
	require.Len(t, entry.Transfers(), 1)
	assert.Equal(t, "Plan s1", entry.Transfers()[0].TransferredFromPackage)
	assert.Equal(t, "Plan s2", entry.Transfers()[0].TransferredToPackage)

	latest, err := s.GetLatestSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "s2", latest.ID)

	l, err := s.GetListing(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "vip", l.PostTypeID)
	assert.Equal(t, "s2", l.Package.SubscriptionID)

	// Old counters no longer accept increments.
	_, err = s.IncrementPostUsage(ctx, "u1", "standard", now)
	assert.ErrorIs(t, err, apperr.ErrPostTypeNotInPlan)
}

func TestCommitTransition_FailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := New()
	s.PutSubscription(seedSubscription("s1", "u1", now, map[string]int{"standard": 2}, 0))
	_, _, err := s.AttachListing(ctx, &models.Listing{ID: "p1", UserID: "u1", PostTypeID: "standard"}, now)
	require.NoError(t, err)

	next := seedSubscription("s2", "u1", now, map[string]int{"vip": 1}, 0)
	// p1 is not transferred although its post type is not part of the new plan.
	_, err = s.CommitTransition(ctx, &store.Transition{
		UserID:           "u1",
		At:               now,
		Retire:           &store.Retirement{SubscriptionID: "s1", Version: 1, Status: types.SubscriptionStatusUpgraded, HistoryID: "h1"},
		Next:             next,
		RequirePostTypes: []string{"vip"},
	})
	require.ErrorIs(t, err, apperr.ErrConcurrencyConflict)

	latest, err := s.GetLatestSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "s1", latest.ID)
	assert.Equal(t, types.SubscriptionStatusActive, latest.Status)
	assert.Equal(t, int64(1), latest.Version)
	history, err := s.ListHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCommitTransition_StaleVersionAndDoubleRetire(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := New()
	s.PutSubscription(seedSubscription("s1", "u1", now, map[string]int{"standard": 1}, 0))

	expire := func(id string) error {
		_, err := s.CommitTransition(ctx, &store.Transition{
			UserID: "u1", At: now,
			Retire: &store.Retirement{SubscriptionID: "s1", Version: 1, Status: types.SubscriptionStatusExpired, HistoryID: id, DeactivateListings: true},
		})
		return err
	}
	require.NoError(t, expire("h1"))
	require.ErrorIs(t, expire("h2"), apperr.ErrConcurrencyConflict)

	history, err := s.ListHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCommitTransition_NewWhileLiveExists(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := New()
	s.PutSubscription(seedSubscription("s1", "u1", now, map[string]int{"standard": 1}, 0))

	_, err := s.CommitTransition(ctx, &store.Transition{UserID: "u1", At: now, Next: seedSubscription("s2", "u1", now, map[string]int{"standard": 1}, 0)})
	assert.ErrorIs(t, err, apperr.ErrSubscriptionExists)
}

func TestHistory_AppendOnceAndOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := New()

	older := &models.PackageHistory{ID: "h1", UserID: "u1", SubscriptionID: "s1", RetiredAt: now.Add(-time.Hour)}
	newer := &models.PackageHistory{ID: "h2", UserID: "u1", SubscriptionID: "s2", RetiredAt: now}
	require.NoError(t, s.AppendHistory(ctx, older))
	require.NoError(t, s.AppendHistory(ctx, newer))

	err := s.AppendHistory(ctx, &models.PackageHistory{ID: "h3", UserID: "u1", SubscriptionID: "s1", RetiredAt: now})
	assert.ErrorIs(t, err, apperr.ErrHistoryImmutable)
	err = s.AppendHistory(ctx, &models.PackageHistory{ID: "h1", UserID: "u1", SubscriptionID: "s9", RetiredAt: now})
	assert.ErrorIs(t, err, apperr.ErrHistoryImmutable)

	items, err := s.ListHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "h2", items[0].ID)
	assert.Equal(t, "h1", items[1].ID)
}
