package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fatflowers/entitlement/internal/models"
	dbpkg "github.com/fatflowers/entitlement/internal/platform/db"
	"github.com/fatflowers/entitlement/internal/store"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/config"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// testStore connects to TEST_DATABASE_DSN and migrates the schema. Tests
// use fresh user ids, so they can share one database.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	log := zap.NewNop().Sugar()
	gdb, err := dbpkg.NewDB(log, &config.Config{Database: config.DBConfig{DSN: dsn, SlowThreshold: time.Second, LogLevel: "silent"}})
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, dbpkg.AutoMigrate(log, gdb))
	return New(gdb, log)
}

func newSubscription(userID string, now time.Time, limits map[string]int) *models.UserSubscription {
	snap := &types.PlanSnapshot{PlanID: "basic", DisplayName: "Basic", FreePushCount: 1}
	prio := 1
	for _, pt := range []string{"vip", "featured", "standard"} {
		if limit, ok := limits[pt]; ok {
			snap.Limits = append(snap.Limits, types.SnapshotLimit{PostTypeID: pt, DisplayName: pt, Priority: prio, Limit: limit})
		}
		prio++
	}
	return &models.UserSubscription{
		ID:         uuid.NewString(),
		UserID:     userID,
		PlanID:     snap.PlanID,
		Status:     types.SubscriptionStatusActive,
		Plan:       datatypes.NewJSONType(snap),
		PushTotal:  snap.FreePushCount,
		StartDate:  now.Add(-time.Hour),
		ExpiryDate: now.Add(24 * time.Hour),
		Version:    1,
	}
}

func seed(t *testing.T, s *Store, now time.Time, limits map[string]int) *models.UserSubscription {
	t.Helper()
	sub := newSubscription("u-"+uuid.NewString(), now, limits)
	_, err := s.CommitTransition(context.Background(), &store.Transition{UserID: sub.UserID, At: now, Next: sub})
	require.NoError(t, err)
	return sub
}

func TestIncrementPostUsage_GuardedUpdate(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	now := time.Now().UTC().Truncate(time.Microsecond)
	sub := seed(t, s, now, map[string]int{"standard": 2})

	for want := 1; want <= 2; want++ {
		row, err := s.IncrementPostUsage(ctx, sub.UserID, "standard", now)
		require.NoError(t, err)
		assert.Equal(t, want, row.Used)
		assert.Equal(t, sub.ID, row.SubscriptionID)
	}

	_, err := s.IncrementPostUsage(ctx, sub.UserID, "standard", now)
	assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)
	_, err = s.IncrementPostUsage(ctx, sub.UserID, "vip", now)
	assert.ErrorIs(t, err, apperr.ErrPostTypeNotInPlan)
	_, err = s.IncrementPostUsage(ctx, sub.UserID, "standard", sub.ExpiryDate.Add(time.Second))
	assert.ErrorIs(t, err, apperr.ErrSubscriptionInactive)
	_, err = s.IncrementPostUsage(ctx, "u-"+uuid.NewString(), "standard", now)
	assert.ErrorIs(t, err, apperr.ErrSubscriptionInactive)

	row, err := s.DecrementPostUsage(ctx, sub.UserID, "standard")
	require.NoError(t, err)
	assert.Equal(t, 1, row.Used)
}

func TestCommitTransition_OrphanedListingRollsBack(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	now := time.Now().UTC().Truncate(time.Microsecond)
	cur := seed(t, s, now, map[string]int{"standard": 1, "vip": 1})
	_, _, err := s.AttachListing(ctx, &models.Listing{ID: "p-" + uuid.NewString(), UserID: cur.UserID, PostTypeID: "vip"}, now)
	require.NoError(t, err)

	next := newSubscription(cur.UserID, now, map[string]int{"standard": 5})
	_, err = s.CommitTransition(ctx, &store.Transition{
		UserID:           cur.UserID,
		At:               now,
		Retire:           &store.Retirement{SubscriptionID: cur.ID, Version: cur.Version, Status: types.SubscriptionStatusUpgraded, HistoryID: uuid.NewString()},
		Next:             next,
		RequirePostTypes: []string{"standard"},
	})
	assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)

	latest, err := s.GetLatestSubscription(ctx, cur.UserID)
	require.NoError(t, err)
	assert.Equal(t, cur.ID, latest.ID)
	assert.Equal(t, types.SubscriptionStatusActive, latest.Status)
	assert.Equal(t, cur.Version, latest.Version)
	history, err := s.ListHistory(ctx, cur.UserID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCommitTransition_StaleVersion(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	now := time.Now().UTC().Truncate(time.Microsecond)
	cur := seed(t, s, now, map[string]int{"standard": 1})

	retire := func(version int64) error {
		_, err := s.CommitTransition(ctx, &store.Transition{
			UserID: cur.UserID, At: now,
			Retire: &store.Retirement{SubscriptionID: cur.ID, Version: version, Status: types.SubscriptionStatusCancelled, HistoryID: uuid.NewString()},
		})
		return err
	}
	assert.ErrorIs(t, retire(cur.Version+1), apperr.ErrConcurrencyConflict)
	require.NoError(t, retire(cur.Version))
	assert.ErrorIs(t, retire(cur.Version), apperr.ErrConcurrencyConflict)

	history, err := s.ListHistory(ctx, cur.UserID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.SubscriptionStatusCancelled, history[0].Status)
}

func TestCommitTransition_EventClaimedOnce(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	now := time.Now().UTC().Truncate(time.Microsecond)
	eventID := "evt-" + uuid.NewString()
	sub := newSubscription("u-"+uuid.NewString(), now, map[string]int{"standard": 1})

	_, err := s.CommitTransition(ctx, &store.Transition{UserID: sub.UserID, At: now, Next: sub, EventID: eventID})
	require.NoError(t, err)
	applied, err := s.EventApplied(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, applied)

	_, err = s.CommitTransition(ctx, &store.Transition{
		UserID: sub.UserID, At: now, EventID: eventID,
		Retire: &store.Retirement{SubscriptionID: sub.ID, Version: sub.Version, Status: types.SubscriptionStatusCancelled, HistoryID: uuid.NewString()},
	})
	assert.ErrorIs(t, err, apperr.ErrEventDuplicate)
	assert.True(t, apperr.IsConflict(err))

	latest, err := s.GetLatestSubscription(ctx, sub.UserID)
	require.NoError(t, err)
	assert.Equal(t, types.SubscriptionStatusActive, latest.Status)

	applied, err = s.EventApplied(ctx, "evt-"+uuid.NewString())
	require.NoError(t, err)
	assert.False(t, applied)
}
