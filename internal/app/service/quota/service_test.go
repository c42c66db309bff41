package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fatflowers/entitlement/internal/app/service/catalog"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/store/memory"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/config"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.Store, *catalog.Service) {
	t.Helper()
	cat, err := catalog.New(config.CatalogConfig{
		PostTypes: []types.PostType{
			{ID: "vip", DisplayName: "VIP", Priority: 1},
			{ID: "featured", DisplayName: "Featured", Priority: 2},
			{ID: "standard", DisplayName: "Standard", Priority: 3},
		},
		Plans: []types.PackagePlan{{
			ID: "basic", Name: "basic", DisplayName: "Basic",
			Duration: types.Duration{Value: 1, Unit: types.DurationUnitMonth},
			Limits:   []types.PostTypeLimit{{PostTypeID: "standard", Limit: 3}, {PostTypeID: "vip", Limit: 1}},
		}},
	})
	require.NoError(t, err)
	st := memory.New()
	svc := NewService(st, cat, nil, zap.NewNop().Sugar())
	svc.now = func() time.Time { return fixedNow }
	return svc, st, cat
}

func seed(t *testing.T, st *memory.Store, cat *catalog.Service, userID string, expiry time.Time) *models.UserSubscription {
	t.Helper()
	snap, err := cat.Snapshot("basic")
	require.NoError(t, err)
	sub := &models.UserSubscription{
		ID:         "sub-" + userID,
		UserID:     userID,
		PlanID:     snap.PlanID,
		Status:     types.SubscriptionStatusActive,
		Plan:       datatypes.NewJSONType(snap),
		StartDate:  fixedNow.Add(-24 * time.Hour),
		ExpiryDate: expiry,
		Version:    1,
	}
	st.PutSubscription(sub)
	return sub
}

func TestCheckCanPost_QuotaScenario(t *testing.T) {
	ctx := context.Background()
	svc, st, cat := newTestService(t)
	seed(t, st, cat, "u1", fixedNow.Add(30*24*time.Hour))

	for i := 0; i < 3; i++ {
		d, err := svc.CheckCanPost(ctx, "u1", "standard")
		require.NoError(t, err)
		require.True(t, d.Allowed)
		assert.Equal(t, 3-i, d.Remaining)
		_, err = svc.ConsumePost(ctx, "u1", "standard")
		require.NoError(t, err)
	}
	c, err := svc.ConsumePost(ctx, "u1", "vip")
	require.NoError(t, err)
	assert.Equal(t, 1, c.UsedAfter)
	assert.Equal(t, 0, c.Remaining)

	d, err := svc.CheckCanPost(ctx, "u1", "standard")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, apperr.ReasonQuotaExhausted, d.Reason)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 3, d.Used)
	assert.Equal(t, 3, d.Limit)
}

func TestCheckCanPost_Denials(t *testing.T) {
	ctx := context.Background()
	svc, st, cat := newTestService(t)
	seed(t, st, cat, "live", fixedNow.Add(time.Hour))
	seed(t, st, cat, "lapsed", fixedNow.Add(-time.Hour))

	d, err := svc.CheckCanPost(ctx, "live", "featured")
	require.NoError(t, err)
	assert.Equal(t, apperr.ReasonPostTypeNotInPlan, d.Reason)

	d, err = svc.CheckCanPost(ctx, "lapsed", "standard")
	require.NoError(t, err)
	assert.Equal(t, apperr.ReasonSubscriptionInactive, d.Reason)

	_, err = svc.CheckCanPost(ctx, "live", "ghost")
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.CheckCanPost(ctx, "nobody", "standard")
	assert.ErrorIs(t, err, apperr.ErrNoSubscription)
}

func TestConsumePost_ConcurrentRaceOnLastUnit(t *testing.T) {
	ctx := context.Background()
	svc, st, cat := newTestService(t)
	seed(t, st, cat, "u1", fixedNow.Add(time.Hour))
	for i := 0; i < 2; i++ {
		_, err := svc.ConsumePost(ctx, "u1", "standard")
		require.NoError(t, err)
	}

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ConsumePost(ctx, "u1", "standard")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.ReasonOf(err) == apperr.ReasonConcurrencyConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, conflicts)

	items, err := svc.GetAvailablePostTypes(ctx, "u1")
	require.NoError(t, err)
	for _, item := range items {
		assert.LessOrEqual(t, item.Used, item.Limit)
	}
}

func TestReleasePost(t *testing.T) {
	ctx := context.Background()
	svc, st, cat := newTestService(t)
	seed(t, st, cat, "u1", fixedNow.Add(time.Hour))

	_, err := svc.ReleasePost(ctx, "u1", "standard")
	assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)

	_, err = svc.ConsumePost(ctx, "u1", "standard")
	require.NoError(t, err)
	c, err := svc.ReleasePost(ctx, "u1", "standard")
	require.NoError(t, err)
	assert.Equal(t, 0, c.UsedAfter)
	assert.Equal(t, 3, c.Remaining)
}

func TestGetAvailablePostTypes(t *testing.T) {
	ctx := context.Background()
	svc, st, cat := newTestService(t)
	seed(t, st, cat, "u1", fixedNow.Add(time.Hour))
	seed(t, st, cat, "lapsed", fixedNow.Add(-time.Hour))
	_, err := svc.ConsumePost(ctx, "u1", "standard")
	require.NoError(t, err)

	items, err := svc.GetAvailablePostTypes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "vip", items[0].PostTypeID)
	assert.Equal(t, 1, items[0].Remaining)
	assert.Equal(t, "standard", items[1].PostTypeID)
	assert.Equal(t, 2, items[1].Remaining)

	items, err = svc.GetAvailablePostTypes(ctx, "lapsed")
	require.NoError(t, err)
	for _, item := range items {
		assert.Zero(t, item.Remaining)
	}

	items, err = svc.GetAvailablePostTypes(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, items)
}
