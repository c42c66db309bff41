package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fatflowers/entitlement/internal/app/service/catalog"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/store"
	"github.com/fatflowers/entitlement/internal/store/memory"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/config"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc   *Service
	store *memory.Store
	index *fakeIndex
	now   time.Time
	seq   atomic.Int64
}

type reassignment struct {
	PropertyID   string
	FromPriority int
	ToPriority   int
}

// fakeIndex records rank index calls instead of touching redis.
type fakeIndex struct {
	mu         sync.Mutex
	removed    map[string]int
	reassigned []reassignment
	err        error
}

func (f *fakeIndex) Remove(_ context.Context, l *models.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removed == nil {
		f.removed = map[string]int{}
	}
	f.removed[l.ID] = l.Package.Priority
	return f.err
}

func (f *fakeIndex) Reassign(_ context.Context, l *models.Listing, fromPriority int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reassigned = append(f.reassigned, reassignment{PropertyID: l.ID, FromPriority: fromPriority, ToPriority: l.Package.Priority})
	return f.err
}

func testCatalog(t *testing.T) *catalog.Service {
	t.Helper()
	month := types.Duration{Value: 1, Unit: types.DurationUnitMonth}
	cat, err := catalog.New(config.CatalogConfig{
		TrialPlanID: "trial",
		PostTypes: []types.PostType{
			{ID: "vip", DisplayName: "VIP", Priority: 1},
			{ID: "featured", DisplayName: "Featured", Priority: 2},
			{ID: "standard", DisplayName: "Standard", Priority: 3},
		},
		Plans: []types.PackagePlan{
			{ID: "trial", Name: "trial", DisplayName: "Trial", FreePushCount: 1,
				Duration: types.Duration{Value: 7, Unit: types.DurationUnitDay},
				Limits:   []types.PostTypeLimit{{PostTypeID: "standard", Limit: 1}}},
			{ID: "basic", Name: "basic", DisplayName: "Basic", FreePushCount: 2, Duration: month,
				Limits: []types.PostTypeLimit{{PostTypeID: "standard", Limit: 3}, {PostTypeID: "vip", Limit: 1}}},
			{ID: "pro", Name: "pro", DisplayName: "Pro", FreePushCount: 10, Duration: month,
				Limits: []types.PostTypeLimit{{PostTypeID: "vip", Limit: 5}, {PostTypeID: "featured", Limit: 10}}},
		},
	})
	require.NoError(t, err)
	return cat
}

func newFixture(t *testing.T, st store.Store) *fixture {
	t.Helper()
	mem := memory.New()
	if st == nil {
		st = mem
	}
	f := &fixture{now: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC), index: &fakeIndex{}}
	f.svc = NewService(&config.Config{Lifecycle: config.LifecycleConfig{SweepBatchSize: 100}}, st, testCatalog(t), f.index, nil, zap.NewNop().Sugar())
	f.svc.now = func() time.Time { return f.now }
	f.svc.newID = func() string { return fmt.Sprintf("id-%03d", f.seq.Add(1)) }
	if m, ok := st.(*memory.Store); ok {
		f.store = m
	} else if r, ok := st.(*racingStore); ok {
		f.store = r.Store
	}
	return f
}

func (f *fixture) attach(t *testing.T, userID, propertyID, postTypeID string) {
	t.Helper()
	_, _, err := f.store.AttachListing(context.Background(), &models.Listing{
		ID: propertyID, UserID: userID, Title: "title " + propertyID, PostTypeID: postTypeID,
	}, f.now)
	require.NoError(t, err)
}

func (f *fixture) liveCount(t *testing.T, userID string) int {
	t.Helper()
	sub, err := f.store.GetLatestSubscription(context.Background(), userID)
	if err != nil {
		return 0
	}
	if sub.Status.IsLive() {
		return 1
	}
	return 0
}

func TestPurchaseNew(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	res, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
	assert.Nil(t, res.History)
	sub := res.Subscription
	assert.Equal(t, types.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, f.now.AddDate(0, 1, 0), sub.ExpiryDate)
	assert.Equal(t, 2, sub.PushTotal)

	_, err = f.svc.Purchase(ctx, "u1", "pro", types.PurchaseModeNew)
	assert.ErrorIs(t, err, apperr.ErrSubscriptionExists)

	_, err = f.svc.Purchase(ctx, "u1", "ghost", types.PurchaseModeNew)
	assert.True(t, apperr.IsValidation(err))
	_, err = f.svc.Purchase(ctx, "u1", "basic", "gift")
	assert.True(t, apperr.IsValidation(err))
}

func TestPurchaseNew_ReplacesDueSubscriptionInOneCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	first, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)

	f.now = first.Subscription.ExpiryDate.Add(time.Hour)
	res, err := f.svc.Purchase(ctx, "u1", "pro", types.PurchaseModeNew)
	require.NoError(t, err)
	require.NotNil(t, res.History)
	assert.Equal(t, types.SubscriptionStatusExpired, res.History.Status)
	assert.Equal(t, first.Subscription.ID, res.History.SubscriptionID)
	assert.Equal(t, "pro", res.Subscription.PlanID)
}

func TestRenew_ResetsCounters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	first, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)

	f.attach(t, "u1", "p1", "standard")
	f.attach(t, "u1", "p2", "standard")
	f.attach(t, "u1", "p3", "vip")
	_, err = f.store.IncrementPushUsage(ctx, "u1", f.now)
	require.NoError(t, err)

	f.now = f.now.Add(10 * 24 * time.Hour)
	res, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeRenew)
	require.NoError(t, err)

	// The next cycle starts now and keeps the days left on the old one.
	assert.Equal(t, first.Subscription.ExpiryDate.AddDate(0, 1, 0), res.Subscription.ExpiryDate)
	assert.Equal(t, f.now, res.Subscription.StartDate)

	view, err := f.svc.GetCurrentSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, res.Subscription.ID, view.Subscription.ID)
	for postType, c := range view.Usage {
		assert.Zero(t, c.Used, postType)
	}
	assert.Equal(t, types.PushUsage{Used: 0, Total: 2}, view.PushUsage)

	h := res.History
	require.NotNil(t, h)
	assert.Equal(t, types.SubscriptionStatusRenewed, h.Status)
	assert.Equal(t, types.UsageMap{"standard": {Used: 2, Limit: 3}, "vip": {Used: 1, Limit: 1}}, h.Usage.Data())
	assert.Equal(t, types.PushUsage{Used: 1, Total: 2}, h.PushUsage.Data())
	assert.Empty(t, h.Transfers())

	_, err = f.svc.Purchase(ctx, "u1", "pro", types.PurchaseModeRenew)
	assert.True(t, apperr.IsValidation(err))
}

func TestRenew_AfterExpiryStartsFromNow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
	f.now = f.now.AddDate(0, 2, 0)

	_, err = f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeRenew)
	assert.ErrorIs(t, err, apperr.ErrNoSubscription)

	history, err := f.store.ListHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.SubscriptionStatusExpired, history[0].Status)
}

func TestUpgrade_TransfersEveryMissingPostType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	first, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
	f.attach(t, "u1", "s1", "standard")
	f.attach(t, "u1", "s2", "standard")
	f.attach(t, "u1", "v1", "vip")

	f.now = f.now.Add(time.Hour)
	res, err := f.svc.Purchase(ctx, "u1", "pro", types.PurchaseModeUpgrade)
	require.NoError(t, err)

	h := res.History
	require.NotNil(t, h)
	assert.Equal(t, types.SubscriptionStatusUpgraded, h.Status)
	transfers := h.Transfers()
	require.Len(t, transfers, 2)
	seen := map[string]int{}
	for _, tr := range transfers {
		seen[tr.PropertyID]++
		assert.Equal(t, "standard", tr.FromPostType)
		assert.Equal(t, "featured", tr.ToPostType)
		assert.NotEqual(t, tr.FromPostType, tr.ToPostType)
		assert.Equal(t, "Basic", tr.TransferredFromPackage)
		assert.Equal(t, "Pro", tr.TransferredToPackage)
		assert.Equal(t, "title "+tr.PropertyID, tr.PropertyTitle)
	}
	assert.Equal(t, map[string]int{"s1": 1, "s2": 1}, seen)

	moved, err := f.store.GetListing(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "featured", moved.PostTypeID)
	assert.Equal(t, res.Subscription.ID, moved.Package.SubscriptionID)
	assert.Equal(t, "Pro", moved.Package.DisplayName)

	kept, err := f.store.GetListing(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, first.Subscription.ID, kept.Package.SubscriptionID)

	// Exactly one live subscription: the new one, with zeroed counters.
	assert.Equal(t, 1, f.liveCount(t, "u1"))
	view, err := f.svc.GetCurrentSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "pro", view.Subscription.PlanID)
	assert.Equal(t, types.UsageMap{"vip": {Limit: 5}, "featured": {Limit: 10}}, view.Usage)

	// The upgraded subscription can never come back.
	assert.False(t, types.CanTransition(types.SubscriptionStatusUpgraded, types.SubscriptionStatusActive))
	_, err = f.store.CommitTransition(ctx, &store.Transition{
		UserID: "u1", At: f.now,
		Retire: &store.Retirement{SubscriptionID: first.Subscription.ID, Version: first.Subscription.Version + 1, Status: types.SubscriptionStatusExpired, HistoryID: "again"},
	})
	assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)

	_, err = f.svc.Purchase(ctx, "u1", "pro", types.PurchaseModeUpgrade)
	assert.True(t, apperr.IsValidation(err))
}

func TestUpgrade_RequiresLiveSubscription(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.svc.Purchase(ctx, "u1", "pro", types.PurchaseModeUpgrade)
	assert.ErrorIs(t, err, apperr.ErrNoSubscription)
}

// racingStore attaches a listing right before the first commit, the way a
// concurrent request would.
type racingStore struct {
	*memory.Store
	once sync.Once
	race func()
}

func (r *racingStore) CommitTransition(ctx context.Context, t *store.Transition) (*models.PackageHistory, error) {
	r.once.Do(r.race)
	return r.Store.CommitTransition(ctx, t)
}

func TestUpgrade_RetriesWhenListingAttachedConcurrently(t *testing.T) {
	ctx := context.Background()
	racing := &racingStore{Store: memory.New()}
	f := newFixture(t, racing)

	racing.once.Do(func() {}) // no race for the initial purchase
	_, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
	f.attach(t, "u1", "s1", "standard")

	racing.once = sync.Once{}
	racing.race = func() { f.attach(t, "u1", "late", "standard") }

	res, err := f.svc.Purchase(ctx, "u1", "pro", types.PurchaseModeUpgrade)
	require.NoError(t, err)
	ids := make([]string, 0)
	for _, tr := range res.History.Transfers() {
		ids = append(ids, tr.PropertyID)
	}
	assert.ElementsMatch(t, []string{"late", "s1"}, ids)

	history, err := f.store.ListHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
	f.attach(t, "u1", "p1", "standard")

	h, err := f.svc.Cancel(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, types.SubscriptionStatusCancelled, h.Status)
	assert.Equal(t, 1, h.Usage.Data()["standard"].Used)

	l, err := f.store.GetListing(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, l.Package.IsActive)
	assert.False(t, l.Editable(f.now))

	_, err = f.svc.Cancel(ctx, "u1")
	assert.ErrorIs(t, err, apperr.ErrNoSubscription)
	assert.Equal(t, 0, f.liveCount(t, "u1"))

	// A new purchase after cancellation is allowed.
	_, err = f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
}

func TestStartTrial_OncePerAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	res, err := f.svc.StartTrial(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, types.SubscriptionStatusTrial, res.Subscription.Status)
	assert.True(t, res.Subscription.IsTrial)
	assert.Equal(t, f.now.AddDate(0, 0, 7), res.Subscription.ExpiryDate)

	_, err = f.svc.Cancel(ctx, "u1")
	require.NoError(t, err)
	_, err = f.svc.StartTrial(ctx, "u1")
	assert.ErrorIs(t, err, apperr.ErrTrialUsed)

	// Upgrading out of a trial is a regular upgrade.
	f2 := newFixture(t, nil)
	_, err = f2.svc.StartTrial(ctx, "u2")
	require.NoError(t, err)
	up, err := f2.svc.Purchase(ctx, "u2", "basic", types.PurchaseModeUpgrade)
	require.NoError(t, err)
	assert.Equal(t, types.SubscriptionStatusUpgraded, up.History.Status)
}

func TestExpiry_SweepIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	res, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
	_, err = f.svc.Purchase(ctx, "u2", "pro", types.PurchaseModeNew)
	require.NoError(t, err)
	f.attach(t, "u1", "p1", "vip")

	f.now = res.Subscription.ExpiryDate.Add(time.Second)
	report, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, &SweepReport{Scanned: 2, Expired: 2}, report)

	report, err = f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, &SweepReport{}, report)

	entry, err := f.svc.ExpireIfDue(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, entry)

	history, err := f.store.ListHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.SubscriptionStatusExpired, history[0].Status)

	l, err := f.store.GetListing(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, l.Package.IsActive)
}

func TestExpireIfDue_ConcurrentCallersArchiveOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	res, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
	f.now = res.Subscription.ExpiryDate.Add(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ExpireIfDue(ctx, "u1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := f.store.ListHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestGetCurrentSubscription_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.svc.GetCurrentSubscription(ctx, "u1")
	assert.ErrorIs(t, err, apperr.ErrNoSubscription)

	res, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
	view, err := f.svc.GetCurrentSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, view.Live)

	f.now = res.Subscription.ExpiryDate.Add(time.Second)
	view, err = f.svc.GetCurrentSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, view.Live)
	assert.Equal(t, types.SubscriptionStatusExpired, view.Subscription.Status)
	require.NotNil(t, view.Subscription.RetiredAt)
}

func TestUpgrade_MovesTransfersInRankIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
	f.attach(t, "u1", "s1", "standard")
	f.attach(t, "u1", "v1", "vip")

	_, err = f.svc.Purchase(ctx, "u1", "pro", types.PurchaseModeUpgrade)
	require.NoError(t, err)

	// standard (3) is not in pro and lands on featured (2); vip stays put.
	assert.Equal(t, []reassignment{{PropertyID: "s1", FromPriority: 3, ToPriority: 2}}, f.index.reassigned)
	assert.Empty(t, f.index.removed)
}

func TestUpgrade_KeepsInactiveListingInactive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
	f.attach(t, "u1", "s1", "standard")
	_, err = f.svc.Cancel(ctx, "u1")
	require.NoError(t, err)
	f.index.removed = nil

	_, err = f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
	res, err := f.svc.Purchase(ctx, "u1", "pro", types.PurchaseModeUpgrade)
	require.NoError(t, err)
	require.Len(t, res.History.Transfers(), 1)

	moved, err := f.store.GetListing(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "featured", moved.PostTypeID)
	assert.Equal(t, res.Subscription.ID, moved.Package.SubscriptionID)
	assert.False(t, moved.Package.IsActive)
	assert.False(t, moved.Editable(f.now))

	assert.Empty(t, f.index.reassigned)
	assert.Equal(t, map[string]int{"s1": 3}, f.index.removed)
}

func TestCancel_DropsBoundListingsFromRankIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
	f.attach(t, "u1", "s1", "standard")
	f.attach(t, "u1", "v1", "vip")
	_, err = f.svc.Purchase(ctx, "u2", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
	f.attach(t, "u2", "other", "vip")

	_, err = f.svc.Cancel(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"s1": 3, "v1": 1}, f.index.removed)
}

func TestSweep_DropsExpiredListingsFromRankIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	res, err := f.svc.Purchase(ctx, "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)
	f.attach(t, "u1", "v1", "vip")
	f.index.err = fmt.Errorf("redis down")

	f.now = res.Subscription.ExpiryDate.Add(time.Second)
	report, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, map[string]int{"v1": 1}, f.index.removed)
}

func TestApplyPurchaseEvent_ReplayIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.svc.ApplyPurchaseEvent(ctx, "evt-1", "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	renewed, err := f.svc.ApplyPurchaseEvent(ctx, "evt-2", "u1", "basic", types.PurchaseModeRenew)
	require.NoError(t, err)

	_, err = f.svc.ApplyPurchaseEvent(ctx, "evt-2", "u1", "basic", types.PurchaseModeRenew)
	assert.ErrorIs(t, err, apperr.ErrEventDuplicate)
	assert.True(t, apperr.IsConflict(err))

	sub, err := f.store.GetLatestSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, renewed.Subscription.ID, sub.ID)
	assert.Equal(t, renewed.Subscription.ExpiryDate, sub.ExpiryDate)
	history, err := f.store.ListHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.SubscriptionStatusRenewed, history[0].Status)

	applied, err := f.store.EventApplied(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, applied)

	_, err = f.svc.ApplyPurchaseEvent(ctx, "", "u1", "basic", types.PurchaseModeRenew)
	assert.True(t, apperr.IsValidation(err))
}

func TestCommitTransition_RejectsClaimedEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.svc.ApplyPurchaseEvent(ctx, "evt-1", "u1", "basic", types.PurchaseModeNew)
	require.NoError(t, err)

	// A commit that slipped past the pre-check still loses on the claim.
	sub, err := f.store.GetLatestSubscription(ctx, "u1")
	require.NoError(t, err)
	_, err = f.store.CommitTransition(ctx, &store.Transition{
		UserID: "u1", At: f.now, EventID: "evt-1",
		Retire: &store.Retirement{SubscriptionID: sub.ID, Version: sub.Version, Status: types.SubscriptionStatusCancelled, HistoryID: "h-dup"},
	})
	assert.ErrorIs(t, err, apperr.ErrEventDuplicate)

	again, err := f.store.GetLatestSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, types.SubscriptionStatusActive, again.Status)
}
