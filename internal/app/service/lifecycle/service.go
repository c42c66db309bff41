package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/entitlement/internal/app/service/catalog"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/store"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/config"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/fatflowers/entitlement/pkg/metrics"
	"github.com/fatflowers/entitlement/pkg/tool"
	"github.com/fatflowers/entitlement/pkg/types"
	"go.uber.org/zap"
)

// maxAttempts bounds how often a transition is rebuilt after losing a race.
const maxAttempts = 2

// SubscriptionView is what account and listing screens show about the
// user's current subscription.
type SubscriptionView struct {
	Subscription *models.UserSubscription `json:"subscription"`
	Live         bool                     `json:"live"`
	Usage        types.UsageMap           `json:"usage"`
	PushUsage    types.PushUsage          `json:"push_usage"`
}

type TransitionResult struct {
	Subscription *models.UserSubscription `json:"subscription"`
	// History is the entry archived for the retired subscription, if any.
	History *models.PackageHistory `json:"history,omitempty"`
}

type SweepReport struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

// RankIndex keeps the promotion order of listings in step with the tier of
// their package.
type RankIndex interface {
	Remove(ctx context.Context, listing *models.Listing) error
	Reassign(ctx context.Context, listing *models.Listing, fromPriority int) error
}

type Service struct {
	cfg     *config.Config
	store   store.Store
	catalog *catalog.Service
	index   RankIndex
	metrics *metrics.Recorder
	log     *zap.SugaredLogger
	now     func() time.Time
	newID   func() string
}

func NewService(cfg *config.Config, st store.Store, cat *catalog.Service, index RankIndex, rec *metrics.Recorder, log *zap.SugaredLogger) *Service {
	return &Service{
		cfg:     cfg,
		store:   st,
		catalog: cat,
		index:   index,
		metrics: rec,
		log:     log,
		now:     func() time.Time { return tool.TruncateMillis(time.Now()) },
		newID:   tool.GenerateUUIDV7,
	}
}

// latest returns the user's current subscription or nil if there is none.
func (s *Service) latest(ctx context.Context, userID string) (*models.UserSubscription, error) {
	sub, err := s.store.GetLatestSubscription(ctx, userID)
	if errors.Is(err, apperr.ErrNoSubscription) {
		return nil, nil
	}
	return sub, err
}

// retry rebuilds and commits a transition until it stops losing races.
func (s *Service) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); !errors.Is(err, apperr.ErrConcurrencyConflict) {
			return err
		}
		logctx.FromCtx(ctx, s.log).Infow("transition conflict", "op", op, "attempt", attempt)
	}
	return err
}

func (s *Service) commit(ctx context.Context, t *store.Transition) (*models.PackageHistory, error) {
	start := time.Now()
	entry, err := s.store.CommitTransition(ctx, t)
	if err != nil {
		return nil, err
	}
	op := "create"
	if t.Retire != nil {
		op = string(t.Retire.Status)
		s.metrics.Transition(op)
	}
	s.metrics.ObserveProcess("transition", op, start)

	fields := []any{"user_id", t.UserID}
	if t.Retire != nil {
		fields = append(fields, "retired", t.Retire.SubscriptionID, "status", t.Retire.Status)
	}
	if t.Next != nil {
		fields = append(fields, "next", t.Next.ID, "plan_id", t.Next.PlanID)
	}
	if len(t.Transfers) > 0 {
		fields = append(fields, "transfers", len(t.Transfers))
	}
	if t.EventID != "" {
		fields = append(fields, "event_id", t.EventID)
	}
	logctx.FromCtx(ctx, s.log).Infow("transition committed", fields...)
	s.syncRankIndex(ctx, t)
	return entry, nil
}

// syncRankIndex applies a committed transition to the rank index: moved
// listings follow their new tier and listings whose package was taken down
// leave the index. Failures are logged; the next promotion re-ranks.
func (s *Service) syncRankIndex(ctx context.Context, t *store.Transition) {
	if s.index == nil {
		return
	}
	log := logctx.FromCtx(ctx, s.log)
	for _, tr := range t.Transfers {
		l := &models.Listing{ID: tr.PropertyID, UserID: t.UserID, PostTypeID: tr.ToPostType, Package: tr.Package}
		var err error
		if tr.Package.IsActive {
			err = s.index.Reassign(ctx, l, tr.FromPriority)
		} else {
			l.Package.Priority = tr.FromPriority
			err = s.index.Remove(ctx, l)
		}
		if err != nil {
			log.Warnw("failed to move listing in rank index", "property_id", tr.PropertyID, "err", err)
		}
	}
	if t.Retire == nil || !t.Retire.DeactivateListings {
		return
	}
	listings, err := s.store.ListListings(ctx, t.UserID)
	if err != nil {
		log.Warnw("failed to list listings for rank index cleanup", "err", err)
		return
	}
	for _, l := range listings {
		if l.Package.SubscriptionID != t.Retire.SubscriptionID {
			continue
		}
		if err := s.index.Remove(ctx, l); err != nil {
			log.Warnw("failed to drop listing from rank index", "property_id", l.ID, "err", err)
		}
	}
}

// Purchase applies a validated plan purchase.
//
//   - new: starts a subscription; fails with ErrSubscriptionExists while a
//     live one is still within its term.
//   - upgrade: moves a live subscription to a different plan.
//   - renew: starts the next cycle of the current plan.
func (s *Service) Purchase(ctx context.Context, userID, planID string, mode types.PurchaseMode) (*TransitionResult, error) {
	return s.purchase(ctx, "", userID, planID, mode)
}

// ApplyPurchaseEvent is Purchase for a billing event. The event id is
// claimed in the same commit, so a replayed event fails with
// apperr.ErrEventDuplicate and changes nothing.
func (s *Service) ApplyPurchaseEvent(ctx context.Context, eventID, userID, planID string, mode types.PurchaseMode) (*TransitionResult, error) {
	if eventID == "" {
		return nil, apperr.Validation("event_id", "required")
	}
	applied, err := s.store.EventApplied(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, fmt.Errorf("event %s: %w", eventID, apperr.ErrEventDuplicate)
	}
	return s.purchase(ctx, eventID, userID, planID, mode)
}

func (s *Service) purchase(ctx context.Context, eventID, userID, planID string, mode types.PurchaseMode) (*TransitionResult, error) {
	if userID == "" {
		return nil, apperr.Validation("user_id", "required")
	}
	if !mode.Valid() {
		return nil, apperr.Validation("mode", "unknown purchase mode %q", mode)
	}
	snap, err := s.catalog.Snapshot(planID)
	if err != nil {
		return nil, err
	}
	var target types.SnapshotLimit
	if mode == types.PurchaseModeUpgrade {
		if target, err = s.catalog.LowestPriorityPostType(snap); err != nil {
			return nil, err
		}
	}

	var res *TransitionResult
	err = s.retry(ctx, "purchase_"+string(mode), func() error {
		now := s.now()
		cur, err := s.latest(ctx, userID)
		if err != nil {
			return err
		}

		var t *store.Transition
		switch mode {
		case types.PurchaseModeNew:
			t, err = planStart(userID, cur, snap, types.SubscriptionStatusActive, now, s.newID)
		default:
			if cur, err = s.requireLive(ctx, userID, cur, now); err != nil {
				return err
			}
			if mode == types.PurchaseModeRenew {
				t, err = planRenew(cur, snap, now, s.newID)
				break
			}
			var listings []*models.Listing
			if listings, err = s.store.ListListings(ctx, userID); err != nil {
				return err
			}
			t, err = planUpgrade(cur, snap, target, listings, now, s.newID)
		}
		if err != nil {
			return err
		}
		t.EventID = eventID
		entry, err := s.commit(ctx, t)
		if err != nil {
			return err
		}
		res = &TransitionResult{Subscription: t.Next, History: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// requireLive returns cur if it is live at now. A due subscription is
// expired on the way and reported as missing.
func (s *Service) requireLive(ctx context.Context, userID string, cur *models.UserSubscription, now time.Time) (*models.UserSubscription, error) {
	if cur == nil || !cur.Status.IsLive() {
		return nil, apperr.ErrNoSubscription
	}
	if cur.Due(now) {
		if _, _, err := s.expire(ctx, cur, now); err != nil {
			return nil, err
		}
		return nil, apperr.ErrNoSubscription
	}
	return cur, nil
}

// StartTrial gives the user the configured trial plan. Each account gets
// one trial.
func (s *Service) StartTrial(ctx context.Context, userID string) (*TransitionResult, error) {
	if userID == "" {
		return nil, apperr.Validation("user_id", "required")
	}
	plan, err := s.catalog.TrialPlan()
	if err != nil {
		return nil, err
	}
	snap, err := s.catalog.Snapshot(plan.ID)
	if err != nil {
		return nil, err
	}

	var res *TransitionResult
	err = s.retry(ctx, "trial", func() error {
		used, err := s.store.HasTrial(ctx, userID)
		if err != nil {
			return err
		}
		if used {
			return apperr.ErrTrialUsed
		}
		now := s.now()
		cur, err := s.latest(ctx, userID)
		if err != nil {
			return err
		}
		t, err := planStart(userID, cur, snap, types.SubscriptionStatusTrial, now, s.newID)
		if err != nil {
			return err
		}
		entry, err := s.commit(ctx, t)
		if err != nil {
			return err
		}
		res = &TransitionResult{Subscription: t.Next, History: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Cancel retires the user's live subscription immediately. Remaining quota
// is forfeited and listings published under it lose their package.
func (s *Service) Cancel(ctx context.Context, userID string) (*models.PackageHistory, error) {
	var entry *models.PackageHistory
	err := s.retry(ctx, "cancel", func() error {
		now := s.now()
		cur, err := s.latest(ctx, userID)
		if err != nil {
			return err
		}
		if cur, err = s.requireLive(ctx, userID, cur, now); err != nil {
			return err
		}
		t, err := planCancel(cur, now, s.newID)
		if err != nil {
			return err
		}
		entry, err = s.commit(ctx, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// expire commits the expiry of sub. expired is false when another caller
// already retired it, which is not an error.
func (s *Service) expire(ctx context.Context, sub *models.UserSubscription, now time.Time) (*models.PackageHistory, bool, error) {
	t, err := planExpire(sub, now, s.newID)
	if err != nil {
		return nil, false, err
	}
	entry, err := s.commit(ctx, t)
	if errors.Is(err, apperr.ErrConcurrencyConflict) {
		cur, rerr := s.latest(ctx, sub.UserID)
		if rerr != nil {
			return nil, false, rerr
		}
		if cur == nil || cur.ID != sub.ID || !cur.Status.IsLive() {
			return nil, false, nil
		}
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// ExpireIfDue expires the user's subscription if its term has passed.
// Calling it again after the expiry is a no-op.
func (s *Service) ExpireIfDue(ctx context.Context, userID string) (*models.PackageHistory, error) {
	var entry *models.PackageHistory
	err := s.retry(ctx, "expire", func() error {
		now := s.now()
		cur, err := s.latest(ctx, userID)
		if err != nil || !cur.Due(now) {
			return err
		}
		entry, _, err = s.expire(ctx, cur, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetCurrentSubscription returns the live subscription, or the most recent
// retired one. Expiry is applied lazily before reading.
func (s *Service) GetCurrentSubscription(ctx context.Context, userID string) (*SubscriptionView, error) {
	if _, err := s.ExpireIfDue(ctx, userID); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("lazy expiry failed", "user_id", userID, "err", err)
	}
	sub, err := s.store.GetLatestSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListUsage(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	return &SubscriptionView{
		Subscription: sub,
		Live:         sub.Live(s.now()),
		Usage:        models.UsageMap(rows),
		PushUsage:    sub.PushUsage(),
	}, nil
}

// Sweep expires one batch of due subscriptions. Failures are logged and
// left for the next pass.
func (s *Service) Sweep(ctx context.Context) (*SweepReport, error) {
	start := time.Now()
	defer s.metrics.ObserveSweep(start)

	now := s.now()
	due, err := s.store.ListDueSubscriptions(ctx, now, s.cfg.Lifecycle.SweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list due subscriptions: %w", err)
	}
	report := &SweepReport{Scanned: len(due)}
	log := logctx.FromCtx(ctx, s.log)
	for _, sub := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		_, expired, err := s.expire(ctx, sub, now)
		switch {
		case err != nil:
			report.Failed++
			log.Warnw("sweep: expiry failed", "user_id", sub.UserID, "subscription_id", sub.ID, "err", err)
		case expired:
			report.Expired++
		}
	}
	if report.Scanned > 0 {
		log.Infow("sweep finished", "scanned", report.Scanned, "expired", report.Expired, "failed", report.Failed)
	}
	return report, nil
}
