package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/platform/cache"
	"github.com/fatflowers/entitlement/internal/store"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/fatflowers/entitlement/pkg/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Ranker moves a listing to the top of its priority tier.
type Ranker interface {
	MoveToTop(ctx context.Context, listing *models.Listing, at time.Time) error
}

type Result struct {
	PropertyID    string    `json:"property_id"`
	PushUsed      int       `json:"push_used"`
	PushTotal     int       `json:"push_total"`
	PushRemaining int       `json:"push_remaining"`
	PromotedAt    time.Time `json:"promoted_at"`
}

type Service struct {
	store   store.Store
	ranker  Ranker
	metrics *metrics.Recorder
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewService(st store.Store, ranker Ranker, rec *metrics.Recorder, log *zap.SugaredLogger) *Service {
	return &Service{store: st, ranker: ranker, metrics: rec, log: log, now: time.Now}
}

// PromoteToTop spends one push of the user's subscription on propertyID.
// The push counter and the re-rank succeed together: a failed re-rank
// gives the push back.
func (s *Service) PromoteToTop(ctx context.Context, userID, propertyID string) (res *Result, err error) {
	defer func() { s.metrics.Decision("promote", string(apperr.ReasonOf(err))) }()
	log := logctx.FromCtx(ctx, s.log).With("user_id", userID, "property_id", propertyID)
	now := s.now()

	sub, err := s.store.GetLatestSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !sub.Live(now) {
		return nil, apperr.ErrSubscriptionExpired
	}
	if sub.PushUsed >= sub.PushTotal {
		return nil, apperr.ErrPushQuotaExhausted
	}
	listing, err := s.store.GetListing(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if listing.UserID != userID {
		return nil, apperr.ErrListingNotFound
	}
	if !listing.Editable(now) {
		return nil, apperr.ErrListingPackageInactive
	}

	updated, err := s.store.IncrementPushUsage(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if err := s.ranker.MoveToTop(ctx, listing, now); err != nil {
		if rbErr := s.store.DecrementPushUsage(ctx, updated.ID); rbErr != nil {
			log.Errorw("failed to give back push after re-rank failure", "subscription_id", updated.ID, "err", rbErr)
		}
		log.Warnw("promotion rolled back", "err", err)
		return nil, fmt.Errorf("failed to promote listing %s: %w", propertyID, err)
	}
	if err := s.store.MarkPromoted(ctx, propertyID, now); err != nil {
		log.Warnw("failed to record promotion time", "err", err)
	}

	usage := updated.PushUsage()
	log.Infow("listing promoted", "push_used", usage.Used, "push_total", usage.Total)
	return &Result{
		PropertyID:    propertyID,
		PushUsed:      usage.Used,
		PushTotal:     usage.Total,
		PushRemaining: usage.Remaining(),
		PromotedAt:    now,
	}, nil
}

func newRanker(idx *cache.ListingIndex) Ranker { return idx }

var Module = fx.Options(
	fx.Provide(newRanker, NewService),
)
