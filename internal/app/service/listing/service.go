package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/entitlement/internal/app/service/catalog"
	"github.com/fatflowers/entitlement/internal/app/service/quota"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/platform/cache"
	"github.com/fatflowers/entitlement/internal/store"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Unranker drops a listing from the rank index of its tier.
type Unranker interface {
	Remove(ctx context.Context, listing *models.Listing) error
}

type AttachResult struct {
	Listing   *models.Listing `json:"listing"`
	UsedAfter int             `json:"used_after"`
	Limit     int             `json:"limit"`
	Remaining int             `json:"remaining"`
}

// View is a listing together with whether its package still allows edits.
type View struct {
	*models.Listing
	Editable bool `json:"editable"`
}

type Service struct {
	store   store.Store
	catalog *catalog.Service
	quota   *quota.Service
	index   Unranker
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewService(st store.Store, cat *catalog.Service, q *quota.Service, index Unranker, log *zap.SugaredLogger) *Service {
	return &Service{store: st, catalog: cat, quota: q, index: index, log: log, now: time.Now}
}

// Attach publishes propertyID under postTypeID: one unit of quota is
// consumed and the live package is frozen onto the listing.
func (s *Service) Attach(ctx context.Context, userID, propertyID, title, postTypeID string) (*AttachResult, error) {
	if propertyID == "" {
		return nil, apperr.Validation("property_id", "required")
	}
	if _, err := s.catalog.PostType(postTypeID); err != nil {
		return nil, err
	}
	log := logctx.FromCtx(ctx, s.log).With("user_id", userID, "property_id", propertyID, "post_type_id", postTypeID)

	var (
		saved *models.Listing
		usage *models.SubscriptionUsage
		err   error
	)
	for attempt := 0; attempt < 2; attempt++ {
		if err = s.precheck(ctx, userID, postTypeID); err != nil {
			return nil, err
		}
		saved, usage, err = s.store.AttachListing(ctx, &models.Listing{
			ID: propertyID, UserID: userID, Title: title, PostTypeID: postTypeID,
		}, s.now())
		if !errors.Is(err, apperr.ErrConcurrencyConflict) {
			break
		}
		log.Infow("attach lost quota race", "attempt", attempt+1)
	}
	if errors.Is(err, apperr.ErrConcurrencyConflict) {
		return nil, fmt.Errorf("%w: lost the race twice", apperr.ErrQuotaExhausted)
	}
	if err != nil {
		return nil, err
	}

	c := usage.Counter()
	log.Infow("listing attached", "subscription_id", saved.Package.SubscriptionID, "used", c.Used, "limit", c.Limit)
	return &AttachResult{Listing: saved, UsedAfter: c.Used, Limit: c.Limit, Remaining: c.Remaining()}, nil
}

// precheck turns an advisory denial into its error.
func (s *Service) precheck(ctx context.Context, userID, postTypeID string) error {
	d, err := s.quota.CheckCanPost(ctx, userID, postTypeID)
	if err != nil {
		return err
	}
	switch d.Reason {
	case "":
		return nil
	case apperr.ReasonSubscriptionInactive:
		return apperr.ErrSubscriptionInactive
	case apperr.ReasonPostTypeNotInPlan:
		return apperr.ErrPostTypeNotInPlan
	default:
		return apperr.ErrQuotaExhausted
	}
}

// Detach removes the package association of one listing. The account
// subscription and its counters are left as they are.
func (s *Service) Detach(ctx context.Context, userID, propertyID string) (*models.Listing, error) {
	before, err := s.store.GetListing(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if before.UserID != userID {
		return nil, apperr.ErrListingNotFound
	}
	detached, err := s.store.DetachListing(ctx, userID, propertyID)
	if err != nil {
		return nil, err
	}
	log := logctx.FromCtx(ctx, s.log).With("user_id", userID, "property_id", propertyID)
	if before.Attached() {
		if err := s.index.Remove(ctx, before); err != nil {
			log.Warnw("failed to drop listing from rank index", "err", err)
		}
	}
	log.Infow("listing package detached", "post_type_id", before.PostTypeID)
	return detached, nil
}

func (s *Service) Get(ctx context.Context, userID, propertyID string) (*View, error) {
	l, err := s.store.GetListing(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if l.UserID != userID {
		return nil, apperr.ErrListingNotFound
	}
	return &View{Listing: l, Editable: l.Editable(s.now())}, nil
}

func newUnranker(idx *cache.ListingIndex) Unranker { return idx }

var Module = fx.Options(
	fx.Provide(newUnranker, NewService),
)
