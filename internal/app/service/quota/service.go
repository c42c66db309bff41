package quota

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fatflowers/entitlement/internal/app/service/catalog"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/store"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/fatflowers/entitlement/pkg/metrics"
	"github.com/fatflowers/entitlement/pkg/types"
	"go.uber.org/zap"
)

// Decision is the advisory answer of CheckCanPost.
type Decision struct {
	Allowed   bool          `json:"allowed"`
	Remaining int           `json:"remaining"`
	Used      int           `json:"used"`
	Limit     int           `json:"limit"`
	Reason    apperr.Reason `json:"reason,omitempty"`
}

// Consumption is the counter state after a consume or release.
type Consumption struct {
	SubscriptionID string `json:"subscription_id"`
	PostTypeID     string `json:"post_type_id"`
	UsedAfter      int    `json:"used_after"`
	Limit          int    `json:"limit"`
	Remaining      int    `json:"remaining"`
}

// AvailablePostType is one post type of the user's plan with what is left.
type AvailablePostType struct {
	PostTypeID  string `json:"post_type_id"`
	DisplayName string `json:"display_name"`
	Priority    int    `json:"priority"`
	Color       string `json:"color"`
	StarRating  int    `json:"star_rating"`
	Used        int    `json:"used"`
	Limit       int    `json:"limit"`
	Remaining   int    `json:"remaining"`
}

type Service struct {
	store   store.Store
	catalog *catalog.Service
	metrics *metrics.Recorder
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewService(st store.Store, cat *catalog.Service, rec *metrics.Recorder, log *zap.SugaredLogger) *Service {
	return &Service{store: st, catalog: cat, metrics: rec, log: log, now: time.Now}
}

// CheckCanPost reports whether userID could publish under postTypeID now.
// The answer may be stale by the time the caller acts on it.
func (s *Service) CheckCanPost(ctx context.Context, userID, postTypeID string) (*Decision, error) {
	if _, err := s.catalog.PostType(postTypeID); err != nil {
		return nil, err
	}
	sub, err := s.store.GetLatestSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := &Decision{}
	if !sub.Live(s.now()) {
		d.Reason = apperr.ReasonSubscriptionInactive
	} else {
		rows, err := s.store.ListUsage(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		usage := models.UsageMap(rows)
		counter, ok := usage[postTypeID]
		switch {
		case !ok:
			d.Reason = apperr.ReasonPostTypeNotInPlan
		case counter.Used >= counter.Limit:
			d.Reason = apperr.ReasonQuotaExhausted
			d.Used, d.Limit = counter.Used, counter.Limit
		default:
			d.Allowed = true
			d.Used, d.Limit = counter.Used, counter.Limit
			d.Remaining = counter.Remaining()
		}
	}
	s.metrics.Decision("check", string(d.Reason))
	return d, nil
}

// ConsumePost takes one unit of postTypeID. It succeeds only if the counter
// is below its limit at the moment of the write; a lost race is
// apperr.ErrConcurrencyConflict.
func (s *Service) ConsumePost(ctx context.Context, userID, postTypeID string) (*Consumption, error) {
	if _, err := s.catalog.PostType(postTypeID); err != nil {
		return nil, err
	}
	row, err := s.store.IncrementPostUsage(ctx, userID, postTypeID, s.now())
	s.metrics.Decision("consume", string(apperr.ReasonOf(err)))
	if err != nil {
		logctx.FromCtx(ctx, s.log).Infow("consume post denied", "user_id", userID, "post_type_id", postTypeID, "reason", apperr.ReasonOf(err))
		return nil, err
	}
	return toConsumption(row.SubscriptionID, postTypeID, row.Counter()), nil
}

// ReleasePost gives back one unit consumed by a publication that did not
// complete.
func (s *Service) ReleasePost(ctx context.Context, userID, postTypeID string) (*Consumption, error) {
	row, err := s.store.DecrementPostUsage(ctx, userID, postTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to release %s quota: %w", postTypeID, err)
	}
	return toConsumption(row.SubscriptionID, postTypeID, row.Counter()), nil
}

// GetAvailablePostTypes lists the post types of the user's current plan in
// priority order. Remaining is zero for every entry of a subscription that
// is no longer live.
func (s *Service) GetAvailablePostTypes(ctx context.Context, userID string) ([]AvailablePostType, error) {
	sub, err := s.store.GetLatestSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNoSubscription) {
			return []AvailablePostType{}, nil
		}
		return nil, err
	}
	rows, err := s.store.ListUsage(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	usage := models.UsageMap(rows)
	live := sub.Live(s.now())

	snap := sub.Snapshot()
	if snap == nil {
		return []AvailablePostType{}, nil
	}
	out := make([]AvailablePostType, 0, len(snap.Limits))
	for _, l := range snap.Limits {
		counter, ok := usage[l.PostTypeID]
		if !ok {
			counter = types.Counter{Limit: l.Limit}
		}
		item := AvailablePostType{
			PostTypeID:  l.PostTypeID,
			DisplayName: l.DisplayName,
			Priority:    l.Priority,
			Color:       l.Color,
			StarRating:  l.StarRating,
			Used:        counter.Used,
			Limit:       counter.Limit,
		}
		if live {
			item.Remaining = counter.Remaining()
		}
		out = append(out, item)
	}
	sortAvailable(out)
	return out, nil
}

func toConsumption(subID, postTypeID string, c types.Counter) *Consumption {
	return &Consumption{
		SubscriptionID: subID,
		PostTypeID:     postTypeID,
		UsedAfter:      c.Used,
		Limit:          c.Limit,
		Remaining:      c.Remaining(),
	}
}

func sortAvailable(items []AvailablePostType) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return items[i].PostTypeID < items[j].PostTypeID
	})
}
