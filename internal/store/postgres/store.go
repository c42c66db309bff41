// Package postgres is the GORM backed Store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/store"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/types"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB, log *zap.SugaredLogger) *Store {
	return &Store{db: db, log: log}
}

// Module provides the postgres Store as store.Store.
var Module = fx.Options(
	fx.Provide(fx.Annotate(New, fx.As(new(store.Store)))),
)

// liveFirst orders a user's subscriptions like store.LatestFirst.
const liveFirst = "CASE WHEN status IN ('trial','active') THEN 0 ELSE 1 END"

func (s *Store) GetLatestSubscription(ctx context.Context, userID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(liveFirst).Order("start_date desc").Order("id desc").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNoSubscription
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (s *Store) ListUsage(ctx context.Context, subscriptionID string) ([]*models.SubscriptionUsage, error) {
	var rows []*models.SubscriptionUsage
	if err := s.db.WithContext(ctx).Where("subscription_id = ?", subscriptionID).Order("post_type_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	return rows, nil
}

func (s *Store) ListDueSubscriptions(ctx context.Context, now time.Time, limit int) ([]*models.UserSubscription, error) {
	var subs []*models.UserSubscription
	q := s.db.WithContext(ctx).
		Where("status IN ? AND expiry_date < ?", types.LiveStatuses, now).
		Order("expiry_date")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list due subscriptions: %w", err)
	}
	return subs, nil
}

func (s *Store) HasTrial(ctx context.Context, userID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.UserSubscription{}).
		Where("user_id = ? AND is_trial", userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count trials: %w", err)
	}
	return count > 0, nil
}

func (s *Store) EventApplied(ctx context.Context, eventID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.AppliedPurchaseEvent{}).
		Where("event_id = ?", eventID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up event %s: %w", eventID, err)
	}
	return count > 0, nil
}

func (s *Store) liveUsage(ctx context.Context, db *gorm.DB, userID string) ([]*models.SubscriptionUsage, error) {
	var rows []*models.SubscriptionUsage
	if err := db.WithContext(ctx).Where("user_id = ? AND live", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read live usage: %w", err)
	}
	return rows, nil
}

// incrementPost is the guarded write: one row, one statement.
func (s *Store) incrementPost(ctx context.Context, db *gorm.DB, userID, postTypeID string, now time.Time) (*models.SubscriptionUsage, error) {
	var rows []*models.SubscriptionUsage
	res := db.WithContext(ctx).Model(&rows).Clauses(clause.Returning{}).
		Where("user_id = ? AND post_type_id = ? AND live AND expiry_date >= ? AND used < limit_count", userID, postTypeID, now).
		Update("used", gorm.Expr("used + 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to increment usage: %w", res.Error)
	}
	if res.RowsAffected == 0 || len(rows) == 0 {
		live, err := s.liveUsage(ctx, db, userID)
		if err != nil {
			return nil, err
		}
		return nil, store.ClassifyPostFailure(live, postTypeID, now)
	}
	return rows[0], nil
}

func (s *Store) IncrementPostUsage(ctx context.Context, userID, postTypeID string, now time.Time) (*models.SubscriptionUsage, error) {
	return s.incrementPost(ctx, s.db, userID, postTypeID, now)
}

func (s *Store) DecrementPostUsage(ctx context.Context, userID, postTypeID string) (*models.SubscriptionUsage, error) {
	var rows []*models.SubscriptionUsage
	res := s.db.WithContext(ctx).Model(&rows).Clauses(clause.Returning{}).
		Where("user_id = ? AND post_type_id = ? AND live AND used > 0", userID, postTypeID).
		Update("used", gorm.Expr("used - 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to decrement usage: %w", res.Error)
	}
	if res.RowsAffected == 0 || len(rows) == 0 {
		return nil, fmt.Errorf("no consumed %s quota to release: %w", postTypeID, apperr.ErrConcurrencyConflict)
	}
	return rows[0], nil
}

func (s *Store) IncrementPushUsage(ctx context.Context, userID string, now time.Time) (*models.UserSubscription, error) {
	var subs []*models.UserSubscription
	res := s.db.WithContext(ctx).Model(&subs).Clauses(clause.Returning{}).
		Where("user_id = ? AND status IN ? AND expiry_date >= ? AND push_used < push_total", userID, types.LiveStatuses, now).
		Updates(map[string]any{"push_used": gorm.Expr("push_used + 1"), "updated_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to increment push usage: %w", res.Error)
	}
	if res.RowsAffected == 0 || len(subs) == 0 {
		latest, err := s.GetLatestSubscription(ctx, userID)
		if err != nil {
			return nil, err
		}
		return nil, store.ClassifyPushFailure(latest, now)
	}
	return subs[0], nil
}

func (s *Store) DecrementPushUsage(ctx context.Context, subscriptionID string) error {
	err := s.db.WithContext(ctx).Model(&models.UserSubscription{}).
		Where("id = ? AND push_used > 0", subscriptionID).
		Update("push_used", gorm.Expr("push_used - 1")).Error
	if err != nil {
		return fmt.Errorf("failed to decrement push usage: %w", err)
	}
	return nil
}

func (s *Store) GetListing(ctx context.Context, propertyID string) (*models.Listing, error) {
	var l models.Listing
	err := s.db.WithContext(ctx).Where("id = ?", propertyID).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &l, nil
}

func (s *Store) ListListings(ctx context.Context, userID string) ([]*models.Listing, error) {
	var items []*models.Listing
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return items, nil
}

func (s *Store) AttachListing(ctx context.Context, listing *models.Listing, now time.Time) (*models.Listing, *models.SubscriptionUsage, error) {
	saved := listing.Clone()
	var usage *models.SubscriptionUsage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Listing
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", listing.ID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			saved.CreatedAt = now
		case err != nil:
			return fmt.Errorf("failed to lock listing: %w", err)
		case existing.UserID != listing.UserID:
			return apperr.ErrListingNotFound
		case existing.Attached():
			return apperr.Validation("property_id", "listing %s already has a package", listing.ID)
		default:
			saved.CreatedAt = existing.CreatedAt
			saved.PromotedAt = existing.PromotedAt
		}

		usage, err = s.incrementPost(ctx, tx, listing.UserID, listing.PostTypeID, now)
		if err != nil {
			return err
		}
		var sub models.UserSubscription
		if err := tx.Where("id = ?", usage.SubscriptionID).First(&sub).Error; err != nil {
			return fmt.Errorf("failed to load subscription: %w", err)
		}
		info, ok := models.NewPackageInfo(&sub, listing.PostTypeID)
		if !ok {
			return apperr.ErrPostTypeNotInPlan
		}
		saved.Package = info
		saved.UpdatedAt = now
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(saved).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return saved, usage, nil
}

func (s *Store) DetachListing(ctx context.Context, userID, propertyID string) (*models.Listing, error) {
	var rows []*models.Listing
	res := s.db.WithContext(ctx).Model(&rows).Clauses(clause.Returning{}).
		Where("id = ? AND user_id = ?", propertyID, userID).
		Updates(map[string]any{
			"post_type_id":            "",
			"package_subscription_id": "",
			"package_plan_id":         "",
			"package_display_name":    "",
			"package_priority":        0,
			"package_color":           "",
			"package_star_rating":     0,
			"package_expiry_date":     nil,
			"package_is_active":       false,
			"updated_at":              time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to detach listing: %w", res.Error)
	}
	if res.RowsAffected == 0 || len(rows) == 0 {
		return nil, apperr.ErrListingNotFound
	}
	return rows[0], nil
}

func (s *Store) MarkPromoted(ctx context.Context, propertyID string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Listing{}).Where("id = ?", propertyID).Update("promoted_at", at)
	if res.Error != nil {
		return fmt.Errorf("failed to mark promoted: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrListingNotFound
	}
	return nil
}

func (s *Store) AppendHistory(ctx context.Context, h *models.PackageHistory) error {
	if err := s.db.WithContext(ctx).Create(h).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("subscription %s already archived: %w", h.SubscriptionID, apperr.ErrHistoryImmutable)
		}
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, userID string) ([]*models.PackageHistory, error) {
	var items []*models.PackageHistory
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("retired_at desc").Order("id desc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return items, nil
}
