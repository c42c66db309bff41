package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/store"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommitTransition runs every step of t in one database transaction. The
// retiring row is claimed with a version guarded update, which serializes
// concurrent transitions for the same subscription; counters are frozen by
// flipping their live flag so guarded increments stop matching them.
func (s *Store) CommitTransition(ctx context.Context, t *store.Transition) (*models.PackageHistory, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	var entry *models.PackageHistory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if t.EventID != "" {
			if err := s.claimEvent(ctx, tx, t); err != nil {
				return err
			}
		}
		if t.Retire != nil {
			h, err := s.retire(ctx, tx, t)
			if err != nil {
				return err
			}
			entry = h
		}
		if t.Next != nil {
			if err := s.createNext(ctx, tx, t); err != nil {
				return err
			}
		}
		for _, tr := range t.Transfers {
			if err := s.transfer(ctx, tx, t, tr); err != nil {
				return err
			}
		}
		if t.RequirePostTypes != nil {
			var orphans int64
			if err := tx.WithContext(ctx).Model(&models.Listing{}).
				Where("user_id = ? AND post_type_id <> '' AND post_type_id NOT IN ?", t.UserID, t.RequirePostTypes).
				Count(&orphans).Error; err != nil {
				return fmt.Errorf("failed to check listing post types: %w", err)
			}
			if orphans > 0 {
				return fmt.Errorf("%d listings changed during transition: %w", orphans, apperr.ErrConcurrencyConflict)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// claimEvent inserts the event marker first, so a replay fails before any
// other row is touched.
func (s *Store) claimEvent(ctx context.Context, tx *gorm.DB, t *store.Transition) error {
	ev := &models.AppliedPurchaseEvent{EventID: t.EventID, UserID: t.UserID, AppliedAt: t.At}
	if t.Next != nil {
		ev.SubscriptionID = t.Next.ID
	}
	if err := tx.WithContext(ctx).Create(ev).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("event %s: %w", t.EventID, apperr.ErrEventDuplicate)
		}
		return fmt.Errorf("failed to claim event %s: %w", t.EventID, err)
	}
	return nil
}

func (s *Store) retire(ctx context.Context, tx *gorm.DB, t *store.Transition) (*models.PackageHistory, error) {
	var subs []*models.UserSubscription
	res := tx.WithContext(ctx).Model(&subs).Clauses(clause.Returning{}).
		Where("id = ? AND user_id = ? AND version = ? AND status IN ?", t.Retire.SubscriptionID, t.UserID, t.Retire.Version, types.LiveStatuses).
		Updates(map[string]any{
			"status":     t.Retire.Status,
			"retired_at": t.At,
			"version":    gorm.Expr("version + 1"),
			"updated_at": t.At,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to retire subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 || len(subs) == 0 {
		return nil, fmt.Errorf("subscription %s moved on: %w", t.Retire.SubscriptionID, apperr.ErrConcurrencyConflict)
	}
	retired := subs[0]

	var usage []*models.SubscriptionUsage
	if err := tx.WithContext(ctx).Model(&usage).Clauses(clause.Returning{}).
		Where("subscription_id = ?", retired.ID).
		Update("live", false).Error; err != nil {
		return nil, fmt.Errorf("failed to freeze usage: %w", err)
	}

	entry := store.BuildHistory(t, retired, usage)
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("subscription %s already archived: %w", retired.ID, apperr.ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("failed to write history: %w", err)
	}

	if t.Retire.DeactivateListings {
		if err := tx.WithContext(ctx).Model(&models.Listing{}).
			Where("user_id = ? AND package_subscription_id = ?", t.UserID, retired.ID).
			Updates(map[string]any{"package_is_active": false, "updated_at": t.At}).Error; err != nil {
			return nil, fmt.Errorf("failed to deactivate listings: %w", err)
		}
	}
	return entry, nil
}

func (s *Store) createNext(ctx context.Context, tx *gorm.DB, t *store.Transition) error {
	next := t.Next.Clone()
	if err := tx.WithContext(ctx).Create(next).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A live subscription or a trial already exists for the user.
			if next.IsTrial {
				return apperr.ErrTrialUsed
			}
			if t.Retire == nil {
				return apperr.ErrSubscriptionExists
			}
			return apperr.ErrConcurrencyConflict
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	rows := models.NewUsageRows(next)
	if len(rows) == 0 {
		return nil
	}
	if err := tx.WithContext(ctx).Create(rows).Error; err != nil {
		return fmt.Errorf("failed to create usage counters: %w", err)
	}
	return nil
}

func (s *Store) transfer(ctx context.Context, tx *gorm.DB, t *store.Transition, tr store.ListingTransfer) error {
	p := tr.Package
	res := tx.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ? AND user_id = ? AND post_type_id = ?", tr.PropertyID, t.UserID, tr.FromPostType).
		Updates(map[string]any{
			"post_type_id":            tr.ToPostType,
			"package_subscription_id": p.SubscriptionID,
			"package_plan_id":         p.PlanID,
			"package_display_name":    p.DisplayName,
			"package_priority":        p.Priority,
			"package_color":           p.Color,
			"package_star_rating":     p.StarRating,
			"package_expiry_date":     p.ExpiryDate,
			"package_is_active":       p.IsActive,
			"updated_at":              t.At,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to transfer listing %s: %w", tr.PropertyID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("listing %s changed during transition: %w", tr.PropertyID, apperr.ErrConcurrencyConflict)
	}
	return nil
}
