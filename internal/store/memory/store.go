// Package memory is a mutex guarded Store used by tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/store"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/samber/lo"
)

type usageKey struct {
	subscriptionID string
	postTypeID     string
}

type Store struct {
	mu sync.RWMutex

	subscriptions map[string]*models.UserSubscription
	usage         map[usageKey]*models.SubscriptionUsage
	listings      map[string]*models.Listing
	history       map[string]*models.PackageHistory
	// historyBySubscription enforces one entry per retired subscription.
	historyBySubscription map[string]string
	events                map[string]*models.AppliedPurchaseEvent
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		subscriptions:         make(map[string]*models.UserSubscription),
		usage:                 make(map[usageKey]*models.SubscriptionUsage),
		listings:              make(map[string]*models.Listing),
		history:               make(map[string]*models.PackageHistory),
		historyBySubscription: make(map[string]string),
		events:                make(map[string]*models.AppliedPurchaseEvent),
	}
}

// PutSubscription seeds a subscription and zeroed usage rows. Intended for
// tests and fixtures; production writes go through CommitTransition.
func (s *Store) PutSubscription(sub *models.UserSubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.ID] = sub.Clone()
	for _, row := range models.NewUsageRows(sub) {
		row.Live = sub.Status.IsLive()
		s.usage[usageKey{row.SubscriptionID, row.PostTypeID}] = row
	}
}

// PutListing seeds a listing as is.
func (s *Store) PutListing(l *models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = l.Clone()
}

func cloneUsage(u *models.SubscriptionUsage) *models.SubscriptionUsage {
	cp := *u
	return &cp
}

func (s *Store) latestLocked(userID string) *models.UserSubscription {
	var latest *models.UserSubscription
	for _, sub := range s.subscriptions {
		if sub.UserID != userID {
			continue
		}
		if latest == nil || store.LatestFirst(sub, latest) {
			latest = sub
		}
	}
	return latest
}

func (s *Store) liveUsageLocked(userID string) []*models.SubscriptionUsage {
	var rows []*models.SubscriptionUsage
	for _, row := range s.usage {
		if row.UserID == userID && row.Live {
			rows = append(rows, row)
		}
	}
	return rows
}

func (s *Store) GetLatestSubscription(_ context.Context, userID string) (*models.UserSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := s.latestLocked(userID)
	if latest == nil {
		return nil, apperr.ErrNoSubscription
	}
	return latest.Clone(), nil
}

func (s *Store) ListUsage(_ context.Context, subscriptionID string) ([]*models.SubscriptionUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []*models.SubscriptionUsage
	for k, row := range s.usage {
		if k.subscriptionID == subscriptionID {
			rows = append(rows, cloneUsage(row))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PostTypeID < rows[j].PostTypeID })
	return rows, nil
}

func (s *Store) ListDueSubscriptions(_ context.Context, now time.Time, limit int) ([]*models.UserSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []*models.UserSubscription
	for _, sub := range s.subscriptions {
		if sub.Due(now) {
			due = append(due, sub.Clone())
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiryDate.Before(due[j].ExpiryDate) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *Store) HasTrial(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subscriptions {
		if sub.UserID == userID && sub.IsTrial {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) EventApplied(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.events[eventID]
	return ok, nil
}

func (s *Store) incrementPostLocked(userID, postTypeID string, now time.Time) (*models.SubscriptionUsage, error) {
	live := s.liveUsageLocked(userID)
	for _, row := range live {
		if row.PostTypeID == postTypeID && !now.After(row.ExpiryDate) && row.Used < row.LimitCount {
			row.Used++
			return row, nil
		}
	}
	return nil, store.ClassifyPostFailure(live, postTypeID, now)
}

func (s *Store) IncrementPostUsage(_ context.Context, userID, postTypeID string, now time.Time) (*models.SubscriptionUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, err := s.incrementPostLocked(userID, postTypeID, now)
	if err != nil {
		return nil, err
	}
	return cloneUsage(row), nil
}

func (s *Store) DecrementPostUsage(_ context.Context, userID, postTypeID string) (*models.SubscriptionUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.liveUsageLocked(userID) {
		if row.PostTypeID == postTypeID && row.Used > 0 {
			row.Used--
			return cloneUsage(row), nil
		}
	}
	return nil, fmt.Errorf("no consumed %s quota to release: %w", postTypeID, apperr.ErrConcurrencyConflict)
}

func (s *Store) IncrementPushUsage(_ context.Context, userID string, now time.Time) (*models.UserSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := s.latestLocked(userID)
	if latest == nil {
		return nil, apperr.ErrNoSubscription
	}
	if !latest.Live(now) || latest.PushUsed >= latest.PushTotal {
		return nil, store.ClassifyPushFailure(latest, now)
	}
	latest.PushUsed++
	return latest.Clone(), nil
}

func (s *Store) DecrementPushUsage(_ context.Context, subscriptionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[subscriptionID]
	if !ok {
		return apperr.ErrNoSubscription
	}
	if sub.PushUsed > 0 {
		sub.PushUsed--
	}
	return nil
}

func (s *Store) GetListing(_ context.Context, propertyID string) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[propertyID]
	if !ok {
		return nil, apperr.ErrListingNotFound
	}
	return l.Clone(), nil
}

func (s *Store) ListListings(_ context.Context, userID string) ([]*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Listing
	for _, l := range s.listings {
		if l.UserID == userID {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AttachListing(_ context.Context, listing *models.Listing, now time.Time) (*models.Listing, *models.SubscriptionUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.listings[listing.ID]; ok {
		if existing.UserID != listing.UserID {
			return nil, nil, apperr.ErrListingNotFound
		}
		if existing.Attached() {
			return nil, nil, apperr.Validation("property_id", "listing %s already has a package", listing.ID)
		}
	}
	row, err := s.incrementPostLocked(listing.UserID, listing.PostTypeID, now)
	if err != nil {
		return nil, nil, err
	}
	info, ok := models.NewPackageInfo(s.subscriptions[row.SubscriptionID], listing.PostTypeID)
	if !ok {
		row.Used--
		return nil, nil, apperr.ErrPostTypeNotInPlan
	}
	saved := listing.Clone()
	saved.Package = info
	if existing, ok := s.listings[listing.ID]; ok {
		saved.CreatedAt = existing.CreatedAt
		saved.PromotedAt = existing.PromotedAt
	} else {
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now
	s.listings[saved.ID] = saved
	return saved.Clone(), cloneUsage(row), nil
}

func (s *Store) DetachListing(_ context.Context, userID, propertyID string) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[propertyID]
	if !ok || l.UserID != userID {
		return nil, apperr.ErrListingNotFound
	}
	l.PostTypeID = ""
	l.Package = models.PackageInfo{}
	return l.Clone(), nil
}

func (s *Store) MarkPromoted(_ context.Context, propertyID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[propertyID]
	if !ok {
		return apperr.ErrListingNotFound
	}
	l.PromotedAt = &at
	return nil
}

// CommitTransition validates every precondition before mutating anything,
// so a failed commit leaves the store untouched.
func (s *Store) CommitTransition(_ context.Context, t *store.Transition) (*models.PackageHistory, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.EventID != "" {
		if _, dup := s.events[t.EventID]; dup {
			return nil, fmt.Errorf("event %s: %w", t.EventID, apperr.ErrEventDuplicate)
		}
	}
	var retired *models.UserSubscription
	if t.Retire != nil {
		cur, ok := s.subscriptions[t.Retire.SubscriptionID]
		if !ok || cur.UserID != t.UserID {
			return nil, apperr.ErrNoSubscription
		}
		if cur.Version != t.Retire.Version || !cur.Status.IsLive() {
			return nil, apperr.ErrConcurrencyConflict
		}
		if _, archived := s.historyBySubscription[cur.ID]; archived {
			return nil, apperr.ErrConcurrencyConflict
		}
		retired = cur
	}
	if t.Next != nil {
		for _, sub := range s.subscriptions {
			if sub.UserID == t.UserID && sub.Status.IsLive() && (retired == nil || sub.ID != retired.ID) {
				if retired == nil {
					return nil, apperr.ErrSubscriptionExists
				}
				return nil, apperr.ErrConcurrencyConflict
			}
		}
		if t.Next.IsTrial {
			for _, sub := range s.subscriptions {
				if sub.UserID == t.UserID && sub.IsTrial {
					return nil, apperr.ErrTrialUsed
				}
			}
		}
	}
	transferred := make(map[string]bool, len(t.Transfers))
	for _, tr := range t.Transfers {
		l, ok := s.listings[tr.PropertyID]
		if !ok || l.UserID != t.UserID || l.PostTypeID != tr.FromPostType {
			return nil, apperr.ErrConcurrencyConflict
		}
		transferred[tr.PropertyID] = true
	}
	if t.RequirePostTypes != nil {
		for _, l := range s.listings {
			if l.UserID != t.UserID || l.PostTypeID == "" || transferred[l.ID] {
				continue
			}
			if !lo.Contains(t.RequirePostTypes, l.PostTypeID) {
				return nil, apperr.ErrConcurrencyConflict
			}
		}
	}

	// All checks passed; apply.
	var entry *models.PackageHistory
	if retired != nil {
		var usage []*models.SubscriptionUsage
		for _, row := range s.usage {
			if row.SubscriptionID == retired.ID {
				row.Live = false
				usage = append(usage, cloneUsage(row))
			}
		}
		at := t.At
		retired.Status = t.Retire.Status
		retired.RetiredAt = &at
		retired.Version++
		retired.UpdatedAt = t.At

		entry = store.BuildHistory(t, retired, usage)
		entry.CreatedAt = t.At
		s.history[entry.ID] = entry
		s.historyBySubscription[retired.ID] = entry.ID

		if t.Retire.DeactivateListings {
			for _, l := range s.listings {
				if l.UserID == t.UserID && l.Package.SubscriptionID == retired.ID {
					l.Package.IsActive = false
					l.UpdatedAt = t.At
				}
			}
		}
	}
	if t.Next != nil {
		next := t.Next.Clone()
		next.CreatedAt, next.UpdatedAt = t.At, t.At
		s.subscriptions[next.ID] = next
		for _, row := range models.NewUsageRows(next) {
			s.usage[usageKey{row.SubscriptionID, row.PostTypeID}] = row
		}
	}
	for _, tr := range t.Transfers {
		l := s.listings[tr.PropertyID]
		l.PostTypeID = tr.ToPostType
		l.Package = tr.Package
		l.UpdatedAt = t.At
	}
	if t.EventID != "" {
		ev := &models.AppliedPurchaseEvent{EventID: t.EventID, UserID: t.UserID, AppliedAt: t.At}
		if t.Next != nil {
			ev.SubscriptionID = t.Next.ID
		}
		s.events[t.EventID] = ev
	}
	return entry.Clone(), nil
}

func (s *Store) AppendHistory(_ context.Context, h *models.PackageHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.history[h.ID]; dup {
		return fmt.Errorf("history %s: %w", h.ID, apperr.ErrHistoryImmutable)
	}
	if _, dup := s.historyBySubscription[h.SubscriptionID]; dup {
		return fmt.Errorf("subscription %s already archived: %w", h.SubscriptionID, apperr.ErrHistoryImmutable)
	}
	cp := h.Clone()
	s.history[cp.ID] = cp
	s.historyBySubscription[cp.SubscriptionID] = cp.ID
	return nil
}

func (s *Store) ListHistory(_ context.Context, userID string) ([]*models.PackageHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PackageHistory
	for _, h := range s.history {
		if h.UserID == userID {
			out = append(out, h.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RetiredAt.Equal(out[j].RetiredAt) {
			return out[i].RetiredAt.After(out[j].RetiredAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
