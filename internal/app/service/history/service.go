package history

import (
	"context"
	"fmt"

	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/store"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/fatflowers/entitlement/pkg/tool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Service is the read and append side of the package history ledger.
// Lifecycle transitions write their entries through the store directly, in
// the same commit as the retirement.
type Service struct {
	store store.Store
	log   *zap.SugaredLogger
}

func NewService(st store.Store, log *zap.SugaredLogger) *Service {
	return &Service{store: st, log: log}
}

// Append stores a deep copy of entry. Entries are write once: a second
// entry for the same id or subscription is rejected.
func (s *Service) Append(ctx context.Context, entry *models.PackageHistory) error {
	if entry == nil {
		return apperr.Validation("entry", "required")
	}
	if entry.UserID == "" || entry.SubscriptionID == "" {
		return apperr.Validation("entry", "user_id and subscription_id are required")
	}
	if !entry.Status.IsTerminal() {
		return apperr.Validation("status", "%q is not a terminal status", entry.Status)
	}
	cp := entry.Clone()
	if cp.ID == "" {
		cp.ID = tool.GenerateUUIDV7()
	}
	if err := s.store.AppendHistory(ctx, cp); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	entry.ID = cp.ID
	logctx.FromCtx(ctx, s.log).Infow("history appended", "user_id", cp.UserID, "subscription_id", cp.SubscriptionID, "status", cp.Status)
	return nil
}

// GetHistory returns the user's entries, most recently retired first.
func (s *Service) GetHistory(ctx context.Context, userID string) ([]*models.PackageHistory, error) {
	if userID == "" {
		return nil, apperr.Validation("user_id", "required")
	}
	items, err := s.store.ListHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.PackageHistory{}
	}
	return items, nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
