package purchase_event

import (
	"context"
	"encoding/json"
	"fmt"

	eventlog "github.com/fatflowers/entitlement/internal/app/service/event_log"
	"github.com/fatflowers/entitlement/internal/app/service/lifecycle"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/internal/platform/billing"
	"github.com/fatflowers/entitlement/pkg/config"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// EventLogger persists purchase event log rows.
type EventLogger interface {
	Save(ctx context.Context, entry *models.PurchaseEventLog)
}

// Purchaser applies a verified purchase to the user's subscription, at most
// once per event id.
type Purchaser interface {
	ApplyPurchaseEvent(ctx context.Context, eventID, userID, planID string, mode types.PurchaseMode) (*lifecycle.TransitionResult, error)
}

type Handler struct {
	cfg       *config.Config
	logs      EventLogger
	purchaser Purchaser
	log       *zap.SugaredLogger
}

func NewHandler(cfg *config.Config, logs *eventlog.Service, lc *lifecycle.Service, log *zap.SugaredLogger) *Handler {
	return newHandler(cfg, logs, lc, log)
}

func newHandler(cfg *config.Config, logs EventLogger, p Purchaser, log *zap.SugaredLogger) *Handler {
	return &Handler{cfg: cfg, logs: logs, purchaser: p, log: log}
}

// HandleEvent verifies a signed purchase event and routes it into the
// lifecycle engine. Every event that passes verification is logged twice:
// once on receipt and once with its outcome.
func (h *Handler) HandleEvent(ctx context.Context, token string) (res *lifecycle.TransitionResult, resErr error) {
	log := logctx.FromCtx(ctx, h.log)

	claims, err := billing.ParseEvent(token, h.cfg.Billing.EventSecret, h.cfg.Billing.EventIssuer)
	if err != nil {
		log.Warnw("rejected purchase event", "error", err)
		return nil, err
	}

	traceID, _ := ctx.Value(logctx.TraceIDKey).(string)
	dataBytes, _ := json.Marshal(claims)
	newEntry := func(status models.PurchaseEventLogStatus) *models.PurchaseEventLog {
		return &models.PurchaseEventLog{
			EventID:   claims.Id,
			UserID:    lo.ToPtr(claims.UserID),
			TraceID:   traceID,
			PlanID:    claims.PlanID,
			Mode:      string(claims.Mode),
			EventTime: claims.EventTime(),
			Data:      datatypes.JSON(dataBytes),
			Status:    status,
		}
	}

	h.logs.Save(ctx, newEntry(models.PurchaseEventLogStatusReceived))

	defer func() {
		resMap := map[string]any{
			"result": res,
		}
		status := models.PurchaseEventLogStatusHandled
		if resErr != nil {
			resMap["error"] = resErr.Error()
			status = models.PurchaseEventLogStatusHandleFailed
		}
		resBytes, _ := json.Marshal(resMap)
		entry := newEntry(status)
		entry.Result = lo.ToPtr(datatypes.JSON(resBytes))
		h.logs.Save(ctx, entry)
	}()

	log.Infow("got purchase event", "event_id", claims.Id, "user_id", claims.UserID, "plan_id", claims.PlanID, "mode", claims.Mode)

	res, resErr = h.purchaser.ApplyPurchaseEvent(ctx, claims.Id, claims.UserID, claims.PlanID, claims.Mode)
	if resErr != nil {
		resErr = fmt.Errorf("failed to apply purchase event %s: %w", claims.Id, resErr)
		return nil, resErr
	}
	return res, nil
}

var Module = fx.Options(
	fx.Provide(NewHandler),
)
