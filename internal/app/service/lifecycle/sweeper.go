package lifecycle

import (
	"context"
	"time"

	"github.com/fatflowers/entitlement/internal/platform/cache"
	"github.com/fatflowers/entitlement/pkg/config"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/fatflowers/entitlement/pkg/tool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sweepLockKey = "lock:lifecycle:sweep"

// Locker keeps replicas from sweeping at the same time.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context), bool, error)
}

// Sweeper runs Service.Sweep on a ticker for the lifetime of the process.
type Sweeper struct {
	svc      *Service
	locker   Locker
	interval time.Duration
	lockTTL  time.Duration
	log      *zap.SugaredLogger
}

func NewSweeper(cfg *config.Config, svc *Service, locker Locker, log *zap.SugaredLogger) *Sweeper {
	lockTTL := cfg.Lifecycle.SweepLockTTL
	if lockTTL <= 0 {
		lockTTL = cfg.Lifecycle.SweepInterval
	}
	return &Sweeper{svc: svc, locker: locker, interval: cfg.Lifecycle.SweepInterval, lockTTL: lockTTL, log: log}
}

// RunOnce sweeps if no other replica holds the lock. ran is false when the
// lock was taken.
func (w *Sweeper) RunOnce(ctx context.Context) (report *SweepReport, ran bool, err error) {
	ctx = logctx.WithTraceID(ctx, tool.GenerateUUIDV7())
	release, ok, err := w.locker.TryLock(ctx, sweepLockKey, w.lockTTL)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	defer release(context.Background())
	report, err = w.svc.Sweep(ctx)
	return report, true, err
}

func (w *Sweeper) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := w.RunOnce(ctx); err != nil {
				w.log.Warnw("sweep pass failed", "err", err)
			}
		}
	}
}

// registerSweeper starts the background loop on app start and stops it on
// shutdown. A non-positive interval disables it.
func registerSweeper(lc fx.Lifecycle, w *Sweeper) {
	if w.interval <= 0 {
		w.log.Infow("expiry sweeper disabled")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			w.log.Infow("starting expiry sweeper", "interval", w.interval)
			go func() {
				defer close(done)
				w.loop(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func newLocker(l *cache.Locker) Locker { return l }
