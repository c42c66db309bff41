package lifecycle

import (
	"github.com/fatflowers/entitlement/internal/platform/cache"
	"go.uber.org/fx"
)

// Module exposes the lifecycle engine and starts the expiry sweeper.
var Module = fx.Options(
	fx.Provide(NewService, newRankIndex, newLocker, NewSweeper),
	fx.Invoke(registerSweeper),
)

func newRankIndex(idx *cache.ListingIndex) RankIndex { return idx }
