package app

import (
	"time"

	"github.com/fatflowers/entitlement/internal/app/api/server"
	"github.com/fatflowers/entitlement/internal/app/service/catalog"
	eventlog "github.com/fatflowers/entitlement/internal/app/service/event_log"
	"github.com/fatflowers/entitlement/internal/app/service/history"
	"github.com/fatflowers/entitlement/internal/app/service/lifecycle"
	"github.com/fatflowers/entitlement/internal/app/service/listing"
	"github.com/fatflowers/entitlement/internal/app/service/promotion"
	purchaseevent "github.com/fatflowers/entitlement/internal/app/service/purchase_event"
	"github.com/fatflowers/entitlement/internal/app/service/quota"
	"github.com/fatflowers/entitlement/internal/app/service/statistics"
	"github.com/fatflowers/entitlement/internal/platform/cache"
	"github.com/fatflowers/entitlement/internal/platform/db"
	"github.com/fatflowers/entitlement/internal/store/postgres"
	"github.com/fatflowers/entitlement/pkg/config"
	"github.com/fatflowers/entitlement/pkg/logger"
	"github.com/fatflowers/entitlement/pkg/metrics"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	metrics.Module,
	db.Module,
	cache.Module,
	postgres.Module,
	catalog.Module,
	quota.Module,
	listing.Module,
	promotion.Module,
	lifecycle.Module,
	history.Module,
	eventlog.Module,
	purchaseevent.Module,
	statistics.Module,
	server.Module,
)
