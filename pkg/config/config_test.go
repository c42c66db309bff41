package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 9999
lifecycle:
  sweep_interval: 1m
catalog:
  trial_plan_id: trial
  post_types:
    - id: standard
      display_name: Standard
      priority: 3
  plans:
    - id: trial
      name: trial
      display_name: Free Trial
      duration: {value: 7, unit: day}
      limits:
        - {post_type_id: standard, limit: 1}
      free_push_count: 1
`

func TestNew_ReadsFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(file, []byte(sampleConfig), 0o600))
	t.Setenv("APP_CONFIG_FILE", file)
	t.Setenv("APP_BILLING_EVENT_SECRET", "from-env")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, time.Minute, cfg.Lifecycle.SweepInterval)
	assert.Equal(t, 200, cfg.Lifecycle.SweepBatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Database.SlowThreshold)

	require.Len(t, cfg.Catalog.Plans, 1)
	plan := cfg.Catalog.Plans[0]
	assert.Equal(t, types.Duration{Value: 7, Unit: types.DurationUnitDay}, plan.Duration)
	assert.Equal(t, []types.PostTypeLimit{{PostTypeID: "standard", Limit: 1}}, plan.Limits)
	assert.Equal(t, "trial", cfg.Catalog.TrialPlanID)
	assert.Equal(t, "from-env", cfg.Billing.EventSecret)
	assert.Equal(t, "billing", cfg.Billing.EventIssuer)
}
