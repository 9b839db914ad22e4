package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BASE_CURRENCY", " bdt ")
	t.Setenv("UTILIZATION_ALERT_PCT", "85")
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_ADDR", ":8080")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "BDT", cfg.BaseCurrency)
	require.Equal(t, 85.0, cfg.UtilizationAlertPct)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.False(t, cfg.IsProduction())
}

func TestConfigValidate(t *testing.T) {
	base := Config{BaseCurrency: "BDT", UtilizationAlertPct: 90}
	require.NoError(t, base.Validate())

	cfg := base
	cfg.BaseCurrency = "  "
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.UtilizationAlertPct = 120
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.AdminUsername = "admin"
	require.Error(t, cfg.Validate())

	cfg.AdminPassword = "bootstrap-pass"
	require.NoError(t, cfg.Validate())
}
