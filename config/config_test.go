package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/advance-tax/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH", "RECALC_INTERVAL", "CORS_ORIGINS", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "advtax.db", cfg.DBPath)
	assert.Equal(t, time.Hour, cfg.RecalcInterval)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "info", cfg.GetLoggerConfig().Level)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("RECALC_INTERVAL", "15m")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example,")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, 15*time.Minute, cfg.RecalcInterval)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "json", cfg.GetLoggerConfig().Format)
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("RECALC_INTERVAL", "soon")
	_, err := config.FromEnv()
	assert.Error(t, err)

	t.Setenv("RECALC_INTERVAL", "-1m")
	_, err = config.FromEnv()
	assert.Error(t, err)
}
