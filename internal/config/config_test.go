package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("TIMECLOCK_STORE_TIMEOUT", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Timeclock.StoreTimeout)
	assert.Equal(t, 30, cfg.Timeclock.AlertMarginMinutes)
	assert.Equal(t, "UTC", cfg.Timeclock.DefaultTimezone)
	assert.EqualValues(t, 25, cfg.Database.MaxConns)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/tc.db")
	t.Setenv("TIMECLOCK_MISSED_PUNCH_STALE_AFTER", "12h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/tc.db", cfg.Store.SQLitePath)
	assert.Equal(t, 12*time.Hour, cfg.Timeclock.MissedPunchStaleAfter)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.CORSOrigins)
}

func TestFromEnv_InvalidNumber(t *testing.T) {
	t.Setenv("APP_PORT", "eighty")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "APP_PORT")
}

func TestValidate(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET_KEY", "secret")
	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.Timeclock.DefaultTimezone = "Nowhere/Else"
	assert.ErrorContains(t, cfg.Validate(), "TIMECLOCK_DEFAULT_TIMEZONE")

	cfg.Timeclock.DefaultTimezone = "UTC"
	cfg.Store.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "STORE_DRIVER")

	cfg.Store.Driver = DriverPostgres
	cfg.Database.Password = ""
	assert.ErrorContains(t, cfg.Validate(), "DB_PASSWORD")
}
