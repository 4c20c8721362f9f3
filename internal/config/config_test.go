package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/calendar"
)

func testConfig(t *testing.T, overrides map[string]interface{}) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return fromViper(v)
}

func TestDefaults(t *testing.T) {
	cfg := testConfig(t, nil)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2.0, cfg.Engine.DefaultLeadWeeks)
	assert.Equal(t, 90, cfg.Engine.PlanningWindowDays)
	assert.Equal(t, 4, cfg.Pipeline.WorkerCount)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=replenish sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, float64(24), cfg.Cache.CacheTTL().Hours())
}

func TestAllowedOriginsFromCommaList(t *testing.T) {
	cfg := testConfig(t, map[string]interface{}{
		"SERVER_ALLOWED_ORIGINS": "http://localhost:3000, http://example.test",
	})
	assert.Equal(t, []string{"http://localhost:3000", "http://example.test"}, cfg.Server.AllowedOrigins)
}

func TestDatabaseURLWins(t *testing.T) {
	cfg := testConfig(t, map[string]interface{}{"DATABASE_URL": "postgres://u:p@db/replenish"})
	assert.Equal(t, "postgres://u:p@db/replenish", cfg.Database.DSN())
}

func TestEngineConfig(t *testing.T) {
	cfg := testConfig(t, map[string]interface{}{
		"ENGINE_PLANNING_WINDOW_DAYS": 30,
		"ENGINE_DEFAULT_LEAD_WEEKS":   3.5,
		"ENGINE_EVALUATION_DATE":      "2024-07-01",
	})
	ec, err := cfg.EngineConfig()
	require.NoError(t, err)

	assert.Equal(t, 30, ec.PlanningWindowDays)
	assert.Equal(t, 3.5, ec.DefaultLeadWeeks)
	assert.Equal(t, 12, ec.Estimator.Periods)
	assert.Equal(t, "2024-07-01", calendar.FormatISO(ec.Now()))
	assert.Equal(t, calendar.DefaultRegion, ec.Calendar.Region())
}

func TestEngineConfig_HolidayTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.toml")
	require.NoError(t, os.WriteFile(path, []byte("region = \"CA-BC\"\nversion = \"2027\"\ndates = [\"2027-01-01\"]\n"), 0o644))

	cfg := testConfig(t, map[string]interface{}{"ENGINE_HOLIDAY_TABLE": path})
	ec, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, "CA-BC", ec.Calendar.Region())

	cfg = testConfig(t, map[string]interface{}{"ENGINE_HOLIDAY_TABLE": filepath.Join(t.TempDir(), "missing.toml")})
	_, err = cfg.EngineConfig()
	var loadErr *calendar.LoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestEngineConfig_BadEvaluationDate(t *testing.T) {
	cfg := testConfig(t, map[string]interface{}{"ENGINE_EVALUATION_DATE": "July 1"})
	_, err := cfg.EngineConfig()
	assert.Error(t, err)
}
