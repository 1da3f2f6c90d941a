package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
camunda:
  broker_address: zeebe:26500
database:
  postgres:
    host: db
    database: panta
    user: ${PANTA_TEST_DB_USER}
  redis:
    address: redis:6379
  elasticsearch:
    url: ${PANTA_TEST_ES_URL}
workers:
  calculate-vehicle-price:
    enabled: true
    timeout: 2500
`

func TestLoadFromFile_DefaultsAndExpansion(t *testing.T) {
	t.Setenv("PANTA_TEST_DB_USER", "pricing")
	t.Setenv("PANTA_TEST_ES_URL", "")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "pricing", cfg.Database.Postgres.User)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, 300000, cfg.Database.Postgres.MaxLifetime)
	assert.Equal(t, 10, cfg.Database.Redis.PoolSize)
	assert.Equal(t, 2, cfg.Database.Redis.MinIdleConns)
	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.False(t, cfg.Database.Elasticsearch.Enabled())

	assert.Equal(t, 5000, cfg.Pricing.ConfigFetchTimeout)
	assert.Equal(t, 10*time.Minute, GetDuration(cfg.Pricing.CacheTTL))
	assert.Equal(t, "vehicle-quotes", cfg.Pricing.QuoteIndex)

	wcfg := GetWorkerConfig(cfg, "calculate-vehicle-price")
	assert.True(t, wcfg.Enabled)
	assert.Equal(t, 2500, wcfg.Timeout)
	assert.Equal(t, 5, wcfg.MaxJobsActive)
	assert.Equal(t, 3, wcfg.MaxRetries)

	unknown := GetWorkerConfig(cfg, "not-configured")
	assert.True(t, unknown.Enabled)
	assert.Equal(t, 30000, unknown.Timeout)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "database:\n  postgres:\n    host: db\n",
			wantErr: "camunda.broker_address",
		},
		{
			name: "quotes without elasticsearch",
			body: `
camunda:
  broker_address: zeebe:26500
database:
  postgres: {host: db, database: panta, user: u}
  redis: {address: redis:6379}
pricing:
  record_quotes: true
`,
			wantErr: "record_quotes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "panta", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=panta sslmode=require", p.GetDSN())
}
