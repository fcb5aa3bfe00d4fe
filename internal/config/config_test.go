package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"alcyxob/training-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "training_service", cfg.Database.Name)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ComplianceTTL)
	assert.Equal(t, 10*time.Minute, cfg.Cache.AlternativesTTL)
	assert.Equal(t, time.Hour, cfg.Cache.PhaseTTL)
	assert.Equal(t, 2*time.Hour, cfg.Cache.PlanTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.StaleTTL)
	assert.Equal(t, 3, cfg.Events.RetryAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Events.RetryDelay)
	assert.Equal(t, 10*time.Second, cfg.Medical.Timeout)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  address: ":9090"
cache:
  backend: mongo
  compliance_ttl: 2m
planning:
  base_url: http://planning:3006
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("MEDICAL_BASE_URL", "http://medical:3005")

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "mongo", cfg.Cache.Backend)
	assert.Equal(t, 2*time.Minute, cfg.Cache.ComplianceTTL)
	assert.Equal(t, "http://planning:3006", cfg.Planning.BaseURL)
	assert.Equal(t, "http://medical:3005", cfg.Medical.BaseURL)
}
