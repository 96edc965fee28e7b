package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubstitutesEnv(t *testing.T) {
	t.Setenv("AURAOS_TEST_DSN", "postgres://u:p@db/auraos")
	raw := `{
		"server": {"port": ${AURAOS_TEST_PORT:9090}},
		"database": {"postgres": {"dsn": "${AURAOS_TEST_DSN}"}},
		"executor": {"task_timeout": "45s"}
	}`

	cfg, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres://u:p@db/auraos", cfg.Database.Postgres.DSN)
	assert.Equal(t, 45*time.Second, cfg.Executor.TaskTimeout.Std())
}

func TestParseFillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	require.NoError(t, err)
	d := Defaults()
	assert.Equal(t, d.Server, cfg.Server)
	assert.Equal(t, d.Executor, cfg.Executor)
	assert.Equal(t, d.Collaboration, cfg.Collaboration)
	assert.Equal(t, "memory", cfg.Comms.Backend)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestParseRejectsBadBackend(t *testing.T) {
	_, err := Parse([]byte(`{"comms": {"backend": "kafka"}}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"comms": {"backend": "redis"}}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"comms": {"backend": "redis"}, "database": {"redis": {"url": "redis://localhost:6379"}}}`))
	assert.NoError(t, err)
}

func TestDurationForms(t *testing.T) {
	cfg, err := Parse([]byte(`{"collaboration": {"timeout": 1500000000}, "breaker": {"timeout": "2m"}}`))
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.Collaboration.Timeout.Std())
	assert.Equal(t, 2*time.Minute, cfg.Breaker.Timeout.Std())

	_, err = Parse([]byte(`{"breaker": {"timeout": "soon"}}`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auraos.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server": {"log_level": "debug"}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
