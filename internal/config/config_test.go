package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
connection_id: prod-east
cluster: prod
api_server: https://10.0.0.1:6443
token: abc123
namespaces: [prod, staging]
kinds: [deployments, secrets]
database_url: postgres://localhost/rootline
sync_interval: 2m
cycle_timeout: 45s
session_timeout: 15s
admin_addr: ":8088"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod-east", cfg.ConnectionID)
	assert.Equal(t, "prod", cfg.Cluster)
	assert.Equal(t, "https://10.0.0.1:6443", cfg.APIServer)
	assert.Equal(t, []string{"prod", "staging"}, cfg.Namespaces)
	assert.Equal(t, []string{"deployments", "secrets"}, cfg.Kinds)
	assert.Equal(t, 2*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 45*time.Second, cfg.CycleTimeout)
	assert.Equal(t, 15*time.Second, cfg.SessionTimeout)
	assert.Equal(t, ":8088", cfg.AdminAddr)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Cluster)
	assert.Equal(t, "default", cfg.ConnectionID)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.Equal(t, 30*time.Second, cfg.CycleTimeout)
	assert.Equal(t, 10*time.Second, cfg.SessionTimeout)
	assert.Equal(t, ":9090", cfg.AdminAddr)
	assert.Empty(t, cfg.Kinds)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
cluster: from-file
namespaces: [file-ns]
`)

	t.Setenv("CLUSTER_NAME", "from-env")
	t.Setenv("K8S_NAMESPACES", "prod, staging")
	t.Setenv("WATCH_KINDS", "configmaps,secrets")
	t.Setenv("DATABASE_URL", "postgres://env/rootline")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Cluster)
	assert.Equal(t, []string{"prod", "staging"}, cfg.Namespaces)
	assert.Equal(t, []string{"configmaps", "secrets"}, cfg.Kinds)
	assert.Equal(t, "postgres://env/rootline", cfg.DatabaseURL)
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	path := writeConfig(t, `
kinds: [deployments, cronjobs]
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cronjobs")
}

func TestValidateTimeoutOrdering(t *testing.T) {
	path := writeConfig(t, `
session_timeout: 30s
cycle_timeout: 20s
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_timeout")

	path = writeConfig(t, `
cycle_timeout: 5m
sync_interval: 1m
`)
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle_timeout")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestConnection(t *testing.T) {
	path := writeConfig(t, `
connection_id: prod-east
cluster: prod
namespaces: [prod]
insecure_tls: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	conn := cfg.Connection()
	assert.Equal(t, "prod-east", conn.ID)
	assert.Equal(t, "prod", conn.Cluster)
	assert.True(t, conn.InsecureTLS)
	assert.True(t, conn.WatchesNamespace("prod"))
	assert.False(t, conn.WatchesNamespace("dev"))
}
