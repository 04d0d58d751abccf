package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rootline/clusterwatch/internal/kinds"
	"github.com/rootline/clusterwatch/internal/types"
)

// Config describes one monitored cluster connection plus the local
// runtime settings. File values are overridden by environment
// variables so the container deployment can stay file-less.
type Config struct {
	ConnectionID string   `yaml:"connection_id"`
	Cluster      string   `yaml:"cluster"`
	APIServer    string   `yaml:"api_server"`
	BearerToken  string   `yaml:"token"`
	InsecureTLS  bool     `yaml:"insecure_tls"`
	Namespaces   []string `yaml:"namespaces"`
	Kinds        []string `yaml:"kinds"`

	DatabaseURL string `yaml:"database_url"`

	SyncInterval   time.Duration `yaml:"sync_interval"`
	CycleTimeout   time.Duration `yaml:"cycle_timeout"`
	SessionTimeout time.Duration `yaml:"session_timeout"`

	AdminAddr string `yaml:"admin_addr"`
}

// Load reads the optional YAML file at path, applies environment
// overrides and defaults, and validates the result. An empty path
// configures entirely from the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("CLUSTER_NAME"); v != "" {
		c.Cluster = v
	}
	if v := os.Getenv("K8S_API_SERVER"); v != "" {
		c.APIServer = v
	}
	if v := os.Getenv("K8S_TOKEN"); v != "" {
		c.BearerToken = v
	}
	if v := os.Getenv("K8S_NAMESPACES"); v != "" {
		c.Namespaces = splitList(v)
	}
	if v := os.Getenv("WATCH_KINDS"); v != "" {
		c.Kinds = splitList(v)
	}
}

func (c *Config) applyDefaults() {
	if c.Cluster == "" {
		c.Cluster = "default"
	}
	if c.ConnectionID == "" {
		c.ConnectionID = c.Cluster
	}
	if c.SyncInterval <= 0 {
		c.SyncInterval = time.Minute
	}
	if c.CycleTimeout <= 0 {
		c.CycleTimeout = 30 * time.Second
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 10 * time.Second
	}
	if c.AdminAddr == "" {
		c.AdminAddr = ":9090"
	}
}

// Validate checks the cross-field constraints that would otherwise
// only surface mid-cycle.
func (c *Config) Validate() error {
	if _, err := kinds.ForNames(c.Kinds); err != nil {
		return err
	}
	if c.SessionTimeout >= c.CycleTimeout {
		return fmt.Errorf("session_timeout (%s) must be shorter than cycle_timeout (%s)",
			c.SessionTimeout, c.CycleTimeout)
	}
	if c.CycleTimeout > c.SyncInterval {
		return fmt.Errorf("cycle_timeout (%s) must not exceed sync_interval (%s)",
			c.CycleTimeout, c.SyncInterval)
	}
	return nil
}

// Connection builds the read-only connection descriptor handed to the
// watch engine.
func (c *Config) Connection() types.ClusterConnection {
	return types.ClusterConnection{
		ID:          c.ConnectionID,
		Cluster:     c.Cluster,
		APIServer:   c.APIServer,
		BearerToken: c.BearerToken,
		InsecureTLS: c.InsecureTLS,
		Namespaces:  c.Namespaces,
		Kinds:       c.Kinds,
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
