// Package config holds the bootstrap configuration for the bridge.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the minimal bootstrap configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Admission AdmissionConfig `yaml:"admission"`
	Cache     CacheConfig     `yaml:"cache"`
	Journal   JournalConfig   `yaml:"journal"`
	Transport TransportConfig `yaml:"transport"`
	Worker    WorkerConfig    `yaml:"worker"`
	Batch     BatchConfig     `yaml:"batch"`
}

// AdmissionConfig bounds concurrent in-flight transport calls.
type AdmissionConfig struct {
	MaxInFlight int `yaml:"max_in_flight"`
}

// CacheConfig bounds the response cache. PersistPath, when set, enables the
// sqlite-backed second tier at that path.
type CacheConfig struct {
	Capacity    int    `yaml:"capacity"`
	PersistPath string `yaml:"persist_path"`
}

// JournalConfig enables the sqlite request journal. It shares the database
// at Cache.PersistPath; enabling it without a persist path is a no-op.
type JournalConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TransportConfig tunes the HTTP transport collaborator. Retries greater
// than zero select the retrying transport variant.
type TransportConfig struct {
	Retries             int `yaml:"retries"`
	ConnectTimeoutMs    int `yaml:"connect_timeout_ms"`
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`
}

// WorkerConfig sizes the execution worker loop. Workers of zero means
// min(GOMAXPROCS, 8).
type WorkerConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// BatchConfig caps batch submissions.
type BatchConfig struct {
	MaxItems int `yaml:"max_items"`
}

// Load reads config from a YAML file with graceful fallback: a missing or
// malformed file yields the defaults rather than an error, matching how the
// host runtime ships without a config file at all.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), nil
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	return &cfg, nil
}

// DefaultConfig returns the mobile-profile defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg
}

// applyEnvOverrides lets the host override select fields without a file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HTTPBRIDGE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("HTTPBRIDGE_MAX_IN_FLIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Admission.MaxInFlight = n
		}
	}
	if v := os.Getenv("HTTPBRIDGE_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.Capacity = n
		}
	}
	if v := os.Getenv("HTTPBRIDGE_PERSIST_PATH"); v != "" {
		c.Cache.PersistPath = v
	}
}

// applyDefaults fills in zero-valued fields.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Admission.MaxInFlight == 0 {
		c.Admission.MaxInFlight = 16
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = 512
	}
	if c.Transport.ConnectTimeoutMs == 0 {
		c.Transport.ConnectTimeoutMs = 5000
	}
	if c.Transport.MaxIdleConnsPerHost == 0 {
		c.Transport.MaxIdleConnsPerHost = 50
	}
	if c.Worker.QueueSize == 0 {
		c.Worker.QueueSize = 256
	}
	if c.Batch.MaxItems == 0 {
		c.Batch.MaxItems = 64
	}
}
