// Package config loads the MeshGate YAML configuration file and applies
// defaults for anything the file leaves unset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meshwave/meshgate-go/pkg/admission"
)

// Config is the root of the meshgate.yaml configuration file.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Admission AdmissionConfig `yaml:"admission"`
	Registry  RegistryConfig  `yaml:"registry"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Port      string `yaml:"port"`
	SecretKey string `yaml:"secretKey"`
}

// AdmissionConfig configures the admission controller.
type AdmissionConfig struct {
	// Tiers overrides entries of the built-in tier table. Tiers not
	// named keep their defaults.
	Tiers map[string]admission.Limits `yaml:"tiers"`

	// BucketTTL is how long an idle bucket survives before the sweep
	// evicts it.
	BucketTTL time.Duration `yaml:"bucketTtl"`

	// SweepInterval is how often the cleanup sweep runs.
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

// RegistryConfig configures the event registry.
type RegistryConfig struct {
	// BufferCapacity is the per-topic replay ring capacity.
	BufferCapacity int `yaml:"bufferCapacity"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Admission: AdmissionConfig{
			BucketTTL:     10 * time.Minute,
			SweepInterval: time.Minute,
		},
		Registry: RegistryConfig{BufferCapacity: 500},
	}
}

// Load reads and parses a YAML configuration file, layering it over the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Registry.BufferCapacity < 0 {
		return fmt.Errorf("registry buffer capacity cannot be negative")
	}
	if c.Admission.BucketTTL < 0 {
		return fmt.Errorf("admission bucket TTL cannot be negative")
	}
	return nil
}

// TierTable builds the effective tier table: the defaults overlaid with
// any tiers the file names.
func (c *Config) TierTable() admission.TierTable {
	table := admission.DefaultTierTable()
	for name, limits := range c.Admission.Tiers {
		table[admission.Tier(name)] = limits
	}
	return table
}
