// Package config loads the publisher's YAML configuration file, following
// nexctl's pkg/config pattern: a defaulted struct overridden field-by-field
// by whatever the file on disk actually sets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings a gep-publisher process needs to start serving:
// listen addresses, cipher rotation cadence, and the permission flags
// DataPublisher enforces per connection.
type Config struct {
	ListenAddress  string `yaml:"listen_address"`
	MetricsAddress string `yaml:"metrics_address"`

	CipherRotationPeriod time.Duration `yaml:"cipher_rotation_period"`
	PingInterval         time.Duration `yaml:"ping_interval"`

	AllowMetadataRefresh bool `yaml:"allow_metadata_refresh"`
	AllowNaNFilter       bool `yaml:"allow_nan_filter"`
	ForceNaNFilter       bool `yaml:"force_nan_filter"`

	Security string `yaml:"security"` // "open" or "tls"
}

// DefaultPath returns the default config file path: ~/.gep-publisher/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".gep-publisher", "config.yaml")
	}
	return filepath.Join(home, ".gep-publisher", "config.yaml")
}

// Load reads the configuration from path, applying defaults for any field
// the file leaves unset. A missing file is not an error: Load returns the
// default configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:        ":7165",
		MetricsAddress:       ":9165",
		CipherRotationPeriod: 60 * time.Second,
		PingInterval:         5 * time.Second,
		AllowMetadataRefresh: true,
		AllowNaNFilter:       true,
		Security:             "open",
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		fmt.Fprintf(os.Stderr,
			"warning: config file %s has permissions %04o — expected 0600.\n",
			path, perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}
