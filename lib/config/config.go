// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable [Load] reads the config path
// from.
const EnvVar = "PEERCHAT_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the peerchat client and broker.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Broker configures the signaling broker, both the address clients
	// reach it at and the address the broker binary listens on.
	Broker BrokerConfig `yaml:"broker"`

	// ICE lists STUN/TURN servers handed to every PeerConnection.
	ICE ICEConfig `yaml:"ice"`

	// Connection configures the connection manager.
	Connection ConnectionConfig `yaml:"connection"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths      *PathsConfig      `yaml:"paths,omitempty"`
	Broker     *BrokerConfig     `yaml:"broker,omitempty"`
	ICE        *ICEConfig        `yaml:"ice,omitempty"`
	Connection *ConnectionConfig `yaml:"connection,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Data holds the client database (peerchat.db).
	Data string `yaml:"data"`
}

// BrokerConfig configures the signaling broker.
type BrokerConfig struct {
	// URL is the broker base URL clients publish and poll against.
	// Default: http://127.0.0.1:7878
	URL string `yaml:"url"`

	// Listen is the address peerchat-broker binds.
	// Default: 127.0.0.1:7878
	Listen string `yaml:"listen"`

	// PollInterval is how often a client polls for offers and answers.
	// Default: 1s
	PollInterval string `yaml:"poll_interval"`
}

// ICEConfig lists ICE servers.
type ICEConfig struct {
	Servers []ICEServer `yaml:"servers"`
}

// ICEServer is one STUN or TURN server entry.
type ICEServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username,omitempty"`
	Credential string   `yaml:"credential,omitempty"`
}

// ConnectionConfig configures the connection manager.
type ConnectionConfig struct {
	// LivenessTimeout is how long an attempt may stay unopened before
	// the peer is reported offline.
	// Default: 4s
	LivenessTimeout string `yaml:"liveness_timeout"`
}

// Default returns the default configuration. It is used as the base
// before a config file is applied, and on its own when no file is
// named.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Data: filepath.Join(homeDir, ".local", "share", "peerchat"),
		},
		Broker: BrokerConfig{
			URL:          "http://127.0.0.1:7878",
			Listen:       "127.0.0.1:7878",
			PollInterval: "1s",
		},
		Connection: ConnectionConfig{
			LivenessTimeout: "4s",
		},
	}
}

// Load loads configuration from the file named by PEERCHAT_CONFIG,
// falling back to [Default] when the variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil && overrides.Paths.Data != "" {
		c.Paths.Data = overrides.Paths.Data
	}

	if overrides.Broker != nil {
		if overrides.Broker.URL != "" {
			c.Broker.URL = overrides.Broker.URL
		}
		if overrides.Broker.Listen != "" {
			c.Broker.Listen = overrides.Broker.Listen
		}
		if overrides.Broker.PollInterval != "" {
			c.Broker.PollInterval = overrides.Broker.PollInterval
		}
	}

	// A non-empty server list replaces the base list wholesale.
	if overrides.ICE != nil && len(overrides.ICE.Servers) > 0 {
		c.ICE.Servers = overrides.ICE.Servers
	}

	if overrides.Connection != nil && overrides.Connection.LivenessTimeout != "" {
		c.Connection.LivenessTimeout = overrides.Connection.LivenessTimeout
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths
// and the broker URL.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.Data = expandVars(c.Paths.Data, vars)
	vars["PEERCHAT_DATA"] = c.Paths.Data

	c.Broker.URL = expandVars(c.Broker.URL, vars)
	c.Broker.Listen = expandVars(c.Broker.Listen, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. Every problem is
// reported, not just the first.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Data == "" {
		errs = append(errs, fmt.Errorf("paths.data is required"))
	}

	if c.Broker.URL == "" {
		errs = append(errs, fmt.Errorf("broker.url is required"))
	} else if parsed, err := url.Parse(c.Broker.URL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("broker.url must be an http(s) URL, got %q", c.Broker.URL))
	}

	if c.Broker.Listen == "" {
		errs = append(errs, fmt.Errorf("broker.listen is required"))
	}

	if _, err := positiveDuration(c.Broker.PollInterval); err != nil {
		errs = append(errs, fmt.Errorf("broker.poll_interval: %w", err))
	}

	if _, err := positiveDuration(c.Connection.LivenessTimeout); err != nil {
		errs = append(errs, fmt.Errorf("connection.liveness_timeout: %w", err))
	}

	for index, server := range c.ICE.Servers {
		if len(server.URLs) == 0 {
			errs = append(errs, fmt.Errorf("ice.servers[%d]: urls is required", index))
		}
		for _, serverURL := range server.URLs {
			if !strings.HasPrefix(serverURL, "stun:") && !strings.HasPrefix(serverURL, "stuns:") &&
				!strings.HasPrefix(serverURL, "turn:") && !strings.HasPrefix(serverURL, "turns:") {
				errs = append(errs, fmt.Errorf("ice.servers[%d]: %q is not a stun: or turn: URL", index, serverURL))
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// PollInterval returns broker.poll_interval as a duration. Call
// Validate first; an invalid value yields zero.
func (c *Config) PollInterval() time.Duration {
	duration, _ := positiveDuration(c.Broker.PollInterval)
	return duration
}

// LivenessTimeout returns connection.liveness_timeout as a duration.
// Call Validate first; an invalid value yields zero.
func (c *Config) LivenessTimeout() time.Duration {
	duration, _ := positiveDuration(c.Connection.LivenessTimeout)
	return duration
}

// DatabasePath returns the client database location under paths.data.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.Data, "peerchat.db")
}

// EnsurePaths creates the configured data directory if it does not exist.
func (c *Config) EnsurePaths() error {
	if c.Paths.Data == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.Data, 0700); err != nil {
		return fmt.Errorf("creating %s: %w", c.Paths.Data, err)
	}
	return nil
}

func positiveDuration(value string) (time.Duration, error) {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if duration <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", value)
	}
	return duration, nil
}
