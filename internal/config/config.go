// Package config provides configuration management for archcanvas.
//
// The config file holds where the graph service lives and how a session
// behaves; the canvas itself lives in the session database and can be reset
// without touching it.
//
// Config file locations (priority order):
//  1. $ARCHCANVAS_CONFIG
//  2. ./archcanvas.yaml
//  3. $XDG_CONFIG_HOME/archcanvas/config.yaml
//  4. ~/.config/archcanvas/config.yaml
//  5. /etc/archcanvas/config.yaml
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"archcanvas/internal/domain"
)

const (
	DefaultBaseURL          = "http://localhost:8080/api"
	DefaultTimeout          = 10 * time.Second
	DefaultArchitectureName = "Untitled Architecture"
	DefaultDatabasePath     = "./archcanvas.db"
	DefaultServerAddr       = ":8090"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = DefaultBaseURL
	}
	c.Remote.BaseURL = strings.TrimRight(c.Remote.BaseURL, "/")
	if c.Remote.Timeout <= 0 {
		c.Remote.Timeout = Duration(DefaultTimeout)
	}
	if c.Session.ArchitectureName == "" {
		c.Session.ArchitectureName = DefaultArchitectureName
	}
	if len(c.Workflow.SubtypeTypes) == 0 {
		for _, t := range domain.DefaultSubtypeTypes {
			c.Workflow.SubtypeTypes = append(c.Workflow.SubtypeTypes, string(t))
		}
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	u, err := url.Parse(c.Remote.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid remote.base_url %q", c.Remote.BaseURL)
	}
	if _, err := c.SubtypeComponentTypes(); err != nil {
		return err
	}
	return nil
}

// SubtypeComponentTypes parses workflow.subtype_types
func (c *Config) SubtypeComponentTypes() ([]domain.ComponentType, error) {
	out := make([]domain.ComponentType, 0, len(c.Workflow.SubtypeTypes))
	for _, s := range c.Workflow.SubtypeTypes {
		t, err := domain.ParseComponentType(s)
		if err != nil {
			return nil, fmt.Errorf("workflow.subtype_types: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Remote: %s (timeout %s)\n", c.Remote.BaseURL, c.Remote.Timeout.Duration())
	summary += fmt.Sprintf("Architecture: %s\n", c.Session.ArchitectureName)
	summary += fmt.Sprintf("Database: %s (autosave %v)\n", c.Database.Path, c.Database.Autosave)
	summary += fmt.Sprintf("Subtype types: %s", strings.Join(c.Workflow.SubtypeTypes, ", "))
	return summary
}
