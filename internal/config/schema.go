package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Remote   RemoteConfig   `yaml:"remote"`
	Session  SessionConfig  `yaml:"session"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
}

// RemoteConfig locates the graph service
type RemoteConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"` // bound on each remote call
}

// SessionConfig holds per-session settings
type SessionConfig struct {
	ArchitectureName string `yaml:"architecture_name"`
}

// WorkflowConfig tunes the construction workflows
type WorkflowConfig struct {
	SubtypeTypes []string `yaml:"subtype_types,omitempty"` // component types that carry a subtype
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path     string `yaml:"path"`
	Autosave bool   `yaml:"autosave"` // snapshot the canvas after every graph change
}

// ServerConfig holds HTTP front end settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
