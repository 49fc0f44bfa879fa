// Package config loads the console configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full console configuration.
type Config struct {
	VenueID  string `yaml:"venue_id"`
	LogLevel string `yaml:"log_level"`

	Remote struct {
		BaseURL        string `yaml:"base_url"`
		PushURL        string `yaml:"push_url"`
		Token          string `yaml:"token"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"remote"`

	Server struct {
		Port        int `yaml:"port"`
		MetricsPort int `yaml:"metrics_port"`
	} `yaml:"server"`

	Ingress struct {
		RetryIntervalMillis int `yaml:"retry_interval_millis"`
	} `yaml:"ingress"`

	Notifications struct {
		ToastSeconds int `yaml:"toast_seconds"`
	} `yaml:"notifications"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{LogLevel: "info"}
	cfg.Remote.TimeoutSeconds = 10
	cfg.Server.Port = 8080
	cfg.Server.MetricsPort = 9090
	cfg.Ingress.RetryIntervalMillis = 1000
	cfg.Notifications.ToastSeconds = 4
	return cfg
}

func (c *Config) validate() error {
	if c.VenueID == "" {
		return fmt.Errorf("config: venue_id is required")
	}
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("config: remote.base_url is required")
	}
	if c.Remote.PushURL == "" {
		return fmt.Errorf("config: remote.push_url is required")
	}
	return nil
}

// RemoteTimeout returns the HTTP client timeout.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

// RetryInterval returns the push channel redial interval.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.Ingress.RetryIntervalMillis) * time.Millisecond
}

// ToastTTL returns how long a toast stays visible.
func (c *Config) ToastTTL() time.Duration {
	return time.Duration(c.Notifications.ToastSeconds) * time.Second
}
