// Package config defines the service configuration, its YAML loader, and a
// polling watcher for hot reload.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog maps l to a [slog.Level]. Unknown values map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration, loaded with [Load] or [LoadFromReader].
// Fields absent from the YAML keep the values from [Default].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Source   SourceConfig   `yaml:"source"`
	Links    LinksConfig    `yaml:"links"`
	Suggest  SuggestConfig  `yaml:"suggest"`
	Sessions SessionsConfig `yaml:"sessions"`
}

// ServerConfig holds the HTTP listener and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address to serve on, e.g. ":8080".
	ListenAddr string `yaml:"listen_addr"`

	LogLevel LogLevel `yaml:"log_level"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// ConfigPollInterval is how often the config file is checked for edits.
	// A new value takes effect on the next poll.
	ConfigPollInterval time.Duration `yaml:"config_poll_interval"`

	// ReadinessTimeout bounds each /readyz check.
	ReadinessTimeout time.Duration `yaml:"readiness_timeout"`
}

// SourceConfig locates the published dataset.
type SourceConfig struct {
	// BaseURL is the primary origin. Files are fetched as <base_url>/<file>.
	BaseURL string `yaml:"base_url"`

	// Mirrors are tried in order when the primary fails.
	Mirrors []string `yaml:"mirrors"`

	// Timeout bounds a single file request to one origin.
	Timeout time.Duration `yaml:"timeout"`

	// MaxFailures is the number of consecutive failures before an origin's
	// circuit opens.
	MaxFailures int `yaml:"max_failures"`

	// ResetTimeout is how long an open circuit waits before probing again.
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// LinksConfig holds the URL templates for external resources. "{name}" is
// replaced by the digimon's slug.
type LinksConfig struct {
	ImageURL        string `yaml:"image_url"`
	ReferenceURL    string `yaml:"reference_url"`
	EggReferenceURL string `yaml:"egg_reference_url"`

	// EggStage is the stage key whose digimon use EggReferenceURL.
	EggStage string `yaml:"egg_stage"`
}

// SuggestConfig tunes "did you mean" suggestions for unknown detail IDs.
type SuggestConfig struct {
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`
	FuzzyThreshold    float64 `yaml:"fuzzy_threshold"`

	// MaxResults caps the suggestions; 0 disables them.
	MaxResults int `yaml:"max_results"`
}

// SessionsConfig bounds per-client view tracking.
type SessionsConfig struct {
	// TTL is how long an idle client's navigation state is kept.
	TTL time.Duration `yaml:"ttl"`
}

// Default returns a configuration that works against the public dataset.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:         ":8080",
			LogLevel:           LogInfo,
			ShutdownTimeout:    10 * time.Second,
			ConfigPollInterval: 5 * time.Second,
			ReadinessTimeout:   5 * time.Second,
		},
		Source: SourceConfig{
			BaseURL:      "https://raw.githubusercontent.com/suminhong/diribon2gg/main/database",
			Mirrors:      []string{"https://cdn.jsdelivr.net/gh/suminhong/diribon2gg@main/database"},
			Timeout:      10 * time.Second,
			MaxFailures:  3,
			ResetTimeout: 30 * time.Second,
		},
		Links: LinksConfig{
			ImageURL:        "https://www.grindosaur.com/img/games/digital-tamers-2/icons/{name}-icon.png",
			ReferenceURL:    "https://www.grindosaur.com/en/games/digital-tamers-2/digimon/{name}",
			EggReferenceURL: "https://www.grindosaur.com/en/games/digital-tamers-2/digi-eggs/{name}",
			EggStage:        "Digi-Egg",
		},
		Suggest: SuggestConfig{
			PhoneticThreshold: 0.70,
			FuzzyThreshold:    0.85,
			MaxResults:        3,
		},
		Sessions: SessionsConfig{
			TTL: 30 * time.Minute,
		},
	}
}
