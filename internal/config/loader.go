package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// namePlaceholder must appear in every non-empty link template.
const namePlaceholder = "{name}"

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over [Default] and validates the
// result. Unknown keys are rejected. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg and returns every problem found, joined.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout %s must be positive", cfg.Server.ShutdownTimeout))
	}
	if cfg.Server.ConfigPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("server.config_poll_interval %s must be positive", cfg.Server.ConfigPollInterval))
	}
	if cfg.Server.ReadinessTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.readiness_timeout %s must be positive", cfg.Server.ReadinessTimeout))
	}

	if err := validateOrigin("source.base_url", cfg.Source.BaseURL); err != nil {
		errs = append(errs, err)
	}
	seen := map[string]string{cfg.Source.BaseURL: "source.base_url"}
	for i, m := range cfg.Source.Mirrors {
		field := fmt.Sprintf("source.mirrors[%d]", i)
		if err := validateOrigin(field, m); err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := seen[m]; dup {
			errs = append(errs, fmt.Errorf("%s %q duplicates %s", field, m, prev))
		}
		seen[m] = field
	}
	if cfg.Source.Timeout < 0 {
		errs = append(errs, fmt.Errorf("source.timeout %s must not be negative", cfg.Source.Timeout))
	}
	if cfg.Source.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("source.max_failures %d must not be negative", cfg.Source.MaxFailures))
	}
	if cfg.Source.ResetTimeout < 0 {
		errs = append(errs, fmt.Errorf("source.reset_timeout %s must not be negative", cfg.Source.ResetTimeout))
	}

	for field, tmpl := range map[string]string{
		"links.image_url":         cfg.Links.ImageURL,
		"links.reference_url":     cfg.Links.ReferenceURL,
		"links.egg_reference_url": cfg.Links.EggReferenceURL,
	} {
		if tmpl != "" && !strings.Contains(tmpl, namePlaceholder) {
			slog.Warn("link template has no {name} placeholder; every digimon will share one URL",
				"field", field, "template", tmpl)
		}
	}
	if cfg.Links.EggReferenceURL != "" && cfg.Links.EggStage == "" {
		slog.Warn("links.egg_reference_url is set but links.egg_stage is empty; it will never be used")
	}

	if t := cfg.Suggest.PhoneticThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("suggest.phonetic_threshold %.2f is out of range (0, 1]", t))
	}
	if t := cfg.Suggest.FuzzyThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("suggest.fuzzy_threshold %.2f is out of range (0, 1]", t))
	}
	if cfg.Suggest.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("suggest.max_results %d must not be negative", cfg.Suggest.MaxResults))
	}

	if cfg.Sessions.TTL < 0 {
		errs = append(errs, fmt.Errorf("sessions.ttl %s must not be negative", cfg.Sessions.TTL))
	}

	return errors.Join(errs...)
}

func validateOrigin(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s %q: %w", field, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s %q must be an http or https URL", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s %q has no host", field, raw)
	}
	return nil
}
