package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/suminhong/diribon2gg/internal/config"
)

const fullYAML = `
server:
  listen_addr: "127.0.0.1:9090"
  log_level: debug
  shutdown_timeout: 5s
  config_poll_interval: 2s
  readiness_timeout: 1s
source:
  base_url: https://data.example/db
  mirrors:
    - https://mirror.example/db
  timeout: 2s
  max_failures: 4
  reset_timeout: 1m
links:
  image_url: https://img.example/{name}.png
  reference_url: https://wiki.example/{name}
  egg_reference_url: https://wiki.example/eggs/{name}
  egg_stage: Egg
suggest:
  phonetic_threshold: 0.6
  fuzzy_threshold: 0.9
  max_results: 5
sessions:
  ttl: 10m
`

func TestLoadFromReader_Full(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	want := &config.Config{
		Server: config.ServerConfig{
			ListenAddr:         "127.0.0.1:9090",
			LogLevel:           config.LogDebug,
			ShutdownTimeout:    5 * time.Second,
			ConfigPollInterval: 2 * time.Second,
			ReadinessTimeout:   time.Second,
		},
		Source: config.SourceConfig{
			BaseURL:      "https://data.example/db",
			Mirrors:      []string{"https://mirror.example/db"},
			Timeout:      2 * time.Second,
			MaxFailures:  4,
			ResetTimeout: time.Minute,
		},
		Links: config.LinksConfig{
			ImageURL:        "https://img.example/{name}.png",
			ReferenceURL:    "https://wiki.example/{name}",
			EggReferenceURL: "https://wiki.example/eggs/{name}",
			EggStage:        "Egg",
		},
		Suggest: config.SuggestConfig{
			PhoneticThreshold: 0.6,
			FuzzyThreshold:    0.9,
			MaxResults:        5,
		},
		Sessions: config.SessionsConfig{TTL: 10 * time.Minute},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromReader_PartialKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("server:\n  log_level: warn\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	want := config.Default()
	want.Server.LogLevel = config.LogWarn
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromReader_Empty(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Errorf("empty input should yield defaults (-want +got):\n%s", diff)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen: \":80\"\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadFromReader_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("server: [unterminated"))
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr []string
	}{
		{
			name:   "defaults",
			mutate: func(*config.Config) {},
		},
		{
			name:    "empty listen addr",
			mutate:  func(c *config.Config) { c.Server.ListenAddr = "" },
			wantErr: []string{"server.listen_addr is required"},
		},
		{
			name:    "bad log level",
			mutate:  func(c *config.Config) { c.Server.LogLevel = "loud" },
			wantErr: []string{`server.log_level "loud"`},
		},
		{
			name: "non-positive server durations",
			mutate: func(c *config.Config) {
				c.Server.ConfigPollInterval = 0
				c.Server.ReadinessTimeout = -time.Second
			},
			wantErr: []string{"server.config_poll_interval 0s must be positive", "server.readiness_timeout -1s must be positive"},
		},
		{
			name:    "missing base url",
			mutate:  func(c *config.Config) { c.Source.BaseURL = "" },
			wantErr: []string{"source.base_url is required"},
		},
		{
			name:    "relative base url",
			mutate:  func(c *config.Config) { c.Source.BaseURL = "database/" },
			wantErr: []string{"must be an http or https URL"},
		},
		{
			name:    "ftp mirror",
			mutate:  func(c *config.Config) { c.Source.Mirrors = []string{"ftp://mirror.example"} },
			wantErr: []string{"source.mirrors[0]"},
		},
		{
			name: "duplicate mirror",
			mutate: func(c *config.Config) {
				c.Source.Mirrors = []string{c.Source.BaseURL}
			},
			wantErr: []string{"duplicates source.base_url"},
		},
		{
			name:    "negative timeout",
			mutate:  func(c *config.Config) { c.Source.Timeout = -time.Second },
			wantErr: []string{"source.timeout"},
		},
		{
			name:    "threshold zero",
			mutate:  func(c *config.Config) { c.Suggest.PhoneticThreshold = 0 },
			wantErr: []string{"suggest.phonetic_threshold"},
		},
		{
			name:    "threshold above one",
			mutate:  func(c *config.Config) { c.Suggest.FuzzyThreshold = 1.5 },
			wantErr: []string{"suggest.fuzzy_threshold"},
		},
		{
			name: "several problems joined",
			mutate: func(c *config.Config) {
				c.Server.LogLevel = "x"
				c.Suggest.MaxResults = -1
				c.Sessions.TTL = -time.Minute
			},
			wantErr: []string{"server.log_level", "suggest.max_results", "sessions.ttl"},
		},
		{
			name:   "template without placeholder only warns",
			mutate: func(c *config.Config) { c.Links.ImageURL = "https://img.example/static.png" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(cfg)
			err := config.Validate(cfg)

			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Validate: unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate: expected error containing %q", tt.wantErr)
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not contain %q", err, want)
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "diribon.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != "127.0.0.1:9090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.Server.ListenAddr, "127.0.0.1:9090")
	}
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want os.ErrNotExist", err)
	}
}
