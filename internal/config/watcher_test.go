package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/suminhong/diribon2gg/internal/config"
)

const watcherValidYAML = `
server:
  log_level: info
links:
  egg_stage: Digi-Egg
`

const watcherUpdatedYAML = `
server:
  log_level: debug
links:
  egg_stage: Baby
`

const watcherInvalidYAML = `
server:
  log_level: bananas
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %q: %v", path, err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "diribon.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, nil, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	cfg := w.Current()
	if cfg == nil {
		t.Fatal("Current() returned nil after initial load")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level: got %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
}

func TestWatcher_InitialLoadInvalid(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "diribon.yaml")
	writeFile(t, cfgPath, watcherInvalidYAML)

	if _, err := config.NewWatcher(cfgPath, nil); err == nil {
		t.Fatal("expected error for invalid initial config")
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "diribon.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	var mu sync.Mutex
	var gotDiff config.ConfigDiff
	var gotCfg *config.Config
	called := make(chan struct{}, 1)

	w, err := config.NewWatcher(cfgPath, func(d config.ConfigDiff, cfg *config.Config) {
		mu.Lock()
		gotDiff, gotCfg = d, cfg
		mu.Unlock()
		select {
		case called <- struct{}{}:
		default:
		}
	}, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	writeFile(t, cfgPath, watcherUpdatedYAML)

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not invoked within timeout")
	}

	mu.Lock()
	defer mu.Unlock()

	want := config.ConfigDiff{LogLevelChanged: true, NewLogLevel: config.LogDebug, LinksChanged: true}
	if gotDiff != want {
		t.Errorf("diff = %+v, want %+v", gotDiff, want)
	}
	if gotCfg == nil || gotCfg.Links.EggStage != "Baby" {
		t.Fatalf("callback config = %+v, want egg_stage Baby", gotCfg)
	}
	if got := w.Current(); got != gotCfg {
		t.Error("Current() differs from the config passed to the callback")
	}
}

func TestWatcher_CosmeticEditSkipsCallback(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "diribon.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	called := make(chan struct{}, 1)
	w, err := config.NewWatcher(cfgPath, func(config.ConfigDiff, *config.Config) {
		select {
		case called <- struct{}{}:
		default:
		}
	}, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	writeFile(t, cfgPath, "# reformatted\n"+watcherValidYAML)

	select {
	case <-called:
		t.Fatal("callback invoked for an edit without effective changes")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IntervalFromConfig(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "diribon.yaml")
	writeFile(t, cfgPath, "server:\n  config_poll_interval: 50ms\n")

	called := make(chan config.ConfigDiff, 1)
	w, err := config.NewWatcher(cfgPath, func(d config.ConfigDiff, _ *config.Config) {
		select {
		case called <- d:
		default:
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	if got := w.Interval(); got != 50*time.Millisecond {
		t.Fatalf("Interval() = %v, want 50ms", got)
	}

	time.Sleep(100 * time.Millisecond)
	writeFile(t, cfgPath, "server:\n  config_poll_interval: 1h\n")

	select {
	case d := <-called:
		if !d.PollIntervalChanged || d.NewPollInterval != time.Hour {
			t.Errorf("diff = %+v, want poll interval change to 1h", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not invoked within timeout")
	}
	if got := w.Interval(); got != time.Hour {
		t.Errorf("Interval() after reload = %v, want 1h", got)
	}
}

func TestWatcher_PinnedIntervalIgnoresConfig(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "diribon.yaml")
	writeFile(t, cfgPath, "server:\n  config_poll_interval: 1h\n")

	w, err := config.NewWatcher(cfgPath, nil, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	if got := w.Interval(); got != 50*time.Millisecond {
		t.Errorf("Interval() = %v, want pinned 50ms", got)
	}
}

func TestWatcher_InvalidChangeKeepsOld(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "diribon.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	called := make(chan struct{}, 1)
	w, err := config.NewWatcher(cfgPath, func(config.ConfigDiff, *config.Config) {
		select {
		case called <- struct{}{}:
		default:
		}
	}, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	writeFile(t, cfgPath, watcherInvalidYAML)

	select {
	case <-called:
		t.Fatal("callback invoked for invalid config")
	case <-time.After(300 * time.Millisecond):
	}

	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("log_level after invalid write: got %q, want %q", got, config.LogInfo)
	}
}

func TestWatcher_TouchWithoutChange(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "diribon.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	called := make(chan struct{}, 1)
	w, err := config.NewWatcher(cfgPath, func(config.ConfigDiff, *config.Config) {
		select {
		case called <- struct{}{}:
		default:
		}
	}, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	later := time.Now().Add(time.Second)
	if err := os.Chtimes(cfgPath, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case <-called:
		t.Fatal("callback invoked although content is unchanged")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "diribon.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w.Stop()
	w.Stop()
}
