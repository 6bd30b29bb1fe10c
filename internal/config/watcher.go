package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls a config file for hot reload. When the file's content changes
// and still validates, the new config becomes current and onChange receives
// the [ConfigDiff] against the previous one. Edits that change nothing
// semantically (comments, formatting) do not call onChange. An invalid edit is
// logged and the previous config stays current.
//
// The poll period follows server.config_poll_interval unless [WithInterval]
// pins it.
type Watcher struct {
	path     string
	pinned   time.Duration
	onChange func(ConfigDiff, *Config)

	mu       sync.Mutex
	current  *Config
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once

	lastMtime time.Time
	lastHash  [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval pins the polling interval, ignoring the config file's
// server.config_poll_interval.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.pinned = d
		}
	}
}

// NewWatcher loads path immediately and then polls it in a background
// goroutine until [Watcher.Stop].
func NewWatcher(path string, onChange func(ConfigDiff, *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, hash, mtime, err := w.loadAndHash()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.lastHash = hash
	w.lastMtime = mtime
	w.interval = w.intervalFor(cfg)

	go w.poll(w.interval)
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Interval returns the polling period in effect.
func (w *Watcher) Interval() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.interval
}

// Stop stops the file watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *Watcher) intervalFor(cfg *Config) time.Duration {
	if w.pinned > 0 {
		return w.pinned
	}
	return cfg.Server.ConfigPollInterval
}

func (w *Watcher) poll(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if next := w.check(); next != interval {
				slog.Info("config watcher: poll interval changed", "from", interval, "to", next)
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// check reloads the file when its mtime moved and its hash differs, and
// returns the polling period to use next.
func (w *Watcher) check() time.Duration {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return w.Interval()
	}

	w.mu.Lock()
	mtime, interval := w.lastMtime, w.interval
	w.mu.Unlock()

	if info.ModTime().Equal(mtime) {
		return interval
	}

	cfg, hash, newMtime, err := w.loadAndHash()
	if err != nil {
		slog.Warn("config watcher: failed to load config, keeping previous", "path", w.path, "err", err)
		return interval
	}

	w.mu.Lock()
	w.lastMtime = newMtime
	if hash == w.lastHash {
		w.mu.Unlock()
		return interval
	}
	d := Diff(w.current, cfg)
	w.current = cfg
	w.lastHash = hash
	w.interval = w.intervalFor(cfg)
	interval = w.interval
	w.mu.Unlock()

	if !d.Any() {
		slog.Debug("config watcher: file edited without effective changes", "path", w.path)
		return interval
	}
	slog.Info("config watcher: configuration reloaded",
		"path", w.path,
		"live", !d.RequiresRestart(),
	)

	// Outside the lock so the callback may call Current.
	if w.onChange != nil {
		w.onChange(d, cfg)
	}
	return interval
}

// loadAndHash parses and validates the file and returns it with the content
// hash and mtime.
func (w *Watcher) loadAndHash() (*Config, [sha256.Size]byte, time.Time, error) {
	var zeroHash [sha256.Size]byte

	f, err := os.Open(w.path)
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}

	return cfg, sha256.Sum256(data), info.ModTime(), nil
}
