package config

import (
	"slices"
	"time"
)

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// LinksChanged is applied live: new detail views use the new templates.
	LinksChanged bool

	// SuggestChanged is applied live to subsequent 404 responses.
	SuggestChanged bool

	// PollIntervalChanged is applied live by the [Watcher] itself.
	PollIntervalChanged bool
	NewPollInterval     time.Duration

	// SourceChanged, ListenAddrChanged, SessionsChanged and ReadinessChanged
	// need a restart.
	SourceChanged     bool
	ListenAddrChanged bool
	SessionsChanged   bool
	ReadinessChanged  bool
}

// Any reports whether anything changed.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.LinksChanged || d.SuggestChanged ||
		d.PollIntervalChanged || d.RequiresRestart()
}

// RequiresRestart reports whether a change cannot be applied live.
func (d ConfigDiff) RequiresRestart() bool {
	return d.SourceChanged || d.ListenAddrChanged || d.SessionsChanged || d.ReadinessChanged
}

// Diff compares old and new.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Server.ConfigPollInterval != new.Server.ConfigPollInterval {
		d.PollIntervalChanged = true
		d.NewPollInterval = new.Server.ConfigPollInterval
	}
	d.ListenAddrChanged = old.Server.ListenAddr != new.Server.ListenAddr
	d.ReadinessChanged = old.Server.ReadinessTimeout != new.Server.ReadinessTimeout
	d.LinksChanged = old.Links != new.Links
	d.SuggestChanged = old.Suggest != new.Suggest
	d.SessionsChanged = old.Sessions != new.Sessions
	d.SourceChanged = old.Source.BaseURL != new.Source.BaseURL ||
		!slices.Equal(old.Source.Mirrors, new.Source.Mirrors) ||
		old.Source.Timeout != new.Source.Timeout ||
		old.Source.MaxFailures != new.Source.MaxFailures ||
		old.Source.ResetTimeout != new.Source.ResetTimeout

	return d
}
