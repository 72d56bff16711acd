package config

// ConfigDiff describes what changed between two configs. Only fields that
// are safe to apply without restart are tracked; structural settings
// (listen address, provider selection, storage DSNs) require a process
// restart and are intentionally left out of this report.
type ConfigDiff struct {
	LogLevelChanged  bool
	NewLogLevel      string
	QueueChanged     bool
	NewQueue         QueueConfig
	KnowledgeChanged bool
	NewKnowledge     KnowledgeConfig
	ValidatorChanged bool
	NewValidator     ValidatorConfig
	RetentionChanged bool
	NewRetention     RetentionConfig
}

// Changed reports whether Diff found any hot-reloadable change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.QueueChanged || d.KnowledgeChanged || d.ValidatorChanged || d.RetentionChanged
}

// Diff compares old and new configs and returns what changed among the
// settings this engine reloads in place: log level, job queue limits,
// knowledge base thresholds, validator tuning, and retention windows.
func Diff(old, new *Config) ConfigDiff {
	var d ConfigDiff

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Queue != new.Queue {
		d.QueueChanged = true
		d.NewQueue = new.Queue
	}
	if old.Knowledge != new.Knowledge {
		d.KnowledgeChanged = true
		d.NewKnowledge = new.Knowledge
	}
	if old.Validator != new.Validator {
		d.ValidatorChanged = true
		d.NewValidator = new.Validator
	}
	if old.Retention != new.Retention {
		d.RetentionChanged = true
		d.NewRetention = new.Retention
	}

	return d
}
