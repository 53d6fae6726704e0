package config

import "time"

// Settings are the dispatcher-level knobs a deployment tunes through a
// config file. Zero values fall back to the documented defaults when
// handed to the builder.
type Settings struct {
	// Debug enables verbose dispatch logging.
	Debug bool

	// StrictCatalog enables advisory schema validation (dev/test builds).
	StrictCatalog bool

	// SampleRate keeps this fraction of events (1.0 = all).
	SampleRate float64

	// ScrubKeys are payload keys redacted by the PII middleware.
	ScrubKeys []string

	// QueueKey is the storage key for the offline queue.
	QueueKey string

	// QueueMaxItems bounds the offline queue.
	QueueMaxItems int

	// QueueTTL prunes queued events older than this.
	QueueTTL time.Duration

	// FlushInterval is how often the offline queue is drained.
	FlushInterval time.Duration

	// FlushBatch is the number of events drained per flush cycle.
	FlushBatch int
}

// LoadSettings extracts Settings from a Config.
//
// Recognized keys (YAML shown):
//
//	debug: true
//	strict_catalog: true
//	sample_rate: 0.5
//	scrub_keys: [email, phone]
//	queue:
//	  key: telemetry.offline
//	  max_items: 500
//	  ttl: 24h
//	  flush_interval: 10s
//	  flush_batch: 10
func LoadSettings(cfg Config) Settings {
	q := cfg.Sub("queue")
	return Settings{
		Debug:         cfg.Bool("debug", false),
		StrictCatalog: cfg.Bool("strict_catalog", false),
		SampleRate:    cfg.Float("sample_rate", 1.0),
		ScrubKeys:     cfg.StringSlice("scrub_keys", nil),
		QueueKey:      q.String("key", "telemetry.offline"),
		QueueMaxItems: q.Int("max_items", 0),
		QueueTTL:      q.Duration("ttl", 0),
		FlushInterval: q.Duration("flush_interval", 0),
		FlushBatch:    q.Int("flush_batch", 0),
	}
}
