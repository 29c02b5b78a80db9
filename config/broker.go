package config

import "time"

// BrokerConfig contains job broker configuration: uploads, rate limits,
// and API key caching.
type BrokerConfig struct {
	// PayloadDir is the directory where uploaded media payloads are stored,
	// keyed by content hash.
	PayloadDir string `env:"BROKER_PAYLOAD_DIR" envDefault:"/var/lib/subgen/payloads"`

	// MaxUploadBytes caps the size of an uploaded media file.
	MaxUploadBytes int64 `env:"BROKER_MAX_UPLOAD_BYTES" envDefault:"2147483648"`

	// RateLimitWindow is the sliding window for per-key request rate limiting.
	RateLimitWindow time.Duration `env:"BROKER_RATE_LIMIT_WINDOW" envDefault:"1m"`

	// RateLimitMax is the maximum number of requests per key per window.
	// Zero disables rate limiting.
	RateLimitMax int `env:"BROKER_RATE_LIMIT_MAX" envDefault:"240"`

	// APIKeyCacheTTL is how long resolved API keys are cached in Redis
	// before falling back to the database.
	APIKeyCacheTTL time.Duration `env:"BROKER_API_KEY_CACHE_TTL" envDefault:"5m"`
}

// Sanitize applies guardrails to broker configuration values.
func (b *BrokerConfig) Sanitize() {
	if b.MaxUploadBytes <= 0 {
		b.MaxUploadBytes = 2 << 30
	}
	if b.RateLimitWindow <= 0 {
		b.RateLimitWindow = time.Minute
	}
	if b.APIKeyCacheTTL <= 0 {
		b.APIKeyCacheTTL = 5 * time.Minute
	}
}

// SweeperConfig contains stuck-job sweeper configuration. The sweeper is an
// opt-in extension: it only runs when the "sweeper" service mode is enabled.
type SweeperConfig struct {
	// Interval is how often the sweeper scans for stuck assignments.
	Interval time.Duration `env:"SWEEPER_INTERVAL" envDefault:"1m"`

	// MaxAssignmentAge is how long a job may sit in a non-terminal assigned
	// state before the sweeper returns it to the queue.
	MaxAssignmentAge time.Duration `env:"SWEEPER_MAX_ASSIGNMENT_AGE" envDefault:"30m"`
}

// Sanitize applies guardrails to sweeper configuration values.
func (s *SweeperConfig) Sanitize() {
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	if s.MaxAssignmentAge < time.Minute {
		s.MaxAssignmentAge = time.Minute
	}
}
