package config

import "strings"

// MetricsConfig contains StatsD metrics configuration.
type MetricsConfig struct {
	// Enabled toggles metric emission.
	Enabled bool `env:"METRICS_ENABLED" envDefault:"false"`

	// StatsdAddress is the host:port of a StatsD-compatible UDP endpoint.
	StatsdAddress string `env:"METRICS_STATSD_ADDRESS" envDefault:""`

	// Prefix is prepended to all metric names.
	Prefix string `env:"METRICS_PREFIX" envDefault:"subgencluster"`
}

// Sanitize applies guardrails to metrics configuration values.
func (m *MetricsConfig) Sanitize() {
	m.StatsdAddress = strings.TrimSpace(m.StatsdAddress)
	if m.StatsdAddress == "" {
		m.Enabled = false
	}
}

// IsEnabled reports whether metric emission is active.
func (m *MetricsConfig) IsEnabled() bool {
	return m.Enabled && m.StatsdAddress != ""
}
