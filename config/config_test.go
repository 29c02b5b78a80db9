package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:  "single service - http",
			input: "http",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP: true,
			},
			expectError: false,
		},
		{
			name:  "single service - sweeper",
			input: "sweeper",
			expected: map[ServiceMode]bool{
				ServiceModeSweeper: true,
			},
			expectError: false,
		},
		{
			name:  "multiple services",
			input: "http,sweeper",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:    true,
				ServiceModeSweeper: true,
			},
			expectError: false,
		},
		{
			name:  "services with spaces",
			input: " http , sweeper ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:    true,
				ServiceModeSweeper: true,
			},
			expectError: false,
		},
		{
			name:  "duplicate services",
			input: "http,http,sweeper",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:    true,
				ServiceModeSweeper: true,
			},
			expectError: false,
		},
		{
			name:        "empty string",
			input:       "",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "only spaces and commas",
			input:       " , , ",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "invalid service name",
			input:       "http,invalid-service",
			expected:    nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("expected %d services, got %d", len(tt.expected), len(result))
				return
			}

			for service, expected := range tt.expected {
				if result[service] != expected {
					t.Errorf("expected service %s to be %v, got %v", service, expected, result[service])
				}
			}
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	tests := []struct {
		name            string
		services        string
		expectedHTTP    bool
		expectedSweeper bool
	}{
		{
			name:            "default - http only",
			services:        "http",
			expectedHTTP:    true,
			expectedSweeper: false,
		},
		{
			name:            "http and sweeper",
			services:        "http,sweeper",
			expectedHTTP:    true,
			expectedSweeper: true,
		},
		{
			name:            "sweeper only",
			services:        "sweeper",
			expectedHTTP:    false,
			expectedSweeper: true,
		},
		{
			name:            "invalid configuration",
			services:        "invalid-service",
			expectedHTTP:    false,
			expectedSweeper: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Services: tt.services}

			if cfg.IsHTTPServerEnabled() != tt.expectedHTTP {
				t.Errorf("IsHTTPServerEnabled(): expected %v, got %v", tt.expectedHTTP, cfg.IsHTTPServerEnabled())
			}

			if cfg.IsSweeperEnabled() != tt.expectedSweeper {
				t.Errorf("IsSweeperEnabled(): expected %v, got %v", tt.expectedSweeper, cfg.IsSweeperEnabled())
			}
		})
	}
}

func TestAppConfig_ParseBrokerEnv(t *testing.T) {
	t.Setenv("BROKER_PAYLOAD_DIR", "/data/payloads")
	t.Setenv("BROKER_MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("BROKER_RATE_LIMIT_WINDOW", "30s")
	t.Setenv("BROKER_RATE_LIMIT_MAX", "60")
	t.Setenv("BROKER_API_KEY_CACHE_TTL", "10m")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	if cfg.Broker.PayloadDir != "/data/payloads" {
		t.Errorf("expected payload dir /data/payloads, got %q", cfg.Broker.PayloadDir)
	}
	if cfg.Broker.MaxUploadBytes != 1048576 {
		t.Errorf("expected max upload bytes 1048576, got %d", cfg.Broker.MaxUploadBytes)
	}
	if cfg.Broker.RateLimitWindow != 30*time.Second {
		t.Errorf("expected rate limit window 30s, got %v", cfg.Broker.RateLimitWindow)
	}
	if cfg.Broker.RateLimitMax != 60 {
		t.Errorf("expected rate limit max 60, got %d", cfg.Broker.RateLimitMax)
	}
	if cfg.Broker.APIKeyCacheTTL != 10*time.Minute {
		t.Errorf("expected api key cache ttl 10m, got %v", cfg.Broker.APIKeyCacheTTL)
	}
}

func TestBrokerConfig_Sanitize(t *testing.T) {
	cfg := BrokerConfig{
		MaxUploadBytes:  -1,
		RateLimitWindow: 0,
		APIKeyCacheTTL:  0,
	}

	cfg.Sanitize()

	if cfg.MaxUploadBytes <= 0 {
		t.Fatalf("expected max upload bytes fallback, got %d", cfg.MaxUploadBytes)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Fatalf("expected rate limit window fallback to 1m, got %v", cfg.RateLimitWindow)
	}
	if cfg.APIKeyCacheTTL != 5*time.Minute {
		t.Fatalf("expected api key cache ttl fallback to 5m, got %v", cfg.APIKeyCacheTTL)
	}
}

func TestSweeperConfig_Sanitize(t *testing.T) {
	cfg := SweeperConfig{
		Interval:         0,
		MaxAssignmentAge: time.Second,
	}

	cfg.Sanitize()

	if cfg.Interval != time.Minute {
		t.Fatalf("expected interval fallback to 1m, got %v", cfg.Interval)
	}
	if cfg.MaxAssignmentAge != time.Minute {
		t.Fatalf("expected max assignment age clamped to 1m, got %v", cfg.MaxAssignmentAge)
	}
}

func TestValidServiceModes(t *testing.T) {
	modes := ValidServiceModes()
	expected := []ServiceMode{
		ServiceModeHTTP,
		ServiceModeSweeper,
	}

	if len(modes) != len(expected) {
		t.Errorf("expected %d service modes, got %d", len(expected), len(modes))
	}

	for i, mode := range modes {
		if mode != expected[i] {
			t.Errorf("expected service mode %s at index %d, got %s", expected[i], i, mode)
		}
	}
}
