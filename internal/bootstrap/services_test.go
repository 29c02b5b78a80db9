package bootstrap

import (
	"testing"

	"github.com/b0vik/subgencluster-api-server/config"
)

func TestErrorChannelCapacity(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{
			name: "no services enabled",
			want: 0,
		},
		{
			name:  "http only",
			modes: []config.ServiceMode{config.ServiceModeHTTP},
			want:  1,
		},
		{
			name:  "sweeper only",
			modes: []config.ServiceMode{config.ServiceModeSweeper},
			want:  1,
		},
		{
			name:  "http and sweeper",
			modes: []config.ServiceMode{config.ServiceModeHTTP, config.ServiceModeSweeper},
			want:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			if got := errorChannelCapacity(enabled); got != tt.want {
				t.Fatalf("errorChannelCapacity(%v) = %d, want %d", tt.modes, got, tt.want)
			}
		})
	}
}

func TestErrorChannelBufferSize(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{
			name: "no services enabled",
			want: 1,
		},
		{
			name:  "http only",
			modes: []config.ServiceMode{config.ServiceModeHTTP},
			want:  2,
		},
		{
			name:  "http and sweeper",
			modes: []config.ServiceMode{config.ServiceModeHTTP, config.ServiceModeSweeper},
			want:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			if got := errorChannelBufferSize(enabled); got != tt.want {
				t.Fatalf("errorChannelBufferSize(%v) = %d, want %d", tt.modes, got, tt.want)
			}
		})
	}
}

func TestNewServices_RequiresConfigAndDB(t *testing.T) {
	if _, err := NewServices(ServiceDeps{}); err == nil {
		t.Fatal("NewServices() with no config should fail")
	}

	cfg := &config.AppConfig{}
	cfg.Sanitize()
	if _, err := NewServices(ServiceDeps{Config: cfg}); err == nil {
		t.Fatal("NewServices() with no database should fail")
	}
}

func TestGetEnabledServices(t *testing.T) {
	if got := GetEnabledServices(nil); len(got) != 0 {
		t.Fatalf("GetEnabledServices(nil) = %v, want empty", got)
	}

	cfg := &config.AppConfig{Services: "http,sweeper"}
	got := GetEnabledServices(cfg)
	if len(got) != 2 {
		t.Fatalf("GetEnabledServices(%q) = %v, want two entries", cfg.Services, got)
	}

	cfg = &config.AppConfig{Services: "bogus"}
	if got := GetEnabledServices(cfg); len(got) != 0 {
		t.Fatalf("GetEnabledServices(%q) = %v, want empty on invalid input", cfg.Services, got)
	}
}

func TestValidateServiceConfig(t *testing.T) {
	if err := ValidateServiceConfig(nil); err == nil {
		t.Fatal("ValidateServiceConfig(nil) should fail")
	}

	if err := ValidateServiceConfig(&config.AppConfig{Services: ""}); err == nil {
		t.Fatal("ValidateServiceConfig with no services should fail")
	}

	if err := ValidateServiceConfig(&config.AppConfig{Services: "http"}); err != nil {
		t.Fatalf("ValidateServiceConfig(http) = %v, want nil", err)
	}
}
